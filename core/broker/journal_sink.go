// Copyright (C) 2023 Gobalsky Labs Limited
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as
// published by the Free Software Foundation, either version 3 of the
// License, or (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program.  If not, see <http://www.gnu.org/licenses/>.

package broker

import (
	"context"

	"code.vegaprotocol.io/pairbook/core/events"
	"code.vegaprotocol.io/pairbook/logging"
	"code.vegaprotocol.io/pairbook/metrics"
)

const journalSink = "journal"

// Journal persists events so they can be replayed later.
//
//go:generate go run github.com/golang/mock/mockgen -destination mocks/journal_mock.go -package mocks code.vegaprotocol.io/pairbook/core/broker Journal
type Journal interface {
	SaveBatch(evts []events.Event) error
}

// JournalSink is a synchronous subscriber, the broker waits for every batch
// to be stored before dispatching the next one.
type JournalSink struct {
	*Base
	log     *logging.Logger
	journal Journal
}

func NewJournalSink(ctx context.Context, log *logging.Logger, j Journal) *JournalSink {
	return &JournalSink{
		Base:    NewBase(ctx, 0, true),
		log:     log.Named(journalSink),
		journal: j,
	}
}

func (j *JournalSink) Push(evts ...events.Event) {
	if err := j.journal.SaveBatch(evts); err != nil {
		metrics.EventsCounterInc(journalSink, "failed")
		j.log.Error("failed to journal events", logging.Int("events", len(evts)), logging.Error(err))
		return
	}
	metrics.EventsCounterInc(journalSink, "sent")
}

func (j *JournalSink) Close() error {
	j.Halt()
	return nil
}
