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
	"encoding/json"
	"io"
	"sync"

	"code.vegaprotocol.io/pairbook/core/events"
	"code.vegaprotocol.io/pairbook/logging"
	"code.vegaprotocol.io/pairbook/metrics"

	"gopkg.in/natefinch/lumberjack.v2"
)

const fileSink = "file"

// FileSink appends the events as JSON lines to a rotated file.
type FileSink struct {
	*Base
	log *logging.Logger

	mu  sync.Mutex
	out io.WriteCloser
}

func NewFileSink(ctx context.Context, log *logging.Logger, config FileConfig, buf int) *FileSink {
	f := &FileSink{
		Base: NewBase(ctx, buf, false),
		log:  log.Named(fileSink),
		out: &lumberjack.Logger{
			Filename:   config.Path,
			MaxSize:    config.MaxSizeMB,
			MaxBackups: config.MaxBackups,
			MaxAge:     config.MaxAgeDays,
			Compress:   bool(config.Compress),
		},
	}
	go consume(f.Base, f.Push)
	return f
}

func (f *FileSink) Push(evts ...events.Event) {
	f.mu.Lock()
	defer f.mu.Unlock()
	enc := json.NewEncoder(f.out)
	for _, e := range evts {
		if err := enc.Encode(e.StreamMessage()); err != nil {
			metrics.EventsCounterInc(fileSink, "failed")
			f.log.Error("failed to write event", logging.Uint64("sequence", e.Sequence()), logging.Error(err))
			return
		}
	}
	metrics.EventsCounterInc(fileSink, "sent")
}

func (f *FileSink) Close() error {
	f.Halt()
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.out.Close()
}
