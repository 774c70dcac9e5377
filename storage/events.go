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

package storage

import (
	"encoding/json"
	"math"
	"sync"

	"code.vegaprotocol.io/pairbook/core/events"
	"code.vegaprotocol.io/pairbook/logging"

	"github.com/dgraph-io/badger/v2"
	"github.com/pkg/errors"
)

var ErrUnsequencedEvent = errors.New("event has no sequence number")

// Events is the journal of all the events sent by the broker, indexed by
// sequence number and by party.
type Events struct {
	Config
	cfgMu  sync.RWMutex
	log    *logging.Logger
	badger *badgerStore
}

// NewEvents opens the journal stored in dir.
func NewEvents(log *logging.Logger, dir string, c Config) (*Events, error) {
	log = log.Named(namedLogger)
	log.SetLevel(c.Level.Get())

	bs, err := newBadgerStore(getOptionsFromConfig(c, dir, log))
	if err != nil {
		return nil, errors.Wrap(err, "couldn't open event journal")
	}
	return &Events{
		Config: c,
		log:    log,
		badger: bs,
	}, nil
}

func (e *Events) ReloadConf(cfg Config) {
	e.log.Info("reloading configuration")
	if e.log.GetLevel() != cfg.Level.Get() {
		e.log.Info("updating log level",
			logging.String("old", e.log.GetLevel().String()),
			logging.String("new", cfg.Level.String()),
		)
		e.log.SetLevel(cfg.Level.Get())
	}
	e.cfgMu.Lock()
	e.Config.MaxPage = cfg.MaxPage
	e.cfgMu.Unlock()
}

func (e *Events) Close() error {
	return e.badger.Close()
}

// SaveBatch stores the events and their party index in one write batch.
func (e *Events) SaveBatch(evts []events.Event) error {
	wb := e.badger.db.NewWriteBatch()
	for _, evt := range evts {
		if err := e.set(wb, evt); err != nil {
			wb.Cancel()
			return err
		}
	}
	if err := wb.Flush(); err != nil {
		e.log.Error("unable to flush events", logging.Error(err))
		return err
	}
	return nil
}

func (e *Events) set(wb *badger.WriteBatch, evt events.Event) error {
	seq := evt.Sequence()
	if seq == 0 {
		return errors.Wrap(ErrUnsequencedEvent, evt.Type().String())
	}
	be := evt.StreamMessage()
	buf, err := json.Marshal(be)
	if err != nil {
		return errors.Wrap(err, "unable to marshal event")
	}
	if err := wb.Set(e.badger.eventKey(seq), buf); err != nil {
		return errors.Wrap(err, "unable to store event")
	}
	if be.Order == nil {
		return nil
	}
	if err := wb.Set(e.badger.partyKey(be.Order.Party, seq), []byte{}); err != nil {
		return errors.Wrap(err, "unable to index event")
	}
	return nil
}

// List returns up to limit events with a sequence number of at least from.
func (e *Events) List(from uint64, limit int) ([]*events.BusEvent, error) {
	limit = e.pageSize(limit)
	out := []*events.BusEvent{}
	err := e.badger.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()
		for it.Seek(e.badger.eventKey(from)); it.ValidForPrefix(eventPrefix) && len(out) < limit; it.Next() {
			be, err := decode(it.Item())
			if err != nil {
				return err
			}
			out = append(out, be)
		}
		return nil
	})
	return out, err
}

// ListByParty returns up to limit events of the orders of a party, with a
// sequence number of at least from.
func (e *Events) ListByParty(party string, from uint64, limit int) ([]*events.BusEvent, error) {
	limit = e.pageSize(limit)
	prefix := e.badger.partyPrefix(party)
	out := []*events.BusEvent{}
	err := e.badger.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Seek(e.badger.partyKey(party, from)); it.ValidForPrefix(prefix) && len(out) < limit; it.Next() {
			item, err := txn.Get(e.badger.eventKey(sequenceFromKey(it.Item().Key())))
			if err != nil {
				return errors.Wrap(err, "dangling party index")
			}
			be, err := decode(item)
			if err != nil {
				return err
			}
			out = append(out, be)
		}
		return nil
	})
	return out, err
}

// LastSequence returns the highest sequence number stored, 0 when the
// journal is empty.
func (e *Events) LastSequence() (uint64, error) {
	var seq uint64
	err := e.badger.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Reverse = true
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()
		it.Seek(e.badger.eventKey(^uint64(0)))
		if it.ValidForPrefix(eventPrefix) {
			seq = sequenceFromKey(it.Item().Key())
		}
		return nil
	})
	return seq, err
}

func (e *Events) pageSize(limit int) int {
	e.cfgMu.RLock()
	max := e.MaxPage
	e.cfgMu.RUnlock()
	if max <= 0 {
		max = math.MaxInt
	}
	if limit <= 0 || limit > max {
		return max
	}
	return limit
}

func decode(item *badger.Item) (*events.BusEvent, error) {
	be := &events.BusEvent{}
	err := item.Value(func(v []byte) error {
		return json.Unmarshal(v, be)
	})
	if err != nil {
		return nil, errors.Wrap(err, "unable to decode event")
	}
	return be, nil
}
