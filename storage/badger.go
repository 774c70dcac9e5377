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
	"encoding/binary"

	"code.vegaprotocol.io/pairbook/logging"

	"github.com/dgraph-io/badger/v2"
	"github.com/pkg/errors"
)

const badgerNamedLogger = "badger"

var (
	eventPrefix = []byte("E:")
	partyPrefix = []byte("P:")
)

type badgerStore struct {
	db *badger.DB
}

func newBadgerStore(opts badger.Options) (*badgerStore, error) {
	db, err := badger.Open(opts)
	if err != nil {
		return nil, errors.Wrap(err, "error opening badger database")
	}
	return &badgerStore{db: db}, nil
}

func getOptionsFromConfig(c Config, dir string, log *logging.Logger) badger.Options {
	opts := badger.DefaultOptions(dir).
		WithSyncWrites(bool(c.SyncWrites)).
		WithNumVersionsToKeep(1).
		WithLogger(log.Named(badgerNamedLogger))
	if c.InMemory {
		opts = opts.WithInMemory(true).WithDir("").WithValueDir("")
	}
	return opts
}

func (bs *badgerStore) Close() error {
	return bs.db.Close()
}

func seqBytes(seq uint64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, seq)
	return b
}

// eventKey sorts the events by sequence number.
func (bs *badgerStore) eventKey(seq uint64) []byte {
	return append(append([]byte{}, eventPrefix...), seqBytes(seq)...)
}

func (bs *badgerStore) partyPrefix(party string) []byte {
	k := append([]byte{}, partyPrefix...)
	k = append(k, party...)
	return append(k, ':')
}

func (bs *badgerStore) partyKey(party string, seq uint64) []byte {
	return append(bs.partyPrefix(party), seqBytes(seq)...)
}

// sequenceFromKey returns the trailing sequence number of an event or
// party key.
func sequenceFromKey(k []byte) uint64 {
	if len(k) < 8 {
		return 0
	}
	return binary.BigEndian.Uint64(k[len(k)-8:])
}
