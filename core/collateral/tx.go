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

package collateral

import (
	"context"

	"code.vegaprotocol.io/pairbook/core/types"
	"code.vegaprotocol.io/pairbook/libs/num"
	"code.vegaprotocol.io/pairbook/logging"

	"github.com/pkg/errors"
)

type movementKind int

const (
	debit movementKind = iota
	credit
)

type movement struct {
	kind   movementKind
	asset  string
	party  string
	amount *num.Uint
}

// Tx stages the movements of one operation. The staged balances give early
// failures, Commit replays the movements against the engine state of the
// time so concurrent deposits and withdrawals are taken into account.
type Tx struct {
	e      *Engine
	closed bool

	general   map[accountKey]*num.Uint
	allow     map[accountKey]*num.Uint
	escrow    map[string]*num.Uint
	movements []movement
}

// Debit moves amount of asset from the general account of the party to the
// escrow pool.
func (t *Tx) Debit(ctx context.Context, asset, party string, amount *num.Uint) error {
	if t.closed {
		return ErrTxClosed
	}
	if err := t.e.checkMovement(asset, party, amount); err != nil {
		return err
	}
	t.e.mu.RLock()
	defer t.e.mu.RUnlock()

	m := movement{kind: debit, asset: asset, party: party, amount: amount.Clone()}
	if err := t.e.apply(m, t.general, t.allow, t.escrow); err != nil {
		return err
	}
	t.movements = append(t.movements, m)
	return nil
}

// Credit moves amount of asset from the escrow pool to the general account
// of the party.
func (t *Tx) Credit(ctx context.Context, asset, party string, amount *num.Uint) error {
	if t.closed {
		return ErrTxClosed
	}
	if len(party) == 0 {
		return types.ErrInvalidParty
	}
	if amount == nil {
		return types.ErrInvalidAmount
	}
	if amount.IsZero() {
		return nil
	}
	if err := t.e.checkMovement(asset, party, amount); err != nil {
		return err
	}
	t.e.mu.RLock()
	defer t.e.mu.RUnlock()

	m := movement{kind: credit, asset: asset, party: party, amount: amount.Clone()}
	if err := t.e.apply(m, t.general, t.allow, t.escrow); err != nil {
		return err
	}
	t.movements = append(t.movements, m)
	return nil
}

// Commit applies every movement at once, or none of them when the engine
// state changed in a way that makes one of them fail.
func (t *Tx) Commit() error {
	if t.closed {
		return ErrTxClosed
	}
	t.closed = true

	e := t.e
	e.mu.Lock()
	defer e.mu.Unlock()

	general := map[accountKey]*num.Uint{}
	allow := map[accountKey]*num.Uint{}
	escrow := map[string]*num.Uint{}
	for _, m := range t.movements {
		if err := e.apply(m, general, allow, escrow); err != nil {
			return errors.Wrap(ErrConflict, err.Error())
		}
	}

	for k, v := range general {
		e.getOrCreate(k.asset, k.party).general = v
	}
	for k, v := range allow {
		e.getOrCreate(k.asset, k.party).allowance = v
	}
	for asset, v := range escrow {
		e.escrow[asset] = v
	}
	if e.log.GetLevel() == logging.DebugLevel {
		for _, m := range t.movements {
			e.log.Debug("custody movement",
				logging.Bool("credit", m.kind == credit),
				logging.AssetID(m.asset),
				logging.PartyID(m.party),
				logging.Stringer("amount", m.amount))
		}
	}
	return nil
}

// Rollback discards the transaction, it is a no-op on a closed one.
func (t *Tx) Rollback() {
	t.closed = true
	t.movements = nil
}

// apply runs m against the staged values, reading the engine state for any
// value not staged yet. The caller holds the engine lock.
func (e *Engine) apply(m movement, general, allow map[accountKey]*num.Uint, escrow map[string]*num.Uint) error {
	k := accountKey{m.asset, m.party}
	bal, ok := general[k]
	if !ok {
		bal = num.UintZero()
		if acc, ok := e.accounts[k]; ok {
			bal = acc.general.Clone()
		}
	}
	pool, ok := escrow[m.asset]
	if !ok {
		pool = num.UintZero()
		if v, ok := e.escrow[m.asset]; ok {
			pool = v.Clone()
		}
	}

	switch m.kind {
	case debit:
		rest, short := num.UintZero().SubOverflow(bal, m.amount)
		if short {
			return ErrInsufficientBalance
		}
		if e.RequireApproval {
			al, ok := allow[k]
			if !ok {
				al = num.UintZero()
				if acc, ok := e.accounts[k]; ok {
					al = acc.allowance.Clone()
				}
			}
			left, short := num.UintZero().SubOverflow(al, m.amount)
			if short {
				return ErrInsufficientAllowance
			}
			allow[k] = left
		}
		newPool, overflow := num.UintZero().AddOverflow(pool, m.amount)
		if overflow {
			return types.ErrArithmeticOverflow
		}
		general[k] = rest
		escrow[m.asset] = newPool
	case credit:
		if _, ok := e.frozen[m.party]; ok {
			return errors.Wrapf(ErrPartyFrozen, "party %s", m.party)
		}
		newPool, short := num.UintZero().SubOverflow(pool, m.amount)
		if short {
			return ErrInsufficientEscrow
		}
		newBal, overflow := num.UintZero().AddOverflow(bal, m.amount)
		if overflow {
			return types.ErrArithmeticOverflow
		}
		general[k] = newBal
		escrow[m.asset] = newPool
	}
	return nil
}
