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

package matching

import (
	"code.vegaprotocol.io/pairbook/core/types"
	"code.vegaprotocol.io/pairbook/libs/num"

	"github.com/pkg/errors"
	"golang.org/x/exp/maps"
)

var (
	// ErrDuplicateOrder signals an order id is already resting on the ledger.
	ErrDuplicateOrder = errors.New("order already on the ledger")
	// ErrIndexOutOfRange signals a position that does not hold an order.
	ErrIndexOutOfRange = errors.New("index out of range")
	// ErrInvalidFill signals a fill larger than what remains on the order.
	ErrInvalidFill = errors.New("fill exceeds remaining size")
	// ErrEmptyOrder signals an order with nothing left to trade.
	ErrEmptyOrder = errors.New("order has no remaining size")
)

// bookSide holds the open orders of one side. Orders handed to a bookSide
// are owned by it and never mutated, updates replace the stored pointer.
type bookSide interface {
	insert(o *types.Order)
	// at returns the order at position i.
	at(i int) (*types.Order, bool)
	// replace swaps the order at position i with o, o must keep the same
	// price and id.
	replace(i int, o *types.Order)
	removeAt(i int) (*types.Order, error)
	// each walks the orders in position order until fn returns false.
	each(fn func(i int, o *types.Order) bool)
	len() int
	clone() bookSide
}

// Ledger keeps the open orders of both sides of the pair.
type Ledger struct {
	mode  LedgerMode
	buy   bookSide
	sell  bookSide
	index map[uint64]types.Side
}

// LedgerCheckpoint is the state of a ledger at a point in time, it can be
// restored to undo everything that happened since.
type LedgerCheckpoint struct {
	buy   bookSide
	sell  bookSide
	index map[uint64]types.Side
}

func NewLedger(mode LedgerMode) *Ledger {
	l := &Ledger{
		mode:  mode,
		index: map[uint64]types.Side{},
	}
	switch mode {
	case LedgerModePriceTime:
		l.buy = newPrioritySide(types.SideBuy)
		l.sell = newPrioritySide(types.SideSell)
	default:
		l.mode = LedgerModeSwapRemove
		l.buy = &swapSide{}
		l.sell = &swapSide{}
	}
	return l
}

func (l *Ledger) Mode() LedgerMode {
	return l.mode
}

func (l *Ledger) side(s types.Side) bookSide {
	if s == types.SideBuy {
		return l.buy
	}
	return l.sell
}

// Insert adds a copy of the order to its side.
func (l *Ledger) Insert(o *types.Order) error {
	if o.Side != types.SideBuy && o.Side != types.SideSell {
		return types.ErrInvalidSide
	}
	if o.Remaining == nil || o.Remaining.IsZero() {
		return ErrEmptyOrder
	}
	if _, ok := l.index[o.ID]; ok {
		return errors.Wrapf(ErrDuplicateOrder, "order-id %d", o.ID)
	}
	l.side(o.Side).insert(o.Clone())
	l.index[o.ID] = o.Side
	return nil
}

// Remove takes the order at position i out of the side and returns it.
func (l *Ledger) Remove(side types.Side, i int) (*types.Order, error) {
	o, err := l.side(side).removeAt(i)
	if err != nil {
		return nil, errors.Wrapf(err, "side %s index %d", side, i)
	}
	delete(l.index, o.ID)
	return o.Clone(), nil
}

// Fill decreases the remaining size of the order at position i by amount,
// the order leaves the ledger once nothing remains. The returned copy is the
// order after the fill.
func (l *Ledger) Fill(side types.Side, i int, amount *num.Uint) (*types.Order, error) {
	bs := l.side(side)
	o, ok := bs.at(i)
	if !ok {
		return nil, errors.Wrapf(ErrIndexOutOfRange, "side %s index %d", side, i)
	}
	if amount.GT(o.Remaining) {
		return nil, errors.Wrapf(ErrInvalidFill, "order-id %d remaining %s fill %s", o.ID, o.Remaining, amount)
	}

	updated := o.Clone()
	updated.Remaining.Sub(updated.Remaining, amount)
	if updated.Remaining.IsZero() {
		if _, err := bs.removeAt(i); err != nil {
			return nil, err
		}
		delete(l.index, o.ID)
		updated.Status = types.OrderStatusFilled
		return updated, nil
	}
	bs.replace(i, updated)
	return updated.Clone(), nil
}

// Orders returns copies of every open order of the side, in position order.
func (l *Ledger) Orders(side types.Side) []types.Order {
	bs := l.side(side)
	out := make([]types.Order, 0, bs.len())
	bs.each(func(_ int, o *types.Order) bool {
		out = append(out, *o.Clone())
		return true
	})
	return out
}

// Each walks the live orders of a side in position order. The orders must
// not be modified nor the ledger changed during the walk.
func (l *Ledger) Each(side types.Side, fn func(i int, o *types.Order) bool) {
	l.side(side).each(fn)
}

// Find returns the side and position of an order.
func (l *Ledger) Find(id uint64) (types.Side, int, *types.Order, bool) {
	side, ok := l.index[id]
	if !ok {
		return types.SideUnspecified, -1, nil, false
	}
	var (
		pos   = -1
		found *types.Order
	)
	l.side(side).each(func(i int, o *types.Order) bool {
		if o.ID == id {
			pos, found = i, o
			return false
		}
		return true
	})
	if found == nil {
		return types.SideUnspecified, -1, nil, false
	}
	return side, pos, found.Clone(), true
}

func (l *Ledger) Len(side types.Side) int {
	return l.side(side).len()
}

// Checkpoint captures the current state. Stored orders are immutable so the
// sides can share them with the checkpoint.
func (l *Ledger) Checkpoint() *LedgerCheckpoint {
	return &LedgerCheckpoint{
		buy:   l.buy.clone(),
		sell:  l.sell.clone(),
		index: maps.Clone(l.index),
	}
}

// Restore puts the ledger back in the state captured by cp. A checkpoint can
// be restored once.
func (l *Ledger) Restore(cp *LedgerCheckpoint) {
	l.buy, l.sell, l.index = cp.buy, cp.sell, cp.index
}
