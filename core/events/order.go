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

package events

import (
	"context"

	"code.vegaprotocol.io/pairbook/core/types"
	"code.vegaprotocol.io/pairbook/libs/num"
)

// OrderPayload is the order data carried by all order events. Amount is the
// size of the order for placements, the traded size for fills and the
// unconsumed size for cancellations.
type OrderPayload struct {
	ID        uint64 `json:"id"`
	Party     string `json:"party"`
	Side      string `json:"side"`
	Amount    string `json:"amount"`
	Price     string `json:"price"`
	Remaining string `json:"remaining"`
}

type orderBase struct {
	*Base
	id        uint64
	party     string
	side      types.Side
	amount    *num.Uint
	price     *num.Uint
	remaining *num.Uint
}

func newOrderBase(ctx context.Context, t Type, o *types.Order, amount, price *num.Uint) orderBase {
	return orderBase{
		Base:      newBase(ctx, t),
		id:        o.ID,
		party:     o.Party,
		side:      o.Side,
		amount:    amount.Clone(),
		price:     price.Clone(),
		remaining: o.Remaining.Clone(),
	}
}

func (o orderBase) OrderID() uint64 {
	return o.id
}

func (o orderBase) PartyID() string {
	return o.party
}

func (o orderBase) IsParty(id string) bool {
	return o.party == id
}

func (o orderBase) Side() types.Side {
	return o.side
}

func (o orderBase) Amount() *num.Uint {
	return o.amount.Clone()
}

func (o orderBase) Price() *num.Uint {
	return o.price.Clone()
}

// Remaining is the size left on the order once the event happened.
func (o orderBase) Remaining() *num.Uint {
	return o.remaining.Clone()
}

func (o orderBase) StreamMessage() *BusEvent {
	busEvent := newBusEventFromBase(o.Base)
	busEvent.Order = &OrderPayload{
		ID:        o.id,
		Party:     o.party,
		Side:      o.side.String(),
		Amount:    o.amount.String(),
		Price:     o.price.String(),
		Remaining: o.remaining.String(),
	}
	return busEvent
}

type OrderPlaced struct {
	orderBase
}

// NewOrderPlacedEvent is built once the order is escrowed and on the book,
// before any crossing happened.
func NewOrderPlacedEvent(ctx context.Context, o *types.Order) *OrderPlaced {
	return &OrderPlaced{
		orderBase: newOrderBase(ctx, OrderPlacedEvent, o, o.Size, o.Price),
	}
}

type OrderFilled struct {
	orderBase
}

// NewOrderFilledEvent is built for one leg of a trade, o is the order as it
// stands after the fill.
func NewOrderFilledEvent(ctx context.Context, o *types.Order, amount, price *num.Uint) *OrderFilled {
	return &OrderFilled{
		orderBase: newOrderBase(ctx, OrderFilledEvent, o, amount, price),
	}
}

type OrderCancelled struct {
	orderBase
}

func NewOrderCancelledEvent(ctx context.Context, o *types.Order) *OrderCancelled {
	return &OrderCancelled{
		orderBase: newOrderBase(ctx, OrderCancelledEvent, o, o.Remaining, o.Price),
	}
}
