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

package types

import (
	"fmt"

	"code.vegaprotocol.io/pairbook/libs/num"
)

// Side of an order, either buying or selling the base asset.
type Side int8

const (
	// SideUnspecified is the zero value, never valid on an order.
	SideUnspecified Side = iota
	// SideBuy orders escrow the quote asset and receive the base asset.
	SideBuy
	// SideSell orders escrow the base asset and receive the quote asset.
	SideSell
)

func (s Side) String() string {
	switch s {
	case SideBuy:
		return "SIDE_BUY"
	case SideSell:
		return "SIDE_SELL"
	default:
		return "SIDE_UNSPECIFIED"
	}
}

// Opposite returns the side an order would match against.
func (s Side) Opposite() Side {
	switch s {
	case SideBuy:
		return SideSell
	case SideSell:
		return SideBuy
	default:
		return SideUnspecified
	}
}

// SideFromString parses the short ("buy", "sell") or long forms of a side.
func SideFromString(s string) (Side, error) {
	switch s {
	case "buy", "BUY", "SIDE_BUY":
		return SideBuy, nil
	case "sell", "SELL", "SIDE_SELL":
		return SideSell, nil
	default:
		return SideUnspecified, ErrInvalidSide
	}
}

type OrderStatus int8

const (
	OrderStatusUnspecified OrderStatus = iota
	// OrderStatusActive orders are resting on the book.
	OrderStatusActive
	// OrderStatusFilled orders were fully consumed.
	OrderStatusFilled
	// OrderStatusCancelled orders were removed by their owner.
	OrderStatusCancelled
)

func (s OrderStatus) String() string {
	switch s {
	case OrderStatusActive:
		return "STATUS_ACTIVE"
	case OrderStatusFilled:
		return "STATUS_FILLED"
	case OrderStatusCancelled:
		return "STATUS_CANCELLED"
	default:
		return "STATUS_UNSPECIFIED"
	}
}

// OrderSubmission is what a party sends to the engine.
type OrderSubmission struct {
	Party string
	Side  Side
	// Size is expressed in base units of the base asset.
	Size *num.Uint
	// Price is expressed in units of the quote asset per unit of base asset.
	Price *num.Uint
}

func (s OrderSubmission) String() string {
	return fmt.Sprintf(
		"party(%s) side(%s) size(%s) price(%s)",
		s.Party,
		s.Side.String(),
		num.UintToString(s.Size),
		num.UintToString(s.Price),
	)
}

type Order struct {
	ID        uint64
	Party     string
	Side      Side
	Price     *num.Uint
	Size      *num.Uint
	Remaining *num.Uint
	Status    OrderStatus
	// CreatedAt is the submission sequence number, it orders orders in time.
	CreatedAt uint64
}

func (o Order) Clone() *Order {
	cpy := o
	if o.Price != nil {
		cpy.Price = o.Price.Clone()
	} else {
		cpy.Price = num.UintZero()
	}
	if o.Size != nil {
		cpy.Size = o.Size.Clone()
	} else {
		cpy.Size = num.UintZero()
	}
	if o.Remaining != nil {
		cpy.Remaining = o.Remaining.Clone()
	} else {
		cpy.Remaining = num.UintZero()
	}
	return &cpy
}

func (o Order) String() string {
	return fmt.Sprintf(
		"ID(%d) party(%s) side(%s) price(%s) size(%s) remaining(%s) status(%s) createdAt(%v)",
		o.ID,
		o.Party,
		o.Side.String(),
		num.UintToString(o.Price),
		num.UintToString(o.Size),
		num.UintToString(o.Remaining),
		o.Status.String(),
		o.CreatedAt,
	)
}

type Orders []*Order

// Clone returns a deep copy of all the orders.
func (o Orders) Clone() []Order {
	out := make([]Order, 0, len(o))
	for _, v := range o {
		out = append(out, *v.Clone())
	}
	return out
}

type Trade struct {
	// Seq is the position of the trade in the stream of trades the engine
	// executed since start.
	Seq       uint64
	Price     *num.Uint
	Size      *num.Uint
	Buyer     string
	Seller    string
	BuyOrder  uint64
	SellOrder uint64
	Aggressor Side
}

// Notional returns size * price, failing on overflow.
func (t Trade) Notional() (*num.Uint, error) {
	n, overflow := num.UintZero().MulOverflow(t.Size, t.Price)
	if overflow {
		return nil, ErrArithmeticOverflow
	}
	return n, nil
}

func (t Trade) String() string {
	return fmt.Sprintf(
		"seq(%d) price(%s) size(%s) buyer(%s) seller(%s) buyOrder(%d) sellOrder(%d) aggressor(%s)",
		t.Seq,
		num.UintToString(t.Price),
		num.UintToString(t.Size),
		t.Buyer,
		t.Seller,
		t.BuyOrder,
		t.SellOrder,
		t.Aggressor.String(),
	)
}

// OrderConfirmation is returned to the submitter, it carries the order as it
// stands once the crossing pass ended and the trades executed for it.
type OrderConfirmation struct {
	Order                 *Order
	Trades                []*Trade
	PassiveOrdersAffected []*Order
}

// TradedVolume is the sum of the size of the trades, in base units.
func (o OrderConfirmation) TradedVolume() *num.Uint {
	total := num.UintZero()
	for _, t := range o.Trades {
		total.AddSum(t.Size)
	}
	return total
}

// TradedValue is the sum of size * price of the trades, in quote units.
func (o OrderConfirmation) TradedValue() (*num.Uint, error) {
	total := num.UintZero()
	for _, t := range o.Trades {
		n, err := t.Notional()
		if err != nil {
			return nil, err
		}
		if _, overflow := total.AddOverflow(total, n); overflow {
			return nil, ErrArithmeticOverflow
		}
	}
	return total, nil
}
