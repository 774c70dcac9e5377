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
	"strconv"

	vgcontext "code.vegaprotocol.io/pairbook/libs/context"

	"github.com/pkg/errors"
)

var ErrInvalidEventType = errors.New("invalid event type")

type Type int

// Base common denominator all event-bus events share.
type Base struct {
	ctx     context.Context
	traceID string
	seq     uint64
	et      Type
}

// Event - the base event interface type, the sequence ID is set by the
// broker when the event is sent.
type Event interface {
	Type() Type
	Context() context.Context
	TraceID() string
	Sequence() uint64
	SetSequenceID(s uint64)
	StreamMessage() *BusEvent
}

const (
	// All event type -> used by subscribers to just receive all events, has no actual corresponding event payload.
	All Type = iota
	// OrderPlacedEvent is sent when an order was escrowed and added to the book.
	OrderPlacedEvent
	// OrderFilledEvent is sent once per trade leg.
	OrderFilledEvent
	// OrderCancelledEvent is sent when an order is removed by its owner.
	OrderCancelledEvent
)

var eventStrings = map[Type]string{
	All:                 "ALL",
	OrderPlacedEvent:    "OrderPlaced",
	OrderFilledEvent:    "OrderFilled",
	OrderCancelledEvent: "OrderCancelled",
}

func newBase(ctx context.Context, t Type) *Base {
	ctx, tID := vgcontext.TraceIDFromContext(ctx)
	return &Base{
		ctx:     ctx,
		traceID: tID,
		et:      t,
	}
}

func (b Base) TraceID() string {
	return b.traceID
}

// SetSequenceID sets the sequence ID only once.
func (b *Base) SetSequenceID(s uint64) {
	if b.seq != 0 {
		return
	}
	b.seq = s
}

// Sequence returns event sequence number.
func (b Base) Sequence() uint64 {
	return b.seq
}

// Context returns context.
func (b Base) Context() context.Context {
	return b.ctx
}

// Type returns the event type.
func (b Base) Type() Type {
	return b.et
}

func (t Type) String() string {
	s, ok := eventStrings[t]
	if !ok {
		return "UNKNOWN EVENT"
	}
	return s
}

// TryFromString tries to parse a raw string into an event type, false indicates that.
func TryFromString(s string) (*Type, bool) {
	for k, v := range eventStrings {
		if v == s {
			return &k, true
		}
	}
	return nil, false
}

// BusEvent is the wire representation of an event sent to external sinks.
type BusEvent struct {
	ID      string        `json:"id"`
	Type    string        `json:"type"`
	TraceID string        `json:"trace_id"`
	Order   *OrderPayload `json:"order,omitempty"`
}

func newBusEventFromBase(base *Base) *BusEvent {
	return &BusEvent{
		ID:      strconv.FormatUint(base.seq, 10),
		Type:    base.et.String(),
		TraceID: base.traceID,
	}
}
