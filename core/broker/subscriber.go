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
	"sync"

	"code.vegaprotocol.io/pairbook/core/events"
)

// Base implements the bookkeeping part of a Subscriber, sinks embed it and
// consume Recv.
type Base struct {
	ctx   context.Context
	cfunc context.CancelFunc
	ch    chan []events.Event
	ack   bool
	types []events.Type

	mu      sync.Mutex
	sCh     chan struct{}
	running bool
	id      int
}

// NewBase creates a base subscriber. An acking subscriber gets its events
// pushed synchronously by the broker, the others read them from a buffered
// channel.
func NewBase(ctx context.Context, buf int, ack bool, types ...events.Type) *Base {
	ctx, cfunc := context.WithCancel(ctx)
	return &Base{
		ctx:     ctx,
		cfunc:   cfunc,
		sCh:     make(chan struct{}),
		ch:      make(chan []events.Event, buf),
		ack:     ack,
		types:   types,
		running: true,
	}
}

// Ack returns whether or not this is a synchronous subscriber.
func (b *Base) Ack() bool {
	return b.ack
}

// Types returns the event types the subscriber wants, none means all.
func (b *Base) Types() []events.Type {
	return b.types
}

// Pause stops the delivery of events until Resume is called, the events
// sent in between are lost for this subscriber.
func (b *Base) Pause() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.running {
		b.running = false
		close(b.sCh)
	}
}

// Resume unpauses the subscriber.
func (b *Base) Resume() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.running {
		b.sCh = make(chan struct{})
		b.running = true
	}
}

// C returns the event channel for optional subscribers.
func (b *Base) C() chan<- []events.Event {
	return b.ch
}

// Recv is the consuming side of C.
func (b *Base) Recv() <-chan []events.Event {
	return b.ch
}

// Closed indicates to the broker that the subscriber is closed for business.
func (b *Base) Closed() <-chan struct{} {
	return b.ctx.Done()
}

// Context is cancelled once the subscriber is halted.
func (b *Base) Context() context.Context {
	return b.ctx
}

// Skip lets the broker know that the subscriber is not receiving events.
func (b *Base) Skip() <-chan struct{} {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.sCh
}

// Halt closes the subscriber for good. The event channel is left open so a
// broker racing with the halt never sends on a closed channel.
func (b *Base) Halt() {
	b.cfunc()
	b.Pause()
}

// SetID set the ID (exposed only to broker).
func (b *Base) SetID(id int) {
	b.mu.Lock()
	b.id = id
	b.mu.Unlock()
}

// ID returns the subscriber ID.
func (b *Base) ID() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.id
}

// consume hands every batch received by b to push until b is halted.
func consume(b *Base, push func(...events.Event)) {
	for {
		select {
		case <-b.Closed():
			return
		case evts := <-b.Recv():
			push(evts...)
		}
	}
}
