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
	"time"

	"code.vegaprotocol.io/pairbook/core/events"
	"code.vegaprotocol.io/pairbook/logging"
	"code.vegaprotocol.io/pairbook/metrics"

	"go.uber.org/atomic"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

// Subscriber interface allows pushing values to subscribers, can be set to
// a Skip state (temporarily not receiving any events), or closed. Otherwise events are pushed.
type Subscriber interface {
	Push(val ...events.Event)
	Skip() <-chan struct{}
	Closed() <-chan struct{}
	C() chan<- []events.Event
	Types() []events.Type
	SetID(id int)
	ID() int
	Ack() bool
}

type subscription struct {
	Subscriber
	required bool
	all      bool
	types    map[events.Type]struct{}
	backlog  *backlog
}

// maxBacklog caps the batches waiting for one optional subscriber.
const maxBacklog = 1024

// backlog holds the batches an optional subscriber was too slow to take.
type backlog struct {
	mu      sync.Mutex
	queue   [][]events.Event
	running bool
}

// pending reports whether batches are waiting or being delivered.
func (bl *backlog) pending() bool {
	bl.mu.Lock()
	defer bl.mu.Unlock()
	return bl.running
}

// push queues evts, spawn is set when no drain is running for it yet.
func (bl *backlog) push(evts []events.Event) (spawn, ok bool) {
	bl.mu.Lock()
	defer bl.mu.Unlock()
	if len(bl.queue) >= maxBacklog {
		return false, false
	}
	bl.queue = append(bl.queue, evts)
	spawn = !bl.running
	bl.running = true
	return spawn, true
}

// next pops the oldest batch. The backlog closes once it is empty, so
// batches sent from then on go straight to the subscriber.
func (bl *backlog) next() ([]events.Event, bool) {
	bl.mu.Lock()
	defer bl.mu.Unlock()
	if len(bl.queue) == 0 {
		bl.running = false
		bl.queue = nil
		return nil, false
	}
	evts := bl.queue[0]
	bl.queue = bl.queue[1:]
	return evts, true
}

func (s subscription) wants(t events.Type) bool {
	if s.all {
		return true
	}
	_, ok := s.types[t]
	return ok
}

// Broker fans the events out to all subscribers, in the order they were sent.
type Broker struct {
	ctx context.Context
	log *logging.Logger

	mu   sync.RWMutex
	subs map[int]subscription
	// released keys, reused first
	keys []int

	// smu keeps sequence numbers and queue order aligned
	smu sync.Mutex
	seq atomic.Uint64
	ch  chan queued
}

// queued is either a batch of events or a flush marker.
type queued struct {
	evts []events.Event
	done chan struct{}
}

// New creates a broker, dispatching stops once ctx is cancelled.
func New(ctx context.Context, log *logging.Logger, config Config) *Broker {
	log = log.Named(namedLogger)
	log.SetLevel(config.Level.Get())
	size := config.BufferSize
	if size <= 0 {
		size = 1
	}
	b := &Broker{
		ctx:  ctx,
		log:  log,
		subs: map[int]subscription{},
		keys: []int{},
		ch:   make(chan queued, size),
	}
	go b.dispatch()
	return b
}

// Send sends an event to all subscribers.
func (b *Broker) Send(event events.Event) {
	b.SendBatch([]events.Event{event})
}

// SendBatch sequences the events and queues them as one batch, subscribers
// see either all of them or none.
func (b *Broker) SendBatch(evts []events.Event) {
	if len(evts) == 0 {
		return
	}
	b.smu.Lock()
	defer b.smu.Unlock()
	for _, e := range evts {
		e.SetSequenceID(b.seq.Inc())
	}
	select {
	case <-b.ctx.Done():
		metrics.EventsCounterInc("broker", "dropped")
	case b.ch <- queued{evts: evts}:
	}
}

// Flush blocks until every batch sent before the call went through dispatch.
func (b *Broker) Flush(ctx context.Context) error {
	done := make(chan struct{})
	b.smu.Lock()
	select {
	case <-ctx.Done():
		b.smu.Unlock()
		return ctx.Err()
	case <-b.ctx.Done():
		b.smu.Unlock()
		return b.ctx.Err()
	case b.ch <- queued{done: done}:
	}
	b.smu.Unlock()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-b.ctx.Done():
		return b.ctx.Err()
	}
}

// SetLastSequence makes the broker continue numbering after seq, used to
// carry on from a journal after a restart.
func (b *Broker) SetLastSequence(seq uint64) {
	b.smu.Lock()
	defer b.smu.Unlock()
	if seq > b.seq.Load() {
		b.seq.Store(seq)
	}
}

// LastSequence returns the sequence number of the last event sent.
func (b *Broker) LastSequence() uint64 {
	return b.seq.Load()
}

func (b *Broker) dispatch() {
	for {
		select {
		case <-b.ctx.Done():
			return
		case q := <-b.ch:
			if q.done != nil {
				close(q.done)
				continue
			}
			for _, sub := range b.current() {
				batch := filter(q.evts, sub)
				if len(batch) == 0 {
					continue
				}
				if sub.required {
					b.sendChannelSync(sub, batch)
				} else {
					b.sendChannel(sub, batch)
				}
			}
		}
	}
}

func (b *Broker) current() []subscription {
	b.mu.RLock()
	defer b.mu.RUnlock()
	keys := maps.Keys(b.subs)
	slices.Sort(keys)
	subs := make([]subscription, 0, len(keys))
	for _, k := range keys {
		subs = append(subs, b.subs[k])
	}
	return subs
}

func filter(evts []events.Event, sub subscription) []events.Event {
	if sub.all {
		return evts
	}
	out := make([]events.Event, 0, len(evts))
	for _, e := range evts {
		if sub.wants(e.Type()) {
			out = append(out, e)
		}
	}
	return out
}

// sendChannel never blocks the dispatch loop. A batch the subscriber cannot
// take right away waits in its backlog, and once a backlog exists every
// later batch queues behind it so the subscriber sees them in order.
func (b *Broker) sendChannel(sub subscription, evts []events.Event) {
	if sub.backlog.pending() {
		b.enqueue(sub, evts)
		return
	}
	select {
	case <-b.ctx.Done():
		return
	case <-sub.Closed():
		b.Unsubscribe(sub.ID())
		return
	case <-sub.Skip():
		return
	case sub.C() <- evts:
		metrics.EventsCounterInc("broker", "delivered")
	default:
		b.enqueue(sub, evts)
	}
}

func (b *Broker) enqueue(sub subscription, evts []events.Event) {
	spawn, ok := sub.backlog.push(evts)
	if !ok {
		b.dropped(sub, evts)
		return
	}
	if spawn {
		go b.drain(sub)
	}
}

// drain delivers the backlog of sub oldest first, giving each batch one
// second before it is dropped.
func (b *Broker) drain(sub subscription) {
	for {
		evts, ok := sub.backlog.next()
		if !ok {
			return
		}
		t := time.NewTimer(time.Second)
		select {
		case <-b.ctx.Done():
		case <-sub.Closed():
		case <-sub.Skip():
		case sub.C() <- evts:
			metrics.EventsCounterInc("broker", "delivered")
		case <-t.C:
			b.dropped(sub, evts)
		}
		t.Stop()
	}
}

func (b *Broker) dropped(sub subscription, evts []events.Event) {
	metrics.EventsCounterInc("broker", "dropped")
	b.log.Debug("dropping events for slow subscriber",
		logging.Int("subscriber-id", sub.ID()),
		logging.Int("events", len(evts)),
	)
}

func (b *Broker) sendChannelSync(sub subscription, evts []events.Event) {
	select {
	case <-sub.Skip():
		return
	case <-sub.Closed():
		b.Unsubscribe(sub.ID())
		return
	default:
	}
	if sub.Ack() {
		sub.Push(evts...)
		metrics.EventsCounterInc("broker", "delivered")
		return
	}
	select {
	case <-b.ctx.Done():
	case <-sub.Skip():
	case <-sub.Closed():
		b.Unsubscribe(sub.ID())
	case sub.C() <- evts:
		metrics.EventsCounterInc("broker", "delivered")
	}
}

// Subscribe registers a new subscriber, returning the key. A required
// subscriber holds the dispatch loop until it accepted the batch.
func (b *Broker) Subscribe(s Subscriber, required bool) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	k := b.getKey()
	s.SetID(k)
	sub := subscription{
		Subscriber: s,
		required:   required,
		types:      map[events.Type]struct{}{},
		backlog:    &backlog{},
	}
	types := s.Types()
	if len(types) == 0 {
		sub.all = true
	}
	for _, t := range types {
		if t == events.All {
			sub.all = true
		}
		sub.types[t] = struct{}{}
	}
	b.subs[k] = sub
	return k
}

// SubscribeBatch subscribes a group of subscribers at once.
func (b *Broker) SubscribeBatch(required bool, subs ...Subscriber) {
	for _, s := range subs {
		b.Subscribe(s, required)
	}
}

// Unsubscribe removes a subscriber, its key is reused by the next one.
func (b *Broker) Unsubscribe(k int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.subs[k]; !ok {
		return
	}
	delete(b.subs, k)
	b.keys = append(b.keys, k)
}

func (b *Broker) getKey() int {
	if len(b.keys) > 0 {
		k := b.keys[0]
		b.keys = b.keys[1:]
		return k
	}
	return len(b.subs) + 1
}
