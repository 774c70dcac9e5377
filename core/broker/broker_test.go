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
	"bufio"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"code.vegaprotocol.io/pairbook/core/broker/mocks"
	"code.vegaprotocol.io/pairbook/core/events"
	"code.vegaprotocol.io/pairbook/core/types"
	"code.vegaprotocol.io/pairbook/libs/num"
	"code.vegaprotocol.io/pairbook/logging"

	"github.com/golang/mock/gomock"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const waitFor = 2 * time.Second

type testBroker struct {
	*Broker
	ctx   context.Context
	cfunc context.CancelFunc
}

func getBroker(t *testing.T) *testBroker {
	t.Helper()
	ctx, cfunc := context.WithCancel(context.Background())
	t.Cleanup(cfunc)
	return &testBroker{
		Broker: New(ctx, logging.NewTestLogger(), NewDefaultConfig()),
		ctx:    ctx,
		cfunc:  cfunc,
	}
}

// recorder is a synchronous subscriber keeping everything it receives.
type recorder struct {
	*Base
	mu      sync.Mutex
	batches [][]events.Event
}

func newRecorder(ctx context.Context, types ...events.Type) *recorder {
	return &recorder{Base: NewBase(ctx, 0, true, types...)}
}

func (r *recorder) Push(evts ...events.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.batches = append(r.batches, evts)
}

func (r *recorder) received() []events.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []events.Event{}
	for _, b := range r.batches {
		out = append(out, b...)
	}
	return out
}

func (r *recorder) waitFor(t *testing.T, n int) []events.Event {
	t.Helper()
	require.Eventually(t, func() bool { return len(r.received()) >= n }, waitFor, 5*time.Millisecond)
	return r.received()
}

func order(id uint64, party string) *types.Order {
	return &types.Order{
		ID:        id,
		Party:     party,
		Side:      types.SideSell,
		Price:     num.NewUint(4),
		Size:      num.NewUint(10),
		Remaining: num.NewUint(10),
	}
}

func placed(id uint64) events.Event {
	return events.NewOrderPlacedEvent(context.Background(), order(id, "alice"))
}

func cancelled(id uint64) events.Event {
	return events.NewOrderCancelledEvent(context.Background(), order(id, "alice"))
}

func sequences(evts []events.Event) []uint64 {
	out := make([]uint64, 0, len(evts))
	for _, e := range evts {
		out = append(out, e.Sequence())
	}
	return out
}

func TestBrokerSequencing(t *testing.T) {
	b := getBroker(t)
	r := newRecorder(b.ctx)
	b.Subscribe(r, true)

	b.SendBatch([]events.Event{placed(1), placed(2)})
	b.Send(cancelled(1))
	b.SendBatch(nil)

	evts := r.waitFor(t, 3)
	assert.Equal(t, []uint64{1, 2, 3}, sequences(evts))
	assert.Equal(t, uint64(3), b.LastSequence())

	r.mu.Lock()
	assert.Len(t, r.batches, 2)
	assert.Len(t, r.batches[0], 2)
	r.mu.Unlock()
}

func TestBrokerResumesSequence(t *testing.T) {
	b := getBroker(t)
	r := newRecorder(b.ctx)
	b.Subscribe(r, true)

	b.SetLastSequence(41)
	b.SetLastSequence(3)
	b.Send(placed(1))

	evts := r.waitFor(t, 1)
	assert.Equal(t, uint64(42), evts[0].Sequence())
}

func TestBrokerFlush(t *testing.T) {
	t.Run("flush returns once earlier batches were delivered", func(t *testing.T) {
		b := getBroker(t)
		r := newRecorder(b.ctx)
		b.Subscribe(r, true)

		for i := 1; i <= 5; i++ {
			b.Send(placed(uint64(i)))
		}
		require.NoError(t, b.Flush(context.Background()))
		assert.Len(t, r.received(), 5)
	})

	t.Run("flush fails once the broker stopped", func(t *testing.T) {
		b := getBroker(t)
		b.cfunc()
		assert.Error(t, b.Flush(context.Background()))
	})
}

func TestBrokerFiltersByType(t *testing.T) {
	b := getBroker(t)
	all := newRecorder(b.ctx, events.All)
	cancels := newRecorder(b.ctx, events.OrderCancelledEvent)
	b.SubscribeBatch(true, all, cancels)

	b.SendBatch([]events.Event{placed(1), cancelled(1), placed(2)})

	assert.Len(t, all.waitFor(t, 3), 3)
	got := cancels.waitFor(t, 1)
	require.Len(t, got, 1)
	assert.Equal(t, events.OrderCancelledEvent, got[0].Type())
	assert.Equal(t, uint64(2), got[0].Sequence())
}

func TestBrokerSubscriptions(t *testing.T) {
	b := getBroker(t)

	t.Run("keys are reused once released", func(t *testing.T) {
		r1, r2 := newRecorder(b.ctx), newRecorder(b.ctx)
		k1 := b.Subscribe(r1, true)
		k2 := b.Subscribe(r2, true)
		assert.NotEqual(t, k1, k2)
		assert.Equal(t, k1, r1.ID())

		b.Unsubscribe(k1)
		b.Unsubscribe(k1)
		r3 := newRecorder(b.ctx)
		assert.Equal(t, k1, b.Subscribe(r3, true))
		b.Unsubscribe(k2)
		b.Unsubscribe(k1)
	})

	t.Run("halted subscribers stop receiving", func(t *testing.T) {
		live, halted := newRecorder(b.ctx), newRecorder(b.ctx)
		b.SubscribeBatch(true, live, halted)
		halted.Halt()

		b.Send(placed(1))
		live.waitFor(t, 1)
		assert.Empty(t, halted.received())
	})

	t.Run("paused subscribers skip events until resumed", func(t *testing.T) {
		b := getBroker(t)
		r, marker := newRecorder(b.ctx), newRecorder(b.ctx)
		// r has the lower key so it is served before marker
		b.SubscribeBatch(true, r, marker)

		r.Pause()
		b.Send(placed(2))
		marker.waitFor(t, 1)
		r.Resume()
		b.Send(placed(3))
		marker.waitFor(t, 2)

		evts := r.received()
		require.Len(t, evts, 1)
		assert.Equal(t, uint64(3), evts[0].(*events.OrderPlaced).OrderID())
	})
}

func TestOptionalSubscriberReadsFromChannel(t *testing.T) {
	b := getBroker(t)
	base := NewBase(b.ctx, 4, false)
	b.Subscribe(&chanSub{Base: base}, false)

	b.SendBatch([]events.Event{placed(1), placed(2)})
	select {
	case evts := <-base.Recv():
		assert.Equal(t, []uint64{1, 2}, sequences(evts))
	case <-time.After(waitFor):
		t.Fatal("no events received")
	}
}

func TestSlowOptionalSubscriberKeepsOrder(t *testing.T) {
	b := getBroker(t)
	// unbuffered, nothing reads until every batch was sent
	base := NewBase(b.ctx, 0, false)
	b.Subscribe(&chanSub{Base: base}, false)

	const batches = 50
	for i := 0; i < batches; i++ {
		b.Send(placed(uint64(i + 1)))
	}
	require.NoError(t, b.Flush(context.Background()))

	got := []uint64{}
	for len(got) < batches {
		select {
		case evts := <-base.Recv():
			got = append(got, sequences(evts)...)
		case <-time.After(waitFor):
			t.Fatalf("received %d batches out of %d", len(got), batches)
		}
	}
	for i, seq := range got {
		assert.Equal(t, uint64(i+1), seq)
	}
}

type chanSub struct {
	*Base
}

func (chanSub) Push(...events.Event) {}

func TestSendAfterShutdownDoesNotBlock(t *testing.T) {
	b := getBroker(t)
	b.cfunc()
	done := make(chan struct{})
	go func() {
		for i := 0; i < 10; i++ {
			b.Send(placed(uint64(i + 1)))
		}
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(waitFor):
		t.Fatal("send blocked after shutdown")
	}
}

func TestJournalSink(t *testing.T) {
	ctrl := gomock.NewController(t)
	j := mocks.NewMockJournal(ctrl)
	b := getBroker(t)

	saved := make(chan []events.Event, 2)
	j.EXPECT().SaveBatch(gomock.Any()).Times(2).DoAndReturn(func(evts []events.Event) error {
		saved <- evts
		return nil
	})

	sink := NewJournalSink(b.ctx, logging.NewTestLogger(), j)
	assert.True(t, sink.Ack())
	b.Subscribe(sink, true)

	b.SendBatch([]events.Event{placed(1), cancelled(1)})
	b.Send(placed(2))

	for _, expect := range [][]uint64{{1, 2}, {3}} {
		select {
		case evts := <-saved:
			assert.Equal(t, expect, sequences(evts))
		case <-time.After(waitFor):
			t.Fatal("journal not called")
		}
	}
	require.NoError(t, sink.Close())
}

func TestFileSink(t *testing.T) {
	b := getBroker(t)
	cfg := NewDefaultConfig().File
	cfg.Path = filepath.Join(t.TempDir(), "events.jsonl")
	cfg.Compress = false

	sink := NewFileSink(b.ctx, logging.NewTestLogger(), cfg, 8)
	b.Subscribe(sink, true)
	b.SendBatch([]events.Event{placed(1), cancelled(1)})

	var lines []events.BusEvent
	require.Eventually(t, func() bool {
		lines = readLines(t, cfg.Path)
		return len(lines) == 2
	}, waitFor, 10*time.Millisecond)
	require.NoError(t, sink.Close())

	assert.Equal(t, "1", lines[0].ID)
	assert.Equal(t, "OrderPlaced", lines[0].Type)
	assert.Equal(t, "OrderCancelled", lines[1].Type)
	assert.Equal(t, "SIDE_SELL", lines[1].Order.Side)
}

func readLines(t *testing.T, path string) []events.BusEvent {
	t.Helper()
	f, err := os.Open(path)
	if err != nil {
		return nil
	}
	defer f.Close()
	out := []events.BusEvent{}
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		var be events.BusEvent
		require.NoError(t, json.Unmarshal(sc.Bytes(), &be))
		out = append(out, be)
	}
	return out
}

type fakeWriter struct {
	mu     sync.Mutex
	msgs   []kafka.Message
	closed bool
}

func (f *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.msgs = append(f.msgs, msgs...)
	return nil
}

func (f *fakeWriter) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func (f *fakeWriter) messages() []kafka.Message {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]kafka.Message{}, f.msgs...)
}

func TestKafkaSender(t *testing.T) {
	b := getBroker(t)

	t.Run("brokers are required", func(t *testing.T) {
		cfg := NewDefaultConfig().Kafka
		cfg.Brokers = nil
		_, err := NewKafkaSender(b.ctx, logging.NewTestLogger(), cfg, 1)
		assert.ErrorIs(t, err, ErrNoKafkaBrokers)
	})

	t.Run("messages are keyed by order id", func(t *testing.T) {
		w := &fakeWriter{}
		k := newKafkaSender(b.ctx, logging.NewTestLogger(), w, 8)
		b.Subscribe(k, true)
		b.SendBatch([]events.Event{placed(12), cancelled(12), placed(13)})

		var msgs []kafka.Message
		require.Eventually(t, func() bool {
			msgs = w.messages()
			return len(msgs) == 3
		}, waitFor, 5*time.Millisecond)

		assert.Equal(t, "12", string(msgs[0].Key))
		assert.Equal(t, "12", string(msgs[1].Key))
		assert.Equal(t, "13", string(msgs[2].Key))
		assert.Equal(t, "OrderCancelled", string(msgs[1].Headers[0].Value))

		var be events.BusEvent
		require.NoError(t, json.Unmarshal(msgs[2].Value, &be))
		assert.Equal(t, "3", be.ID)

		require.NoError(t, k.Close())
		assert.True(t, w.closed)
	})
}

func receive(t *testing.T, out <-chan *events.BusEvent, errs <-chan error, n int) []*events.BusEvent {
	t.Helper()
	got := []*events.BusEvent{}
	for len(got) < n {
		select {
		case be := <-out:
			got = append(got, be)
		case err := <-errs:
			t.Fatalf("receive failed: %v", err)
		case <-time.After(waitFor):
			t.Fatal("events not received")
		}
	}
	return got
}

func TestSocketSenderToReceiver(t *testing.T) {
	log := logging.NewTestLogger()
	cfg := NewDefaultConfig().Socket
	cfg.MaxDialInterval.Duration = 20 * time.Millisecond

	t.Run("events are streamed in order", func(t *testing.T) {
		b := getBroker(t)
		cfg.Address = "inproc://pairbook-events-ordered"
		recv, err := NewSocketReceiver(log, cfg.Address)
		require.NoError(t, err)
		defer recv.Close()
		out, errs := recv.Receive(b.ctx)

		sender, err := NewSocketSender(b.ctx, log, cfg, 8)
		require.NoError(t, err)
		defer sender.Close()
		b.Subscribe(sender, true)

		b.SendBatch([]events.Event{placed(5), cancelled(5)})

		got := receive(t, out, errs, 2)
		assert.Equal(t, "1", got[0].ID)
		assert.Equal(t, "OrderCancelled", got[1].Type)
		assert.Equal(t, uint64(5), got[1].Order.ID)
	})

	t.Run("the sender keeps dialing until the receiver listens", func(t *testing.T) {
		b := getBroker(t)
		cfg.Address = "inproc://pairbook-events-late"
		sender, err := NewSocketSender(b.ctx, log, cfg, 8)
		require.NoError(t, err)
		defer sender.Close()
		b.Subscribe(sender, true)
		b.Send(placed(6))

		time.Sleep(50 * time.Millisecond)
		recv, err := NewSocketReceiver(log, cfg.Address)
		require.NoError(t, err)
		defer recv.Close()
		out, errs := recv.Receive(b.ctx)

		got := receive(t, out, errs, 1)
		assert.Equal(t, uint64(6), got[0].Order.ID)
	})
}

func TestStartSinks(t *testing.T) {
	b := getBroker(t)
	log := logging.NewTestLogger()

	t.Run("nothing enabled starts nothing", func(t *testing.T) {
		sinks, err := StartSinks(b.ctx, log, NewDefaultConfig(), b.Broker)
		require.NoError(t, err)
		assert.Empty(t, sinks)
	})

	t.Run("a failing sink closes the others", func(t *testing.T) {
		cfg := NewDefaultConfig()
		cfg.File.Enabled = true
		cfg.File.Path = filepath.Join(t.TempDir(), "events.jsonl")
		cfg.Kafka.Enabled = true
		cfg.Kafka.Brokers = nil
		_, err := StartSinks(b.ctx, log, cfg, b.Broker)
		assert.ErrorIs(t, err, ErrNoKafkaBrokers)
	})

	t.Run("enabled sinks are subscribed", func(t *testing.T) {
		cfg := NewDefaultConfig()
		cfg.File.Enabled = true
		cfg.File.Path = filepath.Join(t.TempDir(), "events.jsonl")
		sinks, err := StartSinks(b.ctx, log, cfg, b.Broker)
		require.NoError(t, err)
		require.Len(t, sinks, 1)
		assert.NotZero(t, sinks[0].ID())
		CloseSinks(log, sinks)
	})
}
