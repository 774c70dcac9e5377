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
	"context"
	"time"

	"code.vegaprotocol.io/pairbook/core/events"
	"code.vegaprotocol.io/pairbook/core/types"
	"code.vegaprotocol.io/pairbook/libs/num"
	"code.vegaprotocol.io/pairbook/logging"
	"code.vegaprotocol.io/pairbook/metrics"

	"github.com/pkg/errors"
	"go.uber.org/atomic"
)

// ErrReentrantCall signals a call made from within an operation of the same
// engine, e.g. by a custody implementation calling back into it.
var ErrReentrantCall = errors.New("re-entrant call")

// CustodyTx is the transaction in which an engine operation moves funds.
type CustodyTx = types.CustodyTx

//go:generate go run github.com/golang/mock/mockgen -destination mocks/custody_mock.go -package mocks code.vegaprotocol.io/pairbook/core/matching Custody,CustodyTx

// Custody holds the assets of the parties and the venue escrow. A custody
// calling back into the engine gets ErrReentrantCall: at once when it passes
// on the context it was given, after Config.ReentrancyTimeout otherwise.
type Custody interface {
	Begin(ctx context.Context) CustodyTx
}

//go:generate go run github.com/golang/mock/mockgen -destination mocks/broker_mock.go -package mocks code.vegaprotocol.io/pairbook/core/matching Broker

// Broker receives the events of every committed operation.
type Broker interface {
	SendBatch(evts []events.Event)
}

type inFlightKey struct{}

// custodyCall is set while the lock holder waits on the custody, done is
// closed when the call returns.
type custodyCall struct {
	done chan struct{}
}

// Stats gives the number of resting orders and what the engine did since it
// started.
type Stats struct {
	BuyOrders  int
	SellOrders int
	Trades     uint64
	LastID     uint64
}

// Engine matches the orders of a single base/quote pair. Every operation
// runs to completion under the engine lock, queries read the state left by
// the last one.
type Engine struct {
	log *logging.Logger
	Config

	// lock is held by the running operation, it is a channel so a waiting
	// call can give up
	lock      chan struct{}
	inCustody atomic.Pointer[custodyCall]
	reentry   atomic.Duration
	view      atomic.Pointer[view]

	ledger   *Ledger
	custody  Custody
	broker   Broker
	nextID   uint64
	tradeSeq uint64
}

// NewEngine creates a matching engine for the pair set in the config.
func NewEngine(log *logging.Logger, cfg Config, custody Custody, broker Broker) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	// setup logger
	log = log.Named(namedLogger)
	log.SetLevel(cfg.Level.Get())

	e := &Engine{
		log:     log,
		Config:  cfg,
		lock:    make(chan struct{}, 1),
		ledger:  NewLedger(cfg.LedgerMode),
		custody: custody,
		broker:  broker,
	}
	e.reentry.Store(cfg.ReentrancyTimeout.Duration)
	e.publishView()
	return e, nil
}

// ReloadConf updates the internal configuration of the engine. The ledger
// mode and the assets are fixed for the life of the engine.
func (e *Engine) ReloadConf(cfg Config) {
	e.log.Info("reloading configuration")
	if e.log.GetLevel() != cfg.Level.Get() {
		e.log.Info("updating log level",
			logging.String("old", e.log.GetLevelString()),
			logging.String("new", cfg.Level.String()),
		)
		e.log.SetLevel(cfg.Level.Get())
	}

	e.wait()
	defer e.release()
	if cfg.LedgerMode != e.LedgerMode || cfg.BaseAsset != e.BaseAsset || cfg.QuoteAsset != e.QuoteAsset {
		e.log.Warn("ledger mode and assets cannot be changed at runtime, ignoring",
			logging.String("ledger-mode", string(cfg.LedgerMode)),
		)
		cfg.LedgerMode, cfg.BaseAsset, cfg.QuoteAsset = e.LedgerMode, e.BaseAsset, e.QuoteAsset
	}
	if cfg.ReentrancyTimeout.Duration <= 0 {
		cfg.ReentrancyTimeout = e.ReentrancyTimeout
	}
	e.reentry.Store(cfg.ReentrancyTimeout.Duration)
	e.Config = cfg
}

// SubmitBuy escrows amount * price of the quote asset and places a buy order.
func (e *Engine) SubmitBuy(ctx context.Context, party string, amount, price *num.Uint) (*types.OrderConfirmation, error) {
	return e.SubmitOrder(ctx, &types.OrderSubmission{
		Party: party,
		Side:  types.SideBuy,
		Size:  amount,
		Price: price,
	})
}

// SubmitSell escrows amount of the base asset and places a sell order.
func (e *Engine) SubmitSell(ctx context.Context, party string, amount, price *num.Uint) (*types.OrderConfirmation, error) {
	return e.SubmitOrder(ctx, &types.OrderSubmission{
		Party: party,
		Side:  types.SideSell,
		Size:  amount,
		Price: price,
	})
}

// SubmitOrder escrows the funds of the order, places it and matches the
// ledger until no buy crosses a sell. Either everything happens or nothing
// does.
func (e *Engine) SubmitOrder(ctx context.Context, sub *types.OrderSubmission) (*types.OrderConfirmation, error) {
	if sub == nil {
		return nil, types.ErrInvalidInput
	}
	if err := e.acquire(ctx); err != nil {
		return nil, err
	}
	defer e.release()
	defer metrics.EngineTimeObserve("SubmitOrder", time.Now())

	if err := validateSubmission(sub); err != nil {
		e.rejected(sub.Side, err)
		return nil, err
	}
	asset, escrow, err := e.escrowFor(sub.Side, sub.Size, sub.Price)
	if err != nil {
		e.rejected(sub.Side, err)
		return nil, err
	}

	op := e.begin(ctx, sub.Side)
	if err := op.tx.Debit(op.ctx, asset, sub.Party, escrow); err != nil {
		e.abort(op)
		e.rejected(sub.Side, err)
		return nil, errors.Wrap(types.ErrInsufficientFundsOrApproval, err.Error())
	}

	// an id is never reused, even when the operation aborts from here on
	e.nextID++
	id := e.nextID
	order := &types.Order{
		ID:        id,
		Party:     sub.Party,
		Side:      sub.Side,
		Price:     sub.Price.Clone(),
		Size:      sub.Size.Clone(),
		Remaining: sub.Size.Clone(),
		Status:    types.OrderStatusActive,
		CreatedAt: id,
	}
	if err := e.ledger.Insert(order); err != nil {
		e.log.Panic("could not insert order on the ledger",
			logging.Order(order),
			logging.Error(err))
	}
	op.emit(events.NewOrderPlacedEvent(op.ctx, order))

	if err := e.cross(op); err != nil {
		e.abort(op)
		e.rejected(sub.Side, err)
		return nil, err
	}
	if err := e.commit(op); err != nil {
		e.rejected(sub.Side, err)
		return nil, err
	}

	conf := &types.OrderConfirmation{
		Order:                 e.current(order),
		Trades:                op.trades,
		PassiveOrdersAffected: op.passives(),
	}
	metrics.OrderCounterInc(sub.Side.String(), "accepted")
	if e.log.GetLevel() == logging.DebugLevel {
		e.log.Debug("order submitted",
			logging.Order(conf.Order),
			logging.Int("trades", len(conf.Trades)))
	}
	return conf, nil
}

// CancelOrder removes a resting order of the party and releases its
// unconsumed escrow.
func (e *Engine) CancelOrder(ctx context.Context, party string, id uint64) (*types.Order, error) {
	if len(party) == 0 {
		return nil, types.ErrInvalidParty
	}
	if err := e.acquire(ctx); err != nil {
		return nil, err
	}
	defer e.release()
	defer metrics.EngineTimeObserve("CancelOrder", time.Now())

	side, pos, order, ok := e.ledger.Find(id)
	if !ok || order.Party != party {
		return nil, errors.Wrapf(types.ErrOrderNotFound, "order-id %d", id)
	}
	asset, release, err := e.escrowFor(side, order.Remaining, order.Price)
	if err != nil {
		return nil, err
	}

	op := e.begin(ctx, types.SideUnspecified)
	if err := op.tx.Credit(op.ctx, asset, party, release); err != nil {
		e.abort(op)
		return nil, errors.Wrap(types.ErrSettlementFailure, err.Error())
	}
	removed, err := e.ledger.Remove(side, pos)
	if err != nil {
		e.log.Panic("could not remove order from the ledger",
			logging.Order(order),
			logging.Error(err))
	}
	removed.Status = types.OrderStatusCancelled
	op.emit(events.NewOrderCancelledEvent(op.ctx, removed))

	if err := e.commit(op); err != nil {
		return nil, err
	}
	metrics.OrderCounterInc(side.String(), "cancelled")
	if e.LogRemovedOrdersDebug {
		e.log.Debug("order cancelled", logging.Order(removed))
	}
	return removed, nil
}

// CancelAll cancels every resting order and releases their escrow, it is
// used before the node stops.
func (e *Engine) CancelAll(ctx context.Context) ([]*types.Order, error) {
	if err := e.acquire(ctx); err != nil {
		return nil, err
	}
	defer e.release()
	defer metrics.EngineTimeObserve("CancelAll", time.Now())

	op := e.begin(ctx, types.SideUnspecified)
	cancelled := []*types.Order{}
	for _, side := range []types.Side{types.SideBuy, types.SideSell} {
		for e.ledger.Len(side) > 0 {
			o, err := e.ledger.Remove(side, 0)
			if err != nil {
				e.log.Panic("could not remove order from the ledger", logging.Error(err))
			}
			asset, release, err := e.escrowFor(side, o.Remaining, o.Price)
			if err != nil {
				e.abort(op)
				return nil, err
			}
			if err := op.tx.Credit(op.ctx, asset, o.Party, release); err != nil {
				e.abort(op)
				return nil, errors.Wrap(types.ErrSettlementFailure, err.Error())
			}
			o.Status = types.OrderStatusCancelled
			op.emit(events.NewOrderCancelledEvent(op.ctx, o))
			cancelled = append(cancelled, o)
		}
	}

	if err := e.commit(op); err != nil {
		return nil, err
	}
	e.log.Info("all orders cancelled", logging.Int("count", len(cancelled)))
	return cancelled, nil
}

// view is what queries read: the ledger and counters as they stood when
// the last operation released the engine. It is never modified once
// published.
type view struct {
	buys, sells []types.Order
	stats       Stats
}

func (e *Engine) publishView() {
	v := &view{
		buys:  e.ledger.Orders(types.SideBuy),
		sells: e.ledger.Orders(types.SideSell),
		stats: Stats{
			Trades: e.tradeSeq,
			LastID: e.nextID,
		},
	}
	v.stats.BuyOrders, v.stats.SellOrders = len(v.buys), len(v.sells)
	e.view.Store(v)
}

func cloneOrders(orders []types.Order) []types.Order {
	out := make([]types.Order, 0, len(orders))
	for _, o := range orders {
		out = append(out, *o.Clone())
	}
	return out
}

// BuyOrders returns a copy of the open buy orders in ledger order. Queries
// never wait for a running operation, they see the state it started from.
func (e *Engine) BuyOrders() []types.Order {
	return cloneOrders(e.view.Load().buys)
}

// SellOrders returns a copy of the open sell orders in ledger order.
func (e *Engine) SellOrders() []types.Order {
	return cloneOrders(e.view.Load().sells)
}

// GetOrderByID returns a copy of a resting order.
func (e *Engine) GetOrderByID(id uint64) (*types.Order, error) {
	v := e.view.Load()
	for _, side := range [][]types.Order{v.buys, v.sells} {
		for i := range side {
			if side[i].ID == id {
				return side[i].Clone(), nil
			}
		}
	}
	return nil, errors.Wrapf(types.ErrOrderNotFound, "order-id %d", id)
}

// Stats returns the ledger sizes, the trade count and the last order id.
func (e *Engine) Stats() Stats {
	return e.view.Load().stats
}

func (e *Engine) inFlight(ctx context.Context) bool {
	v, _ := ctx.Value(inFlightKey{}).(*Engine)
	return v == e
}

// acquire takes the engine lock for an operation. A call that finds the
// engine inside a custody call waits for that call to return, and fails with
// ErrReentrantCall when it does not within the reentrancy timeout, since a
// custody calling back into the engine would otherwise wait forever.
func (e *Engine) acquire(ctx context.Context) error {
	if e.inFlight(ctx) {
		return ErrReentrantCall
	}
	select {
	case e.lock <- struct{}{}:
		return nil
	default:
	}

	if call := e.inCustody.Load(); call != nil {
		t := time.NewTimer(e.reentry.Load())
		defer t.Stop()
		select {
		case e.lock <- struct{}{}:
			return nil
		case <-call.done:
		case <-t.C:
			return ErrReentrantCall
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	select {
	case e.lock <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// wait takes the engine lock without giving up.
func (e *Engine) wait() {
	e.lock <- struct{}{}
}

// release publishes what the operation left for the queries, then frees
// the engine.
func (e *Engine) release() {
	e.publishView()
	<-e.lock
}

// callCustody runs fn, marking the engine as inside a custody call.
func (e *Engine) callCustody(fn func() error) error {
	call := &custodyCall{done: make(chan struct{})}
	e.inCustody.Store(call)
	defer func() {
		e.inCustody.Store(nil)
		close(call.done)
	}()
	return fn()
}

// guardedTx marks every custody call made through it.
type guardedTx struct {
	e  *Engine
	tx CustodyTx
}

func (g guardedTx) Debit(ctx context.Context, asset, party string, amount *num.Uint) error {
	return g.e.callCustody(func() error { return g.tx.Debit(ctx, asset, party, amount) })
}

func (g guardedTx) Credit(ctx context.Context, asset, party string, amount *num.Uint) error {
	return g.e.callCustody(func() error { return g.tx.Credit(ctx, asset, party, amount) })
}

func (g guardedTx) Commit() error {
	return g.e.callCustody(g.tx.Commit)
}

func (g guardedTx) Rollback() {
	_ = g.e.callCustody(func() error {
		g.tx.Rollback()
		return nil
	})
}

// escrowFor returns what an order of the given size and price locks up.
func (e *Engine) escrowFor(side types.Side, size, price *num.Uint) (string, *num.Uint, error) {
	if side == types.SideSell {
		return e.BaseAsset, size.Clone(), nil
	}
	amount, overflow := num.UintZero().MulOverflow(size, price)
	if overflow {
		return "", nil, errors.Wrapf(types.ErrArithmeticOverflow, "size %s price %s", size, price)
	}
	return e.QuoteAsset, amount, nil
}

func (e *Engine) rejected(side types.Side, err error) {
	metrics.OrderCounterInc(side.String(), "rejected")
	e.log.Debug("order rejected", logging.Error(err))
}

// current returns the order as it stands on the ledger, or as it left it.
func (e *Engine) current(o *types.Order) *types.Order {
	if _, _, cur, ok := e.ledger.Find(o.ID); ok {
		return cur
	}
	filled := o.Clone()
	filled.Remaining = num.UintZero()
	filled.Status = types.OrderStatusFilled
	return filled
}

func validateSubmission(sub *types.OrderSubmission) error {
	if len(sub.Party) == 0 {
		return types.ErrInvalidParty
	}
	if sub.Side != types.SideBuy && sub.Side != types.SideSell {
		return types.ErrInvalidSide
	}
	if sub.Size == nil || sub.Size.IsZero() {
		return types.ErrInvalidAmount
	}
	if sub.Price == nil || sub.Price.IsZero() {
		return types.ErrInvalidPrice
	}
	return nil
}
