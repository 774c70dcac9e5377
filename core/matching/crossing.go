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

	"code.vegaprotocol.io/pairbook/core/events"
	"code.vegaprotocol.io/pairbook/core/types"
	"code.vegaprotocol.io/pairbook/libs/num"
	"code.vegaprotocol.io/pairbook/logging"
	"code.vegaprotocol.io/pairbook/metrics"

	"github.com/pkg/errors"
)

// operation holds what a submission or a cancellation did until it is
// committed or aborted.
type operation struct {
	ctx        context.Context
	tx         CustodyTx
	checkpoint *LedgerCheckpoint
	tradeSeq   uint64
	aggressor  types.Side

	events   []events.Event
	trades   []*types.Trade
	affected map[uint64]*types.Order
	// order in which passive orders were first hit
	affectedIDs []uint64
}

func (e *Engine) begin(ctx context.Context, aggressor types.Side) *operation {
	ctx = context.WithValue(ctx, inFlightKey{}, e)
	var tx CustodyTx
	_ = e.callCustody(func() error {
		tx = e.custody.Begin(ctx)
		return nil
	})
	return &operation{
		ctx:        ctx,
		tx:         guardedTx{e: e, tx: tx},
		checkpoint: e.ledger.Checkpoint(),
		tradeSeq:   e.tradeSeq,
		aggressor:  aggressor,
		affected:   map[uint64]*types.Order{},
	}
}

func (op *operation) emit(evts ...events.Event) {
	op.events = append(op.events, evts...)
}

func (op *operation) passives() []*types.Order {
	out := make([]*types.Order, 0, len(op.affectedIDs))
	for _, id := range op.affectedIDs {
		out = append(out, op.affected[id])
	}
	return out
}

// abort drops everything the operation did. The order id it may have
// allocated stays consumed.
func (e *Engine) abort(op *operation) {
	op.tx.Rollback()
	e.ledger.Restore(op.checkpoint)
	e.tradeSeq = op.tradeSeq
	op.events = nil
}

func (e *Engine) commit(op *operation) error {
	if err := op.tx.Commit(); err != nil {
		e.log.Error("could not commit custody transaction", logging.Error(err))
		e.abort(op)
		return errors.Wrap(types.ErrSettlementFailure, err.Error())
	}

	if len(op.events) > 0 {
		e.broker.SendBatch(op.events)
	}

	metrics.TradeCounterAdd(len(op.trades))
	for _, t := range op.trades {
		metrics.TradedVolumeAdd(e.BaseAsset, t.Size)
		if n, err := t.Notional(); err == nil {
			metrics.TradedVolumeAdd(e.QuoteAsset, n)
		}
	}
	metrics.OrderGaugeSet(types.SideBuy.String(), e.ledger.Len(types.SideBuy))
	metrics.OrderGaugeSet(types.SideSell.String(), e.ledger.Len(types.SideSell))
	return nil
}

// cross matches the ledger until no buy order crosses a sell order. Every
// match reduces the total remaining size on the ledger so the loop ends.
func (e *Engine) cross(op *operation) error {
	for {
		bi, si, buy, sell, ok := e.findCrossing()
		if !ok {
			return nil
		}
		if err := e.match(op, bi, si, buy, sell); err != nil {
			return err
		}
	}
}

// findCrossing walks the buy orders in position order, and for each of them
// the sell orders in position order, and returns the first pair where the
// buy price is at least the sell price.
func (e *Engine) findCrossing() (bi, si int, buy, sell *types.Order, found bool) {
	if e.ledger.Len(types.SideBuy) == 0 || e.ledger.Len(types.SideSell) == 0 {
		return
	}
	e.ledger.Each(types.SideBuy, func(i int, b *types.Order) bool {
		e.ledger.Each(types.SideSell, func(j int, s *types.Order) bool {
			if b.Price.GTE(s.Price) {
				bi, si, buy, sell, found = i, j, b, s, true
				return false
			}
			return true
		})
		return !found
	})
	return
}

// match settles a trade between the buy order at bi and the sell order at si
// at the sell price.
func (e *Engine) match(op *operation, bi, si int, buy, sell *types.Order) error {
	amount := num.Min(buy.Remaining, sell.Remaining).Clone()
	price := sell.Price.Clone()

	quote, overflow := num.UintZero().MulOverflow(amount, price)
	if overflow {
		return errors.Wrapf(types.ErrArithmeticOverflow, "trade size %s price %s", amount, price)
	}

	if err := op.tx.Credit(op.ctx, e.BaseAsset, buy.Party, amount); err != nil {
		return e.settlementFailure(err, buy, sell)
	}
	if err := op.tx.Credit(op.ctx, e.QuoteAsset, sell.Party, quote); err != nil {
		return e.settlementFailure(err, buy, sell)
	}
	// the buyer escrowed at its own price, the difference is released
	if buy.Price.GT(price) {
		refund, overflow := num.UintZero().MulOverflow(amount, num.UintZero().Sub(buy.Price, price))
		if overflow {
			return errors.Wrapf(types.ErrArithmeticOverflow, "price improvement on order-id %d", buy.ID)
		}
		if err := op.tx.Credit(op.ctx, e.QuoteAsset, buy.Party, refund); err != nil {
			return e.settlementFailure(err, buy, sell)
		}
	}

	// positions on one side are not affected by fills on the other
	updatedBuy, err := e.ledger.Fill(types.SideBuy, bi, amount)
	if err != nil {
		e.log.Panic("could not fill buy order", logging.Order(buy), logging.Error(err))
	}
	updatedSell, err := e.ledger.Fill(types.SideSell, si, amount)
	if err != nil {
		e.log.Panic("could not fill sell order", logging.Order(sell), logging.Error(err))
	}

	e.tradeSeq++
	trade := &types.Trade{
		Seq:       e.tradeSeq,
		Price:     price,
		Size:      amount,
		Buyer:     buy.Party,
		Seller:    sell.Party,
		BuyOrder:  buy.ID,
		SellOrder: sell.ID,
		Aggressor: op.aggressor,
	}
	op.trades = append(op.trades, trade)
	op.emit(
		events.NewOrderFilledEvent(op.ctx, updatedBuy, amount, price),
		events.NewOrderFilledEvent(op.ctx, updatedSell, amount, price),
	)
	for _, o := range []*types.Order{updatedBuy, updatedSell} {
		if o.Side == op.aggressor {
			continue
		}
		if _, ok := op.affected[o.ID]; !ok {
			op.affectedIDs = append(op.affectedIDs, o.ID)
		}
		op.affected[o.ID] = o
	}

	if e.log.GetLevel() == logging.DebugLevel {
		e.log.Debug("trade executed", logging.Trade(trade))
	}
	if e.LogRemovedOrdersDebug {
		for _, o := range []*types.Order{updatedBuy, updatedSell} {
			if o.Status == types.OrderStatusFilled {
				e.log.Debug("order filled and removed", logging.Order(o))
			}
		}
	}
	return nil
}

func (e *Engine) settlementFailure(err error, buy, sell *types.Order) error {
	e.log.Error("settlement leg failed",
		logging.Uint64("buy-order-id", buy.ID),
		logging.Uint64("sell-order-id", sell.ID),
		logging.Error(err))
	return errors.Wrap(types.ErrSettlementFailure, err.Error())
}
