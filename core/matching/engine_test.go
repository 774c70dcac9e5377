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

package matching_test

import (
	"testing"

	"code.vegaprotocol.io/pairbook/config/encoding"
	"code.vegaprotocol.io/pairbook/core/events"
	"code.vegaprotocol.io/pairbook/core/matching"
	"code.vegaprotocol.io/pairbook/core/types"
	"code.vegaprotocol.io/pairbook/libs/num"
	"code.vegaprotocol.io/pairbook/logging"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var allModes = []matching.LedgerMode{matching.LedgerModeSwapRemove, matching.LedgerModePriceTime}

func TestScenarios(t *testing.T) {
	for _, mode := range allModes {
		mode := mode
		t.Run(string(mode), func(t *testing.T) {
			t.Run("equal orders trade fully", func(t *testing.T) { testFullTrade(t, mode) })
			t.Run("larger buy keeps resting after a partial fill", func(t *testing.T) { testPartialFill(t, mode) })
			t.Run("orders that do not cross both rest", func(t *testing.T) { testNoCross(t, mode) })
			t.Run("zero amount is rejected without side effect", func(t *testing.T) { testZeroAmount(t, mode) })
		})
	}
}

func testFullTrade(t *testing.T, mode matching.LedgerMode) {
	te := getTestEngine(t, mode)
	te.buy(t, "bob", 10, 5)
	conf := te.sell(t, "sam", 10, 5)

	require.Len(t, conf.Trades, 1)
	trade := conf.Trades[0]
	assert.Equal(t, uint64(10), trade.Size.Uint64())
	assert.Equal(t, uint64(5), trade.Price.Uint64())
	assert.Equal(t, "bob", trade.Buyer)
	assert.Equal(t, "sam", trade.Seller)
	assert.Equal(t, types.SideSell, trade.Aggressor)
	assert.Equal(t, types.OrderStatusFilled, conf.Order.Status)
	assert.True(t, conf.Order.Remaining.IsZero())
	require.Len(t, conf.PassiveOrdersAffected, 1)
	assert.Equal(t, "bob", conf.PassiveOrdersAffected[0].Party)

	assert.Empty(t, te.BuyOrders())
	assert.Empty(t, te.SellOrders())
	assert.Equal(t, uint64(10), te.balance(baseAsset, "bob"))
	assert.Equal(t, uint64(50), te.balance(quoteAsset, "sam"))
	assert.True(t, te.collateral.Escrow(baseAsset).IsZero())
	assert.True(t, te.collateral.Escrow(quoteAsset).IsZero())

	assert.Equal(t, []events.Type{
		events.OrderPlacedEvent,
		events.OrderPlacedEvent,
		events.OrderFilledEvent,
		events.OrderFilledEvent,
	}, te.eventTypes())
}

func testPartialFill(t *testing.T, mode matching.LedgerMode) {
	te := getTestEngine(t, mode)
	buy := te.buy(t, "bob", 15, 5)
	conf := te.sell(t, "sam", 10, 5)

	require.Len(t, conf.Trades, 1)
	assert.Equal(t, uint64(10), conf.Trades[0].Size.Uint64())
	assert.Equal(t, uint64(5), conf.Trades[0].Price.Uint64())

	buys := te.BuyOrders()
	require.Len(t, buys, 1)
	assert.Equal(t, buy.Order.ID, buys[0].ID)
	assert.Equal(t, uint64(5), buys[0].Remaining.Uint64())
	assert.Equal(t, uint64(15), buys[0].Size.Uint64())
	assert.Empty(t, te.SellOrders())

	// what is left of the buy order is still escrowed
	assert.Equal(t, uint64(25), te.collateral.Escrow(quoteAsset).Uint64())
}

func testNoCross(t *testing.T, mode matching.LedgerMode) {
	te := getTestEngine(t, mode)
	te.buy(t, "bob", 10, 5)
	conf := te.sell(t, "sam", 10, 6)

	assert.Empty(t, conf.Trades)
	assert.Equal(t, types.OrderStatusActive, conf.Order.Status)
	assert.Len(t, te.BuyOrders(), 1)
	assert.Len(t, te.SellOrders(), 1)
	assert.Equal(t, uint64(50), te.collateral.Escrow(quoteAsset).Uint64())
	assert.Equal(t, uint64(10), te.collateral.Escrow(baseAsset).Uint64())
}

func TestFourOrders(t *testing.T) {
	t.Run("positional matching trades twice", testTwoTrades)
	t.Run("price time matching hits the best buy first", testTwoTradesPriceTime)
}

func testTwoTrades(t *testing.T) {
	te := getTestEngine(t, matching.LedgerModeSwapRemove)
	b1 := te.buy(t, "b1", 10, 5)
	te.buy(t, "b2", 5, 6)
	c3 := te.sell(t, "s3", 8, 5)
	c4 := te.sell(t, "s4", 5, 6)

	trades := append(c3.Trades, c4.Trades...)
	require.Len(t, trades, 2)
	volume, value := num.UintZero(), num.UintZero()
	for _, tr := range trades {
		n, err := tr.Notional()
		require.NoError(t, err)
		volume.AddSum(tr.Size)
		value.AddSum(n)
	}
	assert.Equal(t, uint64(13), volume.Uint64())
	assert.Equal(t, uint64(70), value.Uint64())

	// the first buy order traded 8 of its 10
	assert.Empty(t, te.SellOrders())
	buys := te.BuyOrders()
	require.Len(t, buys, 1)
	assert.Equal(t, b1.Order.ID, buys[0].ID)
	assert.Equal(t, uint64(2), buys[0].Remaining.Uint64())

	assert.Equal(t, uint64(8), te.balance(baseAsset, "b1"))
	assert.Equal(t, uint64(5), te.balance(baseAsset, "b2"))
	assert.Equal(t, uint64(40), te.balance(quoteAsset, "s3"))
	assert.Equal(t, uint64(30), te.balance(quoteAsset, "s4"))
	assert.Equal(t, uint64(10), te.collateral.Escrow(quoteAsset).Uint64())
}

func testTwoTradesPriceTime(t *testing.T) {
	te := getTestEngine(t, matching.LedgerModePriceTime)
	b1 := te.buy(t, "b1", 10, 5)
	te.buy(t, "b2", 5, 6)
	c3 := te.sell(t, "s3", 8, 5)
	c4 := te.sell(t, "s4", 5, 6)

	require.Len(t, c3.Trades, 2)
	assert.Equal(t, "b2", c3.Trades[0].Buyer)
	assert.Equal(t, uint64(5), c3.Trades[0].Size.Uint64())
	assert.Equal(t, uint64(5), c3.Trades[0].Price.Uint64())
	assert.Equal(t, "b1", c3.Trades[1].Buyer)
	assert.Equal(t, uint64(3), c3.Trades[1].Size.Uint64())
	assert.Empty(t, c4.Trades)

	buys := te.BuyOrders()
	require.Len(t, buys, 1)
	assert.Equal(t, b1.Order.ID, buys[0].ID)
	assert.Equal(t, uint64(7), buys[0].Remaining.Uint64())
	assert.Equal(t, []uint64{c4.Order.ID}, ids(te.SellOrders()))
	// b2 escrowed at 6 and traded at 5
	assert.Equal(t, uint64(5), te.balance(quoteAsset, "b2"))
	assert.Equal(t, uint64(35), te.collateral.Escrow(quoteAsset).Uint64())
}

func testZeroAmount(t *testing.T, mode matching.LedgerMode) {
	te := getTestEngine(t, mode)
	te.fund(t, quoteAsset, "bob", 100)

	_, err := te.SubmitBuy(te.ctx, "bob", num.UintZero(), num.NewUint(5))
	assert.ErrorIs(t, err, types.ErrInvalidInput)
	assert.ErrorIs(t, err, types.ErrInvalidAmount)

	_, err = te.SubmitSell(te.ctx, "bob", num.NewUint(1), num.UintZero())
	assert.ErrorIs(t, err, types.ErrInvalidPrice)
	_, err = te.SubmitSell(te.ctx, "bob", nil, num.NewUint(1))
	assert.ErrorIs(t, err, types.ErrInvalidInput)
	_, err = te.SubmitBuy(te.ctx, "", num.NewUint(1), num.NewUint(1))
	assert.ErrorIs(t, err, types.ErrInvalidParty)
	_, err = te.SubmitOrder(te.ctx, &types.OrderSubmission{Party: "bob", Size: num.NewUint(1), Price: num.NewUint(1)})
	assert.ErrorIs(t, err, types.ErrInvalidSide)
	_, err = te.SubmitOrder(te.ctx, nil)
	assert.ErrorIs(t, err, types.ErrInvalidInput)

	assert.Empty(t, te.BuyOrders())
	assert.Empty(t, te.SellOrders())
	assert.Equal(t, uint64(100), te.balance(quoteAsset, "bob"))
	assert.Empty(t, te.recorded())
	assert.Equal(t, uint64(0), te.Stats().LastID)
}

func TestInsufficientFunds(t *testing.T) {
	te := getTestEngine(t, matching.LedgerModeSwapRemove)
	te.fund(t, quoteAsset, "bob", 49)

	_, err := te.SubmitBuy(te.ctx, "bob", num.NewUint(10), num.NewUint(5))
	assert.ErrorIs(t, err, types.ErrInsufficientFundsOrApproval)
	assert.Empty(t, te.BuyOrders())
	assert.Equal(t, uint64(49), te.balance(quoteAsset, "bob"))
	assert.Empty(t, te.recorded())

	// the allowance is checked as well as the balance
	require.NoError(t, te.collateral.Deposit(te.ctx, baseAsset, "sam", num.NewUint(10)))
	_, err = te.SubmitSell(te.ctx, "sam", num.NewUint(10), num.NewUint(5))
	assert.ErrorIs(t, err, types.ErrInsufficientFundsOrApproval)
}

func TestPriceImprovementIsReleased(t *testing.T) {
	te := getTestEngine(t, matching.LedgerModeSwapRemove)
	te.sell(t, "sam", 10, 5)
	conf := te.buy(t, "bob", 10, 6)

	require.Len(t, conf.Trades, 1)
	assert.Equal(t, uint64(5), conf.Trades[0].Price.Uint64())
	assert.Equal(t, types.SideBuy, conf.Trades[0].Aggressor)
	// bob escrowed 60 and paid 50
	assert.Equal(t, uint64(10), te.balance(quoteAsset, "bob"))
	assert.Equal(t, uint64(10), te.balance(baseAsset, "bob"))
	assert.Equal(t, uint64(50), te.balance(quoteAsset, "sam"))
	assert.True(t, te.collateral.Escrow(quoteAsset).IsZero())
}

func TestIDsAreNeverReused(t *testing.T) {
	te := getTestEngine(t, matching.LedgerModeSwapRemove)
	first := te.buy(t, "bob", 1, 5)
	second := te.sell(t, "sam", 1, 5)
	third := te.buy(t, "bob", 1, 5)

	assert.Equal(t, uint64(1), first.Order.ID)
	assert.Equal(t, uint64(2), second.Order.ID)
	assert.Equal(t, uint64(3), third.Order.ID)
	assert.Equal(t, uint64(3), third.Order.CreatedAt)
}

func TestCancelOrder(t *testing.T) {
	t.Run("cancelling releases the unconsumed escrow", func(t *testing.T) {
		te := getTestEngine(t, matching.LedgerModeSwapRemove)
		buy := te.buy(t, "bob", 15, 5)
		te.sell(t, "sam", 10, 5)

		o, err := te.CancelOrder(te.ctx, "bob", buy.Order.ID)
		require.NoError(t, err)
		assert.Equal(t, types.OrderStatusCancelled, o.Status)
		assert.Equal(t, uint64(5), o.Remaining.Uint64())
		assert.Empty(t, te.BuyOrders())
		assert.Equal(t, uint64(25), te.balance(quoteAsset, "bob"))
		assert.True(t, te.collateral.Escrow(quoteAsset).IsZero())

		evts := te.recorded()
		last, ok := evts[len(evts)-1].(*events.OrderCancelled)
		require.True(t, ok)
		assert.Equal(t, buy.Order.ID, last.OrderID())
		assert.Equal(t, uint64(5), last.Amount().Uint64())
	})

	t.Run("cancelling a sell releases the base asset", func(t *testing.T) {
		te := getTestEngine(t, matching.LedgerModePriceTime)
		sell := te.sell(t, "sam", 4, 9)
		_, err := te.CancelOrder(te.ctx, "sam", sell.Order.ID)
		require.NoError(t, err)
		assert.Equal(t, uint64(4), te.balance(baseAsset, "sam"))
		assert.Empty(t, te.SellOrders())
	})

	t.Run("only the owner can cancel", func(t *testing.T) {
		te := getTestEngine(t, matching.LedgerModeSwapRemove)
		buy := te.buy(t, "bob", 1, 5)
		_, err := te.CancelOrder(te.ctx, "eve", buy.Order.ID)
		assert.ErrorIs(t, err, types.ErrOrderNotFound)
		_, err = te.CancelOrder(te.ctx, "bob", 42)
		assert.ErrorIs(t, err, types.ErrOrderNotFound)
		_, err = te.CancelOrder(te.ctx, "", buy.Order.ID)
		assert.ErrorIs(t, err, types.ErrInvalidParty)
		assert.Len(t, te.BuyOrders(), 1)
	})

	t.Run("cancel all empties the ledger", func(t *testing.T) {
		te := getTestEngine(t, matching.LedgerModeSwapRemove)
		te.buy(t, "bob", 2, 5)
		te.buy(t, "bob", 3, 4)
		te.sell(t, "sam", 7, 9)

		cancelled, err := te.CancelAll(te.ctx)
		require.NoError(t, err)
		assert.Len(t, cancelled, 3)
		assert.Empty(t, te.BuyOrders())
		assert.Empty(t, te.SellOrders())
		assert.Equal(t, uint64(22), te.balance(quoteAsset, "bob"))
		assert.Equal(t, uint64(7), te.balance(baseAsset, "sam"))
		assert.True(t, te.collateral.Escrow(quoteAsset).IsZero())
		assert.True(t, te.collateral.Escrow(baseAsset).IsZero())
	})
}

func TestQueries(t *testing.T) {
	te := getTestEngine(t, matching.LedgerModeSwapRemove)
	buy := te.buy(t, "bob", 3, 5)

	t.Run("queries return copies", func(t *testing.T) {
		buys := te.BuyOrders()
		require.Len(t, buys, 1)
		buys[0].Remaining.SetUint64(0)
		assert.Equal(t, uint64(3), te.BuyOrders()[0].Remaining.Uint64())
	})

	t.Run("orders can be looked up by id", func(t *testing.T) {
		o, err := te.GetOrderByID(buy.Order.ID)
		require.NoError(t, err)
		assert.Equal(t, "bob", o.Party)
		_, err = te.GetOrderByID(99)
		assert.ErrorIs(t, err, types.ErrOrderNotFound)
	})

	t.Run("stats count orders and trades", func(t *testing.T) {
		te.sell(t, "sam", 1, 5)
		stats := te.Stats()
		assert.Equal(t, 1, stats.BuyOrders)
		assert.Equal(t, 0, stats.SellOrders)
		assert.Equal(t, uint64(1), stats.Trades)
		assert.Equal(t, uint64(2), stats.LastID)
	})
}

func TestEngineConfig(t *testing.T) {
	t.Run("invalid configurations are refused", func(t *testing.T) {
		cfg := matching.NewDefaultConfig()
		cfg.LedgerMode = "fifo"
		_, err := matching.NewEngine(logging.NewTestLogger(), cfg, nil, nil)
		assert.ErrorIs(t, err, matching.ErrUnknownLedgerMode)

		cfg = matching.NewDefaultConfig()
		cfg.QuoteAsset = cfg.BaseAsset
		_, err = matching.NewEngine(logging.NewTestLogger(), cfg, nil, nil)
		assert.Error(t, err)

		cfg = matching.NewDefaultConfig()
		cfg.ReentrancyTimeout = encoding.Duration{}
		_, err = matching.NewEngine(logging.NewTestLogger(), cfg, nil, nil)
		assert.Error(t, err)
	})

	t.Run("reloading keeps the ledger mode and assets", func(t *testing.T) {
		te := getTestEngine(t, matching.LedgerModeSwapRemove)
		cfg := matching.NewDefaultConfig()
		cfg.LedgerMode = matching.LedgerModePriceTime
		cfg.BaseAsset = "OTHER"
		cfg.Level = encoding.LogLevel{Level: logging.WarnLevel}
		te.ReloadConf(cfg)

		assert.Equal(t, matching.LedgerModeSwapRemove, te.LedgerMode)
		assert.Equal(t, baseAsset, te.BaseAsset)
		te.buy(t, "bob", 1, 1)
		assert.Len(t, te.BuyOrders(), 1)
	})
}
