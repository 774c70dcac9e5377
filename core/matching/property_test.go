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

	"code.vegaprotocol.io/pairbook/core/matching"
	"code.vegaprotocol.io/pairbook/core/types"
	"code.vegaprotocol.io/pairbook/libs/num"

	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestMatchingProperties(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		mode := rapid.SampledFrom(allModes).Draw(t, "mode")
		te := getTestEngine(t, mode)
		parties := []string{"alice", "bob", "carol"}
		for _, p := range parties {
			te.fund(t, baseAsset, p, 1_000_000)
			te.fund(t, quoteAsset, p, 1_000_000)
		}

		resting := map[uint64]types.Order{}
		var lastID uint64
		steps := rapid.IntRange(1, 40).Draw(t, "steps")
		for i := 0; i < steps; i++ {
			// snapshot the resting prices to check the price rule of the
			// trades of this step
			before := map[uint64]types.Order{}
			for _, o := range append(te.BuyOrders(), te.SellOrders()...) {
				before[o.ID] = o
			}

			if len(resting) > 0 && rapid.IntRange(0, 4).Draw(t, "cancel") == 0 {
				// the oldest resting order
				var id uint64
				for k := range resting {
					if id == 0 || k < id {
						id = k
					}
				}
				o := resting[id]
				_, err := te.CancelOrder(te.ctx, o.Party, id)
				require.NoError(t, err)
			} else {
				sub := &types.OrderSubmission{
					Party: rapid.SampledFrom(parties).Draw(t, "party"),
					Side:  rapid.SampledFrom([]types.Side{types.SideBuy, types.SideSell}).Draw(t, "side"),
					Size:  num.NewUint(rapid.Uint64Range(1, 20).Draw(t, "size")),
					Price: num.NewUint(rapid.Uint64Range(1, 20).Draw(t, "price")),
				}
				conf, err := te.SubmitOrder(te.ctx, sub)
				require.NoError(t, err)
				require.Greater(t, conf.Order.ID, lastID)
				lastID = conf.Order.ID
				before[conf.Order.ID] = types.Order{ID: conf.Order.ID, Side: sub.Side, Price: sub.Price}

				for _, tr := range conf.Trades {
					buy, sell := before[tr.BuyOrder], before[tr.SellOrder]
					// trades happen at the sell price and never above the buy price
					require.True(t, tr.Price.EQ(sell.Price))
					require.True(t, tr.Price.LTE(buy.Price))
					require.False(t, tr.Size.IsZero())
				}
			}

			checkInvariants(t, te)
			resting = map[uint64]types.Order{}
			for _, o := range append(te.BuyOrders(), te.SellOrders()...) {
				resting[o.ID] = o
			}
		}

		// releasing everything gives every party its funds back as base or
		// quote, nothing is lost
		_, err := te.CancelAll(te.ctx)
		require.NoError(t, err)
		require.True(t, te.collateral.Escrow(baseAsset).IsZero())
		require.True(t, te.collateral.Escrow(quoteAsset).IsZero())
		checkInvariants(t, te)
	})
}

func TestLedgerModesAgreeWithoutRemovals(t *testing.T) {
	// with a single resting order per side, both modes behave the same
	rapid.Check(t, func(t *rapid.T) {
		size := rapid.Uint64Range(1, 100).Draw(t, "size")
		bp := rapid.Uint64Range(1, 100).Draw(t, "buy-price")
		sp := rapid.Uint64Range(1, 100).Draw(t, "sell-price")

		var traded []uint64
		for _, mode := range []matching.LedgerMode{matching.LedgerModeSwapRemove, matching.LedgerModePriceTime} {
			te := getTestEngine(t, mode)
			te.buy(t, "bob", size, bp)
			conf := te.sell(t, "sam", size, sp)
			traded = append(traded, conf.TradedVolume().Uint64())
		}
		require.Equal(t, traded[0], traded[1])
	})
}
