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

package types_test

import (
	"testing"

	"code.vegaprotocol.io/pairbook/core/types"
	"code.vegaprotocol.io/pairbook/libs/num"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSide(t *testing.T) {
	s, err := types.SideFromString("buy")
	require.NoError(t, err)
	assert.Equal(t, types.SideBuy, s)
	assert.Equal(t, types.SideSell, s.Opposite())

	s, err = types.SideFromString("SIDE_SELL")
	require.NoError(t, err)
	assert.Equal(t, types.SideSell, s)

	_, err = types.SideFromString("hold")
	assert.ErrorIs(t, err, types.ErrInvalidInput)
}

func TestOrderCloneIsDeep(t *testing.T) {
	o := &types.Order{
		ID:        1,
		Party:     "alice",
		Side:      types.SideBuy,
		Price:     num.NewUint(5),
		Size:      num.NewUint(10),
		Remaining: num.NewUint(10),
	}
	cpy := o.Clone()
	cpy.Remaining.Sub(cpy.Remaining, num.NewUint(3))
	assert.Equal(t, uint64(10), o.Remaining.Uint64())
	assert.Equal(t, uint64(7), cpy.Remaining.Uint64())
}

func TestOrderConfirmationTotals(t *testing.T) {
	conf := types.OrderConfirmation{
		Trades: []*types.Trade{
			{Size: num.NewUint(8), Price: num.NewUint(5)},
			{Size: num.NewUint(5), Price: num.NewUint(6)},
		},
	}
	assert.Equal(t, uint64(13), conf.TradedVolume().Uint64())
	value, err := conf.TradedValue()
	require.NoError(t, err)
	assert.Equal(t, uint64(70), value.Uint64())
}

func TestTradeNotionalOverflow(t *testing.T) {
	huge, failed := num.UintFromString("100000000000000000000000000000000000000000", 10)
	require.False(t, failed)
	trade := types.Trade{Size: huge, Price: huge}
	_, err := trade.Notional()
	assert.ErrorIs(t, err, types.ErrArithmeticOverflow)
}
