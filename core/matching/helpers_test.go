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
	"context"
	"sync"

	"code.vegaprotocol.io/pairbook/config/encoding"
	"code.vegaprotocol.io/pairbook/core/collateral"
	"code.vegaprotocol.io/pairbook/core/events"
	"code.vegaprotocol.io/pairbook/core/matching"
	"code.vegaprotocol.io/pairbook/core/matching/mocks"
	"code.vegaprotocol.io/pairbook/core/types"
	"code.vegaprotocol.io/pairbook/libs/num"
	"code.vegaprotocol.io/pairbook/logging"

	"github.com/golang/mock/gomock"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

const (
	baseAsset  = "BASE"
	quoteAsset = "QUOTE"
)

// testEngine wires a matching engine to a real collateral engine and a
// broker mock recording every event.
type testEngine struct {
	*matching.Engine
	ctx        context.Context
	collateral *collateral.Engine
	broker     *mocks.MockBroker

	mu     sync.Mutex
	events []events.Event
}

// testingT is satisfied by both *testing.T and *rapid.T.
type testingT interface {
	gomock.TestHelper
	FailNow()
}

func getTestEngine(t testingT, mode matching.LedgerMode) *testEngine {
	t.Helper()
	ctrl := gomock.NewController(t)
	log := logging.NewTestLogger()

	ccfg := collateral.NewDefaultConfig()
	ccfg.Level = encoding.LogLevel{Level: logging.InfoLevel}
	coll, err := collateral.New(log, ccfg)
	require.NoError(t, err)

	te := &testEngine{
		ctx:        context.Background(),
		collateral: coll,
		broker:     mocks.NewMockBroker(ctrl),
	}
	te.broker.EXPECT().SendBatch(gomock.Any()).AnyTimes().Do(func(evts []events.Event) {
		te.mu.Lock()
		defer te.mu.Unlock()
		te.events = append(te.events, evts...)
	})

	cfg := matching.NewDefaultConfig()
	cfg.LedgerMode = mode
	cfg.BaseAsset, cfg.QuoteAsset = baseAsset, quoteAsset
	cfg.LogRemovedOrdersDebug = true
	te.Engine, err = matching.NewEngine(log, cfg, coll, te.broker)
	require.NoError(t, err)
	return te
}

// fund deposits and approves amount of asset for the party.
func (te *testEngine) fund(t require.TestingT, asset, party string, amount uint64) {
	require.NoError(t, te.collateral.Deposit(te.ctx, asset, party, num.NewUint(amount)))
	require.NoError(t, te.collateral.Approve(te.ctx, asset, party,
		num.Sum(te.collateral.Allowance(asset, party), num.NewUint(amount))))
}

func (te *testEngine) buy(t require.TestingT, party string, amount, price uint64) *types.OrderConfirmation {
	te.fund(t, quoteAsset, party, amount*price)
	conf, err := te.SubmitBuy(te.ctx, party, num.NewUint(amount), num.NewUint(price))
	require.NoError(t, err)
	return conf
}

func (te *testEngine) sell(t require.TestingT, party string, amount, price uint64) *types.OrderConfirmation {
	te.fund(t, baseAsset, party, amount)
	conf, err := te.SubmitSell(te.ctx, party, num.NewUint(amount), num.NewUint(price))
	require.NoError(t, err)
	return conf
}

func (te *testEngine) balance(asset, party string) uint64 {
	return te.collateral.Balance(asset, party).Uint64()
}

func (te *testEngine) recorded() []events.Event {
	te.mu.Lock()
	defer te.mu.Unlock()
	out := make([]events.Event, len(te.events))
	copy(out, te.events)
	return out
}

func (te *testEngine) eventTypes() []events.Type {
	out := []events.Type{}
	for _, e := range te.recorded() {
		out = append(out, e.Type())
	}
	return out
}

var uintComparer = cmp.Comparer(func(a, b *num.Uint) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.EQ(b)
})

// ids returns the ids of the orders in the order given.
func ids(orders []types.Order) []uint64 {
	out := make([]uint64, 0, len(orders))
	for _, o := range orders {
		out = append(out, o.ID)
	}
	return out
}
