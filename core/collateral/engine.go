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

package collateral

import (
	"context"
	"sort"
	"sync"

	"code.vegaprotocol.io/pairbook/core/types"
	"code.vegaprotocol.io/pairbook/libs/num"
	"code.vegaprotocol.io/pairbook/logging"

	"github.com/pkg/errors"
)

var (
	ErrInsufficientBalance   = errors.WithMessage(types.ErrInsufficientFundsOrApproval, "insufficient balance")
	ErrInsufficientAllowance = errors.WithMessage(types.ErrInsufficientFundsOrApproval, "insufficient allowance")
	// ErrInsufficientEscrow signals a credit the escrow pool cannot cover.
	ErrInsufficientEscrow = errors.New("insufficient escrow")
	// ErrPartyFrozen signals a credit to a party whose accounts are frozen.
	ErrPartyFrozen = errors.New("party is frozen")
	// ErrTxClosed signals a transaction already committed or rolled back.
	ErrTxClosed = errors.New("transaction already closed")
	// ErrConflict signals a transaction invalidated by a concurrent change.
	ErrConflict = errors.New("conflicting update")
)

type accountKey struct {
	asset, party string
}

type account struct {
	general   *num.Uint
	allowance *num.Uint
}

func newAccount() *account {
	return &account{
		general:   num.UintZero(),
		allowance: num.UintZero(),
	}
}

// AccountBalance is the state of a party account in one asset.
type AccountBalance struct {
	Asset     string
	Party     string
	Balance   *num.Uint
	Allowance *num.Uint
}

// Engine holds the general accounts of the parties and, per asset, the escrow
// pool backing the resting orders.
type Engine struct {
	log *logging.Logger
	Config

	mu        sync.RWMutex
	assets    map[string]AssetConfig
	accounts  map[accountKey]*account
	escrow    map[string]*num.Uint
	deposited map[string]*num.Uint
	withdrawn map[string]*num.Uint
	frozen    map[string]struct{}
}

// New instantiates a new collateral engine.
func New(log *logging.Logger, conf Config) (*Engine, error) {
	// setup logger
	log = log.Named(namedLogger)
	log.SetLevel(conf.Level.Get())

	e := &Engine{
		log:       log,
		Config:    conf,
		assets:    map[string]AssetConfig{},
		accounts:  map[accountKey]*account{},
		escrow:    map[string]*num.Uint{},
		deposited: map[string]*num.Uint{},
		withdrawn: map[string]*num.Uint{},
		frozen:    map[string]struct{}{},
	}
	for _, a := range conf.Assets {
		if err := e.EnableAsset(a); err != nil {
			return nil, err
		}
	}
	return e, nil
}

// ReloadConf updates the internal configuration of the engine.
func (e *Engine) ReloadConf(cfg Config) {
	e.log.Info("reloading configuration")
	if e.log.GetLevel() != cfg.Level.Get() {
		e.log.Info("updating log level",
			logging.String("old", e.log.GetLevelString()),
			logging.String("new", cfg.Level.String()),
		)
		e.log.SetLevel(cfg.Level.Get())
	}

	e.mu.Lock()
	e.RequireApproval = cfg.RequireApproval
	e.mu.Unlock()

	for _, a := range cfg.Assets {
		if err := e.EnableAsset(a); err != nil {
			e.log.Error("could not enable asset", logging.AssetID(a.ID), logging.Error(err))
		}
	}
}

// EnableAsset adds an asset, enabling an asset twice only updates its
// decimals.
func (e *Engine) EnableAsset(a AssetConfig) error {
	if len(a.ID) == 0 {
		return types.ErrInvalidAsset
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, ok := e.assets[a.ID]; !ok {
		e.escrow[a.ID] = num.UintZero()
		e.deposited[a.ID] = num.UintZero()
		e.withdrawn[a.ID] = num.UintZero()
		e.log.Info("new asset enabled", logging.AssetID(a.ID))
	}
	e.assets[a.ID] = a
	return nil
}

func (e *Engine) Asset(id string) (AssetConfig, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	a, ok := e.assets[id]
	return a, ok
}

// Assets returns the enabled assets sorted by id.
func (e *Engine) Assets() []AssetConfig {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make([]AssetConfig, 0, len(e.assets))
	for _, a := range e.assets {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Deposit credits the general account of the party with funds coming from
// outside the venue.
func (e *Engine) Deposit(ctx context.Context, asset, party string, amount *num.Uint) error {
	if err := e.checkMovement(asset, party, amount); err != nil {
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	acc := e.getOrCreate(asset, party)
	balance, overflow := num.UintZero().AddOverflow(acc.general, amount)
	if overflow {
		return types.ErrArithmeticOverflow
	}
	total, overflow := num.UintZero().AddOverflow(e.deposited[asset], amount)
	if overflow {
		return types.ErrArithmeticOverflow
	}
	acc.general = balance
	e.deposited[asset] = total
	e.log.Debug("deposit",
		logging.AssetID(asset),
		logging.PartyID(party),
		logging.Stringer("amount", amount))
	return nil
}

// Withdraw debits the general account of the party, the funds leave the venue.
func (e *Engine) Withdraw(ctx context.Context, asset, party string, amount *num.Uint) error {
	if err := e.checkMovement(asset, party, amount); err != nil {
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	acc, ok := e.accounts[accountKey{asset, party}]
	if !ok {
		return ErrInsufficientBalance
	}
	rest, short := num.UintZero().SubOverflow(acc.general, amount)
	if short {
		return ErrInsufficientBalance
	}
	acc.general = rest
	e.withdrawn[asset] = num.Sum(e.withdrawn[asset], amount)
	e.log.Debug("withdrawal",
		logging.AssetID(asset),
		logging.PartyID(party),
		logging.Stringer("amount", amount))
	return nil
}

// Approve sets the amount of asset the venue may move into escrow on behalf
// of the party, replacing any previous allowance.
func (e *Engine) Approve(ctx context.Context, asset, party string, allowance *num.Uint) error {
	if len(party) == 0 {
		return types.ErrInvalidParty
	}
	if allowance == nil {
		return types.ErrInvalidAmount
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, ok := e.assets[asset]; !ok {
		return types.ErrInvalidAsset
	}
	e.getOrCreate(asset, party).allowance = allowance.Clone()
	return nil
}

func (e *Engine) Balance(asset, party string) *num.Uint {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if acc, ok := e.accounts[accountKey{asset, party}]; ok {
		return acc.general.Clone()
	}
	return num.UintZero()
}

func (e *Engine) Allowance(asset, party string) *num.Uint {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if acc, ok := e.accounts[accountKey{asset, party}]; ok {
		return acc.allowance.Clone()
	}
	return num.UintZero()
}

// Escrow returns what the venue holds in escrow for an asset.
func (e *Engine) Escrow(asset string) *num.Uint {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if v, ok := e.escrow[asset]; ok {
		return v.Clone()
	}
	return num.UintZero()
}

// Totals returns how much of an asset entered and left the venue.
func (e *Engine) Totals(asset string) (deposited, withdrawn *num.Uint) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	deposited, withdrawn = num.UintZero(), num.UintZero()
	if v, ok := e.deposited[asset]; ok {
		deposited = v.Clone()
	}
	if v, ok := e.withdrawn[asset]; ok {
		withdrawn = v.Clone()
	}
	return deposited, withdrawn
}

// Holdings is the sum of every general account and the escrow of an asset,
// it always equals deposits minus withdrawals.
func (e *Engine) Holdings(asset string) *num.Uint {
	e.mu.RLock()
	defer e.mu.RUnlock()
	total := num.UintZero()
	if v, ok := e.escrow[asset]; ok {
		total.AddSum(v)
	}
	for k, acc := range e.accounts {
		if k.asset == asset {
			total.AddSum(acc.general)
		}
	}
	return total
}

// Accounts returns the accounts of a party in every asset it holds, sorted
// by asset.
func (e *Engine) Accounts(party string) []AccountBalance {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := []AccountBalance{}
	for k, acc := range e.accounts {
		if k.party != party {
			continue
		}
		out = append(out, AccountBalance{
			Asset:     k.asset,
			Party:     k.party,
			Balance:   acc.general.Clone(),
			Allowance: acc.allowance.Clone(),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Asset < out[j].Asset })
	return out
}

// Freeze blocks every credit to the party until Unfreeze is called.
func (e *Engine) Freeze(party string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.frozen[party] = struct{}{}
	e.log.Warn("party frozen", logging.PartyID(party))
}

func (e *Engine) Unfreeze(party string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.frozen, party)
	e.log.Info("party unfrozen", logging.PartyID(party))
}

func (e *Engine) IsFrozen(party string) bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	_, ok := e.frozen[party]
	return ok
}

// Begin starts a transaction, nothing it does is visible before Commit.
func (e *Engine) Begin(ctx context.Context) types.CustodyTx {
	return &Tx{
		e:       e,
		general: map[accountKey]*num.Uint{},
		allow:   map[accountKey]*num.Uint{},
		escrow:  map[string]*num.Uint{},
	}
}

func (e *Engine) checkMovement(asset, party string, amount *num.Uint) error {
	if len(party) == 0 {
		return types.ErrInvalidParty
	}
	if amount == nil || amount.IsZero() {
		return types.ErrInvalidAmount
	}
	e.mu.RLock()
	defer e.mu.RUnlock()
	if _, ok := e.assets[asset]; !ok {
		return errors.Wrapf(types.ErrInvalidAsset, "%q", asset)
	}
	return nil
}

// getOrCreate must be called with the write lock held.
func (e *Engine) getOrCreate(asset, party string) *account {
	k := accountKey{asset, party}
	acc, ok := e.accounts[k]
	if !ok {
		acc = newAccount()
		e.accounts[k] = acc
	}
	return acc
}
