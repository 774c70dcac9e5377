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
	"bytes"
	"context"
	"os"
	"sort"

	"code.vegaprotocol.io/pairbook/libs/num"
	"code.vegaprotocol.io/pairbook/logging"

	"github.com/BurntSushi/toml"
	"github.com/pkg/errors"
)

// ErrEscrowNotEmpty signals a checkpoint taken while orders still hold funds.
var ErrEscrowNotEmpty = errors.New("escrow is not empty")

type checkpointAsset struct {
	ID        string    `toml:"id"`
	Decimals  uint32    `toml:"decimals"`
	Deposited *num.Uint `toml:"deposited"`
	Withdrawn *num.Uint `toml:"withdrawn"`
}

type checkpointBalance struct {
	Asset     string    `toml:"asset"`
	Party     string    `toml:"party"`
	Balance   *num.Uint `toml:"balance"`
	Allowance *num.Uint `toml:"allowance"`
}

type checkpoint struct {
	Assets   []checkpointAsset   `toml:"assets"`
	Balances []checkpointBalance `toml:"balances"`
}

// Checkpoint serialises every account. Resting orders are not part of it so
// the escrow pools must be empty.
func (e *Engine) Checkpoint() ([]byte, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	cp := checkpoint{}
	for id, a := range e.assets {
		if !e.escrow[id].IsZero() {
			return nil, errors.Wrapf(ErrEscrowNotEmpty, "asset %s", id)
		}
		cp.Assets = append(cp.Assets, checkpointAsset{
			ID:        id,
			Decimals:  a.Decimals,
			Deposited: e.deposited[id].Clone(),
			Withdrawn: e.withdrawn[id].Clone(),
		})
	}
	for k, acc := range e.accounts {
		if acc.general.IsZero() && acc.allowance.IsZero() {
			continue
		}
		cp.Balances = append(cp.Balances, checkpointBalance{
			Asset:     k.asset,
			Party:     k.party,
			Balance:   acc.general.Clone(),
			Allowance: acc.allowance.Clone(),
		})
	}
	sort.Slice(cp.Assets, func(i, j int) bool { return cp.Assets[i].ID < cp.Assets[j].ID })
	sort.Slice(cp.Balances, func(i, j int) bool {
		if cp.Balances[i].Asset == cp.Balances[j].Asset {
			return cp.Balances[i].Party < cp.Balances[j].Party
		}
		return cp.Balances[i].Asset < cp.Balances[j].Asset
	})

	buf := bytes.Buffer{}
	if err := toml.NewEncoder(&buf).Encode(cp); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Load replaces the accounts with the ones of a checkpoint.
func (e *Engine) Load(ctx context.Context, data []byte) error {
	cp := checkpoint{}
	if _, err := toml.Decode(string(data), &cp); err != nil {
		return errors.Wrap(err, "invalid checkpoint")
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	for _, a := range cp.Assets {
		if _, ok := e.assets[a.ID]; !ok {
			e.assets[a.ID] = AssetConfig{ID: a.ID, Decimals: a.Decimals}
		}
		e.escrow[a.ID] = num.UintZero()
		e.deposited[a.ID] = orZero(a.Deposited)
		e.withdrawn[a.ID] = orZero(a.Withdrawn)
	}
	e.accounts = map[accountKey]*account{}
	for _, b := range cp.Balances {
		e.accounts[accountKey{b.Asset, b.Party}] = &account{
			general:   orZero(b.Balance),
			allowance: orZero(b.Allowance),
		}
	}
	e.log.Info("collateral checkpoint loaded",
		logging.Int("assets", len(cp.Assets)),
		logging.Int("accounts", len(cp.Balances)))
	return nil
}

// SaveCheckpoint writes the checkpoint to the configured path, if any.
func (e *Engine) SaveCheckpoint() error {
	if len(e.CheckpointPath) == 0 {
		return nil
	}
	data, err := e.Checkpoint()
	if err != nil {
		return err
	}
	return os.WriteFile(e.CheckpointPath, data, 0o600)
}

// LoadCheckpoint loads the checkpoint at the configured path when it exists.
func (e *Engine) LoadCheckpoint(ctx context.Context) error {
	if len(e.CheckpointPath) == 0 {
		return nil
	}
	data, err := os.ReadFile(e.CheckpointPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	return e.Load(ctx, data)
}

func orZero(u *num.Uint) *num.Uint {
	if u == nil {
		return num.UintZero()
	}
	return u.Clone()
}
