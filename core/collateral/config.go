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
	"code.vegaprotocol.io/pairbook/config/encoding"
	"code.vegaprotocol.io/pairbook/logging"
)

const namedLogger = "collateral"

// AssetConfig declares an asset the venue holds, Decimals is only used to
// display amounts.
type AssetConfig struct {
	ID       string `long:"id"`
	Decimals uint32 `long:"decimals"`
}

// Config represents the configuration of the collateral engine.
type Config struct {
	Level encoding.LogLevel `long:"log-level"`
	// RequireApproval makes debits consume the allowance a party granted.
	RequireApproval encoding.Bool `long:"require-approval"`
	Assets          []AssetConfig `no-flag:"true"`
	// CheckpointPath, when set, is where balances are saved on shutdown and
	// loaded from on start.
	CheckpointPath string `long:"checkpoint-path"`
}

// NewDefaultConfig creates an instance of the package specific configuration.
func NewDefaultConfig() Config {
	return Config{
		Level:           encoding.LogLevel{Level: logging.InfoLevel},
		RequireApproval: true,
		Assets: []AssetConfig{
			{ID: "BASE", Decimals: 0},
			{ID: "QUOTE", Decimals: 0},
		},
	}
}
