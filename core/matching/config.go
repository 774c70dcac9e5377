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
	"time"

	"code.vegaprotocol.io/pairbook/config/encoding"
	"code.vegaprotocol.io/pairbook/logging"

	"github.com/pkg/errors"
)

// namedLogger is the identifier for package and should ideally match the package name
// this is simply emitted as a hierarchical label e.g. 'api.grpc'.
const namedLogger = "matching"

// LedgerMode selects how the open orders of a side are kept and walked.
type LedgerMode string

const (
	// LedgerModeSwapRemove keeps orders in arrival order and fills the hole
	// left by a removal with the last order of the side.
	LedgerModeSwapRemove LedgerMode = "swap-remove"
	// LedgerModePriceTime keeps orders sorted by best price then arrival.
	LedgerModePriceTime LedgerMode = "price-time"
)

var ErrUnknownLedgerMode = errors.New("unknown ledger mode")

func (m LedgerMode) Validate() error {
	switch m {
	case LedgerModeSwapRemove, LedgerModePriceTime:
		return nil
	default:
		return errors.Wrapf(ErrUnknownLedgerMode, "%q", string(m))
	}
}

// Config represents the configuration of the matching engine.
type Config struct {
	Level encoding.LogLevel `long:"log-level"`

	LedgerMode LedgerMode `long:"ledger-mode" description:"swap-remove or price-time"`
	// BaseAsset is the asset sold by sell orders, QuoteAsset the one paid by
	// buy orders.
	BaseAsset  string `long:"base-asset"`
	QuoteAsset string `long:"quote-asset"`

	LogRemovedOrdersDebug encoding.Bool `long:"log-removed-orders-debug"`

	// ReentrancyTimeout bounds how long a call waits on an engine busy in a
	// custody call. A call still waiting when it expires was most likely made
	// by that custody call and fails with ErrReentrantCall.
	ReentrancyTimeout encoding.Duration `long:"reentrancy-timeout"`
}

// NewDefaultConfig creates an instance of the package specific configuration, given a
// pointer to a logger instance to be used for logging within the package.
func NewDefaultConfig() Config {
	return Config{
		Level:                 encoding.LogLevel{Level: logging.InfoLevel},
		LedgerMode:            LedgerModeSwapRemove,
		BaseAsset:             "BASE",
		QuoteAsset:            "QUOTE",
		LogRemovedOrdersDebug: false,
		ReentrancyTimeout:     encoding.Duration{Duration: 500 * time.Millisecond},
	}
}

func (c Config) Validate() error {
	if err := c.LedgerMode.Validate(); err != nil {
		return err
	}
	if len(c.BaseAsset) == 0 || len(c.QuoteAsset) == 0 {
		return errors.New("base and quote assets are required")
	}
	if c.BaseAsset == c.QuoteAsset {
		return errors.New("base and quote assets must differ")
	}
	if c.ReentrancyTimeout.Duration <= 0 {
		return errors.New("reentrancy timeout must be positive")
	}
	return nil
}
