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

package config

import (
	"bytes"
	"os"

	"code.vegaprotocol.io/pairbook/core/api"
	"code.vegaprotocol.io/pairbook/core/broker"
	"code.vegaprotocol.io/pairbook/core/collateral"
	"code.vegaprotocol.io/pairbook/core/matching"
	"code.vegaprotocol.io/pairbook/logging"
	"code.vegaprotocol.io/pairbook/metrics"
	"code.vegaprotocol.io/pairbook/storage"

	"github.com/BurntSushi/toml"
	"github.com/pkg/errors"
)

var ErrAssetNotConfigured = errors.New("matching asset missing from the collateral assets")

// Config is the root configuration of a node, one section per component.
type Config struct {
	Logging    logging.Config    `group:"Logging" namespace:"logging"`
	Matching   matching.Config   `group:"Matching" namespace:"matching"`
	Collateral collateral.Config `group:"Collateral" namespace:"collateral"`
	Broker     broker.Config     `group:"Broker" namespace:"broker"`
	Storage    storage.Config    `group:"Storage" namespace:"storage"`
	Metrics    metrics.Config    `group:"Metrics" namespace:"metrics"`
	API        api.Config        `group:"API" namespace:"api"`
}

func NewDefaultConfig() Config {
	return Config{
		Logging:    logging.NewDefaultConfig(),
		Matching:   matching.NewDefaultConfig(),
		Collateral: collateral.NewDefaultConfig(),
		Broker:     broker.NewDefaultConfig(),
		Storage:    storage.NewDefaultConfig(),
		Metrics:    metrics.NewDefaultConfig(),
		API:        api.NewDefaultConfig(),
	}
}

// Validate checks the sections depending on each other.
func (c Config) Validate() error {
	if err := c.Matching.Validate(); err != nil {
		return err
	}
	for _, asset := range []string{c.Matching.BaseAsset, c.Matching.QuoteAsset} {
		found := false
		for _, a := range c.Collateral.Assets {
			if a.ID == asset {
				found = true
				break
			}
		}
		if !found {
			return errors.Wrapf(ErrAssetNotConfigured, "%q", asset)
		}
	}
	return nil
}

// Read loads the configuration file, the values missing from it keep their
// default.
func Read(path string) (*Config, error) {
	buf, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "unable to read configuration %s", path)
	}
	cfg := NewDefaultConfig()
	if _, err := toml.Decode(string(buf), &cfg); err != nil {
		return nil, errors.Wrapf(err, "unable to decode configuration %s", path)
	}
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrapf(err, "invalid configuration %s", path)
	}
	return &cfg, nil
}

// Write saves the configuration, replacing the file if any.
func Write(path string, cfg *Config) error {
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(cfg); err != nil {
		return errors.Wrap(err, "unable to encode configuration")
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o600); err != nil {
		return errors.Wrapf(err, "unable to write configuration %s", path)
	}
	return nil
}
