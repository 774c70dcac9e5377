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

package logging_test

import (
	"testing"

	"code.vegaprotocol.io/pairbook/logging"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]logging.Level{
		"debug":   logging.DebugLevel,
		"Info":    logging.InfoLevel,
		"warn":    logging.WarnLevel,
		"warning": logging.WarnLevel,
		"ERROR":   logging.ErrorLevel,
		"panic":   logging.PanicLevel,
		"fatal":   logging.FatalLevel,
	}
	for in, expect := range cases {
		lvl, err := logging.ParseLevel(in)
		require.NoError(t, err, in)
		assert.Equal(t, expect, lvl, in)
	}

	_, err := logging.ParseLevel("chatty")
	assert.ErrorIs(t, err, logging.ErrInvalidLevel)
}

func TestLevelTextRoundTrip(t *testing.T) {
	var lvl logging.Level
	require.NoError(t, lvl.UnmarshalText([]byte("warning")))
	assert.Equal(t, logging.WarnLevel, lvl)

	txt, err := lvl.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "warning", string(txt))

	assert.Error(t, lvl.UnmarshalText([]byte("nope")))
	// a failed unmarshal leaves the level untouched
	assert.Equal(t, logging.WarnLevel, lvl)
}

func TestNamedLoggers(t *testing.T) {
	log := logging.NewTestLogger()
	defer log.AtExit()

	t.Run("names are dotted", func(t *testing.T) {
		child := log.Named("matching").Named("ledger")
		assert.Equal(t, "matching.ledger", child.GetName())
	})

	t.Run("child levels are independent of the parent", func(t *testing.T) {
		child := log.Named("broker")
		child.SetLevel(logging.ErrorLevel)
		assert.Equal(t, logging.ErrorLevel, child.GetLevel())
		assert.Equal(t, logging.DebugLevel, log.GetLevel())
	})
}

func TestLoggerFromConfig(t *testing.T) {
	cfg := logging.NewDefaultConfig()
	cfg.Environment = "prod"
	cfg.Level = logging.WarnLevel
	log := logging.NewLoggerFromConfig(cfg)
	assert.Equal(t, logging.WarnLevel, log.GetLevel())
}
