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

package encoding

import (
	"strconv"
	"time"

	"code.vegaprotocol.io/pairbook/logging"

	"github.com/pkg/errors"
)

var (
	ErrNegativeDuration = errors.New("duration must not be negative")
	ErrInvalidBool      = errors.New("only true and false are valid")
)

// Duration is written as a string ("1m30s") in the toml configuration and
// on the command line. Negative values are refused.
type Duration struct {
	time.Duration
}

func (d *Duration) Get() time.Duration {
	return d.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return errors.Wrapf(err, "invalid duration %q", text)
	}
	if v < 0 {
		return errors.Wrapf(ErrNegativeDuration, "%q", text)
	}
	d.Duration = v
	return nil
}

func (d *Duration) UnmarshalFlag(s string) error {
	return d.UnmarshalText([]byte(s))
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// LogLevel lets each component take its level from its own configuration
// section, by name ("debug", "info"...).
type LogLevel struct {
	logging.Level
}

func (l *LogLevel) Get() logging.Level {
	return l.Level
}

func (l *LogLevel) UnmarshalFlag(s string) error {
	return l.UnmarshalText([]byte(s))
}

// Bool is a go-flags option taking an explicit value, so a default of true
// can be switched off from the command line with --flag=false.
type Bool bool

func (b *Bool) UnmarshalFlag(s string) error {
	switch s {
	case "true", "false":
		v, _ := strconv.ParseBool(s)
		*b = Bool(v)
		return nil
	default:
		return errors.Wrapf(ErrInvalidBool, "%q", s)
	}
}
