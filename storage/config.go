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

package storage

import (
	"code.vegaprotocol.io/pairbook/config/encoding"
	"code.vegaprotocol.io/pairbook/logging"
)

const namedLogger = "storage"

// Config represents the configuration of the event journal.
type Config struct {
	Level      encoding.LogLevel `long:"log-level"`
	Enabled    encoding.Bool     `long:"enabled"`
	Path       string            `long:"path" description:"journal directory, relative paths are resolved from the home"`
	SyncWrites encoding.Bool     `long:"sync-writes"`
	InMemory   encoding.Bool     `long:"in-memory" description:"keep the journal in memory only"`
	MaxPage    int               `long:"max-page" description:"maximum number of events returned by one query"`
}

// NewDefaultConfig creates an instance of config with default values.
func NewDefaultConfig() Config {
	return Config{
		Level:      encoding.LogLevel{Level: logging.InfoLevel},
		Enabled:    true,
		Path:       "journal",
		SyncWrites: true,
		MaxPage:    1000,
	}
}
