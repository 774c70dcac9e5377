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

package paths

import (
	"os"
	"path/filepath"

	"github.com/pkg/errors"
)

// PairbookHome is the folder created under the XDG base directories.
const PairbookHome = "pairbook"

// ConfigPath is a path relative to the configuration home.
type ConfigPath string

func (p ConfigPath) String() string {
	return string(p)
}

// StatePath is a path relative to the state home, where the node keeps
// everything it needs to restart.
type StatePath string

func (p StatePath) String() string {
	return string(p)
}

var (
	// NodeConfigHome is the folder holding the node configuration.
	NodeConfigHome = ConfigPath("node")
	// NodeDefaultConfigFile is the node configuration file.
	NodeDefaultConfigFile = JoinConfigPath(NodeConfigHome, "config.toml")

	// NodeStateHome is the folder holding the node state.
	NodeStateHome = StatePath("node")
	// CollateralCheckpointFile holds the balances saved on shutdown.
	CollateralCheckpointFile = JoinStatePath(NodeStateHome, "collateral.toml")
	// EventJournalHome holds the badger event journal.
	EventJournalHome = JoinStatePath(NodeStateHome, "journal")
	// EventLogFile is the default JSON lines audit log.
	EventLogFile = JoinStatePath(NodeStateHome, "events.jsonl")
)

// JoinConfigPath joins any number of path elements with a root config path.
func JoinConfigPath(p ConfigPath, elem ...string) ConfigPath {
	return ConfigPath(filepath.Join(append([]string{p.String()}, elem...)...))
}

// JoinStatePath joins any number of path elements with a root state path.
func JoinStatePath(p StatePath, elem ...string) StatePath {
	return StatePath(filepath.Join(append([]string{p.String()}, elem...)...))
}

func createDir(dir string) (string, error) {
	if err := os.MkdirAll(dir, os.ModeDir|0o700); err != nil {
		return "", errors.Wrapf(err, "couldn't create directory %s", dir)
	}
	return dir, nil
}

func createFileDir(path string) (string, error) {
	if _, err := createDir(filepath.Dir(path)); err != nil {
		return "", err
	}
	return path, nil
}
