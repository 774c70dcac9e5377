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

package paths_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"code.vegaprotocol.io/pairbook/paths"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJoiningPaths(t *testing.T) {
	t.Run("Joining config path as ConfigPath succeeds", func(t *testing.T) {
		builtPath := paths.JoinConfigPath(paths.NodeConfigHome, "a", "b")
		assert.Equal(t, paths.ConfigPath(filepath.Join("node", "a", "b")), builtPath)
	})

	t.Run("Joining state path as StatePath succeeds", func(t *testing.T) {
		builtPath := paths.JoinStatePath(paths.NodeStateHome, "journal")
		assert.Equal(t, paths.EventJournalHome, builtPath)
	})
}

func TestCustomPaths(t *testing.T) {
	home := t.TempDir()
	p := paths.New(home)

	t.Run("Config files live under the config folder", func(t *testing.T) {
		path, err := p.CreateConfigPathFor(paths.NodeDefaultConfigFile)
		require.NoError(t, err)
		assert.Equal(t, filepath.Join(home, "config", "node", "config.toml"), path)
		assert.Equal(t, path, p.ConfigPathFor(paths.NodeDefaultConfigFile))

		info, err := os.Stat(filepath.Dir(path))
		require.NoError(t, err)
		assert.True(t, info.IsDir())
		// only the parent folder is created
		_, err = os.Stat(path)
		assert.True(t, os.IsNotExist(err))
	})

	t.Run("State folders are created", func(t *testing.T) {
		dir, err := p.CreateStateDirFor(paths.EventJournalHome)
		require.NoError(t, err)
		assert.Equal(t, filepath.Join(home, "state", "node", "journal"), dir)
		info, err := os.Stat(dir)
		require.NoError(t, err)
		assert.True(t, info.IsDir())
	})

	t.Run("State files resolve under the state folder", func(t *testing.T) {
		path, err := p.CreateStatePathFor(paths.CollateralCheckpointFile)
		require.NoError(t, err)
		assert.True(t, strings.HasPrefix(path, filepath.Join(home, "state")))
	})
}

func TestDefaultPathsUseThePairbookFolder(t *testing.T) {
	p := paths.New("")
	assert.Contains(t, p.ConfigPathFor(paths.NodeDefaultConfigFile), filepath.Join(paths.PairbookHome, "node", "config.toml"))
	assert.Contains(t, p.StatePathFor(paths.EventJournalHome), filepath.Join(paths.PairbookHome, "node", "journal"))
}
