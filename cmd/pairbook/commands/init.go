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

package commands

import (
	"context"
	"os"

	"code.vegaprotocol.io/pairbook/config"
	"code.vegaprotocol.io/pairbook/logging"
	"code.vegaprotocol.io/pairbook/paths"

	"github.com/jessevdk/go-flags"
	"github.com/pkg/errors"
)

var ErrConfigExists = errors.New("configuration already exists, re-run with --force to overwrite it")

type InitCmd struct {
	config.PairbookHomeFlag

	Force bool `short:"f" long:"force" description:"Erase the existing configuration"`
	Help  bool `short:"h" long:"help" description:"Show this help message"`
}

var initCmd InitCmd

func (opts *InitCmd) Execute(_ []string) error {
	if opts.Help {
		return &flags.Error{
			Type:    flags.ErrHelp,
			Message: "pairbook init subcommand help",
		}
	}

	logger := logging.NewLoggerFromConfig(logging.NewDefaultConfig())
	defer logger.AtExit()

	cfgPath, err := initialise(paths.New(opts.PairbookHome), opts.Force)
	if err != nil {
		return err
	}
	logger.Info("configuration generated successfully", logging.String("path", cfgPath))
	return nil
}

// initialise writes the default node configuration, pointing every state
// file at the state home.
func initialise(p paths.Paths, force bool) (string, error) {
	cfgPath, err := p.CreateConfigPathFor(paths.NodeDefaultConfigFile)
	if err != nil {
		return "", err
	}
	_, err = os.Stat(cfgPath)
	switch {
	case err == nil && !force:
		return "", errors.Wrapf(ErrConfigExists, "%s", cfgPath)
	case err != nil && !os.IsNotExist(err):
		return "", errors.Wrapf(err, "unable to check %s", cfgPath)
	}

	if _, err := p.CreateStateDirFor(paths.NodeStateHome); err != nil {
		return "", err
	}

	cfg := config.NewDefaultConfig()
	cfg.Collateral.CheckpointPath = p.StatePathFor(paths.CollateralCheckpointFile)
	cfg.Storage.Path = p.StatePathFor(paths.EventJournalHome)
	cfg.Broker.File.Path = p.StatePathFor(paths.EventLogFile)

	if err := config.Write(cfgPath, &cfg); err != nil {
		return "", err
	}
	return cfgPath, nil
}

func Init(ctx context.Context, parser *flags.Parser) error {
	initCmd = InitCmd{}

	var (
		short = "Initialise a node"
		long  = `Generate the default configuration of a node. By default the files are
			stored following the XDG Base Directory specification, use --home to
			keep them under a single folder.`
	)
	_, err := parser.AddCommand("init", short, long, &initCmd)
	return err
}
