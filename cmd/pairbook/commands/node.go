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
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"code.vegaprotocol.io/pairbook/config"
	"code.vegaprotocol.io/pairbook/core/api"
	"code.vegaprotocol.io/pairbook/core/broker"
	"code.vegaprotocol.io/pairbook/core/collateral"
	"code.vegaprotocol.io/pairbook/core/matching"
	vgclose "code.vegaprotocol.io/pairbook/libs/close"
	vghttp "code.vegaprotocol.io/pairbook/libs/http"
	"code.vegaprotocol.io/pairbook/logging"
	"code.vegaprotocol.io/pairbook/metrics"
	"code.vegaprotocol.io/pairbook/paths"
	"code.vegaprotocol.io/pairbook/storage"

	"github.com/jessevdk/go-flags"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 10 * time.Second

type NodeCmd struct {
	config.PairbookHomeFlag

	ConfigPath string `long:"config" description:"Path to the configuration file, defaults to the one under the home"`
	Help       bool   `short:"h" long:"help" description:"Show this help message"`
}

var nodeCmd NodeCmd

func (cmd *NodeCmd) Execute(_ []string) error {
	if cmd.Help {
		return &flags.Error{
			Type:    flags.ErrHelp,
			Message: "pairbook node subcommand help",
		}
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	p := paths.New(cmd.PairbookHome)
	cfgPath := cmd.ConfigPath
	if len(cfgPath) == 0 {
		cfgPath = p.ConfigPathFor(paths.NodeDefaultConfigFile)
	}

	n := newNode(p)
	defer func() { n.log.AtExit() }()
	defer func() {
		if err := n.closer.CloseAll(); err != nil {
			n.log.Error("unable to shut down cleanly", logging.Error(err))
		}
	}()
	if err := n.setup(ctx, cfgPath); err != nil {
		n.log.Error("unable to start the node", logging.Error(err))
		return err
	}
	return n.run(ctx)
}

// node owns every component of a running venue.
type node struct {
	log    *logging.Logger
	paths  paths.Paths
	closer *vgclose.Closer

	watcher    *config.Watcher
	collateral *collateral.Engine
	journal    *storage.Events
	broker     *broker.Broker
	sinks      []broker.Sink
	matching   *matching.Engine
	api        *api.Server
}

func newNode(p paths.Paths) *node {
	return &node{
		log:    logging.NewLoggerFromConfig(logging.NewDefaultConfig()),
		paths:  p,
		closer: vgclose.NewCloser(),
	}
}

// setup builds the components in dependency order. The closer runs in
// reverse: the broker stops first, then the sinks and the journal, and the
// collateral checkpoint is written last.
func (n *node) setup(ctx context.Context, cfgPath string) (err error) {
	n.watcher, err = config.NewWatcher(ctx, n.log, cfgPath)
	if err != nil {
		return err
	}
	cfg := n.watcher.Get()
	n.log = logging.NewLoggerFromConfig(cfg.Logging)

	if err := metrics.Start(cfg.Metrics); err != nil {
		return errors.Wrap(err, "unable to start metrics")
	}

	n.collateral, err = collateral.New(n.log, cfg.Collateral)
	if err != nil {
		return err
	}
	if err := n.collateral.LoadCheckpoint(ctx); err != nil {
		return errors.Wrap(err, "unable to load collateral checkpoint")
	}
	n.closer.Add("collateral checkpoint", n.collateral.SaveCheckpoint)

	if cfg.Storage.Enabled {
		dir, err := n.journalDir(cfg.Storage)
		if err != nil {
			return err
		}
		n.journal, err = storage.NewEvents(n.log, dir, cfg.Storage)
		if err != nil {
			return err
		}
		n.closer.Add("event journal", n.journal.Close)
	}

	// the broker outlives ctx so the shutdown events still reach the sinks
	bctx, bcancel := context.WithCancel(context.Background())
	n.broker = broker.New(bctx, n.log, cfg.Broker)
	if n.journal != nil {
		last, err := n.journal.LastSequence()
		if err != nil {
			bcancel()
			return errors.Wrap(err, "unable to read the journal")
		}
		n.broker.SetLastSequence(last)
		n.sinks = append(n.sinks, broker.NewJournalSink(bctx, n.log, n.journal))
		n.broker.Subscribe(n.sinks[0], true)
	}
	sinks, err := broker.StartSinks(bctx, n.log, cfg.Broker, n.broker)
	if err != nil {
		bcancel()
		return err
	}
	n.sinks = append(n.sinks, sinks...)
	n.closer.AddFunc("sinks", func() { broker.CloseSinks(n.log, n.sinks) })
	n.closer.AddFunc("broker", bcancel)

	n.matching, err = matching.NewEngine(n.log, cfg.Matching, n.collateral, n.broker)
	if err != nil {
		return err
	}

	limiter, err := vghttp.NewRateLimit(ctx, cfg.API.RateLimit)
	if err != nil {
		return err
	}
	var journal api.EventJournal
	if n.journal != nil {
		journal = n.journal
	}
	n.api = api.New(n.log, cfg.API, n.matching, n.collateral, journal, limiter)
	if cfg.Metrics.Enabled {
		n.api.Router.Handler(http.MethodGet, cfg.Metrics.Path, metrics.Handler())
	}

	n.watcher.OnConfigUpdate(
		func(cfg config.Config) { n.log.SetLevel(cfg.Logging.Level) },
		func(cfg config.Config) { n.collateral.ReloadConf(cfg.Collateral) },
		func(cfg config.Config) { n.matching.ReloadConf(cfg.Matching) },
	)
	if n.journal != nil {
		n.watcher.OnConfigUpdate(func(cfg config.Config) { n.journal.ReloadConf(cfg.Storage) })
	}
	return nil
}

// journalDir resolves a relative journal path from the state home.
func (n *node) journalDir(cfg storage.Config) (string, error) {
	if cfg.InMemory {
		return "", nil
	}
	if filepath.IsAbs(cfg.Path) {
		return cfg.Path, nil
	}
	return n.paths.CreateStateDirFor(paths.JoinStatePath(paths.NodeStateHome, cfg.Path))
}

// run serves the API until ctx is cancelled, then cancels every resting
// order so the checkpoint holds no escrow.
func (n *node) run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)
	g.Go(n.api.Start)
	g.Go(func() error {
		<-gctx.Done()
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return n.api.Stop(sctx)
	})
	err := g.Wait()

	n.shutdown()
	return err
}

func (n *node) shutdown() {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	cancelled, err := n.matching.CancelAll(ctx)
	if err != nil {
		n.log.Error("unable to cancel the resting orders", logging.Error(err))
	} else {
		n.log.Info("resting orders cancelled", logging.Int("orders", len(cancelled)))
	}
	if err := n.broker.Flush(ctx); err != nil {
		n.log.Warn("events may be missing from the sinks", logging.Error(err))
	}
}

func Node(ctx context.Context, parser *flags.Parser) error {
	nodeCmd = NodeCmd{}

	var (
		short = "Run a pairbook node"
		long  = `Start the matching engine and serve the HTTP API. Resting orders are
			cancelled on shutdown and the balances saved to the collateral
			checkpoint.`
	)
	_, err := parser.AddCommand("node", short, long, &nodeCmd)
	return err
}
