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
	"encoding/json"
	"io"
	"os"
	"os/signal"
	"syscall"

	"code.vegaprotocol.io/pairbook/core/broker"
	"code.vegaprotocol.io/pairbook/core/events"
	"code.vegaprotocol.io/pairbook/logging"

	"github.com/jessevdk/go-flags"
	"github.com/pkg/errors"
)

var ErrUnknownEventType = errors.New("unknown event type")

// EventsCmd listens on the address the node socket sink dials and prints
// every event it receives as a JSON line.
type EventsCmd struct {
	out io.Writer

	Address string   `long:"address" description:"Address to listen on, the node socket sink dials it" default:"tcp://127.0.0.1:3005"`
	Types   []string `long:"type" description:"Only print events of this type, can be repeated"`
	Help    bool     `short:"h" long:"help" description:"Show this help message"`
}

var eventsCmd EventsCmd

func (cmd *EventsCmd) Execute(_ []string) error {
	if cmd.Help {
		return &flags.Error{
			Type:    flags.ErrHelp,
			Message: "pairbook events subcommand help",
		}
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	logger := logging.NewLoggerFromConfig(logging.NewDefaultConfig())
	defer logger.AtExit()

	receiver, err := broker.NewSocketReceiver(logger, cmd.Address)
	if err != nil {
		return err
	}
	defer receiver.Close()

	return cmd.print(ctx, receiver)
}

type eventSource interface {
	Receive(ctx context.Context) (<-chan *events.BusEvent, <-chan error)
}

func (cmd *EventsCmd) print(ctx context.Context, src eventSource) error {
	wanted := map[string]struct{}{}
	for _, t := range cmd.Types {
		typ, ok := events.TryFromString(t)
		if !ok {
			return errors.Wrapf(ErrUnknownEventType, "%q", t)
		}
		wanted[typ.String()] = struct{}{}
	}

	enc := json.NewEncoder(cmd.out)
	evts, errs := src.Receive(ctx)
	for {
		select {
		case <-ctx.Done():
			return nil
		case err, ok := <-errs:
			if ok && err != nil {
				return err
			}
			errs = nil
		case be, ok := <-evts:
			if !ok {
				return nil
			}
			if _, ok := wanted[be.Type]; len(wanted) > 0 && !ok {
				continue
			}
			if err := enc.Encode(be); err != nil {
				return errors.Wrap(err, "unable to print event")
			}
		}
	}
}

func Events(ctx context.Context, parser *flags.Parser) error {
	eventsCmd = EventsCmd{
		out: os.Stdout,
	}

	var (
		short = "Print the events streamed by a node"
		long  = `Listen for the events a node pushes through its socket sink and print
			them, one JSON document per line. The node keeps dialing until the
			listener is up.`
	)
	_, err := parser.AddCommand("events", short, long, &eventsCmd)
	return err
}
