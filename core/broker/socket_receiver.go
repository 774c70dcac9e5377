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

package broker

import (
	"context"
	"encoding/json"
	"time"

	"code.vegaprotocol.io/pairbook/core/events"
	"code.vegaprotocol.io/pairbook/logging"

	"github.com/pkg/errors"
	"go.nanomsg.org/mangos/v3"
	"go.nanomsg.org/mangos/v3/protocol"
	"go.nanomsg.org/mangos/v3/protocol/pull"
	_ "go.nanomsg.org/mangos/v3/transport/inproc"
	_ "go.nanomsg.org/mangos/v3/transport/tcp"
)

const receiveTimeout = 200 * time.Millisecond

// SocketReceiver is the listening end of a SocketSender.
type SocketReceiver struct {
	log  *logging.Logger
	sock protocol.Socket
}

func NewSocketReceiver(log *logging.Logger, address string) (*SocketReceiver, error) {
	sock, err := pull.NewSocket()
	if err != nil {
		return nil, errors.Wrap(err, "failed to create pull socket")
	}
	if err := sock.SetOption(mangos.OptionRecvDeadline, receiveTimeout); err != nil {
		_ = sock.Close()
		return nil, errors.Wrap(err, "failed to set receive deadline")
	}
	if err := sock.Listen(address); err != nil {
		_ = sock.Close()
		return nil, errors.Wrapf(err, "failed to listen on %v", address)
	}
	log.Info("listening for events", logging.String("address", address))
	return &SocketReceiver{
		log:  log,
		sock: sock,
	}, nil
}

// Receive decodes incoming messages until ctx is cancelled or the socket
// closed, both channels are closed when it stops.
func (s *SocketReceiver) Receive(ctx context.Context) (<-chan *events.BusEvent, <-chan error) {
	out := make(chan *events.BusEvent)
	errCh := make(chan error, 1)
	go func() {
		defer func() {
			close(out)
			close(errCh)
		}()
		for {
			if ctx.Err() != nil {
				return
			}
			msg, err := s.sock.Recv()
			if err != nil {
				switch err {
				case protocol.ErrRecvTimeout:
					continue
				case protocol.ErrClosed:
					return
				default:
					errCh <- errors.Wrap(err, "failed to receive")
					return
				}
			}
			var be events.BusEvent
			if err := json.Unmarshal(msg, &be); err != nil {
				s.log.Warn("dropping malformed message", logging.Error(err))
				continue
			}
			select {
			case <-ctx.Done():
				return
			case out <- &be:
			}
		}
	}()
	return out, errCh
}

func (s *SocketReceiver) Close() error {
	return s.sock.Close()
}
