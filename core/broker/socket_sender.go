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
	"code.vegaprotocol.io/pairbook/metrics"

	"github.com/cenkalti/backoff/v4"
	"github.com/pkg/errors"
	"go.nanomsg.org/mangos/v3"
	"go.nanomsg.org/mangos/v3/protocol"
	"go.nanomsg.org/mangos/v3/protocol/push"
	_ "go.nanomsg.org/mangos/v3/transport/inproc"
	_ "go.nanomsg.org/mangos/v3/transport/tcp"
)

const socketSink = "socket"

// SocketSender streams the events as JSON messages over a push socket.
type SocketSender struct {
	*Base
	log    *logging.Logger
	config SocketConfig
	sock   protocol.Socket
}

// NewSocketSender creates the socket and starts dialing in the background,
// events received before the connection is up stay buffered.
func NewSocketSender(ctx context.Context, log *logging.Logger, config SocketConfig, buf int) (*SocketSender, error) {
	sock, err := push.NewSocket()
	if err != nil {
		return nil, errors.Wrap(err, "failed to create push socket")
	}
	if timeout := config.SendTimeout.Get(); timeout > 0 {
		if err := sock.SetOption(mangos.OptionSendDeadline, timeout); err != nil {
			_ = sock.Close()
			return nil, errors.Wrap(err, "failed to set send deadline")
		}
	}
	s := &SocketSender{
		Base:   NewBase(ctx, buf, false),
		log:    log.Named(socketSink),
		config: config,
		sock:   sock,
	}
	go s.run()
	return s, nil
}

func (s *SocketSender) run() {
	if err := s.dial(); err != nil {
		s.log.Error("giving up connecting", logging.String("address", s.config.Address), logging.Error(err))
		return
	}
	s.log.Info("connected", logging.String("address", s.config.Address))
	consume(s.Base, s.Push)
}

func (s *SocketSender) dial() error {
	bo := backoff.NewExponentialBackOff()
	bo.MaxElapsedTime = 0
	if max := s.config.MaxDialInterval.Get(); max > 0 {
		bo.MaxInterval = max
	}
	return backoff.RetryNotify(
		func() error { return s.sock.Dial(s.config.Address) },
		backoff.WithContext(bo, s.Context()),
		func(err error, next time.Duration) {
			s.log.Warn("failed to connect, retrying",
				logging.String("address", s.config.Address),
				logging.Duration("retry-in", next),
				logging.Error(err),
			)
		},
	)
}

// Push sends the events one message each.
func (s *SocketSender) Push(evts ...events.Event) {
	for _, e := range evts {
		buf, err := json.Marshal(e.StreamMessage())
		if err != nil {
			s.log.Error("unable to marshal event", logging.Error(err))
			continue
		}
		if err := s.sock.Send(buf); err != nil {
			metrics.EventsCounterInc(socketSink, "failed")
			s.log.Warn("failed to send event", logging.Uint64("sequence", e.Sequence()), logging.Error(err))
			continue
		}
		metrics.EventsCounterInc(socketSink, "sent")
	}
}

func (s *SocketSender) Close() error {
	s.Halt()
	return s.sock.Close()
}
