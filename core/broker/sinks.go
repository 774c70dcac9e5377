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

	"code.vegaprotocol.io/pairbook/logging"

	"github.com/pkg/errors"
)

// Sink is a subscriber holding an external resource.
type Sink interface {
	Subscriber
	Close() error
}

// StartSinks creates the sinks enabled in the configuration and subscribes
// them to the broker. On error the sinks already created are closed.
func StartSinks(ctx context.Context, log *logging.Logger, config Config, b *Broker) ([]Sink, error) {
	log = log.Named(namedLogger)
	buf := config.BufferSize
	sinks := []Sink{}
	fail := func(err error) ([]Sink, error) {
		CloseSinks(log, sinks)
		return nil, err
	}

	if config.File.Enabled {
		sinks = append(sinks, NewFileSink(ctx, log, config.File, buf))
	}
	if config.Socket.Enabled {
		s, err := NewSocketSender(ctx, log, config.Socket, buf)
		if err != nil {
			return fail(errors.Wrap(err, "unable to start socket sink"))
		}
		sinks = append(sinks, s)
	}
	if config.Kafka.Enabled {
		k, err := NewKafkaSender(ctx, log, config.Kafka, buf)
		if err != nil {
			return fail(errors.Wrap(err, "unable to start kafka sink"))
		}
		sinks = append(sinks, k)
	}

	for _, s := range sinks {
		b.Subscribe(s, false)
	}
	return sinks, nil
}

// CloseSinks closes all the sinks, logging the failures.
func CloseSinks(log *logging.Logger, sinks []Sink) {
	for _, s := range sinks {
		if err := s.Close(); err != nil {
			log.Warn("unable to close sink", logging.Error(err))
		}
	}
}
