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
	"strconv"

	"code.vegaprotocol.io/pairbook/core/events"
	"code.vegaprotocol.io/pairbook/logging"
	"code.vegaprotocol.io/pairbook/metrics"

	"github.com/pkg/errors"
	"github.com/segmentio/kafka-go"
)

const kafkaSink = "kafka"

var ErrNoKafkaBrokers = errors.New("no kafka brokers configured")

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaSender produces one message per event, keyed by order id so all the
// events of an order land on the same partition.
type KafkaSender struct {
	*Base
	log    *logging.Logger
	writer messageWriter
}

func NewKafkaSender(ctx context.Context, log *logging.Logger, config KafkaConfig, buf int) (*KafkaSender, error) {
	if len(config.Brokers) == 0 {
		return nil, ErrNoKafkaBrokers
	}
	log = log.Named(kafkaSink)
	w := &kafka.Writer{
		Addr:         kafka.TCP(config.Brokers...),
		Topic:        config.Topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
		BatchTimeout: config.BatchTimeout.Get(),
		ErrorLogger:  kafka.LoggerFunc(log.Errorf),
	}
	return newKafkaSender(ctx, log, w, buf), nil
}

func newKafkaSender(ctx context.Context, log *logging.Logger, w messageWriter, buf int) *KafkaSender {
	k := &KafkaSender{
		Base:   NewBase(ctx, buf, false),
		log:    log,
		writer: w,
	}
	go consume(k.Base, k.Push)
	return k
}

// Push writes the batch in one call.
func (k *KafkaSender) Push(evts ...events.Event) {
	msgs := make([]kafka.Message, 0, len(evts))
	for _, e := range evts {
		be := e.StreamMessage()
		buf, err := json.Marshal(be)
		if err != nil {
			k.log.Error("unable to marshal event", logging.Error(err))
			continue
		}
		var key []byte
		if be.Order != nil {
			key = []byte(strconv.FormatUint(be.Order.ID, 10))
		}
		msgs = append(msgs, kafka.Message{
			Key:     key,
			Value:   buf,
			Headers: []kafka.Header{{Key: "type", Value: []byte(be.Type)}},
		})
	}
	if len(msgs) == 0 {
		return
	}
	if err := k.writer.WriteMessages(k.Context(), msgs...); err != nil {
		metrics.EventsCounterInc(kafkaSink, "failed")
		k.log.Error("failed to produce events", logging.Int("events", len(msgs)), logging.Error(err))
		return
	}
	metrics.EventsCounterInc(kafkaSink, "sent")
}

func (k *KafkaSender) Close() error {
	k.Halt()
	return k.writer.Close()
}
