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
	"time"

	"code.vegaprotocol.io/pairbook/config/encoding"
	"code.vegaprotocol.io/pairbook/logging"
)

const namedLogger = "broker"

// Config represents the configuration of the broker and of its sinks.
type Config struct {
	Level      encoding.LogLevel `long:"log-level"`
	BufferSize int               `long:"buffer-size" description:"number of batches queued before senders block"`

	Socket SocketConfig `group:"Socket" namespace:"socket"`
	Kafka  KafkaConfig  `group:"Kafka" namespace:"kafka"`
	File   FileConfig   `group:"File" namespace:"file"`
}

// SocketConfig configures the push socket streaming events to a remote
// receiver.
type SocketConfig struct {
	Enabled         encoding.Bool     `long:"enabled"`
	Address         string            `long:"address" description:"e.g. tcp://127.0.0.1:3005"`
	SendTimeout     encoding.Duration `long:"send-timeout"`
	MaxDialInterval encoding.Duration `long:"max-dial-interval"`
}

// KafkaConfig configures the kafka producer, the key of every message is the
// order id.
type KafkaConfig struct {
	Enabled      encoding.Bool     `long:"enabled"`
	Brokers      []string          `long:"brokers"`
	Topic        string            `long:"topic"`
	BatchTimeout encoding.Duration `long:"batch-timeout"`
}

// FileConfig configures the JSON lines audit log.
type FileConfig struct {
	Enabled    encoding.Bool `long:"enabled"`
	Path       string        `long:"path"`
	MaxSizeMB  int           `long:"max-size-mb"`
	MaxBackups int           `long:"max-backups"`
	MaxAgeDays int           `long:"max-age-days"`
	Compress   encoding.Bool `long:"compress"`
}

// NewDefaultConfig creates an instance of config with default values.
func NewDefaultConfig() Config {
	return Config{
		Level:      encoding.LogLevel{Level: logging.InfoLevel},
		BufferSize: 1024,
		Socket: SocketConfig{
			Enabled:         false,
			Address:         "tcp://127.0.0.1:3005",
			SendTimeout:     encoding.Duration{Duration: time.Second},
			MaxDialInterval: encoding.Duration{Duration: 30 * time.Second},
		},
		Kafka: KafkaConfig{
			Enabled:      false,
			Brokers:      []string{"127.0.0.1:9092"},
			Topic:        "pairbook.events",
			BatchTimeout: encoding.Duration{Duration: 10 * time.Millisecond},
		},
		File: FileConfig{
			Enabled:    false,
			Path:       "events.jsonl",
			MaxSizeMB:  100,
			MaxBackups: 10,
			MaxAgeDays: 30,
			Compress:   true,
		},
	}
}
