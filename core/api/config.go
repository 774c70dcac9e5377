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

package api

import (
	"time"

	"code.vegaprotocol.io/pairbook/config/encoding"
	vghttp "code.vegaprotocol.io/pairbook/libs/http"
	"code.vegaprotocol.io/pairbook/logging"
)

const namedLogger = "api"

// Config represents the configuration of the HTTP API.
type Config struct {
	Level        encoding.LogLevel `long:"log-level"`
	IP           string            `long:"ip" description:"listen address"`
	Port         int               `long:"port"`
	ReadTimeout  encoding.Duration `long:"read-timeout"`
	WriteTimeout encoding.Duration `long:"write-timeout"`
	MaxBodyBytes int64             `long:"max-body-bytes"`

	CORS      vghttp.CORSConfig      `group:"CORS" namespace:"cors"`
	RateLimit vghttp.RateLimitConfig `group:"RateLimit" namespace:"ratelimit" description:"cool down applied per ip to deposits and withdrawals"`
}

// NewDefaultConfig creates an instance of config with default values.
func NewDefaultConfig() Config {
	return Config{
		Level:        encoding.LogLevel{Level: logging.InfoLevel},
		IP:           "0.0.0.0",
		Port:         3008,
		ReadTimeout:  encoding.Duration{Duration: 5 * time.Second},
		WriteTimeout: encoding.Duration{Duration: 10 * time.Second},
		MaxBodyBytes: 1 << 16,
		CORS: vghttp.CORSConfig{
			AllowedOrigins: []string{"*"},
		},
		RateLimit: vghttp.RateLimitConfig{
			CoolDown:  encoding.Duration{Duration: 0},
			AllowList: []string{"127.0.0.0/8"},
		},
	}
}
