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

package logging

import (
	"fmt"
	"time"

	"go.uber.org/zap"
)

// Binary constructs a field that carries binary data as hex.
func Binary(key string, val []byte) zap.Field {
	return zap.String(key, fmt.Sprintf("%x", val))
}

// Bool constructs a field that carries a bool.
func Bool(key string, val bool) zap.Field {
	return zap.Bool(key, val)
}

// Duration constructs a field with the given key and value.
func Duration(key string, val time.Duration) zap.Field {
	return zap.Duration(key, val)
}

// Error constructs a field that lazily stores err.Error() under the
// key "error".
func Error(err error) zap.Field {
	return zap.Error(err)
}

// Int constructs a field with the given key and value.
func Int(key string, val int) zap.Field {
	return zap.Int(key, val)
}

// Int64 constructs a field with the given key and value.
func Int64(key string, val int64) zap.Field {
	return zap.Int64(key, val)
}

// String constructs a field with the given key and value.
func String(key string, val string) zap.Field {
	return zap.String(key, val)
}

// Strings constructs a field that carries a slice of strings.
func Strings(key string, val []string) zap.Field {
	return zap.Strings(key, val)
}

// Uint64 constructs a field with the given key and value.
func Uint64(key string, val uint64) zap.Field {
	return zap.Uint64(key, val)
}

// Time constructs a field with the given key and value.
func Time(key string, val time.Time) zap.Field {
	return zap.Time(key, val)
}

// Stringer constructs a field for any value implementing fmt.Stringer, it is
// used for the num.Uint amounts.
func Stringer(key string, val fmt.Stringer) zap.Field {
	return zap.Stringer(key, val)
}

// PartyID constructs a field with the given party id.
func PartyID(id string) zap.Field {
	return zap.String("party", id)
}

// AssetID constructs a field with the given asset id.
func AssetID(id string) zap.Field {
	return zap.String("asset", id)
}

// OrderID constructs a field with the given order id.
func OrderID(id uint64) zap.Field {
	return zap.Uint64("order-id", id)
}

// TraceID constructs a field with the given trace id.
func TraceID(id string) zap.Field {
	return zap.String("trace-id", id)
}

// Order constructs a field with the given order, anything with a String
// method is accepted so this package does not depend on the domain types.
func Order(o fmt.Stringer) zap.Field {
	return zap.String("order", o.String())
}

// Trade constructs a field with the given trade.
func Trade(t fmt.Stringer) zap.Field {
	return zap.String("trade", t.String())
}
