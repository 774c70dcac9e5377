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

package http_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"code.vegaprotocol.io/pairbook/config/encoding"
	vgcontext "code.vegaprotocol.io/pairbook/libs/context"
	vghttp "code.vegaprotocol.io/pairbook/libs/http"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRateLimit(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	now := time.Unix(1000, 0)
	rl, err := vghttp.NewRateLimit(ctx, vghttp.RateLimitConfig{
		CoolDown:  encoding.Duration{Duration: 10 * time.Second},
		AllowList: []string{"10.0.0.0/8"},
	})
	require.NoError(t, err)
	rl.SetClock(func() time.Time { return now })

	t.Run("second request within the cool down is refused", func(t *testing.T) {
		require.NoError(t, rl.NewRequest("deposit", "1.2.3.4"))
		assert.ErrorIs(t, rl.NewRequest("deposit", "1.2.3.4"), vghttp.ErrRateLimited)
		// other prefixes are tracked separately
		assert.NoError(t, rl.NewRequest("withdraw", "1.2.3.4"))
	})

	t.Run("refused requests extend the penalty", func(t *testing.T) {
		now = now.Add(15 * time.Second)
		assert.ErrorIs(t, rl.NewRequest("deposit", "1.2.3.4"), vghttp.ErrRateLimited)
		now = now.Add(20 * time.Second)
		assert.NoError(t, rl.NewRequest("deposit", "1.2.3.4"))
	})

	t.Run("allow listed addresses are never limited", func(t *testing.T) {
		for i := 0; i < 3; i++ {
			assert.NoError(t, rl.NewRequest("deposit", "10.1.2.3"))
		}
	})

	t.Run("expired entries are cleaned up", func(t *testing.T) {
		now = now.Add(time.Hour)
		assert.Zero(t, rl.Tracked())
	})
}

func TestRateLimitConfig(t *testing.T) {
	_, err := vghttp.NewRateLimit(context.Background(), vghttp.RateLimitConfig{AllowList: []string{"nope"}})
	assert.Error(t, err)

	rl, err := vghttp.NewRateLimit(context.Background(), vghttp.RateLimitConfig{})
	require.NoError(t, err)
	assert.NoError(t, rl.NewRequest("deposit", "1.2.3.4"))
	assert.NoError(t, rl.NewRequest("deposit", "1.2.3.4"))
}

func TestAllowedOrigin(t *testing.T) {
	assert.True(t, vghttp.AllowedOrigin(nil)("https://anything"))
	allowed := vghttp.AllowedOrigin([]string{"https://pairbook.example"})
	assert.True(t, allowed("http://pairbook.example"))
	assert.True(t, allowed("https://Pairbook.Example"))
	assert.False(t, allowed("https://other.example"))

	bare := vghttp.AllowedOrigin([]string{"localhost:3000"})
	assert.True(t, bare("http://localhost:3000"))
	assert.False(t, bare("http://localhost:3001"))
}

func TestTraceHandler(t *testing.T) {
	var seen string
	h := vghttp.TraceHandler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, seen = vgcontext.TraceIDFromContext(r.Context())
	}))

	t.Run("a valid client trace id is kept", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set(vghttp.TraceIDHeader, "0b0e4dca-08b4-4c4c-93f1-3a4ed0e4ad38")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		assert.Equal(t, "0b0e4dca-08b4-4c4c-93f1-3a4ed0e4ad38", seen)
		assert.Equal(t, seen, rec.Header().Get(vghttp.TraceIDHeader))
	})

	t.Run("garbage is replaced", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set(vghttp.TraceIDHeader, "<script>")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		assert.NotEqual(t, "<script>", seen)
		assert.Len(t, seen, 36)
	})
}
