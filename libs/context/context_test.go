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

package context_test

import (
	"context"
	"testing"

	vgcontext "code.vegaprotocol.io/pairbook/libs/context"

	"github.com/stretchr/testify/assert"
)

func TestTraceID(t *testing.T) {
	t.Run("an existing trace id is kept", func(t *testing.T) {
		ctx := vgcontext.WithTraceID(context.Background(), "trace-1")
		_, tID := vgcontext.TraceIDFromContext(ctx)
		assert.Equal(t, "trace-1", tID)
	})

	t.Run("a missing trace id is generated once", func(t *testing.T) {
		ctx, tID := vgcontext.TraceIDFromContext(context.Background())
		assert.NotEmpty(t, tID)
		_, again := vgcontext.TraceIDFromContext(ctx)
		assert.Equal(t, tID, again)
	})
}
