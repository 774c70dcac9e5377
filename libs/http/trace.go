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

package http

import (
	"net/http"

	vgcontext "code.vegaprotocol.io/pairbook/libs/context"

	"github.com/google/uuid"
)

// TraceIDHeader carries the trace id of a request, in and out.
const TraceIDHeader = "X-Trace-Id"

// TraceHandler attaches a trace id to the request context, reusing the one
// sent by the client if any, and echoes it in the response.
func TraceHandler(h http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tID := r.Header.Get(TraceIDHeader)
		if _, err := uuid.Parse(tID); err != nil {
			tID = uuid.NewString()
		}
		w.Header().Set(TraceIDHeader, tID)
		h.ServeHTTP(w, r.WithContext(vgcontext.WithTraceID(r.Context(), tID)))
	})
}
