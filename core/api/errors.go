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
	"encoding/json"
	"net/http"

	"code.vegaprotocol.io/pairbook/core/collateral"
	"code.vegaprotocol.io/pairbook/core/matching"
	"code.vegaprotocol.io/pairbook/core/types"
	vghttp "code.vegaprotocol.io/pairbook/libs/http"

	"github.com/pkg/errors"
)

var (
	ErrInvalidRequest  = errors.New("invalid request")
	ErrJournalDisabled = errors.New("event journal disabled")
)

type HTTPError struct {
	ErrorStr string `json:"error"`
}

// statusFor maps the domain errors to a status code.
func statusFor(err error) int {
	switch {
	case errors.Is(err, ErrInvalidRequest),
		errors.Is(err, types.ErrInvalidInput),
		errors.Is(err, types.ErrArithmeticOverflow),
		errors.Is(err, matching.ErrUnknownLedgerMode):
		return http.StatusBadRequest
	case errors.Is(err, types.ErrInsufficientFundsOrApproval):
		return http.StatusPaymentRequired
	case errors.Is(err, collateral.ErrPartyFrozen):
		return http.StatusForbidden
	case errors.Is(err, types.ErrOrderNotFound):
		return http.StatusNotFound
	case errors.Is(err, matching.ErrReentrantCall),
		errors.Is(err, collateral.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, vghttp.ErrRateLimited):
		return http.StatusTooManyRequests
	case errors.Is(err, ErrJournalDisabled):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, err error) int {
	status := statusFor(err)
	writeJSON(w, HTTPError{ErrorStr: err.Error()}, status)
	return status
}

func writeSuccess(w http.ResponseWriter, data interface{}, status int) int {
	writeJSON(w, data, status)
	return status
}

func writeJSON(w http.ResponseWriter, data interface{}, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}
