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

package types

import "github.com/pkg/errors"

var (
	// ErrInvalidInput is the parent of every validation failure raised before
	// any funds are touched.
	ErrInvalidInput = errors.New("invalid input")

	ErrInvalidAmount = errors.WithMessage(ErrInvalidInput, "amount must be a positive integer")
	ErrInvalidPrice  = errors.WithMessage(ErrInvalidInput, "price must be a positive integer")
	ErrInvalidParty  = errors.WithMessage(ErrInvalidInput, "missing party")
	ErrInvalidSide   = errors.WithMessage(ErrInvalidInput, "side must be buy or sell")
	ErrInvalidAsset  = errors.WithMessage(ErrInvalidInput, "unknown asset")

	ErrInsufficientFundsOrApproval = errors.New("insufficient funds or approval")
	ErrSettlementFailure           = errors.New("settlement failure")
	ErrArithmeticOverflow          = errors.New("arithmetic overflow")
	ErrOrderNotFound               = errors.New("order not found")
)
