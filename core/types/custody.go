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

import (
	"context"

	"code.vegaprotocol.io/pairbook/libs/num"
)

// CustodyTx groups the asset movements of a single engine operation. None
// of the movements is visible outside of the transaction before Commit, and
// Rollback discards all of them.
type CustodyTx interface {
	// Debit moves amount of asset from the party into the venue escrow.
	Debit(ctx context.Context, asset, party string, amount *num.Uint) error
	// Credit moves amount of asset from the venue escrow to the party.
	Credit(ctx context.Context, asset, party string, amount *num.Uint) error
	Commit() error
	Rollback()
}
