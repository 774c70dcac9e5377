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

package matching

import (
	"code.vegaprotocol.io/pairbook/core/types"
)

// swapSide keeps orders in a slice. Removing an order moves the last order
// of the side into its position, so positions do not follow arrival order
// once anything left the side.
type swapSide struct {
	orders []*types.Order
}

func (s *swapSide) insert(o *types.Order) {
	s.orders = append(s.orders, o)
}

func (s *swapSide) at(i int) (*types.Order, bool) {
	if i < 0 || i >= len(s.orders) {
		return nil, false
	}
	return s.orders[i], true
}

func (s *swapSide) replace(i int, o *types.Order) {
	s.orders[i] = o
}

func (s *swapSide) removeAt(i int) (*types.Order, error) {
	if i < 0 || i >= len(s.orders) {
		return nil, ErrIndexOutOfRange
	}
	o := s.orders[i]
	last := len(s.orders) - 1
	s.orders[i] = s.orders[last]
	s.orders[last] = nil
	s.orders = s.orders[:last]
	return o, nil
}

func (s *swapSide) each(fn func(i int, o *types.Order) bool) {
	for i, o := range s.orders {
		if !fn(i, o) {
			return
		}
	}
}

func (s *swapSide) len() int {
	return len(s.orders)
}

func (s *swapSide) clone() bookSide {
	cpy := make([]*types.Order, len(s.orders))
	copy(cpy, s.orders)
	return &swapSide{orders: cpy}
}
