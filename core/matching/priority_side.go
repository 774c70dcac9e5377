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

	"github.com/google/btree"
)

const btreeDegree = 32

// prioritySide keeps orders sorted best price first, then by arrival.
type prioritySide struct {
	tree *btree.BTreeG[*types.Order]
}

func newPrioritySide(side types.Side) *prioritySide {
	return &prioritySide{
		tree: btree.NewG(btreeDegree, priorityLess(side)),
	}
}

func priorityLess(side types.Side) btree.LessFunc[*types.Order] {
	return func(a, b *types.Order) bool {
		if c := a.Price.Cmp(b.Price); c != 0 {
			if side == types.SideBuy {
				return c > 0
			}
			return c < 0
		}
		if a.CreatedAt != b.CreatedAt {
			return a.CreatedAt < b.CreatedAt
		}
		return a.ID < b.ID
	}
}

func (s *prioritySide) insert(o *types.Order) {
	s.tree.ReplaceOrInsert(o)
}

func (s *prioritySide) at(i int) (*types.Order, bool) {
	var (
		found *types.Order
		pos   int
	)
	if i < 0 || i >= s.tree.Len() {
		return nil, false
	}
	s.tree.Ascend(func(o *types.Order) bool {
		if pos == i {
			found = o
			return false
		}
		pos++
		return true
	})
	return found, found != nil
}

func (s *prioritySide) replace(_ int, o *types.Order) {
	// the sort key is unchanged so the stored order is swapped in place
	s.tree.ReplaceOrInsert(o)
}

func (s *prioritySide) removeAt(i int) (*types.Order, error) {
	o, ok := s.at(i)
	if !ok {
		return nil, ErrIndexOutOfRange
	}
	s.tree.Delete(o)
	return o, nil
}

func (s *prioritySide) each(fn func(i int, o *types.Order) bool) {
	var i int
	s.tree.Ascend(func(o *types.Order) bool {
		ok := fn(i, o)
		i++
		return ok
	})
}

func (s *prioritySide) len() int {
	return s.tree.Len()
}

func (s *prioritySide) clone() bookSide {
	return &prioritySide{tree: s.tree.Clone()}
}
