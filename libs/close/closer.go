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

package close

import (
	"sync"

	"github.com/pkg/errors"
	"go.uber.org/multierr"
)

type closeFn struct {
	name string
	fn   func() error
}

// Closer runs the shutdown functions of a process. Components are usually
// created after what they depend on, so they are closed in reverse order.
type Closer struct {
	mu       sync.Mutex
	closeFns []closeFn
}

func NewCloser() *Closer {
	return &Closer{
		closeFns: []closeFn{},
	}
}

// Add registers a shutdown function, its error is reported by CloseAll
// prefixed with name.
func (c *Closer) Add(name string, fn func() error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closeFns = append(c.closeFns, closeFn{name: name, fn: fn})
}

// AddFunc registers a shutdown function that cannot fail.
func (c *Closer) AddFunc(name string, fn func()) {
	c.Add(name, func() error {
		fn()
		return nil
	})
}

// CloseAll calls every function once, in reverse order, and returns all the
// errors combined. Functions added afterwards are kept for the next call.
func (c *Closer) CloseAll() error {
	c.mu.Lock()
	fns := c.closeFns
	c.closeFns = []closeFn{}
	c.mu.Unlock()

	var err error
	for i := len(fns) - 1; i >= 0; i-- {
		if cerr := fns[i].fn(); cerr != nil {
			err = multierr.Append(err, errors.Wrap(cerr, fns[i].name))
		}
	}
	return err
}
