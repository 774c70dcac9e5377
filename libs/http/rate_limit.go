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
	"context"
	"net"
	"sync"
	"time"

	"code.vegaprotocol.io/pairbook/config/encoding"

	"github.com/pkg/errors"
)

var ErrRateLimited = errors.New("rate-limited")

type RateLimitConfig struct {
	CoolDown encoding.Duration `long:"coolDown" description:"rate-limit duration, e.g. 10s, 1m30s, 24h0m0s, 0 disables it"`

	AllowList []string `long:"allowList" description:"a list of ip/subnets, e.g. 10.0.0.0/8, 192.168.0.0/16"`
}

// RateLimit greylists an identifier for CoolDown after each request, a
// request made while greylisted extends the penalty.
type RateLimit struct {
	coolDown  time.Duration
	allowList []net.IPNet
	now       func() time.Time

	mu sync.Mutex
	// map of any_identifier -> time until request can be allowed
	requests map[string]time.Time
}

func NewRateLimit(ctx context.Context, cfg RateLimitConfig) (*RateLimit, error) {
	allowList := make([]net.IPNet, 0, len(cfg.AllowList))
	for _, allowItem := range cfg.AllowList {
		_, ipnet, err := net.ParseCIDR(allowItem)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to parse AllowList entry: %s", allowItem)
		}
		allowList = append(allowList, *ipnet)
	}
	r := &RateLimit{
		coolDown:  cfg.CoolDown.Get(),
		allowList: allowList,
		now:       time.Now,
		requests:  map[string]time.Time{},
	}
	go r.startCleanup(ctx)
	return r, nil
}

// NewRequest returns nil if the rate has not been exceeded.
func (r *RateLimit) NewRequest(prefix, ip string) error {
	if r.coolDown <= 0 {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.isAllowListed(ip) {
		return nil
	}

	identifier := prefix + " " + ip
	now := r.now()
	if until, ok := r.requests[identifier]; ok && now.Before(until) {
		until = until.Add(r.coolDown)
		r.requests[identifier] = until
		return errors.Wrapf(ErrRateLimited, "%s for %s until %v", prefix, ip, until)
	}

	r.requests[identifier] = now.Add(r.coolDown)
	return nil
}

func (r *RateLimit) isAllowListed(ip string) bool {
	netIP := net.ParseIP(ip)
	for _, allowItem := range r.allowList {
		if allowItem.Contains(netIP) {
			return true
		}
	}
	return false
}

func (r *RateLimit) startCleanup(ctx context.Context) {
	ticker := time.NewTicker(1 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.cleanup()
		}
	}
}

func (r *RateLimit) cleanup() {
	now := r.now()
	r.mu.Lock()
	defer r.mu.Unlock()
	for identifier, until := range r.requests {
		if until.Before(now) {
			delete(r.requests, identifier)
		}
	}
}
