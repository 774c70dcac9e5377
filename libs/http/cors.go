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
	"net/url"
	"strings"

	"github.com/rs/cors"
)

// CORSConfig lists the origins of the browser front ends allowed to call the
// API. Origins match with or without their scheme, "*" allows everything.
type CORSConfig struct {
	AllowedOrigins []string `long:"allowed-origins" description:"Allowed origins for CORS"`
	MaxAge         int      `long:"max-age" description:"Max age (in seconds) for preflight cache"`
}

func CORSOptions(config CORSConfig) cors.Options {
	return cors.Options{
		AllowOriginFunc: AllowedOrigin(config.AllowedOrigins),
		AllowedMethods: []string{
			http.MethodHead,
			http.MethodGet,
			http.MethodPost,
			http.MethodDelete,
		},
		AllowedHeaders: []string{"Content-Type", TraceIDHeader},
		ExposedHeaders: []string{TraceIDHeader},
		MaxAge:         config.MaxAge,
	}
}

// CORSHandler wraps h with the CORS middleware.
func CORSHandler(config CORSConfig, h http.Handler) http.Handler {
	return cors.New(CORSOptions(config)).Handler(h)
}

// AllowedOrigin builds the origin check, the hosts are compared case
// insensitively.
func AllowedOrigin(allowedOrigins []string) func(origin string) bool {
	hosts := make(map[string]struct{}, len(allowedOrigins))
	for _, o := range allowedOrigins {
		if o == "*" {
			return func(string) bool { return true }
		}
		hosts[originHost(o)] = struct{}{}
	}
	if len(hosts) == 0 {
		return func(string) bool { return true }
	}
	return func(origin string) bool {
		_, ok := hosts[originHost(origin)]
		return ok
	}
}

func originHost(origin string) string {
	if u, err := url.Parse(origin); err == nil && len(u.Host) > 0 {
		return strings.ToLower(u.Host)
	}
	return strings.ToLower(strings.TrimSuffix(origin, "/"))
}
