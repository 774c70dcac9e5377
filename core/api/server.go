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
	"context"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"code.vegaprotocol.io/pairbook/core/collateral"
	"code.vegaprotocol.io/pairbook/core/events"
	"code.vegaprotocol.io/pairbook/core/matching"
	"code.vegaprotocol.io/pairbook/core/types"
	vgcontext "code.vegaprotocol.io/pairbook/libs/context"
	vghttp "code.vegaprotocol.io/pairbook/libs/http"
	"code.vegaprotocol.io/pairbook/libs/num"
	"code.vegaprotocol.io/pairbook/logging"
	"code.vegaprotocol.io/pairbook/metrics"

	"github.com/julienschmidt/httprouter"
	"github.com/pkg/errors"
)

// MatchingEngine is the part of the engine exposed over HTTP.
type MatchingEngine interface {
	SubmitOrder(ctx context.Context, sub *types.OrderSubmission) (*types.OrderConfirmation, error)
	CancelOrder(ctx context.Context, party string, id uint64) (*types.Order, error)
	BuyOrders() []types.Order
	SellOrders() []types.Order
	GetOrderByID(id uint64) (*types.Order, error)
	Stats() matching.Stats
}

// Custody is the part of the collateral engine exposed over HTTP.
type Custody interface {
	Deposit(ctx context.Context, asset, party string, amount *num.Uint) error
	Withdraw(ctx context.Context, asset, party string, amount *num.Uint) error
	Approve(ctx context.Context, asset, party string, allowance *num.Uint) error
	Accounts(party string) []collateral.AccountBalance
	Asset(id string) (collateral.AssetConfig, bool)
}

// EventJournal gives access to the events already sent.
type EventJournal interface {
	List(from uint64, limit int) ([]*events.BusEvent, error)
	ListByParty(party string, from uint64, limit int) ([]*events.BusEvent, error)
}

// RateLimiter returns an error when the caller must slow down.
type RateLimiter interface {
	NewRequest(prefix, ip string) error
}

// Server is the HTTP front of the venue.
type Server struct {
	*httprouter.Router

	log     *logging.Logger
	cfg     Config
	engine  MatchingEngine
	custody Custody
	journal EventJournal
	limiter RateLimiter

	mu      sync.Mutex
	srv     *http.Server
	stopped bool
}

// New creates the server and registers the routes. journal and limiter are
// optional.
func New(log *logging.Logger, cfg Config, engine MatchingEngine, custody Custody, journal EventJournal, limiter RateLimiter) *Server {
	log = log.Named(namedLogger)
	log.SetLevel(cfg.Level.Get())

	s := &Server{
		Router:  httprouter.New(),
		log:     log,
		cfg:     cfg,
		engine:  engine,
		custody: custody,
		journal: journal,
		limiter: limiter,
	}

	s.POST("/api/v1/orders", s.handle("SubmitOrder", s.SubmitOrder))
	s.DELETE("/api/v1/orders/:id", s.handle("CancelOrder", s.CancelOrder))
	s.GET("/api/v1/orders/:id", s.handle("GetOrder", s.GetOrder))
	s.GET("/api/v1/book/buy", s.handle("BuyOrders", s.BuyOrders))
	s.GET("/api/v1/book/sell", s.handle("SellOrders", s.SellOrders))
	s.GET("/api/v1/stats", s.handle("Stats", s.Stats))
	s.POST("/api/v1/deposits", s.handle("Deposit", s.Deposit))
	s.POST("/api/v1/withdrawals", s.handle("Withdraw", s.Withdraw))
	s.POST("/api/v1/approvals", s.handle("Approve", s.Approve))
	s.GET("/api/v1/accounts/:party", s.handle("Accounts", s.Accounts))
	s.GET("/api/v1/events", s.handle("Events", s.Events))
	return s
}

type handlerFunc func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) int

// handle adds logging and latency metrics to a handler.
func (s *Server) handle(name string, h handlerFunc) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		start := time.Now()
		if s.cfg.MaxBodyBytes > 0 {
			r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxBodyBytes)
		}
		status := h(w, r, ps)
		elapsed := time.Since(start)
		_, tID := vgcontext.TraceIDFromContext(r.Context())
		metrics.APIRequestAndTimeREST(name, elapsed.Seconds())
		s.log.Debug("request served",
			logging.String("handler", name),
			logging.Int("status", status),
			logging.Duration("elapsed", elapsed),
			logging.TraceID(tID),
		)
	}
}

// Handler returns the router with the trace and CORS middlewares.
func (s *Server) Handler() http.Handler {
	return vghttp.CORSHandler(s.cfg.CORS, vghttp.TraceHandler(s.Router))
}

// Start serves until Stop is called, it returns at once after a Stop.
func (s *Server) Start() error {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return nil
	}
	s.srv = &http.Server{
		Addr:              net.JoinHostPort(s.cfg.IP, strconv.Itoa(s.cfg.Port)),
		Handler:           s.Handler(),
		ReadHeaderTimeout: s.cfg.ReadTimeout.Get(),
		ReadTimeout:       s.cfg.ReadTimeout.Get(),
		WriteTimeout:      s.cfg.WriteTimeout.Get(),
	}
	srv := s.srv
	s.mu.Unlock()

	s.log.Info("starting http server", logging.String("address", srv.Addr))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return errors.Wrap(err, "http server failed")
	}
	return nil
}

func (s *Server) Stop(ctx context.Context) error {
	s.mu.Lock()
	s.stopped = true
	srv := s.srv
	s.mu.Unlock()
	if srv == nil {
		return nil
	}
	s.log.Info("stopping http server")
	return srv.Shutdown(ctx)
}

func remoteIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
