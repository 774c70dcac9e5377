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
	"strconv"

	"code.vegaprotocol.io/pairbook/core/events"
	"code.vegaprotocol.io/pairbook/core/types"
	"code.vegaprotocol.io/pairbook/libs/num"
	"code.vegaprotocol.io/pairbook/logging"

	"github.com/julienschmidt/httprouter"
	"github.com/pkg/errors"
)

const defaultEventsLimit = 100

type SubmitOrderRequest struct {
	Party  string `json:"party"`
	Side   string `json:"side"`
	Amount string `json:"amount"`
	Price  string `json:"price"`
}

type TransferRequest struct {
	Party  string `json:"party"`
	Asset  string `json:"asset"`
	Amount string `json:"amount"`
}

type OrderResponse struct {
	ID        uint64 `json:"id"`
	Party     string `json:"party"`
	Side      string `json:"side"`
	Price     string `json:"price"`
	Size      string `json:"size"`
	Remaining string `json:"remaining"`
	Status    string `json:"status"`
}

type TradeResponse struct {
	Seq       uint64 `json:"seq"`
	Price     string `json:"price"`
	Size      string `json:"size"`
	Buyer     string `json:"buyer"`
	Seller    string `json:"seller"`
	BuyOrder  uint64 `json:"buy_order"`
	SellOrder uint64 `json:"sell_order"`
	Aggressor string `json:"aggressor"`
}

type ConfirmationResponse struct {
	Order                 OrderResponse   `json:"order"`
	Trades                []TradeResponse `json:"trades"`
	PassiveOrdersAffected []OrderResponse `json:"passive_orders_affected"`
}

type AccountResponse struct {
	Asset            string `json:"asset"`
	Balance          string `json:"balance"`
	Allowance        string `json:"allowance"`
	BalanceDisplay   string `json:"balance_display"`
	AllowanceDisplay string `json:"allowance_display"`
}

type StatsResponse struct {
	BuyOrders  int    `json:"buy_orders"`
	SellOrders int    `json:"sell_orders"`
	Trades     uint64 `json:"trades"`
	LastID     uint64 `json:"last_id"`
}

type SuccessResponse struct {
	Success bool `json:"success"`
}

func orderResponse(o *types.Order) OrderResponse {
	return OrderResponse{
		ID:        o.ID,
		Party:     o.Party,
		Side:      o.Side.String(),
		Price:     num.UintToString(o.Price),
		Size:      num.UintToString(o.Size),
		Remaining: num.UintToString(o.Remaining),
		Status:    o.Status.String(),
	}
}

func ordersResponse(orders []types.Order) []OrderResponse {
	out := make([]OrderResponse, 0, len(orders))
	for i := range orders {
		out = append(out, orderResponse(&orders[i]))
	}
	return out
}

func unmarshalBody(r *http.Request, into interface{}) error {
	defer r.Body.Close()
	if err := json.NewDecoder(r.Body).Decode(into); err != nil {
		return errors.Wrap(ErrInvalidRequest, err.Error())
	}
	return nil
}

func parseAmount(s string, invalid error) (*num.Uint, error) {
	u, failed := num.UintFromString(s, 10)
	if failed || u.IsZero() {
		return nil, errors.Wrapf(invalid, "%q", s)
	}
	return u, nil
}

func (s *Server) SubmitOrder(w http.ResponseWriter, r *http.Request, _ httprouter.Params) int {
	req := SubmitOrderRequest{}
	if err := unmarshalBody(r, &req); err != nil {
		return writeError(w, err)
	}
	side, err := types.SideFromString(req.Side)
	if err != nil {
		return writeError(w, err)
	}
	amount, err := parseAmount(req.Amount, types.ErrInvalidAmount)
	if err != nil {
		return writeError(w, err)
	}
	price, err := parseAmount(req.Price, types.ErrInvalidPrice)
	if err != nil {
		return writeError(w, err)
	}

	conf, err := s.engine.SubmitOrder(r.Context(), &types.OrderSubmission{
		Party: req.Party,
		Side:  side,
		Size:  amount,
		Price: price,
	})
	if err != nil {
		return writeError(w, err)
	}

	resp := ConfirmationResponse{
		Order:                 orderResponse(conf.Order),
		Trades:                make([]TradeResponse, 0, len(conf.Trades)),
		PassiveOrdersAffected: make([]OrderResponse, 0, len(conf.PassiveOrdersAffected)),
	}
	for _, t := range conf.Trades {
		resp.Trades = append(resp.Trades, TradeResponse{
			Seq:       t.Seq,
			Price:     t.Price.String(),
			Size:      t.Size.String(),
			Buyer:     t.Buyer,
			Seller:    t.Seller,
			BuyOrder:  t.BuyOrder,
			SellOrder: t.SellOrder,
			Aggressor: t.Aggressor.String(),
		})
	}
	for _, o := range conf.PassiveOrdersAffected {
		resp.PassiveOrdersAffected = append(resp.PassiveOrdersAffected, orderResponse(o))
	}
	return writeSuccess(w, resp, http.StatusCreated)
}

func orderID(ps httprouter.Params) (uint64, error) {
	id, err := strconv.ParseUint(ps.ByName("id"), 10, 64)
	if err != nil {
		return 0, errors.Wrapf(ErrInvalidRequest, "invalid order id %q", ps.ByName("id"))
	}
	return id, nil
}

func (s *Server) CancelOrder(w http.ResponseWriter, r *http.Request, ps httprouter.Params) int {
	id, err := orderID(ps)
	if err != nil {
		return writeError(w, err)
	}
	o, err := s.engine.CancelOrder(r.Context(), r.URL.Query().Get("party"), id)
	if err != nil {
		return writeError(w, err)
	}
	return writeSuccess(w, orderResponse(o), http.StatusOK)
}

func (s *Server) GetOrder(w http.ResponseWriter, _ *http.Request, ps httprouter.Params) int {
	id, err := orderID(ps)
	if err != nil {
		return writeError(w, err)
	}
	o, err := s.engine.GetOrderByID(id)
	if err != nil {
		return writeError(w, err)
	}
	return writeSuccess(w, orderResponse(o), http.StatusOK)
}

func (s *Server) BuyOrders(w http.ResponseWriter, _ *http.Request, _ httprouter.Params) int {
	return writeSuccess(w, ordersResponse(s.engine.BuyOrders()), http.StatusOK)
}

func (s *Server) SellOrders(w http.ResponseWriter, _ *http.Request, _ httprouter.Params) int {
	return writeSuccess(w, ordersResponse(s.engine.SellOrders()), http.StatusOK)
}

func (s *Server) Stats(w http.ResponseWriter, _ *http.Request, _ httprouter.Params) int {
	st := s.engine.Stats()
	return writeSuccess(w, StatsResponse{
		BuyOrders:  st.BuyOrders,
		SellOrders: st.SellOrders,
		Trades:     st.Trades,
		LastID:     st.LastID,
	}, http.StatusOK)
}

// transfer decodes and rate limits a deposit, withdrawal or approval.
func (s *Server) transfer(r *http.Request, prefix string) (*TransferRequest, *num.Uint, error) {
	if s.limiter != nil {
		if err := s.limiter.NewRequest(prefix, remoteIP(r)); err != nil {
			return nil, nil, err
		}
	}
	req := &TransferRequest{}
	if err := unmarshalBody(r, req); err != nil {
		return nil, nil, err
	}
	if req.Party == "" {
		return nil, nil, types.ErrInvalidParty
	}
	amount, err := parseAmount(req.Amount, types.ErrInvalidAmount)
	if err != nil {
		return nil, nil, err
	}
	return req, amount, nil
}

func (s *Server) Deposit(w http.ResponseWriter, r *http.Request, _ httprouter.Params) int {
	req, amount, err := s.transfer(r, "deposit")
	if err != nil {
		return writeError(w, err)
	}
	if err := s.custody.Deposit(r.Context(), req.Asset, req.Party, amount); err != nil {
		return writeError(w, err)
	}
	s.log.Debug("deposit accepted", logging.PartyID(req.Party), logging.AssetID(req.Asset), logging.String("amount", amount.String()))
	return writeSuccess(w, SuccessResponse{Success: true}, http.StatusOK)
}

func (s *Server) Withdraw(w http.ResponseWriter, r *http.Request, _ httprouter.Params) int {
	req, amount, err := s.transfer(r, "withdrawal")
	if err != nil {
		return writeError(w, err)
	}
	if err := s.custody.Withdraw(r.Context(), req.Asset, req.Party, amount); err != nil {
		return writeError(w, err)
	}
	return writeSuccess(w, SuccessResponse{Success: true}, http.StatusOK)
}

// Approve replaces the allowance, unlike deposits a zero amount is valid and
// revokes it.
func (s *Server) Approve(w http.ResponseWriter, r *http.Request, _ httprouter.Params) int {
	req := TransferRequest{}
	if err := unmarshalBody(r, &req); err != nil {
		return writeError(w, err)
	}
	if req.Party == "" {
		return writeError(w, types.ErrInvalidParty)
	}
	allowance, failed := num.UintFromString(req.Amount, 10)
	if failed {
		return writeError(w, errors.Wrapf(types.ErrInvalidAmount, "%q", req.Amount))
	}
	if err := s.custody.Approve(r.Context(), req.Asset, req.Party, allowance); err != nil {
		return writeError(w, err)
	}
	return writeSuccess(w, SuccessResponse{Success: true}, http.StatusOK)
}

func (s *Server) Accounts(w http.ResponseWriter, _ *http.Request, ps httprouter.Params) int {
	accounts := s.custody.Accounts(ps.ByName("party"))
	out := make([]AccountResponse, 0, len(accounts))
	for _, a := range accounts {
		var dp uint32
		if asset, ok := s.custody.Asset(a.Asset); ok {
			dp = asset.Decimals
		}
		out = append(out, AccountResponse{
			Asset:            a.Asset,
			Balance:          num.UintToString(a.Balance),
			Allowance:        num.UintToString(a.Allowance),
			BalanceDisplay:   num.ToDisplay(a.Balance, dp),
			AllowanceDisplay: num.ToDisplay(a.Allowance, dp),
		})
	}
	return writeSuccess(w, out, http.StatusOK)
}

// Events pages through the journal, from and limit are optional, party
// restricts to the events of the orders of a party.
func (s *Server) Events(w http.ResponseWriter, r *http.Request, _ httprouter.Params) int {
	if s.journal == nil {
		return writeError(w, ErrJournalDisabled)
	}
	q := r.URL.Query()
	var (
		from  uint64
		limit = defaultEventsLimit
		err   error
	)
	if v := q.Get("from"); v != "" {
		if from, err = strconv.ParseUint(v, 10, 64); err != nil {
			return writeError(w, errors.Wrapf(ErrInvalidRequest, "invalid from %q", v))
		}
	}
	if v := q.Get("limit"); v != "" {
		if limit, err = strconv.Atoi(v); err != nil || limit <= 0 {
			return writeError(w, errors.Wrapf(ErrInvalidRequest, "invalid limit %q", v))
		}
	}

	var evts []*events.BusEvent
	if party := q.Get("party"); party != "" {
		evts, err = s.journal.ListByParty(party, from, limit)
	} else {
		evts, err = s.journal.List(from, limit)
	}
	if err != nil {
		s.log.Error("unable to read the journal", logging.Error(err))
		return writeError(w, err)
	}
	return writeSuccess(w, evts, http.StatusOK)
}
