// Package journal provides the HTTP handlers and business logic for
// recording positions, marking and closing them, and querying portfolio
// and performance state.
//
// All monetary values use shopspring/decimal — never float64 for money.
package journal

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/jsgonzalez9/options/internal/analytics"
	"github.com/jsgonzalez9/options/internal/bsm"
	"github.com/jsgonzalez9/options/internal/metrics"
	"github.com/jsgonzalez9/options/internal/model"
	"github.com/jsgonzalez9/options/internal/occ"
	"github.com/jsgonzalez9/options/internal/pnl"
	"github.com/jsgonzalez9/options/internal/portfolio"
	"github.com/jsgonzalez9/options/internal/prices"
	"github.com/jsgonzalez9/options/internal/risk"
	"github.com/jsgonzalez9/options/internal/spread"
	"github.com/jsgonzalez9/options/internal/store"
)

// Service handles journal operations. Uses a mutex to serialize cash
// read-modify-write (single-instance). For horizontal scaling, replace
// with database-level locking.
type Service struct {
	store       store.Store
	agg         *risk.Aggregator
	defaultVol  float64
	defaultRate float64
	mu          sync.Mutex
	wsHub       *WSHub // optional WebSocket hub for real-time broadcasts
}

// NewService creates a new journal service. The quote source feeds the
// position delta aggregator; pass nil for hub if WebSocket broadcasting
// is not needed.
func NewService(st store.Store, source prices.Source, hub *WSHub) *Service {
	return &Service{
		store:       st,
		agg:         risk.NewAggregator(meteredSource{source}, slog.Default()),
		defaultVol:  risk.DefaultVolatility,
		defaultRate: risk.DefaultRiskFreeRate,
		wsHub:       hub,
	}
}

// SetModelDefaults overrides the volatility and risk-free rate applied
// when a request carries no explicit values.
func (s *Service) SetModelDefaults(vol, rate float64) {
	s.defaultVol = vol
	s.defaultRate = rate
}

// meteredSource wraps a quote source and counts failed lookups.
type meteredSource struct {
	src prices.Source
}

func (m meteredSource) Price(ctx context.Context, symbol string) (decimal.Decimal, error) {
	if m.src == nil {
		metrics.QuoteLookupFailures.Inc()
		return decimal.Zero, prices.ErrNoQuote
	}
	price, err := m.src.Price(ctx, symbol)
	if err != nil {
		metrics.QuoteLookupFailures.Inc()
	}
	return price, err
}

// --- Request/Response types ---

// LegRequest is the JSON shape of one leg in creation requests. Symbol
// is an optional compact OCC option symbol; when present it supplies
// kind, strike, and expiry, and its root must match the position's
// underlying.
type LegRequest struct {
	Symbol     string          `json:"symbol,omitempty"`
	Kind       string          `json:"kind"` // CALL, PUT, or STOCK
	Strike     decimal.Decimal `json:"strike"`
	Expiry     time.Time       `json:"expiry"`
	Quantity   int64           `json:"quantity"` // positive = long, negative = short
	EntryPrice decimal.Decimal `json:"entry_price"`
}

// buildLegs converts leg requests into model legs, resolving OCC
// symbols against the position's underlying.
func buildLegs(positionID, underlying string, reqs []LegRequest, now time.Time) ([]model.Leg, error) {
	legs := make([]model.Leg, 0, len(reqs))
	for _, lr := range reqs {
		leg := model.Leg{
			ID:         uuid.New().String(),
			PositionID: positionID,
			Kind:       lr.Kind,
			Strike:     lr.Strike,
			Expiry:     lr.Expiry,
			Quantity:   lr.Quantity,
			EntryPrice: lr.EntryPrice,
			EntryDate:  now,
		}
		if lr.Symbol != "" {
			opt, err := occ.Parse(lr.Symbol)
			if err != nil {
				return nil, err
			}
			if opt.Underlying != underlying {
				return nil, fmt.Errorf("leg symbol %s does not match underlying %s", lr.Symbol, underlying)
			}
			leg.Kind = opt.Kind
			leg.Strike = opt.Strike
			leg.Expiry = opt.Expiry
		}
		legs = append(legs, leg)
	}
	return legs, nil
}

// CreatePositionRequest is the JSON body for POST /positions.
type CreatePositionRequest struct {
	UnderlyingSymbol string       `json:"underlying_symbol"`
	Strategy         string       `json:"strategy"`
	Notes            string       `json:"notes"`
	Legs             []LegRequest `json:"legs"`

	// Stock positions carry a share count and per-share entry price
	// instead of option legs.
	IsStock       bool            `json:"is_stock"`
	StockQuantity int64           `json:"stock_quantity"`
	EntryPrice    decimal.Decimal `json:"entry_price"`
}

// CloseRequest is the JSON body for close/roll/expire. ClosingPrice is
// the position-level net closing credit; omit it to realize P&L from
// per-leg closing prices instead.
type CloseRequest struct {
	ClosingPrice *decimal.Decimal `json:"closing_price,omitempty"`
}

// CloseResponse reports the realized P&L booked on close. Complete is
// false when leg-level realization had to skip legs without a recorded
// closing price.
type CloseResponse struct {
	Position    *model.Position `json:"position"`
	RealizedPnL decimal.Decimal `json:"realized_pnl"`
	Complete    bool            `json:"complete"`
}

// UpdateLegRequest is the JSON body for PUT /positions/{id}/legs/{legID}.
type UpdateLegRequest struct {
	CurrentPrice *decimal.Decimal `json:"current_price,omitempty"`
	ClosingPrice *decimal.Decimal `json:"closing_price,omitempty"`
}

// NotesRequest is the JSON body for PUT /positions/{id}/notes.
type NotesRequest struct {
	Notes string `json:"notes"`
}

// CashRequest is the JSON body for deposit/withdraw.
type CashRequest struct {
	Amount decimal.Decimal `json:"amount"`
}

// GreeksRequest is the JSON body for POST /greeks. Volatility and
// RiskFreeRate fall back to the model defaults when omitted.
type GreeksRequest struct {
	Kind            string   `json:"kind"`
	UnderlyingPrice float64  `json:"underlying_price"`
	Strike          float64  `json:"strike"`
	TimeToExpiry    float64  `json:"time_to_expiry_years"`
	RiskFreeRate    *float64 `json:"risk_free_rate,omitempty"`
	Volatility      *float64 `json:"volatility,omitempty"`
}

// GreeksResponse carries the theoretical price and all sensitivities.
type GreeksResponse struct {
	Price  float64    `json:"price"`
	Greeks bsm.Greeks `json:"greeks"`
}

// DeltaResponse is the position delta aggregation result.
type DeltaResponse struct {
	PositionID string  `json:"position_id"`
	Delta      float64 `json:"delta"`
}

// --- HTTP Handlers ---

// CreatePosition handles POST /api/v1/positions
func (s *Service) CreatePosition(w http.ResponseWriter, r *http.Request) {
	var req CreatePositionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	if req.UnderlyingSymbol == "" {
		writeError(w, "underlying_symbol is required", http.StatusBadRequest)
		return
	}

	now := time.Now().UTC()
	p := &model.Position{
		ID:               uuid.New().String(),
		UnderlyingSymbol: req.UnderlyingSymbol,
		Strategy:         req.Strategy,
		Status:           model.StatusOpen,
		Notes:            req.Notes,
		EntryDate:        now,
	}

	if req.IsStock {
		if req.StockQuantity <= 0 {
			writeError(w, "stock_quantity must be positive", http.StatusBadRequest)
			return
		}
		if !req.EntryPrice.IsPositive() {
			writeError(w, "entry_price must be positive", http.StatusBadRequest)
			return
		}
		p.IsStock = true
		p.StockQuantity = req.StockQuantity
		p.Legs = []model.Leg{{
			ID:         uuid.New().String(),
			PositionID: p.ID,
			Kind:       model.KindStock,
			Quantity:   req.StockQuantity,
			EntryPrice: req.EntryPrice,
			EntryDate:  now,
		}}
		p.CostBasis = pnl.StockCostBasis(req.StockQuantity, req.EntryPrice)
	} else {
		if len(req.Legs) == 0 {
			writeError(w, "at least one leg is required", http.StatusBadRequest)
			return
		}

		legs, err := buildLegs(p.ID, req.UnderlyingSymbol, req.Legs, now)
		if err != nil {
			writeError(w, err.Error(), http.StatusBadRequest)
			return
		}

		if ok, reason := spread.Validate(req.Strategy, legs); !ok {
			metrics.ValidationRejections.WithLabelValues(req.Strategy).Inc()
			writeError(w, reason, http.StatusUnprocessableEntity)
			return
		}

		p.Legs = legs
		p.CostBasis = pnl.CostBasis(legs)
	}

	ctx := r.Context()
	if err := s.store.CreatePosition(ctx, p); err != nil {
		writeError(w, err.Error(), http.StatusConflict)
		return
	}

	metrics.PositionsCreated.WithLabelValues(p.Strategy).Inc()
	metrics.OpenPositions.Inc()

	slog.Info("position created",
		"id", p.ID,
		"symbol", p.UnderlyingSymbol,
		"strategy", p.Strategy,
		"legs", len(p.Legs),
		"cost_basis", p.CostBasis.String(),
	)

	if s.wsHub != nil {
		s.wsHub.Broadcast(WSMessage{
			Type:             "position_created",
			PositionID:       p.ID,
			UnderlyingSymbol: p.UnderlyingSymbol,
			Strategy:         p.Strategy,
			Status:           p.Status,
		})
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(p)
}

// GetPosition handles GET /api/v1/positions/{positionID}
// Unrealized P&L is recomputed from current leg prices on every read.
func (s *Service) GetPosition(w http.ResponseWriter, r *http.Request) {
	positionID := chi.URLParam(r, "positionID")

	p, err := s.store.GetPosition(r.Context(), positionID)
	if err != nil {
		writeError(w, "position not found", http.StatusNotFound)
		return
	}
	p.UnrealizedPnL = pnl.UnrealizedForPosition(p)

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(p)
}

// ListPositions handles GET /api/v1/positions
// Optionally filtered by ?status=OPEN|CLOSED|ROLLED|EXPIRED.
func (s *Service) ListPositions(w http.ResponseWriter, r *http.Request) {
	positions, err := s.store.ListPositions(r.Context(), r.URL.Query().Get("status"))
	if err != nil {
		writeError(w, "failed to list positions", http.StatusInternalServerError)
		return
	}
	if positions == nil {
		positions = []model.Position{}
	}
	for i := range positions {
		positions[i].UnrealizedPnL = pnl.UnrealizedForPosition(&positions[i])
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(positions)
}

// ClosePosition handles POST /api/v1/positions/{positionID}/close
func (s *Service) ClosePosition(w http.ResponseWriter, r *http.Request) {
	s.terminalize(w, r, model.StatusClosed)
}

// RollPosition handles POST /api/v1/positions/{positionID}/roll
func (s *Service) RollPosition(w http.ResponseWriter, r *http.Request) {
	s.terminalize(w, r, model.StatusRolled)
}

// ExpirePosition handles POST /api/v1/positions/{positionID}/expire
func (s *Service) ExpirePosition(w http.ResponseWriter, r *http.Request) {
	s.terminalize(w, r, model.StatusExpired)
}

// terminalize moves a position to a terminal status and books realized
// P&L, preferring the position-level closing price over per-leg prices.
func (s *Service) terminalize(w http.ResponseWriter, r *http.Request, status string) {
	positionID := chi.URLParam(r, "positionID")

	var req CloseRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, "invalid request body", http.StatusBadRequest)
			return
		}
	}

	ctx := r.Context()
	p, err := s.store.GetPosition(ctx, positionID)
	if err != nil {
		writeError(w, "position not found", http.StatusNotFound)
		return
	}
	if p.Terminal() {
		writeError(w, "position is already "+p.Status, http.StatusConflict)
		return
	}

	if req.ClosingPrice != nil {
		p.ClosingPrice = req.ClosingPrice
	}

	realized, complete := pnl.RealizedForPosition(p)
	p.RealizedPnL = realized
	p.UnrealizedPnL = decimal.Zero
	p.Status = status

	if err := s.store.UpdatePosition(ctx, p); err != nil {
		writeError(w, "failed to update position", http.StatusInternalServerError)
		return
	}

	metrics.PositionsClosed.WithLabelValues(status).Inc()
	metrics.OpenPositions.Dec()

	slog.Info("position closed",
		"id", p.ID,
		"status", status,
		"realized_pnl", realized.String(),
		"complete", complete,
	)

	if s.wsHub != nil {
		s.wsHub.Broadcast(WSMessage{
			Type:             "position_closed",
			PositionID:       p.ID,
			UnderlyingSymbol: p.UnderlyingSymbol,
			Strategy:         p.Strategy,
			Status:           status,
			RealizedPnL:      realized.String(),
		})
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(CloseResponse{
		Position:    p,
		RealizedPnL: realized,
		Complete:    complete,
	})
}

// ReopenPosition handles POST /api/v1/positions/{positionID}/reopen
// Reverses a close: status back to OPEN, realized P&L and the
// position-level closing price cleared. Unrealized P&L stays zero
// until the next leg price update recomputes it.
func (s *Service) ReopenPosition(w http.ResponseWriter, r *http.Request) {
	positionID := chi.URLParam(r, "positionID")
	ctx := r.Context()

	p, err := s.store.GetPosition(ctx, positionID)
	if err != nil {
		writeError(w, "position not found", http.StatusNotFound)
		return
	}
	if !p.Terminal() {
		writeError(w, "position is not closed", http.StatusConflict)
		return
	}

	p.Status = model.StatusOpen
	p.ClosingPrice = nil
	p.RealizedPnL = decimal.Zero
	p.UnrealizedPnL = decimal.Zero

	if err := s.store.UpdatePosition(ctx, p); err != nil {
		writeError(w, "failed to update position", http.StatusInternalServerError)
		return
	}

	metrics.OpenPositions.Inc()

	slog.Info("position reopened", "id", p.ID)

	if s.wsHub != nil {
		s.wsHub.Broadcast(WSMessage{
			Type:             "position_reopened",
			PositionID:       p.ID,
			UnderlyingSymbol: p.UnderlyingSymbol,
			Status:           p.Status,
		})
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(p)
}

// AddLegs handles POST /api/v1/positions/{positionID}/legs
// Appends legs (e.g. an adjustment or a roll) and recomputes cost basis.
func (s *Service) AddLegs(w http.ResponseWriter, r *http.Request) {
	positionID := chi.URLParam(r, "positionID")

	var reqs []LegRequest
	if err := json.NewDecoder(r.Body).Decode(&reqs); err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if len(reqs) == 0 {
		writeError(w, "at least one leg is required", http.StatusBadRequest)
		return
	}

	ctx := r.Context()
	p, err := s.store.GetPosition(ctx, positionID)
	if err != nil {
		writeError(w, "position not found", http.StatusNotFound)
		return
	}
	if p.Terminal() {
		writeError(w, "cannot add legs to a "+p.Status+" position", http.StatusConflict)
		return
	}

	legs, err := buildLegs(positionID, p.UnderlyingSymbol, reqs, time.Now().UTC())
	if err != nil {
		writeError(w, err.Error(), http.StatusBadRequest)
		return
	}

	if err := s.store.AddLegs(ctx, positionID, legs); err != nil {
		writeError(w, "failed to add legs", http.StatusInternalServerError)
		return
	}

	p, err = s.store.GetPosition(ctx, positionID)
	if err != nil {
		writeError(w, "failed to reload position", http.StatusInternalServerError)
		return
	}
	p.CostBasis = pnl.CostBasis(p.Legs)
	p.UnrealizedPnL = pnl.UnrealizedForPosition(p)

	if err := s.store.UpdatePosition(ctx, p); err != nil {
		writeError(w, "failed to update position", http.StatusInternalServerError)
		return
	}

	slog.Info("legs added", "id", p.ID, "count", len(legs), "cost_basis", p.CostBasis.String())

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(p)
}

// UpdateLeg handles PUT /api/v1/positions/{positionID}/legs/{legID}
// Records a mark (current price) and/or a per-leg closing price, then
// recomputes the position's unrealized P&L.
func (s *Service) UpdateLeg(w http.ResponseWriter, r *http.Request) {
	positionID := chi.URLParam(r, "positionID")
	legID := chi.URLParam(r, "legID")

	var req UpdateLegRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.CurrentPrice == nil && req.ClosingPrice == nil {
		writeError(w, "current_price or closing_price is required", http.StatusBadRequest)
		return
	}

	ctx := r.Context()
	p, err := s.store.GetPosition(ctx, positionID)
	if err != nil {
		writeError(w, "position not found", http.StatusNotFound)
		return
	}

	var leg *model.Leg
	for i := range p.Legs {
		if p.Legs[i].ID == legID {
			leg = &p.Legs[i]
			break
		}
	}
	if leg == nil {
		writeError(w, "leg not found", http.StatusNotFound)
		return
	}

	if req.CurrentPrice != nil {
		leg.CurrentPrice = req.CurrentPrice
	}
	if req.ClosingPrice != nil {
		leg.ClosingPrice = req.ClosingPrice
	}

	if err := s.store.UpdateLeg(ctx, leg); err != nil {
		writeError(w, "failed to update leg", http.StatusInternalServerError)
		return
	}

	p.UnrealizedPnL = pnl.UnrealizedForPosition(p)
	if err := s.store.UpdatePosition(ctx, p); err != nil {
		writeError(w, "failed to update position", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(p)
}

// UpdateLegPrices handles PUT /api/v1/positions/{positionID}/leg_prices
// Marks several legs in one call. The body maps leg ID to the new
// current price; unrealized P&L is recomputed once after all marks.
func (s *Service) UpdateLegPrices(w http.ResponseWriter, r *http.Request) {
	positionID := chi.URLParam(r, "positionID")

	var marks map[string]decimal.Decimal
	if err := json.NewDecoder(r.Body).Decode(&marks); err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if len(marks) == 0 {
		writeError(w, "at least one leg price is required", http.StatusBadRequest)
		return
	}

	ctx := r.Context()
	p, err := s.store.GetPosition(ctx, positionID)
	if err != nil {
		writeError(w, "position not found", http.StatusNotFound)
		return
	}

	legsByID := make(map[string]*model.Leg, len(p.Legs))
	for i := range p.Legs {
		legsByID[p.Legs[i].ID] = &p.Legs[i]
	}

	for legID, price := range marks {
		leg, ok := legsByID[legID]
		if !ok {
			writeError(w, "leg "+legID+" not found", http.StatusNotFound)
			return
		}
		mark := price
		leg.CurrentPrice = &mark
		if err := s.store.UpdateLeg(ctx, leg); err != nil {
			writeError(w, "failed to update leg", http.StatusInternalServerError)
			return
		}
	}

	p.UnrealizedPnL = pnl.UnrealizedForPosition(p)
	if err := s.store.UpdatePosition(ctx, p); err != nil {
		writeError(w, "failed to update position", http.StatusInternalServerError)
		return
	}

	slog.Info("leg prices updated", "id", p.ID, "legs", len(marks),
		"unrealized_pnl", p.UnrealizedPnL.String())

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(p)
}

// UpdateNotes handles PUT /api/v1/positions/{positionID}/notes
func (s *Service) UpdateNotes(w http.ResponseWriter, r *http.Request) {
	positionID := chi.URLParam(r, "positionID")

	var req NotesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	ctx := r.Context()
	p, err := s.store.GetPosition(ctx, positionID)
	if err != nil {
		writeError(w, "position not found", http.StatusNotFound)
		return
	}

	p.Notes = req.Notes
	if err := s.store.UpdatePosition(ctx, p); err != nil {
		writeError(w, "failed to update position", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(p)
}

// DeletePosition handles DELETE /api/v1/positions/{positionID}
func (s *Service) DeletePosition(w http.ResponseWriter, r *http.Request) {
	positionID := chi.URLParam(r, "positionID")
	ctx := r.Context()

	p, err := s.store.GetPosition(ctx, positionID)
	if err != nil {
		writeError(w, "position not found", http.StatusNotFound)
		return
	}

	if err := s.store.DeletePosition(ctx, positionID); err != nil {
		writeError(w, "failed to delete position", http.StatusInternalServerError)
		return
	}

	if p.Status == model.StatusOpen {
		metrics.OpenPositions.Dec()
	}

	slog.Info("position deleted", "id", positionID)

	w.WriteHeader(http.StatusNoContent)
}

// PositionDelta handles GET /api/v1/positions/{positionID}/delta
// Optional query parameters: volatility, risk_free_rate, and price (a
// spot override for the position's underlying).
func (s *Service) PositionDelta(w http.ResponseWriter, r *http.Request) {
	positionID := chi.URLParam(r, "positionID")
	ctx := r.Context()

	p, err := s.store.GetPosition(ctx, positionID)
	if err != nil {
		writeError(w, "position not found", http.StatusNotFound)
		return
	}

	params := risk.Params{Volatility: &s.defaultVol, RiskFreeRate: &s.defaultRate}
	q := r.URL.Query()
	if raw := q.Get("volatility"); raw != "" {
		vol, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			writeError(w, "invalid volatility", http.StatusBadRequest)
			return
		}
		params.Volatility = &vol
	}
	if raw := q.Get("risk_free_rate"); raw != "" {
		rate, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			writeError(w, "invalid risk_free_rate", http.StatusBadRequest)
			return
		}
		params.RiskFreeRate = &rate
	}
	if raw := q.Get("price"); raw != "" {
		price, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			writeError(w, "invalid price", http.StatusBadRequest)
			return
		}
		params.Prices = map[string]float64{p.UnderlyingSymbol: price}
	}

	delta, err := s.agg.PositionDelta(ctx, p, params)
	if err != nil {
		writeError(w, err.Error(), http.StatusUnprocessableEntity)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(DeltaResponse{PositionID: p.ID, Delta: delta})
}

// ComputeGreeks handles POST /api/v1/greeks
// Pure model computation; nothing is stored.
func (s *Service) ComputeGreeks(w http.ResponseWriter, r *http.Request) {
	var req GreeksRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	vol := s.defaultVol
	if req.Volatility != nil {
		vol = *req.Volatility
	}
	rate := s.defaultRate
	if req.RiskFreeRate != nil {
		rate = *req.RiskFreeRate
	}

	price, err := bsm.Price(req.Kind, req.UnderlyingPrice, req.Strike, req.TimeToExpiry, rate, vol)
	if err != nil {
		writeError(w, err.Error(), http.StatusBadRequest)
		return
	}
	greeks, err := bsm.Compute(req.Kind, req.UnderlyingPrice, req.Strike, req.TimeToExpiry, rate, vol)
	if err != nil {
		writeError(w, err.Error(), http.StatusBadRequest)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(GreeksResponse{Price: price, Greeks: greeks})
}

// GetSummary handles GET /api/v1/portfolio/summary
// Recomputed on demand from positions and the cash balance.
func (s *Service) GetSummary(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	positions, err := s.store.ListPositions(ctx, "")
	if err != nil {
		writeError(w, "failed to load positions", http.StatusInternalServerError)
		return
	}
	for i := range positions {
		positions[i].UnrealizedPnL = pnl.UnrealizedForPosition(&positions[i])
	}

	cash, err := s.store.CashBalance(ctx)
	if err != nil {
		writeError(w, "failed to load cash balance", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(portfolio.Summarize(positions, cash))
}

// Deposit handles POST /api/v1/portfolio/deposit
func (s *Service) Deposit(w http.ResponseWriter, r *http.Request) {
	s.adjustCash(w, r, portfolio.Deposit)
}

// Withdraw handles POST /api/v1/portfolio/withdraw
func (s *Service) Withdraw(w http.ResponseWriter, r *http.Request) {
	s.adjustCash(w, r, portfolio.Withdraw)
}

func (s *Service) adjustCash(w http.ResponseWriter, r *http.Request, apply func(balance, amount decimal.Decimal) (decimal.Decimal, error)) {
	var req CashRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	ctx := r.Context()

	// Serialize the read-modify-write on the single balance.
	s.mu.Lock()
	defer s.mu.Unlock()

	balance, err := s.store.CashBalance(ctx)
	if err != nil {
		writeError(w, "failed to load cash balance", http.StatusInternalServerError)
		return
	}

	updated, err := apply(balance, req.Amount)
	switch {
	case errors.Is(err, portfolio.ErrNonPositiveAmount):
		writeError(w, err.Error(), http.StatusBadRequest)
		return
	case errors.Is(err, portfolio.ErrOverdraft):
		writeError(w, err.Error(), http.StatusConflict)
		return
	case err != nil:
		writeError(w, "failed to update cash balance", http.StatusInternalServerError)
		return
	}

	if err := s.store.SetCashBalance(ctx, updated); err != nil {
		writeError(w, "failed to update cash balance", http.StatusInternalServerError)
		return
	}

	slog.Info("cash balance updated",
		"amount", req.Amount.String(),
		"balance", updated.String(),
	)

	if s.wsHub != nil {
		s.wsHub.Broadcast(WSMessage{
			Type:        "cash_updated",
			CashBalance: updated.String(),
		})
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]decimal.Decimal{"cash_balance": updated})
}

// GetReport handles GET /api/v1/analytics/report
// Trade statistics over the realized P&L of CLOSED positions.
func (s *Service) GetReport(w http.ResponseWriter, r *http.Request) {
	pnls, err := s.store.RealizedPnLs(r.Context())
	if err != nil {
		writeError(w, "failed to load realized P&L", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(analytics.Summarize(pnls))
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, message string, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}
