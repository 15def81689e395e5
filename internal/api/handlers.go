package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"

	"github.com/trogers1052/stock-sniper-dashboard/internal/client"
	"github.com/trogers1052/stock-sniper-dashboard/internal/dashboard"
	"github.com/trogers1052/stock-sniper-dashboard/internal/models"
	"github.com/trogers1052/stock-sniper-dashboard/internal/view"
)

// Dashboard is the shared, server-side dashboard
type Dashboard interface {
	Tables() []view.Table
	Table(slot string) (view.Table, error)
	Refresh(resources ...string) int
}

// Mutator forwards admin writes to the data service
type Mutator interface {
	CreatePick(ctx context.Context, p models.NewPick) error
	DeletePick(ctx context.Context, id int) error
	CreatePosition(ctx context.Context, p models.NewPosition) error
	UpdatePosition(ctx context.Context, id int, u models.PositionUpdate) error
	DeletePosition(ctx context.Context, id int) error
}

// EventPublisher announces mutations to other dashboard instances
type EventPublisher interface {
	PublishPickAdded(ctx context.Context, ticker string) error
	PublishPickRemoved(ctx context.Context, id int) error
	PublishPositionAdded(ctx context.Context, ticker string) error
	PublishPositionUpdated(ctx context.Context, id int) error
	PublishPositionRemoved(ctx context.Context, id int) error
}

// Refresher is anything that can refetch resources out of band
type Refresher interface {
	Refresh(resources ...string) int
}

// Handler holds dependencies for HTTP handlers
type Handler struct {
	dash     Dashboard
	svc      Mutator
	producer EventPublisher
	local    []Refresher
	logger   *slog.Logger
}

// NewHandler creates a new Handler. producer may be nil; mutations are then
// refreshed in dash and local directly instead of through Kafka.
func NewHandler(dash Dashboard, svc Mutator, producer EventPublisher, logger *slog.Logger, local ...Refresher) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		dash:     dash,
		svc:      svc,
		producer: producer,
		local:    local,
		logger:   logger,
	}
}

// HealthCheck handles GET /health
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

// GetDashboard handles GET /dashboard
func (h *Handler) GetDashboard(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.dash.Tables())
}

// GetView handles GET /views/{slot}
func (h *Handler) GetView(w http.ResponseWriter, r *http.Request) {
	table, err := h.dash.Table(mux.Vars(r)["slot"])
	if err != nil {
		if errors.Is(err, dashboard.ErrUnknownSlot) {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	respondJSON(w, http.StatusOK, table)
}

// AddPick handles POST /picks
func (h *Handler) AddPick(w http.ResponseWriter, r *http.Request) {
	var req models.NewPick
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	req.Ticker = strings.ToUpper(strings.TrimSpace(req.Ticker))
	if req.Ticker == "" {
		http.Error(w, "ticker is required", http.StatusBadRequest)
		return
	}
	if req.Source == "" {
		req.Source = models.SourceManual
	}
	if req.Source != models.SourceAI && req.Source != models.SourceManual {
		http.Error(w, "source must be AI or Manual", http.StatusBadRequest)
		return
	}

	if err := h.svc.CreatePick(r.Context(), req); err != nil {
		h.upstreamError(w, "create pick", err)
		return
	}

	h.announce(r.Context(), models.EventPickAdded, func(ctx context.Context) error {
		return h.producer.PublishPickAdded(ctx, req.Ticker)
	})

	respondJSON(w, http.StatusCreated, req)
}

// RemovePick handles DELETE /picks/{id}
func (h *Handler) RemovePick(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	if err := h.svc.DeletePick(r.Context(), id); err != nil {
		h.upstreamError(w, "delete pick", err)
		return
	}

	h.announce(r.Context(), models.EventPickRemoved, func(ctx context.Context) error {
		return h.producer.PublishPickRemoved(ctx, id)
	})

	w.WriteHeader(http.StatusNoContent)
}

// AddPosition handles POST /positions
func (h *Handler) AddPosition(w http.ResponseWriter, r *http.Request) {
	var req models.NewPosition
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	req.Ticker = strings.ToUpper(strings.TrimSpace(req.Ticker))
	if req.Ticker == "" {
		http.Error(w, "ticker is required", http.StatusBadRequest)
		return
	}
	if req.EntryPrice.Sign() <= 0 {
		http.Error(w, "entry_price must be positive", http.StatusBadRequest)
		return
	}
	if req.Status == "" {
		req.Status = models.StatusLong
	}
	if !validStatus(req.Status) {
		http.Error(w, "status must be long, short or closed", http.StatusBadRequest)
		return
	}
	if msg := exitPriceMismatch(req.Status, req.ExitPrice.Valid); msg != "" {
		http.Error(w, msg, http.StatusBadRequest)
		return
	}

	if err := h.svc.CreatePosition(r.Context(), req); err != nil {
		h.upstreamError(w, "create position", err)
		return
	}

	h.announce(r.Context(), models.EventPositionAdded, func(ctx context.Context) error {
		return h.producer.PublishPositionAdded(ctx, req.Ticker)
	})

	respondJSON(w, http.StatusCreated, req)
}

// UpdatePosition handles PUT /positions/{id}
func (h *Handler) UpdatePosition(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	var req models.PositionUpdate
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.ExitPrice == nil && req.Status == nil && req.Performance == nil {
		http.Error(w, "nothing to update", http.StatusBadRequest)
		return
	}
	if req.Status != nil {
		if !validStatus(*req.Status) {
			http.Error(w, "status must be long, short or closed", http.StatusBadRequest)
			return
		}
		if msg := exitPriceMismatch(*req.Status, req.ExitPrice != nil); msg != "" {
			http.Error(w, msg, http.StatusBadRequest)
			return
		}
	}

	if err := h.svc.UpdatePosition(r.Context(), id, req); err != nil {
		h.upstreamError(w, "update position", err)
		return
	}

	h.announce(r.Context(), models.EventPositionUpdated, func(ctx context.Context) error {
		return h.producer.PublishPositionUpdated(ctx, id)
	})

	w.WriteHeader(http.StatusNoContent)
}

// RemovePosition handles DELETE /positions/{id}
func (h *Handler) RemovePosition(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	if err := h.svc.DeletePosition(r.Context(), id); err != nil {
		h.upstreamError(w, "delete position", err)
		return
	}

	h.announce(r.Context(), models.EventPositionRemoved, func(ctx context.Context) error {
		return h.producer.PublishPositionRemoved(ctx, id)
	})

	w.WriteHeader(http.StatusNoContent)
}

// announce publishes the event when Kafka is configured. Without Kafka the
// affected views are refreshed in-process. Publish failures are logged and
// never fail the request.
func (h *Handler) announce(ctx context.Context, eventType string, publish func(context.Context) error) {
	if h.producer != nil {
		if err := publish(ctx); err != nil {
			h.logger.Error("api: failed to publish event",
				slog.String("event_type", eventType),
				slog.String("error", err.Error()),
			)
		}
		return
	}

	resources := models.DashboardEvent{EventType: eventType}.Resources()
	h.dash.Refresh(resources...)
	for _, r := range h.local {
		r.Refresh(resources...)
	}
}

// upstreamError maps a data service failure to a response. A 404 from the
// service passes through; everything else is a bad gateway.
func (h *Handler) upstreamError(w http.ResponseWriter, op string, err error) {
	h.logger.Warn("api: data service request failed",
		slog.String("op", op),
		slog.String("error", err.Error()),
	)

	var se *client.StatusError
	if errors.As(err, &se) && se.Code == http.StatusNotFound {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	http.Error(w, "data service unavailable", http.StatusBadGateway)
}

func pathID(w http.ResponseWriter, r *http.Request) (int, bool) {
	id, err := strconv.Atoi(mux.Vars(r)["id"])
	if err != nil || id <= 0 {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return 0, false
	}
	return id, true
}

func validStatus(s string) bool {
	return s == models.StatusLong || s == models.StatusShort || s == models.StatusClosed
}

// exitPriceMismatch returns a message when status and exit price disagree:
// closed positions need an exit price and open ones must not have one
func exitPriceMismatch(status string, hasExit bool) string {
	switch {
	case status == models.StatusClosed && !hasExit:
		return "exit_price is required when closing a position"
	case status != models.StatusClosed && hasExit:
		return "exit_price is only allowed on closed positions"
	}
	return ""
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
