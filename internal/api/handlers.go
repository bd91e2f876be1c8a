package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"

	"github.com/aurasignal/signal-dashboard/internal/analysis"
	"github.com/aurasignal/signal-dashboard/internal/auth"
	"github.com/aurasignal/signal-dashboard/internal/cache"
	"github.com/aurasignal/signal-dashboard/internal/engine"
	"github.com/aurasignal/signal-dashboard/internal/models"
	"github.com/aurasignal/signal-dashboard/internal/notify"
)

// Handler holds dependencies for HTTP handlers
type Handler struct {
	engine *engine.Engine
	auth   auth.Store
	cache  *cache.SnapshotCache
	hub    *hub
	logger *slog.Logger
}

// NewHandler creates a new Handler and attaches the websocket hub to the
// engine's event streams. snapCache may be nil when Redis is not configured.
func NewHandler(eng *engine.Engine, authStore auth.Store, snapCache *cache.SnapshotCache, logger *slog.Logger) *Handler {
	h := &Handler{
		engine: eng,
		auth:   authStore,
		cache:  snapCache,
		hub:    newHub(logger),
		logger: logger,
	}
	go h.hub.run()
	eng.Subscribe(func(batch models.TickBatch) {
		h.hub.broadcast <- marshalWS("market-update", batch)
	})
	eng.AddNotificationSink(notify.SinkFunc(func(notifications []models.Notification) error {
		h.hub.broadcast <- marshalWS("notification", notifications)
		return nil
	}))
	return h
}

// HealthCheck handles GET /health
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

// GetWatchlist handles GET /watchlist
func (h *Handler) GetWatchlist(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.engine.Watchlist())
}

// GetMarketSnapshot handles GET /market/{symbol}
func (h *Handler) GetMarketSnapshot(w http.ResponseWriter, r *http.Request) {
	symbol := mux.Vars(r)["symbol"]

	if snap, ok := h.engine.Snapshot(symbol); ok {
		respondJSON(w, http.StatusOK, snap)
		return
	}
	if h.cache != nil {
		snap, ok, err := h.cache.GetSnapshot(r.Context(), symbol)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		if ok {
			respondJSON(w, http.StatusOK, snap)
			return
		}
	}
	http.Error(w, "unknown symbol", http.StatusNotFound)
}

// SetAlert handles POST /watchlist/{symbol}/alert
func (h *Handler) SetAlert(w http.ResponseWriter, r *http.Request) {
	symbol := mux.Vars(r)["symbol"]

	var req struct {
		TargetPrice *float64 `json:"target_price"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	// Non-numeric or missing targets never reach the store.
	if req.TargetPrice == nil {
		http.Error(w, "target_price is required", http.StatusBadRequest)
		return
	}

	if !h.engine.SetAlert(symbol, *req.TargetPrice) {
		http.Error(w, "no market data for symbol yet", http.StatusConflict)
		return
	}
	entry, _ := h.engine.Entry(symbol)
	respondJSON(w, http.StatusCreated, entry)
}

// ClearAlert handles DELETE /watchlist/{symbol}/alert
func (h *Handler) ClearAlert(w http.ResponseWriter, r *http.Request) {
	h.engine.ClearAlert(mux.Vars(r)["symbol"])
	w.WriteHeader(http.StatusNoContent)
}

// AnalyzeSymbol handles POST /watchlist/{symbol}/analyze
func (h *Handler) AnalyzeSymbol(w http.ResponseWriter, r *http.Request) {
	symbol := mux.Vars(r)["symbol"]

	err := h.engine.RequestAnalysis(r.Context(), symbol)
	if errors.Is(err, analysis.ErrQuotaExceeded) {
		http.Error(w, "analysis quota exceeded, retry after cooldown", http.StatusTooManyRequests)
		return
	}
	if err != nil {
		http.Error(w, "analysis failed, try again later", http.StatusBadGateway)
		return
	}
	entry, ok := h.engine.Entry(symbol)
	if !ok {
		http.Error(w, "unknown symbol", http.StatusNotFound)
		return
	}
	respondJSON(w, http.StatusOK, entry)
}

// GetNotifications handles GET /notifications
func (h *Handler) GetNotifications(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.engine.Notifications())
}

// DismissNotification handles DELETE /notifications/{id}
func (h *Handler) DismissNotification(w http.ResponseWriter, r *http.Request) {
	h.engine.DismissNotification(mux.Vars(r)["id"])
	w.WriteHeader(http.StatusNoContent)
}

// Login handles POST /auth/login
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	user, err := h.auth.Login(r.Context(), req.Email, req.Password)
	if errors.Is(err, auth.ErrInvalidCredentials) {
		http.Error(w, "invalid credentials", http.StatusUnauthorized)
		return
	}
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	respondJSON(w, http.StatusOK, user)
}

// Register handles POST /auth/register
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email       string `json:"email"`
		Password    string `json:"password"`
		PhoneNumber string `json:"phone_number"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.Email == "" || req.Password == "" {
		http.Error(w, "email and password are required", http.StatusBadRequest)
		return
	}

	user, err := h.auth.Register(r.Context(), req.Email, req.Password, req.PhoneNumber)
	if errors.Is(err, auth.ErrUserExists) {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	respondJSON(w, http.StatusCreated, user)
}

// UpdateSubscription handles POST /user/subscription
func (h *Handler) UpdateSubscription(w http.ResponseWriter, r *http.Request) {
	var req struct {
		UID  string `json:"uid"`
		Plan string `json:"plan"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.Plan != models.PlanFree && req.Plan != models.PlanPro {
		http.Error(w, "unknown plan", http.StatusBadRequest)
		return
	}

	err := h.auth.UpdatePlan(r.Context(), req.UID, req.Plan)
	if errors.Is(err, auth.ErrUserNotFound) {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"success": true, "plan": req.Plan})
}

// RecordTransaction handles POST /transactions
func (h *Handler) RecordTransaction(w http.ResponseWriter, r *http.Request) {
	var req struct {
		UID      string          `json:"uid"`
		Amount   decimal.Decimal `json:"amount"`
		Currency string          `json:"currency"`
		Method   string          `json:"method"`
		Metadata map[string]any  `json:"metadata"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.UID == "" || req.Currency == "" || req.Method == "" {
		http.Error(w, "uid, currency and method are required", http.StatusBadRequest)
		return
	}

	tx := &models.Transaction{
		UserID:   req.UID,
		Amount:   req.Amount,
		Currency: req.Currency,
		Method:   req.Method,
		Metadata: req.Metadata,
	}
	err := h.auth.RecordTransaction(r.Context(), tx)
	if errors.Is(err, auth.ErrUserNotFound) {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	respondJSON(w, http.StatusCreated, map[string]string{"id": tx.ID})
}

// GetTransactions handles GET /transactions/{uid}
func (h *Handler) GetTransactions(w http.ResponseWriter, r *http.Request) {
	txs, err := h.auth.ListTransactions(r.Context(), mux.Vars(r)["uid"])
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if txs == nil {
		txs = []*models.Transaction{}
	}
	respondJSON(w, http.StatusOK, txs)
}

// ServeWS handles GET /ws
func (h *Handler) ServeWS(w http.ResponseWriter, r *http.Request) {
	h.hub.serveWS(w, r)
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
