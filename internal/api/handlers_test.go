package api

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aurasignal/signal-dashboard/internal/auth"
	"github.com/aurasignal/signal-dashboard/internal/engine"
	"github.com/aurasignal/signal-dashboard/internal/models"
	"github.com/aurasignal/signal-dashboard/internal/simulator"
	"github.com/aurasignal/signal-dashboard/internal/watchlist"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type testServer struct {
	engine *engine.Engine
	router *mux.Router
}

// newTestServer runs a fast-ticking engine so handlers observe live data.
func newTestServer(t *testing.T) *testServer {
	t.Helper()

	eng := engine.New(engine.Options{
		Instruments: []simulator.Instrument{
			{Symbol: "NVDA", Name: "NVIDIA Corp", Category: models.CategoryStock, InitialPrice: 875.50},
			{Symbol: "BTC-USD", Name: "Bitcoin", Category: models.CategoryCrypto, InitialPrice: 50000.00},
		},
		TickInterval: 5 * time.Millisecond,
		Logger:       testLogger(),
	})
	eng.Start()
	t.Cleanup(eng.Stop)

	require.Eventually(t, func() bool {
		entry, ok := eng.Entry("NVDA")
		return ok && entry.Snapshot != nil
	}, 2*time.Second, 5*time.Millisecond, "engine never produced a tick")

	handler := NewHandler(eng, auth.NewMemoryStore(), nil, testLogger())
	return &testServer{engine: eng, router: SetupRoutes(handler)}
}

func (ts *testServer) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	rec := httptest.NewRecorder()
	ts.router.ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&out))
	return out
}

func TestHealthCheck(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody[map[string]string](t, rec)
	assert.Equal(t, "healthy", body["status"])
}

func TestGetWatchlist(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodGet, "/api/v1/watchlist", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	entries := decodeBody[[]watchlist.Entry](t, rec)
	require.Len(t, entries, 2)
	assert.Equal(t, "NVDA", entries[0].Symbol)
	require.NotNil(t, entries[0].Snapshot)
	assert.Len(t, entries[0].Snapshot.History, models.HistoryLength)
}

func TestGetMarketSnapshot(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodGet, "/api/v1/market/NVDA", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	snap := decodeBody[models.Snapshot](t, rec)
	assert.Equal(t, "NVDA", snap.Symbol)
	assert.Greater(t, snap.Price, 0.0)

	rec = ts.do(t, http.MethodGet, "/api/v1/market/UNKNOWN", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAlertEndpoints(t *testing.T) {
	ts := newTestServer(t)

	t.Run("missing target is rejected", func(t *testing.T) {
		rec := ts.do(t, http.MethodPost, "/api/v1/watchlist/NVDA/alert", map[string]any{})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("set and clear", func(t *testing.T) {
		rec := ts.do(t, http.MethodPost, "/api/v1/watchlist/NVDA/alert",
			map[string]any{"target_price": 1000.0})
		require.Equal(t, http.StatusCreated, rec.Code)

		entry := decodeBody[watchlist.Entry](t, rec)
		require.NotNil(t, entry.Alert)
		assert.Equal(t, 1000.0, entry.Alert.TargetPrice)
		assert.Equal(t, models.ConditionAbove, entry.Alert.Condition)

		rec = ts.do(t, http.MethodDelete, "/api/v1/watchlist/NVDA/alert", nil)
		assert.Equal(t, http.StatusNoContent, rec.Code)

		got, ok := ts.engine.Entry("NVDA")
		require.True(t, ok)
		assert.Nil(t, got.Alert)
	})

	t.Run("unknown symbol conflicts", func(t *testing.T) {
		rec := ts.do(t, http.MethodPost, "/api/v1/watchlist/UNKNOWN/alert",
			map[string]any{"target_price": 10.0})
		assert.Equal(t, http.StatusConflict, rec.Code)
	})
}

func TestNotificationEndpoints(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodGet, "/api/v1/notifications", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decodeBody[[]models.Notification](t, rec))

	// An alert far below the simulated range never fires; one just below the
	// live price fires within a few ticks.
	entry, ok := ts.engine.Entry("NVDA")
	require.True(t, ok)
	require.NotNil(t, entry.Snapshot)
	require.True(t, ts.engine.SetAlert("NVDA", entry.Snapshot.Price*0.999))

	require.Eventually(t, func() bool {
		return len(ts.engine.Notifications()) == 1
	}, 5*time.Second, 10*time.Millisecond)

	rec = ts.do(t, http.MethodGet, "/api/v1/notifications", nil)
	notifications := decodeBody[[]models.Notification](t, rec)
	require.Len(t, notifications, 1)
	assert.Equal(t, "Price Alert: NVDA", notifications[0].Title)

	rec = ts.do(t, http.MethodDelete, "/api/v1/notifications/"+notifications[0].ID, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Empty(t, ts.engine.Notifications())
}

func TestAnalyzeWithoutAnalyzerReturnsEntry(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodPost, "/api/v1/watchlist/NVDA/analyze", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	entry := decodeBody[watchlist.Entry](t, rec)
	assert.Equal(t, "NVDA", entry.Symbol)
	assert.Nil(t, entry.Analysis)
}

func TestAuthEndpoints(t *testing.T) {
	ts := newTestServer(t)

	register := func(t *testing.T) map[string]any {
		rec := ts.do(t, http.MethodPost, "/api/v1/auth/register", map[string]string{
			"email":    "trader@example.com",
			"password": "hunter22",
		})
		require.Equal(t, http.StatusCreated, rec.Code)
		return decodeBody[map[string]any](t, rec)
	}

	t.Run("register then login", func(t *testing.T) {
		user := register(t)
		assert.NotEmpty(t, user["uid"])
		assert.Equal(t, models.PlanFree, user["subscription_plan"])

		rec := ts.do(t, http.MethodPost, "/api/v1/auth/login", map[string]string{
			"email":    "trader@example.com",
			"password": "hunter22",
		})
		require.Equal(t, http.StatusOK, rec.Code)

		rec = ts.do(t, http.MethodPost, "/api/v1/auth/login", map[string]string{
			"email":    "trader@example.com",
			"password": "wrong",
		})
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("duplicate registration", func(t *testing.T) {
		rec := ts.do(t, http.MethodPost, "/api/v1/auth/register", map[string]string{
			"email":    "trader@example.com",
			"password": "other",
		})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("missing credentials", func(t *testing.T) {
		rec := ts.do(t, http.MethodPost, "/api/v1/auth/register", map[string]string{
			"email": "only@example.com",
		})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestSubscriptionAndTransactions(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodPost, "/api/v1/auth/register", map[string]string{
		"email":    "payer@example.com",
		"password": "pw",
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	uid := decodeBody[map[string]any](t, rec)["uid"].(string)

	t.Run("upgrade plan", func(t *testing.T) {
		rec := ts.do(t, http.MethodPost, "/api/v1/user/subscription", map[string]string{
			"uid":  uid,
			"plan": models.PlanPro,
		})
		require.Equal(t, http.StatusOK, rec.Code)
		body := decodeBody[map[string]any](t, rec)
		assert.Equal(t, true, body["success"])
		assert.Equal(t, models.PlanPro, body["plan"])
	})

	t.Run("unknown plan is rejected", func(t *testing.T) {
		rec := ts.do(t, http.MethodPost, "/api/v1/user/subscription", map[string]string{
			"uid":  uid,
			"plan": "PLATINUM",
		})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("unknown uid is 404", func(t *testing.T) {
		rec := ts.do(t, http.MethodPost, "/api/v1/user/subscription", map[string]string{
			"uid":  "no-such-uid",
			"plan": models.PlanPro,
		})
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("record and list transactions", func(t *testing.T) {
		rec := ts.do(t, http.MethodPost, "/api/v1/transactions", map[string]any{
			"uid":      uid,
			"amount":   "19.99",
			"currency": "USD",
			"method":   "card",
			"metadata": map[string]any{"plan": "PRO"},
		})
		require.Equal(t, http.StatusCreated, rec.Code)
		assert.NotEmpty(t, decodeBody[map[string]string](t, rec)["id"])

		rec = ts.do(t, http.MethodGet, "/api/v1/transactions/"+uid, nil)
		require.Equal(t, http.StatusOK, rec.Code)
		txs := decodeBody[[]models.Transaction](t, rec)
		require.Len(t, txs, 1)
		assert.Equal(t, "USD", txs[0].Currency)
	})

	t.Run("empty history is an empty list", func(t *testing.T) {
		rec := ts.do(t, http.MethodGet, "/api/v1/transactions/no-such-uid", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "[]\n", rec.Body.String())
	})
}
