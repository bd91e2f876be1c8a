package api

import (
	"github.com/gorilla/mux"
)

// SetupRoutes configures all API routes
func SetupRoutes(handler *Handler) *mux.Router {
	r := mux.NewRouter()

	// Health check
	r.HandleFunc("/health", handler.HealthCheck).Methods("GET")

	// Live market-update stream
	r.HandleFunc("/ws", handler.ServeWS).Methods("GET")

	api := r.PathPrefix("/api/v1").Subrouter()

	// Market data
	api.HandleFunc("/market/{symbol}", handler.GetMarketSnapshot).Methods("GET")

	// Watchlist, alerts and analysis
	api.HandleFunc("/watchlist", handler.GetWatchlist).Methods("GET")
	api.HandleFunc("/watchlist/{symbol}/alert", handler.SetAlert).Methods("POST")
	api.HandleFunc("/watchlist/{symbol}/alert", handler.ClearAlert).Methods("DELETE")
	api.HandleFunc("/watchlist/{symbol}/analyze", handler.AnalyzeSymbol).Methods("POST")

	// Notifications
	api.HandleFunc("/notifications", handler.GetNotifications).Methods("GET")
	api.HandleFunc("/notifications/{id}", handler.DismissNotification).Methods("DELETE")

	// Accounts and mock payments
	api.HandleFunc("/auth/login", handler.Login).Methods("POST")
	api.HandleFunc("/auth/register", handler.Register).Methods("POST")
	api.HandleFunc("/user/subscription", handler.UpdateSubscription).Methods("POST")
	api.HandleFunc("/transactions", handler.RecordTransaction).Methods("POST")
	api.HandleFunc("/transactions/{uid}", handler.GetTransactions).Methods("GET")

	return r
}
