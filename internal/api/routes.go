package api

import (
	"net/http"

	"github.com/gorilla/mux"
)

// SetupRoutes configures all API routes. ws serves live sessions and may be
// nil.
func SetupRoutes(handler *Handler, ws http.Handler, corsOrigins []string) http.Handler {
	r := mux.NewRouter()

	// Health check
	r.HandleFunc("/health", handler.HealthCheck).Methods("GET")

	if ws != nil {
		r.Handle("/ws", ws).Methods("GET")
	}

	api := r.PathPrefix("/api/v1").Subrouter()

	// Dashboard routes
	api.HandleFunc("/dashboard", handler.GetDashboard).Methods("GET")
	api.HandleFunc("/views/{slot}", handler.GetView).Methods("GET")

	// Admin routes, proxied to the data service
	api.HandleFunc("/picks", handler.AddPick).Methods("POST")
	api.HandleFunc("/picks/{id}", handler.RemovePick).Methods("DELETE")
	api.HandleFunc("/positions", handler.AddPosition).Methods("POST")
	api.HandleFunc("/positions/{id}", handler.UpdatePosition).Methods("PUT")
	api.HandleFunc("/positions/{id}", handler.RemovePosition).Methods("DELETE")

	return Logging(handler.logger)(CORS(corsOrigins)(r))
}
