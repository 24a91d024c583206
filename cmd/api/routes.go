package main

import (
	"context"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/affiliateops/backend/internal/handlers"
)

// RegisterPublicRoutes adds the unauthenticated endpoints: network postbacks and
// the health check.
func RegisterPublicRoutes(mux *http.ServeMux, webhook *handlers.WebhookHandler, pool *pgxpool.Pool) {
	// Networks call back with GET (query string) or POST (JSON or form body).
	mux.HandleFunc("GET /api/v1/webhooks/conversions", webhook.ReceiveConversion)
	mux.HandleFunc("POST /api/v1/webhooks/conversions", webhook.ReceiveConversion)
	mux.HandleFunc("GET /api/v1/webhooks/conversions/{network}", webhook.ReceiveConversion)
	mux.HandleFunc("POST /api/v1/webhooks/conversions/{network}", webhook.ReceiveConversion)

	mux.HandleFunc("GET /healthz", healthz(pool))
}

func healthz(pool *pgxpool.Pool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := pool.Ping(ctx); err != nil {
			http.Error(w, `{"status":"unavailable"}`, http.StatusServiceUnavailable)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	}
}
