package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
)

// NewRouter constructs a chi router with all API endpoints registered.
// allowedOrigins feeds the CORS policy; nil allows any origin.
func NewRouter(svc Ledger, allowedOrigins []string) http.Handler {
	if len(allowedOrigins) == 0 {
		allowedOrigins = []string{"*"}
	}

	h := NewHandler(svc)
	r := chi.NewRouter()

	r.Use(RequestID)
	r.Use(Logging)
	r.Use(Recovery)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", requestIDHeader},
		ExposedHeaders: []string{requestIDHeader},
		MaxAge:         300,
	}))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Get("/store", h.StoreHandler)
	r.Get("/leaderboard", h.LeaderboardHandler)

	r.Route("/accounts/{accountId}", func(r chi.Router) {
		r.Get("/balance", h.GetBalanceHandler)
		r.Get("/inventory", h.InventoryHandler)
		r.Post("/work", h.WorkHandler)
		r.Post("/daily", h.DailyHandler)
		r.Post("/gamble", h.GambleHandler)
		r.Post("/rps", h.RPSHandler)
		r.Post("/buy", h.BuyHandler)
	})

	return r
}
