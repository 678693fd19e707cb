/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route
  definitions for the reference settlement server. This is the wiring
  layer that connects URLs to handlers.

MIDDLEWARE STACK:
  1. Logger:     Request logging
  2. Recoverer:  Panic recovery (500 instead of crash)
  3. RequestID:  Unique ID per request for tracing
  4. CORS:       Cross-origin requests for browser clients
  5. auth:       Basic token check, privilege tagging

AUTHENTICATION:
  Every /api route requires "Authorization: Basic <token>". Two tokens
  are configured: the admin token marks the request privileged (it may
  close months that have finished-project timelog entries), the user
  token may do everything else. Any other token is 401.

SEE ALSO:
  - handlers.go: Handler implementations
  - cmd/settlement: Server startup
*/
package api

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// Tokens holds the two accepted credential tokens.
type Tokens struct {
	Admin string
	User  string
}

type ctxKey int

const ctxKeyPrivileged ctxKey = iota

// privilegedFrom reports whether the request authenticated with the
// admin token.
func privilegedFrom(ctx context.Context) bool {
	v, _ := ctx.Value(ctxKeyPrivileged).(bool)
	return v
}

// auth enforces the Basic token and tags the request's privilege.
func auth(tokens Tokens) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Basic ")
			if !ok || token == "" {
				writeError(w, http.StatusUnauthorized, "missing credential", nil)
				return
			}
			switch token {
			case tokens.Admin:
				r = r.WithContext(context.WithValue(r.Context(), ctxKeyPrivileged, true))
			case tokens.User:
				// not privileged
			default:
				writeError(w, http.StatusUnauthorized, "unknown credential", nil)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler, tokens Tokens) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:5173", "http://localhost:8080"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	// API routes
	r.Route("/api", func(r chi.Router) {
		r.Use(auth(tokens))

		// Month close
		r.Post("/checkmonthlystatus", h.CheckMonthlyStatus)
		r.Post("/updatetimelog", h.UpdateTimelog)

		// Monthly figures
		r.Get("/monthlyPayment", h.MonthlyPayment)
		r.Post("/setMonthlyPayment", h.SetMonthlyPayment)
		r.Get("/monthlyPurchaseCost", h.MonthlyPurchaseCost)
		r.Post("/setMonthlyPurchaseCost", h.SetMonthlyPurchaseCost)

		// Timelog maintenance
		r.Delete("/rmtimelogbyid", h.RemoveTimelogByID)
		r.Delete("/rmtimelogbyproject", h.RemoveTimelogByProject)
		r.Post("/resettimelog", h.ResetTimelog)
	})

	return r
}
