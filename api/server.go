/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
  1. RequestID:      Request id (incoming X-Request-Id kept)
  2. RealIP:         Client address from proxy headers
  3. ContextLogger:  Scoped zap logger, id echoed, one line per request
  4. Recoverer:      Panic recovery (500 instead of crash)
  5. CORS:           Cross-origin requests for frontend
  Protected groups add:
  6. Authenticate:   Bearer JWT -> leave.Caller
  7. RateLimit:      Token bucket per caller

ROUTE GROUPS:
  /api/health              Liveness (public)
  /api/me, /api/my-*       Caller's own data
  /api/leave-requests/*    Leave requests
  /api/admin/*             Users, entitlements, audit
  /api/admin/scenarios     Demo data loaders (development only)

Role checks are not done here. Every route reaches leave.Service, which
consults the access policy, so the router only establishes who is calling.

SEE ALSO:
  - handlers.go: Handler implementations
  - middleware.go: Authentication, logging, rate limiting
  - scenarios.go: Demo data loaders
  - cmd/server/main.go: Server startup
*/
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// RouterConfig carries the collaborators the router needs besides handlers.
type RouterConfig struct {
	Tokens      TokenVerifier
	Logger      *zap.Logger
	CORSOrigins []string
	RateLimit   rate.Limit
	RateBurst   int
	// Scenarios mounts the demo data loaders under /api/admin/scenarios.
	Scenarios bool
}

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler, cfg RouterConfig) *chi.Mux {
	if cfg.Logger == nil {
		cfg.Logger = zap.L()
	}
	if cfg.RateLimit <= 0 {
		cfg.RateLimit = 10
	}
	if cfg.RateBurst <= 0 {
		cfg.RateBurst = 20
	}
	limiter := NewKeyedRateLimiter(cfg.RateLimit, cfg.RateBurst)

	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(ContextLogger(cfg.Logger.Named("http")))
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", requestIDHeader},
		ExposedHeaders:   []string{requestIDHeader},
		AllowCredentials: true,
	}))

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeFailure(w, http.StatusNotFound, "Route Not Found", nil)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeFailure(w, http.StatusMethodNotAllowed, "Method Not Allowed", nil)
	})

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", h.Health)

		r.Group(func(r chi.Router) {
			r.Use(Authenticate(cfg.Tokens))
			r.Use(RateLimitByCaller(limiter))

			r.Get("/me", h.Me)
			r.Get("/my-leave-quota", h.MyQuota)

			r.Route("/leave-requests", func(r chi.Router) {
				r.Get("/", h.ListLeaveRequests)
				r.Post("/", h.CreateLeaveRequest)
				r.Get("/{id}", h.GetLeaveRequest)
				r.Patch("/{id}/cancel", h.CancelLeaveRequest)
				r.Patch("/{id}/decide", h.DecideLeaveRequest)
			})

			r.Route("/admin", func(r chi.Router) {
				r.Route("/users", func(r chi.Router) {
					r.Get("/", h.ListUsers)
					r.Post("/", h.CreateUser)
					r.Get("/{id}", h.GetUser)
					r.Get("/{id}/leave-quota", h.UserQuota)
				})
				r.Route("/leave-entitlements", func(r chi.Router) {
					r.Get("/", h.ListEntitlements)
					r.Post("/", h.CreateEntitlement)
					r.Get("/{id}", h.GetEntitlement)
					r.Put("/{id}", h.UpdateEntitlement)
				})
				r.Get("/audit", h.ListAudit)

				if cfg.Scenarios {
					r.Get("/scenarios", h.ListScenarios)
					r.Post("/scenarios/load", h.LoadScenario)
				}
			})
		})
	})

	return r
}
