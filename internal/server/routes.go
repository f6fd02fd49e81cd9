package server

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/swaggest/swgui/v5emb"

	"github.com/playperu/starhunt/internal/handler/health"
	"github.com/playperu/starhunt/internal/metrics"
)

func addRoutes(r chi.Router, logger *slog.Logger, deps Deps) {
	svc := deps.Hunt

	r.Get("/openapi.json", handleOpenAPI())
	r.Mount("/docs", v5emb.New("Starhunt API", "/openapi.json", "/docs"))
	r.Mount("/healthz", health.NewHandler(logger, deps.Checks).Routes())
	if deps.Gatherer != nil {
		r.Method(http.MethodGet, "/metrics", metrics.Handler(deps.Gatherer))
	}

	limit := func(h http.HandlerFunc) http.Handler { return h }
	if deps.LoginRate > 0 {
		limiter := newLoginLimiter(deps.LoginRate, deps.LoginBurst)
		limit = func(h http.HandlerFunc) http.Handler { return limiter.Middleware(h) }
	}

	// Accounts.
	r.Post("/api/register", handleRegister(svc, logger))
	r.Method(http.MethodPost, "/api/login", limit(handleLogin(svc, logger)))
	r.Post("/api/logout", handleLogout(svc))
	r.Post("/api/forgot-password", handleForgotPassword(svc, logger))
	r.Get("/api/config", handleConfig(svc, logger))

	// Live feed; the token may come from the query string.
	r.Get("/api/events", handleEvents(svc, deps.Broker, logger))
	r.Get("/api/events/ws", handleEventsWS(svc, deps.Broker, logger))

	// Player routes.
	r.Route("/api/game", func(r chi.Router) {
		r.Use(authMiddleware(svc, logger))
		r.Get("/state", handleGameState(svc, logger))
		r.Post("/sections/{section}", handleSelectSection(svc, logger))
		r.Post("/answer", handleAnswer(svc, logger))
		r.Post("/pointing", handlePointing(svc, logger))
	})

	r.Route("/api/admin", func(r chi.Router) {
		r.Method(http.MethodPost, "/login", limit(handleAdminLogin(svc, logger)))
		r.Post("/logout", handleAdminLogout(svc))

		r.Group(func(r chi.Router) {
			r.Use(authMiddleware(svc, logger))
			r.Use(requireAdmin)
			r.Get("/me", handleAdminMe())
			r.Get("/requests", handleAdminListRequests(svc, logger))
			r.Post("/requests/{id}/decision", handleAdminDecide(svc, logger))
			r.Get("/teams", handleAdminTeams(svc, logger))
			r.Put("/config", handleAdminSetConfig(svc, logger))
		})
	})
}
