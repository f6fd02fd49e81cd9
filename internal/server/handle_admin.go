package server

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/playperu/starhunt/internal/hunt"
	"github.com/playperu/starhunt/internal/starhunt"
)

// DecisionRequest is the request body for POST /api/admin/requests/{id}/decision.
type DecisionRequest struct {
	Decision starhunt.Decision `json:"decision"`
}

func handleAdminListRequests(svc *hunt.Service, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status := starhunt.Status(r.URL.Query().Get("status"))
		reqs, err := svc.ListRequests(r.Context(), status)
		if err != nil {
			writeServiceError(w, logger, err)
			return
		}
		if reqs == nil {
			reqs = []starhunt.VerificationRequest{}
		}
		writeJSON(w, http.StatusOK, reqs)
	}
}

func handleAdminDecide(svc *hunt.Service, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req DecisionRequest
		if err := readJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		out, err := svc.Decide(r.Context(), chi.URLParam(r, "id"), req.Decision)
		if err != nil {
			writeServiceError(w, logger, err)
			return
		}
		writeJSON(w, http.StatusOK, out)
	}
}

func handleAdminTeams(svc *hunt.Service, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		teams, err := svc.Leaderboard(r.Context())
		if err != nil {
			writeServiceError(w, logger, err)
			return
		}
		if teams == nil {
			teams = []starhunt.TeamProfile{}
		}
		writeJSON(w, http.StatusOK, teams)
	}
}

func handleAdminSetConfig(svc *hunt.Service, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var cfg starhunt.GameConfig
		if err := readJSON(r, &cfg); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		saved, err := svc.SetConfig(r.Context(), cfg)
		if err != nil {
			writeServiceError(w, logger, err)
			return
		}
		writeJSON(w, http.StatusOK, saved)
	}
}
