package server

import (
	"log/slog"
	"net/http"

	"github.com/playperu/starhunt/internal/hunt"
	"github.com/playperu/starhunt/internal/starhunt"
)

// AdminLoginRequest is the request body for POST /api/admin/login.
type AdminLoginRequest struct {
	Pin string `json:"pin"`
}

// AdminMeResponse is the response for GET /api/admin/me.
type AdminMeResponse struct {
	ID   string        `json:"id"`
	Name string        `json:"name"`
	Role starhunt.Role `json:"role"`
}

func handleAdminLogin(svc *hunt.Service, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req AdminLoginRequest
		if err := readJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if req.Pin == "" {
			writeError(w, http.StatusBadRequest, "pin is required")
			return
		}

		login, err := svc.AdminLogin(r.Context(), req.Pin)
		if err != nil {
			writeServiceError(w, logger, err)
			return
		}

		setAdminCookie(w, login.Token)
		writeJSON(w, http.StatusOK, login)
	}
}

func handleAdminMe() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess := sessionFrom(r)
		writeJSON(w, http.StatusOK, AdminMeResponse{
			ID:   sess.TeamID,
			Name: hunt.AdminName,
			Role: sess.Role,
		})
	}
}
