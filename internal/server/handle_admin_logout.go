package server

import (
	"net/http"

	"github.com/playperu/starhunt/internal/hunt"
)

func handleAdminLogout(svc *hunt.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if token := sessionToken(r); token != "" {
			svc.Logout(r.Context(), token)
		}

		clearAdminCookie(w)
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}
