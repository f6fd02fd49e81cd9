package server

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/playperu/starhunt/internal/hunt"
	"github.com/playperu/starhunt/internal/starhunt"
	"github.com/playperu/starhunt/internal/store"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func readJSON(r *http.Request, v any) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeServiceError maps a hunt error to a status and a user-facing message.
// Anything unrecognised is logged and reported as an internal error.
func writeServiceError(w http.ResponseWriter, logger *slog.Logger, err error) {
	var v *starhunt.ValidationError
	switch {
	case errors.As(err, &v):
		writeError(w, http.StatusBadRequest, v.Message)
	case errors.Is(err, starhunt.ErrAccessDenied):
		writeError(w, http.StatusUnauthorized, "access denied")
	case errors.Is(err, store.ErrNameTaken):
		writeError(w, http.StatusConflict, "team name already claimed")
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, "not found")
	case errors.Is(err, starhunt.ErrInvalidPosition), errors.Is(err, starhunt.ErrUnknownSubject):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, starhunt.ErrSectionLocked):
		writeError(w, http.StatusForbidden, "section is locked")
	case errors.Is(err, starhunt.ErrSectionUnavailable):
		writeError(w, http.StatusConflict, "section not yet available")
	case errors.Is(err, starhunt.ErrPointingIneligible):
		writeError(w, http.StatusConflict, "solve at least three section 1 stars first")
	case errors.Is(err, starhunt.ErrPointingRequested):
		writeError(w, http.StatusConflict, "pointing already requested")
	case errors.Is(err, starhunt.ErrAlreadyDecided):
		writeError(w, http.StatusConflict, "request already decided")
	case errors.Is(err, hunt.ErrWarningIssued):
		writeError(w, http.StatusConflict, "warning already issued")
	case errors.Is(err, store.ErrConflict):
		writeError(w, http.StatusConflict, "team changed concurrently, retry")
	default:
		logger.Error("request failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}
