package server

import (
	"log/slog"
	"net/http"

	"github.com/playperu/starhunt/internal/hunt"
	"github.com/playperu/starhunt/internal/starhunt"
)

// AnswerRequest is the request body for POST /api/game/answer.
type AnswerRequest struct {
	Section int    `json:"section"`
	Index   int    `json:"index"`
	Answer  string `json:"answer"`
}

// PointingRequest is the request body for POST /api/game/pointing. Subject
// is the slug of a solved section 1 star; the queued request carries its
// display name.
type PointingRequest struct {
	Subject string `json:"subject"`
}

// PointingResponse is the response for POST /api/game/pointing.
type PointingResponse struct {
	Profile starhunt.TeamProfile         `json:"profile"`
	Request starhunt.VerificationRequest `json:"request"`
}

func handleAnswer(svc *hunt.Service, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req AnswerRequest
		if err := readJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		pos := starhunt.Position{Section: req.Section, Index: req.Index}
		res, err := svc.Submit(r.Context(), sessionFrom(r).TeamID, pos, req.Answer)
		if err != nil {
			writeServiceError(w, logger, err)
			return
		}
		writeJSON(w, http.StatusOK, res)
	}
}

func handlePointing(svc *hunt.Service, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req PointingRequest
		if err := readJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if req.Subject == "" {
			writeError(w, http.StatusBadRequest, "subject is required")
			return
		}

		p, vr, err := svc.RequestPointing(r.Context(), sessionFrom(r).TeamID, req.Subject)
		if err != nil {
			writeServiceError(w, logger, err)
			return
		}
		writeJSON(w, http.StatusCreated, PointingResponse{Profile: p, Request: vr})
	}
}
