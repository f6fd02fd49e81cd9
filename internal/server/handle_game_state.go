package server

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/playperu/starhunt/internal/hunt"
	"github.com/playperu/starhunt/internal/starhunt"
)

// RiddleView is a riddle as a player sees it: no accepted answers, plus the
// team's progress on it.
type RiddleView struct {
	Index     int      `json:"index"`
	Subject   string   `json:"subject"`
	Name      string   `json:"name,omitempty"`
	Prompt    string   `json:"prompt"`
	ImageURLs []string `json:"imageUrls,omitempty"`
	Hints     []string `json:"hints,omitempty"`
	Telescope bool     `json:"telescope,omitempty"`
	Solved    bool     `json:"solved"`
	Attempts  int      `json:"attempts"`
	Locked    bool     `json:"locked"`
}

// SectionResponse is the response for POST /api/game/sections/{section}.
type SectionResponse struct {
	Profile starhunt.TeamProfile `json:"profile"`
	Section int                  `json:"section"`
	Riddles []RiddleView         `json:"riddles"`
}

func riddleViews(c *starhunt.Catalog, p starhunt.TeamProfile, section int) []RiddleView {
	riddles := c.Sections[section]
	views := make([]RiddleView, 0, len(riddles))
	for i, rd := range riddles {
		pos := starhunt.Position{Section: section, Index: i}
		global, _ := starhunt.Encode(pos)
		attempts := p.Attempts.Get(pos)
		solved := p.HasSolved(global)
		views = append(views, RiddleView{
			Index:     i,
			Subject:   rd.Subject,
			Name:      rd.Name,
			Prompt:    rd.Prompt,
			ImageURLs: rd.ImageURLs,
			Hints:     rd.Hints,
			Telescope: rd.Telescope,
			Solved:    solved,
			Attempts:  attempts,
			Locked:    !solved && section != starhunt.SectionCount && attempts >= starhunt.MaxAttempts,
		})
	}
	return views
}

func handleGameState(svc *hunt.Service, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		state, err := svc.State(r.Context(), sessionFrom(r).TeamID)
		if err != nil {
			writeServiceError(w, logger, err)
			return
		}
		writeJSON(w, http.StatusOK, state)
	}
}

func handleSelectSection(svc *hunt.Service, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		section, err := strconv.Atoi(chi.URLParam(r, "section"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid section")
			return
		}

		p, err := svc.SelectSection(r.Context(), sessionFrom(r).TeamID, section)
		if err != nil {
			writeServiceError(w, logger, err)
			return
		}

		writeJSON(w, http.StatusOK, SectionResponse{
			Profile: p,
			Section: section,
			Riddles: riddleViews(svc.Catalog(), p, section),
		})
	}
}

func handleConfig(svc *hunt.Service, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		cfg, err := svc.Config(r.Context())
		if err != nil {
			writeServiceError(w, logger, err)
			return
		}
		writeJSON(w, http.StatusOK, cfg)
	}
}
