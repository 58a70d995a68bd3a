package http

import (
	"crypto/subtle"
	"log/slog"
	"net/http"
	"strings"

	applog "cardcycle/internal/log"
	"cardcycle/internal/services"
)

type rollResponse struct {
	Summary services.RollSummary  `json:"summary"`
	Results []services.RollResult `json:"results"`
}

// authorizedCron checks the bearer token in constant time.
func (s *Server) authorizedCron(r *http.Request) bool {
	token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
	if !ok || token == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(token), []byte(s.cronSecret)) == 1
}

// handleRollStatements triggers one roll-over pass for an external
// scheduler. Authentication happens before anything is read.
func (s *Server) handleRollStatements(w http.ResponseWriter, r *http.Request) {
	if s.cronSecret == "" {
		slog.WarnContext(r.Context(), "Cron endpoint called but CRON_SECRET is not configured",
			applog.FieldComponent, applog.ComponentCron)
		ErrorResponse(r, http.StatusServiceUnavailable, "cron endpoint disabled").Write(w)
		return
	}
	if !s.authorizedCron(r) {
		slog.WarnContext(r.Context(), "Unauthorized cron request",
			applog.FieldComponent, applog.ComponentCron,
			applog.FieldClientIP, s.detector.ExtractClientIP(r))
		UnauthorizedError(r).Write(w)
		return
	}

	results, err := s.roller.Run(r.Context())
	if err != nil {
		writeServiceError(w, r, applog.OpRoll, err)
		return
	}
	if results == nil {
		results = []services.RollResult{}
	}

	NewJSONResponse().JSON(rollResponse{
		Summary: services.Summarize(results),
		Results: results,
	}).Write(w)
}
