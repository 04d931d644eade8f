package handlers

import (
	"net/http"

	"github.com/check-vero/apiserver/internal/services"
	"github.com/go-chi/chi/v5"
)

// StatsHandler serves the role-shaped dashboard statistics.
type StatsHandler struct {
	statsService *services.StatsService
}

func NewStatsHandler(statsService *services.StatsService) *StatsHandler {
	return &StatsHandler{statsService: statsService}
}

// StatsRouter registers stats routes on the given router.
func StatsRouter(r chi.Router, statsService *services.StatsService, authMiddleware func(http.Handler) http.Handler) {
	handler := NewStatsHandler(statsService)

	r.With(authMiddleware).Get("/stats/dashboard", handler.Dashboard)
}

// Dashboard returns statistics shaped for the caller's role.
func (h *StatsHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	claims, err := claimsFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "Invalid authentication credentials")
		return
	}

	stats, err := h.statsService.Dashboard(r.Context(), claims.UserID, claims.Role)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load stats")
		return
	}
	writeJSON(w, http.StatusOK, stats)
}
