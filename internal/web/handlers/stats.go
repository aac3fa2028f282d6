package handlers

import (
	"net/http"

	"github.com/fuelops/correlator/internal/report"
)

// StatsHandler serves the quality report
type StatsHandler struct {
	Reporter *report.Reporter
}

// GetStats returns the dashboard aggregations
func (h *StatsHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	summary, err := h.Reporter.Build()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to build report")
		return
	}

	writeJSON(w, http.StatusOK, summary)
}
