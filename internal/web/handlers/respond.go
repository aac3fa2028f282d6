package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/fuelops/correlator/internal/correlation"
)

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// writeServiceError maps the engine's error taxonomy onto HTTP statuses
func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, correlation.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, correlation.ErrInvalidState):
		writeError(w, http.StatusConflict, err.Error())
	case correlation.IsValidation(err):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}
