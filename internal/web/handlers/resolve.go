package handlers

import (
	"net/http"

	"github.com/fuelops/correlator/internal/alias"
	"github.com/fuelops/correlator/internal/correlation"
)

// ResolveHandler exposes name resolution to ingestion pipelines
type ResolveHandler struct {
	Service *correlation.Service
}

// Resolve canonicalizes one free-text name
func (h *ResolveHandler) Resolve(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	text := q.Get("text")
	kind := alias.Kind(q.Get("kind"))

	switch kind {
	case alias.KindBusiness, alias.KindLocation, alias.KindTerminal:
	default:
		writeError(w, http.StatusBadRequest, "kind must be business, location or terminal")
		return
	}

	writeJSON(w, http.StatusOK, h.Service.Resolve(text, kind))
}
