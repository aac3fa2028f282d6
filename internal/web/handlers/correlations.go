package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/fuelops/correlator/internal/correlation"
	"github.com/fuelops/correlator/internal/web/middleware"
)

// CorrelationsHandler exposes the correlation lifecycle
type CorrelationsHandler struct {
	Service            *correlation.Service
	AdminDeleteEnabled bool
}

// EvaluateRequest carries both sides of a candidate pair
type EvaluateRequest struct {
	Trip    correlation.TripRecord    `json:"trip"`
	Payment correlation.PaymentRecord `json:"payment"`
}

// Evaluate scores and persists a proposed correlation
func (h *CorrelationsHandler) Evaluate(w http.ResponseWriter, r *http.Request) {
	actor := middleware.Actor(r)
	if actor == "" {
		writeError(w, http.StatusBadRequest, "X-Actor-ID header required")
		return
	}

	var req EvaluateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	c, err := h.Service.Evaluate(req.Trip, req.Payment, actor)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, c)
}

// Candidates scores one trip against a batch of payments without
// persisting anything
func (h *CorrelationsHandler) Candidates(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Trip     correlation.TripRecord      `json:"trip"`
		Payments []correlation.PaymentRecord `json:"payments"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	writeJSON(w, http.StatusOK, h.Service.Candidates(req.Trip, req.Payments))
}

// List returns correlations matching the query filters
func (h *CorrelationsHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	filter := correlation.ListFilter{
		QualityTier:  q.Get("tier"),
		ReviewOnly:   q.Get("review") == "true",
		ActiveOnly:   q.Get("active") == "true",
		VerifiedOnly: q.Get("verified") == "true",
	}
	filter.Limit, _ = strconv.Atoi(q.Get("limit"))
	filter.Offset, _ = strconv.Atoi(q.Get("offset"))

	results, err := h.Service.List(filter)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, results)
}

// Get returns one correlation
func (h *CorrelationsHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := correlationID(w, r)
	if !ok {
		return
	}

	c, err := h.Service.Get(id)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, c)
}

// Verify confirms a proposed correlation
func (h *CorrelationsHandler) Verify(w http.ResponseWriter, r *http.Request) {
	id, ok := correlationID(w, r)
	if !ok {
		return
	}

	c, err := h.Service.Verify(id, middleware.Actor(r))
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, c)
}

// Reject marks a proposed correlation as not-a-match
func (h *CorrelationsHandler) Reject(w http.ResponseWriter, r *http.Request) {
	id, ok := correlationID(w, r)
	if !ok {
		return
	}

	var body struct {
		Reason string `json:"reason"`
	}
	json.NewDecoder(r.Body).Decode(&body)

	c, err := h.Service.Reject(id, middleware.Actor(r), body.Reason)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, c)
}

// Delete hard-removes a correlation. Admin feature flag gated; the
// deletion still lands in the audit trail.
func (h *CorrelationsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if !h.AdminDeleteEnabled {
		writeError(w, http.StatusForbidden, "admin delete is disabled")
		return
	}

	id, ok := correlationID(w, r)
	if !ok {
		return
	}

	if err := h.Service.Delete(id, middleware.Actor(r)); err != nil {
		writeServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// AuditTrail returns a correlation's audit entries in order
func (h *CorrelationsHandler) AuditTrail(w http.ResponseWriter, r *http.Request) {
	id, ok := correlationID(w, r)
	if !ok {
		return
	}

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))

	entries, err := h.Service.AuditTrail(id, limit, offset)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, entries)
}

func correlationID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid correlation id")
		return uuid.Nil, false
	}
	return id, true
}
