package correlation

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/fuelops/correlator/internal/audit"
	"github.com/fuelops/correlator/internal/signal"
)

// Lifecycle states, derived from the mutable decision fields
const (
	StatusProposed = "proposed"
	StatusVerified = "verified"
	StatusRejected = "rejected"
)

// TripRecord is the vehicle-trip side of a candidate link. Coordinates
// and dates are optional; the scorers treat missing data as neutral.
type TripRecord struct {
	TripID       int64            `json:"trip_id"`
	VehicleRego  string           `json:"vehicle_rego"`
	BusinessName string           `json:"business_name"`
	LocationName string           `json:"location_name"`
	TerminalName string           `json:"terminal_name"`
	Latitude     *float64         `json:"latitude,omitempty"`
	Longitude    *float64         `json:"longitude,omitempty"`
	TripDate     *time.Time       `json:"trip_date,omitempty"`
	LitresLoaded *decimal.Decimal `json:"litres_loaded,omitempty"`
}

// PaymentRecord is the fuel-delivery payment side of a candidate link
type PaymentRecord struct {
	PaymentKey       string           `json:"payment_key"`
	SupplierName     string           `json:"supplier_name"`
	DeliveryLocation string           `json:"delivery_location"`
	TerminalName     string           `json:"terminal_name"`
	Latitude         *float64         `json:"latitude,omitempty"`
	Longitude        *float64         `json:"longitude,omitempty"`
	PaymentDate      *time.Time       `json:"payment_date,omitempty"`
	Amount           *decimal.Decimal `json:"amount,omitempty"`
	LitresDelivered  *decimal.Decimal `json:"litres_delivered,omitempty"`
}

// Correlation is one candidate link between a trip and a payment record,
// with every scorer output retained alongside the fused result.
type Correlation struct {
	CorrelationID uuid.UUID      `json:"correlation_id"`
	TripID        int64          `json:"trip_id"`
	PaymentKey    string         `json:"payment_key"`
	SignalScores  []signal.Score `json:"signal_scores"`

	ConfidenceScore int      `json:"confidence_score"`
	QualityTier     string   `json:"quality_tier"`
	QualityFlags    []string `json:"quality_flags"`

	BusinessIdentifierMatch bool `json:"business_identifier_match"`
	LocationReferenceMatch  bool `json:"location_reference_match"`
	WithinServiceArea       bool `json:"within_service_area"`
	RequiresManualReview    bool `json:"requires_manual_review"`

	// Decision state, set only by explicit user action, never by re-scoring
	VerifiedByUser bool `json:"verified_by_user"`
	IsActiveMatch  bool `json:"is_active_match"`

	// Immutable once set
	AlgorithmVersion string `json:"algorithm_version"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Status derives the lifecycle state. Verify and reject both require the
// proposed state, so the two decision fields are mutually exclusive.
func (c *Correlation) Status() string {
	switch {
	case c.VerifiedByUser:
		return StatusVerified
	case !c.IsActiveMatch:
		return StatusRejected
	default:
		return StatusProposed
	}
}

// Snapshot returns the full row image of every tracked field, the unit
// the audit logger diffs and stores.
func (c *Correlation) Snapshot() audit.Snapshot {
	scores := make([]signal.Score, len(c.SignalScores))
	copy(scores, c.SignalScores)

	flags := make([]string, len(c.QualityFlags))
	copy(flags, c.QualityFlags)

	return audit.Snapshot{
		"trip_id":                   c.TripID,
		"payment_key":               c.PaymentKey,
		"signal_scores":             scores,
		"confidence_score":          c.ConfidenceScore,
		"quality_tier":              c.QualityTier,
		"quality_flags":             flags,
		"business_identifier_match": c.BusinessIdentifierMatch,
		"location_reference_match":  c.LocationReferenceMatch,
		"within_service_area":       c.WithinServiceArea,
		"requires_manual_review":    c.RequiresManualReview,
		"verified_by_user":          c.VerifiedByUser,
		"is_active_match":           c.IsActiveMatch,
		"algorithm_version":         c.AlgorithmVersion,
	}
}
