package correlation

import (
	"github.com/google/uuid"

	"github.com/fuelops/correlator/internal/audit"
)

// ListFilter narrows List queries. Zero values mean "no filter".
type ListFilter struct {
	QualityTier  string
	ReviewOnly   bool
	ActiveOnly   bool
	VerifiedOnly bool
	Limit        int
	Offset       int
}

// Store persists correlations and their audit trail. Every mutating
// method takes the audit entry for the mutation and must write both
// atomically: if the audit write fails the mutation fails with it. An
// un-audited mutation is a correctness violation, not a best-effort log.
type Store interface {
	GetByID(id uuid.UUID) (*Correlation, error)
	GetByPair(tripID int64, paymentKey, algorithmVersion string) (*Correlation, error)
	List(filter ListFilter) ([]*Correlation, error)

	Insert(c *Correlation, entry audit.Entry) error
	Update(c *Correlation, entry audit.Entry) error
	Delete(id uuid.UUID, entry audit.Entry) error

	AuditTrail(id uuid.UUID, limit, offset int) ([]audit.Entry, error)
}
