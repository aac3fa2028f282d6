package correlation

import (
	"errors"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/fuelops/correlator/internal/alias"
	"github.com/fuelops/correlator/internal/audit"
	"github.com/fuelops/correlator/internal/config"
	"github.com/fuelops/correlator/internal/fusion"
	"github.com/fuelops/correlator/internal/signal"
)

// Service orchestrates resolution, scoring, fusion and the audited
// correlation lifecycle. Resolution and scoring are pure; the store is
// the only stateful collaborator.
type Service struct {
	resolver *alias.Resolver
	text     *signal.TextScorer
	geo      *signal.GeoScorer
	temporal *signal.TemporalScorer
	fuser    *fusion.Engine
	store    Store
	cfg      *config.Engine
	log      *logrus.Logger
}

// NewService wires the engine components over a store
func NewService(resolver *alias.Resolver, store Store, cfg *config.Engine, log *logrus.Logger) *Service {
	if cfg == nil {
		cfg = config.DefaultEngine()
	}
	if log == nil {
		log = logrus.New()
	}

	return &Service{
		resolver: resolver,
		text:     signal.NewTextScorer(cfg.Text),
		geo:      signal.NewGeoScorer(cfg.Geo),
		temporal: signal.NewTemporalScorer(cfg.Temporal),
		fuser:    fusion.NewEngine(cfg),
		store:    store,
		cfg:      cfg,
		log:      log,
	}
}

// Evaluate scores a trip/payment pair and persists the result as a
// proposed correlation. Re-evaluating an existing proposed pair updates
// it in place; identical inputs leave it untouched (idempotent).
// Evaluating a pair that has already been verified or rejected returns
// ErrInvalidState; the decided record is never mutated by re-scoring.
func (s *Service) Evaluate(trip TripRecord, payment PaymentRecord, actorID string) (*Correlation, error) {
	if err := validatePair(trip, payment, actorID); err != nil {
		return nil, err
	}

	scored := s.scorePair(trip, payment)
	now := time.Now().UTC()

	existing, err := s.store.GetByPair(trip.TripID, payment.PaymentKey, config.AlgorithmVersion)
	switch {
	case errors.Is(err, ErrNotFound):
		scored.CorrelationID = uuid.New()
		scored.CreatedAt = now
		scored.UpdatedAt = now

		entry := audit.ForCreate(scored.CorrelationID, scored.Snapshot(), actorID)
		if err := s.store.Insert(scored, entry); err != nil {
			return nil, err
		}

		s.log.WithFields(logrus.Fields{
			"correlation_id": scored.CorrelationID,
			"trip_id":        trip.TripID,
			"payment_key":    payment.PaymentKey,
			"confidence":     scored.ConfidenceScore,
			"tier":           scored.QualityTier,
		}).Info("correlation proposed")
		return scored, nil

	case err != nil:
		return nil, err
	}

	if existing.Status() != StatusProposed {
		return nil, ErrInvalidState
	}

	// Carry the identity and decision fields, re-score the rest
	scored.CorrelationID = existing.CorrelationID
	scored.VerifiedByUser = existing.VerifiedByUser
	scored.IsActiveMatch = existing.IsActiveMatch
	scored.CreatedAt = existing.CreatedAt
	scored.UpdatedAt = now

	oldSnap := existing.Snapshot()
	newSnap := scored.Snapshot()
	if len(audit.ChangedFields(oldSnap, newSnap)) == 0 {
		return existing, nil
	}

	entry := audit.ForUpdate(scored.CorrelationID, oldSnap, newSnap, actorID)
	if err := s.store.Update(scored, entry); err != nil {
		return nil, err
	}

	s.log.WithFields(logrus.Fields{
		"correlation_id": scored.CorrelationID,
		"confidence":     scored.ConfidenceScore,
	}).Info("correlation re-scored")
	return scored, nil
}

// Candidates scores a trip against each payment without persisting
// anything, ranked by fused confidence descending.
func (s *Service) Candidates(trip TripRecord, payments []PaymentRecord) []*Correlation {
	candidates := make([]*Correlation, 0, len(payments))
	for _, payment := range payments {
		candidates = append(candidates, s.scorePair(trip, payment))
	}

	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].ConfidenceScore != candidates[j].ConfidenceScore {
			return candidates[i].ConfidenceScore > candidates[j].ConfidenceScore
		}
		return candidates[i].PaymentKey < candidates[j].PaymentKey
	})

	return candidates
}

// Verify marks a proposed correlation as user-confirmed. The confidence
// score is untouched.
func (s *Service) Verify(id uuid.UUID, actorID string) (*Correlation, error) {
	if actorID == "" {
		return nil, &ValidationError{Field: "actor_id", Reason: "required"}
	}

	c, err := s.store.GetByID(id)
	if err != nil {
		return nil, err
	}
	if c.Status() != StatusProposed {
		return nil, ErrInvalidState
	}

	oldSnap := c.Snapshot()
	c.VerifiedByUser = true
	c.UpdatedAt = time.Now().UTC()

	entry := audit.ForUpdate(c.CorrelationID, oldSnap, c.Snapshot(), actorID)
	if err := s.store.Update(c, entry); err != nil {
		return nil, err
	}

	s.log.WithFields(logrus.Fields{"correlation_id": id, "actor": actorID}).Info("correlation verified")
	return c, nil
}

// Reject marks a proposed correlation as not-a-match. All scoring data
// is retained.
func (s *Service) Reject(id uuid.UUID, actorID, reason string) (*Correlation, error) {
	if actorID == "" {
		return nil, &ValidationError{Field: "actor_id", Reason: "required"}
	}

	c, err := s.store.GetByID(id)
	if err != nil {
		return nil, err
	}
	if c.Status() != StatusProposed {
		return nil, ErrInvalidState
	}

	oldSnap := c.Snapshot()
	c.IsActiveMatch = false
	c.UpdatedAt = time.Now().UTC()

	entry := audit.ForUpdate(c.CorrelationID, oldSnap, c.Snapshot(), actorID)
	entry.Note = reason

	if err := s.store.Update(c, entry); err != nil {
		return nil, err
	}

	s.log.WithFields(logrus.Fields{"correlation_id": id, "actor": actorID}).Info("correlation rejected")
	return c, nil
}

// Delete removes a correlation. Administrative action only: the deletion
// itself still lands in the audit trail with the pre-delete snapshot.
func (s *Service) Delete(id uuid.UUID, actorID string) error {
	if actorID == "" {
		return &ValidationError{Field: "actor_id", Reason: "required"}
	}

	c, err := s.store.GetByID(id)
	if err != nil {
		return err
	}

	entry := audit.ForDelete(c.CorrelationID, c.Snapshot(), actorID)
	if err := s.store.Delete(id, entry); err != nil {
		return err
	}

	s.log.WithFields(logrus.Fields{"correlation_id": id, "actor": actorID}).Warn("correlation deleted")
	return nil
}

// Get returns one correlation by id
func (s *Service) Get(id uuid.UUID) (*Correlation, error) {
	return s.store.GetByID(id)
}

// List returns correlations matching the filter
func (s *Service) List(filter ListFilter) ([]*Correlation, error) {
	return s.store.List(filter)
}

// AuditTrail returns a correlation's audit entries in chronological
// order, paged
func (s *Service) AuditTrail(id uuid.UUID, limit, offset int) ([]audit.Entry, error) {
	return s.store.AuditTrail(id, limit, offset)
}

// Resolve exposes name resolution to collaborators that canonicalize
// before correlating
func (s *Service) Resolve(text string, kind alias.Kind) alias.Result {
	return s.resolver.Resolve(text, kind)
}

// scorePair runs resolution, the three scorers and fusion for one pair
func (s *Service) scorePair(trip TripRecord, payment PaymentRecord) *Correlation {
	tripIdentity := signal.Identity{
		Business: s.resolver.Resolve(trip.BusinessName, alias.KindBusiness).Canonical(),
		Location: s.resolver.Resolve(trip.LocationName, alias.KindLocation).Canonical(),
		Terminal: s.resolver.Resolve(trip.TerminalName, alias.KindTerminal).Canonical(),
	}
	payIdentity := signal.Identity{
		Business: s.resolver.Resolve(payment.SupplierName, alias.KindBusiness).Canonical(),
		Location: s.resolver.Resolve(payment.DeliveryLocation, alias.KindLocation).Canonical(),
		Terminal: s.resolver.Resolve(payment.TerminalName, alias.KindTerminal).Canonical(),
	}

	textScore, textDetail := s.text.Score(tripIdentity, payIdentity)
	geoScore, withinServiceArea := s.geo.Score(trip.Latitude, trip.Longitude, payment.Latitude, payment.Longitude)
	temporalScore := s.temporal.Score(trip.TripDate, payment.PaymentDate)

	scores := []signal.Score{textScore, geoScore, temporalScore}
	fused := s.fuser.Fuse(scores)

	return &Correlation{
		TripID:                  trip.TripID,
		PaymentKey:              payment.PaymentKey,
		SignalScores:            scores,
		ConfidenceScore:         fused.ConfidenceScore,
		QualityTier:             fused.QualityTier,
		QualityFlags:            fused.QualityFlags,
		BusinessIdentifierMatch: textDetail.BusinessMatch,
		LocationReferenceMatch:  textDetail.LocationMatch,
		WithinServiceArea:       withinServiceArea,
		RequiresManualReview:    fused.RequiresManualReview,
		IsActiveMatch:           true,
		AlgorithmVersion:        config.AlgorithmVersion,
	}
}

func validatePair(trip TripRecord, payment PaymentRecord, actorID string) error {
	if trip.TripID <= 0 {
		return &ValidationError{Field: "trip_id", Reason: "must be positive"}
	}
	if payment.PaymentKey == "" {
		return &ValidationError{Field: "payment_key", Reason: "required"}
	}
	if actorID == "" {
		return &ValidationError{Field: "actor_id", Reason: "required"}
	}
	return nil
}
