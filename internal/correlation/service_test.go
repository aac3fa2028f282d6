package correlation

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/fuelops/correlator/internal/alias"
	"github.com/fuelops/correlator/internal/audit"
	"github.com/fuelops/correlator/internal/config"
)

// memStore is an in-memory Store for exercising the service lifecycle.
// Mutations append their audit entry under the same failure domain as
// the row write, mirroring the transactional contract.
type memStore struct {
	rows       map[uuid.UUID]*Correlation
	trail      map[uuid.UUID][]audit.Entry
	failWrites bool
}

func newMemStore() *memStore {
	return &memStore{
		rows:  make(map[uuid.UUID]*Correlation),
		trail: make(map[uuid.UUID][]audit.Entry),
	}
}

func (m *memStore) GetByID(id uuid.UUID) (*Correlation, error) {
	c, ok := m.rows[id]
	if !ok {
		return nil, ErrNotFound
	}
	clone := *c
	return &clone, nil
}

func (m *memStore) GetByPair(tripID int64, paymentKey, algorithmVersion string) (*Correlation, error) {
	for _, c := range m.rows {
		if c.TripID == tripID && c.PaymentKey == paymentKey && c.AlgorithmVersion == algorithmVersion {
			clone := *c
			return &clone, nil
		}
	}
	return nil, ErrNotFound
}

func (m *memStore) List(filter ListFilter) ([]*Correlation, error) {
	var out []*Correlation
	for _, c := range m.rows {
		clone := *c
		out = append(out, &clone)
	}
	return out, nil
}

func (m *memStore) Insert(c *Correlation, entry audit.Entry) error {
	if m.failWrites {
		return fmt.Errorf("audit write failed, rolling back mutation: %w", errors.New("disk full"))
	}
	clone := *c
	m.rows[c.CorrelationID] = &clone
	m.trail[c.CorrelationID] = append(m.trail[c.CorrelationID], entry)
	return nil
}

func (m *memStore) Update(c *Correlation, entry audit.Entry) error {
	if m.failWrites {
		return fmt.Errorf("audit write failed, rolling back mutation: %w", errors.New("disk full"))
	}
	if _, ok := m.rows[c.CorrelationID]; !ok {
		return ErrNotFound
	}
	clone := *c
	m.rows[c.CorrelationID] = &clone
	m.trail[c.CorrelationID] = append(m.trail[c.CorrelationID], entry)
	return nil
}

func (m *memStore) Delete(id uuid.UUID, entry audit.Entry) error {
	if _, ok := m.rows[id]; !ok {
		return ErrNotFound
	}
	delete(m.rows, id)
	m.trail[id] = append(m.trail[id], entry)
	return nil
}

func (m *memStore) AuditTrail(id uuid.UUID, limit, offset int) ([]audit.Entry, error) {
	return m.trail[id], nil
}

func testService(t *testing.T, store Store) *Service {
	t.Helper()

	catalog, err := alias.NewCatalog([]alias.Entry{
		{Kind: alias.KindBusiness, CanonicalID: "KCGM", AliasText: "KCGM FIMISTON EX KALGOORLIE", ConfidenceBoost: 20},
		{Kind: alias.KindBusiness, CanonicalID: "KCGM", AliasText: "KALGOORLIE CONSOLIDATED GOLD MINES", ConfidenceBoost: 25},
		{Kind: alias.KindTerminal, CanonicalID: "KAL-T1", AliasText: "KALGOORLIE FUEL TERMINAL", ConfidenceBoost: 15},
	}, nil)
	if err != nil {
		t.Fatalf("NewCatalog() error = %v", err)
	}

	cfg := config.DefaultEngine()
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)

	return NewService(alias.NewResolver(catalog, cfg), store, cfg, log)
}

func f64(v float64) *float64 { return &v }

func date(y int, m time.Month, d int) *time.Time {
	t := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	return &t
}

func scenarioPair() (TripRecord, PaymentRecord) {
	trip := TripRecord{
		TripID:       4401,
		VehicleRego:  "1GQG667",
		BusinessName: "KCGM FIMISTON EX KALGOORLIE",
		TerminalName: "KALGOORLIE FUEL TERMINAL",
		Latitude:     f64(-30.7489),
		Longitude:    f64(121.4658),
		TripDate:     date(2026, time.March, 4),
	}
	payment := PaymentRecord{
		PaymentKey:       "FUELCO|INV-88213|2026-03-05",
		SupplierName:     "KALGOORLIE CONSOLIDATED GOLD MINES",
		TerminalName:     "KALGOORLIE FUEL TERMINAL",
		Latitude:         f64(-30.7561),
		Longitude:        f64(121.4797),
		PaymentDate:      date(2026, time.March, 5),
	}
	return trip, payment
}

func TestEvaluateCreatesProposedCorrelation(t *testing.T) {
	store := newMemStore()
	svc := testService(t, store)
	trip, payment := scenarioPair()

	c, err := svc.Evaluate(trip, payment, "batch-1")
	if err != nil {
		t.Fatalf("Evaluate() error = %v", err)
	}

	// text 40 (same canonical business) + geo 30 (within radius) + temporal 25 (1 day)
	if c.ConfidenceScore != 95 {
		t.Errorf("confidence = %d, want 95", c.ConfidenceScore)
	}
	if c.QualityTier != "excellent" {
		t.Errorf("tier = %q, want excellent", c.QualityTier)
	}
	if c.RequiresManualReview {
		t.Error("review = true, want false")
	}
	if len(c.QualityFlags) != 0 {
		t.Errorf("flags = %v, want none", c.QualityFlags)
	}
	if !c.BusinessIdentifierMatch || !c.WithinServiceArea {
		t.Errorf("derived booleans = %v/%v, want true/true", c.BusinessIdentifierMatch, c.WithinServiceArea)
	}
	if c.Status() != StatusProposed {
		t.Errorf("status = %q, want proposed", c.Status())
	}

	trail, _ := store.AuditTrail(c.CorrelationID, 0, 0)
	if len(trail) != 1 || trail[0].Action != audit.ActionCreated {
		t.Fatalf("trail = %+v, want one created entry", trail)
	}
	if trail[0].OldValues != nil || trail[0].ConfidenceDelta != nil {
		t.Error("created entry must have no old values and nil delta")
	}
}

func TestEvaluateIsIdempotent(t *testing.T) {
	store := newMemStore()
	svc := testService(t, store)
	trip, payment := scenarioPair()

	first, err := svc.Evaluate(trip, payment, "batch-1")
	if err != nil {
		t.Fatalf("first Evaluate() error = %v", err)
	}
	second, err := svc.Evaluate(trip, payment, "batch-2")
	if err != nil {
		t.Fatalf("second Evaluate() error = %v", err)
	}

	if first.CorrelationID != second.CorrelationID {
		t.Error("identical inputs must hit the same correlation")
	}
	if second.ConfidenceScore != first.ConfidenceScore || second.QualityTier != first.QualityTier {
		t.Error("identical inputs must produce identical fused results")
	}

	trail, _ := store.AuditTrail(first.CorrelationID, 0, 0)
	if len(trail) != 1 {
		t.Errorf("unchanged re-evaluation wrote %d audit entries, want 1", len(trail))
	}
}

func TestEvaluateRescoresProposedInPlace(t *testing.T) {
	store := newMemStore()
	svc := testService(t, store)
	trip, payment := scenarioPair()

	first, err := svc.Evaluate(trip, payment, "batch-1")
	if err != nil {
		t.Fatalf("Evaluate() error = %v", err)
	}

	// New data arrives: the payment date moves to the trip day
	payment.PaymentDate = date(2026, time.March, 4)
	second, err := svc.Evaluate(trip, payment, "batch-2")
	if err != nil {
		t.Fatalf("re-Evaluate() error = %v", err)
	}

	if second.CorrelationID != first.CorrelationID {
		t.Error("re-scoring a proposed pair must update in place")
	}
	if second.ConfidenceScore != 100 {
		t.Errorf("confidence = %d, want 100 after same-day re-score", second.ConfidenceScore)
	}

	trail, _ := store.AuditTrail(first.CorrelationID, 0, 0)
	if len(trail) != 2 {
		t.Fatalf("trail length = %d, want 2", len(trail))
	}
	update := trail[1]
	if update.Action != audit.ActionUpdated {
		t.Errorf("action = %q, want updated", update.Action)
	}
	if update.ConfidenceDelta == nil || *update.ConfidenceDelta != 5 {
		t.Errorf("confidence delta = %v, want 5", update.ConfidenceDelta)
	}
}

func TestEvaluateRefusesDecidedPair(t *testing.T) {
	store := newMemStore()
	svc := testService(t, store)
	trip, payment := scenarioPair()

	c, err := svc.Evaluate(trip, payment, "batch-1")
	if err != nil {
		t.Fatalf("Evaluate() error = %v", err)
	}
	if _, err := svc.Verify(c.CorrelationID, "reviewer-7"); err != nil {
		t.Fatalf("Verify() error = %v", err)
	}

	if _, err := svc.Evaluate(trip, payment, "batch-2"); !errors.Is(err, ErrInvalidState) {
		t.Errorf("Evaluate() on decided pair error = %v, want ErrInvalidState", err)
	}
}

func TestVerifyLifecycle(t *testing.T) {
	store := newMemStore()
	svc := testService(t, store)
	trip, payment := scenarioPair()

	c, _ := svc.Evaluate(trip, payment, "batch-1")

	verified, err := svc.Verify(c.CorrelationID, "reviewer-7")
	if err != nil {
		t.Fatalf("Verify() error = %v", err)
	}
	if !verified.VerifiedByUser || verified.Status() != StatusVerified {
		t.Errorf("status = %q verified_by_user = %v, want verified/true", verified.Status(), verified.VerifiedByUser)
	}
	if verified.ConfidenceScore != c.ConfidenceScore {
		t.Error("verification must not change the confidence score")
	}

	trail, _ := store.AuditTrail(c.CorrelationID, 0, 0)
	last := trail[len(trail)-1]
	if last.Action != audit.ActionVerified || last.ActorID != "reviewer-7" {
		t.Errorf("last entry = %q by %q, want verified by reviewer-7", last.Action, last.ActorID)
	}
	if last.ConfidenceDelta == nil || *last.ConfidenceDelta != 0 {
		t.Errorf("confidence delta = %v, want 0", last.ConfidenceDelta)
	}

	if _, err := svc.Verify(c.CorrelationID, "reviewer-7"); !errors.Is(err, ErrInvalidState) {
		t.Errorf("second Verify() error = %v, want ErrInvalidState", err)
	}
}

func TestRejectLifecycle(t *testing.T) {
	store := newMemStore()
	svc := testService(t, store)
	trip, payment := scenarioPair()

	c, _ := svc.Evaluate(trip, payment, "batch-1")

	rejected, err := svc.Reject(c.CorrelationID, "reviewer-7", "wrong vehicle")
	if err != nil {
		t.Fatalf("Reject() error = %v", err)
	}
	if rejected.IsActiveMatch || rejected.Status() != StatusRejected {
		t.Errorf("status = %q is_active = %v, want rejected/false", rejected.Status(), rejected.IsActiveMatch)
	}
	if rejected.ConfidenceScore != c.ConfidenceScore {
		t.Error("rejection must retain all scoring data")
	}

	trail, _ := store.AuditTrail(c.CorrelationID, 0, 0)
	last := trail[len(trail)-1]
	if last.Action != audit.ActionRejected {
		t.Errorf("last action = %q, want rejected", last.Action)
	}
	if last.Note != "wrong vehicle" {
		t.Errorf("note = %q, want the rejection reason", last.Note)
	}

	if _, err := svc.Reject(c.CorrelationID, "reviewer-7", "again"); !errors.Is(err, ErrInvalidState) {
		t.Errorf("second Reject() error = %v, want ErrInvalidState", err)
	}
}

func TestDeleteStillAudits(t *testing.T) {
	store := newMemStore()
	svc := testService(t, store)
	trip, payment := scenarioPair()

	c, _ := svc.Evaluate(trip, payment, "batch-1")
	if err := svc.Delete(c.CorrelationID, "admin-1"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}

	if _, err := svc.Get(c.CorrelationID); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get() after delete error = %v, want ErrNotFound", err)
	}

	trail, _ := store.AuditTrail(c.CorrelationID, 0, 0)
	last := trail[len(trail)-1]
	if last.Action != audit.ActionDeleted {
		t.Errorf("last action = %q, want deleted", last.Action)
	}
	if last.OldValues == nil || last.NewValues != nil {
		t.Error("delete entry must carry the pre-delete snapshot and nothing else")
	}
}

func TestEvaluateValidation(t *testing.T) {
	svc := testService(t, newMemStore())
	trip, payment := scenarioPair()

	tests := []struct {
		name    string
		mutate  func(*TripRecord, *PaymentRecord)
		actorID string
	}{
		{name: "missing trip id", mutate: func(tr *TripRecord, p *PaymentRecord) { tr.TripID = 0 }, actorID: "x"},
		{name: "missing payment key", mutate: func(tr *TripRecord, p *PaymentRecord) { p.PaymentKey = "" }, actorID: "x"},
		{name: "missing actor", mutate: func(tr *TripRecord, p *PaymentRecord) {}, actorID: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr, p := trip, payment
			tt.mutate(&tr, &p)
			if _, err := svc.Evaluate(tr, p, tt.actorID); !IsValidation(err) {
				t.Errorf("Evaluate() error = %v, want ValidationError", err)
			}
		})
	}
}

func TestEvaluateFailsWhenAuditWriteFails(t *testing.T) {
	store := newMemStore()
	store.failWrites = true
	svc := testService(t, store)
	trip, payment := scenarioPair()

	if _, err := svc.Evaluate(trip, payment, "batch-1"); err == nil {
		t.Fatal("Evaluate() must fail when the audited write fails")
	}
	if len(store.rows) != 0 {
		t.Error("failed mutation must leave no correlation behind")
	}
}

func TestCandidatesRanked(t *testing.T) {
	svc := testService(t, newMemStore())
	trip, good := scenarioPair()

	weak := PaymentRecord{
		PaymentKey:   "OTHERCO|INV-1|2026-04-30",
		SupplierName: "SOMEWHERE ELSE HOLDINGS",
		PaymentDate:  date(2026, time.April, 30),
	}

	ranked := svc.Candidates(trip, []PaymentRecord{weak, good})
	if len(ranked) != 2 {
		t.Fatalf("candidates = %d, want 2", len(ranked))
	}
	if ranked[0].PaymentKey != good.PaymentKey {
		t.Errorf("top candidate = %q, want the strong pair first", ranked[0].PaymentKey)
	}
	if ranked[0].ConfidenceScore <= ranked[1].ConfidenceScore {
		t.Error("candidates must be ranked by confidence descending")
	}
}
