package correlation

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// BatchResult summarizes one batch matching run
type BatchResult struct {
	TripsProcessed int
	PairsEvaluated int
	Proposed       int
	NeedsReview    int
	Skipped        int
}

// BatchMatcher pairs stored trips with candidate payments and evaluates
// each pair. Candidate generation is deliberately wide (payments within
// the temporal window around the trip date); the fusion engine does the
// narrowing.
type BatchMatcher struct {
	db  *sql.DB
	svc *Service
	log *logrus.Logger
}

// NewBatchMatcher creates a batch matcher over the record tables
func NewBatchMatcher(db *sql.DB, svc *Service, log *logrus.Logger) *BatchMatcher {
	if log == nil {
		log = logrus.New()
	}
	return &BatchMatcher{db: db, svc: svc, log: log}
}

// Run evaluates every trip against its candidate payments. windowDays
// bounds the payment dates considered around each trip date; dateless
// payments are always candidates.
func (b *BatchMatcher) Run(windowDays int, actorID string) (BatchResult, error) {
	var result BatchResult

	if windowDays <= 0 {
		windowDays = 30
	}

	trips, err := b.loadTrips()
	if err != nil {
		return result, err
	}

	for _, trip := range trips {
		payments, err := b.loadCandidatePayments(trip, windowDays)
		if err != nil {
			return result, err
		}

		for _, payment := range payments {
			c, err := b.svc.Evaluate(trip, payment, actorID)
			switch {
			case errors.Is(err, ErrInvalidState):
				// Pair already decided by a reviewer; leave it alone
				result.Skipped++
				continue
			case err != nil:
				return result, fmt.Errorf("evaluate trip %d against %s: %w", trip.TripID, payment.PaymentKey, err)
			}

			result.PairsEvaluated++
			result.Proposed++
			if c.RequiresManualReview {
				result.NeedsReview++
			}
		}

		result.TripsProcessed++
		if result.TripsProcessed%500 == 0 {
			b.log.WithFields(logrus.Fields{
				"trips": result.TripsProcessed,
				"pairs": result.PairsEvaluated,
			}).Info("batch progress")
		}
	}

	b.log.WithFields(logrus.Fields{
		"trips":        result.TripsProcessed,
		"pairs":        result.PairsEvaluated,
		"needs_review": result.NeedsReview,
		"skipped":      result.Skipped,
	}).Info("batch matching complete")
	return result, nil
}

func (b *BatchMatcher) loadTrips() ([]TripRecord, error) {
	rows, err := b.db.Query(`
		SELECT trip_id, vehicle_rego, business_name, location_name, terminal_name,
		       latitude, longitude, trip_date, litres_loaded
		FROM trip_record
		ORDER BY trip_id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to load trips: %w", err)
	}
	defer rows.Close()

	var trips []TripRecord
	for rows.Next() {
		var t TripRecord
		var tripDate sql.NullTime
		var litres sql.NullString

		if err := rows.Scan(&t.TripID, &t.VehicleRego, &t.BusinessName, &t.LocationName,
			&t.TerminalName, &t.Latitude, &t.Longitude, &tripDate, &litres); err != nil {
			return nil, fmt.Errorf("failed to scan trip: %w", err)
		}
		if tripDate.Valid {
			d := tripDate.Time
			t.TripDate = &d
		}
		if litres.Valid {
			if v, err := decimal.NewFromString(litres.String); err == nil {
				t.LitresLoaded = &v
			}
		}

		trips = append(trips, t)
	}
	return trips, rows.Err()
}

func (b *BatchMatcher) loadCandidatePayments(trip TripRecord, windowDays int) ([]PaymentRecord, error) {
	query := `
		SELECT payment_key, supplier_name, delivery_location, terminal_name,
		       latitude, longitude, payment_date, amount, litres_delivered
		FROM payment_record`
	var args []interface{}

	if trip.TripDate != nil {
		window := time.Duration(windowDays) * 24 * time.Hour
		args = append(args, trip.TripDate.Add(-window), trip.TripDate.Add(window))
		query += ` WHERE payment_date IS NULL OR payment_date BETWEEN $1 AND $2`
	}

	rows, err := b.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to load candidate payments: %w", err)
	}
	defer rows.Close()

	var payments []PaymentRecord
	for rows.Next() {
		var p PaymentRecord
		var payDate sql.NullTime
		var amount, litres sql.NullString

		if err := rows.Scan(&p.PaymentKey, &p.SupplierName, &p.DeliveryLocation,
			&p.TerminalName, &p.Latitude, &p.Longitude, &payDate, &amount, &litres); err != nil {
			return nil, fmt.Errorf("failed to scan payment: %w", err)
		}
		if payDate.Valid {
			d := payDate.Time
			p.PaymentDate = &d
		}
		if amount.Valid {
			if v, err := decimal.NewFromString(amount.String); err == nil {
				p.Amount = &v
			}
		}
		if litres.Valid {
			if v, err := decimal.NewFromString(litres.String); err == nil {
				p.LitresDelivered = &v
			}
		}

		payments = append(payments, p)
	}
	return payments, rows.Err()
}
