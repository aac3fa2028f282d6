package correlation

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/fuelops/correlator/internal/audit"
	"github.com/fuelops/correlator/internal/signal"
)

// PostgresStore implements Store over a Postgres database. Each mutation
// and its audit entry share one transaction; the scope is a single
// correlation row plus one new audit row, never a range lock.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a Postgres-backed store
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const correlationColumns = `
	correlation_id, trip_id, payment_key, signal_scores,
	confidence_score, quality_tier, quality_flags,
	business_identifier_match, location_reference_match, within_service_area,
	requires_manual_review, verified_by_user, is_active_match,
	algorithm_version, created_at, updated_at`

// GetByID loads one correlation
func (s *PostgresStore) GetByID(id uuid.UUID) (*Correlation, error) {
	row := s.db.QueryRow(`SELECT`+correlationColumns+` FROM correlation WHERE correlation_id = $1`, id)
	return scanCorrelation(row)
}

// GetByPair loads the correlation for a trip/payment pair under one
// algorithm version
func (s *PostgresStore) GetByPair(tripID int64, paymentKey, algorithmVersion string) (*Correlation, error) {
	row := s.db.QueryRow(`SELECT`+correlationColumns+`
		FROM correlation
		WHERE trip_id = $1 AND payment_key = $2 AND algorithm_version = $3`,
		tripID, paymentKey, algorithmVersion)
	return scanCorrelation(row)
}

// List returns correlations matching the filter, newest first
func (s *PostgresStore) List(filter ListFilter) ([]*Correlation, error) {
	query := `SELECT` + correlationColumns + ` FROM correlation WHERE 1=1`
	var args []interface{}

	if filter.QualityTier != "" {
		args = append(args, filter.QualityTier)
		query += fmt.Sprintf(" AND quality_tier = $%d", len(args))
	}
	if filter.ReviewOnly {
		query += " AND requires_manual_review"
	}
	if filter.ActiveOnly {
		query += " AND is_active_match"
	}
	if filter.VerifiedOnly {
		query += " AND verified_by_user"
	}

	query += " ORDER BY updated_at DESC"

	limit := filter.Limit
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	args = append(args, limit)
	query += fmt.Sprintf(" LIMIT $%d", len(args))

	if filter.Offset > 0 {
		args = append(args, filter.Offset)
		query += fmt.Sprintf(" OFFSET $%d", len(args))
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list correlations: %w", err)
	}
	defer rows.Close()

	var results []*Correlation
	for rows.Next() {
		c, err := scanCorrelation(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, c)
	}
	return results, rows.Err()
}

// Insert writes a new correlation and its created audit entry atomically
func (s *PostgresStore) Insert(c *Correlation, entry audit.Entry) error {
	return s.inTx(func(tx *sql.Tx) error {
		scores, err := json.Marshal(c.SignalScores)
		if err != nil {
			return fmt.Errorf("failed to encode signal scores: %w", err)
		}

		_, err = tx.Exec(`
			INSERT INTO correlation (`+correlationColumns+`)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)`,
			c.CorrelationID, c.TripID, c.PaymentKey, scores,
			c.ConfidenceScore, c.QualityTier, pq.Array(c.QualityFlags),
			c.BusinessIdentifierMatch, c.LocationReferenceMatch, c.WithinServiceArea,
			c.RequiresManualReview, c.VerifiedByUser, c.IsActiveMatch,
			c.AlgorithmVersion, c.CreatedAt, c.UpdatedAt)
		if err != nil {
			return fmt.Errorf("failed to insert correlation: %w", err)
		}

		return insertAudit(tx, entry)
	})
}

// Update rewrites a correlation row and appends its audit entry atomically
func (s *PostgresStore) Update(c *Correlation, entry audit.Entry) error {
	return s.inTx(func(tx *sql.Tx) error {
		scores, err := json.Marshal(c.SignalScores)
		if err != nil {
			return fmt.Errorf("failed to encode signal scores: %w", err)
		}

		res, err := tx.Exec(`
			UPDATE correlation SET
				signal_scores = $2, confidence_score = $3, quality_tier = $4,
				quality_flags = $5, business_identifier_match = $6,
				location_reference_match = $7, within_service_area = $8,
				requires_manual_review = $9, verified_by_user = $10,
				is_active_match = $11, updated_at = $12
			WHERE correlation_id = $1`,
			c.CorrelationID, scores, c.ConfidenceScore, c.QualityTier,
			pq.Array(c.QualityFlags), c.BusinessIdentifierMatch,
			c.LocationReferenceMatch, c.WithinServiceArea,
			c.RequiresManualReview, c.VerifiedByUser,
			c.IsActiveMatch, c.UpdatedAt)
		if err != nil {
			return fmt.Errorf("failed to update correlation: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return ErrNotFound
		}

		return insertAudit(tx, entry)
	})
}

// Delete removes a correlation row; the deleted audit entry survives it
func (s *PostgresStore) Delete(id uuid.UUID, entry audit.Entry) error {
	return s.inTx(func(tx *sql.Tx) error {
		res, err := tx.Exec(`DELETE FROM correlation WHERE correlation_id = $1`, id)
		if err != nil {
			return fmt.Errorf("failed to delete correlation: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return ErrNotFound
		}

		return insertAudit(tx, entry)
	})
}

// AuditTrail returns a correlation's entries oldest first
func (s *PostgresStore) AuditTrail(id uuid.UUID, limit, offset int) ([]audit.Entry, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}

	rows, err := s.db.Query(`
		SELECT audit_id, correlation_id, action, changed_fields,
		       old_values, new_values, confidence_delta, actor_id, note, created_at
		FROM correlation_audit
		WHERE correlation_id = $1
		ORDER BY created_at, audit_id
		LIMIT $2 OFFSET $3`, id, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to read audit trail: %w", err)
	}
	defer rows.Close()

	var entries []audit.Entry
	for rows.Next() {
		var e audit.Entry
		var oldRaw, newRaw []byte
		var delta sql.NullInt64

		if err := rows.Scan(&e.AuditID, &e.CorrelationID, &e.Action,
			pq.Array(&e.ChangedFields), &oldRaw, &newRaw, &delta,
			&e.ActorID, &e.Note, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan audit entry: %w", err)
		}

		if len(oldRaw) > 0 {
			if err := json.Unmarshal(oldRaw, &e.OldValues); err != nil {
				return nil, fmt.Errorf("corrupt old snapshot on %s: %w", e.AuditID, err)
			}
		}
		if len(newRaw) > 0 {
			if err := json.Unmarshal(newRaw, &e.NewValues); err != nil {
				return nil, fmt.Errorf("corrupt new snapshot on %s: %w", e.AuditID, err)
			}
		}
		if delta.Valid {
			d := int(delta.Int64)
			e.ConfidenceDelta = &d
		}

		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// inTx runs fn in a transaction: both the row mutation and its audit
// entry commit together or not at all
func (s *PostgresStore) inTx(fn func(tx *sql.Tx) error) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit mutation: %w", err)
	}
	return nil
}

func insertAudit(tx *sql.Tx, entry audit.Entry) error {
	var oldRaw, newRaw interface{}
	if entry.OldValues != nil {
		raw, err := json.Marshal(entry.OldValues)
		if err != nil {
			return fmt.Errorf("failed to encode old snapshot: %w", err)
		}
		oldRaw = raw
	}
	if entry.NewValues != nil {
		raw, err := json.Marshal(entry.NewValues)
		if err != nil {
			return fmt.Errorf("failed to encode new snapshot: %w", err)
		}
		newRaw = raw
	}

	var delta sql.NullInt64
	if entry.ConfidenceDelta != nil {
		delta = sql.NullInt64{Int64: int64(*entry.ConfidenceDelta), Valid: true}
	}

	_, err := tx.Exec(`
		INSERT INTO correlation_audit (
			audit_id, correlation_id, action, changed_fields,
			old_values, new_values, confidence_delta, actor_id, note, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		entry.AuditID, entry.CorrelationID, entry.Action,
		pq.Array(entry.ChangedFields), oldRaw, newRaw, delta,
		entry.ActorID, entry.Note, entry.CreatedAt)
	if err != nil {
		return fmt.Errorf("audit write failed, rolling back mutation: %w", err)
	}
	return nil
}

// scanner covers both *sql.Row and *sql.Rows
type scanner interface {
	Scan(dest ...interface{}) error
}

func scanCorrelation(row scanner) (*Correlation, error) {
	var c Correlation
	var scores []byte

	err := row.Scan(&c.CorrelationID, &c.TripID, &c.PaymentKey, &scores,
		&c.ConfidenceScore, &c.QualityTier, pq.Array(&c.QualityFlags),
		&c.BusinessIdentifierMatch, &c.LocationReferenceMatch, &c.WithinServiceArea,
		&c.RequiresManualReview, &c.VerifiedByUser, &c.IsActiveMatch,
		&c.AlgorithmVersion, &c.CreatedAt, &c.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan correlation: %w", err)
	}

	if len(scores) > 0 {
		if err := json.Unmarshal(scores, &c.SignalScores); err != nil {
			return nil, fmt.Errorf("corrupt signal scores on %s: %w", c.CorrelationID, err)
		}
	}
	if c.SignalScores == nil {
		c.SignalScores = []signal.Score{}
	}

	return &c, nil
}
