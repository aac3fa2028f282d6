// Package report provides read-only quality aggregations over the
// correlation store and audit log. A thin consumer: it reads documented
// fields and has no contract back into the engine.
package report

import (
	"database/sql"
	"fmt"

	"github.com/lib/pq"
	"github.com/shopspring/decimal"
)

// QualityReport is the dashboard summary
type QualityReport struct {
	TotalCorrelations int            `json:"total_correlations"`
	ActiveMatches     int            `json:"active_matches"`
	Verified          int            `json:"verified"`
	PendingReview     int            `json:"pending_review"`
	VerificationRate  float64        `json:"verification_rate"`
	AvgConfidence     float64        `json:"avg_confidence"`
	ByTier            map[string]int `json:"by_tier"`
	FlagCounts        map[string]int `json:"flag_counts"`
	AuditActions      map[string]int `json:"audit_actions"`
	MonthlyTrend      []MonthBucket  `json:"monthly_trend"`
	LitresMatched     string         `json:"litres_matched"`
}

// MonthBucket is one month of correlation volume and quality
type MonthBucket struct {
	Month         string  `json:"month"`
	Count         int     `json:"count"`
	AvgConfidence float64 `json:"avg_confidence"`
}

// Reporter runs the aggregation queries
type Reporter struct {
	db *sql.DB
}

// NewReporter creates a reporter over the correlation store
func NewReporter(db *sql.DB) *Reporter {
	return &Reporter{db: db}
}

// Build assembles the full quality report
func (r *Reporter) Build() (*QualityReport, error) {
	report := &QualityReport{
		ByTier:       make(map[string]int),
		FlagCounts:   make(map[string]int),
		AuditActions: make(map[string]int),
	}

	err := r.db.QueryRow(`
		SELECT COUNT(*),
		       COUNT(CASE WHEN is_active_match THEN 1 END),
		       COUNT(CASE WHEN verified_by_user THEN 1 END),
		       COUNT(CASE WHEN requires_manual_review AND NOT verified_by_user AND is_active_match THEN 1 END),
		       COALESCE(AVG(confidence_score), 0)
		FROM correlation
	`).Scan(&report.TotalCorrelations, &report.ActiveMatches, &report.Verified,
		&report.PendingReview, &report.AvgConfidence)
	if err != nil {
		return nil, fmt.Errorf("failed to read correlation totals: %w", err)
	}

	report.VerificationRate = Percentage(report.Verified, report.TotalCorrelations)

	if err := r.fillTiers(report); err != nil {
		return nil, err
	}
	if err := r.fillFlags(report); err != nil {
		return nil, err
	}
	if err := r.fillAuditActions(report); err != nil {
		return nil, err
	}
	if err := r.fillTrend(report); err != nil {
		return nil, err
	}
	if err := r.fillLitres(report); err != nil {
		return nil, err
	}

	return report, nil
}

func (r *Reporter) fillTiers(report *QualityReport) error {
	rows, err := r.db.Query(`SELECT quality_tier, COUNT(*) FROM correlation GROUP BY quality_tier`)
	if err != nil {
		return fmt.Errorf("failed to read tier counts: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var tier string
		var count int
		if err := rows.Scan(&tier, &count); err != nil {
			return err
		}
		report.ByTier[tier] = count
	}
	return rows.Err()
}

func (r *Reporter) fillFlags(report *QualityReport) error {
	rows, err := r.db.Query(`
		SELECT flag, COUNT(*)
		FROM correlation, unnest(quality_flags) AS flag
		GROUP BY flag
	`)
	if err != nil {
		return fmt.Errorf("failed to read flag counts: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var flag string
		var count int
		if err := rows.Scan(&flag, &count); err != nil {
			return err
		}
		report.FlagCounts[flag] = count
	}
	return rows.Err()
}

func (r *Reporter) fillAuditActions(report *QualityReport) error {
	rows, err := r.db.Query(`SELECT action, COUNT(*) FROM correlation_audit GROUP BY action`)
	if err != nil {
		return fmt.Errorf("failed to read audit action counts: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var action string
		var count int
		if err := rows.Scan(&action, &count); err != nil {
			return err
		}
		report.AuditActions[action] = count
	}
	return rows.Err()
}

func (r *Reporter) fillTrend(report *QualityReport) error {
	rows, err := r.db.Query(`
		SELECT to_char(date_trunc('month', created_at), 'YYYY-MM') AS month,
		       COUNT(*), AVG(confidence_score)
		FROM correlation
		GROUP BY month
		ORDER BY month
	`)
	if err != nil {
		return fmt.Errorf("failed to read monthly trend: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var bucket MonthBucket
		if err := rows.Scan(&bucket.Month, &bucket.Count, &bucket.AvgConfidence); err != nil {
			return err
		}
		report.MonthlyTrend = append(report.MonthlyTrend, bucket)
	}
	return rows.Err()
}

// fillLitres sums delivered litres across payments whose correlation is
// an active verified match
func (r *Reporter) fillLitres(report *QualityReport) error {
	rows, err := r.db.Query(`
		SELECT COALESCE(p.litres_delivered::text, '0')
		FROM correlation c
		JOIN payment_record p ON p.payment_key = c.payment_key
		WHERE c.verified_by_user AND c.is_active_match
	`)
	if err != nil {
		// payment_record is optional reference data; report zero when absent
		if isUndefinedTable(err) {
			report.LitresMatched = "0"
			return nil
		}
		return fmt.Errorf("failed to read matched litres: %w", err)
	}
	defer rows.Close()

	total := decimal.Zero
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return err
		}
		litres, err := decimal.NewFromString(raw)
		if err != nil {
			continue
		}
		total = total.Add(litres)
	}

	report.LitresMatched = total.String()
	return rows.Err()
}

func isUndefinedTable(err error) bool {
	pqErr, ok := err.(*pq.Error)
	return ok && pqErr.Code == "42P01"
}

// Percentage returns part/whole as a percentage, 0 for an empty whole
func Percentage(part, whole int) float64 {
	if whole == 0 {
		return 0
	}
	return float64(part) / float64(whole) * 100
}
