package signal

import (
	"time"

	"github.com/fuelops/correlator/internal/config"
)

// TemporalScorer scores the day gap between trip date and payment date
type TemporalScorer struct {
	bands config.TemporalBands
}

// NewTemporalScorer creates a temporal-proximity scorer
func NewTemporalScorer(bands config.TemporalBands) *TemporalScorer {
	return &TemporalScorer{bands: bands}
}

// Score computes the banded day-gap contribution. Used whenever both
// dates are present.
func (s *TemporalScorer) Score(tripDate, paymentDate *time.Time) Score {
	score := Score{Kind: KindTemporal}

	if tripDate == nil || paymentDate == nil {
		return score
	}
	score.Used = true

	gap := dayGap(*tripDate, *paymentDate)
	score.RawMetric = float64(gap)

	switch {
	case gap == 0:
		score.Contribution = s.bands.SameDayPts
	case gap <= s.bands.CloseDays:
		score.Contribution = s.bands.ClosePts
	case gap <= s.bands.NearDays:
		score.Contribution = s.bands.NearPts
	case gap <= s.bands.FarDays:
		score.Contribution = s.bands.FarPts
	}

	return score
}

// dayGap counts whole calendar days between two dates, ignoring the
// time-of-day component
func dayGap(a, b time.Time) int {
	aDay := time.Date(a.Year(), a.Month(), a.Day(), 0, 0, 0, 0, time.UTC)
	bDay := time.Date(b.Year(), b.Month(), b.Day(), 0, 0, 0, 0, time.UTC)

	gap := int(bDay.Sub(aDay).Hours() / 24)
	if gap < 0 {
		gap = -gap
	}
	return gap
}
