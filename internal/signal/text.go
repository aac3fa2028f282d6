package signal

import (
	"github.com/fuelops/correlator/internal/config"
	"github.com/fuelops/correlator/internal/normalize"
)

// TextScorer compares resolved canonical identities between the trip and
// payment sides. Pure and side-effect-free.
type TextScorer struct {
	bands config.TextBands
}

// NewTextScorer creates a text-identity scorer
func NewTextScorer(bands config.TextBands) *TextScorer {
	return &TextScorer{bands: bands}
}

// Score compares the two identities. The signal counts as used whenever
// any name pair (business, location or terminal) is non-empty on both
// sides, regardless of outcome.
func (s *TextScorer) Score(trip, payment Identity) (Score, TextDetail) {
	score := Score{Kind: KindText}
	detail := TextDetail{
		BusinessMatch: trip.Business != "" && trip.Business == payment.Business,
		LocationMatch: trip.Location != "" && trip.Location == payment.Location,
		TerminalMatch: trip.Terminal != "" && trip.Terminal == payment.Terminal,
	}

	hasBusiness := trip.Business != "" && payment.Business != ""
	hasLocation := trip.Location != "" && payment.Location != ""
	hasTerminal := trip.Terminal != "" && payment.Terminal != ""
	if !hasBusiness && !hasLocation && !hasTerminal {
		return score, detail
	}
	score.Used = true

	if !hasBusiness {
		// Location or terminal identity carries the signal on its own
		// when neither side names a business
		if detail.LocationMatch || detail.TerminalMatch {
			score.RawMetric = 1.0
			score.Contribution = s.bands.StrongOverlap
		}
		return score, detail
	}

	overlap := normalize.TokenOverlapRatio(trip.Business, payment.Business)
	score.RawMetric = overlap

	switch {
	case detail.BusinessMatch:
		score.RawMetric = 1.0
		score.Contribution = s.bands.ExactCanonical
	case detail.LocationMatch || detail.TerminalMatch:
		// A shared location or terminal identity is as strong as heavy
		// token overlap even when the business strings disagree
		score.Contribution = s.bands.StrongOverlap
		if overlap >= s.bands.StrongOverlapRatio {
			score.RawMetric = overlap
		}
	case overlap >= s.bands.StrongOverlapRatio:
		score.Contribution = s.bands.StrongOverlap
	case overlap > 0:
		score.Contribution = s.bands.WeakOverlap
	}

	return score, detail
}
