package fusion

import (
	"sort"

	"github.com/fuelops/correlator/internal/config"
	"github.com/fuelops/correlator/internal/signal"
)

// Quality tiers, derived from confidence alone
const (
	TierExcellent = "excellent"
	TierGood      = "good"
	TierFair      = "fair"
	TierPoor      = "poor"
)

// Quality-concern flags
const (
	FlagLowConfidence = "low_confidence"
	FlagLongDistance  = "long_distance"
	FlagLargeDateGap  = "large_date_gap"
)

// Result is the fused outcome for one candidate correlation
type Result struct {
	ConfidenceScore      int
	QualityTier          string
	QualityFlags         []string
	RequiresManualReview bool
}

// Engine combines independent signal scores into one confidence score,
// quality tier and flag set. Deterministic and side-effect-free.
type Engine struct {
	cfg *config.Engine
}

// NewEngine creates a fusion engine
func NewEngine(cfg *config.Engine) *Engine {
	if cfg == nil {
		cfg = config.DefaultEngine()
	}
	return &Engine{cfg: cfg}
}

// Fuse sums the contributions of the used signals, clamped to [0, 100].
// Signals that were not used are neutral, never a penalty: one strong
// signal is deliberately worth the same as three weak ones summing to the
// same score.
func (e *Engine) Fuse(scores []signal.Score) Result {
	total := 0
	for _, s := range scores {
		if s.Used {
			total += s.Contribution
		}
	}
	if total < 0 {
		total = 0
	}
	if total > 100 {
		total = 100
	}

	tier := e.tierFor(total)
	flags := e.flagsFor(total, scores)

	return Result{
		ConfidenceScore:      total,
		QualityTier:          tier,
		QualityFlags:         flags,
		RequiresManualReview: e.requiresReview(tier, flags),
	}
}

// tierFor classifies a confidence score. Boundaries are inclusive at the
// lower bound of each tier.
func (e *Engine) tierFor(confidence int) string {
	switch {
	case confidence >= e.cfg.Tiers.Excellent:
		return TierExcellent
	case confidence >= e.cfg.Tiers.Good:
		return TierGood
	case confidence >= e.cfg.Tiers.Fair:
		return TierFair
	default:
		return TierPoor
	}
}

// flagsFor derives the concern flags, each from its own signal threshold.
// Flags are additive and can co-occur.
func (e *Engine) flagsFor(confidence int, scores []signal.Score) []string {
	var flags []string

	for _, s := range scores {
		if !s.Used {
			continue
		}
		switch s.Kind {
		case signal.KindGeo:
			if s.RawMetric > e.cfg.Geo.LongDistanceKm {
				flags = append(flags, FlagLongDistance)
			}
		case signal.KindTemporal:
			if s.RawMetric > float64(e.cfg.Temporal.LargeGapDays) {
				flags = append(flags, FlagLargeDateGap)
			}
		}
	}

	if confidence < e.cfg.Tiers.Fair {
		flags = append(flags, FlagLowConfidence)
	}

	sort.Strings(flags)
	return flags
}

// requiresReview is true for fair/poor tiers, or when any always-review
// flag is present. The flag override exists because a single strong
// signal can mask a misleading aggregate.
func (e *Engine) requiresReview(tier string, flags []string) bool {
	if tier == TierFair || tier == TierPoor {
		return true
	}

	for _, flag := range flags {
		for _, forced := range e.cfg.AlwaysReviewFlags {
			if flag == forced {
				return true
			}
		}
	}

	return false
}
