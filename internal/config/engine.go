package config

// AlgorithmVersion tags every correlation with the scorer/fusion
// configuration that produced it. Bump when bands or weights change.
const AlgorithmVersion = "v2.1-banded"

// TextBands defines the text-identity signal contributions
type TextBands struct {
	ExactCanonical     int // identical resolved canonical identity
	StrongOverlap      int // token overlap ratio >= StrongOverlapRatio
	WeakOverlap        int // any token overlap at all
	StrongOverlapRatio float64
}

// GeoBands defines the geospatial signal contributions by distance (km)
type GeoBands struct {
	ServiceRadiusKm   float64 // within service area
	NearKm            float64
	FarKm             float64 // beyond this the signal contributes nothing
	ServiceRadiusPts  int
	NearPts           int
	FarPts            int
	LongDistanceKm    float64 // raw distance beyond this raises long_distance
}

// TemporalBands defines the temporal signal contributions by day gap
type TemporalBands struct {
	SameDayPts     int
	CloseDays      int // gap <= CloseDays
	ClosePts       int
	NearDays       int
	NearPts        int
	FarDays        int
	FarPts         int
	LargeGapDays   int // gap beyond this raises large_date_gap
}

// QualityTiers defines the confidence boundaries for quality classification.
// Each boundary is inclusive at the lower bound of its tier.
type QualityTiers struct {
	Excellent int // >= 90
	Good      int // >= 75
	Fair      int // >= 60
}

// Engine holds the full scorer/resolver/fusion configuration
type Engine struct {
	Text     TextBands
	Geo      GeoBands
	Temporal TemporalBands
	Tiers    QualityTiers

	// FuzzyThreshold is the minimum similarity for a fuzzy alias match
	FuzzyThreshold float64

	// DefaultBoost is the per-entity-kind confidence boost applied when a
	// curator adds an alias without an explicit boost. Terminals default
	// higher than businesses and locations.
	DefaultBoost map[string]int

	// AlwaysReviewFlags force manual review even on high-confidence matches
	AlwaysReviewFlags []string

	// ExpandLocations runs location-kind inputs through libpostal
	// expansion before the exact pass
	ExpandLocations bool
}

// DefaultEngine returns the tuned default engine configuration
func DefaultEngine() *Engine {
	return &Engine{
		Text: TextBands{
			ExactCanonical:     40,
			StrongOverlap:      20,
			WeakOverlap:        10,
			StrongOverlapRatio: 0.5,
		},
		Geo: GeoBands{
			ServiceRadiusKm:  5.0,
			NearKm:           25.0,
			FarKm:            100.0,
			ServiceRadiusPts: 30,
			NearPts:          20,
			FarPts:           10,
			LongDistanceKm:   100.0,
		},
		Temporal: TemporalBands{
			SameDayPts:   30,
			CloseDays:    2,
			ClosePts:     25,
			NearDays:     7,
			NearPts:      15,
			FarDays:      14,
			FarPts:       5,
			LargeGapDays: 14,
		},
		Tiers: QualityTiers{
			Excellent: 90,
			Good:      75,
			Fair:      60,
		},
		FuzzyThreshold: 0.70,
		DefaultBoost: map[string]int{
			"business": 10,
			"location": 10,
			"terminal": 15,
		},
		AlwaysReviewFlags: []string{"long_distance"},
		ExpandLocations:   false,
	}
}

// EngineFromEnv returns the engine configuration with env overrides applied
func EngineFromEnv() *Engine {
	e := DefaultEngine()

	e.FuzzyThreshold = GetEnvFloat("FUZZY_THRESHOLD", e.FuzzyThreshold)
	e.Geo.ServiceRadiusKm = GetEnvFloat("SERVICE_RADIUS_KM", e.Geo.ServiceRadiusKm)
	e.Geo.LongDistanceKm = GetEnvFloat("LONG_DISTANCE_KM", e.Geo.LongDistanceKm)
	e.Temporal.LargeGapDays = GetEnvInt("LARGE_DATE_GAP_DAYS", e.Temporal.LargeGapDays)
	e.Tiers.Excellent = GetEnvInt("TIER_EXCELLENT", e.Tiers.Excellent)
	e.Tiers.Good = GetEnvInt("TIER_GOOD", e.Tiers.Good)
	e.Tiers.Fair = GetEnvInt("TIER_FAIR", e.Tiers.Fair)
	e.DefaultBoost["business"] = GetEnvInt("BOOST_BUSINESS", e.DefaultBoost["business"])
	e.DefaultBoost["location"] = GetEnvInt("BOOST_LOCATION", e.DefaultBoost["location"])
	e.DefaultBoost["terminal"] = GetEnvInt("BOOST_TERMINAL", e.DefaultBoost["terminal"])
	e.AlwaysReviewFlags = GetEnvList("ALWAYS_REVIEW_FLAGS", e.AlwaysReviewFlags)
	e.ExpandLocations = GetEnvBool("EXPAND_LOCATIONS", e.ExpandLocations)

	return e
}
