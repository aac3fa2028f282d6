package alias

import (
	"sort"

	"github.com/fuelops/correlator/internal/config"
	"github.com/fuelops/correlator/internal/normalize"
)

// MatchType distinguishes how a resolution was obtained
type MatchType string

const (
	MatchExact MatchType = "exact"
	MatchFuzzy MatchType = "fuzzy"
	MatchNone  MatchType = "none"
)

// Result is the outcome of one resolution call. CanonicalID is empty on
// pass-through: callers then treat the original input as its own
// canonical value.
type Result struct {
	InputText    string    `json:"input_text"`
	CanonicalID  string    `json:"resolved_canonical_id,omitempty"`
	MatchType    MatchType `json:"match_type"`
	Score        float64   `json:"score"` // exact: confidence boost; fuzzy: similarity
	MatchedAlias string    `json:"matched_alias,omitempty"`
}

// Canonical returns the resolved canonical identity, falling back to the
// normalized input on pass-through
func (r Result) Canonical() string {
	if r.CanonicalID != "" {
		return r.CanonicalID
	}
	return normalize.Name(r.InputText)
}

// Resolver maps noisy free-text names to canonical identities using the
// catalog. Read-only and re-entrant; "no match" is success, not failure.
type Resolver struct {
	catalog *Catalog
	cfg     *config.Engine
}

// NewResolver creates a resolver over an immutable catalog
func NewResolver(catalog *Catalog, cfg *config.Engine) *Resolver {
	if cfg == nil {
		cfg = config.DefaultEngine()
	}
	return &Resolver{catalog: catalog, cfg: cfg}
}

// Resolve runs the exact pass, then the fuzzy pass, then falls through.
// Empty input short-circuits to pass-through without a lookup.
func (r *Resolver) Resolve(input string, kind Kind) Result {
	result := Result{InputText: input, MatchType: MatchNone}

	normalized := normalize.Name(input)
	if normalized == "" {
		return result
	}

	variants := []string{normalized}
	if kind == KindLocation && r.cfg.ExpandLocations {
		variants = expandLocation(normalized)
	}

	for _, variant := range variants {
		if exact, ok := r.exactPass(variant, kind); ok {
			return Result{
				InputText:    input,
				CanonicalID:  exact.CanonicalID,
				MatchType:    MatchExact,
				Score:        float64(exact.ConfidenceBoost),
				MatchedAlias: exact.AliasText,
			}
		}
	}

	if fuzzy, sim, ok := r.fuzzyPass(normalized, kind); ok {
		return Result{
			InputText:    input,
			CanonicalID:  fuzzy.CanonicalID,
			MatchType:    MatchFuzzy,
			Score:        sim,
			MatchedAlias: fuzzy.AliasText,
		}
	}

	return result
}

// exactPass selects the highest-boost entry whose normalized alias equals
// the normalized input. Ties at equal boost break on lexicographically
// smallest alias_text, so repeated runs always pick the same entry.
func (r *Resolver) exactPass(normalized string, kind Kind) (catalogEntry, bool) {
	var best catalogEntry
	found := false

	for _, entry := range r.catalog.byKind[kind] {
		if entry.normalized != normalized {
			continue
		}
		if !found ||
			entry.ConfidenceBoost > best.ConfidenceBoost ||
			(entry.ConfidenceBoost == best.ConfidenceBoost && entry.AliasText < best.AliasText) {
			best = entry
			found = true
		}
	}

	return best, found
}

// fuzzyPass ranks fuzzy-eligible entries above the similarity threshold
// by similarity desc, then confidence boost desc, then alias_text asc.
// Entries with exact_match_required never participate.
func (r *Resolver) fuzzyPass(normalized string, kind Kind) (catalogEntry, float64, bool) {
	type scored struct {
		entry catalogEntry
		sim   float64
	}

	var candidates []scored
	for _, entry := range r.catalog.byKind[kind] {
		if entry.ExactMatchRequired {
			continue
		}
		sim := normalize.Similarity(normalized, entry.normalized)
		if sim > r.cfg.FuzzyThreshold {
			candidates = append(candidates, scored{entry: entry, sim: sim})
		}
	}

	if len(candidates) == 0 {
		return catalogEntry{}, 0, false
	}

	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].sim != candidates[j].sim {
			return candidates[i].sim > candidates[j].sim
		}
		if candidates[i].entry.ConfidenceBoost != candidates[j].entry.ConfidenceBoost {
			return candidates[i].entry.ConfidenceBoost > candidates[j].entry.ConfidenceBoost
		}
		return candidates[i].entry.AliasText < candidates[j].entry.AliasText
	})

	return candidates[0].entry, candidates[0].sim, true
}
