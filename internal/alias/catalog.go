package alias

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/fuelops/correlator/internal/normalize"
)

// Kind identifies which entity namespace an alias belongs to
type Kind string

const (
	KindBusiness Kind = "business"
	KindLocation Kind = "location"
	KindTerminal Kind = "terminal"
)

// ErrInvalidEntry marks a catalog entry that failed validation
var ErrInvalidEntry = errors.New("invalid alias entry")

// Entry maps an alias string to its canonical name. Entries are static
// reference data created by curators; the resolver never mutates them.
type Entry struct {
	Kind               Kind
	CanonicalID        string
	AliasText          string
	AliasKind          string // abbreviation, full_name, trading_name, ... informational only
	ConfidenceBoost    int
	ExactMatchRequired bool
}

// Catalog holds all alias entries grouped by kind. Immutable after
// construction, safe for concurrent reads.
type Catalog struct {
	byKind map[Kind][]catalogEntry
}

// catalogEntry caches the comparison-time normalization of AliasText
type catalogEntry struct {
	Entry
	normalized string
}

// NewCatalog validates the entries and builds a catalog. Entries with a
// zero confidence boost take the per-kind default from defaultBoost;
// curators only set an explicit boost when an alias deserves more or
// less weight than its kind's baseline.
func NewCatalog(entries []Entry, defaultBoost map[string]int) (*Catalog, error) {
	c := &Catalog{byKind: make(map[Kind][]catalogEntry)}

	seen := make(map[string]bool)
	for _, e := range entries {
		if e.ConfidenceBoost == 0 {
			e.ConfidenceBoost = defaultBoost[string(e.Kind)]
		}
		if err := validateEntry(e); err != nil {
			return nil, err
		}

		key := string(e.Kind) + "\x00" + e.CanonicalID + "\x00" + e.AliasText
		if seen[key] {
			return nil, fmt.Errorf("%w: duplicate alias %q for %s %q",
				ErrInvalidEntry, e.AliasText, e.Kind, e.CanonicalID)
		}
		seen[key] = true

		c.byKind[e.Kind] = append(c.byKind[e.Kind], catalogEntry{
			Entry:      e,
			normalized: normalize.Name(e.AliasText),
		})
	}

	return c, nil
}

func validateEntry(e Entry) error {
	switch e.Kind {
	case KindBusiness, KindLocation, KindTerminal:
	default:
		return fmt.Errorf("%w: unknown entity kind %q", ErrInvalidEntry, e.Kind)
	}

	if e.CanonicalID == "" {
		return fmt.Errorf("%w: empty canonical_id for alias %q", ErrInvalidEntry, e.AliasText)
	}
	if normalize.Name(e.AliasText) == "" {
		return fmt.Errorf("%w: empty alias_text for %s %q", ErrInvalidEntry, e.Kind, e.CanonicalID)
	}
	if e.ConfidenceBoost <= 0 || e.ConfidenceBoost > 50 {
		return fmt.Errorf("%w: confidence_boost %d out of range for alias %q",
			ErrInvalidEntry, e.ConfidenceBoost, e.AliasText)
	}

	return nil
}

// Size returns the number of entries for a kind
func (c *Catalog) Size(kind Kind) int {
	return len(c.byKind[kind])
}

// LoadCatalog reads all curator-managed alias rows from the database.
// Rows stored with a zero confidence_boost pick up the per-kind default.
func LoadCatalog(conn *sql.DB, defaultBoost map[string]int) (*Catalog, error) {
	rows, err := conn.Query(`
		SELECT entity_kind, canonical_id, alias_text, alias_kind,
		       confidence_boost, exact_match_required
		FROM entity_alias
		ORDER BY alias_id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to load alias catalog: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		var kind string
		if err := rows.Scan(&kind, &e.CanonicalID, &e.AliasText, &e.AliasKind,
			&e.ConfidenceBoost, &e.ExactMatchRequired); err != nil {
			return nil, fmt.Errorf("failed to scan alias row: %w", err)
		}
		e.Kind = Kind(kind)
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("alias catalog read failed: %w", err)
	}

	return NewCatalog(entries, defaultBoost)
}
