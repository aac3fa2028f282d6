package alias

import (
	expand "github.com/openvenues/gopostal/expand"

	"github.com/fuelops/correlator/internal/normalize"
)

// expandLocation produces libpostal expansions of a location-kind input
// for the exact pass. Delivery locations arrive as semi-postal strings
// ("12 GREAT EASTERN HWY KALGOORLIE") and expansion normalizes the
// abbreviation variants curators never thought to add. The original
// normalized input is always tried first.
func expandLocation(normalized string) []string {
	variants := []string{normalized}
	seen := map[string]bool{normalized: true}

	for _, expansion := range expand.ExpandAddress(normalized) {
		candidate := normalize.Name(expansion)
		if candidate != "" && !seen[candidate] {
			variants = append(variants, candidate)
			seen[candidate] = true
		}
	}

	return variants
}
