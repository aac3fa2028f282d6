package signal

import (
	"math"

	"github.com/fuelops/correlator/internal/config"
)

const earthRadiusKm = 6371.0

// GeoScorer scores great-circle proximity between the trip terminal and
// the payment delivery point.
type GeoScorer struct {
	bands config.GeoBands
}

// NewGeoScorer creates a geospatial-proximity scorer
func NewGeoScorer(bands config.GeoBands) *GeoScorer {
	return &GeoScorer{bands: bands}
}

// Score computes the banded distance contribution. The signal is used
// only when both coordinate pairs are present; missing coordinates are
// neutral, not negative. The second return reports service-area
// containment.
func (s *GeoScorer) Score(tripLat, tripLon, payLat, payLon *float64) (Score, bool) {
	score := Score{Kind: KindGeo}

	if tripLat == nil || tripLon == nil || payLat == nil || payLon == nil {
		return score, false
	}
	score.Used = true

	dist := haversineKm(*tripLat, *tripLon, *payLat, *payLon)
	score.RawMetric = dist

	withinServiceArea := dist <= s.bands.ServiceRadiusKm
	switch {
	case withinServiceArea:
		score.Contribution = s.bands.ServiceRadiusPts
	case dist <= s.bands.NearKm:
		score.Contribution = s.bands.NearPts
	case dist <= s.bands.FarKm:
		score.Contribution = s.bands.FarPts
	}

	return score, withinServiceArea
}

// haversineKm returns the great-circle distance between two WGS84 points
func haversineKm(lat1, lon1, lat2, lon2 float64) float64 {
	dLat := radians(lat2 - lat1)
	dLon := radians(lon2 - lon1)

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(radians(lat1))*math.Cos(radians(lat2))*
			math.Sin(dLon/2)*math.Sin(dLon/2)

	return earthRadiusKm * 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
}

func radians(deg float64) float64 {
	return deg * math.Pi / 180
}
