package signal

import (
	"testing"
	"time"

	"github.com/fuelops/correlator/internal/config"
)

func f64(v float64) *float64 { return &v }

func date(y int, m time.Month, d int) *time.Time {
	t := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	return &t
}

func TestTextScorer(t *testing.T) {
	scorer := NewTextScorer(config.DefaultEngine().Text)

	tests := []struct {
		name         string
		trip         Identity
		payment      Identity
		wantPts      int
		wantUsed     bool
		wantBusMatch bool
	}{
		{
			name:         "identical canonical business",
			trip:         Identity{Business: "KCGM"},
			payment:      Identity{Business: "KCGM"},
			wantPts:      40,
			wantUsed:     true,
			wantBusMatch: true,
		},
		{
			name:     "strong token overlap",
			trip:     Identity{Business: "GOLD FIELDS ST IVES"},
			payment:  Identity{Business: "GOLD FIELDS AGNEW"},
			wantPts:  20,
			wantUsed: true,
		},
		{
			name:     "weak token overlap",
			trip:     Identity{Business: "GOLD FIELDS ST IVES"},
			payment:  Identity{Business: "GOLD ROAD"},
			wantPts:  10,
			wantUsed: true,
		},
		{
			name:     "no overlap still counts as used",
			trip:     Identity{Business: "NORTHERN STAR"},
			payment:  Identity{Business: "EVOLUTION MINING"},
			wantPts:  0,
			wantUsed: true,
		},
		{
			name:     "terminal match rescues disagreeing businesses",
			trip:     Identity{Business: "NORTHERN STAR", Terminal: "ESP-T1"},
			payment:  Identity{Business: "EVOLUTION MINING", Terminal: "ESP-T1"},
			wantPts:  20,
			wantUsed: true,
		},
		{
			name:     "location and terminal identity without business names",
			trip:     Identity{Location: "ESPERANCE", Terminal: "ESP-T1"},
			payment:  Identity{Location: "ESPERANCE", Terminal: "ESP-T1"},
			wantPts:  20,
			wantUsed: true,
		},
		{
			name:     "terminal pair present but disagreeing",
			trip:     Identity{Terminal: "ESP-T1"},
			payment:  Identity{Terminal: "KAL-T1"},
			wantPts:  0,
			wantUsed: true,
		},
		{
			name:     "no comparable name pair is neutral",
			trip:     Identity{Location: "ESPERANCE"},
			payment:  Identity{Business: "KCGM"},
			wantPts:  0,
			wantUsed: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			score, detail := scorer.Score(tt.trip, tt.payment)
			if score.Contribution != tt.wantPts {
				t.Errorf("contribution = %d, want %d", score.Contribution, tt.wantPts)
			}
			if score.Used != tt.wantUsed {
				t.Errorf("used = %v, want %v", score.Used, tt.wantUsed)
			}
			if detail.BusinessMatch != tt.wantBusMatch {
				t.Errorf("business match = %v, want %v", detail.BusinessMatch, tt.wantBusMatch)
			}
		})
	}
}

func TestGeoScorer(t *testing.T) {
	scorer := NewGeoScorer(config.DefaultEngine().Geo)

	// Kalgoorlie to nearby Fimiston (a few km) and to Perth (~550 km)
	kalLat, kalLon := -30.7489, 121.4658
	fimLat, fimLon := -30.7561, 121.4797
	perLat, perLon := -31.9523, 115.8613

	t.Run("within service radius", func(t *testing.T) {
		score, within := scorer.Score(f64(kalLat), f64(kalLon), f64(fimLat), f64(fimLon))
		if !score.Used || !within {
			t.Fatalf("used=%v within=%v, want both true", score.Used, within)
		}
		if score.Contribution != 30 {
			t.Errorf("contribution = %d, want 30", score.Contribution)
		}
		if score.RawMetric <= 0 || score.RawMetric > 5 {
			t.Errorf("raw distance = %v km, want (0, 5]", score.RawMetric)
		}
	})

	t.Run("long distance contributes nothing", func(t *testing.T) {
		score, within := scorer.Score(f64(kalLat), f64(kalLon), f64(perLat), f64(perLon))
		if within {
			t.Error("Perth should not be within the Kalgoorlie service area")
		}
		if score.Contribution != 0 {
			t.Errorf("contribution = %d, want 0", score.Contribution)
		}
		if score.RawMetric < 400 || score.RawMetric > 700 {
			t.Errorf("raw distance = %v km, want roughly 550", score.RawMetric)
		}
	})

	t.Run("missing coordinates are neutral", func(t *testing.T) {
		score, within := scorer.Score(f64(kalLat), f64(kalLon), nil, nil)
		if score.Used || within || score.Contribution != 0 {
			t.Errorf("score = %+v within=%v, want unused neutral", score, within)
		}
	})
}

func TestTemporalScorer(t *testing.T) {
	scorer := NewTemporalScorer(config.DefaultEngine().Temporal)

	tests := []struct {
		name     string
		trip     *time.Time
		payment  *time.Time
		wantPts  int
		wantUsed bool
		wantGap  float64
	}{
		{
			name:     "same day",
			trip:     date(2026, time.March, 4),
			payment:  date(2026, time.March, 4),
			wantPts:  30,
			wantUsed: true,
			wantGap:  0,
		},
		{
			name:     "two days either direction",
			trip:     date(2026, time.March, 6),
			payment:  date(2026, time.March, 4),
			wantPts:  25,
			wantUsed: true,
			wantGap:  2,
		},
		{
			name:     "one week",
			trip:     date(2026, time.March, 4),
			payment:  date(2026, time.March, 11),
			wantPts:  15,
			wantUsed: true,
			wantGap:  7,
		},
		{
			name:     "beyond the large gap threshold",
			trip:     date(2026, time.March, 4),
			payment:  date(2026, time.April, 20),
			wantPts:  0,
			wantUsed: true,
			wantGap:  47,
		},
		{
			name:     "missing date is neutral",
			trip:     date(2026, time.March, 4),
			payment:  nil,
			wantPts:  0,
			wantUsed: false,
			wantGap:  0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			score := scorer.Score(tt.trip, tt.payment)
			if score.Contribution != tt.wantPts {
				t.Errorf("contribution = %d, want %d", score.Contribution, tt.wantPts)
			}
			if score.Used != tt.wantUsed {
				t.Errorf("used = %v, want %v", score.Used, tt.wantUsed)
			}
			if score.RawMetric != tt.wantGap {
				t.Errorf("raw gap = %v, want %v", score.RawMetric, tt.wantGap)
			}
		})
	}
}
