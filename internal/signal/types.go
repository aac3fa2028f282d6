package signal

// Kind identifies one independent source of match evidence
type Kind string

const (
	KindText     Kind = "text"
	KindGeo      Kind = "geospatial"
	KindTemporal Kind = "temporal"
)

// Score is one scorer's bounded confidence contribution. RawMetric keeps
// the underlying measurement (similarity ratio, distance in km, day gap)
// so stored correlations stay interpretable after the bands change.
type Score struct {
	Kind         Kind    `json:"signal_kind"`
	Contribution int     `json:"contribution"`
	Used         bool    `json:"used"`
	RawMetric    float64 `json:"raw_metric"`
}

// Identity carries one side's resolved canonical identifiers. Empty
// fields mean the source record had no value for that entity.
type Identity struct {
	Business string
	Location string
	Terminal string
}

// TextDetail reports the per-entity outcomes behind a text score,
// retained on the correlation for reporting.
type TextDetail struct {
	BusinessMatch bool
	LocationMatch bool
	TerminalMatch bool
}
