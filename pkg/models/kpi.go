package models

import "time"

// KPIKind selects the adaptation direction of a KPI target.
type KPIKind string

const (
	// KPIKindRatio targets move up towards their ceiling as performance improves.
	KPIKindRatio KPIKind = "ratio"
	// KPIKindDuration targets (time-to-hire, resolution time) move down towards their floor.
	KPIKindDuration KPIKind = "duration"
)

// Trend describes the recent direction of a tracked value.
type Trend string

const (
	TrendImproving Trend = "improving"
	TrendStable    Trend = "stable"
	TrendDeclining Trend = "declining"
)

// KPITarget is an adaptive goal value bounded by its domain [Min, Max].
type KPITarget struct {
	Name         string    `json:"name"          validate:"required"                    yaml:"name"`
	Kind         KPIKind   `json:"kind"          validate:"required,oneof=ratio duration" yaml:"kind"`
	CurrentValue float64   `json:"current_value"                                        yaml:"value"`
	Min          float64   `json:"min"                                                  yaml:"min"`
	Max          float64   `json:"max"           validate:"gtfield=Min"                 yaml:"max"`
	Unit         string    `json:"unit,omitempty"                                       yaml:"unit"`
	Trend        Trend     `json:"trend"                                                yaml:"-"`
	UpdatedAt    time.Time `json:"updated_at"                                           yaml:"-"`
}

// Attainment reports how far the current value sits towards the favourable
// end of the domain, in [0, 1].
func (k KPITarget) Attainment() float64 {
	span := k.Max - k.Min
	if span <= 0 {
		return 0
	}

	position := (k.CurrentValue - k.Min) / span
	if k.Kind == KPIKindDuration {
		position = 1 - position
	}

	switch {
	case position < 0:
		return 0
	case position > 1:
		return 1
	default:
		return position
	}
}
