package models

import "time"

// Impact grades the expected effect of an insight or alert.
type Impact string

const (
	ImpactLow      Impact = "low"
	ImpactMedium   Impact = "medium"
	ImpactHigh     Impact = "high"
	ImpactCritical Impact = "critical"
)

// Insight is a structured recommendation derived from a process's latest metrics.
type Insight struct {
	ID                     string    `json:"id"`
	Team                   string    `json:"team"`
	Process                string    `json:"process"`
	Type                   string    `json:"type"`
	Impact                 Impact    `json:"impact"`
	Description            string    `json:"description"`
	PotentialSaving        float64   `json:"potential_saving"`
	ImplementationTimeline string    `json:"implementation_timeline"`
	KeyActions             []string  `json:"key_actions"`
	GeneratedAt            time.Time `json:"generated_at"`
}
