package models

import "time"

// Severity grades an alert.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// AlertEvent is a transient signal raised against a team. It is consumed at
// most once.
type AlertEvent struct {
	ID              string         `json:"id,omitempty"`
	Kind            string         `json:"kind"                       validate:"required"`
	Severity        Severity       `json:"severity"                   validate:"required,oneof=low medium high critical"`
	RiskProbability float64        `json:"risk_probability,omitempty" validate:"gte=0,lte=1"`
	Payload         map[string]any `json:"payload,omitempty"`
	SourceTeam      string         `json:"source_team"`
	ReceivedAt      time.Time      `json:"received_at"`
}
