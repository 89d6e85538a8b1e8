package web

import (
	"time"

	"github.com/dukex/teamflow/pkg/journal"
	"github.com/dukex/teamflow/pkg/models"
)

// AlertRequest is the body of POST /teams/:name/alerts.
type AlertRequest struct {
	ID              string         `json:"id,omitempty"`
	Kind            string         `json:"kind"                       validate:"required"`
	Severity        string         `json:"severity"                   validate:"required,oneof=low medium high critical"`
	RiskProbability float64        `json:"risk_probability,omitempty" validate:"gte=0,lte=1"`
	Payload         map[string]any `json:"payload,omitempty"`
	SourceTeam      string         `json:"source_team,omitempty"`
}

// ToAlert converts the request into an alert received at now.
func (r AlertRequest) ToAlert(now time.Time) models.AlertEvent {
	return models.AlertEvent{
		ID:              r.ID,
		Kind:            r.Kind,
		Severity:        models.Severity(r.Severity),
		RiskProbability: r.RiskProbability,
		Payload:         r.Payload,
		SourceTeam:      r.SourceTeam,
		ReceivedAt:      now,
	}
}

type RelatedResponse struct {
	Team    string   `json:"team"`
	Related []string `json:"related"`
}

type EventsResponse struct {
	Events []journal.Entry `json:"events"`
	Limit  int             `json:"limit"`
}
