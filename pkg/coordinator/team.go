package coordinator

import (
	"github.com/dukex/teamflow/pkg/teams"
	"github.com/dukex/teamflow/pkg/workflow"
)

// Team is either an Active workflow or an inert Placeholder.
type Team interface {
	teamName() string
}

// Active is a team backed by a running workflow.
type Active struct {
	Workflow *workflow.Workflow
}

func (a Active) teamName() string {
	if a.Workflow == nil {
		return ""
	}

	return a.Workflow.Team()
}

// Placeholder is a registered team with no workflow behind it.
type Placeholder struct {
	Name   string
	Status string
}

func (p Placeholder) teamName() string {
	return p.Name
}

// NameOf returns the registered name of team, or "" for a nil team or an
// Active team without a workflow.
func NameOf(team Team) string {
	if team == nil {
		return ""
	}

	return team.teamName()
}

// FromPlaceholders converts the static placeholder table into teams.
func FromPlaceholders(placeholders []teams.Placeholder) []Team {
	result := make([]Team, 0, len(placeholders))
	for _, placeholder := range placeholders {
		status := placeholder.Status
		if status == "" {
			status = teams.PlaceholderStatus
		}

		result = append(result, Placeholder{Name: placeholder.Name, Status: status})
	}

	return result
}
