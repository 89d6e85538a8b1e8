package coordinator

import (
	"time"

	"github.com/dukex/teamflow/pkg/models"
	"github.com/dukex/teamflow/pkg/workflow"
)

const (
	TeamStatusActive   = "active"
	TeamStatusInactive = "inactive"
)

// TeamSummary is one row of the coordinator views. Status is "active",
// "inactive" or the placeholder status.
type TeamSummary struct {
	Name        string                  `json:"name"`
	Active      bool                    `json:"active"`
	Placeholder bool                    `json:"placeholder"`
	Status      string                  `json:"status"`
	Processes   *workflow.ProcessCounts `json:"processes,omitempty"`
	Score       *float64                `json:"score,omitempty"`
}

type ConsolidatedReport struct {
	GeneratedAt   time.Time             `json:"generated_at"`
	ActiveTeams   int                   `json:"active_teams"`
	TotalTeams    int                   `json:"total_teams"`
	Teams         []TeamSummary         `json:"teams"`
	SharedMetrics []models.SharedMetric `json:"shared_metrics"`
	Opportunities []Opportunity         `json:"opportunities"`
}

type Status struct {
	Running              bool          `json:"running"`
	StartedAt            *time.Time    `json:"started_at,omitempty"`
	ActiveTeams          int           `json:"active_teams"`
	TotalTeams           int           `json:"total_teams"`
	Teams                []TeamSummary `json:"teams"`
	CrossTeamCycles      int           `json:"cross_team_cycles"`
	ReportCycles         int           `json:"report_cycles"`
	LastCrossTeamAt      *time.Time    `json:"last_cross_team_at,omitempty"`
	LastReportAt         *time.Time    `json:"last_report_at,omitempty"`
	OptimizationInterval time.Duration `json:"optimization_interval"`
	ReportInterval       time.Duration `json:"report_interval"`
}

type Dashboard struct {
	Running         bool                  `json:"running"`
	Teams           []TeamSummary         `json:"teams"`
	AverageScore    *float64              `json:"average_score,omitempty"`
	LowPerformers   []string              `json:"low_performers"`
	Opportunities   []Opportunity         `json:"opportunities"`
	SharedMetrics   []models.SharedMetric `json:"shared_metrics"`
	ResourceLedger  []ResourceAllocation  `json:"resource_ledger"`
	KnowledgeLedger []KnowledgeTransfer   `json:"knowledge_ledger"`
	Dependencies    map[string][]string   `json:"dependencies"`
}

// TeamDetails is the full view of one registered team. Workflow views are
// nil for placeholders.
type TeamDetails struct {
	TeamSummary

	DependsOn []string            `json:"depends_on"`
	Related   []string            `json:"related"`
	Workflow  *workflow.Status    `json:"workflow,omitempty"`
	Dashboard *workflow.Dashboard `json:"dashboard,omitempty"`
}

func (c *Coordinator) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()

	status := Status{
		Running:              c.running,
		StartedAt:            copyTime(c.startedAt),
		ActiveTeams:          len(c.active),
		TotalTeams:           len(c.teams),
		Teams:                c.summariesLocked(),
		CrossTeamCycles:      c.crossTeamCycles,
		ReportCycles:         c.reportCycles,
		OptimizationInterval: c.cfg.OptimizationInterval,
		ReportInterval:       c.cfg.ReportInterval,
	}

	if c.lastCrossTeam != nil {
		status.LastCrossTeamAt = copyTime(&c.lastCrossTeam.GeneratedAt)
	}

	if c.lastReport != nil {
		status.LastReportAt = copyTime(&c.lastReport.GeneratedAt)
	}

	return status
}

// Dashboard reports the state left by the last cross-team cycle.
func (c *Coordinator) Dashboard() Dashboard {
	c.mu.Lock()
	defer c.mu.Unlock()

	dashboard := Dashboard{
		Running:         c.running,
		Teams:           c.summariesLocked(),
		LowPerformers:   []string{},
		Opportunities:   []Opportunity{},
		SharedMetrics:   c.sharedMetricsLocked(),
		ResourceLedger:  append([]ResourceAllocation{}, c.resources...),
		KnowledgeLedger: append([]KnowledgeTransfer{}, c.knowledge...),
		Dependencies:    make(map[string][]string, len(c.edges)),
	}

	for team, dependsOn := range c.edges {
		dashboard.Dependencies[team] = append([]string{}, dependsOn...)
	}

	if last := c.lastCrossTeam; last != nil {
		average := last.AverageScore
		dashboard.AverageScore = &average
		dashboard.LowPerformers = append(dashboard.LowPerformers, last.LowPerformers...)
		dashboard.Opportunities = cloneOpportunities(last.Opportunities)
	}

	return dashboard
}

// TeamDetails returns the view of name, or false when it is not registered.
func (c *Coordinator) TeamDetails(name string) (TeamDetails, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	team, exists := c.teams[name]
	if !exists {
		return TeamDetails{}, false
	}

	details := TeamDetails{
		TeamSummary: c.summaryLocked(name, team),
		DependsOn:   append([]string{}, c.edges[name]...),
		Related:     c.relatedLocked(name),
	}

	if active, ok := team.(Active); ok {
		status := active.Workflow.Status()
		dashboard := active.Workflow.Dashboard()
		details.Workflow = &status
		details.Dashboard = &dashboard
	}

	return details, true
}

func (c *Coordinator) summariesLocked() []TeamSummary {
	names := c.namesLocked()
	summaries := make([]TeamSummary, 0, len(names))

	for _, name := range names {
		summaries = append(summaries, c.summaryLocked(name, c.teams[name]))
	}

	return summaries
}

func (c *Coordinator) summaryLocked(name string, team Team) TeamSummary {
	summary := TeamSummary{Name: name, Active: c.active[name]}

	if score, ok := c.scores[name]; ok {
		summary.Score = &score
	}

	switch t := team.(type) {
	case Placeholder:
		summary.Placeholder = true
		summary.Status = t.Status
	case Active:
		summary.Status = TeamStatusInactive
		if summary.Active {
			summary.Status = TeamStatusActive
		}

		counts := t.Workflow.Status().Processes
		summary.Processes = &counts
	}

	return summary
}

func copyTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}

	c := *t

	return &c
}
