package coordinator

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/dukex/teamflow/pkg/models"
	"github.com/dukex/teamflow/pkg/workflow"
)

// Score weights.
const (
	weightEfficiency    = 0.35
	weightEffectiveness = 0.35
	weightSatisfaction  = 0.2
	weightAttainment    = 0.1

	// neutralScore is used when a team has nothing measured yet.
	neutralScore = 0.5

	// trendTolerance is the smallest change of a shared metric that counts
	// as a trend.
	trendTolerance = 0.01

	// weakEffectiveness marks a process as an optimization candidate.
	weakEffectiveness = 0.5
)

const (
	OpportunityPerformanceBoost    = "performance_boost"
	OpportunityResourceSharing     = "resource_sharing"
	OpportunityKnowledgeTransfer   = "knowledge_transfer"
	OpportunityProcessOptimization = "process_optimization"
)

// Shared metric names.
const (
	MetricTeamPerformance = "team_performance"
	MetricEfficiency      = "efficiency"
	MetricEffectiveness   = "effectiveness"
	MetricSatisfaction    = "satisfaction"
	MetricKPIAttainment   = "kpi_attainment"
)

type Opportunity struct {
	Type        string   `json:"type"`
	Teams       []string `json:"teams"`
	Description string   `json:"description"`
}

// ResourceAllocation records capacity lent by one team to a struggling
// dependency.
type ResourceAllocation struct {
	From  string    `json:"from"`
	To    string    `json:"to"`
	Share float64   `json:"share"`
	At    time.Time `json:"at"`
}

// KnowledgeTransfer records a practice handed from the best team to a low
// performer.
type KnowledgeTransfer struct {
	From     string    `json:"from"`
	To       string    `json:"to"`
	Practice string    `json:"practice"`
	At       time.Time `json:"at"`
}

type CrossTeamReport struct {
	GeneratedAt   time.Time             `json:"generated_at"`
	ActiveTeams   int                   `json:"active_teams"`
	AverageScore  float64               `json:"average_score"`
	Scores        map[string]float64    `json:"scores"`
	LowPerformers []string              `json:"low_performers"`
	Opportunities []Opportunity         `json:"opportunities"`
	SharedMetrics []models.SharedMetric `json:"shared_metrics"`
}

type snapshot struct {
	name      string
	status    workflow.Status
	dashboard workflow.Dashboard
}

// Score is the weighted average of the indicators a dashboard carries, or
// 0.5 when it carries none.
func Score(dashboard workflow.Dashboard) float64 {
	var sum, weights float64

	if dashboard.Metrics != nil {
		sum += weightEfficiency*dashboard.Metrics.Efficiency +
			weightEffectiveness*dashboard.Metrics.Effectiveness +
			weightSatisfaction*dashboard.Metrics.Satisfaction
		weights += weightEfficiency + weightEffectiveness + weightSatisfaction
	}

	if dashboard.KPIAttainment != nil {
		sum += weightAttainment * *dashboard.KPIAttainment
		weights += weightAttainment
	}

	if weights == 0 {
		return neutralScore
	}

	return sum / weights
}

// snapshotsLocked reads every active team in name order. Each read waits for
// that team's in-flight cycle.
func (c *Coordinator) snapshotsLocked() []snapshot {
	snapshots := make([]snapshot, 0, len(c.active))

	for _, name := range c.namesLocked() {
		if !c.active[name] {
			continue
		}

		w := c.teams[name].(Active).Workflow
		snapshots = append(snapshots, snapshot{
			name:      name,
			status:    w.Status(),
			dashboard: w.Dashboard(),
		})
	}

	return snapshots
}

func (c *Coordinator) opportunitiesLocked(snapshots []snapshot, scores map[string]float64, low []string, now time.Time) []Opportunity {
	isLow := make(map[string]bool, len(low))
	for _, name := range low {
		isLow[name] = true
	}

	boost := Opportunity{
		Type:        OpportunityPerformanceBoost,
		Teams:       append([]string{}, low...),
		Description: fmt.Sprintf("Raise %d teams scoring below %.2f", len(low), c.cfg.ScoreThreshold),
	}

	sharing := Opportunity{
		Type:        OpportunityResourceSharing,
		Description: "Lend capacity from healthy dependencies to low performers",
	}

	var allocations []ResourceAllocation

	for _, recipient := range low {
		for _, donor := range c.relatedLocked(recipient) {
			if isLow[donor] {
				continue
			}

			allocations = append(allocations, ResourceAllocation{
				From:  donor,
				To:    recipient,
				Share: math.Round((scores[donor]-scores[recipient])/2*100) / 100,
				At:    now,
			})
			sharing.Teams = append(sharing.Teams, donor, recipient)
		}
	}

	sharing.Teams = uniqueSorted(sharing.Teams)
	c.resources = appendBounded(c.resources, allocations, c.cfg.LedgerSize)

	transfer := Opportunity{
		Type:        OpportunityKnowledgeTransfer,
		Teams:       []string{},
		Description: "Share the practices of the best performing team",
	}

	if best, ok := bestTeam(snapshots, scores, isLow); ok && len(low) > 0 {
		practice := bestPractice(best.dashboard)
		transfers := make([]KnowledgeTransfer, 0, len(low))

		for _, recipient := range low {
			transfers = append(transfers, KnowledgeTransfer{From: best.name, To: recipient, Practice: practice, At: now})
		}

		transfer.Teams = uniqueSorted(append([]string{best.name}, low...))
		transfer.Description = fmt.Sprintf("Share %s practices from %s", practice, best.name)
		c.knowledge = appendBounded(c.knowledge, transfers, c.cfg.LedgerSize)
	}

	optimization := Opportunity{
		Type:        OpportunityProcessOptimization,
		Teams:       []string{},
		Description: "Review failed or weak processes",
	}

	for _, snapshot := range snapshots {
		if snapshot.status.Processes.Failed > 0 || hasWeakProcess(snapshot.dashboard) {
			optimization.Teams = append(optimization.Teams, snapshot.name)
		}
	}

	return []Opportunity{boost, sharing, transfer, optimization}
}

func (c *Coordinator) updateSharedMetricsLocked(snapshots []snapshot, scores map[string]float64, now time.Time) {
	type aggregate struct {
		sum          float64
		contributors []string
	}

	aggregates := map[string]*aggregate{
		MetricTeamPerformance: {},
		MetricEfficiency:      {},
		MetricEffectiveness:   {},
		MetricSatisfaction:    {},
		MetricKPIAttainment:   {},
	}

	add := func(metric, team string, value float64) {
		aggregates[metric].sum += value
		aggregates[metric].contributors = append(aggregates[metric].contributors, team)
	}

	for _, snapshot := range snapshots {
		add(MetricTeamPerformance, snapshot.name, scores[snapshot.name])

		if m := snapshot.dashboard.Metrics; m != nil {
			add(MetricEfficiency, snapshot.name, m.Efficiency)
			add(MetricEffectiveness, snapshot.name, m.Effectiveness)
			add(MetricSatisfaction, snapshot.name, m.Satisfaction)
		}

		if attainment := snapshot.dashboard.KPIAttainment; attainment != nil {
			add(MetricKPIAttainment, snapshot.name, *attainment)
		}
	}

	for name, agg := range aggregates {
		if len(agg.contributors) == 0 {
			continue
		}

		value := agg.sum / float64(len(agg.contributors))
		trend := models.TrendStable

		if previous, exists := c.sharedMetrics[name]; exists {
			switch delta := value - previous.Value; {
			case delta > trendTolerance:
				trend = models.TrendImproving
			case delta < -trendTolerance:
				trend = models.TrendDeclining
			}
		}

		c.sharedMetrics[name] = models.SharedMetric{
			Name:         name,
			Value:        value,
			Trend:        trend,
			LastUpdate:   now,
			Contributors: agg.contributors,
		}
	}
}

// sharedMetricsLocked returns copies of the shared metrics ordered by name.
func (c *Coordinator) sharedMetricsLocked() []models.SharedMetric {
	shared := make([]models.SharedMetric, 0, len(c.sharedMetrics))

	for _, metric := range c.sharedMetrics {
		metric.Contributors = append([]string(nil), metric.Contributors...)
		shared = append(shared, metric)
	}

	sort.Slice(shared, func(i, j int) bool {
		return shared[i].Name < shared[j].Name
	})

	return shared
}

// bestTeam picks the highest scoring team that is not a low performer; ties
// go to the first name.
func bestTeam(snapshots []snapshot, scores map[string]float64, isLow map[string]bool) (snapshot, bool) {
	var (
		best  snapshot
		found bool
	)

	for _, candidate := range snapshots {
		if isLow[candidate.name] {
			continue
		}

		if !found || scores[candidate.name] > scores[best.name] {
			best = candidate
			found = true
		}
	}

	return best, found
}

// bestPractice names the most effective process of a dashboard.
func bestPractice(dashboard workflow.Dashboard) string {
	practice := "operating"
	best := -1.0

	for _, process := range dashboard.Processes {
		if process.Runs > 0 && process.Metrics.Effectiveness > best {
			best = process.Metrics.Effectiveness
			practice = process.Name
		}
	}

	return practice
}

func hasWeakProcess(dashboard workflow.Dashboard) bool {
	for _, process := range dashboard.Processes {
		if process.Runs > 0 && process.Metrics.Effectiveness < weakEffectiveness {
			return true
		}
	}

	return false
}

func uniqueSorted(names []string) []string {
	seen := make(map[string]bool, len(names))
	unique := make([]string, 0, len(names))

	for _, name := range names {
		if !seen[name] {
			seen[name] = true
			unique = append(unique, name)
		}
	}

	sort.Strings(unique)

	return unique
}

func appendBounded[T any](ledger, entries []T, limit int) []T {
	ledger = append(ledger, entries...)
	if len(ledger) > limit {
		ledger = append([]T(nil), ledger[len(ledger)-limit:]...)
	}

	return ledger
}

func cloneOpportunities(opportunities []Opportunity) []Opportunity {
	cloned := make([]Opportunity, 0, len(opportunities))
	for _, opportunity := range opportunities {
		opportunity.Teams = append([]string{}, opportunity.Teams...)
		cloned = append(cloned, opportunity)
	}

	return cloned
}

func cloneReport(report CrossTeamReport) CrossTeamReport {
	scores := make(map[string]float64, len(report.Scores))
	for team, score := range report.Scores {
		scores[team] = score
	}

	report.Scores = scores
	report.LowPerformers = append([]string{}, report.LowPerformers...)
	report.Opportunities = cloneOpportunities(report.Opportunities)
	report.SharedMetrics = append([]models.SharedMetric(nil), report.SharedMetrics...)

	return report
}
