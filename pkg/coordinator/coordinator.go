// Package coordinator composes team workflows, resolves the team dependency
// list and aggregates cross-team performance on its own two timers.
package coordinator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/dukex/teamflow/pkg/alerts"
	"github.com/dukex/teamflow/pkg/eventbus"
	"github.com/dukex/teamflow/pkg/events"
	"github.com/dukex/teamflow/pkg/metrics"
	"github.com/dukex/teamflow/pkg/models"
	"github.com/dukex/teamflow/pkg/otelhelper"
	"github.com/dukex/teamflow/pkg/scheduler"
	"github.com/dukex/teamflow/pkg/workflow"
	"go.opentelemetry.io/otel/attribute"
)

// Name keys every event the coordinator publishes.
const Name = "coordinator"

const (
	jobCrossTeamOptimization = "cross_team_optimization"
	jobConsolidatedReport    = "consolidated_report"
)

type Coordinator struct {
	cfg    Config
	deps   Dependencies
	logger *slog.Logger

	mu              sync.Mutex
	running         bool
	startedAt       *time.Time
	scheduler       scheduler.Scheduler
	teams           map[string]Team
	active          map[string]bool
	edges           map[string][]string
	scores          map[string]float64
	sharedMetrics   map[string]models.SharedMetric
	resources       []ResourceAllocation
	knowledge       []KnowledgeTransfer
	crossTeamCycles int
	reportCycles    int
	lastCrossTeam   *CrossTeamReport
	lastReport      *ConsolidatedReport
}

// New registers teams and validates the dependency list. Repeated team names
// and edges naming an unregistered team are ConfigurationErrors.
func New(cfg Config, teamList []Team, deps Dependencies) (*Coordinator, error) {
	const op = "coordinator.New"

	cfg = cfg.withDefaults()
	deps = deps.withDefaults()

	c := &Coordinator{
		cfg:           cfg,
		deps:          deps,
		logger:        deps.Logger.With("module", "coordinator"),
		teams:         make(map[string]Team, len(teamList)),
		active:        make(map[string]bool),
		edges:         make(map[string][]string),
		scores:        make(map[string]float64),
		sharedMetrics: make(map[string]models.SharedMetric),
	}

	for _, team := range teamList {
		name := NameOf(team)
		if name == "" {
			return nil, models.NewConfigurationError(op, "", fmt.Errorf("%w: team name is required", models.ErrInvalidDefinition))
		}

		if _, exists := c.teams[name]; exists {
			return nil, models.NewConfigurationError(op, name, models.ErrDuplicateTeam)
		}

		c.teams[name] = team
	}

	for _, edge := range cfg.Dependencies {
		if _, exists := c.teams[edge.Team]; !exists {
			return nil, models.NewConfigurationError(op, edge.Team, models.ErrUnknownTeam)
		}

		if err := c.checkDependencies(edge.DependsOn); err != nil {
			return nil, models.NewConfigurationError(op, edge.Team, err)
		}

		c.addEdgesLocked(edge.Team, edge.DependsOn)
	}

	return c, nil
}

// Initialize starts every active team's workflow and schedules the
// coordinator cycles. A team whose workflow fails to start stays inactive.
func (c *Coordinator) Initialize(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.running {
		return ErrAlreadyInitialized
	}

	ctx, span := otelhelper.StartSpan(ctx, c.deps.Tracer, "coordinator.initialize")
	defer span.End()

	for _, name := range c.namesLocked() {
		active, ok := c.teams[name].(Active)
		if !ok {
			continue
		}

		if err := startWorkflow(ctx, active.Workflow); err != nil {
			c.logger.ErrorContext(ctx, "Failed to start team workflow", "team", name, "error", err)

			continue
		}

		c.active[name] = true
	}

	sched := c.deps.Scheduler(c.logger)

	err := errors.Join(
		sched.Every(jobCrossTeamOptimization, c.cfg.OptimizationInterval, c.crossTeamTick),
		sched.Every(jobConsolidatedReport, c.cfg.ReportInterval, c.reportTick),
	)
	if err != nil {
		sched.Stop()
		c.stopActiveLocked(ctx)
		otelhelper.SetError(span, err)

		return fmt.Errorf("failed to schedule coordinator cycles: %w", err)
	}

	now := c.deps.Clock.Now()
	c.running = true
	c.startedAt = &now
	c.scheduler = sched

	c.logger.InfoContext(ctx, "Coordinator initialized",
		"active_teams", len(c.active),
		"total_teams", len(c.teams),
	)

	return nil
}

// Shutdown cancels the coordinator timers and stops every workflow.
func (c *Coordinator) Shutdown(ctx context.Context) error {
	c.mu.Lock()

	if !c.running {
		c.mu.Unlock()

		return nil
	}

	c.running = false
	sched := c.scheduler
	c.scheduler = nil

	c.mu.Unlock()

	sched.Stop()

	c.mu.Lock()
	c.stopActiveLocked(ctx)
	c.mu.Unlock()

	c.logger.InfoContext(ctx, "Coordinator shut down")

	return nil
}

// AddTeam registers team with its dependencies. When the coordinator is
// running an Active team's workflow is started immediately.
func (c *Coordinator) AddTeam(ctx context.Context, team Team, dependsOn []string) error {
	name := NameOf(team)

	c.mu.Lock()

	if name == "" {
		c.mu.Unlock()

		return fmt.Errorf("%w: team name is required", models.ErrInvalidDefinition)
	}

	if _, exists := c.teams[name]; exists {
		c.mu.Unlock()

		return fmt.Errorf("%w: %s", models.ErrDuplicateTeam, name)
	}

	if err := c.checkDependencies(dependsOn); err != nil {
		c.mu.Unlock()

		return err
	}

	active, isActive := team.(Active)
	started := false

	if isActive && c.running {
		if err := startWorkflow(ctx, active.Workflow); err != nil {
			c.mu.Unlock()

			return fmt.Errorf("failed to start team %s: %w", name, err)
		}

		started = true
	}

	c.teams[name] = team
	c.addEdgesLocked(name, dependsOn)

	if started {
		c.active[name] = true
	}

	c.mu.Unlock()

	c.logger.InfoContext(ctx, "Team added", "team", name, "active", started)

	eventbus.Emit(ctx, c.deps.Publisher, c.logger, Name, events.TeamAdded{
		BaseEvent: events.NewBaseEvent(events.TeamAddedEvent, name),
		Active:    started,
		DependsOn: append([]string(nil), dependsOn...),
	})

	return nil
}

// RemoveTeam unregisters name, stops its workflow and drops every edge that
// mentions it.
func (c *Coordinator) RemoveTeam(ctx context.Context, name string) error {
	c.mu.Lock()

	team, exists := c.teams[name]
	if !exists {
		c.mu.Unlock()

		return fmt.Errorf("%w: %s", models.ErrUnknownTeam, name)
	}

	if active, ok := team.(Active); ok {
		if err := active.Workflow.Stop(ctx); err != nil {
			c.logger.WarnContext(ctx, "Failed to stop team workflow", "team", name, "error", err)
		}
	}

	delete(c.teams, name)
	delete(c.active, name)
	delete(c.edges, name)
	delete(c.scores, name)

	for team, dependsOn := range c.edges {
		c.edges[team] = slices.DeleteFunc(dependsOn, func(dependency string) bool {
			return dependency == name
		})
	}

	c.mu.Unlock()

	metrics.ForgetTeam(name)

	c.logger.InfoContext(ctx, "Team removed", "team", name)

	eventbus.Emit(ctx, c.deps.Publisher, c.logger, Name, events.TeamRemoved{
		BaseEvent: events.NewBaseEvent(events.TeamRemovedEvent, name),
	})

	return nil
}

// RelatedTeams lists the currently active teams team depends on, sorted.
// The "all" wildcard expands to every other active team.
func (c *Coordinator) RelatedTeams(team string) []string {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.relatedLocked(team)
}

// Workflow returns the workflow of an active team.
func (c *Coordinator) Workflow(name string) (*workflow.Workflow, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	team, exists := c.teams[name]
	if !exists {
		return nil, fmt.Errorf("%w: %s", models.ErrUnknownTeam, name)
	}

	active, ok := team.(Active)
	if !ok || !c.active[name] {
		return nil, fmt.Errorf("%w: %s", ErrTeamInactive, name)
	}

	return active.Workflow, nil
}

// HandleAlert routes alert through the router of team.
func (c *Coordinator) HandleAlert(ctx context.Context, team string, alert models.AlertEvent) (alerts.Dispatch, error) {
	w, err := c.Workflow(team)
	if err != nil {
		return alerts.Dispatch{}, err
	}

	return w.HandleAlert(ctx, alert)
}

// RunCrossTeamOptimizationCycle scores every active team, flags low
// performers, derives the opportunity catalogue and updates the shared
// metrics and ledgers.
func (c *Coordinator) RunCrossTeamOptimizationCycle(ctx context.Context) (CrossTeamReport, error) {
	c.mu.Lock()

	if !c.running {
		c.mu.Unlock()

		return CrossTeamReport{}, ErrNotInitialized
	}

	ctx, span := otelhelper.StartSpan(ctx, c.deps.Tracer, "coordinator.cross_team_optimization",
		attribute.String(otelhelper.CycleKey, metrics.CycleCrossTeamOptimization),
	)
	defer span.End()

	now := c.deps.Clock.Now()
	snapshots := c.snapshotsLocked()

	report := CrossTeamReport{
		GeneratedAt:   now,
		ActiveTeams:   len(snapshots),
		Scores:        make(map[string]float64, len(snapshots)),
		LowPerformers: []string{},
	}

	total := 0.0

	for _, snapshot := range snapshots {
		score := Score(snapshot.dashboard)
		report.Scores[snapshot.name] = score
		total += score

		if score < c.cfg.ScoreThreshold {
			report.LowPerformers = append(report.LowPerformers, snapshot.name)
		}
	}

	if len(snapshots) > 0 {
		report.AverageScore = total / float64(len(snapshots))
	}

	report.Opportunities = c.opportunitiesLocked(snapshots, report.Scores, report.LowPerformers, now)
	c.updateSharedMetricsLocked(snapshots, report.Scores, now)
	report.SharedMetrics = c.sharedMetricsLocked()

	scores := make(map[string]float64, len(report.Scores))
	for team, score := range report.Scores {
		scores[team] = score
	}

	last := cloneReport(report)
	c.scores = scores
	c.crossTeamCycles++
	c.lastCrossTeam = &last

	c.mu.Unlock()

	for team, score := range scores {
		metrics.SetTeamPerformance(team, score)
	}

	metrics.ObserveCycle(Name, metrics.CycleCrossTeamOptimization)

	available := make([]string, 0, len(report.Opportunities))
	for _, opportunity := range report.Opportunities {
		if len(opportunity.Teams) > 0 {
			available = append(available, opportunity.Type)
		}
	}

	c.logger.InfoContext(ctx, "Cross-team optimization completed",
		"active_teams", report.ActiveTeams,
		"average_score", report.AverageScore,
		"low_performers", len(report.LowPerformers),
	)

	eventbus.Emit(ctx, c.deps.Publisher, c.logger, Name, events.CrossTeamOptimizationCompleted{
		BaseEvent:     events.NewBaseEvent(events.CrossTeamOptimizationCompletedEvent, Name),
		ActiveTeams:   report.ActiveTeams,
		AverageScore:  report.AverageScore,
		LowPerformers: append([]string(nil), report.LowPerformers...),
		Opportunities: available,
	})

	return report, nil
}

// RunReportCycle builds the consolidated report over every registered team.
func (c *Coordinator) RunReportCycle(ctx context.Context) (ConsolidatedReport, error) {
	c.mu.Lock()

	if !c.running {
		c.mu.Unlock()

		return ConsolidatedReport{}, ErrNotInitialized
	}

	report := ConsolidatedReport{
		GeneratedAt:   c.deps.Clock.Now(),
		ActiveTeams:   len(c.active),
		TotalTeams:    len(c.teams),
		Teams:         c.summariesLocked(),
		SharedMetrics: c.sharedMetricsLocked(),
		Opportunities: []Opportunity{},
	}

	if c.lastCrossTeam != nil {
		report.Opportunities = cloneOpportunities(c.lastCrossTeam.Opportunities)
	}

	c.reportCycles++
	c.lastReport = &report

	c.mu.Unlock()

	metrics.ObserveCycle(Name, metrics.CycleCrossTeamReport)

	c.logger.InfoContext(ctx, "Consolidated report generated",
		"active_teams", report.ActiveTeams,
		"total_teams", report.TotalTeams,
	)

	eventbus.Emit(ctx, c.deps.Publisher, c.logger, Name, events.CrossTeamReportGenerated{
		BaseEvent:     events.NewBaseEvent(events.CrossTeamReportGeneratedEvent, Name),
		ActiveTeams:   report.ActiveTeams,
		TotalTeams:    report.TotalTeams,
		SharedMetrics: report.SharedMetrics,
	})

	return report, nil
}

func (c *Coordinator) crossTeamTick(ctx context.Context) {
	if _, err := c.RunCrossTeamOptimizationCycle(ctx); err != nil && !errors.Is(err, ErrNotInitialized) {
		c.logger.ErrorContext(ctx, "Cross-team optimization failed", "error", err)
	}
}

func (c *Coordinator) reportTick(ctx context.Context) {
	if _, err := c.RunReportCycle(ctx); err != nil && !errors.Is(err, ErrNotInitialized) {
		c.logger.ErrorContext(ctx, "Consolidated report failed", "error", err)
	}
}

// checkDependencies rejects names that are neither registered nor the wildcard.
func (c *Coordinator) checkDependencies(dependsOn []string) error {
	for _, dependency := range dependsOn {
		if dependency == models.DependsOnAll {
			continue
		}

		if _, exists := c.teams[dependency]; !exists {
			return fmt.Errorf("%w: %s", models.ErrUnknownTeam, dependency)
		}
	}

	return nil
}

func (c *Coordinator) addEdgesLocked(team string, dependsOn []string) {
	for _, dependency := range dependsOn {
		if dependency == team || slices.Contains(c.edges[team], dependency) {
			continue
		}

		c.edges[team] = append(c.edges[team], dependency)
	}
}

func (c *Coordinator) relatedLocked(team string) []string {
	related := []string{}

	for _, dependency := range c.edges[team] {
		if dependency == models.DependsOnAll {
			related = related[:0]

			for name := range c.active {
				if name != team {
					related = append(related, name)
				}
			}

			break
		}

		if c.active[dependency] {
			related = append(related, dependency)
		}
	}

	sort.Strings(related)

	return related
}

func (c *Coordinator) stopActiveLocked(ctx context.Context) {
	for _, name := range c.namesLocked() {
		if !c.active[name] {
			continue
		}

		if err := c.teams[name].(Active).Workflow.Stop(ctx); err != nil {
			c.logger.WarnContext(ctx, "Failed to stop team workflow", "team", name, "error", err)
		}

		delete(c.active, name)
	}
}

func (c *Coordinator) namesLocked() []string {
	names := make([]string, 0, len(c.teams))
	for name := range c.teams {
		names = append(names, name)
	}

	sort.Strings(names)

	return names
}

func startWorkflow(ctx context.Context, w *workflow.Workflow) error {
	if err := w.Start(ctx); err != nil && !errors.Is(err, workflow.ErrAlreadyRunning) {
		return err
	}

	return nil
}
