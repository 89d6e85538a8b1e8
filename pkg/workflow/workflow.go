// Package workflow composes the registry, KPI adapter, insight generator and
// alert router of one team into a unit driven by two independent timers.
package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/dukex/teamflow/pkg/alerts"
	"github.com/dukex/teamflow/pkg/eventbus"
	"github.com/dukex/teamflow/pkg/events"
	"github.com/dukex/teamflow/pkg/insights"
	"github.com/dukex/teamflow/pkg/kpi"
	"github.com/dukex/teamflow/pkg/metrics"
	"github.com/dukex/teamflow/pkg/models"
	"github.com/dukex/teamflow/pkg/otelhelper"
	"github.com/dukex/teamflow/pkg/registry"
	"github.com/dukex/teamflow/pkg/scheduler"
	"go.opentelemetry.io/otel/attribute"
)

const (
	jobOptimization = "optimization"
	jobReport       = "report"
)

var (
	ErrAlreadyRunning = errors.New("workflow already running")
	ErrNotRunning     = errors.New("workflow not running")
)

type Workflow struct {
	cfg       Config
	deps      Dependencies
	logger    *slog.Logger
	adapter   *kpi.Adapter
	generator *insights.Generator
	router    *alerts.Router

	mu                 sync.Mutex
	running            bool
	registry           *registry.Registry
	scheduler          scheduler.Scheduler
	startedAt          *time.Time
	optimizationCycles int
	reportCycles       int
	lastOptimizationAt *time.Time
	lastReport         *Report
	recentInsights     []models.Insight
}

// New validates cfg and builds a stopped workflow. Invalid definitions,
// repeated process names and unknown KPIs are ConfigurationErrors.
func New(cfg Config, deps Dependencies) (*Workflow, error) {
	const op = "workflow.New"

	cfg = cfg.withDefaults()
	deps = deps.withDefaults()

	if cfg.Team == "" {
		return nil, models.NewConfigurationError(op, "", fmt.Errorf("%w: team name is required", models.ErrInvalidDefinition))
	}

	if deps.Provider == nil {
		return nil, models.NewConfigurationError(op, cfg.Team, ErrMissingProvider)
	}

	adapter, err := kpi.NewAdapter(cfg.KPIs, cfg.StepFactor, deps.Clock)
	if err != nil {
		return nil, models.NewConfigurationError(op, cfg.Team, fmt.Errorf("%w: %v", models.ErrInvalidDefinition, err))
	}

	seen := make(map[string]bool, len(cfg.Processes))

	for _, def := range cfg.Processes {
		if err := registry.ValidateDefinition(def); err != nil {
			return nil, models.NewConfigurationError(op, def.Name, err)
		}

		if seen[def.Name] {
			return nil, models.NewConfigurationError(op, def.Name, models.ErrDuplicateProcess)
		}

		seen[def.Name] = true

		if !adapter.Has(def.KPIName) {
			return nil, models.NewConfigurationError(op, def.Name, fmt.Errorf("%w: %s", models.ErrUnknownKPI, def.KPIName))
		}
	}

	if err := cfg.Insights.Validate(); err != nil {
		return nil, models.NewConfigurationError(op, cfg.Team, fmt.Errorf("%w: %v", models.ErrInvalidDefinition, err))
	}

	logger := deps.Logger.With("module", "workflow", "team", cfg.Team)

	routerOptions := []alerts.Option{
		alerts.WithEscalationThreshold(cfg.EscalationThreshold),
		alerts.WithPlaybooks(cfg.Playbooks),
		alerts.WithPublisher(deps.Publisher),
		alerts.WithClock(deps.Clock),
		alerts.WithConsumedTTL(cfg.AlertRetention),
	}
	if deps.ConsumedAlerts != nil {
		routerOptions = append(routerOptions, alerts.WithConsumedStore(deps.ConsumedAlerts))
	}

	return &Workflow{
		cfg:       cfg,
		deps:      deps,
		logger:    logger,
		adapter:   adapter,
		generator: insights.NewGenerator(cfg.Insights, deps.Clock),
		router:    alerts.NewRouter(cfg.Team, deps.Analyzer, deps.Logger, routerOptions...),
	}, nil
}

func (w *Workflow) Team() string {
	return w.cfg.Team
}

func (w *Workflow) Running() bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	return w.running
}

// Start creates a fresh registry, executes every process once and schedules
// the optimization and report cycles.
func (w *Workflow) Start(ctx context.Context) error {
	w.mu.Lock()

	if w.running {
		w.mu.Unlock()

		return ErrAlreadyRunning
	}

	ctx, span := otelhelper.StartSpan(ctx, w.deps.Tracer, "workflow.start", attribute.String(otelhelper.TeamKey, w.cfg.Team))
	defer span.End()

	reg := registry.New(w.cfg.Team, w.deps.Provider, w.deps.Logger,
		registry.WithPublisher(w.deps.Publisher),
		registry.WithClock(w.deps.Clock),
		registry.WithApplier(w.deps.Applier),
	)

	now := w.deps.Clock.Now()
	w.registry = reg
	w.running = true
	w.startedAt = &now
	w.recentInsights = nil

	started := make([]string, 0, len(w.cfg.Processes))

	for _, def := range w.cfg.Processes {
		outcome, err := reg.Start(ctx, def)
		if err != nil {
			w.logger.ErrorContext(ctx, "Failed to start process", "process", def.Name, "error", err)

			continue
		}

		started = append(started, def.Name)
		w.absorb(ctx, outcome)
	}

	sched := w.deps.Scheduler(w.deps.Logger.With("team", w.cfg.Team))
	w.scheduler = sched

	err := errors.Join(
		sched.Every(jobOptimization, w.cfg.OptimizationInterval, w.optimizationTick),
		sched.Every(jobReport, w.cfg.ReportInterval, w.reportTick),
	)
	if err != nil {
		w.running = false
		w.registry = nil
		w.scheduler = nil
		w.mu.Unlock()

		reg.Stop(ctx)
		sched.Stop()
		otelhelper.SetError(span, err)

		return fmt.Errorf("failed to schedule cycles for %s: %w", w.cfg.Team, err)
	}

	w.mu.Unlock()

	w.logger.InfoContext(ctx, "Workflow started",
		"processes", len(started),
		"optimization_interval", w.cfg.OptimizationInterval,
		"report_interval", w.cfg.ReportInterval,
	)

	eventbus.Emit(ctx, w.deps.Publisher, w.logger, w.cfg.Team, events.WorkflowStarted{
		BaseEvent: events.NewBaseEvent(events.WorkflowStartedEvent, w.cfg.Team),
		Processes: started,
	})

	return nil
}

// Stop marks the workflow stopped, stops its registry and clears the
// instances before cancelling the timers. A tick already queued finds the
// workflow stopped and does nothing.
func (w *Workflow) Stop(ctx context.Context) error {
	w.mu.Lock()

	if !w.running {
		w.mu.Unlock()

		return nil
	}

	w.running = false
	stopped := w.registry.Stop(ctx)
	w.registry = nil
	sched := w.scheduler
	w.scheduler = nil

	w.mu.Unlock()

	sched.Stop()

	w.logger.InfoContext(ctx, "Workflow stopped", "stopped_instances", stopped)

	eventbus.Emit(ctx, w.deps.Publisher, w.logger, w.cfg.Team, events.WorkflowStopped{
		BaseEvent:        events.NewBaseEvent(events.WorkflowStoppedEvent, w.cfg.Team),
		StoppedInstances: stopped,
	})

	return nil
}

// CycleSummary describes one optimization cycle.
type CycleSummary struct {
	Team      string `json:"team"`
	Processed int    `json:"processed"`
	Failed    int    `json:"failed"`
	Insights  int    `json:"insights"`
	Applied   int    `json:"applied"`
}

// RunOptimizationCycle re-runs every active process, re-adapts KPI targets,
// generates insights and applies the top recommendations.
func (w *Workflow) RunOptimizationCycle(ctx context.Context) (CycleSummary, error) {
	w.mu.Lock()

	if !w.running {
		w.mu.Unlock()

		return CycleSummary{}, ErrNotRunning
	}

	ctx, span := otelhelper.StartSpan(ctx, w.deps.Tracer, "workflow.optimization_cycle",
		attribute.String(otelhelper.TeamKey, w.cfg.Team),
		attribute.String(otelhelper.CycleKey, metrics.CycleOptimization),
	)
	defer span.End()

	summary := CycleSummary{Team: w.cfg.Team}

	for _, outcome := range w.registry.RunCycle(ctx) {
		summary.Processed++

		if w.absorb(ctx, outcome) {
			summary.Insights++
		}

		if !outcome.Succeeded() {
			summary.Failed++

			continue
		}

		if outcome.Status != models.ProcessStatusActive {
			continue
		}

		applied, err := w.registry.ApplyOptimizations(ctx, outcome.InstanceID, w.cfg.OptimizationsPerCycle)
		if err != nil {
			w.logger.WarnContext(ctx, "Failed to apply optimizations", "process", outcome.Process, "error", err)

			continue
		}

		summary.Applied += len(applied)
	}

	now := w.deps.Clock.Now()
	w.optimizationCycles++
	w.lastOptimizationAt = &now

	w.mu.Unlock()

	metrics.ObserveCycle(w.cfg.Team, metrics.CycleOptimization)

	w.logger.InfoContext(ctx, "Optimization cycle completed",
		"processed", summary.Processed,
		"failed", summary.Failed,
		"insights", summary.Insights,
		"applied", summary.Applied,
	)

	eventbus.Emit(ctx, w.deps.Publisher, w.logger, w.cfg.Team, events.OptimizationCycleCompleted{
		BaseEvent: events.NewBaseEvent(events.OptimizationCycleCompletedEvent, w.cfg.Team),
		Processed: summary.Processed,
		Failed:    summary.Failed,
		Insights:  summary.Insights,
		Applied:   summary.Applied,
	})

	return summary, nil
}

// Report is the read-only summary produced by the report cycle.
type Report struct {
	Team               string             `json:"team"`
	GeneratedAt        time.Time          `json:"generated_at"`
	ActiveProcesses    int                `json:"active_processes"`
	CompletedProcesses int                `json:"completed_processes"`
	FailedProcesses    int                `json:"failed_processes"`
	AverageEfficiency  float64            `json:"average_efficiency"`
	KPIs               []models.KPITarget `json:"kpis"`
}

// RunReportCycle summarizes process and KPI state without mutating it.
func (w *Workflow) RunReportCycle(ctx context.Context) (Report, error) {
	w.mu.Lock()

	if !w.running {
		w.mu.Unlock()

		return Report{}, ErrNotRunning
	}

	counts := countStatuses(w.registry.Instances())
	averages := averageMetrics(w.registry.Instances())

	report := Report{
		Team:               w.cfg.Team,
		GeneratedAt:        w.deps.Clock.Now(),
		ActiveProcesses:    counts.Active,
		CompletedProcesses: counts.Completed,
		FailedProcesses:    counts.Failed,
		KPIs:               w.adapter.Targets(),
	}

	if averages != nil {
		report.AverageEfficiency = averages.Efficiency
	}

	w.reportCycles++
	w.lastReport = &report

	w.mu.Unlock()

	metrics.ObserveCycle(w.cfg.Team, metrics.CycleReport)

	eventbus.Emit(ctx, w.deps.Publisher, w.logger, w.cfg.Team, events.DailyReportGenerated{
		BaseEvent:          events.NewBaseEvent(events.DailyReportGeneratedEvent, w.cfg.Team),
		ActiveProcesses:    report.ActiveProcesses,
		FailedProcesses:    report.FailedProcesses,
		CompletedProcesses: report.CompletedProcesses,
		AverageEfficiency:  report.AverageEfficiency,
		KPIs:               report.KPIs,
	})

	return report, nil
}

// HandleAlert forwards alert to the router.
func (w *Workflow) HandleAlert(ctx context.Context, alert models.AlertEvent) (alerts.Dispatch, error) {
	if !w.Running() {
		return alerts.Dispatch{}, ErrNotRunning
	}

	if alert.SourceTeam == "" {
		alert.SourceTeam = w.cfg.Team
	}

	if alert.ReceivedAt.IsZero() {
		alert.ReceivedAt = w.deps.Clock.Now()
	}

	dispatch, err := w.router.Route(ctx, alert)

	switch {
	case errors.Is(err, alerts.ErrAlertAnalysisFailed):
		metrics.ObserveAlert(w.cfg.Team, metrics.RouteDropped)
	case err != nil:
	case dispatch.Escalated:
		metrics.ObserveAlert(w.cfg.Team, metrics.RouteEscalated)
	default:
		metrics.ObserveAlert(w.cfg.Team, metrics.RouteAutomatic)
	}

	return dispatch, err
}

// ResumeProcess re-activates a failed process and executes it immediately.
func (w *Workflow) ResumeProcess(ctx context.Context, name string) (registry.Outcome, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.running {
		return registry.Outcome{}, ErrNotRunning
	}

	outcome, err := w.registry.Resume(ctx, name)
	if err != nil {
		return outcome, err
	}

	w.absorb(ctx, outcome)

	return outcome, nil
}

// Instances returns copies of the current process instances; none when stopped.
func (w *Workflow) Instances() []models.ProcessInstance {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.registry == nil {
		return nil
	}

	return w.registry.Instances()
}

// absorb feeds one outcome into the KPI adapter and insight generator and
// reports whether an insight was generated. Callers hold w.mu.
func (w *Workflow) absorb(ctx context.Context, outcome registry.Outcome) bool {
	metrics.ObserveProcessRun(w.cfg.Team, outcome.Err)

	if !outcome.Succeeded() {
		if target, err := w.adapter.Degrade(outcome.KPIName); err == nil {
			metrics.SetKPITarget(w.cfg.Team, target)
		}

		return false
	}

	if outcome.Analysis.Confidence >= w.cfg.MinConfidence {
		target, err := w.adapter.Adapt(outcome.KPIName, outcome.Analysis.Metrics.Effectiveness)
		if err != nil {
			w.logger.WarnContext(ctx, "Failed to adapt KPI", "kpi", outcome.KPIName, "error", err)
		} else {
			metrics.SetKPITarget(w.cfg.Team, target)
		}
	} else {
		w.logger.DebugContext(ctx, "Low confidence analysis leaves KPI unchanged",
			"process", outcome.Process,
			"confidence", outcome.Analysis.Confidence,
		)
	}

	insight, ok := w.generator.Generate(w.cfg.Team, outcome.Process, outcome.Analysis.Metrics)
	if !ok {
		return false
	}

	w.recentInsights = append(w.recentInsights, insight)
	if len(w.recentInsights) > DefaultRecentInsights {
		w.recentInsights = w.recentInsights[len(w.recentInsights)-DefaultRecentInsights:]
	}

	eventbus.Emit(ctx, w.deps.Publisher, w.logger, w.cfg.Team, events.InsightGenerated{
		BaseEvent: events.NewBaseEvent(events.InsightGeneratedEvent, w.cfg.Team),
		Insight:   insight,
	})

	return true
}

func (w *Workflow) optimizationTick(ctx context.Context) {
	if _, err := w.RunOptimizationCycle(ctx); err != nil && !errors.Is(err, ErrNotRunning) {
		w.logger.ErrorContext(ctx, "Optimization cycle failed", "error", err)
	}
}

func (w *Workflow) reportTick(ctx context.Context) {
	if _, err := w.RunReportCycle(ctx); err != nil && !errors.Is(err, ErrNotRunning) {
		w.logger.ErrorContext(ctx, "Report cycle failed", "error", err)
	}
}
