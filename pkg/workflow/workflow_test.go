package workflow_test

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/dukex/teamflow/pkg/cache"
	"github.com/dukex/teamflow/pkg/events"
	"github.com/dukex/teamflow/pkg/insights"
	"github.com/dukex/teamflow/pkg/mocks"
	"github.com/dukex/teamflow/pkg/models"
	"github.com/dukex/teamflow/pkg/provider"
	"github.com/dukex/teamflow/pkg/scheduler"
	"github.com/dukex/teamflow/pkg/workflow"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var goodAnalysis = models.Analysis{
	Metrics: models.Metrics{Efficiency: 0.8, Effectiveness: 0.9, Satisfaction: 0.7, CostOrResolutionTime: 5},
	Recommendations: []models.Recommendation{
		{Action: "Add inline inspection", Priority: models.PriorityHigh, ExpectedImpact: 0.2},
		{Action: "Retrain operators", Priority: models.PriorityMedium, ExpectedImpact: 0.1},
		{Action: "Update checklist", Priority: models.PriorityLow, ExpectedImpact: 0.05},
	},
	Confidence: 0.9,
}

func qualityConfig() workflow.Config {
	return workflow.Config{
		Team: "operations",
		Processes: []models.ProcessDefinition{
			{Name: "quality_control", Priority: models.PriorityCritical, Frequency: models.FrequencyContinuous, KPIName: "quality_score"},
			{Name: "capacity_planning", Priority: models.PriorityHigh, Frequency: models.FrequencyWeekly, KPIName: "capacity_utilization"},
		},
		KPIs: []models.KPITarget{
			{Name: "quality_score", Kind: models.KPIKindRatio, CurrentValue: 0.5, Min: 0, Max: 1},
			{Name: "capacity_utilization", Kind: models.KPIKindRatio, CurrentValue: 0.5, Min: 0, Max: 1},
		},
	}
}

type harness struct {
	workflow *workflow.Workflow
	fixture  *provider.Fixture
	bus      *mocks.MockEventBus
	clock    *clockwork.FakeClock
}

func newHarness(t *testing.T, cfg workflow.Config) *harness {
	t.Helper()

	clock := clockwork.NewFakeClock()
	fixture := provider.NewFixture(goodAnalysis)
	bus := mocks.NewPermissiveEventBus()

	w, err := workflow.New(cfg, workflow.Dependencies{
		Provider:  fixture,
		Publisher: bus,
		Clock:     clock,
		Scheduler: scheduler.TickerFactory(clock),
		Logger:    slog.Default(),
	})
	require.NoError(t, err)

	t.Cleanup(func() { _ = w.Stop(context.Background()) })

	return &harness{workflow: w, fixture: fixture, bus: bus, clock: clock}
}

func kpiTarget(t *testing.T, w *workflow.Workflow, name string) models.KPITarget {
	t.Helper()

	for _, target := range w.Dashboard().KPIs {
		if target.Name == name {
			return target
		}
	}

	t.Fatalf("KPI %s not found", name)

	return models.KPITarget{}
}

func TestNew_ConfigurationErrors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(cfg *workflow.Config)
		target error
	}{
		{
			name: "unknown KPI",
			mutate: func(cfg *workflow.Config) {
				cfg.Processes[0].KPIName = "defect_rate"
			},
			target: models.ErrUnknownKPI,
		},
		{
			name: "duplicate process",
			mutate: func(cfg *workflow.Config) {
				cfg.Processes[1].Name = cfg.Processes[0].Name
			},
			target: models.ErrDuplicateProcess,
		},
		{
			name: "invalid definition",
			mutate: func(cfg *workflow.Config) {
				cfg.Processes[0].Priority = "urgent"
			},
			target: models.ErrInvalidDefinition,
		},
		{
			name: "invalid KPI domain",
			mutate: func(cfg *workflow.Config) {
				cfg.KPIs[0].Min = 2
			},
			target: models.ErrInvalidDefinition,
		},
		{
			name: "missing team",
			mutate: func(cfg *workflow.Config) {
				cfg.Team = ""
			},
			target: models.ErrInvalidDefinition,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := qualityConfig()
			tt.mutate(&cfg)

			_, err := workflow.New(cfg, workflow.Dependencies{Provider: provider.NewFixture(goodAnalysis)})
			require.ErrorIs(t, err, tt.target)
			assert.True(t, models.IsConfigurationError(err))
		})
	}

	_, err := workflow.New(qualityConfig(), workflow.Dependencies{})
	require.ErrorIs(t, err, workflow.ErrMissingProvider)
}

func TestQualityControlImprovesAfterOneCycle(t *testing.T) {
	h := newHarness(t, qualityConfig())
	ctx := context.Background()

	before := kpiTarget(t, h.workflow, "quality_score")

	require.NoError(t, h.workflow.Start(ctx))

	_, err := h.workflow.RunOptimizationCycle(ctx)
	require.NoError(t, err)

	after := kpiTarget(t, h.workflow, "quality_score")
	assert.Equal(t, models.TrendImproving, after.Trend)
	assert.Greater(t, after.CurrentValue, before.CurrentValue)
	assert.InDelta(t, 0.58, after.CurrentValue, 1e-9)
}

func TestStart_ExecutesImmediatelyAndPublishes(t *testing.T) {
	h := newHarness(t, qualityConfig())

	require.NoError(t, h.workflow.Start(context.Background()))
	require.ErrorIs(t, h.workflow.Start(context.Background()), workflow.ErrAlreadyRunning)

	assert.Equal(t, 1, h.fixture.Calls("quality_control"))
	assert.Equal(t, 1, h.fixture.Calls("capacity_planning"))

	status := h.workflow.Status()
	assert.True(t, status.Running)
	assert.Equal(t, 2, status.Processes.Active)
	assert.Equal(t, workflow.DefaultOptimizationInterval, status.OptimizationInterval)
	assert.Equal(t, workflow.DefaultReportInterval, status.ReportInterval)

	assert.Equal(t, 2, h.bus.CountOf(events.ProcessStartedEvent))
	assert.Equal(t, 2, h.bus.CountOf(events.ProcessCompletedEvent))
	assert.Equal(t, 1, h.bus.CountOf(events.WorkflowStartedEvent))
}

func TestOptimizationCycle_AppliesTopRecommendations(t *testing.T) {
	h := newHarness(t, qualityConfig())
	ctx := context.Background()

	require.NoError(t, h.workflow.Start(ctx))

	summary, err := h.workflow.RunOptimizationCycle(ctx)
	require.NoError(t, err)

	assert.Equal(t, workflow.CycleSummary{Team: "operations", Processed: 2, Applied: 4}, summary)

	for _, process := range h.workflow.Dashboard().Processes {
		assert.Equal(t, workflow.DefaultOptimizationsPerCycle, process.AppliedOptimizations)
	}

	assert.Equal(t, 1, h.bus.CountOf(events.OptimizationCycleCompletedEvent))
	assert.Equal(t, 4, h.bus.CountOf(events.OptimizationAppliedEvent))
}

func TestOptimizationCycle_ProviderFailureIsIsolated(t *testing.T) {
	h := newHarness(t, qualityConfig())
	ctx := context.Background()

	weak := goodAnalysis
	weak.Metrics.Effectiveness = 0.3
	h.fixture.Set("capacity_planning", weak)

	require.NoError(t, h.workflow.Start(ctx))

	before := h.workflow.Dashboard()
	require.NotNil(t, before.Metrics)
	assert.InDelta(t, 0.6, before.Metrics.Effectiveness, 1e-9)

	h.fixture.Fail("capacity_planning", errors.New("scoring service down"))

	summary, err := h.workflow.RunOptimizationCycle(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, summary.Processed)
	assert.Equal(t, 1, summary.Failed)

	status := h.workflow.Status()
	assert.Equal(t, 1, status.Processes.Active)
	assert.Equal(t, 1, status.Processes.Failed)

	after := h.workflow.Dashboard()
	require.NotNil(t, after.Metrics)
	assert.InDelta(t, 0.9, after.Metrics.Effectiveness, 1e-9, "failed processes leave the averages")

	assert.Equal(t, models.TrendDeclining, kpiTarget(t, h.workflow, "capacity_utilization").Trend)
	assert.Equal(t, models.TrendImproving, kpiTarget(t, h.workflow, "quality_score").Trend)

	h.fixture.Recover("capacity_planning")

	outcome, err := h.workflow.ResumeProcess(ctx, "capacity_planning")
	require.NoError(t, err)
	assert.True(t, outcome.Succeeded())
	assert.Equal(t, 2, h.workflow.Status().Processes.Active)
}

func TestLowConfidenceLeavesKPIUnchanged(t *testing.T) {
	h := newHarness(t, qualityConfig())

	uncertain := goodAnalysis
	uncertain.Confidence = 0.1
	h.fixture.Set("quality_control", uncertain)

	require.NoError(t, h.workflow.Start(context.Background()))

	target := kpiTarget(t, h.workflow, "quality_score")
	assert.InDelta(t, 0.5, target.CurrentValue, 1e-9)
	assert.Equal(t, models.TrendStable, target.Trend)
}

func TestStop_ClearsStateAndCancelsTimers(t *testing.T) {
	h := newHarness(t, qualityConfig())
	ctx := context.Background()

	require.NoError(t, h.workflow.Start(ctx))
	require.NoError(t, h.workflow.Stop(ctx))
	require.NoError(t, h.workflow.Stop(ctx))

	status := h.workflow.Status()
	assert.False(t, status.Running)
	assert.Equal(t, 0, status.Processes.Total)
	assert.Empty(t, h.workflow.Instances())

	_, err := h.workflow.RunOptimizationCycle(ctx)
	require.ErrorIs(t, err, workflow.ErrNotRunning)

	_, err = h.workflow.RunReportCycle(ctx)
	require.ErrorIs(t, err, workflow.ErrNotRunning)

	h.clock.Advance(time.Hour)
	assert.Equal(t, 1, h.fixture.Calls("quality_control"))

	assert.Equal(t, 2, h.bus.CountOf(events.ProcessStoppedEvent))
	assert.Equal(t, 1, h.bus.CountOf(events.WorkflowStoppedEvent))

	require.NoError(t, h.workflow.Start(ctx))
	assert.Equal(t, 2, h.workflow.Status().Processes.Active)
}

func TestRestart_ReachesProviderBehindCache(t *testing.T) {
	ctx := context.Background()
	clock := clockwork.NewFakeClock()
	fixture := provider.NewFixture(goodAnalysis)

	w, err := workflow.New(qualityConfig(), workflow.Dependencies{
		Provider:  provider.WithCache(fixture, cache.NewMemoryProvider(clock), time.Hour, slog.Default()),
		Publisher: mocks.NewPermissiveEventBus(),
		Clock:     clock,
		Scheduler: scheduler.TickerFactory(clock),
		Logger:    slog.Default(),
	})
	require.NoError(t, err)

	t.Cleanup(func() { _ = w.Stop(context.Background()) })

	require.NoError(t, w.Start(ctx))
	require.NoError(t, w.Stop(ctx))

	degraded := goodAnalysis
	degraded.Metrics.Effectiveness = 0.1
	fixture.Set("quality_control", degraded)

	require.NoError(t, w.Start(ctx))
	assert.Equal(t, 2, fixture.Calls("quality_control"))

	var found bool

	for _, process := range w.Dashboard().Processes {
		if process.Name == "quality_control" {
			found = true

			assert.InDelta(t, 0.1, process.Metrics.Effectiveness, 1e-9)
		}
	}

	assert.True(t, found)
}

func TestTimersDriveCycles(t *testing.T) {
	cfg := qualityConfig()
	cfg.OptimizationInterval = time.Minute
	cfg.ReportInterval = time.Hour

	h := newHarness(t, cfg)
	require.NoError(t, h.workflow.Start(context.Background()))

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, h.clock.BlockUntilContext(ctx, 2))

	h.clock.Advance(time.Minute)

	assert.Eventually(t, func() bool {
		return h.workflow.Status().OptimizationCycles == 1
	}, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, 2, h.fixture.Calls("quality_control"))
	assert.Equal(t, 0, h.workflow.Status().ReportCycles)
}

func TestReportCycle(t *testing.T) {
	h := newHarness(t, qualityConfig())
	ctx := context.Background()

	require.NoError(t, h.workflow.Start(ctx))

	report, err := h.workflow.RunReportCycle(ctx)
	require.NoError(t, err)

	assert.Equal(t, 2, report.ActiveProcesses)
	assert.InDelta(t, 0.8, report.AverageEfficiency, 1e-9)
	assert.Len(t, report.KPIs, 2)
	assert.Equal(t, 1, h.bus.CountOf(events.DailyReportGeneratedEvent))

	status := h.workflow.Status()
	assert.Equal(t, 1, status.ReportCycles)
	assert.NotNil(t, status.LastReportAt)
	assert.Equal(t, 2, status.Processes.Active, "report cycle does not change process state")
}

func TestHandleAlert(t *testing.T) {
	h := newHarness(t, qualityConfig())
	ctx := context.Background()

	_, err := h.workflow.HandleAlert(ctx, models.AlertEvent{Kind: "defect_spike", Severity: models.SeverityHigh})
	require.ErrorIs(t, err, workflow.ErrNotRunning)

	require.NoError(t, h.workflow.Start(ctx))

	dispatch, err := h.workflow.HandleAlert(ctx, models.AlertEvent{ID: "alert-1", Kind: "defect_spike", Severity: models.SeverityHigh})
	require.NoError(t, err)
	assert.True(t, dispatch.Escalated)

	_, err = h.workflow.HandleAlert(ctx, models.AlertEvent{ID: "alert-1", Kind: "defect_spike", Severity: models.SeverityHigh})
	require.Error(t, err)

	_, err = h.workflow.HandleAlert(ctx, models.AlertEvent{ID: "alert-2", Kind: "defect_spike", Severity: "severe"})
	require.Error(t, err)

	assert.Equal(t, 1, h.bus.CountOf(events.TeamAlertEvent), "only accepted alerts are published")
	assert.Equal(t, 1, h.bus.CountOf(events.AlertEscalatedEvent))
	assert.Equal(t, 1, h.workflow.Dashboard().Alerts.Escalated)
}

func TestDashboard(t *testing.T) {
	cfg := qualityConfig()
	cfg.Insights = insights.Catalog{
		"quality_control": {
			Type:        "quality_improvement",
			Impact:      models.ImpactHigh,
			Description: "Tighten inline inspection",
			KeyActions:  []string{"Add sensors"},
		},
	}

	h := newHarness(t, cfg)

	dashboard := h.workflow.Dashboard()
	assert.False(t, dashboard.Running)
	assert.Nil(t, dashboard.Metrics)
	assert.Empty(t, dashboard.Processes)
	require.NotNil(t, dashboard.KPIAttainment)
	assert.InDelta(t, 0.5, *dashboard.KPIAttainment, 1e-9)

	require.NoError(t, h.workflow.Start(context.Background()))

	first := h.workflow.Dashboard()
	second := h.workflow.Dashboard()
	assert.Equal(t, first, second, "reading the dashboard does not change it")

	require.NotNil(t, first.Metrics)
	assert.InDelta(t, 0.9, first.Metrics.Effectiveness, 1e-9)
	assert.Len(t, first.Processes, 2)
	require.Len(t, first.RecentInsights, 1)
	assert.Equal(t, "quality_control", first.RecentInsights[0].Process)
	assert.Equal(t, 1, h.bus.CountOf(events.InsightGeneratedEvent))
	assert.Equal(t, 1, h.fixture.Calls("quality_control"))
}
