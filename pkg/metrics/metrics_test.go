package metrics_test

import (
	"context"
	"errors"
	"testing"

	"github.com/dukex/teamflow/pkg/metrics"
	"github.com/dukex/teamflow/pkg/models"
	"github.com/dukex/teamflow/pkg/provider"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegister_Idempotent(t *testing.T) {
	reg := prometheus.NewRegistry()

	require.NoError(t, metrics.Register(reg))
	require.NoError(t, metrics.Register(reg))
}

func TestObservers(t *testing.T) {
	reg := prometheus.NewRegistry()
	require.NoError(t, metrics.Register(reg))

	metrics.ObserveCycle("metrics_test", metrics.CycleOptimization)
	metrics.ObserveProcessRun("metrics_test", nil)
	metrics.ObserveProcessRun("metrics_test", errors.New("boom"))
	metrics.ObserveAlert("metrics_test", metrics.RouteEscalated)
	metrics.SetKPITarget("metrics_test", models.KPITarget{Name: "quality_score", CurrentValue: 0.91})
	metrics.SetTeamPerformance("metrics_test", 0.72)

	families, err := reg.Gather()
	require.NoError(t, err)

	names := map[string]bool{}
	for _, family := range families {
		names[family.GetName()] = true
	}

	for _, name := range []string{
		"teamflow_cycles_total",
		"teamflow_process_runs_total",
		"teamflow_alerts_total",
		"teamflow_kpi_target",
		"teamflow_team_performance_score",
	} {
		assert.True(t, names[name], name)
	}

	metrics.ForgetTeam("metrics_test")

	families, err = reg.Gather()
	require.NoError(t, err)

	for _, family := range families {
		if family.GetName() == "teamflow_kpi_target" || family.GetName() == "teamflow_team_performance_score" {
			for _, metric := range family.GetMetric() {
				for _, label := range metric.GetLabel() {
					assert.NotEqual(t, "metrics_test", label.GetValue())
				}
			}
		}
	}
}

func TestInstrumentProvider(t *testing.T) {
	reg := prometheus.NewRegistry()
	require.NoError(t, metrics.Register(reg))

	fixture := provider.NewFixture(models.Analysis{Confidence: 0.9})
	fixture.Fail("broken", errors.New("down"))

	p := metrics.InstrumentProvider(fixture)

	_, err := p.Analyze(context.Background(), "ok", provider.Input{})
	require.NoError(t, err)

	_, err = p.Analyze(context.Background(), "broken", provider.Input{})
	require.Error(t, err)

	assert.GreaterOrEqual(t, mustGatherAndCount(t, reg, "teamflow_provider_seconds"), 2)
}

func mustGatherAndCount(t *testing.T, reg prometheus.Gatherer, name string) int {
	t.Helper()

	count, err := testutil.GatherAndCount(reg, name)
	require.NoError(t, err)

	return count
}
