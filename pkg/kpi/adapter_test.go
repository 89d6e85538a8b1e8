package kpi_test

import (
	"math/rand"
	"testing"

	"github.com/dukex/teamflow/pkg/kpi"
	"github.com/dukex/teamflow/pkg/models"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func targets() []models.KPITarget {
	return []models.KPITarget{
		{Name: "quality_score", Kind: models.KPIKindRatio, CurrentValue: 0.8, Min: 0, Max: 1},
		{Name: "time_to_hire", Kind: models.KPIKindDuration, CurrentValue: 30, Min: 10, Max: 60, Unit: "days"},
	}
}

func newAdapter(t *testing.T) *kpi.Adapter {
	t.Helper()

	a, err := kpi.NewAdapter(targets(), kpi.DefaultStepFactor, clockwork.NewFakeClock())
	require.NoError(t, err)

	return a
}

func TestAdapt(t *testing.T) {
	tests := []struct {
		name          string
		kpi           string
		effectiveness float64
		expected      float64
		trend         models.Trend
	}{
		{name: "ratio improves upwards", kpi: "quality_score", effectiveness: 0.9, expected: 0.84, trend: models.TrendImproving},
		{name: "duration improves downwards", kpi: "time_to_hire", effectiveness: 0.9, expected: 28, trend: models.TrendImproving},
		{name: "neutral leaves ratio unchanged", kpi: "quality_score", effectiveness: 0.5, expected: 0.8, trend: models.TrendStable},
		{name: "neutral leaves duration unchanged", kpi: "time_to_hire", effectiveness: 0.5, expected: 30, trend: models.TrendStable},
		{name: "poor effectiveness is stable", kpi: "quality_score", effectiveness: 0.1, expected: 0.8, trend: models.TrendStable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := newAdapter(t)

			target, err := a.Adapt(tt.kpi, tt.effectiveness)
			require.NoError(t, err)
			assert.InDelta(t, tt.expected, target.CurrentValue, 1e-9)
			assert.Equal(t, tt.trend, target.Trend)
		})
	}
}

func TestAdapt_StaysWithinDomain(t *testing.T) {
	a := newAdapter(t)
	rng := rand.New(rand.NewSource(1))

	for range 1000 {
		for _, name := range []string{"quality_score", "time_to_hire"} {
			target, err := a.Adapt(name, rng.Float64()*1.5-0.25)
			require.NoError(t, err)
			assert.GreaterOrEqual(t, target.CurrentValue, target.Min)
			assert.LessOrEqual(t, target.CurrentValue, target.Max)
		}
	}

	quality, _ := a.Target("quality_score")
	assert.InDelta(t, 1.0, quality.CurrentValue, 1e-9)

	hire, _ := a.Target("time_to_hire")
	assert.InDelta(t, 10.0, hire.CurrentValue, 1e-9)
}

func TestAdapt_UnknownKPI(t *testing.T) {
	a := newAdapter(t)

	_, err := a.Adapt("nps", 0.9)
	require.ErrorIs(t, err, models.ErrUnknownKPI)

	_, err = a.Degrade("nps")
	require.ErrorIs(t, err, models.ErrUnknownKPI)
}

func TestDegrade(t *testing.T) {
	a := newAdapter(t)

	target, err := a.Degrade("quality_score")
	require.NoError(t, err)
	assert.Equal(t, models.TrendDeclining, target.Trend)
	assert.InDelta(t, 0.8, target.CurrentValue, 1e-9)
}

func TestNewAdapter(t *testing.T) {
	clock := clockwork.NewFakeClock()

	a, err := kpi.NewAdapter([]models.KPITarget{
		{Name: "out_of_range", Kind: models.KPIKindRatio, CurrentValue: 5, Min: 0, Max: 1},
	}, 0, clock)
	require.NoError(t, err)

	target, ok := a.Target("out_of_range")
	require.True(t, ok)
	assert.InDelta(t, 1.0, target.CurrentValue, 1e-9)
	assert.Equal(t, models.TrendStable, target.Trend)

	_, err = kpi.NewAdapter([]models.KPITarget{
		{Name: "inverted", Kind: models.KPIKindRatio, Min: 1, Max: 0},
	}, 0, clock)
	require.Error(t, err)

	_, err = kpi.NewAdapter([]models.KPITarget{
		{Name: "a", Kind: models.KPIKindRatio, Max: 1},
		{Name: "a", Kind: models.KPIKindRatio, Max: 1},
	}, 0, clock)
	require.ErrorContains(t, err, "duplicate")

	_, err = kpi.NewAdapter([]models.KPITarget{
		{Name: "a", Kind: "percentage", Max: 1},
	}, 0, clock)
	require.Error(t, err)
}

func TestTargetsAndAttainment(t *testing.T) {
	a := newAdapter(t)

	all := a.Targets()
	require.Len(t, all, 2)
	assert.Equal(t, "quality_score", all[0].Name)
	assert.Equal(t, "time_to_hire", all[1].Name)

	assert.InDelta(t, 0.8, all[0].Attainment(), 1e-9)
	assert.InDelta(t, 0.6, all[1].Attainment(), 1e-9)
	assert.InDelta(t, 0.7, a.MeanAttainment(), 1e-9)
	assert.True(t, a.Has("time_to_hire"))
	assert.False(t, a.Has("nps"))
}
