package provider_test

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/dukex/teamflow/pkg/cache"
	"github.com/dukex/teamflow/pkg/models"
	"github.com/dukex/teamflow/pkg/provider"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

var sampleAnalysis = models.Analysis{
	Metrics: models.Metrics{
		Efficiency:           0.8,
		Effectiveness:        0.9,
		Satisfaction:         0.7,
		CostOrResolutionTime: 12,
	},
	Recommendations: []models.Recommendation{
		{Action: "Automate screening", Priority: models.PriorityHigh, ExpectedImpact: 0.2},
	},
	Confidence: 0.85,
}

func TestDeterministic_Reproducible(t *testing.T) {
	ctx := context.Background()
	p := provider.NewDeterministic(42)
	input := provider.Input{Team: "hr", Run: 3}

	first, err := p.Analyze(ctx, "recruitment", input)
	require.NoError(t, err)

	second, err := provider.NewDeterministic(42).Analyze(ctx, "recruitment", input)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	require.NoError(t, provider.Validate(first))
	assert.NotEmpty(t, first.Recommendations)

	other, err := p.Analyze(ctx, "recruitment", provider.Input{Team: "hr", Run: 4})
	require.NoError(t, err)
	assert.NotEqual(t, first, other)
}

func TestDeterministic_AlwaysValid(t *testing.T) {
	p := provider.NewDeterministic(7)

	for run := range 200 {
		analysis, err := p.Analyze(context.Background(), "quality_control", provider.Input{Team: "operations", Run: run})
		require.NoError(t, err)
		require.NoError(t, provider.Validate(analysis), "run %d", run)
		assert.GreaterOrEqual(t, analysis.Confidence, 0.5)
	}
}

func TestDeterministic_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := provider.NewDeterministic(1).Analyze(ctx, "budgeting", provider.Input{})
	require.ErrorIs(t, err, context.Canceled)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(a *models.Analysis)
		wantErr bool
	}{
		{name: "valid", mutate: func(*models.Analysis) {}},
		{name: "efficiency above one", mutate: func(a *models.Analysis) { a.Metrics.Efficiency = 1.2 }, wantErr: true},
		{name: "negative cost", mutate: func(a *models.Analysis) { a.Metrics.CostOrResolutionTime = -1 }, wantErr: true},
		{name: "confidence above one", mutate: func(a *models.Analysis) { a.Confidence = 2 }, wantErr: true},
		{name: "recommendation without action", mutate: func(a *models.Analysis) {
			a.Recommendations = []models.Recommendation{{Priority: models.PriorityLow}}
		}, wantErr: true},
		{name: "unknown priority", mutate: func(a *models.Analysis) {
			a.Recommendations = []models.Recommendation{{Action: "x", Priority: "urgent"}}
		}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			analysis := sampleAnalysis
			analysis.Recommendations = append([]models.Recommendation(nil), sampleAnalysis.Recommendations...)
			tt.mutate(&analysis)

			err := provider.Validate(analysis)
			if tt.wantErr {
				require.ErrorIs(t, err, provider.ErrMalformedAnalysis)
			} else {
				require.NoError(t, err)
			}
		})
	}
}

func TestFixture(t *testing.T) {
	ctx := context.Background()
	f := provider.NewFixture(sampleAnalysis)

	special := sampleAnalysis
	special.Confidence = 0.1
	f.Set("payroll", special)
	f.Fail("recruitment", errors.New("model offline"))

	got, err := f.Analyze(ctx, "payroll", provider.Input{})
	require.NoError(t, err)
	assert.InDelta(t, 0.1, got.Confidence, 1e-9)

	_, err = f.Analyze(ctx, "recruitment", provider.Input{})
	require.EqualError(t, err, "model offline")

	f.Recover("recruitment")

	got, err = f.Analyze(ctx, "recruitment", provider.Input{})
	require.NoError(t, err)
	assert.Equal(t, sampleAnalysis, got)
	assert.Equal(t, 2, f.Calls("recruitment"))
}

func TestHTTPProvider(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/analyze", r.URL.Path)
		assert.Equal(t, http.MethodPost, r.Method)

		var body map[string]any
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))

		if body["process"] == "broken" {
			w.WriteHeader(http.StatusBadGateway)

			return
		}

		assert.Equal(t, "finance", body["team"])
		_ = json.NewEncoder(w).Encode(sampleAnalysis)
	}))
	defer server.Close()

	p := provider.NewHTTPProvider(server.URL, time.Second)

	got, err := p.Analyze(context.Background(), "budgeting", provider.Input{Team: "finance", Run: 1})
	require.NoError(t, err)
	assert.Equal(t, sampleAnalysis, got)

	_, err = p.Analyze(context.Background(), "broken", provider.Input{Team: "finance"})
	require.ErrorContains(t, err, "status code 502")
}

func TestWithCache(t *testing.T) {
	ctx := context.Background()
	fixture := provider.NewFixture(sampleAnalysis)
	store := cache.NewMemoryProvider(clockwork.NewFakeClock())
	p := provider.WithCache(fixture, store, time.Hour, slog.Default())

	input := provider.Input{Team: "sales", InstanceID: "instance-1", Run: 1}

	first, err := p.Analyze(ctx, "lead_scoring", input)
	require.NoError(t, err)

	second, err := p.Analyze(ctx, "lead_scoring", input)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 1, fixture.Calls("lead_scoring"))

	_, err = store.Get(ctx, provider.CacheKey("lead_scoring", input))
	require.NoError(t, err)

	restarted := input
	restarted.InstanceID = "instance-2"

	_, err = p.Analyze(ctx, "lead_scoring", restarted)
	require.NoError(t, err)
	assert.Equal(t, 2, fixture.Calls("lead_scoring"))

	fixture.Fail("forecasting", errors.New("down"))

	_, err = p.Analyze(ctx, "forecasting", input)
	require.Error(t, err)

	_, err = store.Get(ctx, provider.CacheKey("forecasting", input))
	require.ErrorIs(t, err, cache.ErrCacheMiss)
}

func TestWithTracing(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	tracer := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder)).Tracer("test")

	fixture := provider.NewFixture(sampleAnalysis)
	fixture.Fail("broken", errors.New("down"))

	p := provider.WithTracing(fixture, tracer)

	_, err := p.Analyze(context.Background(), "ok", provider.Input{Team: "legal"})
	require.NoError(t, err)

	_, err = p.Analyze(context.Background(), "broken", provider.Input{Team: "legal"})
	require.Error(t, err)

	spans := recorder.Ended()
	require.Len(t, spans, 2)
	assert.Equal(t, codes.Unset, spans[0].Status().Code)
	assert.Equal(t, codes.Error, spans[1].Status().Code)
}
