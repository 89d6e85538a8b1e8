package web_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/dukex/teamflow/pkg/alerts"
	"github.com/dukex/teamflow/pkg/coordinator"
	"github.com/dukex/teamflow/pkg/events"
	"github.com/dukex/teamflow/pkg/journal"
	"github.com/dukex/teamflow/pkg/metrics"
	"github.com/dukex/teamflow/pkg/mocks"
	"github.com/dukex/teamflow/pkg/models"
	"github.com/dukex/teamflow/pkg/provider"
	"github.com/dukex/teamflow/pkg/scheduler"
	"github.com/dukex/teamflow/pkg/web"
	"github.com/dukex/teamflow/pkg/workflow"
	"github.com/gofiber/fiber/v3"
	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var analysis = models.Analysis{
	Metrics:    models.Metrics{Efficiency: 0.8, Effectiveness: 0.9, Satisfaction: 0.7},
	Confidence: 0.9,
}

type testAPI struct {
	app         *fiber.App
	coordinator *coordinator.Coordinator
	journal     *journal.Memory
}

func newWorkflow(t *testing.T, clock clockwork.Clock, bus *mocks.MockEventBus, team string, analyzer alerts.ImpactAnalyzer) *workflow.Workflow {
	t.Helper()

	w, err := workflow.New(workflow.Config{
		Team: team,
		Processes: []models.ProcessDefinition{
			{Name: team + "_review", Priority: models.PriorityHigh, Frequency: models.FrequencyDaily, KPIName: team + "_score"},
		},
		KPIs: []models.KPITarget{
			{Name: team + "_score", Kind: models.KPIKindRatio, CurrentValue: 0.5, Min: 0, Max: 1},
		},
	}, workflow.Dependencies{
		Provider:  provider.NewFixture(analysis),
		Publisher: bus,
		Clock:     clock,
		Scheduler: scheduler.TickerFactory(clock),
		Analyzer:  analyzer,
	})
	require.NoError(t, err)

	return w
}

func setupTestAPI(t *testing.T, initialize bool) *testAPI {
	t.Helper()

	clock := clockwork.NewFakeClock()
	bus := mocks.NewPermissiveEventBus()

	failing := alerts.ImpactAnalyzerFunc(func(context.Context, models.AlertEvent) (alerts.Assessment, error) {
		return alerts.Assessment{}, errors.New("analysis backend down")
	})

	teams := []coordinator.Team{
		coordinator.Active{Workflow: newWorkflow(t, clock, bus, "finance", nil)},
		coordinator.Active{Workflow: newWorkflow(t, clock, bus, "operations", nil)},
		coordinator.Active{Workflow: newWorkflow(t, clock, bus, "legal", failing)},
		coordinator.Placeholder{Name: "security", Status: "planned"},
	}

	coord, err := coordinator.New(coordinator.Config{
		Dependencies: []models.TeamDependencyEdge{{Team: "finance", DependsOn: []string{"operations", "security"}}},
	}, teams, coordinator.Dependencies{
		Publisher: bus,
		Clock:     clock,
		Scheduler: scheduler.TickerFactory(clock),
	})
	require.NoError(t, err)

	if initialize {
		require.NoError(t, coord.Initialize(context.Background()))
	}

	t.Cleanup(func() { _ = coord.Shutdown(context.Background()) })

	registry := prometheus.NewRegistry()
	require.NoError(t, metrics.Register(registry))

	j := journal.NewMemory(10)
	api := web.NewAPI(slog.Default(), coord, j, registry)

	return &testAPI{app: api.App(), coordinator: coord, journal: j}
}

func (a *testAPI) do(t *testing.T, method, path string, body any) (*http.Response, []byte) {
	t.Helper()

	var reader io.Reader

	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)

		reader = bytes.NewReader(payload)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := a.app.Test(req)
	require.NoError(t, err)

	defer func() {
		if err := resp.Body.Close(); err != nil {
			t.Logf("Failed to close response body: %v", err)
		}
	}()

	content, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	return resp, content
}

func TestAPI_RootAndLiveness(t *testing.T) {
	api := setupTestAPI(t, false)

	resp, body := api.do(t, http.MethodGet, "/", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "teamflow", string(body))

	resp, body = api.do(t, http.MethodGet, "/livez", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "OK", string(body))
}

func TestAPI_HealthCheck(t *testing.T) {
	api := setupTestAPI(t, false)

	resp, _ := api.do(t, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)

	require.NoError(t, api.coordinator.Initialize(context.Background()))

	resp, body := api.do(t, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var health map[string]any
	require.NoError(t, json.Unmarshal(body, &health))
	assert.Equal(t, "healthy", health["status"])
}

func TestAPI_StatusAndTeams(t *testing.T) {
	api := setupTestAPI(t, true)

	resp, body := api.do(t, http.MethodGet, "/status", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var status coordinator.Status
	require.NoError(t, json.Unmarshal(body, &status))
	assert.True(t, status.Running)
	assert.Equal(t, 3, status.ActiveTeams)
	assert.Equal(t, 4, status.TotalTeams)

	resp, body = api.do(t, http.MethodGet, "/teams", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var summaries []coordinator.TeamSummary
	require.NoError(t, json.Unmarshal(body, &summaries))
	require.Len(t, summaries, 4)
	assert.Equal(t, "security", summaries[3].Name)
	assert.True(t, summaries[3].Placeholder)
}

func TestAPI_GetTeam(t *testing.T) {
	api := setupTestAPI(t, true)

	tests := []struct {
		name           string
		path           string
		expectedStatus int
		validate       func(t *testing.T, body []byte)
	}{
		{
			name:           "active team",
			path:           "/teams/finance",
			expectedStatus: http.StatusOK,
			validate: func(t *testing.T, body []byte) {
				t.Helper()

				var details coordinator.TeamDetails
				require.NoError(t, json.Unmarshal(body, &details))
				assert.Equal(t, "finance", details.Name)
				assert.Equal(t, coordinator.TeamStatusActive, details.Status)
				assert.Equal(t, []string{"operations", "security"}, details.DependsOn)
				assert.Equal(t, []string{"operations"}, details.Related)
				require.NotNil(t, details.Workflow)
			},
		},
		{
			name:           "placeholder team",
			path:           "/teams/security",
			expectedStatus: http.StatusOK,
			validate: func(t *testing.T, body []byte) {
				t.Helper()

				var details coordinator.TeamDetails
				require.NoError(t, json.Unmarshal(body, &details))
				assert.Equal(t, "planned", details.Status)
				assert.Nil(t, details.Workflow)
			},
		},
		{
			name:           "unknown team",
			path:           "/teams/treasury",
			expectedStatus: http.StatusNotFound,
			validate: func(t *testing.T, body []byte) {
				t.Helper()
				assert.Contains(t, string(body), "not_found")
			},
		},
		{
			name:           "related teams",
			path:           "/teams/finance/related",
			expectedStatus: http.StatusOK,
			validate: func(t *testing.T, body []byte) {
				t.Helper()

				var related web.RelatedResponse
				require.NoError(t, json.Unmarshal(body, &related))
				assert.Equal(t, []string{"operations"}, related.Related)
			},
		},
		{
			name:           "related teams of unknown team",
			path:           "/teams/treasury/related",
			expectedStatus: http.StatusNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, body := api.do(t, http.MethodGet, tt.path, nil)
			assert.Equal(t, tt.expectedStatus, resp.StatusCode)

			if tt.validate != nil {
				tt.validate(t, body)
			}
		})
	}
}

func TestAPI_PostAlert(t *testing.T) {
	api := setupTestAPI(t, true)

	tests := []struct {
		name           string
		path           string
		body           any
		expectedStatus int
		expectedType   string
	}{
		{
			name:           "automatic plan",
			path:           "/teams/finance/alerts",
			body:           web.AlertRequest{ID: "a-1", Kind: "budget_overrun", Severity: "low"},
			expectedStatus: http.StatusAccepted,
		},
		{
			name:           "duplicate alert",
			path:           "/teams/finance/alerts",
			body:           web.AlertRequest{ID: "a-1", Kind: "budget_overrun", Severity: "low"},
			expectedStatus: http.StatusConflict,
			expectedType:   "alert_already_consumed",
		},
		{
			name:           "invalid severity",
			path:           "/teams/finance/alerts",
			body:           web.AlertRequest{Kind: "budget_overrun", Severity: "urgent"},
			expectedStatus: http.StatusBadRequest,
			expectedType:   "validation_error",
		},
		{
			name:           "malformed body",
			path:           "/teams/finance/alerts",
			body:           "not an alert",
			expectedStatus: http.StatusBadRequest,
			expectedType:   "validation_error",
		},
		{
			name:           "unknown team",
			path:           "/teams/treasury/alerts",
			body:           web.AlertRequest{Kind: "budget_overrun", Severity: "low"},
			expectedStatus: http.StatusNotFound,
			expectedType:   "team_not_found",
		},
		{
			name:           "placeholder team",
			path:           "/teams/security/alerts",
			body:           web.AlertRequest{Kind: "breach", Severity: "low"},
			expectedStatus: http.StatusNotFound,
			expectedType:   "team_inactive",
		},
		{
			name:           "analysis failure",
			path:           "/teams/legal/alerts",
			body:           web.AlertRequest{Kind: "contract_risk", Severity: "medium"},
			expectedStatus: http.StatusUnprocessableEntity,
			expectedType:   "alert_analysis_failed",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, body := api.do(t, http.MethodPost, tt.path, tt.body)
			assert.Equal(t, tt.expectedStatus, resp.StatusCode, string(body))

			if tt.expectedType != "" {
				assert.Contains(t, string(body), tt.expectedType)
			}
		})
	}
}

func TestAPI_PostAlert_Escalates(t *testing.T) {
	api := setupTestAPI(t, true)

	resp, body := api.do(t, http.MethodPost, "/teams/operations/alerts",
		web.AlertRequest{Kind: "supply_risk", Severity: "critical", SourceTeam: "logistics"})
	require.Equal(t, http.StatusAccepted, resp.StatusCode)

	var dispatch alerts.Dispatch
	require.NoError(t, json.Unmarshal(body, &dispatch))
	assert.True(t, dispatch.Escalated)
	assert.Equal(t, alerts.StateEmitted, dispatch.State)
	assert.Equal(t, alerts.ManualEscalationOwner, dispatch.Plan.Owner)
	assert.NotEmpty(t, dispatch.AlertID)
}

func TestAPI_Cycles(t *testing.T) {
	api := setupTestAPI(t, false)

	resp, body := api.do(t, http.MethodPost, "/cycles/optimization", nil)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Contains(t, string(body), "not_running")

	require.NoError(t, api.coordinator.Initialize(context.Background()))

	resp, body = api.do(t, http.MethodPost, "/cycles/optimization", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var report coordinator.CrossTeamReport
	require.NoError(t, json.Unmarshal(body, &report))
	assert.Equal(t, 3, report.ActiveTeams)
	assert.Len(t, report.Scores, 3)
	assert.Len(t, report.Opportunities, 4)

	resp, body = api.do(t, http.MethodPost, "/cycles/report", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var consolidated coordinator.ConsolidatedReport
	require.NoError(t, json.Unmarshal(body, &consolidated))
	assert.Equal(t, 4, consolidated.TotalTeams)
	assert.NotEmpty(t, consolidated.SharedMetrics)

	resp, body = api.do(t, http.MethodGet, "/dashboard", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var dashboard coordinator.Dashboard
	require.NoError(t, json.Unmarshal(body, &dashboard))
	require.NotNil(t, dashboard.AverageScore)
	assert.Equal(t, []string{"operations", "security"}, dashboard.Dependencies["finance"])
}

func TestAPI_Events(t *testing.T) {
	api := setupTestAPI(t, false)
	ctx := context.Background()

	for _, team := range []string{"finance", "operations", "legal"} {
		entry, err := journal.NewEntry(events.WorkflowStarted{
			BaseEvent: events.NewBaseEvent(events.WorkflowStartedEvent, team),
		})
		require.NoError(t, err)
		require.NoError(t, api.journal.Append(ctx, entry))
	}

	resp, body := api.do(t, http.MethodGet, "/events?limit=2", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var recent web.EventsResponse
	require.NoError(t, json.Unmarshal(body, &recent))
	assert.Equal(t, 2, recent.Limit)
	require.Len(t, recent.Events, 2)
	assert.Equal(t, "legal", recent.Events[0].Team)

	resp, _ = api.do(t, http.MethodGet, "/events?limit=zero", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestAPI_Metrics(t *testing.T) {
	api := setupTestAPI(t, true)

	resp, _ := api.do(t, http.MethodPost, "/cycles/optimization", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, body := api.do(t, http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "teamflow_cycles_total")
	assert.Contains(t, string(body), "teamflow_team_performance_score")
}
