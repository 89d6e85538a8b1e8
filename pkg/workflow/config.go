package workflow

import (
	"errors"
	"log/slog"
	"time"

	"github.com/dukex/teamflow/pkg/alerts"
	"github.com/dukex/teamflow/pkg/cache"
	"github.com/dukex/teamflow/pkg/eventbus"
	"github.com/dukex/teamflow/pkg/insights"
	"github.com/dukex/teamflow/pkg/kpi"
	"github.com/dukex/teamflow/pkg/models"
	"github.com/dukex/teamflow/pkg/otelhelper"
	"github.com/dukex/teamflow/pkg/provider"
	"github.com/dukex/teamflow/pkg/registry"
	"github.com/dukex/teamflow/pkg/scheduler"
	"github.com/dukex/teamflow/pkg/teams"
	"github.com/jonboulle/clockwork"
	"go.opentelemetry.io/otel/trace"
)

const (
	DefaultOptimizationInterval  = 5 * time.Minute
	DefaultReportInterval        = 24 * time.Hour
	DefaultOptimizationsPerCycle = 2
	DefaultRecentInsights        = 20
)

var ErrMissingProvider = errors.New("capability provider is required")

// Config is the static description of one team workflow.
type Config struct {
	Team                  string
	Processes             []models.ProcessDefinition
	KPIs                  []models.KPITarget
	Insights              insights.Catalog
	Playbooks             map[string][]string
	OptimizationInterval  time.Duration
	ReportInterval        time.Duration
	StepFactor            float64
	MinConfidence         float64
	OptimizationsPerCycle int
	EscalationThreshold   float64
	// AlertRetention is how long routed alert IDs are remembered.
	AlertRetention time.Duration
}

// FromDefinition builds a Config with default tuning from a team table.
func FromDefinition(definition teams.Definition) Config {
	return Config{
		Team:      definition.Name,
		Processes: definition.Processes,
		KPIs:      definition.KPIs,
		Insights:  definition.Insights,
		Playbooks: definition.Playbooks,
	}
}

func (c Config) withDefaults() Config {
	if c.OptimizationInterval <= 0 {
		c.OptimizationInterval = DefaultOptimizationInterval
	}

	if c.ReportInterval <= 0 {
		c.ReportInterval = DefaultReportInterval
	}

	if c.StepFactor <= 0 {
		c.StepFactor = kpi.DefaultStepFactor
	}

	if c.MinConfidence <= 0 {
		c.MinConfidence = provider.DefaultMinConfidence
	}

	if c.OptimizationsPerCycle <= 0 {
		c.OptimizationsPerCycle = DefaultOptimizationsPerCycle
	}

	if c.EscalationThreshold <= 0 {
		c.EscalationThreshold = alerts.DefaultEscalationThreshold
	}

	if c.AlertRetention <= 0 {
		c.AlertRetention = alerts.DefaultConsumedTTL
	}

	return c
}

// Dependencies are the collaborators a workflow calls out to. Only Provider
// is required.
type Dependencies struct {
	Provider       provider.Provider
	Publisher      eventbus.EventPublisher
	Scheduler      scheduler.Factory
	Clock          clockwork.Clock
	Analyzer       alerts.ImpactAnalyzer
	Applier        registry.Applier
	ConsumedAlerts cache.Provider
	Tracer         trace.Tracer
	Logger         *slog.Logger
}

func (d Dependencies) withDefaults() Dependencies {
	if d.Clock == nil {
		d.Clock = clockwork.NewRealClock()
	}

	if d.Scheduler == nil {
		d.Scheduler = scheduler.TickerFactory(d.Clock)
	}

	if d.Analyzer == nil {
		d.Analyzer = alerts.SeverityAnalyzer{}
	}

	if d.Applier == nil {
		d.Applier = registry.ExpectedImpactApplier{}
	}

	if d.Tracer == nil {
		d.Tracer = otelhelper.NoopTracer()
	}

	if d.Logger == nil {
		d.Logger = slog.Default()
	}

	return d
}
