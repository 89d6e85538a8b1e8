package coordinator

import (
	"log/slog"
	"time"

	"github.com/dukex/teamflow/pkg/eventbus"
	"github.com/dukex/teamflow/pkg/models"
	"github.com/dukex/teamflow/pkg/otelhelper"
	"github.com/dukex/teamflow/pkg/scheduler"
	"github.com/jonboulle/clockwork"
	"go.opentelemetry.io/otel/trace"
)

const (
	DefaultOptimizationInterval = 10 * time.Minute
	DefaultReportInterval       = time.Hour
	DefaultScoreThreshold       = 0.6
	DefaultLedgerSize           = 100
)

type Config struct {
	OptimizationInterval time.Duration
	ReportInterval       time.Duration
	// ScoreThreshold flags teams scoring below it as low performers.
	ScoreThreshold float64
	Dependencies   []models.TeamDependencyEdge
	// LedgerSize bounds the resource and knowledge-transfer ledgers.
	LedgerSize int
}

func (c Config) withDefaults() Config {
	if c.OptimizationInterval <= 0 {
		c.OptimizationInterval = DefaultOptimizationInterval
	}

	if c.ReportInterval <= 0 {
		c.ReportInterval = DefaultReportInterval
	}

	if c.ScoreThreshold <= 0 {
		c.ScoreThreshold = DefaultScoreThreshold
	}

	if c.LedgerSize <= 0 {
		c.LedgerSize = DefaultLedgerSize
	}

	return c
}

type Dependencies struct {
	Publisher eventbus.EventPublisher
	Scheduler scheduler.Factory
	Clock     clockwork.Clock
	Tracer    trace.Tracer
	Logger    *slog.Logger
}

func (d Dependencies) withDefaults() Dependencies {
	if d.Clock == nil {
		d.Clock = clockwork.NewRealClock()
	}

	if d.Scheduler == nil {
		d.Scheduler = scheduler.TickerFactory(d.Clock)
	}

	if d.Tracer == nil {
		d.Tracer = otelhelper.NoopTracer()
	}

	if d.Logger == nil {
		d.Logger = slog.Default()
	}

	return d
}
