// Package metrics exposes Prometheus collectors for workflow and coordinator cycles.
package metrics

import (
	"context"
	"errors"
	"time"

	"github.com/dukex/teamflow/pkg/models"
	"github.com/dukex/teamflow/pkg/provider"
	"github.com/prometheus/client_golang/prometheus"
)

const (
	OutcomeSuccess = "success"
	OutcomeError   = "error"

	CycleOptimization          = "optimization"
	CycleReport                = "report"
	CycleCrossTeamOptimization = "cross_team_optimization"
	CycleCrossTeamReport       = "cross_team_report"

	RouteAutomatic = "automatic"
	RouteEscalated = "escalated"
	RouteDropped   = "dropped"
)

const namespace = "teamflow"

var (
	cyclesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cycles_total",
			Help:      "Total number of timer cycles run, partitioned by team and cycle.",
		},
		[]string{"team", "cycle"},
	)

	processRunsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "process_runs_total",
			Help:      "Total number of process executions, partitioned by team and outcome.",
		},
		[]string{"team", "outcome"},
	)

	alertsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "alerts_total",
			Help:      "Total number of alerts routed, partitioned by team and route.",
		},
		[]string{"team", "route"},
	)

	kpiTarget = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "kpi_target",
			Help:      "Current value of each adaptive KPI target.",
		},
		[]string{"team", "kpi"},
	)

	teamPerformanceScore = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "team_performance_score",
			Help:      "Latest cross-team performance score per team.",
		},
		[]string{"team"},
	)

	providerSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "provider_seconds",
			Help:      "Capability provider latency in seconds.",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 5},
		},
		[]string{"outcome"},
	)
)

// Register attaches teamflow collectors to the supplied Prometheus registerer.
func Register(reg prometheus.Registerer) error {
	collectors := []prometheus.Collector{
		cyclesTotal,
		processRunsTotal,
		alertsTotal,
		kpiTarget,
		teamPerformanceScore,
		providerSeconds,
	}

	for _, collector := range collectors {
		if err := reg.Register(collector); err != nil {
			var alreadyRegistered prometheus.AlreadyRegisteredError
			if errors.As(err, &alreadyRegistered) {
				continue
			}

			return err
		}
	}

	return nil
}

func ObserveCycle(team, cycle string) {
	cyclesTotal.WithLabelValues(team, cycle).Inc()
}

func ObserveProcessRun(team string, err error) {
	outcome := OutcomeSuccess
	if err != nil {
		outcome = OutcomeError
	}

	processRunsTotal.WithLabelValues(team, outcome).Inc()
}

func ObserveAlert(team, route string) {
	alertsTotal.WithLabelValues(team, route).Inc()
}

func SetKPITarget(team string, target models.KPITarget) {
	kpiTarget.WithLabelValues(team, target.Name).Set(target.CurrentValue)
}

func SetTeamPerformance(team string, score float64) {
	teamPerformanceScore.WithLabelValues(team).Set(score)
}

// ForgetTeam drops the per-team gauges of a removed team.
func ForgetTeam(team string) {
	kpiTarget.DeletePartialMatch(prometheus.Labels{"team": team})
	teamPerformanceScore.DeleteLabelValues(team)
}

type instrumentedProvider struct {
	next provider.Provider
}

// InstrumentProvider records the latency and outcome of every Analyze call.
func InstrumentProvider(next provider.Provider) provider.Provider {
	return &instrumentedProvider{next: next}
}

func (p *instrumentedProvider) Analyze(ctx context.Context, process string, input provider.Input) (models.Analysis, error) {
	started := time.Now()
	analysis, err := p.next.Analyze(ctx, process, input)

	outcome := OutcomeSuccess
	if err != nil {
		outcome = OutcomeError
	}

	providerSeconds.WithLabelValues(outcome).Observe(time.Since(started).Seconds())

	return analysis, err
}
