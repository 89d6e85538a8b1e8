package workflow

import (
	"time"

	"github.com/dukex/teamflow/pkg/alerts"
	"github.com/dukex/teamflow/pkg/models"
)

type ProcessCounts struct {
	Total     int `json:"total"`
	Active    int `json:"active"`
	Completed int `json:"completed"`
	Failed    int `json:"failed"`
	Stopped   int `json:"stopped"`
}

type Status struct {
	Team                 string        `json:"team"`
	Running              bool          `json:"running"`
	StartedAt            *time.Time    `json:"started_at,omitempty"`
	Processes            ProcessCounts `json:"processes"`
	OptimizationCycles   int           `json:"optimization_cycles"`
	ReportCycles         int           `json:"report_cycles"`
	LastOptimizationAt   *time.Time    `json:"last_optimization_at,omitempty"`
	LastReportAt         *time.Time    `json:"last_report_at,omitempty"`
	OptimizationInterval time.Duration `json:"optimization_interval"`
	ReportInterval       time.Duration `json:"report_interval"`
	Alerts               alerts.Stats  `json:"alerts"`
}

type ProcessSummary struct {
	ID                   string               `json:"id"`
	Name                 string               `json:"name"`
	Priority             models.Priority      `json:"priority"`
	Status               models.ProcessStatus `json:"status"`
	KPIName              string               `json:"kpi_name"`
	Runs                 int                  `json:"runs"`
	Metrics              models.Metrics       `json:"metrics"`
	Confidence           float64              `json:"confidence"`
	LastRunAt            *time.Time           `json:"last_run_at,omitempty"`
	LastError            string               `json:"last_error,omitempty"`
	AppliedOptimizations int                  `json:"applied_optimizations"`
}

// Dashboard is the read model consumed by the coordinator and the HTTP API.
// Metrics and KPIAttainment are nil when nothing has been measured.
type Dashboard struct {
	Team           string             `json:"team"`
	Running        bool               `json:"running"`
	Metrics        *models.Metrics    `json:"metrics,omitempty"`
	KPIAttainment  *float64           `json:"kpi_attainment,omitempty"`
	KPIs           []models.KPITarget `json:"kpis"`
	Processes      []ProcessSummary   `json:"processes"`
	RecentInsights []models.Insight   `json:"recent_insights"`
	LastReport     *Report            `json:"last_report,omitempty"`
	Alerts         alerts.Stats       `json:"alerts"`
}

// Status never fails and never mutates the workflow.
func (w *Workflow) Status() Status {
	w.mu.Lock()
	defer w.mu.Unlock()

	status := Status{
		Team:                 w.cfg.Team,
		Running:              w.running,
		StartedAt:            copyTime(w.startedAt),
		OptimizationCycles:   w.optimizationCycles,
		ReportCycles:         w.reportCycles,
		LastOptimizationAt:   copyTime(w.lastOptimizationAt),
		OptimizationInterval: w.cfg.OptimizationInterval,
		ReportInterval:       w.cfg.ReportInterval,
		Alerts:               w.router.Stats(),
	}

	if w.lastReport != nil {
		status.LastReportAt = copyTime(&w.lastReport.GeneratedAt)
	}

	if w.registry != nil {
		status.Processes = countStatuses(w.registry.Instances())
	}

	return status
}

// Dashboard never fails and never mutates the workflow.
func (w *Workflow) Dashboard() Dashboard {
	w.mu.Lock()
	defer w.mu.Unlock()

	dashboard := Dashboard{
		Team:           w.cfg.Team,
		Running:        w.running,
		KPIs:           w.adapter.Targets(),
		Processes:      []ProcessSummary{},
		RecentInsights: append([]models.Insight{}, w.recentInsights...),
		Alerts:         w.router.Stats(),
	}

	if len(dashboard.KPIs) > 0 {
		attainment := w.adapter.MeanAttainment()
		dashboard.KPIAttainment = &attainment
	}

	if w.lastReport != nil {
		report := *w.lastReport
		report.KPIs = append([]models.KPITarget(nil), w.lastReport.KPIs...)
		dashboard.LastReport = &report
	}

	if w.registry == nil {
		return dashboard
	}

	instances := w.registry.Instances()
	dashboard.Metrics = averageMetrics(instances)

	for _, instance := range instances {
		dashboard.Processes = append(dashboard.Processes, ProcessSummary{
			ID:                   instance.ID,
			Name:                 instance.Definition.Name,
			Priority:             instance.Definition.Priority,
			Status:               instance.Status,
			KPIName:              instance.Definition.KPIName,
			Runs:                 instance.Runs,
			Metrics:              instance.Metrics,
			Confidence:           instance.Confidence,
			LastRunAt:            instance.LastRunAt,
			LastError:            instance.LastError,
			AppliedOptimizations: len(instance.AppliedOptimizations),
		})
	}

	return dashboard
}

func countStatuses(instances []models.ProcessInstance) ProcessCounts {
	counts := ProcessCounts{Total: len(instances)}

	for _, instance := range instances {
		switch instance.Status {
		case models.ProcessStatusActive:
			counts.Active++
		case models.ProcessStatusCompleted:
			counts.Completed++
		case models.ProcessStatusFailed:
			counts.Failed++
		case models.ProcessStatusStopped:
			counts.Stopped++
		}
	}

	return counts
}

// averageMetrics averages the metrics of instances that have run at least
// once and are not Failed, or returns nil when there are none. A Failed
// instance keeps its last metrics for inspection but no longer counts.
func averageMetrics(instances []models.ProcessInstance) *models.Metrics {
	var (
		sum      models.Metrics
		measured int
	)

	for _, instance := range instances {
		if instance.Runs == 0 || instance.Status == models.ProcessStatusFailed {
			continue
		}

		measured++
		sum.Efficiency += instance.Metrics.Efficiency
		sum.Effectiveness += instance.Metrics.Effectiveness
		sum.Satisfaction += instance.Metrics.Satisfaction
		sum.CostOrResolutionTime += instance.Metrics.CostOrResolutionTime
	}

	if measured == 0 {
		return nil
	}

	n := float64(measured)

	return &models.Metrics{
		Efficiency:           sum.Efficiency / n,
		Effectiveness:        sum.Effectiveness / n,
		Satisfaction:         sum.Satisfaction / n,
		CostOrResolutionTime: sum.CostOrResolutionTime / n,
	}
}

func copyTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}

	c := *t

	return &c
}
