// Package models defines the core domain models for team workflow orchestration.
package models

import "time"

// Priority ranks a process, a recommendation or an opportunity.
type Priority string

const (
	PriorityLow      Priority = "low"
	PriorityMedium   Priority = "medium"
	PriorityHigh     Priority = "high"
	PriorityCritical Priority = "critical"
)

// Rank orders priorities from low (1) to critical (4). Unknown values rank 0.
func (p Priority) Rank() int {
	switch p {
	case PriorityLow:
		return 1
	case PriorityMedium:
		return 2
	case PriorityHigh:
		return 3
	case PriorityCritical:
		return 4
	default:
		return 0
	}
}

// Frequency describes how often a process is expected to recur.
type Frequency string

const (
	FrequencyContinuous Frequency = "continuous"
	FrequencyHourly     Frequency = "hourly"
	FrequencyDaily      Frequency = "daily"
	FrequencyWeekly     Frequency = "weekly"
	FrequencyMonthly    Frequency = "monthly"
	FrequencyOnce       Frequency = "once" // Completes after its first successful run
)

// ProcessDefinition is the static description of a recurring unit of work.
type ProcessDefinition struct {
	Name        string    `json:"name"                  validate:"required,min=2" yaml:"name"`
	Priority    Priority  `json:"priority"              validate:"required,oneof=low medium high critical" yaml:"priority"`
	Frequency   Frequency `json:"frequency"             validate:"required,oneof=continuous hourly daily weekly monthly once" yaml:"frequency"`
	KPIName     string    `json:"kpi_name"              validate:"required" yaml:"kpi"`
	Description string    `json:"description,omitempty" yaml:"description"`
}

// ProcessStatus represents the lifecycle state of a process instance.
type ProcessStatus string

const (
	ProcessStatusActive    ProcessStatus = "active"
	ProcessStatusCompleted ProcessStatus = "completed"
	ProcessStatusFailed    ProcessStatus = "failed"
	ProcessStatusStopped   ProcessStatus = "stopped"
)

// Metrics are the scores a capability provider reports for one process run.
type Metrics struct {
	Efficiency           float64 `json:"efficiency"              validate:"gte=0,lte=1"`
	Effectiveness        float64 `json:"effectiveness"           validate:"gte=0,lte=1"`
	Satisfaction         float64 `json:"satisfaction"            validate:"gte=0,lte=1"`
	CostOrResolutionTime float64 `json:"cost_or_resolution_time" validate:"gte=0"`
}

// Recommendation is an improvement suggested by a capability provider.
type Recommendation struct {
	Action         string   `json:"action"          validate:"required"`
	Priority       Priority `json:"priority"        validate:"required,oneof=low medium high critical"`
	ExpectedImpact float64  `json:"expected_impact" validate:"gte=0,lte=1"`
}

// AppliedOptimization records a recommendation that has been put in place.
type AppliedOptimization struct {
	Action    string    `json:"action"`
	Impact    float64   `json:"impact"`
	AppliedAt time.Time `json:"applied_at"`
}

// Analysis is the result of one capability provider call.
type Analysis struct {
	Metrics         Metrics          `json:"metrics"`
	Recommendations []Recommendation `json:"recommendations" validate:"dive"`
	Confidence      float64          `json:"confidence"      validate:"gte=0,lte=1"`
}

// ProcessInstance is one tracked execution lineage of a ProcessDefinition.
type ProcessInstance struct {
	ID                   string                `json:"id"`
	Team                 string                `json:"team"`
	Definition           ProcessDefinition     `json:"definition"`
	Status               ProcessStatus         `json:"status"`
	StartTime            time.Time             `json:"start_time"`
	LastRunAt            *time.Time            `json:"last_run_at,omitempty"`
	Runs                 int                   `json:"runs"`
	Metrics              Metrics               `json:"metrics"`
	Confidence           float64               `json:"confidence"`
	Recommendations      []Recommendation      `json:"recommendations"`
	AppliedOptimizations []AppliedOptimization `json:"applied_optimizations"`
	LastError            string                `json:"last_error,omitempty"`
}

// Clone returns a deep copy so callers never share slices with the owner.
func (p *ProcessInstance) Clone() ProcessInstance {
	clone := *p

	if p.LastRunAt != nil {
		at := *p.LastRunAt
		clone.LastRunAt = &at
	}

	clone.Recommendations = append([]Recommendation(nil), p.Recommendations...)
	clone.AppliedOptimizations = append([]AppliedOptimization(nil), p.AppliedOptimizations...)

	return clone
}
