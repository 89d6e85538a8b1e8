// Package events defines event types and structures for team workflow lifecycle notifications.
package events

import (
	"time"

	"github.com/dukex/teamflow/pkg/models"
	"github.com/google/uuid"
)

type EventType string

// Topic carries every teamflow event.
const Topic = "teamflow.events"

const EventMetadataKey = "key"
const EventTypeMetadataKey = "event_type"

const (
	// Workflow lifecycle events.
	WorkflowStartedEvent EventType = "workflow_started"
	WorkflowStoppedEvent EventType = "workflow_stopped"

	// Process instance events.
	ProcessStartedEvent   EventType = "process_started"
	ProcessCompletedEvent EventType = "process_completed"
	ProcessFailedEvent    EventType = "process_failed"
	ProcessStoppedEvent   EventType = "process_stopped"

	// Optimization and reporting events.
	OptimizationAppliedEvent        EventType = "optimization_applied"
	InsightGeneratedEvent           EventType = "insight_generated"
	OptimizationCycleCompletedEvent EventType = "optimization_cycle_completed"
	DailyReportGeneratedEvent       EventType = "daily_report_generated"

	// Alert routing events.
	TeamAlertEvent        EventType = "team_alert"
	AlertPlanEmittedEvent EventType = "alert_plan_emitted"
	AlertEscalatedEvent   EventType = "alert_escalated"
	AlertDroppedEvent     EventType = "alert_dropped"

	// Coordinator events.
	CrossTeamOptimizationCompletedEvent EventType = "cross_team_optimization_completed"
	CrossTeamReportGeneratedEvent       EventType = "cross_team_report_generated"
	TeamAddedEvent                      EventType = "team_added"
	TeamRemovedEvent                    EventType = "team_removed"
)

// AllTypes lists every event type, in declaration order.
var AllTypes = []EventType{
	WorkflowStartedEvent,
	WorkflowStoppedEvent,
	ProcessStartedEvent,
	ProcessCompletedEvent,
	ProcessFailedEvent,
	ProcessStoppedEvent,
	OptimizationAppliedEvent,
	InsightGeneratedEvent,
	OptimizationCycleCompletedEvent,
	DailyReportGeneratedEvent,
	TeamAlertEvent,
	AlertPlanEmittedEvent,
	AlertEscalatedEvent,
	AlertDroppedEvent,
	CrossTeamOptimizationCompletedEvent,
	CrossTeamReportGeneratedEvent,
	TeamAddedEvent,
	TeamRemovedEvent,
}

type BaseEvent struct {
	ID        string         `json:"id"`
	Type      EventType      `json:"type"`
	Timestamp time.Time      `json:"timestamp"`
	Team      string         `json:"team"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

// Base exposes the common envelope of an event.
func (b BaseEvent) Base() BaseEvent {
	return b
}

func NewBaseEvent(eventType EventType, team string) BaseEvent {
	return BaseEvent{
		ID:        uuid.New().String(),
		Type:      eventType,
		Timestamp: time.Now().UTC(),
		Team:      team,
		Metadata:  make(map[string]any),
	}
}

type WorkflowStarted struct {
	BaseEvent

	Processes []string `json:"processes"`
}

func (e WorkflowStarted) GetType() EventType {
	return WorkflowStartedEvent
}

type WorkflowStopped struct {
	BaseEvent

	StoppedInstances int `json:"stopped_instances"`
}

func (e WorkflowStopped) GetType() EventType {
	return WorkflowStoppedEvent
}

type ProcessStarted struct {
	BaseEvent

	InstanceID string           `json:"instance_id"`
	Process    string           `json:"process"`
	Priority   models.Priority  `json:"priority"`
	Frequency  models.Frequency `json:"frequency"`
}

func (e ProcessStarted) GetType() EventType {
	return ProcessStartedEvent
}

type ProcessCompleted struct {
	BaseEvent

	InstanceID string               `json:"instance_id"`
	Process    string               `json:"process"`
	Run        int                  `json:"run"`
	Status     models.ProcessStatus `json:"status"`
	Metrics    models.Metrics       `json:"metrics"`
	Confidence float64              `json:"confidence"`
}

func (e ProcessCompleted) GetType() EventType {
	return ProcessCompletedEvent
}

type ProcessFailed struct {
	BaseEvent

	InstanceID string `json:"instance_id"`
	Process    string `json:"process"`
	Error      string `json:"error"`
}

func (e ProcessFailed) GetType() EventType {
	return ProcessFailedEvent
}

type ProcessStopped struct {
	BaseEvent

	InstanceID string `json:"instance_id"`
	Process    string `json:"process"`
}

func (e ProcessStopped) GetType() EventType {
	return ProcessStoppedEvent
}

type OptimizationApplied struct {
	BaseEvent

	InstanceID string  `json:"instance_id"`
	Process    string  `json:"process"`
	Action     string  `json:"action"`
	Impact     float64 `json:"impact"`
}

func (e OptimizationApplied) GetType() EventType {
	return OptimizationAppliedEvent
}

type InsightGenerated struct {
	BaseEvent

	Insight models.Insight `json:"insight"`
}

func (e InsightGenerated) GetType() EventType {
	return InsightGeneratedEvent
}

type OptimizationCycleCompleted struct {
	BaseEvent

	Processed int `json:"processed"`
	Failed    int `json:"failed"`
	Insights  int `json:"insights"`
	Applied   int `json:"applied"`
}

func (e OptimizationCycleCompleted) GetType() EventType {
	return OptimizationCycleCompletedEvent
}

type DailyReportGenerated struct {
	BaseEvent

	ActiveProcesses    int                `json:"active_processes"`
	FailedProcesses    int                `json:"failed_processes"`
	CompletedProcesses int                `json:"completed_processes"`
	AverageEfficiency  float64            `json:"average_efficiency"`
	KPIs               []models.KPITarget `json:"kpis"`
}

func (e DailyReportGenerated) GetType() EventType {
	return DailyReportGeneratedEvent
}

type TeamAlert struct {
	BaseEvent

	Alert models.AlertEvent `json:"alert"`
}

func (e TeamAlert) GetType() EventType {
	return TeamAlertEvent
}

type AlertPlanEmitted struct {
	BaseEvent

	AlertID string        `json:"alert_id"`
	Kind    string        `json:"kind"`
	Impact  models.Impact `json:"impact"`
	Owner   string        `json:"owner"`
	Actions []string      `json:"actions"`
}

func (e AlertPlanEmitted) GetType() EventType {
	return AlertPlanEmittedEvent
}

type AlertEscalated struct {
	BaseEvent

	AlertID  string          `json:"alert_id"`
	Kind     string          `json:"kind"`
	Severity models.Severity `json:"severity"`
	Impact   models.Impact   `json:"impact"`
	Reason   string          `json:"reason"`
	Owner    string          `json:"owner"`
	Actions  []string        `json:"actions"`
}

func (e AlertEscalated) GetType() EventType {
	return AlertEscalatedEvent
}

type AlertDropped struct {
	BaseEvent

	AlertID string `json:"alert_id"`
	Kind    string `json:"kind"`
	Error   string `json:"error"`
}

func (e AlertDropped) GetType() EventType {
	return AlertDroppedEvent
}

type CrossTeamOptimizationCompleted struct {
	BaseEvent

	ActiveTeams   int      `json:"active_teams"`
	AverageScore  float64  `json:"average_score"`
	LowPerformers []string `json:"low_performers"`
	Opportunities []string `json:"opportunities"`
}

func (e CrossTeamOptimizationCompleted) GetType() EventType {
	return CrossTeamOptimizationCompletedEvent
}

type CrossTeamReportGenerated struct {
	BaseEvent

	ActiveTeams   int                   `json:"active_teams"`
	TotalTeams    int                   `json:"total_teams"`
	SharedMetrics []models.SharedMetric `json:"shared_metrics"`
}

func (e CrossTeamReportGenerated) GetType() EventType {
	return CrossTeamReportGeneratedEvent
}

type TeamAdded struct {
	BaseEvent

	Active    bool     `json:"active"`
	DependsOn []string `json:"depends_on,omitempty"`
}

func (e TeamAdded) GetType() EventType {
	return TeamAddedEvent
}

type TeamRemoved struct {
	BaseEvent
}

func (e TeamRemoved) GetType() EventType {
	return TeamRemovedEvent
}
