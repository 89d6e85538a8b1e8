// Package alerts routes team alerts through analysis and planning to either
// an automatic plan or the manual-escalation channel.
package alerts

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/dukex/teamflow/pkg/cache"
	"github.com/dukex/teamflow/pkg/eventbus"
	"github.com/dukex/teamflow/pkg/events"
	"github.com/dukex/teamflow/pkg/models"
	"github.com/go-playground/validator/v10"
	"github.com/jonboulle/clockwork"
)

const (
	DefaultEscalationThreshold = 0.7

	// DefaultConsumedTTL is how long a routed alert ID is remembered.
	DefaultConsumedTTL = 7 * 24 * time.Hour

	// ManualEscalationOwner owns every escalated plan.
	ManualEscalationOwner = "manual_escalation"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

type State string

const (
	StateReceived State = "received"
	StateAnalyzed State = "analyzed"
	StatePlanned  State = "planned"
	StateEmitted  State = "emitted"
)

type Plan struct {
	Actions   []string `json:"actions"`
	Owner     string   `json:"owner"`
	Automatic bool     `json:"automatic"`
}

// Dispatch is the record of one alert's trip through the router.
type Dispatch struct {
	AlertID    string     `json:"alert_id"`
	State      State      `json:"state"`
	Assessment Assessment `json:"assessment"`
	Plan       Plan       `json:"plan"`
	Escalated  bool       `json:"escalated"`
	Reason     string     `json:"reason,omitempty"`
}

type Stats struct {
	Routed     int `json:"routed"`
	Escalated  int `json:"escalated"`
	Dropped    int `json:"dropped"`
	Duplicates int `json:"duplicates"`
}

type Router struct {
	team      string
	analyzer  ImpactAnalyzer
	threshold float64
	playbooks map[string][]string
	consumed  cache.Provider
	retention time.Duration
	publisher eventbus.EventPublisher
	clock     clockwork.Clock
	logger    *slog.Logger

	mu    sync.Mutex
	stats Stats
}

type Option func(*Router)

func WithEscalationThreshold(threshold float64) Option {
	return func(r *Router) { r.threshold = threshold }
}

// WithPlaybooks sets the automatic actions per alert kind.
func WithPlaybooks(playbooks map[string][]string) Option {
	return func(r *Router) { r.playbooks = playbooks }
}

// WithConsumedStore records consumed alert IDs in store, so replicas sharing
// the store route each alert once.
func WithConsumedStore(store cache.Provider) Option {
	return func(r *Router) { r.consumed = store }
}

// WithConsumedTTL bounds how long routed IDs are remembered. Zero keeps
// them forever.
func WithConsumedTTL(ttl time.Duration) Option {
	return func(r *Router) { r.retention = ttl }
}

func WithPublisher(publisher eventbus.EventPublisher) Option {
	return func(r *Router) { r.publisher = publisher }
}

func WithClock(clock clockwork.Clock) Option {
	return func(r *Router) { r.clock = clock }
}

func NewRouter(team string, analyzer ImpactAnalyzer, logger *slog.Logger, opts ...Option) *Router {
	r := &Router{
		team:      team,
		analyzer:  analyzer,
		threshold: DefaultEscalationThreshold,
		retention: DefaultConsumedTTL,
		playbooks: map[string][]string{},
		clock:     clockwork.NewRealClock(),
		logger:    logger.With("module", "alert_router", "team", team),
	}

	for _, opt := range opts {
		opt(r)
	}

	if r.consumed == nil {
		r.consumed = cache.NewMemoryProvider(r.clock)
	}

	return r
}

// Fingerprint derives a stable ID from the alert content. Payloads that have
// no JSON form (NaN, channels, functions) cannot be fingerprinted.
func Fingerprint(alert models.AlertEvent) (string, error) {
	content, err := json.Marshal(struct {
		Kind            string          `json:"kind"`
		Severity        models.Severity `json:"severity"`
		RiskProbability float64         `json:"risk_probability"`
		Payload         map[string]any  `json:"payload"`
		SourceTeam      string          `json:"source_team"`
	}{alert.Kind, alert.Severity, alert.RiskProbability, alert.Payload, alert.SourceTeam})

	if err != nil {
		return "", fmt.Errorf("%w: payload cannot be fingerprinted: %v", ErrInvalidAlert, err)
	}

	sum := sha256.Sum256(content)

	return hex.EncodeToString(sum[:]), nil
}

// Route moves alert through received, analyzed, planned and emitted. Each
// alert ID is routed at most once, and failures are never retried. Only
// alerts accepted at the received stage are published as team_alert.
func (r *Router) Route(ctx context.Context, alert models.AlertEvent) (Dispatch, error) {
	if err := validate.Struct(alert); err != nil {
		return Dispatch{}, fmt.Errorf("%w: %v", ErrInvalidAlert, err)
	}

	if alert.ID == "" {
		id, err := Fingerprint(alert)
		if err != nil {
			return Dispatch{}, err
		}

		alert.ID = id
	}

	if alert.ReceivedAt.IsZero() {
		alert.ReceivedAt = r.clock.Now()
	}

	dispatch := Dispatch{AlertID: alert.ID, State: StateReceived}

	fresh, err := r.consumed.SetNX(ctx, "alert:"+alert.ID, []byte(r.team), r.retention)
	if err != nil {
		r.logger.WarnContext(ctx, "Consumed-alert store unavailable", "alert_id", alert.ID, "error", err)

		fresh = true
	}

	if !fresh {
		r.count(func(s *Stats) { s.Duplicates++ })

		return dispatch, fmt.Errorf("%w: %s", ErrAlertAlreadyConsumed, alert.ID)
	}

	eventbus.Emit(ctx, r.publisher, r.logger, r.team, events.TeamAlert{
		BaseEvent: events.NewBaseEvent(events.TeamAlertEvent, r.team),
		Alert:     alert,
	})

	assessment, err := r.analyzer.AnalyzeImpact(ctx, alert)
	if err != nil {
		r.count(func(s *Stats) { s.Dropped++ })
		r.logger.WarnContext(ctx, "Dropping alert after failed analysis", "alert_id", alert.ID, "kind", alert.Kind, "error", err)

		eventbus.Emit(ctx, r.publisher, r.logger, r.team, events.AlertDropped{
			BaseEvent: events.NewBaseEvent(events.AlertDroppedEvent, r.team),
			AlertID:   alert.ID,
			Kind:      alert.Kind,
			Error:     err.Error(),
		})

		return dispatch, fmt.Errorf("%w: %w", ErrAlertAnalysisFailed, err)
	}

	dispatch.State = StateAnalyzed
	dispatch.Assessment = assessment

	reason := r.escalationReason(alert, assessment)
	dispatch.Plan = r.plan(alert, reason == "")
	dispatch.State = StatePlanned

	if reason != "" {
		dispatch.Escalated = true
		dispatch.Reason = reason
		r.count(func(s *Stats) { s.Routed++; s.Escalated++ })

		eventbus.Emit(ctx, r.publisher, r.logger, r.team, events.AlertEscalated{
			BaseEvent: events.NewBaseEvent(events.AlertEscalatedEvent, r.team),
			AlertID:   alert.ID,
			Kind:      alert.Kind,
			Severity:  alert.Severity,
			Impact:    assessment.Impact,
			Reason:    reason,
			Owner:     dispatch.Plan.Owner,
			Actions:   dispatch.Plan.Actions,
		})
	} else {
		r.count(func(s *Stats) { s.Routed++ })

		eventbus.Emit(ctx, r.publisher, r.logger, r.team, events.AlertPlanEmitted{
			BaseEvent: events.NewBaseEvent(events.AlertPlanEmittedEvent, r.team),
			AlertID:   alert.ID,
			Kind:      alert.Kind,
			Impact:    assessment.Impact,
			Owner:     dispatch.Plan.Owner,
			Actions:   dispatch.Plan.Actions,
		})
	}

	dispatch.State = StateEmitted

	r.logger.InfoContext(ctx, "Alert routed",
		"alert_id", alert.ID,
		"kind", alert.Kind,
		"escalated", dispatch.Escalated,
	)

	return dispatch, nil
}

func (r *Router) Stats() Stats {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.stats
}

// escalationReason returns why alert needs a human, or "" when an automatic
// plan is enough.
func (r *Router) escalationReason(alert models.AlertEvent, assessment Assessment) string {
	switch {
	case alert.Severity == models.SeverityHigh || alert.Severity == models.SeverityCritical:
		return fmt.Sprintf("severity %s", alert.Severity)
	case IsRiskKind(alert.Kind) && alert.RiskProbability >= r.threshold:
		return fmt.Sprintf("risk probability %.2f at or above %.2f", alert.RiskProbability, r.threshold)
	case assessment.Impact == models.ImpactCritical:
		return "critical impact"
	default:
		return ""
	}
}

func (r *Router) plan(alert models.AlertEvent, automatic bool) Plan {
	actions, exists := r.playbooks[alert.Kind]
	if !exists {
		actions = []string{
			fmt.Sprintf("Investigate %s alert", alert.Kind),
			fmt.Sprintf("Notify %s process owners", r.team),
		}
	}

	owner := r.team + "_lead"
	if !automatic {
		owner = ManualEscalationOwner
	}

	return Plan{
		Actions:   append([]string(nil), actions...),
		Owner:     owner,
		Automatic: automatic,
	}
}

func (r *Router) count(update func(*Stats)) {
	r.mu.Lock()
	defer r.mu.Unlock()

	update(&r.stats)
}
