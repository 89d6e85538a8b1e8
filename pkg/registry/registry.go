// Package registry owns the process instances of one team and runs them
// through the capability provider.
package registry

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/dukex/teamflow/pkg/eventbus"
	"github.com/dukex/teamflow/pkg/events"
	"github.com/dukex/teamflow/pkg/models"
	"github.com/dukex/teamflow/pkg/provider"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Outcome is the result of executing one process instance once.
type Outcome struct {
	InstanceID string
	Process    string
	KPIName    string
	Status     models.ProcessStatus
	Analysis   models.Analysis
	Err        error
}

func (o Outcome) Succeeded() bool {
	return o.Err == nil
}

type Registry struct {
	team      string
	provider  provider.Provider
	applier   Applier
	clock     clockwork.Clock
	publisher eventbus.EventPublisher
	logger    *slog.Logger

	mu        sync.Mutex
	instances map[string]*models.ProcessInstance
	byName    map[string]string
	stopped   bool
}

type Option func(*Registry)

func WithApplier(applier Applier) Option {
	return func(r *Registry) { r.applier = applier }
}

func WithClock(clock clockwork.Clock) Option {
	return func(r *Registry) { r.clock = clock }
}

func WithPublisher(publisher eventbus.EventPublisher) Option {
	return func(r *Registry) { r.publisher = publisher }
}

func New(team string, p provider.Provider, logger *slog.Logger, opts ...Option) *Registry {
	r := &Registry{
		team:      team,
		provider:  p,
		applier:   ExpectedImpactApplier{},
		clock:     clockwork.NewRealClock(),
		logger:    logger.With("module", "registry", "team", team),
		instances: make(map[string]*models.ProcessInstance),
		byName:    make(map[string]string),
	}

	for _, opt := range opts {
		opt(r)
	}

	return r
}

func ValidateDefinition(def models.ProcessDefinition) error {
	if err := validate.Struct(def); err != nil {
		return fmt.Errorf("%w %q: %v", models.ErrInvalidDefinition, def.Name, err)
	}

	return nil
}

// Start registers def as a new Active instance and executes it immediately.
// A name that already has an Active instance is rejected.
func (r *Registry) Start(ctx context.Context, def models.ProcessDefinition) (Outcome, error) {
	if err := ValidateDefinition(def); err != nil {
		return Outcome{}, err
	}

	r.mu.Lock()

	if r.stopped {
		r.mu.Unlock()

		return Outcome{}, ErrRegistryStopped
	}

	if id, exists := r.byName[def.Name]; exists && r.instances[id].Status == models.ProcessStatusActive {
		r.mu.Unlock()

		return Outcome{}, fmt.Errorf("%w: %s", ErrProcessAlreadyActive, def.Name)
	}

	instance := &models.ProcessInstance{
		ID:         uuid.New().String(),
		Team:       r.team,
		Definition: def,
		Status:     models.ProcessStatusActive,
		StartTime:  r.clock.Now(),
	}
	r.instances[instance.ID] = instance
	r.byName[def.Name] = instance.ID

	pending := []eventbus.Event{events.ProcessStarted{
		BaseEvent:  events.NewBaseEvent(events.ProcessStartedEvent, r.team),
		InstanceID: instance.ID,
		Process:    def.Name,
		Priority:   def.Priority,
		Frequency:  def.Frequency,
	}}

	outcome, event := r.execute(ctx, instance)
	pending = append(pending, event)

	r.mu.Unlock()
	r.emit(ctx, pending...)

	return outcome, nil
}

// RunCycle executes every Active instance once, in process name order. A
// failing instance does not stop the cycle. After Stop it does nothing.
func (r *Registry) RunCycle(ctx context.Context) []Outcome {
	r.mu.Lock()

	if r.stopped {
		r.mu.Unlock()

		return nil
	}

	var (
		outcomes []Outcome
		pending  []eventbus.Event
	)

	for _, instance := range r.sortedLocked() {
		if instance.Status != models.ProcessStatusActive {
			continue
		}

		if ctx.Err() != nil {
			r.logger.WarnContext(ctx, "Cycle interrupted", "error", ctx.Err())

			break
		}

		outcome, event := r.execute(ctx, instance)
		outcomes = append(outcomes, outcome)
		pending = append(pending, event)
	}

	r.mu.Unlock()
	r.emit(ctx, pending...)

	return outcomes
}

// Resume re-activates the Failed instance of the named process and executes
// it immediately.
func (r *Registry) Resume(ctx context.Context, name string) (Outcome, error) {
	r.mu.Lock()

	if r.stopped {
		r.mu.Unlock()

		return Outcome{}, ErrRegistryStopped
	}

	id, exists := r.byName[name]
	if !exists {
		r.mu.Unlock()

		return Outcome{}, fmt.Errorf("%w: %s", ErrInstanceNotFound, name)
	}

	instance := r.instances[id]
	if instance.Status != models.ProcessStatusFailed {
		r.mu.Unlock()

		return Outcome{}, fmt.Errorf("%w: %s is %s", ErrProcessNotFailed, name, instance.Status)
	}

	instance.Status = models.ProcessStatusActive
	outcome, event := r.execute(ctx, instance)

	r.mu.Unlock()
	r.emit(ctx, event)

	return outcome, nil
}

// ApplyOptimizations applies up to limit recommendations of an Active
// instance, highest priority and expected impact first.
func (r *Registry) ApplyOptimizations(ctx context.Context, id string, limit int) ([]models.AppliedOptimization, error) {
	r.mu.Lock()

	if r.stopped {
		r.mu.Unlock()

		return nil, ErrRegistryStopped
	}

	instance, exists := r.instances[id]
	if !exists {
		r.mu.Unlock()

		return nil, fmt.Errorf("%w: %s", ErrInstanceNotFound, id)
	}

	if instance.Status != models.ProcessStatusActive || limit <= 0 {
		r.mu.Unlock()

		return nil, nil
	}

	var (
		applied []models.AppliedOptimization
		pending []eventbus.Event
	)

	for _, recommendation := range TopRecommendations(instance.Recommendations, limit) {
		impact, err := r.applier.Apply(ctx, r.team, instance.Clone(), recommendation)
		if err != nil {
			r.logger.WarnContext(ctx, "Failed to apply optimization",
				"process", instance.Definition.Name,
				"action", recommendation.Action,
				"error", err,
			)

			continue
		}

		optimization := models.AppliedOptimization{
			Action:    recommendation.Action,
			Impact:    impact,
			AppliedAt: r.clock.Now(),
		}
		instance.AppliedOptimizations = append(instance.AppliedOptimizations, optimization)
		applied = append(applied, optimization)

		pending = append(pending, events.OptimizationApplied{
			BaseEvent:  events.NewBaseEvent(events.OptimizationAppliedEvent, r.team),
			InstanceID: instance.ID,
			Process:    instance.Definition.Name,
			Action:     optimization.Action,
			Impact:     optimization.Impact,
		})
	}

	r.mu.Unlock()
	r.emit(ctx, pending...)

	return applied, nil
}

// Stop moves every instance to Stopped. No instance leaves Stopped afterwards.
func (r *Registry) Stop(ctx context.Context) int {
	r.mu.Lock()

	if r.stopped {
		r.mu.Unlock()

		return 0
	}

	r.stopped = true

	var pending []eventbus.Event

	for _, instance := range r.sortedLocked() {
		if instance.Status == models.ProcessStatusStopped {
			continue
		}

		instance.Status = models.ProcessStatusStopped
		pending = append(pending, events.ProcessStopped{
			BaseEvent:  events.NewBaseEvent(events.ProcessStoppedEvent, r.team),
			InstanceID: instance.ID,
			Process:    instance.Definition.Name,
		})
	}

	r.mu.Unlock()
	r.emit(ctx, pending...)

	return len(pending)
}

func (r *Registry) Stopped() bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.stopped
}

// Instances returns copies of every instance ordered by process name.
func (r *Registry) Instances() []models.ProcessInstance {
	r.mu.Lock()
	defer r.mu.Unlock()

	sorted := r.sortedLocked()
	instances := make([]models.ProcessInstance, 0, len(sorted))

	for _, instance := range sorted {
		instances = append(instances, instance.Clone())
	}

	return instances
}

func (r *Registry) Instance(id string) (models.ProcessInstance, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	instance, exists := r.instances[id]
	if !exists {
		return models.ProcessInstance{}, false
	}

	return instance.Clone(), true
}

// execute runs one provider call for instance. Callers hold r.mu.
func (r *Registry) execute(ctx context.Context, instance *models.ProcessInstance) (Outcome, eventbus.Event) {
	def := instance.Definition
	input := provider.Input{
		Team:       r.team,
		InstanceID: instance.ID,
		Run:        instance.Runs + 1,
		KPIName:    def.KPIName,
		Previous:   instance.Metrics,
	}

	analysis, err := r.provider.Analyze(ctx, def.Name, input)
	if err == nil {
		err = provider.Validate(analysis)
	}

	if err != nil {
		instance.Status = models.ProcessStatusFailed
		instance.LastError = err.Error()

		r.logger.WarnContext(ctx, "Process execution failed",
			"process", def.Name,
			"instance_id", instance.ID,
			"error", err,
		)

		outcome := Outcome{
			InstanceID: instance.ID,
			Process:    def.Name,
			KPIName:    def.KPIName,
			Status:     instance.Status,
			Err:        fmt.Errorf("%w: process %s: %w", ErrProviderFailure, def.Name, err),
		}

		return outcome, events.ProcessFailed{
			BaseEvent:  events.NewBaseEvent(events.ProcessFailedEvent, r.team),
			InstanceID: instance.ID,
			Process:    def.Name,
			Error:      err.Error(),
		}
	}

	now := r.clock.Now()
	instance.Runs++
	instance.LastRunAt = &now
	instance.Metrics = analysis.Metrics
	instance.Confidence = analysis.Confidence
	instance.Recommendations = append([]models.Recommendation(nil), analysis.Recommendations...)
	instance.LastError = ""

	if def.Frequency == models.FrequencyOnce {
		instance.Status = models.ProcessStatusCompleted
	}

	r.logger.DebugContext(ctx, "Process executed",
		"process", def.Name,
		"instance_id", instance.ID,
		"run", instance.Runs,
		"confidence", analysis.Confidence,
	)

	outcome := Outcome{
		InstanceID: instance.ID,
		Process:    def.Name,
		KPIName:    def.KPIName,
		Status:     instance.Status,
		Analysis:   analysis,
	}

	return outcome, events.ProcessCompleted{
		BaseEvent:  events.NewBaseEvent(events.ProcessCompletedEvent, r.team),
		InstanceID: instance.ID,
		Process:    def.Name,
		Run:        instance.Runs,
		Status:     instance.Status,
		Metrics:    analysis.Metrics,
		Confidence: analysis.Confidence,
	}
}

func (r *Registry) sortedLocked() []*models.ProcessInstance {
	sorted := make([]*models.ProcessInstance, 0, len(r.instances))
	for _, instance := range r.instances {
		sorted = append(sorted, instance)
	}

	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].Definition.Name != sorted[j].Definition.Name {
			return sorted[i].Definition.Name < sorted[j].Definition.Name
		}

		return sorted[i].StartTime.Before(sorted[j].StartTime)
	})

	return sorted
}

func (r *Registry) emit(ctx context.Context, pending ...eventbus.Event) {
	for _, event := range pending {
		eventbus.Emit(ctx, r.publisher, r.logger, r.team, event)
	}
}

// TopRecommendations orders recommendations by priority then expected impact
// and returns at most limit of them.
func TopRecommendations(recommendations []models.Recommendation, limit int) []models.Recommendation {
	sorted := append([]models.Recommendation(nil), recommendations...)

	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Priority.Rank() != sorted[j].Priority.Rank() {
			return sorted[i].Priority.Rank() > sorted[j].Priority.Rank()
		}

		return sorted[i].ExpectedImpact > sorted[j].ExpectedImpact
	})

	if len(sorted) > limit {
		sorted = sorted[:limit]
	}

	return sorted
}
