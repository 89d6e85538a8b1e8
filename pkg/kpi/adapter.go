// Package kpi adapts KPI targets from observed process effectiveness.
package kpi

import (
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/dukex/teamflow/pkg/models"
	"github.com/go-playground/validator/v10"
	"github.com/jonboulle/clockwork"
)

const (
	DefaultStepFactor = 0.1

	// neutralEffectiveness leaves a target untouched.
	neutralEffectiveness = 0.5
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Adapter owns the KPI targets of one workflow. Every value stays inside its
// [Min, Max] domain.
type Adapter struct {
	stepFactor float64
	clock      clockwork.Clock

	mu      sync.Mutex
	targets map[string]*models.KPITarget
}

func NewAdapter(targets []models.KPITarget, stepFactor float64, clock clockwork.Clock) (*Adapter, error) {
	if stepFactor <= 0 {
		stepFactor = DefaultStepFactor
	}

	a := &Adapter{
		stepFactor: stepFactor,
		clock:      clock,
		targets:    make(map[string]*models.KPITarget, len(targets)),
	}

	for _, target := range targets {
		if err := validate.Struct(target); err != nil {
			return nil, fmt.Errorf("invalid KPI %q: %w", target.Name, err)
		}

		if _, exists := a.targets[target.Name]; exists {
			return nil, fmt.Errorf("duplicate KPI %q", target.Name)
		}

		target.CurrentValue = clamp(target.CurrentValue, target.Min, target.Max)
		if target.Trend == "" {
			target.Trend = models.TrendStable
		}

		a.targets[target.Name] = &target
	}

	return a, nil
}

// Adapt moves the named target by (effectiveness - 0.5) * stepFactor * span.
// Ratio targets rise and duration targets fall. Effectiveness at or below
// 0.5 leaves the value unchanged and the trend stable.
func (a *Adapter) Adapt(name string, effectiveness float64) (models.KPITarget, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	target, exists := a.targets[name]
	if !exists {
		return models.KPITarget{}, fmt.Errorf("%w: %s", models.ErrUnknownKPI, name)
	}

	improvement := effectiveness - neutralEffectiveness

	if improvement > 0 {
		delta := improvement * a.stepFactor * (target.Max - target.Min)

		if target.Kind == models.KPIKindDuration {
			target.CurrentValue = math.Max(target.Min, target.CurrentValue-delta)
		} else {
			target.CurrentValue = math.Min(target.Max, target.CurrentValue+delta)
		}

		target.Trend = models.TrendImproving
	} else {
		target.Trend = models.TrendStable
	}

	target.CurrentValue = clamp(target.CurrentValue, target.Min, target.Max)
	target.UpdatedAt = a.clock.Now()

	return *target, nil
}

// Degrade marks the named target declining without moving its value.
func (a *Adapter) Degrade(name string) (models.KPITarget, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	target, exists := a.targets[name]
	if !exists {
		return models.KPITarget{}, fmt.Errorf("%w: %s", models.ErrUnknownKPI, name)
	}

	target.Trend = models.TrendDeclining
	target.UpdatedAt = a.clock.Now()

	return *target, nil
}

func (a *Adapter) Has(name string) bool {
	a.mu.Lock()
	defer a.mu.Unlock()

	_, exists := a.targets[name]

	return exists
}

func (a *Adapter) Target(name string) (models.KPITarget, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()

	target, exists := a.targets[name]
	if !exists {
		return models.KPITarget{}, false
	}

	return *target, true
}

// Targets returns copies of every target ordered by name.
func (a *Adapter) Targets() []models.KPITarget {
	a.mu.Lock()
	defer a.mu.Unlock()

	targets := make([]models.KPITarget, 0, len(a.targets))
	for _, target := range a.targets {
		targets = append(targets, *target)
	}

	sort.Slice(targets, func(i, j int) bool {
		return targets[i].Name < targets[j].Name
	})

	return targets
}

// MeanAttainment averages Attainment over every target, 0 when there are none.
func (a *Adapter) MeanAttainment() float64 {
	targets := a.Targets()
	if len(targets) == 0 {
		return 0
	}

	total := 0.0
	for _, target := range targets {
		total += target.Attainment()
	}

	return total / float64(len(targets))
}

func clamp(value, low, high float64) float64 {
	if math.IsNaN(value) {
		return low
	}

	return math.Max(low, math.Min(high, value))
}
