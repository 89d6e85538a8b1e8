package cmd

import (
	"fmt"
	"log/slog"

	"github.com/dukex/teamflow/pkg/cache"
	"github.com/dukex/teamflow/pkg/config"
	"github.com/dukex/teamflow/pkg/coordinator"
	"github.com/dukex/teamflow/pkg/eventbus"
	"github.com/dukex/teamflow/pkg/provider"
	"github.com/dukex/teamflow/pkg/scheduler"
	"github.com/dukex/teamflow/pkg/teams"
	"github.com/dukex/teamflow/pkg/workflow"
	"github.com/jonboulle/clockwork"
	"go.opentelemetry.io/otel/trace"
)

// Runtime is the infrastructure shared by every workflow and the coordinator.
type Runtime struct {
	Publisher eventbus.EventPublisher
	Scheduler scheduler.Factory
	Provider  provider.Provider
	Cache     cache.Provider
	Clock     clockwork.Clock
	Tracer    trace.Tracer
	Logger    *slog.Logger
}

// TeamValidation is the outcome of building one configured team.
type TeamValidation struct {
	Team string
	Err  error
}

// NewWorkflow builds the workflow of one team table. Consumed alerts are
// recorded in the shared cache under the team name.
func NewWorkflow(cfg *config.Config, definition teams.Definition, rt Runtime) (*workflow.Workflow, error) {
	deps := workflow.Dependencies{
		Provider:  rt.Provider,
		Publisher: rt.Publisher,
		Scheduler: rt.Scheduler,
		Clock:     rt.Clock,
		Tracer:    rt.Tracer,
		Logger:    rt.Logger,
	}

	if rt.Cache != nil {
		deps.ConsumedAlerts = cache.WithPrefix(rt.Cache, definition.Name+":")
	}

	return workflow.New(cfg.WorkflowConfig(definition), deps)
}

// NewCoordinator builds a workflow per active team, registers the
// placeholders and wires the dependency list.
func NewCoordinator(cfg *config.Config, rt Runtime) (*coordinator.Coordinator, error) {
	definitions := cfg.Definitions()
	teamList := make([]coordinator.Team, 0, len(definitions))

	for _, definition := range definitions {
		w, err := NewWorkflow(cfg, definition, rt)
		if err != nil {
			return nil, fmt.Errorf("failed to build workflow %s: %w", definition.Name, err)
		}

		teamList = append(teamList, coordinator.Active{Workflow: w})
	}

	teamList = append(teamList, coordinator.FromPlaceholders(cfg.PlaceholderTeams())...)

	return coordinator.New(cfg.CoordinatorConfig(), teamList, coordinator.Dependencies{
		Publisher: rt.Publisher,
		Scheduler: rt.Scheduler,
		Clock:     rt.Clock,
		Tracer:    rt.Tracer,
		Logger:    rt.Logger,
	})
}

// ValidateTeams builds every active team on its own so each one reports its
// own configuration errors. When all teams build, a last row named after the
// coordinator checks the dependency list.
func ValidateTeams(cfg *config.Config, rt Runtime) []TeamValidation {
	definitions := cfg.Definitions()
	results := make([]TeamValidation, 0, len(definitions)+1)
	valid := true

	for _, definition := range definitions {
		_, err := NewWorkflow(cfg, definition, rt)
		results = append(results, TeamValidation{Team: definition.Name, Err: err})

		if err != nil {
			valid = false
		}
	}

	if valid {
		_, err := NewCoordinator(cfg, rt)
		results = append(results, TeamValidation{Team: coordinator.Name, Err: err})
	}

	return results
}
