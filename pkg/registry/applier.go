package registry

import (
	"context"

	"github.com/dukex/teamflow/pkg/models"
)

// Applier puts a recommendation in place and reports the impact achieved.
type Applier interface {
	Apply(ctx context.Context, team string, instance models.ProcessInstance, recommendation models.Recommendation) (float64, error)
}

type ApplierFunc func(ctx context.Context, team string, instance models.ProcessInstance, recommendation models.Recommendation) (float64, error)

func (f ApplierFunc) Apply(ctx context.Context, team string, instance models.ProcessInstance, recommendation models.Recommendation) (float64, error) {
	return f(ctx, team, instance, recommendation)
}

// ExpectedImpactApplier records each recommendation at its expected impact.
type ExpectedImpactApplier struct{}

func (ExpectedImpactApplier) Apply(ctx context.Context, _ string, _ models.ProcessInstance, recommendation models.Recommendation) (float64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	return recommendation.ExpectedImpact, nil
}
