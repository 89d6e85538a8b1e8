// Package provider defines the capability provider that scores process runs,
// plus its deterministic, fixture and HTTP implementations.
package provider

import (
	"context"
	"errors"
	"fmt"

	"github.com/dukex/teamflow/pkg/models"
	"github.com/go-playground/validator/v10"
)

// DefaultMinConfidence is the confidence below which an analysis does not
// move KPI targets.
const DefaultMinConfidence = 0.3

var ErrMalformedAnalysis = errors.New("malformed analysis")

// Input is what a provider learns about the run it analyzes.
type Input struct {
	Team string `json:"team"`
	// InstanceID is fresh for every started process instance.
	InstanceID string         `json:"instance_id"`
	Run        int            `json:"run"`
	KPIName    string         `json:"kpi_name"`
	Previous   models.Metrics `json:"previous"`
}

// Provider analyzes one execution of a named process.
type Provider interface {
	Analyze(ctx context.Context, process string, input Input) (models.Analysis, error)
}

// Func adapts a plain function to Provider.
type Func func(ctx context.Context, process string, input Input) (models.Analysis, error)

func (f Func) Analyze(ctx context.Context, process string, input Input) (models.Analysis, error) {
	return f(ctx, process, input)
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate rejects analyses whose scores fall outside their domains.
func Validate(analysis models.Analysis) error {
	if err := validate.Struct(analysis); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedAnalysis, err)
	}

	return nil
}
