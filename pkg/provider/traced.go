package provider

import (
	"context"

	"github.com/dukex/teamflow/pkg/models"
	"github.com/dukex/teamflow/pkg/otelhelper"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

type tracedProvider struct {
	next   Provider
	tracer trace.Tracer
}

// WithTracing wraps every Analyze call in a span.
func WithTracing(next Provider, tracer trace.Tracer) Provider {
	return &tracedProvider{next: next, tracer: tracer}
}

func (p *tracedProvider) Analyze(ctx context.Context, process string, input Input) (models.Analysis, error) {
	ctx, span := otelhelper.StartSpan(ctx, p.tracer, "provider.analyze",
		attribute.String(otelhelper.TeamKey, input.Team),
		attribute.String(otelhelper.ProcessKey, process),
		attribute.Int(otelhelper.RunKey, input.Run),
	)
	defer span.End()

	analysis, err := p.next.Analyze(ctx, process, input)
	if err != nil {
		otelhelper.SetError(span, err)

		return analysis, err
	}

	span.SetAttributes(attribute.Float64(otelhelper.ConfidenceKey, analysis.Confidence))

	return analysis, nil
}
