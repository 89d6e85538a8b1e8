package alerts

import (
	"context"
	"fmt"
	"strings"

	"github.com/dukex/teamflow/pkg/models"
)

// Assessment is what the analyzed stage learns about an alert.
type Assessment struct {
	Impact  models.Impact `json:"impact"`
	Summary string        `json:"summary"`
}

// ImpactAnalyzer grades an alert before a plan is drawn up for it.
type ImpactAnalyzer interface {
	AnalyzeImpact(ctx context.Context, alert models.AlertEvent) (Assessment, error)
}

type ImpactAnalyzerFunc func(ctx context.Context, alert models.AlertEvent) (Assessment, error)

func (f ImpactAnalyzerFunc) AnalyzeImpact(ctx context.Context, alert models.AlertEvent) (Assessment, error) {
	return f(ctx, alert)
}

// IsRiskKind reports whether kind names a risk ("risk" or "*_risk").
func IsRiskKind(kind string) bool {
	return kind == "risk" || strings.HasSuffix(kind, "_risk")
}

// SeverityAnalyzer maps severity straight to impact. Risk alerts whose
// probability reaches CriticalProbability are graded critical.
type SeverityAnalyzer struct {
	CriticalProbability float64
}

func (a SeverityAnalyzer) AnalyzeImpact(ctx context.Context, alert models.AlertEvent) (Assessment, error) {
	if err := ctx.Err(); err != nil {
		return Assessment{}, err
	}

	impact := models.Impact(alert.Severity)

	if IsRiskKind(alert.Kind) && a.CriticalProbability > 0 && alert.RiskProbability >= a.CriticalProbability {
		impact = models.ImpactCritical
	}

	return Assessment{
		Impact:  impact,
		Summary: fmt.Sprintf("%s alert from %s graded %s", alert.Kind, alert.SourceTeam, impact),
	}, nil
}
