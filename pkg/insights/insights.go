// Package insights turns process metrics into structured improvement insights.
package insights

import (
	"fmt"
	"os"
	"sort"

	"github.com/dukex/teamflow/pkg/models"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"gopkg.in/yaml.v3"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Template is the static insight attached to one process name.
type Template struct {
	Type                   string        `json:"type"                    validate:"required"                                yaml:"type"`
	Impact                 models.Impact `json:"impact"                  validate:"required,oneof=low medium high critical" yaml:"impact"`
	Description            string        `json:"description"             validate:"required"                                yaml:"description"`
	PotentialSaving        float64       `json:"potential_saving"        validate:"gte=0"                                   yaml:"potential_saving"`
	ImplementationTimeline string        `json:"implementation_timeline"                                                    yaml:"implementation_timeline"`
	KeyActions             []string      `json:"key_actions"                                                                yaml:"key_actions"`
}

// Catalog maps process names to their insight template.
type Catalog map[string]Template

// Merge returns a new catalog where entries of other override c.
func (c Catalog) Merge(other Catalog) Catalog {
	merged := make(Catalog, len(c)+len(other))

	for name, template := range c {
		merged[name] = template
	}

	for name, template := range other {
		merged[name] = template
	}

	return merged
}

// Processes lists the catalog's process names in order.
func (c Catalog) Processes() []string {
	names := make([]string, 0, len(c))
	for name := range c {
		names = append(names, name)
	}

	sort.Strings(names)

	return names
}

func (c Catalog) Validate() error {
	for _, name := range c.Processes() {
		if err := validate.Struct(c[name]); err != nil {
			return fmt.Errorf("insight template %q: %w", name, err)
		}
	}

	return nil
}

type catalogFile struct {
	Insights Catalog `yaml:"insights"`
}

// LoadCatalog reads a YAML document with a top-level "insights" mapping.
func LoadCatalog(path string) (Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read insight catalog: %w", err)
	}

	var file catalogFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse insight catalog: %w", err)
	}

	if err := file.Insights.Validate(); err != nil {
		return nil, err
	}

	return file.Insights, nil
}

type Generator struct {
	catalog Catalog
	clock   clockwork.Clock
}

func NewGenerator(catalog Catalog, clock clockwork.Clock) *Generator {
	return &Generator{catalog: catalog, clock: clock}
}

// Generate returns the insight for process, or false when the process has no
// template.
func (g *Generator) Generate(team, process string, metrics models.Metrics) (models.Insight, bool) {
	template, exists := g.catalog[process]
	if !exists {
		return models.Insight{}, false
	}

	return models.Insight{
		ID:      uuid.New().String(),
		Team:    team,
		Process: process,
		Type:    template.Type,
		Impact:  template.Impact,
		Description: fmt.Sprintf("%s (efficiency %.0f%%, effectiveness %.0f%%)",
			template.Description,
			metrics.Efficiency*100,
			metrics.Effectiveness*100,
		),
		PotentialSaving:        template.PotentialSaving,
		ImplementationTimeline: template.ImplementationTimeline,
		KeyActions:             append([]string(nil), template.KeyActions...),
		GeneratedAt:            g.clock.Now(),
	}, true
}
