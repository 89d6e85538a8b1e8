// Package teams holds the static team tables: process definitions, KPI
// targets, insight templates and the default dependency list.
package teams

import (
	"fmt"
	"sort"

	"github.com/dukex/teamflow/pkg/insights"
	"github.com/dukex/teamflow/pkg/models"
	"github.com/go-playground/validator/v10"
)

// PlaceholderStatus is the status of every builtin placeholder team.
const PlaceholderStatus = "planned"

var validate = validator.New(validator.WithRequiredStructEnabled())

// Definition is the static table of one active team.
type Definition struct {
	Name        string                     `json:"name"                validate:"required"            yaml:"name"`
	Description string                     `json:"description"                                        yaml:"description"`
	Processes   []models.ProcessDefinition `json:"processes"           validate:"required,min=1,dive" yaml:"processes"`
	KPIs        []models.KPITarget         `json:"kpis"                validate:"required,min=1,dive" yaml:"kpis"`
	Insights    insights.Catalog           `json:"insights,omitempty"                                 yaml:"insights"`
	Playbooks   map[string][]string        `json:"playbooks,omitempty"                                yaml:"playbooks"`
}

func (d Definition) Validate() error {
	if err := validate.Struct(d); err != nil {
		return fmt.Errorf("team %q: %w", d.Name, err)
	}

	return d.Insights.Validate()
}

// Placeholder is a team that is registered but has no workflow yet.
type Placeholder struct {
	Name   string `json:"name"   validate:"required" yaml:"name"`
	Status string `json:"status"                     yaml:"status"`
}

// Lookup returns the builtin definition of name.
func Lookup(name string) (Definition, bool) {
	for _, definition := range Builtin() {
		if definition.Name == name {
			return definition, true
		}
	}

	return Definition{}, false
}

// Names lists the builtin active team names in order.
func Names() []string {
	builtin := Builtin()
	names := make([]string, 0, len(builtin))

	for _, definition := range builtin {
		names = append(names, definition.Name)
	}

	sort.Strings(names)

	return names
}

// Placeholders lists the builtin teams that have no workflow yet.
func Placeholders() []Placeholder {
	names := []string{
		"audiovisual",
		"business_development",
		"cloud_services",
		"compliance",
		"data_analytics",
		"education",
		"engineering",
		"facilities",
		"hospitality",
		"it_support",
		"procurement",
		"product_management",
		"public_relations",
		"real_estate",
		"research_development",
		"security",
		"supply_chain",
	}

	placeholders := make([]Placeholder, 0, len(names))
	for _, name := range names {
		placeholders = append(placeholders, Placeholder{Name: name, Status: PlaceholderStatus})
	}

	return placeholders
}

// DefaultDependencies is the builtin team dependency adjacency list.
func DefaultDependencies() []models.TeamDependencyEdge {
	return []models.TeamDependencyEdge{
		{Team: "hr", DependsOn: []string{models.DependsOnAll}},
		{Team: "finance", DependsOn: []string{"operations"}},
		{Team: "operations", DependsOn: []string{"logistics", "supply_chain"}},
		{Team: "marketing", DependsOn: []string{"sales"}},
		{Team: "sales", DependsOn: []string{"marketing", "finance"}},
		{Team: "customer_success", DependsOn: []string{"sales", "operations"}},
		{Team: "legal", DependsOn: []string{"finance", "hr", "compliance"}},
		{Team: "healthcare", DependsOn: []string{"hr", "legal"}},
		{Team: "logistics", DependsOn: []string{"operations", "procurement"}},
	}
}
