// Package config loads the teamflow team tables, dependency list and cycle
// tuning from an optional YAML file with TEAMFLOW_* environment overrides.
package config

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/dukex/teamflow/pkg/coordinator"
	"github.com/dukex/teamflow/pkg/insights"
	"github.com/dukex/teamflow/pkg/models"
	"github.com/dukex/teamflow/pkg/teams"
	"github.com/dukex/teamflow/pkg/workflow"
	"github.com/go-playground/validator/v10"
	"github.com/xeipuuv/gojsonschema"
	"gopkg.in/yaml.v3"
)

// DisabledStatus is the placeholder status of a builtin team turned off in
// the configuration.
const DisabledStatus = "disabled"

var (
	ErrInvalidConfig = errors.New("invalid configuration")

	//go:embed schema.json
	schemaDocument string

	validate = validator.New(validator.WithRequiredStructEnabled())
)

type Config struct {
	BuiltinTeams  bool                        `yaml:"builtin_teams"`
	DisabledTeams []string                    `yaml:"disabled_teams" validate:"dive,required"`
	Workflow      WorkflowConfig              `yaml:"workflow"`
	Coordinator   CoordinatorConfig           `yaml:"coordinator"`
	Teams         []teams.Definition          `yaml:"teams"          validate:"dive"`
	Placeholders  []teams.Placeholder         `yaml:"placeholders"   validate:"dive"`
	Dependencies  []models.TeamDependencyEdge `yaml:"dependencies"   validate:"dive"`

	// InsightCatalogs maps a team to a YAML insight catalog whose entries
	// override the team's own. Relative paths resolve against the config file.
	InsightCatalogs map[string]string `yaml:"insight_catalogs"`

	catalogs map[string]insights.Catalog
}

// WorkflowConfig is the tuning shared by every team workflow.
type WorkflowConfig struct {
	OptimizationInterval  time.Duration `yaml:"optimization_interval"   validate:"gte=0"`
	ReportInterval        time.Duration `yaml:"report_interval"         validate:"gte=0"`
	StepFactor            float64       `yaml:"step_factor"             validate:"gte=0,lte=1"`
	MinConfidence         float64       `yaml:"min_confidence"          validate:"gte=0,lte=1"`
	OptimizationsPerCycle int           `yaml:"optimizations_per_cycle" validate:"gte=0"`
	EscalationThreshold   float64       `yaml:"escalation_threshold"    validate:"gte=0,lte=1"`
	AlertRetention        time.Duration `yaml:"alert_retention"         validate:"gte=0"`
}

type CoordinatorConfig struct {
	OptimizationInterval time.Duration `yaml:"optimization_interval" validate:"gte=0"`
	ReportInterval       time.Duration `yaml:"report_interval"       validate:"gte=0"`
	ScoreThreshold       float64       `yaml:"score_threshold"       validate:"gte=0,lte=1"`
	LedgerSize           int           `yaml:"ledger_size"           validate:"gte=0"`
}

// Default is the builtin catalogue with default tuning.
func Default() Config {
	return Config{
		BuiltinTeams: true,
		Workflow: WorkflowConfig{
			OptimizationInterval:  workflow.DefaultOptimizationInterval,
			ReportInterval:        workflow.DefaultReportInterval,
			OptimizationsPerCycle: workflow.DefaultOptimizationsPerCycle,
		},
		Coordinator: CoordinatorConfig{
			OptimizationInterval: coordinator.DefaultOptimizationInterval,
			ReportInterval:       coordinator.DefaultReportInterval,
			ScoreThreshold:       coordinator.DefaultScoreThreshold,
			LedgerSize:           coordinator.DefaultLedgerSize,
		},
	}
}

// Load reads path over the defaults, applies environment overrides and
// validates the result. An empty path falls back to TEAMFLOW_CONFIG and then
// to the defaults alone.
func Load(path string) (*Config, error) {
	if path == "" {
		path = os.Getenv("TEAMFLOW_CONFIG")
	}

	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}

		if err := Parse(data, &cfg); err != nil {
			return nil, err
		}
	}

	if err := applyEnvOverrides(&cfg); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if err := cfg.loadCatalogs(filepath.Dir(path)); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Parse checks data against the configuration schema and decodes it over cfg.
func Parse(data []byte, cfg *Config) error {
	var document map[string]any
	if err := yaml.Unmarshal(data, &document); err != nil {
		return fmt.Errorf("parse config: %w", err)
	}

	if document != nil {
		if err := validateSchema(document); err != nil {
			return err
		}
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config: %w", err)
	}

	return nil
}

// Validate checks field constraints, every team table and that no team name
// is registered twice.
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	for _, definition := range c.Teams {
		if err := definition.Validate(); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
		}
	}

	seen := make(map[string]bool)

	for _, definition := range c.Teams {
		if seen[definition.Name] {
			return fmt.Errorf("%w: team %s defined twice", ErrInvalidConfig, definition.Name)
		}

		seen[definition.Name] = true
	}

	for _, placeholder := range c.Placeholders {
		if seen[placeholder.Name] {
			return fmt.Errorf("%w: placeholder %s is also an active team", ErrInvalidConfig, placeholder.Name)
		}

		seen[placeholder.Name] = true
	}

	return nil
}

// Definitions returns the active team tables ordered by name: the builtin
// catalogue minus disabled teams, overridden and extended by the file.
func (c Config) Definitions() []teams.Definition {
	disabled := c.disabled()
	byName := make(map[string]teams.Definition)

	if c.BuiltinTeams {
		for _, definition := range teams.Builtin() {
			byName[definition.Name] = definition
		}
	}

	for _, definition := range c.Teams {
		byName[definition.Name] = definition
	}

	definitions := make([]teams.Definition, 0, len(byName))

	for name, definition := range byName {
		if !disabled[name] {
			definitions = append(definitions, definition)
		}
	}

	sort.Slice(definitions, func(i, j int) bool {
		return definitions[i].Name < definitions[j].Name
	})

	return definitions
}

// PlaceholderTeams returns the inert teams ordered by name. Disabled teams
// stay registered as placeholders so dependency edges naming them resolve.
func (c Config) PlaceholderTeams() []teams.Placeholder {
	active := make(map[string]bool)
	for _, definition := range c.Definitions() {
		active[definition.Name] = true
	}

	byName := make(map[string]teams.Placeholder)

	if c.BuiltinTeams {
		for _, placeholder := range teams.Placeholders() {
			byName[placeholder.Name] = placeholder
		}
	}

	for _, placeholder := range c.Placeholders {
		if placeholder.Status == "" {
			placeholder.Status = teams.PlaceholderStatus
		}

		byName[placeholder.Name] = placeholder
	}

	for name := range c.disabled() {
		byName[name] = teams.Placeholder{Name: name, Status: DisabledStatus}
	}

	placeholders := make([]teams.Placeholder, 0, len(byName))

	for name, placeholder := range byName {
		if !active[name] {
			placeholders = append(placeholders, placeholder)
		}
	}

	sort.Slice(placeholders, func(i, j int) bool {
		return placeholders[i].Name < placeholders[j].Name
	})

	return placeholders
}

// DependencyEdges returns the file's dependency list, or the builtin list
// when the file sets none and the builtin catalogue is enabled.
func (c Config) DependencyEdges() []models.TeamDependencyEdge {
	if len(c.Dependencies) > 0 || !c.BuiltinTeams {
		return append([]models.TeamDependencyEdge(nil), c.Dependencies...)
	}

	return teams.DefaultDependencies()
}

// WorkflowConfig applies the shared tuning to one team table.
func (c Config) WorkflowConfig(definition teams.Definition) workflow.Config {
	cfg := workflow.FromDefinition(definition)
	cfg.OptimizationInterval = c.Workflow.OptimizationInterval
	cfg.ReportInterval = c.Workflow.ReportInterval
	cfg.StepFactor = c.Workflow.StepFactor
	cfg.MinConfidence = c.Workflow.MinConfidence
	cfg.OptimizationsPerCycle = c.Workflow.OptimizationsPerCycle
	cfg.EscalationThreshold = c.Workflow.EscalationThreshold
	cfg.AlertRetention = c.Workflow.AlertRetention

	if catalog, ok := c.catalogs[definition.Name]; ok {
		cfg.Insights = cfg.Insights.Merge(catalog)
	}

	return cfg
}

func (c Config) CoordinatorConfig() coordinator.Config {
	return coordinator.Config{
		OptimizationInterval: c.Coordinator.OptimizationInterval,
		ReportInterval:       c.Coordinator.ReportInterval,
		ScoreThreshold:       c.Coordinator.ScoreThreshold,
		LedgerSize:           c.Coordinator.LedgerSize,
		Dependencies:         c.DependencyEdges(),
	}
}

func (c *Config) loadCatalogs(baseDir string) error {
	if len(c.InsightCatalogs) == 0 {
		return nil
	}

	c.catalogs = make(map[string]insights.Catalog, len(c.InsightCatalogs))

	for team, path := range c.InsightCatalogs {
		if !filepath.IsAbs(path) {
			path = filepath.Join(baseDir, path)
		}

		catalog, err := insights.LoadCatalog(path)
		if err != nil {
			return fmt.Errorf("%w: insight catalog of %s: %w", ErrInvalidConfig, team, err)
		}

		c.catalogs[team] = catalog
	}

	return nil
}

func (c Config) disabled() map[string]bool {
	disabled := make(map[string]bool, len(c.DisabledTeams))
	for _, name := range c.DisabledTeams {
		disabled[name] = true
	}

	return disabled
}

func validateSchema(document map[string]any) error {
	schemaLoader := gojsonschema.NewStringLoader(schemaDocument)
	documentLoader := gojsonschema.NewGoLoader(document)

	result, err := gojsonschema.Validate(schemaLoader, documentLoader)
	if err != nil {
		return fmt.Errorf("validate config schema: %w", err)
	}

	if !result.Valid() {
		var problems []string
		for _, desc := range result.Errors() {
			problems = append(problems, desc.String())
		}

		return fmt.Errorf("%w: %s", ErrInvalidConfig, strings.Join(problems, "; "))
	}

	return nil
}

func applyEnvOverrides(cfg *Config) error {
	durations := map[string]*time.Duration{
		"TEAMFLOW_OPTIMIZATION_INTERVAL":             &cfg.Workflow.OptimizationInterval,
		"TEAMFLOW_REPORT_INTERVAL":                   &cfg.Workflow.ReportInterval,
		"TEAMFLOW_ALERT_RETENTION":                   &cfg.Workflow.AlertRetention,
		"TEAMFLOW_COORDINATOR_OPTIMIZATION_INTERVAL": &cfg.Coordinator.OptimizationInterval,
		"TEAMFLOW_COORDINATOR_REPORT_INTERVAL":       &cfg.Coordinator.ReportInterval,
	}

	for key, target := range durations {
		if v := os.Getenv(key); v != "" {
			d, err := time.ParseDuration(v)
			if err != nil {
				return fmt.Errorf("%w: %s: %v", ErrInvalidConfig, key, err)
			}

			*target = d
		}
	}

	floats := map[string]*float64{
		"TEAMFLOW_STEP_FACTOR":          &cfg.Workflow.StepFactor,
		"TEAMFLOW_MIN_CONFIDENCE":       &cfg.Workflow.MinConfidence,
		"TEAMFLOW_ESCALATION_THRESHOLD": &cfg.Workflow.EscalationThreshold,
		"TEAMFLOW_SCORE_THRESHOLD":      &cfg.Coordinator.ScoreThreshold,
	}

	for key, target := range floats {
		if v := os.Getenv(key); v != "" {
			f, err := strconv.ParseFloat(v, 64)
			if err != nil {
				return fmt.Errorf("%w: %s: %v", ErrInvalidConfig, key, err)
			}

			*target = f
		}
	}

	if v := os.Getenv("TEAMFLOW_BUILTIN_TEAMS"); v != "" {
		enabled, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%w: TEAMFLOW_BUILTIN_TEAMS: %v", ErrInvalidConfig, err)
		}

		cfg.BuiltinTeams = enabled
	}

	if v := os.Getenv("TEAMFLOW_DISABLED_TEAMS"); v != "" {
		cfg.DisabledTeams = nil

		for _, name := range strings.Split(v, ",") {
			if name = strings.TrimSpace(name); name != "" {
				cfg.DisabledTeams = append(cfg.DisabledTeams, name)
			}
		}
	}

	return nil
}
