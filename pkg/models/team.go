package models

import "time"

// DependsOnAll is the dependency wildcard that matches every other active team.
const DependsOnAll = "all"

// TeamDependencyEdge declares that Team depends on each entry of DependsOn.
type TeamDependencyEdge struct {
	Team      string   `json:"team"       validate:"required" yaml:"team"`
	DependsOn []string `json:"depends_on" validate:"dive,required" yaml:"depends_on"`
}

// SharedMetric is a cross-team aggregate owned by the coordinator.
type SharedMetric struct {
	Name         string    `json:"name"`
	Value        float64   `json:"value"`
	Trend        Trend     `json:"trend"`
	LastUpdate   time.Time `json:"last_update"`
	Contributors []string  `json:"contributors"`
}
