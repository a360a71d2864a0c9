package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/sreehariX/redbus-scrapping/models"
)

// Plan is the declarative route list loaded from a YAML file:
//
//	month_year: "Apr 2025"
//	day: "20"
//	routes:
//	  - from: Delhi
//	    to: Dehradun
//	  - Delhi to Haridwar
type Plan struct {
	MonthYear string      `yaml:"month_year"`
	Day       string      `yaml:"day"`
	Routes    []PlanRoute `yaml:"routes"`
}

// PlanRoute is one origin/destination pair. It accepts either a mapping
// with from/to keys or the shorthand "Origin to Destination" string.
type PlanRoute struct {
	From string `yaml:"from"`
	To   string `yaml:"to"`
}

// UnmarshalYAML accepts both the mapping and shorthand-string forms.
func (r *PlanRoute) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode {
		parts := strings.SplitN(node.Value, " to ", 2)
		if len(parts) != 2 {
			return fmt.Errorf("route %q: want \"Origin to Destination\"", node.Value)
		}
		r.From = strings.TrimSpace(parts[0])
		r.To = strings.TrimSpace(parts[1])
		return nil
	}
	type plain PlanRoute
	return node.Decode((*plain)(r))
}

// LoadPlan reads and validates a route plan file.
func LoadPlan(path string) (*Plan, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read plan: %w", err)
	}
	var plan Plan
	if err := yaml.Unmarshal(raw, &plan); err != nil {
		return nil, fmt.Errorf("parse plan %s: %w", path, err)
	}
	if err := plan.Validate(); err != nil {
		return nil, fmt.Errorf("plan %s: %w", path, err)
	}
	return &plan, nil
}

// Validate checks the plan is complete.
func (p *Plan) Validate() error {
	if p.MonthYear == "" {
		return fmt.Errorf("month_year is required")
	}
	if p.Day == "" {
		return fmt.Errorf("day is required")
	}
	if len(p.Routes) == 0 {
		return fmt.Errorf("at least one route is required")
	}
	for i, r := range p.Routes {
		if r.From == "" || r.To == "" {
			return fmt.Errorf("route %d: from and to are required", i+1)
		}
	}
	return nil
}

// Queries expands the plan into one RouteQuery per route.
func (p *Plan) Queries() []models.RouteQuery {
	queries := make([]models.RouteQuery, 0, len(p.Routes))
	for _, r := range p.Routes {
		queries = append(queries, models.RouteQuery{
			From:      r.From,
			To:        r.To,
			MonthYear: p.MonthYear,
			Day:       p.Day,
		})
	}
	return queries
}
