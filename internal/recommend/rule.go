// Package recommend evaluates enrichment rules over a finished report model,
// producing cost-saving recommendations.
package recommend

import (
	"fmt"

	"github.com/costpilot/costpilot/internal/models"
	"github.com/costpilot/costpilot/internal/pricing"
	"github.com/costpilot/costpilot/internal/registry"
)

// RuleContext carries everything a rule may inspect. Rules must be stateless
// and safe to call concurrently; they must never call AWS or mutate the model.
type RuleContext struct {
	// Scope is the customer the model was built for. MinSpendUSD gates
	// low-value recommendations.
	Scope *registry.CustomerScope

	// Model is the aggregated, immutable report model.
	Model *models.ReportModel

	// Pricing resolves instance prices and Graviton equivalents. May be nil
	// when no reference data is loaded; rules must treat nil as "skip".
	Pricing *pricing.Service
}

// Rule is a single deterministic recommendation rule.
type Rule interface {
	// ID returns the unique, stable identifier (e.g. "GRAVITON_EC2").
	ID() string

	// Name returns a short human-readable rule name.
	Name() string

	// Evaluate inspects the context and returns zero or more recommendations.
	Evaluate(ctx RuleContext) []models.Recommendation
}

// Registry manages the active rule set and drives evaluation. Rules run in
// registration order.
type Registry struct {
	rules   []Rule
	pricing *pricing.Service
	index   map[string]struct{}
}

// NewRegistry returns an empty registry. pricing may be nil.
func NewRegistry(pricing *pricing.Service) *Registry {
	return &Registry{
		pricing: pricing,
		index:   make(map[string]struct{}),
	}
}

// Register adds rule. Panics on duplicate IDs to catch wiring mistakes at
// startup.
func (r *Registry) Register(rule Rule) {
	if _, exists := r.index[rule.ID()]; exists {
		panic(fmt.Sprintf("duplicate rule ID: %q", rule.ID()))
	}
	r.rules = append(r.rules, rule)
	r.index[rule.ID()] = struct{}{}
}

// All returns all registered rules in registration order.
func (r *Registry) All() []Rule {
	return r.rules
}

// Enrich implements the engine's Enricher hook: every rule runs against the
// model and the results are concatenated in rule order.
func (r *Registry) Enrich(scope *registry.CustomerScope, model *models.ReportModel) []models.Recommendation {
	ctx := RuleContext{Scope: scope, Model: model, Pricing: r.pricing}
	var recs []models.Recommendation
	for _, rule := range r.rules {
		recs = append(recs, rule.Evaluate(ctx)...)
	}
	return recs
}

// DefaultRegistry returns the built-in rule set.
func DefaultRegistry(pricing *pricing.Service) *Registry {
	r := NewRegistry(pricing)
	r.Register(GravitonEC2Rule{})
	r.Register(GravitonLambdaRule{})
	r.Register(OptimizerRightsizingRule{})
	r.Register(AdvisorFlaggedChecksRule{})
	return r
}
