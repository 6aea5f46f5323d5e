package reports

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/costpilot/costpilot/internal/config"
	"github.com/costpilot/costpilot/internal/models"
	"github.com/costpilot/costpilot/internal/registry"
)

// UnknownReportError lists every requested name missing from the catalog.
// Validation is a single pass: all offending names are collected before
// failing, not just the first.
type UnknownReportError struct {
	Names []string
}

func (e *UnknownReportError) Error() string {
	return fmt.Sprintf("unknown report(s): %s", strings.Join(e.Names, ", "))
}

// RegionSelector supplies a region for providers that require one when the
// caller gave no override. The interactive implementation lives in the CLI
// layer; tests and non-interactive callers inject a fixed selector.
type RegionSelector interface {
	SelectRegion(ctx context.Context) (string, error)
}

// RegionSelectorFunc adapts a function to the RegionSelector interface.
type RegionSelectorFunc func(ctx context.Context) (string, error)

func (f RegionSelectorFunc) SelectRegion(ctx context.Context) (string, error) { return f(ctx) }

// PlanStep is one declarative (provider, query) tuple in an ordered plan.
// The plan does not execute anything; the engine does.
type PlanStep struct {
	// ReportName is the catalog name this step materializes.
	ReportName string

	// Query carries every parameter of the fetch, including the partition
	// type and the resolved absolute date range.
	Query models.Query

	// DependsOn is the ReportName of a step that must complete successfully
	// before this one runs. Empty for independent steps.
	DependsOn string
}

// Plan is the resolver's output: steps in dependency-safe order.
type Plan struct {
	Customer string
	Steps    []PlanStep
}

// Window is a resolved absolute date range, half-open [Start, End).
// Callers resolve relative descriptors ("last month") into a Window before
// planning so the cache fingerprint always covers the real dates.
type Window struct {
	Start string
	End   string
}

// Resolver validates report requests and produces ordered plans.
type Resolver struct {
	catalog *Catalog
	cfg     *config.Config
}

// NewResolver returns a Resolver over catalog using cfg for region policy
// and tag filters.
func NewResolver(catalog *Catalog, cfg *config.Config) *Resolver {
	return &Resolver{catalog: catalog, cfg: cfg}
}

// Resolve turns requested report names into an ordered Plan for scope.
//
// Region policy: account/global-scoped providers (CE, TA, CUR) are pinned to
// the configured global service region; Compute Optimizer needs an explicit
// region: regionOverride when given, otherwise selector is consulted.
//
// Ordering: independent steps keep request order; a step that depends on
// another is placed after its dependency, and the dependency is added to the
// plan implicitly when it was not itself requested.
func (r *Resolver) Resolve(
	ctx context.Context,
	requested []string,
	scope *registry.CustomerScope,
	window Window,
	regionOverride string,
	selector RegionSelector,
) (*Plan, error) {
	// Single validation pass: collect every unknown name.
	var unknown []string
	for _, name := range requested {
		if _, ok := r.catalog.Lookup(name); !ok {
			unknown = append(unknown, name)
		}
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		return nil, &UnknownReportError{Names: unknown}
	}

	// Pull in missing dependencies, preserving request order otherwise.
	names := make([]string, 0, len(requested))
	seen := make(map[string]bool, len(requested))
	add := func(name string) {
		if !seen[name] {
			seen[name] = true
			names = append(names, name)
		}
	}
	for _, name := range requested {
		entry, _ := r.catalog.Lookup(name)
		if entry.DependsOn != "" {
			add(entry.DependsOn)
		}
		add(name)
	}

	// Compute Optimizer region is resolved once for the whole plan.
	coRegion := ""
	for _, name := range names {
		entry, _ := r.catalog.Lookup(name)
		if entry.Provider != models.ProviderComputeOptimizer {
			continue
		}
		region := regionOverride
		if region == "" {
			if selector == nil {
				return nil, fmt.Errorf("report %q requires a region and no selector is available", name)
			}
			var err error
			region, err = selector.SelectRegion(ctx)
			if err != nil {
				return nil, fmt.Errorf("select region for %q: %w", name, err)
			}
		}
		coRegion = region
		break
	}

	// names is already dependency-ordered: add() inserts a step's dependency
	// immediately before the step itself, and duplicates are dropped.
	plan := &Plan{Customer: scope.Name}
	for _, name := range names {
		entry, _ := r.catalog.Lookup(name)
		plan.Steps = append(plan.Steps, PlanStep{
			ReportName: name,
			Query:      r.buildQuery(entry, scope, window, coRegion),
			DependsOn:  entry.DependsOn,
		})
	}
	return plan, nil
}

// buildQuery assembles the full query for one catalog entry.
func (r *Resolver) buildQuery(entry CatalogEntry, scope *registry.CustomerScope, window Window, coRegion string) models.Query {
	q := models.Query{
		Provider:       entry.Provider,
		PartitionType:  entry.PartitionType,
		PayerAccountID: scope.PayerAccountID,
		AccountIDs:     scope.MemberAccountIDs,
		Start:          window.Start,
		End:            window.End,
	}

	switch entry.Provider {
	case models.ProviderComputeOptimizer:
		q.Region = coRegion
	case models.ProviderCUR:
		// CUR queries run where the Cost & Usage Report lives; fall back to
		// the global service region when the customer has no CUR region.
		q.Region = scope.CURRegion
		if q.Region == "" {
			q.Region = r.cfg.AWS.GlobalServiceRegion
		}
		q.CURDatabase = scope.CURDatabase
		q.CURTable = scope.CURTable
		q.ResultBucket = scope.AthenaS3Bucket
		q.SQL = curStatement(entry, scope, window)
	default:
		// Account/global-scoped providers are pinned to a fixed region.
		q.Region = r.cfg.AWS.GlobalServiceRegion
	}

	if entry.Provider == models.ProviderCostExplorer && r.cfg.Tags.CostExplorerTag != "" {
		q.TagFilters = map[string]string{
			r.cfg.Tags.CostExplorerTag: r.cfg.Tags.CostExplorerTagValue,
		}
	}
	return q
}

// curStatement builds the Athena SQL for a CUR-backed catalog entry. The
// statement text participates in the cache fingerprint, so any change to a
// query shape naturally invalidates old entries.
func curStatement(entry CatalogEntry, scope *registry.CustomerScope, window Window) string {
	table := fmt.Sprintf(`"%s"."%s"`, scope.CURDatabase, scope.CURTable)
	between := fmt.Sprintf(
		`line_item_usage_start_date >= TIMESTAMP '%s 00:00:00' AND line_item_usage_start_date < TIMESTAMP '%s 00:00:00'`,
		window.Start, window.End,
	)

	switch entry.PartitionType {
	case "cur-graviton-ec2":
		return fmt.Sprintf(`SELECT line_item_usage_account_id, product_instance_type, product_region,
    SUM(line_item_usage_amount) AS usage_hours, SUM(line_item_unblended_cost) AS cost
FROM %s
WHERE line_item_product_code = 'AmazonEC2'
  AND line_item_line_item_type = 'Usage'
  AND product_physical_processor NOT LIKE '%%Graviton%%'
  AND %s
GROUP BY 1, 2, 3`, table, between)
	case "cur-graviton-lambda":
		return fmt.Sprintf(`SELECT line_item_usage_account_id, product_region,
    SUM(line_item_usage_amount) AS gb_seconds, SUM(line_item_unblended_cost) AS cost
FROM %s
WHERE line_item_product_code = 'AWSLambda'
  AND line_item_usage_type NOT LIKE '%%ARM%%'
  AND %s
GROUP BY 1, 2`, table, between)
	default:
		return fmt.Sprintf(`SELECT line_item_usage_account_id, product_product_name,
    SUM(line_item_unblended_cost) AS cost
FROM %s
WHERE %s
GROUP BY 1, 2
ORDER BY cost DESC`, table, between)
	}
}
