package engine

import (
	"context"

	"github.com/costpilot/costpilot/internal/models"
)

// RunOptions configures a single orchestration run.
// It is the sole input to Engine.Run.
type RunOptions struct {
	// Customer is the registry name to run the report for.
	Customer string

	// Reports are the requested report names (e.g. "ce", "ta", "graviton-ec2").
	// Empty means every catalog report.
	Reports []string

	// RegionOverride pins the region for regional providers (Compute
	// Optimizer). When empty the engine consults its RegionSelector.
	RegionOverride string

	// Start and End are absolute dates ("2006-01-02"), half-open [Start, End).
	// When empty the window defaults to the last DaysBack days.
	Start string
	End   string

	// DaysBack is the lookback window in days used when Start/End are empty.
	// Defaults to 30 when zero.
	DaysBack int
}

// Engine is the central orchestration interface. It resolves the customer
// scope and report plan, fetches provider data through the cache layer, and
// aggregates the results into a normalized report model.
//
// Per-provider failures never abort a run; they degrade its completeness and
// appear in the returned model's manifest. Run only returns an error for
// resolution failures (unknown customer, unknown report) that occur before
// any fetch begins.
type Engine interface {
	Run(ctx context.Context, opts RunOptions) (*models.ReportModel, error)
}
