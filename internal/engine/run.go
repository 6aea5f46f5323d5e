package engine

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/costpilot/costpilot/internal/aggregate"
	"github.com/costpilot/costpilot/internal/cache"
	"github.com/costpilot/costpilot/internal/models"
	"github.com/costpilot/costpilot/internal/providers/aws/common"
	"github.com/costpilot/costpilot/internal/registry"
	"github.com/costpilot/costpilot/internal/reports"
)

// maxConcurrentFetches bounds the worker pool for plan execution. Each
// provider also rate-limits its own calls; this cap keeps a wide plan from
// saturating every service limiter at once.
const maxConcurrentFetches = 4

// defaultStepTimeout bounds one adapter call. Timeouts are per step, not per
// run, so a slow Compute Optimizer fetch cannot starve an already-completed
// Cost Explorer result.
const defaultStepTimeout = 10 * time.Minute

// Enricher computes recommendations over a finished model. Implemented by
// the recommendation rule registry; nil disables enrichment.
type Enricher interface {
	Enrich(scope *registry.CustomerScope, model *models.ReportModel) []models.Recommendation
}

// DefaultEngine is the production Engine implementation.
type DefaultEngine struct {
	registry *registry.Registry
	resolver *reports.Resolver
	cache    *cache.Cache
	adapters map[models.Provider]common.Adapter
	selector reports.RegionSelector
	enricher Enricher
	log      *zap.SugaredLogger

	// StepTimeout bounds one adapter call; zero means defaultStepTimeout.
	StepTimeout time.Duration
}

// New wires a DefaultEngine. adapters must contain one entry per provider
// the configured catalog can dispatch to; a plan step without an adapter is
// recorded as failed, not panicked on.
func New(
	reg *registry.Registry,
	resolver *reports.Resolver,
	c *cache.Cache,
	adapters map[models.Provider]common.Adapter,
	selector reports.RegionSelector,
	enricher Enricher,
	log *zap.SugaredLogger,
) *DefaultEngine {
	return &DefaultEngine{
		registry: reg,
		resolver: resolver,
		cache:    c,
		adapters: adapters,
		selector: selector,
		enricher: enricher,
		log:      log,
	}
}

// Run executes one orchestration pass for opts.Customer.
//
// Resolution errors (unknown customer, unknown report, region selection
// failure) abort before any fetch begins. After that point every failure is
// contained: it lands in the manifest and the remaining steps continue.
func (e *DefaultEngine) Run(ctx context.Context, opts RunOptions) (*models.ReportModel, error) {
	scope, err := e.registry.Resolve(opts.Customer)
	if err != nil {
		return nil, err
	}
	if err := e.registry.Touch(scope); err != nil {
		e.log.Warnw("failed to update customer last-used time", "customer", scope.Name, "error", err)
	}

	window := resolveWindow(opts, time.Now().UTC())

	plan, err := e.resolver.Resolve(ctx, opts.Reports, scope, window, opts.RegionOverride, e.selector)
	if err != nil {
		return nil, err
	}

	e.log.Infow("plan resolved",
		"customer", scope.Name, "steps", len(plan.Steps),
		"window_start", window.Start, "window_end", window.End)

	results := e.execute(ctx, scope, plan)
	model := aggregate.Build(scope, results)

	if e.enricher != nil {
		model.Recommendations = e.enricher.Enrich(scope, model)
	}

	e.log.Infow("run complete",
		"customer", scope.Name, "run_id", model.RunID, "complete", model.Complete())
	return model, nil
}

// execute runs the plan: independent steps fan out across a bounded worker
// pool; steps with a dependency wait for the whole independent wave, then
// run only when their dependency produced data.
func (e *DefaultEngine) execute(ctx context.Context, scope *registry.CustomerScope, plan *reports.Plan) []aggregate.StepResult {
	var independent, dependent []reports.PlanStep
	for _, step := range plan.Steps {
		if step.DependsOn == "" {
			independent = append(independent, step)
		} else {
			dependent = append(dependent, step)
		}
	}

	byName := make(map[string]aggregate.StepResult, len(plan.Steps))
	var mu sync.Mutex

	runWave := func(steps []reports.PlanStep) {
		sem := make(chan struct{}, maxConcurrentFetches)
		g, gctx := errgroup.WithContext(ctx)
		// Every launched worker must finish before byName is read again,
		// including when cancellation stops the dispatch loop early.
		defer func() { _ = g.Wait() }()
		for _, step := range steps {
			select {
			case sem <- struct{}{}:
			case <-gctx.Done():
				return
			}
			g.Go(func() error {
				defer func() { <-sem }()
				sr := e.runStep(gctx, scope, step)
				mu.Lock()
				byName[step.ReportName] = sr
				mu.Unlock()
				// Step failures are data, not errors; never cancel siblings.
				return nil
			})
		}
	}

	runWave(independent)

	// Dependent steps: skip when the dependency failed or never ran.
	var runnable []reports.PlanStep
	for _, step := range dependent {
		parent, ok := byName[step.DependsOn]
		if !ok || parent.Skipped || !parent.Result.OK() {
			reason := fmt.Sprintf("dependency %q did not produce data", step.DependsOn)
			byName[step.ReportName] = aggregate.StepResult{
				Step:       step,
				Skipped:    true,
				SkipReason: reason,
			}
			continue
		}
		runnable = append(runnable, step)
	}
	runWave(runnable)

	// Manifest order follows plan order.
	results := make([]aggregate.StepResult, 0, len(plan.Steps))
	for _, step := range plan.Steps {
		if sr, ok := byName[step.ReportName]; ok {
			results = append(results, sr)
		} else {
			// Context cancelled before the step was picked up.
			results = append(results, aggregate.StepResult{
				Step:       step,
				Skipped:    true,
				SkipReason: "run cancelled before step started",
			})
		}
	}
	return results
}

// runStep executes one plan step through the cache layer with a per-step
// timeout.
func (e *DefaultEngine) runStep(ctx context.Context, scope *registry.CustomerScope, step reports.PlanStep) aggregate.StepResult {
	adapter, ok := e.adapters[step.Query.Provider]
	if !ok {
		return aggregate.StepResult{
			Step: step,
			Result: models.Failed(step.Query.Provider, models.FailureServiceDisabled,
				fmt.Sprintf("no adapter configured for provider %q", step.Query.Provider)),
		}
	}

	timeout := e.StepTimeout
	if timeout <= 0 {
		timeout = defaultStepTimeout
	}
	stepCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	result, fromCache, err := e.cache.GetOrFetch(stepCtx, scope, step.Query, adapter.Fetch)
	if err != nil {
		// Cache infrastructure failure (store I/O): contained like any other
		// step failure so sibling sections survive.
		return aggregate.StepResult{
			Step:   step,
			Result: models.Failed(step.Query.Provider, models.FailureTransient, err.Error()),
		}
	}
	return aggregate.StepResult{Step: step, Result: result, FromCache: fromCache}
}

// resolveWindow turns run options into an absolute date window. Relative
// descriptors are resolved here, before any query is built, so cache
// fingerprints always cover real dates and never go stale across month
// boundaries.
func resolveWindow(opts RunOptions, now time.Time) reports.Window {
	if opts.Start != "" && opts.End != "" {
		return reports.Window{Start: opts.Start, End: opts.End}
	}
	days := opts.DaysBack
	if days <= 0 {
		days = 30
	}
	return reports.Window{
		Start: now.AddDate(0, 0, -days).Format("2006-01-02"),
		End:   now.Format("2006-01-02"),
	}
}
