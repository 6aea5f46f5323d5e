package models

// Provider identifies one external cost/usage/optimization data source.
// The set is closed: every provider has exactly one adapter, and the
// resolver rejects report names that do not map to one of these values.
type Provider string

const (
	// ProviderCostExplorer is AWS Cost Explorer (account-level billing data).
	ProviderCostExplorer Provider = "ce"

	// ProviderTrustedAdvisor is AWS Trusted Advisor (cost-optimization checks).
	ProviderTrustedAdvisor Provider = "ta"

	// ProviderComputeOptimizer is AWS Compute Optimizer (rightsizing data).
	ProviderComputeOptimizer Provider = "co"

	// ProviderCUR is the Cost & Usage Report queried through Athena.
	ProviderCUR Provider = "cur"
)

// AllProviders returns every provider in a stable order.
func AllProviders() []Provider {
	return []Provider{
		ProviderCostExplorer,
		ProviderTrustedAdvisor,
		ProviderComputeOptimizer,
		ProviderCUR,
	}
}

// Valid reports whether p is a member of the closed provider set.
func (p Provider) Valid() bool {
	switch p {
	case ProviderCostExplorer, ProviderTrustedAdvisor, ProviderComputeOptimizer, ProviderCUR:
		return true
	}
	return false
}

// Global reports whether the provider is account/global-scoped and therefore
// pinned to a fixed region. Compute Optimizer is the only regional provider;
// it requires an explicit region at plan time.
func (p Provider) Global() bool {
	return p != ProviderComputeOptimizer
}

// FailureKind classifies a provider fetch failure. The kind decides retry
// behaviour: Throttled and Transient are retried with backoff, the rest are
// surfaced immediately.
type FailureKind string

const (
	// FailureThrottled is an API rate-limit rejection. Safe to retry.
	FailureThrottled FailureKind = "Throttled"

	// FailureUnauthorized is a missing IAM permission. Never retried.
	FailureUnauthorized FailureKind = "Unauthorized"

	// FailureServiceDisabled means the service is not enabled for the
	// account (e.g. Cost Explorer never opted in). Never retried.
	FailureServiceDisabled FailureKind = "ServiceDisabled"

	// FailureTransient is a network or timeout error. Safe to retry.
	FailureTransient FailureKind = "Transient"

	// FailureQueryTimeout means an Athena query did not complete within the
	// maximum poll wait. CUR-specific; never retried within a run.
	FailureQueryTimeout FailureKind = "QueryTimeout"
)

// Retryable reports whether a failure of this kind may be retried with backoff.
func (k FailureKind) Retryable() bool {
	return k == FailureThrottled || k == FailureTransient
}

// Result is the tagged outcome of a single provider fetch.
// Exactly one of the three states holds:
//
//   - Success: Data set, Failure nil, Warnings empty
//   - PartialSuccess: Data set, Warnings non-empty
//   - Failure: Failure set, Data nil
type Result struct {
	// Provider that produced this result.
	Provider Provider `json:"provider"`

	// Data is the provider's structured output. Nil on failure.
	Data *ProviderData `json:"data,omitempty"`

	// Warnings carries non-fatal issues from a partial success.
	Warnings []string `json:"warnings,omitempty"`

	// Failure is set when the fetch failed after retries were exhausted.
	Failure *Failure `json:"failure,omitempty"`
}

// Failure describes a terminal fetch failure.
type Failure struct {
	Kind   FailureKind `json:"kind"`
	Detail string      `json:"detail"`
}

// OK reports whether the result carries usable data.
func (r Result) OK() bool {
	return r.Failure == nil && r.Data != nil
}

// Success wraps data in a successful Result.
func Success(p Provider, data *ProviderData) Result {
	return Result{Provider: p, Data: data}
}

// PartialSuccess wraps data plus warnings.
func PartialSuccess(p Provider, data *ProviderData, warnings ...string) Result {
	return Result{Provider: p, Data: data, Warnings: warnings}
}

// Failed builds a failure Result.
func Failed(p Provider, kind FailureKind, detail string) Result {
	return Result{Provider: p, Failure: &Failure{Kind: kind, Detail: detail}}
}
