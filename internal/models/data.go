package models

// ProviderData is the union of structured outputs a provider adapter can
// return. Only the section matching the producing provider is populated;
// the rest stay nil. Keeping one container type (instead of an interface)
// lets the cache layer serialize results without type registries.
type ProviderData struct {
	// CostSummary is populated by the Cost Explorer adapter.
	CostSummary *CostSummary `json:"cost_summary,omitempty"`

	// AdvisorChecks is populated by the Trusted Advisor adapter.
	AdvisorChecks []AdvisorCheck `json:"advisor_checks,omitempty"`

	// OptimizerFindings is populated by the Compute Optimizer adapter.
	OptimizerFindings []OptimizerFinding `json:"optimizer_findings,omitempty"`

	// CURRows is populated by the CUR/Athena adapter.
	CURRows []CURRow `json:"cur_rows,omitempty"`
}

// CostSummary is account-level Cost Explorer data for an absolute date range.
type CostSummary struct {
	// PeriodStart and PeriodEnd are the resolved absolute dates ("2006-01-02")
	// of the query window. Callers must resolve relative windows before
	// querying so the cache fingerprint covers the real range.
	PeriodStart string `json:"period_start"`
	PeriodEnd   string `json:"period_end"`

	TotalCostUSD float64 `json:"total_cost_usd"`

	// ServiceBreakdown is sorted descending by cost.
	ServiceBreakdown []ServiceCost `json:"service_breakdown"`

	// AccountBreakdown maps linked account ID to its cost for the window.
	AccountBreakdown []AccountCost `json:"account_breakdown,omitempty"`
}

// ServiceCost is one service's aggregated cost.
type ServiceCost struct {
	Service string  `json:"service"`
	CostUSD float64 `json:"cost_usd"`
}

// AccountCost is one linked account's aggregated cost.
type AccountCost struct {
	// AccountID is the canonical 12-digit account ID.
	AccountID string  `json:"account_id"`
	CostUSD   float64 `json:"cost_usd"`
}

// AdvisorCheck is one Trusted Advisor cost-optimization check summary.
type AdvisorCheck struct {
	CheckID   string `json:"check_id"`
	Name      string `json:"name"`
	Status    string `json:"status"`
	AccountID string `json:"account_id,omitempty"`

	// FlaggedResources is the count of resources the check flagged.
	FlaggedResources int64 `json:"flagged_resources"`

	// EstimatedMonthlySavings is Trusted Advisor's own savings estimate in USD.
	EstimatedMonthlySavings float64 `json:"estimated_monthly_savings"`
}

// OptimizerFinding is one Compute Optimizer recommendation.
type OptimizerFinding struct {
	AccountID    string `json:"account_id"`
	ResourceARN  string `json:"resource_arn"`
	ResourceType string `json:"resource_type"`

	// Finding is Compute Optimizer's classification, e.g. "Overprovisioned".
	Finding string `json:"finding"`

	CurrentType     string `json:"current_type"`
	RecommendedType string `json:"recommended_type,omitempty"`

	EstimatedMonthlySavings float64 `json:"estimated_monthly_savings"`
}

// CURRow is one row of an Athena query against the Cost & Usage Report.
// Columns vary per query shape, so rows are kept as ordered name/value pairs
// exactly as returned by Athena.
type CURRow struct {
	Columns []string `json:"columns"`
	Values  []string `json:"values"`
}

// Value returns the value of the named column and whether it exists.
func (r CURRow) Value(column string) (string, bool) {
	for i, c := range r.Columns {
		if c == column && i < len(r.Values) {
			return r.Values[i], true
		}
	}
	return "", false
}
