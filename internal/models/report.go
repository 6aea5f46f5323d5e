package models

import "time"

// SectionStatus is the manifest state of one provider section.
type SectionStatus string

const (
	SectionSucceeded SectionStatus = "succeeded"
	SectionPartial   SectionStatus = "partial"
	SectionFailed    SectionStatus = "failed"
	SectionSkipped   SectionStatus = "skipped"
)

// ManifestEntry records the outcome of one plan step for renderer and user
// visibility. Failures are never silently dropped; a failed provider appears
// here with its kind and detail.
type ManifestEntry struct {
	Provider      Provider      `json:"provider"`
	PartitionType string        `json:"partition_type"`
	Status        SectionStatus `json:"status"`

	// FailureKind and Detail are set when Status is failed.
	FailureKind FailureKind `json:"failure_kind,omitempty"`
	Detail      string      `json:"detail,omitempty"`

	// SkipReason is set when Status is skipped (e.g. dependency failed).
	SkipReason string `json:"skip_reason,omitempty"`

	// FromCache reports whether the section was served from the cache.
	FromCache bool `json:"from_cache"`

	Warnings []string `json:"warnings,omitempty"`
}

// ReconciliationWarning flags a cross-provider identity mismatch found while
// normalizing account IDs, e.g. an account present in CUR but absent from CE.
type ReconciliationWarning struct {
	AccountID string   `json:"account_id"`
	Message   string   `json:"message"`
	Providers []string `json:"providers"`
}

// Recommendation is one enrichment-rule output (e.g. a Graviton migration
// suggestion) derived from the aggregated provider data.
type Recommendation struct {
	RuleID     string  `json:"rule_id"`
	AccountID  string  `json:"account_id,omitempty"`
	ResourceID string  `json:"resource_id,omitempty"`
	Message    string  `json:"message"`
	SavingsUSD float64 `json:"savings_usd"`
}

// ReportModel is the normalized output of one orchestration run: every
// requested provider's data keyed by provider name, plus a manifest of what
// succeeded, failed, or was skipped, and why.
//
// A ReportModel is built fresh per run and must not be mutated after the
// aggregator finalizes it. Renderers and the AI query interface consume it
// read-only. It is not persisted by the engine; callers may serialize it to
// a JSON artifact for later use.
type ReportModel struct {
	// RunID uniquely identifies the orchestration run that built this model.
	RunID string `json:"run_id"`

	// Customer is the registry name the run was scoped to.
	Customer string `json:"customer"`

	// PayerAccountID is the payer the run resolved for Customer.
	PayerAccountID string `json:"payer_account_id"`

	GeneratedAt time.Time `json:"generated_at"`

	// Sections maps provider name to that provider's data. A provider that
	// failed or was skipped has no entry here; consult Manifest for why.
	Sections map[Provider]*ProviderData `json:"sections"`

	// Manifest has one entry per plan step, in plan order.
	Manifest []ManifestEntry `json:"manifest"`

	ReconciliationWarnings []ReconciliationWarning `json:"reconciliation_warnings,omitempty"`

	// Recommendations are enrichment-rule outputs computed after aggregation.
	Recommendations []Recommendation `json:"recommendations,omitempty"`
}

// Section returns the data for provider p, or nil when the section is absent.
func (m *ReportModel) Section(p Provider) *ProviderData {
	if m == nil {
		return nil
	}
	return m.Sections[p]
}

// Complete reports whether every manifest entry succeeded (fully or partially).
func (m *ReportModel) Complete() bool {
	for _, e := range m.Manifest {
		if e.Status == SectionFailed || e.Status == SectionSkipped {
			return false
		}
	}
	return true
}
