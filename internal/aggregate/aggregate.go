// Package aggregate merges plan step results into the normalized report
// model and reconciles identities across providers.
package aggregate

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"

	"github.com/costpilot/costpilot/internal/models"
	"github.com/costpilot/costpilot/internal/registry"
	"github.com/costpilot/costpilot/internal/reports"
)

// StepResult pairs one executed plan step with its outcome.
type StepResult struct {
	Step      reports.PlanStep
	Result    models.Result
	FromCache bool

	// Skipped marks a step that never ran (e.g. its dependency failed).
	Skipped    bool
	SkipReason string
}

// Build folds step results into an immutable ReportModel. A failed provider
// is recorded in the manifest and does not abort aggregation: the model is
// valid and renderable with whatever sections succeeded.
//
// Steps sharing a provider (e.g. the CUR base query and its Graviton
// children) merge into one section; rows append in plan order.
func Build(scope *registry.CustomerScope, results []StepResult) *models.ReportModel {
	model := &models.ReportModel{
		RunID:          uuid.NewString(),
		Customer:       scope.Name,
		PayerAccountID: scope.PayerAccountID,
		GeneratedAt:    time.Now().UTC(),
		Sections:       make(map[models.Provider]*models.ProviderData),
	}

	for _, sr := range results {
		provider := sr.Step.Query.Provider
		entry := models.ManifestEntry{
			Provider:      provider,
			PartitionType: sr.Step.Query.PartitionType,
			FromCache:     sr.FromCache,
			Warnings:      sr.Result.Warnings,
		}

		switch {
		case sr.Skipped:
			entry.Status = models.SectionSkipped
			entry.SkipReason = sr.SkipReason
		case sr.Result.Failure != nil:
			entry.Status = models.SectionFailed
			entry.FailureKind = sr.Result.Failure.Kind
			entry.Detail = sr.Result.Failure.Detail
		case len(sr.Result.Warnings) > 0:
			entry.Status = models.SectionPartial
			mergeSection(model, provider, sr.Result.Data)
		default:
			entry.Status = models.SectionSucceeded
			mergeSection(model, provider, sr.Result.Data)
		}

		model.Manifest = append(model.Manifest, entry)
	}

	model.ReconciliationWarnings = reconcileAccounts(model)
	return model
}

// mergeSection folds data into the model's section for provider. Scalar
// sections (CE summary) take the first non-nil value; list sections append.
func mergeSection(model *models.ReportModel, provider models.Provider, data *models.ProviderData) {
	if data == nil {
		return
	}
	section, ok := model.Sections[provider]
	if !ok {
		copied := *data
		model.Sections[provider] = &copied
		return
	}
	if section.CostSummary == nil {
		section.CostSummary = data.CostSummary
	}
	section.AdvisorChecks = append(section.AdvisorChecks, data.AdvisorChecks...)
	section.OptimizerFindings = append(section.OptimizerFindings, data.OptimizerFindings...)
	section.CURRows = append(section.CURRows, data.CURRows...)
}

// CanonicalAccountID normalizes an AWS account id to its canonical 12-digit
// string form. Spreadsheet round-trips and some APIs strip leading zeros;
// left-padding restores them. Values that are not plain digits are returned
// unchanged for the reconciliation step to flag.
func CanonicalAccountID(id string) string {
	id = strings.TrimSpace(id)
	if id == "" || len(id) > 12 {
		return id
	}
	for _, r := range id {
		if r < '0' || r > '9' {
			return id
		}
	}
	return strings.Repeat("0", 12-len(id)) + id
}

// reconcileAccounts normalizes account ids across provider sections in place
// and reports accounts that appear in one provider's output but not another's
// where the overlap is expected (CE vs CUR). Mismatches produce warnings, not
// coerced data.
func reconcileAccounts(model *models.ReportModel) []models.ReconciliationWarning {
	accountsByProvider := make(map[models.Provider][]string)

	if ceData := model.Section(models.ProviderCostExplorer); ceData != nil && ceData.CostSummary != nil {
		for i := range ceData.CostSummary.AccountBreakdown {
			ceData.CostSummary.AccountBreakdown[i].AccountID = CanonicalAccountID(ceData.CostSummary.AccountBreakdown[i].AccountID)
			accountsByProvider[models.ProviderCostExplorer] = append(
				accountsByProvider[models.ProviderCostExplorer], ceData.CostSummary.AccountBreakdown[i].AccountID)
		}
	}
	if taData := model.Section(models.ProviderTrustedAdvisor); taData != nil {
		for i := range taData.AdvisorChecks {
			taData.AdvisorChecks[i].AccountID = CanonicalAccountID(taData.AdvisorChecks[i].AccountID)
		}
	}
	if coData := model.Section(models.ProviderComputeOptimizer); coData != nil {
		for i := range coData.OptimizerFindings {
			coData.OptimizerFindings[i].AccountID = CanonicalAccountID(coData.OptimizerFindings[i].AccountID)
		}
	}
	if curData := model.Section(models.ProviderCUR); curData != nil {
		for _, row := range curData.CURRows {
			if id, ok := row.Value("line_item_usage_account_id"); ok {
				accountsByProvider[models.ProviderCUR] = append(
					accountsByProvider[models.ProviderCUR], CanonicalAccountID(id))
			}
		}
	}

	// Cross-check only when both sides produced account-scoped data;
	// a missing section is a manifest concern, not a reconciliation one.
	ceAccounts := lo.Uniq(accountsByProvider[models.ProviderCostExplorer])
	curAccounts := lo.Uniq(accountsByProvider[models.ProviderCUR])
	if len(ceAccounts) == 0 || len(curAccounts) == 0 {
		return nil
	}

	var warnings []models.ReconciliationWarning
	onlyCUR, onlyCE := lo.Difference(curAccounts, ceAccounts)
	for _, id := range onlyCUR {
		warnings = append(warnings, models.ReconciliationWarning{
			AccountID: id,
			Message:   fmt.Sprintf("account %s present in CUR but absent from Cost Explorer", id),
			Providers: []string{string(models.ProviderCUR)},
		})
	}
	for _, id := range onlyCE {
		warnings = append(warnings, models.ReconciliationWarning{
			AccountID: id,
			Message:   fmt.Sprintf("account %s present in Cost Explorer but absent from CUR", id),
			Providers: []string{string(models.ProviderCostExplorer)},
		})
	}
	return warnings
}
