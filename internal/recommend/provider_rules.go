package recommend

import (
	"fmt"

	"github.com/costpilot/costpilot/internal/models"
)

// OptimizerRightsizingRule promotes Compute Optimizer findings with a
// positive savings estimate into recommendations.
type OptimizerRightsizingRule struct{}

func (OptimizerRightsizingRule) ID() string   { return "CO_RIGHTSIZING" }
func (OptimizerRightsizingRule) Name() string { return "Compute Optimizer rightsizing" }

func (OptimizerRightsizingRule) Evaluate(ctx RuleContext) []models.Recommendation {
	coData := ctx.Model.Section(models.ProviderComputeOptimizer)
	if coData == nil {
		return nil
	}

	var recs []models.Recommendation
	for _, f := range coData.OptimizerFindings {
		if f.EstimatedMonthlySavings <= 0 {
			continue
		}
		msg := fmt.Sprintf("%s is %s", f.ResourceARN, f.Finding)
		if f.RecommendedType != "" {
			msg = fmt.Sprintf("%s; resize %s to %s", msg, f.CurrentType, f.RecommendedType)
		}
		recs = append(recs, models.Recommendation{
			RuleID:     "CO_RIGHTSIZING",
			AccountID:  f.AccountID,
			ResourceID: f.ResourceARN,
			Message:    msg,
			SavingsUSD: f.EstimatedMonthlySavings,
		})
	}
	return recs
}

// AdvisorFlaggedChecksRule surfaces Trusted Advisor cost checks that flagged
// resources and carry a savings estimate.
type AdvisorFlaggedChecksRule struct{}

func (AdvisorFlaggedChecksRule) ID() string   { return "TA_FLAGGED" }
func (AdvisorFlaggedChecksRule) Name() string { return "Trusted Advisor flagged checks" }

func (AdvisorFlaggedChecksRule) Evaluate(ctx RuleContext) []models.Recommendation {
	taData := ctx.Model.Section(models.ProviderTrustedAdvisor)
	if taData == nil {
		return nil
	}

	var recs []models.Recommendation
	for _, check := range taData.AdvisorChecks {
		if check.FlaggedResources == 0 || check.EstimatedMonthlySavings <= 0 {
			continue
		}
		recs = append(recs, models.Recommendation{
			RuleID:     "TA_FLAGGED",
			AccountID:  check.AccountID,
			ResourceID: check.CheckID,
			Message: fmt.Sprintf("Trusted Advisor %q flagged %d resource(s)",
				check.Name, check.FlaggedResources),
			SavingsUSD: check.EstimatedMonthlySavings,
		})
	}
	return recs
}
