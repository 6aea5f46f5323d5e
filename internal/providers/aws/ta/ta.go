// Package ta is the Trusted Advisor provider adapter, backed by the AWS
// Support API.
package ta

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/support"
	"go.uber.org/zap"

	"github.com/costpilot/costpilot/internal/models"
	"github.com/costpilot/costpilot/internal/providers/aws/common"
)

// taCallsPerSecond bounds Support API request rate.
const taCallsPerSecond = 5

// costOptimizingCategory is the Trusted Advisor category this adapter cares
// about; other categories (security, fault tolerance) are out of scope.
const costOptimizingCategory = "cost_optimizing"

// summaryBatchSize is the Support API limit on check IDs per
// DescribeTrustedAdvisorCheckSummaries call.
const summaryBatchSize = 100

// Adapter fetches Trusted Advisor cost-optimization check summaries.
type Adapter struct {
	client  common.SupportClient
	retryer *common.Retryer
	log     *zap.SugaredLogger
}

// New returns a Trusted Advisor adapter using client.
func New(client common.SupportClient, log *zap.SugaredLogger) *Adapter {
	return &Adapter{
		client:  client,
		retryer: common.NewRetryer(taCallsPerSecond, log),
		log:     log,
	}
}

// Provider implements common.Adapter.
func (a *Adapter) Provider() models.Provider { return models.ProviderTrustedAdvisor }

// Fetch lists cost-optimizing checks, then fetches their summaries in
// batches. Accounts without a Business/Enterprise support plan fail with
// ServiceDisabled (SubscriptionRequiredException).
func (a *Adapter) Fetch(ctx context.Context, q models.Query) models.Result {
	var checksOut *support.DescribeTrustedAdvisorChecksOutput
	_, err := a.retryer.Do(ctx, "DescribeTrustedAdvisorChecks", func(ctx context.Context) error {
		var callErr error
		checksOut, callErr = a.client.DescribeTrustedAdvisorChecks(ctx, &support.DescribeTrustedAdvisorChecksInput{
			Language: aws.String("en"),
		})
		return callErr
	})
	if err != nil {
		return models.Failed(a.Provider(), common.Classify(err), err.Error())
	}

	names := make(map[string]string)
	var checkIDs []string
	for _, check := range checksOut.Checks {
		if aws.ToString(check.Category) != costOptimizingCategory {
			continue
		}
		id := aws.ToString(check.Id)
		if id == "" {
			continue
		}
		checkIDs = append(checkIDs, id)
		names[id] = aws.ToString(check.Name)
	}
	if len(checkIDs) == 0 {
		return models.PartialSuccess(a.Provider(), &models.ProviderData{},
			"no cost-optimizing checks available for this account")
	}

	var checks []models.AdvisorCheck
	var warnings []string
	for start := 0; start < len(checkIDs); start += summaryBatchSize {
		end := min(start+summaryBatchSize, len(checkIDs))
		batch := checkIDs[start:end]

		var sumOut *support.DescribeTrustedAdvisorCheckSummariesOutput
		_, err := a.retryer.Do(ctx, "DescribeTrustedAdvisorCheckSummaries", func(ctx context.Context) error {
			var callErr error
			sumOut, callErr = a.client.DescribeTrustedAdvisorCheckSummaries(ctx, &support.DescribeTrustedAdvisorCheckSummariesInput{
				CheckIds: aws.StringSlice(batch),
			})
			return callErr
		})
		if err != nil {
			// A failed batch degrades the section instead of killing it:
			// summaries already collected are still worth reporting.
			if len(checks) == 0 && start == 0 {
				return models.Failed(a.Provider(), common.Classify(err), err.Error())
			}
			warnings = append(warnings, fmt.Sprintf("check summaries batch at offset %d failed: %v", start, err))
			continue
		}

		for _, s := range sumOut.Summaries {
			id := aws.ToString(s.CheckId)
			check := models.AdvisorCheck{
				CheckID:   id,
				Name:      names[id],
				Status:    aws.ToString(s.Status),
				AccountID: q.PayerAccountID,
			}
			if s.ResourcesSummary != nil {
				check.FlaggedResources = s.ResourcesSummary.ResourcesFlagged
			}
			if s.CategorySpecificSummary != nil && s.CategorySpecificSummary.CostOptimizing != nil {
				check.EstimatedMonthlySavings = s.CategorySpecificSummary.CostOptimizing.EstimatedMonthlySavings
			}
			checks = append(checks, check)
		}
	}

	data := &models.ProviderData{AdvisorChecks: checks}
	if len(warnings) > 0 {
		return models.PartialSuccess(a.Provider(), data, warnings...)
	}
	return models.Success(a.Provider(), data)
}
