// Package co is the Compute Optimizer provider adapter.
package co

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	coapi "github.com/aws/aws-sdk-go-v2/service/computeoptimizer"
	"go.uber.org/zap"

	"github.com/costpilot/costpilot/internal/models"
	"github.com/costpilot/costpilot/internal/providers/aws/common"
)

// coCallsPerSecond bounds Compute Optimizer request rate.
const coCallsPerSecond = 5

// Adapter fetches rightsizing recommendations from Compute Optimizer.
// Compute Optimizer is regional: the query must carry an explicit region,
// enforced upstream by the request resolver.
type Adapter struct {
	client  common.ComputeOptimizerClient
	retryer *common.Retryer
	log     *zap.SugaredLogger
}

// New returns a Compute Optimizer adapter using client.
func New(client common.ComputeOptimizerClient, log *zap.SugaredLogger) *Adapter {
	return &Adapter{
		client:  client,
		retryer: common.NewRetryer(coCallsPerSecond, log),
		log:     log,
	}
}

// Provider implements common.Adapter.
func (a *Adapter) Provider() models.Provider { return models.ProviderComputeOptimizer }

// Fetch collects EC2 and Lambda recommendations for the query's account
// scope. Accounts that never opted into Compute Optimizer fail with
// ServiceDisabled. Lambda recommendations failing after EC2 succeeded is a
// partial success.
func (a *Adapter) Fetch(ctx context.Context, q models.Query) models.Result {
	findings, err := a.ec2Recommendations(ctx, q)
	if err != nil {
		return models.Failed(a.Provider(), common.Classify(err), err.Error())
	}

	data := &models.ProviderData{OptimizerFindings: findings}

	lambdaFindings, err := a.lambdaRecommendations(ctx, q)
	if err != nil {
		a.log.Warnw("CO lambda recommendations unavailable", "error", err)
		return models.PartialSuccess(a.Provider(), data,
			"lambda recommendations unavailable: "+err.Error())
	}
	data.OptimizerFindings = append(data.OptimizerFindings, lambdaFindings...)

	return models.Success(a.Provider(), data)
}

func (a *Adapter) ec2Recommendations(ctx context.Context, q models.Query) ([]models.OptimizerFinding, error) {
	var findings []models.OptimizerFinding

	var nextToken *string
	for {
		input := &coapi.GetEC2InstanceRecommendationsInput{
			AccountIds: q.AccountIDs,
			NextToken:  nextToken,
		}

		var out *coapi.GetEC2InstanceRecommendationsOutput
		_, err := a.retryer.Do(ctx, "GetEC2InstanceRecommendations", func(ctx context.Context) error {
			var callErr error
			out, callErr = a.client.GetEC2InstanceRecommendations(ctx, input)
			return callErr
		})
		if err != nil {
			return nil, err
		}

		for _, rec := range out.InstanceRecommendations {
			f := models.OptimizerFinding{
				AccountID:    aws.ToString(rec.AccountId),
				ResourceARN:  aws.ToString(rec.InstanceArn),
				ResourceType: "ec2-instance",
				Finding:      string(rec.Finding),
				CurrentType:  aws.ToString(rec.CurrentInstanceType),
			}
			// First option is Compute Optimizer's top-ranked recommendation.
			if len(rec.RecommendationOptions) > 0 {
				opt := rec.RecommendationOptions[0]
				f.RecommendedType = aws.ToString(opt.InstanceType)
				if opt.SavingsOpportunity != nil && opt.SavingsOpportunity.EstimatedMonthlySavings != nil {
					f.EstimatedMonthlySavings = opt.SavingsOpportunity.EstimatedMonthlySavings.Value
				}
			}
			findings = append(findings, f)
		}

		if out.NextToken == nil {
			break
		}
		nextToken = out.NextToken
	}

	return findings, nil
}

func (a *Adapter) lambdaRecommendations(ctx context.Context, q models.Query) ([]models.OptimizerFinding, error) {
	var findings []models.OptimizerFinding

	var nextToken *string
	for {
		input := &coapi.GetLambdaFunctionRecommendationsInput{
			AccountIds: q.AccountIDs,
			NextToken:  nextToken,
		}

		var out *coapi.GetLambdaFunctionRecommendationsOutput
		_, err := a.retryer.Do(ctx, "GetLambdaFunctionRecommendations", func(ctx context.Context) error {
			var callErr error
			out, callErr = a.client.GetLambdaFunctionRecommendations(ctx, input)
			return callErr
		})
		if err != nil {
			return nil, err
		}

		for _, rec := range out.LambdaFunctionRecommendations {
			f := models.OptimizerFinding{
				AccountID:    aws.ToString(rec.AccountId),
				ResourceARN:  aws.ToString(rec.FunctionArn),
				ResourceType: "lambda-function",
				Finding:      string(rec.Finding),
			}
			if len(rec.MemorySizeRecommendationOptions) > 0 {
				opt := rec.MemorySizeRecommendationOptions[0]
				if opt.SavingsOpportunity != nil && opt.SavingsOpportunity.EstimatedMonthlySavings != nil {
					f.EstimatedMonthlySavings = opt.SavingsOpportunity.EstimatedMonthlySavings.Value
				}
			}
			findings = append(findings, f)
		}

		if out.NextToken == nil {
			break
		}
		nextToken = out.NextToken
	}

	return findings, nil
}
