package common

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/athena"
	co "github.com/aws/aws-sdk-go-v2/service/computeoptimizer"
	ce "github.com/aws/aws-sdk-go-v2/service/costexplorer"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/sts"
	"github.com/aws/aws-sdk-go-v2/service/support"
)

// ---------------------------------------------------------------------------
// Per-service client interfaces
//
// Each interface covers only the operations used by this project. Using narrow
// interfaces instead of the full SDK clients makes mocking in unit tests
// trivial: create a struct that satisfies the interface and return canned data.
// ---------------------------------------------------------------------------

// STSClient is the subset of STS operations used for account resolution.
type STSClient interface {
	GetCallerIdentity(
		ctx context.Context,
		params *sts.GetCallerIdentityInput,
		optFns ...func(*sts.Options),
	) (*sts.GetCallerIdentityOutput, error)
}

// CostExplorerClient covers the Cost Explorer operations used by the CE adapter.
type CostExplorerClient interface {
	GetCostAndUsage(
		ctx context.Context,
		params *ce.GetCostAndUsageInput,
		optFns ...func(*ce.Options),
	) (*ce.GetCostAndUsageOutput, error)
}

// SupportClient covers the Support API operations used by the Trusted
// Advisor adapter. The Support API requires a Business or Enterprise plan;
// accounts without one surface SubscriptionRequiredException, which the
// retry layer classifies as ServiceDisabled.
type SupportClient interface {
	DescribeTrustedAdvisorChecks(
		ctx context.Context,
		params *support.DescribeTrustedAdvisorChecksInput,
		optFns ...func(*support.Options),
	) (*support.DescribeTrustedAdvisorChecksOutput, error)

	DescribeTrustedAdvisorCheckSummaries(
		ctx context.Context,
		params *support.DescribeTrustedAdvisorCheckSummariesInput,
		optFns ...func(*support.Options),
	) (*support.DescribeTrustedAdvisorCheckSummariesOutput, error)
}

// ComputeOptimizerClient covers the Compute Optimizer operations used by the
// CO adapter.
type ComputeOptimizerClient interface {
	GetEC2InstanceRecommendations(
		ctx context.Context,
		params *co.GetEC2InstanceRecommendationsInput,
		optFns ...func(*co.Options),
	) (*co.GetEC2InstanceRecommendationsOutput, error)

	GetLambdaFunctionRecommendations(
		ctx context.Context,
		params *co.GetLambdaFunctionRecommendationsInput,
		optFns ...func(*co.Options),
	) (*co.GetLambdaFunctionRecommendationsOutput, error)
}

// AthenaClient covers the Athena operations used by the CUR adapter's
// submit/poll/fetch protocol.
type AthenaClient interface {
	StartQueryExecution(
		ctx context.Context,
		params *athena.StartQueryExecutionInput,
		optFns ...func(*athena.Options),
	) (*athena.StartQueryExecutionOutput, error)

	GetQueryExecution(
		ctx context.Context,
		params *athena.GetQueryExecutionInput,
		optFns ...func(*athena.Options),
	) (*athena.GetQueryExecutionOutput, error)

	GetQueryResults(
		ctx context.Context,
		params *athena.GetQueryResultsInput,
		optFns ...func(*athena.Options),
	) (*athena.GetQueryResultsOutput, error)
}

// S3Client covers the S3 operations used to verify the Athena result bucket.
type S3Client interface {
	HeadBucket(
		ctx context.Context,
		params *s3.HeadBucketInput,
		optFns ...func(*s3.Options),
	) (*s3.HeadBucketOutput, error)
}

// ---------------------------------------------------------------------------
// ClientSet and ClientFactory
// ---------------------------------------------------------------------------

// ClientSet holds fully initialised AWS service clients for a given profile
// and region. All fields are interfaces so they can be replaced with mocks in
// tests without importing the AWS SDK in test files.
type ClientSet struct {
	STS              STSClient
	CostExplorer     CostExplorerClient
	Support          SupportClient
	ComputeOptimizer ComputeOptimizerClient
	Athena           AthenaClient
	S3               S3Client
}

// ClientFactory creates a ClientSet from an aws.Config.
// Swap this in tests to inject mock clients.
type ClientFactory func(cfg aws.Config) *ClientSet

// NewClientSet is the production ClientFactory. It constructs real AWS SDK
// clients from cfg. Every client in the set uses cfg's region; callers that
// need per-service regions (the global-service region for Cost Explorer and
// the Support API, the CUR region for Athena) build one set per region.
func NewClientSet(cfg aws.Config) *ClientSet {
	return &ClientSet{
		STS:              sts.NewFromConfig(cfg),
		CostExplorer:     ce.NewFromConfig(cfg),
		Support:          support.NewFromConfig(cfg),
		ComputeOptimizer: co.NewFromConfig(cfg),
		Athena:           athena.NewFromConfig(cfg),
		S3:               s3.NewFromConfig(cfg),
	}
}
