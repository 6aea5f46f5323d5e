// Package cur is the Cost & Usage Report provider adapter. CUR data lives in
// S3 and is queried through Athena's asynchronous submit/poll/fetch protocol.
package cur

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/athena"
	athenatypes "github.com/aws/aws-sdk-go-v2/service/athena/types"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"go.uber.org/zap"

	"github.com/costpilot/costpilot/internal/models"
	"github.com/costpilot/costpilot/internal/providers/aws/common"
)

const (
	// curCallsPerSecond bounds Athena control-plane request rate.
	curCallsPerSecond = 5

	// DefaultPollInterval is how often query status is checked.
	DefaultPollInterval = 2 * time.Second

	// DefaultMaxWait bounds the total time spent waiting for one query.
	// Exceeding it yields a QueryTimeout failure.
	DefaultMaxWait = 3 * time.Minute
)

// Adapter runs CUR queries through Athena.
type Adapter struct {
	client   common.AthenaClient
	s3Client common.S3Client
	retryer  *common.Retryer
	log      *zap.SugaredLogger

	// PollInterval and MaxWait are tunable for tests.
	PollInterval time.Duration
	MaxWait      time.Duration

	// now and sleep are swapped in tests.
	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

// New returns a CUR adapter using client for Athena calls and s3Client to
// verify the result bucket. s3Client may be nil to skip the bucket check.
func New(client common.AthenaClient, s3Client common.S3Client, log *zap.SugaredLogger) *Adapter {
	return &Adapter{
		client:       client,
		s3Client:     s3Client,
		retryer:      common.NewRetryer(curCallsPerSecond, log),
		log:          log,
		PollInterval: DefaultPollInterval,
		MaxWait:      DefaultMaxWait,
		now:          time.Now,
		sleep:        sleepCtx,
	}
}

// Provider implements common.Adapter.
func (a *Adapter) Provider() models.Provider { return models.ProviderCUR }

// Fetch submits the query's SQL to Athena, polls until it completes, and
// pages through the results.
//
// Cancellation is best-effort: an abandoned poll loop does not stop the
// remote query, which may complete and simply be discarded. A query still
// running at MaxWait yields a QueryTimeout failure; that failure is never
// cached, so the next run resubmits from scratch.
func (a *Adapter) Fetch(ctx context.Context, q models.Query) models.Result {
	if q.SQL == "" {
		return models.Failed(a.Provider(), models.FailureTransient, "CUR query has no SQL statement")
	}

	if a.s3Client != nil && q.ResultBucket != "" {
		if err := a.checkResultBucket(ctx, q.ResultBucket); err != nil {
			return models.Failed(a.Provider(), common.Classify(err),
				fmt.Sprintf("athena result bucket %q: %v", q.ResultBucket, err))
		}
	}

	executionID, err := a.submit(ctx, q)
	if err != nil {
		return models.Failed(a.Provider(), common.Classify(err), err.Error())
	}
	a.log.Debugw("athena query submitted", "execution_id", executionID, "partition", q.PartitionType)

	if failure := a.waitForCompletion(ctx, executionID); failure != nil {
		return models.Result{Provider: a.Provider(), Failure: failure}
	}

	rows, err := a.results(ctx, executionID)
	if err != nil {
		return models.Failed(a.Provider(), common.Classify(err), err.Error())
	}

	return models.Success(a.Provider(), &models.ProviderData{CURRows: rows})
}

// checkResultBucket verifies the Athena output bucket exists and is reachable
// before a query is submitted, turning a late Athena failure into an early,
// clearer one.
func (a *Adapter) checkResultBucket(ctx context.Context, bucket string) error {
	_, err := a.retryer.Do(ctx, "HeadBucket", func(ctx context.Context) error {
		_, callErr := a.s3Client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(bucket)})
		return callErr
	})
	return err
}

// submit starts the query execution and returns its ID.
func (a *Adapter) submit(ctx context.Context, q models.Query) (string, error) {
	input := &athena.StartQueryExecutionInput{
		QueryString: aws.String(q.SQL),
		QueryExecutionContext: &athenatypes.QueryExecutionContext{
			Database: aws.String(q.CURDatabase),
		},
		ResultConfiguration: &athenatypes.ResultConfiguration{
			OutputLocation: aws.String("s3://" + q.ResultBucket + "/"),
		},
	}

	var out *athena.StartQueryExecutionOutput
	_, err := a.retryer.Do(ctx, "StartQueryExecution", func(ctx context.Context) error {
		var callErr error
		out, callErr = a.client.StartQueryExecution(ctx, input)
		return callErr
	})
	if err != nil {
		return "", fmt.Errorf("StartQueryExecution: %w", err)
	}
	return aws.ToString(out.QueryExecutionId), nil
}

// waitForCompletion polls query status at PollInterval until the query
// succeeds, fails, or MaxWait elapses. Returns nil on success.
func (a *Adapter) waitForCompletion(ctx context.Context, executionID string) *models.Failure {
	deadline := a.now().Add(a.MaxWait)

	for {
		var out *athena.GetQueryExecutionOutput
		_, err := a.retryer.Do(ctx, "GetQueryExecution", func(ctx context.Context) error {
			var callErr error
			out, callErr = a.client.GetQueryExecution(ctx, &athena.GetQueryExecutionInput{
				QueryExecutionId: aws.String(executionID),
			})
			return callErr
		})
		if err != nil {
			return &models.Failure{Kind: common.Classify(err), Detail: err.Error()}
		}

		state := athenatypes.QueryExecutionStateQueued
		var reason string
		if out.QueryExecution != nil && out.QueryExecution.Status != nil {
			state = out.QueryExecution.Status.State
			reason = aws.ToString(out.QueryExecution.Status.StateChangeReason)
		}

		switch state {
		case athenatypes.QueryExecutionStateSucceeded:
			return nil
		case athenatypes.QueryExecutionStateFailed, athenatypes.QueryExecutionStateCancelled:
			return &models.Failure{
				Kind:   models.FailureTransient,
				Detail: fmt.Sprintf("athena query %s: %s", state, reason),
			}
		}

		if a.now().After(deadline) {
			return &models.Failure{
				Kind:   models.FailureQueryTimeout,
				Detail: fmt.Sprintf("athena query %s still %s after %s", executionID, state, a.MaxWait),
			}
		}
		if err := a.sleep(ctx, a.PollInterval); err != nil {
			return &models.Failure{Kind: models.FailureTransient, Detail: err.Error()}
		}
	}
}

// results pages through the completed query's result set. Athena returns the
// column headers as the first row of the first page; it is used for column
// names and skipped from the data rows.
func (a *Adapter) results(ctx context.Context, executionID string) ([]models.CURRow, error) {
	var columns []string
	var rows []models.CURRow

	var nextToken *string
	firstPage := true
	for {
		var out *athena.GetQueryResultsOutput
		_, err := a.retryer.Do(ctx, "GetQueryResults", func(ctx context.Context) error {
			var callErr error
			out, callErr = a.client.GetQueryResults(ctx, &athena.GetQueryResultsInput{
				QueryExecutionId: aws.String(executionID),
				NextToken:        nextToken,
			})
			return callErr
		})
		if err != nil {
			return nil, fmt.Errorf("GetQueryResults: %w", err)
		}

		if out.ResultSet != nil {
			for i, row := range out.ResultSet.Rows {
				values := make([]string, 0, len(row.Data))
				for _, d := range row.Data {
					values = append(values, aws.ToString(d.VarCharValue))
				}
				if firstPage && i == 0 {
					columns = values
					continue
				}
				rows = append(rows, models.CURRow{Columns: columns, Values: values})
			}
		}

		if out.NextToken == nil {
			break
		}
		nextToken = out.NextToken
		firstPage = false
	}

	return rows, nil
}

// sleepCtx sleeps for d or until ctx is cancelled.
func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
