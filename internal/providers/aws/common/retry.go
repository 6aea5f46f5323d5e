package common

import (
	"context"
	"errors"
	"time"

	"github.com/aws/smithy-go"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/costpilot/costpilot/internal/models"
)

// Adapter is the shared provider contract: fetch data for one query and
// report the outcome as a tagged Result. Adapters never return Go errors;
// every failure mode is a Result variant so the engine can record it in the
// manifest without aborting the run.
type Adapter interface {
	Provider() models.Provider
	Fetch(ctx context.Context, q models.Query) models.Result
}

// DefaultMaxAttempts is the bounded retry count for Throttled/Transient
// failures: the initial call plus two retries.
const DefaultMaxAttempts = 3

// retryBaseDelay is the first backoff sleep; it doubles per attempt.
const retryBaseDelay = 500 * time.Millisecond

// Classify maps an AWS SDK error to a FailureKind.
//
// Throttled and Transient are retried with backoff; Unauthorized and
// ServiceDisabled are surfaced immediately.
func Classify(err error) models.FailureKind {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return models.FailureTransient
	}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "ThrottlingException", "Throttling", "TooManyRequestsException",
			"RequestLimitExceeded", "LimitExceededException":
			return models.FailureThrottled
		case "AccessDeniedException", "AccessDenied", "UnauthorizedOperation",
			"UnrecognizedClientException", "InvalidClientTokenId":
			return models.FailureUnauthorized
		case "SubscriptionRequiredException", "OptInRequiredException",
			"OptInRequired", "DataUnavailableException":
			// Support API without a Business/Enterprise plan, Compute
			// Optimizer not opted in, Cost Explorer never enabled.
			return models.FailureServiceDisabled
		}
	}

	// Network resets, DNS failures, and anything the SDK could not classify:
	// worth one more try.
	return models.FailureTransient
}

// Retryer wraps provider calls with classification, bounded exponential
// backoff, and a per-service rate limiter.
type Retryer struct {
	// Limiter throttles outgoing calls for one service. Nil means unlimited.
	Limiter *rate.Limiter

	// MaxAttempts bounds total call attempts. Zero means DefaultMaxAttempts.
	MaxAttempts int

	// Log receives per-retry debug lines. Nil disables logging.
	Log *zap.SugaredLogger

	// sleep is swapped in tests to avoid real delays.
	sleep func(ctx context.Context, d time.Duration) error
}

// NewRetryer returns a Retryer limited to callsPerSecond against one service.
func NewRetryer(callsPerSecond float64, log *zap.SugaredLogger) *Retryer {
	var limiter *rate.Limiter
	if callsPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(callsPerSecond), 1)
	}
	return &Retryer{Limiter: limiter, Log: log}
}

// Do invokes call until it succeeds, fails with a non-retryable kind, or the
// attempt budget is exhausted. The returned FailureKind is only meaningful
// when err is non-nil.
func (r *Retryer) Do(ctx context.Context, op string, call func(ctx context.Context) error) (models.FailureKind, error) {
	attempts := r.MaxAttempts
	if attempts <= 0 {
		attempts = DefaultMaxAttempts
	}
	sleep := r.sleep
	if sleep == nil {
		sleep = sleepCtx
	}

	var lastErr error
	var lastKind models.FailureKind

	for attempt := 1; attempt <= attempts; attempt++ {
		if r.Limiter != nil {
			if err := r.Limiter.Wait(ctx); err != nil {
				return models.FailureTransient, err
			}
		}

		err := call(ctx)
		if err == nil {
			return "", nil
		}

		lastErr = err
		lastKind = Classify(err)
		if !lastKind.Retryable() {
			return lastKind, err
		}
		if ctx.Err() != nil {
			return models.FailureTransient, ctx.Err()
		}
		if attempt == attempts {
			break
		}

		delay := retryBaseDelay << (attempt - 1)
		if r.Log != nil {
			r.Log.Debugw("retrying after backoff",
				"op", op, "attempt", attempt, "kind", lastKind, "delay", delay, "error", err)
		}
		if err := sleep(ctx, delay); err != nil {
			return models.FailureTransient, err
		}
	}

	return lastKind, lastErr
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
