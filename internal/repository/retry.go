package repository

import (
	"context"
	"math/rand"
	"regexp"
	"time"

	"github.com/mediadepot/api/internal/domain"
)

// RetryPolicy controls exponential backoff for retryable backend failures.
// Only errors classified as retryable consume an attempt; access-denied and
// malformed-request failures fail fast on the first try.
type RetryPolicy struct {
	MaxRetries int
	BaseDelay  time.Duration
	MaxDelay   time.Duration
}

// DefaultRetryPolicy matches the backend contract: 3 retries, ~1s base,
// capped at 30s.
var DefaultRetryPolicy = RetryPolicy{
	MaxRetries: 3,
	BaseDelay:  time.Second,
	MaxDelay:   30 * time.Second,
}

// attemptTimeout bounds each individual backend call independent of the
// overall request deadline, so backoff accounting stays deterministic.
const attemptTimeout = 15 * time.Second

// withRetry runs fn under the policy, classifying each failure through
// classify. It returns the last classified error once the error is
// non-retryable or attempts are exhausted, and stops early when the parent
// context is done.
func withRetry(ctx context.Context, policy RetryPolicy, classify func(error) *domain.StorageError, fn func(context.Context) error) error {
	for attempt := 0; ; attempt++ {
		attemptCtx, cancel := context.WithTimeout(ctx, attemptTimeout)
		err := fn(attemptCtx)
		cancel()
		if err == nil {
			return nil
		}

		serr := classify(err)
		if !serr.Retryable() || attempt >= policy.MaxRetries {
			return serr
		}

		select {
		case <-ctx.Done():
			return serr
		case <-time.After(backoffDelay(policy, attempt)):
		}
	}
}

// backoffDelay returns the exponential delay for attempt with jitter in
// [delay/2, delay].
func backoffDelay(policy RetryPolicy, attempt int) time.Duration {
	delay := policy.BaseDelay << uint(attempt)
	if delay <= 0 || delay > policy.MaxDelay {
		delay = policy.MaxDelay
	}
	half := delay / 2
	return half + time.Duration(rand.Int63n(int64(half)+1))
}

// Backend diagnostics can echo signed-request material back in error
// payloads; those fields never reach logs or callers.
var secretParams = regexp.MustCompile(`(?i)(X-Amz-(?:Signature|Credential|Security-Token)=|AWSAccessKeyId=)[^&\s"]+`)

func maskSecrets(msg string) string {
	return secretParams.ReplaceAllString(msg, "${1}REDACTED")
}
