package embedder

import (
	"context"
	"errors"
	"net/http"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/dshills/coderecall/internal/logging"
)

// RetryConfig configures exponential backoff for provider calls
type RetryConfig struct {
	MaxRetries int           // attempts, including the first
	BaseDelay  time.Duration // wait after the first failure
	MaxDelay   time.Duration
	Multiplier float64
}

func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries: MaxRetries,
		BaseDelay:  time.Duration(InitialBackoffMs) * time.Millisecond,
		MaxDelay:   time.Duration(MaxBackoffMs) * time.Millisecond,
		Multiplier: BackoffMultiplier,
	}
}

// retrier runs provider calls under a RetryConfig. Every attempt, retries
// included, first waits for the rate limiter when one is set.
type retrier struct {
	cfg     RetryConfig
	limiter *rate.Limiter
	log     logrus.FieldLogger
}

func newRetrier(cfg RetryConfig, limiter *rate.Limiter, log logrus.FieldLogger) retrier {
	return retrier{cfg: cfg, limiter: limiter, log: logging.OrDiscard(log)}
}

// isRetryable reports whether a failed call may succeed when repeated.
// Client errors from the API are final, except 408 and 429.
func isRetryable(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	status := 0
	var apiErr *openai.APIError
	var reqErr *openai.RequestError
	switch {
	case errors.As(err, &apiErr):
		status = apiErr.HTTPStatusCode
	case errors.As(err, &reqErr):
		status = reqErr.HTTPStatusCode
	}
	if status >= 400 && status < 500 {
		return status == http.StatusRequestTimeout || status == http.StatusTooManyRequests
	}
	return true
}

// retryWithBackoff calls fn until it succeeds, fails with a final error or
// runs out of attempts. The last error is returned.
func retryWithBackoff[T any](ctx context.Context, r retrier, fn func(context.Context) (T, error)) (T, error) {
	var zero T
	var lastErr error
	attempts := max(r.cfg.MaxRetries, 1)
	backoff := r.cfg.BaseDelay

	for attempt := 1; attempt <= attempts; attempt++ {
		if r.limiter != nil {
			if err := r.limiter.Wait(ctx); err != nil {
				return zero, err
			}
		}

		result, err := fn(ctx)
		if err == nil {
			return result, nil
		}
		lastErr = err

		if ctx.Err() != nil {
			return zero, ctx.Err()
		}
		if !isRetryable(err) {
			r.log.WithError(err).WithField("attempt", attempt).Debug("embedding request failed permanently")
			return zero, err
		}
		if attempt == attempts {
			break
		}

		r.log.WithError(err).WithFields(logrus.Fields{
			"attempt": attempt,
			"backoff": backoff,
		}).Debug("embedding request failed, retrying")

		select {
		case <-ctx.Done():
			return zero, ctx.Err()
		case <-time.After(backoff):
		}
		backoff = time.Duration(float64(backoff) * r.cfg.Multiplier)
		if backoff > r.cfg.MaxDelay {
			backoff = r.cfg.MaxDelay
		}
	}

	r.log.WithError(lastErr).WithField("attempts", attempts).Warn("embedding request gave up")
	return zero, lastErr
}
