package evaluation

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"golang.org/x/time/rate"

	"github.com/rhaversen/GaslightBackend/internal/ports"
)

// timeoutEvaluator enforces a deadline on each evaluation request.
type timeoutEvaluator struct {
	next    CoreEvaluator
	timeout time.Duration
}

// TimeoutMiddleware creates middleware that enforces request timeouts.
// Evaluation runs a full tournament of games server-side, so the
// timeout should be generous but finite.
func TimeoutMiddleware(timeout time.Duration) Middleware {
	return func(next CoreEvaluator) CoreEvaluator {
		return &timeoutEvaluator{next: next, timeout: timeout}
	}
}

func (t *timeoutEvaluator) DoRequest(ctx context.Context, request EvaluationRequest) (*ports.EvaluationResults, error) {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()
	return t.next.DoRequest(ctx, request)
}

// retryEvaluator retries failed requests with exponential backoff.
type retryEvaluator struct {
	next       CoreEvaluator
	maxRetries int
	baseDelay  time.Duration
	maxDelay   time.Duration
}

// RetryMiddleware creates middleware that retries transient failures
// with exponential backoff and jitter. Authentication failures and
// invalid responses are not retried.
func RetryMiddleware(maxRetries int, baseDelay, maxDelay time.Duration) Middleware {
	return func(next CoreEvaluator) CoreEvaluator {
		return &retryEvaluator{
			next:       next,
			maxRetries: maxRetries,
			baseDelay:  baseDelay,
			maxDelay:   maxDelay,
		}
	}
}

func (r *retryEvaluator) DoRequest(ctx context.Context, request EvaluationRequest) (*ports.EvaluationResults, error) {
	var lastErr error

	for attempt := 0; attempt <= r.maxRetries; attempt++ {
		results, err := r.next.DoRequest(ctx, request)
		if err == nil {
			return results, nil
		}

		lastErr = err

		if !isRetryable(err) || ctx.Err() != nil {
			return nil, err
		}
		if attempt == r.maxRetries {
			break
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(r.calculateDelay(attempt)):
			// Continue to next attempt.
		}
	}

	return nil, fmt.Errorf("request failed after %d attempts: %w", r.maxRetries+1, lastErr)
}

func (r *retryEvaluator) calculateDelay(attempt int) time.Duration {
	// Exponential backoff with jitter.
	if attempt < 0 {
		attempt = 0
	}
	if attempt > 30 {
		attempt = 30
	}
	// #nosec G115 - attempt is bounded between 0 and 30
	multiplier := 1 << uint(attempt)
	delay := time.Duration(float64(r.baseDelay) * float64(multiplier))

	// Add jitter (±25%)
	// #nosec G404 - Using weak RNG is acceptable for jitter calculation
	jitter := time.Duration(rand.Float64() * float64(delay) * 0.5)
	delay = delay + jitter - (delay / 4)

	if delay > r.maxDelay {
		delay = r.maxDelay
	}

	return delay
}

func isRetryable(err error) bool {
	return errors.Is(err, ports.ErrServiceUnavailable) || errors.Is(err, ports.ErrTimeout)
}

// rateLimitedEvaluator paces requests with a token bucket.
type rateLimitedEvaluator struct {
	next    CoreEvaluator
	limiter *rate.Limiter
}

// RateLimitMiddleware creates middleware that enforces rate limiting
// using a token bucket algorithm. The limit parameter sets requests per
// second, while burst allows temporary spikes above the sustained rate.
func RateLimitMiddleware(limit rate.Limit, burst int) Middleware {
	limiter := rate.NewLimiter(limit, burst)

	return func(next CoreEvaluator) CoreEvaluator {
		return &rateLimitedEvaluator{next: next, limiter: limiter}
	}
}

func (r *rateLimitedEvaluator) DoRequest(ctx context.Context, request EvaluationRequest) (*ports.EvaluationResults, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit: %w", err)
	}
	return r.next.DoRequest(ctx, request)
}
