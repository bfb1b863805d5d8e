package evaluation

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rhaversen/GaslightBackend/internal/domain"
	"github.com/rhaversen/GaslightBackend/internal/ports"
)

func newTestClient(t *testing.T, handler http.HandlerFunc, middlewares ...Middleware) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	host := strings.TrimPrefix(server.URL, "http://")
	return NewClient(Config{Host: host, AuthToken: "test-token"}, middlewares...)
}

func TestClientEvaluateSubmission(t *testing.T) {
	ctx := context.Background()
	candidate := domain.Submission{ID: "sub-1", Code: "strategy"}

	t.Run("posts the candidate and field with bearer auth", func(t *testing.T) {
		var gotAuth string
		var gotReq EvaluationRequest
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			gotAuth = r.Header.Get("Authorization")
			require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))
			assert.Equal(t, "/api/v1/evaluate-submission", r.URL.Path)

			_ = json.NewEncoder(w).Encode(ports.EvaluationResults{
				Results:                  &ports.EvaluationScores{Candidate: 600, Average: 450},
				StrategyLoadingTimings:   12,
				StrategyExecutionTimings: []float64{0.1, 0.2},
			})
		})

		results, err := client.EvaluateSubmission(ctx, candidate,
			[]domain.Submission{{ID: "sub-2"}})
		require.NoError(t, err)

		assert.Equal(t, "Bearer test-token", gotAuth)
		assert.Equal(t, "sub-1", gotReq.CandidateSubmission.ID)
		require.Len(t, gotReq.OtherSubmissions, 1)
		require.NotNil(t, results.Results)
		assert.InDelta(t, 600, results.Results.Candidate, 1e-9)
	})

	t.Run("unauthorized maps to the auth sentinel", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
		})

		_, err := client.EvaluateSubmission(ctx, candidate, nil)
		assert.ErrorIs(t, err, ports.ErrAuthenticationFailed)
	})

	t.Run("server errors map to the unavailable sentinel", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		})

		_, err := client.EvaluateSubmission(ctx, candidate, nil)
		assert.ErrorIs(t, err, ports.ErrServiceUnavailable)

		var evalErr *ports.EvaluationError
		require.ErrorAs(t, err, &evalErr)
		assert.Equal(t, "sub-1", evalErr.SubmissionID)
	})

	t.Run("malformed body maps to the invalid-response sentinel", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte("not json"))
		})

		_, err := client.EvaluateSubmission(ctx, candidate, nil)
		assert.ErrorIs(t, err, ports.ErrInvalidResponse)
	})
}

func TestRetryMiddleware(t *testing.T) {
	ctx := context.Background()
	candidate := domain.Submission{ID: "sub-1"}

	t.Run("retries transient failures until success", func(t *testing.T) {
		var calls atomic.Int32
		client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
			if calls.Add(1) < 3 {
				w.WriteHeader(http.StatusServiceUnavailable)
				return
			}
			_ = json.NewEncoder(w).Encode(ports.EvaluationResults{})
		}, RetryMiddleware(3, time.Millisecond, 10*time.Millisecond))

		_, err := client.EvaluateSubmission(ctx, candidate, nil)
		require.NoError(t, err)
		assert.Equal(t, int32(3), calls.Load())
	})

	t.Run("gives up after exhausting retries", func(t *testing.T) {
		var calls atomic.Int32
		client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
			calls.Add(1)
			w.WriteHeader(http.StatusBadGateway)
		}, RetryMiddleware(2, time.Millisecond, 10*time.Millisecond))

		_, err := client.EvaluateSubmission(ctx, candidate, nil)
		require.Error(t, err)
		assert.Equal(t, int32(3), calls.Load())
	})

	t.Run("does not retry authentication failures", func(t *testing.T) {
		var calls atomic.Int32
		client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
			calls.Add(1)
			w.WriteHeader(http.StatusForbidden)
		}, RetryMiddleware(3, time.Millisecond, 10*time.Millisecond))

		_, err := client.EvaluateSubmission(ctx, candidate, nil)
		require.Error(t, err)
		assert.Equal(t, int32(1), calls.Load())
	})
}

func TestTimeoutMiddleware(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(5 * time.Second):
		}
	}, TimeoutMiddleware(50*time.Millisecond))

	_, err := client.EvaluateSubmission(context.Background(), domain.Submission{ID: "sub-1"}, nil)
	assert.ErrorIs(t, err, ports.ErrTimeout)
}

func TestRateLimitMiddleware(t *testing.T) {
	t.Run("cancelled context aborts the wait", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
			_ = json.NewEncoder(w).Encode(ports.EvaluationResults{})
		}, RateLimitMiddleware(1, 1))

		_, err := client.EvaluateSubmission(ctx, domain.Submission{ID: "sub-1"}, nil)
		assert.Error(t, err)
		assert.True(t, errors.Is(err, context.Canceled) ||
			strings.Contains(err.Error(), "rate limit"))
	})
}
