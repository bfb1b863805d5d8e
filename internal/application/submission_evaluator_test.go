package application

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rhaversen/GaslightBackend/infrastructure/storage"
	"github.com/rhaversen/GaslightBackend/internal/domain"
	"github.com/rhaversen/GaslightBackend/internal/ports"
)

// stubEvaluationClient returns a canned response or error.
type stubEvaluationClient struct {
	results *ports.EvaluationResults
	err     error
}

func (s *stubEvaluationClient) EvaluateSubmission(
	context.Context, domain.Submission, []domain.Submission,
) (*ports.EvaluationResults, error) {
	return s.results, s.err
}

func testPolicy() EvaluationPolicy {
	return EvaluationPolicy{
		StrategyLoadingTimeoutMs:   100,
		StrategyExecutionTimeoutMs: 1,
	}
}

func passingResults() *ports.EvaluationResults {
	return &ports.EvaluationResults{
		Results:                  &ports.EvaluationScores{Candidate: 750, Average: 500},
		StrategyLoadingTimings:   50,
		StrategyExecutionTimings: []float64{0.2, 0.3, 0.4},
	}
}

func TestNewSubmissionEvaluator(t *testing.T) {
	store := storage.NewMemoryStore()

	t.Run("rejects non-positive thresholds", func(t *testing.T) {
		_, err := NewSubmissionEvaluator(store.Submissions(), &stubEvaluationClient{},
			EvaluationPolicy{StrategyLoadingTimeoutMs: 0, StrategyExecutionTimeoutMs: 1}, nil)
		var validationErr *domain.ValidationError
		assert.ErrorAs(t, err, &validationErr)
	})

	t.Run("accepts positive thresholds", func(t *testing.T) {
		_, err := NewSubmissionEvaluator(store.Submissions(), &stubEvaluationClient{}, testPolicy(), nil)
		assert.NoError(t, err)
	})
}

func TestEvaluate(t *testing.T) {
	ctx := context.Background()

	newStore := func(t *testing.T) *storage.MemoryStore {
		t.Helper()
		store := storage.NewMemoryStore()
		store.PutSubmission(domain.Submission{ID: "sub-1", UserID: "user-1", Active: true})
		store.PutSubmission(domain.Submission{ID: "sub-2", UserID: "user-2", Active: true})
		return store
	}

	t.Run("unknown submission is not found", func(t *testing.T) {
		store := newStore(t)
		evaluator, err := NewSubmissionEvaluator(store.Submissions(),
			&stubEvaluationClient{results: passingResults()}, testPolicy(), nil)
		require.NoError(t, err)

		_, err = evaluator.Evaluate(ctx, "missing")
		assert.ErrorIs(t, err, ports.ErrNotFound)
	})

	t.Run("passing run records scores and keeps the submission active", func(t *testing.T) {
		store := newStore(t)
		evaluator, err := NewSubmissionEvaluator(store.Submissions(),
			&stubEvaluationClient{results: passingResults()}, testPolicy(), nil)
		require.NoError(t, err)

		outcome, err := evaluator.Evaluate(ctx, "sub-1")
		require.NoError(t, err)
		assert.True(t, outcome.Passed)
		assert.Equal(t, domain.EvaluationPassed, outcome.Record.Status)
		assert.InDelta(t, 750, outcome.Record.CandidateScore, 1e-9)
		assert.InDelta(t, 500, outcome.Record.FieldAverage, 1e-9)
		assert.InDelta(t, 0.3, outcome.Record.AverageExecutionTime, 1e-9)

		sub, err := store.Submissions().FindByID(ctx, "sub-1")
		require.NoError(t, err)
		assert.True(t, sub.Active)
		assert.True(t, sub.Eligible())
	})

	t.Run("slow loading fails and deactivates", func(t *testing.T) {
		store := newStore(t)
		results := passingResults()
		results.StrategyLoadingTimings = 150
		evaluator, err := NewSubmissionEvaluator(store.Submissions(),
			&stubEvaluationClient{results: results}, testPolicy(), nil)
		require.NoError(t, err)

		outcome, err := evaluator.Evaluate(ctx, "sub-1")
		require.NoError(t, err)
		assert.False(t, outcome.Passed)
		assert.True(t, outcome.Record.LoadingTimeExceeded)

		sub, err := store.Submissions().FindByID(ctx, "sub-1")
		require.NoError(t, err)
		assert.False(t, sub.Active)
	})

	t.Run("execution threshold applies at the 99th percentile", func(t *testing.T) {
		store := newStore(t)
		// 99 fast turns and one slow one; the slow turn sits at the top
		// percentile and trips the threshold.
		timings := make([]float64, 100)
		for i := range timings {
			timings[i] = 0.1
		}
		timings[41] = 5
		results := passingResults()
		results.StrategyExecutionTimings = timings

		evaluator, err := NewSubmissionEvaluator(store.Submissions(),
			&stubEvaluationClient{results: results}, testPolicy(), nil)
		require.NoError(t, err)

		outcome, err := evaluator.Evaluate(ctx, "sub-1")
		require.NoError(t, err)
		assert.False(t, outcome.Passed)
		assert.True(t, outcome.Record.ExecutionTimeExceeded)
	})

	t.Run("runner disqualification fails the submission", func(t *testing.T) {
		store := newStore(t)
		reason := "illegal move"
		results := passingResults()
		results.Disqualified = &reason

		evaluator, err := NewSubmissionEvaluator(store.Submissions(),
			&stubEvaluationClient{results: results}, testPolicy(), nil)
		require.NoError(t, err)

		outcome, err := evaluator.Evaluate(ctx, "sub-1")
		require.NoError(t, err)
		assert.False(t, outcome.Passed)
		assert.Equal(t, "illegal move", outcome.Record.Disqualified)
	})

	t.Run("missing scores fail the submission", func(t *testing.T) {
		store := newStore(t)
		results := passingResults()
		results.Results = nil

		evaluator, err := NewSubmissionEvaluator(store.Submissions(),
			&stubEvaluationClient{results: results}, testPolicy(), nil)
		require.NoError(t, err)

		outcome, err := evaluator.Evaluate(ctx, "sub-1")
		require.NoError(t, err)
		assert.False(t, outcome.Passed)
	})

	t.Run("service failure is a failed outcome, not an error", func(t *testing.T) {
		store := newStore(t)
		evaluator, err := NewSubmissionEvaluator(store.Submissions(),
			&stubEvaluationClient{err: errors.New("connection refused")}, testPolicy(), nil)
		require.NoError(t, err)

		outcome, err := evaluator.Evaluate(ctx, "sub-1")
		require.NoError(t, err)
		assert.False(t, outcome.Passed)
		assert.Nil(t, outcome.Results)

		sub, err := store.Submissions().FindByID(ctx, "sub-1")
		require.NoError(t, err)
		assert.False(t, sub.Active)
		assert.Equal(t, domain.EvaluationFailed, sub.Evaluation.Status)
	})
}
