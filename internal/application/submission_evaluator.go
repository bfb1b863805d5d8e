package application

import (
	"context"
	"log/slog"
	"math"
	"sort"

	"github.com/rhaversen/GaslightBackend/internal/domain"
	"github.com/rhaversen/GaslightBackend/internal/ports"
)

// EvaluationPolicy holds the pass/fail thresholds applied to an
// evaluation run.
type EvaluationPolicy struct {
	// StrategyLoadingTimeoutMs caps the time a strategy may take to
	// load.
	StrategyLoadingTimeoutMs float64 `validate:"gt=0"`

	// StrategyExecutionTimeoutMs caps the strategy execution time,
	// applied at the 99th percentile of the per-turn timings so a single
	// slow turn does not fail an otherwise fast strategy.
	StrategyExecutionTimeoutMs float64 `validate:"gt=0"`
}

// EvaluationOutcome reports the result of evaluating one submission.
type EvaluationOutcome struct {
	// Passed mirrors the recorded evaluation status.
	Passed bool `json:"passed"`

	// Record is the evaluation detail persisted on the submission.
	Record domain.EvaluationRecord `json:"record"`

	// Results is the raw service response, nil when the service call
	// itself failed.
	Results *ports.EvaluationResults `json:"results,omitempty"`
}

// SubmissionEvaluator runs a submission against the external
// code-evaluation service and records the pass/fail outcome on the
// submission. A failed evaluation deactivates the submission so it
// drops out of future tournaments. Service failures are non-fatal:
// they become a "did not pass" outcome, never a crash.
type SubmissionEvaluator struct {
	submissions ports.SubmissionStore
	client      ports.EvaluationClient
	policy      EvaluationPolicy
	logger      *slog.Logger
}

// NewSubmissionEvaluator creates a SubmissionEvaluator with the given
// policy. It returns an error when the policy thresholds are not
// positive.
func NewSubmissionEvaluator(
	submissions ports.SubmissionStore,
	client ports.EvaluationClient,
	policy EvaluationPolicy,
	logger *slog.Logger,
) (*SubmissionEvaluator, error) {
	if err := validate.Struct(policy); err != nil {
		return nil, domain.NewValidationErrorf("evaluationPolicy", "%v", err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &SubmissionEvaluator{
		submissions: submissions,
		client:      client,
		policy:      policy,
		logger:      logger,
	}, nil
}

// Evaluate runs the submission with the given id against the rest of
// the field and records the outcome. It returns ports.ErrNotFound for
// an unknown submission; evaluation-service failures yield a failed
// outcome with a nil error.
func (e *SubmissionEvaluator) Evaluate(ctx context.Context, submissionID string) (*EvaluationOutcome, error) {
	submission, err := e.submissions.FindByID(ctx, submissionID)
	if err != nil {
		return nil, err
	}
	others, err := e.submissions.ListOthers(ctx, submissionID)
	if err != nil {
		return nil, err
	}

	results, err := e.client.EvaluateSubmission(ctx, submission, others)
	if err != nil {
		e.logger.WarnContext(ctx, "evaluation service failure",
			slog.String("submission_id", submissionID),
			slog.String("error", err.Error()),
		)
		record := domain.EvaluationRecord{
			Status:       domain.EvaluationFailed,
			Disqualified: "evaluation service failure",
		}
		if err := e.submissions.SetEvaluation(ctx, submissionID, record, false); err != nil {
			return nil, err
		}
		return &EvaluationOutcome{Passed: false, Record: record}, nil
	}

	record := e.applyPolicy(results)
	passed := record.Status == domain.EvaluationPassed

	// A failed evaluation always deactivates the submission.
	active := submission.Active && passed
	if err := e.submissions.SetEvaluation(ctx, submissionID, record, active); err != nil {
		return nil, err
	}

	e.logger.InfoContext(ctx, "submission evaluated",
		slog.String("submission_id", submissionID),
		slog.Bool("passed", passed),
	)
	return &EvaluationOutcome{Passed: passed, Record: record, Results: results}, nil
}

func (e *SubmissionEvaluator) applyPolicy(results *ports.EvaluationResults) domain.EvaluationRecord {
	record := domain.EvaluationRecord{Status: domain.EvaluationPassed}

	if results.StrategyLoadingTimings > e.policy.StrategyLoadingTimeoutMs {
		record.Status = domain.EvaluationFailed
		record.LoadingTimeExceeded = true
	}

	if timing, ok := executionTimePercentile(results.StrategyExecutionTimings, 0.99); ok {
		record.AverageExecutionTime = meanOf(results.StrategyExecutionTimings)
		if timing > e.policy.StrategyExecutionTimeoutMs {
			record.Status = domain.EvaluationFailed
			record.ExecutionTimeExceeded = true
		}
	}

	if results.Disqualified != nil {
		record.Status = domain.EvaluationFailed
		record.Disqualified = *results.Disqualified
	}

	if results.Results == nil {
		record.Status = domain.EvaluationFailed
	} else {
		record.CandidateScore = results.Results.Candidate
		record.FieldAverage = results.Results.Average
	}
	return record
}

// executionTimePercentile picks the timing at the given rank fraction
// of the numerically sorted timings.
func executionTimePercentile(timings []float64, p float64) (float64, bool) {
	if len(timings) == 0 {
		return 0, false
	}
	sorted := make([]float64, len(timings))
	copy(sorted, timings)
	sort.Float64s(sorted)

	idx := int(math.Floor(float64(len(sorted)) * p))
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx], true
}

func meanOf(values []float64) float64 {
	mean, err := domain.Mean(values)
	if err != nil {
		return 0
	}
	return mean
}
