package ports

import (
	"context"

	"github.com/rhaversen/GaslightBackend/internal/domain"
)

// EvaluationResults is the raw outcome of a single-submission
// evaluation run against the external code-evaluation service.
type EvaluationResults struct {
	// Results holds the candidate's average score and the average of the
	// opposing field. Nil when the run produced no usable results, which
	// fails the evaluation.
	Results *EvaluationScores `json:"results,omitempty"`

	// Disqualified holds the disqualification reason, nil when the
	// candidate was not disqualified.
	Disqualified *string `json:"disqualified"`

	// StrategyLoadingTimings is the time in milliseconds the candidate
	// strategy took to load.
	StrategyLoadingTimings float64 `json:"strategyLoadingTimings"`

	// StrategyExecutionTimings are the per-turn execution times in
	// milliseconds.
	StrategyExecutionTimings []float64 `json:"strategyExecutionTimings"`
}

// EvaluationScores pairs the candidate's average score with the field
// average for one evaluation run.
type EvaluationScores struct {
	Candidate float64 `json:"candidate"`
	Average   float64 `json:"average"`
}

// EvaluationClient is the contract with the external code-evaluation
// service: it returns a result or fails within the caller-supplied or
// configured timeout. Callers must treat a failure as a non-fatal
// "submission did not pass" outcome, never a crash.
type EvaluationClient interface {
	EvaluateSubmission(
		ctx context.Context,
		candidate domain.Submission,
		others []domain.Submission,
	) (*EvaluationResults, error)
}
