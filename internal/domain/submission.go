package domain

import "time"

// EvaluationStatus is the tri-state outcome of a submission's most
// recent evaluation run.
type EvaluationStatus string

const (
	// EvaluationUnknown means the submission has never been evaluated.
	EvaluationUnknown EvaluationStatus = "unknown"

	// EvaluationPassed means the submission passed evaluation and is
	// eligible for tournaments while active.
	EvaluationPassed EvaluationStatus = "passed"

	// EvaluationFailed means the submission failed evaluation. Failed
	// submissions are deactivated and excluded from tournaments.
	EvaluationFailed EvaluationStatus = "failed"
)

// EvaluationRecord captures the detail of a submission's most recent
// evaluation run.
type EvaluationRecord struct {
	// Status is the pass/fail outcome, or unknown before the first run.
	Status EvaluationStatus `json:"status"`

	// Disqualified holds the disqualification reason, empty when the
	// submission was not disqualified.
	Disqualified string `json:"disqualified,omitempty"`

	// LoadingTimeExceeded reports whether strategy loading breached the
	// configured threshold.
	LoadingTimeExceeded bool `json:"loadingTimeExceeded"`

	// ExecutionTimeExceeded reports whether the high-percentile strategy
	// execution time breached the configured threshold.
	ExecutionTimeExceeded bool `json:"executionTimeExceeded"`

	// CandidateScore is the submission's own average score from the run.
	CandidateScore float64 `json:"candidateScore"`

	// FieldAverage is the average score of the other submissions in the
	// run.
	FieldAverage float64 `json:"fieldAverage"`

	// AverageExecutionTime is the mean strategy execution time in
	// milliseconds.
	AverageExecutionTime float64 `json:"averageExecutionTime"`
}

// Submission is a user's strategy entry for a game. At most one
// submission per user per game may be active at a time.
type Submission struct {
	ID     string `json:"id"`
	UserID string `json:"userId"`
	GameID string `json:"gameId"`

	// Title is the user-facing name of the submission.
	Title string `json:"title"`

	// Code is the submitted strategy source.
	Code string `json:"code"`

	// TokenCount is the size of the submitted code in tokens; gradings
	// snapshot it at enrichment time.
	TokenCount int `json:"tokenCount"`

	// Active marks the submission as the user's tournament entry.
	// A submission is deactivated automatically when evaluation fails.
	Active bool `json:"active"`

	// Evaluation holds the most recent evaluation outcome.
	Evaluation EvaluationRecord `json:"evaluation"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Eligible reports whether the submission may enter a tournament:
// it must be active and have passed evaluation.
func (s Submission) Eligible() bool {
	return s.Active && s.Evaluation.Status == EvaluationPassed
}

// User identifies a platform account. Only the display name is needed
// by this engine; authentication lives elsewhere.
type User struct {
	ID          string `json:"id"`
	DisplayName string `json:"displayName"`
}
