package domain

import "time"

// Grading is one immutable scored result for one submission within one
// tournament run. Gradings are never mutated after creation; deleting a
// submission cascades deletion of its gradings.
type Grading struct {
	ID           string `json:"id"`
	SubmissionID string `json:"submissionId"`

	// Score is the raw score awarded by the evaluation run.
	Score float64 `json:"score"`

	// ZValue is the score's standard score relative to the batch the
	// grading was created in.
	ZValue float64 `json:"zValue"`

	// Placement is the 1-based dense rank within the batch, descending
	// by score; ties share a placement.
	Placement int `json:"placement"`

	// PercentileRank is the percentage of the batch scoring at or below
	// this grading's score.
	PercentileRank float64 `json:"percentileRank"`

	// TokenCount is the submission's token count snapshotted at
	// enrichment time.
	TokenCount int `json:"tokenCount"`

	// AvgExecutionTime is the submission's average strategy execution
	// time in milliseconds for the run.
	AvgExecutionTime float64 `json:"avgExecutionTime"`

	CreatedAt time.Time `json:"createdAt"`
}

// MinScore and MaxScore bound valid raw scores.
const (
	MinScore = 0.0
	MaxScore = 1000.0
)
