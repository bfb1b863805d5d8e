package domain

import "fmt"

// SortField is a closed enum of the grading fields standings may be
// sorted by. Sort selection is restricted to these accessors; arbitrary
// field names are rejected rather than passed through to the store.
type SortField string

const (
	SortByScore            SortField = "score"
	SortByPlacement        SortField = "placement"
	SortByPercentileRank   SortField = "percentileRank"
	SortByTokenCount       SortField = "tokenCount"
	SortByAvgExecutionTime SortField = "avgExecutionTime"
	SortByCreatedAt        SortField = "createdAt"
)

// ParseSortField validates a sort field name against the closed enum.
// An empty name selects the default, SortByScore.
func ParseSortField(name string) (SortField, error) {
	switch SortField(name) {
	case "":
		return SortByScore, nil
	case SortByScore, SortByPlacement, SortByPercentileRank,
		SortByTokenCount, SortByAvgExecutionTime, SortByCreatedAt:
		return SortField(name), nil
	default:
		return "", NewValidationErrorf("standings", "unknown sort field %q", name)
	}
}

// SortOrder is the direction standings are sorted in.
type SortOrder string

const (
	SortAscending  SortOrder = "asc"
	SortDescending SortOrder = "desc"
)

// ParseSortOrder validates a sort order name. An empty name selects the
// default, SortDescending.
func ParseSortOrder(name string) (SortOrder, error) {
	switch SortOrder(name) {
	case "":
		return SortDescending, nil
	case SortAscending, SortDescending:
		return SortOrder(name), nil
	default:
		return "", NewValidationErrorf("standings", "unknown sort order %q", name)
	}
}

// StandingStatistics holds the per-entry statistics attached to one
// standing row, computed relative to the whole tournament batch.
type StandingStatistics struct {
	// PercentileRank is the percentage of the batch scoring at or below
	// this entry.
	PercentileRank float64 `json:"percentileRank"`

	// StandardScore is the entry's z-value relative to the batch.
	StandardScore float64 `json:"standardScore"`

	// DeviationFromMean is the raw difference between the entry's score
	// and the batch mean.
	DeviationFromMean float64 `json:"deviationFromMean"`

	// NormalizedScore maps the score into [-1, 1] via
	// 2*(score-min)/(max-min) - 1, or 0 when min == max.
	NormalizedScore float64 `json:"normalizedScore"`
}

// StandingRow is the joined, display-ready leaderboard entry combining
// a grading with submission and user identity plus per-entry
// statistics.
type StandingRow struct {
	UserID          string             `json:"userId"`
	UserName        string             `json:"userName"`
	SubmissionID    string             `json:"submissionId"`
	SubmissionTitle string             `json:"submissionTitle"`
	Score           float64            `json:"score"`
	ZValue          float64            `json:"zValue"`
	TokenCount      int                `json:"tokenCount"`
	Placement       int                `json:"placement"`
	Statistics      StandingStatistics `json:"statistics"`
}

// NewStandingStatistics computes a grading's individual statistics
// against its batch context: the batch mean, standard deviation, and
// score extrema.
func NewStandingStatistics(g Grading, mean, stddev, min, max float64) StandingStatistics {
	standardScore := 0.0
	if stddev != 0 {
		standardScore = (g.Score - mean) / stddev
	}
	normalized := 0.0
	if max != min {
		normalized = 2*(g.Score-min)/(max-min) - 1
	}
	return StandingStatistics{
		PercentileRank:    g.PercentileRank,
		StandardScore:     standardScore,
		DeviationFromMean: g.Score - mean,
		NormalizedScore:   normalized,
	}
}

// NewValidationErrorf creates a single-message ValidationError with a
// formatted message.
func NewValidationErrorf(entity, format string, args ...any) *ValidationError {
	err := NewValidationError(entity)
	err.AddError(fmt.Sprintf(format, args...))
	return err
}
