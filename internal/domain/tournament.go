package domain

import (
	"fmt"
	"sort"
	"time"
)

// Disqualification records a submission excluded from a tournament run
// together with the reason and the raw results observed for it before
// exclusion.
type Disqualification struct {
	SubmissionID string `json:"submissionId"`
	Reason       string `json:"reason"`

	// Score and AvgExecutionTime are the values the run reported for the
	// submission before it was excluded, kept for the audit trail.
	Score            float64 `json:"score"`
	AvgExecutionTime float64 `json:"avgExecutionTime"`
}

// Tournament is one completed ranking run over a set of gradings plus a
// disqualification list. Tournaments are write-once.
type Tournament struct {
	ID     string `json:"id"`
	GameID string `json:"gameId"`

	// GradingIDs references the gradings created by this run. Every
	// referenced grading must exist, reference a distinct submission and
	// a distinct user, and the set must be non-empty.
	GradingIDs []string `json:"gradingIds"`

	// Disqualified lists the submissions excluded from this run. It is
	// disjoint from the grading set.
	Disqualified []Disqualification `json:"disqualified"`

	// ExecutionTime is the total run execution time in milliseconds.
	ExecutionTime int64 `json:"tournamentExecutionTime"`

	CreatedAt time.Time `json:"createdAt"`
}

// ValidateTournamentMembership checks the construction invariants of a
// tournament over its gradings, the resolved submissions they reference,
// and the run's disqualification list. It returns an IntegrityError
// describing the first violated invariant, or nil when all hold:
//
//   - at least one grading
//   - grading ids are unique
//   - no two gradings reference the same submission or the same user
//   - every referenced submission resolves, is active, and passed
//     evaluation
//   - disqualified submissions are unique and disjoint from the graded
//     set
func ValidateTournamentMembership(
	gradings []Grading,
	submissions map[string]Submission,
	disqualified []Disqualification,
) error {
	if len(gradings) == 0 {
		return NewIntegrityError("tournament", "must reference at least one grading")
	}

	disqualifiedSet := make(map[string]struct{}, len(disqualified))
	for _, d := range disqualified {
		if _, dup := disqualifiedSet[d.SubmissionID]; dup {
			return NewIntegrityError("tournament",
				fmt.Sprintf("submission %s disqualified more than once", d.SubmissionID))
		}
		disqualifiedSet[d.SubmissionID] = struct{}{}
	}

	gradingIDs := make(map[string]struct{}, len(gradings))
	submissionIDs := make(map[string]struct{}, len(gradings))
	userIDs := make(map[string]struct{}, len(gradings))

	for _, g := range gradings {
		if _, dup := gradingIDs[g.ID]; dup {
			return NewIntegrityError("tournament",
				fmt.Sprintf("grading %s referenced more than once", g.ID))
		}
		gradingIDs[g.ID] = struct{}{}

		if _, dup := submissionIDs[g.SubmissionID]; dup {
			return NewIntegrityError("tournament",
				fmt.Sprintf("submission %s graded more than once", g.SubmissionID))
		}
		submissionIDs[g.SubmissionID] = struct{}{}

		if _, excluded := disqualifiedSet[g.SubmissionID]; excluded {
			return NewIntegrityError("tournament",
				fmt.Sprintf("submission %s is both graded and disqualified", g.SubmissionID))
		}

		sub, ok := submissions[g.SubmissionID]
		if !ok {
			return NewIntegrityError("tournament",
				fmt.Sprintf("submission %s cannot be resolved", g.SubmissionID))
		}
		if !sub.Eligible() {
			return NewIntegrityError("tournament",
				fmt.Sprintf("submission %s is not eligible", g.SubmissionID))
		}

		if _, dup := userIDs[sub.UserID]; dup {
			return NewIntegrityError("tournament",
				fmt.Sprintf("user %s graded more than once", sub.UserID))
		}
		userIDs[sub.UserID] = struct{}{}
	}

	return nil
}

// CentralTendency groups the location statistics of a score
// distribution. HarmonicMean is nil when any score is zero and Mode may
// hold multiple values for multi-modal distributions.
type CentralTendency struct {
	ArithmeticMean float64   `json:"arithmeticMean"`
	HarmonicMean   *float64  `json:"harmonicMean"`
	Mode           []float64 `json:"mode"`
}

// Dispersion groups the spread statistics of a score distribution.
type Dispersion struct {
	Variance           float64 `json:"variance"`
	StandardDeviation  float64 `json:"standardDeviation"`
	InterquartileRange float64 `json:"interquartileRange"`
}

// DistributionShape groups the shape statistics of a score
// distribution. Skewness requires n > 2 and kurtosis n > 3, each with a
// nonzero standard deviation; they are nil otherwise.
type DistributionShape struct {
	Skewness *float64 `json:"skewness"`
	Kurtosis *float64 `json:"kurtosis"`
}

// PercentileSummary holds the interpolated percentiles of a score
// distribution.
type PercentileSummary struct {
	P10 float64 `json:"p10"`
	P25 float64 `json:"p25"`
	P50 float64 `json:"p50"`
	P75 float64 `json:"p75"`
	P90 float64 `json:"p90"`
}

// Extrema holds the minimum, maximum, and range of a score
// distribution.
type Extrema struct {
	Minimum float64 `json:"minimum"`
	Maximum float64 `json:"maximum"`
	Range   float64 `json:"range"`
}

// TukeyCriteria holds the standard outlier fences
// [Q1 - 1.5·IQR, Q3 + 1.5·IQR].
type TukeyCriteria struct {
	LowerBound float64 `json:"lowerBound"`
	UpperBound float64 `json:"upperBound"`
}

// TournamentStatistics is the full descriptive-statistics projection of
// a tournament's score set. It is recomputed on demand and is a pure
// function of the underlying gradings: recomputing on unchanged
// gradings yields identical output.
type TournamentStatistics struct {
	SampleSize      int               `json:"sampleSize"`
	CentralTendency CentralTendency   `json:"centralTendency"`
	Dispersion      Dispersion        `json:"dispersion"`
	Distribution    DistributionShape `json:"distribution"`
	Percentiles     PercentileSummary `json:"percentiles"`
	Extrema         Extrema           `json:"extrema"`
	TukeyCriteria   TukeyCriteria     `json:"tukeyCriteria"`
	OutlierValues   []float64         `json:"outlierValues"`
}

// NewTournamentStatistics computes the full statistics projection over
// the given raw scores. The input need not be sorted; it is copied and
// never modified. It returns ErrEmptyScores when the score set is
// empty.
func NewTournamentStatistics(scores []float64) (*TournamentStatistics, error) {
	if len(scores) == 0 {
		return nil, ErrEmptyScores
	}

	sorted := make([]float64, len(scores))
	copy(sorted, scores)
	sort.Float64s(sorted)

	mean, err := Mean(sorted)
	if err != nil {
		return nil, err
	}

	stats := &TournamentStatistics{
		SampleSize: len(sorted),
		CentralTendency: CentralTendency{
			ArithmeticMean: mean,
			Mode:           Mode(sorted),
		},
		Dispersion: Dispersion{
			Variance:          Variance(sorted),
			StandardDeviation: StandardDeviation(sorted),
		},
	}

	if harmonic, ok := HarmonicMean(sorted); ok {
		stats.CentralTendency.HarmonicMean = &harmonic
	}
	if skew, ok := Skewness(sorted); ok {
		stats.Distribution.Skewness = &skew
	}
	if kurt, ok := Kurtosis(sorted); ok {
		stats.Distribution.Kurtosis = &kurt
	}

	percentiles := []struct {
		p    float64
		dest *float64
	}{
		{0.10, &stats.Percentiles.P10},
		{0.25, &stats.Percentiles.P25},
		{0.50, &stats.Percentiles.P50},
		{0.75, &stats.Percentiles.P75},
		{0.90, &stats.Percentiles.P90},
	}
	for _, pct := range percentiles {
		value, err := Percentile(sorted, pct.p)
		if err != nil {
			return nil, err
		}
		*pct.dest = value
	}

	stats.Dispersion.InterquartileRange = stats.Percentiles.P75 - stats.Percentiles.P25

	stats.Extrema = Extrema{
		Minimum: sorted[0],
		Maximum: sorted[len(sorted)-1],
		Range:   sorted[len(sorted)-1] - sorted[0],
	}

	lower, upper, err := TukeyBounds(sorted)
	if err != nil {
		return nil, err
	}
	stats.TukeyCriteria = TukeyCriteria{LowerBound: lower, UpperBound: upper}
	stats.OutlierValues = Outliers(sorted)

	return stats, nil
}
