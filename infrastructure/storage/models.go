package storage

import (
	"time"

	"github.com/rhaversen/GaslightBackend/internal/domain"
)

// Document shapes for the MongoDB collections. Converters keep bson
// concerns out of the domain types.

type gradingDoc struct {
	ID               string    `bson:"_id"`
	SubmissionID     string    `bson:"submissionId"`
	Score            float64   `bson:"score"`
	ZValue           float64   `bson:"zValue"`
	Placement        int       `bson:"placement"`
	PercentileRank   float64   `bson:"percentileRank"`
	TokenCount       int       `bson:"tokenCount"`
	AvgExecutionTime float64   `bson:"avgExecutionTime"`
	CreatedAt        time.Time `bson:"createdAt"`
}

func gradingToDoc(g domain.Grading) gradingDoc {
	return gradingDoc(g)
}

func (d gradingDoc) toDomain() domain.Grading {
	return domain.Grading(d)
}

type disqualificationDoc struct {
	SubmissionID     string  `bson:"submissionId"`
	Reason           string  `bson:"reason"`
	Score            float64 `bson:"score"`
	AvgExecutionTime float64 `bson:"avgExecutionTime"`
}

type tournamentDoc struct {
	ID            string                `bson:"_id"`
	GameID        string                `bson:"gameId"`
	GradingIDs    []string              `bson:"gradings"`
	Disqualified  []disqualificationDoc `bson:"disqualified"`
	ExecutionTime int64                 `bson:"tournamentExecutionTime"`
	CreatedAt     time.Time             `bson:"createdAt"`
}

func tournamentToDoc(t domain.Tournament) tournamentDoc {
	disqualified := make([]disqualificationDoc, len(t.Disqualified))
	for i, d := range t.Disqualified {
		disqualified[i] = disqualificationDoc(d)
	}
	return tournamentDoc{
		ID:            t.ID,
		GameID:        t.GameID,
		GradingIDs:    t.GradingIDs,
		Disqualified:  disqualified,
		ExecutionTime: t.ExecutionTime,
		CreatedAt:     t.CreatedAt,
	}
}

func (d tournamentDoc) toDomain() domain.Tournament {
	disqualified := make([]domain.Disqualification, len(d.Disqualified))
	for i, dq := range d.Disqualified {
		disqualified[i] = domain.Disqualification(dq)
	}
	return domain.Tournament{
		ID:            d.ID,
		GameID:        d.GameID,
		GradingIDs:    d.GradingIDs,
		Disqualified:  disqualified,
		ExecutionTime: d.ExecutionTime,
		CreatedAt:     d.CreatedAt,
	}
}

type evaluationDoc struct {
	Status                string  `bson:"status"`
	Disqualified          string  `bson:"disqualified,omitempty"`
	LoadingTimeExceeded   bool    `bson:"loadingTimeExceeded"`
	ExecutionTimeExceeded bool    `bson:"executionTimeExceeded"`
	CandidateScore        float64 `bson:"candidateScore"`
	FieldAverage          float64 `bson:"fieldAverage"`
	AverageExecutionTime  float64 `bson:"averageExecutionTime"`
}

type submissionDoc struct {
	ID         string        `bson:"_id"`
	UserID     string        `bson:"user"`
	GameID     string        `bson:"game"`
	Title      string        `bson:"title"`
	Code       string        `bson:"code"`
	TokenCount int           `bson:"tokenCount"`
	Active     bool          `bson:"active"`
	Evaluation evaluationDoc `bson:"evaluation"`
	CreatedAt  time.Time     `bson:"createdAt"`
	UpdatedAt  time.Time     `bson:"updatedAt"`
}

func (d submissionDoc) toDomain() domain.Submission {
	return domain.Submission{
		ID:         d.ID,
		UserID:     d.UserID,
		GameID:     d.GameID,
		Title:      d.Title,
		Code:       d.Code,
		TokenCount: d.TokenCount,
		Active:     d.Active,
		Evaluation: domain.EvaluationRecord{
			Status:                domain.EvaluationStatus(d.Evaluation.Status),
			Disqualified:          d.Evaluation.Disqualified,
			LoadingTimeExceeded:   d.Evaluation.LoadingTimeExceeded,
			ExecutionTimeExceeded: d.Evaluation.ExecutionTimeExceeded,
			CandidateScore:        d.Evaluation.CandidateScore,
			FieldAverage:          d.Evaluation.FieldAverage,
			AverageExecutionTime:  d.Evaluation.AverageExecutionTime,
		},
		CreatedAt: d.CreatedAt,
		UpdatedAt: d.UpdatedAt,
	}
}

func evaluationToDoc(record domain.EvaluationRecord) evaluationDoc {
	return evaluationDoc{
		Status:                string(record.Status),
		Disqualified:          record.Disqualified,
		LoadingTimeExceeded:   record.LoadingTimeExceeded,
		ExecutionTimeExceeded: record.ExecutionTimeExceeded,
		CandidateScore:        record.CandidateScore,
		FieldAverage:          record.FieldAverage,
		AverageExecutionTime:  record.AverageExecutionTime,
	}
}

type userDoc struct {
	ID          string `bson:"_id"`
	DisplayName string `bson:"username"`
}
