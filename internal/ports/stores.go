// Package ports defines the interfaces the engine's external
// collaborators must satisfy: durable stores of immutable records,
// identity lookups, the evaluation service, event sinks, and metrics.
package ports

import (
	"context"
	"time"

	"github.com/rhaversen/GaslightBackend/internal/domain"
)

// GradingStore persists immutable grading records and retrieves them by
// id set. Gradings are write-once; DeleteByIDs exists only to
// compensate a failed tournament write and DeleteBySubmission to
// cascade a submission deletion.
type GradingStore interface {
	// InsertMany persists a batch of gradings. The batch either persists
	// completely or the store returns an error with nothing written.
	InsertMany(ctx context.Context, gradings []domain.Grading) error

	// FindByIDs returns the gradings matching the given ids. Missing ids
	// are simply absent from the result.
	FindByIDs(ctx context.Context, ids []string) ([]domain.Grading, error)

	// DeleteByIDs removes the gradings with the given ids. Used to clean
	// up orphans when the subsequent tournament write fails.
	DeleteByIDs(ctx context.Context, ids []string) error

	// DeleteBySubmission removes all gradings referencing the given
	// submission, cascading a submission deletion.
	DeleteBySubmission(ctx context.Context, submissionID string) error
}

// TournamentFilter narrows a tournament listing. Zero values leave the
// corresponding dimension unconstrained.
type TournamentFilter struct {
	From  *time.Time
	To    *time.Time
	Limit int64
	Skip  int64
}

// TournamentStore persists write-once tournament records.
type TournamentStore interface {
	// Insert persists a tournament.
	Insert(ctx context.Context, tournament domain.Tournament) error

	// FindByID returns the tournament with the given id, or ErrNotFound.
	FindByID(ctx context.Context, id string) (domain.Tournament, error)

	// List returns tournaments matching the filter, newest first.
	List(ctx context.Context, filter TournamentFilter) ([]domain.Tournament, error)
}

// SubmissionStore provides the submission lookup-by-id-set capability
// the engine consumes, plus the narrow mutations the evaluation flow
// needs. Submission creation and editing live outside this engine.
type SubmissionStore interface {
	// FindByID returns the submission with the given id, or ErrNotFound.
	FindByID(ctx context.Context, id string) (domain.Submission, error)

	// FindByIDs returns the submissions matching the given ids, keyed by
	// id. Missing ids are simply absent from the result.
	FindByIDs(ctx context.Context, ids []string) (map[string]domain.Submission, error)

	// ListEligible returns all active submissions that passed
	// evaluation.
	ListEligible(ctx context.Context) ([]domain.Submission, error)

	// ListOthers returns all submissions except the one with the given
	// id, used as the opposing field for an evaluation run.
	ListOthers(ctx context.Context, excludeID string) ([]domain.Submission, error)

	// SetEvaluation records an evaluation outcome on a submission and
	// updates its active flag. A failed evaluation deactivates the
	// submission.
	SetEvaluation(ctx context.Context, id string, record domain.EvaluationRecord, active bool) error
}

// UserReader provides the display-name lookup-by-id capability the
// standings join consumes.
type UserReader interface {
	// DisplayNames returns display names keyed by user id. Missing ids
	// are simply absent from the result.
	DisplayNames(ctx context.Context, ids []string) (map[string]string, error)
}

// EventSink receives fire-and-forget platform events. Implementations
// must not block tournament creation; errors are logged by the caller
// and never propagated.
type EventSink interface {
	// TournamentCreated signals that a tournament was persisted.
	TournamentCreated(ctx context.Context, tournamentID, gameID string) error
}
