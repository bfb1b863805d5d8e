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

func seedField(t *testing.T, store *storage.MemoryStore, count int) {
	t.Helper()
	names := []string{"alice", "bob", "carol", "dave", "erin"}
	for i := 0; i < count; i++ {
		userID := "user-" + names[i]
		store.PutUser(domain.User{ID: userID, DisplayName: names[i]})
		store.PutSubmission(domain.Submission{
			ID:         "sub-" + names[i],
			UserID:     userID,
			GameID:     "game-1",
			Title:      names[i] + "'s strategy",
			TokenCount: 100 * (i + 1),
			Active:     true,
			Evaluation: domain.EvaluationRecord{Status: domain.EvaluationPassed},
		})
	}
}

func newTestBuilder(store *storage.MemoryStore) *GradingBuilder {
	return NewGradingBuilder(
		store.Gradings(), store.Tournaments(), store.Submissions(), nil, nil, nil)
}

func TestBuildGradingsAndTournament(t *testing.T) {
	ctx := context.Background()

	t.Run("persists enriched gradings and the tournament", func(t *testing.T) {
		store := storage.NewMemoryStore()
		seedField(t, store, 3)
		builder := newTestBuilder(store)

		batch := []GradingBatchEntry{
			{SubmissionID: "sub-alice", Score: 90, AvgExecutionTime: 0.5},
			{SubmissionID: "sub-bob", Score: 90, AvgExecutionTime: 0.7},
			{SubmissionID: "sub-carol", Score: 80, AvgExecutionTime: 0.9},
		}

		tournament, err := builder.BuildGradingsAndTournament(ctx, batch, nil, 1234, "game-1")
		require.NoError(t, err)
		require.NotNil(t, tournament)

		assert.Equal(t, "game-1", tournament.GameID)
		assert.Equal(t, int64(1234), tournament.ExecutionTime)
		require.Len(t, tournament.GradingIDs, 3)

		gradings, err := store.Gradings().FindByIDs(ctx, tournament.GradingIDs)
		require.NoError(t, err)
		require.Len(t, gradings, 3)

		// Tied top scores share placement 1, next unique score ranks 2.
		assert.Equal(t, 1, gradings[0].Placement)
		assert.Equal(t, 1, gradings[1].Placement)
		assert.Equal(t, 2, gradings[2].Placement)

		// Cumulative-frequency percentile ranks: the tied top pair covers
		// the whole field, the trailing score a third of it.
		assert.InDelta(t, 100, gradings[0].PercentileRank, 1e-9)
		assert.InDelta(t, 100, gradings[1].PercentileRank, 1e-9)
		assert.InDelta(t, 100.0/3.0, gradings[2].PercentileRank, 1e-9)

		// Token counts are snapshotted from the submissions.
		assert.Equal(t, 100, gradings[0].TokenCount)
		assert.Equal(t, 200, gradings[1].TokenCount)
		assert.Equal(t, 300, gradings[2].TokenCount)

		persisted, err := store.Tournaments().FindByID(ctx, tournament.ID)
		require.NoError(t, err)
		assert.Equal(t, tournament.GradingIDs, persisted.GradingIDs)
	})

	t.Run("single entry batch enriches against itself", func(t *testing.T) {
		store := storage.NewMemoryStore()
		seedField(t, store, 1)
		builder := newTestBuilder(store)

		tournament, err := builder.BuildGradingsAndTournament(ctx,
			[]GradingBatchEntry{{SubmissionID: "sub-alice", Score: 500}}, nil, 0, "game-1")
		require.NoError(t, err)

		gradings, err := store.Gradings().FindByIDs(ctx, tournament.GradingIDs)
		require.NoError(t, err)
		require.Len(t, gradings, 1)
		assert.Equal(t, 1, gradings[0].Placement)
		assert.InDelta(t, 100, gradings[0].PercentileRank, 1e-9)
		assert.Zero(t, gradings[0].ZValue)
	})

	t.Run("empty batch fails validation and persists nothing", func(t *testing.T) {
		store := storage.NewMemoryStore()
		builder := newTestBuilder(store)

		_, err := builder.BuildGradingsAndTournament(ctx, nil, nil, 0, "game-1")
		var validationErr *domain.ValidationError
		require.ErrorAs(t, err, &validationErr)

		tournaments, err := store.Tournaments().List(ctx, ports.TournamentFilter{})
		require.NoError(t, err)
		assert.Empty(t, tournaments)
	})

	t.Run("out-of-range score fails validation", func(t *testing.T) {
		store := storage.NewMemoryStore()
		seedField(t, store, 1)
		builder := newTestBuilder(store)

		_, err := builder.BuildGradingsAndTournament(ctx,
			[]GradingBatchEntry{{SubmissionID: "sub-alice", Score: 1000.5}}, nil, 0, "game-1")
		var validationErr *domain.ValidationError
		assert.ErrorAs(t, err, &validationErr)
	})

	t.Run("disqualified entries are excluded and annotated", func(t *testing.T) {
		store := storage.NewMemoryStore()
		seedField(t, store, 3)
		builder := newTestBuilder(store)

		batch := []GradingBatchEntry{
			{SubmissionID: "sub-alice", Score: 90},
			{SubmissionID: "sub-bob", Score: 70},
			{SubmissionID: "sub-carol", Score: 50, AvgExecutionTime: 9.5},
		}
		disqualified := []DisqualificationEntry{
			{SubmissionID: "sub-carol", Reason: "execution timeout"},
		}

		tournament, err := builder.BuildGradingsAndTournament(ctx, batch, disqualified, 0, "game-1")
		require.NoError(t, err)

		assert.Len(t, tournament.GradingIDs, 2)
		require.Len(t, tournament.Disqualified, 1)
		assert.Equal(t, "sub-carol", tournament.Disqualified[0].SubmissionID)
		assert.Equal(t, "execution timeout", tournament.Disqualified[0].Reason)
		assert.InDelta(t, 50, tournament.Disqualified[0].Score, 1e-9)
		assert.InDelta(t, 9.5, tournament.Disqualified[0].AvgExecutionTime, 1e-9)

		// Enrichment ran over the surviving pair only.
		gradings, err := store.Gradings().FindByIDs(ctx, tournament.GradingIDs)
		require.NoError(t, err)
		assert.InDelta(t, 100, gradings[0].PercentileRank, 1e-9)
		assert.InDelta(t, 50, gradings[1].PercentileRank, 1e-9)
	})

	t.Run("fully disqualified batch is an integrity failure", func(t *testing.T) {
		store := storage.NewMemoryStore()
		seedField(t, store, 1)
		builder := newTestBuilder(store)

		_, err := builder.BuildGradingsAndTournament(ctx,
			[]GradingBatchEntry{{SubmissionID: "sub-alice", Score: 90}},
			[]DisqualificationEntry{{SubmissionID: "sub-alice", Reason: "crash"}},
			0, "game-1")
		var integrityErr *domain.IntegrityError
		assert.ErrorAs(t, err, &integrityErr)
	})

	t.Run("unresolvable submissions are dropped, not fatal", func(t *testing.T) {
		store := storage.NewMemoryStore()
		seedField(t, store, 2)
		builder := newTestBuilder(store)

		batch := []GradingBatchEntry{
			{SubmissionID: "sub-alice", Score: 90},
			{SubmissionID: "sub-bob", Score: 80},
			{SubmissionID: "sub-ghost", Score: 70},
		}
		tournament, err := builder.BuildGradingsAndTournament(ctx, batch, nil, 0, "game-1")
		require.NoError(t, err)
		assert.Len(t, tournament.GradingIDs, 2)
	})

	t.Run("duplicate user violates integrity before any write", func(t *testing.T) {
		store := storage.NewMemoryStore()
		store.PutUser(domain.User{ID: "user-1", DisplayName: "alice"})
		store.PutSubmission(domain.Submission{
			ID: "sub-a", UserID: "user-1", Active: true,
			Evaluation: domain.EvaluationRecord{Status: domain.EvaluationPassed},
		})
		store.PutSubmission(domain.Submission{
			ID: "sub-b", UserID: "user-1", Active: true,
			Evaluation: domain.EvaluationRecord{Status: domain.EvaluationPassed},
		})
		builder := newTestBuilder(store)

		_, err := builder.BuildGradingsAndTournament(ctx, []GradingBatchEntry{
			{SubmissionID: "sub-a", Score: 90},
			{SubmissionID: "sub-b", Score: 80},
		}, nil, 0, "game-1")
		var integrityErr *domain.IntegrityError
		require.ErrorAs(t, err, &integrityErr)

		tournaments, err := store.Tournaments().List(ctx, ports.TournamentFilter{})
		require.NoError(t, err)
		assert.Empty(t, tournaments)
	})
}

// recordingGradings wraps a grading store and tracks inserted and
// deleted ids for compensation assertions.
type recordingGradings struct {
	ports.GradingStore
	inserted []string
	deleted  []string
}

func (r *recordingGradings) InsertMany(ctx context.Context, gradings []domain.Grading) error {
	for _, g := range gradings {
		r.inserted = append(r.inserted, g.ID)
	}
	return r.GradingStore.InsertMany(ctx, gradings)
}

func (r *recordingGradings) DeleteByIDs(ctx context.Context, ids []string) error {
	r.deleted = append(r.deleted, ids...)
	return r.GradingStore.DeleteByIDs(ctx, ids)
}

// failingTournaments rejects every insert.
type failingTournaments struct {
	ports.TournamentStore
}

func (f *failingTournaments) Insert(context.Context, domain.Tournament) error {
	return errors.New("tournament store down")
}

func TestBuildGradingsAndTournamentCompensation(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStore()
	seedField(t, store, 2)

	gradings := &recordingGradings{GradingStore: store.Gradings()}
	builder := NewGradingBuilder(
		gradings,
		&failingTournaments{TournamentStore: store.Tournaments()},
		store.Submissions(),
		nil, nil, nil,
	)

	_, err := builder.BuildGradingsAndTournament(ctx, []GradingBatchEntry{
		{SubmissionID: "sub-alice", Score: 90},
		{SubmissionID: "sub-bob", Score: 80},
	}, nil, 0, "game-1")
	require.Error(t, err)

	// The failed tournament write must delete the just-inserted gradings.
	require.Len(t, gradings.inserted, 2)
	assert.ElementsMatch(t, gradings.inserted, gradings.deleted)

	remaining, err := store.Gradings().FindByIDs(ctx, gradings.inserted)
	require.NoError(t, err)
	assert.Empty(t, remaining)
}
