// Package application orchestrates the grading-enrichment and
// tournament-statistics engine over the domain computation and the
// collaborator ports.
package application

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/rhaversen/GaslightBackend/internal/domain"
	"github.com/rhaversen/GaslightBackend/internal/ports"
)

// GradingBatchEntry is one raw per-submission result from a tournament
// run, before enrichment.
type GradingBatchEntry struct {
	SubmissionID     string  `json:"submissionId" validate:"required"`
	Score            float64 `json:"score" validate:"min=0,max=1000"`
	AvgExecutionTime float64 `json:"avgExecutionTime" validate:"min=0"`
}

// DisqualificationEntry names a submission excluded from a run and why.
type DisqualificationEntry struct {
	SubmissionID string `json:"submissionId" validate:"required"`
	Reason       string `json:"reason" validate:"required"`
}

// GradingBuilder turns a batch of raw results into enriched, persisted
// gradings plus the tournament record referencing them. The whole
// operation is a single unit of work: either all enrichment succeeds
// and all records persist, or none do.
type GradingBuilder struct {
	gradings    ports.GradingStore
	tournaments ports.TournamentStore
	submissions ports.SubmissionStore
	events      ports.EventSink
	metrics     ports.MetricsCollector
	logger      *slog.Logger
	tracer      trace.Tracer
}

// NewGradingBuilder creates a GradingBuilder over the given stores.
// events and metrics may be nil; logger defaults to slog.Default().
func NewGradingBuilder(
	gradings ports.GradingStore,
	tournaments ports.TournamentStore,
	submissions ports.SubmissionStore,
	events ports.EventSink,
	metrics ports.MetricsCollector,
	logger *slog.Logger,
) *GradingBuilder {
	if logger == nil {
		logger = slog.Default()
	}
	return &GradingBuilder{
		gradings:    gradings,
		tournaments: tournaments,
		submissions: submissions,
		events:      events,
		metrics:     metrics,
		logger:      logger,
		tracer:      otel.Tracer("grading-builder"),
	}
}

// BuildGradingsAndTournament enriches a batch of raw results into
// gradings and persists them together with the tournament record.
//
// The pipeline removes disqualified entries, resolves the remaining
// submissions (dropping unresolvable ones), computes z-values,
// dense-rank placements, and cumulative-frequency percentile ranks over
// the surviving scores only, validates the tournament-construction
// invariants, and persists gradings then tournament. A failed
// tournament write deletes the just-inserted gradings so no orphans
// remain. On success a tournament-created event fires; sink errors are
// logged, never propagated.
//
// Failures return a nil tournament and an error classifiable with
// errors.As into domain.ValidationError or domain.IntegrityError, so
// boundaries can respond with a generic invalid-data signal.
func (b *GradingBuilder) BuildGradingsAndTournament(
	ctx context.Context,
	batch []GradingBatchEntry,
	disqualified []DisqualificationEntry,
	totalExecutionTime int64,
	gameID string,
) (*domain.Tournament, error) {
	ctx, span := b.tracer.Start(ctx, "GradingBuilder.BuildGradingsAndTournament",
		trace.WithAttributes(
			attribute.Int("batch.size", len(batch)),
			attribute.Int("batch.disqualified", len(disqualified)),
			attribute.String("game.id", gameID),
		),
	)
	defer span.End()
	started := time.Now()

	tournament, err := b.build(ctx, batch, disqualified, totalExecutionTime, gameID)
	b.recordOutcome(span, started, err)
	if err != nil {
		return nil, err
	}

	b.logger.InfoContext(ctx, "tournament created",
		slog.String("tournament_id", tournament.ID),
		slog.String("game_id", tournament.GameID),
		slog.Int("gradings", len(tournament.GradingIDs)),
		slog.Int("disqualified", len(tournament.Disqualified)),
	)
	if b.metrics != nil {
		b.metrics.RecordHistogram("tournament_field_size", float64(len(tournament.GradingIDs)), nil)
	}

	if b.events != nil {
		if err := b.events.TournamentCreated(ctx, tournament.ID, tournament.GameID); err != nil {
			b.logger.WarnContext(ctx, "tournament created event failed",
				slog.String("tournament_id", tournament.ID),
				slog.String("error", err.Error()),
			)
		}
	}
	return tournament, nil
}

func (b *GradingBuilder) build(
	ctx context.Context,
	batch []GradingBatchEntry,
	disqualified []DisqualificationEntry,
	totalExecutionTime int64,
	gameID string,
) (*domain.Tournament, error) {
	if err := validateBatch(batch, disqualified); err != nil {
		return nil, err
	}

	survivors, annotated := partitionDisqualified(batch, disqualified)
	if len(survivors) == 0 {
		return nil, domain.NewIntegrityError("tournament", "all batch entries are disqualified")
	}

	ids := make([]string, len(survivors))
	for i, entry := range survivors {
		ids[i] = entry.SubmissionID
	}
	submissions, err := b.submissions.FindByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("resolve submissions: %w", err)
	}

	resolved := survivors[:0]
	for _, entry := range survivors {
		if _, ok := submissions[entry.SubmissionID]; !ok {
			// Should not occur when upstream validated eligibility.
			b.logger.WarnContext(ctx, "dropping grading for unresolvable submission",
				slog.String("submission_id", entry.SubmissionID),
			)
			b.count("grading_entries_dropped_total", 1)
			continue
		}
		resolved = append(resolved, entry)
	}
	if len(resolved) == 0 {
		return nil, domain.NewIntegrityError("tournament", "no resolvable submissions in batch")
	}

	scores := make([]float64, len(resolved))
	for i, entry := range resolved {
		scores[i] = entry.Score
	}
	enriched, err := domain.EnrichScores(scores)
	if err != nil {
		return nil, fmt.Errorf("enrich scores: %w", err)
	}

	now := time.Now().UTC()
	gradings := make([]domain.Grading, len(resolved))
	for i, entry := range resolved {
		gradings[i] = domain.Grading{
			ID:               uuid.NewString(),
			SubmissionID:     entry.SubmissionID,
			Score:            entry.Score,
			ZValue:           enriched[i].ZValue,
			Placement:        enriched[i].Placement,
			PercentileRank:   enriched[i].PercentileRank,
			TokenCount:       submissions[entry.SubmissionID].TokenCount,
			AvgExecutionTime: entry.AvgExecutionTime,
			CreatedAt:        now,
		}
	}

	if err := domain.ValidateTournamentMembership(gradings, submissions, annotated); err != nil {
		return nil, err
	}

	if err := b.gradings.InsertMany(ctx, gradings); err != nil {
		return nil, fmt.Errorf("persist gradings: %w", err)
	}

	tournament := domain.Tournament{
		ID:            uuid.NewString(),
		GameID:        gameID,
		GradingIDs:    make([]string, len(gradings)),
		Disqualified:  annotated,
		ExecutionTime: totalExecutionTime,
		CreatedAt:     now,
	}
	for i, g := range gradings {
		tournament.GradingIDs[i] = g.ID
	}

	if err := b.tournaments.Insert(ctx, tournament); err != nil {
		// Compensate so the failed unit of work leaves no orphans.
		if cleanupErr := b.gradings.DeleteByIDs(ctx, tournament.GradingIDs); cleanupErr != nil {
			b.logger.ErrorContext(ctx, "orphan grading cleanup failed",
				slog.String("tournament_id", tournament.ID),
				slog.String("error", cleanupErr.Error()),
			)
		}
		return nil, fmt.Errorf("persist tournament: %w", err)
	}

	b.count("gradings_persisted_total", float64(len(gradings)))
	return &tournament, nil
}

// validateBatch rejects malformed input before any computation.
func validateBatch(batch []GradingBatchEntry, disqualified []DisqualificationEntry) error {
	if len(batch) == 0 {
		return domain.NewValidationErrorf("gradingBatch", "batch must contain at least one entry")
	}

	verr := domain.NewValidationError("gradingBatch")
	for i, entry := range batch {
		if err := validate.Struct(entry); err != nil {
			verr.AddError(fmt.Sprintf("entry %d: %v", i, err))
		}
	}
	for i, entry := range disqualified {
		if err := validate.Struct(entry); err != nil {
			verr.AddError(fmt.Sprintf("disqualification %d: %v", i, err))
		}
	}
	if verr.HasErrors() {
		return verr
	}
	return nil
}

// partitionDisqualified removes disqualified entries from the batch and
// annotates the disqualification list with the score and execution time
// observed for each excluded submission before exclusion.
func partitionDisqualified(
	batch []GradingBatchEntry,
	disqualified []DisqualificationEntry,
) (survivors []GradingBatchEntry, annotated []domain.Disqualification) {
	excluded := make(map[string]DisqualificationEntry, len(disqualified))
	for _, d := range disqualified {
		if _, dup := excluded[d.SubmissionID]; !dup {
			excluded[d.SubmissionID] = d
		}
	}

	observed := make(map[string]GradingBatchEntry, len(batch))
	survivors = make([]GradingBatchEntry, 0, len(batch))
	for _, entry := range batch {
		if _, out := excluded[entry.SubmissionID]; out {
			if _, seen := observed[entry.SubmissionID]; !seen {
				observed[entry.SubmissionID] = entry
			}
			continue
		}
		survivors = append(survivors, entry)
	}

	annotated = make([]domain.Disqualification, 0, len(disqualified))
	for _, d := range disqualified {
		entry := observed[d.SubmissionID]
		annotated = append(annotated, domain.Disqualification{
			SubmissionID:     d.SubmissionID,
			Reason:           d.Reason,
			Score:            entry.Score,
			AvgExecutionTime: entry.AvgExecutionTime,
		})
	}
	return survivors, annotated
}

func (b *GradingBuilder) recordOutcome(span trace.Span, started time.Time, err error) {
	status := "success"
	if err != nil {
		status = "failure"
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	if b.metrics != nil {
		b.metrics.RecordLatency("build_gradings_and_tournament", time.Since(started),
			map[string]string{"status": status})
		b.metrics.RecordCounter("engine_operations_total", 1,
			map[string]string{"operation": "build_gradings_and_tournament", "status": status})
	}
}

func (b *GradingBuilder) count(metric string, value float64) {
	if b.metrics != nil {
		b.metrics.RecordCounter(metric, value, nil)
	}
}
