package application

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/rhaversen/GaslightBackend/internal/domain"
	"github.com/rhaversen/GaslightBackend/internal/ports"
)

// StandingsQuery selects and pages the standings view. The zero value
// means "everything, sorted by score descending".
type StandingsQuery struct {
	// Limit caps the number of returned rows; 0 or negative returns all.
	Limit int

	// Skip drops that many gradings from the front of the sorted set.
	Skip int

	// SortField selects the grading field to sort by; empty defaults to
	// score.
	SortField domain.SortField

	// SortOrder selects the direction; empty defaults to descending.
	SortOrder domain.SortOrder
}

// TournamentSummary pairs a tournament record with a short standings
// preview for listing endpoints.
type TournamentSummary struct {
	Tournament domain.Tournament    `json:"tournament"`
	Standings  []domain.StandingRow `json:"standings"`
}

// TournamentQueries serves the read side of the engine: on-demand
// statistics and the sorted, paginated, per-user-queryable standings.
// All reads recompute from the durable stores; nothing is cached, so
// repeated queries on unchanged tournaments yield identical output.
type TournamentQueries struct {
	gradings    ports.GradingStore
	tournaments ports.TournamentStore
	submissions ports.SubmissionStore
	users       ports.UserReader
	logger      *slog.Logger
	tracer      trace.Tracer
}

// NewTournamentQueries creates a TournamentQueries over the given
// stores and lookups. logger defaults to slog.Default().
func NewTournamentQueries(
	gradings ports.GradingStore,
	tournaments ports.TournamentStore,
	submissions ports.SubmissionStore,
	users ports.UserReader,
	logger *slog.Logger,
) *TournamentQueries {
	if logger == nil {
		logger = slog.Default()
	}
	return &TournamentQueries{
		gradings:    gradings,
		tournaments: tournaments,
		submissions: submissions,
		users:       users,
		logger:      logger,
		tracer:      otel.Tracer("tournament-queries"),
	}
}

// GetTournamentStatistics recomputes the full descriptive-statistics
// projection for a tournament from its persisted gradings. It returns
// ports.ErrNotFound for an unknown tournament and domain.ErrEmptyScores
// for a present tournament whose score set is empty, so the two
// failures stay distinguishable.
func (q *TournamentQueries) GetTournamentStatistics(
	ctx context.Context,
	tournamentID string,
) (*domain.TournamentStatistics, error) {
	ctx, span := q.tracer.Start(ctx, "TournamentQueries.GetTournamentStatistics",
		trace.WithAttributes(attribute.String("tournament.id", tournamentID)))
	defer span.End()

	tournament, err := q.tournaments.FindByID(ctx, tournamentID)
	if err != nil {
		return nil, err
	}
	gradings, err := q.gradings.FindByIDs(ctx, tournament.GradingIDs)
	if err != nil {
		return nil, fmt.Errorf("load gradings: %w", err)
	}

	scores := make([]float64, len(gradings))
	for i, g := range gradings {
		scores[i] = g.Score
	}
	return domain.NewTournamentStatistics(scores)
}

// GetStandings returns the leaderboard rows for a tournament, sorted by
// the requested grading field and paginated at the grading level before
// the identity join. Rows whose submission or user cannot be resolved
// are dropped silently.
func (q *TournamentQueries) GetStandings(
	ctx context.Context,
	tournamentID string,
	query StandingsQuery,
) ([]domain.StandingRow, error) {
	ctx, span := q.tracer.Start(ctx, "TournamentQueries.GetStandings",
		trace.WithAttributes(
			attribute.String("tournament.id", tournamentID),
			attribute.Int("query.limit", query.Limit),
			attribute.Int("query.skip", query.Skip),
		),
	)
	defer span.End()

	field, err := domain.ParseSortField(string(query.SortField))
	if err != nil {
		return nil, err
	}
	order, err := domain.ParseSortOrder(string(query.SortOrder))
	if err != nil {
		return nil, err
	}

	tournament, err := q.tournaments.FindByID(ctx, tournamentID)
	if err != nil {
		return nil, err
	}
	return q.standingsFor(ctx, tournament, StandingsQuery{
		Limit:     query.Limit,
		Skip:      query.Skip,
		SortField: field,
		SortOrder: order,
	})
}

// GetStanding finds the single standing row for the given user within
// this tournament's own grading set. It returns (nil, nil) when the
// user has no grading in the tournament; gradings the user may have in
// other tournaments never match.
func (q *TournamentQueries) GetStanding(
	ctx context.Context,
	tournamentID, userID string,
) (*domain.StandingRow, error) {
	ctx, span := q.tracer.Start(ctx, "TournamentQueries.GetStanding",
		trace.WithAttributes(
			attribute.String("tournament.id", tournamentID),
			attribute.String("user.id", userID),
		),
	)
	defer span.End()

	tournament, err := q.tournaments.FindByID(ctx, tournamentID)
	if err != nil {
		return nil, err
	}
	gradings, err := q.gradings.FindByIDs(ctx, tournament.GradingIDs)
	if err != nil {
		return nil, fmt.Errorf("load gradings: %w", err)
	}
	if len(gradings) == 0 {
		return nil, nil
	}

	submissionIDs := make([]string, len(gradings))
	for i, g := range gradings {
		submissionIDs[i] = g.SubmissionID
	}
	submissions, err := q.submissions.FindByIDs(ctx, submissionIDs)
	if err != nil {
		return nil, fmt.Errorf("resolve submissions: %w", err)
	}

	var match *domain.Grading
	for i := range gradings {
		sub, ok := submissions[gradings[i].SubmissionID]
		if ok && sub.UserID == userID {
			match = &gradings[i]
			break
		}
	}
	if match == nil {
		return nil, nil
	}

	names, err := q.users.DisplayNames(ctx, []string{userID})
	if err != nil {
		return nil, fmt.Errorf("resolve user: %w", err)
	}
	name, ok := names[userID]
	if !ok {
		return nil, nil
	}

	stats := batchContext(gradings)
	sub := submissions[match.SubmissionID]
	row := buildStandingRow(*match, sub, name, stats)
	return &row, nil
}

// ListTournaments returns tournaments matching the filter, newest
// first, each with a short standings preview. Previews are resolved
// concurrently.
func (q *TournamentQueries) ListTournaments(
	ctx context.Context,
	filter ports.TournamentFilter,
	previewSize int,
) ([]TournamentSummary, error) {
	ctx, span := q.tracer.Start(ctx, "TournamentQueries.ListTournaments")
	defer span.End()

	if previewSize <= 0 {
		previewSize = 3
	}
	tournaments, err := q.tournaments.List(ctx, filter)
	if err != nil {
		return nil, err
	}

	summaries := make([]TournamentSummary, len(tournaments))
	g, gctx := errgroup.WithContext(ctx)
	for i, tournament := range tournaments {
		g.Go(func() error {
			standings, err := q.standingsFor(gctx, tournament, StandingsQuery{
				Limit:     previewSize,
				SortField: domain.SortByScore,
				SortOrder: domain.SortDescending,
			})
			if err != nil {
				return fmt.Errorf("standings for tournament %s: %w", tournament.ID, err)
			}
			summaries[i] = TournamentSummary{Tournament: tournament, Standings: standings}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return summaries, nil
}

// batchStats is the whole-batch context individual standing statistics
// are computed against.
type batchStats struct {
	mean   float64
	stddev float64
	min    float64
	max    float64
}

func batchContext(gradings []domain.Grading) batchStats {
	scores := make([]float64, len(gradings))
	for i, g := range gradings {
		scores[i] = g.Score
	}
	mean, err := domain.Mean(scores)
	if err != nil {
		return batchStats{}
	}
	min, max := scores[0], scores[0]
	for _, s := range scores[1:] {
		if s < min {
			min = s
		}
		if s > max {
			max = s
		}
	}
	return batchStats{
		mean:   mean,
		stddev: domain.StandardDeviation(scores),
		min:    min,
		max:    max,
	}
}

func buildStandingRow(
	g domain.Grading,
	sub domain.Submission,
	userName string,
	stats batchStats,
) domain.StandingRow {
	return domain.StandingRow{
		UserID:          sub.UserID,
		UserName:        userName,
		SubmissionID:    sub.ID,
		SubmissionTitle: sub.Title,
		Score:           g.Score,
		ZValue:          g.ZValue,
		TokenCount:      g.TokenCount,
		Placement:       g.Placement,
		Statistics:      domain.NewStandingStatistics(g, stats.mean, stats.stddev, stats.min, stats.max),
	}
}

func (q *TournamentQueries) standingsFor(
	ctx context.Context,
	tournament domain.Tournament,
	query StandingsQuery,
) ([]domain.StandingRow, error) {
	gradings, err := q.gradings.FindByIDs(ctx, tournament.GradingIDs)
	if err != nil {
		return nil, fmt.Errorf("load gradings: %w", err)
	}
	if len(gradings) == 0 {
		return []domain.StandingRow{}, nil
	}

	// Individual statistics are computed against the whole batch, not
	// the requested page.
	stats := batchContext(gradings)

	sortGradings(gradings, query.SortField, query.SortOrder)
	page := paginate(gradings, query.Skip, query.Limit)
	if len(page) == 0 {
		return []domain.StandingRow{}, nil
	}

	submissionIDs := make([]string, len(page))
	for i, g := range page {
		submissionIDs[i] = g.SubmissionID
	}
	submissions, err := q.submissions.FindByIDs(ctx, submissionIDs)
	if err != nil {
		return nil, fmt.Errorf("resolve submissions: %w", err)
	}

	userIDs := make([]string, 0, len(submissions))
	for _, sub := range submissions {
		userIDs = append(userIDs, sub.UserID)
	}
	names, err := q.users.DisplayNames(ctx, userIDs)
	if err != nil {
		return nil, fmt.Errorf("resolve users: %w", err)
	}

	rows := make([]domain.StandingRow, 0, len(page))
	for _, g := range page {
		sub, ok := submissions[g.SubmissionID]
		if !ok {
			// Should not occur given the tournament invariants.
			q.logger.WarnContext(ctx, "dropping standing for unresolvable submission",
				slog.String("grading_id", g.ID),
				slog.String("submission_id", g.SubmissionID),
			)
			continue
		}
		name, ok := names[sub.UserID]
		if !ok {
			q.logger.WarnContext(ctx, "dropping standing for unresolvable user",
				slog.String("grading_id", g.ID),
				slog.String("user_id", sub.UserID),
			)
			continue
		}
		rows = append(rows, buildStandingRow(g, sub, name, stats))
	}
	return rows, nil
}

// sortGradings stably sorts gradings in place by the given field and
// direction. The field set is the closed domain.SortField enum, so no
// caller-supplied field name ever reaches the store layer.
func sortGradings(gradings []domain.Grading, field domain.SortField, order domain.SortOrder) {
	less := func(a, b domain.Grading) bool {
		switch field {
		case domain.SortByPlacement:
			return a.Placement < b.Placement
		case domain.SortByPercentileRank:
			return a.PercentileRank < b.PercentileRank
		case domain.SortByTokenCount:
			return a.TokenCount < b.TokenCount
		case domain.SortByAvgExecutionTime:
			return a.AvgExecutionTime < b.AvgExecutionTime
		case domain.SortByCreatedAt:
			return a.CreatedAt.Before(b.CreatedAt)
		default:
			return a.Score < b.Score
		}
	}
	sort.SliceStable(gradings, func(i, j int) bool {
		if order == domain.SortAscending {
			return less(gradings[i], gradings[j])
		}
		return less(gradings[j], gradings[i])
	})
}

func paginate(gradings []domain.Grading, skip, limit int) []domain.Grading {
	if skip < 0 {
		skip = 0
	}
	if skip >= len(gradings) {
		return nil
	}
	page := gradings[skip:]
	if limit > 0 && limit < len(page) {
		page = page[:limit]
	}
	return page
}
