package main

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/rhaversen/GaslightBackend/internal/application"
	"github.com/rhaversen/GaslightBackend/internal/domain"
	"github.com/rhaversen/GaslightBackend/internal/ports"
)

// server wires the engine's operations to HTTP routes. Mutating routes
// sit under /api/v1/microservice and require the shared service token;
// read routes are open.
type server struct {
	builder   *application.GradingBuilder
	queries   *application.TournamentQueries
	evaluator *application.SubmissionEvaluator
	logger    *slog.Logger

	authToken   string
	previewSize int
}

func (s *server) routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /api/v1/microservice/tournament", s.authorized(s.handleCreateTournament))
	mux.HandleFunc("POST /api/v1/microservice/submissions/{id}/evaluate", s.authorized(s.handleEvaluateSubmission))

	mux.HandleFunc("GET /api/v1/tournaments", s.handleListTournaments)
	mux.HandleFunc("GET /api/v1/tournaments/{id}/statistics", s.handleTournamentStatistics)
	mux.HandleFunc("GET /api/v1/tournaments/{id}/standings", s.handleStandings)
	mux.HandleFunc("GET /api/v1/tournaments/{id}/standings/{userId}", s.handleUserStanding)

	mux.Handle("GET /metrics", promhttp.Handler())
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	return mux
}

func (s *server) authorized(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.authToken == "" || r.Header.Get("Authorization") != "Bearer "+s.authToken {
			writeError(w, http.StatusUnauthorized, "Unauthorized")
			return
		}
		next(w, r)
	}
}

// createTournamentRequest is the inbound payload from the evaluation
// runner: raw per-submission results plus the run's disqualifications.
type createTournamentRequest struct {
	Gradings                []application.GradingBatchEntry     `json:"gradings"`
	Disqualified            []application.DisqualificationEntry `json:"disqualified"`
	TournamentExecutionTime int64                               `json:"tournamentExecutionTime"`
	GameID                  string                              `json:"gameId"`
}

func (s *server) handleCreateTournament(w http.ResponseWriter, r *http.Request) {
	var req createTournamentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid data")
		return
	}

	tournament, err := s.builder.BuildGradingsAndTournament(
		r.Context(), req.Gradings, req.Disqualified, req.TournamentExecutionTime, req.GameID)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, tournament)
}

func (s *server) handleEvaluateSubmission(w http.ResponseWriter, r *http.Request) {
	outcome, err := s.evaluator.Evaluate(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, outcome)
}

func (s *server) handleListTournaments(w http.ResponseWriter, r *http.Request) {
	filter, err := parseTournamentFilter(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid data")
		return
	}

	summaries, err := s.queries.ListTournaments(r.Context(), filter, s.previewSize)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, summaries)
}

func (s *server) handleTournamentStatistics(w http.ResponseWriter, r *http.Request) {
	stats, err := s.queries.GetTournamentStatistics(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (s *server) handleStandings(w http.ResponseWriter, r *http.Request) {
	query, err := parseStandingsQuery(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid data")
		return
	}

	standings, err := s.queries.GetStandings(r.Context(), r.PathValue("id"), query)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, standings)
}

func (s *server) handleUserStanding(w http.ResponseWriter, r *http.Request) {
	standing, err := s.queries.GetStanding(r.Context(), r.PathValue("id"), r.PathValue("userId"))
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	if standing == nil {
		writeError(w, http.StatusNotFound, "Not found")
		return
	}
	writeJSON(w, http.StatusOK, standing)
}

func parseTournamentFilter(r *http.Request) (ports.TournamentFilter, error) {
	var filter ports.TournamentFilter
	q := r.URL.Query()

	if v := q.Get("fromDate"); v != "" {
		from, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return filter, err
		}
		filter.From = &from
	}
	if v := q.Get("toDate"); v != "" {
		to, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return filter, err
		}
		filter.To = &to
	}
	if v := q.Get("limit"); v != "" {
		limit, err := strconv.ParseInt(v, 10, 64)
		if err != nil || limit < 0 {
			return filter, errors.New("invalid limit")
		}
		filter.Limit = limit
	}
	if v := q.Get("skip"); v != "" {
		skip, err := strconv.ParseInt(v, 10, 64)
		if err != nil || skip < 0 {
			return filter, errors.New("invalid skip")
		}
		filter.Skip = skip
	}
	return filter, nil
}

func parseStandingsQuery(r *http.Request) (application.StandingsQuery, error) {
	var query application.StandingsQuery
	q := r.URL.Query()

	field, err := domain.ParseSortField(q.Get("sortFieldName"))
	if err != nil {
		return query, err
	}
	order, err := domain.ParseSortOrder(q.Get("sortDirection"))
	if err != nil {
		return query, err
	}
	query.SortField = field
	query.SortOrder = order

	if v := q.Get("limit"); v != "" {
		limit, err := strconv.Atoi(v)
		if err != nil || limit < 0 {
			return query, errors.New("invalid limit")
		}
		query.Limit = limit
	}
	if v := q.Get("skip"); v != "" {
		skip, err := strconv.Atoi(v)
		if err != nil || skip < 0 {
			return query, errors.New("invalid skip")
		}
		query.Skip = skip
	}
	return query, nil
}

// writeDomainError maps engine errors to HTTP responses. Malformed or
// inconsistent inbound data yields a deliberately generic message so
// callers cannot probe which referenced records exist.
func (s *server) writeDomainError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		validationErr *domain.ValidationError
		integrityErr  *domain.IntegrityError
	)
	switch {
	case errors.As(err, &validationErr), errors.As(err, &integrityErr):
		writeError(w, http.StatusBadRequest, "Invalid data")
	case errors.Is(err, ports.ErrNotFound):
		writeError(w, http.StatusNotFound, "Not found")
	case errors.Is(err, domain.ErrEmptyScores):
		writeError(w, http.StatusUnprocessableEntity, "Tournament has no scores")
	default:
		s.logger.ErrorContext(r.Context(), "request failed",
			slog.String("path", r.URL.Path),
			slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "Internal server error")
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
