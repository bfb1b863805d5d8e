// Package storage provides the durable-store adapters for the engine:
// a MongoDB implementation matching the platform's document store and
// an in-memory implementation for tests and local runs.
package storage

import (
	"context"
	"sort"
	"sync"

	"github.com/rhaversen/GaslightBackend/internal/domain"
	"github.com/rhaversen/GaslightBackend/internal/ports"
)

// MemoryStore is a mutex-guarded in-memory implementation of every
// store port. Writes within one call are atomic under the lock, so the
// grading batch plus tournament unit of work cannot be observed
// half-written.
type MemoryStore struct {
	mu          sync.RWMutex
	gradings    map[string]domain.Grading
	tournaments map[string]domain.Tournament
	submissions map[string]domain.Submission
	users       map[string]domain.User
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		gradings:    make(map[string]domain.Grading),
		tournaments: make(map[string]domain.Tournament),
		submissions: make(map[string]domain.Submission),
		users:       make(map[string]domain.User),
	}
}

// Gradings returns the grading-store view.
func (m *MemoryStore) Gradings() ports.GradingStore { return (*memoryGradings)(m) }

// Tournaments returns the tournament-store view.
func (m *MemoryStore) Tournaments() ports.TournamentStore { return (*memoryTournaments)(m) }

// Submissions returns the submission-store view.
func (m *MemoryStore) Submissions() ports.SubmissionStore { return (*memorySubmissions)(m) }

// Users returns the user-lookup view.
func (m *MemoryStore) Users() ports.UserReader { return (*memoryUsers)(m) }

// PutSubmission seeds or replaces a submission record.
func (m *MemoryStore) PutSubmission(sub domain.Submission) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.submissions[sub.ID] = sub
}

// PutUser seeds or replaces a user record.
func (m *MemoryStore) PutUser(user domain.User) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users[user.ID] = user
}

// DeleteSubmission removes a submission and cascades deletion of its
// gradings.
func (m *MemoryStore) DeleteSubmission(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.submissions, id)
	for gid, g := range m.gradings {
		if g.SubmissionID == id {
			delete(m.gradings, gid)
		}
	}
}

type memoryGradings MemoryStore

func (m *memoryGradings) InsertMany(_ context.Context, gradings []domain.Grading) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, g := range gradings {
		m.gradings[g.ID] = g
	}
	return nil
}

func (m *memoryGradings) FindByIDs(_ context.Context, ids []string) ([]domain.Grading, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	found := make([]domain.Grading, 0, len(ids))
	for _, id := range ids {
		if g, ok := m.gradings[id]; ok {
			found = append(found, g)
		}
	}
	return found, nil
}

func (m *memoryGradings) DeleteByIDs(_ context.Context, ids []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, id := range ids {
		delete(m.gradings, id)
	}
	return nil
}

func (m *memoryGradings) DeleteBySubmission(_ context.Context, submissionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, g := range m.gradings {
		if g.SubmissionID == submissionID {
			delete(m.gradings, id)
		}
	}
	return nil
}

type memoryTournaments MemoryStore

func (m *memoryTournaments) Insert(_ context.Context, tournament domain.Tournament) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tournaments[tournament.ID] = tournament
	return nil
}

func (m *memoryTournaments) FindByID(_ context.Context, id string) (domain.Tournament, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	tournament, ok := m.tournaments[id]
	if !ok {
		return domain.Tournament{}, ports.ErrNotFound
	}
	return tournament, nil
}

func (m *memoryTournaments) List(_ context.Context, filter ports.TournamentFilter) ([]domain.Tournament, error) {
	m.mu.RLock()
	matched := make([]domain.Tournament, 0, len(m.tournaments))
	for _, t := range m.tournaments {
		if filter.From != nil && t.CreatedAt.Before(*filter.From) {
			continue
		}
		if filter.To != nil && t.CreatedAt.After(*filter.To) {
			continue
		}
		matched = append(matched, t)
	}
	m.mu.RUnlock()

	sort.Slice(matched, func(i, j int) bool {
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})

	skip := int(filter.Skip)
	if skip >= len(matched) {
		return []domain.Tournament{}, nil
	}
	matched = matched[skip:]
	if filter.Limit > 0 && int(filter.Limit) < len(matched) {
		matched = matched[:filter.Limit]
	}
	return matched, nil
}

type memorySubmissions MemoryStore

func (m *memorySubmissions) FindByID(_ context.Context, id string) (domain.Submission, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	sub, ok := m.submissions[id]
	if !ok {
		return domain.Submission{}, ports.ErrNotFound
	}
	return sub, nil
}

func (m *memorySubmissions) FindByIDs(_ context.Context, ids []string) (map[string]domain.Submission, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	found := make(map[string]domain.Submission, len(ids))
	for _, id := range ids {
		if sub, ok := m.submissions[id]; ok {
			found[id] = sub
		}
	}
	return found, nil
}

func (m *memorySubmissions) ListEligible(_ context.Context) ([]domain.Submission, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	eligible := make([]domain.Submission, 0)
	for _, sub := range m.submissions {
		if sub.Eligible() {
			eligible = append(eligible, sub)
		}
	}
	sort.Slice(eligible, func(i, j int) bool { return eligible[i].ID < eligible[j].ID })
	return eligible, nil
}

func (m *memorySubmissions) ListOthers(_ context.Context, excludeID string) ([]domain.Submission, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	others := make([]domain.Submission, 0, len(m.submissions))
	for _, sub := range m.submissions {
		if sub.ID != excludeID {
			others = append(others, sub)
		}
	}
	sort.Slice(others, func(i, j int) bool { return others[i].ID < others[j].ID })
	return others, nil
}

func (m *memorySubmissions) SetEvaluation(
	_ context.Context,
	id string,
	record domain.EvaluationRecord,
	active bool,
) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	sub, ok := m.submissions[id]
	if !ok {
		return ports.ErrNotFound
	}
	sub.Evaluation = record
	sub.Active = active
	m.submissions[id] = sub
	return nil
}

type memoryUsers MemoryStore

func (m *memoryUsers) DisplayNames(_ context.Context, ids []string) (map[string]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	names := make(map[string]string, len(ids))
	for _, id := range ids {
		if user, ok := m.users[id]; ok {
			names[id] = user.DisplayName
		}
	}
	return names, nil
}

// Compile-time verification that the views satisfy the ports.
var (
	_ ports.GradingStore    = (*memoryGradings)(nil)
	_ ports.TournamentStore = (*memoryTournaments)(nil)
	_ ports.SubmissionStore = (*memorySubmissions)(nil)
	_ ports.UserReader      = (*memoryUsers)(nil)
)
