package repository

import (
	"context"
	"sync"

	"github.com/okian/mingle/internal/domain/model"
)

// MemoryStore is an in-process Backend. It is used in development and tests.
type MemoryStore struct {
	mu          sync.RWMutex
	submissions map[string]map[string]model.SurveySubmission // eventID -> userID
	profiles    map[string][]string
	grids       map[string]map[string]model.MatchGrid // userID -> eventID
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		submissions: make(map[string]map[string]model.SurveySubmission),
		profiles:    make(map[string][]string),
		grids:       make(map[string]map[string]model.MatchGrid),
	}
}

// PutSubmission implements SubmissionStore.
func (m *MemoryStore) PutSubmission(ctx context.Context, s model.SurveySubmission) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	byUser, ok := m.submissions[s.EventID]
	if !ok {
		byUser = make(map[string]model.SurveySubmission)
		m.submissions[s.EventID] = byUser
	}
	byUser[s.UserID] = cloneSubmission(s)
	return nil
}

// ListByEvent implements SubmissionStore.
func (m *MemoryStore) ListByEvent(ctx context.Context, eventID, excludingUserID string) ([]model.SurveySubmission, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	byUser := m.submissions[eventID]
	out := make([]model.SurveySubmission, 0, len(byUser))
	for userID, s := range byUser {
		if userID == excludingUserID {
			continue
		}
		out = append(out, cloneSubmission(s))
	}
	m.mu.RUnlock()

	sortSubmissions(out)
	return out, nil
}

// GetUserInterests implements InterestLookup.
func (m *MemoryStore) GetUserInterests(ctx context.Context, userID string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return cloneStrings(m.profiles[userID]), nil
}

// PutInterests implements ProfileStore.
func (m *MemoryStore) PutInterests(ctx context.Context, userID string, interests []string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.profiles[userID] = cloneStrings(interests)
	return nil
}

// PutGrid implements GridStore.
func (m *MemoryStore) PutGrid(ctx context.Context, g model.MatchGrid) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	byEvent, ok := m.grids[g.UserID]
	if !ok {
		byEvent = make(map[string]model.MatchGrid)
		m.grids[g.UserID] = byEvent
	}
	g.Matches = append([]model.Match{}, g.Matches...)
	byEvent[g.EventID] = g
	return nil
}

// GetGrid implements GridStore.
func (m *MemoryStore) GetGrid(ctx context.Context, userID, eventID string) (model.MatchGrid, error) {
	if err := ctx.Err(); err != nil {
		return model.MatchGrid{}, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	g, ok := m.grids[userID][eventID]
	if !ok {
		return model.MatchGrid{}, ErrNotFound
	}
	g.Matches = append([]model.Match{}, g.Matches...)
	return g, nil
}

// Count returns the number of stored submissions.
func (m *MemoryStore) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	n := 0
	for _, byUser := range m.submissions {
		n += len(byUser)
	}
	return n
}

// Close implements Backend.
func (m *MemoryStore) Close() error { return nil }

func cloneSubmission(s model.SurveySubmission) model.SurveySubmission {
	answers := make([]model.Answer, len(s.Answers))
	for i, a := range s.Answers {
		if a.Answer.Multi != nil {
			a.Answer.Multi = cloneStrings(a.Answer.Multi)
		}
		answers[i] = a
	}
	s.Answers = answers
	return s
}
