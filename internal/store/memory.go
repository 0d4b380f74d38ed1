package store

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/prepstack/practice-engine/internal/model"
)

// MemoryStore is the in-memory reference implementation of SessionStore.
// Single-writer semantics come from one mutex per session entry; the
// outer map is guarded separately so unrelated sessions never contend.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[uuid.UUID]*memoryEntry
}

type memoryEntry struct {
	mu      sync.Mutex
	session *model.PracticeSession
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sessions: make(map[uuid.UUID]*memoryEntry)}
}

// CreateSession stores a deep copy of the session.
func (m *MemoryStore) CreateSession(_ context.Context, s *model.PracticeSession) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[s.ID] = &memoryEntry{session: s.Clone()}
	return nil
}

// GetSession returns a deep copy so callers cannot mutate stored state.
func (m *MemoryStore) GetSession(_ context.Context, id uuid.UUID) (*model.PracticeSession, error) {
	m.mu.RLock()
	entry, ok := m.sessions[id]
	m.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()
	return entry.session.Clone(), nil
}

func (m *MemoryStore) AdvanceQuestion(_ context.Context, id uuid.UUID, index int) error {
	return m.mutate(id, func(s *model.PracticeSession) error {
		s.CurrentQuestionIndex = index
		return nil
	})
}

func (m *MemoryStore) ToggleFlag(_ context.Context, id uuid.UUID, questionID string, flagged bool) error {
	return m.mutate(id, func(s *model.PracticeSession) error {
		q, ok := s.QuestionByID(questionID)
		if !ok {
			return ErrUnknownQuestion
		}
		q.Flagged = flagged
		return nil
	})
}

func (m *MemoryStore) ToggleBookmark(_ context.Context, id uuid.UUID, questionID string, bookmarked bool) error {
	return m.mutate(id, func(s *model.PracticeSession) error {
		q, ok := s.QuestionByID(questionID)
		if !ok {
			return ErrUnknownQuestion
		}
		q.Bookmarked = bookmarked
		return nil
	})
}

func (m *MemoryStore) UpdateRemainingSeconds(_ context.Context, id uuid.UUID, seconds int) error {
	return m.mutate(id, func(s *model.PracticeSession) error {
		s.RemainingSeconds = seconds
		return nil
	})
}

func (m *MemoryStore) RecordQuestionProgress(_ context.Context, id uuid.UUID, questionID string, selectedAnswers []int, timeSpentSeconds *int) error {
	return m.mutate(id, func(s *model.PracticeSession) error {
		q, ok := s.QuestionByID(questionID)
		if !ok {
			return ErrUnknownQuestion
		}
		q.SelectedAnswers = append([]int(nil), selectedAnswers...)
		q.IsSubmitted = true
		if timeSpentSeconds != nil {
			v := *timeSpentSeconds
			q.TimeSpentSeconds = &v
		} else {
			q.TimeSpentSeconds = nil
		}
		return nil
	})
}

func (m *MemoryStore) CompleteSession(_ context.Context, id uuid.UUID) error {
	return m.mutate(id, func(s *model.PracticeSession) error {
		s.Status = model.SessionStatusCompleted
		return nil
	})
}

// mutate applies fn under the session's writer lock. The status check and
// updated_at refresh happen inside the lock so a rejected call leaves the
// record untouched.
func (m *MemoryStore) mutate(id uuid.UUID, fn func(*model.PracticeSession) error) error {
	m.mu.RLock()
	entry, ok := m.sessions[id]
	m.mu.RUnlock()
	if !ok {
		return ErrNotFound
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()

	if entry.session.Status == model.SessionStatusCompleted {
		return ErrSessionCompleted
	}
	if err := fn(entry.session); err != nil {
		return err
	}
	entry.session.UpdatedAt = time.Now()
	return nil
}
