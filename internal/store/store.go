// Package store defines the persistence contract for practice sessions
// and provides the Postgres and in-memory implementations.
//
// Every mutating method is atomic per call and serialized per session:
// two concurrent writes against the same session never race, they queue.
// Cross-session operations carry no ordering guarantee.
package store

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/prepstack/practice-engine/internal/model"
)

var (
	// ErrNotFound means the session ID resolves to no stored session.
	ErrNotFound = errors.New("session not found")
	// ErrSessionCompleted means a mutation hit a terminal session.
	// A completed session is a historical record; writes are rejected,
	// not ignored.
	ErrSessionCompleted = errors.New("session already completed")
	// ErrUnknownQuestion means the question ID does not belong to the
	// session's exam.
	ErrUnknownQuestion = errors.New("question not part of session")
)

// SessionStore is the durable keyed state for practice sessions.
//
// Mutating methods re-check session status under the per-session lock, so
// the terminal-lock invariant holds even against a racing completion. All
// writes are overwrites, which keeps transport-level retries safe.
type SessionStore interface {
	CreateSession(ctx context.Context, s *model.PracticeSession) error
	GetSession(ctx context.Context, id uuid.UUID) (*model.PracticeSession, error)

	AdvanceQuestion(ctx context.Context, id uuid.UUID, index int) error
	ToggleFlag(ctx context.Context, id uuid.UUID, questionID string, flagged bool) error
	ToggleBookmark(ctx context.Context, id uuid.UUID, questionID string, bookmarked bool) error
	UpdateRemainingSeconds(ctx context.Context, id uuid.UUID, seconds int) error
	RecordQuestionProgress(ctx context.Context, id uuid.UUID, questionID string, selectedAnswers []int, timeSpentSeconds *int) error
	CompleteSession(ctx context.Context, id uuid.UUID) error
}
