package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/prepstack/practice-engine/internal/config"
	"github.com/prepstack/practice-engine/internal/model"
	"github.com/prepstack/practice-engine/internal/progress"
	"github.com/prepstack/practice-engine/internal/store"
	"github.com/prepstack/practice-engine/internal/wire"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// ErrInvariantViolation means a stored session failed a consistency check
// after a mutation. Validation should make this unreachable; if it fires,
// the engine fails closed instead of serving a corrupted record.
var ErrInvariantViolation = errors.New("session invariant violation")

// ExamProvider supplies read-only exam definitions and answer keys.
type ExamProvider interface {
	GetBySlug(ctx context.Context, slug string) (*model.Exam, error)
	AnswerKey(ctx context.Context, slug string) (model.AnswerKey, error)
}

// SessionService is the session controller: it validates operations,
// applies them against the store under its per-session serialization, and
// returns the refreshed full session view.
type SessionService struct {
	sessions store.SessionStore
	exams    ExamProvider
	rule     progress.CorrectnessRule
	rdb      *redis.Client
	log      zerolog.Logger
}

// NewSessionService creates a new SessionService. rdb may be nil, which
// disables event publication (used by tests).
func NewSessionService(
	sessions store.SessionStore,
	exams ExamProvider,
	rdb *redis.Client,
	log zerolog.Logger,
) *SessionService {
	return &SessionService{
		sessions: sessions,
		exams:    exams,
		rule:     progress.AnyOverlap,
		rdb:      rdb,
		log:      log.With().Str("component", "session_service").Logger(),
	}
}

// CreateSession starts a new in-progress session for an exam, seeding one
// empty progress record per question and the timer from the exam duration.
func (s *SessionService) CreateSession(ctx context.Context, examSlug, ownerID string) (*wire.SessionView, error) {
	exam, err := s.exams.GetBySlug(ctx, examSlug)
	if err != nil {
		return nil, err
	}

	sess := model.NewPracticeSession(exam, ownerID)
	if err := s.sessions.CreateSession(ctx, sess); err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}

	s.log.Info().
		Str("session_id", sess.ID.String()).
		Str("exam_slug", examSlug).
		Int("questions", len(sess.Questions)).
		Msg("Session created")

	return s.loadView(ctx, sess.ID)
}

// GetSession returns the current session view with derived fields
// recomputed.
func (s *SessionService) GetSession(ctx context.Context, id uuid.UUID) (*wire.SessionView, error) {
	return s.loadView(ctx, id)
}

// GetSummary returns aggregate statistics only, the rendering source for
// completed-session summaries.
func (s *SessionService) GetSummary(ctx context.Context, id uuid.UUID) (*progress.Summary, error) {
	sess, err := s.sessions.GetSession(ctx, id)
	if err != nil {
		return nil, err
	}
	key := s.answerKey(ctx, sess.ExamSlug)
	sum := progress.Summarize(sess, key, s.rule)
	return &sum, nil
}

// ApplyOperation validates and applies one mutation, then returns the
// refreshed full session view. Store sentinels (ErrNotFound,
// ErrSessionCompleted, ErrUnknownQuestion) pass through for the handler
// to map; anything else is a persistence failure.
func (s *SessionService) ApplyOperation(ctx context.Context, id uuid.UUID, op model.Operation) (*wire.SessionView, error) {
	sess, err := s.sessions.GetSession(ctx, id)
	if err != nil {
		return nil, err
	}
	// Reject before issuing a write. The store re-checks under its lock,
	// so a concurrent completion cannot slip a write past this.
	if sess.Status == model.SessionStatusCompleted {
		return nil, store.ErrSessionCompleted
	}

	switch o := op.(type) {
	case model.AdvanceOp:
		err = s.sessions.AdvanceQuestion(ctx, id, clampIndex(o.CurrentQuestionIndex, len(sess.Questions)))
	case model.ToggleFlagOp:
		if _, ok := sess.QuestionByID(o.QuestionID); !ok {
			return nil, store.ErrUnknownQuestion
		}
		err = s.sessions.ToggleFlag(ctx, id, o.QuestionID, o.Flagged)
	case model.ToggleBookmarkOp:
		if _, ok := sess.QuestionByID(o.QuestionID); !ok {
			return nil, store.ErrUnknownQuestion
		}
		err = s.sessions.ToggleBookmark(ctx, id, o.QuestionID, o.Bookmarked)
	case model.UpdateTimerOp:
		seconds := o.RemainingSeconds
		if seconds < 0 {
			seconds = 0
		}
		err = s.sessions.UpdateRemainingSeconds(ctx, id, seconds)
	case model.RecordAnswerOp:
		if _, ok := sess.QuestionByID(o.QuestionID); !ok {
			return nil, store.ErrUnknownQuestion
		}
		err = s.sessions.RecordQuestionProgress(ctx, id, o.QuestionID, o.SelectedAnswers, o.TimeSpentSeconds)
	case model.CompleteOp:
		err = s.sessions.CompleteSession(ctx, id)
	default:
		return nil, fmt.Errorf("unsupported operation %q", op.Tag())
	}
	if err != nil {
		return nil, err
	}

	// Re-read after the write: a concurrent delete is conceivable, and the
	// response must reflect the stored state, not the request.
	view, err := s.loadView(ctx, id)
	if err != nil {
		return nil, err
	}

	s.publishMutation(ctx, id, op.Tag(), view)
	return view, nil
}

// loadView fetches the session and maps it to the external contract with
// derived fields recomputed against the exam's answer key.
func (s *SessionService) loadView(ctx context.Context, id uuid.UUID) (*wire.SessionView, error) {
	sess, err := s.sessions.GetSession(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := verifyInvariants(sess); err != nil {
		s.log.Error().Err(err).Str("session_id", id.String()).Msg("Invariant check failed")
		return nil, ErrInvariantViolation
	}
	return wire.NewSessionView(sess, s.answerKey(ctx, sess.ExamSlug), s.rule), nil
}

// answerKey fetches the exam's answer key. A missing or unreachable exam
// definition degrades to null correctness instead of failing the read.
func (s *SessionService) answerKey(ctx context.Context, examSlug string) model.AnswerKey {
	key, err := s.exams.AnswerKey(ctx, examSlug)
	if err != nil {
		s.log.Warn().Err(err).Str("exam_slug", examSlug).Msg("Answer key unavailable")
		return nil
	}
	return key
}

// sessionEvent is the audit record queued for the event worker on every
// accepted mutation.
type sessionEvent struct {
	SessionID  string             `json:"session_id"`
	Operation  model.OperationTag `json:"operation"`
	OccurredAt time.Time          `json:"occurred_at"`
}

// publishMutation queues the audit event and fans the refreshed view out
// to stream subscribers. Both are best-effort: the authoritative write
// already committed, so a Redis hiccup must not fail the request.
func (s *SessionService) publishMutation(ctx context.Context, id uuid.UUID, tag model.OperationTag, view *wire.SessionView) {
	if s.rdb == nil {
		return
	}

	event, err := json.Marshal(sessionEvent{
		SessionID:  id.String(),
		Operation:  tag,
		OccurredAt: time.Now().UTC(),
	})
	if err == nil {
		if err := s.rdb.RPush(ctx, config.WorkerKey.PersistSessionEventsQueue, event).Err(); err != nil {
			s.log.Warn().Err(err).Str("session_id", id.String()).Msg("Failed to queue session event")
		}
	}

	if raw, err := json.Marshal(view); err == nil {
		if err := s.rdb.Publish(ctx, config.CacheKey.SessionEventChannel(id.String()), raw).Err(); err != nil {
			s.log.Warn().Err(err).Str("session_id", id.String()).Msg("Failed to publish session update")
		}
	}
}

// clampIndex bounds an advance target to [0, total). The upper bound is
// clamped too: a stored index past the question list would be
// indistinguishable from corruption.
func clampIndex(index, total int) int {
	if index < 0 {
		return 0
	}
	if total > 0 && index >= total {
		return total - 1
	}
	if total == 0 {
		return 0
	}
	return index
}

// verifyInvariants checks the stored record's consistency after reads.
func verifyInvariants(s *model.PracticeSession) error {
	if len(s.Questions) > 0 && (s.CurrentQuestionIndex < 0 || s.CurrentQuestionIndex >= len(s.Questions)) {
		return fmt.Errorf("current question index %d out of range [0, %d)", s.CurrentQuestionIndex, len(s.Questions))
	}
	if s.RemainingSeconds < 0 {
		return fmt.Errorf("negative remaining seconds %d", s.RemainingSeconds)
	}
	for i := range s.Questions {
		if t := s.Questions[i].TimeSpentSeconds; t != nil && *t < 0 {
			return fmt.Errorf("negative time spent on question %s", s.Questions[i].QuestionID)
		}
	}
	return nil
}
