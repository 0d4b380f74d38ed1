package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prepstack/practice-engine/internal/model"
)

// PostgresStore implements SessionStore on pgx. Per-session serialization
// comes from taking the session row lock (SELECT ... FOR UPDATE) before
// any child-row write: concurrent mutations of one session queue on the
// lock, so neither write is lost, while different sessions proceed fully
// in parallel.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a PostgresStore on the given pool.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// GetSession loads the session row and its question progress rows in
// position order.
func (p *PostgresStore) GetSession(ctx context.Context, id uuid.UUID) (*model.PracticeSession, error) {
	s := &model.PracticeSession{}
	err := p.pool.QueryRow(ctx,
		`SELECT id, exam_slug, owner_id, status, current_question_index, remaining_seconds, created_at, updated_at
		 FROM practice_sessions
		 WHERE id = $1`, id,
	).Scan(&s.ID, &s.ExamSlug, &s.OwnerID, &s.Status, &s.CurrentQuestionIndex, &s.RemainingSeconds, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get session: %w", err)
	}

	rows, err := p.pool.Query(ctx,
		`SELECT question_id, position, selected_answers, is_submitted, time_spent_seconds, flagged, bookmarked
		 FROM session_questions
		 WHERE session_id = $1
		 ORDER BY position ASC`, id,
	)
	if err != nil {
		return nil, fmt.Errorf("get session questions: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var q model.QuestionProgress
		if err := rows.Scan(&q.QuestionID, &q.Position, &q.SelectedAnswers, &q.IsSubmitted, &q.TimeSpentSeconds, &q.Flagged, &q.Bookmarked); err != nil {
			return nil, fmt.Errorf("scan session question: %w", err)
		}
		if q.SelectedAnswers == nil {
			q.SelectedAnswers = []int{}
		}
		s.Questions = append(s.Questions, q)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate session questions: %w", err)
	}

	return s, nil
}

// CreateSession inserts the session row and one progress row per question
// in a single transaction.
func (p *PostgresStore) CreateSession(ctx context.Context, s *model.PracticeSession) error {
	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx,
		`INSERT INTO practice_sessions (id, exam_slug, owner_id, status, current_question_index, remaining_seconds, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		s.ID, s.ExamSlug, s.OwnerID, s.Status, s.CurrentQuestionIndex, s.RemainingSeconds, s.CreatedAt, s.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert session: %w", err)
	}

	for i := range s.Questions {
		q := &s.Questions[i]
		_, err = tx.Exec(ctx,
			`INSERT INTO session_questions (session_id, question_id, position, selected_answers, is_submitted, time_spent_seconds, flagged, bookmarked)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
			s.ID, q.QuestionID, q.Position, q.SelectedAnswers, q.IsSubmitted, q.TimeSpentSeconds, q.Flagged, q.Bookmarked,
		)
		if err != nil {
			return fmt.Errorf("insert session question: %w", err)
		}
	}

	return tx.Commit(ctx)
}

func (p *PostgresStore) AdvanceQuestion(ctx context.Context, id uuid.UUID, index int) error {
	return p.mutate(ctx, id, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx,
			`UPDATE practice_sessions SET current_question_index = $2 WHERE id = $1`, id, index)
		return err
	})
}

func (p *PostgresStore) ToggleFlag(ctx context.Context, id uuid.UUID, questionID string, flagged bool) error {
	return p.mutate(ctx, id, func(tx pgx.Tx) error {
		return p.updateQuestion(ctx, tx,
			`UPDATE session_questions SET flagged = $3 WHERE session_id = $1 AND question_id = $2`,
			id, questionID, flagged)
	})
}

func (p *PostgresStore) ToggleBookmark(ctx context.Context, id uuid.UUID, questionID string, bookmarked bool) error {
	return p.mutate(ctx, id, func(tx pgx.Tx) error {
		return p.updateQuestion(ctx, tx,
			`UPDATE session_questions SET bookmarked = $3 WHERE session_id = $1 AND question_id = $2`,
			id, questionID, bookmarked)
	})
}

func (p *PostgresStore) UpdateRemainingSeconds(ctx context.Context, id uuid.UUID, seconds int) error {
	return p.mutate(ctx, id, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx,
			`UPDATE practice_sessions SET remaining_seconds = $2 WHERE id = $1`, id, seconds)
		return err
	})
}

func (p *PostgresStore) RecordQuestionProgress(ctx context.Context, id uuid.UUID, questionID string, selectedAnswers []int, timeSpentSeconds *int) error {
	return p.mutate(ctx, id, func(tx pgx.Tx) error {
		return p.updateQuestion(ctx, tx,
			`UPDATE session_questions
			 SET selected_answers = $3, is_submitted = TRUE, time_spent_seconds = $4
			 WHERE session_id = $1 AND question_id = $2`,
			id, questionID, selectedAnswers, timeSpentSeconds)
	})
}

func (p *PostgresStore) CompleteSession(ctx context.Context, id uuid.UUID) error {
	return p.mutate(ctx, id, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx,
			`UPDATE practice_sessions SET status = $2 WHERE id = $1`, id, model.SessionStatusCompleted)
		return err
	})
}

// mutate runs fn inside a transaction that holds the session row lock.
// The status check runs under the lock, so a session completed by a
// concurrent writer rejects this mutation instead of corrupting a
// historical record. Rollback on any error means no partial writes.
func (p *PostgresStore) mutate(ctx context.Context, id uuid.UUID, fn func(tx pgx.Tx) error) error {
	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	var status model.SessionStatus
	err = tx.QueryRow(ctx,
		`SELECT status FROM practice_sessions WHERE id = $1 FOR UPDATE`, id,
	).Scan(&status)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		return fmt.Errorf("lock session: %w", err)
	}
	if status == model.SessionStatusCompleted {
		return ErrSessionCompleted
	}

	if err := fn(tx); err != nil {
		return err
	}

	if _, err := tx.Exec(ctx,
		`UPDATE practice_sessions SET updated_at = NOW() WHERE id = $1`, id); err != nil {
		return fmt.Errorf("touch session: %w", err)
	}

	return tx.Commit(ctx)
}

// updateQuestion executes a per-question UPDATE and translates a zero row
// count into ErrUnknownQuestion.
func (p *PostgresStore) updateQuestion(ctx context.Context, tx pgx.Tx, sql string, args ...any) error {
	tag, err := tx.Exec(ctx, sql, args...)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrUnknownQuestion
	}
	return nil
}
