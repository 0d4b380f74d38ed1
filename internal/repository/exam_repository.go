package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prepstack/practice-engine/internal/config"
	"github.com/prepstack/practice-engine/internal/model"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// ErrExamNotFound means the slug resolves to no exam definition.
var ErrExamNotFound = errors.New("exam not found")

// ExamRepository provides read-only exam definitions (question order and
// answer key) owned by the exam-administration service. Definitions are
// cached in Redis with a PostgreSQL fallback that self-heals the cache.
type ExamRepository struct {
	pool *pgxpool.Pool
	rdb  *redis.Client
	log  zerolog.Logger
}

// NewExamRepository creates a new ExamRepository.
func NewExamRepository(pool *pgxpool.Pool, rdb *redis.Client, log zerolog.Logger) *ExamRepository {
	return &ExamRepository{
		pool: pool,
		rdb:  rdb,
		log:  log.With().Str("component", "exam_repository").Logger(),
	}
}

// GetBySlug returns the exam definition for a slug, preferring the Redis
// cache. A cache miss falls back to PostgreSQL and repopulates the cache
// so the next read is fast.
func (r *ExamRepository) GetBySlug(ctx context.Context, slug string) (*model.Exam, error) {
	cacheKey := config.CacheKey.ExamDefinitionKey(slug)

	if raw, err := r.rdb.Get(ctx, cacheKey).Result(); err == nil {
		var exam model.Exam
		if err := json.Unmarshal([]byte(raw), &exam); err == nil {
			return &exam, nil
		}
		// Corrupt cache entry. Drop it and reload from the database.
		r.log.Warn().Str("exam_slug", slug).Msg("Corrupt exam definition in cache, reloading")
		_ = r.rdb.Del(ctx, cacheKey)
	} else if err != redis.Nil {
		// Real Redis error. The database still works, so keep serving.
		r.log.Warn().Err(err).Str("exam_slug", slug).Msg("Redis error reading exam definition")
	}

	exam, err := r.loadFromDB(ctx, slug)
	if err != nil {
		return nil, err
	}

	// Self-heal: repopulate the cache for the next reader.
	if raw, err := json.Marshal(exam); err == nil {
		if err := r.rdb.Set(ctx, cacheKey, raw, 0).Err(); err != nil {
			r.log.Warn().Err(err).Str("exam_slug", slug).Msg("Failed to cache exam definition")
		}
	}

	return exam, nil
}

// AnswerKey returns the accepted-choice set per question for an exam.
func (r *ExamRepository) AnswerKey(ctx context.Context, slug string) (model.AnswerKey, error) {
	exam, err := r.GetBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}
	return exam.Key(), nil
}

func (r *ExamRepository) loadFromDB(ctx context.Context, slug string) (*model.Exam, error) {
	exam := &model.Exam{}
	err := r.pool.QueryRow(ctx,
		`SELECT slug, title, duration_minutes FROM exams WHERE slug = $1`, slug,
	).Scan(&exam.Slug, &exam.Title, &exam.DurationMinutes)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrExamNotFound
		}
		return nil, fmt.Errorf("get exam: %w", err)
	}

	rows, err := r.pool.Query(ctx,
		`SELECT question_id, position, correct_choices
		 FROM exam_questions
		 WHERE exam_slug = $1
		 ORDER BY position ASC`, slug,
	)
	if err != nil {
		return nil, fmt.Errorf("get exam questions: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var q model.ExamQuestion
		if err := rows.Scan(&q.ID, &q.Position, &q.CorrectChoices); err != nil {
			return nil, fmt.Errorf("scan exam question: %w", err)
		}
		exam.Questions = append(exam.Questions, q)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate exam questions: %w", err)
	}

	return exam, nil
}
