package worker

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prepstack/practice-engine/internal/config"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// SessionEventWorker consumes persist_session_events_queue and appends
// accepted-mutation audit records to PostgreSQL. The audit trail is
// write-behind; the authoritative session write commits synchronously in
// the store before the event is ever queued.
type SessionEventWorker struct {
	pool *pgxpool.Pool
	rdb  *redis.Client
	log  zerolog.Logger
}

// NewSessionEventWorker creates a new SessionEventWorker.
func NewSessionEventWorker(pool *pgxpool.Pool, rdb *redis.Client, log zerolog.Logger) *SessionEventWorker {
	return &SessionEventWorker{
		pool: pool,
		rdb:  rdb,
		log:  log.With().Str("component", "session_event_worker").Logger(),
	}
}

type eventPayload struct {
	SessionID  string    `json:"session_id"`
	Operation  string    `json:"operation"`
	OccurredAt time.Time `json:"occurred_at"`
}

// Start begins the infinite worker loop. Call in a goroutine.
func (w *SessionEventWorker) Start(ctx context.Context) {
	w.log.Info().Msg("Worker started")

	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("Worker stopping...")
			// Drain remaining items before exit.
			w.drain(context.Background())
			w.log.Info().Msg("Worker stopped")
			return
		default:
			w.processNext(ctx)
		}
	}
}

func (w *SessionEventWorker) processNext(ctx context.Context) {
	// BLPop blocks until an item is available or timeout (1 second).
	result, err := w.rdb.BLPop(ctx, time.Second, config.WorkerKey.PersistSessionEventsQueue).Result()
	if err != nil {
		if err != redis.Nil && ctx.Err() == nil {
			w.log.Error().Err(err).Msg("BLPop error")
		}
		return
	}

	if len(result) < 2 {
		return
	}

	var payload eventPayload
	if err := json.Unmarshal([]byte(result[1]), &payload); err != nil {
		w.log.Error().Err(err).Msg("Unmarshal error")
		return
	}

	if err := w.persistEvent(ctx, &payload); err != nil {
		w.log.Error().Err(err).
			Str("session_id", payload.SessionID).
			Str("operation", payload.Operation).
			Msg("Persist error, retrying in 5s")
		// Push back to queue for retry.
		w.rdb.RPush(ctx, config.WorkerKey.PersistSessionEventsQueue, result[1])
		time.Sleep(5 * time.Second)
	}
}

func (w *SessionEventWorker) persistEvent(ctx context.Context, p *eventPayload) error {
	sessionID, err := uuid.Parse(p.SessionID)
	if err != nil {
		return err
	}

	_, err = w.pool.Exec(ctx,
		`INSERT INTO session_events (session_id, operation, occurred_at)
		 VALUES ($1, $2, $3)`,
		sessionID, p.Operation, p.OccurredAt,
	)
	return err
}

// drain processes all remaining items in the queue before shutdown.
func (w *SessionEventWorker) drain(ctx context.Context) {
	drained := 0
	for {
		result, err := w.rdb.LPop(ctx, config.WorkerKey.PersistSessionEventsQueue).Result()
		if err != nil {
			break
		}

		var payload eventPayload
		if err := json.Unmarshal([]byte(result), &payload); err != nil {
			w.log.Error().Err(err).Msg("Drain unmarshal error")
			continue
		}

		if err := w.persistEvent(ctx, &payload); err != nil {
			w.log.Error().Err(err).Msg("Drain persist error")
			w.rdb.RPush(ctx, config.WorkerKey.PersistSessionEventsQueue, result)
			break
		}
		drained++
	}

	if drained > 0 {
		w.log.Info().Int("count", drained).Msg("Drained remaining items")
	}
}
