// Package worker contains the background loops: queue consumers draining
// Redis lists into Postgres and the timer that force-closes expired
// attempts. Workers run alongside the HTTP server and stop with it.
package worker

import (
	"context"
	"encoding/json"
	"time"

	"github.com/courseloop/examroom-backend/internal/config"
	"github.com/courseloop/examroom-backend/internal/model"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const (
	BatchSize    = 50
	BatchTimeout = 2 * time.Second
	PollTimeout  = 1 * time.Second // Must be >= 1s to satisfy Redis
)

// violationSink persists batched anti-cheat events onto submission rows.
type violationSink interface {
	AppendViolations(ctx context.Context, roomID uuid.UUID, studentID int64, violations []model.Violation) error
}

// ViolationWorker drains the violation queue filled by the WebSocket
// handler and batches the events onto submission rows. Keeping the write
// path out of the socket loop means a burst of tab-switch events cannot
// stall the stream.
type ViolationWorker struct {
	sink violationSink
	rdb  *redis.Client
	log  zerolog.Logger
}

// NewViolationWorker creates a new ViolationWorker.
func NewViolationWorker(sink violationSink, rdb *redis.Client, log zerolog.Logger) *ViolationWorker {
	return &ViolationWorker{
		sink: sink,
		rdb:  rdb,
		log:  log.With().Str("component", "violation_worker").Logger(),
	}
}

type violationPayload struct {
	RoomID     string    `json:"room_id"`
	StudentID  int64     `json:"student_id"`
	Kind       string    `json:"kind"`
	Detail     string    `json:"detail"`
	RecordedAt time.Time `json:"recorded_at"`
}

// Start runs the consume loop until ctx is cancelled. Buffered events are
// flushed on size, on a timer, and once more at shutdown.
func (w *ViolationWorker) Start(ctx context.Context) {
	w.log.Info().Msg("ViolationWorker started")

	buffer := make([]*violationPayload, 0, BatchSize)
	lastFlushTime := time.Now()

	for {
		if len(buffer) > 0 {
			if len(buffer) >= BatchSize || time.Since(lastFlushTime) >= BatchTimeout {
				w.flush(ctx, buffer)
				buffer = buffer[:0]
				lastFlushTime = time.Now()
			}
		}

		select {
		case <-ctx.Done():
			w.shutdown(buffer)
			return
		default:
		}

		result, err := w.rdb.BLPop(ctx, PollTimeout, config.WorkerKey.PersistViolationsQueue).Result()
		if err != nil {
			if err == redis.Nil {
				continue // Queue empty, loop back to check the flush timer
			}
			if ctx.Err() != nil {
				w.shutdown(buffer)
				return
			}
			w.log.Error().Err(err).Msg("Redis connection error, sleeping 3s")
			time.Sleep(3 * time.Second)
			continue
		}

		if len(result) < 2 {
			continue
		}

		var payload violationPayload
		if err := json.Unmarshal([]byte(result[1]), &payload); err != nil {
			// Malformed JSON can never succeed on retry. Log and discard.
			w.log.Error().Err(err).Str("data", result[1]).Msg("Discarding malformed JSON")
			continue
		}

		buffer = append(buffer, &payload)
	}
}

type attemptKey struct {
	roomID    uuid.UUID
	studentID int64
}

// flush groups the batch per (room, student) so each submission row is
// touched once, then requeues whatever failed to persist.
func (w *ViolationWorker) flush(ctx context.Context, batch []*violationPayload) {
	grouped := make(map[attemptKey][]model.Violation)
	byKey := make(map[attemptKey][]*violationPayload)

	for _, p := range batch {
		roomID, err := uuid.Parse(p.RoomID)
		if err != nil {
			w.log.Error().Str("room_id", p.RoomID).Msg("Dropping violation with invalid room id")
			continue
		}
		key := attemptKey{roomID, p.StudentID}
		grouped[key] = append(grouped[key], model.Violation{
			Kind:       p.Kind,
			Detail:     p.Detail,
			RecordedAt: p.RecordedAt,
		})
		byKey[key] = append(byKey[key], p)
	}

	requeueList := make([]*violationPayload, 0)
	for key, violations := range grouped {
		if err := w.sink.AppendViolations(ctx, key.roomID, key.studentID, violations); err != nil {
			w.log.Error().Err(err).
				Str("room_id", key.roomID.String()).
				Int64("student_id", key.studentID).
				Msg("Append failed, requeueing")
			requeueList = append(requeueList, byKey[key]...)
		}
	}

	if len(requeueList) > 0 {
		w.requeue(ctx, requeueList)
	}
}

func (w *ViolationWorker) requeue(ctx context.Context, items []*violationPayload) {
	pipe := w.rdb.Pipeline()
	for _, p := range items {
		data, _ := json.Marshal(p)
		pipe.RPush(ctx, config.WorkerKey.PersistViolationsQueue, data)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		w.log.Error().Err(err).Msg("CRITICAL: Failed to requeue items to Redis. Data loss occurred.")
		return
	}
	w.log.Info().Int("count", len(items)).Msg("Requeued failed items back to Redis")
	// Back off so a hard-down database is not hammered.
	time.Sleep(2 * time.Second)
}

func (w *ViolationWorker) shutdown(buffer []*violationPayload) {
	w.log.Info().Msg("Worker stopping, flushing remaining buffer...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if len(buffer) > 0 {
		w.flush(shutdownCtx, buffer)
	}
}
