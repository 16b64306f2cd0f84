package worker

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/courseloop/examroom-backend/internal/config"
	"github.com/courseloop/examroom-backend/internal/model"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeViolationSink struct {
	mu       sync.Mutex
	appended map[attemptKey][]model.Violation
	failures int
}

func newFakeViolationSink() *fakeViolationSink {
	return &fakeViolationSink{appended: map[attemptKey][]model.Violation{}}
}

func (f *fakeViolationSink) AppendViolations(ctx context.Context, roomID uuid.UUID, studentID int64, violations []model.Violation) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failures > 0 {
		f.failures--
		return errors.New("database down")
	}
	key := attemptKey{roomID, studentID}
	f.appended[key] = append(f.appended[key], violations...)
	return nil
}

func (f *fakeViolationSink) count(key attemptKey) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.appended[key])
}

func enqueueViolation(t *testing.T, rdb *redis.Client, roomID uuid.UUID, studentID int64, kind string) {
	t.Helper()
	payload, err := json.Marshal(violationPayload{
		RoomID:     roomID.String(),
		StudentID:  studentID,
		Kind:       kind,
		Detail:     "window blurred",
		RecordedAt: time.Now().UTC(),
	})
	require.NoError(t, err)
	require.NoError(t, rdb.RPush(context.Background(), config.WorkerKey.PersistViolationsQueue, payload).Err())
}

func TestViolationWorkerPersistsGroupedBatch(t *testing.T) {
	rdb := workerRedis(t)
	sink := newFakeViolationSink()
	roomID := uuid.New()

	enqueueViolation(t, rdb, roomID, 10, "tab-switch")
	enqueueViolation(t, rdb, roomID, 10, "fullscreen-exit")
	enqueueViolation(t, rdb, roomID, 11, "tab-switch")

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		NewViolationWorker(sink, rdb, zerolog.Nop()).Start(ctx)
	}()

	require.Eventually(t, func() bool {
		return sink.count(attemptKey{roomID, 10}) == 2 && sink.count(attemptKey{roomID, 11}) == 1
	}, 10*time.Second, 50*time.Millisecond)

	cancel()
	<-done

	violations := sink.appended[attemptKey{roomID, 10}]
	kinds := []string{violations[0].Kind, violations[1].Kind}
	assert.ElementsMatch(t, []string{"tab-switch", "fullscreen-exit"}, kinds)
	assert.Equal(t, "window blurred", violations[0].Detail)
}

func TestViolationWorkerRequeuesOnSinkFailure(t *testing.T) {
	rdb := workerRedis(t)
	sink := newFakeViolationSink()
	sink.failures = 1
	roomID := uuid.New()

	enqueueViolation(t, rdb, roomID, 10, "tab-switch")

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		NewViolationWorker(sink, rdb, zerolog.Nop()).Start(ctx)
	}()

	// First flush fails and requeues; the retry succeeds.
	require.Eventually(t, func() bool {
		return sink.count(attemptKey{roomID, 10}) == 1
	}, 15*time.Second, 100*time.Millisecond)

	cancel()
	<-done

	length, err := rdb.LLen(context.Background(), config.WorkerKey.PersistViolationsQueue).Result()
	require.NoError(t, err)
	assert.Zero(t, length)
}

func TestViolationWorkerDiscardsMalformedPayloads(t *testing.T) {
	rdb := workerRedis(t)
	sink := newFakeViolationSink()
	roomID := uuid.New()

	require.NoError(t, rdb.RPush(context.Background(), config.WorkerKey.PersistViolationsQueue, "{not json").Err())
	enqueueViolation(t, rdb, roomID, 10, "tab-switch")

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		NewViolationWorker(sink, rdb, zerolog.Nop()).Start(ctx)
	}()

	require.Eventually(t, func() bool {
		return sink.count(attemptKey{roomID, 10}) == 1
	}, 10*time.Second, 50*time.Millisecond)

	cancel()
	<-done
}
