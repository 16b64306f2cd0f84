package realtime

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testBus(t *testing.T) (*Bus, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewBus(client, zerolog.Nop()), client
}

func TestBusPublishReachesRoomSubscribers(t *testing.T) {
	ctx := context.Background()
	bus, _ := testBus(t)

	pubsub := bus.Subscribe(ctx, "ABC234")
	defer pubsub.Close()

	// Wait for the subscription to be established before publishing.
	_, err := pubsub.Receive(ctx)
	require.NoError(t, err)

	bus.Publish(ctx, EventSubmitExam, "ABC234", 10)

	select {
	case msg := <-pubsub.Channel():
		var event Event
		require.NoError(t, json.Unmarshal([]byte(msg.Payload), &event))
		assert.Equal(t, EventSubmitExam, event.Type)
		assert.Equal(t, "ABC234", event.RoomCode)
		assert.Equal(t, int64(10), event.StudentID)
		assert.False(t, event.At.IsZero())
	case <-time.After(2 * time.Second):
		t.Fatal("no event received")
	}
}

func TestBusChannelsAreRoomScoped(t *testing.T) {
	ctx := context.Background()
	bus, _ := testBus(t)

	pubsub := bus.Subscribe(ctx, "ABC234")
	defer pubsub.Close()
	_, err := pubsub.Receive(ctx)
	require.NoError(t, err)

	bus.Publish(ctx, EventStartExam, "XYZ789", 0)

	select {
	case msg := <-pubsub.Channel():
		t.Fatalf("received event for another room: %s", msg.Payload)
	case <-time.After(300 * time.Millisecond):
	}
}

func TestBusPublishSurvivesDeadRedis(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	bus := NewBus(client, zerolog.Nop())

	mr.Close()

	// Publish failures are swallowed; the originating request must not fail.
	bus.Publish(context.Background(), EventEndExam, "ABC234", 0)
}
