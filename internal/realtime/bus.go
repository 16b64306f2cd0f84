// Package realtime implements the per-room broadcast channel. Redis Pub/Sub
// carries events between server instances; websocket handlers forward them
// to connected clients. The bus is advisory only. It is never the source of
// truth, and publish failures must not fail the originating request.
package realtime

import (
	"context"
	"encoding/json"
	"time"

	"github.com/courseloop/examroom-backend/internal/config"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// Bus publishes and subscribes room events over Redis Pub/Sub.
type Bus struct {
	rdb *redis.Client
	log zerolog.Logger
}

// NewBus creates a new Bus.
func NewBus(rdb *redis.Client, log zerolog.Logger) *Bus {
	return &Bus{
		rdb: rdb,
		log: log.With().Str("component", "realtime_bus").Logger(),
	}
}

// Publish broadcasts an event to every subscriber of the room's channel.
// Failures are logged and swallowed: the channel is a notification layer,
// and clients recover by re-fetching authoritative state.
func (b *Bus) Publish(ctx context.Context, eventType EventType, roomCode string, studentID int64) {
	event := Event{
		Type:      eventType,
		RoomCode:  roomCode,
		StudentID: studentID,
		At:        time.Now().UTC(),
	}

	payload, err := json.Marshal(event)
	if err != nil {
		b.log.Error().Err(err).Str("type", string(eventType)).Msg("Marshal event failed")
		return
	}

	channel := config.CacheKey.RoomEventsChannel(roomCode)
	if err := b.rdb.Publish(ctx, channel, payload).Err(); err != nil {
		b.log.Warn().Err(err).
			Str("room_code", roomCode).
			Str("type", string(eventType)).
			Msg("Event publish failed")
	}
}

// Subscribe attaches to a room's event channel. The caller owns the returned
// PubSub and must Close it.
func (b *Bus) Subscribe(ctx context.Context, roomCode string) *redis.PubSub {
	return b.rdb.Subscribe(ctx, config.CacheKey.RoomEventsChannel(roomCode))
}
