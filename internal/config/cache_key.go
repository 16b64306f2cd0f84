package config

import "fmt"

// CacheKeyStruct centralizes every Redis key used by the engine so key shapes
// live in one place.
type CacheKeyStruct struct{}

// RoomEventsChannel returns the Pub/Sub channel carrying lifecycle events for
// one room. Topic-scoped by room code, shared by every connected participant.
func (r *CacheKeyStruct) RoomEventsChannel(roomCode string) string {
	return fmt.Sprintf("room:%s:events", roomCode)
}

// StudentAnswersKey returns the hash holding a student's autosaved answers
// for a room, keyed by question id.
func (r *CacheKeyStruct) StudentAnswersKey(roomID string, studentID int64) string {
	return fmt.Sprintf("room:%s:student:%d:answers", roomID, studentID)
}

var CacheKey = &CacheKeyStruct{}
