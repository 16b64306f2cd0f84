package realtime

import "time"

// ─── Room events (Server → all room participants) ───────────────────
//
// Events carry identifiers only, never authoritative scores. They are
// cache-invalidation hints: recipients re-fetch state through the REST
// operations. Delivery is best-effort, at most once per connected client.

type EventType string

const (
	EventJoinRoom   EventType = "join-room"
	EventStartExam  EventType = "start-exam"
	EventEndExam    EventType = "end-exam"
	EventSubmitExam EventType = "submit-exam"
	EventStatistics EventType = "get-statistics"
)

// Event is one fan-out message on a room's channel.
type Event struct {
	Type      EventType `json:"type"`
	RoomCode  string    `json:"room_code"`
	StudentID int64     `json:"student_id,omitempty"`
	At        time.Time `json:"at"`
}

// ─── Actions (Client → Server) ──────────────────────────────────────

type Action string

const (
	ActionAutosave  Action = "autosave"
	ActionViolation Action = "violation"
	ActionPing      Action = "ping"
)

// RequestPayload is the single inbound message shape; fields beyond Action
// are populated per action.
type RequestPayload struct {
	Action Action `json:"action"`
	// autosave
	QuestionID string `json:"question_id,omitempty"`
	Answer     string `json:"answer,omitempty"`
	// violation
	Kind   string `json:"kind,omitempty"`
	Detail string `json:"detail,omitempty"`
}

// ─── Replies (Server → one client) ──────────────────────────────────

type ReplyEvent string

const (
	ReplyError   ReplyEvent = "error"
	ReplySuccess ReplyEvent = "success"
	ReplyPong    ReplyEvent = "pong"
)

type AckResponse struct {
	Event  ReplyEvent `json:"event"`
	Status string     `json:"status,omitempty"`
}

type ErrorResponse struct {
	Event ReplyEvent `json:"event"`
	Error string     `json:"error"`
}
