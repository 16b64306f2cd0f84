package model

import (
	"time"

	"github.com/google/uuid"
)

// RoomStatus enumerates the room lifecycle. Transitions are forward-only:
// SCHEDULED → ACTIVE → ENDED.
type RoomStatus string

const (
	RoomStatusScheduled RoomStatus = "SCHEDULED"
	RoomStatusActive    RoomStatus = "ACTIVE"
	RoomStatusEnded     RoomStatus = "ENDED"
)

// RoomSettings controls per-room exam presentation and review behavior.
type RoomSettings struct {
	ShuffleQuestions   bool `json:"shuffle_questions"`
	ShuffleOptions     bool `json:"shuffle_options"`
	ShowCorrectAnswers bool `json:"show_correct_answers"`
	AllowReview        bool `json:"allow_review"`
}

// Room is a scheduled, code-identified live exam session tied to one quiz
// and one teacher.
type Room struct {
	ID              uuid.UUID    `json:"id"`
	RoomCode        string       `json:"room_code"`
	TeacherID       int64        `json:"teacher_id"`
	QuizID          uuid.UUID    `json:"quiz_id"`
	Title           string       `json:"title"`
	Description     string       `json:"description"`
	DurationSeconds int          `json:"duration_seconds"`
	MaxParticipants *int         `json:"max_participants,omitempty"`
	Settings        RoomSettings `json:"settings"`
	BanList         []int64      `json:"ban_list"`
	AllowList       []int64      `json:"allow_list"`
	Status          RoomStatus   `json:"status"`
	PublishAnalysis bool         `json:"publish_analysis"`
	CreatedAt       time.Time    `json:"created_at"`
	UpdatedAt       time.Time    `json:"updated_at"`
}

// IsBanned reports whether the student appears on the room's ban list.
func (r *Room) IsBanned(studentID int64) bool {
	for _, id := range r.BanList {
		if id == studentID {
			return true
		}
	}
	return false
}

// IsAllowed reports whether the student may join under the allow list.
// An empty allow list admits everyone.
func (r *Room) IsAllowed(studentID int64) bool {
	if len(r.AllowList) == 0 {
		return true
	}
	for _, id := range r.AllowList {
		if id == studentID {
			return true
		}
	}
	return false
}

// CreateRoomRequest is the payload for a teacher opening a new room.
type CreateRoomRequest struct {
	Title           string       `json:"title" binding:"required,min=3,max=255"`
	Description     string       `json:"description" binding:"omitempty,max=2000"`
	QuizID          uuid.UUID    `json:"quiz_id" binding:"required"`
	DurationSeconds int          `json:"duration_seconds" binding:"required,min=60,max=28800"`
	MaxParticipants *int         `json:"max_participants" binding:"omitempty,min=1,max=10000"`
	Settings        RoomSettings `json:"settings"`
}

// SetPublishRequest toggles student visibility of aggregate results.
type SetPublishRequest struct {
	Publish *bool `json:"publish" binding:"required"`
}

// BanStudentRequest adds a student to the room's ban list.
type BanStudentRequest struct {
	StudentID int64 `json:"student_id" binding:"required,min=1"`
}

// SetAllowListRequest replaces the room's allow list. An empty list removes
// the restriction.
type SetAllowListRequest struct {
	StudentIDs []int64 `json:"student_ids" binding:"required,dive,min=1"`
}
