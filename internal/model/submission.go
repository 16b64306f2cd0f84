package model

import (
	"time"

	"github.com/google/uuid"
)

// SubmissionStatus enumerates a submission's lifecycle. Transitions are
// forward-only: IN_PROGRESS → SUBMITTED|AUTO_SUBMITTED → GRADED.
type SubmissionStatus string

const (
	SubmissionStatusInProgress    SubmissionStatus = "IN_PROGRESS"
	SubmissionStatusSubmitted     SubmissionStatus = "SUBMITTED"
	SubmissionStatusAutoSubmitted SubmissionStatus = "AUTO_SUBMITTED"
	SubmissionStatusGraded        SubmissionStatus = "GRADED"
)

// IsFinal reports whether the submission has left IN_PROGRESS.
func (s SubmissionStatus) IsFinal() bool {
	return s != SubmissionStatusInProgress
}

// SubmissionAnswer is one scored (or pending-grade) answer within a
// submission, stored in quiz question order.
type SubmissionAnswer struct {
	QuestionID       uuid.UUID `json:"question_id"`
	Answer           string    `json:"answer"`
	IsCorrect        bool      `json:"is_correct"`
	PointsAwarded    float64   `json:"points_awarded"`
	TimeTakenSeconds int       `json:"time_taken_seconds"`
	Feedback         string    `json:"feedback,omitempty"`
}

// Violation is a persisted anti-cheat signal attached to a submission.
type Violation struct {
	Kind       string    `json:"kind"`
	Detail     string    `json:"detail,omitempty"`
	RecordedAt time.Time `json:"recorded_at"`
}

// Submission is one student's single attempt record within a room.
// At most one exists per (room, student), enforced by a unique constraint.
type Submission struct {
	ID               uuid.UUID          `json:"id"`
	RoomID           uuid.UUID          `json:"room_id"`
	StudentID        int64              `json:"student_id"`
	QuizID           uuid.UUID          `json:"quiz_id"`
	Answers          []SubmissionAnswer `json:"answers"`
	Score            float64            `json:"score"`
	TotalPoints      float64            `json:"total_points"`
	Percentage       int                `json:"percentage"`
	Status           SubmissionStatus   `json:"status"`
	StartedAt        time.Time          `json:"started_at"`
	SubmittedAt      *time.Time         `json:"submitted_at,omitempty"`
	TimeSpentSeconds int                `json:"time_spent_seconds"`
	ViolationCount   int                `json:"violation_count"`
	Violations       []Violation        `json:"violations,omitempty"`
}

// Deadline returns the instant this submission must be force-closed.
func (s *Submission) Deadline(durationSeconds int) time.Time {
	return s.StartedAt.Add(time.Duration(durationSeconds) * time.Second)
}

// AnswerInput is one raw answer as sent by the student client. Answers are
// paired positionally with the quiz's canonical question order; QuestionID is
// carried for client bookkeeping and cross-checked when present.
type AnswerInput struct {
	QuestionID       uuid.UUID `json:"question_id"`
	Answer           string    `json:"answer"`
	TimeTakenSeconds int       `json:"time_taken_seconds" binding:"min=0"`
}

// SubmitExamRequest is the payload for a student submitting their attempt.
// Partial and empty answer lists are legal; they simply score lower.
type SubmitExamRequest struct {
	Answers []AnswerInput `json:"answers" binding:"required,dive"`
}

// GradeEssayRequest is the payload for a teacher manually grading one essay
// answer of a submitted attempt.
type GradeEssayRequest struct {
	QuestionID uuid.UUID `json:"question_id" binding:"required"`
	Points     float64   `json:"points" binding:"min=0"`
	Feedback   string    `json:"feedback" binding:"omitempty,max=4000"`
}
