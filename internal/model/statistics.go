package model

import "github.com/google/uuid"

// QuestionStat is the per-question tally across all finished submissions.
// Unanswered counts submissions with no answer (or a blank one) for the
// question; essays count as correct only after full-credit manual grading.
type QuestionStat struct {
	QuestionID uuid.UUID    `json:"question_id"`
	Type       QuestionType `json:"type"`
	Text       string       `json:"text"`
	Correct    int          `json:"correct"`
	Incorrect  int          `json:"incorrect"`
	Unanswered int          `json:"unanswered"`
}

// ParticipantResult is one student's row in the teacher's result board.
type ParticipantResult struct {
	SubmissionID     uuid.UUID        `json:"submission_id"`
	StudentID        int64            `json:"student_id"`
	StudentName      string           `json:"student_name"`
	Status           SubmissionStatus `json:"status"`
	Score            float64          `json:"score"`
	TotalPoints      float64          `json:"total_points"`
	Percentage       int              `json:"percentage"`
	Grade            string           `json:"grade"`
	TimeSpentSeconds int              `json:"time_spent_seconds"`
	ViolationCount   int              `json:"violation_count"`
}

// RoomStatistics is the teacher-facing aggregate view of a room.
type RoomStatistics struct {
	RoomCode          string              `json:"room_code"`
	RoomStatus        RoomStatus          `json:"room_status"`
	TotalParticipants int                 `json:"total_participants"`
	InProgress        int                 `json:"in_progress"`
	Finished          int                 `json:"finished"`
	AverageScore      float64             `json:"average_score"`
	AveragePercentage float64             `json:"average_percentage"`
	HighestPercentage int                 `json:"highest_percentage"`
	LowestPercentage  int                 `json:"lowest_percentage"`
	GradeCounts       map[string]int      `json:"grade_counts"`
	Questions         []QuestionStat      `json:"questions"`
	Participants      []ParticipantResult `json:"participants"`
}

// StudentOverview is the anonymized aggregate shown to students once the
// teacher publishes results. No per-student rows leave the teacher view.
type StudentOverview struct {
	RoomCode          string         `json:"room_code"`
	TotalParticipants int            `json:"total_participants"`
	Finished          int            `json:"finished"`
	AverageScore      float64        `json:"average_score"`
	AveragePercentage float64        `json:"average_percentage"`
	HighestPercentage int            `json:"highest_percentage"`
	LowestPercentage  int            `json:"lowest_percentage"`
	GradeCounts       map[string]int `json:"grade_counts"`
}
