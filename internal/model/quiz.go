package model

import (
	"time"

	"github.com/google/uuid"
)

// QuizStatus enumerates quiz lifecycle states. Quizzes are authored in the
// main platform; only ACTIVE quizzes may be attached to a room.
type QuizStatus string

const (
	QuizStatusDraft    QuizStatus = "DRAFT"
	QuizStatusActive   QuizStatus = "ACTIVE"
	QuizStatusArchived QuizStatus = "ARCHIVED"
)

// QuestionType tags the question variant. The scoring engine switches
// exhaustively on this tag.
type QuestionType string

const (
	QuestionTypeMultipleChoice QuestionType = "MULTIPLE_CHOICE"
	QuestionTypeEssay          QuestionType = "ESSAY"
)

// Question is one entry of a quiz's ordered question list.
// MULTIPLE_CHOICE uses Options/CorrectIndex; ESSAY uses MaxWords and is
// graded manually after submission.
type Question struct {
	ID           uuid.UUID    `json:"id"`
	Type         QuestionType `json:"type"`
	Text         string       `json:"text"`
	Options      []string     `json:"options,omitempty"`
	CorrectIndex int          `json:"correct_index,omitempty"`
	MaxWords     int          `json:"max_words,omitempty"`
	Points       float64      `json:"points"`
}

// Quiz is consumed read-only by the room engine and treated as immutable
// for the lifetime of any room that references it.
type Quiz struct {
	ID        uuid.UUID  `json:"id"`
	TeacherID int64      `json:"teacher_id"`
	Title     string     `json:"title"`
	Status    QuizStatus `json:"status"`
	Questions []Question `json:"questions"`
	CreatedAt time.Time  `json:"created_at"`
}

// TotalPoints sums the point values of every question, regardless of type.
func (q *Quiz) TotalPoints() float64 {
	var total float64
	for _, question := range q.Questions {
		total += question.Points
	}
	return total
}

// PaperOption is one choice as presented to a student. Index is the option's
// position in the canonical quiz definition: answers are submitted against
// canonical indexes, so shuffling the presented order stays scoreable.
type PaperOption struct {
	Index int    `json:"index"`
	Text  string `json:"text"`
}

// PaperQuestion is a question stripped of its answer key, safe to send to a
// student taking the exam.
type PaperQuestion struct {
	ID       uuid.UUID     `json:"id"`
	Type     QuestionType  `json:"type"`
	Text     string        `json:"text"`
	Options  []PaperOption `json:"options,omitempty"`
	MaxWords int           `json:"max_words,omitempty"`
	Points   float64       `json:"points"`
	// Position is the question's index in the canonical quiz order. Answers
	// are submitted positionally, so clients need this even when the paper
	// itself is shuffled.
	Position int `json:"position"`
}

// Paper converts the quiz into student-safe questions in canonical order.
func (q *Quiz) Paper() []PaperQuestion {
	paper := make([]PaperQuestion, 0, len(q.Questions))
	for i, question := range q.Questions {
		options := make([]PaperOption, 0, len(question.Options))
		for j, text := range question.Options {
			options = append(options, PaperOption{Index: j, Text: text})
		}
		paper = append(paper, PaperQuestion{
			ID:       question.ID,
			Type:     question.Type,
			Text:     question.Text,
			Options:  options,
			MaxWords: question.MaxWords,
			Points:   question.Points,
			Position: i,
		})
	}
	return paper
}
