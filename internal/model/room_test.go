package model

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestRoomBanAndAllowLists(t *testing.T) {
	room := &Room{}

	assert.False(t, room.IsBanned(1))
	assert.True(t, room.IsAllowed(1), "empty allow list admits everyone")

	room.BanList = []int64{1, 2}
	assert.True(t, room.IsBanned(1))
	assert.False(t, room.IsBanned(3))

	room.AllowList = []int64{5}
	assert.True(t, room.IsAllowed(5))
	assert.False(t, room.IsAllowed(6))
}

func TestQuizPaperStripsAnswerKey(t *testing.T) {
	quiz := &Quiz{
		Questions: []Question{
			{
				ID:           uuid.New(),
				Type:         QuestionTypeMultipleChoice,
				Text:         "Pick b",
				Options:      []string{"a", "b"},
				CorrectIndex: 1,
				Points:       2,
			},
			{
				ID:       uuid.New(),
				Type:     QuestionTypeEssay,
				Text:     "Write",
				MaxWords: 50,
				Points:   3,
			},
		},
	}

	paper := quiz.Paper()
	assert.Len(t, paper, 2)
	assert.Equal(t, 0, paper[0].Position)
	assert.Equal(t, []PaperOption{{Index: 0, Text: "a"}, {Index: 1, Text: "b"}}, paper[0].Options)
	assert.Empty(t, paper[1].Options)
	assert.Equal(t, 5.0, quiz.TotalPoints())
}

func TestSubmissionDeadline(t *testing.T) {
	started := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	sub := &Submission{StartedAt: started}

	assert.Equal(t, started.Add(30*time.Minute), sub.Deadline(1800))
	assert.True(t, SubmissionStatusSubmitted.IsFinal())
	assert.False(t, SubmissionStatusInProgress.IsFinal())
}
