package service

import (
	"context"
	"testing"
	"time"

	"github.com/courseloop/examroom-backend/internal/model"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type statsFixture struct {
	svc         *StatsService
	rooms       *fakeRoomStore
	submissions *fakeSubmissionStore
	quiz        *model.Quiz
	room        *model.Room
}

func newStatsFixture(t *testing.T) *statsFixture {
	t.Helper()
	rooms := newFakeRoomStore()
	quizzes := newFakeQuizStore()
	submissions := newFakeSubmissionStore()
	users := newFakeUserStore()
	svc := NewStatsService(rooms, quizzes, submissions, users, zerolog.Nop())

	quiz := quizzes.add(sampleQuiz(1))
	room := rooms.add(sampleRoom(1, quiz.ID, model.RoomStatusActive))
	users.add(&model.User{ID: 10, Name: "Ana", Role: model.UserRoleStudent})
	users.add(&model.User{ID: 11, Name: "Ben", Role: model.UserRoleStudent})
	users.add(&model.User{ID: 12, Name: "Cole", Role: model.UserRoleStudent})
	return &statsFixture{svc, rooms, submissions, quiz, room}
}

func (f *statsFixture) addFinished(studentID int64, percentage int, score float64, answers []model.SubmissionAnswer) {
	now := time.Now()
	f.submissions.add(&model.Submission{
		RoomID:      f.room.ID,
		StudentID:   studentID,
		QuizID:      f.quiz.ID,
		Answers:     answers,
		Score:       score,
		TotalPoints: f.quiz.TotalPoints(),
		Percentage:  percentage,
		Status:      model.SubmissionStatusSubmitted,
		SubmittedAt: &now,
	})
}

func (f *statsFixture) answers(first, second bool, essayText string) []model.SubmissionAnswer {
	return []model.SubmissionAnswer{
		{QuestionID: f.quiz.Questions[0].ID, Answer: "1", IsCorrect: first},
		{QuestionID: f.quiz.Questions[1].ID, Answer: "0", IsCorrect: second},
		{QuestionID: f.quiz.Questions[2].ID, Answer: essayText},
	}
}

func TestStatsServiceRoomStatistics(t *testing.T) {
	ctx := context.Background()
	f := newStatsFixture(t)

	f.addFinished(10, 95, 9.5, f.answers(true, true, "essay"))
	f.addFinished(11, 62, 6.2, f.answers(true, false, ""))
	f.submissions.add(&model.Submission{
		RoomID:    f.room.ID,
		StudentID: 12,
		QuizID:    f.quiz.ID,
		Status:    model.SubmissionStatusInProgress,
	})

	stats, err := f.svc.RoomStatistics(ctx, 1, f.room.RoomCode)
	require.NoError(t, err)

	assert.Equal(t, f.room.RoomCode, stats.RoomCode)
	assert.Equal(t, 3, stats.TotalParticipants)
	assert.Equal(t, 2, stats.Finished)
	assert.Equal(t, 1, stats.InProgress)
	assert.InDelta(t, 7.85, stats.AverageScore, 0.001)
	assert.InDelta(t, 78.5, stats.AveragePercentage, 0.001)
	assert.Equal(t, 95, stats.HighestPercentage)
	assert.Equal(t, 62, stats.LowestPercentage)
	assert.Equal(t, map[string]int{"A": 1, "D": 1}, stats.GradeCounts)

	require.Len(t, stats.Questions, 3)
	assert.Equal(t, 2, stats.Questions[0].Correct)
	assert.Equal(t, 1, stats.Questions[1].Correct)
	assert.Equal(t, 1, stats.Questions[1].Incorrect)
	// Blank essay counts as unanswered even though a row exists for it.
	assert.Equal(t, 1, stats.Questions[2].Unanswered)

	require.Len(t, stats.Participants, 3)
	byStudent := map[int64]model.ParticipantResult{}
	for _, p := range stats.Participants {
		byStudent[p.StudentID] = p
	}
	assert.Equal(t, "Ana", byStudent[10].StudentName)
	assert.Equal(t, "A", byStudent[10].Grade)
	assert.Equal(t, "D", byStudent[11].Grade)
	// In-progress rows show no score and no grade.
	assert.Equal(t, model.SubmissionStatusInProgress, byStudent[12].Status)
	assert.Zero(t, byStudent[12].Score)
	assert.Empty(t, byStudent[12].Grade)
}

func TestStatsServiceRoomStatisticsEmptyRoom(t *testing.T) {
	ctx := context.Background()
	f := newStatsFixture(t)

	stats, err := f.svc.RoomStatistics(ctx, 1, f.room.RoomCode)
	require.NoError(t, err)

	assert.Zero(t, stats.TotalParticipants)
	assert.Zero(t, stats.AverageScore)
	assert.Empty(t, stats.GradeCounts)
	assert.Empty(t, stats.Participants)
	require.Len(t, stats.Questions, 3)
	assert.Zero(t, stats.Questions[0].Correct)
}

func TestStatsServiceRoomStatisticsOwnerOnly(t *testing.T) {
	ctx := context.Background()
	f := newStatsFixture(t)

	_, err := f.svc.RoomStatistics(ctx, 99, f.room.RoomCode)
	assert.ErrorIs(t, err, ErrNotOwner)

	_, err = f.svc.RoomStatistics(ctx, 1, "ZZZZ99")
	assert.ErrorIs(t, err, ErrRoomNotFound)
}

func TestStatsServiceLetterGradeBuckets(t *testing.T) {
	ctx := context.Background()
	f := newStatsFixture(t)

	grades := map[int64]int{10: 95, 11: 85, 12: 75, 13: 65, 14: 40}
	for id, pct := range grades {
		f.addFinished(id, pct, float64(pct)/10, nil)
	}

	stats, err := f.svc.RoomStatistics(ctx, 1, f.room.RoomCode)
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"A": 1, "B": 1, "C": 1, "D": 1, "F": 1}, stats.GradeCounts)
}

func TestStatsServiceStudentOverview(t *testing.T) {
	ctx := context.Background()
	f := newStatsFixture(t)
	f.addFinished(10, 80, 8, nil)
	f.addFinished(11, 60, 6, nil)

	_, err := f.svc.StudentOverview(ctx, 10, f.room.RoomCode)
	assert.ErrorIs(t, err, ErrResultsNotPublic)

	require.NoError(t, f.rooms.SetPublish(ctx, f.room.ID, true))

	overview, err := f.svc.StudentOverview(ctx, 10, f.room.RoomCode)
	require.NoError(t, err)
	assert.Equal(t, 2, overview.TotalParticipants)
	assert.Equal(t, 2, overview.Finished)
	assert.InDelta(t, 7.0, overview.AverageScore, 0.001)
	assert.InDelta(t, 70.0, overview.AveragePercentage, 0.001)
	assert.Equal(t, 80, overview.HighestPercentage)
	assert.Equal(t, 60, overview.LowestPercentage)
	assert.Equal(t, map[string]int{"B": 1, "D": 1}, overview.GradeCounts)

	// Only participants may read the overview, even when published.
	_, err = f.svc.StudentOverview(ctx, 999, f.room.RoomCode)
	assert.ErrorIs(t, err, ErrSubmissionNotFound)
}

func TestStatsServiceUnknownStudentName(t *testing.T) {
	ctx := context.Background()
	f := newStatsFixture(t)
	f.submissions.add(&model.Submission{
		ID:        uuid.New(),
		RoomID:    f.room.ID,
		StudentID: 404,
		QuizID:    f.quiz.ID,
		Status:    model.SubmissionStatusInProgress,
	})

	stats, err := f.svc.RoomStatistics(ctx, 1, f.room.RoomCode)
	require.NoError(t, err)
	require.Len(t, stats.Participants, 1)
	assert.Empty(t, stats.Participants[0].StudentName)
}
