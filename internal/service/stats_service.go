package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/courseloop/examroom-backend/internal/model"
	"github.com/courseloop/examroom-backend/internal/scoring"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
)

// StatsService computes room aggregates. All numbers are derived on read
// from the submission rows; nothing is cached, so a statistics call always
// reflects the latest submits and manual grades.
type StatsService struct {
	rooms       RoomStore
	quizzes     QuizStore
	submissions SubmissionStore
	users       UserStore
	log         zerolog.Logger
}

// NewStatsService creates a new StatsService.
func NewStatsService(
	rooms RoomStore,
	quizzes QuizStore,
	submissions SubmissionStore,
	users UserStore,
	log zerolog.Logger,
) *StatsService {
	return &StatsService{
		rooms:       rooms,
		quizzes:     quizzes,
		submissions: submissions,
		users:       users,
		log:         log.With().Str("component", "stats_service").Logger(),
	}
}

// RoomStatistics builds the owner's full view: status counts, per-question
// tallies and the named per-student result board. Averages only cover
// finished submissions; in-progress attempts count as participants but
// contribute no scores.
func (s *StatsService) RoomStatistics(ctx context.Context, teacherID int64, code string) (*model.RoomStatistics, error) {
	room, err := s.getRoom(ctx, code)
	if err != nil {
		return nil, err
	}
	if room.TeacherID != teacherID {
		return nil, ErrNotOwner
	}

	quiz, err := s.quizzes.GetByID(ctx, room.QuizID)
	if err != nil {
		return nil, fmt.Errorf("get quiz: %w", err)
	}

	subs, err := s.submissions.ListByRoom(ctx, room.ID)
	if err != nil {
		return nil, fmt.Errorf("list submissions: %w", err)
	}

	names, err := s.studentNames(ctx, subs)
	if err != nil {
		return nil, err
	}

	stats := &model.RoomStatistics{
		RoomCode:     room.RoomCode,
		RoomStatus:   room.Status,
		GradeCounts:  map[string]int{},
		Questions:    questionStats(quiz, subs),
		Participants: make([]model.ParticipantResult, 0, len(subs)),
	}
	fillAggregate(subs, &stats.TotalParticipants, &stats.Finished, &stats.InProgress,
		&stats.AverageScore, &stats.AveragePercentage,
		&stats.HighestPercentage, &stats.LowestPercentage, stats.GradeCounts)

	for _, sub := range subs {
		row := model.ParticipantResult{
			SubmissionID:     sub.ID,
			StudentID:        sub.StudentID,
			StudentName:      names[sub.StudentID],
			Status:           sub.Status,
			TimeSpentSeconds: sub.TimeSpentSeconds,
			ViolationCount:   sub.ViolationCount,
		}
		if sub.Status.IsFinal() {
			row.Score = sub.Score
			row.TotalPoints = sub.TotalPoints
			row.Percentage = sub.Percentage
			row.Grade = scoring.LetterGrade(sub.Percentage)
		}
		stats.Participants = append(stats.Participants, row)
	}

	return stats, nil
}

// StudentOverview builds the anonymized aggregate a participant may see
// once the teacher has published results. Non-participants never see it.
func (s *StatsService) StudentOverview(ctx context.Context, studentID int64, code string) (*model.StudentOverview, error) {
	room, err := s.getRoom(ctx, code)
	if err != nil {
		return nil, err
	}
	if !room.PublishAnalysis {
		return nil, ErrResultsNotPublic
	}

	if _, err := s.submissions.GetByRoomAndStudent(ctx, room.ID, studentID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrSubmissionNotFound
		}
		return nil, fmt.Errorf("check participation: %w", err)
	}

	subs, err := s.submissions.ListByRoom(ctx, room.ID)
	if err != nil {
		return nil, fmt.Errorf("list submissions: %w", err)
	}

	overview := &model.StudentOverview{
		RoomCode:    room.RoomCode,
		GradeCounts: map[string]int{},
	}
	var inProgress int
	fillAggregate(subs, &overview.TotalParticipants, &overview.Finished, &inProgress,
		&overview.AverageScore, &overview.AveragePercentage,
		&overview.HighestPercentage, &overview.LowestPercentage, overview.GradeCounts)

	return overview, nil
}

func (s *StatsService) getRoom(ctx context.Context, code string) (*model.Room, error) {
	room, err := s.rooms.GetByCode(ctx, code)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrRoomNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get room: %w", err)
	}
	return room, nil
}

func (s *StatsService) studentNames(ctx context.Context, subs []model.Submission) (map[int64]string, error) {
	ids := make([]int64, 0, len(subs))
	for _, sub := range subs {
		ids = append(ids, sub.StudentID)
	}
	names, err := s.users.NamesByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("resolve student names: %w", err)
	}
	return names, nil
}

// fillAggregate computes the counters shared by the teacher and student
// views over one pass of the submissions.
func fillAggregate(
	subs []model.Submission,
	total, finished, inProgress *int,
	avgScore, avgPercentage *float64,
	highest, lowest *int,
	gradeCounts map[string]int,
) {
	*total = len(subs)

	var scoreSum, pctSum float64
	first := true
	for _, sub := range subs {
		if !sub.Status.IsFinal() {
			*inProgress++
			continue
		}
		*finished++
		scoreSum += sub.Score
		pctSum += float64(sub.Percentage)
		gradeCounts[scoring.LetterGrade(sub.Percentage)]++
		if first || sub.Percentage > *highest {
			*highest = sub.Percentage
		}
		if first || sub.Percentage < *lowest {
			*lowest = sub.Percentage
		}
		first = false
	}
	if *finished > 0 {
		*avgScore = round2(scoreSum / float64(*finished))
		*avgPercentage = round2(pctSum / float64(*finished))
	}
}

// questionStats tallies correct/incorrect/unanswered per question over the
// finished submissions. Answers are matched by question id so tallies stay
// right even for partially answered attempts.
func questionStats(quiz *model.Quiz, subs []model.Submission) []model.QuestionStat {
	stats := make([]model.QuestionStat, 0, len(quiz.Questions))
	for _, q := range quiz.Questions {
		stat := model.QuestionStat{
			QuestionID: q.ID,
			Type:       q.Type,
			Text:       q.Text,
		}
		for _, sub := range subs {
			if !sub.Status.IsFinal() {
				continue
			}
			answered := false
			for _, a := range sub.Answers {
				if a.QuestionID != q.ID {
					continue
				}
				if strings.TrimSpace(a.Answer) == "" {
					break
				}
				answered = true
				if a.IsCorrect {
					stat.Correct++
				} else {
					stat.Incorrect++
				}
				break
			}
			if !answered {
				stat.Unanswered++
			}
		}
		stats = append(stats, stat)
	}
	return stats
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
