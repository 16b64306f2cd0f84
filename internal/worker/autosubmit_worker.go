package worker

import (
	"context"
	"time"

	"github.com/courseloop/examroom-backend/internal/config"
	"github.com/courseloop/examroom-backend/internal/model"
	"github.com/courseloop/examroom-backend/internal/realtime"
	"github.com/courseloop/examroom-backend/internal/repository"
	"github.com/courseloop/examroom-backend/internal/scoring"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// scanLimit bounds how many expired attempts one tick processes.
const scanLimit = 200

type expiredSubmissionStore interface {
	ListExpired(ctx context.Context, now time.Time, limit int) ([]repository.ExpiredAttempt, error)
	Finalize(ctx context.Context, id uuid.UUID, result *model.Submission, to model.SubmissionStatus) (bool, error)
}

type quizGetter interface {
	GetByID(ctx context.Context, id uuid.UUID) (*model.Quiz, error)
}

// AutoSubmitWorker periodically force-closes in-progress attempts whose room
// duration has elapsed. Whatever the student autosaved is scored as their
// final submission; an attempt with no autosaved answers scores zero.
type AutoSubmitWorker struct {
	submissions expiredSubmissionStore
	quizzes     quizGetter
	rdb         *redis.Client
	bus         *realtime.Bus
	interval    time.Duration
	log         zerolog.Logger
}

// NewAutoSubmitWorker creates a new AutoSubmitWorker.
func NewAutoSubmitWorker(
	submissions expiredSubmissionStore,
	quizzes quizGetter,
	rdb *redis.Client,
	bus *realtime.Bus,
	interval time.Duration,
	log zerolog.Logger,
) *AutoSubmitWorker {
	return &AutoSubmitWorker{
		submissions: submissions,
		quizzes:     quizzes,
		rdb:         rdb,
		bus:         bus,
		interval:    interval,
		log:         log.With().Str("component", "autosubmit_worker").Logger(),
	}
}

// Start runs the scan loop until ctx is cancelled.
func (w *AutoSubmitWorker) Start(ctx context.Context) {
	w.log.Info().Dur("interval", w.interval).Msg("AutoSubmitWorker started")

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("AutoSubmitWorker stopping")
			return
		case <-ticker.C:
			w.tick(ctx)
		}
	}
}

func (w *AutoSubmitWorker) tick(ctx context.Context) {
	expired, err := w.submissions.ListExpired(ctx, time.Now(), scanLimit)
	if err != nil {
		w.log.Error().Err(err).Msg("Expired attempt scan failed")
		return
	}

	for _, attempt := range expired {
		if err := w.closeAttempt(ctx, attempt); err != nil {
			w.log.Error().Err(err).
				Str("submission_id", attempt.SubmissionID.String()).
				Msg("Auto-submit failed, will retry next tick")
		}
	}
}

// closeAttempt scores the autosaved answers and finalizes one attempt.
// The conditional Finalize makes this safe against a student submitting at
// the same instant: whoever updates the row first wins, the other is a no-op.
func (w *AutoSubmitWorker) closeAttempt(ctx context.Context, attempt repository.ExpiredAttempt) error {
	quiz, err := w.quizzes.GetByID(ctx, attempt.QuizID)
	if err != nil {
		return err
	}

	answersKey := config.CacheKey.StudentAnswersKey(attempt.RoomID.String(), attempt.StudentID)
	saved, err := w.rdb.HGetAll(ctx, answersKey).Result()
	if err != nil {
		return err
	}

	// Autosaves are keyed by question id; rebuild the positional answer
	// list the scorer expects.
	answers := make([]model.AnswerInput, len(quiz.Questions))
	for i, question := range quiz.Questions {
		answers[i] = model.AnswerInput{
			QuestionID: question.ID,
			Answer:     saved[question.ID.String()],
		}
	}

	result, err := scoring.Score(quiz, answers)
	if err != nil {
		return err
	}

	deadline := attempt.StartedAt.Add(time.Duration(attempt.DurationSeconds) * time.Second)
	sub := &model.Submission{
		Answers:          result.Answers,
		Score:            result.Score,
		TotalPoints:      result.TotalPoints,
		Percentage:       result.Percentage,
		SubmittedAt:      &deadline,
		TimeSpentSeconds: attempt.DurationSeconds,
	}

	ok, err := w.submissions.Finalize(ctx, attempt.SubmissionID, sub, model.SubmissionStatusAutoSubmitted)
	if err != nil {
		return err
	}
	if !ok {
		// The student's own submit won the race. Nothing left to do.
		return nil
	}

	_ = w.rdb.Del(ctx, answersKey).Err()

	w.log.Info().
		Str("room_code", attempt.RoomCode).
		Int64("student_id", attempt.StudentID).
		Float64("score", result.Score).
		Msg("Attempt auto-submitted")

	w.bus.Publish(ctx, realtime.EventSubmitExam, attempt.RoomCode, attempt.StudentID)
	return nil
}
