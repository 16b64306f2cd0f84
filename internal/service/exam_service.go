package service

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"math/rand"
	"time"

	"github.com/courseloop/examroom-backend/internal/config"
	"github.com/courseloop/examroom-backend/internal/model"
	"github.com/courseloop/examroom-backend/internal/realtime"
	"github.com/courseloop/examroom-backend/internal/scoring"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// ExamService handles the student side of a room: joining, taking the paper,
// autosaving, submitting, and the teacher's manual essay grading.
type ExamService struct {
	rooms       RoomStore
	quizzes     QuizStore
	submissions SubmissionStore
	bus         *realtime.Bus
	rdb         *redis.Client
	log         zerolog.Logger
}

// NewExamService creates a new ExamService.
func NewExamService(
	rooms RoomStore,
	quizzes QuizStore,
	submissions SubmissionStore,
	bus *realtime.Bus,
	rdb *redis.Client,
	log zerolog.Logger,
) *ExamService {
	return &ExamService{
		rooms:       rooms,
		quizzes:     quizzes,
		submissions: submissions,
		bus:         bus,
		rdb:         rdb,
		log:         log.With().Str("component", "exam_service").Logger(),
	}
}

// Join admits a student into a room, creating their submission on first
// entry. Checks short-circuit in order: room ended, banned, allow list,
// then one serialized capacity-checked insert. Rejoining, even after
// submitting, returns the existing submission unchanged, so page reloads
// and network retries are always safe.
func (s *ExamService) Join(ctx context.Context, code string, studentID int64) (*model.Room, *model.Submission, error) {
	room, err := s.getRoom(ctx, code)
	if err != nil {
		return nil, nil, err
	}

	if room.Status == model.RoomStatusEnded {
		return nil, nil, ErrRoomEnded
	}
	if room.IsBanned(studentID) {
		return nil, nil, ErrBanned
	}
	if !room.IsAllowed(studentID) {
		return nil, nil, ErrNotAllowed
	}

	// Idempotent fast path: an admitted student keeps their submission no
	// matter what the room looks like now.
	existing, err := s.submissions.GetByRoomAndStudent(ctx, room.ID, studentID)
	if err == nil {
		return room, existing, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, nil, fmt.Errorf("check existing submission: %w", err)
	}

	sub := &model.Submission{
		RoomID:    room.ID,
		StudentID: studentID,
		QuizID:    room.QuizID,
		Answers:   []model.SubmissionAnswer{},
	}

	created, err := s.submissions.CreateCapped(ctx, sub, room.MaxParticipants)
	if err != nil {
		return nil, nil, fmt.Errorf("create submission: %w", err)
	}
	if !created {
		// Insert was skipped: either a concurrent duplicate join won, or the
		// room is at capacity. The existing row decides which.
		existing, err := s.submissions.GetByRoomAndStudent(ctx, room.ID, studentID)
		if err == nil {
			return room, existing, nil
		}
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil, ErrRoomFull
		}
		return nil, nil, fmt.Errorf("fetch after racing join: %w", err)
	}

	s.log.Info().
		Str("room_code", code).
		Int64("student_id", studentID).
		Msg("Student joined room")

	s.bus.Publish(ctx, realtime.EventJoinRoom, code, studentID)
	return room, sub, nil
}

// Paper returns the student's question sheet. Requires a prior join; while
// the attempt is running, the room must be ACTIVE. After finishing, the
// paper is available again only when the room allows review.
func (s *ExamService) Paper(ctx context.Context, code string, studentID int64) (*model.Room, []model.PaperQuestion, *model.Submission, error) {
	room, err := s.getRoom(ctx, code)
	if err != nil {
		return nil, nil, nil, err
	}

	sub, err := s.submissions.GetByRoomAndStudent(ctx, room.ID, studentID)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil, nil, ErrSubmissionNotFound
	}
	if err != nil {
		return nil, nil, nil, fmt.Errorf("get submission: %w", err)
	}

	if sub.Status == model.SubmissionStatusInProgress && room.Status != model.RoomStatusActive {
		return nil, nil, nil, ErrRoomNotActive
	}
	if sub.Status.IsFinal() && !room.Settings.AllowReview {
		return nil, nil, nil, ErrAlreadySubmitted
	}

	quiz, err := s.quizzes.GetByID(ctx, room.QuizID)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("get quiz: %w", err)
	}

	paper := quiz.Paper()
	shufflePaper(paper, room, studentID)
	return room, paper, sub, nil
}

// Submit scores the student's answers and finalizes the submission exactly
// once. The status precondition travels into the store's conditional update,
// so a replayed or racing submit loses with a conflict instead of
// overwriting the stored score.
func (s *ExamService) Submit(ctx context.Context, code string, studentID int64, req *model.SubmitExamRequest) (*model.Submission, error) {
	room, err := s.getRoom(ctx, code)
	if err != nil {
		return nil, err
	}

	sub, err := s.submissions.GetByRoomAndStudent(ctx, room.ID, studentID)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrSubmissionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get submission: %w", err)
	}
	if sub.Status.IsFinal() {
		return nil, ErrAlreadySubmitted
	}

	quiz, err := s.quizzes.GetByID(ctx, room.QuizID)
	if err != nil {
		return nil, fmt.Errorf("get quiz: %w", err)
	}

	result, err := scoring.Score(quiz, req.Answers)
	if err != nil {
		return nil, fmt.Errorf("score submission: %w", err)
	}

	now := time.Now()
	sub.Answers = result.Answers
	sub.Score = result.Score
	sub.TotalPoints = result.TotalPoints
	sub.Percentage = result.Percentage
	sub.SubmittedAt = &now
	sub.TimeSpentSeconds = int(now.Sub(sub.StartedAt).Seconds())

	ok, err := s.submissions.Finalize(ctx, sub.ID, sub, model.SubmissionStatusSubmitted)
	if err != nil {
		return nil, fmt.Errorf("finalize submission: %w", err)
	}
	if !ok {
		return nil, ErrAlreadySubmitted
	}
	sub.Status = model.SubmissionStatusSubmitted

	// Autosave buffer is no longer needed; best-effort cleanup.
	_ = s.rdb.Del(ctx, config.CacheKey.StudentAnswersKey(room.ID.String(), studentID)).Err()

	s.log.Info().
		Str("room_code", code).
		Int64("student_id", studentID).
		Float64("score", sub.Score).
		Msg("Submission scored")

	s.bus.Publish(ctx, realtime.EventSubmitExam, code, studentID)
	return sub, nil
}

// Autosave buffers a single answer in Redis while the attempt is running.
// The buffer feeds the auto-submit worker when time runs out; a normal
// submit replaces it wholesale.
func (s *ExamService) Autosave(ctx context.Context, code string, studentID int64, questionID, answer string) error {
	room, err := s.getRoom(ctx, code)
	if err != nil {
		return err
	}
	if room.Status != model.RoomStatusActive {
		return ErrRoomNotActive
	}

	if _, err := uuid.Parse(questionID); err != nil {
		return fmt.Errorf("invalid question id: %w", err)
	}

	sub, err := s.submissions.GetByRoomAndStudent(ctx, room.ID, studentID)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrSubmissionNotFound
	}
	if err != nil {
		return fmt.Errorf("get submission: %w", err)
	}
	if sub.Status.IsFinal() {
		return ErrAlreadySubmitted
	}

	key := config.CacheKey.StudentAnswersKey(room.ID.String(), studentID)
	return s.rdb.HSet(ctx, key, questionID, answer).Err()
}

// Result returns the student's own submission for a room.
func (s *ExamService) Result(ctx context.Context, code string, studentID int64) (*model.Room, *model.Submission, error) {
	room, err := s.getRoom(ctx, code)
	if err != nil {
		return nil, nil, err
	}

	sub, err := s.submissions.GetByRoomAndStudent(ctx, room.ID, studentID)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil, ErrSubmissionNotFound
	}
	if err != nil {
		return nil, nil, fmt.Errorf("get submission: %w", err)
	}
	return room, sub, nil
}

// GradeEssay applies a teacher's manual grade to one essay answer of a
// finished submission, recomputes the totals and advances the submission to
// GRADED. Points are capped at the question's maximum.
func (s *ExamService) GradeEssay(ctx context.Context, teacherID int64, code string, submissionID uuid.UUID, req *model.GradeEssayRequest) (*model.Submission, error) {
	room, err := s.getRoom(ctx, code)
	if err != nil {
		return nil, err
	}
	if room.TeacherID != teacherID {
		return nil, ErrNotOwner
	}

	sub, err := s.submissions.GetByID(ctx, submissionID)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrSubmissionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get submission: %w", err)
	}
	if sub.RoomID != room.ID {
		return nil, ErrSubmissionNotFound
	}
	if !sub.Status.IsFinal() {
		return nil, ErrNotGradable
	}

	quiz, err := s.quizzes.GetByID(ctx, room.QuizID)
	if err != nil {
		return nil, fmt.Errorf("get quiz: %w", err)
	}

	question := findQuestion(quiz, req.QuestionID)
	if question == nil || question.Type != model.QuestionTypeEssay {
		return nil, ErrNotGradable
	}
	if req.Points > question.Points {
		return nil, ErrPointsExceedMax
	}

	graded := false
	for i := range sub.Answers {
		if sub.Answers[i].QuestionID == req.QuestionID {
			sub.Answers[i].PointsAwarded = req.Points
			sub.Answers[i].IsCorrect = req.Points >= question.Points
			sub.Answers[i].Feedback = req.Feedback
			graded = true
			break
		}
	}
	if !graded {
		return nil, ErrNotGradable
	}

	sub.Score, sub.Percentage = scoring.Regrade(sub.Answers, sub.TotalPoints)

	ok, err := s.submissions.UpdateGrading(ctx, sub.ID, sub.Answers, sub.Score, sub.Percentage)
	if err != nil {
		return nil, fmt.Errorf("update grading: %w", err)
	}
	if !ok {
		return nil, ErrNotGradable
	}
	sub.Status = model.SubmissionStatusGraded

	s.bus.Publish(ctx, realtime.EventStatistics, code, 0)
	return sub, nil
}

// HasJoined reports whether the student holds a submission in the room.
// Used by the websocket handler to authorize stream attachment.
func (s *ExamService) HasJoined(ctx context.Context, room *model.Room, studentID int64) bool {
	_, err := s.submissions.GetByRoomAndStudent(ctx, room.ID, studentID)
	return err == nil
}

func (s *ExamService) getRoom(ctx context.Context, code string) (*model.Room, error) {
	room, err := s.rooms.GetByCode(ctx, code)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrRoomNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get room: %w", err)
	}
	return room, nil
}

func findQuestion(quiz *model.Quiz, id uuid.UUID) *model.Question {
	for i := range quiz.Questions {
		if quiz.Questions[i].ID == id {
			return &quiz.Questions[i]
		}
	}
	return nil
}

// shufflePaper applies the room's shuffle settings deterministically per
// (room, student): the same student sees the same order on every reload.
func shufflePaper(paper []model.PaperQuestion, room *model.Room, studentID int64) {
	if !room.Settings.ShuffleQuestions && !room.Settings.ShuffleOptions {
		return
	}

	h := fnv.New64a()
	fmt.Fprintf(h, "%s:%d", room.ID, studentID)
	rng := rand.New(rand.NewSource(int64(h.Sum64())))

	if room.Settings.ShuffleQuestions {
		rng.Shuffle(len(paper), func(i, j int) {
			paper[i], paper[j] = paper[j], paper[i]
		})
	}
	if room.Settings.ShuffleOptions {
		for i := range paper {
			opts := paper[i].Options
			rng.Shuffle(len(opts), func(a, b int) {
				opts[a], opts[b] = opts[b], opts[a]
			})
		}
	}
}
