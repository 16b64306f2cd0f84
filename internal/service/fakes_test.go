package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/courseloop/examroom-backend/internal/model"
	"github.com/courseloop/examroom-backend/internal/realtime"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// In-memory store fakes backing the service tests. They mirror the
// repository contracts: pgx.ErrNoRows for not-found, unique-violation
// pgconn errors where the real tables would raise them, and the same
// conditional-update semantics for status transitions.

func uniqueViolation(constraint string) error {
	return &pgconn.PgError{Code: "23505", ConstraintName: constraint}
}

type fakeRoomStore struct {
	mu    sync.Mutex
	rooms map[uuid.UUID]*model.Room

	// insertCollisions makes the next N inserts fail with a room-code
	// unique violation, to exercise the allocation retry loop.
	insertCollisions int
	insertedCodes    []string
}

func newFakeRoomStore() *fakeRoomStore {
	return &fakeRoomStore{rooms: map[uuid.UUID]*model.Room{}}
}

func (f *fakeRoomStore) Insert(ctx context.Context, room *model.Room) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.insertedCodes = append(f.insertedCodes, room.RoomCode)
	if f.insertCollisions > 0 {
		f.insertCollisions--
		return uniqueViolation("rooms_room_code_key")
	}
	for _, r := range f.rooms {
		if r.RoomCode == room.RoomCode {
			return uniqueViolation("rooms_room_code_key")
		}
	}

	room.ID = uuid.New()
	room.CreatedAt = time.Now()
	room.UpdatedAt = room.CreatedAt
	cp := *room
	f.rooms[room.ID] = &cp
	return nil
}

func (f *fakeRoomStore) GetByCode(ctx context.Context, code string) (*model.Room, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range f.rooms {
		if r.RoomCode == code {
			cp := *r
			return &cp, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (f *fakeRoomStore) GetByID(ctx context.Context, id uuid.UUID) (*model.Room, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if r, ok := f.rooms[id]; ok {
		cp := *r
		return &cp, nil
	}
	return nil, pgx.ErrNoRows
}

func (f *fakeRoomStore) ListByTeacher(ctx context.Context, teacherID int64, limit, offset int) ([]model.Room, int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var all []model.Room
	for _, r := range f.rooms {
		if r.TeacherID == teacherID {
			all = append(all, *r)
		}
	}
	total := len(all)
	if offset >= len(all) {
		return nil, total, nil
	}
	end := offset + limit
	if end > len(all) {
		end = len(all)
	}
	return all[offset:end], total, nil
}

func (f *fakeRoomStore) AdvanceStatus(ctx context.Context, id uuid.UUID, from, to model.RoomStatus) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.rooms[id]
	if !ok || r.Status != from {
		return false, nil
	}
	r.Status = to
	return true, nil
}

func (f *fakeRoomStore) SetPublish(ctx context.Context, id uuid.UUID, publish bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if r, ok := f.rooms[id]; ok {
		r.PublishAnalysis = publish
	}
	return nil
}

func (f *fakeRoomStore) AddToBanList(ctx context.Context, id uuid.UUID, studentID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.rooms[id]
	if !ok {
		return pgx.ErrNoRows
	}
	for _, existing := range r.BanList {
		if existing == studentID {
			return nil
		}
	}
	r.BanList = append(r.BanList, studentID)
	return nil
}

func (f *fakeRoomStore) RemoveFromBanList(ctx context.Context, id uuid.UUID, studentID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.rooms[id]
	if !ok {
		return pgx.ErrNoRows
	}
	out := r.BanList[:0]
	for _, existing := range r.BanList {
		if existing != studentID {
			out = append(out, existing)
		}
	}
	r.BanList = out
	return nil
}

func (f *fakeRoomStore) SetAllowList(ctx context.Context, id uuid.UUID, studentIDs []int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.rooms[id]
	if !ok {
		return pgx.ErrNoRows
	}
	r.AllowList = studentIDs
	return nil
}

func (f *fakeRoomStore) add(room *model.Room) *model.Room {
	f.mu.Lock()
	defer f.mu.Unlock()
	if room.ID == uuid.Nil {
		room.ID = uuid.New()
	}
	cp := *room
	f.rooms[room.ID] = &cp
	return room
}

type submissionKey struct {
	roomID    uuid.UUID
	studentID int64
}

type fakeSubmissionStore struct {
	mu   sync.Mutex
	subs map[submissionKey]*model.Submission
}

func newFakeSubmissionStore() *fakeSubmissionStore {
	return &fakeSubmissionStore{subs: map[submissionKey]*model.Submission{}}
}

func (f *fakeSubmissionStore) CreateCapped(ctx context.Context, s *model.Submission, maxParticipants *int) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	key := submissionKey{s.RoomID, s.StudentID}
	if _, exists := f.subs[key]; exists {
		return false, nil
	}
	if maxParticipants != nil {
		count := 0
		for k := range f.subs {
			if k.roomID == s.RoomID {
				count++
			}
		}
		if count >= *maxParticipants {
			return false, nil
		}
	}

	s.ID = uuid.New()
	s.Status = model.SubmissionStatusInProgress
	s.StartedAt = time.Now()
	cp := *s
	f.subs[key] = &cp
	return true, nil
}

func (f *fakeSubmissionStore) GetByRoomAndStudent(ctx context.Context, roomID uuid.UUID, studentID int64) (*model.Submission, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if sub, ok := f.subs[submissionKey{roomID, studentID}]; ok {
		cp := *sub
		return &cp, nil
	}
	return nil, pgx.ErrNoRows
}

func (f *fakeSubmissionStore) GetByID(ctx context.Context, id uuid.UUID) (*model.Submission, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, sub := range f.subs {
		if sub.ID == id {
			cp := *sub
			return &cp, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (f *fakeSubmissionStore) ListByRoom(ctx context.Context, roomID uuid.UUID) ([]model.Submission, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.Submission
	for k, sub := range f.subs {
		if k.roomID == roomID {
			out = append(out, *sub)
		}
	}
	return out, nil
}

func (f *fakeSubmissionStore) Finalize(ctx context.Context, id uuid.UUID, result *model.Submission, to model.SubmissionStatus) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, sub := range f.subs {
		if sub.ID != id {
			continue
		}
		if sub.Status != model.SubmissionStatusInProgress {
			return false, nil
		}
		sub.Answers = result.Answers
		sub.Score = result.Score
		sub.TotalPoints = result.TotalPoints
		sub.Percentage = result.Percentage
		sub.SubmittedAt = result.SubmittedAt
		sub.TimeSpentSeconds = result.TimeSpentSeconds
		sub.Status = to
		return true, nil
	}
	return false, nil
}

func (f *fakeSubmissionStore) UpdateGrading(ctx context.Context, id uuid.UUID, answers []model.SubmissionAnswer, score float64, percentage int) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, sub := range f.subs {
		if sub.ID != id {
			continue
		}
		if sub.Status == model.SubmissionStatusInProgress {
			return false, nil
		}
		sub.Answers = answers
		sub.Score = score
		sub.Percentage = percentage
		sub.Status = model.SubmissionStatusGraded
		return true, nil
	}
	return false, nil
}

func (f *fakeSubmissionStore) add(sub *model.Submission) *model.Submission {
	f.mu.Lock()
	defer f.mu.Unlock()
	if sub.ID == uuid.Nil {
		sub.ID = uuid.New()
	}
	if sub.StartedAt.IsZero() {
		sub.StartedAt = time.Now()
	}
	cp := *sub
	f.subs[submissionKey{sub.RoomID, sub.StudentID}] = &cp
	return sub
}

type fakeQuizStore struct {
	mu      sync.Mutex
	quizzes map[uuid.UUID]*model.Quiz
}

func newFakeQuizStore() *fakeQuizStore {
	return &fakeQuizStore{quizzes: map[uuid.UUID]*model.Quiz{}}
}

func (f *fakeQuizStore) GetByID(ctx context.Context, id uuid.UUID) (*model.Quiz, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if q, ok := f.quizzes[id]; ok {
		cp := *q
		return &cp, nil
	}
	return nil, pgx.ErrNoRows
}

func (f *fakeQuizStore) add(quiz *model.Quiz) *model.Quiz {
	f.mu.Lock()
	defer f.mu.Unlock()
	if quiz.ID == uuid.Nil {
		quiz.ID = uuid.New()
	}
	cp := *quiz
	f.quizzes[quiz.ID] = &cp
	return quiz
}

type fakeUserStore struct {
	mu    sync.Mutex
	users map[int64]*model.User
}

func newFakeUserStore() *fakeUserStore {
	return &fakeUserStore{users: map[int64]*model.User{}}
}

func (f *fakeUserStore) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (f *fakeUserStore) GetByID(ctx context.Context, id int64) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if u, ok := f.users[id]; ok {
		cp := *u
		return &cp, nil
	}
	return nil, pgx.ErrNoRows
}

func (f *fakeUserStore) NamesByIDs(ctx context.Context, ids []int64) (map[int64]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make(map[int64]string, len(ids))
	for _, id := range ids {
		if u, ok := f.users[id]; ok {
			out[id] = u.Name
		}
	}
	return out, nil
}

func (f *fakeUserStore) add(user *model.User) *model.User {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *user
	f.users[user.ID] = &cp
	return user
}

// testRedis spins up a miniredis-backed client for bus and autosave paths.
func testRedis(t *testing.T) *redis.Client {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func testBus(t *testing.T) *realtime.Bus {
	t.Helper()
	return realtime.NewBus(testRedis(t), zerolog.Nop())
}

// Shared fixtures.

func intPtr(v int) *int { return &v }

func sampleQuiz(teacherID int64) *model.Quiz {
	return &model.Quiz{
		ID:        uuid.New(),
		TeacherID: teacherID,
		Title:     "Fractions quiz",
		Status:    model.QuizStatusActive,
		Questions: []model.Question{
			{
				ID:           uuid.New(),
				Type:         model.QuestionTypeMultipleChoice,
				Text:         "1/2 + 1/4 = ?",
				Options:      []string{"1/4", "3/4", "2/4"},
				CorrectIndex: 1,
				Points:       2,
			},
			{
				ID:           uuid.New(),
				Type:         model.QuestionTypeMultipleChoice,
				Text:         "2/3 of 9 = ?",
				Options:      []string{"3", "6", "9"},
				CorrectIndex: 1,
				Points:       3,
			},
			{
				ID:       uuid.New(),
				Type:     model.QuestionTypeEssay,
				Text:     "Explain common denominators.",
				MaxWords: 200,
				Points:   5,
			},
		},
	}
}

func sampleRoom(teacherID int64, quizID uuid.UUID, status model.RoomStatus) *model.Room {
	return &model.Room{
		ID:              uuid.New(),
		RoomCode:        "ABC234",
		TeacherID:       teacherID,
		QuizID:          quizID,
		Title:           "Period 3 exam",
		DurationSeconds: 1800,
		Status:          status,
	}
}
