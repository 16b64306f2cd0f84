package service

import (
	"context"

	"github.com/courseloop/examroom-backend/internal/model"
	"github.com/google/uuid"
)

// Store interfaces consumed by the services. The pgx implementations live in
// internal/repository; tests substitute in-memory fakes. Not-found is
// signalled with pgx.ErrNoRows by both.

// RoomStore persists rooms.
type RoomStore interface {
	Insert(ctx context.Context, room *model.Room) error
	GetByCode(ctx context.Context, code string) (*model.Room, error)
	GetByID(ctx context.Context, id uuid.UUID) (*model.Room, error)
	ListByTeacher(ctx context.Context, teacherID int64, limit, offset int) ([]model.Room, int, error)
	AdvanceStatus(ctx context.Context, id uuid.UUID, from, to model.RoomStatus) (bool, error)
	SetPublish(ctx context.Context, id uuid.UUID, publish bool) error
	AddToBanList(ctx context.Context, id uuid.UUID, studentID int64) error
	RemoveFromBanList(ctx context.Context, id uuid.UUID, studentID int64) error
	SetAllowList(ctx context.Context, id uuid.UUID, studentIDs []int64) error
}

// SubmissionStore persists submissions.
type SubmissionStore interface {
	CreateCapped(ctx context.Context, s *model.Submission, maxParticipants *int) (bool, error)
	GetByRoomAndStudent(ctx context.Context, roomID uuid.UUID, studentID int64) (*model.Submission, error)
	GetByID(ctx context.Context, id uuid.UUID) (*model.Submission, error)
	ListByRoom(ctx context.Context, roomID uuid.UUID) ([]model.Submission, error)
	Finalize(ctx context.Context, id uuid.UUID, result *model.Submission, to model.SubmissionStatus) (bool, error)
	UpdateGrading(ctx context.Context, id uuid.UUID, answers []model.SubmissionAnswer, score float64, percentage int) (bool, error)
}

// QuizStore reads quiz definitions.
type QuizStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*model.Quiz, error)
}

// UserStore reads platform accounts.
type UserStore interface {
	GetByEmail(ctx context.Context, email string) (*model.User, error)
	GetByID(ctx context.Context, id int64) (*model.User, error)
	NamesByIDs(ctx context.Context, ids []int64) (map[int64]string, error)
}
