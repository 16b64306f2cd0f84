package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/courseloop/examroom-backend/internal/model"
	"github.com/courseloop/examroom-backend/internal/realtime"
	"github.com/courseloop/examroom-backend/internal/repository"
	"github.com/courseloop/examroom-backend/internal/response"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
)

// maxCodeAttempts bounds the allocate-insert-retry loop. The code space is
// 31^6 (~900M), so collisions are rare; hitting the bound means something is
// pathologically wrong and the create fails outright.
const maxCodeAttempts = 10

// RoomService owns the room lifecycle: creation with code allocation,
// forward-only status transitions, publish toggling and ban/allow lists.
type RoomService struct {
	rooms   RoomStore
	quizzes QuizStore
	bus     *realtime.Bus
	log     zerolog.Logger
}

// NewRoomService creates a new RoomService.
func NewRoomService(rooms RoomStore, quizzes QuizStore, bus *realtime.Bus, log zerolog.Logger) *RoomService {
	return &RoomService{
		rooms:   rooms,
		quizzes: quizzes,
		bus:     bus,
		log:     log.With().Str("component", "room_service").Logger(),
	}
}

// Create validates quiz ownership, allocates a room code and persists the
// room as SCHEDULED. Code uniqueness comes from the database constraint:
// generate, insert, and on a duplicate-code conflict retry with a fresh
// code. The retry loop is an optimization, never the correctness mechanism.
func (s *RoomService) Create(ctx context.Context, teacherID int64, req *model.CreateRoomRequest) (*model.Room, error) {
	quiz, err := s.quizzes.GetByID(ctx, req.QuizID)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrQuizNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get quiz: %w", err)
	}
	if quiz.TeacherID != teacherID {
		return nil, ErrNotOwner
	}
	if quiz.Status != model.QuizStatusActive {
		return nil, ErrQuizNotActive
	}

	room := &model.Room{
		TeacherID:       teacherID,
		QuizID:          quiz.ID,
		Title:           req.Title,
		Description:     req.Description,
		DurationSeconds: req.DurationSeconds,
		MaxParticipants: req.MaxParticipants,
		Settings:        req.Settings,
		Status:          model.RoomStatusScheduled,
	}

	for attempt := 1; attempt <= maxCodeAttempts; attempt++ {
		code, err := model.NewRoomCode()
		if err != nil {
			return nil, fmt.Errorf("generate room code: %w", err)
		}
		room.RoomCode = code

		err = s.rooms.Insert(ctx, room)
		if err == nil {
			s.log.Info().
				Str("room_code", room.RoomCode).
				Int64("teacher_id", teacherID).
				Msg("Room created")
			return room, nil
		}
		if repository.IsUniqueViolation(err, repository.RoomCodeConstraint) {
			s.log.Debug().Str("room_code", code).Int("attempt", attempt).Msg("Room code collision, retrying")
			continue
		}
		return nil, fmt.Errorf("insert room: %w", err)
	}

	return nil, ErrCodeSpaceExhausted
}

// Get retrieves a room by code without an ownership check.
func (s *RoomService) Get(ctx context.Context, code string) (*model.Room, error) {
	room, err := s.rooms.GetByCode(ctx, code)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrRoomNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get room: %w", err)
	}
	return room, nil
}

// GetOwned retrieves a room by code and verifies the caller owns it.
func (s *RoomService) GetOwned(ctx context.Context, teacherID int64, code string) (*model.Room, error) {
	room, err := s.Get(ctx, code)
	if err != nil {
		return nil, err
	}
	if room.TeacherID != teacherID {
		return nil, ErrNotOwner
	}
	return room, nil
}

// List returns a teacher's rooms with pagination.
func (s *RoomService) List(ctx context.Context, teacherID int64, page, perPage int) ([]model.Room, *response.Pagination, error) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = 10
	}
	if perPage > 100 {
		perPage = 100
	}

	rooms, total, err := s.rooms.ListByTeacher(ctx, teacherID, perPage, (page-1)*perPage)
	if err != nil {
		return nil, nil, err
	}
	if rooms == nil {
		rooms = []model.Room{}
	}

	pagination := &response.Pagination{
		Page:       page,
		PerPage:    perPage,
		TotalItems: total,
		TotalPages: (total + perPage - 1) / perPage,
	}
	return rooms, pagination, nil
}

// Start moves a room SCHEDULED → ACTIVE and broadcasts start-exam.
func (s *RoomService) Start(ctx context.Context, teacherID int64, code string) (*model.Room, error) {
	return s.advance(ctx, teacherID, code, model.RoomStatusScheduled, model.RoomStatusActive, realtime.EventStartExam)
}

// End moves a room ACTIVE → ENDED and broadcasts end-exam. Ending an
// already-ended room is a conflict, never a silent second round of side
// effects.
func (s *RoomService) End(ctx context.Context, teacherID int64, code string) (*model.Room, error) {
	return s.advance(ctx, teacherID, code, model.RoomStatusActive, model.RoomStatusEnded, realtime.EventEndExam)
}

func (s *RoomService) advance(ctx context.Context, teacherID int64, code string, from, to model.RoomStatus, event realtime.EventType) (*model.Room, error) {
	room, err := s.GetOwned(ctx, teacherID, code)
	if err != nil {
		return nil, err
	}

	ok, err := s.rooms.AdvanceStatus(ctx, room.ID, from, to)
	if err != nil {
		return nil, fmt.Errorf("advance status: %w", err)
	}
	if !ok {
		return nil, ErrInvalidTransition
	}
	room.Status = to

	s.log.Info().
		Str("room_code", code).
		Str("status", string(to)).
		Msg("Room transitioned")

	s.bus.Publish(ctx, event, code, 0)
	return room, nil
}

// SetPublish flips the publish_analysis flag and hints clients that
// statistics visibility changed.
func (s *RoomService) SetPublish(ctx context.Context, teacherID int64, code string, publish bool) (*model.Room, error) {
	room, err := s.GetOwned(ctx, teacherID, code)
	if err != nil {
		return nil, err
	}

	if err := s.rooms.SetPublish(ctx, room.ID, publish); err != nil {
		return nil, fmt.Errorf("set publish: %w", err)
	}
	room.PublishAnalysis = publish

	s.bus.Publish(ctx, realtime.EventStatistics, code, 0)
	return room, nil
}

// BanStudent adds the student to the room's ban list. Banning blocks future
// joins; an in-progress attempt keeps running (the teacher can end the room
// to stop it).
func (s *RoomService) BanStudent(ctx context.Context, teacherID int64, code string, studentID int64) error {
	room, err := s.GetOwned(ctx, teacherID, code)
	if err != nil {
		return err
	}
	return s.rooms.AddToBanList(ctx, room.ID, studentID)
}

// UnbanStudent removes the student from the room's ban list.
func (s *RoomService) UnbanStudent(ctx context.Context, teacherID int64, code string, studentID int64) error {
	room, err := s.GetOwned(ctx, teacherID, code)
	if err != nil {
		return err
	}
	return s.rooms.RemoveFromBanList(ctx, room.ID, studentID)
}

// SetAllowList replaces the room's allow list. An empty list lifts the
// restriction.
func (s *RoomService) SetAllowList(ctx context.Context, teacherID int64, code string, studentIDs []int64) error {
	room, err := s.GetOwned(ctx, teacherID, code)
	if err != nil {
		return err
	}
	return s.rooms.SetAllowList(ctx, room.ID, studentIDs)
}
