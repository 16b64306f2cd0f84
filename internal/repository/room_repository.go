package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/courseloop/examroom-backend/internal/model"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// RoomCodeConstraint is the unique index guarding the global room-code
// namespace. The insert-catch-retry loop in RoomService keys off it.
const RoomCodeConstraint = "rooms_room_code_key"

const roomColumns = `id, room_code, teacher_id, quiz_id, title, description,
	duration_seconds, max_participants, settings, ban_list, allow_list,
	status, publish_analysis, created_at, updated_at`

// RoomRepository handles room data access.
type RoomRepository struct {
	pool *pgxpool.Pool
}

// NewRoomRepository creates a new RoomRepository.
func NewRoomRepository(pool *pgxpool.Pool) *RoomRepository {
	return &RoomRepository{pool: pool}
}

// Insert persists a new room. A duplicate room code surfaces as a unique
// violation on RoomCodeConstraint; callers retry with a fresh code.
func (r *RoomRepository) Insert(ctx context.Context, room *model.Room) error {
	settings, err := json.Marshal(room.Settings)
	if err != nil {
		return fmt.Errorf("marshal settings: %w", err)
	}

	return r.pool.QueryRow(ctx,
		`INSERT INTO rooms (room_code, teacher_id, quiz_id, title, description,
		                    duration_seconds, max_participants, settings, status)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		 RETURNING id, created_at, updated_at`,
		room.RoomCode, room.TeacherID, room.QuizID, room.Title, room.Description,
		room.DurationSeconds, room.MaxParticipants, settings, model.RoomStatusScheduled,
	).Scan(&room.ID, &room.CreatedAt, &room.UpdatedAt)
}

// GetByCode retrieves a room by its code.
func (r *RoomRepository) GetByCode(ctx context.Context, code string) (*model.Room, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+roomColumns+` FROM rooms WHERE room_code = $1`, code)
	return scanRoom(row)
}

// GetByID retrieves a room by its UUID.
func (r *RoomRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Room, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+roomColumns+` FROM rooms WHERE id = $1`, id)
	return scanRoom(row)
}

// ListByTeacher retrieves a teacher's rooms, newest first, with pagination.
func (r *RoomRepository) ListByTeacher(ctx context.Context, teacherID int64, limit, offset int) ([]model.Room, int, error) {
	var total int
	if err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM rooms WHERE teacher_id = $1`, teacherID,
	).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.pool.Query(ctx,
		`SELECT `+roomColumns+` FROM rooms
		 WHERE teacher_id = $1
		 ORDER BY created_at DESC
		 LIMIT $2 OFFSET $3`, teacherID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var rooms []model.Room
	for rows.Next() {
		room, err := scanRoom(rows)
		if err != nil {
			return nil, 0, err
		}
		rooms = append(rooms, *room)
	}
	return rooms, total, rows.Err()
}

// AdvanceStatus moves a room from one status to the next. The old status is
// part of the WHERE clause, so a lost race or an out-of-order call updates
// zero rows and returns false.
func (r *RoomRepository) AdvanceStatus(ctx context.Context, id uuid.UUID, from, to model.RoomStatus) (bool, error) {
	tag, err := r.pool.Exec(ctx,
		`UPDATE rooms SET status = $1, updated_at = NOW()
		 WHERE id = $2 AND status = $3`,
		to, id, from)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

// SetPublish flips the publish_analysis flag.
func (r *RoomRepository) SetPublish(ctx context.Context, id uuid.UUID, publish bool) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE rooms SET publish_analysis = $1, updated_at = NOW() WHERE id = $2`,
		publish, id)
	return err
}

// AddToBanList appends a student id to the ban list if not already present.
func (r *RoomRepository) AddToBanList(ctx context.Context, id uuid.UUID, studentID int64) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE rooms
		 SET ban_list = array_append(ban_list, $1), updated_at = NOW()
		 WHERE id = $2 AND NOT ($1 = ANY(ban_list))`,
		studentID, id)
	return err
}

// RemoveFromBanList removes a student id from the ban list.
func (r *RoomRepository) RemoveFromBanList(ctx context.Context, id uuid.UUID, studentID int64) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE rooms
		 SET ban_list = array_remove(ban_list, $1), updated_at = NOW()
		 WHERE id = $2`,
		studentID, id)
	return err
}

// SetAllowList replaces the allow list wholesale. Join attempts read the
// lists in a single row fetch, so they always observe a consistent snapshot.
func (r *RoomRepository) SetAllowList(ctx context.Context, id uuid.UUID, studentIDs []int64) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE rooms SET allow_list = $1, updated_at = NOW() WHERE id = $2`,
		studentIDs, id)
	return err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRoom(row rowScanner) (*model.Room, error) {
	room := &model.Room{}
	var settings []byte
	err := row.Scan(
		&room.ID, &room.RoomCode, &room.TeacherID, &room.QuizID, &room.Title,
		&room.Description, &room.DurationSeconds, &room.MaxParticipants,
		&settings, &room.BanList, &room.AllowList, &room.Status,
		&room.PublishAnalysis, &room.CreatedAt, &room.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(settings, &room.Settings); err != nil {
		return nil, fmt.Errorf("unmarshal settings: %w", err)
	}
	return room, nil
}
