package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/courseloop/examroom-backend/internal/model"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const submissionColumns = `id, room_id, student_id, quiz_id, answers, score,
	total_points, percentage, status, started_at, submitted_at,
	time_spent_seconds, violation_count, violations`

// SubmissionRepository handles submission data access.
type SubmissionRepository struct {
	pool *pgxpool.Pool
}

// NewSubmissionRepository creates a new SubmissionRepository.
func NewSubmissionRepository(pool *pgxpool.Pool) *SubmissionRepository {
	return &SubmissionRepository{pool: pool}
}

// CreateCapped inserts a new in-progress submission, enforcing the room's
// participant cap and the (room, student) uniqueness in one serialized step.
// An advisory transaction lock on the room id makes the capacity check and
// the insert a single critical section, so two students racing for the last
// slot cannot both be admitted. Returns created=false with a nil error when
// the insert did not happen, either because the student already has a submission
// (ON CONFLICT) or the room is at capacity; the caller tells those apart by
// fetching the existing row.
func (r *SubmissionRepository) CreateCapped(ctx context.Context, s *model.Submission, maxParticipants *int) (bool, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return false, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx,
		`SELECT pg_advisory_xact_lock(hashtextextended($1, 0))`,
		s.RoomID.String()); err != nil {
		return false, fmt.Errorf("acquire room lock: %w", err)
	}

	if maxParticipants != nil {
		var count int
		if err := tx.QueryRow(ctx,
			`SELECT COUNT(*) FROM submissions WHERE room_id = $1`, s.RoomID,
		).Scan(&count); err != nil {
			return false, fmt.Errorf("count participants: %w", err)
		}
		if count >= *maxParticipants {
			return false, tx.Commit(ctx)
		}
	}

	err = tx.QueryRow(ctx,
		`INSERT INTO submissions (room_id, student_id, quiz_id, answers, status)
		 VALUES ($1, $2, $3, '[]'::jsonb, $4)
		 ON CONFLICT (room_id, student_id) DO NOTHING
		 RETURNING id, started_at`,
		s.RoomID, s.StudentID, s.QuizID, model.SubmissionStatusInProgress,
	).Scan(&s.ID, &s.StartedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		// Concurrent duplicate join; the existing row wins.
		return false, tx.Commit(ctx)
	}
	if err != nil {
		return false, fmt.Errorf("insert submission: %w", err)
	}

	s.Status = model.SubmissionStatusInProgress
	return true, tx.Commit(ctx)
}

// GetByRoomAndStudent retrieves the unique submission for a (room, student) pair.
func (r *SubmissionRepository) GetByRoomAndStudent(ctx context.Context, roomID uuid.UUID, studentID int64) (*model.Submission, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+submissionColumns+` FROM submissions
		 WHERE room_id = $1 AND student_id = $2`, roomID, studentID)
	return scanSubmission(row)
}

// GetByID retrieves a submission by id.
func (r *SubmissionRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Submission, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+submissionColumns+` FROM submissions WHERE id = $1`, id)
	return scanSubmission(row)
}

// CountByRoom returns the number of submissions (any status) in a room.
func (r *SubmissionRepository) CountByRoom(ctx context.Context, roomID uuid.UUID) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM submissions WHERE room_id = $1`, roomID).Scan(&count)
	return count, err
}

// ListByRoom retrieves every submission of a room, join order.
func (r *SubmissionRepository) ListByRoom(ctx context.Context, roomID uuid.UUID) ([]model.Submission, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+submissionColumns+` FROM submissions
		 WHERE room_id = $1 ORDER BY started_at ASC`, roomID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var subs []model.Submission
	for rows.Next() {
		sub, err := scanSubmission(rows)
		if err != nil {
			return nil, err
		}
		subs = append(subs, *sub)
	}
	return subs, rows.Err()
}

// Finalize writes the scored result and advances status out of IN_PROGRESS.
// The status precondition is part of the WHERE clause: a second submit, or a
// submit racing the auto-submit worker, updates zero rows and returns false
// with the stored score untouched.
func (r *SubmissionRepository) Finalize(ctx context.Context, id uuid.UUID, result *model.Submission, to model.SubmissionStatus) (bool, error) {
	answers, err := json.Marshal(result.Answers)
	if err != nil {
		return false, fmt.Errorf("marshal answers: %w", err)
	}

	tag, err := r.pool.Exec(ctx,
		`UPDATE submissions
		 SET answers = $1, score = $2, total_points = $3, percentage = $4,
		     status = $5, submitted_at = $6, time_spent_seconds = $7
		 WHERE id = $8 AND status = $9`,
		answers, result.Score, result.TotalPoints, result.Percentage,
		to, result.SubmittedAt, result.TimeSpentSeconds,
		id, model.SubmissionStatusInProgress)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

// UpdateGrading persists manually-graded answers and the recomputed totals,
// advancing the submission to GRADED. Only finished submissions qualify;
// regrading an already GRADED submission is permitted.
func (r *SubmissionRepository) UpdateGrading(ctx context.Context, id uuid.UUID, answers []model.SubmissionAnswer, score float64, percentage int) (bool, error) {
	raw, err := json.Marshal(answers)
	if err != nil {
		return false, fmt.Errorf("marshal answers: %w", err)
	}

	tag, err := r.pool.Exec(ctx,
		`UPDATE submissions
		 SET answers = $1, score = $2, percentage = $3, status = $4
		 WHERE id = $5 AND status = ANY($6)`,
		raw, score, percentage, model.SubmissionStatusGraded, id,
		[]model.SubmissionStatus{
			model.SubmissionStatusSubmitted,
			model.SubmissionStatusAutoSubmitted,
			model.SubmissionStatusGraded,
		})
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

// ExpiredAttempt identifies an in-progress submission past its deadline.
type ExpiredAttempt struct {
	SubmissionID    uuid.UUID
	RoomID          uuid.UUID
	RoomCode        string
	StudentID       int64
	QuizID          uuid.UUID
	StartedAt       time.Time
	DurationSeconds int
}

// ListExpired returns in-progress submissions whose room duration has fully
// elapsed, oldest first. Bounded so one worker tick stays cheap.
func (r *SubmissionRepository) ListExpired(ctx context.Context, now time.Time, limit int) ([]ExpiredAttempt, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT s.id, s.room_id, r.room_code, s.student_id, s.quiz_id,
		        s.started_at, r.duration_seconds
		 FROM submissions s
		 JOIN rooms r ON r.id = s.room_id
		 WHERE s.status = $1
		   AND s.started_at + make_interval(secs => r.duration_seconds) <= $2
		 ORDER BY s.started_at ASC
		 LIMIT $3`,
		model.SubmissionStatusInProgress, now, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var expired []ExpiredAttempt
	for rows.Next() {
		var e ExpiredAttempt
		if err := rows.Scan(&e.SubmissionID, &e.RoomID, &e.RoomCode, &e.StudentID,
			&e.QuizID, &e.StartedAt, &e.DurationSeconds); err != nil {
			return nil, err
		}
		expired = append(expired, e)
	}
	return expired, rows.Err()
}

// AppendViolations appends anti-cheat events to a submission's violation log
// and bumps the counter. The log lives on the submission row, so it stays
// correct across multiple server instances.
func (r *SubmissionRepository) AppendViolations(ctx context.Context, roomID uuid.UUID, studentID int64, violations []model.Violation) error {
	raw, err := json.Marshal(violations)
	if err != nil {
		return fmt.Errorf("marshal violations: %w", err)
	}

	_, err = r.pool.Exec(ctx,
		`UPDATE submissions
		 SET violations = violations || $1::jsonb,
		     violation_count = violation_count + $2
		 WHERE room_id = $3 AND student_id = $4`,
		raw, len(violations), roomID, studentID)
	return err
}

func scanSubmission(row rowScanner) (*model.Submission, error) {
	sub := &model.Submission{}
	var answers, violations []byte
	err := row.Scan(
		&sub.ID, &sub.RoomID, &sub.StudentID, &sub.QuizID, &answers,
		&sub.Score, &sub.TotalPoints, &sub.Percentage, &sub.Status,
		&sub.StartedAt, &sub.SubmittedAt, &sub.TimeSpentSeconds,
		&sub.ViolationCount, &violations,
	)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(answers, &sub.Answers); err != nil {
		return nil, fmt.Errorf("unmarshal answers: %w", err)
	}
	if len(violations) > 0 {
		if err := json.Unmarshal(violations, &sub.Violations); err != nil {
			return nil, fmt.Errorf("unmarshal violations: %w", err)
		}
	}
	return sub, nil
}
