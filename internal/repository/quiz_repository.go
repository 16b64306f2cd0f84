package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/courseloop/examroom-backend/internal/model"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// QuizRepository reads quiz definitions. Quizzes are authored by the main
// platform; the room engine never writes them.
type QuizRepository struct {
	pool *pgxpool.Pool
}

// NewQuizRepository creates a new QuizRepository.
func NewQuizRepository(pool *pgxpool.Pool) *QuizRepository {
	return &QuizRepository{pool: pool}
}

// Insert creates a quiz. Used by the seed tool; the server reads only.
func (r *QuizRepository) Insert(ctx context.Context, quiz *model.Quiz) error {
	questions, err := json.Marshal(quiz.Questions)
	if err != nil {
		return fmt.Errorf("marshal questions: %w", err)
	}
	return r.pool.QueryRow(ctx,
		`INSERT INTO quizzes (teacher_id, title, status, questions)
		 VALUES ($1, $2, $3, $4)
		 RETURNING id, created_at`,
		quiz.TeacherID, quiz.Title, quiz.Status, questions,
	).Scan(&quiz.ID, &quiz.CreatedAt)
}

// GetByID retrieves a quiz with its full ordered question list.
func (r *QuizRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Quiz, error) {
	quiz := &model.Quiz{}
	var questions []byte
	err := r.pool.QueryRow(ctx,
		`SELECT id, teacher_id, title, status, questions, created_at
		 FROM quizzes WHERE id = $1`, id,
	).Scan(&quiz.ID, &quiz.TeacherID, &quiz.Title, &quiz.Status, &questions, &quiz.CreatedAt)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(questions, &quiz.Questions); err != nil {
		return nil, fmt.Errorf("unmarshal questions: %w", err)
	}
	return quiz, nil
}
