package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
	"syscall"

	"github.com/courseloop/examroom-backend/internal/config"
	"github.com/courseloop/examroom-backend/internal/database"
	"github.com/courseloop/examroom-backend/internal/logger"
	"github.com/courseloop/examroom-backend/internal/model"
	"github.com/courseloop/examroom-backend/internal/repository"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/term"
)

// seed-demo creates a teacher account with a chosen password, a handful of
// student accounts (password "student123") and one active demo quiz, so a
// fresh install has something to open a room against.
func main() {
	// ─── Load Configuration ────────────────────────────────────────────
	cfg := config.Load()

	// ─── Initialize Logger ─────────────────────────────────────────────
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)

	ctx := context.Background()

	// ─── Connect to PostgreSQL ─────────────────────────────────────────
	pool, err := database.NewPostgresPool(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pool.Close()

	userRepo := repository.NewUserRepository(pool)
	quizRepo := repository.NewQuizRepository(pool)

	// ─── CLI Input ─────────────────────────────────────────────────────
	reader := bufio.NewReader(os.Stdin)

	fmt.Println("=== Seed Demo Data ===")

	fmt.Print("Teacher Name: ")
	name, _ := reader.ReadString('\n')
	name = strings.TrimSpace(name)
	if name == "" {
		fmt.Println("Error: Name is required")
		return
	}

	fmt.Print("Teacher Email: ")
	email, _ := reader.ReadString('\n')
	email = strings.TrimSpace(email)
	if email == "" {
		fmt.Println("Error: Email is required")
		return
	}

	fmt.Print("Teacher Password: ")
	bytePassword, err := term.ReadPassword(int(syscall.Stdin))
	if err != nil {
		fmt.Println("\nError reading password")
		return
	}
	password := string(bytePassword)
	fmt.Println()
	if len(password) < 6 {
		fmt.Println("Error: Password must be at least 6 characters")
		return
	}

	// ─── Teacher ───────────────────────────────────────────────────────
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), cfg.BcryptCost)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to hash password")
	}

	teacher := &model.User{
		Role:         model.UserRoleTeacher,
		Name:         name,
		Email:        email,
		PasswordHash: string(hashed),
	}
	if err := userRepo.Insert(ctx, teacher); err != nil {
		log.Fatal().Err(err).Msg("Failed to create teacher")
	}
	fmt.Printf("Created teacher '%s' (%s) with ID %d\n", teacher.Name, teacher.Email, teacher.ID)

	// ─── Students ──────────────────────────────────────────────────────
	studentHash, err := bcrypt.GenerateFromPassword([]byte("student123"), cfg.BcryptCost)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to hash student password")
	}

	for i := 1; i <= 5; i++ {
		student := &model.User{
			Role:         model.UserRoleStudent,
			Name:         fmt.Sprintf("Demo Student %d", i),
			Email:        fmt.Sprintf("student%d@demo.local", i),
			PasswordHash: string(studentHash),
		}
		if err := userRepo.Insert(ctx, student); err != nil {
			log.Fatal().Err(err).Int("n", i).Msg("Failed to create student")
		}
		fmt.Printf("Created student '%s' with ID %d (password: student123)\n", student.Name, student.ID)
	}

	// ─── Demo Quiz ─────────────────────────────────────────────────────
	quiz := &model.Quiz{
		TeacherID: teacher.ID,
		Title:     "Demo: Fractions Basics",
		Status:    model.QuizStatusActive,
		Questions: []model.Question{
			{
				ID:           uuid.New(),
				Type:         model.QuestionTypeMultipleChoice,
				Text:         "What is 1/2 + 1/4?",
				Options:      []string{"1/4", "3/4", "2/6", "1/6"},
				CorrectIndex: 1,
				Points:       2,
			},
			{
				ID:           uuid.New(),
				Type:         model.QuestionTypeMultipleChoice,
				Text:         "What is 2/3 of 9?",
				Options:      []string{"3", "6", "9"},
				CorrectIndex: 1,
				Points:       3,
			},
			{
				ID:       uuid.New(),
				Type:     model.QuestionTypeEssay,
				Text:     "Explain why fractions need a common denominator before adding.",
				MaxWords: 200,
				Points:   5,
			},
		},
	}
	if err := quizRepo.Insert(ctx, quiz); err != nil {
		log.Fatal().Err(err).Msg("Failed to create demo quiz")
	}

	fmt.Printf("\nSuccess! Demo quiz '%s' created with ID %s\n", quiz.Title, quiz.ID)
}
