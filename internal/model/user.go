package model

import "time"

// UserRole distinguishes the two principal types served by this engine.
// User records are mastered by the main platform; this service reads them
// for authentication and for naming students in statistics rows.
type UserRole string

const (
	UserRoleTeacher UserRole = "teacher"
	UserRoleStudent UserRole = "student"
)

// User is a read-mostly mirror of a platform account.
type User struct {
	ID           int64     `json:"id"`
	Role         UserRole  `json:"role"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

// LoginRequest is the payload for teacher/student login.
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=6"`
}
