package handler

import (
	"net/http"

	"github.com/courseloop/examroom-backend/internal/middleware"
	"github.com/courseloop/examroom-backend/internal/model"
	"github.com/courseloop/examroom-backend/internal/response"
	"github.com/courseloop/examroom-backend/internal/service"
	"github.com/courseloop/examroom-backend/internal/validator"
	"github.com/gin-gonic/gin"
)

// ExamHandler handles the student-facing endpoints: joining a room, taking
// the paper, submitting and reading results.
type ExamHandler struct {
	examService  *service.ExamService
	statsService *service.StatsService
}

// NewExamHandler creates a new ExamHandler.
func NewExamHandler(examService *service.ExamService, statsService *service.StatsService) *ExamHandler {
	return &ExamHandler{
		examService:  examService,
		statsService: statsService,
	}
}

// JoinRoom godoc
// POST /api/v1/student/rooms/:code/join
// Enters a room by code, creating the student's attempt on first entry.
// Rejoining is idempotent and returns the existing attempt.
func (h *ExamHandler) JoinRoom(c *gin.Context) {
	claims, code, ok := studentRequest(c)
	if !ok {
		return
	}

	room, sub, err := h.examService.Join(c.Request.Context(), code, claims.UserID)
	if err != nil {
		failFromService(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{
		"room":       roomView(room),
		"submission": sub,
	})
}

// GetPaper godoc
// GET /api/v1/student/rooms/:code/paper
// Returns the question sheet, shuffled per room settings, answer key
// stripped.
func (h *ExamHandler) GetPaper(c *gin.Context) {
	claims, code, ok := studentRequest(c)
	if !ok {
		return
	}

	room, paper, sub, err := h.examService.Paper(c.Request.Context(), code, claims.UserID)
	if err != nil {
		failFromService(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{
		"room":       roomView(room),
		"questions":  paper,
		"submission": sub,
	})
}

// SubmitExam godoc
// POST /api/v1/student/rooms/:code/submit
// Scores and finalizes the attempt. A second submit is a conflict.
func (h *ExamHandler) SubmitExam(c *gin.Context) {
	claims, code, ok := studentRequest(c)
	if !ok {
		return
	}

	var req model.SubmitExamRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	sub, err := h.examService.Submit(c.Request.Context(), code, claims.UserID, &req)
	if err != nil {
		failFromService(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"submission": sub})
}

// GetResult godoc
// GET /api/v1/student/rooms/:code/result
// Returns the student's own attempt, including per-answer scoring.
func (h *ExamHandler) GetResult(c *gin.Context) {
	claims, code, ok := studentRequest(c)
	if !ok {
		return
	}

	room, sub, err := h.examService.Result(c.Request.Context(), code, claims.UserID)
	if err != nil {
		failFromService(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{
		"room":       roomView(room),
		"submission": sub,
	})
}

// GetOverview godoc
// GET /api/v1/student/rooms/:code/overview
// Returns anonymized room aggregates once the teacher has published them.
func (h *ExamHandler) GetOverview(c *gin.Context) {
	claims, code, ok := studentRequest(c)
	if !ok {
		return
	}

	overview, err := h.statsService.StudentOverview(c.Request.Context(), claims.UserID, code)
	if err != nil {
		failFromService(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"overview": overview})
}

// roomView strips teacher-only room fields before sending a room to a
// student. Ban and allow lists never leave the teacher surface.
func roomView(room *model.Room) gin.H {
	return gin.H{
		"room_code":        room.RoomCode,
		"title":            room.Title,
		"description":      room.Description,
		"duration_seconds": room.DurationSeconds,
		"settings":         room.Settings,
		"status":           room.Status,
		"publish_analysis": room.PublishAnalysis,
	}
}

func studentRequest(c *gin.Context) (*service.Claims, string, bool) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return nil, "", false
	}

	code := c.Param("code")
	if !model.ValidRoomCode(code) {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return nil, "", false
	}
	return claims, code, true
}
