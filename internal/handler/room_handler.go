package handler

import (
	"net/http"
	"strconv"

	"github.com/courseloop/examroom-backend/internal/middleware"
	"github.com/courseloop/examroom-backend/internal/model"
	"github.com/courseloop/examroom-backend/internal/response"
	"github.com/courseloop/examroom-backend/internal/service"
	"github.com/courseloop/examroom-backend/internal/validator"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// RoomHandler handles the teacher-facing room management endpoints.
type RoomHandler struct {
	roomService  *service.RoomService
	examService  *service.ExamService
	statsService *service.StatsService
}

// NewRoomHandler creates a new RoomHandler.
func NewRoomHandler(roomService *service.RoomService, examService *service.ExamService, statsService *service.StatsService) *RoomHandler {
	return &RoomHandler{
		roomService:  roomService,
		examService:  examService,
		statsService: statsService,
	}
}

// CreateRoom godoc
// POST /api/v1/teacher/rooms
// Opens a new SCHEDULED room for one of the teacher's active quizzes.
func (h *RoomHandler) CreateRoom(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	var req model.CreateRoomRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	room, err := h.roomService.Create(c.Request.Context(), claims.UserID, &req)
	if err != nil {
		failFromService(c, err)
		return
	}

	response.Success(c, http.StatusCreated, gin.H{"room": room})
}

// ListRooms godoc
// GET /api/v1/teacher/rooms
// Lists the teacher's rooms with pagination.
func (h *RoomHandler) ListRooms(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	perPage, _ := strconv.Atoi(c.DefaultQuery("per_page", "10"))

	rooms, pagination, err := h.roomService.List(c.Request.Context(), claims.UserID, page, perPage)
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.SuccessWithPagination(c, http.StatusOK, gin.H{"rooms": rooms}, pagination)
}

// GetRoom godoc
// GET /api/v1/teacher/rooms/:code
// Returns one of the teacher's rooms by code.
func (h *RoomHandler) GetRoom(c *gin.Context) {
	claims, code, ok := h.roomRequest(c)
	if !ok {
		return
	}

	room, err := h.roomService.GetOwned(c.Request.Context(), claims.UserID, code)
	if err != nil {
		failFromService(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"room": room})
}

// StartRoom godoc
// POST /api/v1/teacher/rooms/:code/start
// Moves a room SCHEDULED → ACTIVE.
func (h *RoomHandler) StartRoom(c *gin.Context) {
	claims, code, ok := h.roomRequest(c)
	if !ok {
		return
	}

	room, err := h.roomService.Start(c.Request.Context(), claims.UserID, code)
	if err != nil {
		failFromService(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"room": room})
}

// EndRoom godoc
// POST /api/v1/teacher/rooms/:code/end
// Moves a room ACTIVE → ENDED.
func (h *RoomHandler) EndRoom(c *gin.Context) {
	claims, code, ok := h.roomRequest(c)
	if !ok {
		return
	}

	room, err := h.roomService.End(c.Request.Context(), claims.UserID, code)
	if err != nil {
		failFromService(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"room": room})
}

// SetPublish godoc
// PUT /api/v1/teacher/rooms/:code/publish
// Toggles student visibility of aggregate results.
func (h *RoomHandler) SetPublish(c *gin.Context) {
	claims, code, ok := h.roomRequest(c)
	if !ok {
		return
	}

	var req model.SetPublishRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	room, err := h.roomService.SetPublish(c.Request.Context(), claims.UserID, code, *req.Publish)
	if err != nil {
		failFromService(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"room": room})
}

// BanStudent godoc
// POST /api/v1/teacher/rooms/:code/ban
// Adds a student to the room's ban list.
func (h *RoomHandler) BanStudent(c *gin.Context) {
	claims, code, ok := h.roomRequest(c)
	if !ok {
		return
	}

	var req model.BanStudentRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	if err := h.roomService.BanStudent(c.Request.Context(), claims.UserID, code, req.StudentID); err != nil {
		failFromService(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"status": "banned"})
}

// UnbanStudent godoc
// DELETE /api/v1/teacher/rooms/:code/ban/:student_id
// Removes a student from the room's ban list.
func (h *RoomHandler) UnbanStudent(c *gin.Context) {
	claims, code, ok := h.roomRequest(c)
	if !ok {
		return
	}

	studentID, err := strconv.ParseInt(c.Param("student_id"), 10, 64)
	if err != nil || studentID < 1 {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	if err := h.roomService.UnbanStudent(c.Request.Context(), claims.UserID, code, studentID); err != nil {
		failFromService(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"status": "unbanned"})
}

// SetAllowList godoc
// PUT /api/v1/teacher/rooms/:code/allow-list
// Replaces the room's allow list; an empty list lifts the restriction.
func (h *RoomHandler) SetAllowList(c *gin.Context) {
	claims, code, ok := h.roomRequest(c)
	if !ok {
		return
	}

	var req model.SetAllowListRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	if err := h.roomService.SetAllowList(c.Request.Context(), claims.UserID, code, req.StudentIDs); err != nil {
		failFromService(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"status": "updated"})
}

// RoomStatistics godoc
// GET /api/v1/teacher/rooms/:code/statistics
// Returns the owner's full aggregate view with named per-student rows.
func (h *RoomHandler) RoomStatistics(c *gin.Context) {
	claims, code, ok := h.roomRequest(c)
	if !ok {
		return
	}

	stats, err := h.statsService.RoomStatistics(c.Request.Context(), claims.UserID, code)
	if err != nil {
		failFromService(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"statistics": stats})
}

// GradeEssay godoc
// POST /api/v1/teacher/rooms/:code/submissions/:submission_id/grade
// Applies a manual grade to one essay answer of a finished submission.
func (h *RoomHandler) GradeEssay(c *gin.Context) {
	claims, code, ok := h.roomRequest(c)
	if !ok {
		return
	}

	submissionID, err := uuid.Parse(c.Param("submission_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	var req model.GradeEssayRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	sub, err := h.examService.GradeEssay(c.Request.Context(), claims.UserID, code, submissionID, &req)
	if err != nil {
		failFromService(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"submission": sub})
}

// roomRequest pulls claims and a well-formed room code out of the request.
func (h *RoomHandler) roomRequest(c *gin.Context) (*service.Claims, string, bool) {
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
