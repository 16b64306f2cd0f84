package handler

import (
	"errors"
	"net/http"

	"github.com/courseloop/examroom-backend/internal/response"
	"github.com/courseloop/examroom-backend/internal/service"
	"github.com/gin-gonic/gin"
)

// failFromService maps service sentinels to HTTP statuses and response
// codes. Anything unrecognized is a 500 with no detail leaked.
func failFromService(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrRoomNotFound),
		errors.Is(err, service.ErrQuizNotFound),
		errors.Is(err, service.ErrSubmissionNotFound):
		response.Fail(c, http.StatusNotFound, response.ErrNotFound)
	case errors.Is(err, service.ErrNotOwner):
		response.Fail(c, http.StatusForbidden, response.ErrNotRoomOwner)
	case errors.Is(err, service.ErrResultsNotPublic):
		response.Fail(c, http.StatusForbidden, response.ErrResultsNotPublic)
	case errors.Is(err, service.ErrQuizNotActive):
		response.Fail(c, http.StatusBadRequest, response.ErrQuizNotActive)
	case errors.Is(err, service.ErrRoomEnded):
		response.Fail(c, http.StatusConflict, response.ErrRoomEnded)
	case errors.Is(err, service.ErrRoomNotActive):
		response.Fail(c, http.StatusConflict, response.ErrInvalidTransition)
	case errors.Is(err, service.ErrRoomFull):
		response.Fail(c, http.StatusConflict, response.ErrRoomFull)
	case errors.Is(err, service.ErrBanned):
		response.Fail(c, http.StatusForbidden, response.ErrStudentBanned)
	case errors.Is(err, service.ErrNotAllowed):
		response.Fail(c, http.StatusForbidden, response.ErrNotOnAllowList)
	case errors.Is(err, service.ErrAlreadySubmitted):
		response.Fail(c, http.StatusConflict, response.ErrAlreadySubmitted)
	case errors.Is(err, service.ErrInvalidTransition):
		response.Fail(c, http.StatusConflict, response.ErrInvalidTransition)
	case errors.Is(err, service.ErrNotGradable),
		errors.Is(err, service.ErrPointsExceedMax):
		response.Fail(c, http.StatusBadRequest, response.ErrNotGradable)
	default:
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
	}
}
