package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stemsi/coursegrade/internal/middleware"
	"github.com/stemsi/coursegrade/internal/repository"
	"github.com/stemsi/coursegrade/internal/response"
	"github.com/stemsi/coursegrade/internal/service"
)

// failFromError maps service sentinels onto the response envelope.
// Unknown errors become 500s.
func failFromError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidCredentials):
		response.Fail(c, http.StatusUnauthorized, response.ErrInvalidCredentials)
	case errors.Is(err, service.ErrAssignmentNotFound), errors.Is(err, service.ErrNotFound):
		response.Fail(c, http.StatusNotFound, response.ErrNotFound)
	case errors.Is(err, service.ErrSubmissionNotFound):
		response.Fail(c, http.StatusNotFound, response.ErrSubmissionNotFound)
	case errors.Is(err, service.ErrNotAssignmentAuthor):
		response.Fail(c, http.StatusForbidden, response.ErrNotAssignmentOwner)
	case errors.Is(err, service.ErrAssignmentNotPublished):
		response.Fail(c, http.StatusForbidden, response.ErrAssignmentNotPublished)
	case errors.Is(err, service.ErrNotAutoGradeable):
		response.Fail(c, http.StatusUnprocessableEntity, response.ErrNoQuestions)
	case errors.Is(err, service.ErrDuplicateQuestionID):
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, map[string]string{
			"questions": err.Error(),
		})
	case errors.Is(err, service.ErrInvalidRole):
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidPayload)
	case errors.Is(err, service.ErrAlreadyGraded):
		response.Fail(c, http.StatusConflict, response.ErrAlreadyGraded)
	case errors.Is(err, repository.ErrSubmissionChanged):
		response.Fail(c, http.StatusConflict, response.ErrSubmissionChanged)
	case errors.Is(err, repository.ErrDuplicateEmail):
		response.Fail(c, http.StatusConflict, response.ErrConflict)
	default:
		_ = c.Error(err)
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
	}
}

// paramUUID parses a UUID path parameter, writing a 400 on failure.
func paramUUID(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return uuid.Nil, false
	}
	return id, true
}

// requireActor returns the authenticated actor, writing a 401 when absent.
func requireActor(c *gin.Context) (service.Actor, bool) {
	actor, ok := middleware.GetActor(c)
	if !ok {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
	}
	return actor, ok
}
