package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/stemsi/coursegrade/internal/model"
	"github.com/stemsi/coursegrade/internal/response"
	"github.com/stemsi/coursegrade/internal/service"
	"github.com/stemsi/coursegrade/internal/validator"
)

// AssignmentHandler handles assignment authoring and viewing endpoints.
type AssignmentHandler struct {
	assignmentService *service.AssignmentService
}

// NewAssignmentHandler creates a new AssignmentHandler.
func NewAssignmentHandler(assignmentService *service.AssignmentService) *AssignmentHandler {
	return &AssignmentHandler{assignmentService: assignmentService}
}

// CreateAssignment godoc
// POST /api/v1/instructor/assignments
func (h *AssignmentHandler) CreateAssignment(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}

	var req model.CreateAssignmentRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	a, err := h.assignmentService.Create(c.Request.Context(), actor, &req)
	if err != nil {
		failFromError(c, err)
		return
	}

	response.Success(c, http.StatusCreated, gin.H{"assignment": a})
}

// UpdateAssignment godoc
// PUT /api/v1/instructor/assignments/:id
// Partial update; a questions array replaces the whole question bank.
func (h *AssignmentHandler) UpdateAssignment(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	id, ok := paramUUID(c, "id")
	if !ok {
		return
	}

	var req model.UpdateAssignmentRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	a, err := h.assignmentService.Update(c.Request.Context(), actor, id, &req)
	if err != nil {
		failFromError(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"assignment": a})
}

// GetAssignment godoc
// GET /api/v1/instructor/assignments/:id
// Returns the full definition including the answer key.
func (h *AssignmentHandler) GetAssignment(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	id, ok := paramUUID(c, "id")
	if !ok {
		return
	}

	a, err := h.assignmentService.GetForInstructor(c.Request.Context(), actor, id)
	if err != nil {
		failFromError(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"assignment": a})
}

// ListCourseAssignments godoc
// GET /api/v1/instructor/courses/:course_id/assignments
func (h *AssignmentHandler) ListCourseAssignments(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	courseID, ok := paramUUID(c, "course_id")
	if !ok {
		return
	}

	list, err := h.assignmentService.ListByCourse(c.Request.Context(), actor, courseID)
	if err != nil {
		failFromError(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"assignments": list})
}

// GetGradingStats godoc
// GET /api/v1/instructor/assignments/:id/grading-stats
func (h *AssignmentHandler) GetGradingStats(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	id, ok := paramUUID(c, "id")
	if !ok {
		return
	}

	stats, err := h.assignmentService.GradingStats(c.Request.Context(), actor, id)
	if err != nil {
		failFromError(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"stats": stats})
}

// GetStudentAssignment godoc
// GET /api/v1/student/assignments/:id
// Returns a published assignment without correct answers.
func (h *AssignmentHandler) GetStudentAssignment(c *gin.Context) {
	id, ok := paramUUID(c, "id")
	if !ok {
		return
	}

	a, err := h.assignmentService.StudentView(c.Request.Context(), id)
	if err != nil {
		failFromError(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"assignment": a})
}
