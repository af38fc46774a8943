package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/stemsi/coursegrade/internal/model"
	"github.com/stemsi/coursegrade/internal/response"
	"github.com/stemsi/coursegrade/internal/service"
	"github.com/stemsi/coursegrade/internal/validator"
)

// SubmissionHandler handles submitting and grading endpoints.
type SubmissionHandler struct {
	submissionService *service.SubmissionService
}

// NewSubmissionHandler creates a new SubmissionHandler.
func NewSubmissionHandler(submissionService *service.SubmissionService) *SubmissionHandler {
	return &SubmissionHandler{submissionService: submissionService}
}

// ─── Student ────────────────────────────────────────────────────────

// SubmitAssignment godoc
// POST /api/v1/student/assignments/:id/submit
// Stores the answers and auto-grades them right away.
func (h *SubmissionHandler) SubmitAssignment(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	id, ok := paramUUID(c, "id")
	if !ok {
		return
	}

	var req model.SubmitAssignmentRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	result, err := h.submissionService.Submit(c.Request.Context(), actor.ID, id, req.GradingAnswers())
	if err != nil {
		failFromError(c, err)
		return
	}

	response.Success(c, http.StatusCreated, result)
}

// GetMySubmission godoc
// GET /api/v1/student/assignments/:id/submission
func (h *SubmissionHandler) GetMySubmission(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	id, ok := paramUUID(c, "id")
	if !ok {
		return
	}

	sub, err := h.submissionService.GetOwn(c.Request.Context(), actor.ID, id)
	if err != nil {
		failFromError(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"submission": sub})
}

// ListMySubmissions godoc
// GET /api/v1/student/submissions
func (h *SubmissionHandler) ListMySubmissions(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}

	subs, err := h.submissionService.ListOwn(c.Request.Context(), actor.ID)
	if err != nil {
		failFromError(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"submissions": subs})
}

// ─── Instructor ─────────────────────────────────────────────────────

// ListAssignmentSubmissions godoc
// GET /api/v1/instructor/assignments/:id/submissions
func (h *SubmissionHandler) ListAssignmentSubmissions(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	id, ok := paramUUID(c, "id")
	if !ok {
		return
	}

	subs, err := h.submissionService.ListForAssignment(c.Request.Context(), actor, id)
	if err != nil {
		failFromError(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"submissions": subs})
}

// AutoGradeAll godoc
// POST /api/v1/instructor/assignments/:id/auto-grade
// Queues every ungraded submission for the grading worker.
func (h *SubmissionHandler) AutoGradeAll(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	id, ok := paramUUID(c, "id")
	if !ok {
		return
	}

	result, err := h.submissionService.EnqueueAutoGradeAll(c.Request.Context(), actor, id)
	if err != nil {
		failFromError(c, err)
		return
	}

	response.Success(c, http.StatusAccepted, result)
}

// PreviewGrade godoc
// POST /api/v1/instructor/assignments/:id/preview
// Grades the posted answers without storing anything.
func (h *SubmissionHandler) PreviewGrade(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	id, ok := paramUUID(c, "id")
	if !ok {
		return
	}

	var req model.PreviewGradeRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	result, err := h.submissionService.Preview(c.Request.Context(), actor, id, req.GradingAnswers())
	if err != nil {
		failFromError(c, err)
		return
	}

	response.Success(c, http.StatusOK, result)
}

// AutoGradeSubmission godoc
// POST /api/v1/instructor/submissions/:submission_id/auto-grade
func (h *SubmissionHandler) AutoGradeSubmission(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	id, ok := paramUUID(c, "submission_id")
	if !ok {
		return
	}

	sub, err := h.submissionService.AutoGrade(c.Request.Context(), actor, id)
	if err != nil {
		failFromError(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"submission": sub})
}

// GradeSubmission godoc
// PUT /api/v1/instructor/submissions/:submission_id/grade
// Records a manual grade and feedback.
func (h *SubmissionHandler) GradeSubmission(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	id, ok := paramUUID(c, "submission_id")
	if !ok {
		return
	}

	var req model.ManualGradeRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	sub, err := h.submissionService.ManualGrade(c.Request.Context(), actor, id, *req.Score, req.Feedback)
	if err != nil {
		failFromError(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"submission": sub})
}
