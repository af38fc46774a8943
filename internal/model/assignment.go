package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/stemsi/coursegrade/internal/grading"
)

// Assignment is a graded exam or quiz attached to a course.
type Assignment struct {
	ID               uuid.UUID          `json:"id"`
	CourseID         uuid.UUID          `json:"course_id"`
	LessonID         *uuid.UUID         `json:"lesson_id,omitempty"`
	AuthorID         int                `json:"author_id"`
	Title            string             `json:"title"`
	Description      string             `json:"description"`
	Instructions     string             `json:"instructions,omitempty"`
	TotalPoints      int                `json:"total_points"`
	Questions        []grading.Question `json:"questions"`
	DueDate          *time.Time         `json:"due_date,omitempty"`
	TimeLimitMinutes int                `json:"time_limit_minutes,omitempty"`
	IsPublished      bool               `json:"is_published"`
	CreatedAt        time.Time          `json:"created_at"`
	UpdatedAt        time.Time          `json:"updated_at"`
}

// Grading returns the read-only view the grading engine consumes.
func (a *Assignment) Grading() grading.Assignment {
	return grading.Assignment{
		ID:          a.ID.String(),
		Title:       a.Title,
		Description: a.Description,
		TotalPoints: a.TotalPoints,
		Questions:   a.Questions,
	}
}

// IsPastDue reports whether t is after the due date, if one is set.
func (a *Assignment) IsPastDue(t time.Time) bool {
	return a.DueDate != nil && t.After(*a.DueDate)
}

// StudentAssignment is an assignment as sent to students (no correct answers).
type StudentAssignment struct {
	ID               uuid.UUID           `json:"id"`
	CourseID         uuid.UUID           `json:"course_id"`
	LessonID         *uuid.UUID          `json:"lesson_id,omitempty"`
	Title            string              `json:"title"`
	Description      string              `json:"description"`
	Instructions     string              `json:"instructions,omitempty"`
	TotalPoints      int                 `json:"total_points"`
	Questions        []QuestionForStudent `json:"questions"`
	DueDate          *time.Time          `json:"due_date,omitempty"`
	TimeLimitMinutes int                 `json:"time_limit_minutes,omitempty"`
}

// QuestionForStudent is a question without the correct answer.
type QuestionForStudent struct {
	ID      string               `json:"id"`
	Text    string               `json:"text"`
	Kind    grading.QuestionKind `json:"kind"`
	Options []string             `json:"options,omitempty"`
	Points  int                  `json:"points"`
}

// QuestionRequest is one question in an assignment create/update payload.
// An empty ID asks the server to assign one.
type QuestionRequest struct {
	ID            string         `json:"id" binding:"omitempty,max=64"`
	Text          string         `json:"text" binding:"required,min=1,max=2000"`
	Kind          string         `json:"kind" binding:"required,question_kind"`
	Options       []string       `json:"options" binding:"omitempty,max=20,dive,max=500"`
	CorrectAnswer *grading.Value `json:"correct_answer"`
	Points        int            `json:"points" binding:"min=0,max=1000"`
}

// CreateAssignmentRequest is the payload for creating an assignment.
type CreateAssignmentRequest struct {
	CourseID         uuid.UUID         `json:"course_id" binding:"required"`
	LessonID         *uuid.UUID        `json:"lesson_id" binding:"omitempty"`
	Title            string            `json:"title" binding:"required,min=3,max=255"`
	Description      string            `json:"description" binding:"max=5000"`
	Instructions     string            `json:"instructions" binding:"max=5000"`
	TotalPoints      int               `json:"total_points" binding:"min=0,max=100000"`
	Questions        []QuestionRequest `json:"questions" binding:"omitempty,max=500,dive"`
	DueDate          *time.Time        `json:"due_date" binding:"omitempty"`
	TimeLimitMinutes int               `json:"time_limit_minutes" binding:"min=0,max=600"`
	IsPublished      bool              `json:"is_published"`
}

// UpdateAssignmentRequest is the payload for updating an assignment.
// Nil fields are left unchanged; a non-nil Questions replaces the whole bank.
type UpdateAssignmentRequest struct {
	Title            *string            `json:"title" binding:"omitempty,min=3,max=255"`
	Description      *string            `json:"description" binding:"omitempty,max=5000"`
	Instructions     *string            `json:"instructions" binding:"omitempty,max=5000"`
	TotalPoints      *int               `json:"total_points" binding:"omitempty,min=0,max=100000"`
	Questions        *[]QuestionRequest `json:"questions" binding:"omitempty,max=500,dive"`
	DueDate          *time.Time         `json:"due_date" binding:"omitempty"`
	TimeLimitMinutes *int               `json:"time_limit_minutes" binding:"omitempty,min=0,max=600"`
	IsPublished      *bool              `json:"is_published"`
}
