package service

import (
	"errors"

	"github.com/stemsi/coursegrade/internal/model"
)

// Domain errors shared by the assignment and submission services.
var (
	ErrNotFound               = errors.New("not found")
	ErrAssignmentNotFound     = errors.New("assignment not found")
	ErrSubmissionNotFound     = errors.New("submission not found")
	ErrNotAssignmentAuthor    = errors.New("not the author of this assignment")
	ErrAssignmentNotPublished = errors.New("assignment is not published")
	ErrNotAutoGradeable       = errors.New("assignment has no auto-gradeable questions")
	ErrDuplicateQuestionID    = errors.New("duplicate question id")
	ErrAlreadyGraded          = errors.New("submission already graded")
)

// Actor is the authenticated user performing an action. It is always passed
// explicitly so grading records who acted.
type Actor struct {
	ID   int
	Role model.Role
}

// canManage reports whether the actor may grade and edit the assignment.
func (a Actor) canManage(assignment *model.Assignment) bool {
	if a.Role == model.RoleAdmin {
		return true
	}
	return a.Role == model.RoleInstructor && assignment.AuthorID == a.ID
}
