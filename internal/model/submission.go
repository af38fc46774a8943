package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/stemsi/coursegrade/internal/grading"
)

// SubmissionStatus enumerates submission states.
type SubmissionStatus string

const (
	SubmissionStatusSubmitted SubmissionStatus = "submitted"
	SubmissionStatusLate      SubmissionStatus = "late"
	SubmissionStatusGraded    SubmissionStatus = "graded"
)

// Submission is one student's answers to one assignment.
type Submission struct {
	ID           uuid.UUID        `json:"id"`
	AssignmentID uuid.UUID        `json:"assignment_id"`
	StudentID    int              `json:"student_id"`
	Answers      []grading.Answer `json:"answers"`
	Status       SubmissionStatus `json:"status"`
	// IsLate is kept after grading moves Status on to graded.
	IsLate     bool     `json:"is_late"`
	Score      *float64 `json:"score,omitempty"`
	MaxScore   int      `json:"max_score"`
	Feedback   string   `json:"feedback,omitempty"`
	AutoGraded bool     `json:"auto_graded"`
	// Result is the latest engine output; provisional until Status is graded.
	Result      *grading.GradeResult `json:"result,omitempty"`
	GradedBy    *int                 `json:"graded_by,omitempty"`
	SubmittedAt time.Time            `json:"submitted_at"`
	GradedAt    *time.Time           `json:"graded_at,omitempty"`
}

// IsGraded reports whether the submission has a final grade.
func (s *Submission) IsGraded() bool {
	return s.Status == SubmissionStatusGraded
}

// ForStudent hides the provisional grading result until the grade is final.
func (s Submission) ForStudent() Submission {
	if !s.IsGraded() {
		s.Result = nil
		s.Score = nil
		s.Feedback = ""
	}
	return s
}

// AnswerRequest is one answer in a submit/preview payload.
type AnswerRequest struct {
	QuestionID string        `json:"question_id" binding:"required,max=64"`
	Value      grading.Value `json:"value"`
}

// SubmitAssignmentRequest is the payload a student posts to submit.
type SubmitAssignmentRequest struct {
	Answers []AnswerRequest `json:"answers" binding:"max=500,dive"`
}

// GradingAnswers converts the request answers to engine answers.
func (r SubmitAssignmentRequest) GradingAnswers() []grading.Answer {
	return toGradingAnswers(r.Answers)
}

// PreviewGradeRequest grades arbitrary answers without storing anything.
type PreviewGradeRequest struct {
	Answers []AnswerRequest `json:"answers" binding:"max=500,dive"`
}

// GradingAnswers converts the request answers to engine answers.
func (r PreviewGradeRequest) GradingAnswers() []grading.Answer {
	return toGradingAnswers(r.Answers)
}

// ManualGradeRequest is the payload an instructor posts to grade by hand.
type ManualGradeRequest struct {
	Score    *float64 `json:"score" binding:"required,min=0"`
	Feedback string   `json:"feedback" binding:"max=5000"`
}

func toGradingAnswers(in []AnswerRequest) []grading.Answer {
	out := make([]grading.Answer, 0, len(in))
	for _, a := range in {
		out = append(out, grading.Answer{QuestionID: a.QuestionID, Value: a.Value})
	}
	return out
}
