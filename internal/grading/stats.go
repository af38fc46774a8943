package grading

import "fmt"

// Stats splits an assignment's questions and points into the automatically
// scored part and the part an instructor has to grade.
type Stats struct {
	TotalQuestions         int `json:"total_questions"`
	AutoGradeableQuestions int `json:"auto_gradeable_questions"`
	ManualQuestions        int `json:"manual_questions"`
	AutoGradeablePoints    int `json:"auto_gradeable_points"`
	ManualPoints           int `json:"manual_points"`
	TotalPoints            int `json:"total_points"`
}

// AutoGradeablePoints sums the points of every auto-gradeable question.
func AutoGradeablePoints(a Assignment) int {
	total := 0
	for _, q := range a.Questions {
		if IsAutoGradeable(q) {
			total += q.Points
		}
	}
	return total
}

// StatsFor computes grading statistics for an assignment.
func StatsFor(a Assignment) Stats {
	s := Stats{
		TotalQuestions: len(a.Questions),
		TotalPoints:    a.TotalPoints,
	}
	for _, q := range a.Questions {
		if IsAutoGradeable(q) {
			s.AutoGradeableQuestions++
			s.AutoGradeablePoints += q.Points
		} else {
			s.ManualQuestions++
			s.ManualPoints += q.Points
		}
	}
	return s
}

// Validation lists the problems found before auto-grading a submission.
// Problems are advisory; Grade accepts any input.
type Validation struct {
	IsValid bool     `json:"is_valid"`
	Errors  []string `json:"errors"`
}

// ValidateSubmission checks whether auto-grading a submission is meaningful.
func ValidateSubmission(a Assignment, answers []Answer) Validation {
	errs := []string{}

	if len(a.Questions) == 0 {
		errs = append(errs, "Assignment has no questions")
	}
	if len(answers) == 0 {
		errs = append(errs, "Submission has no answers")
	}

	answered := make(map[string]struct{}, len(answers))
	for _, ans := range answers {
		answered[ans.QuestionID] = struct{}{}
	}

	gradeable, missing := 0, 0
	for _, q := range a.Questions {
		if !IsAutoGradeable(q) {
			continue
		}
		gradeable++
		if _, ok := answered[q.ID]; !ok {
			missing++
		}
	}

	if gradeable == 0 {
		errs = append(errs, "Assignment has no auto-gradeable questions")
	}
	if missing > 0 {
		errs = append(errs, fmt.Sprintf("Missing answers for %d auto-gradeable question(s)", missing))
	}

	return Validation{IsValid: len(errs) == 0, Errors: errs}
}
