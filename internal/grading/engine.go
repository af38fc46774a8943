// Package grading scores learner submissions against an assignment's question
// bank. Everything here is a pure function of its inputs: no I/O, no shared
// state, no errors. Malformed input degrades to zero-score or manual-review
// outcomes instead of failing.
package grading

import "strings"

const noQuestionsFeedback = "No questions found in assignment"

// IsAutoGradeable reports whether q can be scored without an instructor:
// multiple choice or true/false with a canonical answer present.
func IsAutoGradeable(q Question) bool {
	if q.Kind != KindMultipleChoice && q.Kind != KindTrueFalse {
		return false
	}
	return q.HasCorrectAnswer()
}

// CheckAnswer reports whether submitted matches the question's correct answer.
// Comparison is a case-insensitive match of the rendered values. A list value
// is rendered to a single string; multi-select is not matched as a set.
func CheckAnswer(q Question, submitted Value) bool {
	if !q.HasCorrectAnswer() {
		return false
	}

	switch q.Kind {
	case KindMultipleChoice, KindTrueFalse:
		return normalize(submitted) == normalize(*q.CorrectAnswer)
	default:
		return false
	}
}

func normalize(v Value) string {
	return strings.ToLower(v.String())
}

// Grade scores answers against the assignment. Iteration is anchored on the
// assignment's questions in stored order: every question gets exactly one
// entry in PerQuestion, and answers whose question id matches nothing are
// ignored. MaxScore is the assignment's declared TotalPoints.
func Grade(a Assignment, answers []Answer) GradeResult {
	if len(a.Questions) == 0 {
		return GradeResult{
			Score:         0,
			MaxScore:      a.TotalPoints,
			AutoGradeable: false,
			PerQuestion:   []QuestionResult{},
			Feedback:      noQuestionsFeedback,
		}
	}

	byQuestion := indexAnswers(answers)
	results := make([]QuestionResult, 0, len(a.Questions))
	score := 0
	autoGradeable := false

	for _, q := range a.Questions {
		gradeable := IsAutoGradeable(q)
		if gradeable {
			autoGradeable = true
		}

		r := QuestionResult{
			QuestionID:        q.ID,
			QuestionText:      q.Text,
			QuestionKind:      q.Kind,
			PointsPossible:    q.Points,
			IsAutoGradeable:   gradeable,
			NeedsManualReview: true,
		}
		if q.CorrectAnswer != nil {
			c := q.CorrectAnswer.clone()
			r.CorrectAnswer = &c
		}

		if ans, ok := byQuestion[q.ID]; ok {
			r.SubmittedValue = ans.Value.clone()
			r.NeedsManualReview = !gradeable
			if gradeable && CheckAnswer(q, ans.Value) {
				r.IsCorrect = true
				r.PointsEarned = q.Points
				score += q.Points
			}
		}

		results = append(results, r)
	}

	return GradeResult{
		Score:         score,
		MaxScore:      a.TotalPoints,
		AutoGradeable: autoGradeable,
		PerQuestion:   results,
		Feedback:      GenerateFeedback(results, float64(score), float64(a.TotalPoints)),
	}
}

// indexAnswers maps question id to the first answer submitted for it.
func indexAnswers(answers []Answer) map[string]Answer {
	byQuestion := make(map[string]Answer, len(answers))
	for _, ans := range answers {
		if _, seen := byQuestion[ans.QuestionID]; !seen {
			byQuestion[ans.QuestionID] = ans
		}
	}
	return byQuestion
}
