package grading

// QuestionKind determines how an answer is captured and whether it can be
// scored automatically.
type QuestionKind string

const (
	KindMultipleChoice QuestionKind = "multiple_choice"
	KindTrueFalse      QuestionKind = "true_false"
	KindEssay          QuestionKind = "essay"
)

// Valid reports whether k is one of the known kinds.
func (k QuestionKind) Valid() bool {
	switch k {
	case KindMultipleChoice, KindTrueFalse, KindEssay:
		return true
	}
	return false
}

// Question is one item in an assignment's question bank.
type Question struct {
	ID      string       `json:"id"`
	Text    string       `json:"text"`
	Kind    QuestionKind `json:"kind"`
	Options []string     `json:"options,omitempty"`
	// CorrectAnswer is nil when the question has no canonical answer.
	CorrectAnswer *Value `json:"correct_answer,omitempty"`
	Points        int    `json:"points"`
}

// HasCorrectAnswer reports whether a canonical answer is present.
func (q Question) HasCorrectAnswer() bool {
	return q.CorrectAnswer != nil && !q.CorrectAnswer.IsZero()
}

// Assignment is the read-only question bank a submission is graded against.
// TotalPoints is the declared maximum and is never reconciled with the sum of
// question points.
type Assignment struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	TotalPoints int        `json:"total_points"`
	Questions   []Question `json:"questions"`
}

// Answer is one learner response, matched to a question by id.
type Answer struct {
	QuestionID string `json:"question_id"`
	Value      Value  `json:"value"`
}

// QuestionResult is the outcome for one question of the assignment.
type QuestionResult struct {
	QuestionID        string       `json:"question_id"`
	QuestionText      string       `json:"question_text"`
	QuestionKind      QuestionKind `json:"question_kind"`
	SubmittedValue    Value        `json:"submitted_value"`
	CorrectAnswer     *Value       `json:"correct_answer,omitempty"`
	IsCorrect         bool         `json:"is_correct"`
	PointsEarned      int          `json:"points_earned"`
	PointsPossible    int          `json:"points_possible"`
	IsAutoGradeable   bool         `json:"is_auto_gradeable"`
	NeedsManualReview bool         `json:"needs_manual_review"`
}

// GradeResult summarises one grading pass over one submission.
type GradeResult struct {
	Score         int              `json:"score"`
	MaxScore      int              `json:"max_score"`
	AutoGradeable bool             `json:"auto_gradeable"`
	PerQuestion   []QuestionResult `json:"per_question"`
	Feedback      string           `json:"feedback"`
}

// HasManualQuestions reports whether any question cannot be scored
// automatically, whatever was answered.
func (r GradeResult) HasManualQuestions() bool {
	for _, q := range r.PerQuestion {
		if !q.IsAutoGradeable {
			return true
		}
	}
	return false
}

// RequiresManualReview reports whether any question is flagged for an
// instructor: every non-auto-gradeable question and every unanswered one.
func (r GradeResult) RequiresManualReview() bool {
	for _, q := range r.PerQuestion {
		if q.NeedsManualReview {
			return true
		}
	}
	return false
}
