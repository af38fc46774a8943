package service

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stemsi/coursegrade/internal/grading"
	"github.com/stemsi/coursegrade/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr(v grading.Value) *grading.Value { return &v }

func quizAssignment(withEssay bool) *model.Assignment {
	a := &model.Assignment{
		ID:          uuid.New(),
		TotalPoints: 20,
		IsPublished: true,
		Questions: []grading.Question{
			{ID: "q1", Kind: grading.KindMultipleChoice, CorrectAnswer: ptr(grading.StringValue("B")), Points: 10},
			{ID: "q2", Kind: grading.KindTrueFalse, CorrectAnswer: ptr(grading.BoolValue(true)), Points: 10},
		},
	}
	if withEssay {
		a.TotalPoints = 30
		a.Questions = append(a.Questions, grading.Question{ID: "q3", Kind: grading.KindEssay, Points: 10})
	}
	return a
}

func newSubmission(a *model.Assignment, answers ...grading.Answer) *model.Submission {
	return &model.Submission{
		ID:           uuid.New(),
		AssignmentID: a.ID,
		StudentID:    7,
		Answers:      answers,
		Status:       model.SubmissionStatusSubmitted,
	}
}

func TestBuildGradeUpdate_FinalOnSubmitWhenFullyAutomatic(t *testing.T) {
	a := quizAssignment(false)
	sub := newSubmission(a,
		grading.Answer{QuestionID: "q1", Value: grading.StringValue("b")},
		grading.Answer{QuestionID: "q2", Value: grading.StringValue("false")},
	)
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	u := BuildGradeUpdate(a, sub, 0, now)

	assert.Equal(t, model.SubmissionStatusGraded, u.Status)
	require.NotNil(t, u.Score)
	assert.Equal(t, 10.0, *u.Score)
	assert.Equal(t, 20, u.MaxScore)
	assert.True(t, u.AutoGraded)
	assert.Equal(t, 0, u.GradedBy)
	require.NotNil(t, u.Result)
	assert.Equal(t, u.Result.Feedback, u.Feedback)
	assert.Contains(t, u.Feedback, "Auto-graded: 10/20 points (50.0%)")
}

func TestBuildGradeUpdate_ProvisionalWhenEssayPresent(t *testing.T) {
	a := quizAssignment(true)
	sub := newSubmission(a, grading.Answer{QuestionID: "q1", Value: grading.StringValue("B")})
	sub.Status = model.SubmissionStatusLate

	u := BuildGradeUpdate(a, sub, 0, time.Now())

	assert.Equal(t, model.SubmissionStatusLate, u.Status)
	assert.Nil(t, u.Score)
	assert.Empty(t, u.Feedback)
	assert.False(t, u.AutoGraded)
	require.NotNil(t, u.Result)
	assert.Equal(t, 10, u.Result.Score)
	assert.True(t, u.Result.RequiresManualReview())
}

func TestBuildGradeUpdate_InstructorRequestFinalizes(t *testing.T) {
	a := quizAssignment(true)
	sub := newSubmission(a, grading.Answer{QuestionID: "q2", Value: grading.BoolValue(true)})

	u := BuildGradeUpdate(a, sub, 42, time.Now())

	assert.Equal(t, model.SubmissionStatusGraded, u.Status)
	require.NotNil(t, u.Score)
	assert.Equal(t, 10.0, *u.Score)
	assert.Equal(t, 30, u.MaxScore)
	assert.Equal(t, 42, u.GradedBy)
	assert.Contains(t, u.Feedback, "1 essay question(s) require manual grading")
}

func TestBuildGradeUpdate_ProvisionalResetsStaleGradedStatus(t *testing.T) {
	a := quizAssignment(true)
	sub := newSubmission(a)
	sub.Status = model.SubmissionStatusGraded

	u := BuildGradeUpdate(a, sub, 0, time.Now())
	assert.Equal(t, model.SubmissionStatusSubmitted, u.Status)
}

func TestBuildGradeUpdate_ProvisionalResetKeepsLateness(t *testing.T) {
	a := quizAssignment(true)
	sub := newSubmission(a)
	sub.Status = model.SubmissionStatusGraded
	sub.IsLate = true

	u := BuildGradeUpdate(a, sub, 0, time.Now())
	assert.Equal(t, model.SubmissionStatusLate, u.Status)
}

func TestBuildGradeUpdate_PinsSubmittedAt(t *testing.T) {
	a := quizAssignment(false)
	sub := newSubmission(a, grading.Answer{QuestionID: "q1", Value: grading.StringValue("B")})
	sub.SubmittedAt = time.Date(2026, 2, 28, 23, 59, 0, 0, time.UTC)

	u := BuildGradeUpdate(a, sub, 0, time.Now())
	assert.Equal(t, sub.SubmittedAt, u.SubmittedAt)
	assert.False(t, u.OnlyUngraded, "only the batch worker refuses to overwrite graded rows")
}

func TestBuildGradeUpdate_UnansweredQuestionStillFinalizes(t *testing.T) {
	a := quizAssignment(false)
	sub := newSubmission(a, grading.Answer{QuestionID: "q2", Value: grading.BoolValue(true)})

	u := BuildGradeUpdate(a, sub, 0, time.Now())

	assert.Equal(t, model.SubmissionStatusGraded, u.Status)
	require.NotNil(t, u.Score)
	assert.Equal(t, 10.0, *u.Score)
	assert.True(t, u.Result.RequiresManualReview())
	assert.False(t, u.Result.HasManualQuestions())
}

func TestApplyGradeUpdate(t *testing.T) {
	a := quizAssignment(false)
	sub := newSubmission(a, grading.Answer{QuestionID: "q1", Value: grading.StringValue("B")})
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	ApplyGradeUpdate(sub, BuildGradeUpdate(a, sub, 9, now))

	assert.True(t, sub.IsGraded())
	require.NotNil(t, sub.GradedBy)
	assert.Equal(t, 9, *sub.GradedBy)
	require.NotNil(t, sub.GradedAt)
	assert.Equal(t, now, *sub.GradedAt)

	provisional := newSubmission(quizAssignment(true))
	ApplyGradeUpdate(provisional, BuildGradeUpdate(quizAssignment(true), provisional, 0, now))
	assert.Nil(t, provisional.GradedBy)
	assert.Nil(t, provisional.GradedAt)
	assert.NotNil(t, provisional.Result)
}

func TestSubmission_ForStudentHidesProvisionalGrade(t *testing.T) {
	a := quizAssignment(true)
	sub := newSubmission(a, grading.Answer{QuestionID: "q1", Value: grading.StringValue("B")})
	ApplyGradeUpdate(sub, BuildGradeUpdate(a, sub, 0, time.Now()))

	view := sub.ForStudent()
	assert.Nil(t, view.Result)
	assert.Nil(t, view.Score)
	assert.NotNil(t, sub.Result, "input must be untouched")

	ApplyGradeUpdate(sub, BuildGradeUpdate(a, sub, 3, time.Now()))
	view = sub.ForStudent()
	assert.NotNil(t, view.Result)
	assert.NotNil(t, view.Score)
}

func TestOutcomeOf(t *testing.T) {
	assert.Equal(t, "not_gradeable", outcomeOf(grading.GradeResult{}, false))
	assert.Equal(t, "final", outcomeOf(grading.GradeResult{AutoGradeable: true}, true))
	assert.Equal(t, "provisional", outcomeOf(grading.GradeResult{AutoGradeable: true}, false))
	assert.Equal(t, "needs_review", outcomeOf(grading.GradeResult{
		AutoGradeable: true,
		PerQuestion:   []grading.QuestionResult{{NeedsManualReview: true}},
	}, false))
}

func TestNewGradingEvent(t *testing.T) {
	a := quizAssignment(true)
	sub := newSubmission(a, grading.Answer{QuestionID: "q1", Value: grading.StringValue("B")})
	ApplyGradeUpdate(sub, BuildGradeUpdate(a, sub, 0, time.Now()))

	ev := NewGradingEvent(sub, 0, time.Now())
	assert.Equal(t, a.ID.String(), ev.AssignmentID)
	assert.Equal(t, sub.ID.String(), ev.SubmissionID)
	assert.Equal(t, 10.0, ev.Score)
	assert.True(t, ev.NeedsReview)
	assert.Equal(t, "submitted", ev.Status)

	manual := 27.5
	sub.Score = &manual
	assert.Equal(t, 27.5, NewGradingEvent(sub, 5, time.Now()).Score)
}

func TestNewGradingEvent_GradedSubmissionNeedsNoReview(t *testing.T) {
	a := quizAssignment(false)
	sub := newSubmission(a, grading.Answer{QuestionID: "q1", Value: grading.StringValue("B")})
	ApplyGradeUpdate(sub, BuildGradeUpdate(a, sub, 0, time.Now()))
	require.True(t, sub.Result.RequiresManualReview())

	ev := NewGradingEvent(sub, 0, time.Now())
	assert.Equal(t, "graded", ev.Status)
	assert.False(t, ev.NeedsReview)
}
