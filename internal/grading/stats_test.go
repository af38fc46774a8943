package grading_test

import (
	"testing"

	"github.com/stemsi/coursegrade/internal/grading"
	"github.com/stretchr/testify/assert"
)

func mixedAssignment() grading.Assignment {
	return grading.Assignment{
		TotalPoints: 40,
		Questions: []grading.Question{
			multipleChoice("q1", "Paris", 10),
			trueFalse("q2", true, 5),
			essay("q3", 20),
			{ID: "q4", Kind: grading.KindMultipleChoice, Points: 5},
		},
	}
}

func TestStatsFor(t *testing.T) {
	s := grading.StatsFor(mixedAssignment())

	assert.Equal(t, grading.Stats{
		TotalQuestions:         4,
		AutoGradeableQuestions: 2,
		ManualQuestions:        2,
		AutoGradeablePoints:    15,
		ManualPoints:           25,
		TotalPoints:            40,
	}, s)
	assert.Equal(t, 15, grading.AutoGradeablePoints(mixedAssignment()))
}

func TestStatsFor_NoQuestions(t *testing.T) {
	s := grading.StatsFor(grading.Assignment{TotalPoints: 12})
	assert.Equal(t, grading.Stats{TotalPoints: 12}, s)
	assert.Equal(t, 0, grading.AutoGradeablePoints(grading.Assignment{}))
}

func TestValidateSubmission(t *testing.T) {
	a := mixedAssignment()

	complete := grading.ValidateSubmission(a, []grading.Answer{
		{QuestionID: "q1", Value: grading.StringValue("Paris")},
		{QuestionID: "q2", Value: grading.BoolValue(true)},
	})
	assert.True(t, complete.IsValid)
	assert.Empty(t, complete.Errors)

	partial := grading.ValidateSubmission(a, []grading.Answer{
		{QuestionID: "q3", Value: grading.StringValue("essay")},
	})
	assert.False(t, partial.IsValid)
	assert.Equal(t, []string{"Missing answers for 2 auto-gradeable question(s)"}, partial.Errors)
}

func TestValidateSubmission_Empty(t *testing.T) {
	v := grading.ValidateSubmission(grading.Assignment{}, nil)
	assert.False(t, v.IsValid)
	assert.Equal(t, []string{
		"Assignment has no questions",
		"Submission has no answers",
		"Assignment has no auto-gradeable questions",
	}, v.Errors)
}
