package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stemsi/coursegrade/internal/grading"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const assignmentJSON = `{
  "id": "a1",
  "title": "Capitals",
  "total_points": 20,
  "questions": [
    {"id": "q1", "text": "Capital of France?", "kind": "multiple_choice", "options": ["Paris", "Rome"], "correct_answer": "Paris", "points": 10},
    {"id": "q2", "text": "The sky is blue.", "kind": "true_false", "correct_answer": true, "points": 5},
    {"id": "q3", "text": "Explain.", "kind": "essay", "points": 5}
  ]
}`

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	root := newRootCmd()
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestGradeCommand(t *testing.T) {
	a := writeFile(t, "assignment.json", assignmentJSON)
	s := writeFile(t, "answers.json", `[{"question_id":"q1","value":"paris"},{"question_id":"q2","value":false}]`)

	out, err := run(t, "grade", "--assignment", a, "--answers", s)
	require.NoError(t, err)

	var result grading.GradeResult
	require.NoError(t, json.Unmarshal([]byte(out), &result))
	assert.Equal(t, 10, result.Score)
	assert.Equal(t, 20, result.MaxScore)
	assert.True(t, result.AutoGradeable)
	assert.True(t, result.RequiresManualReview())
	require.Len(t, result.PerQuestion, 3)
	assert.True(t, result.PerQuestion[0].IsCorrect)
	assert.False(t, result.PerQuestion[1].IsCorrect)
	assert.True(t, result.PerQuestion[2].NeedsManualReview)
}

func TestGradeCommand_FeedbackOnly(t *testing.T) {
	a := writeFile(t, "assignment.json", assignmentJSON)
	s := writeFile(t, "answers.json", `[{"question_id":"q1","value":"Paris"},{"question_id":"q2","value":true}]`)

	out, err := run(t, "grade", "-a", a, "-s", s, "--feedback")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "Auto-graded: 15/20 points (75.0%)"))
	assert.Contains(t, out, "1 essay question(s)")
}

func TestGradeCommand_Strict(t *testing.T) {
	a := writeFile(t, "assignment.json", assignmentJSON)
	s := writeFile(t, "answers.json", `[{"question_id":"q3","value":"text"}]`)

	_, err := run(t, "grade", "-a", a, "-s", s, "--strict")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Missing answers for 2 auto-gradeable question(s)")
}

func TestGradeCommand_ReadsStdin(t *testing.T) {
	a := writeFile(t, "assignment.json", assignmentJSON)
	stdin = strings.NewReader(`[{"question_id":"q1","value":"Paris"}]`)
	t.Cleanup(func() { stdin = os.Stdin })

	out, err := run(t, "grade", "-a", a, "-s", "-", "--compact")
	require.NoError(t, err)
	assert.Equal(t, 1, strings.Count(strings.TrimSpace(out), "\n")+1)
	assert.Contains(t, out, `"score":10`)
}

func TestGradeCommand_Errors(t *testing.T) {
	_, err := run(t, "grade", "-a", "-", "-s", "-")
	assert.Error(t, err)

	_, err = run(t, "grade", "-a", filepath.Join(t.TempDir(), "missing.json"), "-s", "x")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "assignment:")

	a := writeFile(t, "assignment.json", assignmentJSON)
	s := writeFile(t, "answers.json", `{"not":"a list"}`)
	_, err = run(t, "grade", "-a", a, "-s", s)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "answers:")

	_, err = run(t, "grade")
	assert.Error(t, err)
}

func TestStatsCommand(t *testing.T) {
	a := writeFile(t, "assignment.json", assignmentJSON)

	out, err := run(t, "stats", "-a", a)
	require.NoError(t, err)

	var got map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.EqualValues(t, 3, got["total_questions"])
	assert.EqualValues(t, 2, got["auto_gradeable_questions"])
	assert.EqualValues(t, 15, got["auto_gradeable_points"])
	assert.EqualValues(t, 5, got["manual_points"])
	assert.Equal(t, false, got["fully_auto_gradeable"])
	assert.NotContains(t, got, "validation")
}

func TestStatsCommand_WithAnswers(t *testing.T) {
	a := writeFile(t, "assignment.json", assignmentJSON)
	s := writeFile(t, "answers.json", `[{"question_id":"q1","value":"Paris"}]`)

	out, err := run(t, "stats", "-a", a, "-s", s)
	require.NoError(t, err)

	var got struct {
		Validation grading.Validation `json:"validation"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.False(t, got.Validation.IsValid)
	assert.Equal(t, []string{"Missing answers for 1 auto-gradeable question(s)"}, got.Validation.Errors)
}
