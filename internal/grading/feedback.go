package grading

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Tier is the closing performance remark band of the feedback text.
type Tier int

const (
	TierNeedsReview Tier = iota
	TierOnTrack
	TierNiceEffort
	TierGood
	TierExcellent
)

var tierMessages = map[Tier]string{
	TierExcellent:   "Excellent work!",
	TierGood:        "Good job!",
	TierNiceEffort:  "Nice effort! Keep practicing.",
	TierOnTrack:     "You're on the right track. Review the material and try again.",
	TierNeedsReview: "Please review the material carefully and consider asking for help.",
}

// Message returns the remark shown for the tier.
func (t Tier) Message() string {
	return tierMessages[t]
}

func (t Tier) String() string {
	switch t {
	case TierExcellent:
		return "excellent"
	case TierGood:
		return "good"
	case TierNiceEffort:
		return "nice_effort"
	case TierOnTrack:
		return "on_track"
	default:
		return "needs_review"
	}
}

// TierFor selects the remark band for a percentage. Breakpoints are 90, 80,
// 70 and 60, evaluated from the top down.
func TierFor(percentage float64) Tier {
	switch {
	case percentage >= 90:
		return TierExcellent
	case percentage >= 80:
		return TierGood
	case percentage >= 70:
		return TierNiceEffort
	case percentage >= 60:
		return TierOnTrack
	default:
		return TierNeedsReview
	}
}

// Percentage returns score/maxScore as a percentage rounded to one decimal.
// A zero maximum yields 0.
func Percentage(score, maxScore float64) float64 {
	if maxScore == 0 {
		return 0
	}
	p := math.Round(score/maxScore*1000) / 10
	if math.IsNaN(p) || math.IsInf(p, 0) {
		return 0
	}
	return p
}

// ratio returns the unrounded score/maxScore percentage, 0 for a zero maximum.
func ratio(score, maxScore float64) float64 {
	if maxScore == 0 {
		return 0
	}
	p := score * 100 / maxScore
	if math.IsNaN(p) || math.IsInf(p, 0) {
		return 0
	}
	return p
}

// GenerateFeedback renders the human-readable summary of a grading pass.
// The header shows the percentage rounded to one decimal; the closing remark
// is chosen from the unrounded ratio.
func GenerateFeedback(results []QuestionResult, score, maxScore float64) string {
	pct := Percentage(score, maxScore)

	var b strings.Builder
	fmt.Fprintf(&b, "Auto-graded: %s/%s points (%.1f%%)\n\n", formatPoints(score), formatPoints(maxScore), pct)

	gradeable, correct, essays := 0, 0, 0
	for _, r := range results {
		if r.IsAutoGradeable {
			gradeable++
			if r.IsCorrect {
				correct++
			}
		}
		if r.QuestionKind == KindEssay {
			essays++
		}
	}

	if gradeable > 0 {
		fmt.Fprintf(&b, "Automatically graded questions: %d/%d correct\n", correct, gradeable)
	}
	if essays > 0 {
		fmt.Fprintf(&b, "\nNote: %d essay question(s) require manual grading.\n", essays)
	}

	b.WriteString("\n")
	b.WriteString(TierFor(ratio(score, maxScore)).Message())
	return b.String()
}

func formatPoints(p float64) string {
	return strconv.FormatFloat(p, 'f', -1, 64)
}
