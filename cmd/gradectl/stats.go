package main

import (
	"github.com/spf13/cobra"
	"github.com/stemsi/coursegrade/internal/grading"
)

type statsOutput struct {
	grading.Stats
	FullyAutoGradeable bool                `json:"fully_auto_gradeable"`
	Validation         *grading.Validation `json:"validation,omitempty"`
}

func newStatsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show the auto-gradeable and manual split of an assignment",
		RunE: func(cmd *cobra.Command, args []string) error {
			assignmentPath, _ := cmd.Flags().GetString("assignment")
			a, err := loadAssignment(assignmentPath)
			if err != nil {
				return err
			}

			s := grading.StatsFor(a)
			out := statsOutput{
				Stats:              s,
				FullyAutoGradeable: s.TotalQuestions > 0 && s.ManualQuestions == 0,
			}

			if answersPath, _ := cmd.Flags().GetString("answers"); answersPath != "" {
				answers, err := loadAnswers(answersPath)
				if err != nil {
					return err
				}
				v := grading.ValidateSubmission(a, answers)
				out.Validation = &v
			}
			return writeJSON(cmd, out)
		},
	}

	cmd.Flags().StringP("assignment", "a", "", "Assignment JSON file (- for stdin)")
	cmd.Flags().StringP("answers", "s", "", "Optional answers JSON file to validate")
	_ = cmd.MarkFlagRequired("assignment")
	return cmd
}
