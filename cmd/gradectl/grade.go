package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/stemsi/coursegrade/internal/grading"
)

func newGradeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "grade",
		Short: "Grade an answer file against an assignment",
		RunE: func(cmd *cobra.Command, args []string) error {
			assignmentPath, _ := cmd.Flags().GetString("assignment")
			answersPath, _ := cmd.Flags().GetString("answers")
			if assignmentPath == "-" && answersPath == "-" {
				return errors.New("only one of --assignment and --answers can read stdin")
			}

			a, err := loadAssignment(assignmentPath)
			if err != nil {
				return err
			}
			answers, err := loadAnswers(answersPath)
			if err != nil {
				return err
			}

			if strict, _ := cmd.Flags().GetBool("strict"); strict {
				if v := grading.ValidateSubmission(a, answers); !v.IsValid {
					return fmt.Errorf("submission rejected: %v", v.Errors)
				}
			}

			result := grading.Grade(a, answers)
			if feedbackOnly, _ := cmd.Flags().GetBool("feedback"); feedbackOnly {
				_, err := fmt.Fprintln(cmd.OutOrStdout(), result.Feedback)
				return err
			}
			return writeJSON(cmd, result)
		},
	}

	cmd.Flags().StringP("assignment", "a", "", "Assignment JSON file (- for stdin)")
	cmd.Flags().StringP("answers", "s", "", "Answers JSON file (- for stdin)")
	cmd.Flags().Bool("strict", false, "Fail when the submission does not pass validation")
	cmd.Flags().Bool("feedback", false, "Print only the feedback text")
	_ = cmd.MarkFlagRequired("assignment")
	_ = cmd.MarkFlagRequired("answers")
	return cmd
}
