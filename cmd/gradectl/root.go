package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/stemsi/coursegrade/internal/grading"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "gradectl",
		Short:         "Grade submissions offline",
		Long:          "gradectl runs the auto-grading engine against assignment and answer files without a database.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().Bool("compact", false, "Print JSON on a single line")

	root.AddCommand(newGradeCmd())
	root.AddCommand(newStatsCmd())
	return root
}

// loadAssignment reads an assignment definition. "-" reads stdin.
func loadAssignment(path string) (grading.Assignment, error) {
	var a grading.Assignment
	if err := readJSON(path, &a); err != nil {
		return a, fmt.Errorf("assignment: %w", err)
	}
	return a, nil
}

func loadAnswers(path string) ([]grading.Answer, error) {
	var answers []grading.Answer
	if err := readJSON(path, &answers); err != nil {
		return nil, fmt.Errorf("answers: %w", err)
	}
	return answers, nil
}

func readJSON(path string, dst any) error {
	var (
		raw []byte
		err error
	)
	if path == "-" {
		raw, err = readAllStdin()
	} else {
		raw, err = os.ReadFile(path)
	}
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, dst)
}

func writeJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	if compact, _ := cmd.Flags().GetBool("compact"); !compact {
		enc.SetIndent("", "  ")
	}
	return enc.Encode(v)
}
