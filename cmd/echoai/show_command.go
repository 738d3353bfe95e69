package main

import (
	"fmt"
	"sort"
	"strconv"

	"github.com/spf13/cobra"
)

func newShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show <job-id>",
		Short: "Show details for one job",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseJobID(args[0])
			if err != nil {
				return err
			}
			job, err := ctx.client().Job(cmd.Context(), id)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Job %d: %s\n", job.ID, job.Topic)
			fmt.Fprintf(out, "  Platform:   %s\n", job.Platform)
			fmt.Fprintf(out, "  Style:      %s\n", job.Style)
			fmt.Fprintf(out, "  Duration:   %ds\n", job.DurationSeconds)
			fmt.Fprintf(out, "  Transition: %s\n", job.Transition)
			fmt.Fprintf(out, "  Captions:   %s\n", job.CaptionStyle)
			fmt.Fprintf(out, "  Status:     %s\n", job.Status)
			fmt.Fprintf(out, "  Progress:   %.0f%% (%s) %s\n", job.Progress.Percent, job.Progress.Stage, job.Progress.Message)
			if job.CancelRequested {
				fmt.Fprintln(out, "  Cancel requested")
			}
			if job.ErrorMessage != "" {
				fmt.Fprintf(out, "  Error:      %s\n", job.ErrorMessage)
			}
			if job.OutputFile != "" {
				fmt.Fprintf(out, "  Output:     %s\n", job.OutputFile)
			}
			if len(job.StageTimes) > 0 {
				fmt.Fprintln(out, "  Stage history:")
				stages := make([]string, 0, len(job.StageTimes))
				for stage := range job.StageTimes {
					stages = append(stages, stage)
				}
				sort.Slice(stages, func(i, j int) bool {
					return job.StageTimes[stages[i]] < job.StageTimes[stages[j]]
				})
				for _, stage := range stages {
					fmt.Fprintf(out, "    %-14s %s\n", stage, job.StageTimes[stage])
				}
			}
			return nil
		},
	}
}

func parseJobID(value string) (int64, error) {
	id, err := strconv.ParseInt(value, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid job id %q", value)
	}
	return id, nil
}
