package main

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
)

func newDownloadCommand(ctx *commandContext) *cobra.Command {
	var outputPath string

	cmd := &cobra.Command{
		Use:   "download <job-id>",
		Short: "Download the rendered video for a completed job",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseJobID(args[0])
			if err != nil {
				return err
			}
			client := ctx.client()

			dest := strings.TrimSpace(outputPath)
			if dest == "" {
				job, err := client.Job(cmd.Context(), id)
				if err != nil {
					return err
				}
				if job.OutputFile != "" {
					dest = filepath.Base(job.OutputFile)
				} else {
					dest = fmt.Sprintf("job-%d.mp4", id)
				}
			}

			if err := client.Download(cmd.Context(), id, dest); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Saved job %d to %s\n", id, dest)
			return nil
		},
	}

	cmd.Flags().StringVarP(&outputPath, "output", "o", "", "Destination path for the video file")
	return cmd
}
