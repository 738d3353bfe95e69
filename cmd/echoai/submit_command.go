package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"echoai/internal/api"
	"echoai/internal/ipc"
	"echoai/internal/queue"
)

func newSubmitCommand(ctx *commandContext) *cobra.Command {
	var platform string
	var style string
	var duration int
	var transition string
	var captions string
	var voice string
	var useStored bool
	var watch bool

	cmd := &cobra.Command{
		Use:   "submit <topic>",
		Short: "Queue a new video generation job",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := ctx.client()
			resp, err := client.Submit(cmd.Context(), api.SubmitRequest{
				Topic:           strings.TrimSpace(args[0]),
				Platform:        platform,
				Style:           style,
				DurationSeconds: duration,
				Transition:      transition,
				CaptionStyle:    captions,
				Voice:           voice,
				UseStored:       useStored,
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Queued job %d\n", resp.JobID)
			if !watch {
				return nil
			}
			return watchJob(cmd, client, resp.JobID)
		},
	}

	cmd.Flags().StringVar(&platform, "platform", "", "Target platform (tiktok, youtube, instagram, other)")
	cmd.Flags().StringVar(&style, "style", "", "Script style (viral_facts, story_time, motivational, educational)")
	cmd.Flags().IntVar(&duration, "duration", 0, "Target duration in seconds")
	cmd.Flags().StringVar(&transition, "transition", "", "Segment transition (fade, slideright, ...)")
	cmd.Flags().StringVar(&captions, "captions", "", "Caption style (none, bounce, color_box, karaoke)")
	cmd.Flags().StringVar(&voice, "voice", "", "Override narration voice")
	cmd.Flags().BoolVar(&useStored, "use-stored", false, "Reuse stored assets instead of fetching new ones")
	cmd.Flags().BoolVar(&watch, "watch", false, "Poll job progress until it finishes")
	return cmd
}

func watchJob(cmd *cobra.Command, client *ipc.Client, id int64) error {
	out := cmd.OutOrStdout()
	lastLine := ""
	for {
		snapshot, err := client.Job(cmd.Context(), id)
		if err != nil {
			return err
		}
		line := fmt.Sprintf("%s %.0f%% %s", snapshot.Status, snapshot.Progress.Percent, snapshot.Progress.Message)
		if line != lastLine {
			fmt.Fprintln(out, line)
			lastLine = line
		}
		if status, ok := queue.ParseStatus(snapshot.Status); ok && status.IsTerminal() {
			if snapshot.OutputFile != "" {
				fmt.Fprintf(out, "Output: %s\n", snapshot.OutputFile)
			}
			if snapshot.ErrorMessage != "" {
				fmt.Fprintf(out, "Error: %s\n", snapshot.ErrorMessage)
			}
			return nil
		}
		select {
		case <-cmd.Context().Done():
			return context.Canceled
		case <-time.After(2 * time.Second):
		}
	}
}
