package main

import (
	"fmt"
	"sort"
	"strconv"

	"github.com/spf13/cobra"

	"echoai/internal/deps"
	"echoai/internal/queue"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show daemon, queue, and external tool status",
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)

			for _, line := range renderSectionHeader("Daemon", colorize) {
				fmt.Fprintln(out, line)
			}

			client := ctx.client()
			status, err := client.Status(cmd.Context())
			if err != nil {
				fmt.Fprintln(out, renderStatusLine("Daemon", statusError, err.Error(), colorize))
			} else {
				kind := statusOK
				message := "running"
				if !status.Running {
					kind = statusWarn
					message = "workflow stopped"
				}
				fmt.Fprintln(out, renderStatusLine("Daemon", kind, message, colorize))
				if status.LastError != "" {
					fmt.Fprintln(out, renderStatusLine("Last error", statusWarn, status.LastError, colorize))
				}
				for _, health := range status.StageHealth {
					kind := statusOK
					if !health.Ready {
						kind = statusError
					}
					fmt.Fprintln(out, renderStatusLine(health.Name, kind, health.Detail, colorize))
				}
			}

			if err == nil {
				fmt.Fprintln(out)
				for _, line := range renderSectionHeader("Queue", colorize) {
					fmt.Fprintln(out, line)
				}
				fmt.Fprint(out, renderTable(
					[]string{"Status", "Count"},
					buildQueueStatusRows(status.QueueStats),
					[]columnAlignment{alignLeft, alignRight},
				))
				fmt.Fprintln(out)
			}

			fmt.Fprintln(out)
			for _, line := range renderSectionHeader("External Tools", colorize) {
				fmt.Fprintln(out, line)
			}
			cfg, cfgErr := ctx.ensureConfig()
			if cfgErr != nil {
				return cfgErr
			}
			for _, result := range deps.CheckBinaries(deps.Requirements(cfg)) {
				kind := statusOK
				message := result.Command
				if !result.Available {
					kind = statusError
					if result.Optional {
						kind = statusWarn
					}
					message = result.Detail
				}
				fmt.Fprintln(out, renderStatusLine(result.Name, kind, message, colorize))
			}
			return nil
		},
	}
}

func buildQueueStatusRows(stats map[string]int) [][]string {
	rows := make([][]string, 0, len(stats))
	for _, status := range queue.AllStatuses() {
		if count, ok := stats[string(status)]; ok && count > 0 {
			rows = append(rows, []string{string(status), strconv.Itoa(count)})
		}
	}
	// Anything the daemon reported that we do not recognize still shows up.
	extras := make([]string, 0)
	for status, count := range stats {
		if count == 0 {
			continue
		}
		if _, recognized := queue.ParseStatus(status); recognized {
			continue
		}
		extras = append(extras, status)
	}
	sort.Strings(extras)
	for _, status := range extras {
		rows = append(rows, []string{status, strconv.Itoa(stats[status])})
	}
	return rows
}
