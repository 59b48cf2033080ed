package main

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"zestsync/internal/history"
	"zestsync/internal/language"
)

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	var limit int
	var video string
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent generation and download runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			store, err := history.Open(cfg)
			if err != nil {
				return fmt.Errorf("open history: %w", err)
			}
			defer store.Close()

			var records []history.Record
			if v := strings.TrimSpace(video); v != "" {
				abs, err := filepath.Abs(v)
				if err != nil {
					return fmt.Errorf("resolve video path: %w", err)
				}
				records, err = store.ForVideo(cmd.Context(), abs)
				if err != nil {
					return err
				}
			} else {
				records, err = store.Recent(cmd.Context(), limit)
				if err != nil {
					return err
				}
			}
			if asJSON {
				return writeJSON(cmd, records)
			}
			out := cmd.OutOrStdout()
			if len(records) == 0 {
				fmt.Fprintln(out, "No runs recorded")
				return nil
			}
			fmt.Fprintln(out, renderTable(
				[]string{"Started", "Kind", "Language", "Video", "Status", "Took"},
				historyRows(records, time.Now()),
				[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignLeft, alignRight},
			))
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum number of runs to show")
	cmd.Flags().StringVar(&video, "video", "", "Only show runs for this video")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Emit JSON")
	return cmd
}

func historyRows(records []history.Record, now time.Time) [][]string {
	rows := make([][]string, 0, len(records))
	for _, rec := range records {
		video := "-"
		if rec.Video != "" {
			video = filepath.Base(rec.Video)
		}
		status := string(rec.Status)
		if rec.Error != "" {
			status += ": " + rec.Error
		}
		took := "-"
		if d := rec.Duration(); d > 0 {
			took = d.Round(time.Second).String()
		}
		rows = append(rows, []string{
			humanize.RelTime(rec.StartedAt, now, "ago", "from now"),
			rec.Kind,
			language.Name(rec.Language),
			video,
			status,
			took,
		})
	}
	return rows
}
