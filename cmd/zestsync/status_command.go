package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/spf13/cobra"

	"zestsync/internal/artifact"
	"zestsync/internal/srt"
	"zestsync/internal/timecode"
)

type artifactView struct {
	Code     string  `json:"code"`
	Language string  `json:"language"`
	Path     string  `json:"path"`
	Exists   bool    `json:"exists"`
	Cues     int     `json:"cues,omitempty"`
	Span     float64 `json:"span_seconds,omitempty"`
	Error    string  `json:"error,omitempty"`
}

func newStatusCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool
	var all bool

	cmd := &cobra.Command{
		Use:   "status <video>",
		Short: "Show which subtitle files exist for a video",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			video, err := filepath.Abs(args[0])
			if err != nil {
				return fmt.Errorf("resolve video path: %w", err)
			}
			if _, err := os.Stat(video); err != nil {
				return fmt.Errorf("video %s: %w", video, err)
			}
			views := collectArtifacts(video, all)
			if asJSON {
				return writeJSON(cmd, views)
			}
			out := cmd.OutOrStdout()
			if len(views) == 0 {
				fmt.Fprintf(out, "No subtitles generated yet for %s\n", filepath.Base(video))
				return nil
			}
			rows := make([][]string, 0, len(views))
			for _, v := range views {
				cues, span := "-", "-"
				if v.Exists && v.Error == "" {
					cues = strconv.Itoa(v.Cues)
					span = timecode.FormatClock(int(v.Span))
				}
				if v.Error != "" {
					cues = "unreadable"
				}
				rows = append(rows, []string{v.Language, v.Code, yesNo(v.Exists), cues, span})
			}
			fmt.Fprintln(out, renderTable(
				[]string{"Language", "Code", "Cached", "Cues", "Ends"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignRight},
			))
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Emit JSON")
	cmd.Flags().BoolVarP(&all, "all", "a", false, "Include languages without a cached file")
	return cmd
}

func collectArtifacts(video string, all bool) []artifactView {
	inventory := artifact.Inventory(video)
	views := make([]artifactView, 0, len(inventory))
	for _, entry := range inventory {
		if !entry.Exists && !all {
			continue
		}
		v := artifactView{
			Code:     entry.Language.Code,
			Language: entry.Language.DisplayName,
			Path:     entry.Path,
			Exists:   entry.Exists,
		}
		if entry.Exists {
			stats, err := srt.StatFile(entry.Path)
			if err != nil {
				v.Error = err.Error()
			} else {
				v.Cues = stats.Cues
				v.Span = stats.LastCue
			}
		}
		views = append(views, v)
	}
	return views
}
