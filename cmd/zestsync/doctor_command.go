package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"zestsync/internal/preflight"
)

func newDoctorCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Check directories, runtimes, models and hub access",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			results := preflight.RunAll(cmd.Context(), cfg)
			info := preflight.CollectSystemInfo(cmd.Context())
			failed := preflight.Failed(results)

			if asJSON {
				if err := writeJSON(cmd, struct {
					Config  string               `json:"config"`
					System  preflight.SystemInfo `json:"system"`
					Checks  []preflight.Result   `json:"checks"`
					Healthy bool                 `json:"healthy"`
				}{ctx.configPath, info, results, len(failed) == 0}); err != nil {
					return err
				}
			} else {
				out := cmd.OutOrStdout()
				colorize := shouldColorize(out)
				lines := renderSectionHeader("System", colorize)
				lines = append(lines,
					renderStatusLine("Config", statusInfo, ctx.configPath, colorize),
					renderStatusLine("Platform", statusInfo, fmt.Sprintf("%s/%s, %d CPUs, %s", info.OS, info.Arch, info.CPUs, info.GoVer), colorize),
				)
				lines = append(lines, gpuLines(info, colorize)...)
				lines = append(lines, "")
				lines = append(lines, renderSectionHeader("Checks", colorize)...)
				for _, r := range results {
					lines = append(lines, renderStatusLine(r.Name, checkKind(r), r.Detail, colorize))
				}
				fmt.Fprintln(out, strings.Join(lines, "\n"))
			}

			if len(failed) > 0 {
				names := make([]string, 0, len(failed))
				for _, r := range failed {
					names = append(names, r.Name)
				}
				return fmt.Errorf("%d check(s) failed: %s", len(failed), strings.Join(names, ", "))
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Emit JSON")
	return cmd
}

func checkKind(r preflight.Result) statusKind {
	switch {
	case r.Passed:
		return statusOK
	case r.Optional:
		return statusWarn
	default:
		return statusError
	}
}

func gpuLines(info preflight.SystemInfo, colorize bool) []string {
	if len(info.GPUs) == 0 {
		note := info.GPUNote
		if note == "" {
			note = "none detected"
		}
		return []string{renderStatusLine("GPU", statusInfo, note, colorize)}
	}
	lines := make([]string, 0, len(info.GPUs))
	for _, gpu := range info.GPUs {
		lines = append(lines, renderStatusLine("GPU", statusInfo, fmt.Sprintf("%s (%s)", gpu.Name, gpu.Memory), colorize))
	}
	return lines
}
