package preflight

import (
	"context"

	"zestsync/internal/config"
	"zestsync/internal/models"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	// Optional failures degrade features without blocking generation.
	Optional bool
	Detail   string
}

// RunAll executes every preflight check for the given config.
func RunAll(ctx context.Context, cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}
	results := []Result{
		CheckDirectoryAccess("State directory", cfg.Paths.StateDir),
		CheckDirectoryAccess("Log directory", cfg.Paths.LogDir),
		CheckDirectoryAccess("Work directory", cfg.Paths.WorkDir),
		CheckModelCache(cfg.Models.CacheDir),
		CheckFFmpeg(ctx, cfg.Transcription.FFmpegPaths),
		CheckPython("Transcription runtime", cfg.Transcription.PythonCommand),
	}
	if cfg.Translation.PythonCommand != cfg.Transcription.PythonCommand {
		results = append(results, CheckPython("Translation runtime", cfg.Translation.PythonCommand))
	}
	results = append(results,
		CheckWhisperModel(cfg.Transcription.ModelDir),
		CheckHub(ctx, models.HTTPProber{URL: cfg.Models.HubURL, Timeout: cfg.ProbeTimeout()}, cfg.Models.HubURL),
	)
	return results
}

// Failed returns the required checks that did not pass.
func Failed(results []Result) []Result {
	var out []Result
	for _, r := range results {
		if !r.Passed && !r.Optional {
			out = append(out, r)
		}
	}
	return out
}
