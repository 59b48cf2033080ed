// Package main hosts the zestsync CLI entrypoint and command graph.
//
// The Cobra command tree covers headless subtitle generation for a single
// video, artifact and model inspection, task history, environment diagnostics,
// and the HTTP API server that a playback frontend drives. Configuration
// resolution and logger setup live here so subcommands only deal with
// presentation.
//
// Add behaviour to the internal packages first and surface it here through a
// command or flag.
package main
