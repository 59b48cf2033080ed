// Package ffprobe provides a typed wrapper around ffprobe JSON output.
//
// Inspect runs ffprobe and returns the parsed Result; helpers on Result
// expose the container duration and the audio streams.
package ffprobe
