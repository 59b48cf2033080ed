// Package services defines shared utilities consumed by the generation tasks,
// the model downloader and the engine adapters.
//
// Key responsibilities:
//   - Context helpers that stamp task IDs, task kinds, language codes and
//     correlation identifiers for logging.
//   - The failure taxonomy (network unavailable, tool not found, engine init
//     failed, malformed input, already in progress) plus the Wrap helper that
//     keeps component context on every error.
//
// Engine adapters live in subpackages (whisper, opusmt) so the task packages
// depend only on small interfaces.
package services
