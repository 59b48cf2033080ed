// Package whisper runs faster-whisper speech recognition in a Python worker.
//
// The worker script is embedded and launched through the configured Python
// command (uvx by default, which provisions faster-whisper on demand). It
// loads the model from a local directory with network access disabled,
// announces readiness, then prints one JSON object per recognized segment.
// Segments are read lazily, so the resulting stream is forward-only.
package whisper
