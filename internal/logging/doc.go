// Package logging assembles the structured slog loggers used across zestsync.
//
// It owns the console and JSON handlers, level and output plumbing, and the
// context helpers that tag lines with task IDs, task kinds and language codes
// stamped by the services package. A no-op logger is provided for tests and
// wiring code that cannot fail.
package logging
