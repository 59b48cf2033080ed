// Package notifications pushes task outcomes to ntfy.
//
// NewService returns an ntfy-backed Service when a topic URL is configured
// and a no-op otherwise, so callers never branch on whether notifications
// are enabled.
package notifications
