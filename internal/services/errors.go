package services

import (
	"errors"
	"fmt"
	"strings"
)

// Failure markers surfaced to the session and CLI. Every task-level error
// carries exactly one of these so callers can classify it with errors.Is.
var (
	ErrNetworkUnavailable = errors.New("network unavailable")
	ErrToolNotFound       = errors.New("tool not found")
	ErrEngineInitFailed   = errors.New("engine init failed")
	ErrMalformedInput     = errors.New("malformed input")
	ErrAlreadyInProgress  = errors.New("already in progress")

	ErrExternalTool  = errors.New("external tool error")
	ErrValidation    = errors.New("validation error")
	ErrConfiguration = errors.New("configuration error")
	ErrNotFound      = errors.New("not found")
	ErrTimeout       = errors.New("timeout")
	ErrTransient     = errors.New("transient failure")
)

// Wrap builds an error message that includes component context while tagging it
// with the provided marker for later classification. The marker should be one
// of the exported sentinel errors above.
func Wrap(marker error, component, operation, message string, err error) error {
	detail := buildDetail(component, operation, message)
	if marker == nil {
		marker = ErrTransient
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// Retryable reports whether the failure is worth offering the user another try.
func Retryable(err error) bool {
	if err == nil {
		return false
	}
	return errors.Is(err, ErrNetworkUnavailable) ||
		errors.Is(err, ErrTimeout) ||
		errors.Is(err, ErrTransient)
}

// Kind returns a short stable label for the marker carried by err.
func Kind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrNetworkUnavailable):
		return "network_unavailable"
	case errors.Is(err, ErrToolNotFound):
		return "tool_not_found"
	case errors.Is(err, ErrEngineInitFailed):
		return "engine_init_failed"
	case errors.Is(err, ErrMalformedInput):
		return "malformed_input"
	case errors.Is(err, ErrAlreadyInProgress):
		return "already_in_progress"
	case errors.Is(err, ErrExternalTool):
		return "external_tool"
	case errors.Is(err, ErrValidation):
		return "validation"
	case errors.Is(err, ErrConfiguration):
		return "configuration"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrTimeout):
		return "timeout"
	default:
		return "transient"
	}
}

// Hint returns a one-line next step for the operator.
func Hint(err error) string {
	switch {
	case errors.Is(err, ErrNetworkUnavailable):
		return "check the internet connection and retry the download"
	case errors.Is(err, ErrToolNotFound):
		return "install ffmpeg or set transcription.ffmpeg_paths"
	case errors.Is(err, ErrEngineInitFailed):
		return "run zestsync doctor to verify the python runtime and model files"
	case errors.Is(err, ErrMalformedInput):
		return "delete the base subtitle file and regenerate it"
	case errors.Is(err, ErrAlreadyInProgress):
		return "wait for the running task to finish"
	default:
		return "check logs for details"
	}
}

// Recover converts a panic value into a transient failure.
func Recover(component string, value any) error {
	if value == nil {
		return nil
	}
	return Wrap(ErrTransient, component, "run", "task panicked", fmt.Errorf("%v", value))
}

func buildDetail(component, operation, message string) string {
	parts := make([]string, 0, 3)
	if component = strings.TrimSpace(component); component != "" {
		parts = append(parts, component)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
