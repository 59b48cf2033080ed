package logging

import (
	"context"
	"log/slog"

	"zestsync/internal/services"
)

const (
	FieldComponent     = "component"
	FieldTaskID        = "task_id"
	FieldTaskKind      = "task_kind"
	FieldLanguage      = "language"
	FieldVideo         = "video"
	FieldCorrelationID = "correlation_id"
	FieldEventType     = "event_type"
	FieldErrorHint     = "error_hint"
	FieldErrorKind     = "error_kind"
	// FieldImpact is the user-facing consequence of a warning.
	FieldImpact = "impact"
)

// ContextFields extracts standardized slog attributes from the provided context.
func ContextFields(ctx context.Context) []slog.Attr {
	if ctx == nil {
		return nil
	}
	fields := make([]slog.Attr, 0, 4)
	if id, ok := services.TaskIDFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldTaskID, id))
	}
	if kind, ok := services.TaskKindFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldTaskKind, kind))
	}
	if code, ok := services.LanguageFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldLanguage, code))
	}
	if rid, ok := services.RequestIDFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldCorrelationID, rid))
	}
	return fields
}

// WithContext returns a logger augmented with structured fields derived from the supplied context.
func WithContext(ctx context.Context, logger *slog.Logger) *slog.Logger {
	if logger == nil {
		logger = NewNop()
	}
	fields := ContextFields(ctx)
	if len(fields) == 0 {
		return logger
	}
	return logger.With(Args(fields...)...)
}

// Failure returns the attributes every task failure log carries.
func Failure(err error) []Attr {
	return []Attr{
		Error(err),
		String(FieldErrorKind, services.Kind(err)),
		String(FieldErrorHint, services.Hint(err)),
	}
}
