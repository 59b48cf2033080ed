package services

import "context"

type contextKey string

const (
	taskIDKey    contextKey = "task_id"
	taskKindKey  contextKey = "task_kind"
	languageKey  contextKey = "language"
	requestIDKey contextKey = "request_id"
)

// WithTaskID annotates context with the background task identifier.
func WithTaskID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, taskIDKey, id)
}

// TaskIDFromContext extracts the background task identifier if present.
func TaskIDFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(taskIDKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}

// WithTaskKind annotates context with the task kind (transcribe, translate, download).
func WithTaskKind(ctx context.Context, kind string) context.Context {
	if kind == "" {
		return ctx
	}
	return context.WithValue(ctx, taskKindKey, kind)
}

// TaskKindFromContext returns the task kind if present.
func TaskKindFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(taskKindKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}

// WithLanguage annotates context with the language code a task works on.
func WithLanguage(ctx context.Context, code string) context.Context {
	if code == "" {
		return ctx
	}
	return context.WithValue(ctx, languageKey, code)
}

// LanguageFromContext returns the language code if present.
func LanguageFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(languageKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}

// WithRequestID annotates context with a correlation identifier.
func WithRequestID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, requestIDKey, id)
}

// RequestIDFromContext extracts the correlation identifier if present.
func RequestIDFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(requestIDKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}
