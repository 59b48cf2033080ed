package services_test

import (
	"context"
	"testing"

	"zestsync/internal/services"
)

func TestContextHelpers(t *testing.T) {
	ctx := context.Background()
	ctx = services.WithTaskID(ctx, "task-1")
	ctx = services.WithTaskKind(ctx, "translate")
	ctx = services.WithLanguage(ctx, "fr")
	ctx = services.WithRequestID(ctx, "req-123")

	if id, ok := services.TaskIDFromContext(ctx); !ok || id != "task-1" {
		t.Fatalf("unexpected task id: %v %v", id, ok)
	}
	if kind, ok := services.TaskKindFromContext(ctx); !ok || kind != "translate" {
		t.Fatalf("unexpected kind: %v %v", kind, ok)
	}
	if lang, ok := services.LanguageFromContext(ctx); !ok || lang != "fr" {
		t.Fatalf("unexpected language: %v %v", lang, ok)
	}
	if rid, ok := services.RequestIDFromContext(ctx); !ok || rid != "req-123" {
		t.Fatalf("unexpected request id: %v %v", rid, ok)
	}
}

func TestBlankValuesPreserveContext(t *testing.T) {
	ctx := context.Background()
	ctx = services.WithLanguage(ctx, "")
	ctx = services.WithTaskID(ctx, "")
	if _, ok := services.LanguageFromContext(ctx); ok {
		t.Fatal("expected no language value")
	}
	if _, ok := services.TaskIDFromContext(ctx); ok {
		t.Fatal("expected no task id value")
	}
}
