package opusmt

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"zestsync/internal/config"
	"zestsync/internal/logging"
	"zestsync/internal/models"
	"zestsync/internal/services"
	"zestsync/internal/testsupport"
)

// echoWorker answers every request by upper-casing the texts with sed.
const echoWorker = `echo '{"ready":true}'
while IFS= read -r line; do
  case "$line" in
    *FAIL*) echo '{"error":"CUDA out of memory"}' ;;
    *) echo "$line" | sed -e 's/"texts"/"translations"/' | tr 'a-z' 'A-Z' | sed -e 's/"TRANSLATIONS"/"translations"/' ;;
  esac
done`

func stubConfig(t *testing.T, body string) Config {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell stubs")
	}
	stub := filepath.Join(t.TempDir(), "python3")
	testsupport.WriteStubBinary(t, stub, body)
	return Config{PythonCommand: stub, CacheDir: t.TempDir(), BatchSize: 8}
}

func TestEngineTranslatesOverPersistentWorker(t *testing.T) {
	cfg := stubConfig(t, echoWorker)
	engine, err := Start(context.Background(), cfg, "Helsinki-NLP/opus-mt-en-fr", logging.NewNop())
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer engine.Close()

	for i := 0; i < 2; i++ {
		out, err := engine.Translate(context.Background(), []string{"hello", "world"}, "en", "fr")
		if err != nil {
			t.Fatalf("Translate: %v", err)
		}
		if len(out) != 2 || out[0] != "HELLO" || out[1] != "WORLD" {
			t.Fatalf("unexpected output %v", out)
		}
	}

	if _, err := engine.Translate(context.Background(), []string{"FAIL"}, "en", "fr"); !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("expected worker error, got %v", err)
	}
	if err := engine.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if _, err := engine.Translate(context.Background(), []string{"x"}, "en", "fr"); err == nil {
		t.Fatal("expected error after close")
	}
}

func TestStartReportsLoadFailure(t *testing.T) {
	cfg := stubConfig(t, `echo '{"error":"init: no file named pytorch_model.bin"}'; exit 2`)
	_, err := Start(context.Background(), cfg, "Helsinki-NLP/opus-mt-en-de", logging.NewNop())
	if !errors.Is(err, services.ErrEngineInitFailed) {
		t.Fatalf("expected engine init failure, got %v", err)
	}
	if !strings.Contains(err.Error(), "pytorch_model.bin") {
		t.Fatalf("expected detail, got %v", err)
	}
}

func TestFactoryRequiresDownloadedModel(t *testing.T) {
	cfg := stubConfig(t, echoWorker)
	mcfg := config.Default().Models
	mcfg.CacheDir = cfg.CacheDir
	reg := models.NewRegistry(mcfg, nil)
	factory := NewFactory(cfg, reg, logging.NewNop())

	if _, err := factory(context.Background(), "fr"); !errors.Is(err, services.ErrEngineInitFailed) {
		t.Fatalf("expected engine init failure for missing model, got %v", err)
	}
	if err := os.MkdirAll(reg.CachePath("fr"), 0o755); err != nil {
		t.Fatal(err)
	}
	engine, err := factory(context.Background(), "fr")
	if err != nil {
		t.Fatalf("factory: %v", err)
	}
	if err := engine.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
}

func TestLauncherArgs(t *testing.T) {
	got := strings.Join(launcherArgs("uvx"), " ")
	if got != "--with transformers --with sentencepiece --with torch python" {
		t.Fatalf("uvx args = %q", got)
	}
	if launcherArgs("/usr/bin/python3") != nil {
		t.Fatal("plain interpreter takes no launcher args")
	}
}
