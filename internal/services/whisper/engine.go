package whisper

import (
	"bufio"
	"bytes"
	"context"
	_ "embed"
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"zestsync/internal/config"
	"zestsync/internal/logging"
	"zestsync/internal/services"
	"zestsync/internal/transcribe"
)

//go:embed worker.py
var workerScript string

// Package provisioned by uv-based launchers.
const Package = "faster-whisper"

// Config captures runtime settings for the worker.
type Config struct {
	PythonCommand string
	ModelDir      string
	Device        string
	ComputeType   string
	BeamSize      int
}

// ConfigFrom extracts the engine settings from the application config.
func ConfigFrom(cfg *config.Config) Config {
	return Config{
		PythonCommand: cfg.Transcription.PythonCommand,
		ModelDir:      cfg.Transcription.ModelDir,
		Device:        cfg.Transcription.Device,
		ComputeType:   cfg.Transcription.ComputeType,
		BeamSize:      cfg.BeamSize(),
	}
}

// Engine implements transcribe.Engine.
type Engine struct {
	cfg    Config
	logger *slog.Logger

	vadOnce sync.Once
	vad     bool
}

// New builds an engine. No process is started until Transcribe.
func New(cfg Config, logger *slog.Logger) *Engine {
	return &Engine{cfg: cfg, logger: logging.NewComponentLogger(logger, "whisper")}
}

type message struct {
	Event  string  `json:"event"`
	Stage  string  `json:"stage"`
	Detail string  `json:"detail"`
	Start  float64 `json:"start"`
	End    float64 `json:"end"`
	Text   string  `json:"text"`
}

// Transcribe starts the worker and waits for the model to load.
func (e *Engine) Transcribe(ctx context.Context, audio string, opts transcribe.Options) (*transcribe.Stream, error) {
	if strings.TrimSpace(e.cfg.ModelDir) == "" {
		return nil, services.Wrap(services.ErrEngineInitFailed, "whisper", "load model", "model directory not configured", nil)
	}
	args := []string{
		"--audio", audio,
		"--model-dir", e.cfg.ModelDir,
		"--device", valueOr(e.cfg.Device, "cpu"),
		"--compute-type", valueOr(e.cfg.ComputeType, "int8"),
		"--beam-size", strconv.Itoa(max(e.cfg.BeamSize, 1)),
	}
	if opts.Language != "" {
		args = append(args, "--language", opts.Language)
	}
	if opts.VADFilter {
		args = append(args, "--vad")
	}

	cmd := e.command(ctx, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, services.Wrap(services.ErrEngineInitFailed, "whisper", "start worker", "", err)
	}
	if err := cmd.Start(); err != nil {
		return nil, services.Wrap(services.ErrEngineInitFailed, "whisper", "start worker", e.cfg.PythonCommand, err)
	}

	w := &worker{cmd: cmd, stdout: stdout, scanner: bufio.NewScanner(stdout), stderr: &stderr}
	w.scanner.Buffer(make([]byte, 64*1024), 4*1024*1024)

	first, ok, err := w.read()
	if err != nil || !ok || first.Event != "ready" {
		detail := first.Detail
		_ = w.close()
		if detail == "" {
			detail = strings.TrimSpace(stderr.String())
		}
		if detail == "" && err != nil {
			detail = err.Error()
		}
		return nil, services.Wrap(services.ErrEngineInitFailed, "whisper", "load model", lastLine(detail), nil)
	}
	e.logger.Debug("whisper worker ready",
		logging.String("model_dir", e.cfg.ModelDir),
		logging.Bool("vad", opts.VADFilter),
		logging.String("language", opts.Language))

	return transcribe.NewStream(w.next, w.close), nil
}

// SupportsVAD reports whether the worker environment can import onnxruntime.
// The answer is cached for the engine's lifetime.
func (e *Engine) SupportsVAD(ctx context.Context) bool {
	e.vadOnce.Do(func() {
		cmd := e.command(ctx, "--check-vad")
		e.vad = cmd.Run() == nil
		if !e.vad {
			e.logger.Info("voice activity filter unavailable; transcribing without it",
				logging.String(logging.FieldEventType, "vad_unavailable"))
		}
	})
	return e.vad
}

func (e *Engine) command(ctx context.Context, args ...string) *exec.Cmd {
	python := valueOr(e.cfg.PythonCommand, "uvx")
	launch := launcherArgs(python)
	launch = append(launch, "-c", workerScript)
	launch = append(launch, args...)
	cmd := exec.CommandContext(ctx, python, launch...) //nolint:gosec
	cmd.Env = append(os.Environ(), "HF_HUB_OFFLINE=1", "PYTHONUNBUFFERED=1")
	return cmd
}

// launcherArgs returns the arguments placed before the script for uv-style
// launchers, which need the package declared and an interpreter named.
func launcherArgs(python string) []string {
	switch strings.TrimSuffix(filepath.Base(python), ".exe") {
	case "uvx":
		return []string{"--with", Package, "python"}
	case "uv":
		return []string{"run", "--no-project", "--with", Package, "python"}
	default:
		return nil
	}
}

type worker struct {
	cmd     *exec.Cmd
	stdout  io.ReadCloser
	scanner *bufio.Scanner
	stderr  *bytes.Buffer
	done    bool

	closeOnce sync.Once
	closeErr  error
}

func (w *worker) read() (message, bool, error) {
	for w.scanner.Scan() {
		line := bytes.TrimSpace(w.scanner.Bytes())
		if len(line) == 0 || line[0] != '{' {
			continue
		}
		var msg message
		if err := json.Unmarshal(line, &msg); err != nil {
			return message{}, false, services.Wrap(services.ErrMalformedInput, "whisper", "decode", string(line), err)
		}
		return msg, true, nil
	}
	if err := w.scanner.Err(); err != nil {
		return message{}, false, err
	}
	return message{}, false, nil
}

func (w *worker) next() (transcribe.Segment, bool, error) {
	if w.done {
		return transcribe.Segment{}, false, nil
	}
	for {
		msg, ok, err := w.read()
		if err != nil {
			w.done = true
			return transcribe.Segment{}, false, err
		}
		if !ok {
			w.done = true
			if err := w.wait(); err != nil {
				return transcribe.Segment{}, false, err
			}
			return transcribe.Segment{}, false, services.Wrap(services.ErrExternalTool, "whisper", "transcribe", "worker exited before finishing", nil)
		}
		switch msg.Event {
		case "segment":
			return transcribe.Segment{Start: msg.Start, End: msg.End, Text: msg.Text}, true, nil
		case "error":
			w.done = true
			_ = w.wait()
			return transcribe.Segment{}, false, services.Wrap(services.ErrExternalTool, "whisper", "transcribe", msg.Detail, nil)
		case "done":
			w.done = true
			return transcribe.Segment{}, false, w.wait()
		}
	}
}

func (w *worker) wait() error {
	w.closeOnce.Do(func() {
		_, _ = io.Copy(io.Discard, w.stdout)
		if err := w.cmd.Wait(); err != nil {
			w.closeErr = services.Wrap(services.ErrExternalTool, "whisper", "worker exit", lastLine(w.stderr.String()), err)
		}
	})
	return w.closeErr
}

// close stops a worker that may still be running.
func (w *worker) close() error {
	if !w.done && w.cmd.Process != nil {
		_ = w.cmd.Process.Kill()
		w.done = true
		w.closeOnce.Do(func() { _ = w.cmd.Wait() })
		return nil
	}
	return w.wait()
}

func valueOr(v, fallback string) string {
	if strings.TrimSpace(v) == "" {
		return fallback
	}
	return v
}

func lastLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.LastIndexByte(s, '\n'); i >= 0 {
		return s[i+1:]
	}
	return s
}
