package opusmt

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
	"time"

	"zestsync/internal/config"
	"zestsync/internal/logging"
	"zestsync/internal/models"
	"zestsync/internal/services"
	"zestsync/internal/translate"
)

//go:embed worker.py
var workerScript string

// Packages provisioned by uv-based launchers.
var Packages = []string{"transformers", "sentencepiece", "torch"}

// Config captures runtime settings for the worker.
type Config struct {
	PythonCommand string
	CacheDir      string
	Device        string
	BatchSize     int
}

// ConfigFrom extracts the engine settings from the application config.
func ConfigFrom(cfg *config.Config) Config {
	return Config{
		PythonCommand: cfg.Translation.PythonCommand,
		CacheDir:      cfg.Models.CacheDir,
		Device:        cfg.Translation.Device,
		BatchSize:     cfg.Translation.BatchSize,
	}
}

// Engine is a running worker bound to one model.
type Engine struct {
	repoID string
	logger *slog.Logger

	mu      sync.Mutex
	cmd     *exec.Cmd
	stdin   io.WriteCloser
	scanner *bufio.Scanner
	stderr  *bytes.Buffer
	closed  bool
}

type response struct {
	Ready        bool     `json:"ready"`
	Translations []string `json:"translations"`
	Error        string   `json:"error"`
}

// NewFactory returns a translate.Factory that starts one worker per lease,
// loading the model the registry names for the target language.
func NewFactory(cfg Config, registry *models.Registry, logger *slog.Logger) translate.Factory {
	return func(ctx context.Context, target string) (translate.Engine, error) {
		if !registry.Downloaded(target) {
			return nil, services.Wrap(services.ErrEngineInitFailed, "opusmt", "load model", registry.RepoID(target)+" is not downloaded", nil)
		}
		return Start(ctx, cfg, registry.RepoID(target), logger)
	}
}

// Start launches the worker for repoID and blocks until the model is loaded.
func Start(ctx context.Context, cfg Config, repoID string, logger *slog.Logger) (*Engine, error) {
	python := cfg.PythonCommand
	if strings.TrimSpace(python) == "" {
		python = "uvx"
	}
	device := cfg.Device
	if device == "" {
		device = "cpu"
	}
	batch := cfg.BatchSize
	if batch <= 0 {
		batch = 16
	}
	args := launcherArgs(python)
	args = append(args, "-c", workerScript,
		"--model", repoID,
		"--cache-dir", cfg.CacheDir,
		"--device", device,
		"--batch-size", strconv.Itoa(batch),
	)
	cmd := exec.CommandContext(ctx, python, args...) //nolint:gosec
	cmd.Env = append(os.Environ(), "HF_HUB_OFFLINE=1", "TRANSFORMERS_OFFLINE=1", "PYTHONUNBUFFERED=1", "PYTHONIOENCODING=utf-8")
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, services.Wrap(services.ErrEngineInitFailed, "opusmt", "start worker", "", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, services.Wrap(services.ErrEngineInitFailed, "opusmt", "start worker", "", err)
	}
	if err := cmd.Start(); err != nil {
		return nil, services.Wrap(services.ErrEngineInitFailed, "opusmt", "start worker", python, err)
	}

	e := &Engine{
		repoID:  repoID,
		logger:  logging.NewComponentLogger(logger, "opusmt"),
		cmd:     cmd,
		stdin:   stdin,
		scanner: bufio.NewScanner(stdout),
		stderr:  &stderr,
	}
	e.scanner.Buffer(make([]byte, 64*1024), 16*1024*1024)

	started := time.Now()
	resp, err := e.read()
	if err != nil || !resp.Ready {
		detail := resp.Error
		if detail == "" {
			detail = lastLine(stderr.String())
		}
		if detail == "" && err != nil {
			detail = err.Error()
		}
		_ = e.Close()
		return nil, services.Wrap(services.ErrEngineInitFailed, "opusmt", "load model", repoID+": "+detail, nil)
	}
	e.logger.Info("translation model loaded",
		logging.String("model", repoID),
		logging.Duration("elapsed", time.Since(started)),
		logging.String(logging.FieldEventType, "translation_model_loaded"))
	return e, nil
}

// Translate sends texts to the worker in one request. source and target are
// implied by the loaded model and only used for diagnostics.
func (e *Engine) Translate(ctx context.Context, texts []string, source, target string) ([]string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return nil, services.Wrap(services.ErrEngineInitFailed, "opusmt", "translate", "engine closed", nil)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(texts) == 0 {
		return nil, nil
	}
	payload, err := json.Marshal(map[string][]string{"texts": texts})
	if err != nil {
		return nil, err
	}
	if _, err := e.stdin.Write(append(payload, '\n')); err != nil {
		return nil, services.Wrap(services.ErrExternalTool, "opusmt", "translate", lastLine(e.stderr.String()), err)
	}
	resp, err := e.read()
	if err != nil {
		return nil, err
	}
	if resp.Error != "" {
		return nil, services.Wrap(services.ErrExternalTool, "opusmt", "translate", source+"->"+target+": "+resp.Error, nil)
	}
	return resp.Translations, nil
}

// Close stops the worker and frees the model memory.
func (e *Engine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return nil
	}
	e.closed = true
	_ = e.stdin.Close()
	done := make(chan error, 1)
	go func() { done <- e.cmd.Wait() }()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		_ = e.cmd.Process.Kill()
		<-done
	}
	e.logger.Debug("translation worker stopped", logging.String("model", e.repoID))
	return nil
}

func (e *Engine) read() (response, error) {
	for e.scanner.Scan() {
		line := bytes.TrimSpace(e.scanner.Bytes())
		if len(line) == 0 || line[0] != '{' {
			continue
		}
		var resp response
		if err := json.Unmarshal(line, &resp); err != nil {
			return response{}, services.Wrap(services.ErrMalformedInput, "opusmt", "decode", "", err)
		}
		return resp, nil
	}
	if err := e.scanner.Err(); err != nil {
		return response{}, services.Wrap(services.ErrExternalTool, "opusmt", "read", "", err)
	}
	return response{}, services.Wrap(services.ErrExternalTool, "opusmt", "read", "worker exited: "+lastLine(e.stderr.String()), nil)
}

func launcherArgs(python string) []string {
	var with []string
	for _, pkg := range Packages {
		with = append(with, "--with", pkg)
	}
	switch strings.TrimSuffix(filepath.Base(python), ".exe") {
	case "uvx":
		return append(with, "python")
	case "uv":
		return append(append([]string{"run", "--no-project"}, with...), "python")
	default:
		return nil
	}
}

func lastLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.LastIndexByte(s, '\n'); i >= 0 {
		return s[i+1:]
	}
	return s
}
