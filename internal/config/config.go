package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Model cache deployment modes.
const (
	ModeUser    = "user"
	ModeBundled = "bundled"
)

// Transcription accuracy modes.
const (
	AccuracyFast     = "fast"
	AccuracyAccurate = "accurate"
)

// VAD settings.
const (
	VADAuto = "auto"
	VADOff  = "off"
)

// Paths contains directory and bind address configuration.
type Paths struct {
	StateDir string `toml:"state_dir"`
	LogDir   string `toml:"log_dir"`
	WorkDir  string `toml:"work_dir"`
	APIBind  string `toml:"api_bind"`
	// APIToken, when set, is required as a bearer token by the HTTP API.
	APIToken string `toml:"api_token"`
}

// Models contains translation model cache and download settings.
type Models struct {
	Mode                string `toml:"mode"`
	CacheDir            string `toml:"cache_dir"`
	Provider            string `toml:"provider"`
	ModelPrefix         string `toml:"model_prefix"`
	HubURL              string `toml:"hub_url"`
	ProbeTimeoutSeconds int    `toml:"probe_timeout_seconds"`
	ParallelFiles       int    `toml:"parallel_files"`
}

// Transcription contains speech-to-text settings.
type Transcription struct {
	ModelDir      string   `toml:"model_dir"`
	PythonCommand string   `toml:"python_command"`
	Device        string   `toml:"device"`
	ComputeType   string   `toml:"compute_type"`
	AccuracyMode  string   `toml:"accuracy_mode"`
	VAD           string   `toml:"vad"`
	FFmpegPaths   []string `toml:"ffmpeg_paths"`
}

// Translation contains machine translation settings.
type Translation struct {
	PythonCommand string `toml:"python_command"`
	Device        string `toml:"device"`
	BatchSize     int    `toml:"batch_size"`
}

// Progress contains progress estimation settings.
type Progress struct {
	PollIntervalMS          int `toml:"poll_interval_ms"`
	FallbackDurationSeconds int `toml:"fallback_duration_seconds"`
}

// Notifications contains configuration for ntfy push notifications.
type Notifications struct {
	NtfyTopic      string `toml:"ntfy_topic"`
	RequestTimeout int    `toml:"request_timeout"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format        string `toml:"format"`
	Level         string `toml:"level"`
	RetentionDays int    `toml:"retention_days"`
}

// Config encapsulates all configuration values for zestsync.
//
// Configuration sections by subsystem:
//   - Paths: state, log and scratch directories plus the API bind address
//   - Models: translation model cache root and Hugging Face hub access
//   - Transcription: faster-whisper runtime and ffmpeg locations
//   - Translation: opus-mt runtime
//   - Progress: polling cadence and duration fallback
//   - Notifications: ntfy push notification settings
//   - Logging: log format, level, and retention
type Config struct {
	Paths         Paths         `toml:"paths"`
	Models        Models        `toml:"models"`
	Transcription Transcription `toml:"transcription"`
	Translation   Translation   `toml:"translation"`
	Progress      Progress      `toml:"progress"`
	Notifications Notifications `toml:"notifications"`
	Logging       Logging       `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigPath)
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		if err := toml.NewDecoder(file).DisallowUnknownFields().Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}
	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		if _, err := os.Stat(expanded); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath(defaultConfigPath)
	if err != nil {
		return "", false, err
	}
	projectPath, err := filepath.Abs("zestsync.toml")
	if err != nil {
		return "", false, err
	}
	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}
	return defaultPath, false, nil
}

// EnsureDirectories creates the state, log and scratch directories.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.StateDir, c.Paths.LogDir, c.Paths.WorkDir} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// HistoryPath returns the location of the task history database.
func (c *Config) HistoryPath() string {
	return filepath.Join(c.Paths.StateDir, "history.db")
}

// LockPath returns the single-instance lock file used by the API server.
func (c *Config) LockPath() string {
	return filepath.Join(c.Paths.StateDir, "zestsync.lock")
}

// ProbeTimeout bounds the network reachability check before a download.
func (c *Config) ProbeTimeout() time.Duration {
	return time.Duration(c.Models.ProbeTimeoutSeconds) * time.Second
}

// PollInterval is the cadence of progress updates while a task runs.
func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.Progress.PollIntervalMS) * time.Millisecond
}

// FFprobeBinary returns the ffprobe executable name used for duration probing.
func (c *Config) FFprobeBinary() string {
	return "ffprobe"
}

// BeamSize maps the accuracy mode to the decoder beam width.
func (c *Config) BeamSize() int {
	if c.Transcription.AccuracyMode == AccuracyAccurate {
		return 5
	}
	return 1
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
