package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// executablePath is swapped in tests to control bundled-mode resolution.
var executablePath = os.Executable

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	if err := c.normalizeModels(); err != nil {
		return err
	}
	if err := c.normalizeTranscription(); err != nil {
		return err
	}
	c.normalizeTranslation()
	c.normalizeProgress()
	c.Notifications.NtfyTopic = strings.TrimSpace(c.Notifications.NtfyTopic)
	if c.Notifications.RequestTimeout <= 0 {
		c.Notifications.RequestTimeout = defaultNotifyTimeout
	}
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if c.Paths.StateDir, err = expandPath(c.Paths.StateDir); err != nil {
		return fmt.Errorf("paths.state_dir: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.WorkDir) == "" {
		c.Paths.WorkDir = defaultWorkDir
	}
	if c.Paths.WorkDir, err = expandPath(c.Paths.WorkDir); err != nil {
		return fmt.Errorf("paths.work_dir: %w", err)
	}
	c.Paths.APIBind = strings.TrimSpace(c.Paths.APIBind)
	if c.Paths.APIBind == "" {
		c.Paths.APIBind = defaultAPIBind
	}
	c.Paths.APIToken = strings.TrimSpace(c.Paths.APIToken)
	return nil
}

func (c *Config) normalizeModels() error {
	c.Models.Mode = strings.ToLower(strings.TrimSpace(c.Models.Mode))
	if c.Models.Mode == "" {
		c.Models.Mode = defaultModelMode
	}
	c.Models.Provider = strings.TrimSpace(c.Models.Provider)
	if c.Models.Provider == "" {
		c.Models.Provider = defaultModelProvider
	}
	c.Models.ModelPrefix = strings.TrimSpace(c.Models.ModelPrefix)
	if c.Models.ModelPrefix == "" {
		c.Models.ModelPrefix = defaultModelPrefix
	}
	c.Models.HubURL = strings.TrimRight(strings.TrimSpace(c.Models.HubURL), "/")
	if c.Models.HubURL == "" {
		if value, ok := os.LookupEnv("HF_ENDPOINT"); ok && strings.TrimSpace(value) != "" {
			c.Models.HubURL = strings.TrimRight(strings.TrimSpace(value), "/")
		} else {
			c.Models.HubURL = defaultHubURL
		}
	}
	if c.Models.ProbeTimeoutSeconds <= 0 {
		c.Models.ProbeTimeoutSeconds = defaultProbeTimeoutSeconds
	}
	if c.Models.ParallelFiles <= 0 {
		c.Models.ParallelFiles = defaultParallelFiles
	}

	cacheDir := strings.TrimSpace(c.Models.CacheDir)
	if cacheDir == "" {
		resolved, err := c.defaultCacheDir()
		if err != nil {
			return err
		}
		cacheDir = resolved
	}
	expanded, err := expandPath(cacheDir)
	if err != nil {
		return fmt.Errorf("models.cache_dir: %w", err)
	}
	c.Models.CacheDir = expanded
	return nil
}

// defaultCacheDir follows the Hugging Face hub layout: $HF_HOME/hub in user
// mode, or a hub directory next to the executable in bundled mode.
func (c *Config) defaultCacheDir() (string, error) {
	if c.Models.Mode == ModeBundled {
		root, err := bundleRoot()
		if err != nil {
			return "", err
		}
		return filepath.Join(root, "models", "hub"), nil
	}
	if home, ok := os.LookupEnv("HF_HOME"); ok && strings.TrimSpace(home) != "" {
		return filepath.Join(strings.TrimSpace(home), "hub"), nil
	}
	return "~/.cache/huggingface/hub", nil
}

func bundleRoot() (string, error) {
	exe, err := executablePath()
	if err != nil {
		return "", fmt.Errorf("resolve executable: %w", err)
	}
	return filepath.Dir(exe), nil
}

func (c *Config) normalizeTranscription() error {
	t := &c.Transcription
	if strings.TrimSpace(t.ModelDir) == "" {
		if c.Models.Mode == ModeBundled {
			root, err := bundleRoot()
			if err != nil {
				return err
			}
			t.ModelDir = filepath.Join(root, "whisper")
		} else {
			t.ModelDir = defaultWhisperModelDir
		}
	}
	var err error
	if t.ModelDir, err = expandPath(t.ModelDir); err != nil {
		return fmt.Errorf("transcription.model_dir: %w", err)
	}
	t.PythonCommand = strings.TrimSpace(t.PythonCommand)
	if t.PythonCommand == "" {
		t.PythonCommand = defaultPythonCommand
	}
	t.Device = strings.ToLower(strings.TrimSpace(t.Device))
	if t.Device == "" {
		t.Device = defaultDevice
	}
	t.ComputeType = strings.TrimSpace(t.ComputeType)
	if t.ComputeType == "" {
		t.ComputeType = defaultComputeType
	}
	t.AccuracyMode = strings.ToLower(strings.TrimSpace(t.AccuracyMode))
	if t.AccuracyMode == "" {
		t.AccuracyMode = AccuracyFast
	}
	t.VAD = strings.ToLower(strings.TrimSpace(t.VAD))
	if t.VAD == "" {
		t.VAD = VADAuto
	}
	paths := t.FFmpegPaths[:0]
	for _, p := range t.FFmpegPaths {
		if p = strings.TrimSpace(p); p == "" {
			continue
		}
		if strings.ContainsRune(p, filepath.Separator) || strings.HasPrefix(p, "~") {
			if p, err = expandPath(p); err != nil {
				return fmt.Errorf("transcription.ffmpeg_paths: %w", err)
			}
		}
		paths = append(paths, p)
	}
	t.FFmpegPaths = paths
	return nil
}

func (c *Config) normalizeTranslation() {
	c.Translation.PythonCommand = strings.TrimSpace(c.Translation.PythonCommand)
	if c.Translation.PythonCommand == "" {
		c.Translation.PythonCommand = c.Transcription.PythonCommand
	}
	c.Translation.Device = strings.ToLower(strings.TrimSpace(c.Translation.Device))
	if c.Translation.Device == "" {
		c.Translation.Device = defaultDevice
	}
	if c.Translation.BatchSize <= 0 {
		c.Translation.BatchSize = defaultTranslationBatch
	}
}

func (c *Config) normalizeProgress() {
	if c.Progress.PollIntervalMS <= 0 {
		c.Progress.PollIntervalMS = defaultPollIntervalMS
	}
	if c.Progress.FallbackDurationSeconds < 0 {
		c.Progress.FallbackDurationSeconds = 0
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	if c.Logging.RetentionDays < 0 {
		c.Logging.RetentionDays = 0
	}
}
