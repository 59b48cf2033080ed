package config

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateModels(); err != nil {
		return err
	}
	if err := c.validateTranscription(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validatePaths() error {
	if strings.TrimSpace(c.Paths.StateDir) == "" {
		return errors.New("paths.state_dir must be set")
	}
	if _, _, err := net.SplitHostPort(c.Paths.APIBind); err != nil {
		return fmt.Errorf("paths.api_bind %q: %w", c.Paths.APIBind, err)
	}
	return nil
}

func (c *Config) validateModels() error {
	switch c.Models.Mode {
	case ModeUser, ModeBundled:
	default:
		return fmt.Errorf("models.mode must be %q or %q, got %q", ModeUser, ModeBundled, c.Models.Mode)
	}
	parsed, err := url.Parse(c.Models.HubURL)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return fmt.Errorf("models.hub_url must be an absolute URL, got %q", c.Models.HubURL)
	}
	if strings.ContainsAny(c.Models.Provider, "/ ") {
		return fmt.Errorf("models.provider must not contain slashes or spaces, got %q", c.Models.Provider)
	}
	if c.Models.ParallelFiles > 32 {
		return errors.New("models.parallel_files must be 32 or less")
	}
	return nil
}

func (c *Config) validateTranscription() error {
	switch c.Transcription.AccuracyMode {
	case AccuracyFast, AccuracyAccurate:
	default:
		return fmt.Errorf("transcription.accuracy_mode must be %q or %q, got %q", AccuracyFast, AccuracyAccurate, c.Transcription.AccuracyMode)
	}
	switch c.Transcription.VAD {
	case VADAuto, VADOff:
	default:
		return fmt.Errorf("transcription.vad must be %q or %q, got %q", VADAuto, VADOff, c.Transcription.VAD)
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format must be console or json, got %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("logging.level %q is not recognized", c.Logging.Level)
	}
	return nil
}
