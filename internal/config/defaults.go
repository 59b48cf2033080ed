package config

const (
	defaultConfigPath          = "~/.config/zestsync/config.toml"
	defaultStateDir            = "~/.local/share/zestsync"
	defaultLogDir              = "~/.local/share/zestsync/logs"
	defaultWorkDir             = "~/.cache/zestsync/work"
	defaultAPIBind             = "127.0.0.1:7490"
	defaultModelMode           = ModeUser
	defaultModelProvider       = "Helsinki-NLP"
	defaultModelPrefix         = "opus-mt-en-"
	defaultHubURL              = "https://huggingface.co"
	defaultProbeTimeoutSeconds = 10
	defaultParallelFiles       = 4
	defaultWhisperModelDir     = "~/.local/share/zestsync/whisper"
	defaultPythonCommand       = "uvx"
	defaultDevice              = "cpu"
	defaultComputeType         = "int8"
	defaultTranslationBatch    = 16
	defaultPollIntervalMS      = 500
	defaultNotifyTimeout       = 10
	defaultLogFormat           = "console"
	defaultLogLevel            = "info"
	defaultLogRetentionDays    = 30
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			StateDir: defaultStateDir,
			LogDir:   defaultLogDir,
			WorkDir:  defaultWorkDir,
			APIBind:  defaultAPIBind,
		},
		Models: Models{
			Mode:                defaultModelMode,
			Provider:            defaultModelProvider,
			ModelPrefix:         defaultModelPrefix,
			HubURL:              defaultHubURL,
			ProbeTimeoutSeconds: defaultProbeTimeoutSeconds,
			ParallelFiles:       defaultParallelFiles,
		},
		Transcription: Transcription{
			PythonCommand: defaultPythonCommand,
			Device:        defaultDevice,
			ComputeType:   defaultComputeType,
			AccuracyMode:  AccuracyFast,
			VAD:           VADAuto,
		},
		Translation: Translation{
			PythonCommand: defaultPythonCommand,
			Device:        defaultDevice,
			BatchSize:     defaultTranslationBatch,
		},
		Progress: Progress{
			PollIntervalMS: defaultPollIntervalMS,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNotifyTimeout,
		},
		Logging: Logging{
			Format:        defaultLogFormat,
			Level:         defaultLogLevel,
			RetentionDays: defaultLogRetentionDays,
		},
	}
}
