package translate

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"zestsync/internal/language"
	"zestsync/internal/logging"
	"zestsync/internal/services"
	"zestsync/internal/srt"
)

// TaskKind labels translation tasks on the queue and in history.
const TaskKind = "translate"

// Request describes one translation.
type Request struct {
	BasePath string
	Target   string
	Output   string
}

// Task runs translations.
type Task struct {
	factory Factory
	logger  *slog.Logger
}

// New builds a Task that obtains engines from factory.
func New(factory Factory, logger *slog.Logger) *Task {
	return &Task{factory: factory, logger: logging.NewComponentLogger(logger, "translate")}
}

// Run translates req.BasePath into req.Output and returns the output path.
func (t *Task) Run(ctx context.Context, req Request) (output string, err error) {
	target := strings.ToLower(strings.TrimSpace(req.Target))
	if _, ok := language.ByCode(target); !ok || language.IsBase(target) {
		return "", services.Wrap(services.ErrValidation, "translate", "run", fmt.Sprintf("unsupported target %q", req.Target), nil)
	}
	ctx = services.WithLanguage(ctx, target)
	logger := logging.WithContext(ctx, t.logger).With(logging.String("base", req.BasePath))
	started := time.Now()

	cues, err := srt.ParseFile(req.BasePath)
	if err != nil {
		return "", err
	}
	if len(cues) == 0 {
		return "", services.Wrap(services.ErrMalformedInput, "translate", "parse base", req.BasePath+" has no subtitles", nil)
	}

	lease := NewLease(t.factory, target)
	defer func() {
		if relErr := lease.Release(); relErr != nil {
			logger.Debug("release translation engine failed", logging.Error(relErr))
		}
	}()
	engine, err := lease.Engine(ctx)
	if err != nil {
		return "", err
	}

	texts := make([]string, len(cues))
	for i, cue := range cues {
		texts[i] = cue.Text
	}
	translated, err := engine.Translate(ctx, texts, language.BaseCode, target)
	if err != nil {
		return "", err
	}
	if len(translated) != len(texts) {
		return "", services.Wrap(services.ErrMalformedInput, "translate", "align",
			fmt.Sprintf("engine returned %d texts for %d inputs", len(translated), len(texts)), nil)
	}

	// A cue the engine left empty keeps its source text so the output has the
	// same blocks as the base file.
	out := make([]srt.Cue, len(cues))
	for i, cue := range cues {
		text := translated[i]
		if strings.TrimSpace(text) == "" {
			logging.WarnWithContext(logger, "translation returned empty text; keeping source text", "translation_empty_cue",
				logging.Int("cue", i+1),
				logging.String("timing", cue.TimingLine()),
				logging.String(logging.FieldImpact, "cue shown untranslated"))
			text = cue.Text
		}
		out[i] = srt.Cue{Start: cue.Start, End: cue.End, Timing: cue.Timing, Text: text}
	}
	if err := srt.WriteFile(req.Output, out); err != nil {
		return "", services.Wrap(services.ErrTransient, "translate", "write subtitles", req.Output, err)
	}
	logger.Info("translation written",
		logging.String("output", req.Output),
		logging.Int("cues", len(out)),
		logging.Duration("elapsed", time.Since(started)),
		logging.String(logging.FieldEventType, "translation_written"))
	return req.Output, nil
}
