package transcribe

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"zestsync/internal/config"
	"zestsync/internal/deps"
	"zestsync/internal/language"
	"zestsync/internal/logging"
	"zestsync/internal/media/audio"
	"zestsync/internal/media/ffprobe"
	"zestsync/internal/services"
	"zestsync/internal/srt"
)

// TaskKind labels transcription tasks on the queue and in history.
const TaskKind = "transcribe"

// Request describes one transcription.
type Request struct {
	Video    string
	Language string
	Output   string
}

// Task runs transcriptions. It holds no per-run state and may be reused.
type Task struct {
	engine  Engine
	workDir string
	vad     string
	ffmpeg  []string
	ffprobe string
	logger  *slog.Logger

	locate  func(ctx context.Context, candidates []string) (string, error)
	extract func(ctx context.Context, ffmpeg, video, dest, mapArg string) error
	inspect func(ctx context.Context, binary, path string) (ffprobe.Result, error)
}

// New builds a Task from configuration.
func New(cfg *config.Config, engine Engine, logger *slog.Logger) *Task {
	return &Task{
		engine:  engine,
		workDir: cfg.Paths.WorkDir,
		vad:     cfg.Transcription.VAD,
		ffmpeg:  deps.FFmpegCandidates(cfg.Transcription.FFmpegPaths),
		ffprobe: cfg.FFprobeBinary(),
		logger:  logging.NewComponentLogger(logger, "transcribe"),
		locate:  deps.LocateFFmpeg,
		extract: ExtractAudio,
		inspect: ffprobe.Inspect,
	}
}

// Run transcribes req.Video into req.Output and returns the output path.
func (t *Task) Run(ctx context.Context, req Request) (string, error) {
	if t.engine == nil {
		return "", services.Wrap(services.ErrEngineInitFailed, "transcribe", "run", "no speech-to-text engine configured", nil)
	}
	if strings.TrimSpace(req.Video) == "" || strings.TrimSpace(req.Output) == "" {
		return "", services.Wrap(services.ErrValidation, "transcribe", "run", "video and output paths are required", nil)
	}
	code := req.Language
	if code == "" {
		code = language.BaseCode
	}
	ctx = services.WithLanguage(ctx, code)
	logger := logging.WithContext(ctx, t.logger).With(logging.Video(req.Video))
	started := time.Now()

	ffmpeg, err := t.locate(ctx, t.ffmpeg)
	if err != nil {
		return "", err
	}

	if err := os.MkdirAll(t.workDir, 0o755); err != nil {
		return "", services.Wrap(services.ErrConfiguration, "transcribe", "work dir", t.workDir, err)
	}
	base := strings.TrimSuffix(filepath.Base(req.Video), filepath.Ext(req.Video))
	audioPath := filepath.Join(t.workDir, fmt.Sprintf("audio_%s_%s.mp3", base, uuid.NewString()[:8]))
	defer func() {
		if err := os.Remove(audioPath); err != nil && !errors.Is(err, os.ErrNotExist) {
			logging.WarnWithContext(logger, "temporary audio not removed", "audio_cleanup_failed",
				logging.String("path", audioPath),
				logging.Error(err),
				logging.String(logging.FieldImpact, "scratch file left in work dir"),
				logging.String(logging.FieldErrorHint, "delete files under work_dir manually"))
		}
	}()

	mapArg := t.chooseTrack(ctx, logger, req.Video, code)
	if err := t.extract(ctx, ffmpeg, req.Video, audioPath, mapArg); err != nil {
		return "", err
	}
	logger.Debug("audio extracted", logging.String("audio", audioPath), logging.String("ffmpeg", ffmpeg))

	opts := Options{Language: language.ISO2(code)}
	if t.vad != config.VADOff {
		opts.VADFilter = t.engine.SupportsVAD(ctx)
	}
	stream, err := t.engine.Transcribe(ctx, audioPath, opts)
	if err != nil {
		return "", err
	}
	segments, err := Collect(stream)
	if closeErr := stream.Close(); closeErr != nil && err == nil {
		err = closeErr
	}
	if err != nil {
		return "", err
	}

	cues := Normalize(segments)
	if err := srt.WriteFile(req.Output, cues); err != nil {
		return "", services.Wrap(services.ErrTransient, "transcribe", "write subtitles", req.Output, err)
	}
	logger.Info("transcription written",
		logging.String("output", req.Output),
		logging.Int("segments", len(segments)),
		logging.Int("cues", len(cues)),
		logging.Bool("vad", opts.VADFilter),
		logging.Duration("elapsed", time.Since(started)),
		logging.String(logging.FieldEventType, "transcription_written"))
	return req.Output, nil
}

// chooseTrack picks a speech track when the container carries several. Probe
// failures fall back to ffmpeg's default stream choice.
func (t *Task) chooseTrack(ctx context.Context, logger *slog.Logger, video, code string) string {
	if t.inspect == nil || t.ffprobe == "" {
		return ""
	}
	result, err := t.inspect(ctx, t.ffprobe, video)
	if err != nil {
		logger.Debug("audio track probe skipped", logging.Error(err))
		return ""
	}
	sel, ok := audio.Select(result.AudioStreams(), language.ISO2(code))
	if !ok || !sel.Ambiguous {
		return ""
	}
	logger.Info("audio track selected",
		logging.String("track", sel.Label()),
		logging.String("map", sel.MapArg()),
		logging.String(logging.FieldEventType, "audio_track_selected"))
	return sel.MapArg()
}
