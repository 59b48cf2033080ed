package player

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"zestsync/internal/artifact"
	"zestsync/internal/history"
	"zestsync/internal/language"
	"zestsync/internal/logging"
	"zestsync/internal/models"
	"zestsync/internal/pipeline"
	"zestsync/internal/progress"
	"zestsync/internal/services"
	"zestsync/internal/taskqueue"
	"zestsync/internal/transcribe"
	"zestsync/internal/translate"
)

const (
	generationTranscribe = transcribe.TaskKind
	generationTranslate  = translate.TaskKind

	durationProbeTimeout = 10 * time.Second
)

// generation is the in-flight transcription or translation.
type generation struct {
	handle    *taskqueue.Handle
	kind      string
	video     string
	lang      string
	output    string
	subject   string
	tracker   *progress.Tracker
	historyID string
}

func (s *Session) startGeneration(kind string, item MediaItem, code string) {
	output := artifact.Path(item.Path, code)
	var run func(ctx context.Context) (string, error)
	switch kind {
	case generationTranscribe:
		if s.transcriber == nil {
			s.toast(ToastError, "Transcription is not available.")
			return
		}
		req := transcribe.Request{Video: item.Path, Language: code, Output: output}
		run = func(ctx context.Context) (string, error) { return s.transcriber.Run(ctx, req) }
	default:
		if s.translator == nil {
			s.toast(ToastError, "Translation is not available.")
			return
		}
		req := translate.Request{BasePath: artifact.BasePath(item.Path), Target: code, Output: output}
		run = func(ctx context.Context) (string, error) { return s.translator.Run(ctx, req) }
	}

	handle, err := s.generation.Submit(taskqueue.Task{
		Kind:     kind,
		Label:    filepath.Base(item.Path),
		Language: code,
		Run:      run,
	})
	if err != nil {
		s.toast(ToastError, "Subtitle generation is already in progress.")
		s.logger.Debug("generation submit rejected", logging.Error(err))
		return
	}

	duration := s.mediaDuration(item)
	g := &generation{
		handle:  handle,
		kind:    kind,
		video:   item.Path,
		lang:    code,
		output:  output,
		subject: language.Name(code) + " subtitles",
		tracker: progress.NewTracker(progress.Estimate(duration, code), s.now()),
	}
	g.historyID = s.recordStart(kind, item.Path, code, output)
	s.running = g

	s.logger.Info("generation submitted",
		logging.String(logging.FieldTaskID, handle.ID),
		logging.String(logging.FieldTaskKind, kind),
		logging.Language(code),
		logging.Video(item.Path),
		logging.Float64("duration_seconds", duration),
		logging.String(logging.FieldEventType, "generation_submitted"))

	s.startTicker()
	s.pollProgress()
	s.controls(Controls{})
}

// mediaDuration resolves the duration used for the estimate: the playback
// engine's report, then the configured fallback, then ffprobe. Zero means
// unknown.
func (s *Session) mediaDuration(item MediaItem) float64 {
	if item.DurationSeconds > 0 {
		return item.DurationSeconds
	}
	if fb := s.cfg.Progress.FallbackDurationSeconds; fb > 0 {
		return float64(fb)
	}
	if s.probeDuration == nil {
		return 0
	}
	ctx, cancel := context.WithTimeout(s.ctx, durationProbeTimeout)
	defer cancel()
	seconds, err := s.probeDuration(ctx, item.Path)
	if err != nil || seconds <= 0 {
		s.logger.Debug("duration probe failed; progress will be indeterminate",
			logging.Video(item.Path),
			logging.Error(err))
		return 0
	}
	if cur, ok := s.media.Current(); ok && cur.Path == item.Path {
		s.media.SetCurrentDuration(seconds)
	}
	return seconds
}

func (s *Session) startTicker() {
	s.stopTicker()
	interval := s.cfg.PollInterval()
	if interval <= 0 {
		interval = 500 * time.Millisecond
	}
	s.ticker = time.NewTicker(interval)
}

func (s *Session) stopTicker() {
	if s.ticker != nil {
		s.ticker.Stop()
		s.ticker = nil
	}
}

func (s *Session) pollProgress() {
	g := s.running
	if g == nil {
		s.stopTicker()
		return
	}
	snap := g.tracker.Poll(s.now())
	s.emit(Progress{
		Visible:       true,
		Percent:       snap.Percent,
		Text:          snap.Status(g.subject),
		Indeterminate: snap.Indeterminate,
	})
}

func (s *Session) settleGeneration(h *taskqueue.Handle) {
	g := s.running
	if g == nil || g.handle != h {
		logging.WarnWithContext(s.logger, "settled task does not match the running generation", "generation_settle_mismatch",
			logging.String(logging.FieldTaskID, h.ID),
			logging.String(logging.FieldImpact, "result ignored"))
		return
	}
	s.stopTicker()
	s.running = nil
	snap := g.tracker.Settle(s.now())
	s.emit(Progress{Visible: true, Percent: snap.Percent, Text: snap.Status(g.subject)})

	res := h.Result()
	s.recordFinish(g.historyID, res.Output, res.Err)
	settled := TaskSettled{Kind: g.kind, Video: g.video, Language: g.lang, Output: res.Output}
	if res.Err != nil {
		settled.Error = res.Err.Error()
		s.failed[failureKey(g.video, g.lang)] = true
		s.failureToast(fmt.Sprintf("Generating %s failed: %s.", g.subject, services.Hint(res.Err)), res.Err)
		video, code, runErr := g.video, g.lang, res.Err
		s.notify("generation_failed", func(ctx context.Context) error {
			return s.notifier.NotifyGenerationFailed(ctx, video, code, runErr)
		})
	} else {
		video, code, output, elapsed := g.video, g.lang, res.Output, res.Elapsed
		s.notify("generation_completed", func(ctx context.Context) error {
			return s.notifier.NotifyGenerationCompleted(ctx, video, code, output, elapsed)
		})
	}
	s.emit(settled)

	// The artifact now exists (or the failure is recorded); re-running the
	// decision loads it when it still matches the current media.
	s.evaluate(pipeline.LanguageChanged)
}

func (s *Session) startDownload(code string) {
	handle, err := s.downloader.Download(code)
	if err != nil {
		s.failureToast(downloadMessage(code, err), err)
		return
	}
	s.downloads[handle.ID] = s.recordStart(models.TaskKind, "", code, s.registry.CachePath(code))
	s.toast(ToastInfo, fmt.Sprintf("Downloading the %s model (%s).", language.Name(code), language.SizeLabel(code)))
	s.controls(Controls{GenerateVisible: true, GenerateLabel: labelDownloading, SelectorEnabled: true})
}

func (s *Session) applyDownloadEvent(ev models.Event) {
	switch ev.Kind {
	case models.EventStarted:
		s.emitModelStatuses()
	case models.EventProgress:
		s.emit(DownloadProgress{Code: ev.Code, BytesDone: ev.BytesDone, BytesTotal: ev.BytesTotal})
	case models.EventFinished:
		s.finishDownload(ev)
	}
}

func (s *Session) finishDownload(ev models.Event) {
	output := ""
	if ev.Outcome == models.OutcomeSuccess {
		output = s.registry.CachePath(ev.Code)
	}
	if id, ok := s.downloads[ev.TaskID]; ok {
		delete(s.downloads, ev.TaskID)
		s.recordFinish(id, output, ev.Err)
	}
	s.emitModelStatuses()

	settled := TaskSettled{Kind: models.TaskKind, Language: ev.Code, Output: output}
	_, hasMedia := s.media.Current()
	if ev.Outcome != models.OutcomeSuccess {
		settled.Error = errorText(ev.Err)
		s.failureToast(downloadMessage(ev.Code, ev.Err), ev.Err)
		s.emit(settled)
		if ev.Code == s.lang {
			s.evaluate(pipeline.LanguageChanged)
		}
		return
	}

	s.toast(ToastInfo, fmt.Sprintf("%s model downloaded.", language.Name(ev.Code)))
	code := ev.Code
	s.notify("model_downloaded", func(ctx context.Context) error {
		return s.notifier.NotifyModelDownloaded(ctx, code)
	})
	s.emit(settled)
	if code != s.lang {
		return
	}
	if !hasMedia {
		s.evaluate(pipeline.LanguageChanged)
		return
	}
	s.scheduleAutoGenerate(code)
}

func (s *Session) scheduleAutoGenerate(code string) {
	if s.autoTimer != nil {
		s.autoTimer.Stop()
	}
	s.autoTimer = time.AfterFunc(s.autoDelay, func() {
		s.post(autoGenerate{code: code})
	})
}

func (s *Session) autoGenerate(code string) {
	if code != s.lang {
		s.logger.Debug("auto generation skipped; language changed",
			logging.Language(code))
		s.evaluate(pipeline.LanguageChanged)
		return
	}
	if _, ok := s.media.Current(); !ok {
		return
	}
	s.evaluate(pipeline.ExplicitRequest)
}

func (s *Session) recordStart(kind, video, code, output string) string {
	if s.history == nil {
		return ""
	}
	rec, err := s.history.Start(s.ctx, history.Record{Kind: kind, Video: video, Language: code, Output: output})
	if err != nil {
		logging.WarnWithContext(s.logger, "history record not written", "history_start_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "run missing from history"))
		return ""
	}
	return rec.ID
}

func (s *Session) recordFinish(id, output string, runErr error) {
	if s.history == nil || id == "" {
		return
	}
	if err := s.history.Finish(s.ctx, id, output, runErr); err != nil {
		logging.WarnWithContext(s.logger, "history record not closed", "history_finish_failed",
			logging.Error(err),
			logging.String("run_id", id),
			logging.String(logging.FieldImpact, "run stays marked running in history"))
	}
}

func downloadMessage(code string, err error) string {
	name := language.Name(code)
	switch {
	case errors.Is(err, services.ErrNetworkUnavailable):
		return fmt.Sprintf("Cannot download the %s model: no network connection.", name)
	case errors.Is(err, services.ErrAlreadyInProgress):
		return "A model download is already in progress."
	case errors.Is(err, services.ErrValidation):
		return fmt.Sprintf("The %s model cannot be downloaded.", name)
	default:
		return fmt.Sprintf("Downloading the %s model failed: %s.", name, services.Hint(err))
	}
}

func errorText(err error) string {
	if err == nil {
		return "download failed"
	}
	return err.Error()
}
