package player

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"zestsync/internal/artifact"
	"zestsync/internal/fileutil"
	"zestsync/internal/language"
	"zestsync/internal/logging"
	"zestsync/internal/pipeline"
	"zestsync/internal/progress"
	"zestsync/internal/srt"
	"zestsync/internal/timecode"
)

const (
	labelGenerate    = "Generate"
	labelGenerating  = "Generating..."
	labelDownloading = "Downloading..."
)

func (s *Session) addMedia(path string) {
	path = strings.TrimSpace(path)
	if !fileutil.IsRegularFile(path) {
		s.toast(ToastError, fmt.Sprintf("Cannot open %q: file not found.", path))
		return
	}
	idx := s.media.Add(path)
	s.logger.Info("media added",
		logging.Video(path),
		logging.Int("index", idx),
		logging.String(logging.FieldEventType, "media_added"))
	if s.media.CurrentIndex() < 0 {
		s.selectMedia(idx)
	}
}

func (s *Session) removeMedia(index int) {
	wasCurrent := index == s.media.CurrentIndex()
	item, err := s.media.Remove(index)
	if err != nil {
		s.toast(ToastError, "That item is no longer in the queue.")
		return
	}
	s.logger.Info("media removed",
		logging.Video(item.Path),
		logging.String(logging.FieldEventType, "media_removed"))
	if wasCurrent {
		s.evaluate(pipeline.LanguageChanged)
	}
}

func (s *Session) selectMedia(index int) {
	item, err := s.media.Select(index)
	if err != nil {
		s.toast(ToastError, "That item is no longer in the queue.")
		return
	}
	s.logger.Debug("media selected", logging.Video(item.Path))
	s.evaluate(pipeline.LanguageChanged)
}

func (s *Session) selectLanguage(code string) {
	entry, ok := language.Resolve(code)
	if !ok {
		s.toast(ToastError, fmt.Sprintf("Unsupported language %q.", code))
		s.emit(LanguageSelected{Code: s.lang})
		return
	}
	if s.running != nil && entry.Code != s.lang {
		s.toast(ToastInfo, fmt.Sprintf("%s is still being generated. Change the language when it finishes.", s.running.subject))
		s.emit(LanguageSelected{Code: s.lang})
		return
	}
	s.lang = entry.Code
	s.emit(LanguageSelected{Code: s.lang})
	s.evaluate(pipeline.LanguageChanged)
}

func (s *Session) generate() {
	if item, ok := s.media.Current(); ok {
		delete(s.failed, failureKey(item.Path, s.lang))
	}
	s.evaluate(pipeline.ExplicitRequest)
}

func (s *Session) cancel() {
	if s.running == nil {
		s.toast(ToastInfo, "Nothing is being generated.")
		return
	}
	s.toast(ToastInfo, fmt.Sprintf("%s cannot be cancelled once started.", s.running.subject))
}

func (s *Session) applyFeed(feed Feed) {
	if d, ok := feed.(DurationUpdate); ok {
		s.media.SetCurrentDuration(d.Seconds)
	}
	s.emit(FeedMirror{Feed: feed})
}

// evaluate runs the decision table for the current media and language and
// carries out the result.
func (s *Session) evaluate(trigger pipeline.Trigger) {
	item, hasMedia := s.media.Current()
	code := s.lang
	in := pipeline.Input{
		HasMedia:       hasMedia,
		Language:       code,
		Model:          s.registry.State(code),
		GenerationBusy: s.running != nil || s.generation.Busy(),
		DownloadBusy:   s.downloader.Busy(),
		Trigger:        trigger,
	}
	if hasMedia {
		in.BaseExists = artifact.Exists(artifact.BasePath(item.Path))
		in.TargetExists = artifact.Exists(artifact.Path(item.Path, code))
	}
	d := pipeline.Decide(in)
	s.logger.Debug("generation decision",
		logging.String("action", d.Action.String()),
		logging.String("trigger", trigger.String()),
		logging.Language(d.Language),
		logging.Video(item.Path))

	switch d.Action {
	case pipeline.ActionNone:
		if trigger == pipeline.ExplicitRequest {
			s.toast(ToastInfo, "Open a video first.")
		}
		s.controls(Controls{SelectorEnabled: true})
	case pipeline.ActionLoadExisting:
		s.loadSubtitle(artifact.Path(item.Path, d.Language), d.Language)
		s.controls(Controls{SelectorEnabled: true})
	case pipeline.ActionRequireBase:
		s.lang = d.Language
		s.emit(LanguageSelected{Code: s.lang})
		s.toast(ToastInfo, s.prerequisiteNotice(d, item))
		s.evaluate(trigger)
	case pipeline.ActionTranscribe:
		if trigger == pipeline.LanguageChanged && s.failed[failureKey(item.Path, d.Language)] {
			s.controls(Controls{GenerateVisible: true, GenerateLabel: labelGenerate, GenerateEnabled: true, SelectorEnabled: true})
			return
		}
		s.startGeneration(generationTranscribe, item, d.Language)
	case pipeline.ActionTranslate:
		s.startGeneration(generationTranslate, item, d.Language)
	case pipeline.ActionDownload:
		s.startDownload(d.Language)
	case pipeline.ActionOfferDownload:
		s.controls(Controls{GenerateVisible: true, GenerateLabel: downloadLabel(d.Language), GenerateEnabled: true, SelectorEnabled: true})
	case pipeline.ActionAwaitDownload:
		s.controls(Controls{GenerateVisible: true, GenerateLabel: labelDownloading, SelectorEnabled: true})
	case pipeline.ActionOfferGenerate:
		s.controls(Controls{GenerateVisible: true, GenerateLabel: labelGenerate, GenerateEnabled: true, SelectorEnabled: true})
	case pipeline.ActionReject:
		if trigger == pipeline.ExplicitRequest {
			s.toast(ToastError, d.Notice)
			s.evaluate(pipeline.LanguageChanged)
			return
		}
		s.controls(Controls{SelectorEnabled: true})
	}
}

// controls emits c, locking everything down while a generation task runs.
func (s *Session) controls(c Controls) {
	if s.running != nil {
		c.GenerateVisible = true
		c.GenerateLabel = labelGenerating
		c.GenerateEnabled = false
		c.SelectorEnabled = false
	}
	s.emit(c)
}

func downloadLabel(code string) string {
	if size := language.SizeLabel(code); size != "" {
		return fmt.Sprintf("Download (%s)", size)
	}
	return "Download"
}

func (s *Session) prerequisiteNotice(d pipeline.Decision, item MediaItem) string {
	duration := s.mediaDuration(item)
	if duration <= 0 {
		return d.Notice
	}
	est := progress.Estimate(duration, d.Prerequisite)
	return fmt.Sprintf("%s Transcription takes about %s.", d.Notice,
		timecode.FormatMinutes(time.Duration(est*float64(time.Second))))
}

func (s *Session) loadSubtitle(path, code string) bool {
	size, err := fileutil.Size(path)
	if err != nil || size == 0 {
		s.toast(ToastError, fmt.Sprintf("%s is empty and was not loaded.", filepath.Base(path)))
		return false
	}
	if err := s.playback.AddSubtitle(path); err != nil {
		logging.WarnWithContext(s.logger, "playback rejected subtitle", "subtitle_load_failed",
			logging.Error(err),
			logging.String("path", path),
			logging.String(logging.FieldImpact, "subtitle not shown"))
		s.toast(ToastError, fmt.Sprintf("Could not load %s.", filepath.Base(path)))
		return false
	}
	s.logger.Info("subtitle loaded",
		logging.String("path", path),
		logging.Language(code),
		logging.String(logging.FieldEventType, "subtitle_loaded"))
	s.emit(SubtitleLoaded{Path: path, Language: code})
	return true
}

func (s *Session) loadManualSubtitle(path string) {
	if !strings.EqualFold(filepath.Ext(path), ".srt") {
		s.toast(ToastError, "Only .srt subtitle files can be loaded.")
		return
	}
	cues, err := srt.ParseFile(path)
	if err != nil || len(cues) == 0 {
		s.logger.Debug("manual subtitle rejected", logging.String("path", path), logging.Error(err))
		s.toast(ToastError, fmt.Sprintf("%s is not a valid subtitle file.", filepath.Base(path)))
		return
	}
	s.loadSubtitle(path, "")
}

func failureKey(video, code string) string {
	return code + "\x00" + video
}
