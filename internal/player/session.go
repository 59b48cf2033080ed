package player

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"zestsync/internal/config"
	"zestsync/internal/history"
	"zestsync/internal/language"
	"zestsync/internal/logging"
	"zestsync/internal/media/ffprobe"
	"zestsync/internal/models"
	"zestsync/internal/notifications"
	"zestsync/internal/pipeline"
	"zestsync/internal/services"
	"zestsync/internal/taskqueue"
	"zestsync/internal/transcribe"
	"zestsync/internal/translate"
)

// ErrClosed is returned by queries after the session stopped.
var ErrClosed = errors.New("session closed")

// Playback is the external engine that renders video and subtitles.
type Playback interface {
	AddSubtitle(path string) error
}

// Transcriber produces base-language subtitles for a video.
type Transcriber interface {
	Run(ctx context.Context, req transcribe.Request) (string, error)
}

// Translator produces target-language subtitles from the base file.
type Translator interface {
	Run(ctx context.Context, req translate.Request) (string, error)
}

// Deps are the collaborators a Session drives. History and Notifier are
// optional.
type Deps struct {
	Config      *config.Config
	Playback    Playback
	Transcriber Transcriber
	Translator  Translator
	Downloader  *models.Downloader
	History     *history.Store
	Notifier    notifications.Service
	Logger      *slog.Logger
}

// Option adjusts a Session.
type Option func(*Session)

// WithAutoGenerateDelay sets the pause between a finished model download and
// the generation it unlocks.
func WithAutoGenerateDelay(d time.Duration) Option {
	return func(s *Session) { s.autoDelay = d }
}

// WithDurationProbe replaces the ffprobe duration lookup.
func WithDurationProbe(fn func(ctx context.Context, path string) (float64, error)) Option {
	return func(s *Session) { s.probeDuration = fn }
}

// WithLanguage sets the initially selected language.
func WithLanguage(code string) Option {
	return func(s *Session) { s.lang = code }
}

// State is a point-in-time copy of the session for queries.
type State struct {
	Media      []MediaItem `json:"media"`
	Current    int         `json:"current"`
	Language   string      `json:"language"`
	Generating *Activity   `json:"generating,omitempty"`
}

// Activity describes the running generation task.
type Activity struct {
	Kind     string `json:"kind"`
	Video    string `json:"video"`
	Language string `json:"language"`
	Percent  int    `json:"percent"`
}

// Session is the single-goroutine controller behind the player surface.
type Session struct {
	cfg         *config.Config
	playback    Playback
	transcriber Transcriber
	translator  Translator
	downloader  *models.Downloader
	registry    *models.Registry
	history     *history.Store
	notifier    notifications.Service
	logger      *slog.Logger

	generation    *taskqueue.Queue
	autoDelay     time.Duration
	probeDuration func(ctx context.Context, path string) (float64, error)
	now           func() time.Time

	inbox     chan message
	events    chan UIEvent
	done      chan struct{}
	closeOnce sync.Once
	wg        sync.WaitGroup

	// Owned by the Run goroutine.
	ctx       context.Context
	media     *Queue
	lang      string
	running   *generation
	ticker    *time.Ticker
	downloads map[string]string
	failed    map[string]bool
	autoTimer *time.Timer
}

// New wires a Session. Call Run to start it.
func New(ctx context.Context, deps Deps, opts ...Option) (*Session, error) {
	if deps.Config == nil || deps.Playback == nil || deps.Downloader == nil {
		return nil, errors.New("player: config, playback and downloader are required")
	}
	s := &Session{
		cfg:         deps.Config,
		playback:    deps.Playback,
		transcriber: deps.Transcriber,
		translator:  deps.Translator,
		downloader:  deps.Downloader,
		registry:    deps.Downloader.Registry(),
		history:     deps.History,
		notifier:    deps.Notifier,
		logger:      logging.NewComponentLogger(deps.Logger, "player"),
		autoDelay:   time.Second,
		now:         time.Now,
		inbox:       make(chan message, 64),
		events:      make(chan UIEvent, 64),
		done:        make(chan struct{}),
		media:       NewQueue(),
		lang:        language.BaseCode,
		downloads:   make(map[string]string),
		failed:      make(map[string]bool),
	}
	s.probeDuration = func(ctx context.Context, path string) (float64, error) {
		return ffprobe.Duration(ctx, s.cfg.FFprobeBinary(), path)
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.notifier == nil {
		s.notifier = notifications.NewService(s.cfg)
	}
	s.generation = taskqueue.New(ctx, "generation", deps.Logger, taskqueue.WithOnSettled(func(h *taskqueue.Handle) {
		s.post(generationSettled{handle: h})
	}))
	s.downloader.SetEventSink(func(ev models.Event) {
		s.post(downloadEvent{event: ev})
	})
	return s, nil
}

// Events is the stream of UI instructions. The consumer must keep draining
// it; the session blocks on a full channel. It is closed when Run returns.
func (s *Session) Events() <-chan UIEvent { return s.events }

// Run processes messages until ctx is cancelled. A running generation task
// is allowed to finish before Run returns.
func (s *Session) Run(ctx context.Context) error {
	s.ctx = ctx
	defer s.shutdown()

	s.emit(LanguageSelected{Code: s.lang})
	s.emitModelStatuses()
	s.evaluate(pipeline.LanguageChanged)

	for {
		var tick <-chan time.Time
		if s.ticker != nil {
			tick = s.ticker.C
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg := <-s.inbox:
			s.handle(msg)
		case <-tick:
			s.pollProgress()
		}
	}
}

func (s *Session) shutdown() {
	s.stopTicker()
	if s.autoTimer != nil {
		s.autoTimer.Stop()
	}
	s.closeOnce.Do(func() { close(s.done) })
	s.downloader.SetEventSink(nil)
	s.generation.Close()
	s.wg.Wait()
	close(s.events)
}

// Post delivers a playback engine observation. It is safe to call from any
// goroutine.
func (s *Session) Post(feed Feed) {
	if feed == nil {
		return
	}
	s.post(feedMessage{feed: feed})
}

// AddMedia appends a video to the play queue. The first item is selected.
func (s *Session) AddMedia(path string) { s.post(addMedia{path: path}) }

// RemoveMedia drops the play queue entry at index.
func (s *Session) RemoveMedia(index int) { s.post(removeMedia{index: index}) }

// SelectMedia makes the entry at index current.
func (s *Session) SelectMedia(index int) { s.post(selectMedia{index: index}) }

// SelectLanguage moves the language selector.
func (s *Session) SelectLanguage(code string) { s.post(selectLanguage{code: code}) }

// Generate is the explicit generate/download request.
func (s *Session) Generate() { s.post(generateRequest{}) }

// DownloadModel fetches the translation model for code without generating.
func (s *Session) DownloadModel(code string) { s.post(downloadModel{code: code}) }

// LoadSubtitleFile hands a user-chosen .srt file to the playback engine.
func (s *Session) LoadSubtitleFile(path string) { s.post(loadSubtitleFile{path: path}) }

// Cancel asks to stop the running task. Tasks cannot be interrupted, so the
// request is answered with a notice.
func (s *Session) Cancel() { s.post(cancelRequest{}) }

// Snapshot returns the current session state.
func (s *Session) Snapshot(ctx context.Context) (State, error) {
	reply := make(chan State, 1)
	select {
	case s.inbox <- snapshotRequest{reply: reply}:
	case <-s.done:
		return State{}, ErrClosed
	case <-ctx.Done():
		return State{}, ctx.Err()
	}
	select {
	case st := <-reply:
		return st, nil
	case <-s.done:
		return State{}, ErrClosed
	case <-ctx.Done():
		return State{}, ctx.Err()
	}
}

func (s *Session) post(msg message) {
	select {
	case s.inbox <- msg:
	case <-s.done:
	}
}

func (s *Session) emit(ev UIEvent) {
	select {
	case s.events <- ev:
	case <-s.ctx.Done():
	}
}

func (s *Session) toast(level ToastLevel, msg string) {
	if strings.TrimSpace(msg) == "" {
		return
	}
	s.emit(Toast{Level: level, Message: msg})
}

// failureToast reports a failed operation, marking it retryable when err
// carries a transient marker.
func (s *Session) failureToast(msg string, err error) {
	if strings.TrimSpace(msg) == "" {
		return
	}
	retry := services.Retryable(err)
	if retry {
		msg += " Try again."
	}
	s.emit(Toast{Level: ToastError, Message: msg, Retryable: retry})
}

func (s *Session) emitModelStatuses() {
	s.emit(ModelStatuses{Models: s.registry.List()})
}

func (s *Session) snapshot() State {
	st := State{
		Media:    s.media.Items(),
		Current:  s.media.CurrentIndex(),
		Language: s.lang,
	}
	if g := s.running; g != nil {
		snap := g.tracker.Poll(s.now())
		st.Generating = &Activity{Kind: g.kind, Video: g.video, Language: g.lang, Percent: snap.Percent}
	}
	return st
}

// notify sends a notification off the session goroutine.
func (s *Session) notify(event string, fn func(ctx context.Context) error) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ctx := context.WithoutCancel(s.ctx)
		if err := fn(ctx); err != nil {
			s.logger.Debug("notification failed",
				logging.String("notification", event),
				logging.Error(err))
		}
	}()
}
