package models

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/gofrs/flock"

	"zestsync/internal/language"
	"zestsync/internal/logging"
	"zestsync/internal/services"
	"zestsync/internal/taskqueue"
)

// TaskKind labels download tasks on the queue and in history.
const TaskKind = "download"

// EventKind enumerates downloader notifications.
type EventKind int

const (
	EventStarted EventKind = iota
	EventProgress
	EventFinished
)

// Outcome is the result carried by an EventFinished.
type Outcome string

const (
	OutcomeSuccess Outcome = "success"
	OutcomeFailure Outcome = "failure"
)

// Event is emitted by the download worker. Consumers must hand it off to
// their own goroutine rather than touch shared state from the callback.
type Event struct {
	Kind       EventKind
	Code       string
	TaskID     string
	Outcome    Outcome
	Err        error
	BytesDone  int64
	BytesTotal int64
	At         time.Time
}

// Downloader fetches translation models on its own single-worker queue.
type Downloader struct {
	registry *Registry
	queue    *taskqueue.Queue
	prober   Prober
	fetcher  Fetcher
	lockDir  string
	logger   *slog.Logger
	// minProgressGap throttles EventProgress emission.
	minProgressGap time.Duration

	mu   sync.Mutex
	sink func(Event)
}

// NewDownloader wires a downloader. queue must be dedicated to downloads.
func NewDownloader(registry *Registry, queue *taskqueue.Queue, prober Prober, fetcher Fetcher, logger *slog.Logger) (*Downloader, error) {
	if registry == nil || queue == nil || prober == nil {
		return nil, services.Wrap(services.ErrConfiguration, "models", "new downloader", "registry, queue and prober are required", nil)
	}
	if fetcher == nil {
		return nil, services.Wrap(services.ErrConfiguration, "models", "new downloader", "", ErrNoFetcher)
	}
	return &Downloader{
		registry:       registry,
		queue:          queue,
		prober:         prober,
		fetcher:        fetcher,
		lockDir:        filepath.Join(registry.CacheRoot(), ".locks"),
		logger:         logging.NewComponentLogger(logger, "models"),
		minProgressGap: 250 * time.Millisecond,
	}, nil
}

// SetEventSink registers the callback that receives download events.
func (d *Downloader) SetEventSink(fn func(Event)) {
	d.mu.Lock()
	d.sink = fn
	d.mu.Unlock()
}

// Registry returns the registry the downloader updates.
func (d *Downloader) Registry() *Registry { return d.registry }

// Busy reports whether a download is running.
func (d *Downloader) Busy() bool { return d.queue.Busy() }

// Download submits a download for code. It is rejected synchronously when a
// download is running or the model is already present.
func (d *Downloader) Download(code string) (*taskqueue.Handle, error) {
	entry, ok := language.ByCode(code)
	if !ok {
		return nil, services.Wrap(services.ErrValidation, "models", "download", fmt.Sprintf("unknown language %q", code), nil)
	}
	if language.IsBase(entry.Code) {
		return nil, services.Wrap(services.ErrValidation, "models", "download", "the base language needs no model", nil)
	}
	switch d.registry.State(entry.Code) {
	case Downloading:
		return nil, services.Wrap(services.ErrAlreadyInProgress, "models", "download", entry.DisplayName+" model is already downloading", nil)
	case Downloaded:
		return nil, services.Wrap(services.ErrValidation, "models", "download", entry.DisplayName+" model is already downloaded", nil)
	}
	return d.queue.Submit(taskqueue.Task{
		Kind:     TaskKind,
		Label:    d.registry.RepoID(entry.Code),
		Language: entry.Code,
		Run: func(ctx context.Context) (string, error) {
			return d.run(ctx, entry.Code)
		},
	})
}

func (d *Downloader) run(ctx context.Context, code string) (string, error) {
	logger := logging.WithContext(ctx, d.logger)
	taskID, _ := services.TaskIDFromContext(ctx)
	dest := d.registry.CachePath(code)

	if err := d.prober.Probe(ctx); err != nil {
		d.emit(Event{Kind: EventFinished, Code: code, TaskID: taskID, Outcome: OutcomeFailure, Err: err})
		return "", err
	}

	if err := os.MkdirAll(d.lockDir, 0o755); err != nil {
		err = services.Wrap(services.ErrConfiguration, "models", "lock", "create lock dir", err)
		d.emit(Event{Kind: EventFinished, Code: code, TaskID: taskID, Outcome: OutcomeFailure, Err: err})
		return "", err
	}
	lock := flock.New(filepath.Join(d.lockDir, code+".lock"))
	locked, err := lock.TryLock()
	if err != nil || !locked {
		err = services.Wrap(services.ErrAlreadyInProgress, "models", "lock", "another process is downloading this model", err)
		d.emit(Event{Kind: EventFinished, Code: code, TaskID: taskID, Outcome: OutcomeFailure, Err: err})
		return "", err
	}
	defer func() {
		if err := lock.Unlock(); err != nil {
			logger.Debug("release download lock failed", logging.Error(err))
		}
	}()

	if !d.registry.Board().Begin(code) {
		err := services.Wrap(services.ErrAlreadyInProgress, "models", "download", "model is already downloading", nil)
		d.emit(Event{Kind: EventFinished, Code: code, TaskID: taskID, Outcome: OutcomeFailure, Err: err})
		return "", err
	}
	d.emit(Event{Kind: EventStarted, Code: code, TaskID: taskID})
	logger.Info("model download started",
		logging.String("repo", d.registry.RepoID(code)),
		logging.String("dest", dest),
		logging.String(logging.FieldEventType, "model_download_started"))

	var lastEmit time.Time
	var progressMu sync.Mutex
	progress := func(done, total int64) {
		progressMu.Lock()
		now := time.Now()
		if now.Sub(lastEmit) < d.minProgressGap {
			progressMu.Unlock()
			return
		}
		lastEmit = now
		progressMu.Unlock()
		d.emit(Event{Kind: EventProgress, Code: code, TaskID: taskID, BytesDone: done, BytesTotal: total})
	}

	fetchErr := d.fetcher.Fetch(ctx, d.registry.RepoID(code), dest, progress)
	if fetchErr != nil && d.registry.Downloaded(code) {
		logging.WarnWithContext(logger, "model fetch reported an error but the model is cached", "model_fetch_recovered",
			logging.Error(fetchErr),
			logging.String(logging.FieldImpact, "treating download as successful"),
			logging.String(logging.FieldErrorHint, "delete the model directory if translations fail"))
		fetchErr = nil
	}
	if fetchErr != nil {
		d.registry.Board().Finish(code, false)
		err := services.Wrap(services.ErrTransient, "models", "download", d.registry.RepoID(code), fetchErr)
		d.emit(Event{Kind: EventFinished, Code: code, TaskID: taskID, Outcome: OutcomeFailure, Err: err})
		return "", err
	}

	d.registry.Board().Finish(code, true)
	d.emit(Event{Kind: EventFinished, Code: code, TaskID: taskID, Outcome: OutcomeSuccess})
	logger.Info("model download finished",
		logging.String("dest", dest),
		logging.String(logging.FieldEventType, "model_download_finished"))
	return dest, nil
}

func (d *Downloader) emit(ev Event) {
	if ev.At.IsZero() {
		ev.At = time.Now()
	}
	d.mu.Lock()
	sink := d.sink
	d.mu.Unlock()
	if sink != nil {
		sink(ev)
	}
}
