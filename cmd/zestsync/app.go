package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"zestsync/internal/config"
	"zestsync/internal/history"
	"zestsync/internal/logging"
	"zestsync/internal/models"
	"zestsync/internal/notifications"
	"zestsync/internal/player"
	"zestsync/internal/services/opusmt"
	"zestsync/internal/services/whisper"
	"zestsync/internal/taskqueue"
	"zestsync/internal/transcribe"
	"zestsync/internal/translate"
)

// hubRequestsPerSecond paces file requests against the model hub.
const hubRequestsPerSecond = 8

// app holds the long-lived collaborators shared by the commands that run
// generation or download work.
type app struct {
	cfg         *config.Config
	logger      *slog.Logger
	registry    *models.Registry
	downloads   *taskqueue.Queue
	downloader  *models.Downloader
	history     *history.Store
	notifier    notifications.Service
	transcriber *transcribe.Task
	translator  *translate.Task
}

func newApp(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*app, error) {
	if logger == nil {
		logger = logging.NewNop()
	}
	registry := models.NewRegistry(cfg.Models, nil)
	downloads := taskqueue.New(ctx, models.TaskKind, logger)

	prober := &models.HTTPProber{URL: cfg.Models.HubURL, Timeout: cfg.ProbeTimeout()}
	fetcher := &models.HubFetcher{
		BaseURL:  cfg.Models.HubURL,
		Client:   &http.Client{},
		Parallel: cfg.Models.ParallelFiles,
		Limiter:  rate.NewLimiter(rate.Limit(hubRequestsPerSecond), max(cfg.Models.ParallelFiles, 1)),
		Logger:   logger,
	}
	downloader, err := models.NewDownloader(registry, downloads, prober, fetcher, logger)
	if err != nil {
		downloads.Close()
		return nil, fmt.Errorf("init downloader: %w", err)
	}

	store, err := history.Open(cfg)
	if err != nil {
		downloads.Close()
		return nil, fmt.Errorf("open history: %w", err)
	}

	engine := whisper.New(whisper.ConfigFrom(cfg), logger)
	factory := opusmt.NewFactory(opusmt.ConfigFrom(cfg), registry, logger)

	return &app{
		cfg:         cfg,
		logger:      logger,
		registry:    registry,
		downloads:   downloads,
		downloader:  downloader,
		history:     store,
		notifier:    notifications.NewService(cfg),
		transcriber: transcribe.New(cfg, engine, logger),
		translator:  translate.New(factory, logger),
	}, nil
}

// newSession builds a player session around playback.
func (a *app) newSession(ctx context.Context, playback player.Playback, opts ...player.Option) (*player.Session, error) {
	return player.New(ctx, player.Deps{
		Config:      a.cfg,
		Playback:    playback,
		Transcriber: a.transcriber,
		Translator:  a.translator,
		Downloader:  a.downloader,
		History:     a.history,
		Notifier:    a.notifier,
		Logger:      a.logger,
	}, opts...)
}

// housekeeping marks runs orphaned by a previous process and prunes old logs
// and history. Only the instance holding the server lock should call it.
func (a *app) housekeeping(ctx context.Context, now time.Time) {
	if n, err := a.history.MarkInterrupted(ctx); err != nil {
		a.logger.Warn("mark interrupted runs", logging.Error(err))
	} else if n > 0 {
		a.logger.Info("marked interrupted runs", logging.Int("count", int(n)))
	}
	days := a.cfg.Logging.RetentionDays
	if days <= 0 {
		return
	}
	if n, err := a.history.Prune(ctx, now.AddDate(0, 0, -days)); err != nil {
		a.logger.Warn("prune history", logging.Error(err))
	} else if n > 0 {
		a.logger.Info("pruned history", logging.Int("count", int(n)))
	}
	logging.PruneLogs(a.logger, a.cfg.Paths.LogDir, "*.log*", days, now)
}

func (a *app) Close() {
	a.downloads.Close()
	if err := a.history.Close(); err != nil {
		a.logger.Warn("close history", logging.Error(err))
	}
}

// withApp loads configuration, builds the app and runs fn with it.
func (c *commandContext) withApp(ctx context.Context, fn func(*app) error) error {
	cfg, err := c.ensureConfig()
	if err != nil {
		return err
	}
	logger, err := c.ensureLogger()
	if err != nil {
		return err
	}
	a, err := newApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()
	return fn(a)
}
