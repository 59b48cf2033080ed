package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"zestsync/internal/config"
	"zestsync/internal/history"
	"zestsync/internal/logging"
	"zestsync/internal/models"
	"zestsync/internal/player"
	"zestsync/internal/services"
)

const version = "0.1.0"

// Controller is the session surface the API drives.
type Controller interface {
	AddMedia(path string)
	RemoveMedia(index int)
	SelectMedia(index int)
	SelectLanguage(code string)
	Generate()
	DownloadModel(code string)
	LoadSubtitleFile(path string)
	Post(feed player.Feed)
	Snapshot(ctx context.Context) (player.State, error)
	Events() <-chan player.UIEvent
}

// Server serves the HTTP API for one session.
type Server struct {
	cfg      *config.Config
	session  Controller
	registry *models.Registry
	history  *history.Store
	events   *EventBus
	logger   *slog.Logger
	started  time.Time

	listener net.Listener
	server   *http.Server
}

// New builds a Server. bus may be shared with an EventPlayback; nil creates
// a fresh one. store may be nil.
func New(cfg *config.Config, session Controller, registry *models.Registry, store *history.Store, bus *EventBus, logger *slog.Logger) *Server {
	if bus == nil {
		bus = NewEventBus()
	}
	return &Server{
		cfg:      cfg,
		session:  session,
		registry: registry,
		history:  store,
		events:   bus,
		logger:   logging.NewComponentLogger(logger, "server"),
		started:  time.Now(),
	}
}

// Events returns the bus SSE clients subscribe to.
func (s *Server) Events() *EventBus { return s.events }

// Routes builds the chi router.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.requestContext)
	r.Use(middleware.Recoverer)

	r.Route("/api/v1", func(api chi.Router) {
		api.Get("/health", s.handleHealth)
		api.Group(func(authed chi.Router) {
			authed.Use(authMiddleware(s.cfg.Paths.APIToken))
			authed.Get("/events", s.handleEvents)
			authed.Group(func(rest chi.Router) {
				rest.Use(middleware.Timeout(30 * time.Second))
				rest.Get("/languages", s.handleLanguages)
				rest.Get("/models", s.handleModels)
				rest.Post("/models/{code}/download", s.handleDownload)
				rest.Get("/media", s.handleMedia)
				rest.Post("/media", s.handleAddMedia)
				rest.Delete("/media/{index}", s.handleRemoveMedia)
				rest.Post("/media/{index}/select", s.handleSelectMedia)
				rest.Post("/language", s.handleSelectLanguage)
				rest.Post("/generate", s.handleGenerate)
				rest.Post("/subtitles/load", s.handleLoadSubtitle)
				rest.Post("/playback/feed", s.handleFeed)
				rest.Get("/history", s.handleHistory)
			})
		})
	})
	return r
}

// Relay forwards session UI events onto the bus until the session closes
// its event stream.
func (s *Server) Relay() {
	for ev := range s.session.Events() {
		s.events.Publish(ev.EventName(), ev)
	}
}

// Start listens on the configured bind address and serves until ctx ends.
func (s *Server) Start(ctx context.Context) error {
	listener, err := net.Listen("tcp", s.cfg.Paths.APIBind)
	if err != nil {
		return services.Wrap(services.ErrConfiguration, "server", "listen", s.cfg.Paths.APIBind, err)
	}
	s.listener = listener
	s.server = &http.Server{
		Handler:           s.Routes(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		IdleTimeout:       60 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	go func() {
		if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logging.ErrorWithContext(s.logger, "api server stopped", "api_server_failed",
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check that the bind address is free"))
		}
	}()
	go func() {
		<-ctx.Done()
		s.Stop()
	}()

	s.logger.Info("api server listening",
		logging.String("address", listener.Addr().String()),
		logging.Bool("auth", s.cfg.Paths.APIToken != ""),
		logging.String(logging.FieldEventType, "api_server_started"))
	return nil
}

// Addr returns the bound address once Start succeeded.
func (s *Server) Addr() string {
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Stop shuts the HTTP server down.
func (s *Server) Stop() {
	if s.server == nil {
		return
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.server.Shutdown(shutdownCtx); err != nil {
		s.logger.Debug("api server shutdown", logging.Error(err))
	}
}

func (s *Server) requestContext(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if id := middleware.GetReqID(ctx); id != "" {
			ctx = services.WithRequestID(ctx, id)
		}
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r.WithContext(ctx))
		logging.WithContext(ctx, s.logger).Debug("http request",
			logging.String("method", r.Method),
			logging.String("path", r.URL.Path),
			logging.Int("status", ww.Status()),
			logging.Duration("elapsed", time.Since(start)))
	})
}

func (s *Server) uptime() string {
	return fmt.Sprint(time.Since(s.started).Round(time.Second))
}
