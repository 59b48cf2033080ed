package server

import (
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"zestsync/internal/fileutil"
	"zestsync/internal/history"
	"zestsync/internal/language"
	"zestsync/internal/models"
	"zestsync/internal/player"
	"zestsync/internal/services"
)

type languageView struct {
	Code       string `json:"code"`
	Name       string `json:"name"`
	NativeName string `json:"native_name"`
	Size       string `json:"size,omitempty"`
	Model      string `json:"model"`
	Base       bool   `json:"base"`
}

type modelView struct {
	Code  string `json:"code"`
	Name  string `json:"name"`
	State string `json:"state"`
	Size  string `json:"size"`
	Repo  string `json:"repo"`
	Path  string `json:"path"`
}

type historyView struct {
	ID         string     `json:"id"`
	Kind       string     `json:"kind"`
	Video      string     `json:"video,omitempty"`
	Language   string     `json:"language"`
	Output     string     `json:"output,omitempty"`
	Status     string     `json:"status"`
	Error      string     `json:"error,omitempty"`
	StartedAt  time.Time  `json:"started_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
	Seconds    float64    `json:"duration_seconds,omitempty"`
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"service": "zestsync",
		"version": version,
		"time":    time.Now().UTC().Format(time.RFC3339),
		"uptime":  s.uptime(),
		"clients": s.events.Subscribers(),
	})
}

func (s *Server) handleLanguages(w http.ResponseWriter, _ *http.Request) {
	all := language.All()
	out := make([]languageView, 0, len(all))
	for _, entry := range all {
		out = append(out, languageView{
			Code:       entry.Code,
			Name:       entry.DisplayName,
			NativeName: language.NativeName(entry.Code),
			Size:       language.SizeLabel(entry.Code),
			Model:      s.registry.State(entry.Code).String(),
			Base:       language.IsBase(entry.Code),
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleModels(w http.ResponseWriter, _ *http.Request) {
	statuses := s.registry.List()
	out := make([]modelView, 0, len(statuses))
	for _, st := range statuses {
		if language.IsBase(st.Code) {
			continue
		}
		out = append(out, modelView{
			Code:  st.Code,
			Name:  st.Name,
			State: st.State.String(),
			Size:  st.SizeLabel,
			Repo:  s.registry.RepoID(st.Code),
			Path:  s.registry.CachePath(st.Code),
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	code := strings.ToLower(chi.URLParam(r, "code"))
	entry, ok := language.ByCode(code)
	if !ok || language.IsBase(entry.Code) {
		writeServiceError(w, services.Wrap(services.ErrValidation, "server", "download", fmt.Sprintf("no translation model for %q", code), nil))
		return
	}
	switch s.registry.State(entry.Code) {
	case models.Downloaded:
		writeJSON(w, http.StatusOK, map[string]string{"status": "downloaded", "path": s.registry.CachePath(entry.Code)})
		return
	case models.Downloading:
		writeServiceError(w, services.Wrap(services.ErrAlreadyInProgress, "server", "download", entry.DisplayName+" model is already downloading", nil))
		return
	}
	s.session.DownloadModel(entry.Code)
	accepted(w, "download")
}

func (s *Server) handleMedia(w http.ResponseWriter, r *http.Request) {
	st, err := s.session.Snapshot(r.Context())
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

type pathRequest struct {
	Path string `json:"path"`
}

func (s *Server) handleAddMedia(w http.ResponseWriter, r *http.Request) {
	var req pathRequest
	if err := decodeBody(r, &req); err != nil {
		writeServiceError(w, err)
		return
	}
	path := strings.TrimSpace(req.Path)
	if !filepath.IsAbs(path) || !fileutil.IsRegularFile(path) {
		writeServiceError(w, services.Wrap(services.ErrValidation, "server", "add media", "path must be an existing absolute file", nil))
		return
	}
	s.session.AddMedia(path)
	accepted(w, "add_media")
}

func (s *Server) mediaIndex(w http.ResponseWriter, r *http.Request) (int, bool) {
	idx, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil || idx < 0 {
		writeServiceError(w, services.Wrap(services.ErrValidation, "server", "media", "index must be a non-negative integer", err))
		return 0, false
	}
	return idx, true
}

func (s *Server) handleRemoveMedia(w http.ResponseWriter, r *http.Request) {
	if idx, ok := s.mediaIndex(w, r); ok {
		s.session.RemoveMedia(idx)
		accepted(w, "remove_media")
	}
}

func (s *Server) handleSelectMedia(w http.ResponseWriter, r *http.Request) {
	if idx, ok := s.mediaIndex(w, r); ok {
		s.session.SelectMedia(idx)
		accepted(w, "select_media")
	}
}

func (s *Server) handleSelectLanguage(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Code string `json:"code"`
	}
	if err := decodeBody(r, &req); err != nil {
		writeServiceError(w, err)
		return
	}
	entry, ok := language.Resolve(req.Code)
	if !ok {
		writeServiceError(w, services.Wrap(services.ErrValidation, "server", "select language", fmt.Sprintf("unsupported language %q", req.Code), nil))
		return
	}
	s.session.SelectLanguage(entry.Code)
	accepted(w, "select_language")
}

func (s *Server) handleGenerate(w http.ResponseWriter, _ *http.Request) {
	s.session.Generate()
	accepted(w, "generate")
}

func (s *Server) handleLoadSubtitle(w http.ResponseWriter, r *http.Request) {
	var req pathRequest
	if err := decodeBody(r, &req); err != nil {
		writeServiceError(w, err)
		return
	}
	if strings.TrimSpace(req.Path) == "" {
		writeServiceError(w, services.Wrap(services.ErrValidation, "server", "load subtitle", "path is required", nil))
		return
	}
	s.session.LoadSubtitleFile(req.Path)
	accepted(w, "load_subtitle")
}

type feedRequest struct {
	Type    string  `json:"type"`
	Seconds float64 `json:"seconds"`
	Text    string  `json:"text"`
}

func (s *Server) handleFeed(w http.ResponseWriter, r *http.Request) {
	var req feedRequest
	if err := decodeBody(r, &req); err != nil {
		writeServiceError(w, err)
		return
	}
	var feed player.Feed
	switch req.Type {
	case "time":
		feed = player.TimeUpdate{Seconds: req.Seconds}
	case "duration":
		feed = player.DurationUpdate{Seconds: req.Seconds}
	case "subtitle":
		feed = player.SubtitleText{Text: req.Text}
	default:
		writeServiceError(w, services.Wrap(services.ErrValidation, "server", "feed", fmt.Sprintf("unknown feed type %q", req.Type), nil))
		return
	}
	s.session.Post(feed)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		writeJSON(w, http.StatusOK, []historyView{})
		return
	}
	limit := 50
	if raw := strings.TrimSpace(r.URL.Query().Get("limit")); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 && parsed <= 1000 {
			limit = parsed
		}
	}
	var (
		records []history.Record
		err     error
	)
	if video := strings.TrimSpace(r.URL.Query().Get("video")); video != "" {
		records, err = s.history.ForVideo(r.Context(), video)
	} else {
		records, err = s.history.Recent(r.Context(), limit)
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	out := make([]historyView, 0, len(records))
	for _, rec := range records {
		out = append(out, historyView{
			ID:         rec.ID,
			Kind:       rec.Kind,
			Video:      rec.Video,
			Language:   rec.Language,
			Output:     rec.Output,
			Status:     string(rec.Status),
			Error:      rec.Error,
			StartedAt:  rec.StartedAt,
			FinishedAt: rec.FinishedAt,
			Seconds:    rec.Duration().Seconds(),
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, fmt.Errorf("streaming unsupported"))
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	stream := s.events.Subscribe()
	defer s.events.Unsubscribe(stream)

	heartbeat := time.NewTicker(15 * time.Second)
	defer heartbeat.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case msg := <-stream:
			_, _ = fmt.Fprintf(w, "data: %s\n\n", msg)
			flusher.Flush()
		case <-heartbeat.C:
			_, _ = io.WriteString(w, ": heartbeat\n\n")
			flusher.Flush()
		}
	}
}
