package models

import (
	"path/filepath"
	"strings"

	"zestsync/internal/config"
	"zestsync/internal/fileutil"
	"zestsync/internal/language"
)

// ModelStatus is the rendered status of one language's model.
type ModelStatus struct {
	Code      string
	Name      string
	State     State
	SizeLabel string
}

// Registry resolves model cache paths and reports model status.
type Registry struct {
	cacheRoot string
	provider  string
	prefix    string
	board     *StatusBoard
}

// NewRegistry builds a registry from the models config section. A nil board
// gets a fresh one.
func NewRegistry(cfg config.Models, board *StatusBoard) *Registry {
	if board == nil {
		board = NewStatusBoard()
	}
	return &Registry{
		cacheRoot: cfg.CacheDir,
		provider:  cfg.Provider,
		prefix:    cfg.ModelPrefix,
		board:     board,
	}
}

// CacheRoot returns the directory that holds model directories.
func (r *Registry) CacheRoot() string { return r.cacheRoot }

// Board returns the shared in-flight status board.
func (r *Registry) Board() *StatusBoard { return r.board }

// RepoID returns the hub repository for code, e.g. Helsinki-NLP/opus-mt-en-fr.
func (r *Registry) RepoID(code string) string {
	return r.provider + "/" + r.prefix + normalize(code)
}

// DirName returns the cache directory name for code.
func (r *Registry) DirName(code string) string {
	return "models--" + r.provider + "--" + r.prefix + normalize(code)
}

// CachePath returns the absolute cache directory for code.
func (r *Registry) CachePath(code string) string {
	return filepath.Join(r.cacheRoot, r.DirName(code))
}

// Downloaded reports whether the model for code is present. The base language
// is always present.
func (r *Registry) Downloaded(code string) bool {
	if language.IsBase(code) {
		return true
	}
	return fileutil.IsDir(r.CachePath(code))
}

// State returns the current state for code. An in-flight download wins over
// the filesystem probe.
func (r *Registry) State(code string) State {
	code = normalize(code)
	if language.IsBase(code) {
		return Downloaded
	}
	if state, ok := r.board.Get(code); ok && state == Downloading {
		return Downloading
	}
	if r.Downloaded(code) {
		return Downloaded
	}
	return NotDownloaded
}

// Status returns the rendered status for code.
func (r *Registry) Status(code string) ModelStatus {
	code = normalize(code)
	return ModelStatus{
		Code:      code,
		Name:      language.Name(code),
		State:     r.State(code),
		SizeLabel: language.SizeLabel(code),
	}
}

// AllStatuses returns the status of every table language keyed by code.
func (r *Registry) AllStatuses() map[string]ModelStatus {
	out := make(map[string]ModelStatus)
	for _, code := range language.Codes() {
		out[code] = r.Status(code)
	}
	return out
}

// List returns every status in table order.
func (r *Registry) List() []ModelStatus {
	codes := language.Codes()
	out := make([]ModelStatus, 0, len(codes))
	for _, code := range codes {
		out = append(out, r.Status(code))
	}
	return out
}

func normalize(code string) string {
	return strings.ToLower(strings.TrimSpace(code))
}
