package player

import "zestsync/internal/models"

// Feed is an observation pushed by the playback engine.
type Feed interface {
	isFeed()
}

// TimeUpdate reports the playback position.
type TimeUpdate struct {
	Seconds float64 `json:"seconds"`
}

// DurationUpdate reports the length of the loaded media.
type DurationUpdate struct {
	Seconds float64 `json:"seconds"`
}

// SubtitleText reports the subtitle line currently on screen.
type SubtitleText struct {
	Text string `json:"text"`
}

func (TimeUpdate) isFeed()     {}
func (DurationUpdate) isFeed() {}
func (SubtitleText) isFeed()   {}

// UIEvent is an instruction for whatever renders the session.
type UIEvent interface {
	// EventName identifies the event on the wire.
	EventName() string
}

// ToastLevel grades a Toast.
type ToastLevel string

const (
	ToastInfo  ToastLevel = "info"
	ToastError ToastLevel = "error"
)

// Toast is a transient user-visible message.
type Toast struct {
	Level   ToastLevel `json:"level"`
	Message string     `json:"message"`
	// Retryable marks failures the user can try again, such as a lost
	// network connection.
	Retryable bool `json:"retryable,omitempty"`
}

// Progress drives the progress indicator. Visible is false when no
// generation task is running.
type Progress struct {
	Visible       bool   `json:"visible"`
	Percent       int    `json:"percent"`
	Text          string `json:"text"`
	Indeterminate bool   `json:"indeterminate"`
}

// Controls describes the generate button and the language selector.
type Controls struct {
	GenerateVisible bool   `json:"generate_visible"`
	GenerateLabel   string `json:"generate_label"`
	GenerateEnabled bool   `json:"generate_enabled"`
	SelectorEnabled bool   `json:"selector_enabled"`
}

// LanguageSelected moves the selector to Code.
type LanguageSelected struct {
	Code string `json:"code"`
}

// SubtitleLoaded reports a subtitle handed to the playback engine.
type SubtitleLoaded struct {
	Path     string `json:"path"`
	Language string `json:"language,omitempty"`
}

// ModelStatuses is the current state of every translation model.
type ModelStatuses struct {
	Models []models.ModelStatus `json:"models"`
}

// DownloadProgress reports bytes fetched for a model download.
type DownloadProgress struct {
	Code       string `json:"code"`
	BytesDone  int64  `json:"bytes_done"`
	BytesTotal int64  `json:"bytes_total"`
}

// TaskSettled reports the end of a background task.
type TaskSettled struct {
	Kind     string `json:"kind"`
	Video    string `json:"video,omitempty"`
	Language string `json:"language"`
	Output   string `json:"output,omitempty"`
	Error    string `json:"error,omitempty"`
}

// Succeeded reports whether the task finished without error.
func (e TaskSettled) Succeeded() bool { return e.Error == "" }

// FeedMirror repeats a playback observation for renderers.
type FeedMirror struct {
	Feed Feed `json:"feed"`
}

func (Toast) EventName() string            { return "toast" }
func (Progress) EventName() string         { return "progress" }
func (Controls) EventName() string         { return "controls" }
func (LanguageSelected) EventName() string { return "language.selected" }
func (SubtitleLoaded) EventName() string   { return "subtitle.loaded" }
func (ModelStatuses) EventName() string    { return "models" }
func (DownloadProgress) EventName() string { return "download.progress" }
func (TaskSettled) EventName() string      { return "task.settled" }
func (FeedMirror) EventName() string       { return "feed" }
