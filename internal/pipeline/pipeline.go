// Package pipeline decides what to do for a (video, language) pair.
//
// Decide is a pure function over a snapshot of the session and filesystem
// state; callers carry out the returned action.
package pipeline

import (
	"fmt"

	"zestsync/internal/language"
	"zestsync/internal/models"
	"zestsync/internal/services"
)

// Trigger distinguishes passive re-evaluation from a user request.
type Trigger int

const (
	// LanguageChanged fires when the selector moves or state is re-evaluated.
	LanguageChanged Trigger = iota
	// ExplicitRequest fires when the user asks to generate.
	ExplicitRequest
)

func (t Trigger) String() string {
	if t == ExplicitRequest {
		return "explicit"
	}
	return "language_changed"
}

// Action is the outcome of a decision.
type Action int

const (
	ActionNone Action = iota
	ActionLoadExisting
	ActionRequireBase
	ActionTranscribe
	ActionOfferDownload
	ActionDownload
	ActionAwaitDownload
	ActionOfferGenerate
	ActionTranslate
	ActionReject
)

var actionNames = map[Action]string{
	ActionNone:          "none",
	ActionLoadExisting:  "load_existing",
	ActionRequireBase:   "require_base",
	ActionTranscribe:    "transcribe",
	ActionOfferDownload: "offer_download",
	ActionDownload:      "download",
	ActionAwaitDownload: "await_download",
	ActionOfferGenerate: "offer_generate",
	ActionTranslate:     "translate",
	ActionReject:        "reject",
}

func (a Action) String() string {
	if name, ok := actionNames[a]; ok {
		return name
	}
	return fmt.Sprintf("action(%d)", int(a))
}

// Input is the state snapshot a decision is made from.
type Input struct {
	HasMedia       bool
	Language       string
	BaseExists     bool
	TargetExists   bool
	Model          models.State
	GenerationBusy bool
	DownloadBusy   bool
	Trigger        Trigger
}

// Decision is what the caller should do next.
type Decision struct {
	Action Action
	// Language is the language the action applies to. For ActionRequireBase
	// it is the base language the selector must move to.
	Language string
	// Prerequisite names the language whose artifact must exist first.
	Prerequisite string
	// SuppressControls hides generation controls entirely.
	SuppressControls bool
	// Notice is user-facing text for rejections and prerequisites.
	Notice string
	// Err carries the rejection cause for ActionReject.
	Err error
}

// SubmitsTask reports whether the action enqueues background work.
func (d Decision) SubmitsTask() bool {
	switch d.Action {
	case ActionTranscribe, ActionTranslate, ActionDownload:
		return true
	}
	return false
}

// Decide applies the decision table in priority order.
func Decide(in Input) Decision {
	code := in.Language
	if code == "" {
		code = language.BaseCode
	}
	if !in.HasMedia {
		return Decision{Action: ActionNone, Language: code, SuppressControls: true}
	}
	if in.TargetExists {
		return Decision{Action: ActionLoadExisting, Language: code}
	}

	base := language.BaseCode
	if !language.IsBase(code) && !in.BaseExists {
		return Decision{
			Action:       ActionRequireBase,
			Language:     base,
			Prerequisite: base,
			Notice:       fmt.Sprintf("%s subtitles are required first. Switched to %s.", language.Name(base), language.Name(base)),
		}
	}

	var d Decision
	switch {
	case language.IsBase(code):
		d = Decision{Action: ActionTranscribe, Language: code}
	case in.Model == models.NotDownloaded && in.Trigger == ExplicitRequest:
		d = Decision{Action: ActionDownload, Language: code}
	case in.Model == models.NotDownloaded:
		d = Decision{Action: ActionOfferDownload, Language: code}
	case in.Model == models.Downloading && in.Trigger == ExplicitRequest:
		return reject(code, fmt.Sprintf("The %s model is already downloading.", language.Name(code)))
	case in.Model == models.Downloading:
		d = Decision{Action: ActionAwaitDownload, Language: code}
	case in.Trigger == ExplicitRequest:
		d = Decision{Action: ActionTranslate, Language: code}
	default:
		d = Decision{Action: ActionOfferGenerate, Language: code}
	}

	switch d.Action {
	case ActionTranscribe, ActionTranslate:
		if in.GenerationBusy {
			return reject(code, "Subtitle generation is already in progress.")
		}
	case ActionDownload:
		if in.DownloadBusy {
			return reject(code, "A model download is already in progress.")
		}
	}
	return d
}

func reject(code, notice string) Decision {
	return Decision{
		Action:   ActionReject,
		Language: code,
		Notice:   notice,
		Err:      services.Wrap(services.ErrAlreadyInProgress, "pipeline", "decide", notice, nil),
	}
}
