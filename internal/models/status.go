package models

import "sync"

// State is the download state of one language's model.
type State int

const (
	NotDownloaded State = iota
	Downloading
	Downloaded
)

func (s State) String() string {
	switch s {
	case Downloading:
		return "downloading"
	case Downloaded:
		return "downloaded"
	default:
		return "not_downloaded"
	}
}

// StatusBoard records in-flight downloads. It is shared between the download
// worker and readers on other goroutines; every method holds the lock only
// for a single-entry read or write.
type StatusBoard struct {
	mu     sync.Mutex
	states map[string]State
}

// NewStatusBoard returns an empty board.
func NewStatusBoard() *StatusBoard {
	return &StatusBoard{states: make(map[string]State)}
}

// Begin marks code as downloading. It returns false when code is already
// downloading.
func (b *StatusBoard) Begin(code string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.states[code] == Downloading {
		return false
	}
	b.states[code] = Downloading
	return true
}

// Finish records the outcome of a download. A failed download removes the
// entry so the model reverts to not downloaded.
func (b *StatusBoard) Finish(code string, ok bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if ok {
		b.states[code] = Downloaded
		return
	}
	delete(b.states, code)
}

// Get returns the recorded state for code.
func (b *StatusBoard) Get(code string) (State, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	state, ok := b.states[code]
	return state, ok
}

// Snapshot copies the board.
func (b *StatusBoard) Snapshot() map[string]State {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make(map[string]State, len(b.states))
	for k, v := range b.states {
		out[k] = v
	}
	return out
}
