package player

import (
	"fmt"

	"zestsync/internal/services"
)

// MediaItem is one entry in the play queue.
type MediaItem struct {
	Path string `json:"path"`
	// DurationSeconds is zero until the playback engine reports it.
	DurationSeconds float64 `json:"duration_seconds"`
}

// Queue is the ordered play queue with a current selection. It is not safe
// for concurrent use; the session goroutine owns it.
type Queue struct {
	items   []MediaItem
	current int
}

// NewQueue returns an empty queue with nothing selected.
func NewQueue() *Queue {
	return &Queue{current: -1}
}

// Add appends path and returns its index.
func (q *Queue) Add(path string) int {
	q.items = append(q.items, MediaItem{Path: path})
	return len(q.items) - 1
}

// Remove drops the item at index. Removing the current item clears the
// selection; removing an earlier item keeps the selection on the same media.
func (q *Queue) Remove(index int) (MediaItem, error) {
	if err := q.check(index); err != nil {
		return MediaItem{}, err
	}
	item := q.items[index]
	q.items = append(q.items[:index], q.items[index+1:]...)
	switch {
	case index == q.current:
		q.current = -1
	case index < q.current:
		q.current--
	}
	return item, nil
}

// Select makes index the current item.
func (q *Queue) Select(index int) (MediaItem, error) {
	if err := q.check(index); err != nil {
		return MediaItem{}, err
	}
	q.current = index
	return q.items[index], nil
}

// Current returns the selected item.
func (q *Queue) Current() (MediaItem, bool) {
	if q.current < 0 {
		return MediaItem{}, false
	}
	return q.items[q.current], true
}

// CurrentIndex returns the selected index or -1.
func (q *Queue) CurrentIndex() int { return q.current }

// SetCurrentDuration records the duration of the selected item.
func (q *Queue) SetCurrentDuration(seconds float64) bool {
	if q.current < 0 || seconds <= 0 {
		return false
	}
	q.items[q.current].DurationSeconds = seconds
	return true
}

// Items returns a copy of the queue contents.
func (q *Queue) Items() []MediaItem {
	out := make([]MediaItem, len(q.items))
	copy(out, q.items)
	return out
}

// Len returns the number of items.
func (q *Queue) Len() int { return len(q.items) }

func (q *Queue) check(index int) error {
	if index < 0 || index >= len(q.items) {
		return services.Wrap(services.ErrValidation, "player", "queue", fmt.Sprintf("no media at index %d", index), nil)
	}
	return nil
}
