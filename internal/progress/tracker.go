package progress

import (
	"fmt"
	"math"
	"sync"
	"time"

	"zestsync/internal/timecode"
)

// Snapshot is one progress reading.
type Snapshot struct {
	Percent       int
	Elapsed       time.Duration
	Estimate      time.Duration
	Indeterminate bool
	Settled       bool
}

// Remaining returns the estimated time left, never negative.
func (s Snapshot) Remaining() time.Duration {
	if s.Indeterminate || s.Elapsed >= s.Estimate {
		return 0
	}
	return s.Estimate - s.Elapsed
}

// Status renders the snapshot for a status line. subject names the work, e.g.
// "French subtitles".
func (s Snapshot) Status(subject string) string {
	switch {
	case s.Settled:
		return fmt.Sprintf("Generating %s... 100%%", subject)
	case s.Indeterminate:
		return fmt.Sprintf("Generating %s... in progress", subject)
	default:
		return fmt.Sprintf("Generating %s... %d%% (%s / %s)", subject, s.Percent,
			timecode.FormatETA(s.Elapsed), timecode.FormatETA(s.Estimate))
	}
}

// Tracker converts elapsed time into a percentage that never decreases, stays
// at or below 99 while the task runs and reads exactly 100 once settled.
type Tracker struct {
	mu       sync.Mutex
	start    time.Time
	estimate time.Duration
	last     int
	settled  bool
	elapsed  time.Duration
}

// NewTracker starts tracking a task that began at start. An estimate of zero
// or less produces indeterminate snapshots.
func NewTracker(estimateSeconds float64, start time.Time) *Tracker {
	var est time.Duration
	if estimateSeconds > 0 && !math.IsInf(estimateSeconds, 0) {
		est = time.Duration(estimateSeconds * float64(time.Second))
	}
	return &Tracker{start: start, estimate: est}
}

// Indeterminate reports whether the tracker has no usable estimate.
func (t *Tracker) Indeterminate() bool {
	return t.estimate <= 0
}

// Poll returns the reading at now.
func (t *Tracker) Poll(now time.Time) Snapshot {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.settled {
		return t.snapshotLocked()
	}
	elapsed := now.Sub(t.start)
	if elapsed < 0 {
		elapsed = 0
	}
	if elapsed > t.elapsed {
		t.elapsed = elapsed
	}
	if t.estimate > 0 {
		pct := int(float64(t.elapsed) / float64(t.estimate) * 100)
		if pct > 99 {
			pct = 99
		}
		if pct > t.last {
			t.last = pct
		}
	}
	return t.snapshotLocked()
}

// Settle marks the task finished and returns the final reading.
func (t *Tracker) Settle(now time.Time) Snapshot {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.settled {
		if elapsed := now.Sub(t.start); elapsed > t.elapsed {
			t.elapsed = elapsed
		}
		t.settled = true
		t.last = 100
	}
	return t.snapshotLocked()
}

func (t *Tracker) snapshotLocked() Snapshot {
	return Snapshot{
		Percent:       t.last,
		Elapsed:       t.elapsed,
		Estimate:      t.estimate,
		Indeterminate: t.estimate <= 0 && !t.settled,
		Settled:       t.settled,
	}
}
