package history

import "time"

// SetClock overrides the store clock for tests.
func (s *Store) SetClock(now func() time.Time) {
	s.now = now
}
