package player

import "testing"

func TestQueueSelectionFollowsRemovals(t *testing.T) {
	q := NewQueue()
	if _, ok := q.Current(); ok {
		t.Fatal("new queue should have no selection")
	}
	a := q.Add("/v/a.mkv")
	b := q.Add("/v/b.mkv")
	c := q.Add("/v/c.mkv")
	if a != 0 || b != 1 || c != 2 {
		t.Fatalf("unexpected indexes %d %d %d", a, b, c)
	}

	if _, err := q.Select(2); err != nil {
		t.Fatalf("Select: %v", err)
	}
	if _, err := q.Remove(0); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	cur, ok := q.Current()
	if !ok || cur.Path != "/v/c.mkv" || q.CurrentIndex() != 1 {
		t.Fatalf("selection should stay on c.mkv, got %+v at %d", cur, q.CurrentIndex())
	}

	if _, err := q.Remove(1); err != nil {
		t.Fatalf("Remove current: %v", err)
	}
	if _, ok := q.Current(); ok {
		t.Fatal("removing the current item should clear the selection")
	}
	if q.Len() != 1 {
		t.Fatalf("Len = %d, want 1", q.Len())
	}
}

func TestQueueRejectsBadIndexes(t *testing.T) {
	q := NewQueue()
	q.Add("/v/a.mkv")
	for _, idx := range []int{-1, 1, 5} {
		if _, err := q.Select(idx); err == nil {
			t.Fatalf("Select(%d) should fail", idx)
		}
		if _, err := q.Remove(idx); err == nil {
			t.Fatalf("Remove(%d) should fail", idx)
		}
	}
}

func TestQueueDuration(t *testing.T) {
	q := NewQueue()
	q.Add("/v/a.mkv")
	if q.SetCurrentDuration(10) {
		t.Fatal("duration needs a selection")
	}
	q.Select(0)
	if q.SetCurrentDuration(0) {
		t.Fatal("zero duration should be ignored")
	}
	if !q.SetCurrentDuration(1228) {
		t.Fatal("expected duration to be recorded")
	}
	items := q.Items()
	items[0].DurationSeconds = 1
	if cur, _ := q.Current(); cur.DurationSeconds != 1228 {
		t.Fatalf("Items must return a copy, got %v", cur.DurationSeconds)
	}
}
