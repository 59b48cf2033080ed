package taskqueue_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"zestsync/internal/logging"
	"zestsync/internal/services"
	"zestsync/internal/taskqueue"
)

func newQueue(t *testing.T, opts ...taskqueue.Option) *taskqueue.Queue {
	t.Helper()
	q := taskqueue.New(context.Background(), "generation", logging.NewNop(), opts...)
	t.Cleanup(q.Close)
	return q
}

func wait(t *testing.T, h *taskqueue.Handle) taskqueue.Result {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	res, err := h.Wait(ctx)
	if err != nil {
		t.Fatalf("wait: %v", err)
	}
	return res
}

func TestSubmitRunsTaskAndReportsResult(t *testing.T) {
	q := newQueue(t)
	var gotTaskID string
	h, err := q.Submit(taskqueue.Task{
		Kind:     "transcribe",
		Label:    "movie.mp4",
		Language: "en",
		Run: func(ctx context.Context) (string, error) {
			gotTaskID, _ = services.TaskIDFromContext(ctx)
			return "/tmp/movie.en.srt", nil
		},
	})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if h.ID == "" {
		t.Fatal("expected task id")
	}
	res := wait(t, h)
	if res.Err != nil || res.Output != "/tmp/movie.en.srt" {
		t.Fatalf("unexpected result %+v", res)
	}
	if gotTaskID != h.ID {
		t.Fatalf("task id not propagated: %q vs %q", gotTaskID, h.ID)
	}
	if q.Busy() {
		t.Fatal("queue should be idle after settle")
	}
}

func TestSubmitRejectsWhileBusy(t *testing.T) {
	q := newQueue(t)
	release := make(chan struct{})
	h, err := q.Submit(taskqueue.Task{Kind: "translate", Run: func(context.Context) (string, error) {
		<-release
		return "", nil
	}})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if !q.Busy() || q.Current() != h {
		t.Fatal("expected queue busy with first handle")
	}
	var ran atomic.Bool
	_, err = q.Submit(taskqueue.Task{Kind: "translate", Run: func(context.Context) (string, error) {
		ran.Store(true)
		return "", nil
	}})
	if !errors.Is(err, services.ErrAlreadyInProgress) {
		t.Fatalf("expected already in progress, got %v", err)
	}
	close(release)
	wait(t, h)

	h2, err := q.Submit(taskqueue.Task{Kind: "translate", Run: func(context.Context) (string, error) { return "", nil }})
	if err != nil {
		t.Fatalf("resubmit after settle: %v", err)
	}
	wait(t, h2)
	if ran.Load() {
		t.Fatal("rejected task must never run")
	}
}

func TestPanicBecomesFailure(t *testing.T) {
	q := newQueue(t)
	h, err := q.Submit(taskqueue.Task{Kind: "download", Run: func(context.Context) (string, error) {
		panic("engine exploded")
	}})
	if err != nil {
		t.Fatal(err)
	}
	res := wait(t, h)
	if !errors.Is(res.Err, services.ErrTransient) {
		t.Fatalf("expected transient failure, got %v", res.Err)
	}
}

func TestOnSettledCallback(t *testing.T) {
	settled := make(chan *taskqueue.Handle, 1)
	q := newQueue(t, taskqueue.WithOnSettled(func(h *taskqueue.Handle) { settled <- h }))
	boom := errors.New("boom")
	h, err := q.Submit(taskqueue.Task{Kind: "transcribe", Run: func(context.Context) (string, error) { return "", boom }})
	if err != nil {
		t.Fatal(err)
	}
	select {
	case got := <-settled:
		if got != h || !errors.Is(got.Result().Err, boom) {
			t.Fatalf("unexpected settled handle %+v", got.Result())
		}
		if !got.Settled() {
			t.Fatal("handle should be settled inside callback")
		}
	case <-time.After(5 * time.Second):
		t.Fatal("timeout waiting for settle callback")
	}
}

func TestResultZeroBeforeSettle(t *testing.T) {
	q := newQueue(t)
	release := make(chan struct{})
	h, err := q.Submit(taskqueue.Task{Run: func(context.Context) (string, error) {
		<-release
		return "x", nil
	}})
	if err != nil {
		t.Fatal(err)
	}
	if h.Settled() || h.Result() != (taskqueue.Result{}) {
		t.Fatal("expected unsettled zero result")
	}
	close(release)
	if wait(t, h).Output != "x" {
		t.Fatal("expected output after settle")
	}
}

func TestSubmitAfterClose(t *testing.T) {
	q := taskqueue.New(context.Background(), "downloads", nil)
	q.Close()
	if _, err := q.Submit(taskqueue.Task{Run: func(context.Context) (string, error) { return "", nil }}); !errors.Is(err, taskqueue.ErrClosed) {
		t.Fatalf("expected ErrClosed, got %v", err)
	}
	q.Close()
}

func TestSubmitValidatesTask(t *testing.T) {
	q := newQueue(t)
	if _, err := q.Submit(taskqueue.Task{}); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}
