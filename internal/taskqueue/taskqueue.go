// Package taskqueue runs long background work on a single worker goroutine.
//
// A Queue accepts at most one task at a time: a submission made while a task
// is in flight is rejected with services.ErrAlreadyInProgress instead of being
// queued. Tasks cannot be cancelled once started.
package taskqueue

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"zestsync/internal/logging"
	"zestsync/internal/services"
)

// ErrClosed is returned by Submit after Close.
var ErrClosed = errors.New("task queue closed")

// Task describes one unit of background work.
type Task struct {
	Kind     string
	Label    string
	Language string
	// Run performs the work and returns the produced output path, if any.
	Run func(ctx context.Context) (string, error)
}

// Result is the settled outcome of a task.
type Result struct {
	Output  string
	Err     error
	Elapsed time.Duration
}

// Handle tracks a submitted task.
type Handle struct {
	ID       string
	Kind     string
	Label    string
	Language string
	Started  time.Time

	done   chan struct{}
	result Result
}

// Done is closed once the task settles.
func (h *Handle) Done() <-chan struct{} { return h.done }

// Settled reports whether the task has finished.
func (h *Handle) Settled() bool {
	select {
	case <-h.done:
		return true
	default:
		return false
	}
}

// Result returns the outcome. It is the zero Result until the task settles.
func (h *Handle) Result() Result {
	if !h.Settled() {
		return Result{}
	}
	return h.result
}

// Wait blocks until the task settles or ctx ends.
func (h *Handle) Wait(ctx context.Context) (Result, error) {
	select {
	case <-h.done:
		return h.result, nil
	case <-ctx.Done():
		return Result{}, ctx.Err()
	}
}

// Option configures a Queue.
type Option func(*Queue)

// WithOnSettled registers a callback invoked on the worker goroutine after
// each task settles. The callback must not block for long.
func WithOnSettled(fn func(*Handle)) Option {
	return func(q *Queue) { q.onSettled = fn }
}

// WithClock overrides time.Now for tests.
func WithClock(now func() time.Time) Option {
	return func(q *Queue) { q.now = now }
}

// Queue is a single-worker background channel.
type Queue struct {
	name      string
	logger    *slog.Logger
	onSettled func(*Handle)
	now       func() time.Time

	mu      sync.Mutex
	current *Handle
	closed  bool

	work chan *job
	wg   sync.WaitGroup
	base context.Context
}

type job struct {
	handle *Handle
	run    func(ctx context.Context) (string, error)
}

// New starts a queue worker. The base context is handed to every task.
func New(ctx context.Context, name string, logger *slog.Logger, opts ...Option) *Queue {
	if ctx == nil {
		ctx = context.Background()
	}
	q := &Queue{
		name:   name,
		logger: logging.NewComponentLogger(logger, name),
		now:    time.Now,
		work:   make(chan *job, 1),
		base:   ctx,
	}
	for _, opt := range opts {
		opt(q)
	}
	q.wg.Add(1)
	go q.loop()
	return q
}

// Name returns the queue name used in logs.
func (q *Queue) Name() string { return q.name }

// Submit starts task if the worker is idle.
func (q *Queue) Submit(task Task) (*Handle, error) {
	if task.Run == nil {
		return nil, services.Wrap(services.ErrValidation, q.name, "submit", "task has no run function", nil)
	}
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return nil, ErrClosed
	}
	if q.current != nil {
		busy := q.current
		q.mu.Unlock()
		return nil, services.Wrap(services.ErrAlreadyInProgress, q.name, "submit", busy.Kind+" "+busy.Label+" is running", nil)
	}
	h := &Handle{
		ID:       uuid.NewString(),
		Kind:     task.Kind,
		Label:    task.Label,
		Language: task.Language,
		Started:  q.now(),
		done:     make(chan struct{}),
	}
	q.current = h
	// The buffer is empty whenever current was nil.
	q.work <- &job{handle: h, run: task.Run}
	q.mu.Unlock()
	return h, nil
}

// Busy reports whether a task is in flight.
func (q *Queue) Busy() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.current != nil
}

// Current returns the in-flight task handle, or nil.
func (q *Queue) Current() *Handle {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.current
}

// Close stops accepting work and waits for the in-flight task to settle.
func (q *Queue) Close() {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.closed = true
	close(q.work)
	q.mu.Unlock()
	q.wg.Wait()
}

func (q *Queue) loop() {
	defer q.wg.Done()
	for j := range q.work {
		q.execute(j)
	}
}

func (q *Queue) execute(j *job) {
	h := j.handle
	ctx := services.WithTaskID(q.base, h.ID)
	ctx = services.WithTaskKind(ctx, h.Kind)
	ctx = services.WithLanguage(ctx, h.Language)
	logger := logging.WithContext(ctx, q.logger)
	logger.Info("task started", logging.String("label", h.Label), logging.String(logging.FieldEventType, "task_started"))

	output, err := q.run(ctx, j.run)
	h.result = Result{Output: output, Err: err, Elapsed: q.now().Sub(h.Started)}

	if err != nil {
		logging.ErrorWithContext(logger, "task failed", "task_failed",
			append(logging.Failure(err),
				logging.String("label", h.Label),
				logging.Duration("elapsed", h.result.Elapsed))...)
	} else {
		logger.Info("task finished",
			logging.String("label", h.Label),
			logging.String("output", output),
			logging.Duration("elapsed", h.result.Elapsed),
			logging.String(logging.FieldEventType, "task_finished"))
	}

	q.mu.Lock()
	q.current = nil
	q.mu.Unlock()
	close(h.done)

	if q.onSettled != nil {
		q.onSettled(h)
	}
}

func (q *Queue) run(ctx context.Context, fn func(context.Context) (string, error)) (output string, err error) {
	defer func() {
		if r := recover(); r != nil {
			output = ""
			err = services.Recover(q.name, r)
		}
	}()
	return fn(ctx)
}
