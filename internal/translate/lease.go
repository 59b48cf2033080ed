package translate

import (
	"context"
	"errors"
	"sync"

	"zestsync/internal/services"
)

// Engine is a machine translation backend. Output order and length must match
// the input.
type Engine interface {
	Translate(ctx context.Context, texts []string, source, target string) ([]string, error)
	Close() error
}

// Factory builds an engine able to translate into target.
type Factory func(ctx context.Context, target string) (Engine, error)

// Lease owns at most one engine instance.
type Lease struct {
	factory Factory
	target  string

	mu     sync.Mutex
	engine Engine
}

// NewLease returns a lease that builds its engine with factory on demand.
func NewLease(factory Factory, target string) *Lease {
	return &Lease{factory: factory, target: target}
}

// Engine returns the cached engine, building it on first call.
func (l *Lease) Engine(ctx context.Context) (Engine, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.engine != nil {
		return l.engine, nil
	}
	if l.factory == nil {
		return nil, services.Wrap(services.ErrEngineInitFailed, "translate", "load engine", "no engine factory configured", nil)
	}
	engine, err := l.factory(ctx, l.target)
	if err != nil {
		if errors.Is(err, services.ErrEngineInitFailed) {
			return nil, err
		}
		return nil, services.Wrap(services.ErrEngineInitFailed, "translate", "load engine", l.target, err)
	}
	l.engine = engine
	return engine, nil
}

// Active reports whether an engine is currently held.
func (l *Lease) Active() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.engine != nil
}

// Release closes and drops the engine. It is a no-op when none was built.
func (l *Lease) Release() error {
	l.mu.Lock()
	engine := l.engine
	l.engine = nil
	l.mu.Unlock()
	if engine == nil {
		return nil
	}
	return engine.Close()
}
