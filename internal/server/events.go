package server

import (
	"encoding/json"
	"sync"
)

// EventBus fans published events out to SSE subscribers. Slow subscribers
// miss events rather than block publishers.
type EventBus struct {
	mu      sync.RWMutex
	clients map[chan []byte]struct{}
}

// NewEventBus returns an empty bus.
func NewEventBus() *EventBus {
	return &EventBus{
		clients: make(map[chan []byte]struct{}),
	}
}

// Subscribe registers a new client channel.
func (e *EventBus) Subscribe() chan []byte {
	ch := make(chan []byte, 32)
	e.mu.Lock()
	e.clients[ch] = struct{}{}
	e.mu.Unlock()
	return ch
}

// Unsubscribe removes and closes ch.
func (e *EventBus) Unsubscribe(ch chan []byte) {
	e.mu.Lock()
	if _, ok := e.clients[ch]; ok {
		delete(e.clients, ch)
		close(ch)
	}
	e.mu.Unlock()
}

// Subscribers returns the number of connected clients.
func (e *EventBus) Subscribers() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.clients)
}

// Publish encodes {"event": event, "payload": payload} and offers it to
// every subscriber.
func (e *EventBus) Publish(event string, payload any) {
	raw, err := json.Marshal(map[string]any{
		"event":   event,
		"payload": payload,
	})
	if err != nil {
		return
	}

	e.mu.RLock()
	defer e.mu.RUnlock()
	for ch := range e.clients {
		select {
		case ch <- raw:
		default:
		}
	}
}
