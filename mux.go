package tilequeue

import (
	"context"
	"fmt"
	"sync"
)

// Mux routes tasks to handlers by preset
type Mux struct {
	entries map[string]muxEntry
	mu      *sync.RWMutex
}

type muxEntry struct {
	h      Handler
	preset string
}

func NewMux() *Mux {
	return &Mux{
		entries: make(map[string]muxEntry),
		mu:      &sync.RWMutex{},
	}
}

// Handle registers the handler for a preset, replacing any earlier one
func (m *Mux) Handle(preset string, h Handler) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.entries[preset] = muxEntry{
		h:      h,
		preset: preset,
	}
}

// HandleFunc registers fn as the handler for a preset
func (m *Mux) HandleFunc(preset string, fn func(context.Context, *Task) error) {
	m.Handle(preset, HandlerFunc(fn))
}

// match finds a handler in entries given a preset.
func (m *Mux) match(preset string) (h Handler) {
	v, ok := m.entries[preset]
	if ok {
		return v.h
	}

	return nil
}

// ProcessTask dispatches the task to the handler registered for its preset.
func (m *Mux) ProcessTask(ctx context.Context, task *Task) error {
	h := m.Handler(task)
	return h.ProcessTask(ctx, task)
}

// Handler returns the handler to use for the given task.
// It always returns a non-nil handler.
//
// If there is no registered handler for the task's preset,
// handler returns a 'not found' handler which returns an error.
func (m *Mux) Handler(t *Task) (h Handler) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	h = m.match(t.Preset())
	if h == nil {
		h = NotFoundHandler()
	}

	return h
}

// NotFound returns an error indicating that the handler was not found for the given task.
func NotFound(ctx context.Context, task *Task) error {
	return fmt.Errorf("handler not found for preset %q", task.Preset())
}

// NotFoundHandler returns a simple task handler that returns a “not found“ error.
func NotFoundHandler() Handler { return HandlerFunc(NotFound) }
