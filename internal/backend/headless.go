package backend

import (
	"context"
	"fmt"
	"image"
	"sync"

	"github.com/tfufuu/nova/internal/geometry"
	"github.com/tfufuu/nova/internal/logger"
	"github.com/tfufuu/nova/internal/output"
)

// Commit records one presented frame on the headless backend.
type Commit struct {
	Output string
	Damage []geometry.Rect
}

// Headless is a deterministic in-memory backend. It presents frames by
// recording them and sources input only through Inject, which makes it the
// backend for headless runs and for the test suite.
type Headless struct {
	events chan Event

	mu          sync.Mutex
	commits     []Commit
	failCommit  map[string]error
	failModeSet map[string]error
	started     bool
}

// NewHeadless creates a headless backend.
func NewHeadless() *Headless {
	return &Headless{
		events:      make(chan Event, 64),
		failCommit:  make(map[string]error),
		failModeSet: make(map[string]error),
	}
}

func (h *Headless) Start(ctx context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.started {
		return fmt.Errorf("headless backend already started")
	}
	h.started = true
	logger.Debug("Headless.Start: backend running")

	go func() {
		<-ctx.Done()
		close(h.events)
	}()
	return nil
}

func (h *Headless) Events() <-chan Event {
	return h.events
}

// Inject queues a synthetic hardware event. Used by integration tests and
// the event-replay tooling.
func (h *Headless) Inject(e Event) {
	h.events <- e
}

func (h *Headless) Commit(o *output.Output, frame *image.RGBA, damage []geometry.Rect) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if err := h.failCommit[o.Name]; err != nil {
		return err
	}
	h.commits = append(h.commits, Commit{Output: o.Name, Damage: damage})
	return nil
}

func (h *Headless) SetMode(o *output.Output, m output.Mode) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.failModeSet[o.Name]
}

func (h *Headless) Close() error {
	return nil
}

// Commits returns the frames presented so far.
func (h *Headless) Commits() []Commit {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]Commit, len(h.commits))
	copy(out, h.commits)
	return out
}

// FailCommits makes Commit fail for an output, simulating a driver fault.
// A nil error clears the fault.
func (h *Headless) FailCommits(outputName string, err error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if err == nil {
		delete(h.failCommit, outputName)
		return
	}
	h.failCommit[outputName] = err
}

// FailModeSet makes SetMode fail for an output.
func (h *Headless) FailModeSet(outputName string, err error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if err == nil {
		delete(h.failModeSet, outputName)
		return
	}
	h.failModeSet[outputName] = err
}
