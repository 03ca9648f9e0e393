// Package backend is the hardware-facing seam of the compositor: input and
// display events come in, composed frames go out. The core treats it as its
// single blocking event source.
package backend

import (
	"context"
	"image"

	"github.com/tfufuu/nova/internal/geometry"
	"github.com/tfufuu/nova/internal/output"
)

// EventKind tags a hardware event.
type EventKind int

const (
	EventPointerMotion EventKind = iota
	EventPointerButton
	EventKey
	EventTouchDown
	EventTouchUp
)

// Event is one tagged hardware event delivered to the core loop.
type Event struct {
	Kind    EventKind
	Pos     geometry.Point // Absolute logical position for motion/touch
	Button  uint32
	Key     uint32
	Pressed bool
}

// Backend drives displays and sources input events. Implementations must
// deliver events on the channel returned by Events and must not call back
// into core state.
type Backend interface {
	// Start begins event production. The channel closes when the backend
	// stops.
	Start(ctx context.Context) error

	// Events is the core's blocking wait point for hardware input.
	Events() <-chan Event

	// Commit presents a composed frame on an output. The damage rectangles
	// are in global logical coordinates. An error is a backend failure for
	// that output.
	Commit(o *output.Output, frame *image.RGBA, damage []geometry.Rect) error

	// SetMode applies a mode change at the hardware level.
	SetMode(o *output.Output, m output.Mode) error

	Close() error
}
