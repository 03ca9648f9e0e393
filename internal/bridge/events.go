// Package bridge is the sole concurrency boundary between the single-threaded
// compositor core and external services. Intents flow inward through a
// bounded queue the core drains each iteration; notifications flow outward on
// a broadcast channel whose subscribers observe a detectable gap when they
// fall behind. Core state needs no locks by construction.
package bridge

// EventKind tags an outbound notification.
type EventKind int

const (
	EventWindowCreated EventKind = iota
	EventWindowClosed
	EventWindowFocused
	EventWindowTitleChanged
	EventWindowStateChanged
	EventDisplayReconfigured
	EventSessionLocked
	EventSessionUnlocked
	EventFramePresented
)

func (k EventKind) String() string {
	switch k {
	case EventWindowCreated:
		return "window-created"
	case EventWindowClosed:
		return "window-closed"
	case EventWindowFocused:
		return "window-focused"
	case EventWindowTitleChanged:
		return "window-title-changed"
	case EventWindowStateChanged:
		return "window-state-changed"
	case EventDisplayReconfigured:
		return "display-reconfigured"
	case EventSessionLocked:
		return "session-locked"
	case EventSessionUnlocked:
		return "session-unlocked"
	case EventFramePresented:
		return "frame-presented"
	default:
		return "unknown"
	}
}

// Event is one outbound notification. Fields beyond Kind are populated per
// kind: Surface for window events, Output for display events.
type Event struct {
	Kind    EventKind
	Surface uint64
	Title   string
	State   string
	Output  string
}
