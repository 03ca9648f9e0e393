// Package seat owns focus state and serializes input delivery. It is the only
// component that decides which surface receives an event; everything it emits
// goes through a single delivery sink so the routing rules live in one place.
package seat

import (
	"github.com/tfufuu/nova/internal/comperr"
	"github.com/tfufuu/nova/internal/geometry"
	"github.com/tfufuu/nova/internal/logger"
	"github.com/tfufuu/nova/internal/surface"
)

// DeliveryKind tags an event handed to a surface owner.
type DeliveryKind int

const (
	DeliverEnter DeliveryKind = iota
	DeliverLeave
	DeliverMotion
	DeliverButton
	DeliverKey
	DeliverTouchDown
	DeliverTouchUp
	DeliverDragMotion
	DeliverDrop
	DeliverGrabDismissed
)

func (k DeliveryKind) String() string {
	switch k {
	case DeliverEnter:
		return "enter"
	case DeliverLeave:
		return "leave"
	case DeliverMotion:
		return "motion"
	case DeliverButton:
		return "button"
	case DeliverKey:
		return "key"
	case DeliverTouchDown:
		return "touch-down"
	case DeliverTouchUp:
		return "touch-up"
	case DeliverDragMotion:
		return "drag-motion"
	case DeliverDrop:
		return "drop"
	case DeliverGrabDismissed:
		return "grab-dismissed"
	default:
		return "unknown"
	}
}

// Delivery is one routed input event addressed to a surface.
type Delivery struct {
	Surface surface.ID
	Kind    DeliveryKind
	Pos     geometry.Point
	Button  uint32
	Key     uint32
	Pressed bool
	Payload string // Drag payload for DeliverDragMotion/DeliverDrop
}

// Sink receives routed events. Called synchronously on the core thread.
type Sink func(Delivery)

// FocusFunc observes keyboard focus changes (old, new may be None).
type FocusFunc func(old, new surface.ID)

// drag is an in-flight drag-and-drop operation. Cancellation is state: the
// drag ends when the initiating buttons are released, nothing else.
type drag struct {
	payload string
}

// Seat is the focus authority for one logical user session. Owned by the
// compositor core thread; not safe for concurrent use.
type Seat struct {
	Name string

	table *surface.Table
	sink  Sink

	keyboardFocus surface.ID
	pointerFocus  surface.ID
	pointerPos    geometry.Point
	buttonsDown   int
	drag          *drag
	popupGrab     surface.ID
	lockSurface   surface.ID

	focusFollowsMouse bool
	onFocus           FocusFunc

	// focusHistory is most-recently-focused first and only ever holds
	// normal-band top-level surfaces. It drives focus-follows-destruction.
	focusHistory []surface.ID
}

// New creates the seat for a session.
func New(name string, table *surface.Table) *Seat {
	return &Seat{Name: name, table: table}
}

// SetSink installs the delivery sink. A nil sink drops deliveries.
func (s *Seat) SetSink(sink Sink) {
	s.sink = sink
}

// SetFocusFunc installs the keyboard focus observer.
func (s *Seat) SetFocusFunc(f FocusFunc) {
	s.onFocus = f
}

// SetFocusFollowsMouse toggles the focus-follows-mouse policy. Click-to-focus
// always applies; when both policies are active a click wins and pointer
// motion never changes focus while any button is held.
func (s *Seat) SetFocusFollowsMouse(on bool) {
	s.focusFollowsMouse = on
}

// KeyboardFocus returns the surface holding keyboard focus, or None.
func (s *Seat) KeyboardFocus() surface.ID {
	return s.keyboardFocus
}

// PointerFocus returns the surface under the pointer, or None.
func (s *Seat) PointerFocus() surface.ID {
	return s.pointerFocus
}

// PointerPos returns the pointer's last known logical position.
func (s *Seat) PointerPos() geometry.Point {
	return s.pointerPos
}

// Dragging reports whether a drag is in flight.
func (s *Seat) Dragging() bool {
	return s.drag != nil
}

// PopupGrab returns the grabbing popup, or None.
func (s *Seat) PopupGrab() surface.ID {
	return s.popupGrab
}

func (s *Seat) deliver(d Delivery) {
	if s.sink != nil {
		s.sink(d)
	}
}

// routable reports whether events may reach id under the current session
// lock. While locked only the lock surface's tree receives input.
func (s *Seat) routable(id surface.ID) bool {
	if s.lockSurface == surface.None {
		return true
	}
	return s.table.InTree(s.lockSurface, id)
}

// PointerMotion routes a pointer move. Normal routing computes the topmost
// surface under the cursor and emits leave/enter around the focus change;
// an active drag suppresses that and delivers drag-motion instead.
func (s *Seat) PointerMotion(p geometry.Point) {
	s.pointerPos = p
	over := s.table.TopmostAt(p)
	if over != surface.None && !s.routable(over) {
		over = surface.None
	}

	if s.drag != nil {
		s.pointerFocus = over
		if over != surface.None {
			s.deliver(Delivery{Surface: over, Kind: DeliverDragMotion, Pos: p, Payload: s.drag.payload})
		}
		return
	}

	if over != s.pointerFocus {
		if s.pointerFocus != surface.None {
			s.deliver(Delivery{Surface: s.pointerFocus, Kind: DeliverLeave, Pos: p})
		}
		if over != surface.None {
			s.deliver(Delivery{Surface: over, Kind: DeliverEnter, Pos: p})
		}
		s.pointerFocus = over
	}
	if over != surface.None {
		s.deliver(Delivery{Surface: over, Kind: DeliverMotion, Pos: p})
	}

	if s.focusFollowsMouse && s.buttonsDown == 0 && s.popupGrab == surface.None && over != surface.None {
		// Motion-driven focus does not raise the window.
		s.setKeyboardFocus(s.table.TopLevelAncestor(over), false)
	}
}

// PointerButton routes a button event. A press outside an active popup
// grab's tree dismisses the grab and swallows the event; otherwise a press
// moves keyboard focus to the clicked surface's top-level ancestor.
func (s *Seat) PointerButton(button uint32, pressed bool) {
	if pressed {
		s.buttonsDown++
	} else if s.buttonsDown > 0 {
		s.buttonsDown--
	}

	if pressed && s.popupGrab != surface.None && !s.table.InTree(s.popupGrab, s.pointerFocus) {
		grabbed := s.popupGrab
		s.popupGrab = surface.None
		s.deliver(Delivery{Surface: grabbed, Kind: DeliverGrabDismissed, Pos: s.pointerPos})
		logger.Debugf("Seat.PointerButton: dismissed popup grab on %d", grabbed)
		return
	}

	if s.drag != nil && !pressed && s.buttonsDown == 0 {
		target := s.pointerFocus
		payload := s.drag.payload
		s.drag = nil
		if target != surface.None {
			s.deliver(Delivery{Surface: target, Kind: DeliverDrop, Pos: s.pointerPos, Payload: payload})
		}
		// Re-enter normal routing at the current position.
		s.pointerFocus = surface.None
		s.PointerMotion(s.pointerPos)
		return
	}

	if s.pointerFocus == surface.None {
		return
	}
	s.deliver(Delivery{Surface: s.pointerFocus, Kind: DeliverButton, Pos: s.pointerPos, Button: button, Pressed: pressed})

	if pressed {
		s.setKeyboardFocus(s.table.TopLevelAncestor(s.pointerFocus), true)
	}
}

// KeyboardKey delivers a key event to the keyboard focus, if any.
func (s *Seat) KeyboardKey(key uint32, pressed bool) {
	if s.keyboardFocus == surface.None || !s.routable(s.keyboardFocus) {
		return
	}
	s.deliver(Delivery{Surface: s.keyboardFocus, Kind: DeliverKey, Key: key, Pressed: pressed})
}

// TouchDown routes a touch point like a press at its position.
func (s *Seat) TouchDown(p geometry.Point) {
	over := s.table.TopmostAt(p)
	if over == surface.None || !s.routable(over) {
		return
	}
	s.deliver(Delivery{Surface: over, Kind: DeliverTouchDown, Pos: p})
	s.setKeyboardFocus(s.table.TopLevelAncestor(over), true)
}

// TouchUp routes a touch release at its position.
func (s *Seat) TouchUp(p geometry.Point) {
	over := s.table.TopmostAt(p)
	if over == surface.None || !s.routable(over) {
		return
	}
	s.deliver(Delivery{Surface: over, Kind: DeliverTouchUp, Pos: p})
}

// StartDrag begins a drag with the given payload. Valid only while a button
// is held; the drag ends on the final release.
func (s *Seat) StartDrag(payload string) error {
	if s.buttonsDown == 0 {
		return &comperr.ProtocolViolationError{Client: s.Name, Reason: "drag started without a held button"}
	}
	s.drag = &drag{payload: payload}
	return nil
}

// SetPopupGrab establishes a popup grab: input outside the popup's tree will
// dismiss it rather than be delivered.
func (s *Seat) SetPopupGrab(id surface.ID) error {
	sf, ok := s.table.Get(id)
	if !ok {
		return &comperr.UnknownSurfaceError{ID: uint64(id)}
	}
	if sf.Role != surface.RolePopup {
		return &comperr.InvalidRoleError{Role: sf.Role.String(), Reason: "only a popup can hold a grab"}
	}
	s.popupGrab = id
	return nil
}

// FocusSurface applies an explicit focus request (control surface or
// shortcut). It raises floating windows and records focus history.
func (s *Seat) FocusSurface(id surface.ID) error {
	if _, ok := s.table.Get(id); !ok {
		return &comperr.UnknownSurfaceError{ID: uint64(id)}
	}
	s.setKeyboardFocus(s.table.TopLevelAncestor(id), true)
	return nil
}

// Lock restricts input routing to the lock surface's tree, or lifts the
// restriction when given None.
func (s *Seat) Lock(lockSurface surface.ID) {
	s.lockSurface = lockSurface
	if lockSurface != surface.None {
		s.setKeyboardFocus(lockSurface, false)
	}
}

// Locked reports whether a session lock is in effect.
func (s *Seat) Locked() bool {
	return s.lockSurface != surface.None
}

// setKeyboardFocus moves keyboard focus, maintaining the MRU history and
// notifying the focus observer. Popups are never focused directly; callers
// pass the top-level ancestor.
func (s *Seat) setKeyboardFocus(id surface.ID, raise bool) {
	if id != surface.None && !s.routable(id) {
		return
	}
	if raise && id != surface.None {
		// Clicking an already focused window still raises it.
		_ = s.table.Raise(id)
	}
	if id == s.keyboardFocus {
		return
	}
	old := s.keyboardFocus
	s.keyboardFocus = id

	if id != surface.None {
		if sf, ok := s.table.Get(id); ok && sf.Role == surface.RoleTopLevel && !sf.AlwaysOnTop {
			s.touchHistory(id)
		}
	}
	if s.onFocus != nil {
		s.onFocus(old, id)
	}
}

func (s *Seat) touchHistory(id surface.ID) {
	for i, have := range s.focusHistory {
		if have == id {
			s.focusHistory = append(s.focusHistory[:i], s.focusHistory[i+1:]...)
			break
		}
	}
	s.focusHistory = append([]surface.ID{id}, s.focusHistory...)
}

// HandleDestroyed clears any reference the seat holds to destroyed surfaces
// and promotes keyboard focus to the most recently focused remaining
// normal-band surface, or to none.
func (s *Seat) HandleDestroyed(ids []surface.ID) {
	gone := make(map[surface.ID]bool, len(ids))
	for _, id := range ids {
		gone[id] = true
	}

	kept := s.focusHistory[:0]
	for _, id := range s.focusHistory {
		if !gone[id] {
			kept = append(kept, id)
		}
	}
	s.focusHistory = kept

	if gone[s.popupGrab] {
		s.popupGrab = surface.None
	}
	if gone[s.lockSurface] {
		s.lockSurface = surface.None
	}

	if gone[s.pointerFocus] {
		s.pointerFocus = surface.None
		if s.drag == nil {
			// Recompute what is under the cursor now that the old surface
			// is gone.
			if over := s.table.TopmostAt(s.pointerPos); over != surface.None && s.routable(over) {
				s.deliver(Delivery{Surface: over, Kind: DeliverEnter, Pos: s.pointerPos})
				s.pointerFocus = over
			}
		}
	}

	if gone[s.keyboardFocus] {
		next := surface.None
		for _, id := range s.focusHistory {
			if sf, ok := s.table.Get(id); ok && sf.Visible() {
				next = id
				break
			}
		}
		old := s.keyboardFocus
		s.keyboardFocus = next
		if next != surface.None {
			_ = s.table.Raise(next)
		}
		if s.onFocus != nil {
			s.onFocus(old, next)
		}
	}
}
