// Package surface holds the authoritative table of client surfaces and their
// back-to-front stacking order. Parent/child relations are expressed as
// id-to-id references resolved through the table, never as owning pointers.
package surface

import (
	"image"

	"github.com/tfufuu/nova/internal/geometry"
)

// ID is a stable opaque surface identity. The zero ID is never allocated and
// means "no surface".
type ID uint64

// None is the absent surface identity.
const None ID = 0

// Role determines how a surface participates in layout and stacking.
type Role int

const (
	RoleTopLevel Role = iota
	RolePopup
	RoleBackgroundLayer
	RoleOverlayLayer
)

func (r Role) String() string {
	switch r {
	case RoleTopLevel:
		return "toplevel"
	case RolePopup:
		return "popup"
	case RoleBackgroundLayer:
		return "background-layer"
	case RoleOverlayLayer:
		return "overlay-layer"
	default:
		return "unknown"
	}
}

// WindowState is the window-management state of a top-level surface.
type WindowState int

const (
	StateFloating WindowState = iota
	StateMaximized
	StateMinimized
	StateTiledLeft
	StateTiledRight
	StateFullscreen
)

func (s WindowState) String() string {
	switch s {
	case StateFloating:
		return "floating"
	case StateMaximized:
		return "maximized"
	case StateMinimized:
		return "minimized"
	case StateTiledLeft:
		return "tiled-left"
	case StateTiledRight:
		return "tiled-right"
	case StateFullscreen:
		return "fullscreen"
	default:
		return "unknown"
	}
}

// Decoration selects who draws the window frame.
type Decoration int

const (
	DecorationClientDrawn Decoration = iota
	DecorationServerDrawn
)

// Anchor is the output edge a layer surface attaches to.
type Anchor int

const (
	AnchorTop Anchor = iota
	AnchorBottom
	AnchorLeft
	AnchorRight
)

// Surface is one client-owned rendered content region.
type Surface struct {
	ID         ID
	Role       Role
	Parent     ID // None for root surfaces; required for popups
	Client     string
	Geometry   geometry.Rect // Global logical coordinates
	State      WindowState
	Title      string
	AppID      string
	Decoration Decoration

	// AlwaysOnTop lifts a top-level surface into the band above normal
	// windows.
	AlwaysOnTop bool

	// Restore remembers the floating geometry to return to when leaving
	// maximized, tiled or fullscreen states.
	Restore geometry.Rect

	// Output anchors a layer surface to a specific output by id; zero means
	// the primary output. Ignored for non-layer roles.
	Output uint64

	// Anchor is the output edge a layer surface attaches to. Ignored for
	// non-layer roles.
	Anchor Anchor

	// ExclusiveZone is the height/width in logical pixels a layer surface
	// reserves along its anchored edge. Zero reserves nothing.
	ExclusiveZone int

	// buffer is the committed content. Exclusively read by the core thread
	// while composing.
	buffer *image.RGBA

	// damage accumulates surface-local dirty rectangles since the last
	// composed frame.
	damage geometry.Region
}

// IsLayer reports whether the surface occupies a shell layer band.
func (s *Surface) IsLayer() bool {
	return s.Role == RoleBackgroundLayer || s.Role == RoleOverlayLayer
}

// Visible reports whether the surface should be hit-tested and composed.
func (s *Surface) Visible() bool {
	return s.State != StateMinimized
}

// Attach replaces the surface's committed buffer and damages the full
// surface. A nil buffer detaches content.
func (s *Surface) Attach(buf *image.RGBA) {
	s.buffer = buf
	s.damage.Add(geometry.XYWH(0, 0, s.Geometry.Dx(), s.Geometry.Dy()))
}

// Buffer returns the committed content, which may be nil.
func (s *Surface) Buffer() *image.RGBA {
	return s.buffer
}

// Damage marks a surface-local rectangle dirty.
func (s *Surface) Damage(r geometry.Rect) {
	s.damage.Add(r)
}

// TakeDamage returns the pending damage translated into global coordinates
// and clears it.
func (s *Surface) TakeDamage() []geometry.Rect {
	if s.damage.Empty() {
		return nil
	}
	rects := make([]geometry.Rect, 0, len(s.damage.Rects()))
	for _, r := range s.damage.Rects() {
		rects = append(rects, r.Add(s.Geometry.Min))
	}
	s.damage.Clear()
	return rects
}
