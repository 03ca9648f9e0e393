package compositor

import (
	"image"

	"github.com/tfufuu/nova/internal/bridge"
	"github.com/tfufuu/nova/internal/comperr"
	"github.com/tfufuu/nova/internal/geometry"
	"github.com/tfufuu/nova/internal/logger"
	"github.com/tfufuu/nova/internal/surface"
)

// Client-facing protocol operations. These run as callbacks on the core
// thread; a client connection handler calls them directly, never through the
// bridge.

// defaultPlacement cascades new top-level windows across the primary
// output's usable area.
func (c *Core) defaultPlacement() geometry.Rect {
	const w, h = 800, 600
	o := c.outputs.Primary()
	if o == nil {
		return geometry.XYWH(0, 0, w, h)
	}
	area := c.usableArea(o)
	step := (c.table.Len() % 8) * 24
	x := area.Min.X + 40 + step
	y := area.Min.Y + 40 + step
	return geometry.XYWH(x, y, w, h)
}

// CreateSurface establishes a role for a client surface and announces it.
// Popups require an existing parent; top-levels get a cascaded default
// placement until the client positions them.
func (c *Core) CreateSurface(client string, role surface.Role, parent surface.ID) (surface.ID, error) {
	id, err := c.table.Create(role, parent, client)
	if err != nil {
		return surface.None, err
	}
	if role == surface.RoleTopLevel {
		_ = c.table.SetGeometry(id, c.defaultPlacement())
	}
	c.bridge.Publish(bridge.Event{Kind: bridge.EventWindowCreated, Surface: uint64(id)})
	return id, nil
}

// CreateLayerSurface establishes a background or overlay layer surface
// anchored to an output edge, with an optional exclusive zone.
func (c *Core) CreateLayerSurface(client string, role surface.Role, outputID uint64, anchor surface.Anchor, exclusive int) (surface.ID, error) {
	if role != surface.RoleBackgroundLayer && role != surface.RoleOverlayLayer {
		return surface.None, &comperr.InvalidRoleError{Role: role.String(), Reason: "not a layer role"}
	}
	id, err := c.table.Create(role, surface.None, client)
	if err != nil {
		return surface.None, err
	}
	s, _ := c.table.Get(id)
	s.Output = outputID
	s.Anchor = anchor
	s.ExclusiveZone = exclusive
	if o, ok := c.outputs.Get(c.anchorOutput(s)); ok {
		c.placeLayer(s, o)
	}
	c.bridge.Publish(bridge.Event{Kind: bridge.EventWindowCreated, Surface: uint64(id)})
	return id, nil
}

// SetGeometry moves/resizes a surface, damaging the vacated region.
func (c *Core) SetGeometry(id surface.ID, r geometry.Rect) error {
	s, ok := c.table.Get(id)
	if !ok {
		return &comperr.UnknownSurfaceError{ID: uint64(id)}
	}
	old := s.Geometry
	if err := c.table.SetGeometry(id, r); err != nil {
		return err
	}
	if old != r {
		c.damageGlobal(old)
	}
	return nil
}

// SetState applies a window state. Idempotent: re-applying the current state
// changes nothing and emits no notification.
func (c *Core) SetState(id surface.ID, state surface.WindowState) error {
	s, ok := c.table.Get(id)
	if !ok {
		return &comperr.UnknownSurfaceError{ID: uint64(id)}
	}
	prev := s.State
	changed, err := c.table.SetState(id, state)
	if err != nil || !changed {
		return err
	}
	old := s.Geometry
	c.applyStateGeometry(s, prev)
	if old != s.Geometry || state == surface.StateMinimized {
		c.damageGlobal(old)
	}
	c.bridge.Publish(bridge.Event{
		Kind:    bridge.EventWindowStateChanged,
		Surface: uint64(id),
		State:   state.String(),
	})
	return nil
}

// SetTitle updates a window title and announces the change.
func (c *Core) SetTitle(id surface.ID, title string) error {
	changed, err := c.table.SetTitle(id, title)
	if err != nil || !changed {
		return err
	}
	c.bridge.Publish(bridge.Event{
		Kind:    bridge.EventWindowTitleChanged,
		Surface: uint64(id),
		Title:   title,
	})
	return nil
}

// SetAppID updates a window's application identifier.
func (c *Core) SetAppID(id surface.ID, appID string) error {
	return c.table.SetAppID(id, appID)
}

// CommitBuffer attaches newly committed client content. The previous buffer
// is released to the caller for deferred reclamation once the next frame is
// presented.
func (c *Core) CommitBuffer(id surface.ID, buf *image.RGBA) (previous *image.RGBA, err error) {
	s, ok := c.table.Get(id)
	if !ok {
		return nil, &comperr.UnknownSurfaceError{ID: uint64(id)}
	}
	previous = s.Buffer()
	s.Attach(buf)
	return previous, nil
}

// DamageSurface marks a surface-local rectangle dirty.
func (c *Core) DamageSurface(id surface.ID, r geometry.Rect) error {
	s, ok := c.table.Get(id)
	if !ok {
		return &comperr.UnknownSurfaceError{ID: uint64(id)}
	}
	s.Damage(r)
	return nil
}

// Raise brings a surface to the front of its band.
func (c *Core) Raise(id surface.ID) error {
	return c.table.Raise(id)
}

// Lower sends a surface to the back of its band and damages its area so the
// newly revealed content is repainted.
func (c *Core) Lower(id surface.ID) error {
	s, ok := c.table.Get(id)
	if !ok {
		return &comperr.UnknownSurfaceError{ID: uint64(id)}
	}
	if err := c.table.Lower(id); err != nil {
		return err
	}
	c.damageGlobal(s.Geometry)
	return nil
}

// DestroySurface removes a surface and its popup subtree, repairs seat focus
// and announces every closed window in teardown order.
func (c *Core) DestroySurface(id surface.ID) error {
	destroyed, err := c.destroyCascade(id)
	if err != nil {
		return err
	}
	for _, gone := range destroyed {
		c.bridge.Publish(bridge.Event{Kind: bridge.EventWindowClosed, Surface: uint64(gone)})
	}
	return nil
}

func (c *Core) destroyCascade(id surface.ID) ([]surface.ID, error) {
	var rects []geometry.Rect
	for _, s := range c.table.All() {
		if c.table.InTree(id, s.ID) {
			rects = append(rects, s.Geometry)
		}
	}
	destroyed, err := c.table.Destroy(id)
	if err != nil {
		return nil, err
	}
	for _, r := range rects {
		c.damageGlobal(r)
	}
	c.seat.HandleDestroyed(destroyed)
	return destroyed, nil
}

// CloseClient tears down every surface a disconnected client owned.
func (c *Core) CloseClient(client string) {
	destroyed := c.table.DestroyClient(client)
	if len(destroyed) == 0 {
		return
	}
	c.damageGlobal(c.outputs.LayoutBounds())
	c.seat.HandleDestroyed(destroyed)
	for _, gone := range destroyed {
		c.bridge.Publish(bridge.Event{Kind: bridge.EventWindowClosed, Surface: uint64(gone)})
	}
	logger.Infof("Client %s closed, %d surfaces destroyed", client, len(destroyed))
}

// Violation terminates an offending client connection: its surfaces are
// destroyed and the typed error is returned for the connection handler to
// report before closing. The compositor itself keeps running.
func (c *Core) Violation(client, reason string) error {
	logger.Warnf("Protocol violation from %s: %s", client, reason)
	c.CloseClient(client)
	return &comperr.ProtocolViolationError{Client: client, Reason: reason}
}

// RequestPopupGrab establishes the click-outside-closes-menu contract for a
// popup.
func (c *Core) RequestPopupGrab(id surface.ID) error {
	return c.seat.SetPopupGrab(id)
}

// StartDrag begins a drag-and-drop with the given payload.
func (c *Core) StartDrag(payload string) error {
	return c.seat.StartDrag(payload)
}
