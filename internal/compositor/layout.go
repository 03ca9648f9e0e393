package compositor

import (
	"github.com/tfufuu/nova/internal/geometry"
	"github.com/tfufuu/nova/internal/logger"
	"github.com/tfufuu/nova/internal/output"
	"github.com/tfufuu/nova/internal/surface"
)

// usableArea returns the output rectangle minus every exclusive zone
// reserved by layer surfaces anchored to it. Maximized and tiled windows are
// sized against this.
func (c *Core) usableArea(o *output.Output) geometry.Rect {
	area := o.LogicalBounds()
	for _, s := range c.table.All() {
		if !s.IsLayer() || s.ExclusiveZone <= 0 {
			continue
		}
		if c.anchorOutput(s) != o.ID {
			continue
		}
		z := s.ExclusiveZone
		switch s.Anchor {
		case surface.AnchorTop:
			area.Min.Y += z
		case surface.AnchorBottom:
			area.Max.Y -= z
		case surface.AnchorLeft:
			area.Min.X += z
		case surface.AnchorRight:
			area.Max.X -= z
		}
	}
	if area.Empty() {
		// Exclusive zones have eaten the whole output; fall back to the
		// full bounds rather than collapsing windows to nothing.
		return o.LogicalBounds()
	}
	return area
}

// anchorOutput resolves the output a layer surface is anchored to, defaulting
// to the primary output.
func (c *Core) anchorOutput(s *surface.Surface) uint64 {
	if s.Output != 0 {
		if _, ok := c.outputs.Get(s.Output); ok {
			return s.Output
		}
	}
	if p := c.outputs.Primary(); p != nil {
		return p.ID
	}
	return 0
}

// placeLayer positions a layer surface along its anchored edge, spanning the
// edge at its reserved thickness.
func (c *Core) placeLayer(s *surface.Surface, o *output.Output) {
	bounds := o.LogicalBounds()
	thickness := s.ExclusiveZone
	if thickness <= 0 {
		thickness = s.Geometry.Dy()
		if s.Anchor == surface.AnchorLeft || s.Anchor == surface.AnchorRight {
			thickness = s.Geometry.Dx()
		}
		if thickness <= 0 {
			thickness = 32
		}
	}

	var r geometry.Rect
	switch s.Anchor {
	case surface.AnchorTop:
		r = geometry.XYWH(bounds.Min.X, bounds.Min.Y, bounds.Dx(), thickness)
	case surface.AnchorBottom:
		r = geometry.XYWH(bounds.Min.X, bounds.Max.Y-thickness, bounds.Dx(), thickness)
	case surface.AnchorLeft:
		r = geometry.XYWH(bounds.Min.X, bounds.Min.Y, thickness, bounds.Dy())
	case surface.AnchorRight:
		r = geometry.XYWH(bounds.Max.X-thickness, bounds.Min.Y, thickness, bounds.Dy())
	}
	_ = c.table.SetGeometry(s.ID, r)
}

// outputFor returns the enabled output covering the center of a rectangle,
// falling back to the primary output.
func (c *Core) outputFor(r geometry.Rect) *output.Output {
	center := geometry.Pt((r.Min.X+r.Max.X)/2, (r.Min.Y+r.Max.Y)/2)
	if o := c.outputs.At(center); o != nil {
		return o
	}
	return c.outputs.Primary()
}

// applyStateGeometry resizes a surface according to its new window state.
// The floating geometry is saved on the way out of floating and restored on
// the way back.
func (c *Core) applyStateGeometry(s *surface.Surface, prev surface.WindowState) {
	o := c.outputFor(s.Geometry)
	if o == nil {
		return
	}
	if prev == surface.StateFloating && s.State != surface.StateFloating {
		s.Restore = s.Geometry
	}

	switch s.State {
	case surface.StateFloating:
		if !s.Restore.Empty() {
			_ = c.table.SetGeometry(s.ID, s.Restore)
		}
	case surface.StateMaximized:
		_ = c.table.SetGeometry(s.ID, c.usableArea(o))
	case surface.StateFullscreen:
		_ = c.table.SetGeometry(s.ID, o.LogicalBounds())
	case surface.StateTiledLeft:
		area := c.usableArea(o)
		_ = c.table.SetGeometry(s.ID, geometry.XYWH(area.Min.X, area.Min.Y, area.Dx()/2, area.Dy()))
	case surface.StateTiledRight:
		area := c.usableArea(o)
		half := area.Dx() / 2
		_ = c.table.SetGeometry(s.ID, geometry.XYWH(area.Min.X+half, area.Min.Y, area.Dx()-half, area.Dy()))
	case surface.StateMinimized:
		// Geometry is retained; the surface just stops being composed.
	}
}

// reassignLayers moves layer surfaces anchored to a disabled output onto the
// primary output so shell bars never become unreachable. Layers with a zero
// output anchor follow the primary designation, so they are re-placed when
// the disable moved the primary out from under them.
func (c *Core) reassignLayers(disabled uint64) {
	target := c.outputs.Primary()
	if target == nil {
		return
	}
	for _, s := range c.table.All() {
		if !s.IsLayer() {
			continue
		}
		switch s.Output {
		case disabled:
			s.Output = target.ID
		case 0:
			if s.Geometry.In(target.LogicalBounds()) {
				continue
			}
		default:
			continue
		}
		c.placeLayer(s, target)
		logger.Infof("Layer surface %d reassigned to output %s", s.ID, target.Name)
	}
}
