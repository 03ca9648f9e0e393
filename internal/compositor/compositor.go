// Package compositor runs the single-threaded reactive core: it exclusively
// owns the surface table, seat, output and input registries, drains bridge
// intents at the start of each iteration, routes backend input through the
// seat, and composes damaged outputs on every frame tick.
package compositor

import (
	"context"
	"fmt"
	"time"

	"github.com/tfufuu/nova/internal/backend"
	"github.com/tfufuu/nova/internal/bridge"
	"github.com/tfufuu/nova/internal/comperr"
	"github.com/tfufuu/nova/internal/config"
	"github.com/tfufuu/nova/internal/geometry"
	"github.com/tfufuu/nova/internal/input"
	"github.com/tfufuu/nova/internal/logger"
	"github.com/tfufuu/nova/internal/output"
	"github.com/tfufuu/nova/internal/seat"
	"github.com/tfufuu/nova/internal/surface"
)

// Core is the compositor state machine. All fields are owned by the goroutine
// running Run; external access goes through the bridge.
type Core struct {
	outputs *output.Registry
	inputs  *input.Registry
	table   *surface.Table
	seat    *seat.Seat
	bridge  *bridge.Bridge
	backend backend.Backend
	comp    *composer

	cursor    geometry.Point
	suspended bool
}

// New wires a core around a backend and a bridge.
func New(b backend.Backend, br *bridge.Bridge) *Core {
	table := surface.NewTable()
	c := &Core{
		outputs: output.NewRegistry(),
		inputs:  input.NewRegistry(),
		table:   table,
		seat:    seat.New("seat0", table),
		bridge:  br,
		backend: b,
		comp:    newComposer(),
	}
	c.seat.SetFocusFollowsMouse(config.Get().Input.FocusFollowsMouse)
	c.seat.SetFocusFunc(func(old, new surface.ID) {
		c.bridge.Publish(bridge.Event{Kind: bridge.EventWindowFocused, Surface: uint64(new)})
	})
	c.seat.SetSink(func(d seat.Delivery) {
		logger.Debugf("Core: deliver %s to surface %d", d.Kind, d.Surface)
	})
	return c
}

// Outputs exposes the output registry to same-thread callers (tests, backend
// bring-up).
func (c *Core) Outputs() *output.Registry { return c.outputs }

// Inputs exposes the input registry to same-thread callers.
func (c *Core) Inputs() *input.Registry { return c.inputs }

// Table exposes the surface table to same-thread callers.
func (c *Core) Table() *surface.Table { return c.table }

// Seat exposes the seat to same-thread callers.
func (c *Core) Seat() *seat.Seat { return c.seat }

// SetDeliverySink replaces the input delivery sink, e.g. with the client
// connection writer.
func (c *Core) SetDeliverySink(sink seat.Sink) {
	c.seat.SetSink(sink)
}

// tickInterval derives the frame clock period from the primary output's
// refresh rate, falling back to the configured hint.
func (c *Core) tickInterval() time.Duration {
	hz := config.Get().Compositor.RefreshHint
	if p := c.outputs.Primary(); p != nil && p.Mode.RefreshMHz > 0 {
		return time.Duration(float64(time.Second) * 1000 / float64(p.Mode.RefreshMHz))
	}
	if hz <= 0 {
		hz = 60
	}
	return time.Second / time.Duration(hz)
}

// Run drives the reactive loop until the context ends or the last output
// fails. The only blocking points are the select arms: backend events,
// bridge intents and the frame clock.
func (c *Core) Run(ctx context.Context) error {
	if err := c.backend.Start(ctx); err != nil {
		return fmt.Errorf("start backend: %w", err)
	}
	ticker := time.NewTicker(c.tickInterval())
	defer ticker.Stop()

	logger.Info("Compositor core running", "outputs", len(c.outputs.Enabled()))

	for {
		// Apply everything already queued before waiting again so intent
		// submission order is preserved relative to the tick.
		c.bridge.Drain(c.applyIntent)

		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-c.backend.Events():
			if !ok {
				return nil
			}
			c.HandleBackendEvent(ev)
		case in := <-c.bridge.Intents():
			c.applyIntent(in)
		case <-ticker.C:
			if c.suspended {
				continue
			}
			if err := c.FrameTick(); err != nil {
				logger.Errorf("Fatal frame error: %v", err)
				return err
			}
		}
	}
}

// HandleBackendEvent routes one hardware event through the registries and
// the seat.
func (c *Core) HandleBackendEvent(ev backend.Event) {
	switch ev.Kind {
	case backend.EventPointerMotion:
		c.pointerMotion(ev.Pos)
	case backend.EventPointerButton:
		c.seat.PointerButton(ev.Button, ev.Pressed)
	case backend.EventKey:
		c.seat.KeyboardKey(ev.Key, ev.Pressed)
	case backend.EventTouchDown:
		c.seat.TouchDown(ev.Pos)
	case backend.EventTouchUp:
		c.seat.TouchUp(ev.Pos)
	}
}

// pointerMotion clamps the cursor to the layout, damages its movement delta
// and hands the position to the seat.
func (c *Core) pointerMotion(p geometry.Point) {
	layout := c.outputs.LayoutBounds()
	if !layout.Empty() {
		if p.X < layout.Min.X {
			p.X = layout.Min.X
		}
		if p.X >= layout.Max.X {
			p.X = layout.Max.X - 1
		}
		if p.Y < layout.Min.Y {
			p.Y = layout.Min.Y
		}
		if p.Y >= layout.Max.Y {
			p.Y = layout.Max.Y - 1
		}
	}
	if p == c.cursor {
		return
	}
	c.damageGlobal(cursorRect(c.cursor))
	c.damageGlobal(cursorRect(p))
	c.cursor = p
	c.seat.PointerMotion(p)
}

// Cursor returns the current cursor position.
func (c *Core) Cursor() geometry.Point {
	return c.cursor
}

// damageGlobal marks a global rectangle dirty on every enabled output it
// touches.
func (c *Core) damageGlobal(r geometry.Rect) {
	for _, o := range c.outputs.Enabled() {
		o.AddDamage(r)
	}
}

// collectDamage distributes pending per-surface damage onto the outputs.
func (c *Core) collectDamage() {
	for _, s := range c.table.All() {
		for _, r := range s.TakeDamage() {
			c.damageGlobal(r)
		}
	}
}

// FrameTick runs one composition pass over every enabled output. Outputs
// without damage are skipped without a commit or a presented event. A commit
// failure disables the output unless it is the last one, which is fatal.
func (c *Core) FrameTick() error {
	c.collectDamage()

	for _, o := range c.outputs.Enabled() {
		frame, damage := c.comp.compose(o, c.table, c.cursor)
		if frame == nil {
			continue
		}
		if err := c.backend.Commit(o, frame, damage); err != nil {
			if ferr := c.handleBackendFailure(o, "commit", err); ferr != nil {
				return ferr
			}
			continue
		}
		o.ClearDamage()
		c.bridge.Publish(bridge.Event{Kind: bridge.EventFramePresented, Output: o.Name})
	}
	return nil
}

// handleBackendFailure disables a failed output and reconfigures, or returns
// a fatal error when no output remains.
func (c *Core) handleBackendFailure(o *output.Output, op string, err error) error {
	ferr := &comperr.BackendFailureError{Output: o.Name, Op: op, Err: err}
	if len(c.outputs.Enabled()) <= 1 {
		return fmt.Errorf("last output failed: %w", ferr)
	}
	logger.Errorf("Backend failure on %s: %v", o.Name, err)
	c.outputs.ForceDisable(o.ID)
	c.comp.dropFrame(o.ID)
	c.reassignLayers(o.ID)
	c.bridge.Publish(bridge.Event{Kind: bridge.EventDisplayReconfigured, Output: o.Name})
	return nil
}

// intentHandlers is the dispatch table for inbound intents, keyed by kind.
var intentHandlers = map[bridge.IntentKind]func(*Core, bridge.Intent) bridge.Reply{
	bridge.IntentListWindows:       (*Core).listWindows,
	bridge.IntentGetWindow:         (*Core).getWindow,
	bridge.IntentFocusWindow:       (*Core).focusWindow,
	bridge.IntentCloseWindow:       (*Core).closeWindow,
	bridge.IntentStatus:            (*Core).status,
	bridge.IntentOutputAdded:       (*Core).outputAdded,
	bridge.IntentOutputRemoved:     (*Core).outputRemoved,
	bridge.IntentOutputEnable:      (*Core).outputEnable,
	bridge.IntentOutputDisable:     (*Core).outputDisable,
	bridge.IntentOutputSetPosition: (*Core).outputSetPosition,
	bridge.IntentOutputSetMode:     (*Core).outputSetMode,
	bridge.IntentDeviceAdded:       (*Core).deviceAdded,
	bridge.IntentDeviceRemoved:     (*Core).deviceRemoved,
	bridge.IntentPowerStatus:       (*Core).powerStatus,
	bridge.IntentReloadConfig:      (*Core).reloadConfig,
	bridge.IntentLockSession:       (*Core).lockSession,
	bridge.IntentUnlockSession:     (*Core).unlockSession,
}

// applyIntent dispatches one inbound intent and answers its reply channel,
// if any.
func (c *Core) applyIntent(in bridge.Intent) {
	h, ok := intentHandlers[in.Kind]
	var r bridge.Reply
	if ok {
		r = h(c, in)
	} else {
		r = bridge.Reply{Err: fmt.Errorf("unknown intent kind %d", in.Kind)}
	}
	if in.Reply != nil {
		in.Reply <- r
		close(in.Reply)
	}
}

// ApplyIntent applies an intent synchronously. Core-thread callers only;
// external services must Submit through the bridge instead.
func (c *Core) ApplyIntent(in bridge.Intent) {
	c.applyIntent(in)
}

func (c *Core) windowInfo(s *surface.Surface) bridge.WindowInfo {
	return bridge.WindowInfo{
		ID:      uint64(s.ID),
		Title:   s.Title,
		AppID:   s.AppID,
		Role:    s.Role.String(),
		State:   s.State.String(),
		X:       s.Geometry.Min.X,
		Y:       s.Geometry.Min.Y,
		Width:   s.Geometry.Dx(),
		Height:  s.Geometry.Dy(),
		Focused: c.seat.KeyboardFocus() == s.ID,
	}
}

func (c *Core) listWindows(bridge.Intent) bridge.Reply {
	var infos []bridge.WindowInfo
	for _, s := range c.table.All() {
		if s.Role == surface.RoleTopLevel {
			infos = append(infos, c.windowInfo(s))
		}
	}
	return bridge.Reply{Windows: infos}
}

func (c *Core) getWindow(in bridge.Intent) bridge.Reply {
	s, ok := c.table.Get(surface.ID(in.Surface))
	if !ok {
		return bridge.Reply{Err: &comperr.UnknownSurfaceError{ID: in.Surface}}
	}
	info := c.windowInfo(s)
	return bridge.Reply{Window: &info}
}

func (c *Core) focusWindow(in bridge.Intent) bridge.Reply {
	return bridge.Reply{Err: c.seat.FocusSurface(surface.ID(in.Surface))}
}

func (c *Core) closeWindow(in bridge.Intent) bridge.Reply {
	return bridge.Reply{Err: c.DestroySurface(surface.ID(in.Surface))}
}

func (c *Core) status(bridge.Intent) bridge.Reply {
	st := &bridge.StatusInfo{
		Windows:  len(c.listWindows(bridge.Intent{}).Windows),
		Focused:  uint64(c.seat.KeyboardFocus()),
		Locked:   c.seat.Locked(),
		Seat:     c.seat.Name,
		SeatCaps: c.inputs.SeatCapabilities().String(),
	}
	for _, o := range c.outputs.All() {
		st.Outputs = append(st.Outputs, bridge.OutputInfo{
			ID:      o.ID,
			Name:    o.Name,
			Mode:    o.Mode.String(),
			X:       o.Position.X,
			Y:       o.Position.Y,
			Scale:   o.Scale,
			Enabled: o.Enabled,
			Primary: o.Primary,
		})
	}
	return bridge.Reply{Status: st}
}

func (c *Core) outputAdded(in bridge.Intent) bridge.Reply {
	o := c.outputs.Add(in.OutputName, in.Modes)
	c.bridge.Publish(bridge.Event{Kind: bridge.EventDisplayReconfigured, Output: o.Name})
	return bridge.Reply{}
}

func (c *Core) outputRemoved(in bridge.Intent) bridge.Reply {
	o, ok := c.outputs.ByName(in.OutputName)
	if !ok {
		return bridge.Reply{Err: fmt.Errorf("unknown output %q", in.OutputName)}
	}
	id := o.ID
	c.outputs.Remove(id)
	c.comp.dropFrame(id)
	c.reassignLayers(id)
	c.bridge.Publish(bridge.Event{Kind: bridge.EventDisplayReconfigured, Output: in.OutputName})
	return bridge.Reply{}
}

func (c *Core) outputEnable(in bridge.Intent) bridge.Reply {
	if err := c.outputs.Enable(in.OutputID, in.Mode); err != nil {
		return bridge.Reply{Err: err}
	}
	if o, ok := c.outputs.Get(in.OutputID); ok {
		if err := c.backend.SetMode(o, o.Mode); err != nil {
			c.outputs.ForceDisable(in.OutputID)
			return bridge.Reply{Err: &comperr.BackendFailureError{Output: o.Name, Op: "set-mode", Err: err}}
		}
		c.bridge.Publish(bridge.Event{Kind: bridge.EventDisplayReconfigured, Output: o.Name})
	}
	return bridge.Reply{}
}

func (c *Core) outputDisable(in bridge.Intent) bridge.Reply {
	if err := c.outputs.Disable(in.OutputID); err != nil {
		return bridge.Reply{Err: err}
	}
	c.reassignLayers(in.OutputID)
	if o, ok := c.outputs.Get(in.OutputID); ok {
		c.bridge.Publish(bridge.Event{Kind: bridge.EventDisplayReconfigured, Output: o.Name})
	}
	return bridge.Reply{}
}

func (c *Core) outputSetPosition(in bridge.Intent) bridge.Reply {
	if err := c.outputs.SetPosition(in.OutputID, in.Pos); err != nil {
		return bridge.Reply{Err: err}
	}
	if o, ok := c.outputs.Get(in.OutputID); ok {
		c.bridge.Publish(bridge.Event{Kind: bridge.EventDisplayReconfigured, Output: o.Name})
	}
	return bridge.Reply{}
}

func (c *Core) outputSetMode(in bridge.Intent) bridge.Reply {
	o, ok := c.outputs.Get(in.OutputID)
	if !ok {
		return bridge.Reply{Err: fmt.Errorf("unknown output id %d", in.OutputID)}
	}
	if err := c.backend.SetMode(o, in.Mode); err != nil {
		return bridge.Reply{Err: c.handleBackendFailure(o, "set-mode", err)}
	}
	if err := c.outputs.SetMode(in.OutputID, in.Mode); err != nil {
		return bridge.Reply{Err: err}
	}
	c.bridge.Publish(bridge.Event{Kind: bridge.EventDisplayReconfigured, Output: o.Name})
	return bridge.Reply{}
}

func (c *Core) deviceAdded(in bridge.Intent) bridge.Reply {
	c.inputs.Add(in.DeviceName, in.DeviceCaps)
	return bridge.Reply{}
}

func (c *Core) deviceRemoved(in bridge.Intent) bridge.Reply {
	c.inputs.Remove(in.DeviceID)
	return bridge.Reply{}
}

func (c *Core) powerStatus(in bridge.Intent) bridge.Reply {
	c.suspended = !in.PowerOn
	if c.suspended {
		logger.Info("Frame clock suspended on power event")
	} else {
		logger.Info("Frame clock resumed")
		// Repaint everything after resume.
		for _, o := range c.outputs.Enabled() {
			o.AddDamage(o.LogicalBounds())
		}
	}
	return bridge.Reply{}
}

func (c *Core) reloadConfig(bridge.Intent) bridge.Reply {
	cfg, err := config.Reload()
	if err != nil {
		return bridge.Reply{Err: err}
	}
	logger.SetLevel(cfg.Logging.LogLevel)
	c.seat.SetFocusFollowsMouse(cfg.Input.FocusFollowsMouse)

	for _, pref := range cfg.Outputs {
		o, ok := c.outputs.ByName(pref.Name)
		if !ok {
			continue
		}
		if err := c.outputs.SetPosition(o.ID, geometry.Pt(pref.X, pref.Y)); err != nil {
			logger.Warnf("Config reload: cannot move %s: %v", pref.Name, err)
		}
		if pref.Scale > 0 {
			o.Scale = pref.Scale
			o.AddDamage(o.LogicalBounds())
		}
	}
	c.bridge.Publish(bridge.Event{Kind: bridge.EventDisplayReconfigured})
	logger.Info("Configuration reloaded")
	return bridge.Reply{}
}

func (c *Core) lockSession(in bridge.Intent) bridge.Reply {
	s, ok := c.table.Get(surface.ID(in.Surface))
	if !ok {
		return bridge.Reply{Err: &comperr.UnknownSurfaceError{ID: in.Surface}}
	}
	if s.Role != surface.RoleOverlayLayer {
		return bridge.Reply{Err: &comperr.InvalidRoleError{Role: s.Role.String(), Reason: "session lock requires an overlay-layer surface"}}
	}
	c.seat.Lock(s.ID)
	c.bridge.Publish(bridge.Event{Kind: bridge.EventSessionLocked, Surface: in.Surface})
	logger.Info("Session locked", "surface", in.Surface)
	return bridge.Reply{}
}

func (c *Core) unlockSession(bridge.Intent) bridge.Reply {
	c.seat.Lock(surface.None)
	c.bridge.Publish(bridge.Event{Kind: bridge.EventSessionUnlocked})
	logger.Info("Session unlocked")
	return bridge.Reply{}
}
