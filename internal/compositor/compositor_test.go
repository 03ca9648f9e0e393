package compositor

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tfufuu/nova/internal/backend"
	"github.com/tfufuu/nova/internal/bridge"
	"github.com/tfufuu/nova/internal/comperr"
	"github.com/tfufuu/nova/internal/config"
	"github.com/tfufuu/nova/internal/geometry"
	"github.com/tfufuu/nova/internal/output"
	"github.com/tfufuu/nova/internal/seat"
	"github.com/tfufuu/nova/internal/surface"
)

func newTestCore(t *testing.T) (*Core, *backend.Headless, *bridge.Bridge) {
	t.Helper()
	config.Set(nil) // defaults
	hb := backend.NewHeadless()
	br := bridge.New(32, 32)
	return New(hb, br), hb, br
}

func addSideBySideOutputs(t *testing.T, c *Core) (*output.Output, *output.Output) {
	t.Helper()
	modes := []output.Mode{{Width: 1920, Height: 1080, RefreshMHz: 60000}}
	left := c.Outputs().Add("HEADLESS-1", modes)
	right := c.Outputs().Add("HEADLESS-2", modes)
	require.Equal(t, geometry.Pt(0, 0), left.Position)
	require.Equal(t, geometry.Pt(1920, 0), right.Position, "a hot-plugged output lands at the layout's right edge")
	return left, right
}

// drainEvents empties the subscription's buffered events without blocking the
// test on an empty queue.
func drainEvents(sub *bridge.Subscription) []bridge.Event {
	var out []bridge.Event
	for {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Millisecond)
		e, err := sub.Next(ctx)
		cancel()
		if err != nil {
			var lagged *bridge.LaggedError
			if errors.As(err, &lagged) {
				continue
			}
			return out
		}
		out = append(out, e)
	}
}

func eventsOfKind(events []bridge.Event, kind bridge.EventKind) []bridge.Event {
	var out []bridge.Event
	for _, e := range events {
		if e.Kind == kind {
			out = append(out, e)
		}
	}
	return out
}

func TestPointerRoutingAndClickFocus(t *testing.T) {
	c, _, _ := newTestCore(t)
	addSideBySideOutputs(t, c)

	id, err := c.CreateSurface("term", surface.RoleTopLevel, surface.None)
	require.NoError(t, err)
	require.NoError(t, c.SetGeometry(id, geometry.XYWH(100, 100, 800, 600)))

	var deliveries []seat.Delivery
	c.SetDeliverySink(func(d seat.Delivery) { deliveries = append(deliveries, d) })

	c.HandleBackendEvent(backend.Event{Kind: backend.EventPointerMotion, Pos: geometry.Pt(150, 150)})
	require.NotEmpty(t, deliveries)
	assert.Equal(t, seat.DeliverEnter, deliveries[0].Kind)
	assert.Equal(t, id, deliveries[0].Surface)
	assert.Equal(t, id, c.Seat().PointerFocus())
	assert.Equal(t, surface.None, c.Seat().KeyboardFocus(), "hovering alone does not focus")

	c.HandleBackendEvent(backend.Event{Kind: backend.EventPointerButton, Button: 1, Pressed: true})
	assert.Equal(t, id, c.Seat().KeyboardFocus())
}

func TestPointerClampsToLayout(t *testing.T) {
	c, _, _ := newTestCore(t)
	addSideBySideOutputs(t, c)

	// Inside the combined layout the position passes through.
	c.HandleBackendEvent(backend.Event{Kind: backend.EventPointerMotion, Pos: geometry.Pt(2000, 500)})
	assert.Equal(t, geometry.Pt(2000, 500), c.Cursor())

	// Past the right edge the cursor pins to the last column.
	c.HandleBackendEvent(backend.Event{Kind: backend.EventPointerMotion, Pos: geometry.Pt(9000, -50)})
	assert.Equal(t, geometry.Pt(3839, 0), c.Cursor())
}

func TestDestroyCascadePublishesAndRefocuses(t *testing.T) {
	c, _, br := newTestCore(t)
	addSideBySideOutputs(t, c)

	a, err := c.CreateSurface("app", surface.RoleTopLevel, surface.None)
	require.NoError(t, err)
	b, err := c.CreateSurface("app", surface.RolePopup, a)
	require.NoError(t, err)
	require.NoError(t, c.Seat().FocusSurface(a))

	sub := br.Subscribe()
	defer sub.Close()

	require.NoError(t, c.DestroySurface(a))

	closed := eventsOfKind(drainEvents(sub), bridge.EventWindowClosed)
	require.Len(t, closed, 2)
	assert.Equal(t, uint64(b), closed[0].Surface, "children close before their parent")
	assert.Equal(t, uint64(a), closed[1].Surface)
	assert.Equal(t, surface.None, c.Seat().KeyboardFocus())
	assert.Equal(t, 0, c.Table().Len())
}

func TestUndamagedTickCommitsNothing(t *testing.T) {
	c, hb, br := newTestCore(t)
	addSideBySideOutputs(t, c)

	sub := br.Subscribe()
	defer sub.Close()

	// The hot-plug damage drives the first full paint of both outputs.
	require.NoError(t, c.FrameTick())
	assert.Len(t, hb.Commits(), 2)
	assert.Len(t, eventsOfKind(drainEvents(sub), bridge.EventFramePresented), 2)

	// Nothing changed: no commit, no presented event.
	require.NoError(t, c.FrameTick())
	assert.Len(t, hb.Commits(), 2)
	assert.Empty(t, eventsOfKind(drainEvents(sub), bridge.EventFramePresented))
}

func TestDamageRepaintsOnlyTouchedOutput(t *testing.T) {
	c, hb, _ := newTestCore(t)
	addSideBySideOutputs(t, c)
	require.NoError(t, c.FrameTick())
	before := len(hb.Commits())

	id, err := c.CreateSurface("app", surface.RoleTopLevel, surface.None)
	require.NoError(t, err)
	require.NoError(t, c.SetGeometry(id, geometry.XYWH(100, 100, 400, 300)))

	require.NoError(t, c.FrameTick())
	commits := hb.Commits()[before:]
	require.Len(t, commits, 1, "a window on the left output must not dirty the right one")
	assert.Equal(t, "HEADLESS-1", commits[0].Output)
}

func TestStateChangeIsIdempotent(t *testing.T) {
	c, _, br := newTestCore(t)
	addSideBySideOutputs(t, c)

	id, err := c.CreateSurface("app", surface.RoleTopLevel, surface.None)
	require.NoError(t, err)

	sub := br.Subscribe()
	defer sub.Close()

	require.NoError(t, c.SetState(id, surface.StateMaximized))
	events := eventsOfKind(drainEvents(sub), bridge.EventWindowStateChanged)
	require.Len(t, events, 1)
	assert.Equal(t, "maximized", events[0].State)

	require.NoError(t, c.SetState(id, surface.StateMaximized))
	assert.Empty(t, eventsOfKind(drainEvents(sub), bridge.EventWindowStateChanged),
		"re-applying the current state emits nothing")
}

func TestMaximizeRespectsExclusiveZone(t *testing.T) {
	c, _, _ := newTestCore(t)
	addSideSingle(t, c)

	bar, err := c.CreateLayerSurface("shell", surface.RoleBackgroundLayer, 0, surface.AnchorTop, 32)
	require.NoError(t, err)
	s, _ := c.Table().Get(bar)
	assert.Equal(t, geometry.XYWH(0, 0, 1920, 32), s.Geometry, "the bar spans its anchored edge")

	id, err := c.CreateSurface("app", surface.RoleTopLevel, surface.None)
	require.NoError(t, err)
	require.NoError(t, c.SetState(id, surface.StateMaximized))

	win, _ := c.Table().Get(id)
	assert.Equal(t, geometry.XYWH(0, 32, 1920, 1048), win.Geometry)

	// Fullscreen ignores the reserved zone.
	require.NoError(t, c.SetState(id, surface.StateFullscreen))
	assert.Equal(t, geometry.XYWH(0, 0, 1920, 1080), win.Geometry)
}

func addSideSingle(t *testing.T, c *Core) *output.Output {
	t.Helper()
	return c.Outputs().Add("HEADLESS-1", []output.Mode{{Width: 1920, Height: 1080, RefreshMHz: 60000}})
}

func TestTilingSplitsUsableArea(t *testing.T) {
	c, _, _ := newTestCore(t)
	addSideSingle(t, c)

	left, err := c.CreateSurface("app", surface.RoleTopLevel, surface.None)
	require.NoError(t, err)
	right, err := c.CreateSurface("app", surface.RoleTopLevel, surface.None)
	require.NoError(t, err)

	require.NoError(t, c.SetState(left, surface.StateTiledLeft))
	require.NoError(t, c.SetState(right, surface.StateTiledRight))

	ls, _ := c.Table().Get(left)
	rs, _ := c.Table().Get(right)
	assert.Equal(t, geometry.XYWH(0, 0, 960, 1080), ls.Geometry)
	assert.Equal(t, geometry.XYWH(960, 0, 960, 1080), rs.Geometry)
}

func TestFloatingRestoresGeometry(t *testing.T) {
	c, _, _ := newTestCore(t)
	addSideSingle(t, c)

	id, err := c.CreateSurface("app", surface.RoleTopLevel, surface.None)
	require.NoError(t, err)
	require.NoError(t, c.SetGeometry(id, geometry.XYWH(200, 150, 640, 480)))

	require.NoError(t, c.SetState(id, surface.StateMaximized))
	require.NoError(t, c.SetState(id, surface.StateFloating))

	s, _ := c.Table().Get(id)
	assert.Equal(t, geometry.XYWH(200, 150, 640, 480), s.Geometry)
}

func TestBackendFailureDisablesOutput(t *testing.T) {
	c, hb, br := newTestCore(t)
	_, right := addSideBySideOutputs(t, c)

	sub := br.Subscribe()
	defer sub.Close()

	hb.FailCommits("HEADLESS-2", errors.New("drm: device lost"))
	require.NoError(t, c.FrameTick(), "losing one of two outputs is survivable")

	got, ok := c.Outputs().Get(right.ID)
	require.True(t, ok)
	assert.False(t, got.Enabled)

	recon := eventsOfKind(drainEvents(sub), bridge.EventDisplayReconfigured)
	require.NotEmpty(t, recon)
	assert.Equal(t, "HEADLESS-2", recon[len(recon)-1].Output)
}

func TestLastOutputFailureIsFatal(t *testing.T) {
	c, hb, _ := newTestCore(t)
	addSideSingle(t, c)

	hb.FailCommits("HEADLESS-1", errors.New("drm: device lost"))
	err := c.FrameTick()
	require.Error(t, err)
	var bf *comperr.BackendFailureError
	assert.True(t, errors.As(err, &bf))
}

func TestBackendFailureReassignsLayers(t *testing.T) {
	c, hb, _ := newTestCore(t)
	left, right := addSideBySideOutputs(t, c)

	bar, err := c.CreateLayerSurface("shell", surface.RoleBackgroundLayer, right.ID, surface.AnchorBottom, 24)
	require.NoError(t, err)

	hb.FailCommits("HEADLESS-2", errors.New("drm: device lost"))
	require.NoError(t, c.FrameTick())

	s, _ := c.Table().Get(bar)
	assert.Equal(t, left.ID, s.Output, "shell bars migrate off a dead output")
	assert.Equal(t, geometry.XYWH(0, 1056, 1920, 24), s.Geometry)
}

func TestDisablePrimaryReplacesDefaultAnchoredLayers(t *testing.T) {
	c, _, _ := newTestCore(t)
	left, right := addSideBySideOutputs(t, c)

	// A zero output id anchors the bar to whatever output is primary.
	bar, err := c.CreateLayerSurface("shell", surface.RoleBackgroundLayer, 0, surface.AnchorTop, 32)
	require.NoError(t, err)
	s, _ := c.Table().Get(bar)
	require.Equal(t, geometry.XYWH(0, 0, 1920, 32), s.Geometry)

	c.ApplyIntent(bridge.Intent{Kind: bridge.IntentOutputDisable, OutputID: left.ID})

	got, ok := c.Outputs().Get(left.ID)
	require.True(t, ok)
	require.False(t, got.Enabled)
	require.True(t, right.Primary, "primary designation moves to the survivor")

	assert.Equal(t, geometry.XYWH(1920, 0, 1920, 32), s.Geometry,
		"a primary-anchored bar follows the primary off a disabled output")
	assert.True(t, s.Geometry.In(right.LogicalBounds()))
}

func TestControlIntents(t *testing.T) {
	c, _, _ := newTestCore(t)
	addSideSingle(t, c)

	id, err := c.CreateSurface("app", surface.RoleTopLevel, surface.None)
	require.NoError(t, err)
	require.NoError(t, c.SetTitle(id, "editor"))

	ask := func(in bridge.Intent) bridge.Reply {
		in.Reply = make(chan bridge.Reply, 1)
		c.ApplyIntent(in)
		return <-in.Reply
	}

	r := ask(bridge.Intent{Kind: bridge.IntentListWindows})
	require.NoError(t, r.Err)
	require.Len(t, r.Windows, 1)
	assert.Equal(t, "editor", r.Windows[0].Title)

	r = ask(bridge.Intent{Kind: bridge.IntentFocusWindow, Surface: uint64(id)})
	require.NoError(t, r.Err)

	r = ask(bridge.Intent{Kind: bridge.IntentGetWindow, Surface: uint64(id)})
	require.NoError(t, r.Err)
	require.NotNil(t, r.Window)
	assert.True(t, r.Window.Focused)

	r = ask(bridge.Intent{Kind: bridge.IntentStatus})
	require.NoError(t, r.Err)
	require.NotNil(t, r.Status)
	assert.Equal(t, 1, r.Status.Windows)
	assert.Equal(t, uint64(id), r.Status.Focused)
	assert.Equal(t, "seat0", r.Status.Seat)

	r = ask(bridge.Intent{Kind: bridge.IntentCloseWindow, Surface: uint64(id)})
	require.NoError(t, r.Err)
	assert.Equal(t, 0, c.Table().Len())

	r = ask(bridge.Intent{Kind: bridge.IntentGetWindow, Surface: uint64(id)})
	var unknown *comperr.UnknownSurfaceError
	assert.True(t, errors.As(r.Err, &unknown))
}

func TestOutputHotplugIntents(t *testing.T) {
	c, _, _ := newTestCore(t)
	addSideSingle(t, c)

	c.ApplyIntent(bridge.Intent{
		Kind:       bridge.IntentOutputAdded,
		OutputName: "DP-3",
		Modes:      []output.Mode{{Width: 2560, Height: 1440, RefreshMHz: 144000}},
	})
	o, ok := c.Outputs().ByName("DP-3")
	require.True(t, ok)
	assert.Equal(t, geometry.Pt(1920, 0), o.Position)

	c.ApplyIntent(bridge.Intent{Kind: bridge.IntentOutputRemoved, OutputName: "DP-3"})
	_, ok = c.Outputs().ByName("DP-3")
	assert.False(t, ok)
}

func TestSessionLockIntents(t *testing.T) {
	c, _, br := newTestCore(t)
	addSideSingle(t, c)

	win, err := c.CreateSurface("app", surface.RoleTopLevel, surface.None)
	require.NoError(t, err)
	locker, err := c.CreateLayerSurface("locker", surface.RoleOverlayLayer, 0, surface.AnchorTop, 0)
	require.NoError(t, err)

	sub := br.Subscribe()
	defer sub.Close()

	ask := func(in bridge.Intent) bridge.Reply {
		in.Reply = make(chan bridge.Reply, 1)
		c.ApplyIntent(in)
		return <-in.Reply
	}

	// Only an overlay-layer surface may hold the lock.
	r := ask(bridge.Intent{Kind: bridge.IntentLockSession, Surface: uint64(win)})
	var roleErr *comperr.InvalidRoleError
	require.True(t, errors.As(r.Err, &roleErr))

	r = ask(bridge.Intent{Kind: bridge.IntentLockSession, Surface: uint64(locker)})
	require.NoError(t, r.Err)
	assert.True(t, c.Seat().Locked())

	r = ask(bridge.Intent{Kind: bridge.IntentUnlockSession})
	require.NoError(t, r.Err)
	assert.False(t, c.Seat().Locked())

	events := drainEvents(sub)
	assert.Len(t, eventsOfKind(events, bridge.EventSessionLocked), 1)
	assert.Len(t, eventsOfKind(events, bridge.EventSessionUnlocked), 1)
}

func TestPowerSuspendRepaintsOnResume(t *testing.T) {
	c, hb, _ := newTestCore(t)
	addSideSingle(t, c)
	require.NoError(t, c.FrameTick())
	before := len(hb.Commits())

	c.ApplyIntent(bridge.Intent{Kind: bridge.IntentPowerStatus, PowerOn: false})
	c.ApplyIntent(bridge.Intent{Kind: bridge.IntentPowerStatus, PowerOn: true})

	// Resume forces a full repaint even though no client changed anything.
	require.NoError(t, c.FrameTick())
	assert.Len(t, hb.Commits(), before+1)
}

func TestCloseClientTearsDownSurfaces(t *testing.T) {
	c, _, _ := newTestCore(t)
	addSideSingle(t, c)

	a, _ := c.CreateSurface("gone", surface.RoleTopLevel, surface.None)
	_, _ = c.CreateSurface("gone", surface.RolePopup, a)
	keep, _ := c.CreateSurface("keeper", surface.RoleTopLevel, surface.None)

	c.CloseClient("gone")
	assert.Equal(t, 1, c.Table().Len())
	_, ok := c.Table().Get(keep)
	assert.True(t, ok)
}

func TestViolationTerminatesClient(t *testing.T) {
	c, _, _ := newTestCore(t)
	addSideSingle(t, c)

	_, err := c.CreateSurface("rogue", surface.RoleTopLevel, surface.None)
	require.NoError(t, err)

	err = c.Violation("rogue", "commit before role assignment")
	var pv *comperr.ProtocolViolationError
	require.True(t, errors.As(err, &pv))
	assert.Equal(t, "rogue", pv.Client)
	assert.Equal(t, 0, c.Table().Len())
}

func TestRunDrivesTicksAndIntents(t *testing.T) {
	c, hb, br := newTestCore(t)
	addSideSingle(t, c)

	sub := br.Subscribe()
	defer sub.Close()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- c.Run(ctx) }()

	// A request intent round-trips through the running loop.
	reqCtx, reqCancel := context.WithTimeout(context.Background(), time.Second)
	defer reqCancel()
	reply, err := br.Request(reqCtx, bridge.Intent{Kind: bridge.IntentStatus})
	require.NoError(t, err)
	require.NotNil(t, reply.Status)

	// The hot-plug damage is presented by the frame clock.
	deadline := time.After(time.Second)
	for len(hb.Commits()) == 0 {
		select {
		case <-deadline:
			t.Fatal("no frame presented")
		case <-time.After(5 * time.Millisecond):
		}
	}

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("core did not stop on context cancel")
	}
}
