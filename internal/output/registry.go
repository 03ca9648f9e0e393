package output

import (
	"sort"

	"github.com/tfufuu/nova/internal/comperr"
	"github.com/tfufuu/nova/internal/config"
	"github.com/tfufuu/nova/internal/geometry"
	"github.com/tfufuu/nova/internal/logger"
)

// Registry is the authoritative table of display outputs. It is owned by the
// compositor core thread and is not safe for concurrent use.
type Registry struct {
	outputs map[uint64]*Output
	nextID  uint64

	// modeCache remembers the last compositor-assigned mode per stable output
	// name, so a replugged monitor comes back in the mode it left with.
	modeCache map[string]Mode
}

// NewRegistry creates an empty output registry.
func NewRegistry() *Registry {
	return &Registry{
		outputs:   make(map[uint64]*Output),
		nextID:    1,
		modeCache: make(map[string]Mode),
	}
}

// Add registers a hot-plugged output and negotiates its mode. The negotiated
// order is: configured preference, cached previous assignment, then the
// highest available mode. Returns the new output enabled and positioned per
// config, or appended to the right edge of the current layout.
func (r *Registry) Add(name string, modes []Mode) *Output {
	o := &Output{
		ID:    r.nextID,
		Name:  name,
		Modes: modes,
		Scale: 1,
	}
	r.nextID++

	o.Mode = r.negotiateMode(name, modes)

	if pref, ok := config.Get().OutputByName(name); ok {
		o.Position = geometry.Pt(pref.X, pref.Y)
		if pref.Scale > 0 {
			o.Scale = pref.Scale
		}
		o.Transform = ParseTransform(pref.Transform)
		o.Enabled = !pref.Disabled
	} else {
		o.Position = geometry.Pt(r.layoutRightEdge(), 0)
		o.Enabled = true
	}

	r.outputs[o.ID] = o
	if o.Enabled {
		o.AddDamage(o.LogicalBounds())
	}
	r.updatePrimary()
	logger.Infof("Output added: %s (%s) at %d,%d", name, o.Mode, o.Position.X, o.Position.Y)
	return o
}

// Remove drops an unplugged output, caching its mode for replug.
func (r *Registry) Remove(id uint64) *Output {
	o, ok := r.outputs[id]
	if !ok {
		return nil
	}
	r.modeCache[o.Name] = o.Mode
	delete(r.outputs, id)
	r.updatePrimary()
	logger.Infof("Output removed: %s", o.Name)
	return o
}

// Get returns an output by id.
func (r *Registry) Get(id uint64) (*Output, bool) {
	o, ok := r.outputs[id]
	return o, ok
}

// ByName returns an output by its stable name.
func (r *Registry) ByName(name string) (*Output, bool) {
	for _, o := range r.outputs {
		if o.Name == name {
			return o, true
		}
	}
	return nil, false
}

// Enabled returns all enabled outputs, sorted by id for deterministic
// iteration.
func (r *Registry) Enabled() []*Output {
	var out []*Output
	for _, o := range r.outputs {
		if o.Enabled {
			out = append(out, o)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// All returns every known output, enabled or not, sorted by id.
func (r *Registry) All() []*Output {
	out := make([]*Output, 0, len(r.outputs))
	for _, o := range r.outputs {
		out = append(out, o)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Primary returns the primary output, or nil when no output is enabled.
func (r *Registry) Primary() *Output {
	for _, o := range r.Enabled() {
		if o.Primary {
			return o
		}
	}
	return nil
}

// At returns the topmost enabled output containing the point.
func (r *Registry) At(p geometry.Point) *Output {
	for _, o := range r.Enabled() {
		if o.Contains(p) {
			return o
		}
	}
	return nil
}

// Enable activates an output with the given mode. A zero mode keeps the
// negotiated one. Fails with DisconnectedLayout if the output's position
// would leave it unreachable from the rest of the layout.
func (r *Registry) Enable(id uint64, mode Mode) error {
	o, ok := r.outputs[id]
	if !ok {
		return &comperr.BackendFailureError{Output: "?", Op: "enable", Err: errUnknownOutput(id)}
	}
	prevMode, prevEnabled := o.Mode, o.Enabled
	if mode != (Mode{}) {
		o.Mode = mode
	}
	o.Enabled = true
	if !r.layoutConnected() {
		o.Mode, o.Enabled = prevMode, prevEnabled
		return &comperr.DisconnectedLayoutError{Output: o.Name}
	}
	r.modeCache[o.Name] = o.Mode
	o.AddDamage(o.LogicalBounds())
	r.updatePrimary()
	logger.Debugf("Registry.Enable: %s mode=%s", o.Name, o.Mode)
	return nil
}

// Disable deactivates an output. Fails with DisconnectedLayout if removing
// it would split the remaining enabled outputs into disjoint islands, or if
// it is the last enabled output: the layout must never be empty.
func (r *Registry) Disable(id uint64) error {
	o, ok := r.outputs[id]
	if !ok {
		return &comperr.BackendFailureError{Output: "?", Op: "disable", Err: errUnknownOutput(id)}
	}
	if !o.Enabled {
		return nil
	}
	o.Enabled = false
	if len(r.Enabled()) == 0 || !r.layoutConnected() {
		o.Enabled = true
		return &comperr.DisconnectedLayoutError{Output: o.Name}
	}
	r.updatePrimary()
	logger.Debugf("Registry.Disable: %s", o.Name)
	return nil
}

// ForceDisable deactivates a failed output without the connectivity guard.
// Used for the backend-failure path, where the hardware is already gone.
func (r *Registry) ForceDisable(id uint64) {
	o, ok := r.outputs[id]
	if !ok {
		return
	}
	o.Enabled = false
	r.updatePrimary()
	logger.Warnf("Output %s force-disabled after backend failure", o.Name)
}

// SetPosition moves an output within the global layout. Fails with
// DisconnectedLayout when the placement would disconnect the union of
// enabled outputs.
func (r *Registry) SetPosition(id uint64, p geometry.Point) error {
	o, ok := r.outputs[id]
	if !ok {
		return &comperr.BackendFailureError{Output: "?", Op: "set-position", Err: errUnknownOutput(id)}
	}
	prev := o.Position
	o.Position = p
	if o.Enabled && !r.layoutConnected() {
		o.Position = prev
		return &comperr.DisconnectedLayoutError{Output: o.Name}
	}
	if o.Enabled {
		o.AddDamage(o.LogicalBounds())
	}
	r.updatePrimary()
	return nil
}

// SetMode switches an output to one of its advertised modes and caches the
// choice under the output's stable name.
func (r *Registry) SetMode(id uint64, mode Mode) error {
	o, ok := r.outputs[id]
	if !ok {
		return &comperr.BackendFailureError{Output: "?", Op: "set-mode", Err: errUnknownOutput(id)}
	}
	found := false
	for _, m := range o.Modes {
		if m == mode {
			found = true
			break
		}
	}
	if !found {
		return &comperr.BackendFailureError{Output: o.Name, Op: "set-mode", Err: errModeUnavailable(mode)}
	}
	o.Mode = mode
	r.modeCache[o.Name] = mode
	if o.Enabled {
		o.AddDamage(o.LogicalBounds())
	}
	return nil
}

// LayoutBounds returns the bounding rectangle of all enabled outputs.
func (r *Registry) LayoutBounds() geometry.Rect {
	var b geometry.Rect
	for _, o := range r.Enabled() {
		b = b.Union(o.LogicalBounds())
	}
	return b
}

// layoutRightEdge returns the x coordinate just past the rightmost enabled
// output, where an unconfigured hot-plugged output is appended.
func (r *Registry) layoutRightEdge() int {
	edge := 0
	for _, o := range r.outputs {
		if o.Enabled {
			if b := o.LogicalBounds(); b.Max.X > edge {
				edge = b.Max.X
			}
		}
	}
	return edge
}

// layoutConnected checks the union-graph connectivity invariant over the
// enabled outputs.
func (r *Registry) layoutConnected() bool {
	var rects []geometry.Rect
	for _, o := range r.outputs {
		if o.Enabled {
			rects = append(rects, o.LogicalBounds())
		}
	}
	return geometry.Connected(rects)
}

// negotiateMode picks the mode for a freshly added output.
func (r *Registry) negotiateMode(name string, modes []Mode) Mode {
	if len(modes) == 0 {
		return Mode{}
	}
	if pref, ok := config.Get().OutputByName(name); ok && pref.Width > 0 && pref.Height > 0 {
		for _, m := range modes {
			if m.Width == pref.Width && m.Height == pref.Height &&
				(pref.Refresh == 0 || m.RefreshMHz == pref.Refresh) {
				return m
			}
		}
	}
	if cached, ok := r.modeCache[name]; ok {
		for _, m := range modes {
			if m == cached {
				return m
			}
		}
	}
	best := modes[0]
	for _, m := range modes[1:] {
		if m.Width*m.Height > best.Width*best.Height ||
			(m.Width*m.Height == best.Width*best.Height && m.RefreshMHz > best.RefreshMHz) {
			best = m
		}
	}
	return best
}

// updatePrimary designates the enabled output at the layout origin as
// primary, falling back to the first enabled output.
func (r *Registry) updatePrimary() {
	for _, o := range r.outputs {
		o.Primary = false
	}
	enabled := r.Enabled()
	for _, o := range enabled {
		if o.Position == geometry.Pt(0, 0) {
			o.Primary = true
			return
		}
	}
	if len(enabled) > 0 {
		enabled[0].Primary = true
	}
}
