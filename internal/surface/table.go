package surface

import (
	"sort"

	"github.com/tfufuu/nova/internal/comperr"
	"github.com/tfufuu/nova/internal/geometry"
	"github.com/tfufuu/nova/internal/logger"
)

// Table is the authoritative surface arena. Owned by the compositor core
// thread; not safe for concurrent use. All mutations are all-or-nothing:
// a returned error means no state changed.
type Table struct {
	surfaces map[ID]*Surface
	nextID   ID
	stacking Stacking
}

// NewTable creates an empty surface table.
func NewTable() *Table {
	return &Table{
		surfaces: make(map[ID]*Surface),
		nextID:   1,
	}
}

// bandFor maps a surface to its stacking band.
func bandFor(s *Surface) Band {
	switch {
	case s.Role == RoleBackgroundLayer:
		return BandBackground
	case s.Role == RoleOverlayLayer:
		return BandOverlay
	case s.AlwaysOnTop:
		return BandAlwaysOnTop
	default:
		return BandNormal
	}
}

// Create allocates a surface with the given role. A popup must name an
// existing parent; any parent given for other roles must exist too (no
// forward references). The new surface enters the front of its band; a popup
// stacks directly above its parent.
func (t *Table) Create(role Role, parent ID, client string) (ID, error) {
	if role == RolePopup && parent == None {
		return None, &comperr.InvalidRoleError{Role: role.String(), Reason: "popup requires a parent"}
	}
	if parent != None {
		if _, ok := t.surfaces[parent]; !ok {
			return None, &comperr.InvalidRoleError{Role: role.String(), Reason: "parent does not exist"}
		}
	}

	s := &Surface{
		ID:     t.nextID,
		Role:   role,
		Parent: parent,
		Client: client,
	}
	t.nextID++
	t.surfaces[s.ID] = s

	if role == RolePopup {
		// A popup paints above its parent subtree inside the parent's band.
		t.stacking.InsertAbove(bandFor(t.surfaces[parent]), s.ID, t.frontmostInTree(parent))
	} else {
		t.stacking.Insert(bandFor(s), s.ID)
	}

	logger.Debugf("Table.Create: %s id=%d parent=%d", role, s.ID, parent)
	return s.ID, nil
}

// Get returns a surface by id.
func (t *Table) Get(id ID) (*Surface, bool) {
	s, ok := t.surfaces[id]
	return s, ok
}

// Len returns the number of live surfaces.
func (t *Table) Len() int {
	return len(t.surfaces)
}

// SetGeometry moves or resizes a surface, damaging both the vacated and the
// newly covered regions.
func (t *Table) SetGeometry(id ID, r geometry.Rect) error {
	s, ok := t.surfaces[id]
	if !ok {
		return &comperr.UnknownSurfaceError{ID: uint64(id)}
	}
	if s.Geometry == r {
		return nil
	}
	s.Geometry = r
	s.damage.Add(geometry.XYWH(0, 0, r.Dx(), r.Dy()))
	return nil
}

// SetState applies a window state. Idempotent: re-applying the current state
// reports no change, and the caller emits no notification for it.
func (t *Table) SetState(id ID, state WindowState) (changed bool, err error) {
	s, ok := t.surfaces[id]
	if !ok {
		return false, &comperr.UnknownSurfaceError{ID: uint64(id)}
	}
	if s.State == state {
		return false, nil
	}
	s.State = state
	s.damage.Add(geometry.XYWH(0, 0, s.Geometry.Dx(), s.Geometry.Dy()))
	return true, nil
}

// SetTitle updates the surface title, reporting whether it changed.
func (t *Table) SetTitle(id ID, title string) (changed bool, err error) {
	s, ok := t.surfaces[id]
	if !ok {
		return false, &comperr.UnknownSurfaceError{ID: uint64(id)}
	}
	if s.Title == title {
		return false, nil
	}
	s.Title = title
	return true, nil
}

// SetAppID updates the surface application identifier.
func (t *Table) SetAppID(id ID, appID string) error {
	s, ok := t.surfaces[id]
	if !ok {
		return &comperr.UnknownSurfaceError{ID: uint64(id)}
	}
	s.AppID = appID
	return nil
}

// SetDecoration selects client or server drawn decorations for a surface.
func (t *Table) SetDecoration(id ID, d Decoration) error {
	s, ok := t.surfaces[id]
	if !ok {
		return &comperr.UnknownSurfaceError{ID: uint64(id)}
	}
	s.Decoration = d
	return nil
}

// SetAlwaysOnTop moves a top-level surface between the normal and
// always-on-top bands. The popup subtree moves with it, relative order
// preserved, so the window never paints above its own popups.
func (t *Table) SetAlwaysOnTop(id ID, on bool) error {
	s, ok := t.surfaces[id]
	if !ok {
		return &comperr.UnknownSurfaceError{ID: uint64(id)}
	}
	if s.Role != RoleTopLevel || s.AlwaysOnTop == on {
		return nil
	}
	s.AlwaysOnTop = on
	for _, member := range t.treeBackToFront(id) {
		t.stacking.MoveToBand(member, bandFor(s))
	}
	return nil
}

// Raise brings a surface and its popup subtree to the front of its band,
// preserving the subtree's relative order so popups stay above their parent.
// Raising a tiled window is a no-op within the normal band: tiled order
// stays deterministic.
func (t *Table) Raise(id ID) error {
	s, ok := t.surfaces[id]
	if !ok {
		return &comperr.UnknownSurfaceError{ID: uint64(id)}
	}
	if bandFor(s) == BandNormal && s.State != StateFloating && s.State != StateMaximized && s.State != StateFullscreen {
		return nil
	}
	for _, member := range t.treeBackToFront(id) {
		t.stacking.Raise(member)
		if ms := t.surfaces[member]; ms != nil {
			ms.damage.Add(geometry.XYWH(0, 0, ms.Geometry.Dx(), ms.Geometry.Dy()))
		}
	}
	return nil
}

// treeBackToFront returns root and its descendants in current stacking
// order, rearmost first.
func (t *Table) treeBackToFront(root ID) []ID {
	var out []ID
	for _, id := range t.stacking.BackToFront() {
		if t.InTree(root, id) {
			out = append(out, id)
		}
	}
	return out
}

// Lower sends a surface to the back of its band.
func (t *Table) Lower(id ID) error {
	if _, ok := t.surfaces[id]; !ok {
		return &comperr.UnknownSurfaceError{ID: uint64(id)}
	}
	t.stacking.Lower(id)
	return nil
}

// Destroy removes a surface and, recursively, every surface parented to it.
// It returns the destroyed ids, children before parents, so callers can emit
// closed notifications in teardown order. Focus cleanup is the seat's
// responsibility, driven from the returned set.
func (t *Table) Destroy(id ID) ([]ID, error) {
	if _, ok := t.surfaces[id]; !ok {
		return nil, &comperr.UnknownSurfaceError{ID: uint64(id)}
	}
	var destroyed []ID
	t.destroyTree(id, &destroyed)
	logger.Debugf("Table.Destroy: id=%d cascade=%d", id, len(destroyed))
	return destroyed, nil
}

func (t *Table) destroyTree(id ID, destroyed *[]ID) {
	for _, child := range t.childrenOf(id) {
		t.destroyTree(child, destroyed)
	}
	t.stacking.Remove(id)
	delete(t.surfaces, id)
	*destroyed = append(*destroyed, id)
}

// DestroyClient removes every surface owned by a client connection, root
// surfaces first so cascades stay within the table.
func (t *Table) DestroyClient(client string) []ID {
	var roots []ID
	for id, s := range t.surfaces {
		if s.Client == client && (s.Parent == None || t.ownerOf(s.Parent) != client) {
			roots = append(roots, id)
		}
	}
	sort.Slice(roots, func(i, j int) bool { return roots[i] < roots[j] })

	var destroyed []ID
	for _, id := range roots {
		if _, ok := t.surfaces[id]; !ok {
			continue
		}
		ids, _ := t.Destroy(id)
		destroyed = append(destroyed, ids...)
	}
	return destroyed
}

func (t *Table) ownerOf(id ID) string {
	if s, ok := t.surfaces[id]; ok {
		return s.Client
	}
	return ""
}

func (t *Table) childrenOf(id ID) []ID {
	var out []ID
	for cid, s := range t.surfaces {
		if s.Parent == id {
			out = append(out, cid)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// TopLevelAncestor walks parent references up to the first non-popup
// surface. Keyboard focus lands there: popups never hold keyboard focus.
func (t *Table) TopLevelAncestor(id ID) ID {
	for {
		s, ok := t.surfaces[id]
		if !ok {
			return None
		}
		if s.Role != RolePopup || s.Parent == None {
			return id
		}
		id = s.Parent
	}
}

// InTree reports whether id is root or a descendant of root.
func (t *Table) InTree(root, id ID) bool {
	for id != None {
		if id == root {
			return true
		}
		s, ok := t.surfaces[id]
		if !ok {
			return false
		}
		id = s.Parent
	}
	return false
}

// frontmostInTree returns the frontmost stacked surface belonging to root's
// tree, used to stack new popups above existing siblings.
func (t *Table) frontmostInTree(root ID) ID {
	for _, id := range t.stacking.FrontToBack() {
		if t.InTree(root, id) {
			return id
		}
	}
	return root
}

// TopmostAt returns the frontmost visible surface containing the point,
// honoring band precedence and in-band order. Front wins on overlap.
func (t *Table) TopmostAt(p geometry.Point) ID {
	for _, id := range t.stacking.FrontToBack() {
		s := t.surfaces[id]
		if s.Visible() && geometry.Contains(s.Geometry, p) {
			return id
		}
	}
	return None
}

// VisibleBackToFront returns the surfaces the composer paints, rear first.
func (t *Table) VisibleBackToFront() []*Surface {
	var out []*Surface
	for _, id := range t.stacking.BackToFront() {
		if s := t.surfaces[id]; s.Visible() {
			out = append(out, s)
		}
	}
	return out
}

// Stacking exposes the raw stacking order for explicit restack requests.
func (t *Table) Stacking() *Stacking {
	return &t.stacking
}

// All returns every surface sorted by id, for the control surface listing.
func (t *Table) All() []*Surface {
	out := make([]*Surface, 0, len(t.surfaces))
	for _, s := range t.surfaces {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
