package geometry

// Region accumulates damage as a set of rectangles. It deliberately does not
// maintain a minimal decomposition: the composer only needs the bounding
// union and per-rect intersection tests, and hardware damage hints tolerate
// overlap.
type Region struct {
	rects []Rect
}

// Add unions r into the region. Empty rectangles are ignored; a rectangle
// already covered by an existing one is dropped.
func (g *Region) Add(r Rect) {
	if r.Empty() {
		return
	}
	for i, have := range g.rects {
		if r.In(have) {
			return
		}
		if have.In(r) {
			g.rects[i] = r
			return
		}
	}
	g.rects = append(g.rects, r)
}

// AddRegion unions every rectangle of other into g.
func (g *Region) AddRegion(other *Region) {
	for _, r := range other.rects {
		g.Add(r)
	}
}

// Empty reports whether the region covers nothing.
func (g *Region) Empty() bool {
	return len(g.rects) == 0
}

// Bounds returns the bounding rectangle of the region.
func (g *Region) Bounds() Rect {
	var b Rect
	for _, r := range g.rects {
		b = b.Union(r)
	}
	return b
}

// Intersects reports whether any part of the region overlaps r.
func (g *Region) Intersects(r Rect) bool {
	for _, have := range g.rects {
		if have.Overlaps(r) {
			return true
		}
	}
	return false
}

// Rects returns the accumulated rectangles. The slice is owned by the region
// and is invalidated by the next Add or Clear.
func (g *Region) Rects() []Rect {
	return g.rects
}

// Clear empties the region, retaining capacity.
func (g *Region) Clear() {
	g.rects = g.rects[:0]
}
