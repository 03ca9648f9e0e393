package surface

// Band is one of the fixed stacking layers, in back-to-front precedence.
type Band int

const (
	BandBackground Band = iota
	BandNormal
	BandAlwaysOnTop
	BandOverlay
	bandCount
)

func (b Band) String() string {
	switch b {
	case BandBackground:
		return "background"
	case BandNormal:
		return "normal"
	case BandAlwaysOnTop:
		return "always-on-top"
	case BandOverlay:
		return "overlay"
	default:
		return "unknown"
	}
}

// Stacking is the back-to-front paint and occlusion order, partitioned into
// four bands. Within each band the last element is frontmost.
type Stacking struct {
	bands [bandCount][]ID
}

// Insert places id at the front of its band.
func (st *Stacking) Insert(band Band, id ID) {
	st.bands[band] = append(st.bands[band], id)
}

// InsertAbove places id directly in front of anchor within band. If anchor is
// absent the id goes to the front of the band.
func (st *Stacking) InsertAbove(band Band, id, anchor ID) {
	ids := st.bands[band]
	for i, have := range ids {
		if have == anchor {
			ids = append(ids, None)
			copy(ids[i+2:], ids[i+1:])
			ids[i+1] = id
			st.bands[band] = ids
			return
		}
	}
	st.Insert(band, id)
}

// Remove deletes id from whatever band holds it.
func (st *Stacking) Remove(id ID) {
	for b := range st.bands {
		for i, have := range st.bands[b] {
			if have == id {
				st.bands[b] = append(st.bands[b][:i], st.bands[b][i+1:]...)
				return
			}
		}
	}
}

// Raise moves id to the front of its band.
func (st *Stacking) Raise(id ID) {
	for b := range st.bands {
		for i, have := range st.bands[b] {
			if have == id {
				st.bands[b] = append(append(st.bands[b][:i:i], st.bands[b][i+1:]...), id)
				return
			}
		}
	}
}

// Lower moves id to the back of its band.
func (st *Stacking) Lower(id ID) {
	for b := range st.bands {
		for i, have := range st.bands[b] {
			if have == id {
				rest := append(st.bands[b][:i:i], st.bands[b][i+1:]...)
				st.bands[b] = append([]ID{id}, rest...)
				return
			}
		}
	}
}

// MoveToBand relocates id to the front of a different band.
func (st *Stacking) MoveToBand(id ID, band Band) {
	st.Remove(id)
	st.Insert(band, id)
}

// BackToFront returns the full paint order, rear band first.
func (st *Stacking) BackToFront() []ID {
	var out []ID
	for b := Band(0); b < bandCount; b++ {
		out = append(out, st.bands[b]...)
	}
	return out
}

// FrontToBack returns the hit-test order, frontmost surface first.
func (st *Stacking) FrontToBack() []ID {
	btf := st.BackToFront()
	out := make([]ID, len(btf))
	for i, id := range btf {
		out[len(btf)-1-i] = id
	}
	return out
}

// Band returns the ids of a single band, back to front.
func (st *Stacking) Band(band Band) []ID {
	return st.bands[band]
}

// Len returns the total number of stacked surfaces.
func (st *Stacking) Len() int {
	n := 0
	for b := range st.bands {
		n += len(st.bands[b])
	}
	return n
}
