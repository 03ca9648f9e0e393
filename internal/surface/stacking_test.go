package surface

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStackingInsertAbove(t *testing.T) {
	var st Stacking
	st.Insert(BandNormal, 1)
	st.Insert(BandNormal, 2)

	st.InsertAbove(BandNormal, 3, 1)
	assert.Equal(t, []ID{1, 3, 2}, st.Band(BandNormal))

	// A missing anchor falls back to the front of the band.
	st.InsertAbove(BandNormal, 4, 99)
	assert.Equal(t, []ID{1, 3, 2, 4}, st.Band(BandNormal))
}

func TestStackingRaiseLower(t *testing.T) {
	var st Stacking
	for _, id := range []ID{1, 2, 3} {
		st.Insert(BandNormal, id)
	}

	st.Raise(1)
	assert.Equal(t, []ID{2, 3, 1}, st.Band(BandNormal))

	st.Lower(3)
	assert.Equal(t, []ID{3, 2, 1}, st.Band(BandNormal))

	// Unknown ids are ignored.
	st.Raise(42)
	st.Lower(42)
	assert.Equal(t, []ID{3, 2, 1}, st.Band(BandNormal))
}

func TestStackingFrontToBack(t *testing.T) {
	var st Stacking
	st.Insert(BandBackground, 10)
	st.Insert(BandNormal, 20)
	st.Insert(BandNormal, 21)
	st.Insert(BandOverlay, 30)

	assert.Equal(t, []ID{10, 20, 21, 30}, st.BackToFront())
	assert.Equal(t, []ID{30, 21, 20, 10}, st.FrontToBack())
	assert.Equal(t, 4, st.Len())
}

func TestStackingRemoveAndMove(t *testing.T) {
	var st Stacking
	st.Insert(BandNormal, 1)
	st.Insert(BandNormal, 2)

	st.MoveToBand(1, BandAlwaysOnTop)
	assert.Equal(t, []ID{2}, st.Band(BandNormal))
	assert.Equal(t, []ID{1}, st.Band(BandAlwaysOnTop))

	st.Remove(1)
	st.Remove(2)
	assert.Equal(t, 0, st.Len())
}
