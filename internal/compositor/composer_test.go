package compositor

import (
	"image"
	"image/color"
	stddraw "image/draw"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tfufuu/nova/internal/geometry"
	"github.com/tfufuu/nova/internal/output"
	"github.com/tfufuu/nova/internal/surface"
)

func testOutput(w, h int) *output.Output {
	return &output.Output{
		ID:      1,
		Name:    "TEST-1",
		Mode:    output.Mode{Width: w, Height: h, RefreshMHz: 60000},
		Scale:   1,
		Enabled: true,
	}
}

func solid(w, h int, col color.RGBA) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	stddraw.Draw(img, img.Bounds(), image.NewUniform(col), image.Point{}, stddraw.Src)
	return img
}

var (
	red  = color.RGBA{R: 0xff, A: 0xff}
	blue = color.RGBA{B: 0xff, A: 0xff}
)

func TestComposeSkipsUndamaged(t *testing.T) {
	cp := newComposer()
	o := testOutput(200, 100)
	tbl := surface.NewTable()

	frame, damage := cp.compose(o, tbl, geometry.Pt(500, 500))
	assert.Nil(t, frame)
	assert.Nil(t, damage)
}

func TestComposePaintsBackToFront(t *testing.T) {
	cp := newComposer()
	o := testOutput(200, 100)
	tbl := surface.NewTable()

	back, _ := tbl.Create(surface.RoleTopLevel, surface.None, "c")
	front, _ := tbl.Create(surface.RoleTopLevel, surface.None, "c")
	require.NoError(t, tbl.SetGeometry(back, geometry.XYWH(10, 10, 60, 60)))
	require.NoError(t, tbl.SetGeometry(front, geometry.XYWH(40, 40, 60, 30)))

	bs, _ := tbl.Get(back)
	fs, _ := tbl.Get(front)
	bs.Attach(solid(60, 60, red))
	fs.Attach(solid(60, 30, blue))

	o.AddDamage(o.LogicalBounds())
	frame, damage := cp.compose(o, tbl, geometry.Pt(500, 500))
	require.NotNil(t, frame)
	require.NotEmpty(t, damage)

	assert.Equal(t, red, frame.RGBAAt(20, 20), "back surface alone")
	assert.Equal(t, blue, frame.RGBAAt(50, 50), "the front surface occludes the back one")
	assert.Equal(t, color.RGBA{A: 0xff}, frame.RGBAAt(150, 90), "bare background is black")
}

func TestComposePlaceholderWithoutBuffer(t *testing.T) {
	cp := newComposer()
	o := testOutput(200, 100)
	tbl := surface.NewTable()

	id, _ := tbl.Create(surface.RoleTopLevel, surface.None, "c")
	require.NoError(t, tbl.SetGeometry(id, geometry.XYWH(0, 0, 50, 50)))

	o.AddDamage(o.LogicalBounds())
	frame, _ := cp.compose(o, tbl, geometry.Pt(500, 500))
	require.NotNil(t, frame)

	assert.Equal(t, color.RGBA{R: 0x30, G: 0x30, B: 0x38, A: 0xff}, frame.RGBAAt(25, 25))
}

func TestComposeScalesMismatchedBuffer(t *testing.T) {
	cp := newComposer()
	o := testOutput(200, 100)
	tbl := surface.NewTable()

	// A client renders at half the logical size; the blit scales up.
	id, _ := tbl.Create(surface.RoleTopLevel, surface.None, "c")
	require.NoError(t, tbl.SetGeometry(id, geometry.XYWH(0, 0, 80, 80)))
	s, _ := tbl.Get(id)
	s.Attach(solid(40, 40, red))

	o.AddDamage(o.LogicalBounds())
	frame, _ := cp.compose(o, tbl, geometry.Pt(500, 500))
	require.NotNil(t, frame)

	assert.Equal(t, red, frame.RGBAAt(5, 5))
	assert.Equal(t, red, frame.RGBAAt(75, 75))
}

func TestComposeRepaintsOnlyDamage(t *testing.T) {
	cp := newComposer()
	o := testOutput(200, 100)
	tbl := surface.NewTable()

	id, _ := tbl.Create(surface.RoleTopLevel, surface.None, "c")
	require.NoError(t, tbl.SetGeometry(id, geometry.XYWH(0, 0, 200, 100)))
	s, _ := tbl.Get(id)
	s.Attach(solid(200, 100, red))

	o.AddDamage(o.LogicalBounds())
	frame, _ := cp.compose(o, tbl, geometry.Pt(500, 500))
	require.NotNil(t, frame)
	o.ClearDamage()

	// The client repaints a corner blue but only damages part of it; the
	// retained frame outside the damage keeps the old content.
	s.Attach(solid(200, 100, blue)) // Attach damages the full surface
	s.TakeDamage()                  // drop that damage to isolate the explicit one
	o.AddDamage(geometry.XYWH(0, 0, 50, 50))

	frame, damage := cp.compose(o, tbl, geometry.Pt(500, 500))
	require.NotNil(t, frame)
	assert.Equal(t, []geometry.Rect{geometry.XYWH(0, 0, 50, 50)}, damage)
	assert.Equal(t, blue, frame.RGBAAt(25, 25), "damaged area shows the new buffer")
	assert.Equal(t, red, frame.RGBAAt(150, 50), "undamaged area keeps the prior frame")
}

func TestComposeMinimizedSkipped(t *testing.T) {
	cp := newComposer()
	o := testOutput(200, 100)
	tbl := surface.NewTable()

	id, _ := tbl.Create(surface.RoleTopLevel, surface.None, "c")
	require.NoError(t, tbl.SetGeometry(id, geometry.XYWH(0, 0, 50, 50)))
	s, _ := tbl.Get(id)
	s.Attach(solid(50, 50, red))
	_, err := tbl.SetState(id, surface.StateMinimized)
	require.NoError(t, err)

	o.AddDamage(o.LogicalBounds())
	frame, _ := cp.compose(o, tbl, geometry.Pt(500, 500))
	require.NotNil(t, frame)
	assert.Equal(t, color.RGBA{A: 0xff}, frame.RGBAAt(25, 25), "minimized windows are not composed")
}

func TestComposeCursorOnTop(t *testing.T) {
	cp := newComposer()
	o := testOutput(200, 100)
	tbl := surface.NewTable()

	id, _ := tbl.Create(surface.RoleTopLevel, surface.None, "c")
	require.NoError(t, tbl.SetGeometry(id, geometry.XYWH(0, 0, 200, 100)))
	s, _ := tbl.Get(id)
	s.Attach(solid(200, 100, red))

	o.AddDamage(o.LogicalBounds())
	frame, _ := cp.compose(o, tbl, geometry.Pt(100, 50))
	require.NotNil(t, frame)

	assert.Equal(t, color.RGBA{0xff, 0xff, 0xff, 0xff}, frame.RGBAAt(100, 50))
	assert.Equal(t, red, frame.RGBAAt(100-1, 50-1), "just outside the cursor block")
}

func TestFrameReallocatedOnModeChange(t *testing.T) {
	cp := newComposer()
	o := testOutput(200, 100)
	tbl := surface.NewTable()

	o.AddDamage(o.LogicalBounds())
	frame, _ := cp.compose(o, tbl, geometry.Pt(500, 500))
	require.NotNil(t, frame)
	assert.Equal(t, 200, frame.Bounds().Dx())
	o.ClearDamage()

	o.Mode = output.Mode{Width: 400, Height: 200, RefreshMHz: 60000}
	o.AddDamage(geometry.XYWH(0, 0, 1, 1))
	frame, damage := cp.compose(o, tbl, geometry.Pt(500, 500))
	require.NotNil(t, frame)
	assert.Equal(t, 400, frame.Bounds().Dx())
	assert.NotEmpty(t, damage)
}
