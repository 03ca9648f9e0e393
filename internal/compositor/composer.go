package compositor

import (
	"image"
	"image/color"
	stddraw "image/draw"

	"golang.org/x/image/draw"

	"github.com/tfufuu/nova/internal/geometry"
	"github.com/tfufuu/nova/internal/output"
	"github.com/tfufuu/nova/internal/surface"
)

const cursorSize = 12

var placeholderFill = image.NewUniform(color.RGBA{R: 0x30, G: 0x30, B: 0x38, A: 0xff})

// composer produces damage-aware frames, one per output per tick. Frames are
// retained across ticks so an idle tick costs nothing and a damaged tick only
// repaints what changed.
type composer struct {
	frames map[uint64]*image.RGBA
}

func newComposer() *composer {
	return &composer{frames: make(map[uint64]*image.RGBA)}
}

// dropFrame releases the retained frame for a removed output.
func (cp *composer) dropFrame(id uint64) {
	delete(cp.frames, id)
}

func (cp *composer) frameFor(o *output.Output) *image.RGBA {
	w, h := o.LogicalSize()
	f, ok := cp.frames[o.ID]
	if !ok || f.Bounds().Dx() != w || f.Bounds().Dy() != h {
		f = image.NewRGBA(image.Rect(0, 0, w, h))
		cp.frames[o.ID] = f
		// A fresh frame needs a full repaint.
		o.AddDamage(o.LogicalBounds())
	}
	return f
}

// compose paints one output. Returns nil when the output has no pending
// damage: the commit is skipped entirely for that tick. Paint order is
// strictly back to front; later paints occlude earlier ones, and the cursor
// goes last, unconditionally on top.
func (cp *composer) compose(o *output.Output, table *surface.Table, cursor geometry.Point) (*image.RGBA, []geometry.Rect) {
	if o.DamageEmpty() {
		return nil, nil
	}
	frame := cp.frameFor(o)
	bounds := o.LogicalBounds()

	damage := make([]geometry.Rect, len(o.Damage().Rects()))
	copy(damage, o.Damage().Rects())

	for _, dmg := range damage {
		local := dmg.Sub(bounds.Min)
		stddraw.Draw(frame, local, image.Black, image.Point{}, stddraw.Src)

		for _, s := range table.VisibleBackToFront() {
			clip := s.Geometry.Intersect(dmg)
			if clip.Empty() {
				continue
			}
			cp.paintSurface(frame, bounds, s, clip)
		}
	}

	cp.paintCursor(frame, bounds, cursor)
	return frame, damage
}

// paintSurface blits the clipped part of a surface into the frame, scaling
// the committed buffer to the surface geometry when sizes differ.
func (cp *composer) paintSurface(frame *image.RGBA, bounds geometry.Rect, s *surface.Surface, clip geometry.Rect) {
	dstClip := clip.Sub(bounds.Min)
	dstGeo := s.Geometry.Sub(bounds.Min)
	dst, ok := frame.SubImage(dstClip).(*image.RGBA)
	if !ok {
		return
	}

	buf := s.Buffer()
	if buf == nil {
		stddraw.Draw(dst, dstClip, placeholderFill, image.Point{}, stddraw.Src)
		return
	}

	if buf.Bounds().Dx() == dstGeo.Dx() && buf.Bounds().Dy() == dstGeo.Dy() {
		src := buf.Bounds().Min.Add(dstClip.Min.Sub(dstGeo.Min))
		stddraw.Draw(dst, dstClip, buf, src, stddraw.Over)
		return
	}
	// Buffer and logical size differ (client rendered at another scale):
	// scale the whole surface into its geometry, clipped by dst.
	draw.NearestNeighbor.Scale(dst, dstGeo, buf, buf.Bounds(), draw.Over, nil)
}

// paintCursor draws the software cursor block on top of everything.
func (cp *composer) paintCursor(frame *image.RGBA, bounds geometry.Rect, cursor geometry.Point) {
	r := cursorRect(cursor).Intersect(bounds).Sub(bounds.Min)
	if r.Empty() {
		return
	}
	stddraw.Draw(frame, r, image.White, image.Point{}, stddraw.Src)
}

// cursorRect is the global rectangle the cursor occupies, used both for
// painting and for damaging cursor movement.
func cursorRect(p geometry.Point) geometry.Rect {
	return geometry.XYWH(p.X, p.Y, cursorSize, cursorSize)
}
