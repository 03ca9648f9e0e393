// Package output tracks physical display sinks: their modes, transforms,
// scale factors and placement in the global layout, plus the pending damage
// the composer consumes each tick.
package output

import (
	"fmt"

	"github.com/tfufuu/nova/internal/geometry"
)

// Mode is one resolution and refresh rate an output can drive.
type Mode struct {
	Width      int
	Height     int
	RefreshMHz int // Millihertz, e.g. 59940 for 59.94Hz
}

func (m Mode) String() string {
	return fmt.Sprintf("%dx%d@%d.%03d", m.Width, m.Height, m.RefreshMHz/1000, m.RefreshMHz%1000)
}

// Transform is the rotation/flip applied to an output's content.
type Transform int

const (
	TransformNormal Transform = iota
	Transform90
	Transform180
	Transform270
	TransformFlipped
	TransformFlipped90
	TransformFlipped180
	TransformFlipped270
)

// swapsAxes reports whether the transform exchanges width and height.
func (t Transform) swapsAxes() bool {
	switch t {
	case Transform90, Transform270, TransformFlipped90, TransformFlipped270:
		return true
	}
	return false
}

func (t Transform) String() string {
	switch t {
	case TransformNormal:
		return "normal"
	case Transform90:
		return "90"
	case Transform180:
		return "180"
	case Transform270:
		return "270"
	case TransformFlipped:
		return "flipped"
	case TransformFlipped90:
		return "flipped-90"
	case TransformFlipped180:
		return "flipped-180"
	case TransformFlipped270:
		return "flipped-270"
	default:
		return "unknown"
	}
}

// ParseTransform maps a config string to a Transform. Unrecognized values
// fall back to normal.
func ParseTransform(s string) Transform {
	switch s {
	case "90":
		return Transform90
	case "180":
		return Transform180
	case "270":
		return Transform270
	case "flipped":
		return TransformFlipped
	case "flipped-90":
		return TransformFlipped90
	case "flipped-180":
		return TransformFlipped180
	case "flipped-270":
		return TransformFlipped270
	default:
		return TransformNormal
	}
}

// Output represents one physical or virtual display sink.
type Output struct {
	ID        uint64
	Name      string // Stable connector name, e.g. "DP-1"
	Modes     []Mode
	Mode      Mode
	Transform Transform
	Scale     float64
	Position  geometry.Point
	Enabled   bool
	Primary   bool

	damage geometry.Region
}

// LogicalSize returns the output's size in logical pixels: the mode size
// divided by scale, axes swapped for rotated transforms.
func (o *Output) LogicalSize() (w, h int) {
	scale := o.Scale
	if scale <= 0 {
		scale = 1
	}
	w = int(float64(o.Mode.Width) / scale)
	h = int(float64(o.Mode.Height) / scale)
	if o.Transform.swapsAxes() {
		w, h = h, w
	}
	return w, h
}

// LogicalBounds returns the output's rectangle in the global layout.
func (o *Output) LogicalBounds() geometry.Rect {
	w, h := o.LogicalSize()
	return geometry.XYWH(o.Position.X, o.Position.Y, w, h)
}

// Contains reports whether a global point falls on this output.
func (o *Output) Contains(p geometry.Point) bool {
	return o.Enabled && geometry.Contains(o.LogicalBounds(), p)
}

// AddDamage marks a region of the output as needing repaint. The rectangle is
// in global logical coordinates and is clipped to the output.
func (o *Output) AddDamage(r geometry.Rect) {
	clipped := r.Intersect(o.LogicalBounds())
	o.damage.Add(clipped)
}

// DamageEmpty reports whether the output has no pending damage.
func (o *Output) DamageEmpty() bool {
	return o.damage.Empty()
}

// Damage returns the pending damage region.
func (o *Output) Damage() *geometry.Region {
	return &o.damage
}

// ClearDamage resets pending damage after a presented frame.
func (o *Output) ClearDamage() {
	o.damage.Clear()
}
