// Package geometry provides the logical-pixel coordinate types shared by the
// output layout, the surface table and the frame composer.
package geometry

import "image"

// Point is a position in the global logical coordinate space.
type Point = image.Point

// Rect is an axis-aligned rectangle in the global logical coordinate space.
// The zero Rect is empty.
type Rect = image.Rectangle

// Pt constructs a Point.
func Pt(x, y int) Point {
	return image.Pt(x, y)
}

// XYWH constructs a Rect from a position and a size.
func XYWH(x, y, w, h int) Rect {
	return image.Rect(x, y, x+w, y+h)
}

// Contains reports whether p lies inside r.
func Contains(r Rect, p Point) bool {
	return p.In(r)
}

// Adjacent reports whether the two rectangles overlap or share any part of an
// edge. Corner-only contact does not count: a desktop layout joined at a single
// point is not traversable by the cursor.
func Adjacent(a, b Rect) bool {
	if a.Overlaps(b) {
		return true
	}
	// Share a vertical edge with overlapping Y spans.
	if (a.Max.X == b.Min.X || b.Max.X == a.Min.X) && a.Min.Y < b.Max.Y && b.Min.Y < a.Max.Y {
		return true
	}
	// Share a horizontal edge with overlapping X spans.
	if (a.Max.Y == b.Min.Y || b.Max.Y == a.Min.Y) && a.Min.X < b.Max.X && b.Min.X < a.Max.X {
		return true
	}
	return false
}

// Connected reports whether the rectangles form a single connected layout under
// the Adjacent relation. An empty set is connected; empty rectangles are ignored.
func Connected(rects []Rect) bool {
	nodes := make([]Rect, 0, len(rects))
	for _, r := range rects {
		if !r.Empty() {
			nodes = append(nodes, r)
		}
	}
	if len(nodes) <= 1 {
		return true
	}

	visited := make([]bool, len(nodes))
	stack := []int{0}
	visited[0] = true
	seen := 1
	for len(stack) > 0 {
		i := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for j := range nodes {
			if !visited[j] && Adjacent(nodes[i], nodes[j]) {
				visited[j] = true
				seen++
				stack = append(stack, j)
			}
		}
	}
	return seen == len(nodes)
}
