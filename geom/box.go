// Package geom holds the rectangle and label-mask types that flow from the
// label parser through augmentation into the grid encoder.
package geom

import "fmt"

// clipEps keeps clipped coordinates strictly inside the frame, so that a box
// touching the right or bottom edge still maps to a valid grid cell.
const clipEps = 1.1920929e-07

// Box is an axis-aligned rectangle in pixel coordinates of the image it was
// declared against. X1 <= X2 and Y1 <= Y2.
type Box struct {
	X1, Y1, X2, Y2 float64
	Class          string
}

// NewBox returns a Box with its corners ordered.
func NewBox(x1, y1, x2, y2 float64, class string) Box {
	return Box{
		X1:    min(x1, x2),
		Y1:    min(y1, y2),
		X2:    max(x1, x2),
		Y2:    max(y1, y2),
		Class: class,
	}
}

func (b Box) Width() float64  { return b.X2 - b.X1 }
func (b Box) Height() float64 { return b.Y2 - b.Y1 }
func (b Box) Area() float64   { return b.Width() * b.Height() }

// Center returns the centroid of the box.
func (b Box) Center() (x, y float64) {
	return (b.X1 + b.X2) / 2, (b.Y1 + b.Y2) / 2
}

// Scale multiplies x coordinates by sx and y coordinates by sy.
func (b Box) Scale(sx, sy float64) Box {
	return NewBox(b.X1*sx, b.Y1*sy, b.X2*sx, b.Y2*sy, b.Class)
}

// IsOutOfImage reports whether the box has no overlap at all with a
// width x height frame. Boxes that only touch the frame count as inside.
func (b Box) IsOutOfImage(width, height int) bool {
	w := float64(width) - clipEps
	h := float64(height) - clipEps
	return max(b.X1, 0) > min(b.X2, w) || max(b.Y1, 0) > min(b.Y2, h)
}

// Clip clamps the box to the frame [0, width) x [0, height).
func (b Box) Clip(width, height int) Box {
	w := float64(width) - clipEps
	h := float64(height) - clipEps
	return Box{
		X1:    clamp(b.X1, 0, w),
		Y1:    clamp(b.Y1, 0, h),
		X2:    clamp(b.X2, 0, w),
		Y2:    clamp(b.Y2, 0, h),
		Class: b.Class,
	}
}

func (b Box) String() string {
	return fmt.Sprintf("%s(%.2f,%.2f,%.2f,%.2f)", b.Class, b.X1, b.Y1, b.X2, b.Y2)
}

// RemoveOutOfImage drops boxes fully outside the frame, then clips the rest.
// The input slice is not modified.
func RemoveOutOfImage(boxes []Box, width, height int) []Box {
	out := make([]Box, 0, len(boxes))
	for _, b := range boxes {
		if b.IsOutOfImage(width, height) {
			continue
		}
		out = append(out, b.Clip(width, height))
	}
	return out
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
