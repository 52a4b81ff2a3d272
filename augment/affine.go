package augment

import (
	"image"
	"image/color"

	"golang.org/x/image/draw"
	"golang.org/x/image/math/f64"

	"github.com/Noofbiz/mobiledetect/geom"
)

// Affine maps source pixel coordinates to destination pixel coordinates:
//
//	x' = m[0]*x + m[1]*y + m[2]
//	y' = m[3]*x + m[4]*y + m[5]
//
// Coordinates are continuous, pixel i covers [i, i+1).
type Affine f64.Aff3

func identity() Affine {
	return Affine{1, 0, 0, 0, 1, 0}
}

// then returns the transform that applies a first and b second.
func (a Affine) then(b Affine) Affine {
	return Affine{
		b[0]*a[0] + b[1]*a[3],
		b[0]*a[1] + b[1]*a[4],
		b[0]*a[2] + b[1]*a[5] + b[2],
		b[3]*a[0] + b[4]*a[3],
		b[3]*a[1] + b[4]*a[4],
		b[3]*a[2] + b[4]*a[5] + b[5],
	}
}

// Apply maps the point (x, y).
func (a Affine) Apply(x, y float64) (float64, float64) {
	return a[0]*x + a[1]*y + a[2], a[3]*x + a[4]*y + a[5]
}

func flipHorizontal(width int) Affine {
	return Affine{-1, 0, float64(width), 0, 1, 0}
}

// cropAndPad pads every edge by px pixels and scales the padded frame back
// to width x height.
func cropAndPad(px float64, width, height int) Affine {
	sx := float64(width) / (float64(width) + 2*px)
	sy := float64(height) / (float64(height) + 2*px)
	return Affine{sx, 0, px * sx, 0, sy, px * sy}
}

func translate(dx, dy float64) Affine {
	return Affine{1, 0, dx, 0, 1, dy}
}

// scaleAbout scales by (sx, sy) around the point (cx, cy).
func scaleAbout(sx, sy, cx, cy float64) Affine {
	return Affine{sx, 0, cx - sx*cx, 0, sy, cy - sy*cy}
}

// warpImage resamples src through a bilinearly. Pixels mapped from outside
// src are opaque black.
func warpImage(src *image.RGBA, a Affine, width, height int) *image.RGBA {
	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.Draw(dst, dst.Bounds(), image.NewUniform(color.Black), image.Point{}, draw.Src)
	draw.BiLinear.Transform(dst, f64.Aff3(a), src, src.Bounds(), draw.Src, nil)
	return dst
}

// warpMask resamples labels through a with nearest-neighbour sampling, so
// no label value is invented. Pixels mapped from outside src are background.
func warpMask(src *geom.Mask, a Affine, width, height int) *geom.Mask {
	dst := geom.NewMask(width, height)
	draw.NearestNeighbor.Transform(dst.Gray(), f64.Aff3(a), src.Gray(), src.Gray().Bounds(), draw.Src, nil)
	return dst
}

// warpBoxes maps each box's corners and takes their bounding rectangle.
func warpBoxes(boxes []geom.Box, a Affine) []geom.Box {
	out := make([]geom.Box, len(boxes))
	for i, b := range boxes {
		xs := [4]float64{}
		ys := [4]float64{}
		xs[0], ys[0] = a.Apply(b.X1, b.Y1)
		xs[1], ys[1] = a.Apply(b.X2, b.Y1)
		xs[2], ys[2] = a.Apply(b.X2, b.Y2)
		xs[3], ys[3] = a.Apply(b.X1, b.Y2)
		out[i] = geom.Box{
			X1:    min(xs[0], xs[1], xs[2], xs[3]),
			Y1:    min(ys[0], ys[1], ys[2], ys[3]),
			X2:    max(xs[0], xs[1], xs[2], xs[3]),
			Y2:    max(ys[0], ys[1], ys[2], ys[3]),
			Class: b.Class,
		}
	}
	return out
}
