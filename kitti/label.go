package kitti

import (
	"errors"
	"fmt"
	"image"
	"image/draw"
	"io/fs"
	"math"
	"os"

	"github.com/fogleman/gg"

	"github.com/Noofbiz/mobiledetect/errs"
	"github.com/Noofbiz/mobiledetect/geom"
)

// Scale is the ratio of post-resize to pre-resize image dimensions.
type Scale struct {
	Height float64
	Width  float64
}

// Label is the content of one label file mapped onto the working image.
type Label struct {
	Records []Record
	// Boxes are rescaled to the working image, in record order.
	Boxes []geom.Box
	// Mask is sized to the working image.
	Mask *geom.Mask
}

// LoadLabel reads the label file at path and maps it onto a working image of
// width x height pixels. Coordinates in the file are multiplied by scale.
//
// A missing file fails with errs.ErrNotFound, a malformed one with
// errs.ErrFormat. An empty file yields no boxes and an all-background mask.
func LoadLabel(path string, width, height int, scale Scale) (*Label, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: label file %s", errs.ErrNotFound, path)
		}
		return nil, fmt.Errorf("failed to open label file %s: %w", path, err)
	}
	defer f.Close()

	records, err := ParseLabels(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	boxes := make([]geom.Box, len(records))
	for i, rec := range records {
		boxes[i] = rec.Box.Scale(scale.Width, scale.Height)
	}

	return &Label{
		Records: records,
		Boxes:   boxes,
		Mask:    Rasterize(boxes, width, height),
	}, nil
}

// Rasterize fills every box into a width x height RGB canvas and collapses
// the canvas to a label map by per-pixel argmax over the channels. Objects
// are drawn in the green channel, so covered pixels get geom.Foreground and
// untouched pixels tie at zero and resolve to geom.Background.
//
// Edges are snapped to pixel boundaries first: a pixel is covered iff its
// centre lies in [X1, X2) x [Y1, Y2), so the fill has no partly covered
// perimeter.
func Rasterize(boxes []geom.Box, width, height int) *geom.Mask {
	dc := gg.NewContext(width, height)
	dc.SetRGB(0, 1, 0)
	for _, b := range boxes {
		x1, x2 := snap(b.X1, width), snap(b.X2, width)
		y1, y2 := snap(b.Y1, height), snap(b.Y2, height)
		if x1 >= x2 || y1 >= y2 {
			continue
		}
		dc.MoveTo(x1, y1)
		dc.LineTo(x1, y2)
		dc.LineTo(x2, y2)
		dc.LineTo(x2, y1)
		dc.ClosePath()
		dc.Fill()
	}
	return argmax(toRGBA(dc.Image()))
}

// snap moves an edge to the first pixel boundary whose pixel centre is at or
// past v, clamped to [0, size]. Non-finite edges collapse to 0.
func snap(v float64, size int) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return min(max(math.Ceil(v-0.5), 0), float64(size))
}

func argmax(img *image.RGBA) *geom.Mask {
	b := img.Bounds()
	m := geom.NewMask(b.Dx(), b.Dy())
	for y := 0; y < m.Height; y++ {
		for x := 0; x < m.Width; x++ {
			off := img.PixOffset(b.Min.X+x, b.Min.Y+y)
			px := img.Pix[off : off+3]
			best := 0
			for c := 1; c < 3; c++ {
				if px[c] > px[best] {
					best = c
				}
			}
			m.Set(x, y, uint8(best))
		}
	}
	return m
}

func toRGBA(img image.Image) *image.RGBA {
	if rgba, ok := img.(*image.RGBA); ok {
		return rgba
	}
	rgba := image.NewRGBA(img.Bounds())
	draw.Draw(rgba, rgba.Bounds(), img, img.Bounds().Min, draw.Src)
	return rgba
}
