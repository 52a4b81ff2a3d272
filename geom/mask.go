package geom

import "image"

const (
	// Background is the mask label of pixels not covered by any object.
	Background uint8 = 0
	// Foreground is the mask label of pixels covered by at least one object.
	Foreground uint8 = 1
)

// Mask is a dense single-channel label map, one byte per pixel, row-major.
type Mask struct {
	Width  int
	Height int
	Pix    []uint8
}

// NewMask returns an all-background mask.
func NewMask(width, height int) *Mask {
	return &Mask{
		Width:  width,
		Height: height,
		Pix:    make([]uint8, width*height),
	}
}

func (m *Mask) At(x, y int) uint8 {
	return m.Pix[y*m.Width+x]
}

func (m *Mask) Set(x, y int, label uint8) {
	m.Pix[y*m.Width+x] = label
}

// Count returns the number of pixels carrying label.
func (m *Mask) Count(label uint8) int {
	n := 0
	for _, v := range m.Pix {
		if v == label {
			n++
		}
	}
	return n
}

// Gray returns an *image.Gray sharing the mask's pixel buffer, so that
// image/draw style resamplers can read and write labels directly.
func (m *Mask) Gray() *image.Gray {
	return &image.Gray{
		Pix:    m.Pix,
		Stride: m.Width,
		Rect:   image.Rect(0, 0, m.Width, m.Height),
	}
}
