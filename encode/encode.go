// Package encode turns an augmented sample (boxes plus object mask) into the
// three fixed-shape training targets of a grid detector:
//
//   - coverage: (coverageH, coverageW), fraction of each cell covered by
//     foreground, from area-averaging the mask;
//   - boxes: (gridH, gridW, 4), the box that most fully fills each cell,
//     normalized to [0,1] image fractions;
//   - centers: (gridH, gridW, 4), each box written into the one cell holding
//     its centroid.
package encode

import (
	"fmt"
	"math"

	"github.com/Noofbiz/mobiledetect/errs"
	"github.com/Noofbiz/mobiledetect/geom"
)

// ClaimThreshold is the minimum fraction of a cell a box must cover to claim
// the cell in the box grid.
const ClaimThreshold = 0.75

// BoxChannels is the number of values stored per box-grid cell:
// x1, y1, x2, y2.
const BoxChannels = 4

// Shape is a 2-D size in rows and columns.
type Shape struct {
	Height int
	Width  int
}

// Cells returns Height*Width.
func (s Shape) Cells() int {
	return s.Height * s.Width
}

func (s Shape) String() string {
	return fmt.Sprintf("%dx%d", s.Height, s.Width)
}

func (s Shape) validate(name string) error {
	if s.Height <= 0 || s.Width <= 0 {
		return fmt.Errorf("%w: %s shape %v must be positive", errs.ErrInvalidArgument, name, s)
	}
	return nil
}

// Encoder holds the image and grid geometry shared by every sample of a
// dataset. It is immutable and safe for concurrent use.
type Encoder struct {
	image    Shape
	coverage Shape
	grid     Shape
}

// New returns an encoder for working images of shape image, a coverage grid
// of shape coverage and box grids of shape grid.
func New(image, coverage, grid Shape) (*Encoder, error) {
	if err := image.validate("image"); err != nil {
		return nil, err
	}
	if err := coverage.validate("coverage grid"); err != nil {
		return nil, err
	}
	if err := grid.validate("box grid"); err != nil {
		return nil, err
	}
	return &Encoder{image: image, coverage: coverage, grid: grid}, nil
}

func (e *Encoder) Image() Shape    { return e.image }
func (e *Encoder) Coverage() Shape { return e.coverage }
func (e *Encoder) Grid() Shape     { return e.grid }

// Targets holds one sample's encoded outputs as flat row-major buffers.
type Targets struct {
	Coverage []float32
	Boxes    []float32
	Centers  []float32
}

// NewTargets allocates zeroed buffers of the encoder's shapes.
func (e *Encoder) NewTargets() *Targets {
	return &Targets{
		Coverage: make([]float32, e.coverage.Cells()),
		Boxes:    make([]float32, e.grid.Cells()*BoxChannels),
		Centers:  make([]float32, e.grid.Cells()*BoxChannels),
	}
}

// Encode builds fresh targets for one sample.
func (e *Encoder) Encode(boxes []geom.Box, mask *geom.Mask) (*Targets, error) {
	t := e.NewTargets()
	if err := e.EncodeInto(t, boxes, mask); err != nil {
		return nil, err
	}
	return t, nil
}

// EncodeInto writes one sample's targets into t, whose buffers must be
// zeroed and sized as by NewTargets.
func (e *Encoder) EncodeInto(t *Targets, boxes []geom.Box, mask *geom.Mask) error {
	if err := e.CoverageInto(t.Coverage, mask); err != nil {
		return err
	}
	if err := e.BoxesInto(t.Boxes, boxes); err != nil {
		return err
	}
	return e.CentersInto(t.Centers, boxes)
}

// CoverageInto area-averages mask down to the coverage grid. Each output
// cell is the foreground fraction of the mask region it covers.
func (e *Encoder) CoverageInto(dst []float32, mask *geom.Mask) error {
	if len(dst) != e.coverage.Cells() {
		return fmt.Errorf("%w: coverage buffer has %d values, want %d", errs.ErrInvariant, len(dst), e.coverage.Cells())
	}
	if mask == nil || mask.Width <= 0 || mask.Height <= 0 {
		return fmt.Errorf("%w: empty mask", errs.ErrInvariant)
	}
	cols := areaWeights(mask.Width, e.coverage.Width)
	rows := areaWeights(mask.Height, e.coverage.Height)
	for cy, ry := range rows {
		for cx, rx := range cols {
			var covered, total float64
			for _, wy := range ry {
				for _, wx := range rx {
					w := wy.weight * wx.weight
					total += w
					if mask.At(wx.index, wy.index) == geom.Foreground {
						covered += w
					}
				}
			}
			if total > 0 {
				dst[cy*e.coverage.Width+cx] = float32(covered / total)
			}
		}
	}
	return nil
}

// BoxesInto runs the overlap-claim scan over the box grid.
//
// For every box, each grid cell it touches gets area_in, the fraction of
// the unit cell the box covers. The box claims the cell iff
// area_in >= ClaimThreshold and area_in is strictly greater than the best
// claim recorded there so far, so among equally strong claims the earliest
// box keeps the cell. Claim strengths live in a scratch buffer that is
// never part of dst.
func (e *Encoder) BoxesInto(dst []float32, boxes []geom.Box) error {
	if len(dst) != e.grid.Cells()*BoxChannels {
		return fmt.Errorf("%w: box buffer has %d values, want %d", errs.ErrInvariant, len(dst), e.grid.Cells()*BoxChannels)
	}
	gw, gh := float64(e.grid.Width), float64(e.grid.Height)
	iw, ih := float64(e.image.Width), float64(e.image.Height)
	claims := make([]float64, e.grid.Cells())

	for _, b := range boxes {
		if err := e.checkBox(b); err != nil {
			return err
		}
		bx1, bx2 := gw*b.X1/iw, gw*b.X2/iw
		by1, by2 := gh*b.Y1/ih, gh*b.Y2/ih

		x0, x1 := max(0, int(math.Floor(bx1))), min(e.grid.Width-1, int(math.Ceil(bx2)))
		y0, y1 := max(0, int(math.Floor(by1))), min(e.grid.Height-1, int(math.Ceil(by2)))
		for y := y0; y <= y1; y++ {
			for x := x0; x <= x1; x++ {
				xIn := overlap(float64(x), float64(x+1), bx1, bx2)
				yIn := overlap(float64(y), float64(y+1), by1, by2)
				areaIn := xIn * yIn

				cell := y*e.grid.Width + x
				if areaIn >= ClaimThreshold && areaIn > claims[cell] {
					e.writeBox(dst[cell*BoxChannels:], b)
					claims[cell] = areaIn
				}
			}
		}
	}
	return nil
}

// CentersInto writes each box into the single grid cell containing its
// centroid. Boxes are processed in order and a later box replaces an
// earlier one in the same cell.
func (e *Encoder) CentersInto(dst []float32, boxes []geom.Box) error {
	if len(dst) != e.grid.Cells()*BoxChannels {
		return fmt.Errorf("%w: center buffer has %d values, want %d", errs.ErrInvariant, len(dst), e.grid.Cells()*BoxChannels)
	}
	for _, b := range boxes {
		if err := e.checkBox(b); err != nil {
			return err
		}
		x, y := e.centerCell(b)
		e.writeBox(dst[(y*e.grid.Width+x)*BoxChannels:], b)
	}
	return nil
}

// DecodeCell reads the box stored at cell (x, y) of a box or center grid
// and maps it back to working-image pixels.
func (e *Encoder) DecodeCell(grid []float32, x, y int) geom.Box {
	v := grid[(y*e.grid.Width+x)*BoxChannels:]
	iw, ih := float64(e.image.Width), float64(e.image.Height)
	return geom.Box{
		X1: float64(v[0]) * iw,
		Y1: float64(v[1]) * ih,
		X2: float64(v[2]) * iw,
		Y2: float64(v[3]) * ih,
	}
}

func (e *Encoder) writeBox(dst []float32, b geom.Box) {
	iw, ih := float64(e.image.Width), float64(e.image.Height)
	dst[0] = float32(b.X1 / iw)
	dst[1] = float32(b.Y1 / ih)
	dst[2] = float32(b.X2 / iw)
	dst[3] = float32(b.Y2 / ih)
}

func (e *Encoder) centerCell(b geom.Box) (x, y int) {
	cx, cy := b.Center()
	x = int(math.Floor(float64(e.grid.Width) * cx / float64(e.image.Width)))
	y = int(math.Floor(float64(e.grid.Height) * cy / float64(e.image.Height)))
	return x, y
}

// checkBox rejects boxes that upstream clipping should have kept inside the
// frame.
func (e *Encoder) checkBox(b geom.Box) error {
	iw, ih := float64(e.image.Width), float64(e.image.Height)
	if b.X1 < 0 || b.Y1 < 0 || b.X2 > iw || b.Y2 > ih || b.X1 > b.X2 || b.Y1 > b.Y2 {
		return fmt.Errorf("%w: box %v outside %v frame", errs.ErrInvariant, b, e.image)
	}
	if x, y := e.centerCell(b); x < 0 || x >= e.grid.Width || y < 0 || y >= e.grid.Height {
		return fmt.Errorf("%w: box %v maps to cell (%d,%d) outside %v grid", errs.ErrInvariant, b, x, y, e.grid)
	}
	return nil
}

// overlap is the length of the intersection of [lo, hi) and [a, b).
func overlap(lo, hi, a, b float64) float64 {
	return max(0, min(hi, b)-max(lo, a))
}

type weight struct {
	index  int
	weight float64
}

// areaWeights splits src pixels over dst cells: cell i covers source span
// [i*src/dst, (i+1)*src/dst) and each pixel it touches is weighted by the
// length of the overlap.
func areaWeights(src, dst int) [][]weight {
	scale := float64(src) / float64(dst)
	out := make([][]weight, dst)
	for i := range out {
		lo, hi := float64(i)*scale, float64(i+1)*scale
		first := int(math.Floor(lo))
		last := min(src-1, int(math.Ceil(hi))-1)
		for p := first; p <= last; p++ {
			if w := overlap(float64(p), float64(p+1), lo, hi); w > 0 {
				out[i] = append(out[i], weight{index: p, weight: w})
			}
		}
	}
	return out
}
