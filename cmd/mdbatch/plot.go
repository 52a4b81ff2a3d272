package main

import (
	"fmt"
	"image/color"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/palette"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/Noofbiz/mobiledetect/datasets"
	"github.com/Noofbiz/mobiledetect/encode"
)

// coverageGrid exposes one sample's coverage values as a plotter.GridXYZ
// with row 0 at the top.
type coverageGrid struct {
	shape  encode.Shape
	values []float32
}

func (g coverageGrid) Dims() (c, r int) { return g.shape.Width, g.shape.Height }
func (g coverageGrid) Z(c, r int) float64 {
	return float64(g.values[r*g.shape.Width+c])
}
func (g coverageGrid) X(c int) float64 { return float64(c) + 0.5 }
func (g coverageGrid) Y(r int) float64 { return float64(g.shape.Height-r) - 0.5 }

// savePreview renders sample j of b: the coverage heatmap in coverage-cell
// units with every claimed box-grid rectangle drawn on top.
func savePreview(path string, enc *encode.Encoder, b *datasets.Batch, j int) error {
	p := plot.New()
	p.Title.Text = fmt.Sprintf("sample %d", j)
	p.X.Min, p.X.Max = 0, float64(b.Coverage.Width)
	p.Y.Min, p.Y.Max = 0, float64(b.Coverage.Height)

	n := b.Coverage.Cells()
	hm := plotter.NewHeatMap(coverageGrid{shape: b.Coverage, values: b.CoverageValues[j*n : (j+1)*n]}, palette.Heat(16, 1))
	hm.Min, hm.Max = 0, 1
	p.Add(hm)

	grid := b.Targets(j).Boxes
	sx := float64(b.Coverage.Width) / float64(b.Image.Width)
	sy := float64(b.Coverage.Height) / float64(b.Image.Height)
	for y := range b.Grid.Height {
		for x := range b.Grid.Width {
			box := enc.DecodeCell(grid, x, y)
			if box.Area() == 0 {
				continue
			}
			top := float64(b.Coverage.Height) - box.Y1*sy
			bottom := float64(b.Coverage.Height) - box.Y2*sy
			line, err := plotter.NewLine(plotter.XYs{
				{X: box.X1 * sx, Y: top},
				{X: box.X2 * sx, Y: top},
				{X: box.X2 * sx, Y: bottom},
				{X: box.X1 * sx, Y: bottom},
				{X: box.X1 * sx, Y: top},
			})
			if err != nil {
				return fmt.Errorf("failed to build box outline: %w", err)
			}
			line.Color = color.RGBA{B: 255, A: 255}
			line.Width = vg.Points(1)
			p.Add(line)
		}
	}

	if err := p.Save(4*vg.Inch, 4*vg.Inch, path); err != nil {
		return fmt.Errorf("failed to save preview %s: %w", path, err)
	}
	return nil
}
