package datasets

import (
	"fmt"

	"github.com/gomlx/gomlx/pkg/core/tensors"

	"github.com/Noofbiz/mobiledetect/encode"
	"github.com/Noofbiz/mobiledetect/errs"
)

// ImageChannels is the channel count of the image tensor (RGB).
const ImageChannels = 3

// Batch stores one batch in flat contiguous buffers, batched on the first
// axis:
//
//	Images   (Size, Image.Height, Image.Width, 3)      values in [-1, 1]
//	Coverage (Size, Coverage.Height, Coverage.Width)   values in [0, 1]
//	Boxes    (Size, Grid.Height, Grid.Width, 4)
//	Centers  (Size, Grid.Height, Grid.Width, 4)
type Batch struct {
	Size     int
	Image    encode.Shape
	Coverage encode.Shape
	Grid     encode.Shape

	Images         []float32
	CoverageValues []float32
	Boxes          []float32
	Centers        []float32
}

// NewBatch allocates a zeroed batch of size samples for enc's shapes.
func NewBatch(size int, enc *encode.Encoder) *Batch {
	b := &Batch{
		Size:     size,
		Image:    enc.Image(),
		Coverage: enc.Coverage(),
		Grid:     enc.Grid(),
	}
	b.Images = make([]float32, size*b.imageLen())
	b.CoverageValues = make([]float32, size*b.Coverage.Cells())
	b.Boxes = make([]float32, size*b.gridLen())
	b.Centers = make([]float32, size*b.gridLen())
	return b
}

func (b *Batch) imageLen() int { return b.Image.Cells() * ImageChannels }
func (b *Batch) gridLen() int  { return b.Grid.Cells() * encode.BoxChannels }

// ImageSlot returns the image buffer of sample i.
func (b *Batch) ImageSlot(i int) []float32 {
	n := b.imageLen()
	return b.Images[i*n : (i+1)*n]
}

// Targets returns views of sample i's target buffers. Writing through them
// writes into the batch.
func (b *Batch) Targets(i int) *encode.Targets {
	c, g := b.Coverage.Cells(), b.gridLen()
	return &encode.Targets{
		Coverage: b.CoverageValues[i*c : (i+1)*c],
		Boxes:    b.Boxes[i*g : (i+1)*g],
		Centers:  b.Centers[i*g : (i+1)*g],
	}
}

// ToGomlxTensors converts the tensors selected by mode into gomlx tensors.
// Coverage gets a trailing channel axis of size 1.
func (b *Batch) ToGomlxTensors(mode Mode) (inputs, labels []*tensors.Tensor, err error) {
	a, err := mode.assembly()
	if err != nil {
		return nil, nil, err
	}
	if b.Size == 0 {
		return nil, nil, fmt.Errorf("%w: empty batch", errs.ErrInvalidArgument)
	}
	inputs = make([]*tensors.Tensor, len(a.inputs))
	for i, o := range a.inputs {
		inputs[i] = b.tensor(o)
	}
	labels = make([]*tensors.Tensor, len(a.labels))
	for i, o := range a.labels {
		labels[i] = b.tensor(o)
	}
	return inputs, labels, nil
}

func (b *Batch) tensor(o output) *tensors.Tensor {
	switch o {
	case outImage:
		return tensors.FromFlatDataAndDimensions(b.Images, b.Size, b.Image.Height, b.Image.Width, ImageChannels)
	case outCoverage:
		return tensors.FromFlatDataAndDimensions(b.CoverageValues, b.Size, b.Coverage.Height, b.Coverage.Width, 1)
	case outBoxes:
		return tensors.FromFlatDataAndDimensions(b.Boxes, b.Size, b.Grid.Height, b.Grid.Width, encode.BoxChannels)
	default:
		return tensors.FromFlatDataAndDimensions(b.Centers, b.Size, b.Grid.Height, b.Grid.Width, encode.BoxChannels)
	}
}
