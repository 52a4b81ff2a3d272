package datasets

import (
	"fmt"
	"image"
	"io"
	"math/rand/v2"
	"runtime"
	"time"

	"github.com/cyclopcam/logs"
	"github.com/gomlx/gomlx/pkg/core/tensors"
	"golang.org/x/sync/errgroup"

	"github.com/Noofbiz/mobiledetect/augment"
	"github.com/Noofbiz/mobiledetect/encode"
	"github.com/Noofbiz/mobiledetect/errs"
	"github.com/Noofbiz/mobiledetect/geom"
	"github.com/Noofbiz/mobiledetect/kitti"
)

// epochStride separates the generator streams of consecutive epochs.
const epochStride = 0x9e3779b97f4a7c15

// SequenceOptions configures a Sequence.
type SequenceOptions struct {
	// Image is the working resolution every image is resized to.
	Image    encode.Shape
	Coverage encode.Shape
	Grid     encode.Shape

	BatchSize int
	Stage     augment.Stage
	Mode      Mode

	// Seed fixes every augmentation draw. Same seed, epoch and batch index
	// give bit-identical batches.
	Seed uint64
	// Workers bounds the samples processed concurrently. Zero means
	// runtime.NumCPU().
	Workers int

	// Log is optional.
	Log logs.Log
}

// Sequence is the batch sequencer: it lists (image, label) pairs once and
// builds batches on demand.
type Sequence struct {
	samples  []Sample
	order    []int
	batch    int
	mode     Mode
	encoder  *encode.Encoder
	pipeline *augment.Pipeline

	seed    uint64
	epoch   uint64
	cursor  int
	workers int
	log     logs.Log
}

// NewSequence lists the samples under root (see ListSamples) and builds a
// Sequence over them.
func NewSequence(root string, opts SequenceOptions) (*Sequence, error) {
	samples, err := ListSamples(root)
	if err != nil {
		return nil, err
	}
	s, err := NewSequenceFromSamples(samples, opts)
	if err != nil {
		return nil, err
	}
	if s.log != nil {
		s.log.Infof("Dataset %s: %d samples, %d batches of %d (stage %v, mode %v)",
			root, len(samples), s.Len(), s.batch, s.pipeline.Stage(), s.mode)
	}
	return s, nil
}

// NewSequenceFromSamples builds a Sequence over an explicit sample list.
func NewSequenceFromSamples(samples []Sample, opts SequenceOptions) (*Sequence, error) {
	if opts.BatchSize <= 0 {
		return nil, fmt.Errorf("%w: batch size %d", errs.ErrInvalidArgument, opts.BatchSize)
	}
	if _, err := opts.Mode.assembly(); err != nil {
		return nil, err
	}
	enc, err := encode.New(opts.Image, opts.Coverage, opts.Grid)
	if err != nil {
		return nil, err
	}
	pipeline, err := augment.New(opts.Stage)
	if err != nil {
		return nil, err
	}
	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	order := make([]int, len(samples))
	for i := range order {
		order[i] = i
	}
	return &Sequence{
		samples:  samples,
		order:    order,
		batch:    opts.BatchSize,
		mode:     opts.Mode,
		encoder:  enc,
		pipeline: pipeline,
		seed:     opts.Seed,
		workers:  workers,
		log:      opts.Log,
	}, nil
}

// Len returns the number of complete batches. Trailing samples that do not
// fill a batch are never returned.
func (s *Sequence) Len() int {
	return len(s.samples) / s.batch
}

// NumSamples returns the number of listed samples.
func (s *Sequence) NumSamples() int {
	return len(s.samples)
}

// BatchSize returns the number of samples per batch.
func (s *Sequence) BatchSize() int {
	return s.batch
}

// Mode returns the output assembly mode.
func (s *Sequence) Mode() Mode {
	return s.mode
}

// Encoder returns the grid encoder used for the targets.
func (s *Sequence) Encoder() *encode.Encoder {
	return s.encoder
}

// Epoch returns the current epoch, starting at 0.
func (s *Sequence) Epoch() uint64 {
	return s.epoch
}

// Batch builds the batch at index. Samples are processed concurrently; the
// first failing sample aborts the batch and its error names the file.
func (s *Sequence) Batch(index int) (*Batch, error) {
	if index < 0 || index >= s.Len() {
		return nil, fmt.Errorf("%w: batch index %d out of range [0, %d)", errs.ErrInvalidArgument, index, s.Len())
	}
	start := time.Now()

	b := NewBatch(s.batch, s.encoder)
	var g errgroup.Group
	g.SetLimit(s.workers)
	for i := range s.batch {
		pos := index*s.batch + i
		g.Go(func() error {
			ex, err := s.example(pos)
			if err != nil {
				return err
			}
			writeImage(b.ImageSlot(i), ex.Image)
			if err := s.encoder.EncodeInto(b.Targets(i), ex.Boxes, ex.Mask); err != nil {
				return fmt.Errorf("encode %s: %w", ex.Sample.Label, err)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	if s.log != nil {
		s.log.Debugf("Batch %d (epoch %d) built in %v", index, s.epoch, time.Since(start))
	}
	return b, nil
}

// Example is one sample after resizing and augmentation, before encoding.
type Example struct {
	Sample    Sample
	Image     *image.RGBA
	Boxes     []geom.Box
	Mask      *geom.Mask
	Transform *augment.Transform
}

// Example loads and augments the sample at position pos of the current
// order, with the same draws Batch would use.
func (s *Sequence) Example(pos int) (*Example, error) {
	if pos < 0 || pos >= len(s.samples) {
		return nil, fmt.Errorf("%w: sample %d out of range [0, %d)", errs.ErrInvalidArgument, pos, len(s.samples))
	}
	return s.example(pos)
}

func (s *Sequence) example(pos int) (*Example, error) {
	idx := s.order[pos]
	sample := s.samples[idx]
	w, h := s.encoder.Image().Width, s.encoder.Image().Height

	src, err := loadImage(sample.Image)
	if err != nil {
		return nil, err
	}
	bounds := src.Bounds()
	if bounds.Empty() {
		return nil, fmt.Errorf("%w: empty image %s", errs.ErrFormat, sample.Image)
	}
	scale := kitti.Scale{
		Height: float64(h) / float64(bounds.Dy()),
		Width:  float64(w) / float64(bounds.Dx()),
	}
	img := resizeRGBA(src, w, h)

	label, err := kitti.LoadLabel(sample.Label, w, h, scale)
	if err != nil {
		return nil, err
	}

	t := s.pipeline.Sample(s.rng(idx), w, h)
	return &Example{
		Sample:    sample,
		Image:     t.Image(img),
		Boxes:     t.Boxes(label.Boxes),
		Mask:      t.Mask(label.Mask),
		Transform: t,
	}, nil
}

// rng returns the generator for sample idx in the current epoch. Each
// sample owns its stream, so results do not depend on worker scheduling.
func (s *Sequence) rng(idx int) *rand.Rand {
	return rand.New(rand.NewPCG(s.seed+s.epoch*epochStride, uint64(idx)))
}

// Shuffle permutes the sample order deterministically for seed.
func (s *Sequence) Shuffle(seed int64) {
	r := rand.New(rand.NewPCG(uint64(seed), uint64(len(s.order))))
	r.Shuffle(len(s.order), func(i, j int) {
		s.order[i], s.order[j] = s.order[j], s.order[i]
	})
}

// Tensors builds the batch at index and converts it for the current mode.
func (s *Sequence) Tensors(index int) (inputs, labels []*tensors.Tensor, err error) {
	b, err := s.Batch(index)
	if err != nil {
		return nil, nil, err
	}
	return b.ToGomlxTensors(s.mode)
}

// Name returns the name of the dataset.
func (s *Sequence) Name() string {
	return fmt.Sprintf("Sequence(%v)", s.mode)
}

// Yield returns the next batch for the gomlx Dataset interface, and io.EOF
// once every complete batch of the epoch has been returned.
func (s *Sequence) Yield() (spec any, inputs []*tensors.Tensor, labels []*tensors.Tensor, err error) {
	if s.cursor >= s.Len() {
		return nil, nil, nil, io.EOF
	}
	inputs, labels, err = s.Tensors(s.cursor)
	if err != nil {
		return nil, nil, nil, err
	}
	s.cursor++
	return nil, inputs, labels, nil
}

// Reset rewinds to the first batch and starts a new epoch, so the next pass
// draws fresh augmentations.
func (s *Sequence) Reset() {
	s.cursor = 0
	s.epoch++
}
