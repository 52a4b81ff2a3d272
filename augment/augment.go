// Package augment builds the stage-dependent augmentation applied to every
// sample before encoding.
//
// A Pipeline is stateless. Pipeline.Sample draws one realized Transform from
// a caller-owned generator; the Transform then applies exactly the same
// parameters to the image, the boxes and the mask, so the three stay in
// geometric correspondence. Nothing in this package touches global random
// state, so concurrent workers each holding their own *rand.Rand produce
// reproducible results.
package augment

import (
	"fmt"
	"image"
	"image/draw"
	"math/rand/v2"
	"slices"

	"gonum.org/v1/gonum/stat/distuv"

	"github.com/Noofbiz/mobiledetect/errs"
	"github.com/Noofbiz/mobiledetect/geom"
)

const (
	flipProbability = 0.5
	maxCropPadPx    = 112
	maxTranslate    = 0.4
	minScale        = 0.9
	maxScale        = 1.1
	maxBlurSigma    = 1.0
	maxHueSat       = 10
	maxOptional     = 3
	noiseSigma      = 0.05 * 255
)

// Optional augmentations the train stage picks from, in application order.
const (
	optHueSaturation = iota
	optScale
	optBlur
	optNoise
	numOptional
)

// Pipeline is the augmentation recipe for one stage.
type Pipeline struct {
	stage Stage
}

// New returns the pipeline for stage.
func New(stage Stage) (*Pipeline, error) {
	if _, ok := stageNames[stage]; !ok {
		return nil, fmt.Errorf("%w: unsupported stage %v", errs.ErrInvalidArgument, stage)
	}
	return &Pipeline{stage: stage}, nil
}

// Stage returns the stage the pipeline was built for.
func (p *Pipeline) Stage() Stage {
	return p.stage
}

// Sample draws one realized transform for a width x height frame.
//
// train: horizontal flip with p=0.5, crop-and-pad by 0..112 px (one value
// for all edges), translate by up to 40% per axis, then 0..3 of hue and
// saturation shift, per-axis scale, Gaussian blur and additive Gaussian
// noise, chosen without replacement and applied in that order.
// validation: crop-and-pad and translate only. test: identity.
func (p *Pipeline) Sample(rng *rand.Rand, width, height int) *Transform {
	t := &Transform{
		Width:  width,
		Height: height,
		ScaleX: 1,
		ScaleY: 1,
	}
	switch p.stage {
	case StageTrain:
		t.Flip = rng.Float64() < flipProbability
		t.sampleCropPadTranslate(rng)
		n := rng.IntN(maxOptional + 1)
		chosen := rng.Perm(numOptional)[:n]
		slices.Sort(chosen)
		for _, opt := range chosen {
			switch opt {
			case optHueSaturation:
				t.HueSaturation = rng.IntN(2*maxHueSat+1) - maxHueSat
				t.hueSaturation = true
			case optScale:
				t.ScaleX = uniform(rng, minScale, maxScale)
				t.ScaleY = uniform(rng, minScale, maxScale)
			case optBlur:
				t.BlurSigma = uniform(rng, 0, maxBlurSigma)
			case optNoise:
				t.Noise = true
				t.NoiseSeed = rng.Uint64()
			}
		}
	case StageValidation:
		t.sampleCropPadTranslate(rng)
	}
	return t
}

func (t *Transform) sampleCropPadTranslate(rng *rand.Rand) {
	t.CropPad = rng.IntN(maxCropPadPx + 1)
	t.TranslateX = uniform(rng, -maxTranslate, maxTranslate)
	t.TranslateY = uniform(rng, -maxTranslate, maxTranslate)
}

func uniform(rng *rand.Rand, lo, hi float64) float64 {
	return distuv.Uniform{Min: lo, Max: hi, Src: rng}.Rand()
}

// Transform is one realized augmentation. Applying it several times, or to
// the image, boxes and mask separately, always uses the same parameters.
type Transform struct {
	Width  int
	Height int

	Flip bool
	// CropPad is the padding in pixels added to every edge before the frame
	// is scaled back to Width x Height.
	CropPad int
	// TranslateX and TranslateY are fractions of Width and Height.
	TranslateX float64
	TranslateY float64
	// ScaleX and ScaleY scale around the frame centre; 1 when not drawn.
	ScaleX float64
	ScaleY float64

	HueSaturation int
	hueSaturation bool
	// BlurSigma is 0 when blur was not drawn.
	BlurSigma float64
	Noise     bool
	NoiseSeed uint64
}

// Geometry returns the source to destination pixel mapping.
func (t *Transform) Geometry() Affine {
	a := identity()
	if t.Flip {
		a = a.then(flipHorizontal(t.Width))
	}
	if t.CropPad != 0 {
		a = a.then(cropAndPad(float64(t.CropPad), t.Width, t.Height))
	}
	if t.TranslateX != 0 || t.TranslateY != 0 {
		a = a.then(translate(t.TranslateX*float64(t.Width), t.TranslateY*float64(t.Height)))
	}
	if t.ScaleX != 1 || t.ScaleY != 1 {
		a = a.then(scaleAbout(t.ScaleX, t.ScaleY, float64(t.Width)/2, float64(t.Height)/2))
	}
	return a
}

// IsIdentity reports whether the transform leaves every input unchanged.
func (t *Transform) IsIdentity() bool {
	return t.Geometry() == identity() && !t.photometric()
}

func (t *Transform) photometric() bool {
	return t.hueSaturation || t.BlurSigma > 0 || t.Noise
}

// Image returns the augmented copy of img. img is not modified.
func (t *Transform) Image(img *image.RGBA) *image.RGBA {
	var out *image.RGBA
	if a := t.Geometry(); a == identity() {
		out = image.NewRGBA(image.Rect(0, 0, t.Width, t.Height))
		draw.Draw(out, out.Bounds(), img, img.Bounds().Min, draw.Src)
	} else {
		out = warpImage(img, a, t.Width, t.Height)
	}
	if t.hueSaturation {
		addHueSaturation(out, t.HueSaturation)
	}
	if t.BlurSigma > 0 {
		out = gaussianBlur(out, t.BlurSigma)
	}
	if t.Noise {
		addGaussianNoise(out, noiseSigma, t.NoiseSeed)
	}
	return out
}

// Boxes maps boxes through the transform, drops those that end up fully
// outside the frame and clips the rest to it.
func (t *Transform) Boxes(boxes []geom.Box) []geom.Box {
	return geom.RemoveOutOfImage(warpBoxes(boxes, t.Geometry()), t.Width, t.Height)
}

// Mask returns the augmented copy of m. Photometric steps do not apply to
// masks.
func (t *Transform) Mask(m *geom.Mask) *geom.Mask {
	a := t.Geometry()
	if a == identity() && m.Width == t.Width && m.Height == t.Height {
		out := geom.NewMask(m.Width, m.Height)
		copy(out.Pix, m.Pix)
		return out
	}
	return warpMask(m, a, t.Width, t.Height)
}

func (t *Transform) String() string {
	return fmt.Sprintf("flip=%v croppad=%d translate=(%.3f,%.3f) scale=(%.3f,%.3f) huesat=%d blur=%.3f noise=%v",
		t.Flip, t.CropPad, t.TranslateX, t.TranslateY, t.ScaleX, t.ScaleY, t.HueSaturation, t.BlurSigma, t.Noise)
}
