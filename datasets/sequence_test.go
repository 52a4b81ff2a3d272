package datasets

import (
	"errors"
	"image"
	"image/color"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/cyclopcam/logs"
	"github.com/stretchr/testify/require"

	"github.com/Noofbiz/mobiledetect/augment"
	"github.com/Noofbiz/mobiledetect/encode"
	"github.com/Noofbiz/mobiledetect/errs"
)

// writePNG writes a w x h image with a deterministic pattern to path.
func writePNG(t *testing.T, path string, w, h int) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("failed to create dir for %s: %v", path, err)
	}
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := range h {
		for x := range w {
			img.Set(x, y, color.RGBA{R: uint8(x * 3), G: uint8(y * 3), B: uint8((x + y) * 2), A: 255})
		}
	}
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("failed to create image %s: %v", path, err)
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		t.Fatalf("failed to encode image %s: %v", path, err)
	}
}

// writeText writes lines to path, creating parent directories.
func writeText(t *testing.T, path string, lines ...string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("failed to create dir for %s: %v", path, err)
	}
	if err := os.WriteFile(path, []byte(strings.Join(lines, "\n")), 0o644); err != nil {
		t.Fatalf("failed to write %s: %v", path, err)
	}
}

// makeDataset writes n 140x140 images, each labelled with one car at
// (20,40)-(60,80), under a fresh root.
func makeDataset(t *testing.T, n int) string {
	t.Helper()
	root := t.TempDir()
	for i := range n {
		name := string(rune('a' + i))
		writePNG(t, filepath.Join(root, "images", name+".png"), 140, 140)
		writeText(t, filepath.Join(root, "labels", name+".txt"), "Car 0.00 0 -1.58 20 40 60 80 1.65 1.67 3.64 -0.65 1.71 46.70 -1.59")
	}
	return root
}

func options(t *testing.T, stage augment.Stage, mode Mode, batch int) SequenceOptions {
	return SequenceOptions{
		Image:     encode.Shape{Height: 70, Width: 70},
		Coverage:  encode.Shape{Height: 7, Width: 7},
		Grid:      encode.Shape{Height: 7, Width: 7},
		BatchSize: batch,
		Stage:     stage,
		Mode:      mode,
		Seed:      11,
		Workers:   2,
		Log:       logs.NewTestingLog(t),
	}
}

func TestListSamples(t *testing.T) {
	root := t.TempDir()
	writeText(t, filepath.Join(root, "images", "000001.png"), "x")
	writeText(t, filepath.Join(root, "images", "sub", "000002.left.jpg"), "x")
	writeText(t, filepath.Join(root, "images", ".DS_Store"), "x")

	samples, err := ListSamples(root)
	require.NoError(t, err)
	require.Equal(t, []Sample{
		{Image: filepath.Join(root, "images", "000001.png"), Label: filepath.Join(root, "labels", "000001.txt")},
		{Image: filepath.Join(root, "images", "sub", "000002.left.jpg"), Label: filepath.Join(root, "labels", "000002.txt")},
	}, samples)

	_, err = ListSamples(filepath.Join(root, "missing"))
	require.ErrorIs(t, err, errs.ErrNotFound)
}

func TestLenDropsRemainder(t *testing.T) {
	seq, err := NewSequence(makeDataset(t, 5), options(t, augment.StageTest, ModeComplete, 2))
	require.NoError(t, err)
	require.Equal(t, 5, seq.NumSamples())
	require.Equal(t, 2, seq.Len())

	_, err = seq.Batch(2)
	require.ErrorIs(t, err, errs.ErrInvalidArgument)
	_, err = seq.Batch(-1)
	require.ErrorIs(t, err, errs.ErrInvalidArgument)
}

func TestNewSequenceRejectsBadOptions(t *testing.T) {
	root := makeDataset(t, 1)
	opts := options(t, augment.StageTest, ModeComplete, 0)
	_, err := NewSequence(root, opts)
	require.ErrorIs(t, err, errs.ErrInvalidArgument)

	opts = options(t, augment.StageTest, Mode(9), 1)
	_, err = NewSequence(root, opts)
	require.ErrorIs(t, err, errs.ErrInvalidArgument)

	opts = options(t, augment.StageTest, ModeComplete, 1)
	opts.Grid = encode.Shape{}
	_, err = NewSequence(root, opts)
	require.ErrorIs(t, err, errs.ErrInvalidArgument)

	opts = options(t, augment.Stage(7), ModeComplete, 1)
	_, err = NewSequence(root, opts)
	require.ErrorIs(t, err, errs.ErrInvalidArgument)
}

func TestBatchEncodesScaledLabels(t *testing.T) {
	seq, err := NewSequence(makeDataset(t, 2), options(t, augment.StageTest, ModeComplete, 2))
	require.NoError(t, err)
	b, err := seq.Batch(0)
	require.NoError(t, err)
	require.Equal(t, 2, b.Size)

	for i := range b.Size {
		tg := b.Targets(i)
		// the label box is (10,20)-(30,40) once scaled from 140x140 to 70x70
		got := seq.Encoder().DecodeCell(tg.Boxes, 1, 2)
		require.InDelta(t, 10, got.X1, 1e-3)
		require.InDelta(t, 20, got.Y1, 1e-3)
		require.InDelta(t, 30, got.X2, 1e-3)
		require.InDelta(t, 40, got.Y2, 1e-3)

		center := seq.Encoder().DecodeCell(tg.Centers, 2, 3)
		require.InDelta(t, 30, center.X2, 1e-3)

		require.InDelta(t, 1, tg.Coverage[2*7+1], 1e-6)
		require.InDelta(t, 0, tg.Coverage[0], 1e-6)
	}
	for _, v := range b.Images {
		require.GreaterOrEqual(t, v, float32(-1))
		require.LessOrEqual(t, v, float32(1))
	}
}

func TestEmptyLabelGivesZeroTargets(t *testing.T) {
	root := t.TempDir()
	writePNG(t, filepath.Join(root, "images", "empty.png"), 32, 32)
	writeText(t, filepath.Join(root, "labels", "empty.txt"))

	seq, err := NewSequence(root, options(t, augment.StageTrain, ModeComplete, 1))
	require.NoError(t, err)
	b, err := seq.Batch(0)
	require.NoError(t, err)
	for _, buf := range [][]float32{b.CoverageValues, b.Boxes, b.Centers} {
		for _, v := range buf {
			require.Zero(t, v)
		}
	}
}

func TestOutOfFrameBoxIsDropped(t *testing.T) {
	root := t.TempDir()
	writePNG(t, filepath.Join(root, "images", "far.png"), 140, 140)
	writeText(t, filepath.Join(root, "labels", "far.txt"), "Car 0 0 0 200 200 260 260")

	seq, err := NewSequence(root, options(t, augment.StageTest, ModeComplete, 1))
	require.NoError(t, err)
	b, err := seq.Batch(0)
	require.NoError(t, err)
	for _, buf := range [][]float32{b.CoverageValues, b.Boxes, b.Centers} {
		for _, v := range buf {
			require.Zero(t, v)
		}
	}
}

func TestPartlyOutsideBoxIsClipped(t *testing.T) {
	root := t.TempDir()
	writePNG(t, filepath.Join(root, "images", "edge.png"), 140, 140)
	writeText(t, filepath.Join(root, "labels", "edge.txt"), "Car 0 0 0 100 100 200 200")

	seq, err := NewSequence(root, options(t, augment.StageTest, ModeComplete, 1))
	require.NoError(t, err)
	ex, err := seq.Example(0)
	require.NoError(t, err)
	require.Len(t, ex.Boxes, 1)
	require.Less(t, ex.Boxes[0].X2, 70.0)
	require.InDelta(t, 70, ex.Boxes[0].X2, 1e-6)

	b, err := seq.Batch(0)
	require.NoError(t, err)
	// centroid is just below (60,60), inside cell (5,5)
	center := seq.Encoder().DecodeCell(b.Centers, 5, 5)
	require.InDelta(t, 50, center.X1, 1e-3)
	require.InDelta(t, 70, center.X2, 1e-3)
	require.Zero(t, b.Centers[(6*7+6)*4+2])
}

func TestNonFiniteCoordinateIsFormatError(t *testing.T) {
	for _, line := range []string{
		"Car 0 0 0 10 10 Inf 40",
		"Car 0 0 0 NaN 10 40 40",
	} {
		root := t.TempDir()
		writePNG(t, filepath.Join(root, "images", "bad.png"), 70, 70)
		label := filepath.Join(root, "labels", "bad.txt")
		writeText(t, label, line)

		seq, err := NewSequence(root, options(t, augment.StageTest, ModeComplete, 1))
		require.NoError(t, err)
		_, err = seq.Batch(0)
		require.ErrorIs(t, err, errs.ErrFormat, line)
		require.Contains(t, err.Error(), label)
	}
}

func TestBatchIsDeterministic(t *testing.T) {
	root := makeDataset(t, 4)
	opts := options(t, augment.StageTrain, ModeComplete, 4)
	a, err := NewSequence(root, opts)
	require.NoError(t, err)
	opts.Workers = 1
	b, err := NewSequence(root, opts)
	require.NoError(t, err)

	ba, err := a.Batch(0)
	require.NoError(t, err)
	bb, err := b.Batch(0)
	require.NoError(t, err)
	require.Equal(t, ba.Images, bb.Images)
	require.Equal(t, ba.CoverageValues, bb.CoverageValues)
	require.Equal(t, ba.Boxes, bb.Boxes)
	require.Equal(t, ba.Centers, bb.Centers)

	// a new epoch draws new augmentations
	a.Reset()
	next, err := a.Batch(0)
	require.NoError(t, err)
	require.NotEqual(t, ba.Images, next.Images)
}

func TestMissingLabelAbortsBatch(t *testing.T) {
	root := makeDataset(t, 2)
	missing := filepath.Join(root, "labels", "b.txt")
	require.NoError(t, os.Remove(missing))

	seq, err := NewSequence(root, options(t, augment.StageTest, ModeComplete, 2))
	require.NoError(t, err)
	_, err = seq.Batch(0)
	require.ErrorIs(t, err, errs.ErrNotFound)
	require.Contains(t, err.Error(), missing)
}

func TestMalformedInputsAbortBatch(t *testing.T) {
	root := makeDataset(t, 1)
	writeText(t, filepath.Join(root, "labels", "a.txt"), "Car 0 0 0 1 2 3")
	seq, err := NewSequence(root, options(t, augment.StageTest, ModeComplete, 1))
	require.NoError(t, err)
	_, err = seq.Batch(0)
	require.ErrorIs(t, err, errs.ErrFormat)

	root = makeDataset(t, 1)
	writeText(t, filepath.Join(root, "images", "a.png"), "not a png")
	seq, err = NewSequence(root, options(t, augment.StageTest, ModeComplete, 1))
	require.NoError(t, err)
	_, err = seq.Batch(0)
	require.ErrorIs(t, err, errs.ErrFormat)
	require.Contains(t, err.Error(), "a.png")
}

func TestToGomlxTensorsByMode(t *testing.T) {
	seq, err := NewSequence(makeDataset(t, 3), options(t, augment.StageValidation, ModeComplete, 3))
	require.NoError(t, err)
	b, err := seq.Batch(0)
	require.NoError(t, err)

	cases := []struct {
		mode   Mode
		inputs [][]int
		labels [][]int
	}{
		{ModeComplete, [][]int{{3, 70, 70, 3}}, [][]int{{3, 7, 7, 1}, {3, 7, 7, 4}, {3, 7, 7, 4}}},
		{ModeCoverage, [][]int{{3, 70, 70, 3}}, [][]int{{3, 7, 7, 1}}},
		{ModeRegion, [][]int{{3, 7, 7, 1}}, [][]int{{3, 7, 7, 4}}},
		{ModePooling, [][]int{{3, 7, 7, 4}}, [][]int{{3, 7, 7, 4}}},
	}
	for _, c := range cases {
		t.Run(c.mode.String(), func(t *testing.T) {
			inputs, labels, err := b.ToGomlxTensors(c.mode)
			require.NoError(t, err)
			require.Len(t, inputs, len(c.inputs))
			require.Len(t, labels, len(c.labels))
			for i, in := range inputs {
				require.Equal(t, c.inputs[i], in.Shape().Dimensions)
			}
			for i, la := range labels {
				require.Equal(t, c.labels[i], la.Shape().Dimensions)
			}
		})
	}

	_, _, err = b.ToGomlxTensors(Mode(9))
	require.ErrorIs(t, err, errs.ErrInvalidArgument)
}

func TestParseMode(t *testing.T) {
	for in, want := range map[string]Mode{
		"":         ModeComplete,
		"complete": ModeComplete,
		"coverage": ModeCoverage,
		"regions":  ModeRegion,
		"region":   ModeRegion,
		"Pooling":  ModePooling,
	} {
		got, err := ParseMode(in)
		require.NoError(t, err)
		require.Equal(t, want, got)
	}
	_, err := ParseMode("yolo")
	require.ErrorIs(t, err, errs.ErrInvalidArgument)
}

func TestYieldAndReset(t *testing.T) {
	seq, err := NewSequence(makeDataset(t, 5), options(t, augment.StageTest, ModeCoverage, 2))
	require.NoError(t, err)

	for range 2 {
		count := 0
		for {
			_, inputs, labels, err := seq.Yield()
			if errors.Is(err, io.EOF) {
				break
			}
			require.NoError(t, err)
			require.Len(t, inputs, 1)
			require.Len(t, labels, 1)
			count++
		}
		require.Equal(t, seq.Len(), count)
		seq.Reset()
	}
	require.Equal(t, uint64(2), seq.Epoch())
}

func TestShuffleIsDeterministic(t *testing.T) {
	root := makeDataset(t, 6)
	a, err := NewSequence(root, options(t, augment.StageTest, ModeComplete, 1))
	require.NoError(t, err)
	b, err := NewSequence(root, options(t, augment.StageTest, ModeComplete, 1))
	require.NoError(t, err)
	a.Shuffle(42)
	b.Shuffle(42)
	require.Equal(t, a.order, b.order)

	seen := make(map[int]bool)
	for _, idx := range a.order {
		seen[idx] = true
	}
	require.Len(t, seen, 6)

	ex, err := a.Example(0)
	require.NoError(t, err)
	require.Equal(t, a.samples[a.order[0]], ex.Sample)
}
