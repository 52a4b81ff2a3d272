package datasets

import (
	"errors"
	"fmt"
	"image"
	"image/draw"
	_ "image/jpeg"
	_ "image/png"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/nfnt/resize"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"

	"github.com/Noofbiz/mobiledetect/errs"
)

const (
	imagesDir = "images"
	labelsDir = "labels"
	labelExt  = ".txt"
)

// Sample pairs an image file with its label file.
type Sample struct {
	Image string
	Label string
}

// ListSamples walks <root>/images recursively and pairs every file
// name.ext with <root>/labels/name.txt, where name is the file name up to
// its first dot. Hidden files are skipped. Label files are not opened here.
func ListSamples(root string) ([]Sample, error) {
	imgRoot := filepath.Join(root, imagesDir)
	if _, err := os.Stat(imgRoot); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: images directory %s", errs.ErrNotFound, imgRoot)
		}
		return nil, fmt.Errorf("failed to stat %s: %w", imgRoot, err)
	}

	var samples []Sample
	err := filepath.WalkDir(imgRoot, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || strings.HasPrefix(d.Name(), ".") {
			return nil
		}
		samples = append(samples, Sample{
			Image: path,
			Label: LabelPath(root, d.Name()),
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk %s: %w", imgRoot, err)
	}
	return samples, nil
}

// LabelPath returns the label file for the image file name imageName.
func LabelPath(root, imageName string) string {
	stem, _, _ := strings.Cut(imageName, ".")
	return filepath.Join(root, labelsDir, stem+labelExt)
}

// loadImage decodes the image at path in any registered format.
func loadImage(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: image file %s", errs.ErrNotFound, path)
		}
		return nil, fmt.Errorf("failed to open image %s: %w", path, err)
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to decode image %s: %v", errs.ErrFormat, path, err)
	}
	return img, nil
}

// resizeRGBA resizes img to width x height with bilinear interpolation.
func resizeRGBA(img image.Image, width, height int) *image.RGBA {
	resized := resize.Resize(uint(width), uint(height), img, resize.Bilinear)
	if rgba, ok := resized.(*image.RGBA); ok && rgba.Bounds().Min == (image.Point{}) {
		return rgba
	}
	rgba := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.Draw(rgba, rgba.Bounds(), resized, resized.Bounds().Min, draw.Src)
	return rgba
}

// writeImage stores img's RGB channels into dst scaled to [-1, 1].
func writeImage(dst []float32, img *image.RGBA) {
	b := img.Bounds()
	w := b.Dx()
	for y := 0; y < b.Dy(); y++ {
		for x := 0; x < w; x++ {
			off := img.PixOffset(b.Min.X+x, b.Min.Y+y)
			i := (y*w + x) * ImageChannels
			for c := 0; c < ImageChannels; c++ {
				dst[i+c] = float32(img.Pix[off+c])/127.5 - 1
			}
		}
	}
}
