package augment

import (
	"image"
	"image/draw"
	"math"
	"math/rand/v2"

	"github.com/disintegration/imaging"
	colorful "github.com/lucasb-eyer/go-colorful"
	"gonum.org/v1/gonum/stat/distuv"
)

// addHueSaturation shifts hue by value hue steps of 2 degrees and saturation
// by value/255, in place.
func addHueSaturation(img *image.RGBA, value int) {
	dh := float64(value) * 2
	ds := float64(value) / 255
	b := img.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			off := img.PixOffset(x, y)
			px := img.Pix[off : off+3]
			c := colorful.Color{R: float64(px[0]) / 255, G: float64(px[1]) / 255, B: float64(px[2]) / 255}
			h, s, v := c.Hsv()
			h = math.Mod(h+dh+360, 360)
			s = math.Min(math.Max(s+ds, 0), 1)
			px[0], px[1], px[2] = colorful.Hsv(h, s, v).Clamped().RGB255()
		}
	}
}

func gaussianBlur(img *image.RGBA, sigma float64) *image.RGBA {
	if sigma <= 0 {
		return img
	}
	blurred := imaging.Blur(img, sigma)
	out := image.NewRGBA(img.Bounds())
	draw.Draw(out, out.Bounds(), blurred, blurred.Bounds().Min, draw.Src)
	return out
}

// addGaussianNoise adds one N(0, sigma) draw per pixel to all three colour
// channels, in place. The noise field is fully determined by seed.
func addGaussianNoise(img *image.RGBA, sigma float64, seed uint64) {
	noise := distuv.Normal{Mu: 0, Sigma: sigma, Src: rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)}
	b := img.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			n := noise.Rand()
			off := img.PixOffset(x, y)
			for c := 0; c < 3; c++ {
				img.Pix[off+c] = clampByte(float64(img.Pix[off+c]) + n)
			}
		}
	}
}

func clampByte(v float64) uint8 {
	v = math.Round(v)
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return uint8(v)
}
