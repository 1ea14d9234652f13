package tesseract

import (
	"bytes"
	"fmt"
	"image"
	"image/color"

	"github.com/disintegration/imaging"
)

// Preprocess decodes a screenshot, scales it to targetWidth (0 keeps the size) and
// cleans it up for recognition. The returned scale maps prepared pixels back
// to template pixels and is 1 when targetWidth is set.
func Preprocess(data []byte, targetWidth int) ([]byte, float64, error) {
	img, err := imaging.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, 0, fmt.Errorf("decode image: %w", err)
	}
	scale := 1.0
	if targetWidth > 0 && img.Bounds().Dx() != targetWidth {
		img = imaging.Resize(img, targetWidth, 0, imaging.Lanczos)
	}
	// Small screenshots are upscaled for tesseract, boxes are mapped back afterwards.
	if img.Bounds().Dx() < 1000 {
		factor := 1000.0 / float64(img.Bounds().Dx())
		img = imaging.Resize(img, 1000, 0, imaging.Lanczos)
		scale = 1 / factor
	}
	gray := imaging.Grayscale(img)
	gray = imaging.AdjustContrast(gray, 15)
	gray = imaging.Sharpen(gray, 0.7)
	bin := binarize(gray, 160)

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, bin, imaging.PNG); err != nil {
		return nil, 0, fmt.Errorf("encode image: %w", err)
	}
	return buf.Bytes(), scale, nil
}

// binarize performs a global threshold. Result screens use light text on a
// dark panel, so dark-background images are inverted first.
func binarize(img image.Image, threshold uint8) *image.NRGBA {
	b := img.Bounds()
	if meanLuma(img) < 128 {
		img = imaging.Invert(img)
	}
	out := image.NewNRGBA(b)
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			r, g, bb, _ := img.At(x, y).RGBA()
			gray := uint8((r + g + bb) / 3 >> 8)
			var v uint8 = 255
			if gray <= threshold {
				v = 0
			}
			out.Set(x, y, color.NRGBA{R: v, G: v, B: v, A: 255})
		}
	}
	return out
}

func meanLuma(img image.Image) float64 {
	b := img.Bounds()
	n := b.Dx() * b.Dy()
	if n == 0 {
		return 255
	}
	var sum uint64
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			r, g, bb, _ := img.At(x, y).RGBA()
			sum += uint64((r + g + bb) / 3 >> 8)
		}
	}
	return float64(sum) / float64(n)
}
