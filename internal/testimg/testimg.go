// Package testimg generates small synthetic images for tests.
package testimg

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
)

// Gradient is an opaque red/green ramp over a constant blue channel.
func Gradient(w, h int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetNRGBA(x, y, color.NRGBA{
				R: uint8(x * 255 / w),
				G: uint8(y * 255 / h),
				B: 128,
				A: 255,
			})
		}
	}
	return img
}

// Photo approximates photographic content: a gradient with deterministic
// per-pixel noise, so it has far more than 256 distinct colours.
func Photo(w, h int) *image.NRGBA {
	img := Gradient(w, h)
	seed := uint32(2463534242)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			// xorshift32
			seed ^= seed << 13
			seed ^= seed >> 17
			seed ^= seed << 5
			i := img.PixOffset(x, y)
			img.Pix[i+0] = jitter(img.Pix[i+0], seed)
			img.Pix[i+1] = jitter(img.Pix[i+1], seed>>8)
			img.Pix[i+2] = jitter(img.Pix[i+2], seed>>16)
		}
	}
	return img
}

func jitter(v uint8, r uint32) uint8 {
	n := int(v) + int(r%33) - 16
	switch {
	case n < 0:
		return 0
	case n > 255:
		return 255
	}
	return uint8(n)
}

// SolidWithBorder is a flat card with a 4px white border.
func SolidWithBorder(w, h int, base uint8) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			c := color.NRGBA{R: base, G: base + 40, B: base + 80, A: 255}
			if x < 4 || x >= w-4 || y < 4 || y >= h-4 {
				c = color.NRGBA{R: 255, G: 255, B: 255, A: 255}
			}
			img.SetNRGBA(x, y, c)
		}
	}
	return img
}

// AlphaGradient fades a solid colour from transparent to opaque left to right.
func AlphaGradient(w, h int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetNRGBA(x, y, color.NRGBA{
				R: 220, G: 60, B: 30,
				A: uint8(x * 255 / w),
			})
		}
	}
	return img
}

// JPEG encodes img at quality q.
func JPEG(img image.Image, q int) []byte {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: q}); err != nil {
		panic(err)
	}
	return buf.Bytes()
}

// PNG encodes img losslessly.
func PNG(img image.Image) []byte {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		panic(err)
	}
	return buf.Bytes()
}

// Corrupt returns a truncated copy of data that no decoder will accept.
func Corrupt(data []byte) []byte {
	n := len(data) / 8
	if n > 32 {
		n = 32
	}
	out := make([]byte, n)
	copy(out, data)
	return out
}
