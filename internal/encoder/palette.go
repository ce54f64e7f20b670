package encoder

import (
	"image"
	"image/color"

	"github.com/ericpauley/go-quantize/quantize"
	"golang.org/x/image/draw"
)

const maxPaletteColors = 256

// toPaletted reduces img to at most 256 colours. Images that already fit are
// mapped exactly; everything else gets a median-cut palette and
// Floyd-Steinberg dithering.
func toPaletted(img image.Image) *image.Paletted {
	if p, ok := img.(*image.Paletted); ok && len(p.Palette) <= maxPaletteColors {
		return p
	}

	b := img.Bounds()
	pal, exact := exactPalette(img)
	if !exact {
		q := quantize.MedianCutQuantizer{}
		pal = q.Quantize(make(color.Palette, 0, maxPaletteColors), img)
	}

	dst := image.NewPaletted(b, pal)
	if exact {
		draw.Draw(dst, b, img, b.Min, draw.Src)
	} else {
		draw.FloydSteinberg.Draw(dst, b, img, b.Min)
	}
	return dst
}

// exactPalette collects the distinct colours of img, giving up once there are
// more than fit in a palette.
func exactPalette(img image.Image) (color.Palette, bool) {
	b := img.Bounds()
	seen := make(map[color.NRGBA]struct{}, maxPaletteColors+1)
	pal := make(color.Palette, 0, maxPaletteColors)
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			c := color.NRGBAModel.Convert(img.At(x, y)).(color.NRGBA)
			if _, ok := seen[c]; ok {
				continue
			}
			if len(pal) == maxPaletteColors {
				return nil, false
			}
			seen[c] = struct{}{}
			pal = append(pal, c)
		}
	}
	return pal, true
}
