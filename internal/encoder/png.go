package encoder

import (
	"bytes"
	"image"
	"image/png"

	"github.com/chirag127/TinyImage/internal/codec"
)

// PaletteQualityThreshold is the quality below which PNG output is reduced to
// an indexed palette. Colour fidelity is traded for size on purpose.
const PaletteQualityThreshold = 90

// UsesPalette reports whether a PNG encode at quality q takes the indexed path.
func UsesPalette(q int) bool { return q < PaletteQualityThreshold }

// PNGEncoder encodes images to PNG. PNG is lossless, so quality acts as a
// proxy: it selects compression effort and toggles palette reduction.
type PNGEncoder struct{}

func (e *PNGEncoder) Format() codec.Format { return codec.FormatPNG }
func (e *PNGEncoder) Available() bool      { return true }

func (e *PNGEncoder) Encode(img image.Image, quality int) ([]byte, error) {
	quality = clampQuality(quality)

	level := png.DefaultCompression
	if quality < PaletteQualityThreshold {
		level = png.BestCompression
	}
	if UsesPalette(quality) {
		img = toPaletted(img)
	}

	var buf bytes.Buffer
	buf.Grow(512 * 1024) // pre-alloc 512KB

	enc := &png.Encoder{CompressionLevel: level}
	if err := enc.Encode(&buf, img); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
