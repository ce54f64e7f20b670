// Package transcode turns one buffered source image into one encoded output:
// decode, fit-resize, encode through the registry, and measure the savings.
package transcode

import (
	"bytes"
	"context"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"math"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/webp"

	"github.com/chirag127/TinyImage/internal/codec"
	"github.com/chirag127/TinyImage/internal/encoder"
	"github.com/chirag127/TinyImage/internal/errs"
	"github.com/chirag127/TinyImage/internal/hasher"
)

// DefaultMaxPixels rejects sources above 50 megapixels before decoding them.
const DefaultMaxPixels = 50_000_000

// Options configures an Engine.
type Options struct {
	// MaxPixels caps width*height of a source. Zero means DefaultMaxPixels,
	// negative disables the check.
	MaxPixels int64
	// Registry supplies encoders. Nil means encoder.NewRegistry().
	Registry *encoder.Registry
}

// Engine is safe for concurrent use; it holds no per-call state.
type Engine struct {
	maxPixels int64
	registry  *encoder.Registry
}

// New creates an engine.
func New(opts Options) *Engine {
	if opts.MaxPixels == 0 {
		opts.MaxPixels = DefaultMaxPixels
	}
	if opts.Registry == nil {
		opts.Registry = encoder.NewRegistry()
	}
	return &Engine{maxPixels: opts.MaxPixels, registry: opts.Registry}
}

// Output is the result of one successful transcode.
type Output struct {
	Data             []byte       `json:"-"`
	MIMEType         string       `json:"mimeType"`
	Format           codec.Format `json:"format"`
	OriginalSize     int64        `json:"originalSize"`
	CompressedSize   int64        `json:"compressedSize"`
	CompressionRatio float64      `json:"compressionRatio"`
	OriginalWidth    int          `json:"originalWidth"`
	OriginalHeight   int          `json:"originalHeight"`
	Width            int          `json:"width"`
	Height           int          `json:"height"`
	Palette          bool         `json:"palette,omitempty"`
	Digest           string       `json:"digest"`
}

// Formats lists the output formats this engine can produce right now.
func (e *Engine) Formats() []codec.Format { return e.registry.Available() }

// Transcode decodes in, resizes it to fit p and re-encodes it as p.Format.
// Errors are *errs.Error with a transcode code, or ctx.Err().
func (e *Engine) Transcode(ctx context.Context, in codec.ImageInput, p codec.Profile) (*Output, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	enc, ok := e.registry.Get(p.Format)
	if !ok || !p.Format.Valid() {
		return nil, errs.New(errs.CodeUnsupportedFormat, "unsupported output format %q", p.Format)
	}

	img, err := e.decode(in.Data)
	if err != nil {
		return nil, err
	}
	b := img.Bounds()
	origW, origH := b.Dx(), b.Dy()

	w, h := origW, origH
	if p.Resizes() {
		w, h = FitDimensions(origW, origH, p.Width, p.Height, p.PreserveAspectRatio)
		if w != origW || h != origH {
			img = imaging.Resize(img, w, h, imaging.Lanczos)
		}
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if !enc.Available() {
		return nil, errs.New(errs.CodeEncode, "%s encoder is not available on this host", p.Format)
	}
	data, err := enc.Encode(img, p.Quality)
	if err != nil {
		return nil, errs.Wrap(errs.CodeEncode, err, "encode %s", p.Format)
	}

	orig := in.Size()
	comp := int64(len(data))
	return &Output{
		Data:             data,
		MIMEType:         p.Format.MIMEType(),
		Format:           p.Format,
		OriginalSize:     orig,
		CompressedSize:   comp,
		CompressionRatio: Ratio(orig, comp),
		OriginalWidth:    origW,
		OriginalHeight:   origH,
		Width:            w,
		Height:           h,
		Palette:          p.Format == codec.FormatPNG && encoder.UsesPalette(p.Quality),
		Digest:           hasher.Digest(data),
	}, nil
}

func (e *Engine) decode(data []byte) (image.Image, error) {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, errs.Wrap(errs.CodeDecode, err, "read image header")
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return nil, errs.New(errs.CodeDecode, "image has no pixels (%dx%d)", cfg.Width, cfg.Height)
	}
	if e.maxPixels > 0 && int64(cfg.Width)*int64(cfg.Height) > e.maxPixels {
		return nil, errs.New(errs.CodeDecode, "image is %dx%d, above the %d pixel limit",
			cfg.Width, cfg.Height, e.maxPixels)
	}

	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, errs.Wrap(errs.CodeDecode, err, "decode image")
	}
	return img, nil
}

// Ratio is the percentage saved going from orig to comp bytes, rounded to one
// decimal. It is negative when the output grew and 0 when orig is 0.
func Ratio(orig, comp int64) float64 {
	if orig <= 0 {
		return 0
	}
	return Round1(float64(orig-comp) / float64(orig) * 100)
}

// Round1 rounds x to one decimal place.
func Round1(x float64) float64 {
	return math.Round(x*10) / 10
}
