// Package validate rejects inputs and profiles that can never transcode,
// before any decode work is spent on them.
package validate

import (
	"fmt"

	"github.com/chirag127/TinyImage/internal/codec"
	"github.com/chirag127/TinyImage/internal/errs"
)

// Defaults mirror the limits enforced by the upload widget.
const (
	DefaultMaxBytes  = 10 << 20 // 10 MiB
	DefaultMaxImages = 10
)

// Limits bound a single image and a whole batch.
type Limits struct {
	MaxBytes     int64
	AllowedTypes map[string]bool
	// MaxImages caps the batch size; 0 disables the check.
	MaxImages int
}

// DefaultAllowedTypes returns a fresh set of the accepted input types.
func DefaultAllowedTypes() map[string]bool {
	return map[string]bool{
		codec.MIMEJPEG: true,
		codec.MIMEPNG:  true,
		codec.MIMEWebP: true,
	}
}

// DefaultLimits returns the 10 MiB / 10 image policy.
func DefaultLimits() Limits {
	return Limits{
		MaxBytes:     DefaultMaxBytes,
		AllowedTypes: DefaultAllowedTypes(),
		MaxImages:    DefaultMaxImages,
	}
}

// WithDefaults fills in a zero MaxBytes or an empty type set, and normalizes
// the keys of a caller-supplied set so "image/jpg" admits JPEG.
// MaxImages is left as given so callers can opt out with 0.
func (l Limits) WithDefaults() Limits {
	if l.MaxBytes <= 0 {
		l.MaxBytes = DefaultMaxBytes
	}
	if len(l.AllowedTypes) == 0 {
		l.AllowedTypes = DefaultAllowedTypes()
		return l
	}
	normalized := make(map[string]bool, len(l.AllowedTypes))
	for t, ok := range l.AllowedTypes {
		if ok {
			normalized[codec.NormalizeMIME(t)] = true
		}
	}
	l.AllowedTypes = normalized
	return l
}

// Allows reports whether the (normalized) media type is accepted.
func (l Limits) Allows(mimeType string) bool {
	return l.AllowedTypes[codec.NormalizeMIME(mimeType)]
}

// Input checks one image against limits. It never looks inside the bytes.
func Input(in codec.ImageInput, limits Limits) error {
	if len(in.Data) == 0 {
		return errs.New(errs.CodeMissingInput, "%s: no image data provided", displayName(in))
	}
	if limits.MaxBytes > 0 && in.Size() > limits.MaxBytes {
		// Uploads are read only up to MaxBytes+1, so the size seen here is not
		// the real one.
		return errs.New(errs.CodeTooLarge, "%s: file exceeds the %s limit",
			displayName(in), FormatBytes(limits.MaxBytes))
	}
	if !limits.Allows(in.MIMEType) {
		return errs.New(errs.CodeUnsupportedType, "%s: unsupported file type %q (allowed: JPEG, PNG, WebP)",
			displayName(in), in.MIMEType)
	}
	return nil
}

// Profile checks the batch-wide codec profile once per batch.
func Profile(p codec.Profile) error {
	if p.Quality < 1 || p.Quality > 100 {
		return errs.New(errs.CodeInvalidProfile, "quality must be between 1 and 100, got %d", p.Quality)
	}
	if !p.Format.Valid() {
		return errs.New(errs.CodeInvalidProfile, "unsupported output format %q (supported: jpeg, png, webp)", p.Format)
	}
	if p.Width < 0 || p.Height < 0 {
		return errs.New(errs.CodeInvalidProfile, "target dimensions must be positive, got %dx%d", p.Width, p.Height)
	}
	return nil
}

// BatchSize checks the number of images in one submission.
func BatchSize(n int, limits Limits) error {
	if n == 0 {
		return errs.New(errs.CodeEmptyBatch, "no images provided")
	}
	if limits.MaxImages > 0 && n > limits.MaxImages {
		return errs.New(errs.CodeTooManyImages, "too many images: %d (max %d)", n, limits.MaxImages)
	}
	return nil
}

func displayName(in codec.ImageInput) string {
	if in.Filename != "" {
		return in.Filename
	}
	return "image"
}

// FormatBytes renders a byte count the way limits are shown to users: "10MB".
func FormatBytes(b int64) string {
	switch {
	case b >= 1<<20 && b%(1<<20) == 0:
		return fmt.Sprintf("%dMB", b>>20)
	case b >= 1<<20:
		return fmt.Sprintf("%.1fMB", float64(b)/(1<<20))
	case b >= 1<<10:
		return fmt.Sprintf("%.1fKB", float64(b)/(1<<10))
	default:
		return fmt.Sprintf("%dB", b)
	}
}
