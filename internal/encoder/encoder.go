package encoder

import (
	"image"

	"github.com/chirag127/TinyImage/internal/codec"
)

// Encoder encodes an image to a specific output format.
type Encoder interface {
	// Format returns the output format this encoder produces.
	Format() codec.Format

	// Encode converts the image to bytes at the given quality (1-100).
	Encode(img image.Image, quality int) ([]byte, error)

	// Available returns true if the encoder is ready to use.
	// External tools (cwebp) may not be installed.
	Available() bool
}

// clampQuality maps out-of-range values onto the 1-100 scale. Profiles are
// validated upstream, so this only guards direct callers.
func clampQuality(q int) int {
	switch {
	case q < 1:
		return 1
	case q > 100:
		return 100
	}
	return q
}
