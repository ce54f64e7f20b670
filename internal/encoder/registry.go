package encoder

import (
	"fmt"
	"strings"

	"github.com/chirag127/TinyImage/internal/codec"
)

// Registry maps output formats to their encoders.
type Registry struct {
	encoders map[codec.Format]Encoder
}

// NewRegistry registers the JPEG, PNG and WebP encoders. Encoders backed by
// external tools are registered even when the tool is missing; callers check
// Available before encoding.
func NewRegistry() *Registry {
	return NewRegistryWith(
		&JPEGEncoder{},
		&PNGEncoder{},
		&WebPEncoder{},
	)
}

// NewRegistryWith builds a registry from explicit encoders. A later encoder
// replaces an earlier one for the same format.
func NewRegistryWith(encs ...Encoder) *Registry {
	r := &Registry{encoders: make(map[codec.Format]Encoder, len(encs))}
	for _, enc := range encs {
		r.encoders[enc.Format()] = enc
	}
	return r
}

// Get returns the encoder for format, or false when none is registered.
func (r *Registry) Get(format codec.Format) (Encoder, bool) {
	enc, ok := r.encoders[format]
	return enc, ok
}

// Available returns the formats whose encoders can run right now, in
// display order.
func (r *Registry) Available() []codec.Format {
	var result []codec.Format
	for _, f := range codec.Formats {
		if enc, ok := r.encoders[f]; ok && enc.Available() {
			result = append(result, f)
		}
	}
	return result
}

// String returns a summary of available encoders.
func (r *Registry) String() string {
	avail := r.Available()
	if len(avail) == 0 {
		return "no encoders available"
	}
	names := make([]string, len(avail))
	for i, f := range avail {
		names[i] = string(f)
	}
	return fmt.Sprintf("encoders: %s", strings.Join(names, ", "))
}
