package transcode

import (
	"math"
	"strings"

	"github.com/chirag127/TinyImage/internal/codec"
)

// FitDimensions computes output dimensions for an origW x origH source and a
// boxW x boxH target, where a zero box dimension is unconstrained.
//
// With preserve set the result is the largest size with the source aspect
// ratio that fits inside the box, never larger than the source. Without it
// each given dimension is clamped to the source independently and a missing
// one keeps the source value. The result is never padded or cropped.
func FitDimensions(origW, origH, boxW, boxH int, preserve bool) (int, int) {
	if origW <= 0 || origH <= 0 {
		return origW, origH
	}
	if boxW <= 0 && boxH <= 0 {
		return origW, origH
	}

	if !preserve {
		w, h := origW, origH
		if boxW > 0 && boxW < origW {
			w = boxW
		}
		if boxH > 0 && boxH < origH {
			h = boxH
		}
		return w, h
	}

	sw, sh := math.Inf(1), math.Inf(1)
	if boxW > 0 {
		sw = float64(boxW) / float64(origW)
	}
	if boxH > 0 {
		sh = float64(boxH) / float64(origH)
	}
	if sw >= 1 && sh >= 1 {
		return origW, origH
	}

	if sw <= sh {
		return boxW, atLeastOne(math.Round(float64(origH) * sw))
	}
	return atLeastOne(math.Round(float64(origW) * sh)), boxH
}

func atLeastOne(v float64) int {
	if v < 1 {
		return 1
	}
	return int(v)
}

// SuggestedFilename names a download: compressed_<stem>.<ext>, where stem is
// the base name of name without its last extension, or "image" if empty.
// Only the last extension goes, so photo.final.jpg keeps its inner dot and
// becomes compressed_photo.final.jpeg rather than compressed_photo.jpeg.
func SuggestedFilename(name string, f codec.Format) string {
	if i := strings.LastIndexAny(name, `/\`); i >= 0 {
		name = name[i+1:]
	}
	stem := name
	if i := strings.LastIndexByte(name, '.'); i >= 0 {
		stem = name[:i]
	}
	stem = strings.TrimSpace(stem)
	if stem == "" {
		stem = "image"
	}
	return "compressed_" + stem + "." + f.Extension()
}
