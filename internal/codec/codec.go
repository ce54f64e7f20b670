// Package codec holds the value types shared by every stage of a transcode:
// the output format enum, the batch-wide codec profile and the buffered
// image input.
package codec

import (
	"fmt"
	"strings"
)

// Format is an output image format.
type Format string

const (
	FormatJPEG Format = "jpeg"
	FormatPNG  Format = "png"
	FormatWebP Format = "webp"
)

// Formats lists the supported output formats in display order.
var Formats = []Format{FormatJPEG, FormatPNG, FormatWebP}

// ParseFormat normalizes a user-supplied format name ("JPG", "jpeg", ".png").
func ParseFormat(s string) (Format, error) {
	switch strings.TrimPrefix(strings.ToLower(strings.TrimSpace(s)), ".") {
	case "jpeg", "jpg":
		return FormatJPEG, nil
	case "png":
		return FormatPNG, nil
	case "webp":
		return FormatWebP, nil
	default:
		return "", fmt.Errorf("unsupported format %q (supported: jpeg, png, webp)", s)
	}
}

// Valid reports whether f is one of the supported formats.
func (f Format) Valid() bool {
	switch f {
	case FormatJPEG, FormatPNG, FormatWebP:
		return true
	}
	return false
}

// MIMEType returns the IANA media type for f.
func (f Format) MIMEType() string {
	switch f {
	case FormatJPEG:
		return MIMEJPEG
	case FormatPNG:
		return MIMEPNG
	case FormatWebP:
		return MIMEWebP
	}
	return ""
}

// Extension returns the file extension (without dot) used for outputs.
func (f Format) Extension() string { return string(f) }

// Media types accepted as input.
const (
	MIMEJPEG = "image/jpeg"
	MIMEPNG  = "image/png"
	MIMEWebP = "image/webp"
)

// NormalizeMIME lowercases a declared media type, strips parameters and folds
// legacy JPEG aliases onto image/jpeg.
func NormalizeMIME(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	if i := strings.IndexByte(s, ';'); i >= 0 {
		s = strings.TrimSpace(s[:i])
	}
	switch s {
	case "image/jpg", "image/pjpeg":
		return MIMEJPEG
	}
	return s
}

// Profile is the output configuration applied to every image in a batch.
// Width and Height are optional; zero means "not constrained".
type Profile struct {
	Quality             int    `json:"quality"`
	Format              Format `json:"format"`
	Width               int    `json:"width,omitempty"`
	Height              int    `json:"height,omitempty"`
	PreserveAspectRatio bool   `json:"preserveAspectRatio"`
}

// DefaultProfile matches the out-of-the-box settings of the web front-end.
func DefaultProfile() Profile {
	return Profile{
		Quality:             80,
		Format:              FormatJPEG,
		PreserveAspectRatio: true,
	}
}

// Resizes reports whether the profile constrains output dimensions.
func (p Profile) Resizes() bool { return p.Width > 0 || p.Height > 0 }

func (p Profile) String() string {
	s := fmt.Sprintf("%s q=%d", p.Format, p.Quality)
	if p.Resizes() {
		s += fmt.Sprintf(" box=%dx%d", p.Width, p.Height)
		if !p.PreserveAspectRatio {
			s += " stretch"
		}
	}
	return s
}

// ImageInput is one fully buffered source image. It is never mutated once
// handed to a batch.
type ImageInput struct {
	// ID optionally pins the job id; empty lets the orchestrator assign one.
	ID       string
	Data     []byte
	MIMEType string
	Filename string
}

// Size is the input length in bytes.
func (in ImageInput) Size() int64 { return int64(len(in.Data)) }
