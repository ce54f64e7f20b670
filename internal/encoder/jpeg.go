package encoder

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"os/exec"
	"sync"

	"github.com/disintegration/imaging"

	"github.com/chirag127/TinyImage/internal/codec"
)

// JPEGEncoder encodes baseline JPEG with the standard library and, when
// jpegtran is installed, rewrites the result as progressive with optimized
// Huffman tables. The rewrite is lossless, so quality is decided by the first
// pass alone.
type JPEGEncoder struct {
	once         sync.Once
	jpegtranPath string
}

func (e *JPEGEncoder) Format() codec.Format { return codec.FormatJPEG }
func (e *JPEGEncoder) Available() bool      { return true }

// Progressive reports whether jpegtran was found in PATH.
func (e *JPEGEncoder) Progressive() bool {
	e.once.Do(func() {
		if path, err := exec.LookPath("jpegtran"); err == nil {
			e.jpegtranPath = path
		}
	})
	return e.jpegtranPath != ""
}

func (e *JPEGEncoder) Encode(img image.Image, quality int) ([]byte, error) {
	var buf bytes.Buffer
	buf.Grow(256 * 1024) // pre-alloc 256KB, avoids repeated grow for typical photos

	if err := jpeg.Encode(&buf, flattenAlpha(img), &jpeg.Options{Quality: clampQuality(quality)}); err != nil {
		return nil, err
	}
	if !e.Progressive() {
		return buf.Bytes(), nil
	}

	out, err := e.optimize(buf.Bytes())
	if err != nil {
		// The baseline stream is still a valid result.
		return buf.Bytes(), nil
	}
	return out, nil
}

func (e *JPEGEncoder) optimize(data []byte) ([]byte, error) {
	cmd := exec.Command(e.jpegtranPath, "-copy", "none", "-optimize", "-progressive")
	cmd.Stdin = bytes.NewReader(data)
	var stdout, stderr bytes.Buffer
	stdout.Grow(len(data))
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("jpegtran: %w: %s", err, stderr.String())
	}
	if stdout.Len() == 0 {
		return nil, fmt.Errorf("jpegtran: empty output")
	}
	return stdout.Bytes(), nil
}

// flattenAlpha composites translucent images onto white; JPEG has no alpha
// channel and the encoder would otherwise keep the raw premultiplied colour.
func flattenAlpha(img image.Image) image.Image {
	if o, ok := img.(interface{ Opaque() bool }); ok && o.Opaque() {
		return img
	}
	b := img.Bounds()
	bg := imaging.New(b.Dx(), b.Dy(), color.White)
	return imaging.Overlay(bg, img, image.Pt(0, 0), 1.0)
}
