// Package source collects image files named on the command line and buffers
// them as batch inputs.
package source

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"

	"github.com/chirag127/TinyImage/internal/codec"
)

// Source is a discovered image file.
type Source struct {
	// Path is the file on disk.
	Path string
	// RelPath is the path relative to the argument it was found under, with
	// forward slashes; for a file argument it is the base name.
	RelPath string
	// Size is the file size in bytes.
	Size int64
}

// Dir is the directory part of RelPath, or "" at the top level.
func (s Source) Dir() string {
	d := filepath.ToSlash(filepath.Dir(s.RelPath))
	if d == "." {
		return ""
	}
	return d
}

// imageExtensions lists extensions picked up when walking a directory.
var imageExtensions = map[string]bool{
	".png":  true,
	".jpg":  true,
	".jpeg": true,
	".webp": true,
}

// Collect expands paths into sources. Directories are walked recursively,
// skipping hidden directories and files without an image extension; files
// named directly are always included so the validator can report on them.
func Collect(paths []string) ([]Source, error) {
	var sources []Source
	seen := map[string]bool{}
	add := func(s Source) {
		if abs, err := filepath.Abs(s.Path); err == nil {
			if seen[abs] {
				return
			}
			seen[abs] = true
		}
		sources = append(sources, s)
	}

	for _, root := range paths {
		info, err := os.Stat(root)
		if err != nil {
			return nil, fmt.Errorf("stat %s: %w", root, err)
		}
		if !info.IsDir() {
			add(Source{Path: root, RelPath: filepath.Base(root), Size: info.Size()})
			continue
		}

		err = filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
			if err != nil {
				return err
			}
			if info.IsDir() {
				if path != root && strings.HasPrefix(info.Name(), ".") {
					return filepath.SkipDir
				}
				return nil
			}
			if !imageExtensions[strings.ToLower(filepath.Ext(path))] {
				return nil
			}
			rel, err := filepath.Rel(root, path)
			if err != nil {
				return err
			}
			add(Source{Path: path, RelPath: filepath.ToSlash(rel), Size: info.Size()})
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("scan %s: %w", root, err)
		}
	}
	return sources, nil
}

// Load buffers s as an ImageInput. At most maxBytes+1 bytes are read, enough
// for the validator to reject an oversized file without holding all of it.
// A non-positive maxBytes reads the whole file.
func Load(s Source, maxBytes int64) (codec.ImageInput, error) {
	f, err := os.Open(s.Path)
	if err != nil {
		return codec.ImageInput{}, fmt.Errorf("open %s: %w", s.RelPath, err)
	}
	defer f.Close()

	var r io.Reader = f
	if maxBytes > 0 {
		r = io.LimitReader(f, maxBytes+1)
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return codec.ImageInput{}, fmt.Errorf("read %s: %w", s.RelPath, err)
	}
	return codec.ImageInput{
		Data:     data,
		MIMEType: DetectMIME(data, ""),
		Filename: filepath.Base(s.Path),
	}, nil
}

// DetectMIME returns the declared media type, normalized, unless it is empty
// or generic, in which case the type is sniffed from data.
func DetectMIME(data []byte, declared string) string {
	declared = codec.NormalizeMIME(declared)
	if declared != "" && declared != "application/octet-stream" {
		return declared
	}
	if len(data) == 0 {
		return declared
	}
	return codec.NormalizeMIME(mimetype.Detect(data).String())
}
