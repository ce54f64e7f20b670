package report

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/chirag127/TinyImage/internal/hasher"
)

// Verify checks r against the files under baseDir and returns one message per
// problem found.
func Verify(r *Report, baseDir string) []string {
	var problems []string

	if r.Version != SupportedVersion {
		problems = append(problems, fmt.Sprintf("unsupported report version: %d", r.Version))
	}

	seenPaths := map[string]bool{}
	for i, e := range r.Entries {
		name := e.Source
		if name == "" {
			name = fmt.Sprintf("entry[%d]", i)
		}

		if e.Status == "completed" && e.Output == nil {
			problems = append(problems, fmt.Sprintf("%s: completed without an output", name))
		}
		if e.Status == "failed" && e.ErrorCode == "" {
			problems = append(problems, fmt.Sprintf("%s: failed without an error code", name))
		}
		if e.Output == nil {
			continue
		}

		o := e.Output
		if o.Width <= 0 || o.Height <= 0 {
			problems = append(problems, fmt.Sprintf("%s: invalid output dimensions %dx%d", name, o.Width, o.Height))
		}
		if o.Path == "" {
			problems = append(problems, fmt.Sprintf("%s: missing output path", name))
			continue
		}
		if seenPaths[o.Path] {
			problems = append(problems, fmt.Sprintf("%s: duplicate output path %q", name, o.Path))
		}
		seenPaths[o.Path] = true

		data, err := os.ReadFile(filepath.Join(baseDir, filepath.FromSlash(o.Path)))
		if err != nil {
			problems = append(problems, fmt.Sprintf("%s: output not found: %s", name, o.Path))
			continue
		}
		if int64(len(data)) != o.Size {
			problems = append(problems, fmt.Sprintf("%s: size mismatch: report=%d, disk=%d", name, o.Size, len(data)))
		}
		if d := hasher.Digest(data); d != o.Digest {
			problems = append(problems, fmt.Sprintf("%s: digest mismatch: report=%s, disk=%s", name, o.Digest, d))
		}
	}

	want := computeStats(r.Entries)
	if r.Stats != want {
		problems = append(problems, fmt.Sprintf("stats mismatch: report=%+v, computed=%+v", r.Stats, want))
	}
	return problems
}
