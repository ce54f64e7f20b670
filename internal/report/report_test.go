package report

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/chirag127/TinyImage/internal/batch"
	"github.com/chirag127/TinyImage/internal/codec"
	"github.com/chirag127/TinyImage/internal/errs"
	"github.com/chirag127/TinyImage/internal/hasher"
)

func writeFixture(t *testing.T) (string, *Report) {
	t.Helper()
	dir := t.TempDir()
	out := []byte("pretend these are jpeg bytes")
	if err := os.WriteFile(filepath.Join(dir, "compressed_cat.jpeg"), out, 0o644); err != nil {
		t.Fatal(err)
	}

	now := time.Now()
	r := New("web", codec.DefaultProfile())
	r.BuildInfo = &BuildInfo{Workers: 2, Encoders: []string{"jpeg", "png"}}
	r.Entries = []Entry{
		EntryFromJob("in/cat.png", batch.Job{
			Status:           batch.StatusCompleted,
			MIMEType:         codec.MIMEPNG,
			OriginalSize:     1000,
			CompressedSize:   int64(len(out)),
			CompressionRatio: 97.2,
			OriginalWidth:    40,
			OriginalHeight:   30,
			Width:            40,
			Height:           30,
			OutputMIMEType:   codec.MIMEJPEG,
			Digest:           hasher.Digest(out),
			FinishedAt:       &now,
		}, "compressed_cat.jpeg"),
		EntryFromJob("in/huge.jpg", batch.Job{
			Status:    batch.StatusFailed,
			ErrorCode: errs.CodeTooLarge,
			Error:     "image is 12.0 MB, limit is 10.0 MB",
		}, ""),
	}
	if err := WriteJSON(r, filepath.Join(dir, FileName)); err != nil {
		t.Fatalf("write: %v", err)
	}
	return dir, r
}

func TestReportRoundtrip(t *testing.T) {
	dir, _ := writeFixture(t)

	r, path, err := Load(dir)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if path != filepath.Join(dir, FileName) {
		t.Errorf("resolved path %s", path)
	}
	if r.Version != SupportedVersion {
		t.Errorf("version: got %d, want %d", r.Version, SupportedVersion)
	}
	if r.Preset != "web" || r.Profile.Quality != 80 || r.Profile.Format != codec.FormatJPEG {
		t.Errorf("preset/profile: %q %+v", r.Preset, r.Profile)
	}
	if r.BuildInfo == nil || r.BuildInfo.Workers != 2 {
		t.Fatalf("build_info: %+v", r.BuildInfo)
	}
	if len(r.Entries) != 2 {
		t.Fatalf("entries: got %d", len(r.Entries))
	}
	if r.Entries[1].Output != nil || r.Entries[1].ErrorCode != "TOO_LARGE" {
		t.Errorf("failed entry: %+v", r.Entries[1])
	}

	s := r.Stats
	if s.Total != 2 || s.Completed != 1 || s.Failed != 1 {
		t.Errorf("counts: %+v", s)
	}
	if s.TotalInputBytes != 1000 || s.TotalOutputBytes != 28 || s.SavingsPercent != 97.2 {
		t.Errorf("bytes: %+v", s)
	}
}

func TestVerifyClean(t *testing.T) {
	dir, _ := writeFixture(t)
	r, _, err := Load(dir)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if problems := Verify(r, dir); len(problems) != 0 {
		t.Fatalf("unexpected problems: %v", problems)
	}
}

func TestVerifyDetectsTampering(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(t *testing.T, dir string, r *Report)
		want   string
	}{
		{"rewritten output", func(t *testing.T, dir string, _ *Report) {
			if err := os.WriteFile(filepath.Join(dir, "compressed_cat.jpeg"), []byte("pretend these are jpeg bytez"), 0o644); err != nil {
				t.Fatal(err)
			}
		}, "digest mismatch"},
		{"truncated output", func(t *testing.T, dir string, _ *Report) {
			if err := os.WriteFile(filepath.Join(dir, "compressed_cat.jpeg"), []byte("short"), 0o644); err != nil {
				t.Fatal(err)
			}
		}, "size mismatch"},
		{"missing output", func(t *testing.T, dir string, _ *Report) {
			if err := os.Remove(filepath.Join(dir, "compressed_cat.jpeg")); err != nil {
				t.Fatal(err)
			}
		}, "output not found"},
		{"stale stats", func(_ *testing.T, _ string, r *Report) {
			r.Stats.TotalOutputBytes++
		}, "stats mismatch"},
		{"wrong version", func(_ *testing.T, _ string, r *Report) {
			r.Version = 7
		}, "unsupported report version"},
		{"completed without output", func(_ *testing.T, _ string, r *Report) {
			r.Entries[0].Output = nil
			r.ComputeStats()
		}, "completed without an output"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir, _ := writeFixture(t)
			r, _, err := Load(dir)
			if err != nil {
				t.Fatalf("load: %v", err)
			}
			tt.mutate(t, dir, r)
			problems := Verify(r, dir)
			found := false
			for _, p := range problems {
				if strings.Contains(p, tt.want) {
					found = true
				}
			}
			if !found {
				t.Fatalf("problems %v, want one containing %q", problems, tt.want)
			}
		})
	}
}

func TestLoadErrors(t *testing.T) {
	dir := t.TempDir()
	if _, _, err := Load(filepath.Join(dir, "absent.json")); err == nil {
		t.Fatal("expected error for missing file")
	}
	bad := filepath.Join(dir, FileName)
	if err := os.WriteFile(bad, []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, _, err := Load(dir); err == nil || !strings.Contains(err.Error(), "parse report") {
		t.Fatalf("got %v, want parse error", err)
	}
}
