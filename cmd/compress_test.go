package cmd

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/chirag127/TinyImage/internal/batch"
	"github.com/chirag127/TinyImage/internal/report"
	"github.com/chirag127/TinyImage/internal/testimg"
)

func TestUniquePath(t *testing.T) {
	used := map[string]bool{}
	got := []string{
		uniquePath(used, "compressed_a.jpeg"),
		uniquePath(used, "compressed_a.jpeg"),
		uniquePath(used, "sub/compressed_a.jpeg"),
		uniquePath(used, "compressed_a.jpeg"),
	}
	want := []string{"compressed_a.jpeg", "compressed_a_2.jpeg", "sub/compressed_a.jpeg", "compressed_a_3.jpeg"}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("uniquePath #%d = %q, want %q", i, got[i], want[i])
		}
	}
}

func writeFile(t *testing.T, path string, data []byte) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}
}

// Flags are package state, so the whole CLI flow runs in one test.
func TestCompressValidateStats(t *testing.T) {
	in := t.TempDir()
	out := filepath.Join(t.TempDir(), "out")

	writeFile(t, filepath.Join(in, "a.png"), testimg.PNG(testimg.Photo(200, 100)))
	writeFile(t, filepath.Join(in, "a.jpg"), testimg.JPEG(testimg.Photo(200, 100), 95))
	writeFile(t, filepath.Join(in, "sub", "b.jpg"), testimg.JPEG(testimg.Gradient(120, 120), 95))
	writeFile(t, filepath.Join(in, "bad.png"), testimg.Corrupt(testimg.PNG(testimg.Gradient(20, 20))))
	writeFile(t, filepath.Join(in, "notes.txt"), []byte("not an image"))

	rootCmd.SetArgs([]string{"compress", in, "--out", out, "-q", "60", "--width", "50"})
	if err := rootCmd.Execute(); err != nil {
		t.Fatalf("compress: %v", err)
	}

	r, _, err := report.Load(out)
	if err != nil {
		t.Fatalf("load report: %v", err)
	}
	if r.Stats.Total != 4 || r.Stats.Completed != 3 || r.Stats.Failed != 1 {
		t.Fatalf("stats = %+v, want 4 total, 3 completed, 1 failed", r.Stats)
	}
	if r.Profile.Quality != 60 || r.Profile.Width != 50 || r.Preset != "default" {
		t.Errorf("profile = %+v (preset %q)", r.Profile, r.Preset)
	}

	paths := map[string]bool{}
	for _, e := range r.Entries {
		if e.Status == string(batch.StatusFailed) {
			if e.Source != "bad.png" || e.ErrorCode == "" {
				t.Errorf("unexpected failure entry %+v", e)
			}
			continue
		}
		if e.Output == nil {
			t.Fatalf("%s: completed without output", e.Source)
		}
		if e.Output.Width != 50 {
			t.Errorf("%s: width %d, want 50", e.Source, e.Output.Width)
		}
		paths[e.Output.Path] = true
	}
	for _, p := range []string{"compressed_a.jpeg", "compressed_a_2.jpeg", "sub/compressed_b.jpeg"} {
		if !paths[p] {
			t.Errorf("missing output %s in %v", p, paths)
		}
		if _, err := os.Stat(filepath.Join(out, filepath.FromSlash(p))); err != nil {
			t.Errorf("output file: %v", err)
		}
	}

	rootCmd.SetArgs([]string{"validate", out})
	if err := rootCmd.Execute(); err != nil {
		t.Fatalf("validate: %v", err)
	}
	rootCmd.SetArgs([]string{"stats", filepath.Join(out, report.FileName)})
	if err := rootCmd.Execute(); err != nil {
		t.Fatalf("stats: %v", err)
	}

	// Tampering with an output is caught.
	writeFile(t, filepath.Join(out, "sub", "compressed_b.jpeg"), []byte("tampered"))
	rootCmd.SetArgs([]string{"validate", out})
	if err := rootCmd.Execute(); err == nil {
		t.Fatal("validate should fail after an output was modified")
	}
}
