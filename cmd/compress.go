package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/chirag127/TinyImage/internal/batch"
	"github.com/chirag127/TinyImage/internal/codec"
	"github.com/chirag127/TinyImage/internal/encoder"
	"github.com/chirag127/TinyImage/internal/hasher"
	"github.com/chirag127/TinyImage/internal/profile"
	"github.com/chirag127/TinyImage/internal/report"
	"github.com/chirag127/TinyImage/internal/source"
	"github.com/chirag127/TinyImage/internal/transcode"
	"github.com/chirag127/TinyImage/internal/validate"
)

var (
	compressOutDir    string
	compressPreset    string
	compressQuality   int
	compressFormat    string
	compressWidth     int
	compressHeight    int
	compressNoAspect  bool
	compressWorkers   int
	compressMaxSize   int64
	compressMaxFiles  int
	compressMaxPixels int64
)

var compressCmd = &cobra.Command{
	Use:   "compress <file|dir>...",
	Short: "Compress images and write the results with a JSON report",
	Long: `Collects the named files and every png, jpg, jpeg and webp file under the
named directories, re-encodes them with one shared profile and writes
compressed_<name>.<format> files plus tinyimage.report.json to the output
directory. Subdirectories are mirrored.

A preset supplies the starting profile; --quality, --format, --width,
--height and --no-aspect override it.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runCompress,
}

var presetsCmd = &cobra.Command{
	Use:   "presets",
	Short: "List the built-in compression presets",
	Args:  cobra.NoArgs,
	Run: func(_ *cobra.Command, _ []string) {
		for _, p := range profile.All() {
			fmt.Printf("  %-14s %-12s %s\n", p.Name, p.Profile.String(), p.Description)
		}
	},
}

func init() {
	f := compressCmd.Flags()
	f.StringVarP(&compressOutDir, "out", "o", "./tinyimage_out", "output directory")
	f.StringVarP(&compressPreset, "preset", "p", profile.DefaultName, "starting profile (see: tinyimage presets)")
	f.IntVarP(&compressQuality, "quality", "q", 0, "quality 1-100 (overrides preset)")
	f.StringVarP(&compressFormat, "format", "f", "", "output format: jpeg, png or webp (overrides preset)")
	f.IntVar(&compressWidth, "width", 0, "fit inside this width (0 = unconstrained)")
	f.IntVar(&compressHeight, "height", 0, "fit inside this height (0 = unconstrained)")
	f.BoolVar(&compressNoAspect, "no-aspect", false, "clamp width and height independently instead of keeping the aspect ratio")
	f.IntVarP(&compressWorkers, "workers", "w", 0, "parallel workers (0 = NumCPU)")
	f.Int64Var(&compressMaxSize, "max-size", validate.DefaultMaxBytes, "per-image size limit in bytes")
	f.IntVar(&compressMaxFiles, "max-files", validate.DefaultMaxImages, "images per run (0 = unlimited)")
	f.Int64Var(&compressMaxPixels, "max-pixels", transcode.DefaultMaxPixels, "reject sources above this many pixels")
	rootCmd.AddCommand(compressCmd, presetsCmd)
}

// resolveProfile starts from the preset and applies only the flags the user
// actually set.
func resolveProfile(cmd *cobra.Command) (codec.Profile, error) {
	preset, err := profile.Get(compressPreset)
	if err != nil {
		return codec.Profile{}, err
	}
	p := preset.Profile
	flags := cmd.Flags()
	if flags.Changed("quality") {
		p.Quality = compressQuality
	}
	if flags.Changed("format") {
		f, err := codec.ParseFormat(compressFormat)
		if err != nil {
			return p, err
		}
		p.Format = f
	}
	if flags.Changed("width") {
		p.Width = compressWidth
	}
	if flags.Changed("height") {
		p.Height = compressHeight
	}
	if flags.Changed("no-aspect") {
		p.PreserveAspectRatio = !compressNoAspect
	}
	return p, validate.Profile(p)
}

func runCompress(cmd *cobra.Command, args []string) error {
	start := time.Now()
	logger := newLogger(slog.LevelWarn)

	p, err := resolveProfile(cmd)
	if err != nil {
		return fmt.Errorf("profile: %w", err)
	}
	absOutput, err := filepath.Abs(compressOutDir)
	if err != nil {
		return fmt.Errorf("resolve output path: %w", err)
	}
	workers := compressWorkers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	limits := validate.Limits{MaxBytes: compressMaxSize, MaxImages: compressMaxFiles}.WithDefaults()

	sources, err := source.Collect(args)
	if err != nil {
		return err
	}
	if len(sources) == 0 {
		return fmt.Errorf("no images found in %s", strings.Join(args, ", "))
	}

	registry := encoder.NewRegistry()
	logVerbose("output:  %s", absOutput)
	logVerbose("profile: %s (preset %s)", p, compressPreset)
	logVerbose("%s", registry)
	logVerbose("found %d images", len(sources))

	images := make([]codec.ImageInput, len(sources))
	for i, s := range sources {
		if images[i], err = source.Load(s, limits.MaxBytes); err != nil {
			return err
		}
	}

	engine := transcode.New(transcode.Options{MaxPixels: compressMaxPixels, Registry: registry})
	orch := batch.New(engine, batch.Options{Workers: workers, Logger: logger})
	defer orch.Shutdown(context.Background())

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	sess, err := orch.Submit(ctx, images, p, limits)
	if err != nil {
		return fmt.Errorf("submit: %w", err)
	}
	if err := sess.Wait(ctx); err != nil {
		n := sess.Cancel()
		fmt.Fprintf(os.Stderr, "[tinyimage] interrupted: cancelled %d pending images, finishing in-flight ones\n", n)
		_ = sess.Wait(context.Background())
	}

	if err := os.MkdirAll(absOutput, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	r := report.New(compressPreset, p)
	r.SessionID = sess.ID
	r.BuildInfo = &report.BuildInfo{
		Workers:         workers,
		Encoders:        formatNames(registry.Available()),
		ProgressiveJPEG: jpegProgressive(registry),
	}

	used := map[string]bool{}
	for i, job := range sess.Jobs() {
		src := sources[i]
		var rel string
		if job.Status == batch.StatusCompleted {
			rel = uniquePath(used, path.Join(src.Dir(), job.OutputFilename))
			if err := writeOutput(sess, job, filepath.Join(absOutput, filepath.FromSlash(rel))); err != nil {
				return err
			}
		} else if job.Status == batch.StatusFailed {
			fmt.Fprintf(os.Stderr, "[tinyimage] error: %s: %s\n", src.RelPath, job.Error)
		}
		r.Entries = append(r.Entries, report.EntryFromJob(src.RelPath, job, rel))
	}

	reportPath := filepath.Join(absOutput, report.FileName)
	if err := report.WriteJSON(r, reportPath); err != nil {
		return fmt.Errorf("write report: %w", err)
	}

	printCompressReport(r, time.Since(start))

	if r.Stats.Completed == 0 {
		return fmt.Errorf("all %d images failed to compress", r.Stats.Total)
	}
	return nil
}

// uniquePath suffixes rel with _2, _3, ... until it has not been used, so
// a.png and a.jpg in one directory do not overwrite each other.
func uniquePath(used map[string]bool, rel string) string {
	candidate := rel
	ext := path.Ext(rel)
	for n := 2; used[candidate]; n++ {
		candidate = fmt.Sprintf("%s_%d%s", strings.TrimSuffix(rel, ext), n, ext)
	}
	used[candidate] = true
	return candidate
}

// writeOutput writes a completed job's bytes and releases them from the
// session.
func writeOutput(sess *batch.Session, job batch.Job, dst string) error {
	_, data, err := sess.Output(job.ID)
	if err != nil {
		return fmt.Errorf("output %s: %w", job.Filename, err)
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	if err := os.WriteFile(dst, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", dst, err)
	}
	logVerbose("done: %s -> %s (%.1f%%, xxh %s)", job.Filename, dst, job.CompressionRatio, hasher.Short(data, 8))
	return sess.Release(job.ID)
}

func jpegProgressive(r *encoder.Registry) bool {
	enc, ok := r.Get(codec.FormatJPEG)
	if !ok {
		return false
	}
	j, ok := enc.(*encoder.JPEGEncoder)
	return ok && j.Progressive()
}

func formatNames(formats []codec.Format) []string {
	out := make([]string, len(formats))
	for i, f := range formats {
		out[i] = string(f)
	}
	return out
}

func printCompressReport(r *report.Report, elapsed time.Duration) {
	fmt.Println()
	fmt.Println("╔══════════════════════════════════════════════════╗")
	fmt.Println("║            tinyimage compress complete           ║")
	fmt.Println("╚══════════════════════════════════════════════════╝")
	fmt.Println()

	s := r.Stats
	fmt.Printf("  Images:      %d (%d compressed, %d failed", s.Total, s.Completed, s.Failed)
	if s.Cancelled > 0 {
		fmt.Printf(", %d cancelled", s.Cancelled)
	}
	fmt.Println(")")
	fmt.Printf("  Profile:     %s\n", r.Profile)
	fmt.Printf("  Input size:  %s\n", formatBytes(s.TotalInputBytes))
	fmt.Printf("  Output size: %s\n", formatBytes(s.TotalOutputBytes))
	fmt.Printf("  Saved:       %.1f%%\n", s.SavingsPercent)
	fmt.Printf("  Time:        %s\n", elapsed.Round(time.Millisecond))
	if r.BuildInfo != nil {
		fmt.Printf("  Workers:     %d\n", r.BuildInfo.Workers)
	}
	fmt.Println()

	printHeaviest(r.Entries, 10)

	fmt.Printf("  Report:      %s\n", report.FileName)
	fmt.Println()
}

// printHeaviest lists the largest compressed sources with their savings.
func printHeaviest(entries []report.Entry, limit int) {
	var items []report.Entry
	for _, e := range entries {
		if e.Output != nil {
			items = append(items, e)
		}
	}
	if len(items) == 0 {
		return
	}
	sort.Slice(items, func(i, j int) bool {
		return items[i].Original.Size > items[j].Original.Size
	})
	if len(items) > limit {
		items = items[:limit]
	}
	fmt.Printf("  Top %d heaviest (original → compressed):\n", len(items))
	for _, it := range items {
		fmt.Printf("    %-40s %8s → %8s  (%.1f%%)\n",
			truncKey(it.Source, 40),
			formatBytes(it.Original.Size),
			formatBytes(it.Output.Size),
			it.CompressionRatio,
		)
	}
	fmt.Println()
}

func formatBytes(b int64) string {
	switch {
	case b >= 1<<20:
		return fmt.Sprintf("%.1f MB", float64(b)/(1<<20))
	case b >= 1<<10:
		return fmt.Sprintf("%.1f KB", float64(b)/(1<<10))
	default:
		return fmt.Sprintf("%d B", b)
	}
}

func truncKey(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return "..." + s[len(s)-max+3:]
}
