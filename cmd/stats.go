package cmd

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/chirag127/TinyImage/internal/batch"
	"github.com/chirag127/TinyImage/internal/report"
)

var statsTop int

var statsCmd = &cobra.Command{
	Use:   "stats <out_dir_or_report>",
	Short: "Display statistics for a compress output directory",
	Args:  cobra.ExactArgs(1),
	RunE:  runStats,
}

func init() {
	statsCmd.Flags().IntVar(&statsTop, "top", 10, "number of heaviest images to list")
	rootCmd.AddCommand(statsCmd)
}

func runStats(_ *cobra.Command, args []string) error {
	r, _, err := report.Load(args[0])
	if err != nil {
		return err
	}
	printStats(r)
	return nil
}

func printStats(r *report.Report) {
	fmt.Println()
	fmt.Printf("  Report version:   %d\n", r.Version)
	fmt.Printf("  Generated:        %s\n", r.GeneratedAt)
	if r.Preset != "" {
		fmt.Printf("  Preset:           %s\n", r.Preset)
	}
	fmt.Printf("  Profile:          %s\n", r.Profile)
	if r.BuildInfo != nil {
		fmt.Printf("  Workers:          %d\n", r.BuildInfo.Workers)
		fmt.Printf("  Encoders:         %v\n", r.BuildInfo.Encoders)
		fmt.Printf("  Progressive JPEG: %t\n", r.BuildInfo.ProgressiveJPEG)
	}
	fmt.Println()

	s := r.Stats
	fmt.Printf("  Total images:     %d\n", s.Total)
	fmt.Printf("  Compressed:       %d\n", s.Completed)
	fmt.Printf("  Failed:           %d\n", s.Failed)
	if s.Cancelled > 0 {
		fmt.Printf("  Cancelled:        %d\n", s.Cancelled)
	}
	fmt.Printf("  Input size:       %s\n", formatBytes(s.TotalInputBytes))
	fmt.Printf("  Output size:      %s\n", formatBytes(s.TotalOutputBytes))
	fmt.Printf("  Saved:            %.1f%%\n", s.SavingsPercent)
	fmt.Println()

	// Per-format breakdown.
	type formatStat struct {
		count int
		bytes int64
	}
	formatStats := map[string]formatStat{}
	palettes := 0
	for _, e := range r.Entries {
		if e.Output == nil {
			continue
		}
		fs := formatStats[e.Output.MIMEType]
		fs.count++
		fs.bytes += e.Output.Size
		formatStats[e.Output.MIMEType] = fs
		if e.Output.Palette {
			palettes++
		}
	}
	if len(formatStats) > 0 {
		mimes := make([]string, 0, len(formatStats))
		for m := range formatStats {
			mimes = append(mimes, m)
		}
		sort.Strings(mimes)
		fmt.Println("  Format breakdown:")
		for _, m := range mimes {
			fs := formatStats[m]
			fmt.Printf("    %-11s  %4d files  %s\n", m, fs.count, formatBytes(fs.bytes))
		}
		if palettes > 0 {
			fmt.Printf("    (%d indexed-colour PNGs)\n", palettes)
		}
		fmt.Println()
	}

	printHeaviest(r.Entries, statsTop)

	// Warnings.
	var warnings []string
	for _, e := range r.Entries {
		switch batch.Status(e.Status) {
		case batch.StatusFailed:
			warnings = append(warnings, fmt.Sprintf("%s failed: [%s] %s", e.Source, e.ErrorCode, e.Error))
		case batch.StatusCompleted:
			if e.CompressionRatio <= 0 {
				warnings = append(warnings, fmt.Sprintf("%s did not shrink (%.1f%%)", e.Source, e.CompressionRatio))
			}
		}
	}
	if len(warnings) > 0 {
		fmt.Printf("  Warnings (%d):\n", len(warnings))
		for _, w := range warnings {
			fmt.Printf("    ⚠ %s\n", w)
		}
		fmt.Println()
	}
}
