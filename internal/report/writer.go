package report

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/chirag127/TinyImage/internal/batch"
	"github.com/chirag127/TinyImage/internal/codec"
	"github.com/chirag127/TinyImage/internal/transcode"
)

// New creates an empty report for one run.
func New(preset string, p codec.Profile) *Report {
	return &Report{
		Version:     SupportedVersion,
		GeneratedAt: time.Now().UTC().Format(time.RFC3339),
		Preset:      preset,
		Profile:     p,
	}
}

// EntryFromJob converts a finished job into a report entry. outPath is the
// output file relative to the report directory, or "" when none was written.
func EntryFromJob(source string, j batch.Job, outPath string) Entry {
	e := Entry{
		Source:    source,
		Status:    string(j.Status),
		ErrorCode: string(j.ErrorCode),
		Error:     j.Error,
		Original: Original{
			MIMEType: j.MIMEType,
			Size:     j.OriginalSize,
			Width:    j.OriginalWidth,
			Height:   j.OriginalHeight,
		},
		CompressionRatio: j.CompressionRatio,
	}
	if j.Status == batch.StatusCompleted && outPath != "" {
		e.Output = &Output{
			Path:     filepath.ToSlash(outPath),
			MIMEType: j.OutputMIMEType,
			Width:    j.Width,
			Height:   j.Height,
			Size:     j.CompressedSize,
			Digest:   j.Digest,
			Palette:  j.Palette,
		}
	}
	return e
}

// ComputeStats recalculates aggregate statistics from entries.
func (r *Report) ComputeStats() {
	r.Stats = computeStats(r.Entries)
}

func computeStats(entries []Entry) Stats {
	var s Stats
	s.Total = len(entries)
	for _, e := range entries {
		switch batch.Status(e.Status) {
		case batch.StatusCompleted:
			s.Completed++
		case batch.StatusFailed:
			s.Failed++
		case batch.StatusCancelled:
			s.Cancelled++
		}
		if e.Output != nil {
			s.TotalInputBytes += e.Original.Size
			s.TotalOutputBytes += e.Output.Size
		}
	}
	s.SavingsPercent = transcode.Ratio(s.TotalInputBytes, s.TotalOutputBytes)
	return s
}

// WriteJSON serializes the report with recomputed stats.
func WriteJSON(r *Report, path string) error {
	r.ComputeStats()

	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}
	data = append(data, '\n')
	return os.WriteFile(path, data, 0o644)
}

// Load reads a report from path, or from FileName inside path when it is a
// directory. It returns the resolved file path alongside the report.
func Load(path string) (*Report, string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, "", fmt.Errorf("stat %s: %w", path, err)
	}
	if info.IsDir() {
		path = filepath.Join(path, FileName)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, "", fmt.Errorf("read report: %w", err)
	}
	var r Report
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, "", fmt.Errorf("parse report: %w", err)
	}
	return &r, path, nil
}
