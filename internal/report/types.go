// Package report describes the JSON summary written next to the outputs of a
// CLI compress run, and the checks run against it later.
package report

import "github.com/chirag127/TinyImage/internal/codec"

// FileName is the report's name inside the output directory.
const FileName = "tinyimage.report.json"

// SupportedVersion is the current schema version.
const SupportedVersion = 1

// Report is the top-level output of a compress run.
type Report struct {
	Version     int           `json:"version"`
	GeneratedAt string        `json:"generated_at"`
	Preset      string        `json:"preset,omitempty"`
	Profile     codec.Profile `json:"profile"`
	SessionID   string        `json:"session_id,omitempty"`
	BuildInfo   *BuildInfo    `json:"build_info,omitempty"`
	Entries     []Entry       `json:"entries"`
	Stats       Stats         `json:"stats"`
}

// BuildInfo captures run-time parameters for diagnostics.
type BuildInfo struct {
	Workers         int      `json:"workers"`
	Encoders        []string `json:"encoders"`
	ProgressiveJPEG bool     `json:"progressive_jpeg"`
}

// Entry is one source image and, when it compressed, its output file.
type Entry struct {
	Source    string   `json:"source"`
	Status    string   `json:"status"`
	ErrorCode string   `json:"error_code,omitempty"`
	Error     string   `json:"error,omitempty"`
	Original  Original `json:"original"`
	Output    *Output  `json:"output,omitempty"`
	// CompressionRatio is the percent saved, rounded to one decimal.
	CompressionRatio float64 `json:"compression_ratio"`
}

// Original holds metadata about the source image.
type Original struct {
	MIMEType string `json:"mime_type,omitempty"`
	Size     int64  `json:"size"`
	Width    int    `json:"width,omitempty"`
	Height   int    `json:"height,omitempty"`
}

// Output is the encoded file written for an entry.
type Output struct {
	Path     string `json:"path"` // relative to the report's directory
	MIMEType string `json:"mime_type"`
	Width    int    `json:"width"`
	Height   int    `json:"height"`
	Size     int64  `json:"size"`   // bytes on disk
	Digest   string `json:"digest"` // xxhash64, 16 hex chars
	Palette  bool   `json:"palette,omitempty"`
}

// Stats aggregates the run. Byte totals cover entries with an output only.
type Stats struct {
	TotalInputBytes  int64   `json:"total_input_bytes"`
	TotalOutputBytes int64   `json:"total_output_bytes"`
	SavingsPercent   float64 `json:"savings_percent"`
	Total            int     `json:"total"`
	Completed        int     `json:"completed"`
	Failed           int     `json:"failed"`
	Cancelled        int     `json:"cancelled"`
}
