package batch

import (
	"context"
	"errors"
	"time"

	"github.com/chirag127/TinyImage/internal/codec"
	"github.com/chirag127/TinyImage/internal/errs"
	"github.com/chirag127/TinyImage/internal/transcode"
)

// Status is the lifecycle state of one job.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
	StatusCancelled  Status = "cancelled"
)

// Terminal reports whether no further transition can leave s.
func (s Status) Terminal() bool {
	switch s {
	case StatusCompleted, StatusFailed, StatusCancelled:
		return true
	}
	return false
}

// canTransition enforces the job state machine edges.
func canTransition(from, to Status) bool {
	switch from {
	case StatusPending:
		return to == StatusProcessing || to == StatusCancelled
	case StatusProcessing:
		return to == StatusCompleted || to == StatusFailed
	default:
		return false
	}
}

// Job is an immutable snapshot of one transcode job. Metrics are only set
// once the job has completed.
type Job struct {
	ID       string `json:"id"`
	Index    int    `json:"index"`
	Filename string `json:"filename,omitempty"`
	MIMEType string `json:"mimeType,omitempty"`
	Status   Status `json:"status"`

	ErrorCode errs.Code `json:"errorCode,omitempty"`
	Error     string    `json:"error,omitempty"`

	OriginalSize     int64   `json:"originalSize"`
	CompressedSize   int64   `json:"compressedSize"`
	CompressionRatio float64 `json:"compressionRatio"`
	OriginalWidth    int     `json:"originalWidth,omitempty"`
	OriginalHeight   int     `json:"originalHeight,omitempty"`
	Width            int     `json:"width,omitempty"`
	Height           int     `json:"height,omitempty"`
	OutputMIMEType   string  `json:"outputMimeType,omitempty"`
	OutputFilename   string  `json:"outputFilename,omitempty"`
	Digest           string  `json:"digest,omitempty"`
	Palette          bool    `json:"palette,omitempty"`
	Released         bool    `json:"released,omitempty"`

	CreatedAt  time.Time  `json:"createdAt"`
	StartedAt  *time.Time `json:"startedAt,omitempty"`
	FinishedAt *time.Time `json:"finishedAt,omitempty"`
}

// Duration is the processing time of a finished job, or 0.
func (j Job) Duration() time.Duration {
	if j.StartedAt == nil || j.FinishedAt == nil {
		return 0
	}
	return j.FinishedAt.Sub(*j.StartedAt)
}

func newJob(id string, index int, in codec.ImageInput, now time.Time) Job {
	return Job{
		ID:        id,
		Index:     index,
		Filename:  in.Filename,
		MIMEType:  in.MIMEType,
		Status:    StatusPending,
		CreatedAt: now,
	}
}

// completed returns a copy of j carrying out's metrics.
func (j Job) completed(out *transcode.Output, f codec.Format, now time.Time) Job {
	j.Status = StatusCompleted
	j.OriginalSize = out.OriginalSize
	j.CompressedSize = out.CompressedSize
	j.CompressionRatio = out.CompressionRatio
	j.OriginalWidth = out.OriginalWidth
	j.OriginalHeight = out.OriginalHeight
	j.Width = out.Width
	j.Height = out.Height
	j.OutputMIMEType = out.MIMEType
	j.OutputFilename = transcode.SuggestedFilename(j.Filename, f)
	j.Digest = out.Digest
	j.Palette = out.Palette
	j.FinishedAt = &now
	return j
}

// failed returns a copy of j with zeroed metrics and the failure recorded.
// A job whose session context ended mid-transcode is CANCELLED, not a codec
// failure.
func (j Job) failed(err error, now time.Time) Job {
	code := errs.CodeOf(err)
	msg := err.Error()
	switch {
	case code != "":
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		code = errs.CodeCancelled
		msg = "cancelled while processing"
	default:
		code = errs.CodeEncode
	}
	return Job{
		ID:         j.ID,
		Index:      j.Index,
		Filename:   j.Filename,
		MIMEType:   j.MIMEType,
		Status:     StatusFailed,
		ErrorCode:  code,
		Error:      msg,
		CreatedAt:  j.CreatedAt,
		StartedAt:  j.StartedAt,
		FinishedAt: &now,
	}
}
