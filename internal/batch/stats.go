package batch

import "github.com/chirag127/TinyImage/internal/transcode"

// Stats aggregates a batch. Byte totals and savings cover completed jobs only.
type Stats struct {
	TotalOriginalSize     int64   `json:"totalOriginalSize"`
	TotalCompressedSize   int64   `json:"totalCompressedSize"`
	OverallSavingsPercent float64 `json:"overallSavingsPercent"`

	Total      int `json:"total"`
	Pending    int `json:"pending"`
	Processing int `json:"processing"`
	Completed  int `json:"completed"`
	Failed     int `json:"failed"`
	Cancelled  int `json:"cancelled"`
}

// Finished reports whether every job has reached a terminal state.
func (s Stats) Finished() bool {
	return s.Pending == 0 && s.Processing == 0
}

// Aggregate computes stats from job snapshots. It has no side effects, so
// calling it repeatedly on the same snapshot yields the same result.
func Aggregate(jobs []Job) Stats {
	var s Stats
	s.Total = len(jobs)
	for _, j := range jobs {
		switch j.Status {
		case StatusPending:
			s.Pending++
		case StatusProcessing:
			s.Processing++
		case StatusCompleted:
			s.Completed++
			s.TotalOriginalSize += j.OriginalSize
			s.TotalCompressedSize += j.CompressedSize
		case StatusFailed:
			s.Failed++
		case StatusCancelled:
			s.Cancelled++
		}
	}
	s.OverallSavingsPercent = transcode.Ratio(s.TotalOriginalSize, s.TotalCompressedSize)
	return s
}
