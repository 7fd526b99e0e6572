package profile

import "time"

// Memory unit conversions. RSS is tracked in KiB everywhere; renderers
// convert for display.
const (
	KiBPerMiB = 1024.0
	KiBPerGiB = 1024.0 * 1024.0
)

// ProcessSample is one observation of a single process at one instant.
// Samples are produced by an inspector, consumed by the job-tree resolver
// and never persisted.
type ProcessSample struct {
	PID     int32
	PPID    int32
	RSSKiB  uint64
	Command string
}

// JobSnapshot is one sampling instant, restricted to processes inside the
// job tree. Immutable once built.
type JobSnapshot struct {
	Timestamp   time.Time
	TotalRSSKiB uint64
	Processes   []ProcessSample
}

// ProcessStats holds per-process statistics accumulated across the job
// lifetime. Command is fixed at first observation; MaxRSSKiB only rises.
type ProcessStats struct {
	PID       int32     `json:"pid"`
	PPID      int32     `json:"ppid"`
	Command   string    `json:"command"`
	MaxRSSKiB uint64    `json:"max_rss_kib"`
	FirstSeen time.Time `json:"first_seen"`
	LastSeen  time.Time `json:"last_seen"`
	// PeakTime is the timestamp of the sample that set the current peak.
	// It moves only on a strict increase, not on every observation.
	PeakTime time.Time `json:"peak_time"`
}

// TimelinePoint is one time-series entry, recorded per sampling iteration
// when timeline tracking is enabled.
type TimelinePoint struct {
	Timestamp      time.Time `json:"timestamp"`
	ElapsedSeconds float64   `json:"elapsed_seconds"`
	TotalRSSKiB    uint64    `json:"total_rss_kib"`
	ProcessCount   int       `json:"process_count"`
}

// JobProfile is the complete, immutable result of one profiled run. It is
// the only value renderers and exporters consume; nothing re-queries the OS.
type JobProfile struct {
	Command         []string        `json:"command"`
	StartTime       time.Time       `json:"start_time"`
	EndTime         time.Time       `json:"end_time"`
	DurationSeconds float64         `json:"duration_seconds"`
	IntervalMS      uint64          `json:"interval_ms"`
	MaxTotalRSSKiB  uint64          `json:"max_total_rss_kib"`
	Samples         int             `json:"samples"`
	Processes       []ProcessStats  `json:"processes"`
	Timeline        []TimelinePoint `json:"timeline,omitempty"`
	ExitCode        *int            `json:"exit_code,omitempty"`
	Filter          *FilterSpec     `json:"filter,omitempty"`
	// Bookkeeping for processes removed by the filter, so reports stay
	// honest about what was dropped.
	FilteredProcessCount *int    `json:"filtered_process_count,omitempty"`
	FilteredTotalRSSKiB  *uint64 `json:"filtered_total_rss_kib,omitempty"`
}
