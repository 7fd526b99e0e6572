// Package csvout exports a finished JobProfile to CSV files: one
// per-process table and one timeline table.
package csvout

import (
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"memtrail/internal/profile"
)

// ErrTimelineNotTracked is returned when a timeline export is requested for
// a profile that was produced without timeline tracking.
var ErrTimelineNotTracked = errors.New("timeline tracking was not enabled for this run")

// ExportProcesses writes the per-process peak table. Rows with zero peak
// RSS are skipped; an optional filter note precedes the header.
func ExportProcesses(path string, p *profile.JobProfile) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create CSV file %s: %w", path, err)
	}
	defer f.Close()

	if p.Filter != nil && p.FilteredProcessCount != nil && p.FilteredTotalRSSKiB != nil {
		fmt.Fprintf(f, "# Filter: %s(%d processes filtered out, %d KiB total)\n",
			p.Filter.CSVComment(), *p.FilteredProcessCount, *p.FilteredTotalRSSKiB)
	}

	w := csv.NewWriter(f)
	if err := w.Write([]string{"pid", "ppid", "command", "max_rss_kib", "max_rss_mib", "first_seen", "last_seen"}); err != nil {
		return err
	}
	for _, proc := range p.Processes {
		if proc.MaxRSSKiB == 0 {
			continue
		}
		row := []string{
			strconv.FormatInt(int64(proc.PID), 10),
			strconv.FormatInt(int64(proc.PPID), 10),
			proc.Command,
			strconv.FormatUint(proc.MaxRSSKiB, 10),
			fmt.Sprintf("%.2f", float64(proc.MaxRSSKiB)/profile.KiBPerMiB),
			proc.FirstSeen.Format(time.RFC3339),
			proc.LastSeen.Format(time.RFC3339),
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

// ExportTimeline writes the time-series table. Calling it on a profile
// without a timeline is a contract violation and fails instead of writing
// an empty file.
func ExportTimeline(path string, p *profile.JobProfile) error {
	if p.Timeline == nil {
		return ErrTimelineNotTracked
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create timeline CSV file %s: %w", path, err)
	}
	defer f.Close()

	if p.Filter != nil {
		fmt.Fprintf(f, "# Filter: %s\n", p.Filter.CSVComment())
		fmt.Fprintln(f, "# Note: total_rss_kib and process_count cover all job processes (unfiltered)")
		fmt.Fprintln(f, "# Filtering only affects the per-process export and the final summary")
	}

	w := csv.NewWriter(f)
	if err := w.Write([]string{"timestamp", "elapsed_seconds", "total_rss_kib", "total_rss_mib", "process_count"}); err != nil {
		return err
	}
	for _, point := range p.Timeline {
		row := []string{
			point.Timestamp.Format(time.RFC3339),
			fmt.Sprintf("%.3f", point.ElapsedSeconds),
			strconv.FormatUint(point.TotalRSSKiB, 10),
			fmt.Sprintf("%.2f", float64(point.TotalRSSKiB)/profile.KiBPerMiB),
			strconv.Itoa(point.ProcessCount),
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}
