// Package report renders a finished JobProfile for humans and machines.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"memtrail/internal/profile"
)

const maxCommandWidth = 60

var (
	titleStyle = lipgloss.NewStyle().Bold(true)
	noteStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("244"))
	warnStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("203"))
)

// WriteSummary prints the human-readable run summary: totals, the
// per-process peak table and filter bookkeeping. Processes that never
// showed measurable RSS are hidden from the table.
func WriteSummary(w io.Writer, p *profile.JobProfile) {
	fmt.Fprintf(w, "\n%s %s\n", titleStyle.Render("Job:"), strings.Join(p.Command, " "))
	fmt.Fprintf(w, "Duration:        %s\n", FormatDuration(p.DurationSeconds))
	fmt.Fprintf(w, "Samples:         %d\n", p.Samples)
	if p.ExitCode != nil {
		fmt.Fprintf(w, "Exit code:       %d\n", *p.ExitCode)
	}
	fmt.Fprintln(w)

	valid := make([]profile.ProcessStats, 0, len(p.Processes))
	for _, proc := range p.Processes {
		if proc.MaxRSSKiB > 0 {
			valid = append(valid, proc)
		}
	}

	if p.MaxTotalRSSKiB == 0 || len(valid) == 0 {
		fmt.Fprintf(w, "Max total RSS:   %s (process exited too quickly to measure)\n", FormatMemory(p.MaxTotalRSSKiB))
		fmt.Fprintln(w, noteStyle.Render("\nNote: the command completed before memory could be sampled."))
		fmt.Fprintln(w, noteStyle.Render("For very short-running commands, try a shorter sampling interval (-i)."))
	} else {
		fmt.Fprintf(w, "Max total RSS:   %s\n", FormatMemory(p.MaxTotalRSSKiB))
		fmt.Fprintf(w, "Max per process: %s (pid %d)\n", FormatMemory(valid[0].MaxRSSKiB), valid[0].PID)

		fmt.Fprintf(w, "\n%s\n", titleStyle.Render("Per-process peak RSS:"))
		for _, proc := range valid {
			fmt.Fprintf(w, "  pid %5d  %10s  %s\n", proc.PID, FormatMemory(proc.MaxRSSKiB), truncate(proc.Command, maxCommandWidth))
		}
	}

	if p.Filter != nil {
		fmt.Fprintln(w)
		for _, line := range p.Filter.DisplayPatterns() {
			fmt.Fprintln(w, noteStyle.Render(line))
		}
		if p.FilteredProcessCount != nil && p.FilteredTotalRSSKiB != nil {
			fmt.Fprintln(w, warnStyle.Render(fmt.Sprintf(
				"Filtered out %d processes (%s peak RSS total)",
				*p.FilteredProcessCount, FormatMemory(*p.FilteredTotalRSSKiB))))
		}
	}
	fmt.Fprintln(w)
}

// WriteJSON prints the profile as indented JSON.
func WriteJSON(w io.Writer, p *profile.JobProfile) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(p)
}

// FormatMemory renders a KiB count as KiB, MiB or GiB with one decimal.
func FormatMemory(kib uint64) string {
	f := float64(kib)
	switch {
	case f >= profile.KiBPerGiB:
		return fmt.Sprintf("%.1f GiB", f/profile.KiBPerGiB)
	case f >= profile.KiBPerMiB:
		return fmt.Sprintf("%.1f MiB", f/profile.KiBPerMiB)
	default:
		return fmt.Sprintf("%d KiB", kib)
	}
}

// FormatDuration renders seconds as HH:MM:SS.
func FormatDuration(seconds float64) string {
	total := uint64(seconds)
	return fmt.Sprintf("%02d:%02d:%02d", total/3600, (total%3600)/60, total%60)
}

// truncate shortens s to at most width runes. Cutting on rune boundaries
// keeps multibyte command lines valid UTF-8.
func truncate(s string, width int) string {
	if len(s) <= width {
		return s
	}
	runes := []rune(s)
	if len(runes) <= width {
		return s
	}
	return string(runes[:width-3]) + "..."
}
