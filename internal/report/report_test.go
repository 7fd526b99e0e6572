package report

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"memtrail/internal/profile"
)

func TestFormatMemory(t *testing.T) {
	assert.Equal(t, "512 KiB", FormatMemory(512))
	assert.Equal(t, "1.0 MiB", FormatMemory(1024))
	assert.Equal(t, "2.0 MiB", FormatMemory(2048))
	assert.Equal(t, "1.0 GiB", FormatMemory(1024*1024))
	assert.Equal(t, "2.0 GiB", FormatMemory(1024*1024*2))
	assert.Equal(t, "1.5 GiB", FormatMemory(1536*1024))
}

func TestFormatDuration(t *testing.T) {
	assert.Equal(t, "00:00:00", FormatDuration(0))
	assert.Equal(t, "00:00:59", FormatDuration(59.5))
	assert.Equal(t, "00:01:00", FormatDuration(60))
	assert.Equal(t, "01:01:01", FormatDuration(3661))
	assert.Equal(t, "02:03:04", FormatDuration(7384))
}

func sampleProfile() *profile.JobProfile {
	start := time.Date(2026, 8, 30, 10, 0, 0, 0, time.UTC)
	return &profile.JobProfile{
		Command:         []string{"make", "-j4"},
		StartTime:       start,
		EndTime:         start.Add(90 * time.Second),
		DurationSeconds: 90,
		IntervalMS:      500,
		MaxTotalRSSKiB:  4096,
		Samples:         180,
		Processes: []profile.ProcessStats{
			{PID: 100, PPID: 1, Command: "make -j4", MaxRSSKiB: 3072, FirstSeen: start, LastSeen: start.Add(90 * time.Second)},
			{PID: 200, PPID: 100, Command: "cc1 " + strings.Repeat("x", 80), MaxRSSKiB: 1024, FirstSeen: start, LastSeen: start},
			{PID: 300, PPID: 100, Command: "ghost", MaxRSSKiB: 0, FirstSeen: start, LastSeen: start},
		},
	}
}

func TestWriteSummary(t *testing.T) {
	var buf bytes.Buffer
	WriteSummary(&buf, sampleProfile())
	out := buf.String()

	assert.Contains(t, out, "make -j4")
	assert.Contains(t, out, "Duration:        00:01:30")
	assert.Contains(t, out, "Samples:         180")
	assert.Contains(t, out, "Max total RSS:   4.0 MiB")
	assert.Contains(t, out, "Max per process: 3.0 MiB (pid 100)")
	assert.Contains(t, out, "pid   200")
	// Long command lines are truncated, zero-RSS rows are hidden.
	assert.Contains(t, out, "...")
	assert.NotContains(t, out, "ghost")
}

func TestWriteSummaryFastExitHint(t *testing.T) {
	p := sampleProfile()
	p.MaxTotalRSSKiB = 0
	p.Processes = nil

	var buf bytes.Buffer
	WriteSummary(&buf, p)

	assert.Contains(t, buf.String(), "exited too quickly to measure")
	assert.Contains(t, buf.String(), "shorter sampling interval")
}

func TestWriteSummaryFilterNote(t *testing.T) {
	p := sampleProfile()
	count := 2
	kib := uint64(512)
	p.Filter = &profile.FilterSpec{Exclude: "dbg"}
	p.FilteredProcessCount = &count
	p.FilteredTotalRSSKiB = &kib

	var buf bytes.Buffer
	WriteSummary(&buf, p)

	assert.Contains(t, buf.String(), `Exclude pattern: "dbg"`)
	assert.Contains(t, buf.String(), "Filtered out 2 processes")
}

func TestWriteSummaryShowsExitCode(t *testing.T) {
	p := sampleProfile()
	code := 3
	p.ExitCode = &code

	var buf bytes.Buffer
	WriteSummary(&buf, p)

	assert.Contains(t, buf.String(), "Exit code:       3")
}

func TestTruncateCutsOnRuneBoundaries(t *testing.T) {
	long := "/björn/построение/编译/" + strings.Repeat("ä", 80)
	got := truncate(long, 60)

	assert.True(t, utf8.ValidString(got), "truncated command must stay valid UTF-8: %q", got)
	assert.True(t, strings.HasSuffix(got, "..."))
	assert.LessOrEqual(t, len([]rune(got)), 60)

	// Short strings, multibyte or not, pass through untouched.
	assert.Equal(t, "naïve", truncate("naïve", 60))
	assert.Equal(t, "plain", truncate("plain", 60))
}

func TestWriteJSONRoundTrips(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteJSON(&buf, sampleProfile()))

	var decoded profile.JobProfile
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))

	assert.Equal(t, []string{"make", "-j4"}, decoded.Command)
	assert.Equal(t, uint64(4096), decoded.MaxTotalRSSKiB)
	assert.Len(t, decoded.Processes, 3)
	// Optional fields stay absent when unset.
	assert.NotContains(t, buf.String(), "exit_code")
	assert.NotContains(t, buf.String(), "timeline")
	assert.NotContains(t, buf.String(), "filter")
}
