package live

import (
	"strings"
	"testing"
	"unicode/utf8"

	tea "github.com/charmbracelet/bubbletea"

	"memtrail/internal/profile"
)

func TestModelFoldsSnapshots(t *testing.T) {
	m := New([]string{"make", "-j4"})

	snap := profile.JobSnapshot{
		TotalRSSKiB: 2048,
		Processes: []profile.ProcessSample{
			{PID: 100, RSSKiB: 1536, Command: "make -j4"},
			{PID: 200, RSSKiB: 512, Command: "cc1"},
		},
	}
	updated, _ := m.Update(SnapshotMsg(snap))
	m = updated.(*Model)

	if m.samples != 1 {
		t.Fatalf("expected 1 sample, got %d", m.samples)
	}
	if m.peak != 2048 {
		t.Fatalf("expected peak 2048, got %d", m.peak)
	}

	// A smaller snapshot keeps the peak.
	updated, _ = m.Update(SnapshotMsg(profile.JobSnapshot{TotalRSSKiB: 100}))
	m = updated.(*Model)
	if m.peak != 2048 {
		t.Fatalf("peak must not drop, got %d", m.peak)
	}
}

func TestModelViewShowsTopProcesses(t *testing.T) {
	m := New([]string{"make"})
	updated, _ := m.Update(SnapshotMsg(profile.JobSnapshot{
		TotalRSSKiB: 300,
		Processes: []profile.ProcessSample{
			{PID: 1, RSSKiB: 100, Command: "small"},
			{PID: 2, RSSKiB: 200, Command: "big"},
		},
	}))
	m = updated.(*Model)

	view := m.View()
	if !strings.Contains(view, "big") || !strings.Contains(view, "small") {
		t.Fatalf("view missing processes:\n%s", view)
	}
	if strings.Index(view, "big") > strings.Index(view, "small") {
		t.Fatalf("processes not ordered by RSS:\n%s", view)
	}
}

func TestModelQuitsOnDone(t *testing.T) {
	m := New([]string{"true"})
	updated, cmd := m.Update(DoneMsg{})
	m = updated.(*Model)

	if !m.done {
		t.Fatal("expected done state")
	}
	if cmd == nil {
		t.Fatal("expected a quit command")
	}
	if msg := cmd(); msg != tea.Quit() {
		t.Fatalf("expected tea.Quit, got %v", msg)
	}
}

func TestTrimCommandCutsOnRuneBoundaries(t *testing.T) {
	long := "/proc/построение-" + strings.Repeat("ö", 80)
	got := trimCommand(long, 0)

	if !utf8.ValidString(got) {
		t.Fatalf("trimmed command must stay valid UTF-8: %q", got)
	}
	if !strings.HasSuffix(got, "…") {
		t.Fatalf("expected ellipsis suffix, got %q", got)
	}
	if n := len([]rune(got)); n > 60 {
		t.Fatalf("expected at most 60 runes, got %d", n)
	}

	if got := trimCommand("naïve", 0); got != "naïve" {
		t.Fatalf("short multibyte command must pass through, got %q", got)
	}
}

func TestTopProcessesLimitsRows(t *testing.T) {
	procs := make([]profile.ProcessSample, 0, 25)
	for i := int32(1); i <= 25; i++ {
		procs = append(procs, profile.ProcessSample{PID: i, RSSKiB: uint64(i)})
	}

	top := topProcesses(procs, maxRows)
	if len(top) != maxRows {
		t.Fatalf("expected %d rows, got %d", maxRows, len(top))
	}
	if top[0].RSSKiB != 25 {
		t.Fatalf("expected largest first, got %d", top[0].RSSKiB)
	}
}
