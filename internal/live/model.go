// Package live renders an in-terminal view of a run in progress. The
// sampler feeds it one message per folded snapshot; the view exits when the
// job does.
package live

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"memtrail/internal/profile"
	"memtrail/internal/report"
)

const maxRows = 10

// SnapshotMsg carries one folded job snapshot from the sampler.
type SnapshotMsg profile.JobSnapshot

// DoneMsg tells the view the job has exited and the run is finalized.
type DoneMsg struct{}

// Model represents the Bubble Tea state for one run.
type Model struct {
	command string
	start   time.Time

	spin    spinner.Model
	current profile.JobSnapshot
	peak    uint64
	samples int
	done    bool
	width   int
}

// New constructs a live-view model with default styles.
func New(command []string) *Model {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))

	return &Model{
		command: strings.Join(command, " "),
		start:   time.Now(),
		spin:    sp,
	}
}

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd {
	return m.spin.Tick
}

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width

	case SnapshotMsg:
		m.current = profile.JobSnapshot(msg)
		m.samples++
		if m.current.TotalRSSKiB > m.peak {
			m.peak = m.current.TotalRSSKiB
		}

	case DoneMsg:
		m.done = true
		return m, tea.Quit

	case tea.KeyMsg:
		// The job itself keeps running; only the view can be dismissed.
		switch msg.String() {
		case "ctrl+c", "q":
			return m, tea.Quit
		}

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		return m, cmd
	}

	return m, nil
}

// View implements tea.Model.
func (m *Model) View() string {
	var b strings.Builder

	title := lipgloss.NewStyle().Bold(true)
	dim := lipgloss.NewStyle().Foreground(lipgloss.Color("244"))

	if m.done {
		b.WriteString(title.Render("Job finished."))
	} else {
		b.WriteString(m.spin.View())
		b.WriteString(title.Render(" Profiling: " + m.command))
	}
	b.WriteByte('\n')

	elapsed := time.Since(m.start).Seconds()
	b.WriteString(fmt.Sprintf("Elapsed: %s   Samples: %d   Processes: %d\n",
		report.FormatDuration(elapsed), m.samples, len(m.current.Processes)))
	b.WriteString(fmt.Sprintf("Total RSS: %s   Peak: %s\n",
		report.FormatMemory(m.current.TotalRSSKiB), report.FormatMemory(m.peak)))

	if len(m.current.Processes) > 0 {
		b.WriteString(title.Render("\nTop processes by current RSS:"))
		b.WriteByte('\n')
		for _, p := range topProcesses(m.current.Processes, maxRows) {
			b.WriteString(fmt.Sprintf("  pid %5d  %10s  %s\n", p.PID, report.FormatMemory(p.RSSKiB), trimCommand(p.Command, m.width)))
		}
	}

	b.WriteString(dim.Render("q quit view (job keeps running)"))
	b.WriteByte('\n')
	return b.String()
}

func topProcesses(procs []profile.ProcessSample, n int) []profile.ProcessSample {
	sorted := append([]profile.ProcessSample(nil), procs...)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].RSSKiB != sorted[j].RSSKiB {
			return sorted[i].RSSKiB > sorted[j].RSSKiB
		}
		return sorted[i].PID < sorted[j].PID
	})
	if len(sorted) > n {
		sorted = sorted[:n]
	}
	return sorted
}

// trimCommand shortens cmd to the available width, cutting on rune
// boundaries so multibyte arguments stay valid UTF-8.
func trimCommand(cmd string, width int) string {
	limit := 60
	if width > 30 {
		limit = width - 25
	}
	runes := []rune(cmd)
	if len(runes) <= limit {
		return cmd
	}
	return string(runes[:limit-1]) + "…"
}
