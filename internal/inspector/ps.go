package inspector

import (
	"fmt"
	"os/exec"
	"strconv"
	"strings"

	"memtrail/internal/profile"
)

// PS shells out to the ps utility, the portable unix fallback where no
// proc filesystem is mounted (notably Darwin).
type PS struct {
	// run is swappable for tests; defaults to executing ps.
	run func() ([]byte, error)
}

// NewPS returns a ps-backed inspector.
func NewPS() *PS {
	return &PS{run: func() ([]byte, error) {
		return exec.Command("ps", "-axo", "pid,ppid,rss,command").Output()
	}}
}

// SnapshotAll executes one ps invocation and parses its table. A failed
// invocation is a whole-table error; individual malformed rows are skipped.
func (p *PS) SnapshotAll() ([]profile.ProcessSample, error) {
	out, err := p.run()
	if err != nil {
		return nil, fmt.Errorf("enumerate processes via ps: %w", err)
	}
	return parsePSTable(string(out)), nil
}

// parsePSTable parses `ps -axo pid,ppid,rss,command` output: a header line
// followed by whitespace-aligned columns, with the command occupying the
// rest of each row. Rows that fail to parse are dropped.
func parsePSTable(out string) []profile.ProcessSample {
	lines := strings.Split(out, "\n")
	samples := make([]profile.ProcessSample, 0, len(lines))

	for i, line := range lines {
		if i == 0 {
			continue // header
		}
		fields := strings.Fields(line)
		if len(fields) < 4 {
			continue
		}

		pid, err := strconv.ParseInt(fields[0], 10, 32)
		if err != nil {
			continue
		}
		ppid, err := strconv.ParseInt(fields[1], 10, 32)
		if err != nil {
			continue
		}
		rss, err := strconv.ParseUint(fields[2], 10, 64)
		if err != nil {
			continue
		}

		samples = append(samples, profile.ProcessSample{
			PID:     int32(pid),
			PPID:    int32(ppid),
			RSSKiB:  rss,
			Command: strings.Join(fields[3:], " "),
		})
	}
	return samples
}
