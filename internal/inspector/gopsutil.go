package inspector

import (
	"fmt"

	"github.com/shirou/gopsutil/v3/process"

	"memtrail/internal/profile"
)

// Gopsutil enumerates processes through the gopsutil library. It works on
// every OS gopsutil supports and is the fallback where neither procfs nor
// ps applies.
type Gopsutil struct{}

// NewGopsutil returns a gopsutil-backed inspector.
func NewGopsutil() *Gopsutil {
	return &Gopsutil{}
}

// SnapshotAll lists all processes and reads ppid, RSS and command line for
// each. Per-process read errors mean the process exited mid-scan and the
// entry is dropped; a missing memory reading keeps the process with RSS 0.
func (g *Gopsutil) SnapshotAll() ([]profile.ProcessSample, error) {
	procs, err := process.Processes()
	if err != nil {
		return nil, fmt.Errorf("enumerate processes: %w", err)
	}

	samples := make([]profile.ProcessSample, 0, len(procs))
	for _, p := range procs {
		ppid, err := p.Ppid()
		if err != nil {
			continue
		}

		command, _ := p.Cmdline()
		if command == "" {
			if name, err := p.Name(); err == nil {
				command = name
			}
		}
		if command == "" {
			continue
		}

		var rssKiB uint64
		if mem, err := p.MemoryInfo(); err == nil && mem != nil {
			rssKiB = mem.RSS / 1024
		}

		samples = append(samples, profile.ProcessSample{
			PID:     p.Pid,
			PPID:    ppid,
			RSSKiB:  rssKiB,
			Command: command,
		})
	}
	return samples, nil
}
