package inspector

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"memtrail/internal/profile"
)

// Procfs reads the Linux /proc pseudo-filesystem directly.
type Procfs struct {
	// Root is the proc mount point, normally /proc. Overridable via
	// HOST_PROC for containerized use, same convention as gopsutil.
	Root string
}

// NewProcfs returns a procfs inspector rooted at HOST_PROC or /proc.
func NewProcfs() *Procfs {
	root, ok := os.LookupEnv("HOST_PROC")
	if !ok {
		root = "/proc"
	}
	return &Procfs{Root: root}
}

// SnapshotAll walks the proc root once. Entries that are not pid
// directories, or whose files vanish or fail to parse mid-read, are
// skipped; only an unreadable proc root is an error.
func (p *Procfs) SnapshotAll() ([]profile.ProcessSample, error) {
	entries, err := os.ReadDir(p.Root)
	if err != nil {
		return nil, fmt.Errorf("read process table %s: %w", p.Root, err)
	}

	samples := make([]profile.ProcessSample, 0, len(entries))
	for _, entry := range entries {
		pid, err := strconv.ParseInt(entry.Name(), 10, 32)
		if err != nil {
			continue
		}

		sample, err := p.readProcess(int32(pid))
		if err != nil {
			continue
		}
		samples = append(samples, sample)
	}
	return samples, nil
}

func (p *Procfs) readProcess(pid int32) (profile.ProcessSample, error) {
	dir := filepath.Join(p.Root, strconv.Itoa(int(pid)))

	statData, err := os.ReadFile(filepath.Join(dir, "stat"))
	if err != nil {
		return profile.ProcessSample{}, err
	}
	ppid, comm, err := parseStat(statData)
	if err != nil {
		return profile.ProcessSample{}, err
	}

	// VmRSS is absent for kernel threads; they are kept with RSS 0.
	var rssKiB uint64
	if statusData, err := os.ReadFile(filepath.Join(dir, "status")); err == nil {
		rssKiB = parseStatusRSS(statusData)
	}

	command := comm
	if data, err := os.ReadFile(filepath.Join(dir, "cmdline")); err == nil {
		if cmdline := parseCmdline(data); cmdline != "" {
			command = cmdline
		}
	}

	return profile.ProcessSample{
		PID:     pid,
		PPID:    ppid,
		RSSKiB:  rssKiB,
		Command: command,
	}, nil
}

// parseStat extracts ppid and comm from /proc/[pid]/stat. The comm field is
// wrapped in parentheses and may itself contain spaces and parentheses, so
// the parse anchors on the last ')' rather than splitting on whitespace.
func parseStat(data []byte) (ppid int32, comm string, err error) {
	s := string(data)
	open := strings.IndexByte(s, '(')
	closing := strings.LastIndexByte(s, ')')
	if open < 0 || closing < open {
		return 0, "", fmt.Errorf("malformed stat record: no comm delimiters")
	}
	comm = s[open+1 : closing]

	// After the comm: state, then ppid.
	fields := strings.Fields(s[closing+1:])
	if len(fields) < 2 {
		return 0, "", fmt.Errorf("malformed stat record: %d fields after comm", len(fields))
	}
	parsed, err := strconv.ParseInt(fields[1], 10, 32)
	if err != nil {
		return 0, "", fmt.Errorf("parse ppid: %w", err)
	}
	return int32(parsed), comm, nil
}

// parseStatusRSS pulls the VmRSS value (KiB) out of /proc/[pid]/status,
// returning 0 when the line is missing or unparseable.
func parseStatusRSS(data []byte) uint64 {
	for _, line := range strings.Split(string(data), "\n") {
		if !strings.HasPrefix(line, "VmRSS:") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 2 {
			return 0
		}
		rss, err := strconv.ParseUint(fields[1], 10, 64)
		if err != nil {
			return 0
		}
		return rss
	}
	return 0
}

// parseCmdline joins the NUL-separated argv from /proc/[pid]/cmdline.
// Returns "" for kernel threads and other processes without a cmdline.
func parseCmdline(data []byte) string {
	parts := bytes.Split(data, []byte{0})
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if len(part) == 0 {
			continue
		}
		out = append(out, string(part))
	}
	return strings.Join(out, " ")
}
