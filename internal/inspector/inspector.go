// Package inspector answers "what processes exist right now, with what
// pid/parent/RSS/command?" as one flat, unordered list. It knows nothing
// about job trees; callers do their own ancestry resolution.
package inspector

import (
	"fmt"
	"runtime"

	"memtrail/internal/profile"
)

// Backend names a process-table source.
type Backend string

const (
	// BackendAuto picks the native backend for the current OS.
	BackendAuto Backend = "auto"
	// BackendProcfs walks the /proc pseudo-filesystem (Linux).
	BackendProcfs Backend = "procfs"
	// BackendPS shells out to the ps utility (Darwin and other unixes).
	BackendPS Backend = "ps"
	// BackendGopsutil uses the gopsutil library, available everywhere.
	BackendGopsutil Backend = "gopsutil"
)

// ProcessInspector yields a flat snapshot of all processes on the host.
//
// SnapshotAll fails only when the process table as a whole cannot be
// enumerated. A single process vanishing between enumeration and detail
// read is omitted from that snapshot, never an error.
type ProcessInspector interface {
	SnapshotAll() ([]profile.ProcessSample, error)
}

// New returns the inspector for the requested backend. BackendAuto selects
// procfs on Linux, ps on Darwin and gopsutil elsewhere. The result is meant
// to be injected into the sampler, not stashed in a global.
func New(backend Backend) (ProcessInspector, error) {
	if backend == "" || backend == BackendAuto {
		switch runtime.GOOS {
		case "linux":
			backend = BackendProcfs
		case "darwin":
			backend = BackendPS
		default:
			backend = BackendGopsutil
		}
	}

	switch backend {
	case BackendProcfs:
		return NewProcfs(), nil
	case BackendPS:
		return NewPS(), nil
	case BackendGopsutil:
		return NewGopsutil(), nil
	default:
		return nil, fmt.Errorf("unknown inspector backend %q (valid: auto, procfs, ps, gopsutil)", backend)
	}
}
