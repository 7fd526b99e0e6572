// Package sampler drives one profiled run: spawn the command, sample its
// process tree on an interval, fold the snapshots into running statistics
// and finalize a profile when the command exits.
package sampler

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"syscall"
	"time"

	"memtrail/internal/inspector"
	"memtrail/internal/profile"
)

// Options configures one run. Command and Inspector are required.
type Options struct {
	// Command is the argv of the job to launch, program first.
	Command []string
	// Interval is the pause between sampling iterations.
	Interval time.Duration
	// TrackTimeline records one TimelinePoint per sampling iteration.
	TrackTimeline bool
	// Filter is validated before the command is spawned and applied at
	// finalization.
	Filter *profile.FilterSpec
	// Inspector supplies the process-table snapshots.
	Inspector inspector.ProcessInspector
	// Logger receives warnings about tolerated sampling failures.
	// Defaults to slog.Default().
	Logger *slog.Logger
	// Progress, when set, is invoked with every folded snapshot.
	Progress func(profile.JobSnapshot)

	// Child stdio. Defaults to the parent's streams.
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
}

// Run launches the command and profiles it until it exits.
//
// The sequence is: validate, spawn, one immediate sample before the first
// sleep (so processes shorter than one interval are still caught), then a
// poll loop of liveness check / sample / sleep, a final sample once the
// child has exited, and finalization. Snapshot failures inside the loop are
// logged and tolerated; they never abort the run.
func Run(opts Options) (*profile.JobProfile, error) {
	if len(opts.Command) == 0 {
		return nil, errors.New("command cannot be empty")
	}
	if opts.Interval <= 0 {
		return nil, fmt.Errorf("sampling interval must be positive, got %s", opts.Interval)
	}
	if opts.Inspector == nil {
		return nil, errors.New("no process inspector configured")
	}
	if opts.Filter != nil {
		if err := opts.Filter.Validate(); err != nil {
			return nil, err
		}
	}

	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	log = log.With("component", "sampler")

	child := exec.Command(opts.Command[0], opts.Command[1:]...)
	child.Stdin = orStdin(opts.Stdin)
	child.Stdout = orStdout(opts.Stdout)
	child.Stderr = orStderr(opts.Stderr)

	state := profile.NewJobState(opts.TrackTimeline)
	if err := child.Start(); err != nil {
		return nil, fmt.Errorf("start command: %w", err)
	}
	root := int32(child.Process.Pid)

	// Reap in the background so liveness checks stay non-blocking polls.
	waitCh := make(chan error, 1)
	go func() { waitCh <- child.Wait() }()

	s := runState{opts: opts, state: state, root: root, log: log}

	// Immediate first sample, before any sleep.
	s.sampleAndFold()

	for {
		select {
		case werr := <-waitCh:
			s.sampleAndFold()
			code := exitCode(child.ProcessState, werr)
			return state.Finalize(opts.Command, opts.Interval, &code, opts.Filter)
		default:
		}

		s.sampleAndFold()
		time.Sleep(opts.Interval)
	}
}

type runState struct {
	opts  Options
	state *profile.JobState
	root  int32
	log   *slog.Logger
}

func (s *runState) sampleAndFold() {
	procs, err := s.opts.Inspector.SnapshotAll()
	if err != nil {
		s.log.Warn("process table snapshot failed", "error", err)
		return
	}

	members, total := restrict(s.root, procs)
	snap := profile.JobSnapshot{
		Timestamp:   time.Now().UTC(),
		TotalRSSKiB: total,
		Processes:   members,
	}

	s.state.Fold(snap)
	if s.opts.Progress != nil {
		s.opts.Progress(snap)
	}
}

// exitCode collapses the platform exit/signal distinction into one integer,
// mapping signal termination to the conventional 128+signal.
func exitCode(state *os.ProcessState, werr error) int {
	if state == nil {
		if werr != nil {
			return -1
		}
		return 0
	}
	if ws, ok := state.Sys().(syscall.WaitStatus); ok && ws.Signaled() {
		return 128 + int(ws.Signal())
	}
	return state.ExitCode()
}

func orStdin(r io.Reader) io.Reader {
	if r != nil {
		return r
	}
	return os.Stdin
}

func orStdout(w io.Writer) io.Writer {
	if w != nil {
		return w
	}
	return os.Stdout
}

func orStderr(w io.Writer) io.Writer {
	if w != nil {
		return w
	}
	return os.Stderr
}
