package sampler

import (
	"io"
	"runtime"
	"strings"
	"testing"
	"time"

	"memtrail/internal/inspector"
	"memtrail/internal/profile"
)

// fakeInspector returns a canned table on every snapshot.
type fakeInspector struct {
	table func() []profile.ProcessSample
}

func (f *fakeInspector) SnapshotAll() ([]profile.ProcessSample, error) {
	return f.table(), nil
}

func TestRunRejectsEmptyCommand(t *testing.T) {
	_, err := Run(Options{Interval: time.Millisecond, Inspector: &fakeInspector{}})
	if err == nil || err.Error() != "command cannot be empty" {
		t.Fatalf("expected empty command error, got %v", err)
	}
}

func TestRunRejectsNonPositiveInterval(t *testing.T) {
	_, err := Run(Options{Command: []string{"true"}, Inspector: &fakeInspector{}})
	if err == nil || !strings.Contains(err.Error(), "interval must be positive") {
		t.Fatalf("expected interval error, got %v", err)
	}
}

func TestRunRejectsInvalidFilterBeforeSpawn(t *testing.T) {
	_, err := Run(Options{
		Command:   []string{"true"},
		Interval:  time.Millisecond,
		Inspector: &fakeInspector{},
		Filter:    &profile.FilterSpec{Include: "("},
	})
	if err == nil || !strings.Contains(err.Error(), "invalid include pattern") {
		t.Fatalf("expected pattern error, got %v", err)
	}
}

func TestRunFailsOnMissingExecutable(t *testing.T) {
	_, err := Run(Options{
		Command:   []string{"memtrail-test-no-such-binary"},
		Interval:  time.Millisecond,
		Inspector: &fakeInspector{table: func() []profile.ProcessSample { return nil }},
	})
	if err == nil || !strings.Contains(err.Error(), "start command") {
		t.Fatalf("expected spawn error, got %v", err)
	}
}

func TestRunFastExitStillSamples(t *testing.T) {
	requireUnix(t)

	insp := &fakeInspector{table: func() []profile.ProcessSample { return nil }}
	prof, err := Run(Options{
		Command:   []string{"sh", "-c", "exit 0"},
		Interval:  50 * time.Millisecond,
		Inspector: insp,
		Stdout:    io.Discard,
		Stderr:    io.Discard,
		Stdin:     strings.NewReader(""),
	})
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}

	// The immediate pre-loop sample plus the post-exit sample guarantee at
	// least one fold even for a command faster than one interval.
	if prof.Samples == 0 {
		t.Fatal("a profile must never finish with zero samples")
	}
	if prof.ExitCode == nil || *prof.ExitCode != 0 {
		t.Fatalf("expected exit code 0, got %v", prof.ExitCode)
	}
}

func TestRunCapturesChildExitCode(t *testing.T) {
	requireUnix(t)

	prof, err := Run(Options{
		Command:   []string{"sh", "-c", "exit 3"},
		Interval:  20 * time.Millisecond,
		Inspector: &fakeInspector{table: func() []profile.ProcessSample { return nil }},
		Stdout:    io.Discard,
		Stderr:    io.Discard,
		Stdin:     strings.NewReader(""),
	})
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if prof.ExitCode == nil || *prof.ExitCode != 3 {
		t.Fatalf("expected exit code 3, got %v", prof.ExitCode)
	}
}

func TestRunObservesRealProcessTree(t *testing.T) {
	requireUnix(t)
	if runtime.GOOS != "linux" {
		t.Skip("needs the procfs inspector")
	}

	prof, err := Run(Options{
		Command:   []string{"sleep", "0.3"},
		Interval:  50 * time.Millisecond,
		Inspector: inspector.NewProcfs(),
		Stdout:    io.Discard,
		Stderr:    io.Discard,
		Stdin:     strings.NewReader(""),
	})
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}

	if prof.Samples < 2 {
		t.Fatalf("expected several samples over 300ms, got %d", prof.Samples)
	}
	if len(prof.Processes) == 0 {
		t.Fatal("expected the sleep process to be observed")
	}
	if prof.MaxTotalRSSKiB == 0 {
		t.Fatal("expected nonzero peak RSS for a live process")
	}
	if prof.DurationSeconds <= 0 {
		t.Fatalf("expected positive duration, got %f", prof.DurationSeconds)
	}
}

func TestRunProgressCallbackSeesEveryFold(t *testing.T) {
	requireUnix(t)

	var calls int
	prof, err := Run(Options{
		Command:   []string{"sleep", "0.2"},
		Interval:  50 * time.Millisecond,
		Inspector: &fakeInspector{table: func() []profile.ProcessSample { return nil }},
		Progress:  func(profile.JobSnapshot) { calls++ },
		Stdout:    io.Discard,
		Stderr:    io.Discard,
		Stdin:     strings.NewReader(""),
	})
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if calls != prof.Samples {
		t.Fatalf("progress callback ran %d times for %d samples", calls, prof.Samples)
	}
}

func requireUnix(t *testing.T) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("test spawns unix shell commands")
	}
}
