package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/briandowns/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"memtrail/internal/config"
	"memtrail/internal/csvout"
	"memtrail/internal/inspector"
	"memtrail/internal/live"
	"memtrail/internal/profile"
	"memtrail/internal/report"
	"memtrail/internal/sampler"
)

var (
	runIntervalMS   uint64
	runJSON         bool
	runQuiet        bool
	runCSVPath      string
	runTimelinePath string
	runExclude      string
	runInclude      string
	runLive         bool
	runBackend      string
	runConfigPath   string
)

func init() {
	rootCmd.AddCommand(cmdRun)

	cmdRun.Flags().Uint64VarP(&runIntervalMS, "interval", "i", 500, "Sampling interval in milliseconds")
	cmdRun.Flags().BoolVar(&runJSON, "json", false, "Output the profile as JSON instead of human-readable text")
	cmdRun.Flags().BoolVar(&runQuiet, "quiet", false, "Suppress the human-readable summary (useful with --json or --csv)")
	cmdRun.Flags().StringVar(&runCSVPath, "csv", "", "Export the per-process peak table to the given CSV file")
	cmdRun.Flags().StringVar(&runTimelinePath, "timeline", "", "Track a time series and export it to the given CSV file")
	cmdRun.Flags().StringVar(&runExclude, "exclude", "", "Exclude processes whose command matches this regex from the report")
	cmdRun.Flags().StringVar(&runInclude, "include", "", "Only report processes whose command matches this regex")
	cmdRun.Flags().BoolVar(&runLive, "live", false, "Show a live in-terminal view while the job runs")
	cmdRun.Flags().StringVar(&runBackend, "backend", "", "Process inspection backend: auto, procfs, ps or gopsutil")
	cmdRun.Flags().StringVar(&runConfigPath, "config", "", "Path to an optional JSON config file")
}

var cmdRun = &cobra.Command{
	Use:   "run [flags] -- <command> [args...]",
	Short: "Run a command and profile the memory of its process tree",
	Long:  "Starts the provided command, samples the resident memory of every process it transitively spawns until it exits, and reports per-process and whole-job peak RSS.",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(runConfigPath)
		if err != nil {
			return err
		}

		interval := cfg.Interval
		if cmd.Flags().Changed("interval") {
			interval = time.Duration(runIntervalMS) * time.Millisecond
		}
		backend := inspector.Backend(cfg.Backend)
		if cmd.Flags().Changed("backend") {
			backend = inspector.Backend(runBackend)
		}

		var filter *profile.FilterSpec
		if runExclude != "" || runInclude != "" {
			filter = &profile.FilterSpec{Exclude: runExclude, Include: runInclude}
			// Fail fast, before anything is spawned.
			if err := filter.Validate(); err != nil {
				return err
			}
		}

		insp, err := inspector.New(backend)
		if err != nil {
			return err
		}

		opts := sampler.Options{
			Command:       args,
			Interval:      interval,
			TrackTimeline: runTimelinePath != "",
			Filter:        filter,
			Inspector:     insp,
			Logger:        slog.New(slog.NewTextHandler(os.Stderr, nil)),
		}

		var prof *profile.JobProfile
		if runLive {
			prof, err = runWithLiveView(args, opts)
		} else {
			prof, err = runPlain(opts)
		}
		if err != nil {
			return err
		}

		if runJSON {
			if err := report.WriteJSON(os.Stdout, prof); err != nil {
				return err
			}
		} else if !runQuiet {
			report.WriteSummary(os.Stdout, prof)
		}

		if runCSVPath != "" {
			if err := csvout.ExportProcesses(runCSVPath, prof); err != nil {
				return err
			}
			if !runQuiet && !runJSON {
				fmt.Fprintf(os.Stderr, "Per-process CSV exported to: %s\n", runCSVPath)
			}
		}
		if runTimelinePath != "" {
			if err := csvout.ExportTimeline(runTimelinePath, prof); err != nil {
				return err
			}
			if !runQuiet && !runJSON {
				fmt.Fprintf(os.Stderr, "Timeline CSV exported to: %s\n", runTimelinePath)
			}
		}

		// The profiler is transparent: the shell sees the job's own exit code.
		if prof.ExitCode != nil && *prof.ExitCode != 0 {
			os.Exit(*prof.ExitCode)
		}
		return nil
	},
}

// runPlain profiles with the child's stdio inherited. In quiet mode a small
// spinner on stderr signals that sampling is in progress.
func runPlain(opts sampler.Options) (*profile.JobProfile, error) {
	if runQuiet {
		spin := spinner.New(spinner.CharSets[21], 120*time.Millisecond, spinner.WithWriter(os.Stderr))
		spin.Suffix = " profiling..."
		spin.Start()
		defer spin.Stop()
	}
	return sampler.Run(opts)
}

// runWithLiveView profiles while a Bubble Tea program renders progress. The
// child's stdio is discarded so its output cannot garble the view.
func runWithLiveView(args []string, opts sampler.Options) (*profile.JobProfile, error) {
	prog := tea.NewProgram(live.New(args))

	// The terminal belongs to the view: no child output, EOF on stdin.
	opts.Stdin = strings.NewReader("")
	opts.Stdout = io.Discard
	opts.Stderr = io.Discard

	return profileWithView(opts, prog.Send, func() error {
		_, err := prog.Run()
		return err
	})
}

type runResult struct {
	prof *profile.JobProfile
	err  error
}

// profileWithView runs the sampler alongside a view. The sampler goroutine
// owns the child, so the result channel is drained on every path — a view
// that cannot render (no TTY) must not leave the child running un-reaped.
func profileWithView(opts sampler.Options, send func(tea.Msg), runView func() error) (*profile.JobProfile, error) {
	opts.Progress = func(snap profile.JobSnapshot) {
		send(live.SnapshotMsg(snap))
	}

	resCh := make(chan runResult, 1)
	go func() {
		prof, err := sampler.Run(opts)
		send(live.DoneMsg{})
		resCh <- runResult{prof, err}
	}()

	viewErr := runView()
	res := <-resCh
	if res.err != nil {
		return nil, res.err
	}
	if viewErr != nil {
		// The run itself succeeded; the broken view only costs the display.
		fmt.Fprintf(os.Stderr, "live view failed: %v\n", viewErr)
	}
	return res.prof, nil
}
