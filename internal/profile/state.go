package profile

import (
	"sort"
	"time"
)

// JobState is the live accumulator for one profiled run. A single sampling
// loop owns it; there is no internal locking.
type JobState struct {
	StartTime      time.Time
	MaxTotalRSSKiB uint64
	Samples        int

	stats         map[int32]*ProcessStats
	timeline      []TimelinePoint
	trackTimeline bool
}

// NewJobState returns an empty accumulator stamped with the current time.
func NewJobState(trackTimeline bool) *JobState {
	return &JobState{
		StartTime:     time.Now().UTC(),
		stats:         make(map[int32]*ProcessStats),
		trackTimeline: trackTimeline,
	}
}

// Fold merges one snapshot into the running state: bumps the sample count,
// raises the running peak total, updates or inserts per-process stats and
// appends a timeline point when tracking is on.
func (s *JobState) Fold(snap JobSnapshot) {
	s.Samples++
	if snap.TotalRSSKiB > s.MaxTotalRSSKiB {
		s.MaxTotalRSSKiB = snap.TotalRSSKiB
	}

	if s.trackTimeline {
		s.timeline = append(s.timeline, TimelinePoint{
			Timestamp:      snap.Timestamp,
			ElapsedSeconds: snap.Timestamp.Sub(s.StartTime).Seconds(),
			TotalRSSKiB:    snap.TotalRSSKiB,
			ProcessCount:   len(snap.Processes),
		})
	}

	for _, proc := range snap.Processes {
		st, ok := s.stats[proc.PID]
		if !ok {
			s.stats[proc.PID] = &ProcessStats{
				PID:       proc.PID,
				PPID:      proc.PPID,
				Command:   proc.Command,
				MaxRSSKiB: proc.RSSKiB,
				FirstSeen: snap.Timestamp,
				LastSeen:  snap.Timestamp,
				PeakTime:  snap.Timestamp,
			}
			continue
		}
		if proc.RSSKiB > st.MaxRSSKiB {
			st.MaxRSSKiB = proc.RSSKiB
			st.PeakTime = snap.Timestamp
		}
		st.LastSeen = snap.Timestamp
	}
}

// ProcessCount returns the number of distinct pids observed so far.
func (s *JobState) ProcessCount() int {
	return len(s.stats)
}

// Finalize converts the accumulated state into an immutable JobProfile and
// applies the optional filter. Processes are ordered by descending peak RSS
// with ascending pid as tie-break so output is deterministic. The state must
// not be folded into again afterwards.
func (s *JobState) Finalize(command []string, interval time.Duration, exitCode *int, filter *FilterSpec) (*JobProfile, error) {
	endTime := time.Now().UTC()

	all := make([]ProcessStats, 0, len(s.stats))
	for _, st := range s.stats {
		all = append(all, *st)
	}
	sort.Slice(all, func(i, j int) bool {
		if all[i].MaxRSSKiB != all[j].MaxRSSKiB {
			return all[i].MaxRSSKiB > all[j].MaxRSSKiB
		}
		return all[i].PID < all[j].PID
	})

	p := &JobProfile{
		Command:         command,
		StartTime:       s.StartTime,
		EndTime:         endTime,
		DurationSeconds: endTime.Sub(s.StartTime).Seconds(),
		IntervalMS:      uint64(interval / time.Millisecond),
		MaxTotalRSSKiB:  s.MaxTotalRSSKiB,
		Samples:         s.Samples,
		Processes:       all,
		Timeline:        s.timeline,
		ExitCode:        exitCode,
	}

	if filter != nil && !filter.Empty() {
		kept, excludedCount, excludedKiB, err := ApplyFilter(all, *filter)
		if err != nil {
			return nil, err
		}
		spec := *filter
		p.Processes = kept
		p.Filter = &spec
		p.FilteredProcessCount = &excludedCount
		p.FilteredTotalRSSKiB = &excludedKiB
	}

	return p, nil
}
