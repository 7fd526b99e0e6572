package sampler

import "memtrail/internal/profile"

// JobPIDs returns the root pid plus every pid transitively parented under
// it, computed as a fixed-point closure over the parent links present in
// procs. The root is always a member even when it is absent from procs
// (already exited); children reparented away from the tree are not chased.
// The input is never mutated.
func JobPIDs(root int32, procs []profile.ProcessSample) map[int32]struct{} {
	job := map[int32]struct{}{root: {}}

	for changed := true; changed; {
		changed = false
		for _, p := range procs {
			if _, in := job[p.PID]; in {
				continue
			}
			if _, in := job[p.PPID]; in {
				job[p.PID] = struct{}{}
				changed = true
			}
		}
	}
	return job
}

// restrict builds a job-only view of a full process table: the samples
// whose pid belongs to the job, plus their summed RSS.
func restrict(root int32, procs []profile.ProcessSample) ([]profile.ProcessSample, uint64) {
	job := JobPIDs(root, procs)

	var total uint64
	members := make([]profile.ProcessSample, 0, len(job))
	for _, p := range procs {
		if _, in := job[p.PID]; !in {
			continue
		}
		total += p.RSSKiB
		members = append(members, p)
	}
	return members, total
}
