package profile

import (
	"fmt"
	"regexp"
)

// FilterSpec narrows which processes appear in the finalized profile.
// Patterns are regular expressions matched against the process command line.
// An absent pattern matches everything for that side.
type FilterSpec struct {
	Exclude string `json:"exclude_pattern,omitempty"`
	Include string `json:"include_pattern,omitempty"`
}

// Empty reports whether no pattern is set.
func (f FilterSpec) Empty() bool {
	return f.Exclude == "" && f.Include == ""
}

// Validate compiles both patterns and returns the first compile error.
// Callers run this before spawning anything so a bad pattern never wastes
// a profiled run.
func (f FilterSpec) Validate() error {
	_, err := f.compile()
	return err
}

// DisplayPatterns renders the configured patterns as human-readable lines.
func (f FilterSpec) DisplayPatterns() []string {
	var lines []string
	if f.Exclude != "" {
		lines = append(lines, fmt.Sprintf("Exclude pattern: %q", f.Exclude))
	}
	if f.Include != "" {
		lines = append(lines, fmt.Sprintf("Include pattern: %q", f.Include))
	}
	return lines
}

// CSVComment renders the patterns in the compact form used by CSV headers.
func (f FilterSpec) CSVComment() string {
	out := ""
	if f.Exclude != "" {
		out += fmt.Sprintf("exclude='%s' ", f.Exclude)
	}
	if f.Include != "" {
		out += fmt.Sprintf("include='%s' ", f.Include)
	}
	return out
}

type compiledFilter struct {
	include *regexp.Regexp
	exclude *regexp.Regexp
}

func (f FilterSpec) compile() (compiledFilter, error) {
	var c compiledFilter
	var err error
	if f.Include != "" {
		if c.include, err = regexp.Compile(f.Include); err != nil {
			return c, fmt.Errorf("invalid include pattern %q: %w", f.Include, err)
		}
	}
	if f.Exclude != "" {
		if c.exclude, err = regexp.Compile(f.Exclude); err != nil {
			return c, fmt.Errorf("invalid exclude pattern %q: %w", f.Exclude, err)
		}
	}
	return c, nil
}

// keep applies include-then-exclude precedence: include (when present) must
// match, and exclude (when present) can veto an included command.
func (c compiledFilter) keep(command string) bool {
	if c.include != nil && !c.include.MatchString(command) {
		return false
	}
	if c.exclude != nil && c.exclude.MatchString(command) {
		return false
	}
	return true
}

// ApplyFilter partitions stats into the kept set and aggregate counts for
// the excluded set. kept + excludedCount always equals len(stats);
// excludedKiB sums MaxRSSKiB over the excluded entries.
func ApplyFilter(stats []ProcessStats, spec FilterSpec) (kept []ProcessStats, excludedCount int, excludedKiB uint64, err error) {
	c, err := spec.compile()
	if err != nil {
		return nil, 0, 0, err
	}

	kept = make([]ProcessStats, 0, len(stats))
	for _, st := range stats {
		if c.keep(st.Command) {
			kept = append(kept, st)
			continue
		}
		excludedCount++
		excludedKiB += st.MaxRSSKiB
	}
	return kept, excludedCount, excludedKiB, nil
}
