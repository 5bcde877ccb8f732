package suite

import (
	"fmt"
	"regexp"
	"strings"
)

// RegexList is a set of patterns, any of which may match
type RegexList struct {
	patterns []*regexp.Regexp
}

func (r RegexList) String() string {
	var ss []string
	for _, p := range r.patterns {
		ss = append(ss, `"`+p.String()+`"`)
	}
	return strings.Join(ss, " or ")
}

// Set adds a pattern. It satisfies flag.Value.
func (r *RegexList) Set(value string) error {
	rx, err := regexp.Compile(value)
	if err != nil {
		return fmt.Errorf("invalid regex %q: %w", value, err)
	}
	r.patterns = append(r.patterns, rx)
	return nil
}

func (r RegexList) IsDefined() bool {
	return len(r.patterns) != 0
}

func (r RegexList) AnyMatch(s string) bool {
	for _, p := range r.patterns {
		if p.MatchString(s) {
			return true
		}
	}
	return false
}

// Filter selects steps by regexes over their ID. An empty filter runs
// everything.
type Filter struct {
	MustMatch    RegexList
	MustNotMatch RegexList
}

// NewFilter compiles include and exclude patterns
func NewFilter(include, exclude []string) (Filter, error) {
	var f Filter
	for _, p := range include {
		if err := f.MustMatch.Set(p); err != nil {
			return Filter{}, err
		}
	}
	for _, p := range exclude {
		if err := f.MustNotMatch.Set(p); err != nil {
			return Filter{}, err
		}
	}
	return f, nil
}

// Match reports whether id passes the filter
func (f Filter) Match(id string) bool {
	return (!f.MustMatch.IsDefined() || f.MustMatch.AnyMatch(id)) &&
		!f.MustNotMatch.AnyMatch(id)
}

// Describe explains which steps the filter skips, or "" for none
func (f Filter) Describe() string {
	var parts []string
	if f.MustMatch.IsDefined() {
		parts = append(parts, fmt.Sprintf("skip any not matching %s", f.MustMatch))
	}
	if f.MustNotMatch.IsDefined() {
		parts = append(parts, fmt.Sprintf("skip any matching %s", f.MustNotMatch))
	}
	return strings.Join(parts, "; ")
}

// StepID is the string filters match: the group tags, the group name and
// the step name.
func StepID(group Group, step string) string {
	parts := append([]string{}, group.Tags...)
	parts = append(parts, group.Name)
	if step != "" {
		parts = append(parts, step)
	}
	return strings.Join(parts, " ")
}
