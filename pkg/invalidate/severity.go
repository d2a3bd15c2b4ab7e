// Package invalidate classifies edits and upstream changes into rebuild
// severities and tracks the pending severity of one graphic.
package invalidate

import (
	"fmt"
	"sort"

	"github.com/chazu/fieldviz/pkg/domain"
)

// Severity is how much of a built graphic must be redone.
type Severity int

const (
	Clean Severity = iota
	Redraw
	Recompile
	SelectionUpdate
	PartialRebuild
	FullRebuild
)

var severityNames = []string{"clean", "redraw", "recompile", "selection_update", "partial_rebuild", "full_rebuild"}

func (s Severity) String() string {
	if s >= 0 && int(s) < len(severityNames) {
		return severityNames[s]
	}
	return fmt.Sprintf("Severity(%d)", int(s))
}

// Rank orders severities. Recompile and SelectionUpdate share a rank.
func (s Severity) Rank() int {
	switch s {
	case Clean:
		return 0
	case Redraw:
		return 1
	case Recompile, SelectionUpdate:
		return 2
	case PartialRebuild:
		return 3
	default:
		return 4
	}
}

// State is the pending severity of one graphic. It only grows between
// builds; Complete resets it.
type State struct {
	severity  Severity
	recompile bool
	selection bool
	scope     map[domain.ID]struct{}
}

// Severity returns the recorded severity.
func (s *State) Severity() Severity { return s.severity }

// IsClean reports whether nothing is pending.
func (s *State) IsClean() bool { return s.severity == Clean }

// Request raises the recorded severity to sev if it ranks higher. At equal
// rank the first request is kept, but both Recompile and SelectionUpdate
// stay pending. It reports whether anything changed.
func (s *State) Request(sev Severity) bool {
	changed := false
	switch sev {
	case Clean:
		return false
	case Recompile:
		changed = !s.recompile
		s.recompile = true
	case SelectionUpdate:
		changed = !s.selection
		s.selection = true
	}
	if sev.Rank() > s.severity.Rank() {
		s.severity = sev
		changed = true
	}
	if s.severity == FullRebuild {
		s.scope = nil
	}
	return changed
}

// RequestPartial records a partial rebuild of the given identifiers. The
// scope accumulates until the next build; it is dropped once a full
// rebuild is pending.
func (s *State) RequestPartial(ids []domain.ID) {
	if s.severity == FullRebuild {
		return
	}
	if s.scope == nil {
		s.scope = make(map[domain.ID]struct{}, len(ids))
	}
	for _, id := range ids {
		s.scope[id] = struct{}{}
	}
	s.Request(PartialRebuild)
}

// Pending reports whether work of kind sev is outstanding. Recompile and
// SelectionUpdate are pending whenever they were requested, even when the
// other one set the recorded severity.
func (s *State) Pending(sev Severity) bool {
	switch sev {
	case Recompile:
		return s.recompile
	case SelectionUpdate:
		return s.selection
	default:
		return s.severity == sev
	}
}

// Scope returns the identifiers of a pending partial rebuild, sorted.
func (s *State) Scope() []domain.ID {
	out := make([]domain.ID, 0, len(s.scope))
	for id := range s.scope {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Complete marks a build of severity done. The state returns to Clean
// only when done ranks at least as high as the recorded severity.
func (s *State) Complete(done Severity) bool {
	if done.Rank() < s.severity.Rank() {
		return false
	}
	*s = State{}
	return true
}

// Clone returns an independent copy.
func (s *State) Clone() State {
	c := *s
	if s.scope != nil {
		c.scope = make(map[domain.ID]struct{}, len(s.scope))
		for id := range s.scope {
			c.scope[id] = struct{}{}
		}
	}
	return c
}

func (s *State) String() string {
	if s.severity == PartialRebuild {
		return fmt.Sprintf("%s(%d)", s.severity, len(s.scope))
	}
	return s.severity.String()
}
