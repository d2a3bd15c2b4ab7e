package invalidate

import (
	"slices"

	"github.com/chazu/fieldviz/pkg/changelog"
	"github.com/chazu/fieldviz/pkg/domain"
)

// Policy holds the partial rebuild thresholds: a change is partial only
// when fewer than NodeFraction of the nodes and ElementFraction of the
// iterated elements were touched.
type Policy struct {
	NodeFraction    float64
	ElementFraction float64
}

// DefaultPolicy returns the thresholds of one half of the nodes and one
// quarter of the elements.
func DefaultPolicy() Policy {
	return Policy{NodeFraction: 0.5, ElementFraction: 0.25}
}

// Dependency describes what a graphic reads.
type Dependency struct {
	Domain        domain.Kind
	Dimension     int
	Fields        []string
	Built         bool
	NoPartial     bool
	TotalNodes    int
	TotalElements int
}

// Decision is the outcome of a classification. Scope is set for partial
// rebuilds.
type Decision struct {
	Severity Severity
	Scope    []domain.ID
}

// Apply records the decision on a state.
func (d Decision) Apply(s *State) {
	if d.Severity == PartialRebuild {
		s.RequestPartial(d.Scope)
		return
	}
	s.Request(d.Severity)
}

// Classify maps one change log cycle to the severity for a graphic. A
// referenced field that changed at individual entities counts as a
// related object change scoped to those entities; a redefined one needs
// a full rebuild.
func Classify(dep Dependency, log *changelog.Log, policy Policy) Decision {
	if log == nil || log.Empty() {
		return Decision{}
	}
	sum := log.Summary()
	redefined := false
	var touched []string
	for _, name := range dep.Fields {
		if log.FieldChanged(name) {
			redefined = true
		}
		if log.FieldValuesChanged(name) {
			touched = append(touched, name)
		}
	}
	related := sum.RelatedObjectChanged || len(touched) > 0
	if !sum.IdentifiersRenumbered && !redefined && !related {
		return Decision{}
	}
	if !dep.Built {
		return Decision{Severity: Redraw}
	}
	if sum.IdentifiersRenumbered || redefined {
		return Decision{Severity: FullRebuild}
	}
	if dep.NoPartial || !dep.Domain.IsMesh() {
		return Decision{Severity: FullRebuild}
	}

	nodes := union(log.ForEachChangedEntity(domain.KindNodes, 0), nil)
	ids := union(log.ForEachChangedEntity(dep.Domain, dep.Dimension), nil)
	for _, name := range touched {
		nodes = union(log.ForEachFieldChangedEntity(name, domain.KindNodes, 0), nodes)
		ids = union(log.ForEachFieldChangedEntity(name, dep.Domain, dep.Dimension), ids)
	}
	if len(ids) == 0 {
		if len(nodes) == 0 {
			return Decision{}
		}
		return Decision{Severity: FullRebuild}
	}
	nodesOK := float64(len(nodes)) < policy.NodeFraction*float64(dep.TotalNodes)
	elementsOK := float64(len(ids)) < policy.ElementFraction*float64(dep.TotalElements)
	if nodesOK && elementsOK {
		return Decision{Severity: PartialRebuild, Scope: sorted(ids)}
	}
	return Decision{Severity: FullRebuild}
}

func union(ids []domain.ID, into map[domain.ID]struct{}) map[domain.ID]struct{} {
	if into == nil {
		into = make(map[domain.ID]struct{}, len(ids))
	}
	for _, id := range ids {
		into[id] = struct{}{}
	}
	return into
}

func sorted(set map[domain.ID]struct{}) []domain.ID {
	out := make([]domain.ID, 0, len(set))
	for id := range set {
		out = append(out, id)
	}
	slices.Sort(out)
	return out
}

// ClassifySelection returns the severity of a selection change. Filtering
// graphics change which primitives exist; highlighting ones only re-tag.
func ClassifySelection(highlight, filter bool) Severity {
	switch {
	case filter:
		return FullRebuild
	case highlight:
		return SelectionUpdate
	default:
		return Clean
	}
}

var attributeSeverity = map[string]Severity{
	"name":              Redraw,
	"visibility":        Redraw,
	"coordinate_system": Redraw,

	"material":           Recompile,
	"secondary_material": Recompile,
	"selected_material":  Recompile,
	"spectrum":           Recompile,
	"render_style":       Recompile,
	"polygon_mode":       Recompile,
	"line_width":         Recompile,
	"glyph":              Recompile,
	"glyph_repeat_mode":  Recompile,
	"label_text":         Recompile,
	"font":               Recompile,

	"select_mode": FullRebuild,
}

// ForAttribute returns the severity of changing the named attribute.
// Attributes not listed as trivial affect geometry and need a full
// rebuild.
func ForAttribute(name string) Severity {
	if s, ok := attributeSeverity[name]; ok {
		return s
	}
	return FullRebuild
}
