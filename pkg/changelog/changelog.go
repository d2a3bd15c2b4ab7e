// Package changelog records which nodes, elements and field definitions
// changed between two build cycles, and which fields changed value at
// individual entities.
package changelog

import (
	"sort"

	"github.com/chazu/fieldviz/pkg/domain"
)

// Summary condenses a log into the flags used for classification.
type Summary struct {
	IdentifiersRenumbered bool
	ValueChanged          bool
	RelatedObjectChanged  bool
	NodeChanges           int
	ElementChanges        [4]int
	// FieldValueChanges counts fields whose values changed at individual
	// entities without being redefined.
	FieldValueChanges int
}

// entities is a set of changed nodes and elements by dimension. Index 0
// holds nodes.
type entities [4]map[domain.ID]struct{}

func newEntities() *entities {
	var e entities
	for d := range e {
		e[d] = make(map[domain.ID]struct{})
	}
	return &e
}

func (e *entities) add(dimension int, id domain.ID) {
	if dimension >= 0 && dimension <= 3 {
		e[dimension][id] = struct{}{}
	}
}

// ids returns the sorted identifiers selected by k and dimension.
func (e *entities) ids(k domain.Kind, dimension int) []domain.ID {
	var set map[domain.ID]struct{}
	switch {
	case k == domain.KindNodes:
		set = e[0]
	case k.IsMesh() && dimension >= 1 && dimension <= 3:
		set = e[dimension]
	default:
		return nil
	}
	out := make([]domain.ID, 0, len(set))
	for id := range set {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Log is a per-cycle change record. It implements domain.ChangeRecorder.
// The zero value is not usable; call New.
type Log struct {
	region     *entities
	fields     map[string]struct{}
	values     map[string]*entities
	renumbered bool
}

var _ domain.ChangeRecorder = (*Log)(nil)

// New returns an empty log.
func New() *Log {
	l := &Log{}
	l.Reset()
	return l
}

// Reset clears the log at the end of a cycle.
func (l *Log) Reset() {
	l.region = newEntities()
	l.fields = make(map[string]struct{})
	l.values = make(map[string]*entities)
	l.renumbered = false
}

func (l *Log) NodeChanged(id domain.ID) {
	l.region.add(0, id)
}

func (l *Log) ElementChanged(dimension int, id domain.ID) {
	if dimension >= 1 {
		l.region.add(dimension, id)
	}
}

func (l *Log) IdentifiersChanged() {
	l.renumbered = true
}

// FieldDefinitionChanged records that a field was redefined.
func (l *Log) FieldDefinitionChanged(name string) {
	l.fields[name] = struct{}{}
}

// FieldChanged reports whether the named field was redefined.
func (l *Log) FieldChanged(name string) bool {
	_, ok := l.fields[name]
	return ok
}

// FieldEntityChanged records that the named field's value changed at one
// entity. Dimension 0 is a node.
func (l *Log) FieldEntityChanged(name string, dimension int, id domain.ID) {
	e, ok := l.values[name]
	if !ok {
		e = newEntities()
		l.values[name] = e
	}
	e.add(dimension, id)
}

// FieldValuesChanged reports whether the named field changed at any
// individual entity.
func (l *Log) FieldValuesChanged(name string) bool {
	_, ok := l.values[name]
	return ok
}

// ForEachFieldChangedEntity returns the identifiers at which the named
// field changed, selected like ForEachChangedEntity.
func (l *Log) ForEachFieldChangedEntity(name string, k domain.Kind, dimension int) []domain.ID {
	e, ok := l.values[name]
	if !ok {
		return nil
	}
	return e.ids(k, dimension)
}

// ChangedFields returns the redefined field names in sorted order.
func (l *Log) ChangedFields() []string {
	out := make([]string, 0, len(l.fields))
	for name := range l.fields {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// ForEachChangedEntity returns the changed identifiers of a domain. For
// node and data point domains the dimension is ignored; for the point
// domain nothing is ever reported.
func (l *Log) ForEachChangedEntity(k domain.Kind, dimension int) []domain.ID {
	return l.region.ids(k, dimension)
}

// Summary returns the coarse flags of the log.
func (l *Log) Summary() Summary {
	s := Summary{
		IdentifiersRenumbered: l.renumbered,
		ValueChanged:          len(l.fields) > 0,
		NodeChanges:           len(l.region[0]),
		FieldValueChanges:     len(l.values),
	}
	for d := 1; d <= 3; d++ {
		s.ElementChanges[d] = len(l.region[d])
		if s.ElementChanges[d] > 0 {
			s.RelatedObjectChanged = true
		}
	}
	if s.NodeChanges > 0 {
		s.RelatedObjectChanged = true
	}
	return s
}

// Empty reports whether nothing was recorded.
func (l *Log) Empty() bool {
	s := l.Summary()
	return !s.IdentifiersRenumbered && !s.ValueChanged && !s.RelatedObjectChanged &&
		s.FieldValueChanges == 0
}
