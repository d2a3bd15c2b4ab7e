// Package field defines the field evaluation contract used by the build
// pipeline, plus reference field implementations: constants, closures,
// node-interpolated fields, groups, scripted expressions and seed
// locations.
package field

import (
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/chazu/fieldviz/pkg/domain"
)

// Values holds the components of a field evaluated at one location.
type Values []float64

// Field is a named, reference-counted source of values over a region.
type Field interface {
	Name() string
	NumberOfComponents() int
	// Evaluate returns the field's components at loc, or an error wrapping
	// ErrNotDefined when the field has no value there.
	Evaluate(loc Location) (Values, error)

	// Access registers a reference to the field; Deaccess releases it.
	Access()
	Deaccess()
	AccessCount() int
}

// Base implements naming and reference counting for field types.
type Base struct {
	name       string
	components int
	refs       int32
}

// NewBase returns a Base with the given name and component count.
func NewBase(name string, components int) Base {
	return Base{name: name, components: components}
}

func (b *Base) Name() string            { return b.name }
func (b *Base) NumberOfComponents() int { return b.components }
func (b *Base) Access()                 { atomic.AddInt32(&b.refs, 1) }
func (b *Base) AccessCount() int        { return int(atomic.LoadInt32(&b.refs)) }

func (b *Base) Deaccess() {
	if atomic.AddInt32(&b.refs, -1) < 0 {
		atomic.StoreInt32(&b.refs, 0)
	}
}

// ---------------------------------------------------------------------------
// Locations
// ---------------------------------------------------------------------------

type locationKind int

const (
	atPoint locationKind = iota
	atNode
	atDatapoint
	atElement
)

// Location identifies where a field is evaluated.
type Location struct {
	kind    locationKind
	Element domain.Entity
	Xi      [3]float64
	Node    domain.ID
	Time    float64
}

// AtElement locates a point in element e at local coordinates xi.
func AtElement(e domain.Entity, xi [3]float64) Location {
	return Location{kind: atElement, Element: e, Xi: xi}
}

// AtNode locates a node.
func AtNode(id domain.ID) Location {
	return Location{kind: atNode, Node: id}
}

// AtDatapoint locates a data point.
func AtDatapoint(id domain.ID) Location {
	return Location{kind: atDatapoint, Node: id}
}

// AtPoint is the location of the abstract point domain.
func AtPoint() Location {
	return Location{kind: atPoint}
}

// WithTime returns a copy of l evaluated at time t.
func (l Location) WithTime(t float64) Location {
	l.Time = t
	return l
}

func (l Location) IsElement() bool   { return l.kind == atElement }
func (l Location) IsNode() bool      { return l.kind == atNode }
func (l Location) IsDatapoint() bool { return l.kind == atDatapoint }
func (l Location) IsPoint() bool     { return l.kind == atPoint }

func (l Location) String() string {
	switch l.kind {
	case atElement:
		return fmt.Sprintf("element %d (%d-D) xi %v", l.Element.ID, l.Element.Dimension, l.Xi)
	case atNode:
		return fmt.Sprintf("node %d", l.Node)
	case atDatapoint:
		return fmt.Sprintf("data point %d", l.Node)
	default:
		return "point"
	}
}

// LocationOf returns the location at the centre of an iterated entity.
func LocationOf(e domain.Entity, kind domain.Kind) Location {
	switch {
	case e.IsPoint():
		return AtPoint()
	case kind == domain.KindDatapoints:
		return AtDatapoint(e.ID)
	case e.Dimension == 0:
		return AtNode(e.ID)
	default:
		return AtElement(e, domain.Centre(e.Dimension))
	}
}

// ---------------------------------------------------------------------------
// Errors
// ---------------------------------------------------------------------------

// ErrNotDefined is matched by every NotDefinedError.
var ErrNotDefined = errors.New("field not defined")

// ErrFieldInUse is returned when removing a field that is still accessed.
var ErrFieldInUse = errors.New("field is in use")

// ErrNotFound is returned for unknown field names.
var ErrNotFound = errors.New("field not found")

// NotDefinedError reports a field without a value at a location.
type NotDefinedError struct {
	Field    string
	Location Location
	Cause    error
}

func (e *NotDefinedError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("field %q not defined at %s: %v", e.Field, e.Location, e.Cause)
	}
	return fmt.Sprintf("field %q not defined at %s", e.Field, e.Location)
}

func (e *NotDefinedError) Is(target error) bool {
	return target == ErrNotDefined
}

func (e *NotDefinedError) Unwrap() error {
	return e.Cause
}

func notDefined(f Field, loc Location) error {
	return &NotDefinedError{Field: f.Name(), Location: loc}
}

// ---------------------------------------------------------------------------
// Capabilities
// ---------------------------------------------------------------------------

// GroupView answers membership queries for a group-valued field.
type GroupView interface {
	Contains(e domain.Entity) bool
	ContainsDatapoint(id domain.ID) bool
	Size(dimension int) int
}

// MeshLocationView maps nodes to stored element locations.
type MeshLocationView interface {
	Locate(node domain.ID) (domain.Entity, [3]float64, bool)
}

type groupCapable interface {
	AsGroup() (GroupView, bool)
}

type meshLocationCapable interface {
	AsMeshLocation() (MeshLocationView, bool)
}

// AsGroup returns the group view of f when f is a group field.
func AsGroup(f Field) (GroupView, bool) {
	if g, ok := f.(groupCapable); ok {
		return g.AsGroup()
	}
	return nil, false
}

// AsMeshLocation returns the mesh location view of f when f stores
// element locations.
func AsMeshLocation(f Field) (MeshLocationView, bool) {
	if m, ok := f.(meshLocationCapable); ok {
		return m.AsMeshLocation()
	}
	return nil, false
}

// EvaluateBoolean evaluates f at loc and reports whether its first
// component is non-zero. Group fields answer from membership directly.
func EvaluateBoolean(f Field, loc Location) (bool, error) {
	if g, ok := AsGroup(f); ok {
		switch {
		case loc.IsElement():
			return g.Contains(loc.Element), nil
		case loc.IsNode():
			return g.Contains(domain.Entity{ID: loc.Node}), nil
		case loc.IsDatapoint():
			return g.ContainsDatapoint(loc.Node), nil
		}
	}
	v, err := f.Evaluate(loc)
	if err != nil {
		return false, err
	}
	return len(v) > 0 && v[0] != 0, nil
}
