package field

import "fmt"

// Constant has the same value everywhere, including the abstract point.
type Constant struct {
	Base
	values Values
}

// NewConstant returns a constant field with the given components.
func NewConstant(name string, values ...float64) *Constant {
	return &Constant{Base: NewBase(name, len(values)), values: append(Values(nil), values...)}
}

func (c *Constant) Evaluate(Location) (Values, error) {
	return append(Values(nil), c.values...), nil
}

// Func evaluates a Go closure.
type Func struct {
	Base
	fn func(Location) (Values, error)
}

// NewFunc returns a field backed by fn, which must return components
// values or an error.
func NewFunc(name string, components int, fn func(Location) (Values, error)) *Func {
	return &Func{Base: NewBase(name, components), fn: fn}
}

func (f *Func) Evaluate(loc Location) (Values, error) {
	v, err := f.fn(loc)
	if err != nil {
		return nil, &NotDefinedError{Field: f.Name(), Location: loc, Cause: err}
	}
	if len(v) != f.NumberOfComponents() {
		return nil, &NotDefinedError{Field: f.Name(), Location: loc,
			Cause: fmt.Errorf("got %d components, want %d", len(v), f.NumberOfComponents())}
	}
	return v, nil
}

// Component selects one component of another field.
type Component struct {
	Base
	source Field
	index  int
}

// NewComponent returns a scalar view of component index (0-based) of src.
func NewComponent(src Field, index int) (*Component, error) {
	if index < 0 || index >= src.NumberOfComponents() {
		return nil, fmt.Errorf("field: %s has no component %d", src.Name(), index+1)
	}
	name := fmt.Sprintf("%s.%d", src.Name(), index+1)
	return &Component{Base: NewBase(name, 1), source: src, index: index}, nil
}

func (c *Component) Evaluate(loc Location) (Values, error) {
	v, err := c.source.Evaluate(loc)
	if err != nil {
		return nil, err
	}
	return Values{v[c.index]}, nil
}

// rectangular pads a coordinate field of fewer than three components.
type rectangular struct {
	Base
	source Field
}

// RectangularCartesian maps a coordinate field of one to three components
// into three rectangular Cartesian components, padding with zeros. Fields
// that already have three components are returned unchanged.
func RectangularCartesian(f Field) Field {
	if f == nil || f.NumberOfComponents() == 3 {
		return f
	}
	return &rectangular{Base: NewBase(f.Name(), 3), source: f}
}

func (r *rectangular) Evaluate(loc Location) (Values, error) {
	v, err := r.source.Evaluate(loc)
	if err != nil {
		return nil, err
	}
	out := make(Values, 3)
	copy(out, v)
	return out, nil
}
