package field

import (
	"fmt"
	"sort"

	"github.com/chazu/fieldviz/pkg/engine"
)

// Expression evaluates a scripted expression. The coordinates of the
// location are bound as x, y and z, the evaluation time as t, and every
// input field by its name (component i of a vector input as name_i).
type Expression struct {
	Base
	engine *engine.Engine
	source string
	coords Field
	inputs map[string]Field
}

// NewExpression returns an expression field. coords may be nil, in which
// case x, y and z are not bound.
func NewExpression(name string, components int, source string, coords Field) *Expression {
	return &Expression{
		Base:   NewBase(name, components),
		engine: engine.NewEngine(),
		source: source,
		coords: coords,
		inputs: make(map[string]Field),
	}
}

// Source returns the expression text.
func (e *Expression) Source() string {
	return e.source
}

// SetSource replaces the expression text. Callers record the redefinition
// through Manager.Touch.
func (e *Expression) SetSource(source string) {
	e.source = source
}

// Bind makes another field available to the expression under its name.
func (e *Expression) Bind(f Field) {
	e.inputs[f.Name()] = f
}

// Check reports parse and evaluation errors of the expression.
func (e *Expression) Check() []engine.EvalError {
	return e.engine.Check(e.source, e.bindingNames()...)
}

func (e *Expression) bindingNames() []string {
	names := []string{"t"}
	if e.coords != nil {
		names = append(names, "x", "y", "z")
	}
	for name, f := range e.inputs {
		if f.NumberOfComponents() == 1 {
			names = append(names, name)
			continue
		}
		for i := 1; i <= f.NumberOfComponents(); i++ {
			names = append(names, fmt.Sprintf("%s_%d", name, i))
		}
	}
	sort.Strings(names)
	return names
}

func (e *Expression) Evaluate(loc Location) (Values, error) {
	bindings := map[string]float64{"t": loc.Time}
	if e.coords != nil {
		xyz, err := e.coords.Evaluate(loc)
		if err != nil {
			return nil, err
		}
		for i, name := range []string{"x", "y", "z"} {
			if i < len(xyz) {
				bindings[name] = xyz[i]
			} else {
				bindings[name] = 0
			}
		}
	}
	for name, f := range e.inputs {
		v, err := f.Evaluate(loc)
		if err != nil {
			return nil, err
		}
		if len(v) == 1 {
			bindings[name] = v[0]
			continue
		}
		for i, c := range v {
			bindings[fmt.Sprintf("%s_%d", name, i+1)] = c
		}
	}

	v, evalErrs, err := e.engine.Evaluate(e.source, bindings)
	if err != nil {
		return nil, &NotDefinedError{Field: e.Name(), Location: loc, Cause: err}
	}
	if len(evalErrs) > 0 {
		return nil, &NotDefinedError{Field: e.Name(), Location: loc, Cause: evalErrs[0]}
	}
	if len(v) != e.NumberOfComponents() {
		return nil, &NotDefinedError{Field: e.Name(), Location: loc,
			Cause: fmt.Errorf("expression produced %d components, want %d", len(v), e.NumberOfComponents())}
	}
	return Values(v), nil
}
