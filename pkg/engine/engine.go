// Package engine evaluates scripted field expressions. It wraps zygomys in
// a sandboxed environment, binds the evaluation location as variables and
// converts the result into a vector of numbers.
package engine

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	zygo "github.com/glycerine/zygomys/zygo"
)

// EvalError represents a non-fatal error encountered during evaluation,
// such as a parse error or a runtime error in the expression.
type EvalError struct {
	Line    int
	Col     int
	Message string
}

func (e EvalError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("line %d: %s", e.Line, e.Message)
	}
	return e.Message
}

// Value is the numeric result of an expression. Booleans evaluate to a
// single 1 or 0.
type Value []float64

// Engine wraps the zygomys interpreter. Each call to Evaluate creates a
// fresh sandboxed environment for determinism. A newer evaluation started
// on the same engine while an older one is still running supersedes it.
type Engine struct {
	// Timeout bounds each evaluation; zero means DefaultTimeout.
	Timeout time.Duration

	mu         sync.Mutex
	generation uint64
}

// NewEngine creates a new Engine instance.
func NewEngine() *Engine {
	return &Engine{}
}

// Evaluate runs source with each binding defined as a global variable.
//
// Return semantics:
//   - On success: returns value + nil errors + nil error
//   - On parse/eval failure: returns nil value + eval errors + nil error
//   - On fatal failure (timeout, panic): returns nil + nil + error
func (e *Engine) Evaluate(source string, bindings map[string]float64) (Value, []EvalError, error) {
	e.mu.Lock()
	e.generation++
	gen := e.generation
	e.mu.Unlock()

	ch := make(chan evalResult, 1)

	go func() {
		defer func() {
			if r := recover(); r != nil {
				ch <- evalResult{err: fmt.Errorf("panic during evaluation: %v", r)}
			}
		}()

		v, evalErrs, err := e.evaluate(source, bindings)
		ch <- evalResult{value: v, errors: evalErrs, err: err}
	}()

	return e.wait(ch, gen)
}

// Check parses and runs source once with every binding set to zero,
// returning the errors an expression field would report.
func (e *Engine) Check(source string, names ...string) []EvalError {
	bindings := make(map[string]float64, len(names))
	for _, n := range names {
		bindings[n] = 0
	}
	_, evalErrs, err := e.Evaluate(source, bindings)
	if err != nil {
		return []EvalError{{Message: err.Error()}}
	}
	return evalErrs
}

// evaluate performs the actual zygomys evaluation in a fresh sandbox.
func (e *Engine) evaluate(source string, bindings map[string]float64) (Value, []EvalError, error) {
	if strings.TrimSpace(source) == "" {
		return nil, []EvalError{{Message: "empty expression"}}, nil
	}

	// Sandbox mode prevents expressions from accessing the filesystem or syscalls.
	env := zygo.NewZlispSandbox()
	defer env.Stop()
	registerBuiltins(env)

	// The prelude stays on the first line so reported line numbers match
	// the user's source.
	program := bindingPrelude(bindings) + preprocessSource(source)
	if err := env.LoadString(program); err != nil {
		return nil, parseZygomysError(err), nil
	}

	result, err := env.Run()
	if err != nil {
		return nil, parseZygomysError(err), nil
	}

	v, err := toValue(result)
	if err != nil {
		return nil, []EvalError{{Message: err.Error()}}, nil
	}
	return v, nil, nil
}

// bindingPrelude renders bindings as (def name value) forms in name order.
func bindingPrelude(bindings map[string]float64) string {
	names := make([]string, 0, len(bindings))
	for n := range bindings {
		names = append(names, n)
	}
	sort.Strings(names)

	var b strings.Builder
	for _, n := range names {
		fmt.Fprintf(&b, "(def %s %s) ", strings.ReplaceAll(n, "-", "_"), floatLiteral(bindings[n]))
	}
	return b.String()
}

// floatLiteral formats v so zygomys reads it back as a float. Negative
// values are written as a subtraction from zero.
func floatLiteral(v float64) string {
	neg := v < 0
	if neg {
		v = -v
	}
	s := strconv.FormatFloat(v, 'f', -1, 64)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	if neg {
		return "(- 0.0 " + s + ")"
	}
	return s
}

// linePattern matches zygomys error messages that include "Error on line N: ..."
var linePattern = regexp.MustCompile(`(?i)(?:error )?on line (\d+):\s*(.*)`)

// linePatternShort matches simpler "line N: ..." patterns.
var linePatternShort = regexp.MustCompile(`(?i)^line (\d+):\s*(.*)`)

// parseZygomysError converts a zygomys error into one or more EvalError values.
func parseZygomysError(err error) []EvalError {
	msg := err.Error()

	for _, p := range []*regexp.Regexp{linePattern, linePatternShort} {
		if m := p.FindStringSubmatch(msg); m != nil {
			line, _ := strconv.Atoi(m[1])
			return []EvalError{{
				Line:    line,
				Message: strings.TrimSpace(m[2]),
			}}
		}
	}

	return []EvalError{{Message: strings.TrimSpace(msg)}}
}
