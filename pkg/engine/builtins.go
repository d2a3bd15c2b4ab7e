package engine

import (
	"fmt"
	"math"

	zygo "github.com/glycerine/zygomys/zygo"
)

// ---------------------------------------------------------------------------
// Source preprocessing
// ---------------------------------------------------------------------------

// preprocessSource transforms expression source before passing it to
// zygomys:
//
//  1. ; line comments become // comments, which is what zygomys expects.
//  2. Kebab-case identifiers become underscores: wall-temp -> wall_temp.
//     zygomys reads a hyphen inside an identifier as subtraction.
//
// Both transformations respect string literal boundaries.
func preprocessSource(source string) string {
	result := make([]byte, 0, len(source)+len(source)/4)
	b := []byte(source)
	i := 0
	for i < len(b) {
		if b[i] == '"' {
			result = append(result, b[i])
			i++
			for i < len(b) && b[i] != '"' {
				if b[i] == '\\' && i+1 < len(b) {
					result = append(result, b[i], b[i+1])
					i += 2
					continue
				}
				result = append(result, b[i])
				i++
			}
			if i < len(b) {
				result = append(result, b[i])
				i++
			}
			continue
		}
		if b[i] == ';' {
			result = append(result, '/', '/')
			i++
			for i < len(b) && b[i] == ';' {
				i++
			}
			for i < len(b) && b[i] != '\n' {
				result = append(result, b[i])
				i++
			}
			continue
		}
		// Only when the hyphen sits between identifier characters; a
		// lone hyphen is the minus operator.
		if b[i] == '-' && i > 0 && i+1 < len(b) &&
			isIdentChar(b[i-1]) && isLetter(b[i+1]) {
			result = append(result, '_')
			i++
			continue
		}
		result = append(result, b[i])
		i++
	}
	return string(result)
}

func isLetter(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isIdentChar(c byte) bool {
	return isLetter(c) || (c >= '0' && c <= '9') || c == '_'
}

// ---------------------------------------------------------------------------
// Value extraction helpers
// ---------------------------------------------------------------------------

// toFloat64 extracts a float64 from a Sexp (SexpInt or SexpFloat).
func toFloat64(s zygo.Sexp) (float64, error) {
	switch v := s.(type) {
	case *zygo.SexpInt:
		return float64(v.Val), nil
	case *zygo.SexpFloat:
		return v.Val, nil
	case *zygo.SexpBool:
		if v.Val {
			return 1, nil
		}
		return 0, nil
	}
	return 0, fmt.Errorf("expected number, got %T (%s)", s, s.SexpString(nil))
}

// toValue converts the result of an expression into a Value. Lists and
// arrays become vectors.
func toValue(s zygo.Sexp) (Value, error) {
	var items []zygo.Sexp
	switch v := s.(type) {
	case *zygo.SexpArray:
		items = v.Val
	case *zygo.SexpPair:
		arr, err := zygo.ListToArray(v)
		if err != nil {
			return nil, err
		}
		items = arr
	default:
		f, err := toFloat64(s)
		if err != nil {
			return nil, err
		}
		return Value{f}, nil
	}
	if len(items) == 0 {
		return nil, fmt.Errorf("expression produced an empty vector")
	}
	out := make(Value, len(items))
	for i, item := range items {
		f, err := toFloat64(item)
		if err != nil {
			return nil, fmt.Errorf("component %d: %w", i+1, err)
		}
		out[i] = f
	}
	return out, nil
}

// ---------------------------------------------------------------------------
// Builtin registration
// ---------------------------------------------------------------------------

type unaryFunc func(float64) float64

var unaryBuiltins = map[string]unaryFunc{
	"sqrt":  math.Sqrt,
	"sin":   math.Sin,
	"cos":   math.Cos,
	"tan":   math.Tan,
	"exp":   math.Exp,
	"ln":    math.Log,
	"abs":   math.Abs,
	"floor": math.Floor,
	"ceil":  math.Ceil,
}

// registerBuiltins installs the math functions available to expressions.
func registerBuiltins(env *zygo.Zlisp) {
	for name, fn := range unaryBuiltins {
		fn := fn
		env.AddFunction(name, func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
			if len(args) != 1 {
				return zygo.SexpNull, fmt.Errorf("%s requires exactly 1 argument, got %d", name, len(args))
			}
			x, err := toFloat64(args[0])
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("%s: %w", name, err)
			}
			return &zygo.SexpFloat{Val: fn(x)}, nil
		})
	}

	// (pow x y)
	env.AddFunction("pow", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) != 2 {
			return zygo.SexpNull, fmt.Errorf("pow requires exactly 2 arguments, got %d", len(args))
		}
		x, err := toFloat64(args[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("pow: base: %w", err)
		}
		y, err := toFloat64(args[1])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("pow: exponent: %w", err)
		}
		return &zygo.SexpFloat{Val: math.Pow(x, y)}, nil
	})

	// (atan2 y x)
	env.AddFunction("atan2", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) != 2 {
			return zygo.SexpNull, fmt.Errorf("atan2 requires exactly 2 arguments, got %d", len(args))
		}
		y, err := toFloat64(args[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("atan2: y: %w", err)
		}
		x, err := toFloat64(args[1])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("atan2: x: %w", err)
		}
		return &zygo.SexpFloat{Val: math.Atan2(y, x)}, nil
	})

	// (vec a b c) builds a vector result.
	env.AddFunction("vec", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) == 0 {
			return zygo.SexpNull, fmt.Errorf("vec requires at least 1 argument")
		}
		out := make([]zygo.Sexp, len(args))
		for i, a := range args {
			f, err := toFloat64(a)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("vec: component %d: %w", i+1, err)
			}
			out[i] = &zygo.SexpFloat{Val: f}
		}
		return &zygo.SexpArray{Val: out}, nil
	})
}
