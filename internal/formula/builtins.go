package formula

import "math"

// builtinFunc evaluates a builtin over already-computed argument values.
// The bool result is false when the value is undefined (domain error,
// non-finite result), which the caller treats as null.
type builtinFunc struct {
	arity    int // -1 means variadic, minimum one argument
	evaluate func(args []float64) (float64, bool)
}

// builtins is the fixed allowlist of function names callable from formulas.
var builtins = map[string]builtinFunc{
	"sqrt":  {1, func(a []float64) (float64, bool) { return finite(math.Sqrt(a[0])) }},
	"abs":   {1, func(a []float64) (float64, bool) { return math.Abs(a[0]), true }},
	"round": {1, func(a []float64) (float64, bool) { return math.Round(a[0]), true }},
	"floor": {1, func(a []float64) (float64, bool) { return math.Floor(a[0]), true }},
	"ceil":  {1, func(a []float64) (float64, bool) { return math.Ceil(a[0]), true }},
	"log":   {1, func(a []float64) (float64, bool) { return finite(math.Log(a[0])) }},
	"exp":   {1, func(a []float64) (float64, bool) { return finite(math.Exp(a[0])) }},
	"sin":   {1, func(a []float64) (float64, bool) { return math.Sin(a[0]), true }},
	"cos":   {1, func(a []float64) (float64, bool) { return math.Cos(a[0]), true }},
	"tan":   {1, func(a []float64) (float64, bool) { return finite(math.Tan(a[0])) }},
	"pow":   {2, func(a []float64) (float64, bool) { return finite(math.Pow(a[0], a[1])) }},
	"max": {-1, func(a []float64) (float64, bool) {
		m := a[0]
		for _, v := range a[1:] {
			if v > m {
				m = v
			}
		}
		return m, true
	}},
	"min": {-1, func(a []float64) (float64, bool) {
		m := a[0]
		for _, v := range a[1:] {
			if v < m {
				m = v
			}
		}
		return m, true
	}},
}

// constants are reserved identifiers with fixed values.
var constants = map[string]float64{
	"pi": math.Pi,
	"e":  math.E,
}

// IsBuiltin reports whether name is a builtin function or constant and
// therefore not a free variable.
func IsBuiltin(name string) bool {
	if _, ok := builtins[name]; ok {
		return true
	}
	_, ok := constants[name]
	return ok
}

func finite(v float64) (float64, bool) {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}
