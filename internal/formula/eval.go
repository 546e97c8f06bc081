package formula

import "math"

// Eval computes the numeric value of a parsed expression with the given
// variable bindings. The bool result is false when the value is undefined:
// division by zero, a domain error in a builtin, or a non-finite result.
// Undefined never panics and never produces Inf/NaN; callers render it as
// a null metric value.
//
// Every free variable must be present in env. A missing variable also
// yields undefined, though validation guarantees it cannot happen for
// formulas that passed the dependency check.
func Eval(n Node, env map[string]float64) (float64, bool) {
	switch node := n.(type) {
	case *NumberNode:
		return node.Value, true

	case *IdentNode:
		if c, ok := constants[node.Name]; ok {
			return c, true
		}
		v, ok := env[node.Name]
		return v, ok

	case *UnaryNode:
		v, ok := Eval(node.Operand, env)
		if !ok {
			return 0, false
		}
		if node.Op == "-" {
			return -v, true
		}
		return v, true

	case *BinaryNode:
		left, ok := Eval(node.Left, env)
		if !ok {
			return 0, false
		}
		right, ok := Eval(node.Right, env)
		if !ok {
			return 0, false
		}
		switch node.Op {
		case "+":
			return finite(left + right)
		case "-":
			return finite(left - right)
		case "*":
			return finite(left * right)
		case "/":
			if right == 0 {
				return 0, false
			}
			return finite(left / right)
		case "^":
			return finite(math.Pow(left, right))
		}
		return 0, false

	case *CallNode:
		fn := builtins[node.Name]
		args := make([]float64, len(node.Args))
		for i, argNode := range node.Args {
			v, ok := Eval(argNode, env)
			if !ok {
				return 0, false
			}
			args[i] = v
		}
		return fn.evaluate(args)
	}

	return 0, false
}
