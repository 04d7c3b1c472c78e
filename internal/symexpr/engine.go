package symexpr

import (
	"fmt"
	"math"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/ast"
	"github.com/expr-lang/expr/parser"
	"github.com/expr-lang/expr/vm"
)

// Engine adapts the expression subsystem: parsing and numeric evaluation are
// delegated to expr-lang, differentiation and simplification are rule sets
// over its AST.
type Engine struct{}

func New() *Engine {
	return &Engine{}
}

// mathEnv returns the functions and constants every expression may reference
// in addition to the bound state variables.
func mathEnv() map[string]any {
	return map[string]any{
		"sin":  math.Sin,
		"cos":  math.Cos,
		"tan":  math.Tan,
		"asin": math.Asin,
		"acos": math.Acos,
		"atan": math.Atan,
		"sinh": math.Sinh,
		"cosh": math.Cosh,
		"tanh": math.Tanh,
		"exp":  math.Exp,
		"log":  math.Log,
		"sqrt": math.Sqrt,
		"pi":   math.Pi,
		"e":    math.E,
	}
}

func (e *Engine) Parse(src string) (ast.Node, error) {
	tree, err := parser.Parse(src)
	if err != nil {
		return nil, fmt.Errorf("symexpr: parse %q: %w", src, err)
	}
	return tree.Node, nil
}

// Compiled is an expression compiled once and evaluated many times. The
// underlying program is safe for concurrent evaluation.
type Compiled struct {
	src  string
	prog *vm.Program
}

func (e *Engine) Compile(src string) (*Compiled, error) {
	prog, err := expr.Compile(src, expr.AllowUndefinedVariables())
	if err != nil {
		return nil, fmt.Errorf("symexpr: compile %q: %w", src, err)
	}
	return &Compiled{src: src, prog: prog}, nil
}

func (c *Compiled) Source() string { return c.src }

// Eval evaluates the compiled expression with the given variable bindings.
// An undefined variable, a non-numeric result, or a runtime domain error is
// returned as an error; the caller decides how to degrade.
func (c *Compiled) Eval(bindings map[string]float64) (float64, error) {
	env := mathEnv()
	for name, v := range bindings {
		env[name] = v
	}
	out, err := expr.Run(c.prog, env)
	if err != nil {
		return 0, fmt.Errorf("symexpr: eval %q: %w", c.src, err)
	}
	return toFloat(out)
}

// Evaluate is the compile-and-run convenience for one-shot evaluation.
func (e *Engine) Evaluate(src string, bindings map[string]float64) (float64, error) {
	c, err := e.Compile(src)
	if err != nil {
		return 0, err
	}
	return c.Eval(bindings)
}

func toFloat(v any) (float64, error) {
	switch n := v.(type) {
	case float64:
		return n, nil
	case float32:
		return float64(n), nil
	case int:
		return float64(n), nil
	case int64:
		return float64(n), nil
	case uint64:
		return float64(n), nil
	default:
		return 0, fmt.Errorf("symexpr: non-numeric result %T", v)
	}
}
