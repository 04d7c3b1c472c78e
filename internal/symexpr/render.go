package symexpr

import (
	"strconv"
	"strings"

	"github.com/expr-lang/expr/ast"
)

// render prints a node back to expression source. Binary subexpressions are
// parenthesized explicitly so the output re-parses with the same shape
// regardless of precedence.
func render(n ast.Node) string {
	switch n := n.(type) {
	case *ast.IntegerNode:
		return strconv.Itoa(n.Value)
	case *ast.FloatNode:
		return strconv.FormatFloat(n.Value, 'g', -1, 64)
	case *ast.IdentifierNode:
		return n.Value
	case *ast.UnaryNode:
		if _, binary := n.Node.(*ast.BinaryNode); binary {
			return n.Operator + "(" + render(n.Node) + ")"
		}
		return n.Operator + render(n.Node)
	case *ast.BinaryNode:
		op := n.Operator
		if op == "**" {
			op = "^"
		}
		return "(" + render(n.Left) + " " + op + " " + render(n.Right) + ")"
	case *ast.CallNode:
		args := make([]string, len(n.Arguments))
		for i, a := range n.Arguments {
			args[i] = render(a)
		}
		return render(n.Callee) + "(" + strings.Join(args, ", ") + ")"
	case *ast.BuiltinNode:
		args := make([]string, len(n.Arguments))
		for i, a := range n.Arguments {
			args[i] = render(a)
		}
		return n.Name + "(" + strings.Join(args, ", ") + ")"
	}
	// unsupported nodes never survive diff/simplify; fall back to the
	// library's own printer for diagnostics
	return n.String()
}
