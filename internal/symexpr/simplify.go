package symexpr

import (
	"math"

	"github.com/expr-lang/expr/ast"
)

// simplify rewrites bottom-up: fold constant subtrees, prune identities.
// It returns new nodes and never mutates its input.
func simplify(n ast.Node) ast.Node {
	switch n := n.(type) {
	case *ast.UnaryNode:
		child := simplify(n.Node)
		switch n.Operator {
		case "+":
			return child
		case "-":
			if c, ok := constValue(child); ok {
				return numNode(-c)
			}
			if inner, ok := child.(*ast.UnaryNode); ok && inner.Operator == "-" {
				return inner.Node
			}
			return neg(child)
		}
		return &ast.UnaryNode{Operator: n.Operator, Node: child}

	case *ast.BinaryNode:
		return simplifyBinary(n.Operator, simplify(n.Left), simplify(n.Right))

	case *ast.CallNode:
		args := make([]ast.Node, len(n.Arguments))
		for i, a := range n.Arguments {
			args[i] = simplify(a)
		}
		return &ast.CallNode{Callee: n.Callee, Arguments: args}
	}
	return n
}

func simplifyBinary(op string, l, r ast.Node) ast.Node {
	lc, lok := constValue(l)
	rc, rok := constValue(r)

	if lok && rok {
		if v, ok := foldConst(op, lc, rc); ok {
			return numNode(v)
		}
	}

	switch op {
	case "+":
		if lok && lc == 0 {
			return r
		}
		if rok && rc == 0 {
			return l
		}
	case "-":
		if rok && rc == 0 {
			return l
		}
		if lok && lc == 0 {
			return simplify(neg(r))
		}
	case "*":
		if (lok && lc == 0) || (rok && rc == 0) {
			return intNode(0)
		}
		if lok && lc == 1 {
			return r
		}
		if rok && rc == 1 {
			return l
		}
		if lok && lc == -1 {
			return simplify(neg(r))
		}
		if rok && rc == -1 {
			return simplify(neg(l))
		}
	case "/":
		if lok && lc == 0 && !(rok && rc == 0) {
			return intNode(0)
		}
		if rok && rc == 1 {
			return l
		}
	case "^", "**":
		if rok && rc == 0 {
			return intNode(1)
		}
		if rok && rc == 1 {
			return l
		}
		if lok && lc == 1 {
			return intNode(1)
		}
	}
	return bin(op, l, r)
}

func foldConst(op string, l, r float64) (float64, bool) {
	var v float64
	switch op {
	case "+":
		v = l + r
	case "-":
		v = l - r
	case "*":
		v = l * r
	case "/":
		if r == 0 {
			return 0, false
		}
		v = l / r
	case "^", "**":
		v = math.Pow(l, r)
	default:
		return 0, false
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

// constValue reports whether the node is a numeric literal, including a
// negated one.
func constValue(n ast.Node) (float64, bool) {
	switch n := n.(type) {
	case *ast.IntegerNode:
		return float64(n.Value), true
	case *ast.FloatNode:
		return n.Value, true
	case *ast.UnaryNode:
		if n.Operator == "-" {
			if c, ok := constValue(n.Node); ok {
				return -c, true
			}
		}
	}
	return 0, false
}
