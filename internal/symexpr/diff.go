package symexpr

import (
	"fmt"

	"github.com/expr-lang/expr/ast"
)

// Differentiate returns d(src)/d(name) as expression source, simplified.
// Expressions outside the supported algebra (conditionals, comparisons,
// non-differentiable builtins) are rejected with an error.
func (e *Engine) Differentiate(src, name string) (string, error) {
	node, err := e.Parse(src)
	if err != nil {
		return "", err
	}
	d, err := diff(node, name)
	if err != nil {
		return "", err
	}
	return render(simplify(d)), nil
}

// Simplify folds constants and prunes algebraic identities.
func (e *Engine) Simplify(src string) (string, error) {
	node, err := e.Parse(src)
	if err != nil {
		return "", err
	}
	return render(simplify(node)), nil
}

func diff(n ast.Node, v string) (ast.Node, error) {
	switch n := n.(type) {
	case *ast.IntegerNode, *ast.FloatNode, *ast.ConstantNode:
		return intNode(0), nil

	case *ast.IdentifierNode:
		if n.Value == v {
			return intNode(1), nil
		}
		// any other identifier (state, pi, e) is constant w.r.t. v
		return intNode(0), nil

	case *ast.UnaryNode:
		switch n.Operator {
		case "-":
			d, err := diff(n.Node, v)
			if err != nil {
				return nil, err
			}
			return neg(d), nil
		case "+":
			return diff(n.Node, v)
		}
		return nil, fmt.Errorf("symexpr: cannot differentiate unary %q", n.Operator)

	case *ast.BinaryNode:
		return diffBinary(n, v)

	case *ast.CallNode:
		return diffCall(n, v)
	}
	return nil, fmt.Errorf("symexpr: cannot differentiate %T", n)
}

func diffBinary(n *ast.BinaryNode, v string) (ast.Node, error) {
	dl, err := diff(n.Left, v)
	if err != nil {
		return nil, err
	}
	dr, err := diff(n.Right, v)
	if err != nil {
		return nil, err
	}

	switch n.Operator {
	case "+", "-":
		return bin(n.Operator, dl, dr), nil

	case "*":
		// (fg)' = f'g + fg'
		return add(mul(dl, n.Right), mul(n.Left, dr)), nil

	case "/":
		// (f/g)' = (f'g - fg') / g^2
		num := sub(mul(dl, n.Right), mul(n.Left, dr))
		return div(num, pow(n.Right, intNode(2))), nil

	case "^", "**":
		if c, ok := constValue(n.Right); ok {
			// (f^c)' = c * f^(c-1) * f'
			return mul(mul(numNode(c), pow(n.Left, numNode(c-1))), dl), nil
		}
		// general a^b = exp(b*ln(a)):
		// (a^b)' = a^b * (b'*ln(a) + b*a'/a)
		inner := add(mul(dr, call("log", n.Left)), div(mul(n.Right, dl), n.Left))
		return mul(pow(n.Left, n.Right), inner), nil
	}
	return nil, fmt.Errorf("symexpr: cannot differentiate operator %q", n.Operator)
}

func diffCall(n *ast.CallNode, v string) (ast.Node, error) {
	id, ok := n.Callee.(*ast.IdentifierNode)
	if !ok || len(n.Arguments) != 1 {
		return nil, fmt.Errorf("symexpr: cannot differentiate call %s", render(n))
	}
	u := n.Arguments[0]
	du, err := diff(u, v)
	if err != nil {
		return nil, err
	}

	var outer ast.Node
	switch id.Value {
	case "sin":
		outer = call("cos", u)
	case "cos":
		outer = neg(call("sin", u))
	case "tan":
		// sec^2 u = 1/cos(u)^2
		outer = div(intNode(1), pow(call("cos", u), intNode(2)))
	case "exp":
		outer = call("exp", u)
	case "log":
		outer = div(intNode(1), u)
	case "sqrt":
		outer = div(intNode(1), mul(intNode(2), call("sqrt", u)))
	case "sinh":
		outer = call("cosh", u)
	case "cosh":
		outer = call("sinh", u)
	case "tanh":
		outer = div(intNode(1), pow(call("cosh", u), intNode(2)))
	case "asin":
		outer = div(intNode(1), call("sqrt", sub(intNode(1), pow(u, intNode(2)))))
	case "acos":
		outer = neg(div(intNode(1), call("sqrt", sub(intNode(1), pow(u, intNode(2))))))
	case "atan":
		outer = div(intNode(1), add(intNode(1), pow(u, intNode(2))))
	default:
		return nil, fmt.Errorf("symexpr: cannot differentiate function %q", id.Value)
	}
	return mul(outer, du), nil
}

// node constructors; subtrees may be shared, nothing mutates them after build.

func intNode(v int) ast.Node       { return &ast.IntegerNode{Value: v} }
func floatNode(v float64) ast.Node { return &ast.FloatNode{Value: v} }

func numNode(v float64) ast.Node {
	if v == float64(int(v)) {
		return intNode(int(v))
	}
	return floatNode(v)
}

func ident(name string) ast.Node { return &ast.IdentifierNode{Value: name} }

func bin(op string, l, r ast.Node) ast.Node {
	return &ast.BinaryNode{Operator: op, Left: l, Right: r}
}

func add(l, r ast.Node) ast.Node { return bin("+", l, r) }
func sub(l, r ast.Node) ast.Node { return bin("-", l, r) }
func mul(l, r ast.Node) ast.Node { return bin("*", l, r) }
func div(l, r ast.Node) ast.Node { return bin("/", l, r) }
func pow(l, r ast.Node) ast.Node { return bin("^", l, r) }

func neg(n ast.Node) ast.Node { return &ast.UnaryNode{Operator: "-", Node: n} }

func call(name string, arg ast.Node) ast.Node {
	return &ast.CallNode{Callee: ident(name), Arguments: []ast.Node{arg}}
}
