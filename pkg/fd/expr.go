package fd

import (
	"fmt"
	"strings"
)

// Op tags an expression node.
type Op int

const (
	OpInvalid Op = iota
	OpConst
	OpVar

	// Arithmetic
	OpAdd
	OpSub
	OpMul
	OpDiv
	OpNeg
	OpAbs
	OpMin
	OpMax

	// Comparison
	OpEq
	OpNe
	OpLt
	OpLe
	OpGt
	OpGe

	// Logic
	OpAnd
	OpOr
	OpNot
	OpImply

	// OpElement is array[index]: args[0] is the index, args[1:] the array.
	OpElement
)

var opNames = map[Op]string{
	OpInvalid: "invalid",
	OpConst:   "const",
	OpVar:     "var",
	OpAdd:     "add",
	OpSub:     "sub",
	OpMul:     "mul",
	OpDiv:     "div",
	OpNeg:     "neg",
	OpAbs:     "abs",
	OpMin:     "min",
	OpMax:     "max",
	OpEq:      "eq",
	OpNe:      "ne",
	OpLt:      "lt",
	OpLe:      "le",
	OpGt:      "gt",
	OpGe:      "ge",
	OpAnd:     "and",
	OpOr:      "or",
	OpNot:     "not",
	OpImply:   "imp",
	OpElement: "element",
}

func (o Op) String() string {
	if s, ok := opNames[o]; ok {
		return s
	}
	return fmt.Sprintf("op(%d)", int(o))
}

// IsBoolean reports whether nodes with this tag evaluate to 0 or 1.
func (o Op) IsBoolean() bool {
	return o >= OpEq && o <= OpImply
}

// Node is an immutable expression-tree node. Nodes are values; building a
// tree never mutates its operands. The zero Node is invalid.
//
// Integer semantics: Div is floor division. Boolean operators treat any
// non-zero operand as true and produce 0 or 1.
type Node struct {
	op    Op
	value int
	v     *FDVariable
	args  []Node
}

// Const returns a constant node.
func Const(value int) Node {
	return Node{op: OpConst, value: value}
}

// True and False are the constant truth values. Posting False makes a
// model infeasible.
func True() Node  { return Const(1) }
func False() Node { return Const(0) }

// V returns a node reading variable x.
func V(x *FDVariable) Node {
	if x == nil {
		return Node{}
	}
	return Node{op: OpVar, v: x}
}

// Build constructs a node from an operator tag and operands. It validates
// arity and is the generic entry point used by higher-level compilers.
func Build(op Op, args ...Node) (Node, error) {
	for i, a := range args {
		if a.op == OpInvalid {
			return Node{}, fmt.Errorf("Build %s: operand %d is invalid", op, i)
		}
	}
	switch op {
	case OpNeg, OpAbs, OpNot:
		if len(args) != 1 {
			return Node{}, fmt.Errorf("Build %s: want 1 operand, got %d", op, len(args))
		}
	case OpSub, OpMul, OpDiv, OpEq, OpNe, OpLt, OpLe, OpGt, OpGe, OpImply:
		if len(args) != 2 {
			return Node{}, fmt.Errorf("Build %s: want 2 operands, got %d", op, len(args))
		}
	case OpAdd, OpAnd, OpOr:
		if len(args) == 0 {
			return Node{}, fmt.Errorf("Build %s: want at least 1 operand", op)
		}
	case OpMin, OpMax:
		if len(args) < 1 {
			return Node{}, fmt.Errorf("Build %s: want at least 1 operand", op)
		}
	case OpElement:
		if len(args) < 2 {
			return Node{}, fmt.Errorf("Build element: want an index and a non-empty array")
		}
	default:
		return Node{}, fmt.Errorf("Build: operator %s takes no operands", op)
	}
	cp := make([]Node, len(args))
	copy(cp, args)
	return Node{op: op, args: cp}, nil
}

func mustBuild(op Op, args ...Node) Node {
	n, err := Build(op, args...)
	if err != nil {
		panic(err)
	}
	return n
}

// Add returns the sum of its operands.
func Add(args ...Node) Node { return mustBuild(OpAdd, args...) }

// Sub returns a - b.
func Sub(a, b Node) Node { return mustBuild(OpSub, a, b) }

// Mul returns a * b.
func Mul(a, b Node) Node { return mustBuild(OpMul, a, b) }

// Div returns floor(a / b).
func Div(a, b Node) Node { return mustBuild(OpDiv, a, b) }

// Neg returns -a.
func Neg(a Node) Node { return mustBuild(OpNeg, a) }

// Abs returns |a|.
func Abs(a Node) Node { return mustBuild(OpAbs, a) }

// Min returns the smallest operand.
func Min(args ...Node) Node { return mustBuild(OpMin, args...) }

// Max returns the largest operand.
func Max(args ...Node) Node { return mustBuild(OpMax, args...) }

func Eq(a, b Node) Node { return mustBuild(OpEq, a, b) }
func Ne(a, b Node) Node { return mustBuild(OpNe, a, b) }
func Lt(a, b Node) Node { return mustBuild(OpLt, a, b) }
func Le(a, b Node) Node { return mustBuild(OpLe, a, b) }
func Gt(a, b Node) Node { return mustBuild(OpGt, a, b) }
func Ge(a, b Node) Node { return mustBuild(OpGe, a, b) }

// And is true when every operand is true.
func And(args ...Node) Node { return mustBuild(OpAnd, args...) }

// Or is true when at least one operand is true.
func Or(args ...Node) Node { return mustBuild(OpOr, args...) }

// Not negates a truth value.
func Not(a Node) Node { return mustBuild(OpNot, a) }

// Imply is a => b.
func Imply(a, b Node) Node { return mustBuild(OpImply, a, b) }

// Element returns array[index]. Indices outside the array are infeasible.
func Element(index Node, array ...Node) Node {
	args := make([]Node, 0, len(array)+1)
	args = append(args, index)
	args = append(args, array...)
	return mustBuild(OpElement, args...)
}

// ConstArray converts integers to constant nodes.
func ConstArray(values []int) []Node {
	out := make([]Node, len(values))
	for i, v := range values {
		out[i] = Const(v)
	}
	return out
}

// Op returns the node's operator tag.
func (n Node) Op() Op { return n.op }

// Args returns the operands. The returned slice should not be modified.
func (n Node) Args() []Node { return n.args }

// IsValid reports whether n was built by a constructor.
func (n Node) IsValid() bool { return n.op != OpInvalid }

// IsConst reports whether n is a constant.
func (n Node) IsConst() bool { return n.op == OpConst }

// Value returns the constant value of a constant node.
func (n Node) Value() int { return n.value }

// Var returns the variable of a variable node, or nil.
func (n Node) Var() *FDVariable { return n.v }

// Vars returns the distinct variables referenced by the tree, in
// first-occurrence order.
func (n Node) Vars() []*FDVariable {
	seen := make(map[*FDVariable]bool)
	var out []*FDVariable
	var walk func(Node)
	walk = func(x Node) {
		if x.op == OpVar {
			if !seen[x.v] {
				seen[x.v] = true
				out = append(out, x.v)
			}
			return
		}
		for _, a := range x.args {
			walk(a)
		}
	}
	walk(n)
	return out
}

// String renders the tree in prefix form, e.g. le(add(s0,3),s1).
func (n Node) String() string {
	switch n.op {
	case OpConst:
		return fmt.Sprintf("%d", n.value)
	case OpVar:
		return n.v.name
	case OpInvalid:
		return "<invalid>"
	}
	parts := make([]string, len(n.args))
	for i, a := range n.args {
		parts[i] = a.String()
	}
	return fmt.Sprintf("%s(%s)", n.op, strings.Join(parts, ","))
}

// Eval computes the value of the tree under a complete assignment.
// Returns ErrInconsistent on division by zero or an out-of-range element index.
func (n Node) Eval(value func(*FDVariable) int) (int, error) {
	switch n.op {
	case OpConst:
		return n.value, nil
	case OpVar:
		return value(n.v), nil
	case OpInvalid:
		return 0, fmt.Errorf("Eval: invalid expression")
	}
	if n.op == OpElement {
		idx, err := n.args[0].Eval(value)
		if err != nil {
			return 0, err
		}
		if idx < 0 || idx >= len(n.args)-1 {
			return 0, ErrInconsistent
		}
		return n.args[idx+1].Eval(value)
	}
	vals := make([]int, len(n.args))
	for i, a := range n.args {
		v, err := a.Eval(value)
		if err != nil {
			return 0, err
		}
		vals[i] = v
	}
	b2i := func(b bool) int {
		if b {
			return 1
		}
		return 0
	}
	switch n.op {
	case OpAdd:
		s := 0
		for _, v := range vals {
			s += v
		}
		return s, nil
	case OpSub:
		return vals[0] - vals[1], nil
	case OpMul:
		return vals[0] * vals[1], nil
	case OpDiv:
		if vals[1] == 0 {
			return 0, ErrInconsistent
		}
		return floorDiv(vals[0], vals[1]), nil
	case OpNeg:
		return -vals[0], nil
	case OpAbs:
		if vals[0] < 0 {
			return -vals[0], nil
		}
		return vals[0], nil
	case OpMin:
		r := vals[0]
		for _, v := range vals[1:] {
			r = min(r, v)
		}
		return r, nil
	case OpMax:
		r := vals[0]
		for _, v := range vals[1:] {
			r = max(r, v)
		}
		return r, nil
	case OpEq:
		return b2i(vals[0] == vals[1]), nil
	case OpNe:
		return b2i(vals[0] != vals[1]), nil
	case OpLt:
		return b2i(vals[0] < vals[1]), nil
	case OpLe:
		return b2i(vals[0] <= vals[1]), nil
	case OpGt:
		return b2i(vals[0] > vals[1]), nil
	case OpGe:
		return b2i(vals[0] >= vals[1]), nil
	case OpAnd:
		for _, v := range vals {
			if v == 0 {
				return 0, nil
			}
		}
		return 1, nil
	case OpOr:
		for _, v := range vals {
			if v != 0 {
				return 1, nil
			}
		}
		return 0, nil
	case OpNot:
		return b2i(vals[0] == 0), nil
	case OpImply:
		return b2i(vals[0] == 0 || vals[1] != 0), nil
	}
	return 0, fmt.Errorf("Eval: unknown operator %s", n.op)
}
