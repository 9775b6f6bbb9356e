package scheduling

import (
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/gitrdm/gosched/pkg/fd"
)

// ExprKind identifies an IntervalExpr node.
type ExprKind int

const (
	ExprConst ExprKind = iota
	ExprStartOf
	ExprEndOf
	ExprSizeOf
	ExprLengthOf
	ExprPresenceOf
	ExprOverlapLength
	ExprAdd
	ExprSub
	ExprMul
	ExprDiv
	ExprNeg
	ExprAbs
	ExprMin
	ExprMax
	ExprEq
	ExprNe
	ExprLt
	ExprLe
	ExprGt
	ExprGe
)

var exprNames = map[ExprKind]string{
	ExprConst: "const", ExprStartOf: "start_of", ExprEndOf: "end_of",
	ExprSizeOf: "size_of", ExprLengthOf: "length_of", ExprPresenceOf: "presence_of",
	ExprOverlapLength: "overlap_length", ExprAdd: "+", ExprSub: "-", ExprMul: "*",
	ExprDiv: "/", ExprNeg: "neg", ExprAbs: "abs", ExprMin: "min", ExprMax: "max",
	ExprEq: "==", ExprNe: "!=", ExprLt: "<", ExprLe: "<=", ExprGt: ">", ExprGe: ">=",
}

func (k ExprKind) String() string {
	if s, ok := exprNames[k]; ok {
		return s
	}
	return fmt.Sprintf("ExprKind(%d)", int(k))
}

// exprIDs numbers expressions. Expressions are not tied to a model, so the
// counter is shared by the process; ids only need to be unique.
var exprIDs atomic.Int64

// IntervalExpr is an immutable expression over interval attributes. It is
// independent of any model until compiled with Model.Compile.
type IntervalExpr struct {
	id     int64
	kind   ExprKind
	value  int
	ivs    []Interval
	absent int
	args   []*IntervalExpr
}

func newExpr(kind ExprKind, args ...*IntervalExpr) *IntervalExpr {
	return &IntervalExpr{id: exprIDs.Add(1), kind: kind, args: args}
}

func leaf(kind ExprKind, absentValue int, ivs ...Interval) *IntervalExpr {
	e := newExpr(kind)
	e.ivs = ivs
	e.absent = absentValue
	return e
}

// Lit is a constant expression.
func Lit(v int) *IntervalExpr {
	e := newExpr(ExprConst)
	e.value = v
	return e
}

// StartOf is the start of iv, or absentValue when iv is absent.
func StartOf(iv Interval, absentValue int) *IntervalExpr {
	return leaf(ExprStartOf, absentValue, iv)
}

// EndOf is the end of iv, or absentValue when iv is absent.
func EndOf(iv Interval, absentValue int) *IntervalExpr {
	return leaf(ExprEndOf, absentValue, iv)
}

// SizeOf is the size of iv, or absentValue when iv is absent.
func SizeOf(iv Interval, absentValue int) *IntervalExpr {
	return leaf(ExprSizeOf, absentValue, iv)
}

// LengthOf is the length of iv, or absentValue when iv is absent.
func LengthOf(iv Interval, absentValue int) *IntervalExpr {
	return leaf(ExprLengthOf, absentValue, iv)
}

// PresenceOfExpr is 1 when iv is present and 0 otherwise.
func PresenceOfExpr(iv Interval) *IntervalExpr {
	return leaf(ExprPresenceOf, 0, iv)
}

// OverlapLength is the length of the intersection of a and b, or
// absentValue when either is absent.
func OverlapLength(a, b Interval, absentValue int) *IntervalExpr {
	return leaf(ExprOverlapLength, absentValue, a, b)
}

// ID returns the unique id of the node.
func (e *IntervalExpr) ID() int64 { return e.id }

// Kind returns the node kind.
func (e *IntervalExpr) Kind() ExprKind { return e.kind }

// Args returns the operands.
func (e *IntervalExpr) Args() []*IntervalExpr { return append([]*IntervalExpr(nil), e.args...) }

// Add returns e + o.
func (e *IntervalExpr) Add(o *IntervalExpr) *IntervalExpr { return newExpr(ExprAdd, e, o) }

// Sub returns e - o.
func (e *IntervalExpr) Sub(o *IntervalExpr) *IntervalExpr { return newExpr(ExprSub, e, o) }

// Mul returns e * o.
func (e *IntervalExpr) Mul(o *IntervalExpr) *IntervalExpr { return newExpr(ExprMul, e, o) }

// Div returns e / o, rounding toward negative infinity.
func (e *IntervalExpr) Div(o *IntervalExpr) *IntervalExpr { return newExpr(ExprDiv, e, o) }

// Neg returns -e.
func (e *IntervalExpr) Neg() *IntervalExpr { return newExpr(ExprNeg, e) }

// Abs returns |e|.
func (e *IntervalExpr) Abs() *IntervalExpr { return newExpr(ExprAbs, e) }

// Eq returns the 0/1 truth of e == o.
func (e *IntervalExpr) Eq(o *IntervalExpr) *IntervalExpr { return newExpr(ExprEq, e, o) }

// Ne returns the 0/1 truth of e != o.
func (e *IntervalExpr) Ne(o *IntervalExpr) *IntervalExpr { return newExpr(ExprNe, e, o) }

// Lt returns the 0/1 truth of e < o.
func (e *IntervalExpr) Lt(o *IntervalExpr) *IntervalExpr { return newExpr(ExprLt, e, o) }

// Le returns the 0/1 truth of e <= o.
func (e *IntervalExpr) Le(o *IntervalExpr) *IntervalExpr { return newExpr(ExprLe, e, o) }

// Gt returns the 0/1 truth of e > o.
func (e *IntervalExpr) Gt(o *IntervalExpr) *IntervalExpr { return newExpr(ExprGt, e, o) }

// Ge returns the 0/1 truth of e >= o.
func (e *IntervalExpr) Ge(o *IntervalExpr) *IntervalExpr { return newExpr(ExprGe, e, o) }

// ExprMinOf is the minimum of at least two expressions.
func ExprMinOf(args ...*IntervalExpr) (*IntervalExpr, error) {
	if len(args) < 2 {
		return nil, valueErrorf("ExprMinOf", "needs at least 2 arguments, got %d", len(args))
	}
	return newExpr(ExprMin, args...), nil
}

// ExprMaxOf is the maximum of at least two expressions.
func ExprMaxOf(args ...*IntervalExpr) (*IntervalExpr, error) {
	if len(args) < 2 {
		return nil, valueErrorf("ExprMaxOf", "needs at least 2 arguments, got %d", len(args))
	}
	return newExpr(ExprMax, args...), nil
}

// IsComparison reports whether the node is a relation.
func (e *IntervalExpr) IsComparison() bool {
	return e.kind >= ExprEq && e.kind <= ExprGe
}

// Intervals lists the intervals referenced anywhere in the tree.
func (e *IntervalExpr) Intervals() []Interval {
	seen := make(map[Interval]bool)
	var out []Interval
	var walk func(*IntervalExpr)
	walk = func(n *IntervalExpr) {
		for _, iv := range n.ivs {
			if !seen[iv] {
				seen[iv] = true
				out = append(out, iv)
			}
		}
		for _, a := range n.args {
			walk(a)
		}
	}
	walk(e)
	return out
}

func (e *IntervalExpr) String() string {
	switch e.kind {
	case ExprConst:
		return fmt.Sprint(e.value)
	case ExprPresenceOf:
		return fmt.Sprintf("presence_of(#%d)", int(e.ivs[0]))
	case ExprOverlapLength:
		return fmt.Sprintf("overlap_length(#%d, #%d)", int(e.ivs[0]), int(e.ivs[1]))
	case ExprStartOf, ExprEndOf, ExprSizeOf, ExprLengthOf:
		return fmt.Sprintf("%s(#%d)", e.kind, int(e.ivs[0]))
	case ExprNeg, ExprAbs, ExprMin, ExprMax:
		parts := make([]string, len(e.args))
		for i, a := range e.args {
			parts[i] = a.String()
		}
		return fmt.Sprintf("%s(%s)", e.kind, strings.Join(parts, ", "))
	}
	return fmt.Sprintf("(%s %s %s)", e.args[0], e.kind, e.args[1])
}

// Compile lowers e to an fd node over the model's variables.
func (m *Model) Compile(e *IntervalExpr) (fd.Node, error) {
	const op = "Compile"
	if e == nil {
		return fd.Node{}, valueErrorf(op, "nil expression")
	}
	switch e.kind {
	case ExprConst:
		return fd.Const(e.value), nil
	case ExprStartOf, ExprEndOf, ExprSizeOf, ExprLengthOf, ExprPresenceOf:
		enc, err := m.use1(op, e.ivs[0])
		if err != nil {
			return fd.Node{}, err
		}
		switch e.kind {
		case ExprStartOf:
			return ifPresent(enc, fd.V(enc.start), e.absent), nil
		case ExprEndOf:
			return ifPresent(enc, enc.end, e.absent), nil
		case ExprSizeOf:
			return ifPresent(enc, enc.size, e.absent), nil
		case ExprLengthOf:
			return ifPresent(enc, enc.length, e.absent), nil
		}
		return enc.presence, nil
	case ExprOverlapLength:
		encs, err := m.use(op, e.ivs...)
		if err != nil {
			return fd.Node{}, err
		}
		a, b := encs[0], encs[1]
		ov := fd.Max(fd.Const(0), fd.Sub(fd.Min(a.end, b.end), fd.Max(fd.V(a.start), fd.V(b.start))))
		return ifPresent(b, ifPresent(a, ov, e.absent), e.absent), nil
	}

	args := make([]fd.Node, len(e.args))
	for i, a := range e.args {
		n, err := m.Compile(a)
		if err != nil {
			return fd.Node{}, err
		}
		args[i] = n
	}
	ops := map[ExprKind]fd.Op{
		ExprAdd: fd.OpAdd, ExprSub: fd.OpSub, ExprMul: fd.OpMul, ExprDiv: fd.OpDiv,
		ExprNeg: fd.OpNeg, ExprAbs: fd.OpAbs, ExprMin: fd.OpMin, ExprMax: fd.OpMax,
		ExprEq: fd.OpEq, ExprNe: fd.OpNe, ExprLt: fd.OpLt, ExprLe: fd.OpLe,
		ExprGt: fd.OpGt, ExprGe: fd.OpGe,
	}
	fop, ok := ops[e.kind]
	if !ok {
		return fd.Node{}, typeErrorf(op, "unknown expression kind %s", e.kind)
	}
	return fd.Build(fop, args...)
}

// AddExpr compiles a comparison and posts it.
func (m *Model) AddExpr(e *IntervalExpr) error {
	if e == nil || !e.IsComparison() {
		return valueErrorf("AddExpr", "only comparisons can be posted")
	}
	n, err := m.Compile(e)
	if err != nil {
		return err
	}
	return m.Add(n)
}
