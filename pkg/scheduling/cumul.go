package scheduling

import (
	"fmt"
	"strings"

	"github.com/gitrdm/gosched/pkg/fd"
)

// CumulKind is the shape of an elementary cumulative function.
type CumulKind int

const (
	// KindPulse contributes its height over [start, end) of an interval.
	KindPulse CumulKind = iota
	// KindStepAt contributes its height from a fixed time on.
	KindStepAt
	// KindStepAtStart contributes its height from the start of an interval on.
	KindStepAtStart
	// KindStepAtEnd contributes its height from the end of an interval on.
	KindStepAtEnd
)

func (k CumulKind) String() string {
	switch k {
	case KindPulse:
		return "pulse"
	case KindStepAt:
		return "step_at"
	case KindStepAtStart:
		return "step_at_start"
	case KindStepAtEnd:
		return "step_at_end"
	}
	return fmt.Sprintf("CumulKind(%d)", int(k))
}

// CumulExpr is an elementary cumulative function. The height is fixed when
// HeightMin == HeightMax and otherwise chosen by the solver.
type CumulExpr struct {
	Kind      CumulKind
	Interval  Interval
	Time      int
	HeightMin int
	HeightMax int
}

// Pulse contributes h while iv runs.
func Pulse(iv Interval, h int) CumulExpr {
	return CumulExpr{Kind: KindPulse, Interval: iv, HeightMin: h, HeightMax: h}
}

// PulseRange is a pulse whose height the solver picks in [hmin, hmax].
func PulseRange(iv Interval, hmin, hmax int) CumulExpr {
	return CumulExpr{Kind: KindPulse, Interval: iv, HeightMin: hmin, HeightMax: hmax}
}

// StepAt contributes h from time t on.
func StepAt(t, h int) CumulExpr {
	return CumulExpr{Kind: KindStepAt, Time: t, HeightMin: h, HeightMax: h}
}

// StepAtStart contributes h from the start of iv on.
func StepAtStart(iv Interval, h int) CumulExpr {
	return CumulExpr{Kind: KindStepAtStart, Interval: iv, HeightMin: h, HeightMax: h}
}

// StepAtStartRange is StepAtStart with a height in [hmin, hmax].
func StepAtStartRange(iv Interval, hmin, hmax int) CumulExpr {
	return CumulExpr{Kind: KindStepAtStart, Interval: iv, HeightMin: hmin, HeightMax: hmax}
}

// StepAtEnd contributes h from the end of iv on.
func StepAtEnd(iv Interval, h int) CumulExpr {
	return CumulExpr{Kind: KindStepAtEnd, Interval: iv, HeightMin: h, HeightMax: h}
}

// StepAtEndRange is StepAtEnd with a height in [hmin, hmax].
func StepAtEndRange(iv Interval, hmin, hmax int) CumulExpr {
	return CumulExpr{Kind: KindStepAtEnd, Interval: iv, HeightMin: hmin, HeightMax: hmax}
}

// Neg returns the expression with its height negated.
func (e CumulExpr) Neg() CumulExpr {
	e.HeightMin, e.HeightMax = -e.HeightMax, -e.HeightMin
	return e
}

// IsVariableHeight reports whether the solver picks the height.
func (e CumulExpr) IsVariableHeight() bool { return e.HeightMin != e.HeightMax }

// FixedHeight returns the height when it is fixed.
func (e CumulExpr) FixedHeight() (int, bool) {
	return e.HeightMin, e.HeightMin == e.HeightMax
}

func (e CumulExpr) hasInterval() bool { return e.Kind != KindStepAt }

func (e CumulExpr) String() string {
	h := fmt.Sprint(e.HeightMin)
	if e.IsVariableHeight() {
		h = fmt.Sprintf("%d..%d", e.HeightMin, e.HeightMax)
	}
	if e.Kind == KindStepAt {
		return fmt.Sprintf("step_at(%d, %s)", e.Time, h)
	}
	return fmt.Sprintf("%s(#%d, %s)", e.Kind, int(e.Interval), h)
}

// CumulFunction is a sum of elementary cumulative functions: the level of
// a resource over time.
type CumulFunction struct {
	m       *Model
	name    string
	exprs   []CumulExpr
	heights map[int]*fd.FDVariable
}

// NewCumulFunction registers a cumulative function made of exprs.
func (m *Model) NewCumulFunction(name string, exprs ...CumulExpr) (*CumulFunction, error) {
	f := &CumulFunction{m: m, heights: make(map[int]*fd.FDVariable)}
	if err := f.Add(exprs...); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if name == "" {
		name = fmt.Sprintf("cumul_%d", len(m.cumuls))
	}
	f.name = name
	m.cumuls = append(m.cumuls, f)
	return f, nil
}

// Add appends exprs to the function.
func (f *CumulFunction) Add(exprs ...CumulExpr) error {
	const op = "CumulFunction.Add"
	for _, e := range exprs {
		if e.HeightMin > e.HeightMax {
			return valueErrorf(op, "height min %d exceeds max %d", e.HeightMin, e.HeightMax)
		}
		if e.hasInterval() {
			if _, err := f.m.interval(op, e.Interval); err != nil {
				return err
			}
		}
	}
	f.exprs = append(f.exprs, exprs...)
	return nil
}

// Neg returns a new function whose every term is negated.
func (f *CumulFunction) Neg() (*CumulFunction, error) {
	neg := make([]CumulExpr, len(f.exprs))
	for i, e := range f.exprs {
		neg[i] = e.Neg()
	}
	return f.m.NewCumulFunction("-"+f.name, neg...)
}

// Name returns the function name.
func (f *CumulFunction) Name() string { return f.name }

// Exprs returns the elementary terms.
func (f *CumulFunction) Exprs() []CumulExpr { return append([]CumulExpr(nil), f.exprs...) }

// Intervals returns the distinct intervals the function depends on.
func (f *CumulFunction) Intervals() []Interval {
	seen := make(map[Interval]bool)
	var out []Interval
	for _, e := range f.exprs {
		if e.hasInterval() && !seen[e.Interval] {
			seen[e.Interval] = true
			out = append(out, e.Interval)
		}
	}
	return out
}

func (f *CumulFunction) String() string {
	parts := make([]string, len(f.exprs))
	for i, e := range f.exprs {
		parts[i] = e.String()
	}
	return fmt.Sprintf("%s = %s", f.name, strings.Join(parts, " + "))
}

// height returns the height of term k as a node, creating its variable the
// first time a variable height is needed.
func (f *CumulFunction) height(k int) fd.Node {
	e := f.exprs[k]
	if !e.IsVariableHeight() {
		return fd.Const(e.HeightMin)
	}
	v, ok := f.heights[k]
	if !ok {
		v = f.m.fd.NewVariableWithName(fd.NewRangeDomain(e.HeightMin, e.HeightMax), fmt.Sprintf("%s.h[%d]", f.name, k))
		f.heights[k] = v
	}
	return fd.V(v)
}

// HeightVar returns the height chosen for term k, or a constant node for a
// fixed height.
func (f *CumulFunction) HeightVar(k int) (fd.Node, error) {
	if k < 0 || k >= len(f.exprs) {
		return fd.Node{}, valueErrorf("HeightVar", "term %d outside [0, %d)", k, len(f.exprs))
	}
	return f.height(k), nil
}

// CumulOp is the relation of a cumulative constraint.
type CumulOp int

const (
	// CumulLE bounds the level from above everywhere.
	CumulLE CumulOp = iota
	// CumulGE bounds the level from below everywhere.
	CumulGE
	// CumulLT is the strict form of CumulLE.
	CumulLT
	// CumulGT is the strict form of CumulGE.
	CumulGT
	// CumulRange keeps the level within [Min, Max] everywhere.
	CumulRange
	// CumulAlwaysIn keeps the level within [Min, Max] over an interval or
	// a fixed window.
	CumulAlwaysIn
)

func (o CumulOp) String() string {
	switch o {
	case CumulLE:
		return "<="
	case CumulGE:
		return ">="
	case CumulLT:
		return "<"
	case CumulGT:
		return ">"
	case CumulRange:
		return "range"
	case CumulAlwaysIn:
		return "always_in"
	}
	return fmt.Sprintf("CumulOp(%d)", int(o))
}

// CumulConstraint bounds the level of a cumulative function. It is
// checked when compiled.
type CumulConstraint struct {
	Op       CumulOp
	Function *CumulFunction
	Bound    int
	Min      int
	Max      int

	// AlwaysIn restricts the check to the span of Interval, or to the
	// fixed Window when Interval is nil.
	Interval *Interval
	Window   Period
}

// LE states that the level never exceeds v.
func (f *CumulFunction) LE(v int) CumulConstraint {
	return CumulConstraint{Op: CumulLE, Function: f, Bound: v}
}

// GE states that the level never drops below v.
func (f *CumulFunction) GE(v int) CumulConstraint {
	return CumulConstraint{Op: CumulGE, Function: f, Bound: v}
}

// LT states that the level stays below v.
func (f *CumulFunction) LT(v int) CumulConstraint {
	return CumulConstraint{Op: CumulLT, Function: f, Bound: v}
}

// GT states that the level stays above v.
func (f *CumulFunction) GT(v int) CumulConstraint {
	return CumulConstraint{Op: CumulGT, Function: f, Bound: v}
}

// Range states that the level stays within [lo, hi].
func (f *CumulFunction) Range(lo, hi int) CumulConstraint {
	return CumulConstraint{Op: CumulRange, Function: f, Min: lo, Max: hi}
}

// AlwaysIn states that the level stays within [lo, hi] while iv runs.
func (f *CumulFunction) AlwaysIn(iv Interval, lo, hi int) CumulConstraint {
	return CumulConstraint{Op: CumulAlwaysIn, Function: f, Min: lo, Max: hi, Interval: &iv}
}

// AlwaysInWindow states that the level stays within [lo, hi] over the
// fixed range [start, end).
func (f *CumulFunction) AlwaysInWindow(start, end, lo, hi int) CumulConstraint {
	return CumulConstraint{Op: CumulAlwaysIn, Function: f, Min: lo, Max: hi, Window: Period{start, end}}
}

func (c CumulConstraint) String() string {
	name := "<nil>"
	if c.Function != nil {
		name = c.Function.name
	}
	switch c.Op {
	case CumulRange:
		return fmt.Sprintf("%d <= %s <= %d", c.Min, name, c.Max)
	case CumulAlwaysIn:
		if c.Interval != nil {
			return fmt.Sprintf("always_in(%s, #%d, %d, %d)", name, int(*c.Interval), c.Min, c.Max)
		}
		return fmt.Sprintf("always_in(%s, [%d, %d), %d, %d)", name, c.Window.Start, c.Window.End, c.Min, c.Max)
	}
	return fmt.Sprintf("%s %s %d", name, c.Op, c.Bound)
}
