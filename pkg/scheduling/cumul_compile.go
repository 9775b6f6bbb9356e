package scheduling

import (
	"github.com/gitrdm/gosched/pkg/fd"
)

// AddCumul compiles and posts a cumulative constraint.
func (m *Model) AddCumul(c CumulConstraint) error {
	return m.AddCompiled(m.CompileCumul(c))
}

// CompileCumul lowers a cumulative constraint. Upper bounds over pulses of
// fixed non-negative height become a native fd.Cumulative; every other
// shape is decomposed into one constraint per time point where the level
// can change. A decomposition over more points than the model's
// decomposition limit fails with ErrUnsupported.
//
// A decomposition depends on the horizon. The returned nodes are the
// lowering at the current horizon; AddCompiled defers the constraint and
// Solve lowers it again once the horizon is fixed.
func (m *Model) CompileCumul(c CumulConstraint) (*Compiled, error) {
	const op = "CompileCumul"
	f := c.Function
	if f == nil {
		return nil, typeErrorf(op, "constraint has no function")
	}
	if f.m != m {
		return nil, typeErrorf(op, "function %s belongs to another model", f.name)
	}
	switch c.Op {
	case CumulRange, CumulAlwaysIn:
		if c.Min > c.Max {
			return nil, valueErrorf(op, "range min %d exceeds max %d", c.Min, c.Max)
		}
	}
	if c.Op == CumulAlwaysIn && c.Interval == nil && c.Window.Start > c.Window.End {
		return nil, valueErrorf(op, "window start %d exceeds end %d", c.Window.Start, c.Window.End)
	}

	var (
		out *Compiled
		err error
	)
	if capacity, ok := nativeCapacity(f, c); ok {
		out, err = m.compileNative(f, capacity)
	} else {
		out, err = m.decompose(c, m.Horizon())
		if out != nil {
			out.pending = &c
		}
	}
	if err != nil {
		return nil, err
	}
	m.countPath(out.Path)
	m.log.Debug("cumul compiled", "constraint", c.String(), "path", out.Path.String(), "constraints", out.Len())
	return out, nil
}

// nativeCapacity reports whether c is a capacity bound the solver's
// Cumulative global can enforce directly.
func nativeCapacity(f *CumulFunction, c CumulConstraint) (int, bool) {
	for _, e := range f.exprs {
		h, fixed := e.FixedHeight()
		if e.Kind != KindPulse || !fixed || h < 0 {
			return 0, false
		}
	}
	switch c.Op {
	case CumulLE:
		return c.Bound, true
	case CumulLT:
		return c.Bound - 1, true
	case CumulRange:
		if c.Min <= 0 {
			return c.Max, true
		}
	}
	return 0, false
}

func (m *Model) compileNative(f *CumulFunction, capacity int) (*Compiled, error) {
	var tasks []fd.Task
	for _, e := range f.exprs {
		if e.HeightMin == 0 {
			continue
		}
		enc := m.encode(m.intervals[e.Interval])
		tasks = append(tasks, fd.Task{Start: enc.start, Length: enc.length, Height: e.HeightMin, Presence: enc.pres})
	}
	if capacity < 0 {
		// The level is zero wherever no interval runs.
		return &Compiled{Path: PathNative, Nodes: []fd.Node{fd.False()}}, nil
	}
	if len(tasks) == 0 {
		return &Compiled{Path: PathEmpty}, nil
	}
	g, err := fd.NewCumulative(tasks, capacity)
	if err != nil {
		return nil, err
	}
	return &Compiled{Path: PathNative, Globals: []fd.ModelConstraint{g}}, nil
}

// termWindow describes when a term can contribute.
type termWindow struct {
	enc    *encoding
	from   int // earliest time the term can contribute
	until  int // latest time it can contribute
	endMin int
	endMax int
}

func (m *Model) window(e CumulExpr, h int) termWindow {
	if e.Kind == KindStepAt {
		return termWindow{from: e.Time, until: IntervalMax}
	}
	d := m.intervals[e.Interval]
	enc := m.encode(d)
	smax := min(d.start.max, max(h, d.start.min))
	lmax := min(d.length.max, max(h, d.length.min))
	w := termWindow{
		enc:    enc,
		endMin: max(d.end.min, d.start.min+d.length.min),
		endMax: min(d.end.max, smax+lmax),
	}
	switch e.Kind {
	case KindPulse:
		w.from, w.until = d.start.min, w.endMax-1
	case KindStepAtStart:
		w.from, w.until = d.start.min, IntervalMax
	case KindStepAtEnd:
		w.from, w.until = w.endMin, IntervalMax
	}
	return w
}

// decompose checks the level at every time point in the window where it
// can change. Before the first event the level is zero.
func (m *Model) decompose(c CumulConstraint, h int) (*Compiled, error) {
	const op = "CompileCumul"
	f := c.Function
	windows := make([]termWindow, len(f.exprs))
	lo, hi := IntervalMax, 0
	for k, e := range f.exprs {
		w := m.window(e, h)
		windows[k] = w
		switch e.Kind {
		case KindStepAt:
			lo, hi = min(lo, e.Time), max(hi, e.Time)
		default:
			d := m.intervals[e.Interval]
			lo = min(lo, d.start.min)
			hi = max(hi, w.endMax)
		}
	}
	zeroBefore := len(f.exprs) == 0 || lo > 0
	var guard *encoding
	switch {
	case c.Op == CumulAlwaysIn && c.Interval != nil:
		enc, err := m.use1(op, *c.Interval)
		if err != nil {
			return nil, err
		}
		guard = enc
		w := m.window(Pulse(*c.Interval, 0), h)
		lo, hi = w.from, w.until
		zeroBefore = false
	case c.Op == CumulAlwaysIn:
		lo, hi = c.Window.Start, c.Window.End-1
		zeroBefore = false
	case len(f.exprs) == 0:
		lo, hi = 0, -1
	}
	if zeroBefore && !satisfied(c, 0) {
		return &Compiled{Path: PathDecomposed, Nodes: []fd.Node{fd.False()}}, nil
	}
	if hi-lo+1 > m.decompLimit {
		return nil, unsupportedf(op, "%s needs %d time points, limit is %d", f.name, hi-lo+1, m.decompLimit)
	}

	out := &Compiled{Path: PathDecomposed}
	for t := lo; t <= hi; t++ {
		level, constant, varies := f.levelAt(windows, t)
		check := levelCheck(c, level)
		if !varies {
			if satisfied(c, constant) {
				continue
			}
			if guard == nil {
				return &Compiled{Path: PathDecomposed, Nodes: []fd.Node{fd.False()}}, nil
			}
			check = fd.False()
		}
		if guard != nil {
			tn := fd.Const(t)
			check = fd.Or(fd.Lt(tn, fd.V(guard.start)), fd.Ge(tn, guard.end), check)
			check = whenPresent(check, guard)
		}
		out.Nodes = append(out.Nodes, check)
	}
	if len(out.Nodes) == 0 {
		out.Path = PathEmpty
	}
	return out, nil
}

// lowerPending lowers the deferred decompositions at the final horizon.
func (m *Model) lowerPending(h int) error {
	pending := m.pending
	m.pending = nil
	for _, c := range pending {
		out, err := m.decompose(c, h)
		if err != nil {
			return err
		}
		if err := m.Add(out.Nodes...); err != nil {
			return err
		}
	}
	return nil
}

// levelAt returns the level of f at time t. When no term can vary at t
// the level is the returned constant and varies is false.
func (f *CumulFunction) levelAt(windows []termWindow, t int) (fd.Node, int, bool) {
	var terms []fd.Node
	constant := 0
	for k, e := range f.exprs {
		w := windows[k]
		if t < w.from || t > w.until {
			continue
		}
		var active fd.Node
		switch e.Kind {
		case KindStepAt:
			if h, fixed := e.FixedHeight(); fixed {
				constant += h
				continue
			}
			terms = append(terms, f.height(k))
			continue
		case KindPulse:
			active = fd.And(fd.Le(fd.V(w.enc.start), fd.Const(t)), fd.Lt(fd.Const(t), w.enc.end))
		case KindStepAtStart:
			active = fd.Le(fd.V(w.enc.start), fd.Const(t))
		case KindStepAtEnd:
			active = fd.Le(w.enc.end, fd.Const(t))
		}
		if w.enc.pres != nil {
			active = fd.And(present(w.enc), active)
		}
		terms = append(terms, fd.Mul(f.height(k), active))
	}
	if len(terms) == 0 {
		return fd.Const(constant), constant, false
	}
	if constant != 0 {
		terms = append(terms, fd.Const(constant))
	}
	if len(terms) == 1 {
		return terms[0], 0, true
	}
	return fd.Add(terms...), 0, true
}

func levelCheck(c CumulConstraint, level fd.Node) fd.Node {
	switch c.Op {
	case CumulLE:
		return fd.Le(level, fd.Const(c.Bound))
	case CumulGE:
		return fd.Ge(level, fd.Const(c.Bound))
	case CumulLT:
		return fd.Lt(level, fd.Const(c.Bound))
	case CumulGT:
		return fd.Gt(level, fd.Const(c.Bound))
	}
	return fd.And(fd.Ge(level, fd.Const(c.Min)), fd.Le(level, fd.Const(c.Max)))
}

func satisfied(c CumulConstraint, v int) bool {
	switch c.Op {
	case CumulLE:
		return v <= c.Bound
	case CumulGE:
		return v >= c.Bound
	case CumulLT:
		return v < c.Bound
	case CumulGT:
		return v > c.Bound
	}
	return v >= c.Min && v <= c.Max
}

// levelExpr is the level of f at the variable time t.
func (m *Model) levelExpr(f *CumulFunction, t fd.Node) fd.Node {
	terms := make([]fd.Node, 0, len(f.exprs))
	for k, e := range f.exprs {
		var active fd.Node
		if e.Kind == KindStepAt {
			active = fd.Le(fd.Const(e.Time), t)
		} else {
			enc := m.encode(m.intervals[e.Interval])
			switch e.Kind {
			case KindPulse:
				active = fd.And(fd.Le(fd.V(enc.start), t), fd.Lt(t, enc.end))
			case KindStepAtStart:
				active = fd.Le(fd.V(enc.start), t)
			case KindStepAtEnd:
				active = fd.Le(enc.end, t)
			}
			if enc.pres != nil {
				active = fd.And(present(enc), active)
			}
		}
		terms = append(terms, fd.Mul(f.height(k), active))
	}
	switch len(terms) {
	case 0:
		return fd.Const(0)
	case 1:
		return terms[0]
	}
	return fd.Add(terms...)
}

func (m *Model) heightAt(op string, iv Interval, f *CumulFunction, atEnd bool, absentValue int) (fd.Node, error) {
	if f == nil || f.m != m {
		return fd.Node{}, typeErrorf(op, "function does not belong to this model")
	}
	e, err := m.use1(op, iv)
	if err != nil {
		return fd.Node{}, err
	}
	t := fd.V(e.start)
	if atEnd {
		t = e.end
	}
	return ifPresent(e, m.levelExpr(f, t), absentValue), nil
}

// HeightAtStart returns the level of f at the start of iv, or absentValue
// when iv is absent.
func (m *Model) HeightAtStart(iv Interval, f *CumulFunction, absentValue int) (fd.Node, error) {
	return m.heightAt("HeightAtStart", iv, f, false, absentValue)
}

// HeightAtEnd returns the level of f at the end of iv, or absentValue when
// iv is absent.
func (m *Model) HeightAtEnd(iv Interval, f *CumulFunction, absentValue int) (fd.Node, error) {
	return m.heightAt("HeightAtEnd", iv, f, true, absentValue)
}
