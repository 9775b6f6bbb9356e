package scheduling

import "github.com/gitrdm/gosched/pkg/fd"

// ReleaseDate states that iv starts no earlier than t.
func (m *Model) ReleaseDate(iv Interval, t int) ([]fd.Node, error) {
	e, err := m.use1("ReleaseDate", iv)
	if err != nil {
		return nil, err
	}
	return []fd.Node{whenPresent(fd.Ge(fd.V(e.start), fd.Const(t)), e)}, nil
}

// Deadline states that iv ends no later than t.
func (m *Model) Deadline(iv Interval, t int) ([]fd.Node, error) {
	e, err := m.use1("Deadline", iv)
	if err != nil {
		return nil, err
	}
	return []fd.Node{whenPresent(fd.Le(e.end, fd.Const(t)), e)}, nil
}

// TimeWindow states that iv runs inside [earliest, latest].
func (m *Model) TimeWindow(iv Interval, earliest, latest int) ([]fd.Node, error) {
	const op = "TimeWindow"
	if earliest > latest {
		return nil, valueErrorf(op, "earliest %d exceeds latest %d", earliest, latest)
	}
	e, err := m.use1(op, iv)
	if err != nil {
		return nil, err
	}
	return []fd.Node{
		whenPresent(fd.Ge(fd.V(e.start), fd.Const(earliest)), e),
		whenPresent(fd.Le(e.end, fd.Const(latest)), e),
	}, nil
}

// Period is a half-open time range [Start, End).
type Period struct {
	Start int
	End   int
}

func (m *Model) forbid(op string, iv Interval, periods []Period, clause func(e *encoding, p Period) fd.Node) ([]fd.Node, error) {
	for i, p := range periods {
		if p.Start >= p.End {
			return nil, valueErrorf(op, "period %d is empty: [%d, %d)", i, p.Start, p.End)
		}
	}
	e, err := m.use1(op, iv)
	if err != nil {
		return nil, err
	}
	out := make([]fd.Node, len(periods))
	for i, p := range periods {
		out[i] = whenPresent(clause(e, p), e)
	}
	return out, nil
}

// ForbidStart states that iv does not start inside any period.
func (m *Model) ForbidStart(iv Interval, periods []Period) ([]fd.Node, error) {
	return m.forbid("ForbidStart", iv, periods, func(e *encoding, p Period) fd.Node {
		s := fd.V(e.start)
		return fd.Or(fd.Lt(s, fd.Const(p.Start)), fd.Ge(s, fd.Const(p.End)))
	})
}

// ForbidEnd states that iv does not end inside any period. An interval
// ending exactly at a period start is allowed; ending at its end is not.
func (m *Model) ForbidEnd(iv Interval, periods []Period) ([]fd.Node, error) {
	return m.forbid("ForbidEnd", iv, periods, func(e *encoding, p Period) fd.Node {
		return fd.Or(fd.Le(e.end, fd.Const(p.Start)), fd.Gt(e.end, fd.Const(p.End)))
	})
}

// ForbidExtent states that iv does not overlap any period.
func (m *Model) ForbidExtent(iv Interval, periods []Period) ([]fd.Node, error) {
	return m.forbid("ForbidExtent", iv, periods, func(e *encoding, p Period) fd.Node {
		return fd.Or(fd.Le(e.end, fd.Const(p.Start)), fd.Ge(fd.V(e.start), fd.Const(p.End)))
	})
}
