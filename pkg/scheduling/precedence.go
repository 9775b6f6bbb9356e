package scheduling

import "github.com/gitrdm/gosched/pkg/fd"

// Precedence constraints between two intervals. Each holds vacuously when
// either interval is absent. The delay is added to the earlier point.

type pointKind int

const (
	atStart pointKind = iota
	atEnd
)

func (e *encoding) point(k pointKind) fd.Node {
	if k == atStart {
		return fd.V(e.start)
	}
	return e.end
}

func (m *Model) precedence(op string, a, b Interval, pa, pb pointKind, delay int, exact bool) ([]fd.Node, error) {
	encs, err := m.use(op, a, b)
	if err != nil {
		return nil, err
	}
	ea, eb := encs[0], encs[1]
	lhs := fd.Add(ea.point(pa), fd.Const(delay))
	if delay == 0 {
		lhs = ea.point(pa)
	}
	var c fd.Node
	if exact {
		c = fd.Eq(eb.point(pb), lhs)
	} else {
		c = fd.Le(lhs, eb.point(pb))
	}
	return []fd.Node{whenPresent(c, ea, eb)}, nil
}

// StartAtStart states start(b) == start(a) + delay.
func (m *Model) StartAtStart(a, b Interval, delay int) ([]fd.Node, error) {
	return m.precedence("StartAtStart", a, b, atStart, atStart, delay, true)
}

// StartAtEnd states start(b) == end(a) + delay.
func (m *Model) StartAtEnd(a, b Interval, delay int) ([]fd.Node, error) {
	return m.precedence("StartAtEnd", a, b, atEnd, atStart, delay, true)
}

// EndAtStart states end(a) == start(b) + delay.
func (m *Model) EndAtStart(a, b Interval, delay int) ([]fd.Node, error) {
	return m.precedence("EndAtStart", b, a, atStart, atEnd, delay, true)
}

// EndAtEnd states end(b) == end(a) + delay.
func (m *Model) EndAtEnd(a, b Interval, delay int) ([]fd.Node, error) {
	return m.precedence("EndAtEnd", a, b, atEnd, atEnd, delay, true)
}

// StartBeforeStart states start(a) + delay <= start(b).
func (m *Model) StartBeforeStart(a, b Interval, delay int) ([]fd.Node, error) {
	return m.precedence("StartBeforeStart", a, b, atStart, atStart, delay, false)
}

// StartBeforeEnd states start(a) + delay <= end(b).
func (m *Model) StartBeforeEnd(a, b Interval, delay int) ([]fd.Node, error) {
	return m.precedence("StartBeforeEnd", a, b, atStart, atEnd, delay, false)
}

// EndBeforeStart states end(a) + delay <= start(b).
func (m *Model) EndBeforeStart(a, b Interval, delay int) ([]fd.Node, error) {
	return m.precedence("EndBeforeStart", a, b, atEnd, atStart, delay, false)
}

// EndBeforeEnd states end(a) + delay <= end(b).
func (m *Model) EndBeforeEnd(a, b Interval, delay int) ([]fd.Node, error) {
	return m.precedence("EndBeforeEnd", a, b, atEnd, atEnd, delay, false)
}
