package scheduling

import "github.com/gitrdm/gosched/pkg/fd"

// Chain states that the intervals run in the given order: each present
// interval ends, plus its delay, no later than the next one starts. delays
// is nil or has one entry per consecutive pair.
func (m *Model) Chain(ivs []Interval, delays []int) ([]fd.Node, error) {
	return m.chain("Chain", ivs, delays, false)
}

// StrictChain is Chain with equality: each interval starts exactly when
// the previous one ends plus its delay.
func (m *Model) StrictChain(ivs []Interval, delays []int) ([]fd.Node, error) {
	return m.chain("StrictChain", ivs, delays, true)
}

func (m *Model) chain(op string, ivs []Interval, delays []int, strict bool) ([]fd.Node, error) {
	if len(ivs) < 2 {
		return nil, valueErrorf(op, "needs at least two intervals, got %d", len(ivs))
	}
	if delays != nil && len(delays) != len(ivs)-1 {
		return nil, valueErrorf(op, "got %d delays for %d intervals, want %d", len(delays), len(ivs), len(ivs)-1)
	}
	encs, err := m.use(op, ivs...)
	if err != nil {
		return nil, err
	}
	out := make([]fd.Node, 0, len(encs)-1)
	for i := 0; i+1 < len(encs); i++ {
		a, b := encs[i], encs[i+1]
		lhs := a.end
		if delays != nil && delays[i] != 0 {
			lhs = fd.Add(a.end, fd.Const(delays[i]))
		}
		c := fd.Le(lhs, fd.V(b.start))
		if strict {
			c = fd.Eq(lhs, fd.V(b.start))
		}
		out = append(out, whenPresent(c, a, b))
	}
	return out, nil
}
