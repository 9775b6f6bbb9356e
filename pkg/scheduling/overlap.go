package scheduling

import "github.com/gitrdm/gosched/pkg/fd"

// MustOverlap states that a and b share at least one time unit.
func (m *Model) MustOverlap(a, b Interval) ([]fd.Node, error) {
	encs, err := m.use("MustOverlap", a, b)
	if err != nil {
		return nil, err
	}
	ea, eb := encs[0], encs[1]
	c := fd.And(fd.Lt(fd.V(ea.start), eb.end), fd.Lt(fd.V(eb.start), ea.end))
	return []fd.Node{whenPresent(c, ea, eb)}, nil
}

// OverlapAtLeast states that a and b overlap for at least k time units.
func (m *Model) OverlapAtLeast(a, b Interval, k int) ([]fd.Node, error) {
	const op = "OverlapAtLeast"
	if k < 0 {
		return nil, valueErrorf(op, "minimum overlap %d is negative", k)
	}
	encs, err := m.use(op, a, b)
	if err != nil {
		return nil, err
	}
	if k == 0 {
		return nil, nil
	}
	ea, eb := encs[0], encs[1]
	c := fd.Ge(fd.Min(ea.end, eb.end), fd.Add(fd.Max(fd.V(ea.start), fd.V(eb.start)), fd.Const(k)))
	return []fd.Node{whenPresent(c, ea, eb)}, nil
}

// NoOverlapPairwise forbids any two present intervals of ivs from
// overlapping, using one disjunction per pair instead of a global
// constraint.
func (m *Model) NoOverlapPairwise(ivs []Interval) ([]fd.Node, error) {
	return m.Disjunctive(ivs, nil, nil)
}

// Disjunctive is NoOverlapPairwise with sequence-dependent setup times:
// when a precedes b, end(a) + transitions[type(a)][type(b)] <= start(b).
// types maps each interval to a row of transitions; when nil, the
// interval's position is used. transitions may be nil for plain
// disjunctions.
func (m *Model) Disjunctive(ivs []Interval, transitions [][]int, types []int) ([]fd.Node, error) {
	const op = "Disjunctive"
	encs, err := m.use(op, ivs...)
	if err != nil {
		return nil, err
	}
	if types != nil && len(types) != len(ivs) {
		return nil, valueErrorf(op, "got %d types for %d intervals", len(types), len(ivs))
	}
	if len(encs) < 2 {
		return nil, nil
	}
	typeOf := func(i int) int {
		if types == nil {
			return i
		}
		return types[i]
	}
	if transitions != nil {
		for i := range encs {
			t := typeOf(i)
			if t < 0 || t >= len(transitions) {
				return nil, valueErrorf(op, "type %d of interval %d outside the transition matrix", t, i)
			}
			for _, row := range transitions {
				if t >= len(row) {
					return nil, valueErrorf(op, "transition matrix has a row shorter than type %d", t)
				}
			}
		}
	}
	gap := func(i, j int) int {
		if transitions == nil {
			return 0
		}
		return transitions[typeOf(i)][typeOf(j)]
	}

	var out []fd.Node
	for i := range encs {
		for j := i + 1; j < len(encs); j++ {
			a, b := encs[i], encs[j]
			c := fd.Or(
				fd.Le(fd.Add(a.end, fd.Const(gap(i, j))), fd.V(b.start)),
				fd.Le(fd.Add(b.end, fd.Const(gap(j, i))), fd.V(a.start)),
			)
			out = append(out, whenPresent(c, a, b))
		}
	}
	return out, nil
}
