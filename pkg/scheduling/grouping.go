package scheduling

import "github.com/gitrdm/gosched/pkg/fd"

// Span states that main covers exactly the present intervals of subs: it
// starts at the earliest present start and ends at the latest present
// end. A present main needs at least one present sub, and a sub can only
// be present when main is.
func (m *Model) Span(main Interval, subs []Interval) ([]fd.Node, error) {
	const op = "Span"
	if len(subs) == 0 {
		return nil, valueErrorf(op, "at least one sub-interval is required")
	}
	me, err := m.use1(op, main)
	if err != nil {
		return nil, err
	}
	encs, err := m.use(op, subs...)
	if err != nil {
		return nil, err
	}
	mandatory, _ := splitOptional(encs)
	ms := fd.V(me.start)

	if me.pres == nil && mandatory == len(encs) {
		if len(encs) == 1 {
			return []fd.Node{fd.Eq(ms, fd.V(encs[0].start)), fd.Eq(me.end, encs[0].end)}, nil
		}
		starts := make([]fd.Node, len(encs))
		ends := make([]fd.Node, len(encs))
		for i, e := range encs {
			starts[i] = fd.V(e.start)
			ends[i] = e.end
		}
		return []fd.Node{fd.Eq(ms, fd.Min(starts...)), fd.Eq(me.end, fd.Max(ends...))}, nil
	}

	var out []fd.Node
	startHit := make([]fd.Node, len(encs))
	endHit := make([]fd.Node, len(encs))
	for i, e := range encs {
		out = append(out,
			whenPresent(fd.Le(ms, fd.V(e.start)), e),
			whenPresent(fd.Le(e.end, me.end), e),
		)
		if me.pres != nil && e.pres != nil {
			out = append(out, fd.Le(e.presence, me.presence))
		}
		if me.pres != nil && e.pres == nil {
			out = append(out, present(me))
		}
		startHit[i] = fd.And(present(e), fd.Eq(fd.V(e.start), ms))
		endHit[i] = fd.And(present(e), fd.Eq(e.end, me.end))
	}
	out = append(out,
		whenPresent(fd.Ge(presenceSum(encs), fd.Const(1)), me),
		whenPresent(fd.Or(startHit...), me),
		whenPresent(fd.Or(endHit...), me),
	)
	return out, nil
}

// Alternative states that when main is present exactly cardinality of
// alts are present, each aligned with main; when main is absent all alts
// are absent. Every alternative must be optional.
func (m *Model) Alternative(main Interval, alts []Interval, cardinality int) ([]fd.Node, error) {
	const op = "Alternative"
	if len(alts) == 0 {
		return nil, valueErrorf(op, "at least one alternative is required")
	}
	if cardinality < 1 || cardinality > len(alts) {
		return nil, valueErrorf(op, "cardinality %d outside [1, %d]", cardinality, len(alts))
	}
	me, err := m.use1(op, main)
	if err != nil {
		return nil, err
	}
	encs, err := m.use(op, alts...)
	if err != nil {
		return nil, err
	}
	for i, e := range encs {
		if e.pres == nil {
			return nil, valueErrorf(op, "alternative %s must be optional", m.intervals[alts[i]].name)
		}
	}

	var out []fd.Node
	sum := presenceSum(encs)
	if me.pres == nil {
		out = append(out, fd.Eq(sum, fd.Const(cardinality)))
	} else {
		out = append(out, fd.Eq(sum, fd.Mul(fd.Const(cardinality), me.presence)))
	}
	for _, e := range encs {
		out = append(out,
			fd.Or(absent(e), fd.Eq(fd.V(e.start), fd.V(me.start))),
			fd.Or(absent(e), fd.Eq(e.end, me.end)),
		)
	}
	return out, nil
}

// Synchronize states that every present interval of ivs starts and ends
// with main.
func (m *Model) Synchronize(main Interval, ivs []Interval) ([]fd.Node, error) {
	const op = "Synchronize"
	me, err := m.use1(op, main)
	if err != nil {
		return nil, err
	}
	encs, err := m.use(op, ivs...)
	if err != nil {
		return nil, err
	}
	var out []fd.Node
	for _, e := range encs {
		if e == me {
			continue
		}
		if e.pres != nil && me.pres != nil {
			out = append(out, fd.Ge(me.presence, e.presence))
		}
		out = append(out,
			whenPresent(fd.Eq(fd.V(e.start), fd.V(me.start)), e, me),
			whenPresent(fd.Eq(e.end, me.end), e, me),
		)
	}
	return out, nil
}
