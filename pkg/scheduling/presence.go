package scheduling

import "github.com/gitrdm/gosched/pkg/fd"

// whenPresent guards c by the absence of every optional interval among
// encs: OR(pres_a == 0, ..., c). Mandatory intervals contribute nothing,
// so an all-mandatory guard returns c unchanged.
func whenPresent(c fd.Node, encs ...*encoding) fd.Node {
	var alts []fd.Node
	seen := make(map[*encoding]bool, len(encs))
	for _, e := range encs {
		if e.pres == nil || seen[e] {
			continue
		}
		seen[e] = true
		alts = append(alts, absent(e))
	}
	if len(alts) == 0 {
		return c
	}
	return fd.Or(append(alts, c)...)
}

func absent(e *encoding) fd.Node  { return fd.Eq(e.presence, fd.Const(0)) }
func present(e *encoding) fd.Node { return fd.Eq(e.presence, fd.Const(1)) }

// ifPresent is value when e is present and otherwise absentValue.
func ifPresent(e *encoding, value fd.Node, absentValue int) fd.Node {
	if e.pres == nil {
		return value
	}
	return fd.Element(e.presence, fd.Const(absentValue), value)
}

// WhenPresent wraps c so that it only has to hold when every optional
// interval among ivs is present.
func (m *Model) WhenPresent(c fd.Node, ivs ...Interval) (fd.Node, error) {
	encs, err := m.use("WhenPresent", ivs...)
	if err != nil {
		return fd.Node{}, err
	}
	return whenPresent(c, encs...), nil
}

// PresenceOf returns the 0/1 presence of iv: a constant 1 for mandatory
// intervals.
func (m *Model) PresenceOf(iv Interval) (fd.Node, error) {
	e, err := m.use1("PresenceOf", iv)
	if err != nil {
		return fd.Node{}, err
	}
	return e.presence, nil
}

func presenceSum(encs []*encoding) fd.Node {
	if len(encs) == 1 {
		return encs[0].presence
	}
	nodes := make([]fd.Node, len(encs))
	for i, e := range encs {
		nodes[i] = e.presence
	}
	return fd.Add(nodes...)
}

func splitOptional(encs []*encoding) (mandatory int, optional []*encoding) {
	for _, e := range encs {
		if e.pres == nil {
			mandatory++
		} else {
			optional = append(optional, e)
		}
	}
	return mandatory, optional
}

// PresenceImplies states that if a is present then b is present.
func (m *Model) PresenceImplies(a, b Interval) ([]fd.Node, error) {
	encs, err := m.use("PresenceImplies", a, b)
	if err != nil {
		return nil, err
	}
	ea, eb := encs[0], encs[1]
	switch {
	case eb.pres == nil:
		return nil, nil
	case ea.pres == nil:
		return []fd.Node{present(eb)}, nil
	}
	return []fd.Node{fd.Or(absent(ea), present(eb))}, nil
}

// PresenceOr states that at least one of a and b is present.
func (m *Model) PresenceOr(a, b Interval) ([]fd.Node, error) {
	encs, err := m.use("PresenceOr", a, b)
	if err != nil {
		return nil, err
	}
	if encs[0].pres == nil || encs[1].pres == nil {
		return nil, nil
	}
	return []fd.Node{fd.Or(present(encs[0]), present(encs[1]))}, nil
}

// PresenceXor states that exactly one of a and b is present.
func (m *Model) PresenceXor(a, b Interval) ([]fd.Node, error) {
	encs, err := m.use("PresenceXor", a, b)
	if err != nil {
		return nil, err
	}
	ea, eb := encs[0], encs[1]
	switch {
	case ea.pres == nil && eb.pres == nil:
		return []fd.Node{fd.False()}, nil
	case ea.pres == nil:
		return []fd.Node{absent(eb)}, nil
	case eb.pres == nil:
		return []fd.Node{absent(ea)}, nil
	}
	return []fd.Node{fd.Eq(fd.Add(ea.presence, eb.presence), fd.Const(1))}, nil
}

// AllPresentOrAllAbsent ties the presence of every interval together.
func (m *Model) AllPresentOrAllAbsent(ivs []Interval) ([]fd.Node, error) {
	encs, err := m.use("AllPresentOrAllAbsent", ivs...)
	if err != nil {
		return nil, err
	}
	if len(encs) < 2 {
		return nil, nil
	}
	mandatory, optional := splitOptional(encs)
	var out []fd.Node
	if mandatory > 0 {
		for _, e := range optional {
			out = append(out, present(e))
		}
		return out, nil
	}
	for _, e := range optional[1:] {
		out = append(out, fd.Eq(e.presence, optional[0].presence))
	}
	return out, nil
}

// PresenceOrAll states that at least one interval is present.
func (m *Model) PresenceOrAll(ivs []Interval) ([]fd.Node, error) {
	encs, err := m.use("PresenceOrAll", ivs...)
	if err != nil {
		return nil, err
	}
	if len(encs) == 0 {
		return []fd.Node{fd.False()}, nil
	}
	mandatory, optional := splitOptional(encs)
	if mandatory > 0 {
		return nil, nil
	}
	return []fd.Node{fd.Ge(presenceSum(optional), fd.Const(1))}, nil
}

// IfPresentThen posts c only when iv is present.
func (m *Model) IfPresentThen(iv Interval, c fd.Node) ([]fd.Node, error) {
	e, err := m.use1("IfPresentThen", iv)
	if err != nil {
		return nil, err
	}
	return []fd.Node{whenPresent(c, e)}, nil
}

// AtLeastKPresent states that at least k intervals are present.
func (m *Model) AtLeastKPresent(ivs []Interval, k int) ([]fd.Node, error) {
	const op = "AtLeastKPresent"
	encs, err := m.use(op, ivs...)
	if err != nil {
		return nil, err
	}
	if k < 0 {
		return nil, valueErrorf(op, "k must be non-negative, got %d", k)
	}
	mandatory, optional := splitOptional(encs)
	switch {
	case k == 0 || mandatory >= k:
		return nil, nil
	case k > len(encs):
		return []fd.Node{fd.False()}, nil
	}
	return []fd.Node{fd.Ge(presenceSum(optional), fd.Const(k-mandatory))}, nil
}

// AtMostKPresent states that at most k intervals are present.
func (m *Model) AtMostKPresent(ivs []Interval, k int) ([]fd.Node, error) {
	const op = "AtMostKPresent"
	encs, err := m.use(op, ivs...)
	if err != nil {
		return nil, err
	}
	if k < 0 {
		return nil, valueErrorf(op, "k must be non-negative, got %d", k)
	}
	mandatory, optional := splitOptional(encs)
	switch {
	case k >= len(encs):
		return nil, nil
	case mandatory > k:
		return []fd.Node{fd.False()}, nil
	case len(optional) == 0:
		return nil, nil
	}
	return []fd.Node{fd.Le(presenceSum(optional), fd.Const(k-mandatory))}, nil
}

// ExactlyKPresent states that exactly k intervals are present.
func (m *Model) ExactlyKPresent(ivs []Interval, k int) ([]fd.Node, error) {
	const op = "ExactlyKPresent"
	encs, err := m.use(op, ivs...)
	if err != nil {
		return nil, err
	}
	if k < 0 {
		return nil, valueErrorf(op, "k must be non-negative, got %d", k)
	}
	mandatory, optional := splitOptional(encs)
	switch {
	case k > len(encs) || mandatory > k:
		return []fd.Node{fd.False()}, nil
	case mandatory == k:
		out := make([]fd.Node, len(optional))
		for i, e := range optional {
			out[i] = absent(e)
		}
		return out, nil
	}
	return []fd.Node{fd.Eq(presenceSum(optional), fd.Const(k-mandatory))}, nil
}
