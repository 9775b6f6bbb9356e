package scheduling

import "github.com/gitrdm/gosched/pkg/fd"

func (m *Model) aggregateInputs(op string, ivs []Interval) ([]*encoding, error) {
	if len(ivs) == 0 {
		return nil, valueErrorf(op, "needs at least one interval")
	}
	return m.use(op, ivs...)
}

// CountPresent is the number of present intervals among ivs.
func (m *Model) CountPresent(ivs []Interval) (fd.Node, error) {
	encs, err := m.aggregateInputs("CountPresent", ivs)
	if err != nil {
		return fd.Node{}, err
	}
	return presenceSum(encs), nil
}

// EarliestStart is the smallest start among present intervals. Absent
// intervals count as absentValue; IntervalMax keeps them out of the
// minimum.
func (m *Model) EarliestStart(ivs []Interval, absentValue int) (fd.Node, error) {
	encs, err := m.aggregateInputs("EarliestStart", ivs)
	if err != nil {
		return fd.Node{}, err
	}
	starts := make([]fd.Node, len(encs))
	for i, e := range encs {
		starts[i] = ifPresent(e, fd.V(e.start), absentValue)
	}
	if len(starts) == 1 {
		return starts[0], nil
	}
	return fd.Min(starts...), nil
}

// LatestEnd is the largest end among present intervals. Absent intervals
// count as absentValue.
func (m *Model) LatestEnd(ivs []Interval, absentValue int) (fd.Node, error) {
	encs, err := m.aggregateInputs("LatestEnd", ivs)
	if err != nil {
		return fd.Node{}, err
	}
	ends := make([]fd.Node, len(encs))
	for i, e := range encs {
		ends[i] = ifPresent(e, e.end, absentValue)
	}
	if len(ends) == 1 {
		return ends[0], nil
	}
	return fd.Max(ends...), nil
}

// SpanLength is LatestEnd - EarliestStart over the present intervals, or
// absentValue when none is present.
func (m *Model) SpanLength(ivs []Interval, absentValue int) (fd.Node, error) {
	const op = "SpanLength"
	encs, err := m.aggregateInputs(op, ivs)
	if err != nil {
		return fd.Node{}, err
	}
	earliest, err := m.EarliestStart(ivs, IntervalMax)
	if err != nil {
		return fd.Node{}, err
	}
	latest, err := m.LatestEnd(ivs, 0)
	if err != nil {
		return fd.Node{}, err
	}
	width := fd.Sub(latest, earliest)
	_, optional := splitOptional(encs)
	if len(optional) < len(encs) {
		return width, nil
	}
	some := make([]fd.Node, len(optional))
	for i, e := range optional {
		some[i] = present(e)
	}
	return fd.Element(fd.Or(some...), fd.Const(absentValue), width), nil
}

// Makespan is the latest end of the intervals, 0 when all are absent.
func (m *Model) Makespan(ivs []Interval) (fd.Node, error) {
	return m.LatestEnd(ivs, 0)
}
