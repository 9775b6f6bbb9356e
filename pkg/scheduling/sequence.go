package scheduling

import (
	"fmt"

	"github.com/gitrdm/gosched/pkg/fd"
)

// Sequence is a handle to an ordered set of intervals, typically the
// tasks of one machine, with optional integer types used to look up
// transition times.
type Sequence int

type sequenceData struct {
	id        int
	name      string
	intervals []Interval
	types     []int
	index     map[Interval]int

	ch *channel
}

// NewSequence registers a sequence over intervals. types is nil or holds
// one non-negative type per interval.
func (m *Model) NewSequence(intervals []Interval, types []int, name string) (Sequence, error) {
	const op = "NewSequence"
	index := make(map[Interval]int, len(intervals))
	for i, iv := range intervals {
		if _, err := m.interval(op, iv); err != nil {
			return 0, err
		}
		if _, dup := index[iv]; dup {
			return 0, valueErrorf(op, "interval %s appears twice", m.intervals[iv].name)
		}
		index[iv] = i
	}
	if types != nil {
		if len(types) != len(intervals) {
			return 0, valueErrorf(op, "got %d types for %d intervals", len(types), len(intervals))
		}
		for i, t := range types {
			if t < 0 {
				return 0, valueErrorf(op, "type %d of interval %d is negative", t, i)
			}
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	id := len(m.sequences)
	if name == "" {
		name = fmt.Sprintf("sequence_%d", id)
	}
	m.sequences = append(m.sequences, &sequenceData{
		id:        id,
		name:      name,
		intervals: append([]Interval(nil), intervals...),
		types:     append([]int(nil), types...),
		index:     index,
	})
	return Sequence(id), nil
}

func (m *Model) sequence(op string, s Sequence) (*sequenceData, error) {
	if int(s) < 0 || int(s) >= len(m.sequences) {
		return nil, typeErrorf(op, "unknown sequence %d", int(s))
	}
	return m.sequences[s], nil
}

// SequenceInfo is a read-only view of a sequence.
type SequenceInfo struct {
	Name      string
	Intervals []Interval
	Types     []int
}

// Size returns the number of intervals.
func (s SequenceInfo) Size() int { return len(s.Intervals) }

// HasTypes reports whether the sequence carries types.
func (s SequenceInfo) HasTypes() bool { return s.Types != nil }

// IntervalsByType groups the intervals by type.
func (s SequenceInfo) IntervalsByType() map[int][]Interval {
	out := make(map[int][]Interval)
	for i, t := range s.Types {
		out[t] = append(out[t], s.Intervals[i])
	}
	return out
}

// SequenceInfo describes seq.
func (m *Model) SequenceInfo(seq Sequence) (SequenceInfo, error) {
	sd, err := m.sequence("SequenceInfo", seq)
	if err != nil {
		return SequenceInfo{}, err
	}
	info := SequenceInfo{Name: sd.name, Intervals: append([]Interval(nil), sd.intervals...)}
	if sd.types != nil {
		info.Types = append([]int(nil), sd.types...)
	}
	return info, nil
}

// Sequences returns every sequence in creation order.
func (m *Model) Sequences() []Sequence {
	out := make([]Sequence, len(m.sequences))
	for i := range out {
		out[i] = Sequence(i)
	}
	return out
}

func (m *Model) member(op string, sd *sequenceData, iv Interval) (int, error) {
	if _, err := m.interval(op, iv); err != nil {
		return 0, err
	}
	i, ok := sd.index[iv]
	if !ok {
		return 0, valueErrorf(op, "interval %s is not in sequence %s", m.intervals[iv].name, sd.name)
	}
	return i, nil
}

func (m *Model) tasks(encs []*encoding) []fd.Task {
	tasks := make([]fd.Task, len(encs))
	for i, e := range encs {
		tasks[i] = fd.Task{Start: e.start, Length: e.length, Height: 1, Presence: e.pres}
	}
	return tasks
}

// SeqNoOverlap forbids the present intervals of seq from overlapping.
// With a transition matrix, an interval of type i followed by one of type
// j must leave matrix[i][j] time units between them. If direct is false
// the gap applies to every ordered pair; otherwise only to intervals that
// are adjacent in the sequence.
func (m *Model) SeqNoOverlap(seq Sequence, matrix [][]int, direct bool) (*Compiled, error) {
	const op = "SeqNoOverlap"
	sd, err := m.sequence(op, seq)
	if err != nil {
		return nil, err
	}
	if len(sd.intervals) == 0 {
		return &Compiled{Path: PathEmpty}, nil
	}
	if matrix != nil {
		if sd.types == nil {
			return nil, valueErrorf(op, "a transition matrix requires a sequence with types")
		}
		if err := checkTransitions(op, matrix, sd.types); err != nil {
			return nil, err
		}
	}
	encs, err := m.use(op, sd.intervals...)
	if err != nil {
		return nil, err
	}
	out := &Compiled{Path: PathNative}
	if len(encs) > 1 {
		no, err := fd.NewNoOverlap(m.tasks(encs))
		if err != nil {
			return nil, err
		}
		out.Globals = append(out.Globals, no)
	}
	if matrix == nil {
		return out, nil
	}

	var ch *channel
	if direct {
		ch = m.channel(sd)
	}
	for i, a := range encs {
		for j, b := range encs {
			if i == j {
				continue
			}
			gap := matrix[sd.types[i]][sd.types[j]]
			if gap <= 0 {
				continue
			}
			c := fd.Le(fd.Add(a.end, fd.Const(gap)), fd.V(b.start))
			if direct {
				c = fd.Or(fd.Ne(fd.V(ch.successor(i)), fd.Const(j)), c)
			} else {
				c = fd.Or(c, fd.Le(b.end, fd.V(a.start)))
			}
			out.Nodes = append(out.Nodes, whenPresent(c, a, b))
		}
	}
	m.log.Debug("sequence no-overlap compiled", "sequence", sd.name, "transitions", len(out.Nodes), "direct", direct)
	return out, nil
}

func checkTransitions(op string, matrix [][]int, types []int) error {
	n := 0
	for _, t := range types {
		n = max(n, t+1)
	}
	if len(matrix) < n {
		return valueErrorf(op, "transition matrix needs at least %d rows, got %d", n, len(matrix))
	}
	for i, row := range matrix {
		if len(row) < n {
			return valueErrorf(op, "transition matrix row %d needs at least %d columns, got %d", i, n, len(row))
		}
	}
	return nil
}

// First states that iv starts no later than any other present interval of
// seq.
func (m *Model) First(seq Sequence, iv Interval) ([]fd.Node, error) {
	return m.extreme("First", seq, iv, func(me, other *encoding) fd.Node {
		return fd.Le(fd.V(me.start), fd.V(other.start))
	})
}

// Last states that iv ends no earlier than any other present interval of
// seq.
func (m *Model) Last(seq Sequence, iv Interval) ([]fd.Node, error) {
	return m.extreme("Last", seq, iv, func(me, other *encoding) fd.Node {
		return fd.Le(other.end, me.end)
	})
}

func (m *Model) extreme(op string, seq Sequence, iv Interval, rel func(me, other *encoding) fd.Node) ([]fd.Node, error) {
	sd, err := m.sequence(op, seq)
	if err != nil {
		return nil, err
	}
	idx, err := m.member(op, sd, iv)
	if err != nil {
		return nil, err
	}
	if len(sd.intervals) <= 1 {
		return nil, nil
	}
	encs, err := m.use(op, sd.intervals...)
	if err != nil {
		return nil, err
	}
	var out []fd.Node
	for i, e := range encs {
		if i == idx {
			continue
		}
		out = append(out, whenPresent(rel(encs[idx], e), encs[idx], e))
	}
	return out, nil
}

func (m *Model) pairInSequence(op string, seq Sequence, a, b Interval) (*sequenceData, int, int, error) {
	sd, err := m.sequence(op, seq)
	if err != nil {
		return nil, 0, 0, err
	}
	i, err := m.member(op, sd, a)
	if err != nil {
		return nil, 0, 0, err
	}
	j, err := m.member(op, sd, b)
	if err != nil {
		return nil, 0, 0, err
	}
	if i == j {
		return nil, 0, 0, valueErrorf(op, "the two intervals must differ")
	}
	return sd, i, j, nil
}

// Before states that a ends before b starts when both are present.
func (m *Model) Before(seq Sequence, a, b Interval) ([]fd.Node, error) {
	const op = "Before"
	if _, _, _, err := m.pairInSequence(op, seq, a, b); err != nil {
		return nil, err
	}
	encs, err := m.use(op, a, b)
	if err != nil {
		return nil, err
	}
	return []fd.Node{whenPresent(fd.Le(encs[0].end, fd.V(encs[1].start)), encs[0], encs[1])}, nil
}

// Previous states that a immediately precedes b: a ends before b starts
// and no other present interval of seq lies between them.
func (m *Model) Previous(seq Sequence, a, b Interval) ([]fd.Node, error) {
	const op = "Previous"
	sd, ia, ib, err := m.pairInSequence(op, seq, a, b)
	if err != nil {
		return nil, err
	}
	encs, err := m.use(op, sd.intervals...)
	if err != nil {
		return nil, err
	}
	ea, eb := encs[ia], encs[ib]
	out := []fd.Node{whenPresent(fd.Le(ea.end, fd.V(eb.start)), ea, eb)}
	for k, ek := range encs {
		if k == ia || k == ib {
			continue
		}
		outside := fd.Or(fd.Lt(ek.end, ea.end), fd.Lt(fd.V(eb.start), fd.V(ek.start)))
		out = append(out, whenPresent(outside, ea, eb, ek))
	}
	return out, nil
}

// SameSequence states that the intervals common to s1 and s2 are ordered
// the same way on both.
func (m *Model) SameSequence(s1, s2 Sequence) ([]fd.Node, error) {
	return m.sameOrder("SameSequence", s1, s2)
}

// SameCommonSubsequence states that every pair of intervals common to s1
// and s2 keeps its relative order.
func (m *Model) SameCommonSubsequence(s1, s2 Sequence) ([]fd.Node, error) {
	return m.sameOrder("SameCommonSubsequence", s1, s2)
}

func (m *Model) sameOrder(op string, s1, s2 Sequence) ([]fd.Node, error) {
	sd1, err := m.sequence(op, s1)
	if err != nil {
		return nil, err
	}
	sd2, err := m.sequence(op, s2)
	if err != nil {
		return nil, err
	}
	var common []Interval
	for _, iv := range sd1.intervals {
		if _, ok := sd2.index[iv]; ok {
			common = append(common, iv)
		}
	}
	if len(common) < 2 {
		return nil, nil
	}
	encs, err := m.use(op, common...)
	if err != nil {
		return nil, err
	}
	var out []fd.Node
	for i := range encs {
		for j := i + 1; j < len(encs); j++ {
			a, b := encs[i], encs[j]
			c := fd.Or(fd.Le(a.end, fd.V(b.start)), fd.Le(b.end, fd.V(a.start)))
			out = append(out, whenPresent(c, a, b))
		}
	}
	return out, nil
}

// SeqCumulative bounds the summed heights of the present intervals of ivs
// running at any time by capacity.
func (m *Model) SeqCumulative(ivs []Interval, heights []int, capacity int) (*Compiled, error) {
	const op = "SeqCumulative"
	if len(heights) != len(ivs) {
		return nil, valueErrorf(op, "got %d heights for %d intervals", len(heights), len(ivs))
	}
	if capacity < 0 {
		return nil, valueErrorf(op, "capacity %d is negative", capacity)
	}
	encs, err := m.use(op, ivs...)
	if err != nil {
		return nil, err
	}
	if len(encs) == 0 {
		return &Compiled{Path: PathEmpty}, nil
	}
	tasks := m.tasks(encs)
	for i, h := range heights {
		if h < 0 {
			return nil, valueErrorf(op, "height %d of interval %d is negative", h, i)
		}
		tasks[i].Height = h
	}
	c, err := fd.NewCumulative(tasks, capacity)
	if err != nil {
		return nil, err
	}
	return &Compiled{Path: PathNative, Globals: []fd.ModelConstraint{c}}, nil
}
