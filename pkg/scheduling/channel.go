package scheduling

import (
	"fmt"

	"github.com/gitrdm/gosched/pkg/fd"
)

// channel links the intervals of a sequence to their positions.
//
// rank[i] is the number of present intervals ordered before i, where the
// order is by start time with ties broken by position in the sequence; an
// absent interval has rank n. Present intervals therefore take the ranks
// 0..k-1. succ[i] and pred[i] name the neighbour at rank+1 and rank-1,
// with n standing for "none".
type channel struct {
	m     *Model
	name  string
	encs  []*encoding
	rank  []*fd.FDVariable
	count fd.Node
	succ  []*fd.FDVariable
	pred  []*fd.FDVariable
}

func (m *Model) channel(sd *sequenceData) *channel {
	if sd.ch != nil {
		return sd.ch
	}
	n := len(sd.intervals)
	c := &channel{
		m:    m,
		name: sd.name,
		encs: make([]*encoding, n),
		rank: make([]*fd.FDVariable, n),
		succ: make([]*fd.FDVariable, n),
		pred: make([]*fd.FDVariable, n),
	}
	for i, iv := range sd.intervals {
		c.encs[i] = m.encode(m.intervals[iv])
	}
	if n > 0 {
		c.count = presenceSum(c.encs)
	}
	for i := range c.encs {
		c.rank[i] = m.fd.NewVariableWithName(fd.NewRangeDomain(0, n), fmt.Sprintf("%s.rank[%d]", sd.name, i))
	}
	for i, ei := range c.encs {
		r := fd.V(c.rank[i])
		terms := make([]fd.Node, 0, n-1)
		for j, ej := range c.encs {
			if j == i {
				continue
			}
			var before fd.Node
			if j < i {
				before = fd.Le(fd.V(ej.start), fd.V(ei.start))
			} else {
				before = fd.Lt(fd.V(ej.start), fd.V(ei.start))
			}
			if ej.pres != nil {
				before = fd.And(present(ej), before)
			}
			terms = append(terms, before)
		}
		below := fd.Const(0)
		if len(terms) > 0 {
			below = fd.Add(terms...)
		}
		m.post(whenPresent(fd.Eq(r, below), ei))
		m.post(whenPresent(fd.Lt(r, c.count), ei))
		if ei.pres != nil {
			m.post(fd.Or(present(ei), fd.Eq(r, fd.Const(n))))
		}
	}
	m.log.Debug("sequence channeling built", "sequence", sd.name, "intervals", n)
	sd.ch = c
	return c
}

// successor returns the variable holding the position of the interval
// that follows i, or n when i is last or absent.
func (c *channel) successor(i int) *fd.FDVariable {
	if c.succ[i] == nil {
		c.succ[i] = c.neighbour(i, 1, fd.Sub(c.count, fd.Const(1)), "next")
	}
	return c.succ[i]
}

// predecessor returns the variable holding the position of the interval
// that precedes i, or n when i is first or absent.
func (c *channel) predecessor(i int) *fd.FDVariable {
	if c.pred[i] == nil {
		c.pred[i] = c.neighbour(i, -1, fd.Const(0), "prev")
	}
	return c.pred[i]
}

func (c *channel) neighbour(i, delta int, boundary fd.Node, label string) *fd.FDVariable {
	n := len(c.encs)
	m := c.m
	v := m.fd.NewVariableWithName(fd.NewRangeDomain(0, n), fmt.Sprintf("%s.%s[%d]", c.name, label, i))
	ei := c.encs[i]
	ri := fd.V(c.rank[i])
	m.post(fd.Ne(fd.V(v), fd.Const(i)))
	for j, ej := range c.encs {
		if j == i {
			continue
		}
		adjacent := fd.Eq(fd.V(c.rank[j]), fd.Add(ri, fd.Const(delta)))
		if ej.pres != nil {
			adjacent = fd.And(present(ej), adjacent)
		}
		m.post(whenPresent(fd.Eq(fd.Eq(fd.V(v), fd.Const(j)), adjacent), ei))
	}
	m.post(whenPresent(fd.Eq(fd.Eq(fd.V(v), fd.Const(n)), fd.Eq(ri, boundary)), ei))
	if ei.pres != nil {
		m.post(fd.Or(present(ei), fd.Eq(fd.V(v), fd.Const(n))))
	}
	return v
}

// Rank returns the position of iv among the present intervals of seq,
// or the sequence size when iv is absent.
func (m *Model) Rank(seq Sequence, iv Interval) (fd.Node, error) {
	const op = "Rank"
	sd, err := m.sequence(op, seq)
	if err != nil {
		return fd.Node{}, err
	}
	i, err := m.member(op, sd, iv)
	if err != nil {
		return fd.Node{}, err
	}
	return fd.V(m.channel(sd).rank[i]), nil
}

type neighbourSide int

const (
	sideNext neighbourSide = iota
	sidePrev
)

// lookup selects values[k] for the neighbour k of iv, boundary when iv has
// no neighbour on that side and absentValue when iv is absent.
func (m *Model) lookup(op string, seq Sequence, iv Interval, side neighbourSide, boundary, absentValue int, values func(sd *sequenceData, c *channel, k int) fd.Node) (fd.Node, error) {
	sd, err := m.sequence(op, seq)
	if err != nil {
		return fd.Node{}, err
	}
	i, err := m.member(op, sd, iv)
	if err != nil {
		return fd.Node{}, err
	}
	c := m.channel(sd)
	var idx *fd.FDVariable
	if side == sideNext {
		idx = c.successor(i)
	} else {
		idx = c.predecessor(i)
	}
	arr := make([]fd.Node, len(sd.intervals)+1)
	for k := range sd.intervals {
		arr[k] = values(sd, c, k)
	}
	arr[len(sd.intervals)] = fd.Const(boundary)
	return ifPresent(c.encs[i], fd.Element(fd.V(idx), arr...), absentValue), nil
}

func (m *Model) typeLookup(op string, seq Sequence, iv Interval, side neighbourSide, boundary, absentValue int) (fd.Node, error) {
	sd, err := m.sequence(op, seq)
	if err != nil {
		return fd.Node{}, err
	}
	if sd.types == nil {
		return fd.Node{}, valueErrorf(op, "sequence %s has no types", sd.name)
	}
	return m.lookup(op, seq, iv, side, boundary, absentValue, func(sd *sequenceData, _ *channel, k int) fd.Node {
		return fd.Const(sd.types[k])
	})
}

// TypeOfNext returns the type of the interval following iv in seq, last
// when iv is the final present interval and absentValue when iv is absent.
func (m *Model) TypeOfNext(seq Sequence, iv Interval, last, absentValue int) (fd.Node, error) {
	return m.typeLookup("TypeOfNext", seq, iv, sideNext, last, absentValue)
}

// TypeOfPrev returns the type of the interval preceding iv in seq, first
// when iv is the first present interval and absentValue when iv is absent.
func (m *Model) TypeOfPrev(seq Sequence, iv Interval, first, absentValue int) (fd.Node, error) {
	return m.typeLookup("TypeOfPrev", seq, iv, sidePrev, first, absentValue)
}

func startNode(_ *sequenceData, c *channel, k int) fd.Node  { return fd.V(c.encs[k].start) }
func endNode(_ *sequenceData, c *channel, k int) fd.Node    { return c.encs[k].end }
func sizeNode(_ *sequenceData, c *channel, k int) fd.Node   { return c.encs[k].size }
func lengthNode(_ *sequenceData, c *channel, k int) fd.Node { return c.encs[k].length }

// StartOfNext returns the start of the interval following iv in seq.
func (m *Model) StartOfNext(seq Sequence, iv Interval, last, absentValue int) (fd.Node, error) {
	return m.lookup("StartOfNext", seq, iv, sideNext, last, absentValue, startNode)
}

// EndOfNext returns the end of the interval following iv in seq.
func (m *Model) EndOfNext(seq Sequence, iv Interval, last, absentValue int) (fd.Node, error) {
	return m.lookup("EndOfNext", seq, iv, sideNext, last, absentValue, endNode)
}

// SizeOfNext returns the size of the interval following iv in seq.
func (m *Model) SizeOfNext(seq Sequence, iv Interval, last, absentValue int) (fd.Node, error) {
	return m.lookup("SizeOfNext", seq, iv, sideNext, last, absentValue, sizeNode)
}

// LengthOfNext returns the length of the interval following iv in seq.
func (m *Model) LengthOfNext(seq Sequence, iv Interval, last, absentValue int) (fd.Node, error) {
	return m.lookup("LengthOfNext", seq, iv, sideNext, last, absentValue, lengthNode)
}

// StartOfPrev returns the start of the interval preceding iv in seq.
func (m *Model) StartOfPrev(seq Sequence, iv Interval, first, absentValue int) (fd.Node, error) {
	return m.lookup("StartOfPrev", seq, iv, sidePrev, first, absentValue, startNode)
}

// EndOfPrev returns the end of the interval preceding iv in seq.
func (m *Model) EndOfPrev(seq Sequence, iv Interval, first, absentValue int) (fd.Node, error) {
	return m.lookup("EndOfPrev", seq, iv, sidePrev, first, absentValue, endNode)
}

// SizeOfPrev returns the size of the interval preceding iv in seq.
func (m *Model) SizeOfPrev(seq Sequence, iv Interval, first, absentValue int) (fd.Node, error) {
	return m.lookup("SizeOfPrev", seq, iv, sidePrev, first, absentValue, sizeNode)
}

// LengthOfPrev returns the length of the interval preceding iv in seq.
func (m *Model) LengthOfPrev(seq Sequence, iv Interval, first, absentValue int) (fd.Node, error) {
	return m.lookup("LengthOfPrev", seq, iv, sidePrev, first, absentValue, lengthNode)
}
