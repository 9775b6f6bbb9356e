package scheduling

import (
	"fmt"

	"github.com/gitrdm/gosched/pkg/fd"
)

// Forbidden marks a transition that may never happen.
const Forbidden = -1

// TransitionMatrix holds the minimal delay between two states.
type TransitionMatrix struct {
	values [][]int
}

// NewTransitionMatrix validates a square, non-empty matrix of delays.
// Entries are non-negative or Forbidden.
func NewTransitionMatrix(rows [][]int) (*TransitionMatrix, error) {
	const op = "NewTransitionMatrix"
	if len(rows) == 0 {
		return nil, valueErrorf(op, "matrix must be non-empty")
	}
	n := len(rows)
	cp := make([][]int, n)
	for i, r := range rows {
		if len(r) != n {
			return nil, valueErrorf(op, "matrix must be square: row %d has %d entries, want %d", i, len(r), n)
		}
		for j, v := range r {
			if v < 0 && v != Forbidden {
				return nil, valueErrorf(op, "entry [%d][%d] = %d is negative", i, j, v)
			}
		}
		cp[i] = append([]int(nil), r...)
	}
	return &TransitionMatrix{values: cp}, nil
}

// Size returns the number of states.
func (t *TransitionMatrix) Size() int { return len(t.values) }

// Get returns the delay from state i to state j.
func (t *TransitionMatrix) Get(i, j int) int { return t.values[i][j] }

// IsForbidden reports whether going from i to j is forbidden.
func (t *TransitionMatrix) IsForbidden(i, j int) bool { return t.values[i][j] == Forbidden }

// StateFunction is a handle to a state function: a resource that is in at
// most one state at a time, with transition delays between states.
type StateFunction int

type stateData struct {
	name    string
	matrix  *TransitionMatrix
	initial int
	hasInit bool
	states  []int
	usages  []*stateUsage
}

type stateUsage struct {
	enc          *encoding
	mode         *fd.FDVariable
	startAligned bool
	endAligned   bool
}

// StateOption configures NewStateFunction.
type StateOption func(*stateData)

// WithInitialState sets the state in effect before any interval.
func WithInitialState(s int) StateOption {
	return func(d *stateData) {
		d.initial = s
		d.hasInit = true
	}
}

// WithStates lists the admissible states.
func WithStates(states ...int) StateOption {
	return func(d *stateData) { d.states = append([]int(nil), states...) }
}

// NewStateFunction registers a state function. matrix may be nil, in
// which case transitions take no time. Without WithStates the states are
// 0..n-1 for an n-state matrix.
func (m *Model) NewStateFunction(name string, matrix *TransitionMatrix, opts ...StateOption) (StateFunction, error) {
	const op = "NewStateFunction"
	d := &stateData{matrix: matrix}
	for _, o := range opts {
		if o != nil {
			o(d)
		}
	}
	if d.states == nil && matrix != nil {
		for s := 0; s < matrix.Size(); s++ {
			d.states = append(d.states, s)
		}
	}
	for _, s := range d.states {
		if s < 0 {
			return 0, valueErrorf(op, "state %d is negative", s)
		}
		if matrix != nil && s >= matrix.Size() {
			return 0, valueErrorf(op, "state %d outside the %d-state transition matrix", s, matrix.Size())
		}
	}
	if d.hasInit {
		if d.initial < 0 || (matrix != nil && d.initial >= matrix.Size()) {
			return 0, valueErrorf(op, "initial state %d is not a valid state", d.initial)
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if name == "" {
		name = fmt.Sprintf("state_%d", len(m.states))
	}
	d.name = name
	m.states = append(m.states, d)
	return StateFunction(len(m.states) - 1), nil
}

func (m *Model) stateFunction(op string, sf StateFunction) (*stateData, error) {
	if int(sf) < 0 || int(sf) >= len(m.states) {
		return nil, typeErrorf(op, "unknown state function %d", int(sf))
	}
	return m.states[sf], nil
}

// noState is the mode value meaning "no state".
func (d *stateData) noState() int {
	if d.matrix != nil {
		return d.matrix.Size()
	}
	return -1
}

func (d *stateData) validState(v int) bool {
	if v < 0 {
		return false
	}
	if d.states == nil {
		return true
	}
	for _, s := range d.states {
		if s == v {
			return true
		}
	}
	return false
}

// Alignment ties the interval to the boundaries of the state segment it
// runs in.
type Alignment int

const (
	// StartAligned makes the interval start where the segment starts.
	StartAligned Alignment = 1 << iota
	// EndAligned makes the interval end where the segment ends.
	EndAligned
)

// AlwaysEqual states that sf is in state v while iv runs.
func (m *Model) AlwaysEqual(sf StateFunction, iv Interval, v int, align ...Alignment) ([]fd.Node, error) {
	const op = "AlwaysEqual"
	d, err := m.stateFunction(op, sf)
	if err != nil {
		return nil, err
	}
	if !d.validState(v) {
		return nil, valueErrorf(op, "%d is not a state of %s", v, d.name)
	}
	return m.constrainState(op, d, iv, fd.NewDomainFromValues([]int{v}), align)
}

// AlwaysInState states that sf stays in one state within [lo, hi] while iv
// runs.
func (m *Model) AlwaysInState(sf StateFunction, iv Interval, lo, hi int, align ...Alignment) ([]fd.Node, error) {
	const op = "AlwaysInState"
	d, err := m.stateFunction(op, sf)
	if err != nil {
		return nil, err
	}
	if lo > hi {
		return nil, valueErrorf(op, "state range [%d, %d] is empty", lo, hi)
	}
	return m.constrainState(op, d, iv, d.domain().Intersect(fd.NewRangeDomain(lo, hi)), align)
}

// AlwaysConstant states that sf keeps one state while iv runs.
func (m *Model) AlwaysConstant(sf StateFunction, iv Interval, align ...Alignment) ([]fd.Node, error) {
	const op = "AlwaysConstant"
	d, err := m.stateFunction(op, sf)
	if err != nil {
		return nil, err
	}
	return m.constrainState(op, d, iv, d.domain(), align)
}

// AlwaysNoState states that sf is in no state while iv runs.
func (m *Model) AlwaysNoState(sf StateFunction, iv Interval) ([]fd.Node, error) {
	const op = "AlwaysNoState"
	d, err := m.stateFunction(op, sf)
	if err != nil {
		return nil, err
	}
	return m.constrainState(op, d, iv, fd.NewDomainFromValues([]int{d.noState()}), nil)
}

// RequiresState is AlwaysEqual without alignment.
func (m *Model) RequiresState(sf StateFunction, iv Interval, v int) ([]fd.Node, error) {
	return m.AlwaysEqual(sf, iv, v)
}

// SetsState states that iv starts with sf in state before and leaves it in
// state after. before < 0 accepts any initial state.
func (m *Model) SetsState(sf StateFunction, iv Interval, before, after int) ([]fd.Node, error) {
	var out []fd.Node
	if before >= 0 {
		nodes, err := m.AlwaysEqual(sf, iv, before, StartAligned)
		if err != nil {
			return nil, err
		}
		out = append(out, nodes...)
	}
	nodes, err := m.AlwaysEqual(sf, iv, after, EndAligned)
	if err != nil {
		return nil, err
	}
	return append(out, nodes...), nil
}

func (d *stateData) domain() fd.Domain {
	if d.states != nil {
		return fd.NewDomainFromValues(d.states)
	}
	return fd.NewRangeDomain(0, IntervalMax)
}

// constrainState records a usage of d by iv with the given admissible
// modes and returns its constraints against every earlier usage.
func (m *Model) constrainState(op string, d *stateData, iv Interval, modes fd.Domain, align []Alignment) ([]fd.Node, error) {
	e, err := m.use1(op, iv)
	if err != nil {
		return nil, err
	}
	var flags Alignment
	for _, a := range align {
		flags |= a
	}
	if d.hasInit && d.matrix != nil {
		allowed := modes
		modes.IterateValues(func(v int) {
			if v < d.matrix.Size() && d.matrix.IsForbidden(d.initial, v) {
				allowed = allowed.Remove(v)
			}
		})
		modes = allowed
	}
	if modes.Count() == 0 {
		return []fd.Node{whenPresent(fd.False(), e)}, nil
	}
	u := &stateUsage{
		enc:          e,
		mode:         m.fd.NewVariableWithName(modes, fmt.Sprintf("%s.mode[%d]", d.name, len(d.usages))),
		startAligned: flags&StartAligned != 0,
		endAligned:   flags&EndAligned != 0,
	}

	var out []fd.Node
	if d.hasInit && d.matrix != nil {
		out = append(out, whenPresent(fd.Ge(fd.V(e.start), d.fromInitial(fd.V(u.mode))), e))
	}
	for _, prev := range d.usages {
		if prev.enc == e {
			continue
		}
		out = append(out, d.pair(prev, u))
	}
	d.usages = append(d.usages, u)
	m.log.Debug("state usage", "function", d.name, "op", op, "modes", modes.String(), "pairs", len(out))
	return out, nil
}

// distance is the delay between a segment in mode a and a later one in
// mode b. "No state" needs no delay and forbidden transitions cannot be
// met inside the horizon.
func (d *stateData) distance(a, b fd.Node) fd.Node {
	if d.matrix == nil {
		return fd.Const(0)
	}
	n := d.matrix.Size()
	grid := make([][]int, n+1)
	for i := range grid {
		grid[i] = make([]int, n+1)
		if i == n {
			continue
		}
		for j := 0; j < n; j++ {
			v := d.matrix.Get(i, j)
			if v == Forbidden {
				v = IntervalMax
			}
			grid[i][j] = v
		}
	}
	return element2D(grid, a, b)
}

func (d *stateData) fromInitial(mode fd.Node) fd.Node {
	n := d.matrix.Size()
	row := make([]int, n+1)
	for j := 0; j < n; j++ {
		if v := d.matrix.Get(d.initial, j); v != Forbidden {
			row[j] = v
		}
	}
	return fd.Element(mode, fd.ConstArray(row)...)
}

// pair keeps two usages apart by the transition delay unless they share a
// segment, in which case their modes agree and alignments hold.
func (d *stateData) pair(a, b *stateUsage) fd.Node {
	ma, mb := fd.V(a.mode), fd.V(b.mode)
	sa, sb := fd.V(a.enc.start), fd.V(b.enc.start)
	ea, eb := a.enc.end, b.enc.end

	same := []fd.Node{fd.Eq(ma, mb)}
	switch {
	case a.startAligned && b.startAligned:
		same = append(same, fd.Eq(sa, sb))
	case a.startAligned:
		same = append(same, fd.Le(sa, sb))
	case b.startAligned:
		same = append(same, fd.Le(sb, sa))
	}
	switch {
	case a.endAligned && b.endAligned:
		same = append(same, fd.Eq(ea, eb))
	case a.endAligned:
		same = append(same, fd.Ge(ea, eb))
	case b.endAligned:
		same = append(same, fd.Ge(eb, ea))
	}
	c := fd.Or(
		fd.Le(fd.Add(ea, d.distance(ma, mb)), sb),
		fd.Le(fd.Add(eb, d.distance(mb, ma)), sa),
		fd.And(same...),
	)
	return whenPresent(c, a.enc, b.enc)
}

// StateFunctionInfo describes a state function.
type StateFunctionInfo struct {
	Name         string
	States       []int
	HasMatrix    bool
	InitialState int
	HasInitial   bool
	Usages       int
}

// StateFunctionInfo describes sf.
func (m *Model) StateFunctionInfo(sf StateFunction) (StateFunctionInfo, error) {
	d, err := m.stateFunction("StateFunctionInfo", sf)
	if err != nil {
		return StateFunctionInfo{}, err
	}
	return StateFunctionInfo{
		Name:         d.name,
		States:       append([]int(nil), d.states...),
		HasMatrix:    d.matrix != nil,
		InitialState: d.initial,
		HasInitial:   d.hasInit,
		Usages:       len(d.usages),
	}, nil
}
