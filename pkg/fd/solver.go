package fd

// solver.go implements the core solver with copy-on-write state management.
//
// # Architecture Overview
//
// The solver separates the immutable problem definition from the mutable
// solving state:
//
//	Model (read-only during solving):
//	  - Variables with initial domains
//	  - Constraints that reference variables
//	  - Objective and configuration
//
//	SolverState (copy-on-write):
//	  - Sparse chain of domain modifications
//	  - O(1) cost to derive a new state node
//	  - Periodically flattened into a snapshot so lookups stay short
//
// Backtracking simply discards state nodes; a search frame keeps a
// pointer to the state it started from.

import (
	"context"
	"fmt"
)

// Solver performs propagation and backtracking search over a Model.
//
// Thread safety: Solver instances are NOT thread-safe. Several solvers
// may share one Model.
type Solver struct {
	model   *Model
	config  *SolverConfig
	monitor *SolverMonitor

	// vars is the model's variables plus solver-private ones such as the
	// objective channel. It is rebuilt at the start of every run.
	vars []*FDVariable

	// degree caches how many constraints reference each variable.
	degree []int

	// baseState caches the root-level propagated state from the last
	// solve, so GetDomain(nil, id) exposes propagation effects.
	baseState *SolverState
}

// SolverState is one node of a persistent chain of domain changes.
// A node either records a single modified domain on top of its parent, or
// holds a full snapshot of every domain and has no parent.
type SolverState struct {
	parent         *SolverState
	modifiedVarID  int
	modifiedDomain Domain
	snapshot       []Domain

	// chain counts nodes back to the nearest snapshot.
	chain int
}

// NewSolver creates a solver for the given model.
// The model should be fully constructed before creating the solver.
func NewSolver(model *Model) *Solver {
	return NewSolverWithConfig(model, model.Config())
}

// NewSolverWithConfig creates a solver with an explicit configuration.
func NewSolverWithConfig(model *Model, config *SolverConfig) *Solver {
	if config == nil {
		config = DefaultSolverConfig()
	}
	cfg := *config
	return &Solver{model: model, config: &cfg}
}

// SetMonitor attaches a monitor that records search statistics.
func (s *Solver) SetMonitor(monitor *SolverMonitor) {
	s.monitor = monitor
}

// Monitor returns the attached monitor, or nil.
func (s *Solver) Monitor() *SolverMonitor {
	return s.monitor
}

// Model returns the model being solved.
func (s *Solver) Model() *Model {
	return s.model
}

// GetDomain returns the current domain of varID in state. A nil state
// reads the last root-level propagated state, or the model's initial
// domains when the solver has not run yet.
func (s *Solver) GetDomain(state *SolverState, varID int) Domain {
	if state == nil {
		state = s.baseState
	}
	for st := state; st != nil; st = st.parent {
		if st.snapshot != nil {
			return st.snapshot[varID]
		}
		if st.modifiedVarID == varID {
			return st.modifiedDomain
		}
	}
	if varID < len(s.vars) {
		return s.vars[varID].domain
	}
	return s.model.GetVariable(varID).domain
}

// SetDomain derives a state in which varID has the given domain. It
// returns the input state and false when the domain is unchanged.
func (s *Solver) SetDomain(state *SolverState, varID int, domain Domain) (*SolverState, bool) {
	if s.GetDomain(state, varID).Equal(domain) {
		return state, false
	}
	chain := 1
	if state != nil {
		chain = state.chain + 1
	}
	return &SolverState{
		parent:         state,
		modifiedVarID:  varID,
		modifiedDomain: domain,
		chain:          chain,
	}, true
}

// snapshotOf flattens state into a single node holding every domain.
func (s *Solver) snapshotOf(state *SolverState) *SolverState {
	n := len(s.vars)
	doms := make([]Domain, n)
	for i := 0; i < n; i++ {
		doms[i] = s.GetDomain(state, i)
	}
	return &SolverState{snapshot: doms}
}

// compact flattens long chains so GetDomain stays cheap at depth.
func (s *Solver) compact(state *SolverState) *SolverState {
	if state != nil && state.chain > s.config.SnapshotDepth {
		return s.snapshotOf(state)
	}
	return state
}

// resetVars rebuilds the solver's variable view from the model.
func (s *Solver) resetVars() {
	mv := s.model.Variables()
	s.vars = make([]*FDVariable, len(mv))
	copy(s.vars, mv)
	s.degree = nil
}

// rootState snapshots the initial domains of every variable.
func (s *Solver) rootState() *SolverState {
	doms := make([]Domain, len(s.vars))
	for i, v := range s.vars {
		doms[i] = v.domain
	}
	return &SolverState{snapshot: doms}
}

func (s *Solver) propagators() []PropagationConstraint {
	out := make([]PropagationConstraint, 0, len(s.model.constraints))
	for _, mc := range s.model.Constraints() {
		if pc, ok := mc.(PropagationConstraint); ok {
			out = append(out, pc)
		}
	}
	return out
}

// propagate runs every constraint until none changes the state.
func (s *Solver) propagate(state *SolverState, constraints []PropagationConstraint) (*SolverState, error) {
	if s.monitor != nil {
		s.monitor.StartPropagation()
		defer s.monitor.EndPropagation()
	}

	current := state
	for iteration := 0; iteration < s.config.MaxPropagationIterations; iteration++ {
		changed := false
		for _, c := range constraints {
			next, err := c.Propagate(s, current)
			if err != nil {
				return nil, err
			}
			if next != current {
				changed = true
				current = next
			}
		}
		if !changed {
			return current, nil
		}
	}
	// Propagation is only an accelerator: the search re-checks every
	// constraint at complete assignments, so a truncated fixed point is
	// still sound.
	return current, nil
}

// isComplete reports whether every variable is bound.
func (s *Solver) isComplete(state *SolverState) bool {
	for i := range s.vars {
		if !s.GetDomain(state, i).IsSingleton() {
			return false
		}
	}
	return true
}

func (s *Solver) extractSolution(state *SolverState) []int {
	out := make([]int, len(s.vars))
	for i := range out {
		out[i] = s.GetDomain(state, i).SingletonValue()
	}
	return out
}

// selectVariable returns the unbound variable to branch on, or -1.
func (s *Solver) selectVariable(state *SolverState) int {
	best := -1
	var bestScore float64
	var bestMin int
	for i := range s.vars {
		d := s.GetDomain(state, i)
		if d.IsSingleton() {
			continue
		}
		if s.config.VariableHeuristic == HeuristicLex {
			return i
		}
		score := s.computeVariableScore(i, d)
		switch {
		case best < 0:
		case s.config.VariableHeuristic == HeuristicSmallestMin:
			if d.Min() > bestMin || (d.Min() == bestMin && score >= bestScore) {
				continue
			}
		case score >= bestScore:
			continue
		}
		best, bestScore, bestMin = i, score, d.Min()
	}
	return best
}

func (s *Solver) computeVariableScore(varID int, d Domain) float64 {
	size := float64(d.Count())
	if s.config.VariableHeuristic == HeuristicDomDeg {
		deg := s.computeVariableDegree(varID)
		if deg > 0 {
			return size / float64(deg)
		}
	}
	return size
}

func (s *Solver) computeVariableDegree(varID int) int {
	if s.degree == nil {
		s.degree = make([]int, len(s.vars))
		for _, c := range s.model.Constraints() {
			for _, v := range c.Variables() {
				s.degree[v.id]++
			}
		}
	}
	return s.degree[varID]
}

// firstValue returns the value to try first for a variable.
func (s *Solver) firstValue(d Domain) int {
	if s.config.ValueHeuristic == ValueOrderMax {
		return d.Max()
	}
	return d.Min()
}

// Solve enumerates up to maxSolutions solutions (all when maxSolutions <= 0).
// Each solution is indexed by variable ID.
func (s *Solver) Solve(ctx context.Context, maxSolutions int) ([][]int, error) {
	if err := s.model.Validate(); err != nil {
		return nil, err
	}
	s.resetVars()
	constraints := s.propagators()
	root, err := s.propagate(s.rootState(), constraints)
	if err != nil {
		return [][]int{}, nil
	}
	s.baseState = root

	solutions := make([][]int, 0)
	err = s.search(ctx, root, constraints, nil, func(sol []int) bool {
		solutions = append(solutions, sol)
		return maxSolutions <= 0 || len(solutions) < maxSolutions
	})
	if s.monitor != nil {
		s.monitor.FinishSearch()
	}
	return solutions, err
}

// cutoff tightens a state before it is expanded. Branch and bound uses it
// to bound the objective by the incumbent.
type cutoff func(state *SolverState) (*SolverState, error)

// searchFrame is a choice point: the state it branches from, the variable
// and the values not tried yet.
type searchFrame struct {
	state     *SolverState
	varID     int
	remaining Domain
}

// search runs an iterative depth-first search. onSolution returns false
// to stop. The search returns ctx.Err() when cancelled and
// ErrSearchLimitReached when a node limit in ctx options is exceeded.
func (s *Solver) search(ctx context.Context, root *SolverState, constraints []PropagationConstraint, cut cutoff, onSolution func([]int) bool) error {
	return s.searchWithLimit(ctx, root, constraints, cut, 0, onSolution)
}

func (s *Solver) searchWithLimit(ctx context.Context, root *SolverState, constraints []PropagationConstraint, cut cutoff, nodeLimit int, onSolution func([]int) bool) error {
	if s.isComplete(root) {
		onSolution(s.extractSolution(root))
		if s.monitor != nil {
			s.monitor.RecordSolution()
		}
		return nil
	}

	stack := make([]*searchFrame, 0, 64)
	varID := s.selectVariable(root)
	stack = append(stack, &searchFrame{state: root, varID: varID, remaining: s.GetDomain(root, varID)})
	nodes := 0

	for len(stack) > 0 {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		frame := stack[len(stack)-1]
		if frame.remaining.Count() == 0 {
			stack = stack[:len(stack)-1]
			if s.monitor != nil {
				s.monitor.RecordBacktrack()
			}
			continue
		}

		nodes++
		if nodeLimit > 0 && nodes > nodeLimit {
			return ErrSearchLimitReached
		}
		if s.monitor != nil {
			s.monitor.RecordNode()
			s.monitor.RecordDepth(len(stack))
		}

		value := s.firstValue(frame.remaining)
		frame.remaining = frame.remaining.Remove(value)

		child, _ := s.SetDomain(frame.state, frame.varID, NewRangeDomain(value, value))
		if cut != nil {
			var err error
			if child, err = cut(child); err != nil {
				continue
			}
		}
		child, err := s.propagate(child, constraints)
		if err != nil {
			continue
		}
		child = s.compact(child)

		if s.isComplete(child) {
			if s.monitor != nil {
				s.monitor.RecordSolution()
			}
			if !onSolution(s.extractSolution(child)) {
				return nil
			}
			continue
		}

		next := s.selectVariable(child)
		if next < 0 {
			continue
		}
		stack = append(stack, &searchFrame{state: child, varID: next, remaining: s.GetDomain(child, next)})
	}
	return nil
}

// String describes the solver.
func (s *Solver) String() string {
	return fmt.Sprintf("Solver{%s}", s.model.String())
}
