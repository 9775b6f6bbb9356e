package fd

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Status is the terminal outcome of a solve.
type Status int

const (
	// StatusUnknown means the search stopped before finding a solution or
	// proving there is none.
	StatusUnknown Status = iota
	// StatusNoSolution means the model is proved infeasible.
	StatusNoSolution
	// StatusSatisfiable means a solution was found but not proved optimal,
	// or the model has no objective.
	StatusSatisfiable
	// StatusOptimal means the search space was exhausted with an incumbent.
	StatusOptimal
)

func (s Status) String() string {
	switch s {
	case StatusNoSolution:
		return "NO_SOLUTION"
	case StatusSatisfiable:
		return "SATISFIABLE"
	case StatusOptimal:
		return "OPTIMAL"
	default:
		return "UNKNOWN"
	}
}

// HasSolution reports whether values are available.
func (s Status) HasSolution() bool {
	return s == StatusSatisfiable || s == StatusOptimal
}

// Result is returned by Run.
type Result struct {
	Status Status

	// Values holds one value per model variable, indexed by ID, when
	// Status.HasSolution().
	Values []int

	// Objective is the objective value of Values when the model has one.
	Objective int

	// Solutions counts improving solutions (or 1 for satisfaction).
	Solutions int
}

// Value returns the assigned value of v.
func (r *Result) Value(v *FDVariable) int {
	return r.Values[v.id]
}

// Eval evaluates an expression under the result's assignment.
func (r *Result) Eval(n Node) (int, error) {
	if !r.Status.HasSolution() {
		return 0, fmt.Errorf("Eval: no solution (%s)", r.Status)
	}
	return n.Eval(func(v *FDVariable) int { return r.Values[v.id] })
}

// OptimizeOption configures Run.
type OptimizeOption func(*optConfig)

type optConfig struct {
	timeLimit       time.Duration
	nodeLimit       int
	targetObjective *int
	varHeuristic    *VariableOrderingHeuristic
	valueHeuristic  *ValueOrderingHeuristic
}

// WithTimeLimit bounds the wall-clock time of the search.
func WithTimeLimit(d time.Duration) OptimizeOption {
	return func(c *optConfig) { c.timeLimit = d }
}

// WithNodeLimit bounds the number of search nodes. When the limit is hit
// the best incumbent is returned together with ErrSearchLimitReached.
func WithNodeLimit(n int) OptimizeOption {
	return func(c *optConfig) { c.nodeLimit = n }
}

// WithTargetObjective stops as soon as an incumbent reaches target.
func WithTargetObjective(target int) OptimizeOption {
	return func(c *optConfig) { c.targetObjective = &target }
}

// WithHeuristics overrides the model's search heuristics for one run.
func WithHeuristics(v VariableOrderingHeuristic, val ValueOrderingHeuristic) OptimizeOption {
	return func(c *optConfig) {
		c.varHeuristic = &v
		c.valueHeuristic = &val
	}
}

// ErrSearchLimitReached indicates a run terminated due to a configured
// search limit rather than exhausting the search space.
var ErrSearchLimitReached = errors.New("search limit reached")

// Run solves the model. Without an objective it stops at the first
// solution. With one it runs branch and bound: every improving solution
// tightens a bound on the objective, and exhausting the search proves
// the incumbent optimal.
//
// Cancellation and limits are not errors for the caller to retry: the
// Result carries StatusSatisfiable with the incumbent, or StatusUnknown,
// and the returned error is ctx.Err() or ErrSearchLimitReached.
func (s *Solver) Run(ctx context.Context, opts ...OptimizeOption) (*Result, error) {
	cfg := &optConfig{}
	for _, o := range opts {
		if o != nil {
			o(cfg)
		}
	}
	if cfg.timeLimit > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.timeLimit)
		defer cancel()
	}

	orig := *s.config
	defer func() { *s.config = orig }()
	if cfg.varHeuristic != nil {
		s.config.VariableHeuristic = *cfg.varHeuristic
	}
	if cfg.valueHeuristic != nil {
		s.config.ValueHeuristic = *cfg.valueHeuristic
	}

	if err := s.model.Validate(); err != nil {
		return nil, err
	}
	if s.monitor != nil {
		defer s.monitor.FinishSearch()
	}

	s.resetVars()
	constraints := s.propagators()
	root := s.rootState()

	obj := s.model.Objective()
	var objVar *FDVariable
	if obj != nil {
		// The objective is channelled through a dedicated variable so the
		// incumbent bound is a plain domain cut.
		env := &exprEnv{solver: s, state: root}
		r, err := env.bounds(obj.Expr)
		if err != nil {
			return &Result{Status: StatusNoSolution}, nil
		}
		objVar, constraints = s.objectiveVariable(obj.Expr, r, constraints)
		root = s.rootState()
	}

	root, err := s.propagate(root, constraints)
	if err != nil {
		return &Result{Status: StatusNoSolution}, nil
	}
	s.baseState = root

	if objVar == nil {
		res := &Result{Status: StatusNoSolution}
		serr := s.searchWithLimit(ctx, root, constraints, nil, cfg.nodeLimit, func(sol []int) bool {
			res.Values = sol[:s.model.VariableCount()]
			res.Status = StatusSatisfiable
			res.Solutions = 1
			return false
		})
		if serr != nil && !res.Status.HasSolution() {
			res.Status = StatusUnknown
		}
		if res.Status.HasSolution() {
			serr = nil
		}
		return res, serr
	}

	res := &Result{Status: StatusNoSolution}
	var best *int
	cut := func(st *SolverState) (*SolverState, error) {
		if best == nil {
			return st, nil
		}
		d := s.GetDomain(st, objVar.id)
		var nd Domain
		if obj.Minimize {
			nd = d.RemoveAtOrAbove(*best)
		} else {
			nd = d.RemoveAtOrBelow(*best)
		}
		if nd.Count() == 0 {
			return nil, ErrInconsistent
		}
		st, _ = s.SetDomain(st, objVar.id, nd)
		return st, nil
	}
	reachedTarget := false
	serr := s.searchWithLimit(ctx, root, constraints, cut, cfg.nodeLimit, func(sol []int) bool {
		v := sol[objVar.id]
		best = &v
		res.Values = sol[:s.model.VariableCount()]
		res.Objective = v
		res.Solutions++
		if cfg.targetObjective != nil {
			t := *cfg.targetObjective
			if (obj.Minimize && v <= t) || (!obj.Minimize && v >= t) {
				reachedTarget = true
				return false
			}
		}
		return true
	})

	switch {
	case best == nil && serr == nil:
		res.Status = StatusNoSolution
	case best == nil:
		res.Status = StatusUnknown
	case serr == nil && !reachedTarget:
		res.Status = StatusOptimal
	default:
		res.Status = StatusSatisfiable
	}
	return res, serr
}

// objectiveVariable returns a variable equal to expr. Unless expr is
// already a variable, a solver-private variable and its linking
// constraint are created; the model itself is left untouched so it can be
// solved again.
func (s *Solver) objectiveVariable(expr Node, r ival, constraints []PropagationConstraint) (*FDVariable, []PropagationConstraint) {
	if expr.op == OpVar {
		return expr.v, constraints
	}
	v := NewFDVariableWithName(len(s.vars), NewRangeDomain(r.lo, r.hi), "objective")
	s.vars = append(s.vars, v)

	link, _ := NewExprConstraint(Eq(V(v), expr))
	out := make([]PropagationConstraint, 0, len(constraints)+1)
	out = append(out, constraints...)
	out = append(out, link)
	return v, out
}
