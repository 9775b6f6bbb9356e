package fd

// propagation.go: the propagation contract and the expression constraint.
//
// Constraints communicate through the SolverState:
//
//  1. Constraint reads current domains: GetDomain(state, varID)
//  2. Constraint computes domain reductions
//  3. Constraint derives a new state: SetDomain(state, varID, newDomain)
//  4. The solver repeats until no constraint changes the state
//
// A constraint that finds an empty domain returns ErrInconsistent.

import (
	"errors"
	"fmt"
)

// ErrInconsistent reports that propagation emptied a domain or found a
// constraint that can no longer be satisfied.
var ErrInconsistent = errors.New("fd: inconsistent")

// PropagationConstraint is a ModelConstraint that can filter domains.
type PropagationConstraint interface {
	ModelConstraint

	// Propagate applies the constraint's filtering algorithm and returns
	// the derived state, or the input state when nothing changed.
	// Returns ErrInconsistent when the constraint cannot be satisfied.
	//
	// Must be pure: same input produces same output, no side effects.
	Propagate(solver *Solver, state *SolverState) (*SolverState, error)
}

// ExprConstraint requires a boolean expression tree to evaluate to true.
//
// Filtering is bounds-based: the tree is evaluated bottom-up into value
// ranges and the required truth value is pushed top-down, narrowing the
// operands. When every variable is bound the evaluation is exact, so a
// complete assignment that violates the expression always fails.
type ExprConstraint struct {
	root Node
	vars []*FDVariable
}

// NewExprConstraint wraps a node as a hard constraint.
func NewExprConstraint(root Node) (*ExprConstraint, error) {
	if !root.IsValid() {
		return nil, fmt.Errorf("ExprConstraint: invalid expression")
	}
	return &ExprConstraint{root: root, vars: root.Vars()}, nil
}

// Root returns the constrained expression.
func (c *ExprConstraint) Root() Node { return c.root }

// Variables implements ModelConstraint.
func (c *ExprConstraint) Variables() []*FDVariable { return c.vars }

// Type implements ModelConstraint.
func (c *ExprConstraint) Type() string { return "Expr" }

// String implements ModelConstraint.
func (c *ExprConstraint) String() string { return c.root.String() }

// Propagate implements PropagationConstraint.
func (c *ExprConstraint) Propagate(solver *Solver, state *SolverState) (*SolverState, error) {
	env := &exprEnv{solver: solver, state: state}
	if err := env.narrowBool(c.root, true); err != nil {
		return nil, err
	}
	return env.state, nil
}
