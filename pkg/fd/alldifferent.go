package fd

import (
	"fmt"
	"strings"
)

// AllDifferent ensures all variables take distinct values.
//
// Propagation removes the value of every bound variable from the others
// and fails when fewer distinct values remain than variables (pigeonhole).
type AllDifferent struct {
	vars []*FDVariable
}

// NewAllDifferent creates an AllDifferent constraint.
func NewAllDifferent(vars []*FDVariable) (PropagationConstraint, error) {
	if len(vars) == 0 {
		return nil, fmt.Errorf("AllDifferent requires at least one variable")
	}
	for i, v := range vars {
		if v == nil {
			return nil, fmt.Errorf("AllDifferent: vars[%d] is nil", i)
		}
	}
	cp := make([]*FDVariable, len(vars))
	copy(cp, vars)
	return &AllDifferent{vars: cp}, nil
}

// Variables implements ModelConstraint.
func (c *AllDifferent) Variables() []*FDVariable { return c.vars }

// Type implements ModelConstraint.
func (c *AllDifferent) Type() string { return "AllDifferent" }

// String implements ModelConstraint.
func (c *AllDifferent) String() string {
	names := make([]string, len(c.vars))
	for i, v := range c.vars {
		names[i] = v.name
	}
	return fmt.Sprintf("AllDifferent(%s)", strings.Join(names, ","))
}

// Propagate implements PropagationConstraint.
func (c *AllDifferent) Propagate(solver *Solver, state *SolverState) (*SolverState, error) {
	env := &exprEnv{solver: solver, state: state}
	for changed := true; changed; {
		changed = false
		for i, v := range c.vars {
			d := env.domain(v)
			if !d.IsSingleton() {
				continue
			}
			val := d.SingletonValue()
			for j, w := range c.vars {
				if i == j {
					continue
				}
				wd := env.domain(w)
				if !wd.Has(val) {
					continue
				}
				if err := env.setDomain(w, wd, wd.Remove(val)); err != nil {
					return nil, err
				}
				changed = true
			}
		}
	}

	lo, hi := 0, 0
	for i, v := range c.vars {
		d := env.domain(v)
		if i == 0 || d.Min() < lo {
			lo = d.Min()
		}
		if i == 0 || d.Max() > hi {
			hi = d.Max()
		}
	}
	if hi-lo+1 < len(c.vars) {
		return nil, ErrInconsistent
	}
	if hi-lo+1 <= 4*len(c.vars) {
		vals := make([]int, 0)
		for _, v := range c.vars {
			env.domain(v).IterateValues(func(x int) { vals = append(vals, x) })
		}
		union := NewDomainFromValues(vals)
		if union.Count() < len(c.vars) {
			return nil, ErrInconsistent
		}
	}
	return env.state, nil
}
