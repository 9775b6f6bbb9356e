package fd

import "fmt"

// Table is an extensional constraint: the variables must jointly take one
// of the allowed tuples. Propagation keeps only tuples supported by the
// current domains and restricts each variable to the values they use.
type Table struct {
	vars   []*FDVariable
	tuples [][]int
}

// NewTable creates a Table constraint. Every tuple must have one value
// per variable.
func NewTable(vars []*FDVariable, tuples [][]int) (PropagationConstraint, error) {
	if len(vars) == 0 {
		return nil, fmt.Errorf("Table requires at least one variable")
	}
	for i, v := range vars {
		if v == nil {
			return nil, fmt.Errorf("Table: vars[%d] is nil", i)
		}
	}
	cp := make([][]int, len(tuples))
	for i, t := range tuples {
		if len(t) != len(vars) {
			return nil, fmt.Errorf("Table: tuple %d has %d values, want %d", i, len(t), len(vars))
		}
		cp[i] = append([]int(nil), t...)
	}
	vs := make([]*FDVariable, len(vars))
	copy(vs, vars)
	return &Table{vars: vs, tuples: cp}, nil
}

// Variables implements ModelConstraint.
func (c *Table) Variables() []*FDVariable { return c.vars }

// Type implements ModelConstraint.
func (c *Table) Type() string { return "Table" }

// String implements ModelConstraint.
func (c *Table) String() string {
	return fmt.Sprintf("Table(arity=%d, tuples=%d)", len(c.vars), len(c.tuples))
}

// Propagate implements PropagationConstraint.
func (c *Table) Propagate(solver *Solver, state *SolverState) (*SolverState, error) {
	env := &exprEnv{solver: solver, state: state}
	doms := make([]Domain, len(c.vars))
	for i, v := range c.vars {
		doms[i] = env.domain(v)
	}
	supported := make([][]int, len(c.vars))
	found := false
	for _, t := range c.tuples {
		ok := true
		for i, val := range t {
			if !doms[i].Has(val) {
				ok = false
				break
			}
		}
		if !ok {
			continue
		}
		found = true
		for i, val := range t {
			supported[i] = append(supported[i], val)
		}
	}
	if !found {
		return nil, ErrInconsistent
	}
	for i, v := range c.vars {
		if err := env.setDomain(v, doms[i], doms[i].Intersect(NewDomainFromValues(supported[i]))); err != nil {
			return nil, err
		}
	}
	return env.state, nil
}
