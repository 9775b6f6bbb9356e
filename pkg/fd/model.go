// Package fd provides a finite-domain constraint solver: integer variables
// over explicit domains, expression-tree constraints, scheduling globals
// (no-overlap, cumulative), all-different and table constraints, and a
// depth-first search with branch-and-bound optimization.
//
// This file defines the Model abstraction for declaratively building
// constraint satisfaction problems.
package fd

import (
	"fmt"
	"sync"
)

// Model represents a constraint satisfaction problem declaratively.
// A model consists of:
//   - Variables: decision variables with finite domains
//   - Constraints: relationships that must hold among variables
//   - Objective: an optional expression to minimize or maximize
//   - Configuration: search heuristics and limits
//
// Models are constructed incrementally and are treated as read-only once
// a Solver starts working on them.
//
// Thread safety: Models are safe for concurrent reads during solving,
// but must be constructed sequentially.
type Model struct {
	variables   []*FDVariable
	constraints []ModelConstraint
	objective   *Objective
	config      *SolverConfig

	mu sync.RWMutex
}

// ModelConstraint represents a constraint within a model.
//
// ModelConstraints are immutable after creation and safe for concurrent access.
type ModelConstraint interface {
	// Variables returns the variables involved in this constraint.
	Variables() []*FDVariable

	// Type returns a string identifying the constraint type.
	Type() string

	// String returns a human-readable representation.
	String() string
}

// Objective is an expression the solver minimizes or maximizes.
type Objective struct {
	Expr     Node
	Minimize bool
}

// NewModel creates a new empty model with the default configuration.
func NewModel() *Model {
	return NewModelWithConfig(nil)
}

// NewModelWithConfig creates a model with a custom solver configuration.
func NewModelWithConfig(config *SolverConfig) *Model {
	if config == nil {
		config = DefaultSolverConfig()
	}
	return &Model{
		variables:   make([]*FDVariable, 0),
		constraints: make([]ModelConstraint, 0),
		config:      config,
	}
}

// NewVariable adds a variable with the given domain.
func (m *Model) NewVariable(domain Domain) *FDVariable {
	m.mu.Lock()
	defer m.mu.Unlock()

	v := NewFDVariable(len(m.variables), domain)
	m.variables = append(m.variables, v)
	return v
}

// NewVariableWithName adds a named variable with the given domain.
func (m *Model) NewVariableWithName(domain Domain, name string) *FDVariable {
	m.mu.Lock()
	defer m.mu.Unlock()

	v := NewFDVariableWithName(len(m.variables), domain, name)
	m.variables = append(m.variables, v)
	return v
}

// NewIntVar adds a variable over the contiguous range [lo, hi].
func (m *Model) NewIntVar(lo, hi int, name string) (*FDVariable, error) {
	if lo > hi {
		return nil, fmt.Errorf("NewIntVar %q: empty range [%d, %d]", name, lo, hi)
	}
	return m.NewVariableWithName(NewRangeDomain(lo, hi), name), nil
}

// NewBoolVar adds a 0/1 variable.
func (m *Model) NewBoolVar(name string) *FDVariable {
	return m.NewVariableWithName(NewBoolDomain(), name)
}

// GetVariable returns the variable with the given ID, or nil.
func (m *Model) GetVariable(id int) *FDVariable {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if id < 0 || id >= len(m.variables) {
		return nil
	}
	return m.variables[id]
}

// Variables returns all variables in creation order.
// The returned slice should not be modified.
func (m *Model) Variables() []*FDVariable {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.variables
}

// VariableCount returns the number of variables in the model.
func (m *Model) VariableCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.variables)
}

// AddConstraint adds a constraint to the model.
func (m *Model) AddConstraint(constraint ModelConstraint) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.constraints = append(m.constraints, constraint)
}

// Post registers each node as a hard constraint that must evaluate to true.
func (m *Model) Post(nodes ...Node) error {
	for _, n := range nodes {
		c, err := NewExprConstraint(n)
		if err != nil {
			return err
		}
		m.AddConstraint(c)
	}
	return nil
}

// Constraints returns all constraints.
// The returned slice should not be modified.
func (m *Model) Constraints() []ModelConstraint {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.constraints
}

// ConstraintCount returns the number of constraints in the model.
func (m *Model) ConstraintCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.constraints)
}

// Minimize sets the objective to minimize expr, replacing any previous one.
func (m *Model) Minimize(expr Node) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objective = &Objective{Expr: expr, Minimize: true}
}

// Maximize sets the objective to maximize expr, replacing any previous one.
func (m *Model) Maximize(expr Node) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objective = &Objective{Expr: expr, Minimize: false}
}

// Objective returns the objective, or nil for a satisfaction problem.
func (m *Model) Objective() *Objective {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.objective
}

// Config returns the solver configuration for this model.
func (m *Model) Config() *SolverConfig {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.config
}

// SetConfig updates the solver configuration.
// Should be called before solving begins.
func (m *Model) SetConfig(config *SolverConfig) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if config == nil {
		config = DefaultSolverConfig()
	}
	m.config = config
}

// Validate checks that every variable has a non-empty domain and that
// constraints only reference variables owned by this model.
func (m *Model) Validate() error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, v := range m.variables {
		if v.domain.Count() == 0 {
			return fmt.Errorf("variable %s has empty domain", v.name)
		}
	}
	for i, c := range m.constraints {
		for _, v := range c.Variables() {
			if v == nil || v.id < 0 || v.id >= len(m.variables) || m.variables[v.id] != v {
				return fmt.Errorf("constraint %d (%s) references a variable outside the model", i, c.Type())
			}
		}
	}
	if m.objective != nil {
		for _, v := range m.objective.Expr.Vars() {
			if v.id < 0 || v.id >= len(m.variables) || m.variables[v.id] != v {
				return fmt.Errorf("objective references a variable outside the model")
			}
		}
	}
	return nil
}

// String returns a short summary of the model.
func (m *Model) String() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return fmt.Sprintf("Model{variables: %d, constraints: %d}", len(m.variables), len(m.constraints))
}
