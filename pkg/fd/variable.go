package fd

import "fmt"

// FDVariable is a finite-domain integer decision variable.
//
// The domain stored here is the initial domain. During search the solver
// tracks the current domain of each variable in a SolverState keyed by the
// variable's ID, so a Model can be shared by several solvers.
type FDVariable struct {
	id     int
	domain Domain
	name   string
}

// NewFDVariable creates a variable with a generated name.
func NewFDVariable(id int, domain Domain) *FDVariable {
	return &FDVariable{
		id:     id,
		domain: domain,
		name:   fmt.Sprintf("v%d", id),
	}
}

// NewFDVariableWithName creates a named variable.
func NewFDVariableWithName(id int, domain Domain, name string) *FDVariable {
	return &FDVariable{
		id:     id,
		domain: domain,
		name:   name,
	}
}

// ID returns the index of the variable in its model.
func (v *FDVariable) ID() int {
	return v.id
}

// Domain returns the initial domain.
func (v *FDVariable) Domain() Domain {
	return v.domain
}

// Name returns the variable's name.
func (v *FDVariable) Name() string {
	return v.name
}

// IsBound reports whether the initial domain is a singleton.
func (v *FDVariable) IsBound() bool {
	return v.domain.IsSingleton()
}

// String returns the name and domain.
func (v *FDVariable) String() string {
	return fmt.Sprintf("%s%s", v.name, v.domain.String())
}
