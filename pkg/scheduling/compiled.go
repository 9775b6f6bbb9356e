package scheduling

import (
	"fmt"

	"github.com/gitrdm/gosched/pkg/fd"
)

// Path tells how a resource constraint was compiled.
type Path int

const (
	// PathEmpty means nothing had to be posted.
	PathEmpty Path = iota
	// PathNative means a global constraint of the solver was used.
	PathNative
	// PathDecomposed means the constraint was expanded into expressions.
	PathDecomposed
)

func (p Path) String() string {
	switch p {
	case PathEmpty:
		return "empty"
	case PathNative:
		return "native"
	case PathDecomposed:
		return "decomposed"
	}
	return fmt.Sprintf("Path(%d)", int(p))
}

// Compiled is the output of a builder that may use solver globals.
type Compiled struct {
	Path    Path
	Nodes   []fd.Node
	Globals []fd.ModelConstraint

	pending *CumulConstraint
}

// Len returns the number of constraints to post.
func (c *Compiled) Len() int {
	if c == nil {
		return 0
	}
	return len(c.Nodes) + len(c.Globals)
}

// AddCompiled posts a compiled constraint, passing through the builder's
// error. A horizon-dependent decomposition is held back and lowered by
// Solve.
func (m *Model) AddCompiled(c *Compiled, err error) error {
	if err != nil {
		return err
	}
	if c == nil {
		return nil
	}
	if c.pending != nil {
		m.pending = append(m.pending, *c.pending)
		return nil
	}
	for _, g := range c.Globals {
		m.fd.AddConstraint(g)
	}
	return m.Add(c.Nodes...)
}
