package fd

// VariableOrderingHeuristic selects the next variable to branch on.
type VariableOrderingHeuristic int

const (
	// HeuristicDom picks the variable with the smallest domain.
	HeuristicDom VariableOrderingHeuristic = iota
	// HeuristicDomDeg picks the smallest domain-size / constraint-degree ratio.
	HeuristicDomDeg
	// HeuristicLex picks the first unbound variable in creation order.
	HeuristicLex
	// HeuristicSmallestMin picks the variable with the smallest lower bound,
	// breaking ties by domain size. Works well on start-time variables.
	HeuristicSmallestMin
)

// ValueOrderingHeuristic selects which value of the chosen variable to try first.
type ValueOrderingHeuristic int

const (
	// ValueOrderMin tries values in increasing order.
	ValueOrderMin ValueOrderingHeuristic = iota
	// ValueOrderMax tries values in decreasing order.
	ValueOrderMax
)

// SolverConfig holds search parameters.
type SolverConfig struct {
	VariableHeuristic VariableOrderingHeuristic
	ValueHeuristic    ValueOrderingHeuristic

	// MaxPropagationIterations bounds the fixed-point loop.
	MaxPropagationIterations int

	// SnapshotDepth controls how long a state chain may grow before the
	// solver flattens it into a full domain snapshot.
	SnapshotDepth int
}

// DefaultSolverConfig returns the configuration used when none is given.
func DefaultSolverConfig() *SolverConfig {
	return &SolverConfig{
		VariableHeuristic:        HeuristicDom,
		ValueHeuristic:           ValueOrderMin,
		MaxPropagationIterations: 1000,
		SnapshotDepth:            64,
	}
}
