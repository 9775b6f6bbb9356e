// Package scheduling compiles interval-based scheduling models into the
// finite-domain solver in package fd.
//
// A Model owns intervals, sequences, cumulative functions and state
// functions. They are referenced by small integer handles into the model's
// tables, so a handle is only meaningful for the model that created it.
// Constraint builders translate the scheduling vocabulary into fd
// expression trees and global constraints:
//
//	m := scheduling.NewModel()
//	a, _ := m.NewInterval(scheduling.WithFixedSize(3), scheduling.WithName("a"))
//	b, _ := m.NewInterval(scheduling.WithFixedSize(2), scheduling.WithName("b"))
//	_ = m.Require(m.EndBeforeStart(a, b, 0))
//	_ = m.Minimize(m.Makespan([]scheduling.Interval{a, b}))
//	sol, _ := m.Solve(ctx)
//
// Optional intervals carry a 0/1 presence variable. Every constraint that
// mentions an optional interval is guarded by an escape clause so it holds
// vacuously when the interval is absent.
//
// Solver variables for an interval are created on first use. The time
// horizon that bounds unconstrained starts is fixed when Solve runs.
package scheduling

import (
	"io"
	"log/slog"
	"sync"

	"github.com/gitrdm/gosched/pkg/fd"
)

// IntervalMax is the largest time value an interval bound may take.
const IntervalMax = 1<<30 - 1

// DefaultDecompositionLimit bounds the number of time points a cumulative
// decomposition may check.
const DefaultDecompositionLimit = 4096

// Model is the registry of scheduling entities and the fd model they
// compile into. A Model is built by one goroutine; independent models may
// be solved concurrently.
type Model struct {
	fd  *fd.Model
	log *slog.Logger

	horizon     int
	decompLimit int

	intervals []*intervalData
	sequences []*sequenceData
	cumuls    []*CumulFunction
	states    []*stateData

	stats   CompileStats
	pending []CumulConstraint

	mu sync.Mutex
}

// ModelOption configures a Model.
type ModelOption func(*Model)

// WithLogger routes compile diagnostics to l.
func WithLogger(l *slog.Logger) ModelOption {
	return func(m *Model) {
		if l != nil {
			m.log = l
		}
	}
}

// WithHorizon fixes the time horizon instead of deriving it from the
// intervals with DefaultHorizon.
func WithHorizon(h int) ModelOption {
	return func(m *Model) { m.horizon = h }
}

// WithSolverConfig sets the search configuration of the backing model.
func WithSolverConfig(cfg *fd.SolverConfig) ModelOption {
	return func(m *Model) {
		if cfg != nil {
			m.fd.SetConfig(cfg)
		}
	}
}

// WithDecompositionLimit overrides DefaultDecompositionLimit.
func WithDecompositionLimit(n int) ModelOption {
	return func(m *Model) {
		if n > 0 {
			m.decompLimit = n
		}
	}
}

// NewModel creates an empty scheduling model.
func NewModel(opts ...ModelOption) *Model {
	m := &Model{
		fd:          fd.NewModel(),
		log:         slog.New(slog.NewTextHandler(io.Discard, nil)),
		decompLimit: DefaultDecompositionLimit,
	}
	for _, o := range opts {
		if o != nil {
			o(m)
		}
	}
	return m
}

// FD returns the backing finite-domain model. Callers may add their own
// variables and constraints to it.
func (m *Model) FD() *fd.Model { return m.fd }

// Logger returns the model's logger.
func (m *Model) Logger() *slog.Logger { return m.log }

// Add posts each node as a hard constraint.
func (m *Model) Add(nodes ...fd.Node) error {
	return m.fd.Post(nodes...)
}

// Require posts the result of a constraint builder, passing through its
// error:
//
//	err := m.Require(m.Span(main, subs))
func (m *Model) Require(nodes []fd.Node, err error) error {
	if err != nil {
		return err
	}
	return m.Add(nodes...)
}

// Minimize sets a minimization objective.
func (m *Model) Minimize(obj fd.Node, err error) error {
	if err != nil {
		return err
	}
	m.fd.Minimize(obj)
	return nil
}

// Maximize sets a maximization objective.
func (m *Model) Maximize(obj fd.Node, err error) error {
	if err != nil {
		return err
	}
	m.fd.Maximize(obj)
	return nil
}

// Horizon returns the horizon Solve would use now.
func (m *Model) Horizon() int {
	if m.horizon > 0 {
		return m.horizon
	}
	return m.DefaultHorizon()
}

// DefaultHorizon derives a horizon from the registered intervals. An
// interval with a finite end bound extends it to that bound; one with
// only a finite start bound extends it to start_max+length_max; an
// unbounded interval adds its maximum length. The result never exceeds
// IntervalMax.
func (m *Model) DefaultHorizon() int {
	h := 0
	for _, iv := range m.intervals {
		switch {
		case iv.end.max != IntervalMax:
			h = max(h, iv.end.max)
		case iv.start.max != IntervalMax:
			h = max(h, iv.start.max+iv.length.max)
		default:
			h += iv.length.max
		}
		if h >= IntervalMax {
			return IntervalMax
		}
	}
	return h
}

// CompileStats counts how cumulative constraints were compiled.
type CompileStats struct {
	Native     int
	Decomposed int
	Empty      int
}

// CompileStats returns the compile counters.
func (m *Model) CompileStats() CompileStats {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stats
}

func (m *Model) countPath(p Path) {
	m.mu.Lock()
	defer m.mu.Unlock()
	switch p {
	case PathNative:
		m.stats.Native++
	case PathDecomposed:
		m.stats.Decomposed++
	case PathEmpty:
		m.stats.Empty++
	}
}
