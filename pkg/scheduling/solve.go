package scheduling

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gitrdm/gosched/pkg/fd"
)

// Solution is the outcome of Model.Solve.
type Solution struct {
	Status    fd.Status
	Objective int
	// Limited is set when a time or node limit, or a cancelled context,
	// cut the search short.
	Limited bool
	Elapsed time.Duration
	Stats   *fd.SolverStats

	m      *Model
	result *fd.Result
}

// Solve finalizes the encoding and runs the solver once. Limits and
// cancellation are reported through Solution.Limited, not as errors.
func (m *Model) Solve(ctx context.Context, opts ...fd.OptimizeOption) (*Solution, error) {
	if err := m.finalize(); err != nil {
		return nil, err
	}
	solver := fd.NewSolver(m.fd)
	mon := fd.NewSolverMonitor()
	solver.SetMonitor(mon)

	began := time.Now()
	res, err := solver.Run(ctx, opts...)
	sol := &Solution{m: m, result: res, Elapsed: time.Since(began), Stats: mon.GetStats()}
	switch {
	case err == nil:
	case errors.Is(err, fd.ErrSearchLimitReached), errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		sol.Limited = true
	default:
		return nil, err
	}
	if res != nil {
		sol.Status = res.Status
		sol.Objective = res.Objective
	}
	m.log.Debug("solve finished",
		"status", sol.Status.String(),
		"objective", sol.Objective,
		"limited", sol.Limited,
		"elapsed", sol.Elapsed,
		"nodes", sol.Stats.NodesExplored,
	)
	return sol, nil
}

// HasSolution reports whether an assignment is available.
func (s *Solution) HasSolution() bool {
	return s != nil && s.result != nil && s.Status.HasSolution()
}

// Value evaluates n under the solution.
func (s *Solution) Value(n fd.Node) (int, error) {
	if !s.HasSolution() {
		return 0, fmt.Errorf("Value: no solution (%s)", s.Status)
	}
	return s.result.Eval(n)
}

// IntervalValue is the decoded value of one interval.
type IntervalValue struct {
	Start   int
	End     int
	Length  int
	Present bool
	Name    string
}

var intervalValueKeys = []string{"start", "end", "length", "present", "name"}

// Keys lists the fields reachable through Get.
func (IntervalValue) Keys() []string {
	return append([]string(nil), intervalValueKeys...)
}

// Get returns a field by name.
func (v IntervalValue) Get(key string) (any, bool) {
	switch key {
	case "start":
		return v.Start, true
	case "end":
		return v.End, true
	case "length":
		return v.Length, true
	case "present":
		return v.Present, true
	case "name":
		return v.Name, true
	}
	return nil, false
}

func (v IntervalValue) String() string {
	if !v.Present {
		return fmt.Sprintf("%s: absent", v.Name)
	}
	return fmt.Sprintf("%s: [%d, %d) length %d", v.Name, v.Start, v.End, v.Length)
}

// IntervalValue decodes iv. ok is false when iv is absent or there is no
// solution.
func (s *Solution) IntervalValue(iv Interval) (IntervalValue, bool) {
	if !s.HasSolution() {
		return IntervalValue{}, false
	}
	d, err := s.m.interval("IntervalValue", iv)
	if err != nil || d.enc == nil {
		return IntervalValue{}, false
	}
	e := d.enc
	pres, err := s.result.Eval(e.presence)
	if err != nil || pres == 0 {
		return IntervalValue{Name: d.name}, false
	}
	start := s.result.Value(e.start)
	length, err := s.result.Eval(e.length)
	if err != nil {
		return IntervalValue{}, false
	}
	return IntervalValue{
		Start:   start,
		End:     start + length,
		Length:  length,
		Present: true,
		Name:    d.name,
	}, true
}

// IntervalValues decodes every present interval.
func (s *Solution) IntervalValues() []IntervalValue {
	var out []IntervalValue
	if !s.HasSolution() {
		return out
	}
	for i := range s.m.intervals {
		if v, ok := s.IntervalValue(Interval(i)); ok {
			out = append(out, v)
		}
	}
	return out
}

// ModelStatistics summarizes a model.
type ModelStatistics struct {
	Intervals          int
	OptionalIntervals  int
	Sequences          int
	SequencesWithTypes int
	CumulFunctions     int
	StateFunctions     int
	SolverVariables    int
	SolverConstraints  int
	Compile            CompileStats
}

// Statistics counts the entities of the model.
func (m *Model) Statistics() ModelStatistics {
	st := ModelStatistics{
		Intervals:         len(m.intervals),
		Sequences:         len(m.sequences),
		CumulFunctions:    len(m.cumuls),
		StateFunctions:    len(m.states),
		SolverVariables:   m.fd.VariableCount(),
		SolverConstraints: m.fd.ConstraintCount(),
		Compile:           m.CompileStats(),
	}
	for _, d := range m.intervals {
		if d.optional {
			st.OptionalIntervals++
		}
	}
	for _, s := range m.sequences {
		if s.types != nil {
			st.SequencesWithTypes++
		}
	}
	return st
}
