package scheduling

import (
	"errors"
	"testing"

	"github.com/gitrdm/gosched/pkg/fd"
)

func twoTasks(t *testing.T, m *Model) (Interval, Interval) {
	t.Helper()
	a := mustInterval(t, m, WithFixedSize(2), WithName("a"))
	b := mustInterval(t, m, WithFixedSize(3), WithName("b"))
	return a, b
}

func TestCumulPulses(t *testing.T) {
	cases := []struct {
		name     string
		relate   func(m *Model, a, b Interval) ([]fd.Node, error)
		feasible bool
	}{
		{"forced overlap", func(m *Model, a, b Interval) ([]fd.Node, error) { return m.StartAtStart(a, b, 0) }, false},
		{"sequential", func(m *Model, a, b Interval) ([]fd.Node, error) { return m.EndBeforeStart(a, b, 0) }, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			m := NewModel()
			a, b := twoTasks(t, m)
			f, err := m.NewCumulFunction("load", Pulse(a, 2), Pulse(b, 3))
			if err != nil {
				t.Fatalf("NewCumulFunction: %v", err)
			}
			if err := m.AddCumul(f.LE(4)); err != nil {
				t.Fatalf("AddCumul: %v", err)
			}
			mustRequire(t, m.Require(tc.relate(m, a, b)))
			if st := m.CompileStats(); st.Native != 1 {
				t.Fatalf("pulse capacity should compile natively, stats %+v", st)
			}
			sol := solve(t, m)
			if sol.HasSolution() != tc.feasible {
				t.Fatalf("status %s, feasible want %v", sol.Status, tc.feasible)
			}
			if !tc.feasible && sol.Status != fd.StatusNoSolution {
				t.Fatalf("status %s, want NO_SOLUTION", sol.Status)
			}
		})
	}
}

func TestCumulSteps_Decomposed(t *testing.T) {
	m := NewModel()
	a, b := twoTasks(t, m)
	f, err := m.NewCumulFunction("tank",
		StepAtStart(a, 3), StepAtEnd(a, -3),
		StepAtStart(b, 3), StepAtEnd(b, -3),
	)
	if err != nil {
		t.Fatalf("NewCumulFunction: %v", err)
	}
	if err := m.AddCumul(f.LE(4)); err != nil {
		t.Fatalf("AddCumul: %v", err)
	}
	if st := m.CompileStats(); st.Decomposed != 1 || st.Native != 0 {
		t.Fatalf("steps should be decomposed, stats %+v", st)
	}
	sol := solve(t, m)
	if !sol.HasSolution() {
		t.Fatalf("status %s", sol.Status)
	}
	va, _ := sol.IntervalValue(a)
	vb, _ := sol.IntervalValue(b)
	if va.Start < vb.End && vb.Start < va.End {
		t.Fatalf("a %v and b %v overlap above capacity", va, vb)
	}
}

func TestCompilePaths(t *testing.T) {
	m := NewModel()
	a := mustInterval(t, m, WithFixedSize(2), WithStart(0, 10))
	b := mustInterval(t, m, WithFixedSize(2), WithStart(0, 10))

	empty, err := m.NewCumulFunction("")
	if err != nil {
		t.Fatalf("NewCumulFunction: %v", err)
	}
	c, err := m.CompileCumul(empty.LE(1))
	if err != nil {
		t.Fatalf("CompileCumul: %v", err)
	}
	if c.Path != PathEmpty || c.Len() != 0 {
		t.Fatalf("empty function: path %s with %d constraints", c.Path, c.Len())
	}

	f, err := m.NewCumulFunction("f", Pulse(a, 1), Pulse(b, 1))
	if err != nil {
		t.Fatalf("NewCumulFunction: %v", err)
	}
	if c, err = m.CompileCumul(f.LT(2)); err != nil || c.Path != PathNative {
		t.Fatalf("LT over pulses: path %v err %v", c, err)
	}
	if c, err = m.CompileCumul(f.GE(1)); err != nil || c.Path != PathDecomposed {
		t.Fatalf("GE: path %v err %v", c, err)
	}
	if c, err = m.CompileCumul(f.Range(1, 2)); err != nil || c.Path != PathDecomposed {
		t.Fatalf("Range with positive min: path %v err %v", c, err)
	}
	if c, err = m.CompileCumul(f.LE(-1)); err != nil || c.Path != PathNative || len(c.Nodes) != 1 {
		t.Fatalf("negative capacity: path %v err %v", c, err)
	}
	want := CompileStats{Native: 2, Decomposed: 2, Empty: 1}
	if got := m.CompileStats(); got != want {
		t.Fatalf("stats %+v, want %+v", got, want)
	}
}

func TestDecompositionLimit(t *testing.T) {
	m := NewModel(WithDecompositionLimit(5))
	a := mustInterval(t, m, WithFixedSize(2), WithStart(0, 10))
	f, err := m.NewCumulFunction("f", StepAtStart(a, 1))
	if err != nil {
		t.Fatalf("NewCumulFunction: %v", err)
	}
	if _, err := m.CompileCumul(f.LE(0)); !errors.Is(err, ErrUnsupported) {
		t.Fatalf("want ErrUnsupported, got %v", err)
	}
}

func TestCumulConstraintValidation(t *testing.T) {
	m := NewModel()
	a := mustInterval(t, m, WithFixedSize(2))
	f, err := m.NewCumulFunction("f", Pulse(a, 1))
	if err != nil {
		t.Fatalf("NewCumulFunction: %v", err)
	}
	if _, err := m.CompileCumul(f.Range(3, 1)); !errors.Is(err, ErrValue) {
		t.Fatalf("inverted range: want ErrValue, got %v", err)
	}
	if _, err := m.NewCumulFunction("bad", PulseRange(a, 4, 2)); !errors.Is(err, ErrValue) {
		t.Fatalf("inverted height: want ErrValue, got %v", err)
	}
	other := NewModel()
	if _, err := other.CompileCumul(f.LE(1)); !errors.Is(err, ErrType) {
		t.Fatalf("foreign function: want ErrType, got %v", err)
	}
}

func TestAlwaysInWindow(t *testing.T) {
	m := NewModel()
	a := mustInterval(t, m, WithFixedSize(2), WithStart(0, 6))
	f, err := m.NewCumulFunction("crew", Pulse(a, 1))
	if err != nil {
		t.Fatalf("NewCumulFunction: %v", err)
	}
	// The crew is unavailable during [0, 4).
	if err := m.AddCumul(f.AlwaysInWindow(0, 4, 0, 0)); err != nil {
		t.Fatalf("AddCumul: %v", err)
	}
	sol := solve(t, m)
	v, ok := sol.IntervalValue(a)
	if !ok {
		t.Fatalf("status %s", sol.Status)
	}
	if v.Start < 4 {
		t.Fatalf("a starts at %d inside the blocked window", v.Start)
	}
}

func TestHeightAtStart(t *testing.T) {
	m := NewModel()
	a := mustInterval(t, m, WithFixedSize(2), WithStart(0, 0))
	b := mustInterval(t, m, WithFixedSize(2), WithStart(1, 1))
	f, err := m.NewCumulFunction("f", Pulse(a, 2), Pulse(b, 5))
	if err != nil {
		t.Fatalf("NewCumulFunction: %v", err)
	}
	h, err := m.HeightAtStart(b, f, -1)
	if err != nil {
		t.Fatalf("HeightAtStart: %v", err)
	}
	sol := solve(t, m)
	got, err := sol.Value(h)
	if err != nil {
		t.Fatalf("Value: %v", err)
	}
	if got != 7 {
		t.Fatalf("level at start of b = %d, want 7", got)
	}
}

func TestCumulDecompositionUsesFinalHorizon(t *testing.T) {
	m := NewModel()
	a := mustInterval(t, m, WithFixedSize(2), WithName("a"))
	f, err := m.NewCumulFunction("f", Pulse(a, 1), StepAt(0, 0))
	if err != nil {
		t.Fatalf("NewCumulFunction: %v", err)
	}
	if err := m.AddCumul(f.LE(1)); err != nil {
		t.Fatalf("AddCumul: %v", err)
	}
	if st := m.CompileStats(); st.Decomposed != 1 {
		t.Fatalf("steps should be decomposed, stats %+v", st)
	}
	// c grows the horizon after the decomposition was compiled.
	c := mustInterval(t, m, WithFixedSize(5), WithName("c"))
	mustRequire(t, m.Require(m.EndBeforeStart(c, a, 0)))

	sol := solve(t, m)
	if !sol.HasSolution() {
		t.Fatalf("status %s, want a solution with a after c", sol.Status)
	}
	va, _ := sol.IntervalValue(a)
	if va.Start < 5 {
		t.Fatalf("a starts at %d before c ends", va.Start)
	}
}

func TestCumulLevelIsZeroBeforeFirstEvent(t *testing.T) {
	m := NewModel()
	empty, err := m.NewCumulFunction("empty")
	if err != nil {
		t.Fatalf("NewCumulFunction: %v", err)
	}
	late, err := m.NewCumulFunction("late", StepAt(5, 2))
	if err != nil {
		t.Fatalf("NewCumulFunction: %v", err)
	}
	for _, c := range []CumulConstraint{empty.GE(1), empty.Range(1, 3), late.GE(1)} {
		out, err := m.CompileCumul(c)
		if err != nil {
			t.Fatalf("%s: %v", c, err)
		}
		if len(out.Nodes) != 1 || !out.Nodes[0].IsConst() || out.Nodes[0].Value() != 0 {
			t.Fatalf("%s: want a single False, got path %s with %d constraints", c, out.Path, out.Len())
		}
	}
	if out, err := m.CompileCumul(late.LE(2)); err != nil || out.Path != PathEmpty {
		t.Fatalf("satisfied bound: path %v err %v", out, err)
	}

	if err := m.AddCumul(late.GE(1)); err != nil {
		t.Fatalf("AddCumul: %v", err)
	}
	mustInterval(t, m, WithFixedSize(1))
	if sol := solve(t, m); sol.Status != fd.StatusNoSolution {
		t.Fatalf("status %s, want NO_SOLUTION", sol.Status)
	}
}
