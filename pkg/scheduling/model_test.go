package scheduling

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/gitrdm/gosched/pkg/fd"
)

func mustInterval(t *testing.T, m *Model, opts ...IntervalOption) Interval {
	t.Helper()
	iv, err := m.NewInterval(opts...)
	if err != nil {
		t.Fatalf("NewInterval: %v", err)
	}
	return iv
}

func mustRequire(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("Require: %v", err)
	}
}

func solve(t *testing.T, m *Model, opts ...fd.OptimizeOption) *Solution {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	sol, err := m.Solve(ctx, opts...)
	if err != nil {
		t.Fatalf("Solve: %v", err)
	}
	return sol
}

func TestDefaultHorizon(t *testing.T) {
	m := NewModel()
	mustInterval(t, m, WithFixedSize(5))
	if h := m.DefaultHorizon(); h != 5 {
		t.Fatalf("unbounded interval: horizon %d, want 5", h)
	}
	mustInterval(t, m, WithFixedSize(2), WithEnd(0, 20))
	if h := m.DefaultHorizon(); h != 20 {
		t.Fatalf("end bound: horizon %d, want 20", h)
	}
	mustInterval(t, m, WithFixedSize(3), WithStart(0, 10))
	if h := m.DefaultHorizon(); h != 20 {
		t.Fatalf("start bound below horizon: horizon %d, want 20", h)
	}
	mustInterval(t, m, WithFixedSize(4))
	if h := m.DefaultHorizon(); h != 24 {
		t.Fatalf("second unbounded interval: horizon %d, want 24", h)
	}
	if h := m.Horizon(); h != 24 {
		t.Fatalf("Horizon() = %d, want 24", h)
	}
}

func TestDefaultHorizon_CapsAtIntervalMax(t *testing.T) {
	m := NewModel()
	mustInterval(t, m)
	if h := m.DefaultHorizon(); h != IntervalMax {
		t.Fatalf("horizon %d, want IntervalMax", h)
	}
}

func TestWithHorizonOverridesDefault(t *testing.T) {
	m := NewModel(WithHorizon(50))
	mustInterval(t, m, WithFixedSize(5))
	if h := m.Horizon(); h != 50 {
		t.Fatalf("Horizon() = %d, want 50", h)
	}
}

func TestNewInterval_Validation(t *testing.T) {
	cases := []struct {
		name string
		opts []IntervalOption
	}{
		{"inverted start", []IntervalOption{WithStart(5, 2)}},
		{"negative size", []IntervalOption{WithSize(-1, 3)}},
		{"end too early", []IntervalOption{WithStart(10, 20), WithFixedSize(5), WithEnd(0, 12)}},
		{"zero granularity", []IntervalOption{WithGranularity(0)}},
		{"decreasing intensity times", []IntervalOption{WithIntensity([]Step{{5, 10}, {3, 20}})}},
		{"negative intensity", []IntervalOption{WithIntensity([]Step{{0, -1}})}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewModel().NewInterval(tc.opts...)
			if !errors.Is(err, ErrValue) {
				t.Fatalf("want ErrValue, got %v", err)
			}
			var ve *ValueError
			if !errors.As(err, &ve) || ve.Op != "NewInterval" {
				t.Fatalf("want *ValueError from NewInterval, got %#v", err)
			}
		})
	}
}

func TestUnknownHandleIsTypeError(t *testing.T) {
	m := NewModel()
	a := mustInterval(t, m, WithFixedSize(1))
	if _, err := m.EndBeforeStart(a, Interval(7), 0); !errors.Is(err, ErrType) {
		t.Fatalf("want ErrType, got %v", err)
	}
	if _, err := m.Rank(Sequence(3), a); !errors.Is(err, ErrType) {
		t.Fatalf("want ErrType for unknown sequence, got %v", err)
	}
}

func TestIntervalArrayNamesAndInfo(t *testing.T) {
	m := NewModel()
	ivs, err := m.NewIntervalArray(3, "op", WithFixedSize(4), Optional())
	if err != nil {
		t.Fatalf("NewIntervalArray: %v", err)
	}
	if got := m.Name(ivs[2]); got != "op[2]" {
		t.Fatalf("name %q, want op[2]", got)
	}
	info, err := m.Info(ivs[0])
	if err != nil {
		t.Fatalf("Info: %v", err)
	}
	if !info.IsFixedSize() || info.IsFixedStart() || !info.Optional {
		t.Fatalf("unexpected info %+v", info)
	}
	if unnamed := mustInterval(t, m); m.Name(unnamed) != "interval_3" {
		t.Fatalf("default name %q", m.Name(unnamed))
	}
}

func TestChainMinimizesMakespan(t *testing.T) {
	m := NewModel()
	var ivs []Interval
	for i, size := range []int{3, 2, 4} {
		ivs = append(ivs, mustInterval(t, m, WithFixedSize(size), WithName(string(rune('a'+i)))))
	}
	mustRequire(t, m.Require(m.Chain(ivs, nil)))
	if err := m.Minimize(m.Makespan(ivs)); err != nil {
		t.Fatalf("Minimize: %v", err)
	}
	sol := solve(t, m)
	if sol.Status != fd.StatusOptimal {
		t.Fatalf("status %s, want OPTIMAL", sol.Status)
	}
	if sol.Objective != 9 {
		t.Fatalf("makespan %d, want 9", sol.Objective)
	}
	for i, want := range []int{0, 3, 5} {
		v, ok := sol.IntervalValue(ivs[i])
		if !ok {
			t.Fatalf("interval %d not decoded", i)
		}
		if v.Start != want {
			t.Fatalf("interval %s starts at %d, want %d", v.Name, v.Start, want)
		}
	}
}

func TestChainValidation(t *testing.T) {
	m := NewModel()
	a := mustInterval(t, m, WithFixedSize(1))
	b := mustInterval(t, m, WithFixedSize(1))
	if _, err := m.Chain([]Interval{a}, nil); !errors.Is(err, ErrValue) {
		t.Fatalf("single interval: want ErrValue, got %v", err)
	}
	if _, err := m.Chain([]Interval{a, b}, []int{1, 2}); !errors.Is(err, ErrValue) {
		t.Fatalf("delay count: want ErrValue, got %v", err)
	}
}

func TestIntervalValueGet(t *testing.T) {
	v := IntervalValue{Start: 2, End: 5, Length: 3, Present: true, Name: "x"}
	for _, k := range v.Keys() {
		if _, ok := v.Get(k); !ok {
			t.Fatalf("key %q not readable", k)
		}
	}
	if got, _ := v.Get("end"); got != 5 {
		t.Fatalf("end = %v, want 5", got)
	}
	if _, ok := v.Get("height"); ok {
		t.Fatalf("unexpected key height")
	}
}

func TestAbsentIntervalNotDecoded(t *testing.T) {
	m := NewModel()
	a := mustInterval(t, m, WithFixedSize(2), Optional())
	p, err := m.PresenceOf(a)
	if err != nil {
		t.Fatalf("PresenceOf: %v", err)
	}
	if err := m.Add(fd.Eq(p, fd.Const(0))); err != nil {
		t.Fatalf("Add: %v", err)
	}
	sol := solve(t, m)
	if !sol.HasSolution() {
		t.Fatalf("status %s", sol.Status)
	}
	if _, ok := sol.IntervalValue(a); ok {
		t.Fatalf("absent interval decoded as present")
	}
}

func TestStatistics(t *testing.T) {
	m := NewModel()
	a := mustInterval(t, m, WithFixedSize(1))
	b := mustInterval(t, m, WithFixedSize(1), Optional())
	if _, err := m.NewSequence([]Interval{a, b}, []int{0, 1}, "line"); err != nil {
		t.Fatalf("NewSequence: %v", err)
	}
	if _, err := m.NewSequence([]Interval{a}, nil, ""); err != nil {
		t.Fatalf("NewSequence: %v", err)
	}
	st := m.Statistics()
	if st.Intervals != 2 || st.OptionalIntervals != 1 || st.Sequences != 2 || st.SequencesWithTypes != 1 {
		t.Fatalf("unexpected statistics %+v", st)
	}
}

func TestUnconstrainedIntervalDecoded(t *testing.T) {
	m := NewModel()
	a := mustInterval(t, m, WithFixedSize(3), WithName("a"))
	b := mustInterval(t, m, WithFixedSize(2), WithName("b"))
	free := mustInterval(t, m, WithFixedSize(4), WithStart(1, 6), WithName("free"))
	mustRequire(t, m.Require(m.EndBeforeStart(a, b, 0)))

	sol := solve(t, m)
	v, ok := sol.IntervalValue(free)
	if !ok {
		t.Fatalf("unconstrained interval not decoded, status %s", sol.Status)
	}
	if v.Start < 1 || v.Start > 6 || v.Length != 4 || v.End != v.Start+4 {
		t.Fatalf("unexpected value %v", v)
	}
	if n := len(sol.IntervalValues()); n != 3 {
		t.Fatalf("decoded %d intervals, want 3", n)
	}
}
