package scheduling

import (
	"errors"
	"testing"

	"github.com/gitrdm/gosched/pkg/fd"
)

func TestTypeOfNext(t *testing.T) {
	m := NewModel()
	var ivs []Interval
	for i := 0; i < 3; i++ {
		ivs = append(ivs, mustInterval(t, m, WithFixedSize(1), WithStart(i, i)))
	}
	seq, err := m.NewSequence(ivs, []int{0, 1, 0}, "machine")
	if err != nil {
		t.Fatalf("NewSequence: %v", err)
	}
	const last, absentType = 9, 8
	nextOfFirst, err := m.TypeOfNext(seq, ivs[0], last, absentType)
	if err != nil {
		t.Fatalf("TypeOfNext: %v", err)
	}
	nextOfLast, err := m.TypeOfNext(seq, ivs[2], last, absentType)
	if err != nil {
		t.Fatalf("TypeOfNext: %v", err)
	}
	prevOfFirst, err := m.TypeOfPrev(seq, ivs[0], -1, absentType)
	if err != nil {
		t.Fatalf("TypeOfPrev: %v", err)
	}
	rank, err := m.Rank(seq, ivs[1])
	if err != nil {
		t.Fatalf("Rank: %v", err)
	}

	sol := solve(t, m)
	for _, c := range []struct {
		name string
		n    fd.Node
		want int
	}{
		{"type after first", nextOfFirst, 1},
		{"type after last", nextOfLast, last},
		{"type before first", prevOfFirst, -1},
		{"rank of middle", rank, 1},
	} {
		got, err := sol.Value(c.n)
		if err != nil {
			t.Fatalf("%s: %v", c.name, err)
		}
		if got != c.want {
			t.Fatalf("%s = %d, want %d", c.name, got, c.want)
		}
	}
}

func TestTypeOfNext_AbsentInterval(t *testing.T) {
	m := NewModel()
	a := mustInterval(t, m, WithFixedSize(1), WithStart(0, 0))
	b := mustInterval(t, m, WithFixedSize(1), Optional())
	seq, err := m.NewSequence([]Interval{a, b}, []int{0, 1}, "")
	if err != nil {
		t.Fatalf("NewSequence: %v", err)
	}
	p, _ := m.PresenceOf(b)
	if err := m.Add(fd.Eq(p, fd.Const(0))); err != nil {
		t.Fatalf("Add: %v", err)
	}
	next, err := m.TypeOfNext(seq, b, 9, 8)
	if err != nil {
		t.Fatalf("TypeOfNext: %v", err)
	}
	nextOfA, err := m.TypeOfNext(seq, a, 9, 8)
	if err != nil {
		t.Fatalf("TypeOfNext: %v", err)
	}
	sol := solve(t, m)
	if got, _ := sol.Value(next); got != 8 {
		t.Fatalf("absent interval: got %d, want the absent value 8", got)
	}
	if got, _ := sol.Value(nextOfA); got != 9 {
		t.Fatalf("only present interval: got %d, want the last value 9", got)
	}
}

func TestTypeOfNextWithoutTypes(t *testing.T) {
	m := NewModel()
	a := mustInterval(t, m, WithFixedSize(1))
	seq, err := m.NewSequence([]Interval{a}, nil, "")
	if err != nil {
		t.Fatalf("NewSequence: %v", err)
	}
	if _, err := m.TypeOfNext(seq, a, 0, 0); !errors.Is(err, ErrValue) {
		t.Fatalf("want ErrValue, got %v", err)
	}
}

func TestNewSequenceValidation(t *testing.T) {
	m := NewModel()
	a := mustInterval(t, m, WithFixedSize(1))
	b := mustInterval(t, m, WithFixedSize(1))
	if _, err := m.NewSequence([]Interval{a, a}, nil, ""); !errors.Is(err, ErrValue) {
		t.Fatalf("duplicate: want ErrValue, got %v", err)
	}
	if _, err := m.NewSequence([]Interval{a, b}, []int{0}, ""); !errors.Is(err, ErrValue) {
		t.Fatalf("types length: want ErrValue, got %v", err)
	}
	if _, err := m.NewSequence([]Interval{a, b}, []int{0, -2}, ""); !errors.Is(err, ErrValue) {
		t.Fatalf("negative type: want ErrValue, got %v", err)
	}
	seq, err := m.NewSequence([]Interval{a}, nil, "")
	if err != nil {
		t.Fatalf("NewSequence: %v", err)
	}
	if _, err := m.Rank(seq, b); !errors.Is(err, ErrValue) {
		t.Fatalf("non-member: want ErrValue, got %v", err)
	}
}

func TestSeqNoOverlapWithTransitions(t *testing.T) {
	m := NewModel()
	a := mustInterval(t, m, WithFixedSize(2), WithStart(0, 0), WithName("a"))
	b := mustInterval(t, m, WithFixedSize(2), WithStart(0, 20), WithName("b"))
	seq, err := m.NewSequence([]Interval{a, b}, []int{0, 1}, "press")
	if err != nil {
		t.Fatalf("NewSequence: %v", err)
	}
	setup := [][]int{{0, 5}, {5, 0}}
	if err := m.AddCompiled(m.SeqNoOverlap(seq, setup, false)); err != nil {
		t.Fatalf("SeqNoOverlap: %v", err)
	}
	if err := m.Minimize(m.Makespan([]Interval{a, b})); err != nil {
		t.Fatalf("Minimize: %v", err)
	}
	sol := solve(t, m)
	vb, ok := sol.IntervalValue(b)
	if !ok {
		t.Fatalf("status %s", sol.Status)
	}
	if vb.Start != 7 {
		t.Fatalf("b starts at %d, want 7 after the setup time", vb.Start)
	}
}

func TestSeqNoOverlapMatrixNeedsTypes(t *testing.T) {
	m := NewModel()
	a := mustInterval(t, m, WithFixedSize(1))
	seq, err := m.NewSequence([]Interval{a}, nil, "")
	if err != nil {
		t.Fatalf("NewSequence: %v", err)
	}
	if _, err := m.SeqNoOverlap(seq, [][]int{{0}}, false); !errors.Is(err, ErrValue) {
		t.Fatalf("want ErrValue, got %v", err)
	}
	empty, err := m.NewSequence(nil, nil, "")
	if err != nil {
		t.Fatalf("NewSequence: %v", err)
	}
	c, err := m.SeqNoOverlap(empty, nil, false)
	if err != nil || c.Path != PathEmpty {
		t.Fatalf("empty sequence: %v %v", c, err)
	}
}

func TestFirstAndPrevious(t *testing.T) {
	m := NewModel()
	ivs, err := m.NewIntervalArray(3, "t", WithFixedSize(1), WithStart(0, 5))
	if err != nil {
		t.Fatalf("NewIntervalArray: %v", err)
	}
	seq, err := m.NewSequence(ivs, nil, "")
	if err != nil {
		t.Fatalf("NewSequence: %v", err)
	}
	if err := m.AddCompiled(m.SeqNoOverlap(seq, nil, false)); err != nil {
		t.Fatalf("SeqNoOverlap: %v", err)
	}
	mustRequire(t, m.Require(m.First(seq, ivs[2])))
	mustRequire(t, m.Require(m.Previous(seq, ivs[2], ivs[0])))
	sol := solve(t, m)
	var starts [3]int
	for i, iv := range ivs {
		v, ok := sol.IntervalValue(iv)
		if !ok {
			t.Fatalf("status %s", sol.Status)
		}
		starts[i] = v.Start
	}
	if !(starts[2] < starts[0] && starts[0] < starts[1]) {
		t.Fatalf("order t2, t0, t1 expected, got starts %v", starts)
	}
}

func TestTypeChannelingFollowsChosenOrder(t *testing.T) {
	const last, first, absentType = 9, -1, 8
	perms := [][]int{{0, 1, 2}, {0, 2, 1}, {1, 0, 2}, {1, 2, 0}, {2, 0, 1}, {2, 1, 0}}
	for _, perm := range perms {
		m := NewModel()
		ivs, err := m.NewIntervalArray(3, "job", WithFixedSize(2), WithStart(0, 20))
		if err != nil {
			t.Fatalf("NewIntervalArray: %v", err)
		}
		extra := mustInterval(t, m, WithFixedSize(1), WithStart(0, 20), Optional(), WithName("extra"))
		all := append(append([]Interval(nil), ivs...), extra)
		seq, err := m.NewSequence(all, []int{0, 1, 2, 3}, "line")
		if err != nil {
			t.Fatalf("NewSequence: %v", err)
		}
		if err := m.AddCompiled(m.SeqNoOverlap(seq, nil, false)); err != nil {
			t.Fatalf("SeqNoOverlap: %v", err)
		}
		order := []Interval{ivs[perm[0]], ivs[perm[1]], ivs[perm[2]], extra}
		for k := 0; k+1 < len(order); k++ {
			mustRequire(t, m.Require(m.EndBeforeStart(order[k], order[k+1], 0)))
		}
		if err := m.Maximize(m.PresenceOf(extra)); err != nil {
			t.Fatalf("Maximize: %v", err)
		}

		next := make([]fd.Node, len(order))
		prev := make([]fd.Node, len(order))
		for k, iv := range order {
			if next[k], err = m.TypeOfNext(seq, iv, last, absentType); err != nil {
				t.Fatalf("TypeOfNext: %v", err)
			}
			if prev[k], err = m.TypeOfPrev(seq, iv, first, absentType); err != nil {
				t.Fatalf("TypeOfPrev: %v", err)
			}
		}
		rank, err := m.Rank(seq, extra)
		if err != nil {
			t.Fatalf("Rank: %v", err)
		}

		sol := solve(t, m)
		if sol.Status != fd.StatusOptimal || sol.Objective != 1 {
			t.Fatalf("order %v: status %s objective %d, want the optional interval present", perm, sol.Status, sol.Objective)
		}
		types := []int{perm[0], perm[1], perm[2], 3}
		for k := range order {
			wantNext, wantPrev := last, first
			if k+1 < len(order) {
				wantNext = types[k+1]
			}
			if k > 0 {
				wantPrev = types[k-1]
			}
			if got, _ := sol.Value(next[k]); got != wantNext {
				t.Fatalf("order %v: type after position %d = %d, want %d", perm, k, got, wantNext)
			}
			if got, _ := sol.Value(prev[k]); got != wantPrev {
				t.Fatalf("order %v: type before position %d = %d, want %d", perm, k, got, wantPrev)
			}
		}
		if got, _ := sol.Value(rank); got != 3 {
			t.Fatalf("order %v: rank of extra = %d, want 3", perm, got)
		}
	}
}

func TestSeqNoOverlapDirectTransitions(t *testing.T) {
	// Going 0 -> 2 costs more than 0 -> 1 -> 2.
	setup := [][]int{{0, 1, 10}, {10, 0, 1}, {10, 10, 0}}
	cases := []struct {
		name     string
		direct   bool
		makespan int
	}{
		{"consecutive only", true, 8},
		{"every ordered pair", false, 14},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			m := NewModel()
			ivs, err := m.NewIntervalArray(3, "op", WithFixedSize(2), WithStart(0, 30))
			if err != nil {
				t.Fatalf("NewIntervalArray: %v", err)
			}
			seq, err := m.NewSequence(ivs, []int{0, 1, 2}, "press")
			if err != nil {
				t.Fatalf("NewSequence: %v", err)
			}
			if err := m.AddCompiled(m.SeqNoOverlap(seq, setup, tc.direct)); err != nil {
				t.Fatalf("SeqNoOverlap: %v", err)
			}
			mustRequire(t, m.Require(m.EndBeforeStart(ivs[0], ivs[1], 0)))
			mustRequire(t, m.Require(m.EndBeforeStart(ivs[1], ivs[2], 0)))
			if err := m.Minimize(m.Makespan(ivs)); err != nil {
				t.Fatalf("Minimize: %v", err)
			}
			sol := solve(t, m)
			if sol.Status != fd.StatusOptimal {
				t.Fatalf("status %s", sol.Status)
			}
			if sol.Objective != tc.makespan {
				t.Fatalf("makespan %d, want %d", sol.Objective, tc.makespan)
			}
		})
	}
}
