package fd

import (
	"context"
	"testing"
	"time"
)

// A fixed high-demand task blocks overlapping starts for a second task
// when adding it would exceed capacity.
func TestCumulative_PruneStarts(t *testing.T) {
	model := NewModel()
	a := model.NewVariableWithName(NewDomainFromValues([]int{2}), "A")
	b := model.NewVariableWithName(NewRangeDomain(1, 4), "B")

	cum, err := NewCumulative([]Task{
		{Start: a, Length: Const(2), Height: 2},
		{Start: b, Length: Const(2), Height: 1},
	}, 2)
	if err != nil {
		t.Fatalf("NewCumulative error: %v", err)
	}
	model.AddConstraint(cum)

	solver := NewSolver(model)
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if _, err := solver.Solve(ctx, 0); err != nil {
		t.Fatalf("Solve error: %v", err)
	}

	domB := solver.GetDomain(nil, b.ID())
	if !domB.Equal(NewDomainFromValues([]int{4})) {
		t.Fatalf("unexpected B domain: got %s, want {4}", domB)
	}
}

func TestCumulative_RejectsInvalidInput(t *testing.T) {
	model := NewModel()
	s := model.NewVariable(NewRangeDomain(0, 3))
	if _, err := NewCumulative(nil, 1); err == nil {
		t.Fatalf("empty task list should fail")
	}
	if _, err := NewCumulative([]Task{{Start: s, Length: Const(1), Height: -1}}, 1); err == nil {
		t.Fatalf("negative height should fail")
	}
	if _, err := NewCumulative([]Task{{Start: s, Length: Const(1), Height: 1}}, -1); err == nil {
		t.Fatalf("negative capacity should fail")
	}
	if _, err := NewCumulative([]Task{{Start: nil, Length: Const(1)}}, 1); err == nil {
		t.Fatalf("nil start should fail")
	}
}

func TestNoOverlap_OptionalTaskBecomesAbsent(t *testing.T) {
	model := NewModel()
	x := model.NewVariableWithName(NewRangeDomain(0, 1), "x")
	y := model.NewVariableWithName(NewRangeDomain(0, 1), "y")
	p := model.NewBoolVar("p")

	no, err := NewNoOverlap([]Task{
		{Start: x, Length: Const(3)},
		{Start: y, Length: Const(3), Presence: p},
	})
	if err != nil {
		t.Fatalf("NewNoOverlap: %v", err)
	}
	model.AddConstraint(no)

	sols, err := NewSolver(model).Solve(context.Background(), 0)
	if err != nil {
		t.Fatalf("Solve: %v", err)
	}
	if len(sols) != 4 {
		t.Fatalf("want 4 solutions, got %d", len(sols))
	}
	for _, s := range sols {
		if s[p.ID()] != 0 {
			t.Fatalf("overlapping task must be absent: %v", s)
		}
	}
}

func TestNoOverlap_SequencesThreeTasks(t *testing.T) {
	model := NewModel()
	lens := []int{3, 2, 4}
	tasks := make([]Task, 3)
	starts := make([]*FDVariable, 3)
	for i, l := range lens {
		starts[i] = model.NewVariable(NewRangeDomain(0, 9))
		tasks[i] = Task{Start: starts[i], Length: Const(l)}
	}
	no, err := NewNoOverlap(tasks)
	if err != nil {
		t.Fatalf("NewNoOverlap: %v", err)
	}
	model.AddConstraint(no)
	ends := make([]Node, 3)
	for i := range starts {
		ends[i] = Add(V(starts[i]), Const(lens[i]))
	}
	model.Minimize(Max(ends...))

	res, err := NewSolver(model).Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.Status != StatusOptimal || res.Objective != 9 {
		t.Fatalf("got %s makespan %d, want OPTIMAL 9", res.Status, res.Objective)
	}
}

func TestTable_RestrictsToTuples(t *testing.T) {
	model := NewModel()
	x := model.NewVariable(NewRangeDomain(0, 5))
	y := model.NewVariable(NewRangeDomain(0, 5))
	tab, err := NewTable([]*FDVariable{x, y}, [][]int{{0, 1}, {2, 3}, {4, 9}})
	if err != nil {
		t.Fatalf("NewTable: %v", err)
	}
	model.AddConstraint(tab)
	sols, err := NewSolver(model).Solve(context.Background(), 0)
	if err != nil {
		t.Fatalf("Solve: %v", err)
	}
	if len(sols) != 2 {
		t.Fatalf("want 2 supported tuples, got %v", sols)
	}
}

func TestAllDifferent_Permutations(t *testing.T) {
	model := NewModel()
	vars := make([]*FDVariable, 3)
	for i := range vars {
		vars[i] = model.NewVariable(NewRangeDomain(1, 3))
	}
	ad, err := NewAllDifferent(vars)
	if err != nil {
		t.Fatalf("NewAllDifferent: %v", err)
	}
	model.AddConstraint(ad)
	sols, err := NewSolver(model).Solve(context.Background(), 0)
	if err != nil {
		t.Fatalf("Solve: %v", err)
	}
	if len(sols) != 6 {
		t.Fatalf("want 3! = 6 permutations, got %d", len(sols))
	}
	for _, s := range sols {
		seen := map[int]bool{}
		for _, v := range vars {
			if seen[s[v.ID()]] {
				t.Fatalf("repeated value in %v", s)
			}
			seen[s[v.ID()]] = true
		}
	}
}
