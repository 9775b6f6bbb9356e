package scheduling

import (
	"errors"
	"testing"

	"github.com/gitrdm/gosched/pkg/fd"
)

func TestElementMatrixVirtualColumns(t *testing.T) {
	em, err := NewElementMatrix([][]int{{1, 2}, {3, 4}}, Scalar(0), PerRow(7, 8))
	if err != nil {
		t.Fatalf("NewElementMatrix: %v", err)
	}
	if em.LastType() != 2 || em.AbsentType() != 3 || em.TotalCols() != 4 {
		t.Fatalf("virtual columns at %d/%d of %d", em.LastType(), em.AbsentType(), em.TotalCols())
	}
	for _, c := range []struct{ row, col, want int }{
		{0, 1, 2},
		{1, 0, 3},
		{0, em.LastType(), 0},
		{1, em.LastType(), 0},
		{0, em.AbsentType(), 7},
		{1, em.AbsentType(), 8},
	} {
		got, err := em.GetValue(c.row, c.col)
		if err != nil || got != c.want {
			t.Fatalf("(%d,%d) = %d, %v; want %d", c.row, c.col, got, err, c.want)
		}
	}
	n, err := em.At(fd.Const(1), fd.Const(em.AbsentType()))
	if err != nil || !n.IsConst() || n.Value() != 8 {
		t.Fatalf("constant lookup = %s, %v", n, err)
	}
	if _, err := em.At(fd.Const(0), fd.Const(4)); !errors.Is(err, ErrValue) {
		t.Fatalf("column outside the matrix: want ErrValue, got %v", err)
	}
	if _, err := NewElementMatrix([][]int{{1}, {2}}, PerRow(1), Scalar(0)); !errors.Is(err, ErrValue) {
		t.Fatalf("short per-row values: want ErrValue, got %v", err)
	}
}

func TestElementMatrixWithSequence(t *testing.T) {
	m := NewModel()
	a := mustInterval(t, m, WithFixedSize(1), WithStart(0, 0))
	b := mustInterval(t, m, WithFixedSize(1), WithStart(3, 3))
	seq, err := m.NewSequence([]Interval{a, b}, []int{0, 1}, "")
	if err != nil {
		t.Fatalf("NewSequence: %v", err)
	}
	em, err := NewElementMatrix([][]int{{0, 10}, {20, 0}}, Scalar(-1), Scalar(-2))
	if err != nil {
		t.Fatalf("NewElementMatrix: %v", err)
	}
	next, err := m.TypeOfNext(seq, a, em.LastType(), em.AbsentType())
	if err != nil {
		t.Fatalf("TypeOfNext: %v", err)
	}
	cost, err := em.At(fd.Const(0), next)
	if err != nil {
		t.Fatalf("At: %v", err)
	}
	sol := solve(t, m)
	if got, _ := sol.Value(cost); got != 10 {
		t.Fatalf("setup cost %d, want 10", got)
	}
}

func TestElementArray(t *testing.T) {
	m := NewModel()
	iv := mustInterval(t, m, WithFixedSize(1), WithStart(0, 3))
	start, err := m.Compile(StartOf(iv, 0))
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	n, err := Element([]int{9, 7, 5, 3}, start)
	if err != nil {
		t.Fatalf("Element: %v", err)
	}
	if err := m.Add(fd.Eq(n, fd.Const(5))); err != nil {
		t.Fatalf("Add: %v", err)
	}
	sol := solve(t, m)
	v, _ := sol.IntervalValue(iv)
	if v.Start != 2 {
		t.Fatalf("start %d, want 2", v.Start)
	}
	if _, err := Element(nil, start); !errors.Is(err, ErrValue) {
		t.Fatalf("empty array: want ErrValue, got %v", err)
	}
}

func TestExpressionsCompile(t *testing.T) {
	m := NewModel()
	a := mustInterval(t, m, WithFixedSize(4), WithStart(0, 0))
	b := mustInterval(t, m, WithFixedSize(4), WithStart(2, 2))
	c := mustInterval(t, m, WithFixedSize(4), Optional())

	ov := OverlapLength(a, b, -1)
	if got := ov.Intervals(); len(got) != 2 {
		t.Fatalf("intervals %v", got)
	}
	total := ov.Add(LengthOf(c, 0)).Add(PresenceOfExpr(c))
	if err := m.AddExpr(total); !errors.Is(err, ErrValue) {
		t.Fatalf("non-comparison: want ErrValue, got %v", err)
	}
	if err := m.AddExpr(PresenceOfExpr(c).Eq(Lit(0))); err != nil {
		t.Fatalf("AddExpr: %v", err)
	}
	n, err := m.Compile(total)
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	if _, err := ExprMaxOf(Lit(1)); !errors.Is(err, ErrValue) {
		t.Fatalf("single-arg max: want ErrValue, got %v", err)
	}
	mx, err := ExprMaxOf(EndOf(a, 0), EndOf(b, 0), EndOf(c, 100))
	if err != nil {
		t.Fatalf("ExprMaxOf: %v", err)
	}
	end, err := m.Compile(mx)
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}

	sol := solve(t, m)
	if got, _ := sol.Value(n); got != 2 {
		t.Fatalf("overlap + absent length + presence = %d, want 2", got)
	}
	if got, _ := sol.Value(end); got != 100 {
		t.Fatalf("max end = %d, want the absent value 100", got)
	}
}
