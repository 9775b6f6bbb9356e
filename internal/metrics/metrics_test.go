package metrics

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/gitrdm/gosched/pkg/fd"
	"github.com/gitrdm/gosched/pkg/scheduling"
)

func TestObserveSolve(t *testing.T) {
	r := NewRecorder()
	sol := &scheduling.Solution{
		Status:  fd.StatusOptimal,
		Elapsed: 20 * time.Millisecond,
		Stats:   &fd.SolverStats{NodesExplored: 42},
	}
	st := scheduling.ModelStatistics{
		SolverVariables: 10,
		Compile:         scheduling.CompileStats{Native: 2, Decomposed: 1},
	}
	r.ObserveSolve("jobshop", sol, st)
	r.ObserveSolve("jobshop", nil, scheduling.ModelStatistics{})

	if got := testutil.ToFloat64(r.solves.WithLabelValues("jobshop", "OPTIMAL")); got != 1 {
		t.Fatalf("optimal solves = %v, want 1", got)
	}
	if got := testutil.ToFloat64(r.solves.WithLabelValues("jobshop", "ERROR")); got != 1 {
		t.Fatalf("error solves = %v, want 1", got)
	}
	if got := testutil.ToFloat64(r.nodes); got != 42 {
		t.Fatalf("nodes = %v, want 42", got)
	}
	if got := testutil.ToFloat64(r.compiled.WithLabelValues("native")); got != 2 {
		t.Fatalf("native = %v, want 2", got)
	}
}

func TestLimitedWithoutSolution(t *testing.T) {
	r := NewRecorder()
	r.ObserveSolve("rcpsp", &scheduling.Solution{Status: fd.StatusUnknown, Limited: true}, scheduling.ModelStatistics{})
	if got := testutil.ToFloat64(r.solves.WithLabelValues("rcpsp", "LIMIT")); got != 1 {
		t.Fatalf("limit solves = %v, want 1", got)
	}
}

func TestInFlight(t *testing.T) {
	r := NewRecorder()
	done := r.Start()
	if got := testutil.ToFloat64(r.inFlight); got != 1 {
		t.Fatalf("in flight = %v, want 1", got)
	}
	done()
	if got := testutil.ToFloat64(r.inFlight); got != 0 {
		t.Fatalf("in flight = %v, want 0", got)
	}
}

func TestWriteTextfile(t *testing.T) {
	r := NewRecorder()
	r.ObserveSolve("jobshop", &scheduling.Solution{Status: fd.StatusSatisfiable}, scheduling.ModelStatistics{})
	path := filepath.Join(t.TempDir(), "gosched.prom")
	if err := r.WriteTextfile(path); err != nil {
		t.Fatalf("WriteTextfile: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if !strings.Contains(string(data), `gosched_solves_total{kind="jobshop",status="SATISFIABLE"} 1`) {
		t.Fatalf("textfile missing solve counter:\n%s", data)
	}
}
