package instance

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gitrdm/gosched/pkg/fd"
	"github.com/gitrdm/gosched/pkg/scheduling"
)

const twoJobs = `
name: tiny
kind: jobshop
jobs:
  - operations:
      - {machine: 0, duration: 3}
      - {machine: 1, duration: 2}
  - operations:
      - {machine: 1, duration: 2}
      - {machine: 0, duration: 4}
`

func parse(t *testing.T, doc string) *Instance {
	t.Helper()
	in, err := Parse(strings.NewReader(doc))
	require.NoError(t, err)
	return in
}

func solveBuilt(t *testing.T, in *Instance) (*Built, *scheduling.Solution) {
	t.Helper()
	b, err := Build(in)
	require.NoError(t, err)
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()
	sol, err := b.Model.Solve(ctx)
	require.NoError(t, err)
	return b, sol
}

func TestParseJobShop(t *testing.T) {
	in := parse(t, twoJobs)
	assert.Equal(t, "tiny", in.Name)
	assert.Equal(t, KindJobShop, in.Kind)
	require.Len(t, in.Jobs, 2)
	assert.Equal(t, Operation{Machine: 0, Duration: 4}, in.Jobs[1].Operations[1])
	assert.Equal(t, ObjectiveMakespan, in.objective())
}

func TestParseRejects(t *testing.T) {
	cases := map[string]string{
		"empty":          ``,
		"no kind":        "name: x\n",
		"unknown kind":   "kind: flowshop\n",
		"unknown field":  "kind: jobshop\nmachines: 3\n",
		"no jobs":        "kind: jobshop\n",
		"modes in plain": "kind: jobshop\njobs:\n  - operations:\n      - modes: [{machine: 0, duration: 1}]\n",
		"bad successor":  "kind: rcpsp\nresources: [1]\nactivities:\n  - {duration: 1, successors: [0]}\n",
		"demand count":   "kind: rcpsp\nresources: [1]\nactivities:\n  - {duration: 1, demands: [1, 1]}\n",
		"travel shape":   "kind: routing\nvehicles: 1\nvisits:\n  - {service: 1, earliest: 0, latest: 5}\ntravel: [[0]]\n",
		"empty window":   "kind: routing\nvehicles: 1\nvisits:\n  - {service: 1, earliest: 5, latest: 2}\ntravel: [[0, 1], [1, 0]]\n",
		"distance shop":  "kind: jobshop\nobjective: distance\njobs:\n  - operations: [{machine: 0, duration: 1}]\n",
	}
	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Parse(strings.NewReader(doc))
			assert.Error(t, err)
		})
	}
}

func TestLoadDefaultsName(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ft02.yaml")
	require.NoError(t, os.WriteFile(path, []byte(strings.Replace(twoJobs, "name: tiny", "", 1)), 0o644))
	in, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "ft02", in.Name)
}

func TestBuildJobShop(t *testing.T) {
	b, sol := solveBuilt(t, parse(t, twoJobs))
	require.Equal(t, fd.StatusOptimal, sol.Status)
	assert.Equal(t, 7, sol.Objective)
	assert.Len(t, b.Tasks, 4)

	st := b.Model.Statistics()
	assert.Equal(t, 2, st.Sequences)
	assert.Zero(t, st.CumulFunctions)
}

func TestBuildOpenShop(t *testing.T) {
	in := parse(t, strings.Replace(twoJobs, "kind: jobshop", "kind: openshop", 1))
	b, sol := solveBuilt(t, in)
	require.Equal(t, fd.StatusOptimal, sol.Status)
	// Machine 0 carries 7 units of work, which stays the bound.
	assert.Equal(t, 7, sol.Objective)
	assert.Equal(t, 4, b.Model.Statistics().Sequences)
}

func TestBuildFlexibleJobShop(t *testing.T) {
	in := parse(t, `
kind: flexible-jobshop
jobs:
  - operations:
      - modes: [{machine: 0, duration: 3}, {machine: 1, duration: 5}]
  - operations:
      - modes: [{machine: 0, duration: 3}, {machine: 1, duration: 5}]
`)
	b, sol := solveBuilt(t, in)
	require.Equal(t, fd.StatusOptimal, sol.Status)
	assert.Equal(t, 5, sol.Objective)
	assert.Len(t, b.Tasks, 2)
	// Two mains plus four mode intervals, of which two are present.
	assert.Len(t, sol.IntervalValues(), 4)
}

func TestBuildRCPSP(t *testing.T) {
	in := parse(t, `
kind: rcpsp
resources: [4, 3]
activities:
  - {duration: 3, demands: [2, 1], successors: [2]}
  - {duration: 2, demands: [1, 2], successors: [3]}
  - {duration: 5, demands: [3, 0], successors: [4]}
  - {duration: 4, demands: [2, 1]}
  - {duration: 2, demands: [1, 3]}
`)
	b, sol := solveBuilt(t, in)
	require.Equal(t, fd.StatusOptimal, sol.Status)
	assert.Equal(t, 13, sol.Objective)
	v, ok := sol.IntervalValue(b.Tasks[2])
	require.True(t, ok)
	assert.Equal(t, "task_2", v.Name)
	assert.Equal(t, 2, b.Model.Statistics().CumulFunctions)
	assert.Equal(t, 2, b.Model.CompileStats().Native)
}

const routing = `
kind: routing
vehicles: 2
visits:
  - {name: a, service: 1, earliest: 0, latest: 50, demand: 2}
  - {name: b, service: 1, earliest: 0, latest: 50, demand: 2}
travel:
  - [0, 2, 3]
  - [2, 0, 1]
  - [3, 1, 0]
`

func TestBuildRoutingDistance(t *testing.T) {
	b, sol := solveBuilt(t, parse(t, routing))
	require.True(t, sol.HasSolution())
	require.Equal(t, fd.StatusOptimal, sol.Status)
	// One vehicle serves both visits: 2 + 1 + 3 either way round.
	assert.Equal(t, 6, sol.Objective)
	assert.Len(t, b.Tasks, 2)
}

func TestBuildRoutingCapacity(t *testing.T) {
	_, sol := solveBuilt(t, parse(t, routing+"capacity: 3\n"))
	require.Equal(t, fd.StatusOptimal, sol.Status)
	// Each vehicle can carry one visit: 2+2 and 3+3.
	assert.Equal(t, 10, sol.Objective)
}

func TestBuildRoutingShortcutTravel(t *testing.T) {
	// Going to b through a is shorter than the direct leg, and b's window
	// closes before the direct leg could reach it.
	in := parse(t, `
kind: routing
vehicles: 1
visits:
  - {name: a, service: 1, earliest: 0, latest: 20}
  - {name: b, service: 1, earliest: 0, latest: 5}
travel:
  - [0, 1, 10]
  - [1, 0, 1]
  - [10, 1, 0]
`)
	b, sol := solveBuilt(t, in)
	require.Equal(t, fd.StatusOptimal, sol.Status)
	assert.Equal(t, 12, sol.Objective)
	va, ok := sol.IntervalValue(b.Tasks[0])
	require.True(t, ok)
	vb, ok := sol.IntervalValue(b.Tasks[1])
	require.True(t, ok)
	assert.Less(t, va.Start, vb.Start)
	assert.LessOrEqual(t, vb.Start, 5)
}

func TestBuildHorizon(t *testing.T) {
	in := parse(t, twoJobs)
	in.Horizon = 2
	_, sol := solveBuilt(t, in)
	assert.Equal(t, fd.StatusNoSolution, sol.Status)
}
