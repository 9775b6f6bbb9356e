package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const jobshopDoc = `
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

const rcpspDoc = `
name: pair
kind: rcpsp
resources: [1]
activities:
  - {duration: 2, demands: [1]}
  - {duration: 3, demands: [1]}
`

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func runCmd(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := NewRootCmd()
	var buf bytes.Buffer
	root.SetOut(&buf)
	root.SetErr(&bytes.Buffer{})
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return buf.String(), err
}

func TestVersionCommand(t *testing.T) {
	out, err := runCmd(t, "version")
	require.NoError(t, err)
	assert.Equal(t, "gosched dev\n", out)
}

func TestSolveCommand_JSON(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "shop/tiny.yaml", jobshopDoc)
	writeFile(t, dir, "rcpsp/pair.yml", rcpspDoc)
	db := filepath.Join(dir, "runs.db")
	prom := filepath.Join(dir, "gosched.prom")

	out, err := runCmd(t, "--db", db, "--metrics-out", prom, "solve", "--json", dir)
	require.NoError(t, err)

	var results []solveResult
	require.NoError(t, json.Unmarshal([]byte(out), &results))
	require.Len(t, results, 2)
	// Sorted by path: rcpsp/ before shop/.
	assert.Equal(t, "pair", results[0].Instance)
	assert.Equal(t, "OPTIMAL", results[0].Status)
	assert.Equal(t, 5, results[0].Objective)
	assert.Equal(t, "tiny", results[1].Instance)
	assert.Equal(t, 7, results[1].Objective)
	assert.Len(t, results[1].Intervals, 4)
	assert.NotEmpty(t, results[1].RunID)

	metricsText, err := os.ReadFile(prom)
	require.NoError(t, err)
	assert.Contains(t, string(metricsText), `gosched_solves_total{kind="jobshop",status="OPTIMAL"} 1`)

	out, err = runCmd(t, "--db", db, "runs", "--instance", "tiny")
	require.NoError(t, err)
	assert.Contains(t, out, results[1].RunID)

	out, err = runCmd(t, "--db", db, "runs", "best", "pair")
	require.NoError(t, err)
	assert.Contains(t, out, "Objective: 5")
}

func TestSolveCommand_Glob(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a/tiny.yaml", jobshopDoc)
	writeFile(t, dir, "b/pair.yaml", rcpspDoc)

	out, err := runCmd(t, "solve", "--no-store", "--show", filepath.Join(dir, "**", "tiny.yaml"))
	require.NoError(t, err)
	assert.Contains(t, out, "tiny")
	assert.NotContains(t, out, "pair")
	assert.Contains(t, out, "tiny_o0")
}

func TestSolveCommand_NoMatch(t *testing.T) {
	_, err := runCmd(t, "solve", "--no-store", filepath.Join(t.TempDir(), "*.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no instance files")
}

func TestSolveCommand_InvalidInstance(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "bad.yaml", "kind: jobshop\n")
	out, err := runCmd(t, "solve", "--no-store", path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "1 of 1 instances failed")
	assert.Contains(t, out, "ERROR")
}

func TestStatsCommand(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "tiny.yaml", jobshopDoc)
	out, err := runCmd(t, "stats", path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 2)
	fields := strings.Fields(lines[1])
	assert.Equal(t, []string{"tiny", "4", "0", "2", "0"}, fields[:5])
}

func TestRunsShowMissing(t *testing.T) {
	db := filepath.Join(t.TempDir(), "runs.db")
	_, err := runCmd(t, "--db", db, "runs", "show", "run_missing")
	require.ErrorIs(t, err, errNoRun)
}

func TestLoadConfig(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "solver.yaml", "timeout: 2s\nnode_limit: 500\nheuristic: lex\nvalue_order: max\nstore: false\n")
	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 2*time.Second, cfg.Timeout)
	assert.Equal(t, 500, cfg.NodeLimit)
	assert.False(t, cfg.Store)
	assert.Len(t, cfg.solveOptions(), 2)

	bad := writeFile(t, dir, "bad.yaml", "heuristic: random\n")
	_, err = LoadConfig(bad)
	assert.Error(t, err)

	def, err := LoadConfig("")
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), def)
}

func TestExpandPatternsDedupes(t *testing.T) {
	dir := t.TempDir()
	p := writeFile(t, dir, "tiny.yaml", jobshopDoc)
	paths, err := expandPatterns([]string{p, dir, filepath.Join(dir, "*.yaml")})
	require.NoError(t, err)
	assert.Equal(t, []string{p}, paths)
}

func TestWatchLoopDebounces(t *testing.T) {
	dir := t.TempDir()
	fsw, err := fsnotify.NewWatcher()
	require.NoError(t, err)
	defer fsw.Close()
	require.NoError(t, fsw.Add(dir))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	got := make(chan []string, 4)
	log := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
	go watchLoop(ctx, fsw, 50*time.Millisecond, log, func(paths []string) { got <- paths })

	path := writeFile(t, dir, "tiny.yaml", jobshopDoc)
	writeFile(t, dir, "notes.txt", "ignored")
	require.NoError(t, os.WriteFile(path, []byte(jobshopDoc+"\n"), 0o644))

	select {
	case paths := <-got:
		assert.Equal(t, []string{path}, paths)
	case <-ctx.Done():
		t.Fatal("no change reported")
	}
}
