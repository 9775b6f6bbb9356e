package fd

// monitor.go: monitoring and statistics for the solver

import (
	"fmt"
	"sync"
	"time"
)

// SolverStats holds statistics about a solving process.
type SolverStats struct {
	// Search statistics
	NodesExplored  int           // Number of search nodes explored
	Backtracks     int           // Number of exhausted choice points
	SolutionsFound int           // Number of solutions found
	SearchTime     time.Duration // Time from monitor creation to FinishSearch
	MaxDepth       int           // Maximum search depth reached

	// Propagation statistics
	PropagationCount int           // Number of fixed-point runs
	PropagationTime  time.Duration // Time spent in propagation
}

// SolverMonitor collects statistics while a solver runs.
type SolverMonitor struct {
	mu        sync.Mutex
	stats     SolverStats
	startTime time.Time
	propStart time.Time
}

// NewSolverMonitor creates a monitor; its clock starts now.
func NewSolverMonitor() *SolverMonitor {
	return &SolverMonitor{startTime: time.Now()}
}

// GetStats returns a copy of the current statistics.
func (m *SolverMonitor) GetStats() *SolverStats {
	m.mu.Lock()
	defer m.mu.Unlock()
	stats := m.stats
	return &stats
}

// StartPropagation marks the beginning of a propagation run.
func (m *SolverMonitor) StartPropagation() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.propStart = time.Now()
}

// EndPropagation marks the end of a propagation run.
func (m *SolverMonitor) EndPropagation() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.propStart.IsZero() {
		m.stats.PropagationTime += time.Since(m.propStart)
		m.stats.PropagationCount++
		m.propStart = time.Time{}
	}
}

// RecordBacktrack records an exhausted choice point.
func (m *SolverMonitor) RecordBacktrack() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stats.Backtracks++
}

// RecordNode records exploring a search node.
func (m *SolverMonitor) RecordNode() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stats.NodesExplored++
}

// RecordSolution records finding a solution.
func (m *SolverMonitor) RecordSolution() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stats.SolutionsFound++
}

// RecordDepth records the current search depth.
func (m *SolverMonitor) RecordDepth(depth int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if depth > m.stats.MaxDepth {
		m.stats.MaxDepth = depth
	}
}

// FinishSearch marks the end of the search process.
func (m *SolverMonitor) FinishSearch() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stats.SearchTime = time.Since(m.startTime)
}

// String returns a formatted representation of the statistics.
func (s *SolverStats) String() string {
	return fmt.Sprintf(
		"Solver Statistics:\n"+
			"  Search: %d nodes, %d backtracks, %d solutions, %v time, max depth %d\n"+
			"  Propagation: %d runs, %v time",
		s.NodesExplored, s.Backtracks, s.SolutionsFound, s.SearchTime, s.MaxDepth,
		s.PropagationCount, s.PropagationTime,
	)
}
