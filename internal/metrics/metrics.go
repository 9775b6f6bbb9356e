// Package metrics exports solver activity as Prometheus metrics.
//
// Each Recorder owns a private registry, so batch runs and tests never
// collide on the default registerer. The command writes the registry to a
// node_exporter textfile when --metrics-out is set.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/gitrdm/gosched/pkg/scheduling"
)

// Recorder collects solve metrics.
type Recorder struct {
	reg *prometheus.Registry

	solves    *prometheus.CounterVec
	duration  *prometheus.HistogramVec
	nodes     prometheus.Counter
	compiled  *prometheus.CounterVec
	variables prometheus.Histogram
	inFlight  prometheus.Gauge
}

// NewRecorder registers the gosched metrics on a fresh registry.
func NewRecorder() *Recorder {
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)
	return &Recorder{
		reg: reg,
		solves: f.NewCounterVec(prometheus.CounterOpts{
			Name: "gosched_solves_total",
			Help: "Solver runs by instance kind and final status",
		}, []string{"kind", "status"}),
		duration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "gosched_solve_duration_seconds",
			Help:    "Wall time of a solver run",
			Buckets: prometheus.ExponentialBuckets(0.001, 4, 10),
		}, []string{"kind"}),
		nodes: f.NewCounter(prometheus.CounterOpts{
			Name: "gosched_search_nodes_total",
			Help: "Search nodes explored across all runs",
		}),
		compiled: f.NewCounterVec(prometheus.CounterOpts{
			Name: "gosched_compiled_constraints_total",
			Help: "Resource constraints by compile path",
		}, []string{"path"}),
		variables: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "gosched_model_variables",
			Help:    "Solver variables per compiled model",
			Buckets: prometheus.ExponentialBuckets(8, 4, 8),
		}),
		inFlight: f.NewGauge(prometheus.GaugeOpts{
			Name: "gosched_solves_in_flight",
			Help: "Solver runs currently executing",
		}),
	}
}

// Registry exposes the underlying registry for gathering.
func (r *Recorder) Registry() *prometheus.Registry { return r.reg }

// Start marks a run as in flight. The returned function ends it.
func (r *Recorder) Start() func() {
	r.inFlight.Inc()
	return r.inFlight.Dec
}

// ObserveSolve records one finished run. A nil solution counts as an
// error.
func (r *Recorder) ObserveSolve(kind string, sol *scheduling.Solution, st scheduling.ModelStatistics) {
	if sol == nil {
		r.solves.WithLabelValues(kind, "ERROR").Inc()
		return
	}
	status := sol.Status.String()
	if sol.Limited && !sol.HasSolution() {
		status = "LIMIT"
	}
	r.solves.WithLabelValues(kind, status).Inc()
	r.duration.WithLabelValues(kind).Observe(sol.Elapsed.Seconds())
	if sol.Stats != nil {
		r.nodes.Add(float64(sol.Stats.NodesExplored))
	}
	r.compiled.WithLabelValues(scheduling.PathNative.String()).Add(float64(st.Compile.Native))
	r.compiled.WithLabelValues(scheduling.PathDecomposed.String()).Add(float64(st.Compile.Decomposed))
	r.compiled.WithLabelValues(scheduling.PathEmpty.String()).Add(float64(st.Compile.Empty))
	r.variables.Observe(float64(st.SolverVariables))
}

// WriteTextfile writes every metric to path in the text exposition format.
func (r *Recorder) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, r.reg)
}
