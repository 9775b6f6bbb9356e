package cli

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/gitrdm/gosched/pkg/fd"
	"github.com/gitrdm/gosched/pkg/scheduling"
)

// Config holds solver settings read from --config. Command-line flags
// override the file.
type Config struct {
	Timeout            time.Duration `yaml:"timeout"`
	NodeLimit          int           `yaml:"node_limit"`
	Workers            int           `yaml:"workers"`
	Heuristic          string        `yaml:"heuristic"`
	ValueOrder         string        `yaml:"value_order"`
	DecompositionLimit int           `yaml:"decomposition_limit"`
	Store              bool          `yaml:"store"`
}

// DefaultConfig returns the settings used without a config file.
func DefaultConfig() Config {
	return Config{
		Timeout:    30 * time.Second,
		Heuristic:  "dom",
		ValueOrder: "min",
		Store:      true,
	}
}

// LoadConfig reads path over the defaults. An empty path returns the
// defaults.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	if _, err := cfg.solverConfig(); err != nil {
		return cfg, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

var variableHeuristics = map[string]fd.VariableOrderingHeuristic{
	"dom":          fd.HeuristicDom,
	"domdeg":       fd.HeuristicDomDeg,
	"lex":          fd.HeuristicLex,
	"smallest-min": fd.HeuristicSmallestMin,
}

var valueOrders = map[string]fd.ValueOrderingHeuristic{
	"min": fd.ValueOrderMin,
	"max": fd.ValueOrderMax,
}

func (c Config) solverConfig() (*fd.SolverConfig, error) {
	sc := fd.DefaultSolverConfig()
	if c.Heuristic != "" {
		h, ok := variableHeuristics[strings.ToLower(c.Heuristic)]
		if !ok {
			return nil, fmt.Errorf("unknown heuristic %q", c.Heuristic)
		}
		sc.VariableHeuristic = h
	}
	if c.ValueOrder != "" {
		v, ok := valueOrders[strings.ToLower(c.ValueOrder)]
		if !ok {
			return nil, fmt.Errorf("unknown value order %q", c.ValueOrder)
		}
		sc.ValueHeuristic = v
	}
	return sc, nil
}

// modelOptions returns the model settings derived from c.
func (c Config) modelOptions() ([]scheduling.ModelOption, error) {
	sc, err := c.solverConfig()
	if err != nil {
		return nil, err
	}
	opts := []scheduling.ModelOption{scheduling.WithSolverConfig(sc)}
	if c.DecompositionLimit > 0 {
		opts = append(opts, scheduling.WithDecompositionLimit(c.DecompositionLimit))
	}
	return opts, nil
}

// solveOptions returns the search limits derived from c.
func (c Config) solveOptions() []fd.OptimizeOption {
	var opts []fd.OptimizeOption
	if c.Timeout > 0 {
		opts = append(opts, fd.WithTimeLimit(c.Timeout))
	}
	if c.NodeLimit > 0 {
		opts = append(opts, fd.WithNodeLimit(c.NodeLimit))
	}
	return opts
}
