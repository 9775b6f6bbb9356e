// Package instance reads scheduling problem instances from YAML and builds
// them into scheduling models.
//
// Supported kinds:
//
//	jobshop           jobs of ordered operations on dedicated machines
//	flexible-jobshop  operations choose one of several machine modes
//	openshop          operations of a job run in any order
//	rcpsp             activities with precedences and renewable resources
//	routing           visits with time windows served by several vehicles
package instance

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Kind names an instance family.
type Kind string

const (
	KindJobShop         Kind = "jobshop"
	KindFlexibleJobShop Kind = "flexible-jobshop"
	KindOpenShop        Kind = "openshop"
	KindRCPSP           Kind = "rcpsp"
	KindRouting         Kind = "routing"
)

// Objective names what Build minimizes.
type Objective string

const (
	ObjectiveMakespan Objective = "makespan"
	ObjectiveDistance Objective = "distance"
	ObjectiveNone     Objective = "none"
)

// Instance is the YAML document of one problem.
type Instance struct {
	Name      string    `yaml:"name"`
	Kind      Kind      `yaml:"kind"`
	Horizon   int       `yaml:"horizon,omitempty"`
	Objective Objective `yaml:"objective,omitempty"`

	// Shop kinds.
	Jobs []Job `yaml:"jobs,omitempty"`

	// RCPSP.
	Resources  []int      `yaml:"resources,omitempty"`
	Activities []Activity `yaml:"activities,omitempty"`

	// Routing. Travel is indexed by location, the depot being location 0
	// and visit i location i+1.
	Vehicles int     `yaml:"vehicles,omitempty"`
	Capacity int     `yaml:"capacity,omitempty"`
	Visits   []Visit `yaml:"visits,omitempty"`
	Travel   [][]int `yaml:"travel,omitempty"`
}

// Job is an ordered list of operations.
type Job struct {
	Name       string      `yaml:"name,omitempty"`
	Release    int         `yaml:"release,omitempty"`
	Due        int         `yaml:"due,omitempty"`
	Operations []Operation `yaml:"operations"`
}

// Operation runs on one machine. Flexible operations list Modes instead.
type Operation struct {
	Machine  int    `yaml:"machine"`
	Duration int    `yaml:"duration"`
	Modes    []Mode `yaml:"modes,omitempty"`
}

// Mode is one machine choice of a flexible operation.
type Mode struct {
	Machine  int `yaml:"machine"`
	Duration int `yaml:"duration"`
}

// Activity is an RCPSP task.
type Activity struct {
	Name       string `yaml:"name,omitempty"`
	Duration   int    `yaml:"duration"`
	Demands    []int  `yaml:"demands,omitempty"`
	Successors []int  `yaml:"successors,omitempty"`
}

// Visit is a routing customer.
type Visit struct {
	Name     string `yaml:"name,omitempty"`
	Service  int    `yaml:"service"`
	Earliest int    `yaml:"earliest"`
	Latest   int    `yaml:"latest"`
	Demand   int    `yaml:"demand,omitempty"`
}

// Load reads and validates the instance at path. A missing name defaults
// to the file name without extension.
func Load(path string) (*Instance, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	inst, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if inst.Name == "" {
		inst.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	return inst, nil
}

// Parse decodes and validates one instance. Unknown fields are rejected.
func Parse(r io.Reader) (*Instance, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	var inst Instance
	if err := dec.Decode(&inst); err != nil {
		if err == io.EOF {
			return nil, fmt.Errorf("empty instance document")
		}
		return nil, fmt.Errorf("decode instance: %w", err)
	}
	if err := inst.Validate(); err != nil {
		return nil, err
	}
	return &inst, nil
}

// Validate checks the instance for structural errors.
func (in *Instance) Validate() error {
	if in.Horizon < 0 {
		return fmt.Errorf("horizon must be non-negative, got %d", in.Horizon)
	}
	switch in.Objective {
	case "", ObjectiveMakespan, ObjectiveNone:
	case ObjectiveDistance:
		if in.Kind != KindRouting {
			return fmt.Errorf("objective %q only applies to routing instances", in.Objective)
		}
	default:
		return fmt.Errorf("unknown objective %q", in.Objective)
	}

	switch in.Kind {
	case KindJobShop, KindOpenShop:
		return in.validateShop(false)
	case KindFlexibleJobShop:
		return in.validateShop(true)
	case KindRCPSP:
		return in.validateRCPSP()
	case KindRouting:
		return in.validateRouting()
	case "":
		return fmt.Errorf("instance kind is required")
	}
	return fmt.Errorf("unknown instance kind %q", in.Kind)
}

func (in *Instance) validateShop(flexible bool) error {
	if len(in.Jobs) == 0 {
		return fmt.Errorf("%s: at least one job is required", in.Kind)
	}
	for j, job := range in.Jobs {
		if len(job.Operations) == 0 {
			return fmt.Errorf("job %d has no operations", j)
		}
		if job.Release < 0 || job.Due < 0 {
			return fmt.Errorf("job %d: release and due must be non-negative", j)
		}
		for k, op := range job.Operations {
			if len(op.Modes) > 0 {
				if !flexible {
					return fmt.Errorf("job %d operation %d: modes need kind %s", j, k, KindFlexibleJobShop)
				}
				for _, md := range op.Modes {
					if md.Machine < 0 || md.Duration < 0 {
						return fmt.Errorf("job %d operation %d: invalid mode %+v", j, k, md)
					}
				}
				continue
			}
			if op.Machine < 0 || op.Duration < 0 {
				return fmt.Errorf("job %d operation %d: machine and duration must be non-negative", j, k)
			}
		}
	}
	return nil
}

func (in *Instance) validateRCPSP() error {
	if len(in.Activities) == 0 {
		return fmt.Errorf("rcpsp: at least one activity is required")
	}
	for r, c := range in.Resources {
		if c < 0 {
			return fmt.Errorf("resource %d has negative capacity %d", r, c)
		}
	}
	for i, a := range in.Activities {
		if a.Duration < 0 {
			return fmt.Errorf("activity %d has negative duration", i)
		}
		if len(a.Demands) > len(in.Resources) {
			return fmt.Errorf("activity %d lists %d demands for %d resources", i, len(a.Demands), len(in.Resources))
		}
		for r, d := range a.Demands {
			if d < 0 {
				return fmt.Errorf("activity %d: negative demand on resource %d", i, r)
			}
		}
		for _, s := range a.Successors {
			if s < 0 || s >= len(in.Activities) || s == i {
				return fmt.Errorf("activity %d: invalid successor %d", i, s)
			}
		}
	}
	return nil
}

func (in *Instance) validateRouting() error {
	if in.Vehicles < 1 {
		return fmt.Errorf("routing: at least one vehicle is required")
	}
	if len(in.Visits) == 0 {
		return fmt.Errorf("routing: at least one visit is required")
	}
	n := len(in.Visits) + 1
	if len(in.Travel) != n {
		return fmt.Errorf("routing: travel matrix has %d rows, want %d (depot plus visits)", len(in.Travel), n)
	}
	for i, row := range in.Travel {
		if len(row) != n {
			return fmt.Errorf("routing: travel row %d has %d columns, want %d", i, len(row), n)
		}
		for _, d := range row {
			if d < 0 {
				return fmt.Errorf("routing: negative travel time in row %d", i)
			}
		}
	}
	for i, v := range in.Visits {
		if v.Service < 0 || v.Demand < 0 {
			return fmt.Errorf("visit %d: service and demand must be non-negative", i)
		}
		if v.Earliest < 0 || v.Latest < v.Earliest {
			return fmt.Errorf("visit %d: window [%d, %d] is empty", i, v.Earliest, v.Latest)
		}
	}
	if in.Capacity < 0 {
		return fmt.Errorf("routing: negative vehicle capacity")
	}
	return nil
}

// objective returns the objective to build, applying the kind default.
func (in *Instance) objective() Objective {
	if in.Objective != "" {
		return in.Objective
	}
	if in.Kind == KindRouting {
		return ObjectiveDistance
	}
	return ObjectiveMakespan
}
