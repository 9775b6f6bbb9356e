package instance

import (
	"fmt"
	"maps"
	"slices"

	"github.com/gitrdm/gosched/pkg/fd"
	"github.com/gitrdm/gosched/pkg/scheduling"
)

// Built is an instance compiled into a model.
type Built struct {
	Instance *Instance
	Model    *scheduling.Model
	// Tasks are the intervals reported to users, in instance order. Mode
	// and per-vehicle copies are left out.
	Tasks []scheduling.Interval
}

// Build compiles in into a new model. A positive Horizon in the instance
// is passed to the model ahead of opts.
func Build(in *Instance, opts ...scheduling.ModelOption) (*Built, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	if in.Horizon > 0 {
		opts = append([]scheduling.ModelOption{scheduling.WithHorizon(in.Horizon)}, opts...)
	}
	b := &Built{Instance: in, Model: scheduling.NewModel(opts...)}

	var err error
	switch in.Kind {
	case KindJobShop, KindOpenShop, KindFlexibleJobShop:
		err = b.shop()
	case KindRCPSP:
		err = b.rcpsp()
	case KindRouting:
		err = b.routing()
	}
	if err != nil {
		return nil, fmt.Errorf("build %s: %w", in.Name, err)
	}
	b.Model.Logger().Debug("instance built",
		"instance", in.Name,
		"kind", string(in.Kind),
		"tasks", len(b.Tasks),
	)
	return b, nil
}

func (b *Built) minimizeMakespan() error {
	if b.Instance.objective() != ObjectiveMakespan {
		return nil
	}
	return b.Model.Minimize(b.Model.Makespan(b.Tasks))
}

func jobName(job Job, j int) string {
	if job.Name != "" {
		return job.Name
	}
	return fmt.Sprintf("j%d", j)
}

func (b *Built) shop() error {
	m := b.Model
	in := b.Instance
	byMachine := map[int][]scheduling.Interval{}

	for j, job := range in.Jobs {
		name := jobName(job, j)
		ops := make([]scheduling.Interval, len(job.Operations))
		for k, op := range job.Operations {
			opName := fmt.Sprintf("%s_o%d", name, k)
			if len(op.Modes) == 0 {
				iv, err := m.NewInterval(scheduling.WithFixedSize(op.Duration), scheduling.WithName(opName))
				if err != nil {
					return err
				}
				ops[k] = iv
				byMachine[op.Machine] = append(byMachine[op.Machine], iv)
				continue
			}

			lo, hi := op.Modes[0].Duration, op.Modes[0].Duration
			for _, md := range op.Modes[1:] {
				lo, hi = min(lo, md.Duration), max(hi, md.Duration)
			}
			iv, err := m.NewInterval(scheduling.WithSize(lo, hi), scheduling.WithName(opName))
			if err != nil {
				return err
			}
			alts := make([]scheduling.Interval, len(op.Modes))
			for a, md := range op.Modes {
				alt, err := m.NewInterval(
					scheduling.WithFixedSize(md.Duration),
					scheduling.Optional(),
					scheduling.WithName(fmt.Sprintf("%s_m%d", opName, md.Machine)),
				)
				if err != nil {
					return err
				}
				alts[a] = alt
				byMachine[md.Machine] = append(byMachine[md.Machine], alt)
			}
			if err := m.Require(m.Alternative(iv, alts, 1)); err != nil {
				return err
			}
			ops[k] = iv
		}
		b.Tasks = append(b.Tasks, ops...)

		if in.Kind == KindOpenShop {
			seq, err := m.NewSequence(ops, nil, name)
			if err != nil {
				return err
			}
			if err := m.AddCompiled(m.SeqNoOverlap(seq, nil, false)); err != nil {
				return err
			}
		} else if len(ops) > 1 {
			if err := m.Require(m.Chain(ops, nil)); err != nil {
				return err
			}
		}
		if job.Release > 0 {
			if err := m.Require(m.ReleaseDate(ops[0], job.Release)); err != nil {
				return err
			}
		}
		if job.Due > 0 {
			for _, op := range ops {
				if err := m.Require(m.Deadline(op, job.Due)); err != nil {
					return err
				}
			}
		}
	}

	for _, mc := range slices.Sorted(maps.Keys(byMachine)) {
		seq, err := m.NewSequence(byMachine[mc], nil, fmt.Sprintf("machine%d", mc))
		if err != nil {
			return err
		}
		if err := m.AddCompiled(m.SeqNoOverlap(seq, nil, false)); err != nil {
			return err
		}
	}
	return b.minimizeMakespan()
}

func (b *Built) rcpsp() error {
	m := b.Model
	in := b.Instance

	for i, a := range in.Activities {
		name := a.Name
		if name == "" {
			name = fmt.Sprintf("task_%d", i)
		}
		iv, err := m.NewInterval(scheduling.WithFixedSize(a.Duration), scheduling.WithName(name))
		if err != nil {
			return err
		}
		b.Tasks = append(b.Tasks, iv)
	}
	for i, a := range in.Activities {
		for _, s := range a.Successors {
			if err := m.Require(m.EndBeforeStart(b.Tasks[i], b.Tasks[s], 0)); err != nil {
				return err
			}
		}
	}
	for r, capacity := range in.Resources {
		var pulses []scheduling.CumulExpr
		for i, a := range in.Activities {
			if r < len(a.Demands) && a.Demands[r] > 0 {
				pulses = append(pulses, scheduling.Pulse(b.Tasks[i], a.Demands[r]))
			}
		}
		if len(pulses) == 0 {
			continue
		}
		f, err := m.NewCumulFunction(fmt.Sprintf("resource%d", r), pulses...)
		if err != nil {
			return err
		}
		if err := m.AddCumul(f.LE(capacity)); err != nil {
			return err
		}
	}
	return b.minimizeMakespan()
}

// routing assigns each visit to one vehicle. Every vehicle has a route
// sequence whose first member is a zero-length depot departure fixed at
// time 0; sequence types are travel matrix locations.
func (b *Built) routing() error {
	m := b.Model
	in := b.Instance

	perVehicle := make([][]scheduling.Interval, in.Vehicles)
	types := make([]int, len(in.Visits)+1)
	for v := range perVehicle {
		depot, err := m.NewInterval(
			scheduling.WithStart(0, 0),
			scheduling.WithFixedSize(0),
			scheduling.WithName(fmt.Sprintf("v%d_depot", v)),
		)
		if err != nil {
			return err
		}
		perVehicle[v] = []scheduling.Interval{depot}
	}

	for c, visit := range in.Visits {
		name := visit.Name
		if name == "" {
			name = fmt.Sprintf("c%d", c+1)
		}
		window := []scheduling.IntervalOption{
			scheduling.WithStart(visit.Earliest, visit.Latest),
			scheduling.WithFixedSize(visit.Service),
		}
		main, err := m.NewInterval(append(window, scheduling.WithName(name))...)
		if err != nil {
			return err
		}
		b.Tasks = append(b.Tasks, main)
		types[c+1] = c + 1

		alts := make([]scheduling.Interval, in.Vehicles)
		for v := range alts {
			alt, err := m.NewInterval(append(window,
				scheduling.Optional(),
				scheduling.WithName(fmt.Sprintf("v%d_%s", v, name)))...)
			if err != nil {
				return err
			}
			alts[v] = alt
			perVehicle[v] = append(perVehicle[v], alt)
		}
		if err := m.Require(m.Alternative(main, alts, 1)); err != nil {
			return err
		}
	}

	lastCost := make([]int, len(in.Travel))
	for i := range in.Travel {
		lastCost[i] = in.Travel[i][0]
	}
	distance, err := scheduling.NewElementMatrix(in.Travel, scheduling.PerRow(lastCost...), scheduling.Scalar(0))
	if err != nil {
		return err
	}

	var costs []fd.Node
	for v, route := range perVehicle {
		seq, err := m.NewSequence(route, types, fmt.Sprintf("vehicle%d", v))
		if err != nil {
			return err
		}
		// Travel applies between consecutive stops only.
		if err := m.AddCompiled(m.SeqNoOverlap(seq, in.Travel, true)); err != nil {
			return err
		}
		if err := m.Require(m.First(seq, route[0])); err != nil {
			return err
		}
		if in.Capacity > 0 {
			var load []fd.Node
			for c, alt := range route[1:] {
				if in.Visits[c].Demand == 0 {
					continue
				}
				p, err := m.PresenceOf(alt)
				if err != nil {
					return err
				}
				load = append(load, fd.Mul(fd.Const(in.Visits[c].Demand), p))
			}
			if len(load) > 0 {
				if err := m.Add(fd.Le(fd.Add(load...), fd.Const(in.Capacity))); err != nil {
					return err
				}
			}
		}
		if in.objective() != ObjectiveDistance {
			continue
		}
		for k, iv := range route {
			next, err := m.TypeOfNext(seq, iv, distance.LastType(), distance.AbsentType())
			if err != nil {
				return err
			}
			cost, err := distance.At(fd.Const(types[k]), next)
			if err != nil {
				return err
			}
			costs = append(costs, cost)
		}
	}

	switch in.objective() {
	case ObjectiveDistance:
		return m.Minimize(fd.Add(costs...), nil)
	case ObjectiveMakespan:
		return m.Minimize(m.Makespan(b.Tasks))
	}
	return nil
}
