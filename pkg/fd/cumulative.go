package fd

// This file provides the Cumulative constraint, the classic resource
// scheduling global. Given tasks with start-time variables, lengths,
// non-negative heights and optional presence literals, and a capacity,
// Cumulative enforces that at every time t the sum of heights of present
// tasks executing at t does not exceed the capacity.
//
// Contract (discrete time):
//   - A task started at s with length l occupies the half-open range [s, s+l).
//   - A task whose presence variable is 0 occupies nothing.
//   - Zero-length tasks never conflict.
//
// Propagation strength: time-table filtering with compulsory parts, plus a
// pairwise disjunctive rule for tasks that can never run together.
//   - est = min(start), lst = max(start), lmin = min(length)
//     If lst < est+lmin the task surely runs over [lst, est+lmin).
//   - The profile of compulsory parts of surely-present tasks must never
//     exceed capacity.
//   - A task's start window is shrunk from both ends while placing it would
//     push the profile (without its own part) above capacity. An optional
//     task with no feasible placement becomes absent.
//   - Two surely-present tasks whose heights together exceed capacity are
//     disjunctive; when one cannot precede the other, the other is pushed.

import (
	"fmt"
	"sort"
)

// Task is one activity of a Cumulative or NoOverlap constraint.
type Task struct {
	Start    *FDVariable
	Length   Node
	Height   int
	Presence *FDVariable // nil when the task is mandatory
}

// Cumulative models a renewable resource of fixed capacity.
type Cumulative struct {
	tasks    []Task
	capacity int
	vars     []*FDVariable
	name     string
}

// NewCumulative constructs a Cumulative constraint.
//
// Returns an error if a start is nil, a length is invalid, a height is
// negative or the capacity is negative.
func NewCumulative(tasks []Task, capacity int) (PropagationConstraint, error) {
	return newCumulative("Cumulative", tasks, capacity)
}

// NewNoOverlap constructs a disjunctive constraint: at most one task runs
// at any time. It is a Cumulative with unit heights and capacity 1.
func NewNoOverlap(tasks []Task) (PropagationConstraint, error) {
	unit := make([]Task, len(tasks))
	for i, t := range tasks {
		t.Height = 1
		unit[i] = t
	}
	return newCumulative("NoOverlap", unit, 1)
}

func newCumulative(name string, tasks []Task, capacity int) (*Cumulative, error) {
	if len(tasks) == 0 {
		return nil, fmt.Errorf("%s requires at least one task", name)
	}
	if capacity < 0 {
		return nil, fmt.Errorf("%s: capacity must be >= 0", name)
	}
	seen := make(map[*FDVariable]bool)
	var vars []*FDVariable
	add := func(v *FDVariable) {
		if v != nil && !seen[v] {
			seen[v] = true
			vars = append(vars, v)
		}
	}
	for i, t := range tasks {
		if t.Start == nil {
			return nil, fmt.Errorf("%s: tasks[%d] has nil start", name, i)
		}
		if !t.Length.IsValid() {
			return nil, fmt.Errorf("%s: tasks[%d] has invalid length", name, i)
		}
		if t.Height < 0 {
			return nil, fmt.Errorf("%s: tasks[%d] height must be >= 0", name, i)
		}
		add(t.Start)
		for _, v := range t.Length.Vars() {
			add(v)
		}
		add(t.Presence)
	}

	// Defensive copy
	cp := make([]Task, len(tasks))
	copy(cp, tasks)
	return &Cumulative{tasks: cp, capacity: capacity, vars: vars, name: name}, nil
}

// Variables returns the variables involved in this constraint.
func (c *Cumulative) Variables() []*FDVariable { return c.vars }

// Type returns the constraint identifier.
func (c *Cumulative) Type() string { return c.name }

// String returns a readable description.
func (c *Cumulative) String() string {
	return fmt.Sprintf("%s(n=%d, capacity=%d)", c.name, len(c.tasks), c.capacity)
}

// Tasks returns a copy of the tasks.
func (c *Cumulative) Tasks() []Task {
	out := make([]Task, len(c.tasks))
	copy(out, c.tasks)
	return out
}

// Capacity returns the resource capacity.
func (c *Cumulative) Capacity() int { return c.capacity }

type taskView struct {
	est, lst, lmin int
	present        bool // presence is fixed to 1
	absent         bool // presence is fixed to 0
}

// compulsory returns the surely-occupied range, if any.
func (t taskView) compulsory() (int, int, bool) {
	if !t.present || t.lmin <= 0 || t.lst >= t.est+t.lmin {
		return 0, 0, false
	}
	return t.lst, t.est + t.lmin, true
}

type segment struct {
	t0, t1, h int
}

// Propagate performs time-table and pairwise disjunctive filtering.
func (c *Cumulative) Propagate(solver *Solver, state *SolverState) (*SolverState, error) {
	env := &exprEnv{solver: solver, state: state}

	views := make([]taskView, len(c.tasks))
	for i, t := range c.tasks {
		v, err := c.view(env, t)
		if err != nil {
			return nil, err
		}
		views[i] = v
	}

	segs, err := c.profile(views)
	if err != nil {
		return nil, err
	}

	for i, t := range c.tasks {
		v := views[i]
		if v.absent || t.Height == 0 || v.lmin <= 0 {
			continue
		}
		est, lst, ok := c.window(segs, v, t.Height)
		if !ok {
			if err := c.excludeTask(env, t, v); err != nil {
				return nil, err
			}
			continue
		}
		if est > v.est || lst < v.lst {
			if err := env.setRange(t.Start, est, lst); err != nil {
				return nil, err
			}
		}
	}

	if err := c.disjunctive(env); err != nil {
		return nil, err
	}
	return env.state, nil
}

func (c *Cumulative) view(env *exprEnv, t Task) (taskView, error) {
	d := env.domain(t.Start)
	if d.Count() == 0 {
		return taskView{}, ErrInconsistent
	}
	lb, err := env.bounds(t.Length)
	if err != nil {
		return taskView{}, err
	}
	v := taskView{est: d.Min(), lst: d.Max(), lmin: max(lb.lo, 0), present: true}
	if t.Presence != nil {
		pd := env.domain(t.Presence)
		if pd.Count() == 0 {
			return taskView{}, ErrInconsistent
		}
		v.present = pd.IsSingleton() && pd.SingletonValue() != 0
		v.absent = pd.IsSingleton() && pd.SingletonValue() == 0
	}
	return v, nil
}

// profile builds the compulsory-part profile and checks capacity.
func (c *Cumulative) profile(views []taskView) ([]segment, error) {
	type event struct{ t, dh int }
	var events []event
	for i, v := range views {
		s, e, ok := v.compulsory()
		if !ok || c.tasks[i].Height == 0 {
			continue
		}
		events = append(events, event{s, c.tasks[i].Height}, event{e, -c.tasks[i].Height})
	}
	if len(events) == 0 {
		return nil, nil
	}
	sort.Slice(events, func(a, b int) bool { return events[a].t < events[b].t })

	var segs []segment
	h := 0
	for k := 0; k < len(events); {
		t := events[k].t
		for k < len(events) && events[k].t == t {
			h += events[k].dh
			k++
		}
		if k < len(events) && h > 0 {
			if h > c.capacity {
				return nil, ErrInconsistent
			}
			segs = append(segs, segment{t, events[k].t, h})
		}
	}
	return segs, nil
}

// window returns the feasible start bounds of a task against the profile,
// excluding the task's own compulsory part.
func (c *Cumulative) window(segs []segment, v taskView, height int) (int, int, bool) {
	cs, ce, own := v.compulsory()
	load := func(sg segment) int {
		if own && sg.t0 >= cs && sg.t1 <= ce {
			return sg.h - height
		}
		return sg.h
	}

	est := v.est
	for _, sg := range segs {
		if sg.t1 <= est {
			continue
		}
		if sg.t0 >= est+v.lmin {
			break
		}
		if load(sg)+height > c.capacity {
			est = sg.t1
		}
	}
	if height > c.capacity || est > v.lst {
		return 0, 0, false
	}

	lst := v.lst
	for k := len(segs) - 1; k >= 0; k-- {
		sg := segs[k]
		if sg.t0 >= lst+v.lmin {
			continue
		}
		if sg.t1 <= lst {
			break
		}
		if load(sg)+height > c.capacity {
			lst = sg.t0 - v.lmin
		}
	}
	if lst < est {
		return 0, 0, false
	}
	return est, lst, true
}

// excludeTask handles a task with no feasible placement: optional tasks
// become absent, mandatory ones fail.
func (c *Cumulative) excludeTask(env *exprEnv, t Task, v taskView) error {
	if v.present || t.Presence == nil {
		return ErrInconsistent
	}
	return env.setRange(t.Presence, 0, 0)
}

// disjunctive applies the pairwise precedence rule to surely-present tasks
// that cannot overlap.
func (c *Cumulative) disjunctive(env *exprEnv) error {
	n := len(c.tasks)
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			ti, tj := c.tasks[i], c.tasks[j]
			if ti.Height+tj.Height <= c.capacity {
				continue
			}
			vi, err := c.view(env, ti)
			if err != nil {
				return err
			}
			vj, err := c.view(env, tj)
			if err != nil {
				return err
			}
			if !vi.present || !vj.present || vi.lmin <= 0 || vj.lmin <= 0 {
				continue
			}
			iFirst := vi.est+vi.lmin <= vj.lst
			jFirst := vj.est+vj.lmin <= vi.lst
			switch {
			case !iFirst && !jFirst:
				return ErrInconsistent
			case !iFirst:
				if err := c.order(env, tj, vj, ti, vi); err != nil {
					return err
				}
			case !jFirst:
				if err := c.order(env, ti, vi, tj, vj); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

// order enforces that a ends before b starts.
func (c *Cumulative) order(env *exprEnv, a Task, va taskView, b Task, vb taskView) error {
	if err := env.setRange(b.Start, va.est+va.lmin, vb.lst); err != nil {
		return err
	}
	return env.setRange(a.Start, va.est, vb.lst-va.lmin)
}
