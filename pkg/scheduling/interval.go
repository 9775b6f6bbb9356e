package scheduling

import (
	"fmt"

	"github.com/gitrdm/gosched/pkg/fd"
)

// Interval is a handle to an interval variable of a Model: a task with a
// start, an end, a length and, when optional, a presence flag.
type Interval int

// Step is one breakpoint of a stepwise intensity function. From Time on
// the interval progresses at Value/granularity units of work per time
// unit, until the next breakpoint.
type Step struct {
	Time  int
	Value int
}

type span struct{ min, max int }

const intensityTableLimit = 1 << 16

type intervalData struct {
	id          int
	name        string
	start       span
	end         span
	size        span
	length      span
	optional    bool
	intensity   []Step
	granularity int

	enc       *encoding
	finalized bool
}

// encoding holds the fd variables of an interval once it is referenced.
type encoding struct {
	start    *fd.FDVariable
	length   fd.Node
	size     fd.Node
	presence fd.Node
	pres     *fd.FDVariable // nil when mandatory
	end      fd.Node

	lengthVar *fd.FDVariable
	sizeVar   *fd.FDVariable
}

type intervalConfig struct {
	name        string
	start       span
	end         span
	size        span
	length      *span
	optional    bool
	intensity   []Step
	granularity int
}

// IntervalOption configures NewInterval.
type IntervalOption func(*intervalConfig)

// WithStart bounds the start time.
func WithStart(lo, hi int) IntervalOption {
	return func(c *intervalConfig) { c.start = span{lo, hi} }
}

// WithEnd bounds the end time.
func WithEnd(lo, hi int) IntervalOption {
	return func(c *intervalConfig) { c.end = span{lo, hi} }
}

// WithSize bounds the amount of work.
func WithSize(lo, hi int) IntervalOption {
	return func(c *intervalConfig) { c.size = span{lo, hi} }
}

// WithFixedSize is WithSize(n, n).
func WithFixedSize(n int) IntervalOption {
	return WithSize(n, n)
}

// WithLength bounds end-start when it differs from the size, which only
// happens with an intensity function.
func WithLength(lo, hi int) IntervalOption {
	return func(c *intervalConfig) { c.length = &span{lo, hi} }
}

// WithIntensity sets a stepwise intensity function. Before the first
// breakpoint the intensity is zero.
func WithIntensity(steps []Step) IntervalOption {
	return func(c *intervalConfig) { c.intensity = append([]Step(nil), steps...) }
}

// WithGranularity sets the scale of intensity values. The default is 100,
// making intensities percentages.
func WithGranularity(g int) IntervalOption {
	return func(c *intervalConfig) { c.granularity = g }
}

// Optional makes the interval optional.
func Optional() IntervalOption {
	return func(c *intervalConfig) { c.optional = true }
}

// WithName names the interval.
func WithName(name string) IntervalOption {
	return func(c *intervalConfig) { c.name = name }
}

// NewInterval registers an interval variable.
func (m *Model) NewInterval(opts ...IntervalOption) (Interval, error) {
	cfg := intervalConfig{
		start:       span{0, IntervalMax},
		end:         span{0, IntervalMax},
		size:        span{0, IntervalMax},
		granularity: 100,
	}
	for _, o := range opts {
		if o != nil {
			o(&cfg)
		}
	}
	return m.addInterval(cfg)
}

// NewIntervalArray registers n intervals named base[0] .. base[n-1].
func (m *Model) NewIntervalArray(n int, base string, opts ...IntervalOption) ([]Interval, error) {
	if n < 0 {
		return nil, valueErrorf("NewIntervalArray", "negative count %d", n)
	}
	out := make([]Interval, n)
	for i := range out {
		o := append(append([]IntervalOption(nil), opts...), WithName(fmt.Sprintf("%s[%d]", base, i)))
		iv, err := m.NewInterval(o...)
		if err != nil {
			return nil, err
		}
		out[i] = iv
	}
	return out, nil
}

func (m *Model) addInterval(cfg intervalConfig) (Interval, error) {
	const op = "NewInterval"
	length := cfg.size
	if cfg.length != nil {
		length = *cfg.length
	}
	for _, b := range []struct {
		what string
		s    span
	}{{"start", cfg.start}, {"end", cfg.end}, {"size", cfg.size}, {"length", length}} {
		if b.s.min > b.s.max {
			return 0, valueErrorf(op, "%s min %d exceeds max %d", b.what, b.s.min, b.s.max)
		}
	}
	if cfg.size.min < 0 {
		return 0, valueErrorf(op, "size min %d is negative", cfg.size.min)
	}
	if length.min < 0 {
		return 0, valueErrorf(op, "length min %d is negative", length.min)
	}
	if cfg.end.max < cfg.start.min+cfg.size.min {
		return 0, valueErrorf(op, "end max %d is below start min %d + size min %d",
			cfg.end.max, cfg.start.min, cfg.size.min)
	}
	if cfg.granularity <= 0 {
		return 0, valueErrorf(op, "granularity %d must be positive", cfg.granularity)
	}
	steps, err := normalizeIntensity(cfg.intensity)
	if err != nil {
		return 0, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	id := len(m.intervals)
	name := cfg.name
	if name == "" {
		name = fmt.Sprintf("interval_%d", id)
	}
	m.intervals = append(m.intervals, &intervalData{
		id:          id,
		name:        name,
		start:       cfg.start,
		end:         cfg.end,
		size:        cfg.size,
		length:      length,
		optional:    cfg.optional,
		intensity:   steps,
		granularity: cfg.granularity,
	})
	return Interval(id), nil
}

// normalizeIntensity validates breakpoints, merges runs of equal values
// and drops a trailing run of zeros.
func normalizeIntensity(steps []Step) ([]Step, error) {
	if len(steps) == 0 {
		return nil, nil
	}
	out := make([]Step, 0, len(steps))
	for i, s := range steps {
		if i > 0 && s.Time <= steps[i-1].Time {
			return nil, valueErrorf("NewInterval", "intensity breakpoints must be strictly increasing (step %d)", i)
		}
		if s.Value < 0 {
			return nil, valueErrorf("NewInterval", "intensity value %d at step %d is negative", s.Value, i)
		}
		if len(out) > 0 && out[len(out)-1].Value == s.Value {
			continue
		}
		out = append(out, s)
	}
	for len(out) > 0 && out[len(out)-1].Value == 0 {
		out = out[:len(out)-1]
	}
	if len(out) == 0 {
		return nil, nil
	}
	return out, nil
}

// Intervals returns every interval in creation order.
func (m *Model) Intervals() []Interval {
	out := make([]Interval, len(m.intervals))
	for i := range out {
		out[i] = Interval(i)
	}
	return out
}

// IntervalInfo is a read-only view of an interval's declared bounds.
type IntervalInfo struct {
	Name        string
	StartMin    int
	StartMax    int
	EndMin      int
	EndMax      int
	SizeMin     int
	SizeMax     int
	LengthMin   int
	LengthMax   int
	Optional    bool
	Intensity   []Step
	Granularity int
}

// IsFixedSize reports whether the size is a single value.
func (i IntervalInfo) IsFixedSize() bool { return i.SizeMin == i.SizeMax }

// IsFixedStart reports whether the start is a single value.
func (i IntervalInfo) IsFixedStart() bool { return i.StartMin == i.StartMax }

// IsFixedEnd reports whether the end is a single value.
func (i IntervalInfo) IsFixedEnd() bool { return i.EndMin == i.EndMax }

// Info returns the declared bounds of iv.
func (m *Model) Info(iv Interval) (IntervalInfo, error) {
	d, err := m.interval("Info", iv)
	if err != nil {
		return IntervalInfo{}, err
	}
	return IntervalInfo{
		Name:        d.name,
		StartMin:    d.start.min,
		StartMax:    d.start.max,
		EndMin:      d.end.min,
		EndMax:      d.end.max,
		SizeMin:     d.size.min,
		SizeMax:     d.size.max,
		LengthMin:   d.length.min,
		LengthMax:   d.length.max,
		Optional:    d.optional,
		Intensity:   append([]Step(nil), d.intensity...),
		Granularity: d.granularity,
	}, nil
}

// Name returns the interval's name, or "" for a foreign handle.
func (m *Model) Name(iv Interval) string {
	if d, err := m.interval("Name", iv); err == nil {
		return d.name
	}
	return ""
}

// IsOptional reports whether iv may be absent.
func (m *Model) IsOptional(iv Interval) bool {
	d, err := m.interval("IsOptional", iv)
	return err == nil && d.optional
}

func (m *Model) interval(op string, iv Interval) (*intervalData, error) {
	if int(iv) < 0 || int(iv) >= len(m.intervals) {
		return nil, typeErrorf(op, "unknown interval %d", int(iv))
	}
	return m.intervals[iv], nil
}

// use validates the handles and returns their encodings, creating the
// solver variables on first reference.
func (m *Model) use(op string, ivs ...Interval) ([]*encoding, error) {
	out := make([]*encoding, len(ivs))
	for i, iv := range ivs {
		d, err := m.interval(op, iv)
		if err != nil {
			return nil, err
		}
		out[i] = m.encode(d)
	}
	return out, nil
}

func (m *Model) use1(op string, iv Interval) (*encoding, error) {
	e, err := m.use(op, iv)
	if err != nil {
		return nil, err
	}
	return e[0], nil
}

func (m *Model) encode(d *intervalData) *encoding {
	if d.enc != nil {
		return d.enc
	}
	e := &encoding{}
	e.start = m.fd.NewVariableWithName(fd.NewRangeDomain(d.start.min, d.start.max), d.name+".start")

	if d.length.min == d.length.max && d.intensity == nil {
		e.length = fd.Const(d.length.min)
	} else {
		e.lengthVar = m.fd.NewVariableWithName(fd.NewRangeDomain(d.length.min, d.length.max), d.name+".length")
		e.length = fd.V(e.lengthVar)
	}
	switch {
	case d.intensity == nil:
		e.size = e.length
	case d.size.min == d.size.max:
		e.size = fd.Const(d.size.min)
	default:
		e.sizeVar = m.fd.NewVariableWithName(fd.NewRangeDomain(d.size.min, d.size.max), d.name+".size")
		e.size = fd.V(e.sizeVar)
	}
	if d.optional {
		e.pres = m.fd.NewBoolVar(d.name + ".present")
		e.presence = fd.V(e.pres)
	} else {
		e.presence = fd.Const(1)
	}
	e.end = fd.Add(fd.V(e.start), e.length)
	d.enc = e

	var bounds []fd.Node
	if d.end.min > d.start.min+d.length.min {
		bounds = append(bounds, fd.Ge(e.end, fd.Const(d.end.min)))
	}
	if d.end.max != IntervalMax && d.end.max < d.start.max+d.length.max {
		bounds = append(bounds, fd.Le(e.end, fd.Const(d.end.max)))
	}
	for _, b := range bounds {
		m.post(whenPresent(b, e))
	}
	m.log.Debug("interval encoded", "interval", d.name, "optional", d.optional, "fixed_length", e.lengthVar == nil)
	return e
}

// post adds a node produced internally; such nodes are always valid.
func (m *Model) post(n fd.Node) {
	if err := m.fd.Post(n); err != nil {
		m.log.Error("post failed", "node", n.String(), "error", err)
	}
}

// finalize encodes every interval, lowers the deferred cumulative
// decompositions, caps starts and lengths at the horizon and posts the
// intensity relations. It runs once per interval, just before solving.
func (m *Model) finalize() error {
	h := m.Horizon()
	if err := m.lowerPending(h); err != nil {
		return err
	}
	for _, d := range m.intervals {
		if d.finalized {
			continue
		}
		d.finalized = true
		e := m.encode(d)
		if d.start.max > h {
			m.post(fd.Le(fd.V(e.start), fd.Const(max(h, d.start.min))))
		}
		if e.lengthVar != nil && d.length.max > h {
			m.post(fd.Le(e.length, fd.Const(max(h, d.length.min))))
		}
		if d.intensity != nil {
			if err := m.postIntensity(d, h); err != nil {
				return err
			}
		}
	}
	return nil
}

// postIntensity relates start, size and length through the intensity
// function: the work accumulated over [start, start+length) must first
// reach size*granularity at length.
func (m *Model) postIntensity(d *intervalData, h int) error {
	e := d.enc
	lo := d.start.min
	hi := min(d.start.max, max(h, d.start.min))
	sizes := []int{d.size.min}
	if e.sizeVar != nil {
		sizes = sizes[:0]
		for s := d.size.min; s <= d.size.max; s++ {
			sizes = append(sizes, s)
		}
	}
	if (hi-lo+1)*len(sizes) > intensityTableLimit {
		return unsupportedf("Intensity", "interval %s has %d start/size combinations", d.name, (hi-lo+1)*len(sizes))
	}

	vars := []*fd.FDVariable{e.start}
	if e.sizeVar != nil {
		vars = append(vars, e.sizeVar)
	}
	vars = append(vars, e.lengthVar)
	var tuples [][]int
	for s := lo; s <= hi; s++ {
		for _, sz := range sizes {
			l, ok := lengthForWork(d.intensity, d.granularity, s, sz, d.length.max)
			if !ok || l < d.length.min {
				continue
			}
			row := []int{s}
			if e.sizeVar != nil {
				row = append(row, sz)
			}
			tuples = append(tuples, append(row, l))
		}
	}
	if len(tuples) == 0 {
		m.log.Debug("intensity leaves no placement", "interval", d.name)
		m.post(whenPresent(fd.False(), e))
		return nil
	}
	tab, err := fd.NewTable(vars, tuples)
	if err != nil {
		return err
	}
	m.fd.AddConstraint(tab)
	return nil
}

// intensityAt returns the intensity in effect at time t.
func intensityAt(steps []Step, t int) int {
	v := 0
	for _, s := range steps {
		if s.Time > t {
			break
		}
		v = s.Value
	}
	return v
}

// lengthForWork returns the smallest length at which an interval starting
// at start has accumulated size*granularity units of work. Normalized
// functions end on a positive value, so the loop terminates.
func lengthForWork(steps []Step, granularity, start, size, maxLen int) (int, bool) {
	need := size * granularity
	if need == 0 {
		return 0, true
	}
	done := 0
	for l := 0; l < maxLen; l++ {
		done += intensityAt(steps, start+l)
		if done >= need {
			return l + 1, true
		}
	}
	return 0, false
}
