package fd

// bounds.go: interval evaluation and narrowing of expression trees.

// ival is a closed value range.
type ival struct {
	lo, hi int
}

func (r ival) fixed() bool { return r.lo == r.hi }

// surelyTrue and surelyFalse classify a range as a truth value.
func (r ival) surelyTrue() bool  { return r.lo > 0 || r.hi < 0 }
func (r ival) surelyFalse() bool { return r.lo == 0 && r.hi == 0 }

func truthRange(t, f bool) ival {
	switch {
	case t:
		return ival{1, 1}
	case f:
		return ival{0, 0}
	default:
		return ival{0, 1}
	}
}

// exprEnv evaluates and narrows trees against a solver state. Narrowing
// replaces env.state with derived states.
type exprEnv struct {
	solver *Solver
	state  *SolverState
}

func floorDiv(a, b int) int {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}

func ceilDiv(a, b int) int {
	return -floorDiv(-a, b)
}

func (e *exprEnv) domain(v *FDVariable) Domain {
	return e.solver.GetDomain(e.state, v.id)
}

// bounds evaluates n to a range over the current domains.
func (e *exprEnv) bounds(n Node) (ival, error) {
	switch n.op {
	case OpConst:
		return ival{n.value, n.value}, nil
	case OpVar:
		d := e.domain(n.v)
		if d.Count() == 0 {
			return ival{}, ErrInconsistent
		}
		return ival{d.Min(), d.Max()}, nil
	}

	bs := make([]ival, 0, len(n.args))
	if n.op != OpElement {
		for _, a := range n.args {
			b, err := e.bounds(a)
			if err != nil {
				return ival{}, err
			}
			bs = append(bs, b)
		}
	}

	switch n.op {
	case OpAdd:
		r := ival{}
		for _, b := range bs {
			r.lo += b.lo
			r.hi += b.hi
		}
		return r, nil
	case OpSub:
		return ival{bs[0].lo - bs[1].hi, bs[0].hi - bs[1].lo}, nil
	case OpMul:
		a, b := bs[0], bs[1]
		c := [4]int{a.lo * b.lo, a.lo * b.hi, a.hi * b.lo, a.hi * b.hi}
		r := ival{c[0], c[0]}
		for _, x := range c[1:] {
			r.lo = min(r.lo, x)
			r.hi = max(r.hi, x)
		}
		return r, nil
	case OpDiv:
		return divBounds(bs[0], bs[1])
	case OpNeg:
		return ival{-bs[0].hi, -bs[0].lo}, nil
	case OpAbs:
		a := bs[0]
		switch {
		case a.lo >= 0:
			return a, nil
		case a.hi <= 0:
			return ival{-a.hi, -a.lo}, nil
		default:
			return ival{0, max(-a.lo, a.hi)}, nil
		}
	case OpMin:
		r := bs[0]
		for _, b := range bs[1:] {
			r.lo = min(r.lo, b.lo)
			r.hi = min(r.hi, b.hi)
		}
		return r, nil
	case OpMax:
		r := bs[0]
		for _, b := range bs[1:] {
			r.lo = max(r.lo, b.lo)
			r.hi = max(r.hi, b.hi)
		}
		return r, nil
	case OpEq, OpNe:
		a, b := bs[0], bs[1]
		eq := a.fixed() && b.fixed() && a.lo == b.lo
		ne := a.hi < b.lo || b.hi < a.lo
		if !ne {
			ne = e.missingValue(n.args[0], b) || e.missingValue(n.args[1], a)
		}
		if n.op == OpEq {
			return truthRange(eq, ne), nil
		}
		return truthRange(ne, eq), nil
	case OpLe:
		return truthRange(bs[0].hi <= bs[1].lo, bs[0].lo > bs[1].hi), nil
	case OpLt:
		return truthRange(bs[0].hi < bs[1].lo, bs[0].lo >= bs[1].hi), nil
	case OpGe:
		return truthRange(bs[0].lo >= bs[1].hi, bs[0].hi < bs[1].lo), nil
	case OpGt:
		return truthRange(bs[0].lo > bs[1].hi, bs[0].hi <= bs[1].lo), nil
	case OpAnd:
		all, any := true, false
		for _, b := range bs {
			all = all && b.surelyTrue()
			any = any || b.surelyFalse()
		}
		return truthRange(all, any), nil
	case OpOr:
		any, all := false, true
		for _, b := range bs {
			any = any || b.surelyTrue()
			all = all && b.surelyFalse()
		}
		return truthRange(any, all), nil
	case OpNot:
		return truthRange(bs[0].surelyFalse(), bs[0].surelyTrue()), nil
	case OpImply:
		return truthRange(bs[0].surelyFalse() || bs[1].surelyTrue(), bs[0].surelyTrue() && bs[1].surelyFalse()), nil
	case OpElement:
		return e.elementBounds(n)
	}
	return ival{}, ErrInconsistent
}

// missingValue reports whether a fixed value r is absent from the domain
// of variable node n.
func (e *exprEnv) missingValue(n Node, r ival) bool {
	if n.op != OpVar || !r.fixed() {
		return false
	}
	return !e.domain(n.v).Has(r.lo)
}

func divBounds(a, b ival) (ival, error) {
	var divisors []int
	for _, c := range []int{b.lo, b.hi, -1, 1} {
		if c != 0 && c >= b.lo && c <= b.hi {
			divisors = append(divisors, c)
		}
	}
	if len(divisors) == 0 {
		return ival{}, ErrInconsistent
	}
	first := true
	var r ival
	for _, c := range divisors {
		for _, x := range []int{a.lo, a.hi} {
			q := floorDiv(x, c)
			if first {
				r = ival{q, q}
				first = false
				continue
			}
			r.lo = min(r.lo, q)
			r.hi = max(r.hi, q)
		}
	}
	return r, nil
}

// elementPositions returns the array positions the index may take.
func (e *exprEnv) elementPositions(n Node) ([]int, error) {
	idx, size := n.args[0], len(n.args)-1
	var out []int
	if idx.op == OpVar {
		d := e.domain(idx.v).RemoveBelow(0).RemoveAbove(size - 1)
		d.IterateValues(func(v int) { out = append(out, v) })
		return out, nil
	}
	r, err := e.bounds(idx)
	if err != nil {
		return nil, err
	}
	for p := max(r.lo, 0); p <= min(r.hi, size-1); p++ {
		out = append(out, p)
	}
	return out, nil
}

func (e *exprEnv) elementBounds(n Node) (ival, error) {
	pos, err := e.elementPositions(n)
	if err != nil {
		return ival{}, err
	}
	if len(pos) == 0 {
		return ival{}, ErrInconsistent
	}
	var r ival
	for i, p := range pos {
		b, err := e.bounds(n.args[p+1])
		if err != nil {
			return ival{}, err
		}
		if i == 0 {
			r = b
			continue
		}
		r.lo = min(r.lo, b.lo)
		r.hi = max(r.hi, b.hi)
	}
	return r, nil
}

// setRange restricts a variable to [lo, hi].
func (e *exprEnv) setRange(v *FDVariable, lo, hi int) error {
	d := e.domain(v)
	nd := d.RemoveBelow(lo).RemoveAbove(hi)
	return e.setDomain(v, d, nd)
}

func (e *exprEnv) setDomain(v *FDVariable, old, nd Domain) error {
	if nd.Count() == 0 {
		return ErrInconsistent
	}
	if nd.Count() == old.Count() {
		return nil
	}
	e.state, _ = e.solver.SetDomain(e.state, v.id, nd)
	return nil
}

// narrow restricts n to take a value in [lo, hi].
func (e *exprEnv) narrow(n Node, lo, hi int) error {
	if lo > hi {
		return ErrInconsistent
	}
	b, err := e.bounds(n)
	if err != nil {
		return err
	}
	if b.hi < lo || b.lo > hi {
		return ErrInconsistent
	}
	if lo <= b.lo && hi >= b.hi {
		return nil
	}
	lo, hi = max(lo, b.lo), min(hi, b.hi)

	switch n.op {
	case OpConst:
		return nil
	case OpVar:
		return e.setRange(n.v, lo, hi)
	case OpAdd:
		bs := make([]ival, len(n.args))
		sum := ival{}
		for i, a := range n.args {
			if bs[i], err = e.bounds(a); err != nil {
				return err
			}
			sum.lo += bs[i].lo
			sum.hi += bs[i].hi
		}
		for i, a := range n.args {
			if err := e.narrow(a, lo-(sum.hi-bs[i].hi), hi-(sum.lo-bs[i].lo)); err != nil {
				return err
			}
		}
		return nil
	case OpSub:
		a, b := n.args[0], n.args[1]
		bb, err := e.bounds(b)
		if err != nil {
			return err
		}
		if err := e.narrow(a, lo+bb.lo, hi+bb.hi); err != nil {
			return err
		}
		ab, err := e.bounds(a)
		if err != nil {
			return err
		}
		return e.narrow(b, ab.lo-hi, ab.hi-lo)
	case OpMul:
		a, b := n.args[0], n.args[1]
		if a.op == OpConst {
			return e.narrowScaled(b, a.value, lo, hi)
		}
		if b.op == OpConst {
			return e.narrowScaled(a, b.value, lo, hi)
		}
		return nil
	case OpDiv:
		if c := n.args[1]; c.op == OpConst && c.value > 0 {
			return e.narrow(n.args[0], lo*c.value, hi*c.value+c.value-1)
		}
		return nil
	case OpNeg:
		return e.narrow(n.args[0], -hi, -lo)
	case OpAbs:
		a := n.args[0]
		if err := e.narrow(a, -hi, hi); err != nil {
			return err
		}
		if lo <= 0 {
			return nil
		}
		ab, err := e.bounds(a)
		if err != nil {
			return err
		}
		switch {
		case ab.lo > -lo:
			return e.narrow(a, lo, hi)
		case ab.hi < lo:
			return e.narrow(a, -hi, -lo)
		}
		return nil
	case OpMin, OpMax:
		return e.narrowMinMax(n, lo, hi)
	case OpElement:
		return e.narrowElement(n, lo, hi)
	}

	if n.op.IsBoolean() {
		switch {
		case lo >= 1:
			return e.narrowBool(n, true)
		case hi <= 0:
			return e.narrowBool(n, false)
		}
	}
	return nil
}

// narrowScaled restricts x so that x*c lies in [lo, hi].
func (e *exprEnv) narrowScaled(x Node, c, lo, hi int) error {
	switch {
	case c > 0:
		return e.narrow(x, ceilDiv(lo, c), floorDiv(hi, c))
	case c < 0:
		return e.narrow(x, ceilDiv(hi, c), floorDiv(lo, c))
	}
	return nil
}

func (e *exprEnv) narrowMinMax(n Node, lo, hi int) error {
	bs := make([]ival, len(n.args))
	for i, a := range n.args {
		b, err := e.bounds(a)
		if err != nil {
			return err
		}
		bs[i] = b
	}
	isMin := n.op == OpMin
	// Every operand of min is >= lo; every operand of max is <= hi.
	for i, a := range n.args {
		var err error
		if isMin {
			err = e.narrow(a, lo, bs[i].hi)
		} else {
			err = e.narrow(a, bs[i].lo, hi)
		}
		if err != nil {
			return err
		}
	}
	// At least one operand of min is <= hi; at least one of max is >= lo.
	support := -1
	for i := range n.args {
		ok := (isMin && bs[i].lo <= hi) || (!isMin && bs[i].hi >= lo)
		if !ok {
			continue
		}
		if support >= 0 {
			return nil
		}
		support = i
	}
	if support < 0 {
		return ErrInconsistent
	}
	return e.narrow(n.args[support], lo, hi)
}

func (e *exprEnv) narrowElement(n Node, lo, hi int) error {
	pos, err := e.elementPositions(n)
	if err != nil {
		return err
	}
	allowed := make([]int, 0, len(pos))
	for _, p := range pos {
		b, err := e.bounds(n.args[p+1])
		if err != nil {
			return err
		}
		if b.hi >= lo && b.lo <= hi {
			allowed = append(allowed, p)
		}
	}
	if len(allowed) == 0 {
		return ErrInconsistent
	}
	idx := n.args[0]
	if idx.op == OpVar {
		d := e.domain(idx.v)
		if err := e.setDomain(idx.v, d, d.Intersect(NewDomainFromValues(allowed))); err != nil {
			return err
		}
	} else if err := e.narrow(idx, allowed[0], allowed[len(allowed)-1]); err != nil {
		return err
	}
	if len(allowed) == 1 {
		return e.narrow(n.args[allowed[0]+1], lo, hi)
	}
	return nil
}

// narrowBool forces the truth value of n.
func (e *exprEnv) narrowBool(n Node, want bool) error {
	b, err := e.bounds(n)
	if err != nil {
		return err
	}
	if (want && b.surelyFalse()) || (!want && b.surelyTrue()) {
		return ErrInconsistent
	}

	switch n.op {
	case OpEq:
		if want {
			return e.narrowEq(n.args[0], n.args[1])
		}
		return e.narrowNe(n.args[0], n.args[1])
	case OpNe:
		if want {
			return e.narrowNe(n.args[0], n.args[1])
		}
		return e.narrowEq(n.args[0], n.args[1])
	case OpLe:
		if want {
			return e.narrowLe(n.args[0], n.args[1], 0)
		}
		return e.narrowLe(n.args[1], n.args[0], 1)
	case OpLt:
		if want {
			return e.narrowLe(n.args[0], n.args[1], 1)
		}
		return e.narrowLe(n.args[1], n.args[0], 0)
	case OpGe:
		if want {
			return e.narrowLe(n.args[1], n.args[0], 0)
		}
		return e.narrowLe(n.args[0], n.args[1], 1)
	case OpGt:
		if want {
			return e.narrowLe(n.args[1], n.args[0], 1)
		}
		return e.narrowLe(n.args[0], n.args[1], 0)
	case OpAnd:
		if want {
			for _, a := range n.args {
				if err := e.narrowBool(a, true); err != nil {
					return err
				}
			}
			return nil
		}
		return e.narrowLastOpen(n.args, false)
	case OpOr:
		if !want {
			for _, a := range n.args {
				if err := e.narrowBool(a, false); err != nil {
					return err
				}
			}
			return nil
		}
		return e.narrowLastOpen(n.args, true)
	case OpNot:
		return e.narrowBool(n.args[0], !want)
	case OpImply:
		a, c := n.args[0], n.args[1]
		if !want {
			if err := e.narrowBool(a, true); err != nil {
				return err
			}
			return e.narrowBool(c, false)
		}
		ab, err := e.bounds(a)
		if err != nil {
			return err
		}
		if ab.surelyTrue() {
			return e.narrowBool(c, true)
		}
		cb, err := e.bounds(c)
		if err != nil {
			return err
		}
		if cb.surelyFalse() {
			return e.narrowBool(a, false)
		}
		return nil
	}

	// Numeric node used as a truth value.
	if !want {
		return e.narrow(n, 0, 0)
	}
	switch {
	case b.lo == 0:
		return e.narrow(n, 1, b.hi)
	case b.hi == 0:
		return e.narrow(n, b.lo, -1)
	case n.op == OpVar:
		d := e.domain(n.v)
		return e.setDomain(n.v, d, d.Remove(0))
	}
	return nil
}

// narrowLastOpen handles the unit case of And=false / Or=true: when every
// operand but one is decided against the goal, that operand must take it.
func (e *exprEnv) narrowLastOpen(args []Node, goal bool) error {
	open := -1
	for i, a := range args {
		b, err := e.bounds(a)
		if err != nil {
			return err
		}
		decidedAgainst := (goal && b.surelyFalse()) || (!goal && b.surelyTrue())
		if decidedAgainst {
			continue
		}
		if open >= 0 {
			return nil
		}
		open = i
	}
	if open < 0 {
		return ErrInconsistent
	}
	return e.narrowBool(args[open], goal)
}

// narrowLe enforces a + gap <= b.
func (e *exprEnv) narrowLe(a, b Node, gap int) error {
	ab, err := e.bounds(a)
	if err != nil {
		return err
	}
	bb, err := e.bounds(b)
	if err != nil {
		return err
	}
	if err := e.narrow(a, ab.lo, bb.hi-gap); err != nil {
		return err
	}
	if ab, err = e.bounds(a); err != nil {
		return err
	}
	return e.narrow(b, ab.lo+gap, bb.hi)
}

func (e *exprEnv) narrowEq(a, b Node) error {
	if a.op == OpVar && b.op == OpVar {
		da, db := e.domain(a.v), e.domain(b.v)
		common := da.Intersect(db)
		if err := e.setDomain(a.v, da, common); err != nil {
			return err
		}
		return e.setDomain(b.v, db, common)
	}
	bb, err := e.bounds(b)
	if err != nil {
		return err
	}
	if err := e.narrow(a, bb.lo, bb.hi); err != nil {
		return err
	}
	ab, err := e.bounds(a)
	if err != nil {
		return err
	}
	if err := e.narrow(b, ab.lo, ab.hi); err != nil {
		return err
	}
	if ab.fixed() && b.op == OpVar {
		d := e.domain(b.v)
		if !d.Has(ab.lo) {
			return ErrInconsistent
		}
	}
	if bb, err = e.bounds(b); err == nil && bb.fixed() && a.op == OpVar {
		if !e.domain(a.v).Has(bb.lo) {
			return ErrInconsistent
		}
	}
	return err
}

func (e *exprEnv) narrowNe(a, b Node) error {
	ab, err := e.bounds(a)
	if err != nil {
		return err
	}
	bb, err := e.bounds(b)
	if err != nil {
		return err
	}
	if ab.fixed() && b.op == OpVar {
		d := e.domain(b.v)
		return e.setDomain(b.v, d, d.Remove(ab.lo))
	}
	if bb.fixed() && a.op == OpVar {
		d := e.domain(a.v)
		return e.setDomain(a.v, d, d.Remove(bb.lo))
	}
	return nil
}
