package fd

import (
	"fmt"
	"strings"
)

// Domain represents the finite set of integer values a variable may take.
//
// Domains are immutable: every operation that removes values returns a
// new Domain and leaves the receiver untouched. This lets solver states
// share domains structurally across search branches without copying.
//
// Min and Max are undefined on an empty domain; callers check Count first.
type Domain interface {
	// Count returns the number of values in the domain.
	Count() int

	// Has reports whether v is in the domain.
	Has(v int) bool

	// Remove returns a domain without v.
	Remove(v int) Domain

	// IsSingleton reports whether exactly one value remains.
	IsSingleton() bool

	// SingletonValue returns the only value. Panics unless IsSingleton.
	SingletonValue() int

	// IterateValues calls f for each value in increasing order.
	IterateValues(f func(v int))

	// Intersect returns the values present in both domains.
	Intersect(other Domain) Domain

	// Min and Max return the smallest and largest values.
	Min() int
	Max() int

	// RemoveBelow keeps values >= v. RemoveAbove keeps values <= v.
	RemoveBelow(v int) Domain
	RemoveAbove(v int) Domain

	// RemoveAtOrAbove keeps values < v. RemoveAtOrBelow keeps values > v.
	RemoveAtOrAbove(v int) Domain
	RemoveAtOrBelow(v int) Domain

	// Equal reports whether both domains hold the same values.
	Equal(other Domain) bool

	String() string
}

// span is a closed range [lo, hi].
type span struct {
	lo, hi int
}

// RangeDomain is a Domain stored as sorted, disjoint, non-adjacent closed
// ranges. Scheduling variables routinely span a whole horizon, so the
// representation keeps memory proportional to the number of holes rather
// than to the width of the domain.
type RangeDomain struct {
	spans []span
}

// NewRangeDomain returns the contiguous domain [lo, hi]. It is empty when lo > hi.
func NewRangeDomain(lo, hi int) *RangeDomain {
	if lo > hi {
		return &RangeDomain{}
	}
	return &RangeDomain{spans: []span{{lo, hi}}}
}

// NewDomainFromValues returns a domain holding exactly the given values.
// Duplicates are ignored and order does not matter.
func NewDomainFromValues(values []int) *RangeDomain {
	if len(values) == 0 {
		return &RangeDomain{}
	}
	sorted := make([]int, len(values))
	copy(sorted, values)
	insertionSort(sorted)

	spans := make([]span, 0, len(sorted))
	cur := span{sorted[0], sorted[0]}
	for _, v := range sorted[1:] {
		switch {
		case v == cur.hi || v == cur.hi+1:
			cur.hi = v
		default:
			spans = append(spans, cur)
			cur = span{v, v}
		}
	}
	spans = append(spans, cur)
	return &RangeDomain{spans: spans}
}

// NewBoolDomain returns {0, 1}.
func NewBoolDomain() *RangeDomain {
	return NewRangeDomain(0, 1)
}

func insertionSort(a []int) {
	for i := 1; i < len(a); i++ {
		for j := i; j > 0 && a[j-1] > a[j]; j-- {
			a[j-1], a[j] = a[j], a[j-1]
		}
	}
}

// Count returns the number of values.
func (d *RangeDomain) Count() int {
	n := 0
	for _, s := range d.spans {
		n += s.hi - s.lo + 1
	}
	return n
}

// Has reports membership using binary search over the spans.
func (d *RangeDomain) Has(v int) bool {
	lo, hi := 0, len(d.spans)-1
	for lo <= hi {
		mid := (lo + hi) / 2
		s := d.spans[mid]
		switch {
		case v < s.lo:
			hi = mid - 1
		case v > s.hi:
			lo = mid + 1
		default:
			return true
		}
	}
	return false
}

// Remove returns the domain without v.
func (d *RangeDomain) Remove(v int) Domain {
	if !d.Has(v) {
		return d
	}
	out := make([]span, 0, len(d.spans)+1)
	for _, s := range d.spans {
		if v < s.lo || v > s.hi {
			out = append(out, s)
			continue
		}
		if s.lo <= v-1 {
			out = append(out, span{s.lo, v - 1})
		}
		if v+1 <= s.hi {
			out = append(out, span{v + 1, s.hi})
		}
	}
	return &RangeDomain{spans: out}
}

// IsSingleton reports whether exactly one value remains.
func (d *RangeDomain) IsSingleton() bool {
	return len(d.spans) == 1 && d.spans[0].lo == d.spans[0].hi
}

// SingletonValue returns the only value of a singleton domain.
func (d *RangeDomain) SingletonValue() int {
	if !d.IsSingleton() {
		panic("fd: SingletonValue on non-singleton domain")
	}
	return d.spans[0].lo
}

// IterateValues visits every value in increasing order.
func (d *RangeDomain) IterateValues(f func(v int)) {
	for _, s := range d.spans {
		for v := s.lo; v <= s.hi; v++ {
			f(v)
		}
	}
}

// Intersect returns the common values of d and other.
func (d *RangeDomain) Intersect(other Domain) Domain {
	o, ok := other.(*RangeDomain)
	if !ok {
		var vals []int
		other.IterateValues(func(v int) {
			if d.Has(v) {
				vals = append(vals, v)
			}
		})
		return NewDomainFromValues(vals)
	}
	out := make([]span, 0, len(d.spans))
	i, j := 0, 0
	for i < len(d.spans) && j < len(o.spans) {
		a, b := d.spans[i], o.spans[j]
		lo, hi := max(a.lo, b.lo), min(a.hi, b.hi)
		if lo <= hi {
			out = append(out, span{lo, hi})
		}
		if a.hi < b.hi {
			i++
		} else {
			j++
		}
	}
	return &RangeDomain{spans: out}
}

// Min returns the smallest value.
func (d *RangeDomain) Min() int {
	if len(d.spans) == 0 {
		return 0
	}
	return d.spans[0].lo
}

// Max returns the largest value.
func (d *RangeDomain) Max() int {
	if len(d.spans) == 0 {
		return 0
	}
	return d.spans[len(d.spans)-1].hi
}

// RemoveBelow keeps values >= v.
func (d *RangeDomain) RemoveBelow(v int) Domain {
	if len(d.spans) == 0 || d.spans[0].lo >= v {
		return d
	}
	out := make([]span, 0, len(d.spans))
	for _, s := range d.spans {
		if s.hi < v {
			continue
		}
		if s.lo < v {
			s.lo = v
		}
		out = append(out, s)
	}
	return &RangeDomain{spans: out}
}

// RemoveAbove keeps values <= v.
func (d *RangeDomain) RemoveAbove(v int) Domain {
	if len(d.spans) == 0 || d.spans[len(d.spans)-1].hi <= v {
		return d
	}
	out := make([]span, 0, len(d.spans))
	for _, s := range d.spans {
		if s.lo > v {
			break
		}
		if s.hi > v {
			s.hi = v
		}
		out = append(out, s)
	}
	return &RangeDomain{spans: out}
}

// RemoveAtOrAbove keeps values < v.
func (d *RangeDomain) RemoveAtOrAbove(v int) Domain {
	return d.RemoveAbove(v - 1)
}

// RemoveAtOrBelow keeps values > v.
func (d *RangeDomain) RemoveAtOrBelow(v int) Domain {
	return d.RemoveBelow(v + 1)
}

// RemoveRange removes every value in [lo, hi].
func (d *RangeDomain) RemoveRange(lo, hi int) Domain {
	if lo > hi {
		return d
	}
	out := make([]span, 0, len(d.spans)+1)
	changed := false
	for _, s := range d.spans {
		if s.hi < lo || s.lo > hi {
			out = append(out, s)
			continue
		}
		changed = true
		if s.lo < lo {
			out = append(out, span{s.lo, lo - 1})
		}
		if s.hi > hi {
			out = append(out, span{hi + 1, s.hi})
		}
	}
	if !changed {
		return d
	}
	return &RangeDomain{spans: out}
}

// Equal reports whether both domains hold the same values.
func (d *RangeDomain) Equal(other Domain) bool {
	o, ok := other.(*RangeDomain)
	if !ok {
		if d.Count() != other.Count() {
			return false
		}
		eq := true
		other.IterateValues(func(v int) {
			if !d.Has(v) {
				eq = false
			}
		})
		return eq
	}
	if len(d.spans) != len(o.spans) {
		return false
	}
	for i := range d.spans {
		if d.spans[i] != o.spans[i] {
			return false
		}
	}
	return true
}

// String renders the domain as {a..b,c}.
func (d *RangeDomain) String() string {
	var b strings.Builder
	b.WriteByte('{')
	for i, s := range d.spans {
		if i > 0 {
			b.WriteByte(',')
		}
		if s.lo == s.hi {
			fmt.Fprintf(&b, "%d", s.lo)
		} else {
			fmt.Fprintf(&b, "%d..%d", s.lo, s.hi)
		}
	}
	b.WriteByte('}')
	return b.String()
}
