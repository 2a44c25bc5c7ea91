package reactivestreams

import (
	"math"
	"strconv"
)

// Demand is a local demand counter that is either a finite count or
// unbounded. Unbounded is an explicit state, not a magic value, so
// additions saturate into it instead of overflowing.
type Demand struct {
	n         int64
	unbounded bool
}

// Finite returns a demand of n items; n <= 0 yields zero demand
func Finite(n int64) Demand {
	if n < 0 {
		n = 0
	}
	return Demand{n: n}
}

// Unbounded returns the demand of a resumed stream
func Unbounded() Demand {
	return Demand{unbounded: true}
}

// Add grants n more items, saturating to unbounded on overflow.
// Non-positive n leaves d unchanged.
func (d Demand) Add(n int64) Demand {
	if d.unbounded || n <= 0 {
		return d
	}
	if n > math.MaxInt64-d.n {
		return Unbounded()
	}
	return Demand{n: d.n + n}
}

// Dec takes one item; unbounded and zero demand are unchanged
func (d Demand) Dec() Demand {
	if d.unbounded || d.n == 0 {
		return d
	}
	return Demand{n: d.n - 1}
}

// Positive reports whether at least one item may be delivered
func (d Demand) Positive() bool {
	return d.unbounded || d.n > 0
}

// IsUnbounded reports whether d is unbounded
func (d Demand) IsUnbounded() bool {
	return d.unbounded
}

// Value returns the finite count, or math.MaxInt64 when unbounded
func (d Demand) Value() int64 {
	if d.unbounded {
		return math.MaxInt64
	}
	return d.n
}

func (d Demand) String() string {
	if d.unbounded {
		return "unbounded"
	}
	return strconv.FormatInt(d.n, 10)
}
