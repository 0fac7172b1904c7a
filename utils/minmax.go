// Package utils collects small helpers used by the congestion package and
// the internal/simulate harness: ordering helpers, a clock seam, and
// structured logging.
package utils

import "golang.org/x/exp/constraints"

// Max returns the larger of a and b. It replaces the teacher's hand-rolled
// per-type family (MaxUint32, MaxInt64, MaxPacketNumber, MaxDuration, ...)
// now that the module requires Go 1.21 generics; golang.org/x/exp/constraints
// is exactly the dependency that family would be rewritten against today,
// and it is already part of the teacher's own dependency graph.
func Max[T constraints.Ordered](a, b T) T {
	if a > b {
		return a
	}
	return b
}

// Min returns the smaller of a and b.
func Min[T constraints.Ordered](a, b T) T {
	if a < b {
		return a
	}
	return b
}

// Clamp restricts v to the inclusive range [lo, hi].
func Clamp[T constraints.Ordered](v, lo, hi T) T {
	return Max(lo, Min(v, hi))
}

// AbsInt64 returns the absolute value of i.
func AbsInt64(i int64) int64 {
	if i < 0 {
		return -i
	}
	return i
}
