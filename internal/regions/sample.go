package regions

import "math"

// Sample is the set of numeric types a raster may hold.
type Sample interface {
	~uint8 | ~uint16 | ~uint32 | ~uint64 |
		~int | ~int8 | ~int16 | ~int32 | ~int64 |
		~float32 | ~float64
}

// Comparator decides whether two neighbouring samples belong to the same region.
//
// Match must be symmetric. When it is also transitive (an equivalence
// relation, as for Exact and Quantized) every pixel of a ScanLine matches the
// ScanLine's Value.
type Comparator[S Sample] interface {
	Match(a, b S) bool
}

// ComparatorFunc adapts a plain function to the Comparator interface.
type ComparatorFunc[S Sample] func(a, b S) bool

// Match calls f(a, b).
func (f ComparatorFunc[S]) Match(a, b S) bool {
	return f(a, b)
}

// Exact matches samples that are equal.
type Exact[S Sample] struct{}

// Match reports whether a == b.
func (Exact[S]) Match(a, b S) bool {
	return a == b
}

// Quantized matches samples that fall into the same bucket of width Step.
//
// Buckets are [k*Step, (k+1)*Step). A Step of zero or less behaves like Exact.
// Grouping 8-bit intensities with Step 16 yields 16 bands, which is a cheap
// way to label posterized images.
type Quantized[S Sample] struct {
	Step S
}

// Match reports whether a and b share a bucket. NaN matches nothing.
func (q Quantized[S]) Match(a, b S) bool {
	if q.Step <= 0 {
		return a == b
	}
	return q.Bucket(a) == q.Bucket(b)
}

// Bucket returns the bucket number k of v, so that k*Step <= v < (k+1)*Step.
// Integer samples are divided exactly over their whole range; floating-point
// samples are floored, and a NaN sample yields NaN.
func (q Quantized[S]) Bucket(v S) S {
	if q.Step <= 0 {
		return v
	}
	if isInteger[S]() {
		k := v / q.Step
		// division truncates toward zero
		if k*q.Step > v {
			k--
		}
		return k
	}
	return S(math.Floor(float64(v) / float64(q.Step)))
}

func isInteger[S Sample]() bool {
	var one S = 1
	return one/2 == 0
}

// inRange reports whether lo <= v <= hi.
func inRange[S Sample](v, lo, hi S) bool {
	return lo <= v && v <= hi
}
