package kernel

import "math"

// This file provides the scalar compute primitives used by the
// host-side coarse distance computation in package device.
// It is grounded on the teacher's hwy/ops_base.go scalar fallback: the
// same Load/Store/Set/Zero/arithmetic shape, generalized to the lane
// types this module actually needs (Float16, float32, float64).

// Load creates a vector by copying every element of src.
func Load[T Lanes](src []T) Vec[T] {
	data := make([]T, len(src))
	copy(data, src)
	return Vec[T]{data: data}
}

// Store writes a vector's data to dst, truncating to len(dst).
func Store[T Lanes](v Vec[T], dst []T) {
	copy(dst, v.data)
}

// Set creates a vector of length n with every lane equal to value.
func Set[T Lanes](value T, n int) Vec[T] {
	data := make([]T, n)
	for i := range data {
		data[i] = value
	}
	return Vec[T]{data: data}
}

// Zero creates a zero-valued vector of length n.
func Zero[T Lanes](n int) Vec[T] {
	return Vec[T]{data: make([]T, n)}
}

// Add performs element-wise addition over min(len(a), len(b)) lanes.
func Add[T Lanes](a, b Vec[T]) Vec[T] {
	n := minInt(len(a.data), len(b.data))
	out := make([]T, n)
	for i := 0; i < n; i++ {
		out[i] = addScalar(a.data[i], b.data[i])
	}
	return Vec[T]{data: out}
}

// Sub performs element-wise subtraction over min(len(a), len(b)) lanes.
func Sub[T Lanes](a, b Vec[T]) Vec[T] {
	n := minInt(len(a.data), len(b.data))
	out := make([]T, n)
	for i := 0; i < n; i++ {
		out[i] = subScalar(a.data[i], b.data[i])
	}
	return Vec[T]{data: out}
}

// Mul performs element-wise multiplication over min(len(a), len(b)) lanes.
func Mul[T Lanes](a, b Vec[T]) Vec[T] {
	n := minInt(len(a.data), len(b.data))
	out := make([]T, n)
	for i := 0; i < n; i++ {
		out[i] = mulScalar(a.data[i], b.data[i])
	}
	return Vec[T]{data: out}
}

// MulAdd computes a*b + c element-wise (fused multiply-add).
func MulAdd[T Floats](a, b, c Vec[T]) Vec[T] {
	n := minInt(minInt(len(a.data), len(b.data)), len(c.data))
	out := make([]T, n)
	for i := 0; i < n; i++ {
		out[i] = fmaScalar(a.data[i], b.data[i], c.data[i])
	}
	return Vec[T]{data: out}
}

// Clamp bounds every lane of v to [lo, hi].
func Clamp[T Floats](v, lo, hi Vec[T]) Vec[T] {
	n := minInt(minInt(len(v.data), len(lo.data)), len(hi.data))
	out := make([]T, n)
	for i := 0; i < n; i++ {
		out[i] = clampScalar(v.data[i], lo.data[i], hi.data[i])
	}
	return Vec[T]{data: out}
}

// Round rounds every lane to the nearest integer value, ties away from zero.
func Round[T Floats](v Vec[T]) Vec[T] {
	out := make([]T, len(v.data))
	for i, x := range v.data {
		out[i] = roundScalar(x)
	}
	return Vec[T]{data: out}
}

// ReduceSum sums all lanes of v in float64 to avoid accumulated
// rounding error when T is Float16.
func ReduceSum[T Floats](v Vec[T]) float64 {
	var sum float64
	for _, x := range v.data {
		sum += toFloat64(x)
	}
	return sum
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func toFloat64[T Floats](x T) float64 {
	switch v := any(x).(type) {
	case Float16:
		return float64(v.Float32())
	case float32:
		return float64(v)
	case float64:
		return v
	default:
		return 0
	}
}

func fromFloat64[T Floats](f float64) T {
	var zero T
	switch any(zero).(type) {
	case Float16:
		return any(Float32ToFloat16(float32(f))).(T)
	case float32:
		return any(float32(f)).(T)
	case float64:
		return any(f).(T)
	default:
		return zero
	}
}

func addScalar[T Lanes](a, b T) T {
	switch av := any(a).(type) {
	case Float16:
		bv := any(b).(Float16)
		return any(Float32ToFloat16(av.Float32() + bv.Float32())).(T)
	case int8:
		return any(av + any(b).(int8)).(T)
	case uint8:
		return any(av + any(b).(uint8)).(T)
	case uint32:
		return any(av + any(b).(uint32)).(T)
	case int32:
		return any(av + any(b).(int32)).(T)
	case float32:
		return any(av + any(b).(float32)).(T)
	case float64:
		return any(av + any(b).(float64)).(T)
	default:
		return a
	}
}

func subScalar[T Lanes](a, b T) T {
	switch av := any(a).(type) {
	case Float16:
		bv := any(b).(Float16)
		return any(Float32ToFloat16(av.Float32() - bv.Float32())).(T)
	case int8:
		return any(av - any(b).(int8)).(T)
	case uint8:
		return any(av - any(b).(uint8)).(T)
	case uint32:
		return any(av - any(b).(uint32)).(T)
	case int32:
		return any(av - any(b).(int32)).(T)
	case float32:
		return any(av - any(b).(float32)).(T)
	case float64:
		return any(av - any(b).(float64)).(T)
	default:
		return a
	}
}

func mulScalar[T Lanes](a, b T) T {
	switch av := any(a).(type) {
	case Float16:
		bv := any(b).(Float16)
		return any(Float32ToFloat16(av.Float32() * bv.Float32())).(T)
	case int8:
		return any(av * any(b).(int8)).(T)
	case uint8:
		return any(av * any(b).(uint8)).(T)
	case uint32:
		return any(av * any(b).(uint32)).(T)
	case int32:
		return any(av * any(b).(int32)).(T)
	case float32:
		return any(av * any(b).(float32)).(T)
	case float64:
		return any(av * any(b).(float64)).(T)
	default:
		return a
	}
}

func fmaScalar[T Floats](a, b, c T) T {
	return fromFloat64[T](toFloat64(a)*toFloat64(b) + toFloat64(c))
}

func clampScalar[T Floats](v, lo, hi T) T {
	x := toFloat64(v)
	l := toFloat64(lo)
	h := toFloat64(hi)
	if x < l {
		x = l
	}
	if x > h {
		x = h
	}
	return fromFloat64[T](x)
}

func roundScalar[T Floats](v T) T {
	return fromFloat64[T](math.Round(toFloat64(v)))
}
