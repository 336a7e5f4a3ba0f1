package value

import "golang.org/x/exp/constraints"

// Scalar is any component type a ShaderVariable can hold.
type Scalar interface {
	constraints.Integer | constraints.Float
}

// Get returns component i interpreted as T. The width of T selects the
// lane layout: 64-bit types read two lanes, 16- and 8-bit types read packed
// components.
func Get[T Scalar](v *ShaderVariable, i int) T {
	var zero T
	switch any(zero).(type) {
	case float32:
		return T(v.F32(i))
	case float64:
		return T(v.F64(i))
	case int32:
		return T(v.S32(i))
	case uint32:
		return T(v.U32(i))
	case int64:
		return T(v.S64(i))
	case uint64:
		return T(v.U64(i))
	case int16:
		return T(int16(v.U16(i)))
	case uint16:
		return T(v.U16(i))
	case int8:
		return T(int8(v.U8(i)))
	case uint8:
		return T(v.U8(i))
	case int:
		return T(v.S32(i))
	case uint:
		return T(v.U32(i))
	}
	return zero
}

// Set stores x as component i using the lane layout implied by T.
func Set[T Scalar](v *ShaderVariable, i int, x T) {
	switch c := any(x).(type) {
	case float32:
		v.SetF32(i, c)
	case float64:
		v.SetF64(i, c)
	case int32:
		v.SetS32(i, c)
	case uint32:
		v.SetU32(i, c)
	case int64:
		v.SetS64(i, c)
	case uint64:
		v.SetU64(i, c)
	case int16:
		v.SetU16(i, uint16(c))
	case uint16:
		v.SetU16(i, c)
	case int8:
		v.SetU8(i, uint8(c))
	case uint8:
		v.SetU8(i, c)
	case int:
		v.SetS32(i, int32(c))
	case uint:
		v.SetU32(i, uint32(c))
	}
}

// Clamp limits x to [lo, hi].
func Clamp[T constraints.Ordered](x, lo, hi T) T {
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}

// AlignUp rounds a up to a multiple of b, which must be a power of two.
func AlignUp[I constraints.Integer](a, b I) I {
	return (a + b - 1) &^ (b - 1)
}
