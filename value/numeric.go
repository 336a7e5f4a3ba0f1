package value

import (
	"math"

	"golang.org/x/exp/constraints"
)

// FlushDenorm returns f unchanged when it is normal, zero, infinite or NaN,
// and a zero of the same sign when it is subnormal.
func FlushDenorm(f float32) float32 {
	return math.Float32frombits(FlushDenormBits(math.Float32bits(f)))
}

// FlushDenormBits is FlushDenorm on the raw bit pattern.
func FlushDenormBits(x uint32) uint32 {
	// any exponent bit set means normal, infinite or NaN
	if x&0x7f800000 != 0 {
		return x
	}
	return x & 0x80000000
}

func isNaN[T constraints.Float](f T) bool {
	return f != f
}

// Min returns the smaller of a and b. If exactly one operand is NaN the
// other is returned; if both are NaN the result is NaN.
func Min[T constraints.Float](a, b T) T {
	if isNaN(a) {
		return b
	}
	if isNaN(b) {
		return a
	}
	if a < b {
		return a
	}
	return b
}

// Max returns the larger of a and b, with the same NaN handling as Min.
// Ties resolve to a.
func Max[T constraints.Float](a, b T) T {
	if isNaN(a) {
		return b
	}
	if isNaN(b) {
		return a
	}
	if a >= b {
		return a
	}
	return b
}

// RoundNE rounds to the nearest integer, ties to even. NaN and infinities
// are returned unchanged.
func RoundNE[T constraints.Float](x T) T {
	f := float64(x)
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return x
	}
	return T(f - math.Remainder(f, 1.0))
}

// RoundTowardZero truncates toward zero: ceil for negative values, floor
// otherwise.
func RoundTowardZero[T constraints.Float](x T) T {
	f := float64(x)
	if f < 0 {
		return T(math.Ceil(f))
	}
	return T(math.Floor(f))
}

// RoundUp rounds toward positive infinity.
func RoundUp[T constraints.Float](x T) T { return T(math.Ceil(float64(x))) }

// RoundDown rounds toward negative infinity.
func RoundDown[T constraints.Float](x T) T { return T(math.Floor(float64(x))) }

// IsNaNOrInf reports whether f is not finite.
func IsNaNOrInf[T constraints.Float](f T) bool {
	d := float64(f)
	return math.IsNaN(d) || math.IsInf(d, 0)
}

// Flush applies FlushDenorm to the first n lanes of v.
func Flush(v *ShaderVariable, n int) {
	for i := 0; i < n; i++ {
		v.SetU32(i, FlushDenormBits(v.U32(i)))
	}
}

// Saturate clamps each component of v according to the operation type t:
// floats and doubles to [0, 1], signed integers to [0, 1], unsigned
// integers to a boolean 0/1.
func Saturate(v ShaderVariable, t VarType) ShaderVariable {
	switch t {
	case TypeSInt:
		for i := 0; i < 4; i++ {
			v.SetS32(i, Clamp(v.S32(i), 0, 1))
		}
	case TypeUInt:
		for i := 0; i < 4; i++ {
			if v.U32(i) != 0 {
				v.SetU32(i, 1)
			}
		}
	case TypeFloat:
		for i := 0; i < 4; i++ {
			v.SetF32(i, Min(1, Max(0, v.F32(i))))
		}
	case TypeDouble:
		for i := 0; i < 2; i++ {
			v.SetF64(i, Min(1, Max(0, v.F64(i))))
		}
	}
	return v
}

// Abs applies the absolute-value source modifier for operation type t.
// Unsigned values are unchanged.
func Abs(v ShaderVariable, t VarType) ShaderVariable {
	switch t {
	case TypeFloat:
		for i := 0; i < 4; i++ {
			v.SetU32(i, v.U32(i)&0x7fffffff)
		}
	case TypeSInt:
		for i := 0; i < 4; i++ {
			if x := v.S32(i); x < 0 {
				v.SetS32(i, -x)
			}
		}
	case TypeDouble:
		for i := 0; i < 2; i++ {
			v.SetU64(i, v.U64(i)&0x7fffffffffffffff)
		}
	}
	return v
}

// Neg applies the negate source modifier for operation type t. Unsigned
// values are unchanged.
func Neg(v ShaderVariable, t VarType) ShaderVariable {
	switch t {
	case TypeFloat:
		for i := 0; i < 4; i++ {
			v.SetF32(i, -v.F32(i))
		}
	case TypeSInt:
		for i := 0; i < 4; i++ {
			v.SetS32(i, -v.S32(i))
		}
	case TypeDouble:
		for i := 0; i < 2; i++ {
			v.SetF64(i, -v.F64(i))
		}
	}
	return v
}
