package debugger

import (
	"github.com/gogpu/shaderdbg/value"
)

// Lane-wise arithmetic in the operation type. Float results are not
// flushed here; SetDst does that for flushing ops.

func addVars(a, b value.ShaderVariable, t value.VarType) value.ShaderVariable {
	r := a
	switch t {
	case value.TypeFloat:
		for i := 0; i < 4; i++ {
			r.SetF32(i, a.F32(i)+b.F32(i))
		}
	case value.TypeDouble:
		for i := 0; i < 2; i++ {
			r.SetF64(i, a.F64(i)+b.F64(i))
		}
	case value.TypeSInt:
		for i := 0; i < 4; i++ {
			r.SetS32(i, a.S32(i)+b.S32(i))
		}
	default:
		for i := 0; i < 4; i++ {
			r.SetU32(i, a.U32(i)+b.U32(i))
		}
	}
	return r
}

func mulVars(a, b value.ShaderVariable, t value.VarType) value.ShaderVariable {
	r := a
	switch t {
	case value.TypeFloat:
		for i := 0; i < 4; i++ {
			r.SetF32(i, a.F32(i)*b.F32(i))
		}
	case value.TypeDouble:
		for i := 0; i < 2; i++ {
			r.SetF64(i, a.F64(i)*b.F64(i))
		}
	case value.TypeSInt:
		for i := 0; i < 4; i++ {
			r.SetS32(i, a.S32(i)*b.S32(i))
		}
	default:
		for i := 0; i < 4; i++ {
			r.SetU32(i, a.U32(i)*b.U32(i))
		}
	}
	return r
}

// divVars divides lane-wise. Integer division by zero yields zero; callers
// that need hardware results (udiv) handle zero divisors themselves.
func divVars(a, b value.ShaderVariable, t value.VarType) value.ShaderVariable {
	r := a
	switch t {
	case value.TypeFloat:
		for i := 0; i < 4; i++ {
			r.SetF32(i, a.F32(i)/b.F32(i))
		}
	case value.TypeDouble:
		for i := 0; i < 2; i++ {
			r.SetF64(i, a.F64(i)/b.F64(i))
		}
	case value.TypeSInt:
		for i := 0; i < 4; i++ {
			if d := b.S32(i); d != 0 {
				r.SetS32(i, a.S32(i)/d)
			} else {
				r.SetS32(i, 0)
			}
		}
	default:
		for i := 0; i < 4; i++ {
			if d := b.U32(i); d != 0 {
				r.SetU32(i, a.U32(i)/d)
			} else {
				r.SetU32(i, 0)
			}
		}
	}
	return r
}

// subFloats returns a - b for four float lanes.
func subFloats(a, b value.ShaderVariable) value.ShaderVariable {
	r := a
	for i := 0; i < 4; i++ {
		r.SetF32(i, a.F32(i)-b.F32(i))
	}
	return r
}
