package value

import (
	"encoding/binary"
	"fmt"
	"math"
)

// CompKind is the numeric interpretation of a typed texel component.
type CompKind uint8

const (
	KindFloat CompKind = iota
	KindUNorm
	KindSNorm
	KindUInt
	KindSInt
)

func (k CompKind) String() string {
	switch k {
	case KindFloat:
		return "float"
	case KindUNorm:
		return "unorm"
	case KindSNorm:
		return "snorm"
	case KindUInt:
		return "uint"
	case KindSInt:
		return "sint"
	}
	return "unknown"
}

// Packed byte widths for formats whose components do not sit on byte
// boundaries.
const (
	WidthR10G10B10A2 = 10
	WidthR11G11B10   = 11
)

// TexelFormat describes how one typed element is stored in memory.
// ByteWidth is the per-component size (1, 2 or 4), or one of the packed
// pseudo-widths above.
type TexelFormat struct {
	ByteWidth int
	NumComps  int
	Kind      CompKind
	// Stride overrides the element size for structured data. Zero means
	// ElementSize.
	Stride int
}

// ElementSize returns the number of bytes one element occupies.
func (f TexelFormat) ElementSize() int {
	if f.Stride != 0 {
		return f.Stride
	}
	if f.ByteWidth == WidthR10G10B10A2 || f.ByteWidth == WidthR11G11B10 {
		return 4
	}
	return f.ByteWidth * f.NumComps
}

// Validate reports whether the format can be encoded.
func (f TexelFormat) Validate() error {
	switch f.ByteWidth {
	case WidthR10G10B10A2:
		if f.Kind != KindUInt && f.Kind != KindUNorm {
			return fmt.Errorf("r10g10b10a2 does not support %s", f.Kind)
		}
	case WidthR11G11B10:
	case 4:
	case 2:
	case 1:
		if f.Kind == KindFloat {
			return fmt.Errorf("8-bit float components are not supported")
		}
	default:
		return fmt.Errorf("unsupported component width %d", f.ByteWidth)
	}
	if f.NumComps < 1 || f.NumComps > 4 {
		return fmt.Errorf("component count %d out of range", f.NumComps)
	}
	return nil
}

// EncodeTexel writes the first NumComps components of v into dst using
// format f. dst must hold at least ElementSize bytes.
func EncodeTexel(f TexelFormat, v *ShaderVariable, dst []byte) error {
	if err := f.Validate(); err != nil {
		return err
	}
	if len(dst) < f.ElementSize() {
		return fmt.Errorf("texel store needs %d bytes, have %d", f.ElementSize(), len(dst))
	}

	switch f.ByteWidth {
	case WidthR10G10B10A2:
		var u uint32
		if f.Kind == KindUInt {
			u = v.U32(0)&0x3ff | (v.U32(1)&0x3ff)<<10 | (v.U32(2)&0x3ff)<<20 | (v.U32(3)&0x3)<<30
		} else {
			u = PackR10G10B10A2(v.F32(0), v.F32(1), v.F32(2), v.F32(3))
		}
		binary.LittleEndian.PutUint32(dst, u)

	case WidthR11G11B10:
		binary.LittleEndian.PutUint32(dst, PackR11G11B10(v.F32(0), v.F32(1), v.F32(2)))

	case 4:
		for c := 0; c < f.NumComps; c++ {
			binary.LittleEndian.PutUint32(dst[c*4:], v.U32(c))
		}

	case 2:
		for c := 0; c < f.NumComps; c++ {
			var u uint16
			switch f.Kind {
			case KindFloat:
				u = Float32ToHalf(v.F32(c))
			case KindUInt:
				u = uint16(v.U32(c) & 0xffff)
			case KindSInt:
				u = uint16(int16(Clamp(v.S32(c), math.MinInt16, math.MaxInt16)))
			case KindUNorm:
				u = uint16(Clamp(v.F32(c), 0, 1)*0xffff + 0.5)
			case KindSNorm:
				u = uint16(int16(snormRound(Clamp(v.F32(c), -1, 1) * 0x7fff)))
			}
			binary.LittleEndian.PutUint16(dst[c*2:], u)
		}

	case 1:
		for c := 0; c < f.NumComps; c++ {
			var u uint8
			switch f.Kind {
			case KindUInt:
				u = uint8(v.U32(c) & 0xff)
			case KindSInt:
				u = uint8(int8(Clamp(v.S32(c), math.MinInt8, math.MaxInt8)))
			case KindUNorm:
				u = uint8(Clamp(v.F32(c), 0, 1)*0xff + 0.5)
			case KindSNorm:
				u = uint8(int8(snormRound(Clamp(v.F32(c), -1, 1) * 0x7f)))
			}
			dst[c] = u
		}
	}
	return nil
}

// snormRound rounds half away from zero, as the fixed-point conversion
// rules require.
func snormRound(f float32) int32 {
	if f < 0 {
		return int32(f - 0.5)
	}
	return int32(f + 0.5)
}

// DecodeTexel reads one element in format f from src. The result is a
// float4 initialised to zero; integer formats fill the raw lanes. Packed
// R11G11B10 sets alpha to 1.
func DecodeTexel(f TexelFormat, src []byte) (ShaderVariable, error) {
	result := Float4("", 0, 0, 0, 0)
	if err := f.Validate(); err != nil {
		return result, err
	}
	if len(src) < f.ElementSize() {
		return result, fmt.Errorf("texel load needs %d bytes, have %d", f.ElementSize(), len(src))
	}

	switch f.ByteWidth {
	case WidthR10G10B10A2:
		u := binary.LittleEndian.Uint32(src)
		if f.Kind == KindUInt {
			result.SetU32(0, u&0x3ff)
			result.SetU32(1, (u>>10)&0x3ff)
			result.SetU32(2, (u>>20)&0x3ff)
			result.SetU32(3, u>>30)
		} else {
			r, g, b, a := UnpackR10G10B10A2(u)
			result.SetF32(0, r)
			result.SetF32(1, g)
			result.SetF32(2, b)
			result.SetF32(3, a)
		}

	case WidthR11G11B10:
		r, g, b := UnpackR11G11B10(binary.LittleEndian.Uint32(src))
		result.SetF32(0, r)
		result.SetF32(1, g)
		result.SetF32(2, b)
		result.SetF32(3, 1)

	case 4:
		for c := 0; c < f.NumComps; c++ {
			result.SetU32(c, binary.LittleEndian.Uint32(src[c*4:]))
		}

	case 2:
		for c := 0; c < f.NumComps; c++ {
			u := binary.LittleEndian.Uint16(src[c*2:])
			switch f.Kind {
			case KindFloat:
				result.SetF32(c, HalfToFloat32(u))
			case KindUInt:
				result.SetU32(c, uint32(u))
			case KindSInt:
				result.SetS32(c, int32(int16(u)))
			case KindUNorm:
				result.SetF32(c, float32(u)/0xffff)
			case KindSNorm:
				if int16(u) == math.MinInt16 {
					result.SetF32(c, -1)
				} else {
					result.SetF32(c, float32(int16(u))/0x7fff)
				}
			}
		}

	case 1:
		for c := 0; c < f.NumComps; c++ {
			u := src[c]
			switch f.Kind {
			case KindUInt:
				result.SetU32(c, uint32(u))
			case KindSInt:
				result.SetS32(c, int32(int8(u)))
			case KindUNorm:
				result.SetF32(c, float32(u)/0xff)
			case KindSNorm:
				if int8(u) == math.MinInt8 {
					result.SetF32(c, -1)
				} else {
					result.SetF32(c, float32(int8(u))/0x7f)
				}
			}
		}
	}
	return result, nil
}
