package value

import "math"

// Float32ToHalf converts f to IEEE 754 binary16, rounding to nearest even.
// Values too large for half become infinity; NaN stays NaN.
func Float32ToHalf(f float32) uint16 {
	bits := math.Float32bits(f)
	sign := uint16(bits>>16) & 0x8000
	exp := int32(bits>>23) & 0xff
	mant := bits & 0x7fffff

	if exp == 0xff {
		if mant != 0 {
			return sign | 0x7e00
		}
		return sign | 0x7c00
	}

	e := exp - 127 + 15
	if e >= 0x1f {
		return sign | 0x7c00
	}

	if e <= 0 {
		// subnormal half or zero
		if e < -10 {
			return sign
		}
		mant |= 0x800000
		shift := uint32(14 - e)
		half := mant >> shift
		rem := mant & (1<<shift - 1)
		mid := uint32(1) << (shift - 1)
		if rem > mid || (rem == mid && half&1 != 0) {
			half++
		}
		return sign | uint16(half)
	}

	half := uint32(e)<<10 | mant>>13
	rem := mant & 0x1fff
	if rem > 0x1000 || (rem == 0x1000 && half&1 != 0) {
		// carry may roll into the exponent, which yields infinity correctly
		half++
	}
	return sign | uint16(half)
}

// HalfToFloat32 widens an IEEE 754 binary16 value.
func HalfToFloat32(h uint16) float32 {
	sign := uint32(h&0x8000) << 16
	exp := uint32(h>>10) & 0x1f
	mant := uint32(h & 0x3ff)

	switch {
	case exp == 0x1f:
		return math.Float32frombits(sign | 0x7f800000 | mant<<13)
	case exp == 0:
		if mant == 0 {
			return math.Float32frombits(sign)
		}
		f := float32(mant) * (1.0 / (1 << 24))
		if sign != 0 {
			return -f
		}
		return f
	}
	return math.Float32frombits(sign | (exp+127-15)<<23 | mant<<13)
}

// packUFloat encodes a non-negative float into an unsigned small float
// with a 5-bit exponent and mantBits of mantissa (6 for R11/G11, 5 for B10).
// Negative values clamp to zero.
func packUFloat(f float32, mantBits uint) uint32 {
	bits := math.Float32bits(f)
	expMask := uint32(0x1f) << mantBits
	maxFinite := uint32(30)<<mantBits | (1<<mantBits - 1)

	switch {
	case f != f:
		return expMask | 1<<(mantBits-1)
	case bits&0x80000000 != 0 || f == 0:
		return 0
	case math.IsInf(float64(f), 1):
		return expMask
	}

	exp := int32(bits>>23&0xff) - 127 + 15
	mant := bits & 0x7fffff
	shift := 23 - mantBits

	var v uint32
	if exp <= 0 {
		mant |= 0x800000
		s := uint32(1 - exp)
		if s > 24 {
			return 0
		}
		v = mant >> s
	} else {
		v = uint32(exp)<<23 | mant
	}

	v = (v + (1 << (shift - 1)) - 1 + (v>>shift)&1) >> shift
	if v > maxFinite {
		return maxFinite
	}
	return v
}

func unpackUFloat(v uint32, mantBits uint) float32 {
	exp := (v >> mantBits) & 0x1f
	mant := v & (1<<mantBits - 1)

	switch {
	case exp == 0x1f:
		if mant != 0 {
			return float32(math.NaN())
		}
		return float32(math.Inf(1))
	case exp == 0:
		return float32(mant) * float32(math.Pow(2, -14-float64(mantBits)))
	}
	return math.Float32frombits((exp+127-15)<<23 | mant<<(23-mantBits))
}

// PackR11G11B10 encodes three non-negative floats into the packed
// R11G11B10_FLOAT layout.
func PackR11G11B10(r, g, b float32) uint32 {
	return packUFloat(r, 6) | packUFloat(g, 6)<<11 | packUFloat(b, 5)<<22
}

// UnpackR11G11B10 decodes the packed R11G11B10_FLOAT layout.
func UnpackR11G11B10(u uint32) (r, g, b float32) {
	return unpackUFloat(u&0x7ff, 6), unpackUFloat((u>>11)&0x7ff, 6), unpackUFloat((u>>22)&0x3ff, 5)
}

// PackR10G10B10A2 encodes four [0,1] floats as R10G10B10A2_UNORM.
func PackR10G10B10A2(r, g, b, a float32) uint32 {
	enc := func(f float32, maxv float32) uint32 {
		return uint32(Clamp(f, 0, 1)*maxv + 0.5)
	}
	return enc(r, 1023) | enc(g, 1023)<<10 | enc(b, 1023)<<20 | enc(a, 3)<<30
}

// UnpackR10G10B10A2 decodes R10G10B10A2_UNORM.
func UnpackR10G10B10A2(u uint32) (r, g, b, a float32) {
	return float32(u&0x3ff) / 1023, float32((u>>10)&0x3ff) / 1023,
		float32((u>>20)&0x3ff) / 1023, float32(u>>30) / 3
}
