package value

import (
	"math"
	"testing"
)

func TestFloat32ToHalf(t *testing.T) {
	tests := []struct {
		in   float32
		want uint16
	}{
		{0, 0x0000},
		{float32(math.Copysign(0, -1)), 0x8000},
		{1, 0x3c00},
		{-2, 0xc000},
		{0.5, 0x3800},
		{65504, 0x7bff},
		{65520, 0x7c00}, // rounds up past the largest finite half
		{1e9, 0x7c00},
		{float32(math.Ldexp(1, -24)), 0x0001},
		{float32(math.Ldexp(1, -26)), 0x0000},
		{posInf, 0x7c00},
		{negInf, 0xfc00},
	}
	for _, tt := range tests {
		if got := Float32ToHalf(tt.in); got != tt.want {
			t.Errorf("Float32ToHalf(%v) = 0x%04x, want 0x%04x", tt.in, got, tt.want)
		}
	}
	if got := Float32ToHalf(nan); got&0x7c00 != 0x7c00 || got&0x3ff == 0 {
		t.Errorf("Float32ToHalf(NaN) = 0x%04x, want a NaN", got)
	}
}

func TestHalfRoundTrip(t *testing.T) {
	for _, h := range []uint16{0x0000, 0x0001, 0x03ff, 0x0400, 0x3c00, 0x3555, 0x7bff, 0xc000, 0x7c00} {
		if got := Float32ToHalf(HalfToFloat32(h)); got != h {
			t.Errorf("round trip 0x%04x -> %v -> 0x%04x", h, HalfToFloat32(h), got)
		}
	}
	if !math.IsNaN(float64(HalfToFloat32(0x7e00))) {
		t.Error("0x7e00 should decode to NaN")
	}
}

func TestR11G11B10(t *testing.T) {
	r, g, b := UnpackR11G11B10(PackR11G11B10(1, 2, 0.5))
	if r != 1 || g != 2 || b != 0.5 {
		t.Errorf("unpack = %v %v %v, want 1 2 0.5", r, g, b)
	}

	r, _, _ = UnpackR11G11B10(PackR11G11B10(-4, 0, 0))
	if r != 0 {
		t.Errorf("negative red = %v, want 0", r)
	}

	r, _, _ = UnpackR11G11B10(PackR11G11B10(posInf, 0, 0))
	if !math.IsInf(float64(r), 1) {
		t.Errorf("infinite red = %v", r)
	}
}

func TestR10G10B10A2(t *testing.T) {
	u := PackR10G10B10A2(1, 0, 0.5, 1)
	if u&0x3ff != 1023 || (u>>10)&0x3ff != 0 || (u>>20)&0x3ff != 512 || u>>30 != 3 {
		t.Fatalf("packed = 0x%08x", u)
	}
	r, g, b, a := UnpackR10G10B10A2(u)
	if r != 1 || g != 0 || a != 1 {
		t.Errorf("unpack = %v %v %v %v", r, g, b, a)
	}
	if math.Abs(float64(b)-0.5) > 1.0/1023 {
		t.Errorf("blue = %v, want ~0.5", b)
	}

	// out of range inputs clamp
	if got := PackR10G10B10A2(2, -1, 0, 0); got != 1023 {
		t.Errorf("clamped pack = 0x%08x, want 0x3ff", got)
	}
}
