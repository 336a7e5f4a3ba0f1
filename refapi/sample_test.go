package refapi

import (
	"errors"
	"testing"

	"github.com/gogpu/shaderdbg/binding"
	"github.com/gogpu/shaderdbg/debugger"
	"github.com/gogpu/shaderdbg/dxbc"
	"github.com/gogpu/shaderdbg/value"
)

var identity = [4]uint8{0, 1, 2, 3}

// quadTexture is a 2x2 single channel texture:
//
//	1 2
//	3 4
func quadTexture() *Resource {
	return Texture2D(r32f, 2, 2, floats(1, 2, 3, 4))
}

func sampleAt(t *testing.T, a *API, op debugger.SampleOp, u, v float32) value.ShaderVariable {
	t.Helper()
	req := &debugger.SampleRequest{
		Op:      op,
		Dim:     dxbc.DimTexture2D,
		UV:      value.Float4("", u, v, 0, 0),
		DDX:     value.Float4("", 0, 0, 0, 0),
		DDY:     value.Float4("", 0, 0, 0, 0),
		Swizzle: identity,
	}
	out, err := a.CalculateSampleGather(req)
	if err != nil {
		t.Fatalf("%s at (%v, %v): %v", op, u, v, err)
	}
	return out
}

func TestPointSampling(t *testing.T) {
	a := newAPI()
	a.BindSRV(slot0, quadTexture())

	tests := []struct {
		u, v float32
		want float32
	}{
		{0.25, 0.25, 1},
		{0.75, 0.25, 2},
		{0.25, 0.75, 3},
		{0.75, 0.75, 4},
		{1.5, -0.5, 2}, // clamped
	}
	for _, tt := range tests {
		if got := sampleAt(t, a, debugger.SampleNormal, tt.u, tt.v).F32(0); got != tt.want {
			t.Errorf("sample(%v, %v) = %v, want %v", tt.u, tt.v, got, tt.want)
		}
	}
}

func TestBilinear(t *testing.T) {
	a := newAPI()
	a.BindSRV(slot0, quadTexture())
	a.BindSampler(slot0, Sampler{Filter: FilterLinear})

	if got := sampleAt(t, a, debugger.SampleNormal, 0.5, 0.5).F32(0); got != 2.5 {
		t.Errorf("centre = %v, want 2.5", got)
	}
	// texel centres reproduce the texel
	if got := sampleAt(t, a, debugger.SampleNormal, 0.75, 0.25).F32(0); got != 2 {
		t.Errorf("texel centre = %v, want 2", got)
	}
}

func TestAddressModes(t *testing.T) {
	tests := []struct {
		mode AddressMode
		want float32
	}{
		{AddressClamp, 2},
		{AddressWrap, 1},
		{AddressMirror, 2},
		{AddressBorder, 9},
	}
	for _, tt := range tests {
		a := newAPI()
		a.BindSRV(slot0, quadTexture())
		a.BindSampler(slot0, Sampler{
			Address: [3]AddressMode{tt.mode, tt.mode, tt.mode},
			Border:  [4]float32{9, 9, 9, 9},
		})
		if got := sampleAt(t, a, debugger.SampleNormal, 1.25, 0.25).F32(0); got != tt.want {
			t.Errorf("mode %d: sample(1.25, 0.25) = %v, want %v", tt.mode, got, tt.want)
		}
	}
}

func TestAddressGeneric(t *testing.T) {
	if i, _ := address(int32(-1), 4, AddressWrap); i != 3 {
		t.Errorf("wrap(-1) = %d", i)
	}
	if i, _ := address(int64(-1), 4, AddressMirror); i != 0 {
		t.Errorf("mirror(-1) = %d", i)
	}
	if i, _ := address(7, 4, AddressMirror); i != 0 {
		t.Errorf("mirror(7) = %d", i)
	}
	if _, ok := address(4, 4, AddressBorder); ok {
		t.Error("border(4) should use the border colour")
	}
}

// mipTexture is 4x4 with three levels holding 1, 10 and 20 everywhere.
func mipTexture() *Resource {
	fill := func(n int, f float32) []byte {
		fs := make([]float32, n)
		for i := range fs {
			fs[i] = f
		}
		return floats(fs...)
	}
	return Texture2D(r32f, 4, 4, fill(16, 1), fill(4, 10), fill(1, 20))
}

func TestLevelSelection(t *testing.T) {
	a := newAPI()
	a.BindSRV(slot0, mipTexture())

	base := debugger.SampleRequest{
		Dim:     dxbc.DimTexture2D,
		UV:      value.Float4("", 0.3, 0.3, 0, 0),
		DDX:     value.Float4("", 0.5, 0, 0, 0),
		DDY:     value.Float4("", 0, 0, 0, 0),
		Swizzle: identity,
	}

	tests := []struct {
		name string
		op   debugger.SampleOp
		lod  float32
		bias float32
		want float32
	}{
		{"implicit", debugger.SampleNormal, 0, 0, 10},
		{"bias", debugger.SampleBias, 0, 1, 20},
		{"level", debugger.SampleLevel, 0.2, 0, 1},
		{"level clamped", debugger.SampleLevel, 5, 0, 20},
		{"grad", debugger.SampleGrad, 0, 0, 10},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := base
			req.Op, req.LODOrCompare, req.Bias = tt.op, tt.lod, tt.bias
			out, err := a.CalculateSampleGather(&req)
			if err != nil {
				t.Fatal(err)
			}
			if out.F32(0) != tt.want {
				t.Errorf("got %v, want %v", out.F32(0), tt.want)
			}
		})
	}

	req := base
	req.Op = debugger.SampleLOD
	req.DDX = value.Float4("", 2, 0, 0, 0)
	out, err := a.CalculateSampleGather(&req)
	if err != nil {
		t.Fatal(err)
	}
	if out.F32(0) != 2 || out.F32(1) != 3 {
		t.Errorf("lod = (%v, %v), want (2, 3)", out.F32(0), out.F32(1))
	}
}

func TestGather(t *testing.T) {
	a := newAPI()
	a.BindSRV(slot0, quadTexture())
	out := sampleAt(t, a, debugger.SampleGather, 0.5, 0.5)
	want := []float32{3, 4, 2, 1}
	for i, w := range want {
		if out.F32(i) != w {
			t.Errorf("gather[%d] = %v, want %v", i, out.F32(i), w)
		}
	}
}

func TestCompare(t *testing.T) {
	a := newAPI()
	a.BindSRV(slot0, quadTexture())
	a.BindSampler(slot0, Sampler{Compare: CompareLess})

	req := &debugger.SampleRequest{
		Op:           debugger.SampleCompareLevelZero,
		Dim:          dxbc.DimTexture2D,
		UV:           value.Float4("", 0.75, 0.75, 0, 0),
		LODOrCompare: 2.5,
		Swizzle:      identity,
	}
	out, err := a.CalculateSampleGather(req)
	if err != nil {
		t.Fatal(err)
	}
	if out.F32(0) != 1 {
		t.Errorf("2.5 < 4 = %v, want 1", out.F32(0))
	}

	req.UV = value.Float4("", 0.25, 0.25, 0, 0)
	if out, _ = a.CalculateSampleGather(req); out.F32(0) != 0 {
		t.Errorf("2.5 < 1 = %v, want 0", out.F32(0))
	}

	req.Op = debugger.SampleGatherCompare
	req.UV = value.Float4("", 0.5, 0.5, 0, 0)
	out, _ = a.CalculateSampleGather(req)
	for i, w := range []float32{1, 1, 0, 0} {
		if out.F32(i) != w {
			t.Errorf("gather4_c[%d] = %v, want %v", i, out.F32(i), w)
		}
	}
}

func TestLoad(t *testing.T) {
	a := newAPI()
	a.BindSRV(slot0, Texture2D(rg32u, 2, 1, []byte{
		1, 0, 0, 0, 2, 0, 0, 0,
		3, 0, 0, 0, 4, 0, 0, 0,
	}))

	load := func(x, y int32, off int8, sw [4]uint8) value.ShaderVariable {
		req := &debugger.SampleRequest{
			Op:          debugger.SampleLoad,
			Dim:         dxbc.DimTexture2D,
			UV:          value.SInt4("", x, y, 0, 0),
			TexelOffset: [3]int8{off, 0, 0},
			Swizzle:     sw,
		}
		out, err := a.CalculateSampleGather(req)
		if err != nil {
			t.Fatal(err)
		}
		return out
	}

	if v := load(1, 0, 0, identity); v.U32(0) != 3 || v.U32(1) != 4 {
		t.Errorf("ld (1,0) = %v", v)
	}
	if v := load(1, 0, -1, identity); v.U32(0) != 1 {
		t.Errorf("ld (1,0) offset -1 = %v", v)
	}
	if v := load(1, 0, 0, [4]uint8{1, 0, 1, 0}); v.U32(0) != 4 || v.U32(1) != 3 || v.U32(2) != 4 {
		t.Errorf("swizzled ld = %v", v)
	}
	if v := load(2, 0, 0, identity); v.U32(0) != 0 {
		t.Errorf("out of range ld = %v", v)
	}
}

func TestSampleErrors(t *testing.T) {
	a := newAPI()
	a.BindSRV(binding.Slot{Register: 1}, Buffer(r32f, floats(1)))
	a.BindSRV(binding.Slot{Register: 2}, quadTexture())

	if _, err := a.CalculateSampleGather(&debugger.SampleRequest{Resource: binding.Slot{Register: 7}}); !errors.Is(err, ErrUnbound) {
		t.Errorf("unbound: %v", err)
	}
	if _, err := a.CalculateSampleGather(&debugger.SampleRequest{Resource: binding.Slot{Register: 1}}); err == nil {
		t.Error("sampling a buffer succeeded")
	}
	cube := &debugger.SampleRequest{Resource: binding.Slot{Register: 2}, Dim: dxbc.DimTextureCube}
	if _, err := a.CalculateSampleGather(cube); err == nil {
		t.Error("sampling a cube succeeded")
	}
}
