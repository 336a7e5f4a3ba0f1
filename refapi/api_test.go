package refapi

import (
	"encoding/binary"
	"errors"
	"math"
	"testing"

	"github.com/rs/zerolog"

	"github.com/gogpu/shaderdbg/binding"
	"github.com/gogpu/shaderdbg/debugger"
	"github.com/gogpu/shaderdbg/dxbc"
	"github.com/gogpu/shaderdbg/value"
)

var (
	r32f  = value.TexelFormat{ByteWidth: 4, NumComps: 1, Kind: value.KindFloat}
	rg32u = value.TexelFormat{ByteWidth: 4, NumComps: 2, Kind: value.KindUInt}
	slot0 = binding.Slot{}
)

func floats(fs ...float32) []byte {
	b := make([]byte, 4*len(fs))
	for i, f := range fs {
		binary.LittleEndian.PutUint32(b[i*4:], math.Float32bits(f))
	}
	return b
}

func newAPI() *API {
	return New(zerolog.Nop())
}

func TestMathIntrinsics(t *testing.T) {
	a := newAPI()
	tests := []struct {
		op   dxbc.Opcode
		in   float32
		want float32
	}{
		{dxbc.OpRcp, 4, 0.25},
		{dxbc.OpRsq, 4, 0.5},
		{dxbc.OpExp, 3, 8},
		{dxbc.OpLog, 8, 3},
	}
	for _, tt := range tests {
		out, _, err := a.CalculateMathIntrinsic(tt.op, value.Float4("", tt.in, tt.in, tt.in, tt.in))
		if err != nil {
			t.Fatalf("%s: %v", tt.op, err)
		}
		for i := 0; i < 4; i++ {
			if out.F32(i) != tt.want {
				t.Errorf("%s(%v)[%d] = %v, want %v", tt.op, tt.in, i, out.F32(i), tt.want)
			}
		}
	}

	s, c, err := a.CalculateMathIntrinsic(dxbc.OpSinCos, value.Float4("", 0, 0, 0, 0))
	if err != nil {
		t.Fatal(err)
	}
	if s.F32(0) != 0 || c.F32(0) != 1 {
		t.Errorf("sincos(0) = %v, %v", s.F32(0), c.F32(0))
	}

	if _, _, err := a.CalculateMathIntrinsic(dxbc.OpAdd, value.Float4("", 0, 0, 0, 0)); err == nil {
		t.Error("add is not an intrinsic")
	}
}

func TestFetchUnbound(t *testing.T) {
	a := newAPI()
	if _, err := a.FetchSRV(slot0); !errors.Is(err, ErrUnbound) {
		t.Errorf("FetchSRV: %v", err)
	}
	if _, err := a.FetchUAV(slot0); !errors.Is(err, ErrUnbound) {
		t.Errorf("FetchUAV: %v", err)
	}
}

func TestFetchSharesBufferData(t *testing.T) {
	a := newAPI()
	buf := RawBuffer(make([]byte, 16))
	buf.HiddenCounter = 3
	a.BindUAV(slot0, buf)

	v, err := a.FetchUAV(slot0)
	if err != nil {
		t.Fatal(err)
	}
	if v.NumElements != 4 || v.IsTexture {
		t.Fatalf("view = %+v", v)
	}
	v.Data[0] = 0x7f
	if buf.Data[0] != 0x7f {
		t.Error("store through the view is not visible to the host")
	}

	if got := a.Counter(slot0); got != 3 {
		t.Errorf("Counter = %d, want 3", got)
	}
	v.HiddenCounter = 9
	if got := a.Counter(slot0); got != 9 {
		t.Errorf("Counter after increment = %d, want 9", got)
	}
}

func TestTextureView(t *testing.T) {
	a := newAPI()
	a.BindSRV(slot0, Texture2D(r32f, 4, 2, make([]byte, 32)))
	v, err := a.FetchSRV(slot0)
	if err != nil {
		t.Fatal(err)
	}
	if !v.IsTexture || v.RowPitch != 16 || v.DepthPitch != 32 {
		t.Errorf("view = %+v", v)
	}
}

func TestResourceInfo(t *testing.T) {
	a := newAPI()
	a.BindSRV(binding.Slot{Register: 0}, Texture2D(r32f, 8, 4, make([]byte, 128), make([]byte, 32)))
	a.BindSRV(binding.Slot{Register: 1}, Texture2DArray(r32f, 4, 4, 3, make([]byte, 192)))
	a.BindUAV(binding.Slot{Register: 0}, Buffer(rg32u, make([]byte, 40)))

	tests := []struct {
		name    string
		class   dxbc.OperandType
		slot    uint32
		mip     uint32
		want    [4]uint32
		wantDim int
	}{
		{"texture2d", dxbc.OperandResource, 0, 0, [4]uint32{8, 4, 0, 2}, 2},
		{"texture2d mip", dxbc.OperandResource, 0, 1, [4]uint32{4, 2, 0, 2}, 2},
		{"mip past end", dxbc.OperandResource, 0, 5, [4]uint32{0, 0, 0, 2}, 2},
		{"array", dxbc.OperandResource, 1, 0, [4]uint32{4, 4, 3, 1}, 3},
		{"buffer uav", dxbc.OperandUAV, 0, 0, [4]uint32{5, 0, 0, 0}, 1},
		{"unbound", dxbc.OperandResource, 9, 0, [4]uint32{}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, dim := a.GetResourceInfo(tt.class, binding.Slot{Register: tt.slot}, tt.mip)
			for i, w := range tt.want {
				if got.U32(i) != w {
					t.Errorf("lane %d = %d, want %d", i, got.U32(i), w)
				}
			}
			if dim != tt.wantDim {
				t.Errorf("dim = %d, want %d", dim, tt.wantDim)
			}
		})
	}
}

func TestSampleAndBufferInfo(t *testing.T) {
	a := newAPI()
	a.RasterizerSamples = 4
	ms := Texture2D(r32f, 2, 2, make([]byte, 16))
	ms.Dim = dxbc.DimTexture2DMS
	ms.SampleCount = 8
	a.BindSRV(slot0, ms)
	a.BindSRV(binding.Slot{Register: 1}, Buffer(r32f, make([]byte, 24)))

	if got := a.GetSampleInfo(dxbc.OperandRasterizer, false, slot0).U32(0); got != 4 {
		t.Errorf("rasterizer samples = %d", got)
	}
	if got := a.GetSampleInfo(dxbc.OperandResource, true, slot0).U32(0); got != 8 {
		t.Errorf("resource samples = %d", got)
	}
	if got := a.GetBufferInfo(dxbc.OperandResource, binding.Slot{Register: 1}); got.U32(0) != 6 || got.U32(3) != 6 {
		t.Errorf("bufinfo = %v", got)
	}
	if got := a.GetBufferInfo(dxbc.OperandResource, slot0).U32(0); got != 0 {
		t.Errorf("bufinfo on a texture = %d", got)
	}
}

func TestTexelReadWrite(t *testing.T) {
	a := newAPI()
	tex := Texture2D(r32f, 2, 2, floats(1, 2, 3, 4))
	a.BindUAV(slot0, tex)

	v, err := a.ReadTexel(slot0, [3]uint32{0, 1, 0})
	if err != nil {
		t.Fatal(err)
	}
	if v.F32(0) != 3 {
		t.Errorf("texel (0,1) = %v, want 3", v.F32(0))
	}

	if err := a.WriteTexel(slot0, [3]uint32{1, 1, 0}, value.Float4("", 0.5, 0, 0, 0)); err != nil {
		t.Fatal(err)
	}
	if got := math.Float32frombits(binary.LittleEndian.Uint32(tex.Mips[0][12:])); got != 0.5 {
		t.Errorf("stored texel = %v", got)
	}

	if err := a.WriteTexel(slot0, [3]uint32{5, 0, 0}, value.Float4("", 1, 0, 0, 0)); err != nil {
		t.Errorf("out of bounds write: %v", err)
	}
	if v, _ := a.ReadTexel(slot0, [3]uint32{0, 7, 0}); v.F32(0) != 0 {
		t.Errorf("out of bounds read = %v", v)
	}
	if _, err := a.ReadTexel(binding.Slot{Register: 3}, [3]uint32{}); !errors.Is(err, ErrUnbound) {
		t.Errorf("unbound read: %v", err)
	}
}

func TestMessages(t *testing.T) {
	a := newAPI()
	a.SetCurrentInstruction(12)
	a.AddDebugMessage(debugger.CategoryShaders, debugger.SeverityMedium, "sample index out of range")
	msgs := a.Messages()
	if len(msgs) != 1 {
		t.Fatalf("%d messages", len(msgs))
	}
	if m := msgs[0]; m.Instruction != 12 || m.Severity != debugger.SeverityMedium || m.Text != "sample index out of range" {
		t.Errorf("message = %+v", m)
	}
}
