package debugger

import (
	"context"
	"encoding/binary"
	"testing"

	"github.com/gogpu/shaderdbg/binding"
	"github.com/gogpu/shaderdbg/dxbc"
	"github.com/gogpu/shaderdbg/value"
)

func u0(comps ...uint8) dxbc.Operand {
	return dxbc.NewOperand(dxbc.OperandUAV, 0).WithSwizzle(comps...)
}

func words(b []byte) []uint32 {
	out := make([]uint32, len(b)/4)
	for i := range out {
		out[i] = binary.LittleEndian.Uint32(b[i*4:])
	}
	return out
}

func putWords(ws ...uint32) []byte {
	b := make([]byte, 4*len(ws))
	for i, w := range ws {
		binary.LittleEndian.PutUint32(b[i*4:], w)
	}
	return b
}

// typedUAV runs insts against a four element R32_UINT buffer UAV.
func typedUAV(t *testing.T, data []uint32, insts ...dxbc.Operation) (*ThreadState, *ResourceData) {
	t.Helper()
	p := computeProgram(4, append(insts, inst(dxbc.OpRet))...)
	p.Declarations = append(p.Declarations, dxbc.Declaration{
		Opcode: dxbc.OpDclUAVTyped, Operand: dxbc.NewOperand(dxbc.OperandUAV, 0), Dim: dxbc.DimBuffer,
	})
	res := &ResourceData{
		Data:        putWords(data...),
		Format:      value.TexelFormat{ByteWidth: 4, NumComps: 1, Kind: value.KindUInt},
		NumElements: uint32(len(data)),
	}
	api := &fakeAPI{uavs: map[binding.Slot]*ResourceData{{Register: 0}: res}}
	th := newTestThread(p)
	runThread(t, th, api)
	return th, res
}

func TestAtomicOutOfBounds(t *testing.T) {
	th, res := typedUAV(t, []uint32{1, 2, 3, 4},
		inst(dxbc.OpMov, rx(0), u32(0xaa)),
		inst(dxbc.OpImmAtomicIAdd, rx(0), u0(), u32(5), u32(1)),
		inst(dxbc.OpAtomicIAdd, u0(), u32(4), u32(1)),
	)
	if got := th.Registers[0].U32(0); got != 0xaa {
		t.Errorf("r0.x = 0x%x, want the old 0xaa", got)
	}
	if got := words(res.Data); got[0] != 1 || got[1] != 2 || got[2] != 3 || got[3] != 4 {
		t.Errorf("buffer changed: %v", got)
	}
}

func TestAtomics(t *testing.T) {
	th, res := typedUAV(t, []uint32{0xf0, 2, 3, 0xffffffff},
		inst(dxbc.OpImmAtomicIAdd, rx(0), u0(), u32(2), u32(7)),
		inst(dxbc.OpAtomicUMax, u0(), u32(1), u32(9)),
		inst(dxbc.OpImmAtomicCmpExch, rx(1), u0(), u32(2), u32(10), u32(42)),
		inst(dxbc.OpImmAtomicCmpExch, rx(2), u0(), u32(1), u32(1), u32(77)),
		inst(dxbc.OpAtomicAnd, u0(), u32(0), u32(0x3c)),
		inst(dxbc.OpImmAtomicIMax, rx(3), u0(), u32(3), u32(5)),
	)

	want := []uint32{0x30, 9, 42, 5}
	got := words(res.Data)
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("element %d = 0x%x, want 0x%x", i, got[i], want[i])
		}
	}

	// immediate variants return the previous value
	for reg, w := range []uint32{3, 10, 9, 0xffffffff} {
		if g := th.Registers[reg].U32(0); g != w {
			t.Errorf("r%d.x = 0x%x, want 0x%x", reg, g, w)
		}
	}
}

func TestCounter(t *testing.T) {
	p := computeProgram(3,
		inst(dxbc.OpImmAtomicAlloc, rx(0), u0()),
		inst(dxbc.OpImmAtomicAlloc, rx(1), u0()),
		inst(dxbc.OpImmAtomicConsume, rx(2), u0()),
		inst(dxbc.OpRet),
	)
	p.Declarations = append(p.Declarations, dxbc.Declaration{
		Opcode: dxbc.OpDclUAVStructured, Operand: dxbc.NewOperand(dxbc.OperandUAV, 0),
		Stride: 4, HasCounter: true,
	})
	res := &ResourceData{Data: make([]byte, 16), Format: value.TexelFormat{ByteWidth: 4, NumComps: 1, Stride: 4},
		NumElements: 4, HiddenCounter: 5}
	th := newTestThread(p)
	runThread(t, th, &fakeAPI{uavs: map[binding.Slot]*ResourceData{{}: res}})

	for reg, w := range []uint32{5, 6, 6} {
		if g := th.Registers[reg].U32(0); g != w {
			t.Errorf("r%d.x = %d, want %d", reg, g, w)
		}
	}
	if res.HiddenCounter != 6 {
		t.Errorf("counter = %d, want 6", res.HiddenCounter)
	}
}

func TestRawUAV(t *testing.T) {
	p := computeProgram(3,
		inst(dxbc.OpStoreRaw, u0(0, 1), u32(4), u32(11, 22, 33, 44)),
		inst(dxbc.OpStoreRaw, u0(0, 2), u32(14), u32(55, 66, 77, 88)), // gap in mask: x only
		inst(dxbc.OpLdRaw, r4(0), u32(4), u0()),
		inst(dxbc.OpLdRaw, reg(1, 0), u32(8), u0(1, 1, 1, 1)),
		inst(dxbc.OpLdRaw, r4(2), u32(64), u0()),
		inst(dxbc.OpRet),
	)
	p.Declarations = append(p.Declarations, dxbc.Declaration{
		Opcode: dxbc.OpDclUAVRaw, Operand: dxbc.NewOperand(dxbc.OperandUAV, 0),
	})
	res := &ResourceData{Data: make([]byte, 20), Format: value.TexelFormat{ByteWidth: 4, NumComps: 1}, NumElements: 5}
	th := newTestThread(p)
	states := runThread(t, th, &fakeAPI{uavs: map[binding.Slot]*ResourceData{{}: res}})

	// the second store's address is rounded down to byte 12
	if got := words(res.Data); got[0] != 0 || got[1] != 11 || got[2] != 22 || got[3] != 55 || got[4] != 0 {
		t.Errorf("buffer = %v", got)
	}
	if r := th.Registers[0]; r.U32(0) != 11 || r.U32(1) != 22 || r.U32(2) != 55 || r.U32(3) != 0 {
		t.Errorf("r0 = %v", r)
	}
	if got := th.Registers[1].U32(0); got != 55 {
		t.Errorf("r1.x = %d, want 55", got)
	}
	for i := 0; i < 4; i++ {
		if got := th.Registers[2].U32(i); got != 0 {
			t.Errorf("out of bounds load r2[%d] = %d", i, got)
		}
	}
	if !states[2].Flags.Has(EventSampleLoadGather) || states[0].Flags.Has(EventSampleLoadGather) {
		t.Error("load flag should be set on loads only")
	}
}

func TestStructuredGroupshared(t *testing.T) {
	g := dxbc.NewOperand(dxbc.OperandThreadGroupSharedMemory, 0)
	p := computeProgram(2,
		inst(dxbc.OpStoreStructured, g.WithSwizzle(0, 1, 2), u32(1), u32(4), u32(7, 8, 9, 10)),
		inst(dxbc.OpLdStructured, r4(0), u32(1), u32(4), g),
		inst(dxbc.OpLdStructured, r4(1), u32(3), u32(0), g),
		inst(dxbc.OpRet),
	)
	p.Declarations = append(p.Declarations, dxbc.Declaration{
		Opcode: dxbc.OpDclTGSMStructured, Operand: g, Stride: 12, Count: 3,
	})
	th := newTestThread(p)
	th.global.PopulateGroupshared(p)
	runThread(t, th, &fakeAPI{})

	gs := th.global.Groupshared(0)
	if gs == nil || len(gs.Data) != 36 {
		t.Fatalf("groupshared block = %+v", gs)
	}
	// element 1 at byte 12; offset 4 leaves room for two dwords
	if got := words(gs.Data); got[4] != 7 || got[5] != 8 || got[6] != 0 {
		t.Errorf("groupshared = %v", got)
	}
	if r := th.Registers[0]; r.U32(0) != 7 || r.U32(1) != 8 || r.U32(2) != 0 {
		t.Errorf("r0 = %v", r)
	}
	if r := th.Registers[1]; r.U32(0) != 0 {
		t.Errorf("element 3 of 3 should read zero, got %v", r)
	}
}

func TestRawGroupsharedSharedAcrossLanes(t *testing.T) {
	g := dxbc.NewOperand(dxbc.OperandThreadGroupSharedMemory, 0)
	p := computeProgram(1,
		inst(dxbc.OpMov, rx(0), dxbc.NewOperand(dxbc.OperandInputThreadIDInGroupFlattened).WithSwizzle(0)),
		inst(dxbc.OpIShl, rx(0), rx(0), u32(2)),
		inst(dxbc.OpStoreRaw, g.WithSwizzle(0), rx(0), rx(0)),
		inst(dxbc.OpRet),
	)
	p.Declarations = append(p.Declarations,
		dxbc.Declaration{Opcode: dxbc.OpDclThreadGroup, GroupSize: [3]uint32{4, 1, 1}},
		dxbc.Declaration{Opcode: dxbc.OpDclTGSMRaw, Operand: g, Count: 16},
	)

	target := Target{Lanes: make([]Invocation, 4)}
	for i := range target.Lanes {
		target.Lanes[i].Semantics.ThreadID = [3]uint32{uint32(i), 0, 0}
	}
	d, err := New(p, &fakeAPI{}, target, nopConfig())
	if err != nil {
		t.Fatal(err)
	}
	if _, err := d.ContinueDebug(context.Background()); err != nil {
		t.Fatal(err)
	}
	if got := words(d.Global().Groupshared(0).Data); got[0] != 0 || got[1] != 4 || got[2] != 8 || got[3] != 12 {
		t.Errorf("groupshared = %v", got)
	}
}

func TestTypedLoadStore(t *testing.T) {
	th, res := typedUAV(t, []uint32{0, 0, 0, 0},
		inst(dxbc.OpStoreUAVTyped, u0(0, 1, 2, 3), u32(2), u32(0x1234, 0, 0, 0)),
		inst(dxbc.OpLdUAVTyped, reg(0, 1), u32(2), u0(0, 0, 0, 0)),
		inst(dxbc.OpLdUAVTyped, r4(1), u32(9), u0()),
	)
	if got := words(res.Data)[2]; got != 0x1234 {
		t.Errorf("element 2 = 0x%x", got)
	}
	if got := th.Registers[0].U32(1); got != 0x1234 {
		t.Errorf("r0.y = 0x%x, want 0x1234", got)
	}
	if got := th.Registers[1].U32(0); got != 0 {
		t.Errorf("out of bounds typed load = 0x%x", got)
	}
}

func TestTextureUAVGoesThroughHost(t *testing.T) {
	p := computeProgram(2,
		inst(dxbc.OpStoreUAVTyped, u0(0, 1, 2, 3), u32(3, 4, 0, 0), f32(0.5, 0.25, 0, 1)),
		inst(dxbc.OpLdUAVTyped, r4(0), u32(3, 4, 0, 0), u0()),
		inst(dxbc.OpImmAtomicIAdd, rx(1), u0(), u32(3, 4, 0, 0), u32(1)),
		inst(dxbc.OpRet),
	)
	p.Declarations = append(p.Declarations, dxbc.Declaration{
		Opcode: dxbc.OpDclUAVTyped, Operand: dxbc.NewOperand(dxbc.OperandUAV, 0), Dim: dxbc.DimTexture2D,
	})
	res := &ResourceData{IsTexture: true, Format: value.TexelFormat{ByteWidth: 4, NumComps: 4, Kind: value.KindFloat}}
	api := &fakeAPI{uavs: map[binding.Slot]*ResourceData{{}: res}}
	th := newTestThread(p)
	runThread(t, th, api)

	if got := th.Registers[0].F32(1); got != 0.25 {
		t.Errorf("r0.y = %v, want 0.25", got)
	}
	if got := th.Registers[1].U32(0); got != 0x3f000000 {
		t.Errorf("atomic returned 0x%x, want the bits of 0.5", got)
	}
	texel := api.texels[[3]uint32{3, 4, 0}]
	if got := texel.U32(0); got != 0x3f000001 {
		t.Errorf("texel x after add = 0x%x", got)
	}
}
