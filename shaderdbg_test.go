package shaderdbg_test

import (
	"context"
	"encoding/binary"
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"github.com/gogpu/shaderdbg"
	"github.com/gogpu/shaderdbg/binding"
	"github.com/gogpu/shaderdbg/debugger"
	"github.com/gogpu/shaderdbg/dxbc"
	"github.com/gogpu/shaderdbg/refapi"
	"github.com/gogpu/shaderdbg/scenario"
	"github.com/gogpu/shaderdbg/value"
)

func assemble(t testing.TB, src string) *dxbc.Program {
	t.Helper()
	p, err := scenario.Assemble(src)
	if err != nil {
		t.Fatalf("assemble: %v", err)
	}
	return p
}

func withOutputs(p *dxbc.Program, n int) *dxbc.Program {
	p.Reflection = &dxbc.Reflection{}
	for i := 0; i < n; i++ {
		p.Reflection.OutputSig = append(p.Reflection.OutputSig, dxbc.SignatureParameter{
			SemanticName:   "SV_Target",
			SemanticIndex:  uint32(i),
			Register:       int32(i),
			SystemValue:    dxbc.SVTarget,
			CompType:       dxbc.CompFloat,
			RegChannelMask: 0xf,
		})
	}
	return p
}

func testOptions() shaderdbg.Options {
	opts := shaderdbg.DefaultOptions()
	opts.Config.Logger = zerolog.Nop()
	return opts
}

const threadIDs = `
cs_5_0
dcl_uav_raw u0
dcl_temps 2
dcl_thread_group 4, 2, 1
mov r0.xy, vThreadID.xyxx
ishl r1.x, vThreadIDInGroupFlattened.x, l(2)
store_raw u0.x, r1.x, vThreadIDInGroupFlattened.x
ret
`

func TestDebugThread(t *testing.T) {
	p := assemble(t, threadIDs)
	api := refapi.New(zerolog.Nop())
	buf := make([]byte, 8*4)
	api.BindUAV(binding.Slot{}, refapi.RawBuffer(buf))

	tr, err := shaderdbg.DebugThread(context.Background(), p, api,
		[3]uint32{2, 0, 0}, [3]uint32{3, 1, 0}, shaderdbg.Inputs{}, testOptions())
	if err != nil {
		t.Fatal(err)
	}
	if !tr.Finished {
		t.Fatal("thread did not finish")
	}
	if got := len(tr.States) - 1; got != 4 {
		t.Errorf("steps = %d, want 4", got)
	}

	r0 := tr.Values()["r0"]
	if r0.U32(0) != 11 || r0.U32(1) != 1 {
		t.Errorf("vThreadID = (%d, %d), want (11, 1)", r0.U32(0), r0.U32(1))
	}

	// Every lane of the group ran, not just the traced one.
	for i := 0; i < 8; i++ {
		if got := binary.LittleEndian.Uint32(buf[i*4:]); got != uint32(i) {
			t.Errorf("u0[%d] = %d, want %d", i, got, i)
		}
	}
}

// handoff has thread 0 publish a value through groupshared memory after a
// few extra instructions; thread 1 only sees it if the barrier holds.
const handoff = `
cs_5_0
dcl_tgsm_raw g0, 4
dcl_temps 2
dcl_thread_group 2, 1, 1
if_z vThreadIDInGroupFlattened.x
  mov r1.x, l(1)
  iadd r1.x, r1.x, l(1)
  iadd r1.x, r1.x, l(1)
  store_raw g0.x, l(0), l(42)
endif
sync_g_t
ld_raw r0.x, l(0), g0.xxxx
ret
`

func TestDebugThreadBarrier(t *testing.T) {
	p := assemble(t, handoff)
	for thread := uint32(0); thread < 2; thread++ {
		tr, err := shaderdbg.DebugThread(context.Background(), p, refapi.New(zerolog.Nop()),
			[3]uint32{}, [3]uint32{thread, 0, 0}, shaderdbg.Inputs{}, testOptions())
		if err != nil {
			t.Fatal(err)
		}
		if !tr.Finished {
			t.Fatalf("thread %d did not finish", thread)
		}
		if got := tr.Values()["r0"].U32(0); got != 42 {
			t.Errorf("thread %d read g0 = %d, want 42", thread, got)
		}
	}
}

func TestDebugThreadErrors(t *testing.T) {
	ctx := context.Background()
	api := refapi.New(zerolog.Nop())
	cs := assemble(t, threadIDs)

	var dbgErr *debugger.Error
	_, err := shaderdbg.DebugThread(ctx, cs, api, [3]uint32{}, [3]uint32{4, 0, 0}, shaderdbg.Inputs{}, testOptions())
	if !errors.As(err, &dbgErr) || !dbgErr.IsInvalidTarget() {
		t.Errorf("thread outside group: err = %v", err)
	}

	vs := assemble(t, "vs_5_0\nret")
	_, err = shaderdbg.DebugThread(ctx, vs, api, [3]uint32{}, [3]uint32{}, shaderdbg.Inputs{}, testOptions())
	if !errors.As(err, &dbgErr) || !dbgErr.IsInvalidTarget() {
		t.Errorf("vertex shader: err = %v", err)
	}

	_, err = shaderdbg.DebugThread(ctx, nil, api, [3]uint32{}, [3]uint32{}, shaderdbg.Inputs{}, testOptions())
	if !errors.As(err, &dbgErr) || !dbgErr.IsMalformedProgram() {
		t.Errorf("nil program: err = %v", err)
	}
}

func TestDebugPixel(t *testing.T) {
	p := withOutputs(assemble(t, `
ps_5_0
dcl_input_ps v0.xy
dcl_output o0.xyzw
dcl_output o1.xyzw
add o0.xy, v0.xyxx, l(1.0, 1.0, 0, 0)
deriv_rtx_fine o1.x, v0.x
deriv_rty_fine o1.y, v0.y
ret
`), 2)

	px := shaderdbg.Pixel{
		Inputs:   []value.ShaderVariable{value.Float4("v0", 2, 5, 0, 0)},
		DDX:      []value.ShaderVariable{value.Float4("", 0.5, 0, 0, 0)},
		DDY:      []value.ShaderVariable{value.Float4("", 0, -3, 0, 0)},
		QuadLane: 1,
	}
	px.Inputs[0].Columns = 2

	for lane := 0; lane < 4; lane++ {
		px.QuadLane = lane
		tr, err := shaderdbg.DebugPixel(context.Background(), p, refapi.New(zerolog.Nop()),
			px, shaderdbg.Inputs{}, testOptions())
		if err != nil {
			t.Fatalf("lane %d: %v", lane, err)
		}
		vals := tr.Values()
		o0, o1 := vals["o0"], vals["o1"]
		if o0.F32(0) != 3 || o0.F32(1) != 6 {
			t.Errorf("lane %d: o0 = (%v, %v), want (3, 6)", lane, o0.F32(0), o0.F32(1))
		}
		if o1.F32(0) != 0.5 || o1.F32(1) != -3 {
			t.Errorf("lane %d: derivatives = (%v, %v), want (0.5, -3)", lane, o1.F32(0), o1.F32(1))
		}
	}

	px.QuadLane = 4
	if _, err := shaderdbg.DebugPixel(context.Background(), p, refapi.New(zerolog.Nop()),
		px, shaderdbg.Inputs{}, testOptions()); err == nil {
		t.Error("quad lane 4 accepted")
	}
}

func TestDebugVertex(t *testing.T) {
	p := withOutputs(assemble(t, `
vs_5_0
dcl_constant_buffer cb0[1]
dcl_input v0.xyzw
dcl_output o0.xyzw
mul o0.xyzw, v0.xyzw, cb0[0].xyzw
ret
`), 1)

	cb := make([]byte, 16)
	for i, f := range []float32{2, 3, 4, 5} {
		binary.LittleEndian.PutUint32(cb[i*4:], math.Float32bits(f))
	}
	in := shaderdbg.Inputs{ConstantBuffers: map[binding.Slot][]byte{{}: cb}}

	tr, err := shaderdbg.DebugVertex(context.Background(), p, refapi.New(zerolog.Nop()),
		[]value.ShaderVariable{value.Float4("v0", 1, 1, 2, 0.5)}, debugger.Semantics{}, in, testOptions())
	if err != nil {
		t.Fatal(err)
	}
	o0 := tr.Values()["o0"]
	want := [4]float32{2, 3, 8, 2.5}
	for c, w := range want {
		if got := o0.F32(c); got != w {
			t.Errorf("o0[%d] = %v, want %v", c, got, w)
		}
	}
	if len(tr.ConstantBlocks) != 1 {
		t.Errorf("trace has %d constant blocks, want 1", len(tr.ConstantBlocks))
	}

	ps := assemble(t, "ps_5_0\nret")
	if _, err := shaderdbg.DebugVertex(context.Background(), ps, refapi.New(zerolog.Nop()),
		nil, debugger.Semantics{}, shaderdbg.Inputs{}, testOptions()); err == nil {
		t.Error("pixel shader accepted by DebugVertex")
	}
}

func TestValidateOption(t *testing.T) {
	p := assemble(t, `
cs_5_0
dcl_temps 1
dcl_thread_group 1, 1, 1
loop
mov r0.x, l(1)
ret
`)
	api := refapi.New(zerolog.Nop())

	if err := shaderdbg.Validate(p); err == nil || !strings.Contains(err.Error(), "unterminated") {
		t.Errorf("Validate = %v, want unterminated loop", err)
	}

	_, err := shaderdbg.DebugThread(context.Background(), p, api, [3]uint32{}, [3]uint32{}, shaderdbg.Inputs{}, testOptions())
	if err == nil {
		t.Error("invalid program accepted with Validate set")
	}

	opts := testOptions()
	opts.Validate = false
	tr, err := shaderdbg.DebugThread(context.Background(), p, api, [3]uint32{}, [3]uint32{}, shaderdbg.Inputs{}, opts)
	if err != nil {
		t.Fatalf("Validate off: %v", err)
	}
	if !tr.Finished {
		t.Error("ret inside loop did not finish")
	}
}

func TestShaderModelOverride(t *testing.T) {
	p := assemble(t, `
cs_5_0
dcl_temps 1
dcl_thread_group 1, 1, 1
mov r0.x, l(7)
ret
`)
	sm := binding.ShaderModel5_1
	opts := testOptions()
	opts.ShaderModel = &sm

	tr, err := shaderdbg.DebugThread(context.Background(), p, refapi.New(zerolog.Nop()),
		[3]uint32{}, [3]uint32{}, shaderdbg.Inputs{}, opts)
	if err != nil {
		t.Fatal(err)
	}
	if got := tr.Values()["r0"].U32(0); got != 7 {
		t.Errorf("r0.x = %d, want 7", got)
	}
	if p.Minor != 0 {
		t.Errorf("override changed the caller's program to %s", p.Profile())
	}
}
