package debugger

import (
	"fmt"
	"math"
	"testing"

	"github.com/rs/zerolog"

	"github.com/gogpu/shaderdbg/binding"
	"github.com/gogpu/shaderdbg/dxbc"
	"github.com/gogpu/shaderdbg/value"
)

// fakeAPI is a minimal host: resources come from maps, sampling echoes the
// request and math uses package math.
type fakeAPI struct {
	srvs map[binding.Slot]*ResourceData
	uavs map[binding.Slot]*ResourceData

	fetches     int
	sampleCount uint32
	requests    []SampleRequest
	texels      map[[3]uint32]value.ShaderVariable
	messages    []string
	pc          int
}

func (f *fakeAPI) FetchSRV(slot binding.Slot) (*ResourceData, error) {
	f.fetches++
	return f.srvs[slot], nil
}

func (f *fakeAPI) FetchUAV(slot binding.Slot) (*ResourceData, error) {
	f.fetches++
	if res, ok := f.uavs[slot]; ok {
		return res, nil
	}
	return nil, fmt.Errorf("uav %v not bound", slot)
}

func (f *fakeAPI) CalculateMathIntrinsic(op dxbc.Opcode, in value.ShaderVariable) (value.ShaderVariable, value.ShaderVariable, error) {
	out := value.NewVariable("", value.TypeFloat, 1, 4)
	out2 := value.NewVariable("", value.TypeFloat, 1, 4)
	for i := 0; i < 4; i++ {
		x := float64(in.F32(i))
		switch op {
		case dxbc.OpRcp:
			out.SetF32(i, float32(1/x))
		case dxbc.OpRsq:
			out.SetF32(i, float32(1/math.Sqrt(x)))
		case dxbc.OpExp:
			out.SetF32(i, float32(math.Exp2(x)))
		case dxbc.OpLog:
			out.SetF32(i, float32(math.Log2(x)))
		case dxbc.OpSinCos:
			out.SetF32(i, float32(math.Sin(x)))
			out2.SetF32(i, float32(math.Cos(x)))
		default:
			return out, out2, fmt.Errorf("unsupported intrinsic %s", op)
		}
	}
	return out, out2, nil
}

func (f *fakeAPI) CalculateSampleGather(req *SampleRequest) (value.ShaderVariable, error) {
	f.requests = append(f.requests, *req)
	return value.Float4("", req.UV.F32(0), req.UV.F32(1), req.DDX.F32(0), req.DDY.F32(1)), nil
}

func (f *fakeAPI) GetResourceInfo(class dxbc.OperandType, slot binding.Slot, mip uint32) (value.ShaderVariable, int) {
	return value.UInt4("", 64>>mip, 32>>mip, 1, 7), 2
}

func (f *fakeAPI) GetSampleInfo(class dxbc.OperandType, absolute bool, slot binding.Slot) value.ShaderVariable {
	return value.UInt4("", f.sampleCount, 0, 0, 0)
}

func (f *fakeAPI) GetBufferInfo(class dxbc.OperandType, slot binding.Slot) value.ShaderVariable {
	return value.UInt4("", 16, 16, 16, 16)
}

func (f *fakeAPI) ReadTexel(slot binding.Slot, coord [3]uint32) (value.ShaderVariable, error) {
	return f.texels[coord], nil
}

func (f *fakeAPI) WriteTexel(slot binding.Slot, coord [3]uint32, v value.ShaderVariable) error {
	if f.texels == nil {
		f.texels = make(map[[3]uint32]value.ShaderVariable)
	}
	f.texels[coord] = v
	return nil
}

func (f *fakeAPI) AddDebugMessage(cat MessageCategory, sev MessageSeverity, text string) {
	f.messages = append(f.messages, text)
}

func (f *fakeAPI) SetCurrentInstruction(pc int) {
	f.pc = pc
}

// ---------------------------------------------------------------------------
// Program construction
// ---------------------------------------------------------------------------

func inst(op dxbc.Opcode, operands ...dxbc.Operand) dxbc.Operation {
	return dxbc.Operation{Opcode: op, Operands: operands}
}

// instNZ builds a conditional instruction that is taken on non-zero.
func instNZ(op dxbc.Opcode, operands ...dxbc.Operand) dxbc.Operation {
	return dxbc.Operation{Opcode: op, Operands: operands, NonZero: true}
}

// reg returns temp register i with the given swizzle or mask.
func reg(i uint64, comps ...uint8) dxbc.Operand {
	return dxbc.NewOperand(dxbc.OperandTemp, i).WithSwizzle(comps...)
}

func r4(i uint64) dxbc.Operand { return reg(i, 0, 1, 2, 3) }
func rx(i uint64) dxbc.Operand { return reg(i, 0) }

func in4(i uint64) dxbc.Operand {
	return dxbc.NewOperand(dxbc.OperandInput, i).WithSwizzle(0, 1, 2, 3)
}

func u32(v ...uint32) dxbc.Operand  { return dxbc.ImmediateU32(v...) }
func f32(v ...float32) dxbc.Operand { return dxbc.ImmediateF32(v...) }

func computeProgram(numTemps uint32, insts ...dxbc.Operation) *dxbc.Program {
	return &dxbc.Program{
		Type:         dxbc.ShaderCompute,
		Major:        5,
		Declarations: []dxbc.Declaration{{Opcode: dxbc.OpDclTemps, NumTemps: numTemps}},
		Instructions: insts,
	}
}

func pixelProgram(numTemps uint32, insts ...dxbc.Operation) *dxbc.Program {
	p := computeProgram(numTemps, insts...)
	p.Type = dxbc.ShaderPixel
	return p
}

func newTestThread(p *dxbc.Program) *ThreadState {
	return newThreadState(0, p, NewGlobalState(zerolog.Nop()),
		binding.NewResolver(p, binding.ShaderModelFor(p.Major, p.Minor)), zerolog.Nop(), true)
}

// runThread steps a single lane until it finishes.
func runThread(t *testing.T, th *ThreadState, api APIWrapper) []State {
	t.Helper()
	var states []State
	for i := 0; !th.Finished(); i++ {
		if i > 10000 {
			t.Fatal("thread did not finish")
		}
		var st State
		if err := th.StepNext(&st, api, nil); err != nil {
			t.Fatalf("StepNext at %d: %v", th.pc, err)
		}
		states = append(states, st)
	}
	return states
}

// exec1 runs one instruction followed by ret on a fresh thread.
func exec1(t *testing.T, op dxbc.Operation) *ThreadState {
	t.Helper()
	th := newTestThread(computeProgram(4, op, inst(dxbc.OpRet)))
	runThread(t, th, &fakeAPI{})
	return th
}

func singleLane() Target {
	return Target{Lanes: []Invocation{{}}}
}

func nopConfig() Config {
	cfg := DefaultConfig()
	cfg.Logger = zerolog.Nop()
	return cfg
}
