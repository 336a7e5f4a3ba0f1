package debugger

import (
	"fmt"

	"github.com/rs/zerolog"
	"golang.org/x/exp/slices"

	"github.com/gogpu/shaderdbg/binding"
	"github.com/gogpu/shaderdbg/dxbc"
	"github.com/gogpu/shaderdbg/value"
)

// Semantics are the built-in inputs of one invocation.
type Semantics struct {
	// GroupID and ThreadID locate a compute invocation; ThreadID is
	// relative to its group.
	GroupID  [3]uint32
	ThreadID [3]uint32

	Coverage    uint32
	PrimitiveID uint32
	IsFrontFace bool
}

type callFrame struct {
	returnPC int
	live     []string
	function string
}

// ThreadState is one simulated invocation: its register file, program
// counter, call stack and built-in inputs. A ThreadState exclusively owns
// its registers; the GlobalState is shared with the rest of the workgroup.
type ThreadState struct {
	// Lane is the index of this invocation in its workgroup.
	Lane int

	Registers      []value.ShaderVariable
	IndexableTemps []value.ShaderVariable
	Inputs         []value.ShaderVariable
	Outputs        []value.ShaderVariable
	Semantics      Semantics

	program      *dxbc.Program
	global       *GlobalState
	resolver     *binding.Resolver
	log          zerolog.Logger
	traceChanges bool

	// specialOutputs maps output system values with no register (depth,
	// coverage mask, stencil ref) to their index in Outputs.
	specialOutputs map[dxbc.SystemValue]int

	nextInstruction int
	done            bool
	callStack       []callFrame
	live            []string

	// per-step results
	pc      int
	flags   EventFlags
	changes []Change
}

func newThreadState(lane int, p *dxbc.Program, global *GlobalState, resolver *binding.Resolver, log zerolog.Logger, traceChanges bool) *ThreadState {
	t := &ThreadState{
		Lane:           lane,
		program:        p,
		global:         global,
		resolver:       resolver,
		log:            log.With().Int("lane", lane).Logger(),
		traceChanges:   traceChanges,
		specialOutputs: make(map[dxbc.SystemValue]int),
	}
	t.declareRegisters()
	return t
}

func (t *ThreadState) declareRegisters() {
	p := t.program
	for i := range p.Declarations {
		d := &p.Declarations[i]
		switch d.Opcode {
		case dxbc.OpDclTemps:
			t.Registers = make([]value.ShaderVariable, d.NumTemps)
			for r := range t.Registers {
				t.Registers[r] = value.NewVariable(fmt.Sprintf("r%d", r), value.TypeFloat, 1, 4)
			}
		case dxbc.OpDclIndexableTemp:
			for len(t.IndexableTemps) <= int(d.TempReg) {
				t.IndexableTemps = append(t.IndexableTemps, value.ShaderVariable{})
			}
			members := make([]value.ShaderVariable, d.NumTemps)
			for e := range members {
				members[e] = value.NewVariable(fmt.Sprintf("x%d[%d]", d.TempReg, e), value.TypeFloat, 1, 4)
			}
			t.IndexableTemps[d.TempReg] = value.Struct(fmt.Sprintf("x%d", d.TempReg), members...)
		}
	}

	if p.Reflection == nil {
		return
	}

	numOutputs := 0
	for i := range p.Reflection.OutputSig {
		if reg := int(p.Reflection.OutputSig[i].Register); reg >= numOutputs {
			numOutputs = reg + 1
		}
	}
	t.Outputs = make([]value.ShaderVariable, numOutputs)
	for r := range t.Outputs {
		t.Outputs[r] = value.NewVariable(fmt.Sprintf("o%d", r), value.TypeFloat, 1, 4)
	}

	for i := range p.Reflection.OutputSig {
		sig := &p.Reflection.OutputSig[i]
		v := value.NewVariable("", varTypeOf(sig.CompType), 1, max(1, sig.NumColumns()))
		if sig.Register >= 0 {
			v.Name = fmt.Sprintf("o%d", sig.Register)
			t.Outputs[sig.Register] = v
			continue
		}
		name := specialOutputName(sig.SystemValue)
		if name == "" {
			continue
		}
		v.Name = name
		v.Columns = 1
		t.specialOutputs[sig.SystemValue] = len(t.Outputs)
		t.Outputs = append(t.Outputs, v)
	}
}

func specialOutputName(sv dxbc.SystemValue) string {
	switch sv {
	case dxbc.SVOutputControlPointID:
		return "vOutputControlPointID"
	case dxbc.SVDepth:
		return "oDepth"
	case dxbc.SVDepthLessEqual:
		return "oDepthLessEqual"
	case dxbc.SVDepthGreaterEqual:
		return "oDepthGreaterEqual"
	case dxbc.SVCoverage:
		return "oMask"
	case dxbc.SVStencilRef:
		return "oStencilRef"
	}
	return ""
}

func varTypeOf(c dxbc.CompType) value.VarType {
	switch c {
	case dxbc.CompUInt:
		return value.TypeUInt
	case dxbc.CompSInt:
		return value.TypeSInt
	case dxbc.CompDouble:
		return value.TypeDouble
	case dxbc.CompBool:
		return value.TypeBool
	}
	return value.TypeFloat
}

func cloneVars(vs []value.ShaderVariable) []value.ShaderVariable {
	if vs == nil {
		return nil
	}
	out := make([]value.ShaderVariable, len(vs))
	for i := range vs {
		out[i] = vs[i].Clone()
	}
	return out
}

// clone returns a deep copy sharing only the program, resolver and global
// state.
func (t *ThreadState) clone() *ThreadState {
	c := *t
	c.Registers = cloneVars(t.Registers)
	c.IndexableTemps = cloneVars(t.IndexableTemps)
	c.Inputs = cloneVars(t.Inputs)
	c.Outputs = cloneVars(t.Outputs)
	c.callStack = make([]callFrame, len(t.callStack))
	for i, f := range t.callStack {
		f.live = slices.Clone(f.live)
		c.callStack[i] = f
	}
	c.live = slices.Clone(t.live)
	c.changes = nil
	return &c
}

// Finished reports whether the invocation returned, discarded or ran off
// the end of the program.
func (t *ThreadState) Finished() bool {
	return t.done || t.nextInstruction >= t.program.NumInstructions()
}

// NextInstruction returns the index of the instruction the next step runs.
func (t *ThreadState) NextInstruction() int {
	return t.nextInstruction
}

// Live returns the registers written in the current function frame, sorted.
func (t *ThreadState) Live() []string {
	out := slices.Clone(t.live)
	slices.Sort(out)
	return out
}

func (t *ThreadState) markLive(name string) {
	if !slices.Contains(t.live, name) {
		t.live = append(t.live, name)
	}
}

// CallDepth returns the number of active call frames.
func (t *ThreadState) CallDepth() int {
	return len(t.callStack)
}

func (t *ThreadState) callStackNames() []string {
	if len(t.callStack) == 0 {
		return nil
	}
	names := make([]string, len(t.callStack))
	for i, f := range t.callStack {
		names[i] = f.function
	}
	return names
}

// resolveIndices evaluates every register index of oper, adding the first
// component of any relative index operand to its absolute part.
func (t *ThreadState) resolveIndices(oper *dxbc.Operand, op *dxbc.Operation) []uint32 {
	indices := make([]uint32, len(oper.Indices))
	for i, idx := range oper.Indices {
		if idx.Absolute {
			indices[i] = uint32(idx.Index)
		}
		if idx.Relative != nil {
			rel := t.GetSrc(idx.Relative, op, false)
			indices[i] += uint32(rel.S32(0))
		}
	}
	return indices
}

// GetSrc reads operand oper as a source of instruction op. The register is
// fetched, swizzled, modified by abs/neg in the operation type, and flushed
// if allowFlushing is set, op flushes, and the register class holds
// computed values.
func (t *ThreadState) GetSrc(oper *dxbc.Operand, op *dxbc.Operation, allowFlushing bool) value.ShaderVariable {
	indices := t.resolveIndices(oper, op)
	var idx0 uint32
	if len(indices) > 0 {
		idx0 = indices[0]
	}

	v := value.UInt4("", idx0, idx0, idx0, idx0)
	flushable := true

	switch oper.Type {
	case dxbc.OperandTemp:
		if int(idx0) < len(t.Registers) {
			v = t.Registers[idx0]
		} else {
			t.log.Error().Uint32("reg", idx0).Int("pc", t.pc).Msg("temp register out of range")
		}

	case dxbc.OperandIndexableTemp:
		if len(indices) == 2 && int(idx0) < len(t.IndexableTemps) {
			x := &t.IndexableTemps[idx0]
			if int(indices[1]) < len(x.Members) {
				v = x.Members[indices[1]]
			} else {
				t.log.Warn().Str("reg", x.Name).Uint32("index", indices[1]).Msg("indexable temp read out of bounds")
				v = value.UInt4("", 0, 0, 0, 0)
			}
		} else {
			t.log.Error().Uint32("reg", idx0).Int("pc", t.pc).Msg("indexable temp not declared")
		}

	case dxbc.OperandInput:
		if int(idx0) < len(t.Inputs) {
			v = t.Inputs[idx0]
		} else {
			t.log.Error().Uint32("reg", idx0).Int("pc", t.pc).Msg("input register out of range")
			v = value.UInt4("", 0, 0, 0, 0)
		}

	case dxbc.OperandOutput:
		if int(idx0) < len(t.Outputs) {
			v = t.Outputs[idx0]
		} else {
			t.log.Error().Uint32("reg", idx0).Int("pc", t.pc).Msg("output register out of range")
			v = value.UInt4("", 0, 0, 0, 0)
		}

	case dxbc.OperandOutputDepth, dxbc.OperandOutputDepthLessEqual, dxbc.OperandOutputDepthGreaterEqual,
		dxbc.OperandOutputStencilRef, dxbc.OperandOutputCoverageMask:
		if out := t.specialOutput(oper.Type); out != nil {
			v = *out
		} else {
			v = value.UInt4("", 0, 0, 0, 0)
		}

	// handles and labels read as their index
	case dxbc.OperandResource, dxbc.OperandSampler, dxbc.OperandUAV, dxbc.OperandThreadGroupSharedMemory,
		dxbc.OperandNull, dxbc.OperandLabel, dxbc.OperandRasterizer, dxbc.OperandFunctionBody:
		flushable = false

	case dxbc.OperandImmediate32:
		flushable = false
		if oper.NumComponents == dxbc.NumComps1 {
			v = value.UInt4("", oper.Values[0], oper.Values[0], oper.Values[0], oper.Values[0])
			v.Columns = 1
		} else {
			v = value.UInt4("", oper.Values[0], oper.Values[1], oper.Values[2], oper.Values[3])
		}

	case dxbc.OperandImmediate64:
		flushable = false
		v = value.UInt4("", oper.Values[0], oper.Values[1], oper.Values[2], oper.Values[3])

	case dxbc.OperandConstantBuffer:
		v = t.constantBufferValue(indices)

	case dxbc.OperandImmediateConstantBuffer:
		icb := t.program.ImmediateConstants
		if base := int(idx0) * 4; base+4 <= len(icb) {
			v = value.UInt4("", icb[base], icb[base+1], icb[base+2], icb[base+3])
		} else {
			t.log.Warn().Uint32("index", idx0).Int("size", len(icb)/4).Msg("immediate constant buffer read out of bounds")
			v = value.UInt4("", 0, 0, 0, 0)
		}

	case dxbc.OperandInputThreadGroupID:
		g := t.Semantics.GroupID
		v = value.UInt4("vThreadGroupID", g[0], g[1], g[2], 0)
		v.Columns = 3

	case dxbc.OperandInputThreadID:
		g, id := t.Semantics.GroupID, t.Semantics.ThreadID
		n := t.program.ThreadGroupSize()
		v = value.UInt4("vThreadID", g[0]*n[0]+id[0], g[1]*n[1]+id[1], g[2]*n[2]+id[2], 0)
		v.Columns = 3

	case dxbc.OperandInputThreadIDInGroup:
		id := t.Semantics.ThreadID
		v = value.UInt4("vThreadIDInGroup", id[0], id[1], id[2], 0)
		v.Columns = 3

	case dxbc.OperandInputThreadIDInGroupFlattened:
		id := t.Semantics.ThreadID
		n := t.program.ThreadGroupSize()
		flat := id[2]*n[0]*n[1] + id[1]*n[0] + id[0]
		v = value.UInt4("vThreadIDInGroupFlattened", flat, flat, flat, flat)
		v.Columns = 1

	case dxbc.OperandInputCoverageMask:
		c := t.Semantics.Coverage
		v = value.UInt4("vCoverage", c, c, c, c)
		v.Columns = 1

	case dxbc.OperandInputPrimitiveID:
		id := t.Semantics.PrimitiveID
		v = value.UInt4("vPrimitiveID", id, id, id, id)
		v.Columns = 1

	default:
		t.log.Error().Stringer("class", oper.Type).Int("pc", t.pc).Msg("unsupported source operand")
		v = value.UInt4("", 0, 0, 0, 0)
	}

	// swizzle
	s := v
	for i := 0; i < 4; i++ {
		src := i
		if c := oper.Comps[i]; c != dxbc.CompUnused {
			src = int(c)
		}
		v.SetU32(i, s.U32(src))
	}
	switch {
	case oper.IsScalarSelect(), oper.NumComponents == dxbc.NumComps1:
		v.Columns = 1
	default:
		v.Columns = 4
	}
	v.Rows = 1
	v.Members = nil

	optype := operationType(op.Opcode)
	if oper.Modifier == dxbc.ModifierAbs || oper.Modifier == dxbc.ModifierAbsNeg {
		v = value.Abs(v, optype)
	}
	if oper.Modifier == dxbc.ModifierNeg || oper.Modifier == dxbc.ModifierAbsNeg {
		v = value.Neg(v, optype)
	}

	if allowFlushing && flushable && operationFlushes(op.Opcode) {
		value.Flush(&v, 4)
	}
	v.Type = optype
	return v
}

func (t *ThreadState) specialOutput(class dxbc.OperandType) *value.ShaderVariable {
	var sv dxbc.SystemValue
	switch class {
	case dxbc.OperandOutputDepth:
		sv = dxbc.SVDepth
	case dxbc.OperandOutputDepthLessEqual:
		sv = dxbc.SVDepthLessEqual
	case dxbc.OperandOutputDepthGreaterEqual:
		sv = dxbc.SVDepthGreaterEqual
	case dxbc.OperandOutputStencilRef:
		sv = dxbc.SVStencilRef
	case dxbc.OperandOutputCoverageMask:
		sv = dxbc.SVCoverage
	default:
		return nil
	}
	if i, ok := t.specialOutputs[sv]; ok {
		return &t.Outputs[i]
	}
	t.log.Error().Stringer("class", class).Msg("special output not in output signature")
	return nil
}

// constantBufferValue reads one 16-byte register of a constant buffer.
// Legacy operands are cb#[reg]; indexed operands are cb#[index][reg].
func (t *ThreadState) constantBufferValue(indices []uint32) value.ShaderVariable {
	zero := value.Float4("", 0, 0, 0, 0)
	if len(indices) < 2 {
		t.log.Error().Int("pc", t.pc).Msg("constant buffer operand without register index")
		return zero
	}

	id, index, reg := indices[0], indices[0], indices[1]
	if t.resolver.Model().UsesIndexedBinding() && len(indices) >= 3 {
		index, reg = indices[1], indices[2]
	}

	slot, err := t.resolver.Resolve(binding.RegisterTypeB, id, index)
	if err != nil {
		t.log.Warn().Err(err).Msg("constant buffer not resolved")
		return zero
	}
	block := t.global.ConstantBlock(slot)
	if block == nil || int(reg) >= len(block.Members) {
		t.log.Warn().Stringer("slot", slot).Uint32("reg", reg).Msg("constant buffer read out of bounds")
		return zero
	}
	return block.Members[reg]
}

// SetDst writes val to destination operand oper of instruction op, applying
// saturate and the write mask, and records the change.
func (t *ThreadState) SetDst(oper *dxbc.Operand, op *dxbc.Operation, val value.ShaderVariable) {
	indices := t.resolveIndices(oper, op)
	var idx0 uint32
	if len(indices) > 0 {
		idx0 = indices[0]
	}

	var dst *value.ShaderVariable
	switch oper.Type {
	case dxbc.OperandTemp:
		if int(idx0) < len(t.Registers) {
			dst = &t.Registers[idx0]
		}

	case dxbc.OperandIndexableTemp:
		if len(indices) == 2 && int(idx0) < len(t.IndexableTemps) {
			x := &t.IndexableTemps[idx0]
			if int(indices[1]) < len(x.Members) {
				dst = &x.Members[indices[1]]
			} else {
				// out of bounds writes are discarded
				t.log.Warn().Str("reg", x.Name).Uint32("index", indices[1]).Msg("indexable temp write out of bounds")
				return
			}
		}

	case dxbc.OperandOutput:
		if int(idx0) < len(t.Outputs) {
			dst = &t.Outputs[idx0]
		}

	case dxbc.OperandOutputDepth, dxbc.OperandOutputDepthLessEqual, dxbc.OperandOutputDepthGreaterEqual,
		dxbc.OperandOutputStencilRef, dxbc.OperandOutputCoverageMask:
		dst = t.specialOutput(oper.Type)

	case dxbc.OperandNull:
		return

	default:
		t.log.Error().Stringer("class", oper.Type).Int("pc", t.pc).Msg("write to read-only register class")
		return
	}

	if dst == nil {
		t.log.Error().Stringer("class", oper.Type).Uint32("reg", idx0).Int("pc", t.pc).Msg("destination register out of range")
		return
	}

	optype := operationType(op.Opcode)
	right := val
	if op.Saturate {
		right = value.Saturate(right, optype)
	}

	before := dst.Clone()
	// only float results flush; sample_info_uint and friends keep their bits
	flush := operationFlushes(op.Opcode) && right.Type == value.TypeFloat
	written := 0
	write := func(lane int, bits uint32) {
		if flush {
			bits = value.FlushDenormBits(bits)
		}
		dst.SetU32(lane, bits)
		written |= 1 << lane
	}

	if oper.IsScalarSelect() {
		write(int(oper.Comps[0]), right.U32(0))
	} else {
		for _, c := range oper.Comps {
			if c != dxbc.CompUnused {
				write(int(c), right.U32(int(c)))
			}
		}
		if written == 0 {
			write(0, right.U32(0))
		}
	}

	if !movesData(op.Opcode) && generatedNanOrInf(dst, written, optype) {
		t.flags |= EventGeneratedNanOrInf
	}

	t.markLive(dst.Name)
	t.recordChange(before, *dst)
}

// generatedNanOrInf inspects the written lanes of v in the operation type.
func generatedNanOrInf(v *value.ShaderVariable, written int, t value.VarType) bool {
	switch t {
	case value.TypeFloat:
		for lane := 0; lane < 4; lane++ {
			if written&(1<<lane) != 0 && value.IsNaNOrInf(v.F32(lane)) {
				return true
			}
		}
	case value.TypeDouble:
		for d := 0; d < 2; d++ {
			if written&(3<<(2*d)) != 0 && value.IsNaNOrInf(v.F64(d)) {
				return true
			}
		}
	}
	return false
}

// recordChange merges with an earlier change to the same register in this
// step so each register appears once.
func (t *ThreadState) recordChange(before, after value.ShaderVariable) {
	if !t.traceChanges {
		return
	}
	after = after.Clone()
	for i := range t.changes {
		if t.changes[i].After.Name == after.Name {
			t.changes[i].After = after
			return
		}
	}
	t.changes = append(t.changes, Change{Before: before, After: after})
}

// setRegister overwrites a whole temp register, used to seed call
// arguments.
func (t *ThreadState) setRegister(reg uint32, v value.ShaderVariable) {
	if int(reg) >= len(t.Registers) {
		t.log.Error().Uint32("reg", reg).Msg("call argument register out of range")
		return
	}
	dst := &t.Registers[reg]
	before := dst.Clone()
	for lane := 0; lane < 4; lane++ {
		dst.SetU32(lane, v.U32(lane))
	}
	t.recordChange(before, *dst)
}
