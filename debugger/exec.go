package debugger

import (
	"math"
	"math/bits"

	"github.com/gogpu/shaderdbg/dxbc"
	"github.com/gogpu/shaderdbg/value"
)

// StepNext executes the next instruction of the invocation. prev is the
// workgroup as it was before this step; derivative instructions read their
// neighbours from it. When state is non-nil the step's changes, flags and
// next instruction are written into it.
//
// Only control flow scan failures are returned; other anomalies are logged
// and the instruction degrades to a no-op or a zero result.
func (t *ThreadState) StepNext(state *State, api APIWrapper, prev []*ThreadState) error {
	if t.Finished() {
		return nil
	}

	t.pc = t.nextInstruction
	t.nextInstruction++
	t.flags = 0
	t.changes = nil

	op := t.program.Instruction(t.pc)
	api.SetCurrentInstruction(t.pc)
	t.log.Trace().Int("pc", t.pc).Str("op", op.Mnemonic()).Msg("step")

	err := t.execute(op, api, prev)

	if state != nil {
		state.NextInstruction = t.nextInstruction
		state.Flags = t.flags
		state.Changes = t.changes
		state.CallStack = t.callStackNames()
	}
	return err
}

func (t *ThreadState) execute(op *dxbc.Operation, api APIWrapper, prev []*ThreadState) error {
	// sources are every operand after the first, matching the operand
	// numbering used by the instruction handlers
	var src []value.ShaderVariable
	if !op.Opcode.IsFlowControl() {
		src = make([]value.ShaderVariable, 0, len(op.Operands))
		for i := 1; i < len(op.Operands); i++ {
			src = append(src, t.GetSrc(&op.Operands[i], op, true))
		}
	}
	for len(src) < 6 {
		src = append(src, value.ShaderVariable{})
	}

	optype := operationType(op.Opcode)

	switch op.Opcode {
	case dxbc.OpNop, dxbc.OpCustomData, dxbc.OpSync, dxbc.OpLabel, dxbc.OpDebugBreak:
		// nothing to do

	case dxbc.OpAdd, dxbc.OpIAdd, dxbc.OpDAdd:
		t.setDst(op, 0, addVars(src[0], src[1], optype))

	case dxbc.OpMul, dxbc.OpDMul:
		t.setDst(op, 0, mulVars(src[0], src[1], optype))

	case dxbc.OpDiv, dxbc.OpDDiv:
		t.setDst(op, 0, divVars(src[0], src[1], optype))

	case dxbc.OpMad, dxbc.OpIMad, dxbc.OpUMad, dxbc.OpDFma:
		t.setDst(op, 0, addVars(mulVars(src[0], src[1], optype), src[2], optype))

	case dxbc.OpIMul, dxbc.OpUMul:
		t.execWideMul(op, src[1], src[2])

	case dxbc.OpUDiv:
		t.execUDiv(op, src[1], src[2])

	case dxbc.OpUAddC, dxbc.OpUSubB:
		t.execCarry(op, src[1], src[2])

	case dxbc.OpDP2, dxbc.OpDP3, dxbc.OpDP4:
		n := 2 + int(op.Opcode-dxbc.OpDP2)
		p := mulVars(src[0], src[1], value.TypeFloat)
		sum := p.F32(0)
		for i := 1; i < n; i++ {
			sum += p.F32(i)
		}
		t.setDst(op, 0, value.Float4("", sum, sum, sum, sum))

	case dxbc.OpFrc, dxbc.OpRoundNE, dxbc.OpRoundNI, dxbc.OpRoundPI, dxbc.OpRoundZ, dxbc.OpSqrt,
		dxbc.OpF16ToF32, dxbc.OpF32ToF16, dxbc.OpIToF, dxbc.OpUToF, dxbc.OpFToI, dxbc.OpFToU:
		t.setDst(op, 0, mapLanes(op.Opcode, src[0]))

	case dxbc.OpINeg:
		t.setDst(op, 0, value.Neg(src[0], value.TypeSInt))

	case dxbc.OpMin, dxbc.OpMax, dxbc.OpIMin, dxbc.OpIMax, dxbc.OpUMin, dxbc.OpUMax:
		t.setDst(op, 0, minMax(op.Opcode, src[0], src[1]))

	case dxbc.OpDMin, dxbc.OpDMax:
		r := src[0]
		for i := 0; i < 2; i++ {
			if op.Opcode == dxbc.OpDMin {
				r.SetF64(i, value.Min(src[0].F64(i), src[1].F64(i)))
			} else {
				r.SetF64(i, value.Max(src[0].F64(i), src[1].F64(i)))
			}
		}
		t.setDst(op, 0, r)

	case dxbc.OpDRcp:
		r := src[0]
		for i := 0; i < 2; i++ {
			r.SetF64(i, 1/src[0].F64(i))
		}
		t.setDst(op, 0, r)

	case dxbc.OpBFRev, dxbc.OpCountBits, dxbc.OpFirstBitHi, dxbc.OpFirstBitLo, dxbc.OpFirstBitShi, dxbc.OpNot:
		t.setDst(op, 0, bitLanes(op.Opcode, src[0]))

	case dxbc.OpAnd, dxbc.OpOr, dxbc.OpXor:
		r := src[0]
		for i := 0; i < 4; i++ {
			a, b := src[0].U32(i), src[1].U32(i)
			switch op.Opcode {
			case dxbc.OpAnd:
				r.SetU32(i, a&b)
			case dxbc.OpOr:
				r.SetU32(i, a|b)
			default:
				r.SetU32(i, a^b)
			}
		}
		t.setDst(op, 0, r)

	case dxbc.OpIShl, dxbc.OpIShr, dxbc.OpUShr:
		t.setDst(op, 0, shift(op, src[0], src[1]))

	case dxbc.OpIBFE, dxbc.OpUBFE:
		r := src[2]
		for i := 0; i < 4; i++ {
			w, o := src[0].U32(i)&0x1f, src[1].U32(i)&0x1f
			r.SetU32(i, extractBits(src[2].U32(i), w, o, op.Opcode == dxbc.OpIBFE))
		}
		t.setDst(op, 0, r)

	case dxbc.OpBFI:
		r := src[3]
		for i := 0; i < 4; i++ {
			w, o := src[0].U32(i)&0x1f, src[1].U32(i)&0x1f
			mask := ((uint32(1) << w) - 1) << o
			r.SetU32(i, (src[2].U32(i)<<o)&mask|src[3].U32(i)&^mask)
		}
		t.setDst(op, 0, r)

	case dxbc.OpRcp, dxbc.OpRsq, dxbc.OpExp, dxbc.OpLog:
		out, _, err := api.CalculateMathIntrinsic(op.Opcode, src[0])
		if err != nil {
			t.log.Warn().Err(err).Str("op", op.Mnemonic()).Msg("math intrinsic failed")
			break
		}
		t.setDst(op, 0, out)

	case dxbc.OpSinCos:
		sin, cos, err := api.CalculateMathIntrinsic(op.Opcode, src[1])
		if err != nil {
			t.log.Warn().Err(err).Str("op", op.Mnemonic()).Msg("math intrinsic failed")
			break
		}
		t.setDst(op, 0, sin)
		t.setDst(op, 1, cos)

	case dxbc.OpMov, dxbc.OpDMov:
		t.setDst(op, 0, src[0])

	case dxbc.OpMovC:
		r := src[1]
		for i := 0; i < 4; i++ {
			if src[0].U32(i) == 0 {
				r.SetU32(i, src[2].U32(i))
			}
		}
		t.setDst(op, 0, r)

	case dxbc.OpDMovC:
		r := src[1]
		for d := 0; d < 2; d++ {
			if src[0].U32(d) == 0 {
				r.SetU64(d, src[2].U64(d))
			}
		}
		t.setDst(op, 0, r)

	case dxbc.OpSwapC:
		a, b := src[2], src[2]
		for i := 0; i < 4; i++ {
			x, y := src[2].U32(i), src[3].U32(i)
			if src[1].U32(i) != 0 {
				x, y = y, x
			}
			a.SetU32(i, x)
			b.SetU32(i, y)
		}
		t.setDst(op, 0, a)
		t.setDst(op, 1, b)

	case dxbc.OpIToD, dxbc.OpUToD, dxbc.OpFToD:
		t.execToDouble(op, src[0])

	case dxbc.OpDToI, dxbc.OpDToU, dxbc.OpDToF:
		t.execFromDouble(op, src[0])

	case dxbc.OpEq, dxbc.OpNe, dxbc.OpLt, dxbc.OpGe,
		dxbc.OpIEq, dxbc.OpINe, dxbc.OpILt, dxbc.OpIGe, dxbc.OpULt, dxbc.OpUGe:
		r := value.NewVariable("", value.TypeUInt, 1, 4)
		for i := 0; i < 4; i++ {
			if compare(op.Opcode, src[0], src[1], i) {
				r.SetU32(i, ^uint32(0))
			}
		}
		t.setDst(op, 0, r)

	case dxbc.OpDEq, dxbc.OpDNe, dxbc.OpDLt, dxbc.OpDGe:
		var res [2]uint32
		for d := 0; d < 2; d++ {
			if compare(op.Opcode, src[0], src[1], d) {
				res[d] = ^uint32(0)
			}
		}
		t.setDst(op, 0, placeResults(&op.Operands[0], value.TypeUInt, res[0], res[1]))

	case dxbc.OpDerivRTX, dxbc.OpDerivRTXCoarse, dxbc.OpDerivRTXFine,
		dxbc.OpDerivRTY, dxbc.OpDerivRTYCoarse, dxbc.OpDerivRTYFine:
		t.execDerivative(op, prev)

	case dxbc.OpImmAtomicAlloc, dxbc.OpImmAtomicConsume:
		t.execCounter(op, api)

	case dxbc.OpAtomicAnd, dxbc.OpAtomicOr, dxbc.OpAtomicXor, dxbc.OpAtomicCmpStore, dxbc.OpAtomicIAdd,
		dxbc.OpAtomicIMax, dxbc.OpAtomicIMin, dxbc.OpAtomicUMax, dxbc.OpAtomicUMin,
		dxbc.OpImmAtomicIAdd, dxbc.OpImmAtomicAnd, dxbc.OpImmAtomicOr, dxbc.OpImmAtomicXor,
		dxbc.OpImmAtomicExch, dxbc.OpImmAtomicCmpExch, dxbc.OpImmAtomicIMax, dxbc.OpImmAtomicIMin,
		dxbc.OpImmAtomicUMax, dxbc.OpImmAtomicUMin:
		t.execAtomic(op, api, src)

	case dxbc.OpLdRaw, dxbc.OpLdStructured, dxbc.OpLdUAVTyped,
		dxbc.OpStoreRaw, dxbc.OpStoreStructured, dxbc.OpStoreUAVTyped:
		t.execLoadStore(op, api, src)

	case dxbc.OpEvalCentroid, dxbc.OpEvalSampleIndex, dxbc.OpEvalSnapped:
		t.execEval(op, api, src)

	case dxbc.OpSampleInfo, dxbc.OpSamplePos:
		t.execSampleInfo(op, api)

	case dxbc.OpBufInfo:
		t.execBufInfo(op, api)

	case dxbc.OpResInfo:
		t.execResInfo(op, api, src)

	case dxbc.OpSample, dxbc.OpSampleL, dxbc.OpSampleB, dxbc.OpSampleD, dxbc.OpSampleC, dxbc.OpSampleCLZ,
		dxbc.OpLd, dxbc.OpLdMS, dxbc.OpGather4, dxbc.OpGather4C, dxbc.OpGather4PO, dxbc.OpGather4POC,
		dxbc.OpLod:
		t.execSample(op, api, src, prev)

	case dxbc.OpIf, dxbc.OpElse, dxbc.OpEndIf, dxbc.OpLoop, dxbc.OpEndLoop, dxbc.OpBreak, dxbc.OpBreakC,
		dxbc.OpContinue, dxbc.OpContinueC, dxbc.OpSwitch, dxbc.OpCase, dxbc.OpDefault, dxbc.OpEndSwitch,
		dxbc.OpCall, dxbc.OpCallC, dxbc.OpRet, dxbc.OpRetC:
		return t.execFlow(op)

	case dxbc.OpDiscard:
		if t.testTaken(op) {
			t.log.Debug().Int("pc", t.pc).Msg("discarded")
			t.done = true
		}

	case dxbc.OpAbort:
		t.log.Warn().Int("pc", t.pc).Msg("abort executed")
		api.AddDebugMessage(CategoryShaders, SeverityMedium, "abort instruction executed")
		t.done = true

	default:
		if op.Opcode.IsDeclaration() {
			break
		}
		t.unsupported(op, api)
	}
	return nil
}

// unsupported reports an opcode the interpreter cannot run. The step is a
// no-op and execution continues.
func (t *ThreadState) unsupported(op *dxbc.Operation, api APIWrapper) {
	err := errorAt(ErrUnsupportedOpcode, t.pc, "%s is not supported", op.Mnemonic())
	t.log.Error().Err(err).Msg("unsupported opcode")
	api.AddDebugMessage(CategoryShaders, SeverityHigh, err.Error())
}

func (t *ThreadState) setDst(op *dxbc.Operation, i int, v value.ShaderVariable) {
	if i < len(op.Operands) {
		t.SetDst(&op.Operands[i], op, v)
	}
}

func (t *ThreadState) execWideMul(op *dxbc.Operation, a, b value.ShaderVariable) {
	hi := value.NewVariable("", value.TypeUInt, 1, 4)
	lo := value.NewVariable("", value.TypeUInt, 1, 4)
	for i := 0; i < 4; i++ {
		var p uint64
		if op.Opcode == dxbc.OpIMul {
			p = uint64(int64(a.S32(i)) * int64(b.S32(i)))
		} else {
			p = uint64(a.U32(i)) * uint64(b.U32(i))
		}
		hi.SetU32(i, uint32(p>>32))
		lo.SetU32(i, uint32(p))
	}
	t.setDst(op, 0, hi)
	t.setDst(op, 1, lo)
}

// execUDiv divides unsigned lanes. A zero divisor gives all ones in both
// quotient and remainder and flags the step.
func (t *ThreadState) execUDiv(op *dxbc.Operation, a, b value.ShaderVariable) {
	quot := value.NewVariable("", value.TypeUInt, 1, 4)
	rem := value.NewVariable("", value.TypeUInt, 1, 4)
	for i := 0; i < 4; i++ {
		q, r := ^uint32(0), ^uint32(0)
		if d := b.U32(i); d != 0 {
			q, r = a.U32(i)/d, a.U32(i)%d
		} else if laneWritten(&op.Operands[0], i) || laneWritten(&op.Operands[1], i) {
			t.flags |= EventGeneratedNanOrInf
		}
		quot.SetU32(i, q)
		rem.SetU32(i, r)
	}
	t.setDst(op, 0, quot)
	t.setDst(op, 1, rem)
}

// laneWritten reports whether a destination mask includes lane i.
func laneWritten(dst *dxbc.Operand, i int) bool {
	if dst.Type == dxbc.OperandNull {
		return false
	}
	if dst.IsScalarSelect() {
		return i == 0
	}
	for _, c := range dst.Comps {
		if int(c) == i {
			return true
		}
	}
	return dst.ComponentCount() == 0 && i == 0
}

func (t *ThreadState) execCarry(op *dxbc.Operation, a, b value.ShaderVariable) {
	res := value.NewVariable("", value.TypeUInt, 1, 4)
	carry := value.NewVariable("", value.TypeUInt, 1, 4)
	for i := 0; i < 4; i++ {
		x, y := a.U32(i), b.U32(i)
		if op.Opcode == dxbc.OpUAddC {
			sum, c := bits.Add32(x, y, 0)
			res.SetU32(i, sum)
			carry.SetU32(i, c)
		} else {
			diff, borrow := bits.Sub32(x, y, 0)
			res.SetU32(i, diff)
			carry.SetU32(i, borrow)
		}
	}
	t.setDst(op, 0, res)
	t.setDst(op, 1, carry)
}

// mapLanes applies a single-source lane-wise float or conversion op.
func mapLanes(opcode dxbc.Opcode, a value.ShaderVariable) value.ShaderVariable {
	r := a
	for i := 0; i < 4; i++ {
		f := a.F32(i)
		switch opcode {
		case dxbc.OpFrc:
			r.SetF32(i, f-value.RoundDown(f))
		case dxbc.OpRoundNE:
			r.SetF32(i, value.RoundNE(f))
		case dxbc.OpRoundNI:
			r.SetF32(i, value.RoundDown(f))
		case dxbc.OpRoundPI:
			r.SetF32(i, value.RoundUp(f))
		case dxbc.OpRoundZ:
			r.SetF32(i, value.RoundTowardZero(f))
		case dxbc.OpSqrt:
			r.SetF32(i, float32(math.Sqrt(float64(f))))
		case dxbc.OpF16ToF32:
			r.SetF32(i, value.FlushDenorm(value.HalfToFloat32(uint16(a.U32(i)&0xffff))))
		case dxbc.OpF32ToF16:
			r.SetU32(i, uint32(value.Float32ToHalf(value.FlushDenorm(f))))
		case dxbc.OpIToF:
			r.SetF32(i, float32(a.S32(i)))
		case dxbc.OpUToF:
			r.SetF32(i, float32(a.U32(i)))
		case dxbc.OpFToI:
			r.SetS32(i, floatToInt32(float64(f)))
		case dxbc.OpFToU:
			r.SetU32(i, floatToUint32(float64(f)))
		}
	}
	return r
}

// floatToInt32 truncates with saturation; NaN converts to zero.
func floatToInt32(f float64) int32 {
	switch {
	case math.IsNaN(f):
		return 0
	case f >= math.MaxInt32:
		return math.MaxInt32
	case f <= math.MinInt32:
		return math.MinInt32
	}
	return int32(f)
}

// floatToUint32 truncates with saturation; NaN and negatives convert to
// zero.
func floatToUint32(f float64) uint32 {
	switch {
	case math.IsNaN(f), f <= 0:
		return 0
	case f >= math.MaxUint32:
		return math.MaxUint32
	}
	return uint32(f)
}

func minMax(opcode dxbc.Opcode, a, b value.ShaderVariable) value.ShaderVariable {
	r := a
	for i := 0; i < 4; i++ {
		switch opcode {
		case dxbc.OpMin:
			r.SetF32(i, value.Min(a.F32(i), b.F32(i)))
		case dxbc.OpMax:
			r.SetF32(i, value.Max(a.F32(i), b.F32(i)))
		case dxbc.OpIMin:
			if b.S32(i) < a.S32(i) {
				r.SetS32(i, b.S32(i))
			}
		case dxbc.OpIMax:
			if !(a.S32(i) >= b.S32(i)) {
				r.SetS32(i, b.S32(i))
			}
		case dxbc.OpUMin:
			if b.U32(i) < a.U32(i) {
				r.SetU32(i, b.U32(i))
			}
		case dxbc.OpUMax:
			if !(a.U32(i) >= b.U32(i)) {
				r.SetU32(i, b.U32(i))
			}
		}
	}
	return r
}

func bitLanes(opcode dxbc.Opcode, a value.ShaderVariable) value.ShaderVariable {
	r := a
	for i := 0; i < 4; i++ {
		x := a.U32(i)
		switch opcode {
		case dxbc.OpBFRev:
			r.SetU32(i, bits.Reverse32(x))
		case dxbc.OpCountBits:
			r.SetU32(i, uint32(bits.OnesCount32(x)))
		case dxbc.OpFirstBitHi:
			r.SetU32(i, firstBitHigh(x))
		case dxbc.OpFirstBitLo:
			if x == 0 {
				r.SetU32(i, ^uint32(0))
			} else {
				r.SetU32(i, uint32(bits.TrailingZeros32(x)))
			}
		case dxbc.OpFirstBitShi:
			if int32(x) < 0 {
				x = ^x
			}
			r.SetU32(i, firstBitHigh(x))
		case dxbc.OpNot:
			r.SetU32(i, ^x)
		}
	}
	return r
}

// firstBitHigh counts from the most significant bit; zero has no set bit.
func firstBitHigh(x uint32) uint32 {
	if x == 0 {
		return ^uint32(0)
	}
	return uint32(bits.LeadingZeros32(x))
}

// shift uses the low five bits of the shift amount. A scalar shift operand
// applies to every lane.
func shift(op *dxbc.Operation, a, b value.ShaderVariable) value.ShaderVariable {
	scalar := false
	if len(op.Operands) > 2 {
		amt := &op.Operands[2]
		scalar = amt.NumComponents == dxbc.NumComps1 || amt.IsScalarSelect()
	}
	r := a
	for i := 0; i < 4; i++ {
		n := b.U32(i) & 0x1f
		if scalar {
			n = b.U32(0) & 0x1f
		}
		switch op.Opcode {
		case dxbc.OpIShl:
			r.SetU32(i, a.U32(i)<<n)
		case dxbc.OpUShr:
			r.SetU32(i, a.U32(i)>>n)
		default:
			r.SetS32(i, a.S32(i)>>n)
		}
	}
	return r
}

// extractBits takes width w at offset o, sign extending if signed. Zero
// width gives zero and a field running past bit 31 is a plain shift.
func extractBits(x, w, o uint32, signed bool) uint32 {
	switch {
	case w == 0:
		return 0
	case w+o < 32:
		if signed {
			return uint32(int32(x<<(32-(w+o))) >> (32 - w))
		}
		return (x << (32 - (w + o))) >> (32 - w)
	case signed:
		return uint32(int32(x) >> o)
	default:
		return x >> o
	}
}

func compare(opcode dxbc.Opcode, a, b value.ShaderVariable, i int) bool {
	switch opcode {
	case dxbc.OpEq:
		return a.F32(i) == b.F32(i)
	case dxbc.OpNe:
		return a.F32(i) != b.F32(i)
	case dxbc.OpLt:
		return a.F32(i) < b.F32(i)
	case dxbc.OpGe:
		return a.F32(i) >= b.F32(i)
	case dxbc.OpIEq:
		return a.S32(i) == b.S32(i)
	case dxbc.OpINe:
		return a.S32(i) != b.S32(i)
	case dxbc.OpILt:
		return a.S32(i) < b.S32(i)
	case dxbc.OpIGe:
		return a.S32(i) >= b.S32(i)
	case dxbc.OpULt:
		return a.U32(i) < b.U32(i)
	case dxbc.OpUGe:
		return a.U32(i) >= b.U32(i)
	case dxbc.OpDEq:
		return a.F64(i) == b.F64(i)
	case dxbc.OpDNe:
		return a.F64(i) != b.F64(i)
	case dxbc.OpDLt:
		return a.F64(i) < b.F64(i)
	case dxbc.OpDGe:
		return a.F64(i) >= b.F64(i)
	}
	return false
}

// placeResults puts two 32-bit results at the destination's first two mask
// components, or in lane 0 for a scalar destination.
func placeResults(dst *dxbc.Operand, t value.VarType, r0, r1 uint32) value.ShaderVariable {
	v := value.NewVariable("", t, 1, 4)
	if dst.IsScalarSelect() || dst.Comps[0] == dxbc.CompUnused {
		v.SetU32(0, r0)
		return v
	}
	v.SetU32(int(dst.Comps[0]), r0)
	if dst.Comps[1] != dxbc.CompUnused {
		v.SetU32(int(dst.Comps[1]), r1)
	}
	return v
}

// execToDouble converts the first two lanes of a to doubles. A single
// source component is duplicated into both results.
func (t *ThreadState) execToDouble(op *dxbc.Operation, a value.ShaderVariable) {
	var res [2]float64
	for d := 0; d < 2; d++ {
		switch op.Opcode {
		case dxbc.OpIToD:
			res[d] = float64(a.S32(d))
		case dxbc.OpUToD:
			res[d] = float64(a.U32(d))
		default:
			res[d] = float64(a.F32(d))
		}
	}
	if len(op.Operands) > 1 && op.Operands[1].Comps[2] == dxbc.CompUnused {
		res[1] = res[0]
	}
	t.setDst(op, 0, value.Doubles("", res[0], res[1]))
}

func (t *ThreadState) execFromDouble(op *dxbc.Operation, a value.ShaderVariable) {
	var res [2]uint32
	rt := value.TypeUInt
	for d := 0; d < 2; d++ {
		f := a.F64(d)
		switch op.Opcode {
		case dxbc.OpDToI:
			res[d] = uint32(floatToInt32(f))
			rt = value.TypeSInt
		case dxbc.OpDToU:
			res[d] = floatToUint32(f)
		default:
			res[d] = math.Float32bits(float32(f))
			rt = value.TypeFloat
		}
	}
	t.setDst(op, 0, placeResults(&op.Operands[0], rt, res[0], res[1]))
}
