package debugger

import (
	"github.com/gogpu/shaderdbg/dxbc"
	"github.com/gogpu/shaderdbg/value"
)

// operationType returns the numeric class an instruction operates in. It
// decides how abs/neg source modifiers and saturate behave.
func operationType(op dxbc.Opcode) value.VarType {
	switch op {
	case dxbc.OpAnd, dxbc.OpOr, dxbc.OpIAdd, dxbc.OpIMul, dxbc.OpIMad, dxbc.OpIShl, dxbc.OpIShr,
		dxbc.OpIBFE, dxbc.OpINeg, dxbc.OpIMax, dxbc.OpIMin,
		dxbc.OpIGe, dxbc.OpIEq, dxbc.OpILt, dxbc.OpINe,
		dxbc.OpSwapC, dxbc.OpBreak, dxbc.OpBreakC, dxbc.OpIf, dxbc.OpIToF, dxbc.OpDToI,
		dxbc.OpAtomicIAdd, dxbc.OpAtomicIMax, dxbc.OpAtomicIMin,
		dxbc.OpImmAtomicIAdd, dxbc.OpImmAtomicIMax, dxbc.OpImmAtomicIMin:
		return value.TypeSInt

	case dxbc.OpAtomicAnd, dxbc.OpAtomicOr, dxbc.OpAtomicXor, dxbc.OpAtomicCmpStore,
		dxbc.OpAtomicUMax, dxbc.OpAtomicUMin,
		dxbc.OpImmAtomicAnd, dxbc.OpImmAtomicOr, dxbc.OpImmAtomicXor, dxbc.OpImmAtomicExch,
		dxbc.OpImmAtomicCmpExch, dxbc.OpImmAtomicUMax, dxbc.OpImmAtomicUMin,
		dxbc.OpImmAtomicAlloc, dxbc.OpImmAtomicConsume,
		dxbc.OpBFRev, dxbc.OpCountBits, dxbc.OpFirstBitHi, dxbc.OpFirstBitLo, dxbc.OpFirstBitShi,
		dxbc.OpUAddC, dxbc.OpUSubB, dxbc.OpUMad, dxbc.OpUMul, dxbc.OpUMin, dxbc.OpUMax, dxbc.OpUDiv,
		dxbc.OpUToF, dxbc.OpUShr, dxbc.OpULt, dxbc.OpUGe, dxbc.OpBFI, dxbc.OpUBFE,
		dxbc.OpNot, dxbc.OpXor, dxbc.OpLdRaw, dxbc.OpLdUAVTyped, dxbc.OpLdStructured, dxbc.OpDToU:
		return value.TypeUInt

	case dxbc.OpDAdd, dxbc.OpDMax, dxbc.OpDMin, dxbc.OpDMul, dxbc.OpDEq, dxbc.OpDNe, dxbc.OpDGe,
		dxbc.OpDLt, dxbc.OpDMov, dxbc.OpDMovC, dxbc.OpDToF, dxbc.OpDDiv, dxbc.OpDFma, dxbc.OpDRcp,
		dxbc.OpIToD, dxbc.OpUToD:
		return value.TypeDouble
	}
	return value.TypeFloat
}

// operationFlushes reports whether float sources and results of op have
// denormals flushed to zero. Data movement, conversions between float
// widths and integer ops preserve bit patterns.
func operationFlushes(op dxbc.Opcode) bool {
	switch op {
	case dxbc.OpAdd, dxbc.OpMul, dxbc.OpDiv, dxbc.OpMax, dxbc.OpMin, dxbc.OpMad,
		dxbc.OpDP2, dxbc.OpDP3, dxbc.OpDP4, dxbc.OpSinCos, dxbc.OpFrc,
		dxbc.OpRoundNE, dxbc.OpRoundNI, dxbc.OpRoundPI, dxbc.OpRoundZ,
		dxbc.OpRcp, dxbc.OpRsq, dxbc.OpSqrt, dxbc.OpLog, dxbc.OpExp,
		dxbc.OpLt, dxbc.OpGe, dxbc.OpEq, dxbc.OpNe,
		dxbc.OpSample, dxbc.OpSampleB, dxbc.OpSampleL, dxbc.OpSampleD, dxbc.OpSampleC, dxbc.OpSampleCLZ,
		dxbc.OpGather4, dxbc.OpGather4C, dxbc.OpGather4PO, dxbc.OpGather4POC,
		dxbc.OpSampleInfo, dxbc.OpSamplePos,
		dxbc.OpEvalSnapped, dxbc.OpEvalSampleIndex, dxbc.OpEvalCentroid, dxbc.OpLod,
		dxbc.OpDerivRTX, dxbc.OpDerivRTY, dxbc.OpDerivRTXCoarse, dxbc.OpDerivRTXFine,
		dxbc.OpDerivRTYCoarse, dxbc.OpDerivRTYFine:
		return true
	}
	return false
}

// movesData reports whether op copies bits without computing, so a NaN or
// infinity in its result was not generated by this step.
func movesData(op dxbc.Opcode) bool {
	switch op {
	case dxbc.OpMov, dxbc.OpMovC, dxbc.OpDMov, dxbc.OpDMovC, dxbc.OpSwapC,
		dxbc.OpLd, dxbc.OpLdMS, dxbc.OpLdRaw, dxbc.OpLdStructured, dxbc.OpLdUAVTyped,
		dxbc.OpEvalSnapped, dxbc.OpEvalSampleIndex, dxbc.OpEvalCentroid:
		return true
	}
	return false
}
