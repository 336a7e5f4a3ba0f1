package dxbc

// operandCounts lists the fixed operand count of each executable opcode.
// Opcodes missing from the table take a variable number of operands.
var operandCounts = map[Opcode]int{
	OpNop: 0, OpCustomData: 0, OpSync: 0, OpLoop: 0, OpEndLoop: 0, OpEndIf: 0,
	OpElse: 0, OpBreak: 0, OpContinue: 0, OpDefault: 0, OpEndSwitch: 0, OpRet: 0,
	OpAbort: 0, OpDebugBreak: 0, OpEmit: 0, OpCut: 0, OpEmitThenCut: 0,

	OpIf: 1, OpBreakC: 1, OpContinueC: 1, OpRetC: 1, OpDiscard: 1, OpSwitch: 1,
	OpCase: 1, OpLabel: 1,

	OpMov: 2, OpDMov: 2, OpINeg: 2, OpNot: 2, OpFrc: 2, OpRoundNE: 2, OpRoundNI: 2,
	OpRoundPI: 2, OpRoundZ: 2, OpRsq: 2, OpRcp: 2, OpSqrt: 2, OpExp: 2, OpLog: 2,
	OpIToF: 2, OpUToF: 2, OpFToI: 2, OpFToU: 2, OpIToD: 2, OpUToD: 2, OpFToD: 2,
	OpDToF: 2, OpDToI: 2, OpDToU: 2, OpDRcp: 2, OpF32ToF16: 2, OpF16ToF32: 2,
	OpCountBits: 2, OpFirstBitHi: 2, OpFirstBitLo: 2, OpFirstBitShi: 2, OpBFRev: 2,
	OpDerivRTX: 2, OpDerivRTY: 2, OpDerivRTXCoarse: 2, OpDerivRTXFine: 2,
	OpDerivRTYCoarse: 2, OpDerivRTYFine: 2, OpEvalCentroid: 2,

	OpAdd: 3, OpMul: 3, OpDiv: 3, OpMin: 3, OpMax: 3, OpDP2: 3, OpDP3: 3, OpDP4: 3,
	OpEq: 3, OpNe: 3, OpLt: 3, OpGe: 3, OpIAdd: 3, OpIEq: 3, OpINe: 3, OpIGe: 3,
	OpILt: 3, OpIMin: 3, OpIMax: 3, OpUMin: 3, OpUMax: 3, OpULt: 3, OpUGe: 3,
	OpIShl: 3, OpIShr: 3, OpUShr: 3, OpAnd: 3, OpOr: 3, OpXor: 3, OpSinCos: 3,
	OpDAdd: 3, OpDMul: 3, OpDDiv: 3, OpDMin: 3, OpDMax: 3, OpDEq: 3, OpDNe: 3,
	OpDLt: 3, OpDGe: 3, OpEvalSampleIndex: 3, OpEvalSnapped: 3, OpSamplePos: 3,
	OpSampleInfo: 2, OpBufInfo: 2, OpResInfo: 3, OpLdRaw: 3, OpLdUAVTyped: 3,
	OpStoreRaw: 3, OpStoreUAVTyped: 3, OpLd: 3, OpImmAtomicAlloc: 2, OpImmAtomicConsume: 2,

	OpMad: 4, OpIMad: 4, OpUMad: 4, OpDFma: 4, OpMovC: 4, OpDMovC: 4, OpIMul: 4,
	OpUMul: 4, OpUDiv: 4, OpUAddC: 4, OpUSubB: 4, OpUBFE: 4, OpIBFE: 4, OpLdMS: 4,
	OpLdStructured: 4, OpStoreStructured: 4, OpSample: 4, OpLod: 4, OpGather4: 4,

	OpBFI: 5, OpSwapC: 5, OpSampleB: 5, OpSampleL: 5, OpSampleC: 5, OpSampleCLZ: 5,
	OpGather4C: 5, OpGather4PO: 5, OpMSAD: 4,

	OpSampleD: 6, OpGather4POC: 6,

	OpAtomicAnd: 3, OpAtomicOr: 3, OpAtomicXor: 3, OpAtomicIAdd: 3, OpAtomicIMax: 3,
	OpAtomicIMin: 3, OpAtomicUMax: 3, OpAtomicUMin: 3, OpAtomicCmpStore: 4,
	OpImmAtomicIAdd: 4, OpImmAtomicAnd: 4, OpImmAtomicOr: 4, OpImmAtomicXor: 4,
	OpImmAtomicExch: 4, OpImmAtomicIMax: 4, OpImmAtomicIMin: 4, OpImmAtomicUMax: 4,
	OpImmAtomicUMin: 4, OpImmAtomicCmpExch: 5,
}

// NumOperands returns the fixed operand count of an executable opcode, or
// -1 when the count varies (call, callc).
func (op Opcode) NumOperands() int {
	if n, ok := operandCounts[op]; ok {
		return n
	}
	return -1
}

// NumDestinations returns how many leading operands are written.
func (op Opcode) NumDestinations() int {
	switch op {
	case OpIMul, OpUMul, OpUDiv, OpUAddC, OpUSubB, OpSinCos, OpSwapC:
		return 2
	case OpIf, OpBreakC, OpContinueC, OpRetC, OpDiscard, OpSwitch, OpCase, OpLabel,
		OpCall, OpCallC, OpStoreRaw, OpStoreStructured, OpStoreUAVTyped,
		OpAtomicAnd, OpAtomicOr, OpAtomicXor, OpAtomicIAdd, OpAtomicIMax, OpAtomicIMin,
		OpAtomicUMax, OpAtomicUMin, OpAtomicCmpStore:
		return 0
	}
	if n := op.NumOperands(); n > 0 {
		return 1
	}
	return 0
}
