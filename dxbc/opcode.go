package dxbc

// Opcode identifies an instruction or declaration token.
//
// Values match the token encoding of shader model 4/5 bytecode so that
// decoded programs can be compared against raw dumps.
type Opcode uint16

// Instruction and declaration opcodes, in token order.
const (
	OpAdd Opcode = iota
	OpAnd
	OpBreak
	OpBreakC
	OpCall
	OpCallC
	OpCase
	OpContinue
	OpContinueC
	OpCut
	OpDefault
	OpDerivRTX
	OpDerivRTY
	OpDiscard
	OpDiv
	OpDP2
	OpDP3
	OpDP4
	OpElse
	OpEmit
	OpEmitThenCut
	OpEndIf
	OpEndLoop
	OpEndSwitch
	OpEq
	OpExp
	OpFrc
	OpFToI
	OpFToU
	OpGe
	OpIAdd
	OpIf
	OpIEq
	OpIGe
	OpILt
	OpIMad
	OpIMax
	OpIMin
	OpIMul
	OpINe
	OpINeg
	OpIShl
	OpIShr
	OpIToF
	OpLabel
	OpLd
	OpLdMS
	OpLog
	OpLoop
	OpLt
	OpMad
	OpMin
	OpMax
	OpCustomData
	OpMov
	OpMovC
	OpMul
	OpNe
	OpNop
	OpNot
	OpOr
	OpResInfo
	OpRet
	OpRetC
	OpRoundNE
	OpRoundNI
	OpRoundPI
	OpRoundZ
	OpRsq
	OpSample
	OpSampleC
	OpSampleCLZ
	OpSampleL
	OpSampleD
	OpSampleB
	OpSqrt
	OpSwitch
	OpSinCos
	OpUDiv
	OpULt
	OpUGe
	OpUMul
	OpUMad
	OpUMax
	OpUMin
	OpUShr
	OpUToF
	OpXor
	OpDclResource
	OpDclConstantBuffer
	OpDclSampler
	OpDclIndexRange
	OpDclGSOutputPrimitiveTopology
	OpDclGSInputPrimitive
	OpDclMaxOutputVertexCount
	OpDclInput
	OpDclInputSGV
	OpDclInputSIV
	OpDclInputPS
	OpDclInputPSSGV
	OpDclInputPSSIV
	OpDclOutput
	OpDclOutputSGV
	OpDclOutputSIV
	OpDclTemps
	OpDclIndexableTemp
	OpDclGlobalFlags
	OpReserved0
	OpLod
	OpGather4
	OpSamplePos
	OpSampleInfo
	OpReserved1
	OpHSDecls
	OpHSControlPointPhase
	OpHSForkPhase
	OpHSJoinPhase
	OpEmitStream
	OpCutStream
	OpEmitThenCutStream
	OpInterfaceCall
	OpBufInfo
	OpDerivRTXCoarse
	OpDerivRTXFine
	OpDerivRTYCoarse
	OpDerivRTYFine
	OpGather4C
	OpGather4PO
	OpGather4POC
	OpRcp
	OpF32ToF16
	OpF16ToF32
	OpUAddC
	OpUSubB
	OpCountBits
	OpFirstBitHi
	OpFirstBitLo
	OpFirstBitShi
	OpUBFE
	OpIBFE
	OpBFI
	OpBFRev
	OpSwapC
	OpDclStream
	OpDclFunctionBody
	OpDclFunctionTable
	OpDclInterface
	OpDclInputControlPointCount
	OpDclOutputControlPointCount
	OpDclTessDomain
	OpDclTessPartitioning
	OpDclTessOutputPrimitive
	OpDclHSMaxTessfactor
	OpDclHSForkPhaseInstanceCount
	OpDclHSJoinPhaseInstanceCount
	OpDclThreadGroup
	OpDclUAVTyped
	OpDclUAVRaw
	OpDclUAVStructured
	OpDclTGSMRaw
	OpDclTGSMStructured
	OpDclResourceRaw
	OpDclResourceStructured
	OpLdUAVTyped
	OpStoreUAVTyped
	OpLdRaw
	OpStoreRaw
	OpLdStructured
	OpStoreStructured
	OpAtomicAnd
	OpAtomicOr
	OpAtomicXor
	OpAtomicCmpStore
	OpAtomicIAdd
	OpAtomicIMax
	OpAtomicIMin
	OpAtomicUMax
	OpAtomicUMin
	OpImmAtomicAlloc
	OpImmAtomicConsume
	OpImmAtomicIAdd
	OpImmAtomicAnd
	OpImmAtomicOr
	OpImmAtomicXor
	OpImmAtomicExch
	OpImmAtomicCmpExch
	OpImmAtomicIMax
	OpImmAtomicIMin
	OpImmAtomicUMax
	OpImmAtomicUMin
	OpSync
	OpDAdd
	OpDMax
	OpDMin
	OpDMul
	OpDEq
	OpDGe
	OpDLt
	OpDNe
	OpDMov
	OpDMovC
	OpDToF
	OpFToD
	OpEvalSnapped
	OpEvalSampleIndex
	OpEvalCentroid
	OpDclGSInstanceCount
	OpAbort
	OpDebugBreak
	OpReserved2
	OpDDiv
	OpDFma
	OpDRcp
	OpMSAD
	OpDToI
	OpDToU
	OpIToD
	OpUToD

	numOpcodes
)

var opcodeNames = [numOpcodes]string{
	OpAdd: "add",
	OpAnd: "and",
	OpBreak: "break",
	OpBreakC: "breakc",
	OpCall: "call",
	OpCallC: "callc",
	OpCase: "case",
	OpContinue: "continue",
	OpContinueC: "continuec",
	OpCut: "cut",
	OpDefault: "default",
	OpDerivRTX: "deriv_rtx",
	OpDerivRTY: "deriv_rty",
	OpDiscard: "discard",
	OpDiv: "div",
	OpDP2: "dp2",
	OpDP3: "dp3",
	OpDP4: "dp4",
	OpElse: "else",
	OpEmit: "emit",
	OpEmitThenCut: "emitthencut",
	OpEndIf: "endif",
	OpEndLoop: "endloop",
	OpEndSwitch: "endswitch",
	OpEq: "eq",
	OpExp: "exp",
	OpFrc: "frc",
	OpFToI: "ftoi",
	OpFToU: "ftou",
	OpGe: "ge",
	OpIAdd: "iadd",
	OpIf: "if",
	OpIEq: "ieq",
	OpIGe: "ige",
	OpILt: "ilt",
	OpIMad: "imad",
	OpIMax: "imax",
	OpIMin: "imin",
	OpIMul: "imul",
	OpINe: "ine",
	OpINeg: "ineg",
	OpIShl: "ishl",
	OpIShr: "ishr",
	OpIToF: "itof",
	OpLabel: "label",
	OpLd: "ld",
	OpLdMS: "ld_ms",
	OpLog: "log",
	OpLoop: "loop",
	OpLt: "lt",
	OpMad: "mad",
	OpMin: "min",
	OpMax: "max",
	OpCustomData: "customdata",
	OpMov: "mov",
	OpMovC: "movc",
	OpMul: "mul",
	OpNe: "ne",
	OpNop: "nop",
	OpNot: "not",
	OpOr: "or",
	OpResInfo: "resinfo",
	OpRet: "ret",
	OpRetC: "retc",
	OpRoundNE: "round_ne",
	OpRoundNI: "round_ni",
	OpRoundPI: "round_pi",
	OpRoundZ: "round_z",
	OpRsq: "rsq",
	OpSample: "sample",
	OpSampleC: "sample_c",
	OpSampleCLZ: "sample_c_lz",
	OpSampleL: "sample_l",
	OpSampleD: "sample_d",
	OpSampleB: "sample_b",
	OpSqrt: "sqrt",
	OpSwitch: "switch",
	OpSinCos: "sincos",
	OpUDiv: "udiv",
	OpULt: "ult",
	OpUGe: "uge",
	OpUMul: "umul",
	OpUMad: "umad",
	OpUMax: "umax",
	OpUMin: "umin",
	OpUShr: "ushr",
	OpUToF: "utof",
	OpXor: "xor",
	OpDclResource: "dcl_resource",
	OpDclConstantBuffer: "dcl_constant_buffer",
	OpDclSampler: "dcl_sampler",
	OpDclIndexRange: "dcl_index_range",
	OpDclGSOutputPrimitiveTopology: "dcl_gs_output_primitive_topology",
	OpDclGSInputPrimitive: "dcl_gs_input_primitive",
	OpDclMaxOutputVertexCount: "dcl_max_output_vertex_count",
	OpDclInput: "dcl_input",
	OpDclInputSGV: "dcl_input_sgv",
	OpDclInputSIV: "dcl_input_siv",
	OpDclInputPS: "dcl_input_ps",
	OpDclInputPSSGV: "dcl_input_ps_sgv",
	OpDclInputPSSIV: "dcl_input_ps_siv",
	OpDclOutput: "dcl_output",
	OpDclOutputSGV: "dcl_output_sgv",
	OpDclOutputSIV: "dcl_output_siv",
	OpDclTemps: "dcl_temps",
	OpDclIndexableTemp: "dcl_indexable_temp",
	OpDclGlobalFlags: "dcl_global_flags",
	OpReserved0: "reserved0",
	OpLod: "lod",
	OpGather4: "gather4",
	OpSamplePos: "sample_pos",
	OpSampleInfo: "sample_info",
	OpReserved1: "reserved1",
	OpHSDecls: "hs_decls",
	OpHSControlPointPhase: "hs_control_point_phase",
	OpHSForkPhase: "hs_fork_phase",
	OpHSJoinPhase: "hs_join_phase",
	OpEmitStream: "emit_stream",
	OpCutStream: "cut_stream",
	OpEmitThenCutStream: "emitthencut_stream",
	OpInterfaceCall: "interface_call",
	OpBufInfo: "bufinfo",
	OpDerivRTXCoarse: "deriv_rtx_coarse",
	OpDerivRTXFine: "deriv_rtx_fine",
	OpDerivRTYCoarse: "deriv_rty_coarse",
	OpDerivRTYFine: "deriv_rty_fine",
	OpGather4C: "gather4_c",
	OpGather4PO: "gather4_po",
	OpGather4POC: "gather4_po_c",
	OpRcp: "rcp",
	OpF32ToF16: "f32tof16",
	OpF16ToF32: "f16tof32",
	OpUAddC: "uaddc",
	OpUSubB: "usubb",
	OpCountBits: "countbits",
	OpFirstBitHi: "firstbit_hi",
	OpFirstBitLo: "firstbit_lo",
	OpFirstBitShi: "firstbit_shi",
	OpUBFE: "ubfe",
	OpIBFE: "ibfe",
	OpBFI: "bfi",
	OpBFRev: "bfrev",
	OpSwapC: "swapc",
	OpDclStream: "dcl_stream",
	OpDclFunctionBody: "dcl_function_body",
	OpDclFunctionTable: "dcl_function_table",
	OpDclInterface: "dcl_interface",
	OpDclInputControlPointCount: "dcl_input_control_point_count",
	OpDclOutputControlPointCount: "dcl_output_control_point_count",
	OpDclTessDomain: "dcl_tess_domain",
	OpDclTessPartitioning: "dcl_tess_partitioning",
	OpDclTessOutputPrimitive: "dcl_tess_output_primitive",
	OpDclHSMaxTessfactor: "dcl_hs_max_tessfactor",
	OpDclHSForkPhaseInstanceCount: "dcl_hs_fork_phase_instance_count",
	OpDclHSJoinPhaseInstanceCount: "dcl_hs_join_phase_instance_count",
	OpDclThreadGroup: "dcl_thread_group",
	OpDclUAVTyped: "dcl_uav_typed",
	OpDclUAVRaw: "dcl_uav_raw",
	OpDclUAVStructured: "dcl_uav_structured",
	OpDclTGSMRaw: "dcl_tgsm_raw",
	OpDclTGSMStructured: "dcl_tgsm_structured",
	OpDclResourceRaw: "dcl_resource_raw",
	OpDclResourceStructured: "dcl_resource_structured",
	OpLdUAVTyped: "ld_uav_typed",
	OpStoreUAVTyped: "store_uav_typed",
	OpLdRaw: "ld_raw",
	OpStoreRaw: "store_raw",
	OpLdStructured: "ld_structured",
	OpStoreStructured: "store_structured",
	OpAtomicAnd: "atomic_and",
	OpAtomicOr: "atomic_or",
	OpAtomicXor: "atomic_xor",
	OpAtomicCmpStore: "atomic_cmp_store",
	OpAtomicIAdd: "atomic_iadd",
	OpAtomicIMax: "atomic_imax",
	OpAtomicIMin: "atomic_imin",
	OpAtomicUMax: "atomic_umax",
	OpAtomicUMin: "atomic_umin",
	OpImmAtomicAlloc: "imm_atomic_alloc",
	OpImmAtomicConsume: "imm_atomic_consume",
	OpImmAtomicIAdd: "imm_atomic_iadd",
	OpImmAtomicAnd: "imm_atomic_and",
	OpImmAtomicOr: "imm_atomic_or",
	OpImmAtomicXor: "imm_atomic_xor",
	OpImmAtomicExch: "imm_atomic_exch",
	OpImmAtomicCmpExch: "imm_atomic_cmp_exch",
	OpImmAtomicIMax: "imm_atomic_imax",
	OpImmAtomicIMin: "imm_atomic_imin",
	OpImmAtomicUMax: "imm_atomic_umax",
	OpImmAtomicUMin: "imm_atomic_umin",
	OpSync: "sync",
	OpDAdd: "dadd",
	OpDMax: "dmax",
	OpDMin: "dmin",
	OpDMul: "dmul",
	OpDEq: "deq",
	OpDGe: "dge",
	OpDLt: "dlt",
	OpDNe: "dne",
	OpDMov: "dmov",
	OpDMovC: "dmovc",
	OpDToF: "dtof",
	OpFToD: "ftod",
	OpEvalSnapped: "eval_snapped",
	OpEvalSampleIndex: "eval_sample_index",
	OpEvalCentroid: "eval_centroid",
	OpDclGSInstanceCount: "dcl_gs_instance_count",
	OpAbort: "abort",
	OpDebugBreak: "debugbreak",
	OpReserved2: "reserved2",
	OpDDiv: "ddiv",
	OpDFma: "dfma",
	OpDRcp: "drcp",
	OpMSAD: "msad",
	OpDToI: "dtoi",
	OpDToU: "dtou",
	OpIToD: "itod",
	OpUToD: "utod",
}

// String returns the assembler mnemonic for the opcode.
func (op Opcode) String() string {
	if op < numOpcodes {
		return opcodeNames[op]
	}
	return "unknown"
}

// LookupOpcode maps an assembler mnemonic back to its opcode.
func LookupOpcode(name string) (Opcode, bool) {
	op, ok := opcodesByName[name]
	return op, ok
}

var opcodesByName = func() map[string]Opcode {
	m := make(map[string]Opcode, numOpcodes)
	for i, name := range opcodeNames {
		m[name] = Opcode(i)
	}
	return m
}()

// IsDeclaration reports whether the opcode is a dcl_* token.
func (op Opcode) IsDeclaration() bool {
	switch op {
	case OpDclResource, OpDclConstantBuffer, OpDclSampler, OpDclIndexRange,
		OpDclGSOutputPrimitiveTopology, OpDclGSInputPrimitive, OpDclMaxOutputVertexCount,
		OpDclInput, OpDclInputSGV, OpDclInputSIV, OpDclInputPS, OpDclInputPSSGV, OpDclInputPSSIV,
		OpDclOutput, OpDclOutputSGV, OpDclOutputSIV, OpDclTemps, OpDclIndexableTemp,
		OpDclGlobalFlags, OpDclStream, OpDclFunctionBody, OpDclFunctionTable, OpDclInterface,
		OpDclInputControlPointCount, OpDclOutputControlPointCount, OpDclTessDomain,
		OpDclTessPartitioning, OpDclTessOutputPrimitive, OpDclHSMaxTessfactor,
		OpDclHSForkPhaseInstanceCount, OpDclHSJoinPhaseInstanceCount, OpDclThreadGroup,
		OpDclUAVTyped, OpDclUAVRaw, OpDclUAVStructured, OpDclTGSMRaw, OpDclTGSMStructured,
		OpDclResourceRaw, OpDclResourceStructured, OpDclGSInstanceCount:
		return true
	}
	return false
}

// IsFlowControl reports whether the opcode opens, closes or jumps within a
// structured control flow construct.
func (op Opcode) IsFlowControl() bool {
	switch op {
	case OpIf, OpElse, OpEndIf, OpLoop, OpEndLoop, OpBreak, OpBreakC,
		OpContinue, OpContinueC, OpSwitch, OpCase, OpDefault, OpEndSwitch,
		OpCall, OpCallC, OpRet, OpRetC, OpLabel:
		return true
	}
	return false
}

// IsImmediateAtomic reports whether the opcode returns the pre-operation
// value in its first operand.
func (op Opcode) IsImmediateAtomic() bool {
	return op >= OpImmAtomicAlloc && op <= OpImmAtomicUMin
}

// IsAtomic reports whether the opcode is a read-modify-write on a UAV or
// groupshared memory.
func (op Opcode) IsAtomic() bool {
	return (op >= OpAtomicAnd && op <= OpAtomicUMin) || op.IsImmediateAtomic()
}

// IsDerivative reports whether the opcode reads neighbouring quad lanes.
func (op Opcode) IsDerivative() bool {
	switch op {
	case OpDerivRTX, OpDerivRTY, OpDerivRTXCoarse, OpDerivRTXFine, OpDerivRTYCoarse, OpDerivRTYFine:
		return true
	}
	return false
}
