package dxbc

import (
	"fmt"
	"strings"
)

// ResourceDimension is the shape of a texture or buffer resource.
type ResourceDimension uint8

const (
	DimUnknown ResourceDimension = iota
	DimBuffer
	DimTexture1D
	DimTexture2D
	DimTexture2DMS
	DimTexture3D
	DimTextureCube
	DimTexture1DArray
	DimTexture2DArray
	DimTexture2DMSArray
	DimTextureCubeArray
	DimRawBuffer
	DimStructuredBuffer
)

var dimensionNames = [...]string{
	DimUnknown:          "unknown",
	DimBuffer:           "buffer",
	DimTexture1D:        "texture1d",
	DimTexture2D:        "texture2d",
	DimTexture2DMS:      "texture2dms",
	DimTexture3D:        "texture3d",
	DimTextureCube:      "texturecube",
	DimTexture1DArray:   "texture1darray",
	DimTexture2DArray:   "texture2darray",
	DimTexture2DMSArray: "texture2dmsarray",
	DimTextureCubeArray: "texturecubearray",
	DimRawBuffer:        "raw_buffer",
	DimStructuredBuffer: "structured_buffer",
}

func (d ResourceDimension) String() string {
	if int(d) < len(dimensionNames) {
		return dimensionNames[d]
	}
	return "unknown"
}

// LookupDimension parses a dimension name.
func LookupDimension(name string) (ResourceDimension, bool) {
	for i, n := range dimensionNames {
		if n == name {
			return ResourceDimension(i), true
		}
	}
	return DimUnknown, false
}

// IsBuffer reports whether the dimension addresses elements rather than
// texels.
func (d ResourceDimension) IsBuffer() bool {
	return d == DimBuffer || d == DimRawBuffer || d == DimStructuredBuffer
}

// ReturnType is the per-component format of a typed resource.
type ReturnType uint8

const (
	ReturnUnknown ReturnType = iota
	ReturnUNorm
	ReturnSNorm
	ReturnSInt
	ReturnUInt
	ReturnFloat
	ReturnMixed
	ReturnDouble
	ReturnContinued
	ReturnUnused
)

var returnTypeNames = [...]string{
	ReturnUnknown:   "unknown",
	ReturnUNorm:     "unorm",
	ReturnSNorm:     "snorm",
	ReturnSInt:      "sint",
	ReturnUInt:      "uint",
	ReturnFloat:     "float",
	ReturnMixed:     "mixed",
	ReturnDouble:    "double",
	ReturnContinued: "continued",
	ReturnUnused:    "unused",
}

func (r ReturnType) String() string {
	if int(r) < len(returnTypeNames) {
		return returnTypeNames[r]
	}
	return "unknown"
}

// LookupReturnType parses a return type name.
func LookupReturnType(name string) (ReturnType, bool) {
	for i, n := range returnTypeNames {
		if n == name {
			return ReturnType(i), true
		}
	}
	return ReturnUnknown, false
}

// ResinfoRetType selects the result format of resinfo and sample_info.
type ResinfoRetType uint8

const (
	RetTypeFloat ResinfoRetType = iota
	RetTypeRcpFloat
	RetTypeUInt
)

func (r ResinfoRetType) String() string {
	switch r {
	case RetTypeFloat:
		return "float"
	case RetTypeRcpFloat:
		return "rcpFloat"
	case RetTypeUInt:
		return "uint"
	}
	return "unknown"
}

// SamplerMode is declared per sampler slot.
type SamplerMode uint8

const (
	SamplerModeDefault SamplerMode = iota
	SamplerModeComparison
	SamplerModeMono
)

// Sync flags select what a sync instruction orders and whether it is also a
// thread barrier.
const (
	SyncThreadsInGroup uint8 = 1 << iota
	SyncGroupShared
	SyncUAVGroup
	SyncUAVGlobal
)

// SyncSuffixes lists the mnemonic suffix of each sync flag in the order they
// are printed.
var SyncSuffixes = []struct {
	Flag   uint8
	Suffix string
}{
	{SyncUAVGlobal, "_uglobal"},
	{SyncUAVGroup, "_ugroup"},
	{SyncGroupShared, "_g"},
	{SyncThreadsInGroup, "_t"},
}

// Operation is one decoded instruction.
type Operation struct {
	Opcode   Opcode
	Operands []Operand

	// Saturate clamps float results to [0, 1].
	Saturate bool
	// NonZero selects the _nz variant of conditional instructions.
	NonZero bool

	// Stride is the structure stride for ld_structured/store_structured when
	// the decoder could resolve it.
	Stride uint32

	// InfoRetType is the return type of resinfo/sample_info/sample_pos.
	InfoRetType ResinfoRetType

	// SyncFlags is the flag mask of sync instructions.
	SyncFlags uint8

	TexelOffset [3]int8
	ResDim      ResourceDimension
	ResType     [4]ReturnType

	// Offset is the byte offset of the instruction in the original blob,
	// used only for display.
	Offset uint32
	// Line is an optional source line from debug info.
	Line uint32
}

// Dst returns operand i, or nil if the instruction has fewer operands.
func (op *Operation) Dst(i int) *Operand {
	if i < len(op.Operands) {
		return &op.Operands[i]
	}
	return nil
}

// String formats the instruction in assembler syntax.
func (op *Operation) String() string {
	var sb strings.Builder
	sb.WriteString(op.Mnemonic())
	for i := range op.Operands {
		if i == 0 {
			sb.WriteByte(' ')
		} else {
			sb.WriteString(", ")
		}
		sb.WriteString(op.Operands[i].String())
	}
	return sb.String()
}

// Mnemonic returns the opcode name with its _nz/_z, sync, _aoffimmi, return
// type and _sat suffixes applied.
func (op *Operation) Mnemonic() string {
	name := op.Opcode.String()
	if op.Opcode.TakesTestFlag() {
		if op.NonZero {
			name += "_nz"
		} else {
			name += "_z"
		}
	}
	if op.Opcode == OpSync {
		for _, f := range SyncSuffixes {
			if op.SyncFlags&f.Flag != 0 {
				name += f.Suffix
			}
		}
	}
	if o := op.TexelOffset; o != [3]int8{} {
		name += fmt.Sprintf("_aoffimmi(%d,%d,%d)", o[0], o[1], o[2])
	}
	switch op.Opcode {
	case OpResInfo, OpSampleInfo, OpSamplePos:
		if op.InfoRetType != RetTypeFloat {
			name += "_" + op.InfoRetType.String()
		}
	}
	if op.Saturate {
		name += "_sat"
	}
	return name
}

// TakesTestFlag reports whether the opcode has _z/_nz variants.
func (op Opcode) TakesTestFlag() bool {
	switch op {
	case OpIf, OpBreakC, OpContinueC, OpRetC, OpCallC, OpDiscard:
		return true
	}
	return false
}
