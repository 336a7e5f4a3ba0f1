package dxbc

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// OperandType is the register class an operand refers to.
type OperandType uint8

const (
	OperandTemp OperandType = iota
	OperandInput
	OperandOutput
	OperandIndexableTemp
	OperandImmediate32
	OperandImmediate64
	OperandSampler
	OperandResource
	OperandConstantBuffer
	OperandImmediateConstantBuffer
	OperandLabel
	OperandInputPrimitiveID
	OperandOutputDepth
	OperandNull
	OperandRasterizer
	OperandOutputCoverageMask
	OperandStream
	OperandFunctionBody
	OperandFunctionTable
	OperandInterface
	OperandFunctionInput
	OperandFunctionOutput
	OperandOutputControlPointID
	OperandInputForkInstanceID
	OperandInputJoinInstanceID
	OperandInputControlPoint
	OperandOutputControlPoint
	OperandInputPatchConstant
	OperandInputDomainPoint
	OperandThisPointer
	OperandUAV
	OperandThreadGroupSharedMemory
	OperandInputThreadID
	OperandInputThreadGroupID
	OperandInputThreadIDInGroup
	OperandInputCoverageMask
	OperandInputThreadIDInGroupFlattened
	OperandInputGSInstanceID
	OperandOutputDepthGreaterEqual
	OperandOutputDepthLessEqual
	OperandCycleCounter
	OperandOutputStencilRef
	OperandInnerCoverage

	numOperandTypes
)

// operandPrefixes holds the register prefix used in assembly text.
var operandPrefixes = [numOperandTypes]string{
	OperandTemp:                          "r",
	OperandInput:                         "v",
	OperandOutput:                        "o",
	OperandIndexableTemp:                 "x",
	OperandImmediate32:                   "l",
	OperandImmediate64:                   "d",
	OperandSampler:                       "s",
	OperandResource:                      "t",
	OperandConstantBuffer:                "cb",
	OperandImmediateConstantBuffer:       "icb",
	OperandLabel:                         "label",
	OperandInputPrimitiveID:              "vPrim",
	OperandOutputDepth:                   "oDepth",
	OperandNull:                          "null",
	OperandRasterizer:                    "rasterizer",
	OperandOutputCoverageMask:            "oMask",
	OperandStream:                        "m",
	OperandFunctionBody:                  "fb",
	OperandFunctionTable:                 "ft",
	OperandInterface:                     "fp",
	OperandFunctionInput:                 "fi",
	OperandFunctionOutput:                "fo",
	OperandOutputControlPointID:          "vOutputControlPointID",
	OperandInputForkInstanceID:           "vForkInstanceID",
	OperandInputJoinInstanceID:           "vJoinInstanceID",
	OperandInputControlPoint:             "vicp",
	OperandOutputControlPoint:            "vocp",
	OperandInputPatchConstant:            "vpc",
	OperandInputDomainPoint:              "vDomain",
	OperandThisPointer:                   "this",
	OperandUAV:                           "u",
	OperandThreadGroupSharedMemory:       "g",
	OperandInputThreadID:                 "vThreadID",
	OperandInputThreadGroupID:            "vThreadGroupID",
	OperandInputThreadIDInGroup:          "vThreadIDInGroup",
	OperandInputCoverageMask:             "vCoverage",
	OperandInputThreadIDInGroupFlattened: "vThreadIDInGroupFlattened",
	OperandInputGSInstanceID:             "vGSInstanceID",
	OperandOutputDepthGreaterEqual:       "oDepthGE",
	OperandOutputDepthLessEqual:          "oDepthLE",
	OperandCycleCounter:                  "vCycleCounter",
	OperandOutputStencilRef:              "oStencilRef",
	OperandInnerCoverage:                 "vInnerCoverage",
}

// String returns the register prefix for the operand type.
func (t OperandType) String() string {
	if t < numOperandTypes {
		return operandPrefixes[t]
	}
	return fmt.Sprintf("operand(%d)", uint8(t))
}

// LookupOperandType maps a register prefix back to its operand type.
func LookupOperandType(prefix string) (OperandType, bool) {
	for i, p := range operandPrefixes {
		if p == prefix {
			return OperandType(i), true
		}
	}
	return 0, false
}

// IsInput reports whether the register class is read-only shader input.
func (t OperandType) IsInput() bool {
	switch t {
	case OperandInput, OperandInputPrimitiveID, OperandInputForkInstanceID, OperandInputJoinInstanceID,
		OperandInputControlPoint, OperandInputPatchConstant, OperandInputDomainPoint,
		OperandInputThreadID, OperandInputThreadGroupID, OperandInputThreadIDInGroup,
		OperandInputCoverageMask, OperandInputThreadIDInGroupFlattened, OperandInputGSInstanceID,
		OperandInnerCoverage:
		return true
	}
	return false
}

// IsOutput reports whether the register class is a shader output.
func (t OperandType) IsOutput() bool {
	switch t {
	case OperandOutput, OperandOutputDepth, OperandOutputDepthLessEqual, OperandOutputDepthGreaterEqual,
		OperandOutputStencilRef, OperandOutputCoverageMask, OperandOutputControlPoint:
		return true
	}
	return false
}

// NumComponents is the component count class of an operand.
type NumComponents uint8

const (
	NumComps0 NumComponents = iota
	NumComps1
	NumComps4
	NumCompsN
)

// Modifier is the source modifier applied after fetch.
type Modifier uint8

const (
	ModifierNone Modifier = iota
	ModifierNeg
	ModifierAbs
	ModifierAbsNeg
)

// CompUnused marks an unused swizzle/mask slot.
const CompUnused = 0xff

// RegIndex is one dimension of an operand's register index. The effective
// index is Index (if Absolute) plus the first component of Relative (if set).
type RegIndex struct {
	Absolute bool
	Index    uint64
	Relative *Operand
}

// Operand is a decoded instruction or declaration operand.
type Operand struct {
	Type          OperandType
	NumComponents NumComponents

	// Comps holds the swizzle (sources) or write mask (destinations).
	// Each entry is 0-3 for x-w, or CompUnused.
	Comps [4]uint8

	Indices  []RegIndex
	Modifier Modifier

	// Values holds immediate data for Immediate32/Immediate64 operands.
	// 64-bit immediates use Values[0..1] for the first component and
	// Values[2..3] for the second.
	Values [4]uint32

	// Name is an optional friendly name from debug info.
	Name string
}

// NewOperand returns an operand of the given class with no swizzle.
func NewOperand(t OperandType, indices ...uint64) Operand {
	op := Operand{
		Type:          t,
		NumComponents: NumComps4,
		Comps:         [4]uint8{CompUnused, CompUnused, CompUnused, CompUnused},
	}
	for _, idx := range indices {
		op.Indices = append(op.Indices, RegIndex{Absolute: true, Index: idx})
	}
	return op
}

// WithSwizzle returns a copy of the operand with the given component
// selection. Fewer than four components leaves the rest unused.
func (o Operand) WithSwizzle(comps ...uint8) Operand {
	o.Comps = [4]uint8{CompUnused, CompUnused, CompUnused, CompUnused}
	copy(o.Comps[:], comps)
	return o
}

// ImmediateU32 returns a 4-component 32-bit immediate.
func ImmediateU32(values ...uint32) Operand {
	op := Operand{Type: OperandImmediate32, Comps: [4]uint8{CompUnused, CompUnused, CompUnused, CompUnused}}
	if len(values) == 1 {
		op.NumComponents = NumComps1
	} else {
		op.NumComponents = NumComps4
	}
	copy(op.Values[:], values)
	return op
}

// ImmediateF32 returns a 32-bit float immediate with one or four components.
func ImmediateF32(values ...float32) Operand {
	raw := make([]uint32, len(values))
	for i, f := range values {
		raw[i] = math.Float32bits(f)
	}
	return ImmediateU32(raw...)
}

// ImmediateF64 returns a 64-bit immediate holding one or two doubles.
func ImmediateF64(values ...float64) Operand {
	op := Operand{Type: OperandImmediate64, Comps: [4]uint8{CompUnused, CompUnused, CompUnused, CompUnused}}
	op.NumComponents = NumComps4
	for i, d := range values {
		if i > 1 {
			break
		}
		bits := math.Float64bits(d)
		op.Values[i*2] = uint32(bits)
		op.Values[i*2+1] = uint32(bits >> 32)
	}
	return op
}

// ComponentCount returns the number of used entries in Comps.
func (o *Operand) ComponentCount() int {
	n := 0
	for _, c := range o.Comps {
		if c != CompUnused {
			n++
		}
	}
	return n
}

// IsScalarSelect reports whether only the first swizzle entry is used.
func (o *Operand) IsScalarSelect() bool {
	return o.Comps[0] != CompUnused && o.Comps[1] == CompUnused &&
		o.Comps[2] == CompUnused && o.Comps[3] == CompUnused
}

// SameResource reports whether two operands name the same resource binding.
func (o *Operand) SameResource(other *Operand) bool {
	if o.Type != other.Type || len(o.Indices) != len(other.Indices) {
		return false
	}
	for i := range o.Indices {
		a, b := o.Indices[i], other.Indices[i]
		if a.Absolute != b.Absolute || a.Index != b.Index || (a.Relative == nil) != (b.Relative == nil) {
			return false
		}
	}
	return true
}

const swizzleChars = "xyzw"

// String formats the operand in assembler syntax.
func (o *Operand) String() string {
	var sb strings.Builder
	switch o.Modifier {
	case ModifierNeg:
		sb.WriteByte('-')
	case ModifierAbs:
		sb.WriteByte('|')
	case ModifierAbsNeg:
		sb.WriteString("-|")
	}

	switch o.Type {
	case OperandImmediate32:
		sb.WriteString("l(")
		n := 1
		if o.NumComponents == NumComps4 {
			n = 4
		}
		for i := 0; i < n; i++ {
			if i > 0 {
				sb.WriteString(", ")
			}
			sb.WriteString(formatImmediate(o.Values[i]))
		}
		sb.WriteByte(')')
	case OperandImmediate64:
		sb.WriteString("d(")
		for i := 0; i < 2; i++ {
			if i > 0 {
				sb.WriteString(", ")
			}
			bits := uint64(o.Values[i*2]) | uint64(o.Values[i*2+1])<<32
			sb.WriteString(strconv.FormatFloat(math.Float64frombits(bits), 'g', -1, 64))
		}
		sb.WriteByte(')')
	default:
		sb.WriteString(o.Type.String())
		for i, idx := range o.Indices {
			if i == 0 && idx.Relative == nil && o.Type != OperandImmediateConstantBuffer {
				sb.WriteString(strconv.FormatUint(idx.Index, 10))
				continue
			}
			sb.WriteByte('[')
			sb.WriteString(idx.String())
			sb.WriteByte(']')
		}
	}

	if o.Type != OperandImmediate32 && o.Type != OperandImmediate64 && o.ComponentCount() > 0 {
		sb.WriteByte('.')
		for _, c := range o.Comps {
			if c != CompUnused {
				sb.WriteByte(swizzleChars[c&3])
			}
		}
	}

	switch o.Modifier {
	case ModifierAbs, ModifierAbsNeg:
		sb.WriteByte('|')
	}
	return sb.String()
}

// String formats the index in assembler syntax, e.g. "r1.x + 3".
func (r RegIndex) String() string {
	switch {
	case r.Relative != nil && r.Absolute && r.Index != 0:
		return r.Relative.String() + " + " + strconv.FormatUint(r.Index, 10)
	case r.Relative != nil:
		return r.Relative.String()
	default:
		return strconv.FormatUint(r.Index, 10)
	}
}

// formatImmediate prints small integers as integers and everything else as
// a float. Floats always carry a fraction or exponent so the two read back
// unambiguously.
func formatImmediate(v uint32) string {
	if v < 0x10000 || v >= 0xffff0000 {
		return strconv.FormatInt(int64(int32(v)), 10)
	}
	s := strconv.FormatFloat(float64(math.Float32frombits(v)), 'g', -1, 32)
	if !strings.ContainsAny(s, ".eIN") {
		s += ".0"
	}
	return s
}
