package dxbc

import "strconv"

// SystemValue identifies a system-interpreted signature element.
type SystemValue uint8

const (
	SVUndefined SystemValue = iota
	SVPosition
	SVClipDistance
	SVCullDistance
	SVRenderTargetIndex
	SVViewportIndex
	SVVertexID
	SVPrimitiveID
	SVInstanceID
	SVIsFrontFace
	SVSampleIndex
	SVCoverage
	SVDepth
	SVDepthGreaterEqual
	SVDepthLessEqual
	SVStencilRef
	SVTarget
	SVOutputControlPointID
	SVInnerCoverage
)

var systemValueNames = [...]string{
	SVUndefined:            "",
	SVPosition:             "SV_Position",
	SVClipDistance:         "SV_ClipDistance",
	SVCullDistance:         "SV_CullDistance",
	SVRenderTargetIndex:    "SV_RenderTargetArrayIndex",
	SVViewportIndex:        "SV_ViewportArrayIndex",
	SVVertexID:             "SV_VertexID",
	SVPrimitiveID:          "SV_PrimitiveID",
	SVInstanceID:           "SV_InstanceID",
	SVIsFrontFace:          "SV_IsFrontFace",
	SVSampleIndex:          "SV_SampleIndex",
	SVCoverage:             "SV_Coverage",
	SVDepth:                "SV_Depth",
	SVDepthGreaterEqual:    "SV_DepthGreaterEqual",
	SVDepthLessEqual:       "SV_DepthLessEqual",
	SVStencilRef:           "SV_StencilRef",
	SVTarget:               "SV_Target",
	SVOutputControlPointID: "SV_OutputControlPointID",
	SVInnerCoverage:        "SV_InnerCoverage",
}

func (s SystemValue) String() string {
	if int(s) < len(systemValueNames) {
		return systemValueNames[s]
	}
	return "SV_Unknown"
}

// LookupSystemValue parses an SV_* semantic name.
func LookupSystemValue(name string) (SystemValue, bool) {
	for i, n := range systemValueNames {
		if n != "" && n == name {
			return SystemValue(i), true
		}
	}
	return SVUndefined, false
}

// CompType is the numeric class of a signature element or constant.
type CompType uint8

const (
	CompFloat CompType = iota
	CompUInt
	CompSInt
	CompDouble
	CompBool
)

func (c CompType) String() string {
	switch c {
	case CompFloat:
		return "float"
	case CompUInt:
		return "uint"
	case CompSInt:
		return "int"
	case CompDouble:
		return "double"
	case CompBool:
		return "bool"
	}
	return "unknown"
}

// SignatureParameter is one element of an input or output signature.
type SignatureParameter struct {
	SemanticName  string
	SemanticIndex uint32
	Register      int32
	SystemValue   SystemValue
	CompType      CompType
	// RegChannelMask is the set of components used (bit 0 = x).
	RegChannelMask uint8
	Stream         uint32
}

// SemanticIdxName returns e.g. "TEXCOORD1", or the bare name for index 0.
func (s *SignatureParameter) SemanticIdxName() string {
	if s.SemanticIndex == 0 {
		return s.SemanticName
	}
	return s.SemanticName + strconv.FormatUint(uint64(s.SemanticIndex), 10)
}

// NumColumns returns the component count implied by RegChannelMask.
func (s *SignatureParameter) NumColumns() int {
	switch {
	case s.RegChannelMask&0x8 != 0:
		return 4
	case s.RegChannelMask&0x4 != 0:
		return 3
	case s.RegChannelMask&0x2 != 0:
		return 2
	case s.RegChannelMask&0x1 != 0:
		return 1
	}
	return 0
}

// VariableClass is the shape of a constant buffer member.
type VariableClass uint8

const (
	ClassScalar VariableClass = iota
	ClassVector
	ClassMatrixRows
	ClassMatrixColumns
	ClassStruct
)

// VariableType describes the type of a constant buffer member.
type VariableType struct {
	Name     string
	Class    VariableClass
	Base     CompType
	Rows     uint32
	Cols     uint32
	Elements uint32
	// Members is populated for ClassStruct.
	Members []CBufferVariable
}

// RowMajor reports whether matrix data is stored row by row.
func (t *VariableType) RowMajor() bool {
	return t.Class == ClassMatrixRows
}

// CBufferVariable is a named member at a byte offset.
type CBufferVariable struct {
	Name   string
	Offset uint32
	Type   VariableType
}

// CBuffer describes one constant buffer layout.
type CBuffer struct {
	Name string
	// Identifier is the logical cb# index used by instructions.
	Identifier uint32
	Space      uint32
	// Register is the first shader register the buffer binds to.
	Register  uint32
	BindCount uint32
	Size      uint32
	Variables []CBufferVariable
}

// InputBindType is the kind of a resource binding.
type InputBindType uint8

const (
	BindCBuffer InputBindType = iota
	BindTexture
	BindSampler
	BindUAVTyped
	BindStructured
	BindUAVStructured
	BindByteAddress
	BindUAVByteAddress
	BindUAVAppend
	BindUAVConsume
	BindUAVCounter
)

// ShaderInputBind is a reflected resource binding.
type ShaderInputBind struct {
	Name       string
	Type       InputBindType
	Space      uint32
	Reg        uint32
	BindCount  uint32
	RetType    ReturnType
	Dimension  ResourceDimension
	NumComps   uint32
	Identifier uint32
}

// Reflection is the metadata accompanying a program.
type Reflection struct {
	InputSig  []SignatureParameter
	OutputSig []SignatureParameter
	CBuffers  []CBuffer
	SRVs      []ShaderInputBind
	UAVs      []ShaderInputBind
	Samplers  []ShaderInputBind
}

// CBuffer returns the constant buffer with the given logical identifier.
func (r *Reflection) CBuffer(identifier uint32) *CBuffer {
	if r == nil {
		return nil
	}
	for i := range r.CBuffers {
		if r.CBuffers[i].Identifier == identifier {
			return &r.CBuffers[i]
		}
	}
	return nil
}

// OutputBySystemValue returns the index of the output signature element with
// the given system value, or -1.
func (r *Reflection) OutputBySystemValue(sv SystemValue) int {
	if r == nil {
		return -1
	}
	for i := range r.OutputSig {
		if r.OutputSig[i].SystemValue == sv {
			return i
		}
	}
	return -1
}
