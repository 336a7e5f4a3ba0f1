package debugger

import (
	"github.com/gogpu/shaderdbg/binding"
	"github.com/gogpu/shaderdbg/dxbc"
	"github.com/gogpu/shaderdbg/value"
)

// ResourceData is the CPU copy of one buffer or texture binding.
type ResourceData struct {
	Data []byte

	// Format describes one element. For raw buffers ByteWidth is 4 and
	// NumComps 1; for structured buffers Stride is the structure size.
	Format value.TexelFormat

	FirstElement uint32
	NumElements  uint32

	// Texture resources are addressed by (x, y, z) using the pitches, and
	// typed access goes through APIWrapper.ReadTexel/WriteTexel.
	IsTexture  bool
	RowPitch   uint32
	DepthPitch uint32

	// HiddenCounter backs imm_atomic_alloc and imm_atomic_consume.
	HiddenCounter uint32
}

// SampleOp selects the sampling operation delegated to the host.
type SampleOp uint8

const (
	SampleNormal SampleOp = iota
	SampleBias
	SampleLevel
	SampleGrad
	SampleCompare
	SampleCompareLevelZero
	SampleGather
	SampleGatherCompare
	SampleLoad
	SampleLoadMS
	SampleLOD
)

var sampleOpNames = [...]string{
	SampleNormal:           "sample",
	SampleBias:             "sample_b",
	SampleLevel:            "sample_l",
	SampleGrad:             "sample_d",
	SampleCompare:          "sample_c",
	SampleCompareLevelZero: "sample_c_lz",
	SampleGather:           "gather4",
	SampleGatherCompare:    "gather4_c",
	SampleLoad:             "ld",
	SampleLoadMS:           "ld_ms",
	SampleLOD:              "lod",
}

func (op SampleOp) String() string {
	if int(op) < len(sampleOpNames) {
		return sampleOpNames[op]
	}
	return "unknown"
}

// SampleRequest is everything the host needs to sample, gather, load or
// compute a level of detail.
type SampleRequest struct {
	Op SampleOp

	Dim         dxbc.ResourceDimension
	RetType     dxbc.ReturnType
	SampleCount uint32

	Resource binding.Slot
	// Sampler is meaningless for ld and ld_ms.
	Sampler     binding.Slot
	SamplerMode dxbc.SamplerMode

	UV  value.ShaderVariable
	DDX value.ShaderVariable
	DDY value.ShaderVariable

	TexelOffset      [3]int8
	MultisampleIndex int32
	LODOrCompare     float32
	Bias             float32

	// Swizzle selects result components; entries are 0-3.
	Swizzle       [4]uint8
	GatherChannel uint8
}

// MessageCategory groups messages surfaced to the trace consumer.
type MessageCategory uint8

const (
	CategoryExecution MessageCategory = iota
	CategoryShaders
	CategoryResources
)

// MessageSeverity ranks messages surfaced to the trace consumer.
type MessageSeverity uint8

const (
	SeverityInfo MessageSeverity = iota
	SeverityLow
	SeverityMedium
	SeverityHigh
)

// APIWrapper is implemented by the host. It provides resource contents and
// GPU-precision evaluation of operations the interpreter does not compute
// itself.
type APIWrapper interface {
	// FetchSRV and FetchUAV return the contents of a binding. They are
	// called at most once per slot per session; a nil result or an error
	// leaves the binding absent.
	FetchSRV(slot binding.Slot) (*ResourceData, error)
	FetchUAV(slot binding.Slot) (*ResourceData, error)

	// CalculateMathIntrinsic evaluates rcp, rsq, exp, log or sincos for all
	// four lanes of in. sincos returns sin in the first and cos in the
	// second result; the other ops leave the second result zero.
	CalculateMathIntrinsic(op dxbc.Opcode, in value.ShaderVariable) (value.ShaderVariable, value.ShaderVariable, error)

	// CalculateSampleGather samples, gathers, loads or computes LOD.
	CalculateSampleGather(req *SampleRequest) (value.ShaderVariable, error)

	// GetResourceInfo returns width, height, depth or array size, and mip
	// count for resinfo, plus the dimensionality of the resource (0 if
	// unknown).
	GetResourceInfo(class dxbc.OperandType, slot binding.Slot, mip uint32) (value.ShaderVariable, int)

	// GetSampleInfo returns the sample count in the first lane. absolute
	// is false for the rasterizer register.
	GetSampleInfo(class dxbc.OperandType, absolute bool, slot binding.Slot) value.ShaderVariable

	// GetBufferInfo returns the element count in the first lane.
	GetBufferInfo(class dxbc.OperandType, slot binding.Slot) value.ShaderVariable

	// ReadTexel and WriteTexel access one texel of a texture UAV.
	ReadTexel(slot binding.Slot, coord [3]uint32) (value.ShaderVariable, error)
	WriteTexel(slot binding.Slot, coord [3]uint32, v value.ShaderVariable) error

	AddDebugMessage(cat MessageCategory, sev MessageSeverity, text string)

	// SetCurrentInstruction tells the host which instruction is executing,
	// for attributing messages.
	SetCurrentInstruction(pc int)
}
