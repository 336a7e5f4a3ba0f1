package dxbc

import "fmt"

// ShaderType is the pipeline stage a program was compiled for.
type ShaderType uint8

const (
	ShaderPixel ShaderType = iota
	ShaderVertex
	ShaderGeometry
	ShaderHull
	ShaderDomain
	ShaderCompute
)

var shaderTypeNames = [...]string{
	ShaderPixel:    "ps",
	ShaderVertex:   "vs",
	ShaderGeometry: "gs",
	ShaderHull:     "hs",
	ShaderDomain:   "ds",
	ShaderCompute:  "cs",
}

func (t ShaderType) String() string {
	if int(t) < len(shaderTypeNames) {
		return shaderTypeNames[t]
	}
	return "unknown"
}

// LookupShaderType parses a profile prefix such as "ps" or "cs".
func LookupShaderType(name string) (ShaderType, bool) {
	for i, n := range shaderTypeNames {
		if n == name {
			return ShaderType(i), true
		}
	}
	return 0, false
}

// Declaration is a decoded dcl_* token.
type Declaration struct {
	Opcode  Opcode
	Operand Operand

	// Space is the register space for shader model 5.1 resource declarations.
	Space uint32

	// NumTemps is the count for dcl_temps, or the register count for
	// dcl_indexableTemp.
	NumTemps uint32
	// TempReg and TempComponents describe dcl_indexableTemp x#[N], C.
	TempReg        uint32
	TempComponents uint32

	// GroupSize is the dcl_thread_group size.
	GroupSize [3]uint32

	// Resource declarations.
	Dim         ResourceDimension
	SampleCount uint32
	ResType     [4]ReturnType
	Stride      uint32
	HasCounter  bool

	// Count is the element count of dcl_tgsm_structured, or the byte count
	// of dcl_tgsm_raw.
	Count uint32

	SamplerMode SamplerMode
	SystemValue SystemValue
}

// Function describes a labelled subroutine body reachable by call/callc.
// Params lists the temporary registers the callee reads its arguments from;
// they are seeded from the extra source operands of the call.
type Function struct {
	Label  uint32
	Name   string
	Params []uint32
}

// Program is a decoded shader.
type Program struct {
	Type         ShaderType
	Major, Minor uint32

	Declarations []Declaration
	Instructions []Operation

	// ImmediateConstants is the immediate constant buffer, 4 words per entry.
	ImmediateConstants []uint32

	Functions  []Function
	Reflection *Reflection
}

// Profile returns the target profile, e.g. "ps_5_0".
func (p *Program) Profile() string {
	return fmt.Sprintf("%s_%d_%d", p.Type, p.Major, p.Minor)
}

// IsShaderModel51 reports whether resources use the indexed (id, first,
// last) binding scheme.
func (p *Program) IsShaderModel51() bool {
	return p.Major > 5 || (p.Major == 5 && p.Minor >= 1)
}

// NumInstructions returns the instruction count.
func (p *Program) NumInstructions() int {
	return len(p.Instructions)
}

// Instruction returns the instruction at index i.
func (p *Program) Instruction(i int) *Operation {
	return &p.Instructions[i]
}

// FindDeclaration returns the first declaration with the given opcode that
// matches pred, or nil. A nil pred matches any declaration of that opcode.
func (p *Program) FindDeclaration(op Opcode, pred func(*Declaration) bool) *Declaration {
	for i := range p.Declarations {
		d := &p.Declarations[i]
		if d.Opcode != op {
			continue
		}
		if pred == nil || pred(d) {
			return d
		}
	}
	return nil
}

// FindResourceDeclaration returns the declaration of the given register
// class whose first operand index is id, searching every resource dcl opcode.
func (p *Program) FindResourceDeclaration(class OperandType, id uint32) *Declaration {
	for i := range p.Declarations {
		d := &p.Declarations[i]
		if d.Operand.Type != class || len(d.Operand.Indices) == 0 {
			continue
		}
		if !d.Opcode.IsDeclaration() {
			continue
		}
		if uint32(d.Operand.Indices[0].Index) == id {
			return d
		}
	}
	return nil
}

// ThreadGroupSize returns the declared compute group size, or 1,1,1.
func (p *Program) ThreadGroupSize() [3]uint32 {
	if d := p.FindDeclaration(OpDclThreadGroup, nil); d != nil {
		return d.GroupSize
	}
	return [3]uint32{1, 1, 1}
}

// LabelPosition returns the instruction index of label l#.
func (p *Program) LabelPosition(label uint32) (int, bool) {
	for i := range p.Instructions {
		op := &p.Instructions[i]
		if op.Opcode != OpLabel || len(op.Operands) == 0 {
			continue
		}
		if len(op.Operands[0].Indices) > 0 && uint32(op.Operands[0].Indices[0].Index) == label {
			return i, true
		}
	}
	return 0, false
}

// Function returns the function description for label l#, if any.
func (p *Program) Function(label uint32) *Function {
	for i := range p.Functions {
		if p.Functions[i].Label == label {
			return &p.Functions[i]
		}
	}
	return nil
}
