package dxbc

import (
	"fmt"
)

// ValidationError represents a structural problem in a decoded program.
type ValidationError struct {
	Message string
	// Instruction is the index of the offending instruction, or -1.
	Instruction int
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	if e.Instruction >= 0 {
		return fmt.Sprintf("instruction %d: %s", e.Instruction, e.Message)
	}
	return e.Message
}

// Validator checks a program for malformed control flow and operands.
type Validator struct {
	program *Program
	errors  []ValidationError
	blocks  []openBlock
}

// openBlock is an unterminated structured construct.
type openBlock struct {
	opcode  Opcode
	start   int
	sawElse bool
}

// Validate checks the program for structural correctness.
// Returns validation errors if any, or nil if the program is well formed.
func Validate(program *Program) ([]ValidationError, error) {
	if program == nil {
		return nil, fmt.Errorf("program is nil")
	}

	v := &Validator{
		program: program,
		errors:  make([]ValidationError, 0),
	}

	v.ValidateProgram()

	if len(v.errors) > 0 {
		return v.errors, nil
	}
	return nil, nil
}

// ValidateProgram validates the complete program.
func (v *Validator) ValidateProgram() {
	v.validateDeclarations()
	v.validateInstructions()
	v.validateFunctions()
}

func (v *Validator) validateDeclarations() {
	temps := 0
	for i := range v.program.Declarations {
		d := &v.program.Declarations[i]
		if !d.Opcode.IsDeclaration() {
			v.addError(-1, fmt.Sprintf("declaration %d: %s is not a declaration opcode", i, d.Opcode))
			continue
		}
		switch d.Opcode {
		case OpDclTemps:
			temps++
			if temps > 1 {
				v.addError(-1, "multiple dcl_temps declarations")
			}
		case OpDclThreadGroup:
			for axis, n := range d.GroupSize {
				if n == 0 {
					v.addError(-1, fmt.Sprintf("dcl_thread_group: axis %d has zero size", axis))
				}
			}
		case OpDclTGSMStructured:
			if d.Stride == 0 {
				v.addError(-1, "dcl_tgsm_structured: zero stride")
			}
		case OpDclResourceStructured, OpDclUAVStructured:
			if d.Stride == 0 {
				v.addError(-1, fmt.Sprintf("%s: zero stride", d.Opcode))
			}
		}
	}
}

//nolint:gocognit,gocyclo,cyclop // one case per structured construct
func (v *Validator) validateInstructions() {
	for i := range v.program.Instructions {
		op := &v.program.Instructions[i]

		if op.Opcode.IsDeclaration() {
			v.addError(i, fmt.Sprintf("declaration %s in instruction stream", op.Opcode))
			continue
		}

		if n := op.Opcode.NumOperands(); n >= 0 && len(op.Operands) != n {
			v.addError(i, fmt.Sprintf("%s expects %d operands, got %d", op.Opcode, n, len(op.Operands)))
		}

		for d := 0; d < op.Opcode.NumDestinations() && d < len(op.Operands); d++ {
			v.validateDestination(i, &op.Operands[d])
		}

		switch op.Opcode {
		case OpIf, OpLoop, OpSwitch:
			v.blocks = append(v.blocks, openBlock{opcode: op.Opcode, start: i})

		case OpElse:
			top := v.top()
			if top == nil || top.opcode != OpIf {
				v.addError(i, "else without matching if")
			} else if top.sawElse {
				v.addError(i, "duplicate else")
			} else {
				top.sawElse = true
			}

		case OpEndIf:
			v.pop(i, OpIf, "endif")

		case OpEndLoop:
			v.pop(i, OpLoop, "endloop")

		case OpEndSwitch:
			v.pop(i, OpSwitch, "endswitch")

		case OpCase, OpDefault:
			if top := v.top(); top == nil || top.opcode != OpSwitch {
				v.addError(i, fmt.Sprintf("%s outside switch", op.Opcode))
			}

		case OpBreak, OpBreakC:
			if !v.inside(OpLoop) && !v.inside(OpSwitch) {
				v.addError(i, fmt.Sprintf("%s outside loop or switch", op.Opcode))
			}

		case OpContinue, OpContinueC:
			if !v.inside(OpLoop) {
				v.addError(i, fmt.Sprintf("%s outside loop", op.Opcode))
			}

		case OpCall, OpCallC:
			v.validateCall(i, op)
		}
	}

	for _, b := range v.blocks {
		v.addError(b.start, fmt.Sprintf("unterminated %s", b.opcode))
	}
}

func (v *Validator) validateDestination(i int, dst *Operand) {
	switch dst.Type {
	case OperandInput, OperandConstantBuffer, OperandImmediateConstantBuffer,
		OperandImmediate32, OperandImmediate64:
		v.addError(i, fmt.Sprintf("destination %s is read-only", dst.Type))
	}
}

func (v *Validator) validateCall(i int, op *Operation) {
	labelIdx := 0
	if op.Opcode == OpCallC {
		labelIdx = 1
	}
	if labelIdx >= len(op.Operands) {
		v.addError(i, fmt.Sprintf("%s without label operand", op.Opcode))
		return
	}
	label := &op.Operands[labelIdx]
	if label.Type != OperandLabel || len(label.Indices) == 0 {
		v.addError(i, fmt.Sprintf("%s target is not a label", op.Opcode))
		return
	}
	if _, ok := v.program.LabelPosition(uint32(label.Indices[0].Index)); !ok {
		v.addError(i, fmt.Sprintf("%s to undefined label %d", op.Opcode, label.Indices[0].Index))
	}
}

func (v *Validator) validateFunctions() {
	for _, fn := range v.program.Functions {
		if _, ok := v.program.LabelPosition(fn.Label); !ok {
			v.addError(-1, fmt.Sprintf("function %q: label %d not found", fn.Name, fn.Label))
		}
	}
}

func (v *Validator) top() *openBlock {
	if len(v.blocks) == 0 {
		return nil
	}
	return &v.blocks[len(v.blocks)-1]
}

func (v *Validator) inside(op Opcode) bool {
	for _, b := range v.blocks {
		if b.opcode == op {
			return true
		}
	}
	return false
}

func (v *Validator) pop(i int, want Opcode, name string) {
	top := v.top()
	if top == nil || top.opcode != want {
		v.addError(i, fmt.Sprintf("%s without matching %s", name, want))
		return
	}
	v.blocks = v.blocks[:len(v.blocks)-1]
}

// addError adds a validation error.
func (v *Validator) addError(instruction int, msg string) {
	v.errors = append(v.errors, ValidationError{
		Message:     msg,
		Instruction: instruction,
	})
}
