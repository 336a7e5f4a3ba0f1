package dxbc

import (
	"strings"
	"testing"
)

func inst(op Opcode, operands ...Operand) Operation {
	return Operation{Opcode: op, Operands: operands}
}

func temp(i uint64) Operand {
	return NewOperand(OperandTemp, i).WithSwizzle(0)
}

func TestValidateNilProgram(t *testing.T) {
	_, err := Validate(nil)
	if err == nil {
		t.Fatal("expected error for nil program")
	}
}

func TestValidateWellFormed(t *testing.T) {
	p := &Program{
		Type:  ShaderPixel,
		Major: 5,
		Declarations: []Declaration{
			{Opcode: OpDclTemps, NumTemps: 2},
		},
		Instructions: []Operation{
			inst(OpIf, temp(0)),
			inst(OpLoop),
			inst(OpBreakC, temp(1)),
			inst(OpEndLoop),
			inst(OpElse),
			inst(OpSwitch, temp(0)),
			inst(OpCase, ImmediateU32(1)),
			inst(OpBreak),
			inst(OpDefault),
			inst(OpBreak),
			inst(OpEndSwitch),
			inst(OpEndIf),
			inst(OpRet),
		},
	}

	errs, err := Validate(p)
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if len(errs) != 0 {
		t.Fatalf("unexpected errors: %v", errs)
	}
}

func TestValidateStructuralErrors(t *testing.T) {
	tests := []struct {
		name  string
		insts []Operation
		want  string
	}{
		{"unterminated if", []Operation{inst(OpIf, temp(0)), inst(OpRet)}, "unterminated if"},
		{"stray endif", []Operation{inst(OpEndIf)}, "endif without matching if"},
		{"stray else", []Operation{inst(OpElse)}, "else without matching if"},
		{"duplicate else", []Operation{inst(OpIf, temp(0)), inst(OpElse), inst(OpElse), inst(OpEndIf)}, "duplicate else"},
		{"mismatched endloop", []Operation{inst(OpIf, temp(0)), inst(OpEndLoop)}, "endloop without matching loop"},
		{"case outside switch", []Operation{inst(OpCase, ImmediateU32(0))}, "case outside switch"},
		{"break outside loop", []Operation{inst(OpBreak)}, "break outside loop or switch"},
		{"continue in switch", []Operation{inst(OpSwitch, temp(0)), inst(OpContinue), inst(OpEndSwitch)}, "continue outside loop"},
		{"operand count", []Operation{inst(OpAdd, temp(0), temp(1))}, "add expects 3 operands, got 2"},
		{"write to input", []Operation{inst(OpMov, NewOperand(OperandInput, 0), temp(0))}, "destination v is read-only"},
		{"call unknown label", []Operation{inst(OpCall, NewOperand(OperandLabel, 3))}, "undefined label 3"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			errs, err := Validate(&Program{Instructions: tt.insts})
			if err != nil {
				t.Fatalf("Validate: %v", err)
			}
			for _, e := range errs {
				if strings.Contains(e.Error(), tt.want) {
					return
				}
			}
			t.Errorf("expected error containing %q, got %v", tt.want, errs)
		})
	}
}

func TestValidateDeclarations(t *testing.T) {
	p := &Program{
		Declarations: []Declaration{
			{Opcode: OpDclTemps, NumTemps: 1},
			{Opcode: OpDclTemps, NumTemps: 2},
			{Opcode: OpDclThreadGroup, GroupSize: [3]uint32{8, 0, 1}},
			{Opcode: OpDclUAVStructured, Operand: NewOperand(OperandUAV, 0)},
			{Opcode: OpMov},
		},
	}
	errs, _ := Validate(p)
	if len(errs) != 4 {
		t.Fatalf("got %d errors, want 4: %v", len(errs), errs)
	}
}

func TestValidationErrorFormat(t *testing.T) {
	e := ValidationError{Message: "boom", Instruction: 7}
	if got := e.Error(); got != "instruction 7: boom" {
		t.Errorf("Error() = %q", got)
	}
	e.Instruction = -1
	if got := e.Error(); got != "boom" {
		t.Errorf("Error() = %q", got)
	}
}
