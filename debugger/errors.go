package debugger

import "fmt"

// ErrorKind categorizes debugger errors.
type ErrorKind uint8

const (
	// ErrControlFlow indicates a branch scan found no matching terminator.
	// The program is structurally malformed and stepping cannot continue.
	ErrControlFlow ErrorKind = iota

	// ErrMalformedProgram indicates an instruction that cannot be executed
	// as written, such as a write to an input register.
	ErrMalformedProgram

	// ErrUnsupportedOpcode indicates an opcode the interpreter does not
	// implement. It is reported as a debug message, never returned, since
	// the step becomes a no-op.
	ErrUnsupportedOpcode

	// ErrInvalidTarget indicates a debug target that does not fit the
	// program (lane out of range, missing inputs).
	ErrInvalidTarget

	// ErrInvalidConfig indicates a Config that failed validation.
	ErrInvalidConfig
)

// String returns a human-readable error kind name.
func (k ErrorKind) String() string {
	switch k {
	case ErrControlFlow:
		return "ControlFlow"
	case ErrMalformedProgram:
		return "MalformedProgram"
	case ErrUnsupportedOpcode:
		return "UnsupportedOpcode"
	case ErrInvalidTarget:
		return "InvalidTarget"
	case ErrInvalidConfig:
		return "InvalidConfig"
	default:
		return "Unknown"
	}
}

// Error is returned by the debugger for structural failures.
type Error struct {
	Kind    ErrorKind
	Message string

	// PC is the instruction index the error refers to, or -1.
	PC int
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.PC >= 0 {
		return fmt.Sprintf("shaderdbg %s at instruction %d: %s", e.Kind, e.PC, e.Message)
	}
	return fmt.Sprintf("shaderdbg %s: %s", e.Kind, e.Message)
}

// NewError creates an error that does not refer to an instruction.
func NewError(kind ErrorKind, message string) *Error {
	return &Error{Kind: kind, Message: message, PC: -1}
}

func errorAt(kind ErrorKind, pc int, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), PC: pc}
}

// IsControlFlow returns true if the error is ErrControlFlow.
func (e *Error) IsControlFlow() bool {
	return e.Kind == ErrControlFlow
}

// IsMalformedProgram returns true if the error is ErrMalformedProgram.
func (e *Error) IsMalformedProgram() bool {
	return e.Kind == ErrMalformedProgram
}

// IsInvalidTarget returns true if the error is ErrInvalidTarget.
func (e *Error) IsInvalidTarget() bool {
	return e.Kind == ErrInvalidTarget
}
