// Package dxbc defines the decoded program model consumed by the shader
// debugger.
//
// A Program is the output of an external bytecode decoder: a flat list of
// Operations (instructions) plus the Declarations that precede them and the
// Reflection metadata describing signatures, constant buffers and resource
// bindings. The debugger never mutates a Program.
//
// # Structure
//
//   - Opcode: one value per instruction or declaration token
//   - Operand: register class, indices, swizzle/mask and modifiers
//   - Operation: an executable instruction with its operands and flags
//   - Declaration: a dcl_* token (temps, resources, thread group size, ...)
//   - Reflection: input/output signatures, constant buffer layouts, binds
//
// Structured control flow is not encoded explicitly. IF/ELSE/ENDIF,
// LOOP/ENDLOOP and SWITCH/CASE/ENDSWITCH are matched by scanning the
// instruction list; Validate checks that every construct is terminated.
package dxbc
