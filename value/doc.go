// Package value implements the typed register values manipulated by the
// shader debugger and the numeric primitives that give them GPU semantics.
//
// A ShaderVariable is a tagged value: a VarType, a rows x columns shape and
// a flat 32-bit lane store wide enough for sixteen 64-bit components.
// 64-bit components occupy two consecutive lanes, low word first, so a
// double2 uses lanes 0-3 exactly as the bytecode's register file does.
// Reinterpreting a variable (Bitcast) changes only the tag and shape, never
// the lanes.
//
// The numeric helpers reproduce hardware edge cases: denormal flushing,
// NaN-discarding min/max, round-to-nearest-even, saturate and the per-type
// abs/negate source modifiers.
package value
