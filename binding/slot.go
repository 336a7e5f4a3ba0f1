// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package binding

import (
	"fmt"

	"github.com/gogpu/shaderdbg/dxbc"
)

// Slot identifies one resource binding by register space and shader
// register. It is comparable and used as a map key.
type Slot struct {
	Space    uint32
	Register uint32
}

// Less orders slots by space, then register.
func (s Slot) Less(o Slot) bool {
	if s.Space != o.Space {
		return s.Space < o.Space
	}
	return s.Register < o.Register
}

// Compare returns -1, 0 or 1 in the order of Less.
func (s Slot) Compare(o Slot) int {
	switch {
	case s.Less(o):
		return -1
	case o.Less(s):
		return 1
	}
	return 0
}

// String returns "space0:5" style text.
func (s Slot) String() string {
	return fmt.Sprintf("space%d:%d", s.Space, s.Register)
}

// RegisterType is the HLSL register class letter of a binding.
type RegisterType uint8

const (
	// RegisterTypeB is a constant buffer register (b#).
	RegisterTypeB RegisterType = iota

	// RegisterTypeT is a shader resource view register (t#).
	RegisterTypeT

	// RegisterTypeS is a sampler register (s#).
	RegisterTypeS

	// RegisterTypeU is an unordered access view register (u#).
	RegisterTypeU
)

// String returns the register letter.
func (rt RegisterType) String() string {
	switch rt {
	case RegisterTypeB:
		return "b"
	case RegisterTypeT:
		return "t"
	case RegisterTypeS:
		return "s"
	case RegisterTypeU:
		return "u"
	default:
		return "?"
	}
}

// RegisterTypeFor maps an operand register class to its binding register
// type. The second result is false for classes that are not bindings.
func RegisterTypeFor(t dxbc.OperandType) (RegisterType, bool) {
	switch t {
	case dxbc.OperandConstantBuffer:
		return RegisterTypeB, true
	case dxbc.OperandResource:
		return RegisterTypeT, true
	case dxbc.OperandSampler:
		return RegisterTypeS, true
	case dxbc.OperandUAV:
		return RegisterTypeU, true
	}
	return 0, false
}

// OperandType is the inverse of RegisterTypeFor.
func (rt RegisterType) OperandType() dxbc.OperandType {
	switch rt {
	case RegisterTypeB:
		return dxbc.OperandConstantBuffer
	case RegisterTypeT:
		return dxbc.OperandResource
	case RegisterTypeS:
		return dxbc.OperandSampler
	default:
		return dxbc.OperandUAV
	}
}
