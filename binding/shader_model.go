// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package binding

import "fmt"

// ShaderModel selects the resource addressing scheme of a program.
type ShaderModel uint8

const (
	// ShaderModel5_0 uses legacy binding: the logical identifier is the
	// register and the space is always 0.
	ShaderModel5_0 ShaderModel = iota

	// ShaderModel5_1 uses indexed binding: declarations carry an
	// identifier, a register range and a space.
	ShaderModel5_1
)

// String returns a human-readable representation like "SM 5.1".
func (sm ShaderModel) String() string {
	major, minor := sm.version()
	return fmt.Sprintf("SM %d.%d", major, minor)
}

// ProfileSuffix returns the suffix used in profile names, e.g. "5_1".
func (sm ShaderModel) ProfileSuffix() string {
	major, minor := sm.version()
	return fmt.Sprintf("%d_%d", major, minor)
}

func (sm ShaderModel) version() (major, minor uint8) {
	if sm == ShaderModel5_1 {
		return 5, 1
	}
	return 5, 0
}

// Major returns the major version number.
func (sm ShaderModel) Major() uint8 {
	major, _ := sm.version()
	return major
}

// Minor returns the minor version number.
func (sm ShaderModel) Minor() uint8 {
	_, minor := sm.version()
	return minor
}

// UsesIndexedBinding reports whether resource operands carry a logical
// identifier plus an array index rather than a register.
func (sm ShaderModel) UsesIndexedBinding() bool {
	return sm >= ShaderModel5_1
}

// ShaderModelFor returns the addressing scheme of a program version.
// Anything from 5.1 up uses indexed binding.
func ShaderModelFor(major, minor uint32) ShaderModel {
	if major > 5 || (major == 5 && minor >= 1) {
		return ShaderModel5_1
	}
	return ShaderModel5_0
}

// ParseShaderModel accepts a profile suffix such as "5_0" or "5_1".
func ParseShaderModel(s string) (ShaderModel, error) {
	for _, sm := range []ShaderModel{ShaderModel5_0, ShaderModel5_1} {
		if sm.ProfileSuffix() == s {
			return sm, nil
		}
	}
	return 0, fmt.Errorf("unknown shader model %q", s)
}
