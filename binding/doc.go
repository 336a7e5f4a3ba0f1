// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

// Package binding resolves resource operands to (space, register) slots.
//
// Programs before shader model 5.1 address a resource by its register
// directly. From 5.1 on, an operand names a logical identifier declared with
// a register range and space, and the register actually used is
// first + (index - first). Resolver handles both schemes and caches the
// declaration lookups of the indexed one.
package binding
