// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package binding

import (
	"errors"
	"fmt"

	"github.com/gogpu/shaderdbg/dxbc"
)

// ErrNotFound is returned when no declaration matches a logical identifier,
// or an index falls outside the declared range.
var ErrNotFound = errors.New("binding not declared")

// Unbounded marks a declaration range with no upper register bound.
const Unbounded = ^uint32(0)

// Range is the register range a declaration binds a logical identifier to.
type Range struct {
	Type  RegisterType
	ID    uint32
	First uint32
	Last  uint32
	Space uint32
}

// Contains reports whether register index lies within the range.
func (r Range) Contains(index uint32) bool {
	return index >= r.First && (r.Last == Unbounded || index <= r.Last)
}

type rangeKey struct {
	t  RegisterType
	id uint32
}

// Resolver maps resource operands of one program to binding slots.
type Resolver struct {
	program *dxbc.Program
	model   ShaderModel
	ranges  map[rangeKey]Range
}

// NewResolver returns a resolver for p using the given addressing scheme.
func NewResolver(p *dxbc.Program, model ShaderModel) *Resolver {
	return &Resolver{
		program: p,
		model:   model,
		ranges:  make(map[rangeKey]Range),
	}
}

// Model returns the addressing scheme in use.
func (r *Resolver) Model() ShaderModel {
	return r.model
}

// Lookup returns the declared range of logical identifier id. Under legacy
// binding every identifier is its own single-register range in space 0.
func (r *Resolver) Lookup(t RegisterType, id uint32) (Range, error) {
	if !r.model.UsesIndexedBinding() {
		return Range{Type: t, ID: id, First: id, Last: id}, nil
	}

	key := rangeKey{t, id}
	if rng, ok := r.ranges[key]; ok {
		return rng, nil
	}

	class := t.OperandType()
	for i := range r.program.Declarations {
		d := &r.program.Declarations[i]
		if !d.Opcode.IsDeclaration() || d.Operand.Type != class {
			continue
		}
		idx := d.Operand.Indices
		if len(idx) == 0 || uint32(idx[0].Index) != id {
			continue
		}

		rng := Range{Type: t, ID: id, First: id, Last: id, Space: d.Space}
		if len(idx) >= 3 {
			rng.First = uint32(idx[1].Index)
			rng.Last = uint32(idx[2].Index)
		}
		r.ranges[key] = rng
		return rng, nil
	}
	return Range{}, fmt.Errorf("%s%d: %w", t, id, ErrNotFound)
}

// Resolve returns the slot an operand addresses. id is the operand's first
// index and index its second, which under indexed binding is the register
// within the declared range. Legacy binding ignores index.
func (r *Resolver) Resolve(t RegisterType, id, index uint32) (Slot, error) {
	if !r.model.UsesIndexedBinding() {
		return Slot{Register: id}, nil
	}

	rng, err := r.Lookup(t, id)
	if err != nil {
		return Slot{}, err
	}
	if !rng.Contains(index) {
		return Slot{}, fmt.Errorf("%s%d[%d] outside [%d, %d]: %w", t, id, index, rng.First, rng.Last, ErrNotFound)
	}
	// the index is already an absolute register inside the range
	return Slot{Space: rng.Space, Register: index}, nil
}

// ResolveOperand resolves a resource, sampler, UAV or constant buffer
// operand of class given its evaluated register indices.
func (r *Resolver) ResolveOperand(class dxbc.OperandType, indices []uint32) (Slot, error) {
	t, ok := RegisterTypeFor(class)
	if !ok {
		return Slot{}, fmt.Errorf("operand class %s is not a binding: %w", class, ErrNotFound)
	}
	if len(indices) == 0 {
		return Slot{}, fmt.Errorf("%s operand has no index: %w", class, ErrNotFound)
	}
	id, index := indices[0], indices[0]
	if len(indices) > 1 && r.model.UsesIndexedBinding() {
		index = indices[1]
	}
	return r.Resolve(t, id, index)
}
