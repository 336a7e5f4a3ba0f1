package debugger

import (
	"encoding/binary"

	"github.com/gogpu/shaderdbg/binding"
	"github.com/gogpu/shaderdbg/dxbc"
	"github.com/gogpu/shaderdbg/value"
)

// memoryKind is how a buffer is addressed.
type memoryKind uint8

const (
	memoryTyped memoryKind = iota
	memoryRaw
	memoryStructured
)

// memory is a resolved view of a UAV, SRV or groupshared block. Element i
// starts at base + i*stride; raw memory has 4-byte elements and is
// addressed in bytes.
type memory struct {
	kind   memoryKind
	data   []byte
	base   uint32
	stride uint32
	count  uint32
	format value.TexelFormat

	texture bool
	slot    binding.Slot
	res     *ResourceData
}

var dwordFormat = value.TexelFormat{ByteWidth: 4, NumComps: 1, Kind: value.KindUInt}

// bindingSlot resolves a resource, UAV, sampler or constant buffer
// operand, evaluating relative indices.
func (t *ThreadState) bindingSlot(oper *dxbc.Operand, op *dxbc.Operation) (binding.Slot, bool) {
	slot, err := t.resolver.ResolveOperand(oper.Type, t.resolveIndices(oper, op))
	if err != nil {
		t.log.Warn().Err(err).Int("pc", t.pc).Msg("binding not resolved")
		return binding.Slot{}, false
	}
	return slot, true
}

// memoryFor resolves the buffer an operand names. structStride overrides
// the declared stride of structured resources when non-zero.
func (t *ThreadState) memoryFor(oper *dxbc.Operand, op *dxbc.Operation, api APIWrapper, structStride uint32) (memory, bool) {
	if oper.Type == dxbc.OperandThreadGroupSharedMemory {
		var id uint32
		if idx := t.resolveIndices(oper, op); len(idx) > 0 {
			id = idx[0]
		}
		gs := t.global.Groupshared(id)
		if gs == nil {
			t.log.Error().Uint32("id", id).Int("pc", t.pc).Msg("groupshared block not declared")
			return memory{}, false
		}
		m := memory{data: gs.Data, stride: gs.ByteStride, count: gs.Count, format: dwordFormat}
		if gs.Structured {
			m.kind = memoryStructured
		} else {
			m.kind = memoryRaw
			m.stride = 4
		}
		return m, true
	}

	slot, ok := t.bindingSlot(oper, op)
	if !ok {
		return memory{}, false
	}
	var res *ResourceData
	if oper.Type == dxbc.OperandUAV {
		res = t.global.UAV(api, slot)
	} else {
		res = t.global.SRV(api, slot)
	}
	if res == nil {
		return memory{}, false
	}

	m := memory{
		data:    res.Data,
		count:   res.NumElements,
		format:  res.Format,
		texture: res.IsTexture,
		slot:    slot,
		res:     res,
	}

	var decl *dxbc.Declaration
	if len(oper.Indices) > 0 {
		decl = t.program.FindResourceDeclaration(oper.Type, uint32(oper.Indices[0].Index))
	}
	switch {
	case decl != nil && (decl.Opcode == dxbc.OpDclUAVRaw || decl.Opcode == dxbc.OpDclResourceRaw):
		m.kind = memoryRaw
	case decl != nil && (decl.Opcode == dxbc.OpDclUAVStructured || decl.Opcode == dxbc.OpDclResourceStructured):
		m.kind = memoryStructured
		m.stride = decl.Stride
	case decl == nil && res.Format.Stride != 0:
		m.kind = memoryStructured
	}

	switch m.kind {
	case memoryRaw:
		m.stride = 4
		m.format = dwordFormat
	case memoryStructured:
		if structStride != 0 {
			m.stride = structStride
		}
		if m.stride == 0 {
			m.stride = uint32(res.Format.Stride)
		}
		m.format = dwordFormat
	default:
		m.stride = uint32(res.Format.ElementSize())
	}
	m.base = res.FirstElement * m.stride
	return m, true
}

func (m *memory) readU32(off uint32) (uint32, bool) {
	if uint64(off)+4 > uint64(len(m.data)) {
		return 0, false
	}
	return binary.LittleEndian.Uint32(m.data[off:]), true
}

func (m *memory) writeU32(off, v uint32) bool {
	if uint64(off)+4 > uint64(len(m.data)) {
		return false
	}
	binary.LittleEndian.PutUint32(m.data[off:], v)
	return true
}

// atomicAddress returns the byte offset an atomic touches. Structured
// addresses are (element, byte offset); raw addresses are byte offsets;
// typed buffers are indexed by element.
func (m *memory) atomicAddress(addr value.ShaderVariable) (uint32, bool) {
	switch m.kind {
	case memoryStructured:
		idx, off := addr.U32(0), addr.U32(1)
		if idx >= m.count || off+4 > m.stride {
			return 0, false
		}
		return m.base + idx*m.stride + off, true
	case memoryRaw:
		b := addr.U32(0)
		if b/4 >= m.count {
			return 0, false
		}
		return m.base + b, true
	default:
		idx := addr.U32(0)
		if idx >= m.count {
			return 0, false
		}
		return m.base + idx*m.stride, true
	}
}

// execAtomic performs one read-modify-write. Immediate variants return the
// previous value in their first operand. Out of bounds atomics do nothing.
func (t *ThreadState) execAtomic(op *dxbc.Operation, api APIWrapper, src []value.ShaderVariable) {
	resIdx := 0
	if op.Opcode.IsImmediateAtomic() {
		resIdx = 1
	}
	if resIdx >= len(op.Operands) {
		t.log.Error().Int("pc", t.pc).Str("op", op.Mnemonic()).Msg("atomic without destination")
		return
	}
	addr, a, b := src[resIdx], src[resIdx+1], src[resIdx+2]

	mem, ok := t.memoryFor(&op.Operands[resIdx], op, api, 0)
	if !ok {
		return
	}

	var (
		before uint32
		store  func(uint32)
	)
	if mem.texture {
		coord := [3]uint32{addr.U32(0), addr.U32(1), addr.U32(2)}
		texel, err := api.ReadTexel(mem.slot, coord)
		if err != nil {
			t.log.Warn().Err(err).Int("pc", t.pc).Msg("atomic texel read failed")
			return
		}
		before = texel.U32(0)
		store = func(v uint32) {
			texel.SetU32(0, v)
			if err := api.WriteTexel(mem.slot, coord, texel); err != nil {
				t.log.Warn().Err(err).Int("pc", t.pc).Msg("atomic texel write failed")
			}
		}
	} else {
		off, inBounds := mem.atomicAddress(addr)
		if inBounds {
			before, inBounds = mem.readU32(off)
		}
		if !inBounds {
			t.log.Debug().Int("pc", t.pc).Uint32("addr", addr.U32(0)).Msg("atomic out of bounds")
			return
		}
		store = func(v uint32) { mem.writeU32(off, v) }
	}

	after := before
	switch op.Opcode {
	case dxbc.OpAtomicAnd, dxbc.OpImmAtomicAnd:
		after = before & a.U32(0)
	case dxbc.OpAtomicOr, dxbc.OpImmAtomicOr:
		after = before | a.U32(0)
	case dxbc.OpAtomicXor, dxbc.OpImmAtomicXor:
		after = before ^ a.U32(0)
	case dxbc.OpAtomicIAdd, dxbc.OpImmAtomicIAdd:
		after = before + a.U32(0)
	case dxbc.OpAtomicIMax, dxbc.OpImmAtomicIMax:
		after = uint32(max(int32(before), a.S32(0)))
	case dxbc.OpAtomicIMin, dxbc.OpImmAtomicIMin:
		after = uint32(min(int32(before), a.S32(0)))
	case dxbc.OpAtomicUMax, dxbc.OpImmAtomicUMax:
		after = max(before, a.U32(0))
	case dxbc.OpAtomicUMin, dxbc.OpImmAtomicUMin:
		after = min(before, a.U32(0))
	case dxbc.OpImmAtomicExch:
		after = a.U32(0)
	case dxbc.OpAtomicCmpStore, dxbc.OpImmAtomicCmpExch:
		if before == a.U32(0) {
			after = b.U32(0)
		}
	}
	store(after)

	if op.Opcode.IsImmediateAtomic() {
		t.setDst(op, 0, value.UInt4("", before, before, before, before))
	}
}

// execCounter increments or decrements the hidden counter of a structured
// UAV. alloc returns the value before the increment; consume returns the
// value after the decrement.
func (t *ThreadState) execCounter(op *dxbc.Operation, api APIWrapper) {
	if len(op.Operands) < 2 {
		t.log.Error().Int("pc", t.pc).Str("op", op.Mnemonic()).Msg("counter operation without uav")
		return
	}
	slot, ok := t.bindingSlot(&op.Operands[1], op)
	if !ok {
		return
	}
	res := t.global.UAV(api, slot)
	if res == nil {
		return
	}

	var v uint32
	if op.Opcode == dxbc.OpImmAtomicAlloc {
		v = res.HiddenCounter
		res.HiddenCounter++
	} else {
		res.HiddenCounter--
		v = res.HiddenCounter
	}
	t.setDst(op, 0, value.UInt4("", v, v, v, v))
}

// leadingMask counts the write mask components starting at x without a
// gap. An operand with no mask counts as xyzw.
func leadingMask(oper *dxbc.Operand) int {
	if oper.ComponentCount() == 0 {
		return 4
	}
	n := 0
	for c := 0; c < 4; c++ {
		found := false
		for _, m := range oper.Comps {
			if int(m) == c {
				found = true
			}
		}
		if !found {
			break
		}
		n++
	}
	return n
}

// applyResourceSwizzle reorders a loaded value by the swizzle on the
// resource operand. An operand without a swizzle passes values through.
func applyResourceSwizzle(v value.ShaderVariable, oper *dxbc.Operand) value.ShaderVariable {
	if oper.ComponentCount() == 0 {
		return v
	}
	out := v
	for i := 0; i < 4; i++ {
		c := oper.Comps[i]
		if c == dxbc.CompUnused {
			c = 0
		}
		out.SetU32(i, v.U32(int(c)))
	}
	return out
}

// scalarDstFix moves the lane selected by a single-component destination
// into lane 0, where SetDst reads scalar results from.
func scalarDstFix(v value.ShaderVariable, dst *dxbc.Operand) value.ShaderVariable {
	if dst.IsScalarSelect() {
		v.SetU32(0, v.U32(int(dst.Comps[0])))
	}
	return v
}

// execLoadStore implements ld_raw, ld_structured, ld_uav_typed and the
// matching stores on UAVs, SRVs and groupshared memory. Out of bounds
// loads return zero and out of bounds stores are dropped.
func (t *ThreadState) execLoadStore(op *dxbc.Operation, api APIWrapper, src []value.ShaderVariable) {
	load := false
	resIdx, valIdx := 0, 0
	switch op.Opcode {
	case dxbc.OpLdRaw, dxbc.OpLdUAVTyped:
		load, resIdx = true, 2
	case dxbc.OpLdStructured:
		load, resIdx = true, 3
	case dxbc.OpStoreRaw, dxbc.OpStoreUAVTyped:
		valIdx = 1
	case dxbc.OpStoreStructured:
		valIdx = 2
	}
	if resIdx >= len(op.Operands) {
		t.log.Error().Int("pc", t.pc).Str("op", op.Mnemonic()).Msg("missing resource operand")
		return
	}
	if load {
		t.flags |= EventSampleLoadGather
	}
	resOper := &op.Operands[resIdx]

	mem, ok := t.memoryFor(resOper, op, api, op.Stride)
	if !ok {
		if load {
			t.setDst(op, 0, value.UInt4("", 0, 0, 0, 0))
		}
		return
	}

	if mem.texture {
		t.texelLoadStore(op, api, &mem, load, src)
		return
	}

	// byte offset of the first dword and the number of dwords available
	var (
		off       uint32
		available uint32
		inBounds  bool
	)
	switch {
	case op.Opcode == dxbc.OpLdStructured || op.Opcode == dxbc.OpStoreStructured:
		idx, elemOff := src[0].U32(0), src[1].U32(0)
		if idx < mem.count && elemOff < mem.stride {
			off = mem.base + idx*mem.stride + elemOff
			available = (mem.stride - elemOff) / 4
			inBounds = true
		}
	case op.Opcode == dxbc.OpLdRaw || op.Opcode == dxbc.OpStoreRaw:
		b := src[0].U32(0) &^ 3
		if b/4 < mem.count {
			off = mem.base + b
			available = mem.count - b/4
			inBounds = true
		}
	default:
		idx := src[0].U32(0)
		if idx < mem.count {
			off = mem.base + idx*mem.stride
			inBounds = true
		}
	}

	typed := op.Opcode == dxbc.OpLdUAVTyped || op.Opcode == dxbc.OpStoreUAVTyped

	if load {
		result := value.UInt4("", 0, 0, 0, 0)
		switch {
		case !inBounds:
			t.log.Debug().Int("pc", t.pc).Str("op", op.Mnemonic()).Msg("load out of bounds")
		case typed:
			if end := int(off) + mem.format.ElementSize(); end <= len(mem.data) {
				v, err := value.DecodeTexel(mem.format, mem.data[off:end])
				if err != nil {
					t.log.Warn().Err(err).Int("pc", t.pc).Msg("typed load failed")
				} else {
					result = v
				}
			}
		default:
			for c := uint32(0); c < min(4, available); c++ {
				w, _ := mem.readU32(off + 4*c)
				result.SetU32(int(c), w)
			}
		}
		result = applyResourceSwizzle(result, resOper)
		t.setDst(op, 0, scalarDstFix(result, &op.Operands[0]))
		return
	}

	if !inBounds {
		t.log.Debug().Int("pc", t.pc).Str("op", op.Mnemonic()).Msg("store out of bounds dropped")
		return
	}
	val := src[valIdx]
	if typed {
		end := int(off) + mem.format.ElementSize()
		if end > len(mem.data) {
			return
		}
		if err := value.EncodeTexel(mem.format, &val, mem.data[off:end]); err != nil {
			t.log.Warn().Err(err).Int("pc", t.pc).Msg("typed store failed")
		}
		return
	}
	n := min(uint32(leadingMask(&op.Operands[0])), available)
	for c := uint32(0); c < n; c++ {
		mem.writeU32(off+4*c, val.U32(int(c)))
	}
}

// texelLoadStore handles typed access to texture UAVs through the host.
func (t *ThreadState) texelLoadStore(op *dxbc.Operation, api APIWrapper, mem *memory, load bool, src []value.ShaderVariable) {
	coord := [3]uint32{src[0].U32(0), src[0].U32(1), src[0].U32(2)}
	if load {
		v, err := api.ReadTexel(mem.slot, coord)
		if err != nil {
			t.log.Warn().Err(err).Int("pc", t.pc).Msg("texel read failed")
			v = value.UInt4("", 0, 0, 0, 0)
		}
		v = applyResourceSwizzle(v, &op.Operands[2])
		t.setDst(op, 0, scalarDstFix(v, &op.Operands[0]))
		return
	}
	if err := api.WriteTexel(mem.slot, coord, src[1]); err != nil {
		t.log.Warn().Err(err).Int("pc", t.pc).Msg("texel write failed")
	}
}
