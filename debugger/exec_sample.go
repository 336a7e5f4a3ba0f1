package debugger

import (
	"fmt"

	"github.com/gogpu/shaderdbg/binding"
	"github.com/gogpu/shaderdbg/dxbc"
	"github.com/gogpu/shaderdbg/value"
)

// singleAbsolute reports whether an operand is addressed by one absolute
// index.
func singleAbsolute(oper *dxbc.Operand) bool {
	return len(oper.Indices) == 1 && oper.Indices[0].Absolute && oper.Indices[0].Relative == nil
}

// uintsToFloats converts four uint lanes to float.
func uintsToFloats(v value.ShaderVariable) value.ShaderVariable {
	out := value.NewVariable("", value.TypeFloat, 1, 4)
	for i := 0; i < 4; i++ {
		out.SetF32(i, float32(v.U32(i)))
	}
	return out
}

// dimensionality is the number of addressing dimensions of a resource
// shape, used when the host does not report one.
func dimensionality(d dxbc.ResourceDimension) int {
	switch d {
	case dxbc.DimBuffer, dxbc.DimRawBuffer, dxbc.DimStructuredBuffer, dxbc.DimTexture1D, dxbc.DimTexture1DArray:
		return 1
	case dxbc.DimTexture2D, dxbc.DimTexture2DMS, dxbc.DimTexture2DArray, dxbc.DimTexture2DMSArray,
		dxbc.DimTextureCube, dxbc.DimTextureCubeArray:
		return 2
	case dxbc.DimTexture3D:
		return 3
	}
	return 0
}

func (t *ThreadState) execSampleInfo(op *dxbc.Operation, api APIWrapper) {
	if len(op.Operands) < 2 {
		t.log.Error().Int("pc", t.pc).Str("op", op.Mnemonic()).Msg("missing resource operand")
		return
	}
	resOper := &op.Operands[1]

	var slot binding.Slot
	absolute := resOper.Type != dxbc.OperandRasterizer && singleAbsolute(resOper)
	if absolute {
		var ok bool
		if slot, ok = t.bindingSlot(resOper, op); !ok {
			absolute = false
		}
	}
	info := api.GetSampleInfo(resOper.Type, absolute, slot)
	count := info.U32(0)

	var result value.ShaderVariable
	if op.Opcode == dxbc.OpSamplePos {
		result = value.Float4("", 0, 0, 0, 0)
		var idx uint32
		if len(op.Operands) > 2 {
			idx = t.GetSrc(&op.Operands[2], op, false).U32(0)
		}
		switch {
		case count == 0:
		case idx >= count:
			t.log.Warn().Int("pc", t.pc).Uint32("index", idx).Uint32("count", count).Msg("sample index out of range")
			api.AddDebugMessage(CategoryShaders, SeverityMedium,
				fmt.Sprintf("sample_pos index %d is out of range for %d samples", idx, count))
		case count == 1:
			t.log.Warn().Int("pc", t.pc).Msg("sample_pos on a non-multisampled resource")
			api.AddDebugMessage(CategoryShaders, SeverityMedium,
				"sample_pos used on a resource that is not multisampled, returning 0")
		default:
			x, y, ok := SamplePosition(count, idx)
			if !ok {
				t.log.Error().Int("pc", t.pc).Uint32("count", count).Msg("unsupported sample count")
			}
			result.SetF32(0, x)
			result.SetF32(1, y)
		}
	} else {
		result = info
		if op.InfoRetType == dxbc.RetTypeFloat {
			result = uintsToFloats(info)
		} else {
			result.Type = value.TypeUInt
		}
	}

	result = applyResourceSwizzle(result, resOper)
	t.setDst(op, 0, scalarDstFix(result, &op.Operands[0]))
}

func (t *ThreadState) execBufInfo(op *dxbc.Operation, api APIWrapper) {
	result := value.UInt4("", 0, 0, 0, 0)
	if len(op.Operands) < 2 {
		t.log.Error().Int("pc", t.pc).Msg("bufinfo without resource operand")
		return
	}
	resOper := &op.Operands[1]
	if slot, ok := t.bindingSlot(resOper, op); ok {
		result = api.GetBufferInfo(resOper.Type, slot)
		result = applyResourceSwizzle(result, resOper)
	}
	result.Type = value.TypeUInt
	t.setDst(op, 0, scalarDstFix(result, &op.Operands[0]))
}

func (t *ThreadState) execResInfo(op *dxbc.Operation, api APIWrapper, src []value.ShaderVariable) {
	if len(op.Operands) < 3 {
		t.log.Error().Int("pc", t.pc).Msg("resinfo without resource operand")
		return
	}
	resOper := &op.Operands[2]
	mip := src[0].U32(0)

	result := value.UInt4("", 0, 0, 0, 0)
	slot, ok := t.bindingSlot(resOper, op)
	if !ok {
		t.setDst(op, 0, result)
		return
	}
	info, dim := api.GetResourceInfo(resOper.Type, slot, mip)
	if dim == 0 && len(resOper.Indices) > 0 {
		if d := t.program.FindResourceDeclaration(resOper.Type, uint32(resOper.Indices[0].Index)); d != nil {
			dim = dimensionality(d.Dim)
		}
	}

	switch op.InfoRetType {
	case dxbc.RetTypeFloat:
		result = uintsToFloats(info)
	case dxbc.RetTypeRcpFloat:
		result = uintsToFloats(info)
		for i := 0; i < 3; i++ {
			if i < dim {
				result.SetF32(i, 1/result.F32(i))
			}
		}
	default:
		result = info
		result.Type = value.TypeUInt
	}

	result = applyResourceSwizzle(result, resOper)
	t.setDst(op, 0, scalarDstFix(result, &op.Operands[0]))
}

func (t *ThreadState) execEval(op *dxbc.Operation, api APIWrapper, src []value.ShaderVariable) {
	if len(op.Operands) < 2 || len(op.Operands[1].Indices) == 0 {
		t.log.Error().Int("pc", t.pc).Str("op", op.Mnemonic()).Msg("eval without input operand")
		return
	}
	dst, in := &op.Operands[0], &op.Operands[1]

	key := SampleEvalKey{
		Lane:          t.Lane,
		InputReg:      int(in.Indices[0].Index),
		NumComponents: max(1, dst.ComponentCount()),
		Sample:        -1,
	}
	if c := dst.Comps[0]; c != dxbc.CompUnused && in.Comps[c] != dxbc.CompUnused {
		key.FirstComponent = int(in.Comps[c])
	}
	switch op.Opcode {
	case dxbc.OpEvalSampleIndex:
		key.Sample = src[1].S32(0)
	case dxbc.OpEvalSnapped:
		key.OffsetX = value.Clamp(src[1].S32(0), -8, 7)
		key.OffsetY = value.Clamp(src[1].S32(1), -8, 7)
	}

	cached, ok := t.global.SampleEvaluation(key)
	if !ok {
		// only a register the host evaluated can have missed the cache
		if t.global.hasEvaluationsFor(key.InputReg) {
			api.AddDebugMessage(CategoryShaders, SeverityMedium,
				"No sample evaluate found in cache. Possible out-of-bounds sample index")
		}
		t.log.Debug().Int("pc", t.pc).Int("reg", key.InputReg).Int32("sample", key.Sample).Msg("eval cache miss")
		t.setDst(op, 0, src[0])
		return
	}

	result := cached
	for i := 0; i < 4; i++ {
		if c := in.Comps[i]; c < 4 {
			result.SetU32(i, cached.U32(int(c)))
		}
	}
	t.setDst(op, 0, scalarDstFix(result, dst))
}

// sampleLayout gives the operand positions of a sampling instruction. -1
// means absent.
type sampleLayout struct {
	res, sampler int
	// source index (operand - 1) of the lod, bias or compare value
	lodOrCompare int
	offset       int
}

func layoutFor(opcode dxbc.Opcode) sampleLayout {
	switch opcode {
	case dxbc.OpLd:
		return sampleLayout{res: 2, sampler: -1, lodOrCompare: -1, offset: -1}
	case dxbc.OpLdMS:
		return sampleLayout{res: 2, sampler: -1, lodOrCompare: -1, offset: -1}
	case dxbc.OpGather4PO:
		return sampleLayout{res: 3, sampler: 4, lodOrCompare: -1, offset: 1}
	case dxbc.OpGather4POC:
		return sampleLayout{res: 3, sampler: 4, lodOrCompare: 4, offset: 1}
	case dxbc.OpSampleL, dxbc.OpSampleB, dxbc.OpSampleC, dxbc.OpSampleCLZ, dxbc.OpGather4C:
		return sampleLayout{res: 2, sampler: 3, lodOrCompare: 3, offset: -1}
	}
	return sampleLayout{res: 2, sampler: 3, lodOrCompare: -1, offset: -1}
}

func sampleOpFor(opcode dxbc.Opcode) SampleOp {
	switch opcode {
	case dxbc.OpSampleB:
		return SampleBias
	case dxbc.OpSampleL:
		return SampleLevel
	case dxbc.OpSampleD:
		return SampleGrad
	case dxbc.OpSampleC:
		return SampleCompare
	case dxbc.OpSampleCLZ:
		return SampleCompareLevelZero
	case dxbc.OpGather4, dxbc.OpGather4PO:
		return SampleGather
	case dxbc.OpGather4C, dxbc.OpGather4POC:
		return SampleGatherCompare
	case dxbc.OpLd:
		return SampleLoad
	case dxbc.OpLdMS:
		return SampleLoadMS
	case dxbc.OpLod:
		return SampleLOD
	}
	return SampleNormal
}

// execSample handles sampling, gathers, texture loads and lod. The host
// does the filtering; buffer loads are decoded here.
func (t *ThreadState) execSample(op *dxbc.Operation, api APIWrapper, src []value.ShaderVariable, prev []*ThreadState) {
	layout := layoutFor(op.Opcode)
	if layout.res >= len(op.Operands) || layout.sampler >= len(op.Operands) {
		t.log.Error().Int("pc", t.pc).Str("op", op.Mnemonic()).Msg("missing resource or sampler operand")
		return
	}
	if op.Opcode != dxbc.OpLod {
		t.flags |= EventSampleLoadGather
	}

	dst := &op.Operands[0]
	resOper := &op.Operands[layout.res]
	resSlot, ok := t.bindingSlot(resOper, op)
	if !ok {
		return
	}

	dim, retType, sampleCount := op.ResDim, op.ResType[0], uint32(0)
	if len(resOper.Indices) > 0 {
		if d := t.program.FindResourceDeclaration(resOper.Type, uint32(resOper.Indices[0].Index)); d != nil {
			dim, retType, sampleCount = d.Dim, d.ResType[0], d.SampleCount
		}
	}

	if op.Opcode == dxbc.OpLd && dim.IsBuffer() {
		t.loadBuffer(op, api, resSlot, src[0].U32(0))
		return
	}

	if op.Opcode == dxbc.OpLod {
		switch dim {
		case dxbc.DimTexture1D, dxbc.DimTexture1DArray, dxbc.DimTexture2D, dxbc.DimTexture2DArray,
			dxbc.DimTexture3D, dxbc.DimTextureCube:
		default:
			t.log.Warn().Int("pc", t.pc).Stringer("dim", dim).Msg("lod on unsupported resource dimension")
			t.setDst(op, 0, value.Float4("", 0, 0, 0, 0))
			return
		}
	}

	req := SampleRequest{
		Op:          sampleOpFor(op.Opcode),
		Dim:         dim,
		RetType:     retType,
		SampleCount: sampleCount,
		Resource:    resSlot,
		UV:          src[0],
		TexelOffset: op.TexelOffset,
	}

	switch op.Opcode {
	case dxbc.OpSample, dxbc.OpSampleB, dxbc.OpSampleC, dxbc.OpLod:
		if len(prev) == 4 {
			req.DDX, _ = t.derivative(&op.Operands[1], op, prev, true, false)
			req.DDY, _ = t.derivative(&op.Operands[1], op, prev, false, false)
		} else {
			t.log.Debug().Int("pc", t.pc).Msg("implicit derivatives outside a quad are zero")
		}
	case dxbc.OpSampleD:
		req.DDX, req.DDY = src[3], src[4]
	case dxbc.OpLdMS:
		req.MultisampleIndex = src[2].S32(0)
	}

	if layout.lodOrCompare >= 0 {
		v := src[layout.lodOrCompare].F32(0)
		if op.Opcode == dxbc.OpSampleB {
			req.Bias = v
		} else {
			req.LODOrCompare = v
		}
	}
	if layout.offset >= 0 {
		off := src[layout.offset]
		req.TexelOffset = [3]int8{int8(off.S32(0)), int8(off.S32(1)), int8(off.S32(2))}
	}

	if layout.sampler >= 0 {
		sampOper := &op.Operands[layout.sampler]
		if req.Sampler, ok = t.bindingSlot(sampOper, op); !ok {
			return
		}
		if len(sampOper.Indices) > 0 {
			id := sampOper.Indices[0].Index
			if d := t.program.FindDeclaration(dxbc.OpDclSampler, func(d *dxbc.Declaration) bool {
				return len(d.Operand.Indices) > 0 && d.Operand.Indices[0].Index == id
			}); d != nil {
				req.SamplerMode = d.SamplerMode
			}
		}
		if c := sampOper.Comps[0]; c != dxbc.CompUnused {
			req.GatherChannel = c
		}
	}

	for i := 0; i < 4; i++ {
		c := resOper.Comps[i]
		switch {
		case resOper.ComponentCount() == 0:
			c = uint8(i)
		case c == dxbc.CompUnused:
			c = 0
		}
		req.Swizzle[i] = c
	}

	result, err := api.CalculateSampleGather(&req)
	if err != nil {
		t.log.Warn().Err(err).Int("pc", t.pc).Stringer("sample_op", req.Op).Msg("sample failed")
		return
	}
	t.setDst(op, 0, scalarDstFix(result, dst))
}

// loadBuffer implements ld on a typed buffer SRV by decoding the element
// directly. Out of range elements read as zero.
func (t *ThreadState) loadBuffer(op *dxbc.Operation, api APIWrapper, slot binding.Slot, idx uint32) {
	result := value.UInt4("", 0, 0, 0, 0)
	res := t.global.SRV(api, slot)
	if res != nil && idx < res.NumElements {
		stride := uint32(res.Format.ElementSize())
		off := (res.FirstElement + idx) * stride
		if end := off + stride; int(end) <= len(res.Data) {
			v, err := value.DecodeTexel(res.Format, res.Data[off:end])
			if err != nil {
				t.log.Warn().Err(err).Int("pc", t.pc).Msg("buffer load failed")
			} else {
				result = v
			}
		}
	}
	result = applyResourceSwizzle(result, &op.Operands[2])
	t.setDst(op, 0, scalarDstFix(result, &op.Operands[0]))
}
