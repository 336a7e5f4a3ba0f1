package debugger

import (
	"github.com/rs/zerolog"

	"github.com/gogpu/shaderdbg/binding"
	"github.com/gogpu/shaderdbg/dxbc"
	"github.com/gogpu/shaderdbg/value"
)

// GroupShared is one block of thread group shared memory.
type GroupShared struct {
	Structured bool
	// Count is the element count; ByteStride is 4 for raw blocks.
	Count      uint32
	ByteStride uint32
	Data       []byte
}

// SampleEvalKey identifies one pull-model interpolation result.
type SampleEvalKey struct {
	Lane           int
	InputReg       int
	FirstComponent int
	NumComponents  int
	// Sample is the sample index, or -1 for centroid and snapped
	// evaluations.
	Sample int32
	// Offset is in 1/16 pixel units, clamped to [-8, 7].
	OffsetX int32
	OffsetY int32
}

// GlobalState is the data shared by every lane of a workgroup. Resource
// entries are created on first use and persist for the session. Lanes
// execute strictly in sequence, so no locking is done.
type GlobalState struct {
	log zerolog.Logger

	srvs map[binding.Slot]*ResourceData
	uavs map[binding.Slot]*ResourceData

	groupshared []GroupShared

	constantBlocks map[binding.Slot]value.ShaderVariable

	sampleEvalCache        map[SampleEvalKey]value.ShaderVariable
	sampleEvalRegisterMask uint64
}

// NewGlobalState returns an empty global state.
func NewGlobalState(log zerolog.Logger) *GlobalState {
	return &GlobalState{
		log:             log,
		srvs:            make(map[binding.Slot]*ResourceData),
		uavs:            make(map[binding.Slot]*ResourceData),
		constantBlocks:  make(map[binding.Slot]value.ShaderVariable),
		sampleEvalCache: make(map[SampleEvalKey]value.ShaderVariable),
	}
}

// SRV returns the read-only resource at slot, fetching it on first use.
// It returns nil if the fetch failed.
func (g *GlobalState) SRV(api APIWrapper, slot binding.Slot) *ResourceData {
	return g.fetch(g.srvs, "srv", api.FetchSRV, slot)
}

// UAV returns the read-write resource at slot, fetching it on first use.
// It returns nil if the fetch failed.
func (g *GlobalState) UAV(api APIWrapper, slot binding.Slot) *ResourceData {
	return g.fetch(g.uavs, "uav", api.FetchUAV, slot)
}

func (g *GlobalState) fetch(cache map[binding.Slot]*ResourceData, kind string,
	fetch func(binding.Slot) (*ResourceData, error), slot binding.Slot) *ResourceData {
	if res, ok := cache[slot]; ok {
		return res
	}

	res, err := fetch(slot)
	if err != nil {
		g.log.Warn().Err(err).Str("kind", kind).Stringer("slot", slot).Msg("resource fetch failed")
		res = nil
	} else if res == nil {
		g.log.Warn().Str("kind", kind).Stringer("slot", slot).Msg("resource not bound")
	} else {
		g.log.Debug().Str("kind", kind).Stringer("slot", slot).
			Int("bytes", len(res.Data)).Uint32("elements", res.NumElements).Msg("fetched resource")
	}
	cache[slot] = res
	return res
}

// PopulateGroupshared allocates zeroed groupshared blocks for every
// dcl_tgsm_raw and dcl_tgsm_structured in p.
func (g *GlobalState) PopulateGroupshared(p *dxbc.Program) {
	for i := range p.Declarations {
		d := &p.Declarations[i]
		if d.Opcode != dxbc.OpDclTGSMRaw && d.Opcode != dxbc.OpDclTGSMStructured {
			continue
		}
		if len(d.Operand.Indices) == 0 {
			continue
		}
		id := int(d.Operand.Indices[0].Index)
		for len(g.groupshared) <= id {
			g.groupshared = append(g.groupshared, GroupShared{})
		}

		gs := &g.groupshared[id]
		if d.Opcode == dxbc.OpDclTGSMRaw {
			gs.Structured = false
			gs.ByteStride = 4
			gs.Count = d.Count / 4
		} else {
			gs.Structured = true
			gs.ByteStride = d.Stride
			gs.Count = d.Count
		}
		gs.Data = make([]byte, int(gs.Count)*int(gs.ByteStride))
	}
}

// Groupshared returns block id, or nil if it was not declared.
func (g *GlobalState) Groupshared(id uint32) *GroupShared {
	if int(id) < len(g.groupshared) && g.groupshared[id].Data != nil {
		return &g.groupshared[id]
	}
	return nil
}

// SetConstantBlock stores the flattened contents of a constant buffer.
func (g *GlobalState) SetConstantBlock(slot binding.Slot, v value.ShaderVariable) {
	g.constantBlocks[slot] = v
}

// ConstantBlock returns the flattened constant buffer at slot, or nil.
func (g *GlobalState) ConstantBlock(slot binding.Slot) *value.ShaderVariable {
	if v, ok := g.constantBlocks[slot]; ok {
		return &v
	}
	return nil
}

// AddSampleEvaluation caches one evaluation result.
func (g *GlobalState) AddSampleEvaluation(key SampleEvalKey, v value.ShaderVariable) {
	g.sampleEvalCache[key] = v
	if key.InputReg >= 0 && key.InputReg < 64 {
		g.sampleEvalRegisterMask |= 1 << uint(key.InputReg)
	}
}

// SampleEvaluation returns a cached evaluation result.
func (g *GlobalState) SampleEvaluation(key SampleEvalKey) (value.ShaderVariable, bool) {
	v, ok := g.sampleEvalCache[key]
	return v, ok
}

// NumSampleEvaluations returns the size of the evaluation cache.
func (g *GlobalState) NumSampleEvaluations() int {
	return len(g.sampleEvalCache)
}

// hasEvaluationsFor reports whether any evaluation was cached for input
// register reg.
func (g *GlobalState) hasEvaluationsFor(reg int) bool {
	return reg >= 0 && reg < 64 && g.sampleEvalRegisterMask&(1<<uint(reg)) != 0
}
