package refapi

import (
	"errors"
	"fmt"
	"math"

	"github.com/rs/zerolog"

	"github.com/gogpu/shaderdbg/binding"
	"github.com/gogpu/shaderdbg/debugger"
	"github.com/gogpu/shaderdbg/dxbc"
	"github.com/gogpu/shaderdbg/value"
)

// ErrUnbound is returned when an operation names a slot with no resource.
var ErrUnbound = errors.New("slot not bound")

// Message is one diagnostic raised during a session.
type Message struct {
	Category    debugger.MessageCategory
	Severity    debugger.MessageSeverity
	Instruction int
	Text        string
}

// API is an in-memory debugger.APIWrapper. It is not safe for concurrent
// use; a workgroup is stepped from a single goroutine.
type API struct {
	log zerolog.Logger

	srvs     map[binding.Slot]*Resource
	uavs     map[binding.Slot]*Resource
	samplers map[binding.Slot]Sampler
	views    map[binding.Slot]*debugger.ResourceData

	// RasterizerSamples is reported by sample_info on the rasterizer.
	RasterizerSamples uint32

	messages []Message
	pc       int
}

var _ debugger.APIWrapper = (*API)(nil)

// New returns an empty host.
func New(log zerolog.Logger) *API {
	return &API{
		log:               log,
		srvs:              make(map[binding.Slot]*Resource),
		uavs:              make(map[binding.Slot]*Resource),
		samplers:          make(map[binding.Slot]Sampler),
		views:             make(map[binding.Slot]*debugger.ResourceData),
		RasterizerSamples: 1,
	}
}

// BindSRV binds a read-only resource.
func (a *API) BindSRV(slot binding.Slot, r *Resource) { a.srvs[slot] = r }

// BindUAV binds a read-write resource.
func (a *API) BindUAV(slot binding.Slot, r *Resource) { a.uavs[slot] = r }

// BindSampler binds sampler state.
func (a *API) BindSampler(slot binding.Slot, s Sampler) { a.samplers[slot] = s }

// UAV returns the resource bound at slot, or nil.
func (a *API) UAV(slot binding.Slot) *Resource { return a.uavs[slot] }

// Counter returns the current hidden counter of the UAV at slot.
func (a *API) Counter(slot binding.Slot) uint32 {
	if v, ok := a.views[slot]; ok {
		return v.HiddenCounter
	}
	if r := a.uavs[slot]; r != nil {
		return r.HiddenCounter
	}
	return 0
}

// Messages returns the diagnostics raised so far.
func (a *API) Messages() []Message { return a.messages }

func (a *API) FetchSRV(slot binding.Slot) (*debugger.ResourceData, error) {
	r := a.srvs[slot]
	if r == nil {
		return nil, fmt.Errorf("srv %s: %w", slot, ErrUnbound)
	}
	a.log.Debug().Stringer("slot", slot).Stringer("dim", r.Dim).Msg("fetch srv")
	return r.view(), nil
}

func (a *API) FetchUAV(slot binding.Slot) (*debugger.ResourceData, error) {
	r := a.uavs[slot]
	if r == nil {
		return nil, fmt.Errorf("uav %s: %w", slot, ErrUnbound)
	}
	a.log.Debug().Stringer("slot", slot).Stringer("dim", r.Dim).Msg("fetch uav")
	v := r.view()
	a.views[slot] = v
	return v, nil
}

func (a *API) CalculateMathIntrinsic(op dxbc.Opcode, in value.ShaderVariable) (value.ShaderVariable, value.ShaderVariable, error) {
	out := value.Float4("", 0, 0, 0, 0)
	out2 := value.Float4("", 0, 0, 0, 0)
	for i := 0; i < 4; i++ {
		x := float64(in.F32(i))
		switch op {
		case dxbc.OpRcp:
			out.SetF32(i, float32(1/x))
		case dxbc.OpRsq:
			out.SetF32(i, float32(1/math.Sqrt(x)))
		case dxbc.OpExp:
			out.SetF32(i, float32(math.Exp2(x)))
		case dxbc.OpLog:
			out.SetF32(i, float32(math.Log2(x)))
		case dxbc.OpSinCos:
			s, c := math.Sincos(x)
			out.SetF32(i, float32(s))
			out2.SetF32(i, float32(c))
		default:
			return out, out2, fmt.Errorf("math intrinsic %s is not supported", op)
		}
	}
	return out, out2, nil
}

func (a *API) resource(class dxbc.OperandType, slot binding.Slot) *Resource {
	if class == dxbc.OperandUAV {
		return a.uavs[slot]
	}
	return a.srvs[slot]
}

func (a *API) GetResourceInfo(class dxbc.OperandType, slot binding.Slot, mip uint32) (value.ShaderVariable, int) {
	result := value.UInt4("", 0, 0, 0, 0)
	r := a.resource(class, slot)
	if r == nil {
		a.log.Warn().Stringer("slot", slot).Msg("resinfo on unbound resource")
		return result, 0
	}
	dim := dimensionality(r.Dim)
	if !r.IsTexture() {
		result.SetU32(0, r.NumElements)
		return result, dim
	}

	levels := uint32(len(r.Mips))
	result.SetU32(3, levels)
	if mip >= levels {
		return result, dim
	}
	w, h, d := r.levelSize(int(mip))
	switch dim {
	case 1:
		result.SetU32(0, w)
	case 2:
		result.SetU32(0, w)
		if r.Dim == dxbc.DimTexture1DArray {
			result.SetU32(1, d)
		} else {
			result.SetU32(1, h)
		}
	default:
		result.SetU32(0, w)
		result.SetU32(1, h)
		result.SetU32(2, d)
	}
	return result, dim
}

func (a *API) GetSampleInfo(class dxbc.OperandType, absolute bool, slot binding.Slot) value.ShaderVariable {
	if !absolute {
		return value.UInt4("", a.RasterizerSamples, 0, 0, 0)
	}
	r := a.resource(class, slot)
	if r == nil {
		return value.UInt4("", 0, 0, 0, 0)
	}
	return value.UInt4("", r.SampleCount, 0, 0, 0)
}

func (a *API) GetBufferInfo(class dxbc.OperandType, slot binding.Slot) value.ShaderVariable {
	var n uint32
	if r := a.resource(class, slot); r != nil && !r.IsTexture() {
		n = r.NumElements
	}
	return value.UInt4("", n, n, n, n)
}

func (a *API) ReadTexel(slot binding.Slot, coord [3]uint32) (value.ShaderVariable, error) {
	r := a.uavs[slot]
	if r == nil {
		return value.Float4("", 0, 0, 0, 0), fmt.Errorf("uav %s: %w", slot, ErrUnbound)
	}
	b := r.texel(0, coord[0], coord[1], coord[2])
	if b == nil {
		return value.Float4("", 0, 0, 0, 0), nil
	}
	return value.DecodeTexel(r.Format, b)
}

func (a *API) WriteTexel(slot binding.Slot, coord [3]uint32, v value.ShaderVariable) error {
	r := a.uavs[slot]
	if r == nil {
		return fmt.Errorf("uav %s: %w", slot, ErrUnbound)
	}
	b := r.texel(0, coord[0], coord[1], coord[2])
	if b == nil {
		a.log.Debug().Stringer("slot", slot).Uints32("coord", coord[:]).Msg("texel write out of bounds dropped")
		return nil
	}
	return value.EncodeTexel(r.Format, &v, b)
}

func (a *API) AddDebugMessage(cat debugger.MessageCategory, sev debugger.MessageSeverity, text string) {
	a.log.Info().Int("pc", a.pc).Uint8("severity", uint8(sev)).Msg(text)
	a.messages = append(a.messages, Message{
		Category:    cat,
		Severity:    sev,
		Instruction: a.pc,
		Text:        text,
	})
}

func (a *API) SetCurrentInstruction(pc int) { a.pc = pc }
