package refapi

import (
	"fmt"
	"math"

	"golang.org/x/exp/constraints"

	"github.com/gogpu/shaderdbg/debugger"
	"github.com/gogpu/shaderdbg/dxbc"
	"github.com/gogpu/shaderdbg/value"
)

// Filter selects texel filtering within a mip level.
type Filter uint8

const (
	FilterPoint Filter = iota
	FilterLinear
)

// AddressMode resolves coordinates outside [0, 1).
type AddressMode uint8

const (
	AddressClamp AddressMode = iota
	AddressWrap
	AddressMirror
	AddressBorder
)

// CompareFunc is the comparison of sample_c and gather4_c. A texel passes
// when reference OP texel holds.
type CompareFunc uint8

const (
	CompareNever CompareFunc = iota
	CompareLess
	CompareEqual
	CompareLessEqual
	CompareGreater
	CompareNotEqual
	CompareGreaterEqual
	CompareAlways
)

func (f CompareFunc) test(ref, texel float32) bool {
	switch f {
	case CompareLess:
		return ref < texel
	case CompareEqual:
		return ref == texel
	case CompareLessEqual:
		return ref <= texel
	case CompareGreater:
		return ref > texel
	case CompareNotEqual:
		return ref != texel
	case CompareGreaterEqual:
		return ref >= texel
	case CompareAlways:
		return true
	}
	return false
}

// Sampler is the state of one sampler slot. The zero value is point
// filtering with clamped addressing.
type Sampler struct {
	Filter  Filter
	Address [3]AddressMode
	Border  [4]float32
	Compare CompareFunc
	MipBias float32
}

// address maps texel index i into [0, n). It reports false when the border
// colour applies.
func address[I constraints.Signed](i, n I, mode AddressMode) (I, bool) {
	switch mode {
	case AddressWrap:
		i %= n
		if i < 0 {
			i += n
		}
	case AddressMirror:
		period := 2 * n
		i %= period
		if i < 0 {
			i += period
		}
		if i >= n {
			i = period - 1 - i
		}
	case AddressBorder:
		if i < 0 || i >= n {
			return 0, false
		}
	default:
		i = value.Clamp(i, 0, n-1)
	}
	return i, true
}

// sampleCoords splits the request coordinates by dimension. slice is the
// rounded array index for array textures.
type sampleCoords struct {
	uvw   [3]float32
	slice uint32
	n     int
}

func coordsFor(dim dxbc.ResourceDimension, uv *value.ShaderVariable) (sampleCoords, error) {
	c := sampleCoords{}
	switch dim {
	case dxbc.DimTexture1D:
		c.n = 1
	case dxbc.DimTexture1DArray:
		c.n = 1
		c.slice = uint32(max(0, value.RoundNE(uv.F32(1))))
	case dxbc.DimTexture2D:
		c.n = 2
	case dxbc.DimTexture2DArray:
		c.n = 2
		c.slice = uint32(max(0, value.RoundNE(uv.F32(2))))
	case dxbc.DimTexture3D:
		c.n = 3
	default:
		return c, fmt.Errorf("sampling a %s resource is not supported", dim)
	}
	for i := 0; i < c.n; i++ {
		c.uvw[i] = uv.F32(i)
	}
	return c, nil
}

// sampler returns the state at req.Sampler, or the zero sampler.
func (a *API) sampler(req *debugger.SampleRequest) Sampler {
	s, ok := a.samplers[req.Sampler]
	if !ok && req.Op != debugger.SampleLoad && req.Op != debugger.SampleLoadMS {
		a.log.Debug().Stringer("slot", req.Sampler).Msg("sampler not bound, using point clamp")
	}
	return s
}

func (a *API) CalculateSampleGather(req *debugger.SampleRequest) (value.ShaderVariable, error) {
	zero := value.Float4("", 0, 0, 0, 0)
	r := a.srvs[req.Resource]
	if r == nil {
		return zero, fmt.Errorf("srv %s: %w", req.Resource, ErrUnbound)
	}
	if !r.IsTexture() {
		return zero, fmt.Errorf("%s on %s resource", req.Op, r.Dim)
	}
	if len(r.Mips) == 0 {
		return zero, fmt.Errorf("srv %s has no texel data", req.Resource)
	}
	s := a.sampler(req)

	var (
		out value.ShaderVariable
		err error
	)
	switch req.Op {
	case debugger.SampleLoad, debugger.SampleLoadMS:
		out = a.load(r, req)
	case debugger.SampleLOD:
		out, err = a.lodQuery(r, req, s)
	case debugger.SampleGather, debugger.SampleGatherCompare:
		out, err = a.gather(r, req, s)
	default:
		out, err = a.filtered(r, req, s)
	}
	if err != nil {
		return zero, err
	}
	return swizzle(out, req.Swizzle), nil
}

func swizzle(v value.ShaderVariable, sw [4]uint8) value.ShaderVariable {
	out := v
	for i := 0; i < 4; i++ {
		out.SetU32(i, v.U32(int(sw[i]&3)))
	}
	return out
}

// load fetches one texel by integer address. The mip level is in the last
// address component; ld_ms reads level 0 and ignores the sample index since
// resources hold one sample.
func (a *API) load(r *Resource, req *debugger.SampleRequest) value.ShaderVariable {
	uv := &req.UV
	level := 0
	if req.Op == debugger.SampleLoad {
		level = int(uv.U32(3))
	}

	x := uv.S32(0) + int32(req.TexelOffset[0])
	var y, z int32
	switch r.Dim {
	case dxbc.DimTexture1DArray:
		z = uv.S32(1)
	case dxbc.DimTexture2D, dxbc.DimTexture2DMS:
		y = uv.S32(1) + int32(req.TexelOffset[1])
	default:
		y = uv.S32(1) + int32(req.TexelOffset[1])
		z = uv.S32(2)
		if r.Dim == dxbc.DimTexture3D {
			z += int32(req.TexelOffset[2])
		}
	}
	if x < 0 || y < 0 || z < 0 {
		return value.Float4("", 0, 0, 0, 0)
	}
	b := r.texel(level, uint32(x), uint32(y), uint32(z))
	if b == nil {
		return value.Float4("", 0, 0, 0, 0)
	}
	v, err := value.DecodeTexel(r.Format, b)
	if err != nil {
		a.log.Warn().Err(err).Msg("texel decode failed")
	}
	return v
}

// computeLOD returns the unclamped level of detail from the derivatives.
func computeLOD(r *Resource, c sampleCoords, ddx, ddy *value.ShaderVariable) float32 {
	size := [3]float32{float32(r.Width), float32(r.Height), float32(r.Depth)}
	var lx, ly float64
	for i := 0; i < c.n; i++ {
		dx := float64(ddx.F32(i) * size[i])
		dy := float64(ddy.F32(i) * size[i])
		lx += dx * dx
		ly += dy * dy
	}
	rho := math.Sqrt(max(lx, ly))
	if rho == 0 {
		return -math.MaxFloat32
	}
	return float32(math.Log2(rho))
}

func clampLOD(r *Resource, lod float32) float32 {
	return value.Clamp(lod, 0, float32(len(r.Mips)-1))
}

func (a *API) lodQuery(r *Resource, req *debugger.SampleRequest, s Sampler) (value.ShaderVariable, error) {
	c, err := coordsFor(req.Dim, &req.UV)
	if err != nil {
		return value.ShaderVariable{}, err
	}
	lod := computeLOD(r, c, &req.DDX, &req.DDY) + s.MipBias
	return value.Float4("", clampLOD(r, lod), lod, 0, 0), nil
}

// filtered implements the sample family: pick a level, then filter within
// it.
func (a *API) filtered(r *Resource, req *debugger.SampleRequest, s Sampler) (value.ShaderVariable, error) {
	c, err := coordsFor(req.Dim, &req.UV)
	if err != nil {
		return value.ShaderVariable{}, err
	}

	var lod float32
	switch req.Op {
	case debugger.SampleLevel:
		lod = req.LODOrCompare
	case debugger.SampleCompareLevelZero:
		lod = 0
	default:
		lod = computeLOD(r, c, &req.DDX, &req.DDY)
	}
	if req.Op == debugger.SampleBias {
		lod += req.Bias
	}
	lod += s.MipBias
	level := int(value.RoundNE(clampLOD(r, lod)))

	compare := req.Op == debugger.SampleCompare || req.Op == debugger.SampleCompareLevelZero
	linear := s.Filter == FilterLinear && r.Format.Kind != value.KindUInt && r.Format.Kind != value.KindSInt

	w, h, d := r.levelSize(level)
	fetch := func(x, y, z int32) value.ShaderVariable {
		t := a.addressed(r, s, level, [3]int32{x, y, z}, [3]int32{int32(w), int32(h), int32(d)}, c)
		if compare {
			pass := float32(0)
			if s.Compare.test(req.LODOrCompare, t.F32(0)) {
				pass = 1
			}
			return value.Float4("", pass, pass, pass, pass)
		}
		return t
	}

	off := req.TexelOffset
	pos := [3]float32{c.uvw[0] * float32(w), c.uvw[1] * float32(h), c.uvw[2] * float32(d)}
	if !linear {
		x := int32(math.Floor(float64(pos[0]))) + int32(off[0])
		y := int32(math.Floor(float64(pos[1]))) + int32(off[1])
		z := int32(math.Floor(float64(pos[2]))) + int32(off[2])
		return fetch(x, y, z), nil
	}

	fx, x0 := frac(pos[0] - 0.5)
	x0 += int32(off[0])
	fy, y0 := float32(0), int32(0)
	if c.n > 1 {
		fy, y0 = frac(pos[1] - 0.5)
		y0 += int32(off[1])
	}
	z := int32(math.Floor(float64(pos[2]))) + int32(off[2])

	t00, t10 := fetch(x0, y0, z), fetch(x0+1, y0, z)
	t01, t11 := fetch(x0, y0+1, z), fetch(x0+1, y0+1, z)
	out := value.Float4("", 0, 0, 0, 0)
	for i := 0; i < 4; i++ {
		top := lerp(t00.F32(i), t10.F32(i), fx)
		bottom := lerp(t01.F32(i), t11.F32(i), fx)
		out.SetF32(i, lerp(top, bottom, fy))
	}
	return out, nil
}

// gather returns one channel of the bilinear footprint at level 0 in the
// order (0,1), (1,1), (1,0), (0,0).
func (a *API) gather(r *Resource, req *debugger.SampleRequest, s Sampler) (value.ShaderVariable, error) {
	c, err := coordsFor(req.Dim, &req.UV)
	if err != nil {
		return value.ShaderVariable{}, err
	}
	if c.n != 2 {
		return value.ShaderVariable{}, fmt.Errorf("gather on %s is not supported", req.Dim)
	}
	w, h, d := r.levelSize(0)
	size := [3]int32{int32(w), int32(h), int32(d)}

	_, x0 := frac(c.uvw[0]*float32(w) - 0.5)
	_, y0 := frac(c.uvw[1]*float32(h) - 0.5)
	x0 += int32(req.TexelOffset[0])
	y0 += int32(req.TexelOffset[1])

	ch := int(req.GatherChannel & 3)
	corners := [4][2]int32{{0, 1}, {1, 1}, {1, 0}, {0, 0}}
	out := value.Float4("", 0, 0, 0, 0)
	for i, k := range corners {
		t := a.addressed(r, s, 0, [3]int32{x0 + k[0], y0 + k[1], 0}, size, c)
		if req.Op == debugger.SampleGatherCompare {
			pass := float32(0)
			if s.Compare.test(req.LODOrCompare, t.F32(0)) {
				pass = 1
			}
			out.SetF32(i, pass)
			continue
		}
		out.SetU32(i, t.U32(ch))
	}
	return out, nil
}

// addressed applies the sampler's address modes and reads one texel.
func (a *API) addressed(r *Resource, s Sampler, level int, p, size [3]int32, c sampleCoords) value.ShaderVariable {
	border := value.Float4("", s.Border[0], s.Border[1], s.Border[2], s.Border[3])
	var q [3]uint32
	for i := 0; i < 3; i++ {
		if i >= c.n {
			continue
		}
		v, ok := address(p[i], size[i], s.Address[i])
		if !ok {
			return border
		}
		q[i] = uint32(v)
	}
	if c.n < 3 {
		q[2] = c.slice
	}
	b := r.texel(level, q[0], q[1], q[2])
	if b == nil {
		return border
	}
	v, err := value.DecodeTexel(r.Format, b)
	if err != nil {
		a.log.Warn().Err(err).Msg("texel decode failed")
	}
	return v
}

func frac(x float32) (float32, int32) {
	f := math.Floor(float64(x))
	return x - float32(f), int32(f)
}

func lerp(a, b, t float32) float32 {
	return a + (b-a)*t
}
