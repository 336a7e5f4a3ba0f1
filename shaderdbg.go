// Package shaderdbg debugs a single invocation of a DXBC shader on the CPU.
//
// A debug session simulates the workgroup the invocation belongs to (one
// lane for vertex shaders, a 2x2 quad for pixel shaders, the full thread
// group for compute) and records one State per executed instruction of the
// traced lane. Everything that needs real GPU data (resource contents,
// sampling, math intrinsics with hardware precision) goes through a
// debugger.APIWrapper supplied by the caller; package refapi provides a
// CPU reference implementation.
//
// Example usage (compute):
//
//	api := refapi.New(logger)
//	api.BindUAV(binding.Slot{Register: 0}, refapi.RawBuffer(make([]byte, 256)))
//	trace, err := shaderdbg.DebugThread(ctx, program, api,
//	    [3]uint32{0, 0, 0}, [3]uint32{3, 0, 0}, shaderdbg.Inputs{}, shaderdbg.DefaultOptions())
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(len(trace.States), "steps")
//
// For step-by-step control, create a debugger.Debugger with debugger.New
// and call Step directly.
package shaderdbg

import (
	"context"
	"fmt"

	"github.com/gogpu/shaderdbg/binding"
	"github.com/gogpu/shaderdbg/debugger"
	"github.com/gogpu/shaderdbg/dxbc"
	"github.com/gogpu/shaderdbg/value"
)

// Options configures a debug session.
type Options struct {
	// Config is passed to the debugger unchanged.
	Config debugger.Config

	// ShaderModel overrides the model the program declares. It selects
	// between legacy and indexed resource binding.
	ShaderModel *binding.ShaderModel

	// Validate rejects programs with structural errors instead of only
	// logging them.
	Validate bool
}

// DefaultOptions returns sensible default options.
func DefaultOptions() Options {
	return Options{
		Config:   debugger.DefaultConfig(),
		Validate: true,
	}
}

// Inputs holds the data shared by every lane of the session.
type Inputs struct {
	// ConstantBuffers holds the raw contents of each bound constant buffer.
	ConstantBuffers map[binding.Slot][]byte

	// Evaluations pre-populates the pull-model interpolation cache.
	Evaluations map[debugger.SampleEvalKey]value.ShaderVariable
}

// Pixel describes the pixel to debug.
type Pixel struct {
	// Inputs are the interpolated inputs at the pixel, indexed by v#.
	Inputs []value.ShaderVariable

	// DDX and DDY are the screen-space derivatives of each input. They
	// seed the other three quad lanes. Missing entries count as zero.
	DDX, DDY []value.ShaderVariable

	// QuadLane is the pixel's position in its 2x2 quad: bit 0 is x, bit 1
	// is y.
	QuadLane int

	Semantics debugger.Semantics
}

// DebugThread debugs one compute invocation. The whole thread group given
// by dcl_thread_group is simulated so groupshared memory and barriers
// behave; thread is the invocation's id within group.
func DebugThread(ctx context.Context, p *dxbc.Program, api debugger.APIWrapper,
	group, thread [3]uint32, in Inputs, opts Options) (*debugger.Trace, error) {
	p, err := prepare(p, opts)
	if err != nil {
		return nil, err
	}
	if p.Type != dxbc.ShaderCompute {
		return nil, debugger.NewError(debugger.ErrInvalidTarget,
			fmt.Sprintf("DebugThread needs a compute shader, got %s", p.Profile()))
	}

	size := p.ThreadGroupSize()
	for i := range thread {
		if thread[i] >= size[i] {
			return nil, debugger.NewError(debugger.ErrInvalidTarget,
				fmt.Sprintf("thread %v outside group of %v", thread, size))
		}
	}

	lanes := make([]debugger.Invocation, 0, size[0]*size[1]*size[2])
	for z := uint32(0); z < size[2]; z++ {
		for y := uint32(0); y < size[1]; y++ {
			for x := uint32(0); x < size[0]; x++ {
				lanes = append(lanes, debugger.Invocation{Semantics: debugger.Semantics{
					GroupID:  group,
					ThreadID: [3]uint32{x, y, z},
				}})
			}
		}
	}
	target := debugger.Target{
		Lane:            int((thread[2]*size[1]+thread[1])*size[0] + thread[0]),
		Lanes:           lanes,
		ConstantBuffers: in.ConstantBuffers,
		Evaluations:     in.Evaluations,
	}
	return debugger.Run(ctx, p, api, target, opts.Config)
}

// DebugPixel debugs one pixel shader invocation as part of a 2x2 quad.
// The neighbouring lanes receive the pixel's inputs offset by the given
// derivatives so that derivative instructions and implicit-LOD sampling
// see a consistent quad.
func DebugPixel(ctx context.Context, p *dxbc.Program, api debugger.APIWrapper,
	px Pixel, in Inputs, opts Options) (*debugger.Trace, error) {
	p, err := prepare(p, opts)
	if err != nil {
		return nil, err
	}
	if p.Type != dxbc.ShaderPixel {
		return nil, debugger.NewError(debugger.ErrInvalidTarget,
			fmt.Sprintf("DebugPixel needs a pixel shader, got %s", p.Profile()))
	}
	if px.QuadLane < 0 || px.QuadLane > 3 {
		return nil, debugger.NewError(debugger.ErrInvalidTarget,
			fmt.Sprintf("quad lane %d out of range", px.QuadLane))
	}

	lanes := make([]debugger.Invocation, 4)
	for i := range lanes {
		lanes[i] = debugger.Invocation{Inputs: px.Inputs, Semantics: px.Semantics}
	}
	d, err := debugger.New(p, api, debugger.Target{
		Lane:            px.QuadLane,
		Lanes:           lanes,
		ConstantBuffers: in.ConstantBuffers,
		Evaluations:     in.Evaluations,
	}, opts.Config)
	if err != nil {
		return nil, err
	}

	quad := make([]*debugger.ThreadState, d.Lanes())
	for i := range quad {
		quad[i] = d.Lane(i)
	}
	for reg, v := range px.Inputs {
		ddx, ddy := derivativeAt(px.DDX, reg), derivativeAt(px.DDY, reg)
		debugger.ApplyDerivatives(quad, px.QuadLane, reg, int(v.Columns), ddx, ddy)
	}

	tr := d.Begin()
	states, err := d.ContinueDebug(ctx)
	tr.States = append(tr.States, states...)
	tr.Finished = d.Finished()
	return tr, err
}

func derivativeAt(ds []value.ShaderVariable, reg int) value.ShaderVariable {
	if reg < len(ds) {
		return ds[reg]
	}
	return value.Float4("", 0, 0, 0, 0)
}

// DebugVertex debugs one vertex shader invocation.
func DebugVertex(ctx context.Context, p *dxbc.Program, api debugger.APIWrapper,
	inputs []value.ShaderVariable, sem debugger.Semantics, in Inputs, opts Options) (*debugger.Trace, error) {
	p, err := prepare(p, opts)
	if err != nil {
		return nil, err
	}
	if p.Type != dxbc.ShaderVertex {
		return nil, debugger.NewError(debugger.ErrInvalidTarget,
			fmt.Sprintf("DebugVertex needs a vertex shader, got %s", p.Profile()))
	}
	target := debugger.Target{
		Lanes:           []debugger.Invocation{{Inputs: inputs, Semantics: sem}},
		ConstantBuffers: in.ConstantBuffers,
		Evaluations:     in.Evaluations,
	}
	return debugger.Run(ctx, p, api, target, opts.Config)
}

// Validate checks the program's structure and returns the first problem
// found.
func Validate(p *dxbc.Program) error {
	errs, err := dxbc.Validate(p)
	if err != nil {
		return fmt.Errorf("validation error: %w", err)
	}
	if len(errs) > 0 {
		return fmt.Errorf("validation failed: %w", errs[0])
	}
	return nil
}

// prepare applies the options to p, copying it when the shader model is
// overridden.
func prepare(p *dxbc.Program, opts Options) (*dxbc.Program, error) {
	if p == nil {
		return nil, debugger.NewError(debugger.ErrMalformedProgram, "program is nil")
	}
	if opts.Validate {
		if err := Validate(p); err != nil {
			return nil, err
		}
	}
	if sm := opts.ShaderModel; sm != nil {
		cp := *p
		cp.Major, cp.Minor = uint32(sm.Major()), uint32(sm.Minor())
		p = &cp
	}
	return p, nil
}
