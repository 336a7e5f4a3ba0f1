package debugger

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"golang.org/x/exp/slices"

	"github.com/gogpu/shaderdbg/binding"
	"github.com/gogpu/shaderdbg/dxbc"
	"github.com/gogpu/shaderdbg/value"
)

// Invocation is the starting state of one lane.
type Invocation struct {
	Inputs    []value.ShaderVariable
	Semantics Semantics
}

// Target describes the workgroup to simulate and the lane to trace.
type Target struct {
	// Lane is the index of the traced invocation in Lanes.
	Lane int

	// Lanes is the workgroup: one invocation for vertex shaders, the four
	// quad lanes for pixel shaders, and the thread group for compute.
	Lanes []Invocation

	// ConstantBuffers holds the raw contents of each bound constant buffer.
	ConstantBuffers map[binding.Slot][]byte

	// Evaluations pre-populates the pull-model interpolation cache.
	Evaluations map[SampleEvalKey]value.ShaderVariable
}

// Debugger drives a workgroup through a program and records the traced
// lane.
type Debugger struct {
	program  *dxbc.Program
	api      APIWrapper
	cfg      Config
	log      zerolog.Logger
	global   *GlobalState
	resolver *binding.Resolver

	lanes  []*ThreadState
	target int
	steps  int
}

// New prepares a debug session. It fails if the configuration is invalid
// or the target does not fit the program.
func New(p *dxbc.Program, api APIWrapper, target Target, cfg Config) (*Debugger, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if p == nil {
		return nil, NewError(ErrMalformedProgram, "program is nil")
	}
	if api == nil {
		return nil, NewError(ErrInvalidTarget, "no API wrapper")
	}
	if len(target.Lanes) == 0 {
		return nil, NewError(ErrInvalidTarget, "workgroup has no lanes")
	}
	if target.Lane < 0 || target.Lane >= len(target.Lanes) {
		return nil, NewError(ErrInvalidTarget,
			fmt.Sprintf("lane %d outside workgroup of %d", target.Lane, len(target.Lanes)))
	}
	if p.Type == dxbc.ShaderPixel && len(target.Lanes) != 1 && len(target.Lanes) != 4 {
		return nil, NewError(ErrInvalidTarget,
			fmt.Sprintf("pixel workgroup must be 1 or 4 lanes, got %d", len(target.Lanes)))
	}

	log := cfg.Logger.With().Str("profile", p.Profile()).Logger()

	verrs, err := dxbc.Validate(p)
	if err != nil {
		return nil, NewError(ErrMalformedProgram, err.Error())
	}
	for _, e := range verrs {
		log.Warn().Int("pc", e.Instruction).Msg(e.Message)
	}

	d := &Debugger{
		program:  p,
		api:      api,
		cfg:      cfg,
		log:      log,
		global:   NewGlobalState(log),
		resolver: binding.NewResolver(p, binding.ShaderModelFor(p.Major, p.Minor)),
		target:   target.Lane,
	}
	d.global.PopulateGroupshared(p)

	for slot, data := range target.ConstantBuffers {
		id := slot.Register
		var layout *dxbc.CBuffer
		if p.Reflection != nil {
			for i := range p.Reflection.CBuffers {
				cb := &p.Reflection.CBuffers[i]
				if cb.Space == slot.Space && cb.Register == slot.Register {
					layout, id = cb, cb.Identifier
					break
				}
			}
		}
		d.global.SetConstantBlock(slot, FlattenConstantBuffer(id, layout, data))
	}
	for key, v := range target.Evaluations {
		d.global.AddSampleEvaluation(key, v)
	}

	d.lanes = make([]*ThreadState, len(target.Lanes))
	for i, inv := range target.Lanes {
		t := newThreadState(i, p, d.global, d.resolver, log, cfg.TraceChanges)
		t.Inputs = cloneVars(inv.Inputs)
		t.Semantics = inv.Semantics
		d.lanes[i] = t
	}

	log.Debug().Int("lanes", len(d.lanes)).Int("target", d.target).
		Int("instructions", p.NumInstructions()).Int("evaluations", d.global.NumSampleEvaluations()).
		Msg("debug session created")
	return d, nil
}

// Global returns the shared state of the session.
func (d *Debugger) Global() *GlobalState {
	return d.global
}

// Lane returns lane i of the workgroup.
func (d *Debugger) Lane(i int) *ThreadState {
	return d.lanes[i]
}

// Lanes returns the workgroup size.
func (d *Debugger) Lanes() int {
	return len(d.lanes)
}

// Finished reports whether the traced lane has finished.
func (d *Debugger) Finished() bool {
	return d.lanes[d.target].Finished()
}

// Begin returns the trace header: the traced lane's inputs, the constant
// blocks sorted by slot, and an initial state listing every register once.
func (d *Debugger) Begin() *Trace {
	t := d.lanes[d.target]
	tr := &Trace{Inputs: cloneVars(t.Inputs)}

	slots := make([]binding.Slot, 0, len(d.global.constantBlocks))
	for s := range d.global.constantBlocks {
		slots = append(slots, s)
	}
	slices.SortFunc(slots, binding.Slot.Compare)
	for _, s := range slots {
		tr.ConstantBlocks = append(tr.ConstantBlocks, d.global.ConstantBlock(s).Clone())
	}

	initial := State{NextInstruction: t.NextInstruction()}
	if d.cfg.TraceChanges {
		for _, group := range [][]value.ShaderVariable{t.Inputs, t.Registers, t.IndexableTemps, t.Outputs} {
			for i := range group {
				initial.Changes = append(initial.Changes, Change{After: group[i].Clone()})
			}
		}
	}
	tr.States = append(tr.States, initial)
	return tr
}

// ContinueDebug steps until the traced lane finishes or MaxSteps
// iterations have run, and returns the new states of the traced lane.
func (d *Debugger) ContinueDebug(ctx context.Context) ([]State, error) {
	return d.Step(ctx, d.cfg.MaxSteps)
}

// Step runs at most n workgroup iterations. Each iteration steps every
// active lane once; an iteration where the traced lane is paused records no
// state. Cancellation is checked between iterations.
func (d *Debugger) Step(ctx context.Context, n int) ([]State, error) {
	var states []State
	quad := d.program.Type == dxbc.ShaderPixel && len(d.lanes) == 4

	for i := 0; i < n; i++ {
		if err := ctx.Err(); err != nil {
			return states, err
		}
		if d.Finished() {
			break
		}

		var prev []*ThreadState
		if quad {
			prev = snapshot(d.lanes)
		}
		active := activeLanes(d.program, d.lanes)

		var state State
		for lane, t := range d.lanes {
			if !active[lane] {
				continue
			}
			var sp *State
			if lane == d.target {
				sp = &state
			}
			if err := t.StepNext(sp, d.api, prev); err != nil {
				d.log.Error().Err(err).Int("lane", lane).Msg("step failed")
				return states, err
			}
		}

		if !active[d.target] {
			d.log.Debug().Int("lane", d.target).Msg("traced lane paused")
			continue
		}
		d.steps++
		state.StepIndex = d.steps
		states = append(states, state)

		if w := d.cfg.StepWarnThreshold; w > 0 && d.steps%w == 0 {
			d.log.Warn().Int("steps", d.steps).Msg("shader has run for many steps, it may be in an infinite loop")
			d.api.AddDebugMessage(CategoryExecution, SeverityHigh,
				fmt.Sprintf("shader debugging has run for %d steps", d.steps))
		}
	}
	return states, nil
}

// Run creates a session and debugs it to completion.
func Run(ctx context.Context, p *dxbc.Program, api APIWrapper, target Target, cfg Config) (*Trace, error) {
	d, err := New(p, api, target, cfg)
	if err != nil {
		return nil, err
	}
	tr := d.Begin()
	states, err := d.ContinueDebug(ctx)
	tr.States = append(tr.States, states...)
	tr.Finished = d.Finished()
	return tr, err
}
