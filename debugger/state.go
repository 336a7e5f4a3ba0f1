package debugger

import "github.com/gogpu/shaderdbg/value"

// EventFlags mark noteworthy events of a step.
type EventFlags uint32

const (
	// EventSampleLoadGather is set when the step read a resource.
	EventSampleLoadGather EventFlags = 1 << iota

	// EventGeneratedNanOrInf is set when the step produced a NaN or
	// infinity, or divided an integer by zero.
	EventGeneratedNanOrInf
)

// Has reports whether all bits of f2 are set in f.
func (f EventFlags) Has(f2 EventFlags) bool {
	return f&f2 == f2
}

// Change is one register modification. Before is zero-valued for the
// initial state, where every register is reported once.
type Change struct {
	Before value.ShaderVariable
	After  value.ShaderVariable
}

// State is the record of one executed step. It is never modified after
// being appended to a trace.
type State struct {
	StepIndex       int
	NextInstruction int
	Flags           EventFlags
	Changes         []Change

	// CallStack lists the active function labels, outermost first.
	CallStack []string
}

// Trace is the result of a debug session.
type Trace struct {
	Inputs         []value.ShaderVariable
	ConstantBlocks []value.ShaderVariable
	States         []State

	// Finished is set when the traced lane completed within the session.
	Finished bool
}

// Final returns the last recorded state, or nil.
func (t *Trace) Final() *State {
	if len(t.States) == 0 {
		return nil
	}
	return &t.States[len(t.States)-1]
}

// Values replays the recorded changes and returns the last value of every
// register the trace reported, keyed by name. Traces recorded without
// TraceChanges yield an empty map.
func (t *Trace) Values() map[string]value.ShaderVariable {
	vals := make(map[string]value.ShaderVariable)
	for i := range t.States {
		for _, c := range t.States[i].Changes {
			vals[c.After.Name] = c.After
		}
	}
	return vals
}
