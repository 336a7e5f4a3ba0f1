package debugger

import (
	"github.com/gogpu/shaderdbg/dxbc"
)

// activeLanes returns which lanes may step this iteration.
//
// A lane whose next instruction is a sync with the thread group flag waits
// there until every unfinished lane has reached a barrier.
//
// Pixel shader quads are also throttled. When the unfinished lanes diverge,
// the lane furthest ahead is found; if the instruction before its next one
// closes an if, loop or switch, that point is taken as a convergence point
// and every lane already waiting there is paused until the rest arrive.
// Nested divergence can pause the wrong lane; the heuristic is accepted as
// is.
func activeLanes(p *dxbc.Program, lanes []*ThreadState) []bool {
	active := make([]bool, len(lanes))
	for i, l := range lanes {
		active[i] = !l.Finished()
	}
	if len(lanes) < 2 {
		return active
	}

	if p.Type == dxbc.ShaderPixel {
		pauseAtConvergence(p, lanes, active)
	}
	pauseAtBarrier(p, lanes, active)

	for _, a := range active {
		if a {
			return active
		}
	}
	// nothing may run: let every unfinished lane step rather than stall
	for i, l := range lanes {
		active[i] = !l.Finished()
	}
	return active
}

func pauseAtConvergence(p *dxbc.Program, lanes []*ThreadState, active []bool) {
	furthest, diverged := -1, false
	for _, l := range lanes {
		if l.Finished() {
			continue
		}
		next := l.NextInstruction()
		if furthest >= 0 && next != furthest {
			diverged = true
		}
		furthest = max(furthest, next)
	}
	if !diverged || furthest <= 0 {
		return
	}

	switch p.Instruction(furthest - 1).Opcode {
	case dxbc.OpEndIf, dxbc.OpEndLoop, dxbc.OpEndSwitch:
	default:
		return
	}
	for i, l := range lanes {
		if active[i] && l.NextInstruction() == furthest {
			active[i] = false
		}
	}
}

// atBarrier reports whether the next instruction of l is a thread group
// barrier.
func atBarrier(p *dxbc.Program, l *ThreadState) bool {
	if l.Finished() {
		return false
	}
	op := p.Instruction(l.NextInstruction())
	return op.Opcode == dxbc.OpSync && op.SyncFlags&dxbc.SyncThreadsInGroup != 0
}

// pauseAtBarrier holds lanes waiting at a barrier while any unfinished lane
// is still running. Once every unfinished lane waits, all of them are
// released together, even if they wait at different barriers.
func pauseAtBarrier(p *dxbc.Program, lanes []*ThreadState, active []bool) {
	waiting, running := 0, 0
	for _, l := range lanes {
		switch {
		case l.Finished():
		case atBarrier(p, l):
			waiting++
		default:
			running++
		}
	}
	if waiting == 0 || running == 0 {
		return
	}
	for i, l := range lanes {
		if atBarrier(p, l) {
			active[i] = false
		}
	}
}

// snapshot deep-copies the lanes for neighbour reads during a step.
func snapshot(lanes []*ThreadState) []*ThreadState {
	prev := make([]*ThreadState, len(lanes))
	for i, l := range lanes {
		prev[i] = l.clone()
	}
	return prev
}
