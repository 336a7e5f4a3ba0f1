package debugger

import (
	"fmt"

	"github.com/gogpu/shaderdbg/dxbc"
	"github.com/gogpu/shaderdbg/value"
)

// Structured control flow is recovered at each branch by scanning the
// flat instruction list for the matching terminator.

// testTaken evaluates the _z/_nz condition in the first operand.
func (t *ThreadState) testTaken(op *dxbc.Operation) bool {
	if len(op.Operands) == 0 {
		return false
	}
	test := t.GetSrc(&op.Operands[0], op, false)
	return (test.U32(0) != 0) == op.NonZero
}

func (t *ThreadState) execFlow(op *dxbc.Operation) error {
	pc := t.pc
	switch op.Opcode {
	case dxbc.OpIf:
		if t.testTaken(op) {
			return nil
		}
		next, ok := t.skipIf(pc)
		if !ok {
			return errorAt(ErrControlFlow, pc, "if without matching else or endif")
		}
		t.nextInstruction = next

	case dxbc.OpElse:
		next, ok := t.scanForward(pc, dxbc.OpIf, dxbc.OpEndIf)
		if !ok {
			return errorAt(ErrControlFlow, pc, "else without matching endif")
		}
		t.nextInstruction = next

	case dxbc.OpEndIf, dxbc.OpLoop, dxbc.OpCase, dxbc.OpDefault, dxbc.OpEndSwitch, dxbc.OpLabel:
		// markers only

	case dxbc.OpBreak, dxbc.OpBreakC:
		if op.Opcode == dxbc.OpBreakC && !t.testTaken(op) {
			return nil
		}
		next, ok := t.skipBreak(pc)
		if !ok {
			return errorAt(ErrControlFlow, pc, "break outside loop or switch")
		}
		t.nextInstruction = next

	case dxbc.OpContinue, dxbc.OpContinueC, dxbc.OpEndLoop:
		if op.Opcode == dxbc.OpContinueC && !t.testTaken(op) {
			return nil
		}
		next, ok := t.loopStart(pc)
		if !ok {
			return errorAt(ErrControlFlow, pc, "%s without matching loop", op.Opcode)
		}
		t.nextInstruction = next

	case dxbc.OpSwitch:
		return t.execSwitch(op)

	case dxbc.OpCall, dxbc.OpCallC:
		return t.execCall(op)

	case dxbc.OpRet, dxbc.OpRetC:
		if op.Opcode == dxbc.OpRetC && !t.testTaken(op) {
			return nil
		}
		t.ret()
	}
	return nil
}

// skipIf finds where a not-taken if resumes: after a matching else at the
// same depth, or after the matching endif.
func (t *ThreadState) skipIf(pc int) (int, bool) {
	depth := 1
	for i := pc + 1; i < t.program.NumInstructions(); i++ {
		switch t.program.Instruction(i).Opcode {
		case dxbc.OpIf:
			depth++
		case dxbc.OpElse:
			if depth == 1 {
				depth--
			}
		case dxbc.OpEndIf:
			depth--
		}
		if depth == 0 {
			return i + 1, true
		}
	}
	return 0, false
}

// scanForward returns the instruction after the terminator matching the
// construct open at pc.
func (t *ThreadState) scanForward(pc int, open, close dxbc.Opcode) (int, bool) {
	depth := 1
	for i := pc + 1; i < t.program.NumInstructions(); i++ {
		switch t.program.Instruction(i).Opcode {
		case open:
			depth++
		case close:
			depth--
		}
		if depth == 0 {
			return i + 1, true
		}
	}
	return 0, false
}

// skipBreak leaves the innermost loop or switch.
func (t *ThreadState) skipBreak(pc int) (int, bool) {
	depth := 1
	for i := pc + 1; i < t.program.NumInstructions(); i++ {
		switch t.program.Instruction(i).Opcode {
		case dxbc.OpLoop, dxbc.OpSwitch:
			depth++
		case dxbc.OpEndLoop, dxbc.OpEndSwitch:
			depth--
		}
		if depth == 0 {
			return i + 1, true
		}
	}
	return 0, false
}

// loopStart scans backward to the loop instruction enclosing pc and returns
// the first instruction of its body.
func (t *ThreadState) loopStart(pc int) (int, bool) {
	depth := 1
	for i := pc - 1; i >= 0; i-- {
		switch t.program.Instruction(i).Opcode {
		case dxbc.OpEndLoop:
			depth++
		case dxbc.OpLoop:
			depth--
		}
		if depth == 0 {
			return i + 1, true
		}
	}
	return 0, false
}

// execSwitch jumps to the first case whose literal equals the selector
// bitwise, falling back to default. Labels directly after the target are
// skipped so execution resumes at a real instruction.
func (t *ThreadState) execSwitch(op *dxbc.Operation) error {
	pc := t.pc
	if len(op.Operands) == 0 {
		return errorAt(ErrMalformedProgram, pc, "switch without selector")
	}
	selector := t.GetSrc(&op.Operands[0], op, false).U32(0)

	target, defaultPos, end := -1, -1, -1
	depth := 0
scan:
	for i := pc + 1; i < t.program.NumInstructions(); i++ {
		inst := t.program.Instruction(i)
		switch inst.Opcode {
		case dxbc.OpSwitch:
			depth++
		case dxbc.OpEndSwitch:
			if depth == 0 {
				end = i
				break scan
			}
			depth--
		case dxbc.OpCase:
			if depth == 0 && target < 0 && len(inst.Operands) > 0 &&
				t.GetSrc(&inst.Operands[0], inst, false).U32(0) == selector {
				target = i
			}
		case dxbc.OpDefault:
			if depth == 0 {
				defaultPos = i
			}
		}
	}
	if end < 0 {
		return errorAt(ErrControlFlow, pc, "switch without matching endswitch")
	}

	switch {
	case target >= 0:
	case defaultPos >= 0:
		target = defaultPos
	default:
		t.log.Error().Int("pc", pc).Uint32("selector", selector).Msg("no case matched and switch has no default")
		t.nextInstruction = end + 1
		return nil
	}

	next := target + 1
	for next < end {
		if c := t.program.Instruction(next).Opcode; c != dxbc.OpCase && c != dxbc.OpDefault {
			break
		}
		next++
	}
	t.nextInstruction = next
	return nil
}

// execCall pushes a frame and seeds the callee's parameter registers from
// the extra call operands.
func (t *ThreadState) execCall(op *dxbc.Operation) error {
	pc := t.pc
	labelIdx := 0
	if op.Opcode == dxbc.OpCallC {
		if !t.testTaken(op) {
			return nil
		}
		labelIdx = 1
	}
	if labelIdx >= len(op.Operands) || len(op.Operands[labelIdx].Indices) == 0 {
		return errorAt(ErrMalformedProgram, pc, "call without label operand")
	}
	label := uint32(op.Operands[labelIdx].Indices[0].Index)
	pos, ok := t.program.LabelPosition(label)
	if !ok {
		return errorAt(ErrControlFlow, pc, "call to undefined label %d", label)
	}

	name := fmt.Sprintf("label %d", label)
	var params []uint32
	if fn := t.program.Function(label); fn != nil {
		if fn.Name != "" {
			name = fn.Name
		}
		params = fn.Params
	}

	args := op.Operands[labelIdx+1:]
	// arguments are read before any parameter register is overwritten
	vals := make([]value.ShaderVariable, 0, len(args))
	for j := range args {
		vals = append(vals, t.GetSrc(&args[j], op, false))
	}

	t.callStack = append(t.callStack, callFrame{
		returnPC: pc + 1,
		live:     t.live,
		function: name,
	})
	t.live = nil
	for j, reg := range params {
		if j >= len(vals) {
			t.log.Warn().Str("function", name).Int("param", j).Msg("missing call argument")
			break
		}
		t.setRegister(reg, vals[j])
		t.markLive(fmt.Sprintf("r%d", reg))
	}

	t.log.Debug().Str("function", name).Int("depth", len(t.callStack)).Msg("call")
	t.nextInstruction = pos + 1
	return nil
}

// ret pops the innermost frame, or finishes the invocation when returning
// from the entry point.
func (t *ThreadState) ret() {
	n := len(t.callStack)
	if n == 0 {
		t.done = true
		return
	}
	frame := t.callStack[n-1]
	t.callStack = t.callStack[:n-1]
	t.live = frame.live
	t.nextInstruction = frame.returnPC
	t.log.Debug().Str("function", frame.function).Int("depth", n-1).Msg("return")
}
