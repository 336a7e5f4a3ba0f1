package debugger

import (
	"github.com/gogpu/shaderdbg/dxbc"
	"github.com/gogpu/shaderdbg/value"
)

// Quad lanes are laid out as
//
//	0 1
//	2 3
//
// so the horizontal neighbour of lane i is i^1 and the vertical one i^2.

// derivative computes d(oper)/dx or d(oper)/dy across the quad prev. Coarse
// derivatives are the same for every lane; fine derivatives use the row or
// column of the invoking lane. It fails when the workgroup is not a quad
// or a needed neighbour has finished.
func (t *ThreadState) derivative(oper *dxbc.Operand, op *dxbc.Operation, prev []*ThreadState, xdir, fine bool) (value.ShaderVariable, bool) {
	zero := value.Float4("", 0, 0, 0, 0)
	if len(prev) != 4 || t.program.Type != dxbc.ShaderPixel {
		t.log.Error().Int("pc", t.pc).Int("lanes", len(prev)).Msg("derivative outside a pixel quad")
		return zero, false
	}

	var a, b int
	switch {
	case xdir && fine:
		a = t.Lane &^ 1
		b = a + 1
	case xdir:
		a, b = 0, 1
	case fine:
		a = t.Lane &^ 2
		b = a + 2
	default:
		a, b = 0, 2
	}

	if prev[a].done || prev[b].done {
		t.log.Error().Int("pc", t.pc).Int("lane_a", a).Int("lane_b", b).Msg("derivative reads a terminated lane")
		return zero, false
	}
	return subFloats(prev[b].GetSrc(oper, op, true), prev[a].GetSrc(oper, op, true)), true
}

func (t *ThreadState) execDerivative(op *dxbc.Operation, prev []*ThreadState) {
	if len(op.Operands) < 2 {
		t.log.Error().Int("pc", t.pc).Str("op", op.Mnemonic()).Msg("derivative without source")
		return
	}
	var xdir, fine bool
	switch op.Opcode {
	case dxbc.OpDerivRTX, dxbc.OpDerivRTXCoarse:
		xdir = true
	case dxbc.OpDerivRTXFine:
		xdir, fine = true, true
	case dxbc.OpDerivRTYFine:
		fine = true
	}
	d, _ := t.derivative(&op.Operands[1], op, prev, xdir, fine)
	t.setDst(op, 0, d)
}

// ApplyDerivatives seeds input register reg of every lane of quad from the
// value held by lane src and the screen-space derivatives ddx and ddy. Only
// the first n float components are written.
func ApplyDerivatives(quad []*ThreadState, src, reg, n int, ddx, ddy value.ShaderVariable) {
	if src < 0 || src >= len(quad) || reg >= len(quad[src].Inputs) {
		return
	}
	base := quad[src].Inputs[reg]
	sx, sy := src&1, src>>1
	for i, lane := range quad {
		if i == src || reg >= len(lane.Inputs) {
			continue
		}
		dx, dy := float32((i&1)-sx), float32((i>>1)-sy)
		dst := &lane.Inputs[reg]
		for c := 0; c < n && c < 4; c++ {
			dst.SetF32(c, base.F32(c)+dx*ddx.F32(c)+dy*ddy.F32(c))
		}
	}
}
