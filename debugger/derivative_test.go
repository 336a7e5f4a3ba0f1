package debugger

import (
	"context"
	"testing"

	"github.com/gogpu/shaderdbg/dxbc"
	"github.com/gogpu/shaderdbg/value"
)

func v0(comps ...uint8) dxbc.Operand {
	return dxbc.NewOperand(dxbc.OperandInput, 0).WithSwizzle(comps...)
}

// quadTarget gives lane i the input v0 = (xs[i], ys[i], 0, 0).
func quadTarget(xs, ys [4]float32) Target {
	var tgt Target
	for i := 0; i < 4; i++ {
		tgt.Lanes = append(tgt.Lanes, Invocation{
			Inputs: []value.ShaderVariable{value.Float4("v0", xs[i], ys[i], 0, 0)},
		})
	}
	return tgt
}

func runQuad(t *testing.T, p *dxbc.Program, tgt Target, api APIWrapper) *Debugger {
	t.Helper()
	d, err := New(p, api, tgt, nopConfig())
	if err != nil {
		t.Fatal(err)
	}
	if _, err := d.ContinueDebug(context.Background()); err != nil {
		t.Fatal(err)
	}
	return d
}

func TestDerivatives(t *testing.T) {
	p := pixelProgram(4,
		inst(dxbc.OpDerivRTXCoarse, rx(0), v0(0)),
		inst(dxbc.OpDerivRTXFine, rx(1), v0(0)),
		inst(dxbc.OpDerivRTYFine, rx(2), v0(0)),
		inst(dxbc.OpDerivRTY, rx(3), v0(0)),
		inst(dxbc.OpRet),
	)
	d := runQuad(t, p, quadTarget([4]float32{1, 3, 10, 17}, [4]float32{}), &fakeAPI{})

	tests := []struct {
		name string
		reg  int
		want [4]float32
	}{
		{"coarse ddx", 0, [4]float32{2, 2, 2, 2}},
		{"fine ddx", 1, [4]float32{2, 2, 7, 7}},
		{"fine ddy", 2, [4]float32{9, 14, 9, 14}},
		{"ddy", 3, [4]float32{9, 9, 9, 9}},
	}
	for _, tt := range tests {
		for lane := 0; lane < 4; lane++ {
			if got := d.Lane(lane).Registers[tt.reg].F32(0); got != tt.want[lane] {
				t.Errorf("%s lane %d = %v, want %v", tt.name, lane, got, tt.want[lane])
			}
		}
	}
}

func TestDerivativeOfTerminatedNeighbour(t *testing.T) {
	p := pixelProgram(1,
		instNZ(dxbc.OpDiscard, v0(1)),
		inst(dxbc.OpMov, rx(0), f32(99)),
		inst(dxbc.OpDerivRTXFine, rx(0), v0(0)),
		inst(dxbc.OpRet),
	)
	// lane 1 discards itself
	d := runQuad(t, p, quadTarget([4]float32{1, 3, 10, 17}, [4]float32{0, 1, 0, 0}), &fakeAPI{})

	if !d.Lane(1).Finished() {
		t.Fatal("lane 1 should have been discarded")
	}
	if got := d.Lane(0).Registers[0].F32(0); got != 0 {
		t.Errorf("lane 0 ddx = %v, want 0 from a terminated neighbour", got)
	}
	if got := d.Lane(3).Registers[0].F32(0); got != 7 {
		t.Errorf("lane 3 ddx = %v, want 7", got)
	}
}

func TestDerivativeOutsideQuad(t *testing.T) {
	th := newTestThread(computeProgram(1,
		inst(dxbc.OpMov, rx(0), f32(5)),
		inst(dxbc.OpDerivRTX, rx(0), f32(1)),
		inst(dxbc.OpRet),
	))
	runThread(t, th, &fakeAPI{})
	if got := th.Registers[0].F32(0); got != 0 {
		t.Errorf("r0.x = %v, want 0", got)
	}
}

func TestApplyDerivatives(t *testing.T) {
	p := pixelProgram(1, inst(dxbc.OpRet))
	quad := make([]*ThreadState, 4)
	for i := range quad {
		quad[i] = newTestThread(p)
		quad[i].Inputs = []value.ShaderVariable{value.Float4("v0", 0, 0, 0, 0)}
	}
	quad[0].Inputs[0] = value.Float4("v0", 1, 2, 7, 7)

	ApplyDerivatives(quad, 0, 0, 2, value.Float4("", 0.5, 1, 0, 0), value.Float4("", 2, 0, 0, 0))

	want := [4][2]float32{{1, 2}, {1.5, 3}, {3, 2}, {3.5, 3}}
	for i, w := range want {
		in := quad[i].Inputs[0]
		if in.F32(0) != w[0] || in.F32(1) != w[1] {
			t.Errorf("lane %d = (%v, %v), want %v", i, in.F32(0), in.F32(1), w)
		}
		if i != 0 && in.F32(2) != 0 {
			t.Errorf("lane %d z written beyond n components", i)
		}
	}

	// seeding from the bottom right lane works backwards
	quad[3].Inputs[0] = value.Float4("v0", 4, 4, 0, 0)
	ApplyDerivatives(quad, 3, 0, 1, value.Float4("", 1, 0, 0, 0), value.Float4("", 1, 0, 0, 0))
	if got := quad[0].Inputs[0].F32(0); got != 2 {
		t.Errorf("lane 0 from lane 3 = %v, want 2", got)
	}
}
