package scenario

import (
	"math"
	"strings"
	"testing"

	"github.com/gogpu/shaderdbg/dxbc"
)

func TestParseWord(t *testing.T) {
	tests := []struct {
		in   string
		want uint32
	}{
		{"0", 0},
		{"42", 42},
		{"-1", 0xffffffff},
		{"0xdeadbeef", 0xdeadbeef},
		{"0X10", 16},
		{"1.0", math.Float32bits(1)},
		{"-2.5", math.Float32bits(-2.5)},
		{"1e3", math.Float32bits(1000)},
		{"inf", math.Float32bits(float32(math.Inf(1)))},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseWord(tt.in)
			if err != nil {
				t.Fatal(err)
			}
			if got != tt.want {
				t.Errorf("ParseWord(%q) = 0x%08x, want 0x%08x", tt.in, got, tt.want)
			}
		})
	}

	for _, bad := range []string{"", "one", "0xg", "4294967296"} {
		if _, err := ParseWord(bad); err == nil {
			t.Errorf("ParseWord(%q) accepted", bad)
		}
	}
}

func TestParseOperand(t *testing.T) {
	t.Run("temp swizzle", func(t *testing.T) {
		op, err := ParseOperand("r3.xzw")
		if err != nil {
			t.Fatal(err)
		}
		if op.Type != dxbc.OperandTemp || len(op.Indices) != 1 || op.Indices[0].Index != 3 {
			t.Fatalf("got %+v", op)
		}
		want := [4]uint8{0, 2, 3, dxbc.CompUnused}
		if op.Comps != want {
			t.Errorf("comps = %v, want %v", op.Comps, want)
		}
	})

	t.Run("modifiers", func(t *testing.T) {
		cases := map[string]dxbc.Modifier{
			"r0.x":    dxbc.ModifierNone,
			"-r0.x":   dxbc.ModifierNeg,
			"|r0.x|":  dxbc.ModifierAbs,
			"-|r0.x|": dxbc.ModifierAbsNeg,
		}
		for in, want := range cases {
			op, err := ParseOperand(in)
			if err != nil {
				t.Fatalf("%s: %v", in, err)
			}
			if op.Modifier != want {
				t.Errorf("%s: modifier = %v, want %v", in, op.Modifier, want)
			}
		}
	})

	t.Run("relative index", func(t *testing.T) {
		op, err := ParseOperand("cb0[r1.x + 3].yyyy")
		if err != nil {
			t.Fatal(err)
		}
		if op.Type != dxbc.OperandConstantBuffer || len(op.Indices) != 2 {
			t.Fatalf("got %+v", op)
		}
		idx := op.Indices[1]
		if !idx.Absolute || idx.Index != 3 || idx.Relative == nil {
			t.Fatalf("index = %+v", idx)
		}
		if idx.Relative.Type != dxbc.OperandTemp || idx.Relative.Indices[0].Index != 1 {
			t.Errorf("relative = %+v", idx.Relative)
		}
	})

	t.Run("immediate", func(t *testing.T) {
		op, err := ParseOperand("l(1.0, 2, -1, 0x10)")
		if err != nil {
			t.Fatal(err)
		}
		want := [4]uint32{math.Float32bits(1), 2, 0xffffffff, 16}
		if op.Type != dxbc.OperandImmediate32 || op.Values != want {
			t.Errorf("got %+v", op)
		}
		if op.NumComponents != dxbc.NumComps4 {
			t.Errorf("components = %v", op.NumComponents)
		}
	})

	t.Run("double immediate", func(t *testing.T) {
		op, err := ParseOperand("d(1.5, -2)")
		if err != nil {
			t.Fatal(err)
		}
		lo := math.Float64frombits(uint64(op.Values[0]) | uint64(op.Values[1])<<32)
		hi := math.Float64frombits(uint64(op.Values[2]) | uint64(op.Values[3])<<32)
		if lo != 1.5 || hi != -2 {
			t.Errorf("values = %v, %v", lo, hi)
		}
	})

	t.Run("round trip", func(t *testing.T) {
		for _, in := range []string{
			"r0.xyzw", "-|v1.x|", "o2.xy", "icb[r0.x + 1].xyzw", "x0[r2.y].x",
			"cb1[4].zzzz", "t0.xyzw", "s3", "u1.x", "vThreadID.xyz", "l(1.0)",
		} {
			op, err := ParseOperand(in)
			if err != nil {
				t.Errorf("%s: %v", in, err)
				continue
			}
			if got := op.String(); got != in {
				t.Errorf("ParseOperand(%q).String() = %q", in, got)
			}
		}
	})

	for _, bad := range []string{"q0.x", "r0.xq", "r0[1", "|r0.x", "l(1, 2, 3, 4, 5)", "d(1, 2, 3)", "r0[r1.x + y]"} {
		if _, err := ParseOperand(bad); err == nil {
			t.Errorf("ParseOperand(%q) accepted", bad)
		}
	}
}

func TestParseInstruction(t *testing.T) {
	tests := []struct {
		line  string
		check func(t *testing.T, op dxbc.Operation)
	}{
		{"add_sat r0.x, r1.x, l(1.0)", func(t *testing.T, op dxbc.Operation) {
			if op.Opcode != dxbc.OpAdd || !op.Saturate || len(op.Operands) != 3 {
				t.Errorf("got %+v", op)
			}
		}},
		{"if_nz r0.x", func(t *testing.T, op dxbc.Operation) {
			if op.Opcode != dxbc.OpIf || !op.NonZero {
				t.Errorf("got %+v", op)
			}
		}},
		{"if_z r0.x", func(t *testing.T, op dxbc.Operation) {
			if op.Opcode != dxbc.OpIf || op.NonZero {
				t.Errorf("got %+v", op)
			}
		}},
		{"sample_aoffimmi(-1,2,0) r0.xyzw, v0.xyxx, t0.xyzw, s0", func(t *testing.T, op dxbc.Operation) {
			if op.Opcode != dxbc.OpSample || op.TexelOffset != [3]int8{-1, 2, 0} || len(op.Operands) != 4 {
				t.Errorf("got %+v", op)
			}
		}},
		{"resinfo_uint r0.xyzw, l(0), t0.xyzw", func(t *testing.T, op dxbc.Operation) {
			if op.Opcode != dxbc.OpResInfo || op.InfoRetType != dxbc.RetTypeUInt {
				t.Errorf("got %+v", op)
			}
		}},
		{"sync_uglobal_g_t", func(t *testing.T, op dxbc.Operation) {
			want := dxbc.SyncUAVGlobal | dxbc.SyncGroupShared | dxbc.SyncThreadsInGroup
			if op.Opcode != dxbc.OpSync || op.SyncFlags != want {
				t.Errorf("got %+v", op)
			}
		}},
		{"ret", func(t *testing.T, op dxbc.Operation) {
			if op.Opcode != dxbc.OpRet || len(op.Operands) != 0 {
				t.Errorf("got %+v", op)
			}
		}},
	}
	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			op, err := ParseInstruction(tt.line)
			if err != nil {
				t.Fatal(err)
			}
			tt.check(t, op)
			if got := op.String(); got != tt.line {
				t.Errorf("String() = %q", got)
			}
		})
	}

	for _, bad := range []string{"frobnicate r0.x", "add_z r0.x, r0.x, r0.x", "sample_aoffimmi(1,2) r0, v0, t0, s0", "mov r0.x, q1", "sync_x"} {
		if _, err := ParseInstruction(bad); err == nil {
			t.Errorf("ParseInstruction(%q) accepted", bad)
		}
	}
}

func TestParseDeclaration(t *testing.T) {
	tests := []struct {
		line  string
		check func(t *testing.T, d dxbc.Declaration)
	}{
		{"dcl_temps 5", func(t *testing.T, d dxbc.Declaration) {
			if d.Opcode != dxbc.OpDclTemps || d.NumTemps != 5 {
				t.Errorf("got %+v", d)
			}
		}},
		{"dcl_indexable_temp x1[8], 4", func(t *testing.T, d dxbc.Declaration) {
			if d.Opcode != dxbc.OpDclIndexableTemp || d.TempReg != 1 || d.NumTemps != 8 || d.TempComponents != 4 {
				t.Errorf("got %+v", d)
			}
		}},
		{"dcl_thread_group 8, 4, 1", func(t *testing.T, d dxbc.Declaration) {
			if d.GroupSize != [3]uint32{8, 4, 1} {
				t.Errorf("got %+v", d)
			}
		}},
		{"dcl_resource_texture2dms(4) (float,float,float,float) t1", func(t *testing.T, d dxbc.Declaration) {
			if d.Opcode != dxbc.OpDclResource || d.Dim != dxbc.DimTexture2DMS || d.SampleCount != 4 {
				t.Errorf("got %+v", d)
			}
			if d.ResType != [4]dxbc.ReturnType{dxbc.ReturnFloat, dxbc.ReturnFloat, dxbc.ReturnFloat, dxbc.ReturnFloat} {
				t.Errorf("return types = %v", d.ResType)
			}
		}},
		{"dcl_uav_structured_opc u2, 8, space=3", func(t *testing.T, d dxbc.Declaration) {
			if d.Opcode != dxbc.OpDclUAVStructured || !d.HasCounter || d.Stride != 8 || d.Space != 3 {
				t.Errorf("got %+v", d)
			}
		}},
		{"dcl_tgsm_structured g0, 16, 64", func(t *testing.T, d dxbc.Declaration) {
			if d.Opcode != dxbc.OpDclTGSMStructured || d.Stride != 16 || d.Count != 64 {
				t.Errorf("got %+v", d)
			}
		}},
		{"dcl_sampler s0, mode_comparison", func(t *testing.T, d dxbc.Declaration) {
			if d.Opcode != dxbc.OpDclSampler || d.SamplerMode != dxbc.SamplerModeComparison {
				t.Errorf("got %+v", d)
			}
		}},
		{"dcl_output_siv o0.xyzw, SV_Position", func(t *testing.T, d dxbc.Declaration) {
			if d.Opcode != dxbc.OpDclOutputSIV || d.SystemValue != dxbc.SVPosition {
				t.Errorf("got %+v", d)
			}
		}},
	}
	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			d, err := ParseDeclaration(tt.line)
			if err != nil {
				t.Fatal(err)
			}
			tt.check(t, d)
			if got := d.String(); got != tt.line {
				t.Errorf("String() = %q", got)
			}
		})
	}

	for _, bad := range []string{
		"dcl_temps many",
		"dcl_thread_group 1, 1",
		"dcl_resource_texture2d t0",
		"dcl_resource_blob (float,float,float,float) t0",
		"dcl_sampler s0, mode_weird",
		"dcl_output_siv o0.xyzw, SV_Nope",
		"dcl_nothing r0",
	} {
		if _, err := ParseDeclaration(bad); err == nil {
			t.Errorf("ParseDeclaration(%q) accepted", bad)
		}
	}
}

func TestAssemble(t *testing.T) {
	p, err := Assemble(`
ps_5_0 // profile
dcl_input_ps v0.xy
dcl_output o0.xyzw
dcl_temps 1
dcl_immediateConstantBuffer { { 0x00000001, 0x00000002, 0x00000003, 0x00000004 }, { 1.0, 2.0, 3.0, 4.0 } }
0: mov r0.xy, v0.xyxx
1:   mov o0.xyzw, icb[1].xyzw
ret
`)
	if err != nil {
		t.Fatal(err)
	}
	if p.Type != dxbc.ShaderPixel || p.Major != 5 || p.Minor != 0 {
		t.Errorf("profile = %s", p.Profile())
	}
	if len(p.Declarations) != 3 {
		t.Errorf("declarations = %d, want 3", len(p.Declarations))
	}
	if len(p.Instructions) != 3 {
		t.Errorf("instructions = %d, want 3", len(p.Instructions))
	}
	if len(p.ImmediateConstants) != 8 || p.ImmediateConstants[4] != math.Float32bits(1) {
		t.Errorf("icb = %v", p.ImmediateConstants)
	}

	for _, bad := range []string{
		"",
		"zz_5_0",
		"cs_five_0",
		"cs_5_0\ndcl_immediateConstantBuffer { 1, 2 }",
		"cs_5_0\nbogus",
	} {
		if _, err := Assemble(bad); err == nil {
			t.Errorf("Assemble(%q) accepted", bad)
		}
	}

	_, err = Assemble("cs_5_0\n\nnop\nbogus r0")
	if err == nil || !strings.Contains(err.Error(), "line 4") {
		t.Errorf("error = %v, want one naming line 4", err)
	}
}

func TestSplitArgs(t *testing.T) {
	got := splitArgs("r0.x, cb0[r1.x + 2].y, l(1, 2, 3, 4)")
	want := []string{"r0.x", "cb0[r1.x + 2].y", "l(1, 2, 3, 4)"}
	if len(got) != len(want) {
		t.Fatalf("splitArgs = %q", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("arg %d = %q, want %q", i, got[i], want[i])
		}
	}
	if n := len(splitArgs("")); n != 0 {
		t.Errorf("empty input gave %d args", n)
	}
}
