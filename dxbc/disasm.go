package dxbc

import (
	"fmt"
	"strings"
)

// String formats the declaration in assembler syntax.
func (d *Declaration) String() string {
	var sb strings.Builder
	sb.WriteString(d.Opcode.String())

	switch d.Opcode {
	case OpDclTemps:
		fmt.Fprintf(&sb, " %d", d.NumTemps)
		return sb.String()
	case OpDclIndexableTemp:
		fmt.Fprintf(&sb, " x%d[%d], %d", d.TempReg, d.NumTemps, d.TempComponents)
		return sb.String()
	case OpDclThreadGroup:
		fmt.Fprintf(&sb, " %d, %d, %d", d.GroupSize[0], d.GroupSize[1], d.GroupSize[2])
		return sb.String()
	case OpDclResource, OpDclUAVTyped:
		sb.WriteString("_" + d.Dim.String())
		if d.SampleCount > 0 {
			fmt.Fprintf(&sb, "(%d)", d.SampleCount)
		}
		fmt.Fprintf(&sb, " (%s,%s,%s,%s)", d.ResType[0], d.ResType[1], d.ResType[2], d.ResType[3])
	case OpDclUAVStructured:
		if d.HasCounter {
			sb.WriteString("_opc")
		}
	}

	sb.WriteByte(' ')
	sb.WriteString(d.Operand.String())

	switch d.Opcode {
	case OpDclResourceStructured, OpDclUAVStructured:
		fmt.Fprintf(&sb, ", %d", d.Stride)
	case OpDclTGSMRaw:
		fmt.Fprintf(&sb, ", %d", d.Count)
	case OpDclTGSMStructured:
		fmt.Fprintf(&sb, ", %d, %d", d.Stride, d.Count)
	case OpDclSampler:
		switch d.SamplerMode {
		case SamplerModeComparison:
			sb.WriteString(", mode_comparison")
		case SamplerModeMono:
			sb.WriteString(", mode_mono")
		default:
			sb.WriteString(", mode_default")
		}
	case OpDclInputSIV, OpDclInputPSSIV, OpDclOutputSIV, OpDclInputSGV, OpDclInputPSSGV, OpDclOutputSGV:
		fmt.Fprintf(&sb, ", %s", d.SystemValue)
	}
	if d.Space != 0 {
		fmt.Fprintf(&sb, ", space=%d", d.Space)
	}
	return sb.String()
}

// Disassemble renders the program as assembler text with one instruction
// per line, indented by control flow nesting.
func Disassemble(p *Program) string {
	var sb strings.Builder
	sb.WriteString(p.Profile())
	sb.WriteByte('\n')

	for i := range p.Declarations {
		sb.WriteString(p.Declarations[i].String())
		sb.WriteByte('\n')
	}

	if len(p.ImmediateConstants) > 0 {
		sb.WriteString("dcl_immediateConstantBuffer {")
		for i := 0; i+3 < len(p.ImmediateConstants); i += 4 {
			if i > 0 {
				sb.WriteByte(',')
			}
			fmt.Fprintf(&sb, " { 0x%08x, 0x%08x, 0x%08x, 0x%08x }", p.ImmediateConstants[i],
				p.ImmediateConstants[i+1], p.ImmediateConstants[i+2], p.ImmediateConstants[i+3])
		}
		sb.WriteString(" }\n")
	}

	indent := 0
	width := len(fmt.Sprint(len(p.Instructions)))
	for i := range p.Instructions {
		op := &p.Instructions[i]
		switch op.Opcode {
		case OpElse, OpEndIf, OpEndLoop, OpEndSwitch:
			if indent > 0 {
				indent--
			}
		}

		fmt.Fprintf(&sb, "%*d: %s%s\n", width, i, strings.Repeat("  ", indent), op.String())

		switch op.Opcode {
		case OpIf, OpElse, OpLoop, OpSwitch:
			indent++
		}
	}
	return sb.String()
}
