package scenario

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/gogpu/shaderdbg/dxbc"
)

var samplerModes = map[string]dxbc.SamplerMode{
	"mode_default":    dxbc.SamplerModeDefault,
	"mode_comparison": dxbc.SamplerModeComparison,
	"mode_mono":       dxbc.SamplerModeMono,
}

// ParseDeclaration parses one dcl_* line.
func ParseDeclaration(line string) (dxbc.Declaration, error) {
	var d dxbc.Declaration
	head, rest, _ := strings.Cut(strings.TrimSpace(line), " ")
	rest = strings.TrimSpace(rest)

	if err := parseDeclarationHead(&d, head); err != nil {
		return d, err
	}

	switch d.Opcode {
	case dxbc.OpDclTemps:
		n, err := strconv.ParseUint(rest, 10, 32)
		if err != nil {
			return d, fmt.Errorf("dcl_temps: %w", err)
		}
		d.NumTemps = uint32(n)
		return d, nil

	case dxbc.OpDclIndexableTemp:
		return d, parseIndexableTemp(&d, rest)

	case dxbc.OpDclThreadGroup:
		args := splitArgs(rest)
		if len(args) != 3 {
			return d, fmt.Errorf("dcl_thread_group needs three sizes")
		}
		for i, a := range args {
			n, err := strconv.ParseUint(a, 10, 32)
			if err != nil {
				return d, fmt.Errorf("dcl_thread_group: %w", err)
			}
			d.GroupSize[i] = uint32(n)
		}
		return d, nil

	case dxbc.OpDclResource, dxbc.OpDclUAVTyped:
		types, operand, ok := strings.Cut(rest, ")")
		if !ok || !strings.HasPrefix(types, "(") {
			return d, fmt.Errorf("%s: missing return types", head)
		}
		parts := strings.Split(types[1:], ",")
		if len(parts) != 4 {
			return d, fmt.Errorf("%s: need four return types", head)
		}
		for i, p := range parts {
			rt, ok := dxbc.LookupReturnType(strings.TrimSpace(p))
			if !ok {
				return d, fmt.Errorf("%s: unknown return type %q", head, p)
			}
			d.ResType[i] = rt
		}
		rest = strings.TrimSpace(operand)
	}

	args := splitArgs(rest)
	if len(args) == 0 {
		return d, nil
	}
	operand, err := ParseOperand(args[0])
	if err != nil {
		return d, fmt.Errorf("%s: %w", head, err)
	}
	d.Operand = operand

	extra := args[1:]
	if n := len(extra); n > 0 {
		if v, ok := strings.CutPrefix(extra[n-1], "space="); ok {
			space, err := strconv.ParseUint(v, 10, 32)
			if err != nil {
				return d, fmt.Errorf("%s: %w", head, err)
			}
			d.Space = uint32(space)
			extra = extra[:n-1]
		}
	}
	return d, parseDeclarationTail(&d, head, extra)
}

// parseDeclarationHead resolves the opcode, splitting the dimension and
// sample count off typed resource declarations.
func parseDeclarationHead(d *dxbc.Declaration, head string) error {
	if base, ok := strings.CutSuffix(head, "_opc"); ok && base == dxbc.OpDclUAVStructured.String() {
		d.Opcode, d.HasCounter = dxbc.OpDclUAVStructured, true
		return nil
	}
	if code, ok := dxbc.LookupOpcode(head); ok {
		d.Opcode = code
		return nil
	}

	for _, code := range []dxbc.Opcode{dxbc.OpDclResource, dxbc.OpDclUAVTyped} {
		dim, ok := strings.CutPrefix(head, code.String()+"_")
		if !ok {
			continue
		}
		if open := strings.IndexByte(dim, '('); open >= 0 {
			if !strings.HasSuffix(dim, ")") {
				return fmt.Errorf("%s: unterminated sample count", head)
			}
			n, err := strconv.ParseUint(dim[open+1:len(dim)-1], 10, 32)
			if err != nil {
				return fmt.Errorf("%s: %w", head, err)
			}
			d.SampleCount = uint32(n)
			dim = dim[:open]
		}
		rd, ok := dxbc.LookupDimension(dim)
		if !ok {
			return fmt.Errorf("%s: unknown dimension %q", head, dim)
		}
		d.Opcode, d.Dim = code, rd
		return nil
	}
	return fmt.Errorf("unknown declaration %q", head)
}

func parseIndexableTemp(d *dxbc.Declaration, rest string) error {
	args := splitArgs(rest)
	if len(args) != 2 {
		return fmt.Errorf("dcl_indexable_temp needs a register and a component count")
	}
	reg, err := ParseOperand(args[0])
	if err != nil {
		return fmt.Errorf("dcl_indexable_temp: %w", err)
	}
	if reg.Type != dxbc.OperandIndexableTemp || len(reg.Indices) != 2 {
		return fmt.Errorf("dcl_indexable_temp: expected x#[N], got %q", args[0])
	}
	comps, err := strconv.ParseUint(args[1], 10, 32)
	if err != nil {
		return fmt.Errorf("dcl_indexable_temp: %w", err)
	}
	d.TempReg = uint32(reg.Indices[0].Index)
	d.NumTemps = uint32(reg.Indices[1].Index)
	d.TempComponents = uint32(comps)
	return nil
}

func parseDeclarationTail(d *dxbc.Declaration, head string, extra []string) error {
	uint32At := func(i int) (uint32, error) {
		if i >= len(extra) {
			return 0, fmt.Errorf("%s: missing argument %d", head, i+2)
		}
		n, err := strconv.ParseUint(extra[i], 10, 32)
		if err != nil {
			return 0, fmt.Errorf("%s: %w", head, err)
		}
		return uint32(n), nil
	}

	var err error
	switch d.Opcode {
	case dxbc.OpDclResourceStructured, dxbc.OpDclUAVStructured:
		d.Stride, err = uint32At(0)
	case dxbc.OpDclTGSMRaw:
		d.Count, err = uint32At(0)
	case dxbc.OpDclTGSMStructured:
		if d.Stride, err = uint32At(0); err == nil {
			d.Count, err = uint32At(1)
		}
	case dxbc.OpDclSampler:
		if len(extra) > 0 {
			mode, ok := samplerModes[extra[0]]
			if !ok {
				return fmt.Errorf("%s: unknown sampler mode %q", head, extra[0])
			}
			d.SamplerMode = mode
		}
	case dxbc.OpDclInputSIV, dxbc.OpDclInputPSSIV, dxbc.OpDclOutputSIV,
		dxbc.OpDclInputSGV, dxbc.OpDclInputPSSGV, dxbc.OpDclOutputSGV:
		if len(extra) == 0 {
			return fmt.Errorf("%s: missing system value", head)
		}
		sv, ok := dxbc.LookupSystemValue(extra[0])
		if !ok {
			return fmt.Errorf("%s: unknown system value %q", head, extra[0])
		}
		d.SystemValue = sv
	}
	return err
}
