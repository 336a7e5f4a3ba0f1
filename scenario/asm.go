package scenario

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/gogpu/shaderdbg/dxbc"
)

// Assemble parses program text in the syntax produced by dxbc.Disassemble:
// a profile line, dcl_* declarations, then one instruction per line.
// Leading "N:" instruction numbers, indentation and // comments are
// ignored.
func Assemble(src string) (*dxbc.Program, error) {
	p := &dxbc.Program{}
	sawProfile := false

	for n, line := range strings.Split(src, "\n") {
		lineNo := n + 1
		if i := strings.Index(line, "//"); i >= 0 {
			line = line[:i]
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		if !sawProfile {
			if err := parseProfile(p, line); err != nil {
				return nil, fmt.Errorf("line %d: %w", lineNo, err)
			}
			sawProfile = true
			continue
		}

		line = stripInstructionNumber(line)
		switch {
		case strings.HasPrefix(line, "dcl_immediateConstantBuffer"):
			words, err := parseImmediateConstantBuffer(line)
			if err != nil {
				return nil, fmt.Errorf("line %d: %w", lineNo, err)
			}
			p.ImmediateConstants = append(p.ImmediateConstants, words...)
		case strings.HasPrefix(line, "dcl_"):
			d, err := ParseDeclaration(line)
			if err != nil {
				return nil, fmt.Errorf("line %d: %w", lineNo, err)
			}
			p.Declarations = append(p.Declarations, d)
		default:
			op, err := ParseInstruction(line)
			if err != nil {
				return nil, fmt.Errorf("line %d: %w", lineNo, err)
			}
			p.Instructions = append(p.Instructions, op)
		}
	}
	if !sawProfile {
		return nil, fmt.Errorf("missing profile line")
	}
	return p, nil
}

func parseProfile(p *dxbc.Program, line string) error {
	parts := strings.Split(line, "_")
	if len(parts) != 3 {
		return fmt.Errorf("malformed profile %q", line)
	}
	t, ok := dxbc.LookupShaderType(parts[0])
	if !ok {
		return fmt.Errorf("unknown shader type %q", parts[0])
	}
	major, err1 := strconv.ParseUint(parts[1], 10, 32)
	minor, err2 := strconv.ParseUint(parts[2], 10, 32)
	if err1 != nil || err2 != nil {
		return fmt.Errorf("malformed profile version %q", line)
	}
	p.Type, p.Major, p.Minor = t, uint32(major), uint32(minor)
	return nil
}

func stripInstructionNumber(line string) string {
	i := strings.IndexByte(line, ':')
	if i <= 0 {
		return line
	}
	if _, err := strconv.Atoi(line[:i]); err != nil {
		return line
	}
	return strings.TrimSpace(line[i+1:])
}

// splitArgs splits on top-level commas, ignoring commas inside brackets or
// parentheses.
func splitArgs(s string) []string {
	var args []string
	depth, start := 0, 0
	for i, r := range s {
		switch r {
		case '(', '[', '{':
			depth++
		case ')', ']', '}':
			depth--
		case ',':
			if depth == 0 {
				args = append(args, strings.TrimSpace(s[start:i]))
				start = i + 1
			}
		}
	}
	if rest := strings.TrimSpace(s[start:]); rest != "" || len(args) > 0 {
		args = append(args, rest)
	}
	return args
}

// ParseInstruction parses one instruction such as "add_sat r0.x, r1.x, l(1)".
func ParseInstruction(line string) (dxbc.Operation, error) {
	mnemonic, rest, _ := strings.Cut(strings.TrimSpace(line), " ")
	op, err := parseMnemonic(mnemonic)
	if err != nil {
		return op, err
	}
	for _, arg := range splitArgs(rest) {
		oper, err := ParseOperand(arg)
		if err != nil {
			return op, fmt.Errorf("%s: %w", mnemonic, err)
		}
		op.Operands = append(op.Operands, oper)
	}
	return op, nil
}

var infoSuffixes = []struct {
	suffix string
	ret    dxbc.ResinfoRetType
}{
	{"_uint", dxbc.RetTypeUInt},
	{"_rcpFloat", dxbc.RetTypeRcpFloat},
}

func parseMnemonic(s string) (dxbc.Operation, error) {
	var op dxbc.Operation
	orig := s

	if i := strings.Index(s, "_aoffimmi("); i >= 0 {
		j := strings.IndexByte(s[i:], ')')
		if j < 0 {
			return op, fmt.Errorf("unterminated offset in %q", orig)
		}
		parts := strings.Split(s[i+len("_aoffimmi("):i+j], ",")
		if len(parts) != 3 {
			return op, fmt.Errorf("offset in %q needs three components", orig)
		}
		for c, part := range parts {
			v, err := strconv.ParseInt(strings.TrimSpace(part), 10, 8)
			if err != nil {
				return op, fmt.Errorf("offset in %q: %w", orig, err)
			}
			op.TexelOffset[c] = int8(v)
		}
		s = s[:i] + s[i+j+1:]
	}

	if base, ok := strings.CutSuffix(s, "_sat"); ok {
		op.Saturate = true
		s = base
	}
	for _, info := range infoSuffixes {
		if base, ok := strings.CutSuffix(s, info.suffix); ok {
			if _, known := dxbc.LookupOpcode(base); known {
				op.InfoRetType = info.ret
				s = base
				break
			}
		}
	}

	if code, ok := dxbc.LookupOpcode(s); ok {
		op.Opcode = code
		return op, nil
	}
	if strings.HasPrefix(s, "sync_") {
		return parseSync(op, s, orig)
	}
	if base, ok := strings.CutSuffix(s, "_nz"); ok {
		if code, ok := dxbc.LookupOpcode(base); ok && code.TakesTestFlag() {
			op.Opcode, op.NonZero = code, true
			return op, nil
		}
	}
	if base, ok := strings.CutSuffix(s, "_z"); ok {
		if code, ok := dxbc.LookupOpcode(base); ok && code.TakesTestFlag() {
			op.Opcode = code
			return op, nil
		}
	}
	return op, fmt.Errorf("unknown instruction %q", orig)
}

// parseSync peels sync flag suffixes from the end of s, in the reverse of
// the order dxbc prints them.
func parseSync(op dxbc.Operation, s, orig string) (dxbc.Operation, error) {
	for i := len(dxbc.SyncSuffixes) - 1; i >= 0; i-- {
		f := dxbc.SyncSuffixes[i]
		if base, ok := strings.CutSuffix(s, f.Suffix); ok {
			op.SyncFlags |= f.Flag
			s = base
		}
	}
	if s != "sync" || op.SyncFlags == 0 {
		return op, fmt.Errorf("unknown instruction %q", orig)
	}
	op.Opcode = dxbc.OpSync
	return op, nil
}

// ParseOperand parses one operand such as "-|r1.xy|", "cb0[r1.x + 3].x",
// "l(1.0, 2, 3, 4)" or "d(1.5, 0)".
func ParseOperand(s string) (dxbc.Operand, error) {
	s = strings.TrimSpace(s)
	mod := dxbc.ModifierNone
	neg := strings.HasPrefix(s, "-")
	if neg {
		s = s[1:]
	}
	if strings.HasPrefix(s, "|") {
		if !strings.HasSuffix(s, "|") || len(s) < 2 {
			return dxbc.Operand{}, fmt.Errorf("unterminated absolute value %q", s)
		}
		s = s[1 : len(s)-1]
		mod = dxbc.ModifierAbs
		if neg {
			mod = dxbc.ModifierAbsNeg
		}
	} else if neg {
		mod = dxbc.ModifierNeg
	}

	var (
		op  dxbc.Operand
		err error
	)
	switch {
	case strings.HasPrefix(s, "l("):
		op, err = parseImmediate32(s)
	case strings.HasPrefix(s, "d("):
		op, err = parseImmediate64(s)
	default:
		op, err = parseRegister(s)
	}
	op.Modifier = mod
	return op, err
}

func immediateBody(s string) ([]string, error) {
	if !strings.HasSuffix(s, ")") {
		return nil, fmt.Errorf("unterminated immediate %q", s)
	}
	args := splitArgs(s[2 : len(s)-1])
	if len(args) == 0 || len(args) > 4 {
		return nil, fmt.Errorf("immediate %q needs one to four values", s)
	}
	return args, nil
}

func parseImmediate32(s string) (dxbc.Operand, error) {
	args, err := immediateBody(s)
	if err != nil {
		return dxbc.Operand{}, err
	}
	words := make([]uint32, len(args))
	for i, a := range args {
		if words[i], err = ParseWord(a); err != nil {
			return dxbc.Operand{}, err
		}
	}
	return dxbc.ImmediateU32(words...), nil
}

func parseImmediate64(s string) (dxbc.Operand, error) {
	args, err := immediateBody(s)
	if err != nil {
		return dxbc.Operand{}, err
	}
	if len(args) > 2 {
		return dxbc.Operand{}, fmt.Errorf("double immediate %q takes at most two values", s)
	}
	vals := make([]float64, len(args))
	for i, a := range args {
		if vals[i], err = strconv.ParseFloat(a, 64); err != nil {
			return dxbc.Operand{}, fmt.Errorf("double immediate: %w", err)
		}
	}
	return dxbc.ImmediateF64(vals...), nil
}

// ParseWord parses one 32-bit immediate. Hex and plain integers are taken
// as bit patterns (negative integers as two's complement); anything with a
// decimal point, exponent, inf or nan is a float.
func ParseWord(s string) (uint32, error) {
	s = strings.TrimSpace(s)
	lower := strings.ToLower(s)
	if strings.HasPrefix(lower, "0x") {
		v, err := strconv.ParseUint(lower[2:], 16, 32)
		return uint32(v), err
	}
	if strings.ContainsAny(lower, ".en") {
		f, err := strconv.ParseFloat(s, 32)
		if err != nil {
			return 0, fmt.Errorf("immediate %q: %w", s, err)
		}
		return math.Float32bits(float32(f)), nil
	}
	if strings.HasPrefix(s, "-") {
		v, err := strconv.ParseInt(s, 10, 32)
		return uint32(int32(v)), err
	}
	v, err := strconv.ParseUint(s, 10, 32)
	return uint32(v), err
}

func parseRegister(s string) (dxbc.Operand, error) {
	body, swz := s, ""
	if i := strings.LastIndexByte(s, '.'); i >= 0 && !strings.ContainsAny(s[i:], "]") {
		body, swz = s[:i], s[i+1:]
	}

	n := 0
	for n < len(body) && isLetter(body[n]) {
		n++
	}
	prefix := body[:n]
	t, ok := dxbc.LookupOperandType(prefix)
	if !ok {
		return dxbc.Operand{}, fmt.Errorf("unknown register %q", s)
	}
	op := dxbc.NewOperand(t)
	rest := body[n:]

	if m := leadingDigits(rest); m > 0 {
		v, _ := strconv.ParseUint(rest[:m], 10, 64)
		op.Indices = append(op.Indices, dxbc.RegIndex{Absolute: true, Index: v})
		rest = rest[m:]
	}
	for rest != "" {
		if rest[0] != '[' {
			return op, fmt.Errorf("unexpected %q in %q", rest, s)
		}
		end := matchingBracket(rest)
		if end < 0 {
			return op, fmt.Errorf("unterminated index in %q", s)
		}
		idx, err := parseIndex(rest[1:end])
		if err != nil {
			return op, fmt.Errorf("%q: %w", s, err)
		}
		op.Indices = append(op.Indices, idx)
		rest = rest[end+1:]
	}

	if swz != "" {
		comps, err := parseSwizzle(swz)
		if err != nil {
			return op, fmt.Errorf("%q: %w", s, err)
		}
		op = op.WithSwizzle(comps...)
	}
	return op, nil
}

func isLetter(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func leadingDigits(s string) int {
	n := 0
	for n < len(s) && s[n] >= '0' && s[n] <= '9' {
		n++
	}
	return n
}

func matchingBracket(s string) int {
	depth := 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '[':
			depth++
		case ']':
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}

// parseIndex parses "3", "r1.x" or "r1.x + 3".
func parseIndex(s string) (dxbc.RegIndex, error) {
	s = strings.TrimSpace(s)
	if v, err := strconv.ParseUint(s, 10, 64); err == nil {
		return dxbc.RegIndex{Absolute: true, Index: v}, nil
	}
	rel, off, hasOff := strings.Cut(s, "+")
	r, err := parseRegister(strings.TrimSpace(rel))
	if err != nil {
		return dxbc.RegIndex{}, err
	}
	idx := dxbc.RegIndex{Relative: &r}
	if hasOff {
		v, err := strconv.ParseUint(strings.TrimSpace(off), 10, 64)
		if err != nil {
			return dxbc.RegIndex{}, fmt.Errorf("index offset: %w", err)
		}
		idx.Absolute, idx.Index = true, v
	}
	return idx, nil
}

func parseSwizzle(s string) ([]uint8, error) {
	if len(s) == 0 || len(s) > 4 {
		return nil, fmt.Errorf("bad swizzle %q", s)
	}
	comps := make([]uint8, len(s))
	for i := 0; i < len(s); i++ {
		c := strings.IndexByte("xyzw", s[i])
		if c < 0 {
			c = strings.IndexByte("rgba", s[i])
		}
		if c < 0 {
			return nil, fmt.Errorf("bad swizzle %q", s)
		}
		comps[i] = uint8(c)
	}
	return comps, nil
}

func parseImmediateConstantBuffer(line string) ([]uint32, error) {
	open, end := strings.IndexByte(line, '{'), strings.LastIndexByte(line, '}')
	if open < 0 || end < open {
		return nil, fmt.Errorf("malformed immediate constant buffer")
	}
	var words []uint32
	for _, entry := range splitArgs(line[open+1 : end]) {
		entry = strings.TrimSpace(entry)
		if !strings.HasPrefix(entry, "{") || !strings.HasSuffix(entry, "}") {
			return nil, fmt.Errorf("immediate constant buffer entry %q is not braced", entry)
		}
		vals := splitArgs(entry[1 : len(entry)-1])
		if len(vals) != 4 {
			return nil, fmt.Errorf("immediate constant buffer entry %q needs four values", entry)
		}
		for _, v := range vals {
			w, err := ParseWord(v)
			if err != nil {
				return nil, err
			}
			words = append(words, w)
		}
	}
	return words, nil
}
