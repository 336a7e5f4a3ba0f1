package scenario

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"

	"github.com/gogpu/shaderdbg"
	"github.com/gogpu/shaderdbg/binding"
	"github.com/gogpu/shaderdbg/debugger"
	"github.com/gogpu/shaderdbg/dxbc"
	"github.com/gogpu/shaderdbg/refapi"
	"github.com/gogpu/shaderdbg/value"
)

// Words is a list of 32-bit values. Each entry may be written as a decimal
// integer, a hex bit pattern or a float; a bare scalar is a one-entry list.
type Words []uint32

// UnmarshalYAML implements yaml.Unmarshaler.
func (w *Words) UnmarshalYAML(n *yaml.Node) error {
	nodes := []*yaml.Node{n}
	switch n.Kind {
	case yaml.ScalarNode:
		if n.Tag == "!!null" {
			*w = nil
			return nil
		}
	case yaml.SequenceNode:
		nodes = n.Content
	default:
		return fmt.Errorf("line %d: expected a value or a list of values", n.Line)
	}
	out := make(Words, 0, len(nodes))
	for _, c := range nodes {
		if c.Kind != yaml.ScalarNode {
			return fmt.Errorf("line %d: nested lists are not words", c.Line)
		}
		v, err := ParseWord(c.Value)
		if err != nil {
			return fmt.Errorf("line %d: %w", c.Line, err)
		}
		out = append(out, v)
	}
	*w = out
	return nil
}

// MarshalYAML implements yaml.Marshaler, writing hex bit patterns.
func (w Words) MarshalYAML() (any, error) {
	n := &yaml.Node{Kind: yaml.SequenceNode, Style: yaml.FlowStyle}
	for _, v := range w {
		n.Content = append(n.Content, &yaml.Node{Kind: yaml.ScalarNode, Value: fmt.Sprintf("0x%08x", v)})
	}
	return n, nil
}

// Bytes returns the words in little-endian order.
func (w Words) Bytes() []byte {
	b := make([]byte, len(w)*4)
	for i, v := range w {
		binary.LittleEndian.PutUint32(b[i*4:], v)
	}
	return b
}

// Variable returns a float4 register holding the words.
func (w Words) Variable(name string) value.ShaderVariable {
	v := value.NewVariable(name, value.TypeFloat, 1, 4)
	for i, word := range w {
		v.SetU32(i, word)
	}
	return v
}

// Scenario is one debug session and its expected outcome.
type Scenario struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description,omitempty"`

	Program         ProgramSpec  `yaml:"program"`
	Target          TargetSpec   `yaml:"target,omitempty"`
	ConstantBuffers []BufferSpec `yaml:"constant_buffers,omitempty"`
	Resources       ResourceSpec `yaml:"resources,omitempty"`
	Options         OptionSpec   `yaml:"options,omitempty"`
	Expect          Expect       `yaml:"expect,omitempty"`

	program *dxbc.Program
}

// ProgramSpec is the program listing plus its reflection data.
type ProgramSpec struct {
	Code      string          `yaml:"code"`
	Functions []FunctionSpec  `yaml:"functions,omitempty"`
	Inputs    []SignatureSpec `yaml:"inputs,omitempty"`
	Outputs   []SignatureSpec `yaml:"outputs,omitempty"`
	CBuffers  []CBufferSpec   `yaml:"cbuffers,omitempty"`
}

// FunctionSpec names a subroutine and the temporaries its arguments land
// in.
type FunctionSpec struct {
	Label  uint32   `yaml:"label"`
	Name   string   `yaml:"name"`
	Params []uint32 `yaml:"params,omitempty"`
}

// SignatureSpec is one input or output signature element.
type SignatureSpec struct {
	Semantic    string `yaml:"semantic"`
	Index       uint32 `yaml:"index,omitempty"`
	Register    int32  `yaml:"register"`
	SystemValue string `yaml:"sv,omitempty"`
	Type        string `yaml:"type,omitempty"`
	Mask        string `yaml:"mask,omitempty"`
}

// CBufferSpec is a constant buffer layout.
type CBufferSpec struct {
	Name       string         `yaml:"name"`
	Identifier *uint32        `yaml:"id,omitempty"`
	Space      uint32         `yaml:"space,omitempty"`
	Register   uint32         `yaml:"register"`
	Size       uint32         `yaml:"size"`
	Variables  []VariableSpec `yaml:"variables,omitempty"`
}

// VariableSpec is one constant buffer member.
type VariableSpec struct {
	Name     string         `yaml:"name"`
	Offset   uint32         `yaml:"offset"`
	Class    string         `yaml:"class,omitempty"`
	Type     string         `yaml:"type,omitempty"`
	Rows     uint32         `yaml:"rows,omitempty"`
	Cols     uint32         `yaml:"cols,omitempty"`
	Elements uint32         `yaml:"elements,omitempty"`
	Members  []VariableSpec `yaml:"members,omitempty"`
}

// TargetSpec selects the invocation to debug.
type TargetSpec struct {
	GroupID  [3]uint32 `yaml:"group_id,omitempty"`
	ThreadID [3]uint32 `yaml:"thread_id,omitempty"`

	QuadLane  int     `yaml:"quad_lane,omitempty"`
	Inputs    []Words `yaml:"inputs,omitempty"`
	DDX       []Words `yaml:"ddx,omitempty"`
	DDY       []Words `yaml:"ddy,omitempty"`
	Coverage  uint32  `yaml:"coverage,omitempty"`
	Primitive uint32  `yaml:"primitive_id,omitempty"`
	FrontFace bool    `yaml:"front_face,omitempty"`
}

// BufferSpec is the contents of one constant buffer slot.
type BufferSpec struct {
	Space     uint32         `yaml:"space,omitempty"`
	Register  uint32         `yaml:"register"`
	Data      Words          `yaml:"data,omitempty"`
	Constants []ConstantSpec `yaml:"constants,omitempty"`
}

// ResourceSpec lists every bound resource and sampler.
type ResourceSpec struct {
	SRVs     []ResourceEntry `yaml:"srvs,omitempty"`
	UAVs     []ResourceEntry `yaml:"uavs,omitempty"`
	Samplers []SamplerEntry  `yaml:"samplers,omitempty"`
}

// FormatSpec is a typed element format.
type FormatSpec struct {
	Bytes int    `yaml:"bytes"`
	Comps int    `yaml:"comps"`
	Kind  string `yaml:"kind"`
}

// ResourceEntry is one buffer or texture.
type ResourceEntry struct {
	Space    uint32 `yaml:"space,omitempty"`
	Register uint32 `yaml:"register"`

	// Kind is buffer, raw, structured, texture2d, texture2darray or
	// texture3d.
	Kind    string     `yaml:"kind"`
	Format  FormatSpec `yaml:"format,omitempty"`
	Stride  int        `yaml:"stride,omitempty"`
	Data    Words      `yaml:"data,omitempty"`
	Counter uint32     `yaml:"counter,omitempty"`

	Width  uint32  `yaml:"width,omitempty"`
	Height uint32  `yaml:"height,omitempty"`
	Depth  uint32  `yaml:"depth,omitempty"`
	Mips   []Words `yaml:"mips,omitempty"`
}

// SamplerEntry is one sampler slot.
type SamplerEntry struct {
	Space    uint32     `yaml:"space,omitempty"`
	Register uint32     `yaml:"register"`
	Filter   string     `yaml:"filter,omitempty"`
	Address  string     `yaml:"address,omitempty"`
	Border   [4]float32 `yaml:"border,omitempty"`
	Compare  string     `yaml:"compare,omitempty"`
}

// OptionSpec adjusts the session configuration.
type OptionSpec struct {
	MaxSteps    int    `yaml:"max_steps,omitempty"`
	WarnSteps   int    `yaml:"warn_steps,omitempty"`
	ShaderModel string `yaml:"shader_model,omitempty"`
	NoValidate  bool   `yaml:"no_validate,omitempty"`
}

// Expect is the outcome a scenario must produce. Unset fields are not
// checked.
type Expect struct {
	Finished  *bool            `yaml:"finished,omitempty"`
	Steps     *int             `yaml:"steps,omitempty"`
	Registers map[string]Words `yaml:"registers,omitempty"`
	UAVs      []UAVExpect      `yaml:"uavs,omitempty"`
	Messages  *int             `yaml:"messages,omitempty"`
	Flags     []string         `yaml:"flags,omitempty"`
	Error     string           `yaml:"error,omitempty"`
}

// UAVExpect checks a byte range of a UAV and optionally its counter.
type UAVExpect struct {
	Space    uint32  `yaml:"space,omitempty"`
	Register uint32  `yaml:"register"`
	Offset   uint32  `yaml:"offset,omitempty"`
	Words    Words   `yaml:"words,omitempty"`
	Counter  *uint32 `yaml:"counter,omitempty"`
}

// Load reads and parses a scenario file.
func Load(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	s, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return s, nil
}

// Parse decodes a scenario and assembles its program.
func Parse(data []byte) (*Scenario, error) {
	var s Scenario
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, err
	}
	p, err := Assemble(s.Program.Code)
	if err != nil {
		return nil, fmt.Errorf("assemble: %w", err)
	}
	if p.Reflection, err = s.Program.reflection(); err != nil {
		return nil, err
	}
	for _, f := range s.Program.Functions {
		p.Functions = append(p.Functions, dxbc.Function{Label: f.Label, Name: f.Name, Params: f.Params})
	}
	for i := range s.ConstantBuffers {
		if _, err := s.ConstantBuffers[i].Bytes(); err != nil {
			return nil, err
		}
	}
	s.program = p
	return &s, nil
}

// Assembled returns the assembled program.
func (s *Scenario) Assembled() *dxbc.Program {
	return s.program
}

var compTypes = map[string]dxbc.CompType{
	"":       dxbc.CompFloat,
	"float":  dxbc.CompFloat,
	"uint":   dxbc.CompUInt,
	"int":    dxbc.CompSInt,
	"double": dxbc.CompDouble,
	"bool":   dxbc.CompBool,
}

var variableClasses = map[string]dxbc.VariableClass{
	"":               dxbc.ClassScalar,
	"scalar":         dxbc.ClassScalar,
	"vector":         dxbc.ClassVector,
	"matrix_rows":    dxbc.ClassMatrixRows,
	"matrix_columns": dxbc.ClassMatrixColumns,
	"struct":         dxbc.ClassStruct,
}

func (ps *ProgramSpec) reflection() (*dxbc.Reflection, error) {
	r := &dxbc.Reflection{}
	var err error
	if r.InputSig, err = signature(ps.Inputs); err != nil {
		return nil, fmt.Errorf("inputs: %w", err)
	}
	if r.OutputSig, err = signature(ps.Outputs); err != nil {
		return nil, fmt.Errorf("outputs: %w", err)
	}
	for _, cb := range ps.CBuffers {
		vars, err := variables(cb.Variables)
		if err != nil {
			return nil, fmt.Errorf("cbuffer %s: %w", cb.Name, err)
		}
		id := cb.Register
		if cb.Identifier != nil {
			id = *cb.Identifier
		}
		r.CBuffers = append(r.CBuffers, dxbc.CBuffer{
			Name:       cb.Name,
			Identifier: id,
			Space:      cb.Space,
			Register:   cb.Register,
			BindCount:  1,
			Size:       cb.Size,
			Variables:  vars,
		})
	}
	return r, nil
}

func signature(specs []SignatureSpec) ([]dxbc.SignatureParameter, error) {
	var sig []dxbc.SignatureParameter
	for _, s := range specs {
		ct, ok := compTypes[s.Type]
		if !ok {
			return nil, fmt.Errorf("%s: unknown component type %q", s.Semantic, s.Type)
		}
		sv := dxbc.SVUndefined
		if s.SystemValue != "" {
			if sv, ok = dxbc.LookupSystemValue(s.SystemValue); !ok {
				return nil, fmt.Errorf("%s: unknown system value %q", s.Semantic, s.SystemValue)
			}
		}
		mask := s.Mask
		if mask == "" {
			mask = "xyzw"
		}
		var bits uint8
		for _, c := range mask {
			i := strings.IndexRune("xyzw", c)
			if i < 0 {
				return nil, fmt.Errorf("%s: bad mask %q", s.Semantic, mask)
			}
			bits |= 1 << i
		}
		sig = append(sig, dxbc.SignatureParameter{
			SemanticName:   s.Semantic,
			SemanticIndex:  s.Index,
			Register:       s.Register,
			SystemValue:    sv,
			CompType:       ct,
			RegChannelMask: bits,
		})
	}
	return sig, nil
}

func variables(specs []VariableSpec) ([]dxbc.CBufferVariable, error) {
	var vars []dxbc.CBufferVariable
	for _, v := range specs {
		class, ok := variableClasses[v.Class]
		if !ok {
			return nil, fmt.Errorf("%s: unknown class %q", v.Name, v.Class)
		}
		base, ok := compTypes[v.Type]
		if !ok {
			return nil, fmt.Errorf("%s: unknown type %q", v.Name, v.Type)
		}
		members, err := variables(v.Members)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", v.Name, err)
		}
		rows, cols := v.Rows, v.Cols
		if rows == 0 {
			rows = 1
		}
		if cols == 0 {
			cols = 1
		}
		vars = append(vars, dxbc.CBufferVariable{
			Name:   v.Name,
			Offset: v.Offset,
			Type: dxbc.VariableType{
				Name:     v.Type,
				Class:    class,
				Base:     base,
				Rows:     rows,
				Cols:     cols,
				Elements: v.Elements,
				Members:  members,
			},
		})
	}
	return vars, nil
}

// Result is the outcome of running a scenario.
type Result struct {
	Trace *debugger.Trace
	API   *refapi.API
	Err   error
}

// SessionOptions returns the session options the scenario asks for.
func (s *Scenario) SessionOptions(log zerolog.Logger) (shaderdbg.Options, error) {
	opts := shaderdbg.DefaultOptions()
	opts.Config.Logger = log
	if s.Options.MaxSteps != 0 {
		opts.Config.MaxSteps = s.Options.MaxSteps
	}
	if s.Options.WarnSteps != 0 {
		opts.Config.StepWarnThreshold = s.Options.WarnSteps
	}
	opts.Validate = !s.Options.NoValidate
	if s.Options.ShaderModel != "" {
		sm, err := binding.ParseShaderModel(s.Options.ShaderModel)
		if err != nil {
			return opts, err
		}
		opts.ShaderModel = &sm
	}
	return opts, nil
}

// Host builds a reference host with the scenario's resources bound.
func (s *Scenario) Host(log zerolog.Logger) (*refapi.API, error) {
	api := refapi.New(log)
	for _, e := range s.Resources.SRVs {
		r, err := e.resource()
		if err != nil {
			return nil, fmt.Errorf("srv t%d: %w", e.Register, err)
		}
		api.BindSRV(binding.Slot{Space: e.Space, Register: e.Register}, r)
	}
	for _, e := range s.Resources.UAVs {
		r, err := e.resource()
		if err != nil {
			return nil, fmt.Errorf("uav u%d: %w", e.Register, err)
		}
		api.BindUAV(binding.Slot{Space: e.Space, Register: e.Register}, r)
	}
	for _, e := range s.Resources.Samplers {
		smp, err := e.sampler()
		if err != nil {
			return nil, fmt.Errorf("sampler s%d: %w", e.Register, err)
		}
		api.BindSampler(binding.Slot{Space: e.Space, Register: e.Register}, smp)
	}
	return api, nil
}

func (f FormatSpec) format() (value.TexelFormat, error) {
	tf := value.TexelFormat{ByteWidth: f.Bytes, NumComps: f.Comps}
	if tf.ByteWidth == 0 {
		tf.ByteWidth = 4
	}
	if tf.NumComps == 0 {
		tf.NumComps = 1
	}
	for k := value.KindFloat; k <= value.KindSInt; k++ {
		if k.String() == f.Kind || (f.Kind == "" && k == value.KindFloat) {
			tf.Kind = k
			return tf, tf.Validate()
		}
	}
	return tf, fmt.Errorf("unknown component kind %q", f.Kind)
}

func (e *ResourceEntry) resource() (*refapi.Resource, error) {
	var r *refapi.Resource
	switch e.Kind {
	case "raw":
		r = refapi.RawBuffer(e.Data.Bytes())
	case "structured":
		if e.Stride <= 0 {
			return nil, fmt.Errorf("structured buffer needs a stride")
		}
		r = refapi.StructuredBuffer(e.Stride, e.Data.Bytes())
	case "buffer", "texture2d", "texture2darray", "texture3d":
		f, err := e.Format.format()
		if err != nil {
			return nil, err
		}
		levels := make([][]byte, len(e.Mips))
		for i, m := range e.Mips {
			levels[i] = m.Bytes()
		}
		switch e.Kind {
		case "buffer":
			r = refapi.Buffer(f, e.Data.Bytes())
		case "texture2d":
			r = refapi.Texture2D(f, e.Width, e.Height, levels...)
		case "texture2darray":
			r = refapi.Texture2DArray(f, e.Width, e.Height, e.Depth, levels...)
		default:
			r = refapi.Texture3D(f, e.Width, e.Height, e.Depth, levels...)
		}
	default:
		return nil, fmt.Errorf("unknown resource kind %q", e.Kind)
	}
	r.HiddenCounter = e.Counter
	return r, nil
}

var (
	filters = map[string]refapi.Filter{
		"":       refapi.FilterPoint,
		"point":  refapi.FilterPoint,
		"linear": refapi.FilterLinear,
	}
	addressModes = map[string]refapi.AddressMode{
		"":       refapi.AddressClamp,
		"clamp":  refapi.AddressClamp,
		"wrap":   refapi.AddressWrap,
		"mirror": refapi.AddressMirror,
		"border": refapi.AddressBorder,
	}
	compareFuncs = map[string]refapi.CompareFunc{
		"":              refapi.CompareNever,
		"never":         refapi.CompareNever,
		"less":          refapi.CompareLess,
		"equal":         refapi.CompareEqual,
		"less_equal":    refapi.CompareLessEqual,
		"greater":       refapi.CompareGreater,
		"not_equal":     refapi.CompareNotEqual,
		"greater_equal": refapi.CompareGreaterEqual,
		"always":        refapi.CompareAlways,
	}
)

func (e *SamplerEntry) sampler() (refapi.Sampler, error) {
	filter, ok := filters[e.Filter]
	if !ok {
		return refapi.Sampler{}, fmt.Errorf("unknown filter %q", e.Filter)
	}
	addr, ok := addressModes[e.Address]
	if !ok {
		return refapi.Sampler{}, fmt.Errorf("unknown address mode %q", e.Address)
	}
	cmp, ok := compareFuncs[e.Compare]
	if !ok {
		return refapi.Sampler{}, fmt.Errorf("unknown compare function %q", e.Compare)
	}
	return refapi.Sampler{
		Filter:  filter,
		Address: [3]refapi.AddressMode{addr, addr, addr},
		Border:  e.Border,
		Compare: cmp,
	}, nil
}

func (t *TargetSpec) semantics() debugger.Semantics {
	return debugger.Semantics{
		GroupID:     t.GroupID,
		ThreadID:    t.ThreadID,
		Coverage:    t.Coverage,
		PrimitiveID: t.Primitive,
		IsFrontFace: t.FrontFace,
	}
}

func registers(prefix string, ws []Words) []value.ShaderVariable {
	vars := make([]value.ShaderVariable, len(ws))
	for i, w := range ws {
		vars[i] = w.Variable(fmt.Sprintf("%s%d", prefix, i))
	}
	return vars
}

// Run debugs the scenario's invocation. Session errors are reported in
// Result.Err; only setup failures are returned as an error.
func (s *Scenario) Run(ctx context.Context, log zerolog.Logger) (*Result, error) {
	opts, err := s.SessionOptions(log)
	if err != nil {
		return nil, err
	}
	api, err := s.Host(log)
	if err != nil {
		return nil, err
	}
	in := shaderdbg.Inputs{ConstantBuffers: make(map[binding.Slot][]byte)}
	for i := range s.ConstantBuffers {
		cb := &s.ConstantBuffers[i]
		data, err := cb.Bytes()
		if err != nil {
			return nil, err
		}
		in.ConstantBuffers[binding.Slot{Space: cb.Space, Register: cb.Register}] = data
	}

	res := &Result{API: api}
	p := s.program
	switch p.Type {
	case dxbc.ShaderCompute:
		res.Trace, res.Err = shaderdbg.DebugThread(ctx, p, api, s.Target.GroupID, s.Target.ThreadID, in, opts)
	case dxbc.ShaderPixel:
		res.Trace, res.Err = shaderdbg.DebugPixel(ctx, p, api, shaderdbg.Pixel{
			Inputs:    registers("v", s.Target.Inputs),
			DDX:       registers("ddx", s.Target.DDX),
			DDY:       registers("ddy", s.Target.DDY),
			QuadLane:  s.Target.QuadLane,
			Semantics: s.Target.semantics(),
		}, in, opts)
	case dxbc.ShaderVertex:
		res.Trace, res.Err = shaderdbg.DebugVertex(ctx, p, api,
			registers("v", s.Target.Inputs), s.Target.semantics(), in, opts)
	default:
		return nil, fmt.Errorf("%s shaders are not supported", p.Type)
	}
	return res, nil
}

var flagNames = map[string]debugger.EventFlags{
	"sample_load_gather": debugger.EventSampleLoadGather,
	"nan_or_inf":         debugger.EventGeneratedNanOrInf,
}

// Verify checks res against the scenario's expectations and returns every
// mismatch joined into one error.
func (s *Scenario) Verify(res *Result) error {
	e := &s.Expect
	var errs []error
	fail := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf(format, args...))
	}

	if e.Error != "" {
		if res.Err == nil || !strings.Contains(res.Err.Error(), e.Error) {
			fail("error = %v, want one containing %q", res.Err, e.Error)
		}
	} else if res.Err != nil {
		fail("unexpected error: %w", res.Err)
	}
	if res.Trace == nil {
		return errors.Join(errs...)
	}
	tr := res.Trace

	if e.Finished != nil {
		if tr.Finished != *e.Finished {
			fail("finished = %v, want %v", tr.Finished, *e.Finished)
		}
	}
	if e.Steps != nil && len(tr.States)-1 != *e.Steps {
		fail("steps = %d, want %d", len(tr.States)-1, *e.Steps)
	}

	vals := tr.Values()
	for name, want := range e.Registers {
		got, ok := vals[name]
		if !ok {
			fail("register %s not in trace", name)
			continue
		}
		for i, w := range want {
			if g := got.U32(i); g != w {
				fail("%s[%d] = 0x%08x (%v), want 0x%08x", name, i, g, got.F32(i), w)
			}
		}
	}

	for _, u := range e.UAVs {
		slot := binding.Slot{Space: u.Space, Register: u.Register}
		r := res.API.UAV(slot)
		if r == nil {
			fail("uav %s not bound", slot)
			continue
		}
		for i, w := range u.Words {
			off := int(u.Offset) + i*4
			if off+4 > len(r.Data) {
				fail("uav %s offset %d past end", slot, off)
				break
			}
			if g := binary.LittleEndian.Uint32(r.Data[off:]); g != w {
				fail("uav %s @%d = 0x%08x, want 0x%08x", slot, off, g, w)
			}
		}
		if u.Counter != nil {
			if g := res.API.Counter(slot); g != *u.Counter {
				fail("uav %s counter = %d, want %d", slot, g, *u.Counter)
			}
		}
	}

	if e.Messages != nil && len(res.API.Messages()) != *e.Messages {
		fail("%d debug messages, want %d: %v", len(res.API.Messages()), *e.Messages, res.API.Messages())
	}

	var seen debugger.EventFlags
	for i := range tr.States {
		seen |= tr.States[i].Flags
	}
	for _, name := range e.Flags {
		f, ok := flagNames[name]
		if !ok {
			fail("unknown flag %q", name)
			continue
		}
		if !seen.Has(f) {
			fail("flag %s never raised", name)
		}
	}
	return errors.Join(errs...)
}
