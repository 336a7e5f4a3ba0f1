// Command shaderdbg runs a shader debugging scenario and prints the trace.
//
// Usage:
//
//	shaderdbg [options] <scenario.yaml>
//
// Examples:
//
//	shaderdbg loop.yaml                  # Print the trace as text
//	shaderdbg -format yaml loop.yaml     # Print the trace as YAML
//	shaderdbg -expect loop.yaml          # Check the scenario's expect block
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"

	"github.com/gogpu/shaderdbg/debugger"
	"github.com/gogpu/shaderdbg/dxbc"
	"github.com/gogpu/shaderdbg/scenario"
)

var (
	output  = flag.String("o", "", "output file (default: stdout)")
	format  = flag.String("format", "text", "trace format: text or yaml")
	expect  = flag.Bool("expect", false, "check the scenario's expect block and exit non-zero on mismatch")
	quiet   = flag.Bool("q", false, "do not print the trace")
	verbose = flag.Int("v", 0, "log verbosity: 0 warnings, 1 debug, 2 per-instruction trace")
	version = flag.Bool("version", false, "print version")
)

const shaderdbgVersion = "0.1.0-dev"

func main() {
	flag.Usage = usage
	flag.Parse()

	if *version {
		fmt.Printf("shaderdbg version %s\n", shaderdbgVersion)
		return
	}

	level := zerolog.WarnLevel
	switch {
	case *verbose >= 2:
		level = zerolog.TraceLevel
	case *verbose == 1:
		level = zerolog.DebugLevel
	}
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr}).Level(level)

	args := flag.Args()
	if len(args) < 1 {
		fmt.Fprintln(os.Stderr, "Error: no scenario file specified")
		usage()
		os.Exit(1)
	}
	if *format != "text" && *format != "yaml" {
		fmt.Fprintf(os.Stderr, "Error: unknown format %q\n", *format)
		os.Exit(1)
	}

	s, err := scenario.Load(args[0])
	if err != nil {
		log.Fatal().Err(err).Msg("load scenario")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	res, err := s.Run(ctx, log.Logger)
	if err != nil {
		log.Fatal().Err(err).Msg("run scenario")
	}
	if res.Err != nil && !*expect {
		log.Error().Err(res.Err).Msg("debug session failed")
	}

	if !*quiet && res.Trace != nil {
		if err := writeTrace(s, res); err != nil {
			log.Fatal().Err(err).Msg("write trace")
		}
	}

	if *expect {
		if err := s.Verify(res); err != nil {
			fmt.Fprintf(os.Stderr, "FAIL %s\n%v\n", args[0], err)
			os.Exit(1)
		}
		fmt.Fprintf(os.Stderr, "ok   %s (%d steps)\n", args[0], steps(res.Trace))
	} else if res.Err != nil {
		os.Exit(1)
	}
}

func writeTrace(s *scenario.Scenario, res *scenario.Result) error {
	var w io.Writer = os.Stdout
	if *output != "" {
		f, err := os.Create(*output)
		if err != nil {
			return err
		}
		defer f.Close()
		w = f
	}
	doc := newTraceDoc(s, res)
	if *format == "yaml" {
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(doc); err != nil {
			return err
		}
		return enc.Close()
	}
	return doc.writeText(w)
}

func steps(tr *debugger.Trace) int {
	if tr == nil {
		return 0
	}
	return len(tr.States) - 1
}

// traceDoc is the printable form of a trace.
type traceDoc struct {
	Scenario string       `yaml:"scenario"`
	Profile  string       `yaml:"profile"`
	Finished bool         `yaml:"finished"`
	Inputs   []string     `yaml:"inputs,omitempty"`
	CBuffers []string     `yaml:"cbuffers,omitempty"`
	Steps    []stepDoc    `yaml:"steps"`
	Messages []messageDoc `yaml:"messages,omitempty"`
}

type stepDoc struct {
	Step        int         `yaml:"step"`
	PC          int         `yaml:"pc"`
	Instruction string      `yaml:"instruction,omitempty"`
	Flags       []string    `yaml:"flags,omitempty"`
	CallStack   []string    `yaml:"call_stack,omitempty"`
	Changes     []changeDoc `yaml:"changes,omitempty"`
}

type changeDoc struct {
	Before string `yaml:"before,omitempty"`
	After  string `yaml:"after"`
}

type messageDoc struct {
	Instruction int    `yaml:"pc"`
	Text        string `yaml:"text"`
}

func newTraceDoc(s *scenario.Scenario, res *scenario.Result) *traceDoc {
	p := s.Assembled()
	tr := res.Trace
	doc := &traceDoc{
		Scenario: s.Name,
		Profile:  p.Profile(),
		Finished: tr.Finished,
	}
	for _, v := range tr.Inputs {
		doc.Inputs = append(doc.Inputs, v.String())
	}
	for _, v := range tr.ConstantBlocks {
		doc.CBuffers = append(doc.CBuffers, v.String())
	}

	// Step i executed the instruction state i-1 pointed at.
	for i, st := range tr.States {
		sd := stepDoc{Step: st.StepIndex, PC: st.NextInstruction, CallStack: st.CallStack}
		if i > 0 {
			sd.PC = tr.States[i-1].NextInstruction
			if op := instruction(p, sd.PC); op != nil {
				sd.Instruction = op.String()
			}
		}
		if st.Flags.Has(debugger.EventSampleLoadGather) {
			sd.Flags = append(sd.Flags, "sample_load_gather")
		}
		if st.Flags.Has(debugger.EventGeneratedNanOrInf) {
			sd.Flags = append(sd.Flags, "nan_or_inf")
		}
		for _, c := range st.Changes {
			cd := changeDoc{After: c.After.String()}
			if c.Before.Name != "" {
				cd.Before = c.Before.String()
			}
			sd.Changes = append(sd.Changes, cd)
		}
		doc.Steps = append(doc.Steps, sd)
	}

	for _, m := range res.API.Messages() {
		doc.Messages = append(doc.Messages, messageDoc{Instruction: m.Instruction, Text: m.Text})
	}
	return doc
}

func instruction(p *dxbc.Program, pc int) *dxbc.Operation {
	if pc < 0 || pc >= len(p.Instructions) {
		return nil
	}
	return &p.Instructions[pc]
}

func (d *traceDoc) writeText(w io.Writer) error {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s (%s)\n", d.Scenario, d.Profile)
	for _, in := range d.Inputs {
		fmt.Fprintf(&sb, "  input %s\n", in)
	}
	for _, cb := range d.CBuffers {
		fmt.Fprintf(&sb, "  cbuffer %s\n", cb)
	}
	for _, st := range d.Steps {
		if st.Step == 0 {
			fmt.Fprintf(&sb, "step    0: initial state, next pc %d\n", st.PC)
		} else {
			fmt.Fprintf(&sb, "step %4d: %4d: %s", st.Step, st.PC, st.Instruction)
			if len(st.Flags) > 0 {
				fmt.Fprintf(&sb, "  [%s]", strings.Join(st.Flags, ", "))
			}
			sb.WriteByte('\n')
		}
		if len(st.CallStack) > 0 {
			fmt.Fprintf(&sb, "           call stack: %s\n", strings.Join(st.CallStack, " > "))
		}
		for _, c := range st.Changes {
			if c.Before != "" {
				fmt.Fprintf(&sb, "           %s  (was %s)\n", c.After, c.Before)
			} else {
				fmt.Fprintf(&sb, "           %s\n", c.After)
			}
		}
	}
	for _, m := range d.Messages {
		fmt.Fprintf(&sb, "message at %d: %s\n", m.Instruction, m.Text)
	}
	if d.Finished {
		sb.WriteString("finished\n")
	} else {
		sb.WriteString("not finished\n")
	}
	_, err := io.WriteString(w, sb.String())
	return err
}

func usage() {
	fmt.Fprintf(os.Stderr, "Usage: shaderdbg [options] <scenario.yaml>\n\n")
	fmt.Fprintf(os.Stderr, "Options:\n")
	flag.PrintDefaults()
	fmt.Fprintf(os.Stderr, "\nExamples:\n")
	fmt.Fprintf(os.Stderr, "  shaderdbg loop.yaml               Print the trace as text\n")
	fmt.Fprintf(os.Stderr, "  shaderdbg -format yaml loop.yaml  Print the trace as YAML\n")
	fmt.Fprintf(os.Stderr, "  shaderdbg -expect -q loop.yaml    Check expectations only\n")
}
