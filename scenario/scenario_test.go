package scenario_test

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"golang.org/x/exp/slices"

	"github.com/gogpu/shaderdbg/dxbc"
	"github.com/gogpu/shaderdbg/scenario"
)

// ---------------------------------------------------------------------------
// Test Runner
// ---------------------------------------------------------------------------

type scenarioFile struct {
	name string
	s    *scenario.Scenario
}

// TestScenarios runs every scenario in testdata and checks its expect block.
func TestScenarios(t *testing.T) {
	files := loadScenarios(t, "testdata")
	if len(files) == 0 {
		t.Fatal("no scenarios found in testdata/")
	}

	for _, f := range files {
		t.Run(f.name, func(t *testing.T) {
			res, err := f.s.Run(context.Background(), zerolog.New(zerolog.NewTestWriter(t)).Level(zerolog.WarnLevel))
			if err != nil {
				t.Fatalf("run: %v", err)
			}
			if err := f.s.Verify(res); err != nil {
				t.Errorf("%s:\n%v", f.s.Name, err)
			}
		})
	}
}

// TestRoundTrip checks that disassembling an assembled program and
// assembling the text again reproduces the same listing.
func TestRoundTrip(t *testing.T) {
	for _, f := range loadScenarios(t, "testdata") {
		t.Run(f.name, func(t *testing.T) {
			first := dxbc.Disassemble(f.s.Assembled())
			p, err := scenario.Assemble(first)
			if err != nil {
				t.Fatalf("reassemble:\n%s\n%v", first, err)
			}
			if second := dxbc.Disassemble(p); second != first {
				t.Errorf("listing changed:\n--- first\n%s\n--- second\n%s", first, second)
			}
		})
	}
}

// ---------------------------------------------------------------------------
// Scenario Loading
// ---------------------------------------------------------------------------

func loadScenarios(t *testing.T, dir string) []scenarioFile {
	t.Helper()

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("read scenario directory %q: %v", dir, err)
	}

	var files []scenarioFile
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".yaml") {
			continue
		}
		s, loadErr := scenario.Load(filepath.Join(dir, entry.Name()))
		if loadErr != nil {
			t.Fatalf("load %q: %v", entry.Name(), loadErr)
		}
		files = append(files, scenarioFile{name: strings.TrimSuffix(entry.Name(), ".yaml"), s: s})
	}

	// Sort for deterministic test order
	slices.SortFunc(files, func(a, b scenarioFile) int {
		return strings.Compare(a.name, b.name)
	})
	return files
}

// ---------------------------------------------------------------------------
// Expectation Failures
// ---------------------------------------------------------------------------

func TestVerifyReportsMismatches(t *testing.T) {
	s, err := scenario.Parse([]byte(`
name: wrong expectations
program:
  code: |
    cs_5_0
    dcl_temps 1
    dcl_thread_group 1, 1, 1
    mov r0.x, l(3)
    ret
expect:
  finished: false
  steps: 9
  registers:
    r0: [4]
    r7: [0]
  flags: [nan_or_inf]
`))
	if err != nil {
		t.Fatal(err)
	}
	res, err := s.Run(context.Background(), zerolog.Nop())
	if err != nil {
		t.Fatal(err)
	}
	err = s.Verify(res)
	if err == nil {
		t.Fatal("Verify accepted wrong expectations")
	}
	for _, want := range []string{"finished", "steps = ", "r0[0]", "r7 not in trace", "nan_or_inf"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error does not mention %q:\n%v", want, err)
		}
	}
}

func TestExpectedError(t *testing.T) {
	s, err := scenario.Parse([]byte(`
name: runaway
program:
  code: |
    cs_5_0
    dcl_temps 1
    dcl_thread_group 1, 1, 1
    loop
      iadd r0.x, r0.x, l(1)
    endloop
    ret
options:
  max_steps: 20
  warn_steps: 10
expect:
  finished: false
  steps: 20
  messages: 2
`))
	if err != nil {
		t.Fatal(err)
	}
	res, err := s.Run(context.Background(), zerolog.Nop())
	if err != nil {
		t.Fatal(err)
	}
	if err := s.Verify(res); err != nil {
		t.Error(err)
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"bad yaml", "name: [unterminated"},
		{"no profile", "program:\n  code: \"\"\n"},
		{"bad instruction", "program:\n  code: |\n    cs_5_0\n    frobnicate r0.x\n"},
		{"bad words", "program:\n  code: cs_5_0\ntarget:\n  inputs:\n    - [one]\n"},
		{"bad system value", "program:\n  code: ps_5_0\n  outputs:\n    - {semantic: X, register: 0, sv: SV_Nope}\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := scenario.Parse([]byte(tt.doc)); err == nil {
				t.Error("expected error")
			}
		})
	}
}
