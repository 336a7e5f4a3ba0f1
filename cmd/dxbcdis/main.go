// dxbcdis - DXBC program disassembler
// Prints the canonical listing of a scenario's program, or of a bare
// assembler listing, and optionally its validation findings.
package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gogpu/shaderdbg/dxbc"
	"github.com/gogpu/shaderdbg/scenario"
)

var (
	validate = flag.Bool("validate", false, "report structural problems after the listing")
	stats    = flag.Bool("stats", false, "print declaration and instruction counts")
)

func main() {
	flag.Usage = usage
	flag.Parse()

	if flag.NArg() < 1 {
		usage()
		os.Exit(1)
	}

	failed := false
	for _, path := range flag.Args() {
		p, err := load(path)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %s: %v\n", path, err)
			failed = true
			continue
		}
		if flag.NArg() > 1 {
			fmt.Printf("// %s\n", path)
		}
		fmt.Print(dxbc.Disassemble(p))

		if *stats {
			fmt.Printf("// %d declarations, %d instructions, %d immediate constants\n",
				len(p.Declarations), len(p.Instructions), len(p.ImmediateConstants))
		}
		if *validate {
			errs, err := dxbc.Validate(p)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error: %s: %v\n", path, err)
				failed = true
				continue
			}
			for _, e := range errs {
				fmt.Fprintf(os.Stderr, "%s: %s\n", path, e.Error())
				failed = true
			}
		}
	}
	if failed {
		os.Exit(1)
	}
}

// load reads a scenario file, or a bare listing when the extension is not
// .yaml/.yml.
func load(path string) (*dxbc.Program, error) {
	switch filepath.Ext(path) {
	case ".yaml", ".yml":
		s, err := scenario.Load(path)
		if err != nil {
			return nil, err
		}
		return s.Assembled(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return scenario.Assemble(string(data))
}

func usage() {
	fmt.Fprintf(os.Stderr, "Usage: dxbcdis [options] <scenario.yaml|listing.asm>...\n\n")
	fmt.Fprintf(os.Stderr, "Options:\n")
	flag.PrintDefaults()
}
