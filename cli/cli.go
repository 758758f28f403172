// Package cli wires the parser, interpreter and code generator into
// the batch pipeline the root driver exposes: read one source file,
// interpret it for its side effects, compile it to assembly, and
// optionally hand the result to an external assembler and linker.
package cli

import (
	"bytes"
	"fmt"
	"os"
	"os/exec"

	"github.com/pkg/errors"

	"github.com/concat-lang/concatc/codegen"
	"github.com/concat-lang/concatc/interp"
	"github.com/concat-lang/concatc/ir"
	"github.com/concat-lang/concatc/parser"
)

// Options is a small struct threaded explicitly through the pipeline
// rather than via package globals.
type Options struct {
	Debug            bool
	DumpIR           bool
	Interpret        bool
	Assemble         bool
	Run              bool
	OutputAsm        string
	OutputBin        string
	ReturnConvention ir.ReturnConvention
}

// DefaultOptions returns the driver's defaults: interpret then emit
// assembly to out.asm, no assembling.
func DefaultOptions() Options {
	return Options{
		Interpret: true,
		OutputAsm: "out.asm",
		OutputBin: "a.out",
	}
}

// Run executes the full pipeline against the source file at path.
func Run(path string, opts Options) error {
	src, err := os.ReadFile(path)
	if err != nil {
		return errors.Wrap(err, "reading source")
	}

	prog, err := parser.Parse(string(src))
	if err != nil {
		return errors.Wrap(err, "parsing")
	}

	if opts.DumpIR {
		fmt.Println("=== IR ===")
		fmt.Print(prog.String())
	}

	irOpts := ir.Options{ReturnConvention: opts.ReturnConvention, Debug: opts.Debug}

	if opts.Interpret {
		machine := interp.New(prog, irOpts)
		if err := machine.Run(); err != nil {
			return errors.Wrap(err, "interpreting")
		}
	}

	gen := codegen.New(irOpts)
	asm, err := gen.Generate(prog)
	if err != nil {
		return errors.Wrap(err, "generating assembly")
	}

	if err := os.WriteFile(opts.OutputAsm, []byte(asm), 0o644); err != nil {
		return errors.Wrap(err, "writing assembly")
	}

	if !opts.Assemble && !opts.Run {
		return nil
	}
	if err := assembleAndLink(asm, opts.OutputBin); err != nil {
		return errors.Wrap(err, "assembling")
	}

	if opts.Run {
		return runBinary(opts.OutputBin)
	}
	return nil
}

// assembleAndLink pipes the generated text through nasm, then ld,
// via os/exec with the assembly fed over stdin. nasm rather than gcc
// because the generated text is freestanding NASM syntax, not
// GAS-compatible C-runtime-linked assembly.
func assembleAndLink(asm, outputBin string) error {
	objPath := outputBin + ".o"

	nasm := exec.Command("nasm", "-f", "elf64", "-o", objPath, "-")
	nasm.Stdout = os.Stdout
	nasm.Stderr = os.Stderr
	var buf bytes.Buffer
	buf.WriteString(asm)
	nasm.Stdin = &buf
	if err := nasm.Run(); err != nil {
		return fmt.Errorf("nasm: %w", err)
	}

	ld := exec.Command("ld", "-o", outputBin, objPath)
	ld.Stdout = os.Stdout
	ld.Stderr = os.Stderr
	if err := ld.Run(); err != nil {
		return fmt.Errorf("ld: %w", err)
	}
	return nil
}

func runBinary(path string) error {
	bin := exec.Command(path)
	bin.Stdout = os.Stdout
	bin.Stderr = os.Stderr
	bin.Stdin = os.Stdin
	return bin.Run()
}
