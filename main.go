// This is the main-driver for our compiler.

package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/concat-lang/concatc/cli"
	"github.com/concat-lang/concatc/ir"
)

func main() {

	//
	// Look for flags.
	//
	debug := flag.Bool("debug", false, "Insert an int3 breakpoint at the start of every procedure.")
	dumpIR := flag.Bool("dump-ir", false, "Print the parsed IR before interpreting.")
	noInterp := flag.Bool("no-interpret", false, "Skip running the reference interpreter.")
	assemble := flag.Bool("assemble", false, "Assemble and link the generated output, via nasm/ld.")
	run := flag.Bool("run", false, "Run the binary, post-assemble.")
	output := flag.String("o", "out.asm", "Path to write the generated assembly to.")
	binary := flag.String("filename", "a.out", "The binary to write, when -assemble or -run is given.")
	voidSkips := flag.Bool("strict-void-return", false, "Use the strict void-return convention instead of always splicing.")
	flag.Parse()

	//
	// If we're running we're also assembling.
	//
	if *run {
		*assemble = true
	}

	//
	// Ensure we have a source file as our single argument.
	//
	if len(flag.Args()) != 1 {
		fmt.Println("Usage: concatc <source-file>")
		os.Exit(1)
	}

	convention := ir.SpliceAlways
	if *voidSkips {
		convention = ir.SpliceVoidSkips
	}

	opts := cli.Options{
		Debug:            *debug,
		DumpIR:           *dumpIR,
		Interpret:        !*noInterp,
		Assemble:         *assemble,
		Run:              *run,
		OutputAsm:        *output,
		OutputBin:        *binary,
		ReturnConvention: convention,
	}

	if err := cli.Run(flag.Args()[0], opts); err != nil {
		fmt.Fprintf(os.Stderr, "concatc: %s\n", err)
		os.Exit(1)
	}
}
