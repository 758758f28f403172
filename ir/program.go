package ir

import (
	"fmt"
	"strings"
)

// ReturnConvention chooses whether a void-returning procedure's Ret
// still splices (overwrites) the top-of-stack slot, or skips the
// splice and simply discards it.
type ReturnConvention int

const (
	// SpliceAlways always performs the splice, even for a void return:
	// the top slot is kept and the caller is expected to ignore it.
	// This is the default.
	SpliceAlways ReturnConvention = iota
	// SpliceVoidSkips performs the splice only for non-void returns;
	// a void Ret instead resets the stack pointer to B with no write,
	// discarding every slot the body pushed.
	SpliceVoidSkips
)

// Options carries the policy knobs threaded explicitly into interp and
// codegen; there are no package-level globals.
type Options struct {
	ReturnConvention ReturnConvention
	// Debug inserts an int3 breakpoint at the start of every procedure
	// body in generated assembly.
	Debug bool
}

// DefaultOptions returns the driver's defaults.
func DefaultOptions() Options {
	return Options{ReturnConvention: SpliceAlways}
}

// Proc is a top-level declaration: either a "proc" (IsConst == false)
// or a "const" (IsConst == true, Params always empty). A Const is
// semantically a zero-parameter procedure returning void for
// namespace purposes, but calling one pushes its body's computed
// result for the caller to consume, so for return-splicing purposes a
// Const behaves as a non-void return regardless of its nominal Void
// return type. See DESIGN.md.
type Proc struct {
	Name    string
	Params  []Type
	Ret     Type
	Body    []Instr
	IsConst bool
	Line    int
}

// ReturnsValue reports whether Ret should splice a return value for
// this procedure: true for any non-void return type, and also true
// for Const (see the Proc doc comment above).
func (p *Proc) ReturnsValue() bool {
	return p.IsConst || p.Ret != TypeVoid
}

// Program is the parsed, ordered sequence of Proc/Const declarations
// plus a name index built for O(1) Call resolution.
type Program struct {
	Procs []*Proc
	index map[string]*Proc
}

// NewProgram builds a Program from an ordered slice of declarations,
// indexing them by name. It does not validate uniqueness or the
// presence of "main"; callers use Validate for that.
func NewProgram(procs []*Proc) *Program {
	p := &Program{Procs: procs, index: make(map[string]*Proc, len(procs))}
	for _, decl := range procs {
		p.index[decl.Name] = decl
	}
	return p
}

// Lookup resolves a declaration by name.
func (p *Program) Lookup(name string) (*Proc, bool) {
	proc, ok := p.index[name]
	return proc, ok
}

// Validate checks the program-level invariants: exactly one "main",
// and globally unique names.
func (p *Program) Validate() error {
	seen := make(map[string]bool, len(p.Procs))
	hasMain := false
	for _, decl := range p.Procs {
		if seen[decl.Name] {
			return fmt.Errorf("duplicate declaration of %q", decl.Name)
		}
		seen[decl.Name] = true
		if decl.Name == "main" {
			hasMain = true
		}
	}
	if !hasMain {
		return errMissingMain
	}
	return nil
}

// String renders one line per declaration header, followed by one
// indented line per body instruction, for the "=== IR ===" listing.
func (p *Program) String() string {
	var b strings.Builder
	for _, decl := range p.Procs {
		kind := "proc"
		if decl.IsConst {
			kind = "const"
		}
		fmt.Fprintf(&b, "%s %s(", kind, decl.Name)
		for i, t := range decl.Params {
			if i > 0 {
				b.WriteString(", ")
			}
			b.WriteString(t.String())
		}
		fmt.Fprintf(&b, ") -> %s\n", decl.Ret)
		for _, instr := range decl.Body {
			fmt.Fprintf(&b, "    %s\n", instrString(instr))
		}
	}
	return b.String()
}

func instrString(in Instr) string {
	switch in.Op {
	case OpPushI64:
		return fmt.Sprintf("push.i64 %d", in.Int64)
	case OpPushStr:
		return fmt.Sprintf("push.str %q", in.Str)
	case OpCall:
		return fmt.Sprintf("call %s", in.Name)
	default:
		return in.Op.String()
	}
}
