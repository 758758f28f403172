// Package codegen lowers IR into freestanding x86_64 NASM-syntax
// assembly that runs without a C runtime, using only the Linux
// syscall interface.
package codegen

import (
	"fmt"

	"github.com/pkg/errors"

	"github.com/concat-lang/concatc/ir"
)

// stackCapacity is the number of 8-byte slots reserved for the main
// operand-stack region.
const stackCapacity = 4096

// Generator walks a validated ir.Program and emits one assembly
// image. Per-procedure emission is stateless apart from the string
// literal index the builder carries forward across procedures.
type Generator struct {
	opts ir.Options
}

// New builds a Generator under opts.
func New(opts ir.Options) *Generator {
	return &Generator{opts: opts}
}

// Generate runs a three-phase state machine: scan (assert main
// exists), emit helpers and the string table seed, then per-procedure
// emit. Failure in any phase is fatal and suppresses the phases after
// it.
func (g *Generator) Generate(prog *ir.Program) (string, error) {
	if err := g.scan(prog); err != nil {
		return "", errors.Wrap(err, "codegen: scan")
	}

	b := newBuilder()
	g.emitHelpers(b)

	for _, proc := range prog.Procs {
		if err := g.emitProc(b, prog, proc); err != nil {
			return "", errors.Wrapf(err, "codegen: proc %s", proc.Name)
		}
	}

	g.emitEntryPoint(b)

	return b.build(), nil
}

// scan is phase one: it asserts the invariant codegen shares with the
// interpreter — a missing main is reported the same way by both.
func (g *Generator) scan(prog *ir.Program) error {
	if _, ok := prog.Lookup("main"); !ok {
		return ir.ErrMissingMain
	}
	return nil
}

// emitProc is phase three for a single procedure: prologue (skipped
// for main), body, epilogue splice (skipped for main).
func (g *Generator) emitProc(b *builder, prog *ir.Program, proc *ir.Proc) error {
	b.label(procLabel(proc.Name))

	if g.opts.Debug {
		b.instr("int3", "")
	}

	isMain := proc.Name == "main"
	if !isMain {
		// Prologue: snapshot r15 as it stands once the caller's N
		// arguments are already pushed — the address of the
		// top-most argument, not the pre-args B. The epilogue
		// below derives B from this snapshot plus N.
		b.instr("push", "r15")
	}

	for _, instr := range proc.Body {
		if instr.Op == ir.OpRet {
			break
		}
		if err := g.emitInstr(b, prog, instr); err != nil {
			return err
		}
	}

	if isMain {
		b.comment("main returns straight to _start")
		b.instr("ret", "")
		return nil
	}

	// Epilogue: discard every argument slot and any body temporaries
	// left above the snapshot, then — for a splice — write the result
	// where arg1 originally sat, matching interp.spliceReturn's
	// stack[:base] truncation.
	n := len(proc.Params)
	splice := proc.ReturnsValue() || g.opts.ReturnConvention == ir.SpliceAlways
	if splice {
		b.instr("mov", "rax, [r15]")
		if err := g.emitReturnCast(b, proc.Ret); err != nil {
			return err
		}
		b.instr("pop", "r15")
		if offset := (n - 1) * 8; offset != 0 {
			b.instr("add", fmt.Sprintf("r15, %d", offset))
		}
		b.instr("mov", "[r15], rax")
	} else {
		b.instr("pop", "r15")
		if offset := n * 8; offset != 0 {
			b.instr("add", fmt.Sprintf("r15, %d", offset))
		}
	}
	b.instr("ret", "")
	return nil
}

func procLabel(name string) string {
	return "proc_" + name
}

func (g *Generator) emitInstr(b *builder, prog *ir.Program, instr ir.Instr) error {
	switch instr.Op {
	case ir.OpPushI64:
		g.emitPushI64(b, instr.Int64)
	case ir.OpPushStr:
		g.emitPushStr(b, instr.Str)

	case ir.OpAdd:
		b.comment("[ADD]")
		b.instr("mov", "rax, [r15+8]")
		b.instr("add", "rax, [r15]")
		b.instr("add", "r15, 8")
		b.instr("mov", "[r15], rax")
	case ir.OpSub:
		b.comment("[SUB]")
		b.instr("mov", "rax, [r15+8]")
		b.instr("sub", "rax, [r15]")
		b.instr("add", "r15, 8")
		b.instr("mov", "[r15], rax")
	case ir.OpMul:
		b.comment("[MUL]")
		b.instr("mov", "rax, [r15+8]")
		b.instr("imul", "rax, [r15]")
		b.instr("add", "r15, 8")
		b.instr("mov", "[r15], rax")
	case ir.OpDiv, ir.OpMod:
		g.emitDivMod(b, instr.Op)

	case ir.OpDup:
		b.comment("[DUP]")
		b.instr("mov", "rax, [r15]")
		b.instr("sub", "r15, 8")
		b.instr("mov", "[r15], rax")
	case ir.OpSwap:
		b.comment("[SWAP]")
		b.instr("mov", "rax, [r15]")
		b.instr("mov", "rbx, [r15+8]")
		b.instr("mov", "[r15], rbx")
		b.instr("mov", "[r15+8], rax")
	case ir.OpDrop:
		b.comment("[DROP]")
		b.instr("add", "r15, 8")
	case ir.OpOver:
		b.comment("[OVER]")
		b.instr("mov", "rax, [r15+8]")
		b.instr("sub", "r15, 8")
		b.instr("mov", "[r15], rax")
	case ir.OpRot:
		g.emitRot(b)

	case ir.OpEq, ir.OpNeq, ir.OpLt, ir.OpGt, ir.OpLe, ir.OpGe:
		g.emitCompare(b, instr.Op)

	case ir.OpAnd, ir.OpOr, ir.OpXor:
		g.emitBitwise(b, instr.Op)
	case ir.OpShl, ir.OpShr:
		g.emitShift(b, instr.Op)
	case ir.OpNot:
		b.comment("[NOT]")
		b.instr("not", "qword [r15]")

	case ir.OpLoad8, ir.OpLoad16, ir.OpLoad32, ir.OpLoad64:
		g.emitLoad(b, instr.Op)
	case ir.OpStore8, ir.OpStore16, ir.OpStore32, ir.OpStore64:
		g.emitStore(b, instr.Op)

	case ir.OpDump:
		b.comment("[DUMP]")
		b.instr("mov", "rdi, [r15]")
		b.instr("add", "r15, 8")
		b.instr("call", "dump_i")
	case ir.OpPuts:
		b.comment("[PUTS]")
		b.instr("mov", "rdi, [r15+8]")
		b.instr("mov", "rsi, [r15]")
		b.instr("add", "r15, 16")
		b.instr("call", "dump_str")

	case ir.OpCall:
		target, ok := prog.Lookup(instr.Name)
		if !ok {
			return &UnknownCallError{Name: instr.Name}
		}
		b.comment(fmt.Sprintf("[CALL %s]", instr.Name))
		b.instr("call", procLabel(target.Name))

	case ir.OpSyscall0, ir.OpSyscall1, ir.OpSyscall2, ir.OpSyscall3,
		ir.OpSyscall4, ir.OpSyscall5, ir.OpSyscall6:
		g.emitSyscall(b, instr.Op)

	default:
		return fmt.Errorf("codegen: unhandled instruction %s", instr.Op)
	}
	return nil
}
