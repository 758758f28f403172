package codegen

import (
	"fmt"

	"github.com/concat-lang/concatc/ir"
)

func (g *Generator) emitPushI64(b *builder, v int64) {
	b.comment("[PUSH]")
	b.instr("sub", "r15, 8")
	b.instr("mov", fmt.Sprintf("qword [r15], %d", v))
}

// emitPushStr pushes (pointer, length): the label first (deepest),
// then the length on top, matching interp.execPushStr's stack order.
func (g *Generator) emitPushStr(b *builder, s string) {
	label := b.addString(s)
	b.comment("[PUSH.STR]")
	b.instr("sub", "r15, 8")
	b.instr("mov", fmt.Sprintf("qword [r15], %s", label))
	b.instr("sub", "r15, 8")
	b.instr("mov", fmt.Sprintf("qword [r15], %d", len(s)))
}

func (g *Generator) emitDivMod(b *builder, op ir.Op) {
	if op == ir.OpDiv {
		b.comment("[DIV]")
	} else {
		b.comment("[MOD]")
	}
	b.instr("mov", "rax, [r15+8]")
	b.instr("cqo", "")
	b.instr("idiv", "qword [r15]")
	b.instr("add", "r15, 8")
	if op == ir.OpDiv {
		b.instr("mov", "[r15], rax")
	} else {
		b.instr("mov", "[r15], rdx")
	}
}

// emitRot implements (a, b, c) -> (b, c, a) with a at [r15+16].
func (g *Generator) emitRot(b *builder) {
	b.comment("[ROT]")
	b.instr("mov", "rax, [r15+16]") // a
	b.instr("mov", "rbx, [r15+8]")  // b
	b.instr("mov", "rcx, [r15]")    // c
	b.instr("mov", "[r15+16], rbx")
	b.instr("mov", "[r15+8], rcx")
	b.instr("mov", "[r15], rax")
}

var setccByOp = map[ir.Op]string{
	ir.OpEq: "sete", ir.OpNeq: "setne",
	ir.OpLt: "setl", ir.OpGt: "setg",
	ir.OpLe: "setle", ir.OpGe: "setge",
}

func (g *Generator) emitCompare(b *builder, op ir.Op) {
	b.comment("[" + opComment(op) + "]")
	b.instr("mov", "rax, [r15+8]")
	b.instr("cmp", "rax, [r15]")
	b.instr(setccByOp[op], "al")
	b.instr("movzx", "rax, al")
	b.instr("add", "r15, 8")
	b.instr("mov", "[r15], rax")
}

func opComment(op ir.Op) string {
	return op.String()
}

func (g *Generator) emitBitwise(b *builder, op ir.Op) {
	var mnemonic string
	switch op {
	case ir.OpAnd:
		mnemonic = "and"
	case ir.OpOr:
		mnemonic = "or"
	case ir.OpXor:
		mnemonic = "xor"
	}
	b.comment("[" + opComment(op) + "]")
	b.instr("mov", "rax, [r15+8]")
	b.instr(mnemonic, "rax, [r15]")
	b.instr("add", "r15, 8")
	b.instr("mov", "[r15], rax")
}

func (g *Generator) emitShift(b *builder, op ir.Op) {
	mnemonic := "shl"
	if op == ir.OpShr {
		mnemonic = "sar"
	}
	b.comment("[" + opComment(op) + "]")
	b.instr("mov", "rcx, [r15]")
	b.instr("mov", "rax, [r15+8]")
	b.instr(mnemonic, "rax, cl")
	b.instr("add", "r15, 8")
	b.instr("mov", "[r15], rax")
}

func (g *Generator) emitLoad(b *builder, op ir.Op) {
	width, _ := op.MemWidth()
	reg, size := regForWidth(width)
	b.comment(fmt.Sprintf("[LOAD%d]", width))
	b.instr("mov", "rax, [r15]")
	b.instr("xor", "rbx, rbx")
	b.instr("mov", fmt.Sprintf("%s, %s [rax]", reg, size))
	b.instr("mov", "[r15], rbx")
}

// emitStore writes value at [sp], address at [sp+8]; both slots are
// freed.
func (g *Generator) emitStore(b *builder, op ir.Op) {
	width, _ := op.MemWidth()
	reg, size := regForWidth(width)
	b.comment(fmt.Sprintf("[STORE%d]", width))
	b.instr("mov", fmt.Sprintf("%s, %s [r15]", reg, size)) // value
	b.instr("mov", "rax, [r15+8]")                         // address
	b.instr("mov", fmt.Sprintf("%s [rax], %s", size, reg))
	b.instr("add", "r15, 16")
}

// regForWidth returns the destination register and NASM size keyword
// used when loading width bits, widened into rbx/ebx's full width.
func regForWidth(width int) (reg, size string) {
	switch width {
	case 8:
		return "bl", "byte"
	case 16:
		return "bx", "word"
	case 32:
		return "ebx", "dword"
	default:
		return "rbx", "qword"
	}
}

// emitReturnCast narrows or sign/zero-extends rax to proc.Ret's
// declared integer width before the epilogue splices it back.
// Non-integer return types (void, ptr, str, bool) need no
// instructions; f32/f64 are rejected outright since the operand stack
// holds only 64-bit integers.
func (g *Generator) emitReturnCast(b *builder, ret ir.Type) error {
	if ret == ir.TypeF32 || ret == ir.TypeF64 {
		return &UnsupportedCastError{Type: ret}
	}
	width, signed, ok := ret.IntWidth()
	if !ok || width == 64 {
		return nil
	}
	b.comment(fmt.Sprintf("[CAST -> %s]", ret))
	switch {
	case signed && width == 8:
		b.instr("movsx", "rax, al")
	case signed && width == 16:
		b.instr("movsx", "rax, ax")
	case signed && width == 32:
		b.instr("movsxd", "rax, eax")
	case !signed && width == 8:
		b.instr("movzx", "rax, al")
	case !signed && width == 16:
		b.instr("movzx", "rax, ax")
	case !signed && width == 32:
		// Writing eax zero-extends the upper 32 bits on x86_64.
		b.instr("mov", "eax, eax")
	}
	return nil
}

func (g *Generator) emitSyscall(b *builder, op ir.Op) {
	argc, _ := op.SyscallArgc()
	b.comment(fmt.Sprintf("[SYSCALL%d]", argc))

	argRegs := []string{"rdi", "rsi", "rdx", "r10", "r8", "r9"}
	b.instr("mov", fmt.Sprintf("rax, [r15+%d]", argc*8))
	for i := 0; i < argc; i++ {
		offset := (argc - 1 - i) * 8
		b.instr("mov", fmt.Sprintf("%s, [r15+%d]", argRegs[i], offset))
	}
	b.instr("add", fmt.Sprintf("r15, %d", (argc+1)*8))
	b.instr("syscall", "")
	b.instr("sub", "r15, 8")
	b.instr("mov", "[r15], rax")
}
