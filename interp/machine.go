// Package interp is the tree-walking reference interpreter: the test
// oracle that executes IR directly instead of lowering it to assembly.
// It shares the operand-stack discipline and calling convention of the
// code generator, down to issuing real Linux syscalls, so that a
// program's interpreted stdout and its assembled-and-run stdout are
// required to agree byte-for-byte.
package interp

import (
	"fmt"
	"os"
	"unsafe"

	"golang.org/x/sys/unix"

	"github.com/concat-lang/concatc/ir"
	"github.com/concat-lang/concatc/stack"
)

// Machine holds the interpreter's mutable state: a single shared
// operand stack and the pinned backing storage for every string
// literal a running program may reference by address.
type Machine struct {
	program *ir.Program
	opts    ir.Options
	stack   []int64

	// arena pins the byte slices backing every PushStr literal so their
	// addresses stay valid for the lifetime of the Machine. Go's
	// garbage collector does not relocate live heap objects, so taking
	// an address via unsafe.Pointer and holding a reference here is
	// sufficient to keep it stable across a run.
	arena [][]byte

	// trace tracks the chain of procedures currently being called, so
	// that a failure deep in a call chain can be reported alongside the
	// path that led to it.
	trace *stack.Stack

	stdout *os.File
}

// New builds a Machine ready to run prog under opts. Stdout defaults
// to os.Stdout; tests may substitute another *os.File via Machine.SetStdout.
func New(prog *ir.Program, opts ir.Options) *Machine {
	return &Machine{program: prog, opts: opts, stdout: os.Stdout, trace: stack.New()}
}

// SetStdout redirects Dump/Puts output, for tests that capture it.
func (m *Machine) SetStdout(f *os.File) {
	m.stdout = f
}

// Run executes "main" to completion. It never panics on well-formed
// input; every failure mode surfaces as an error.
func (m *Machine) Run() error {
	main, ok := m.program.Lookup("main")
	if !ok {
		return ir.ErrMissingMain
	}
	_, err := m.callMain(main)
	return err
}

// callMain executes main's body directly: no prologue snapshot, no
// epilogue splice. main omits both the prologue and the epilogue
// splicing every other procedure gets.
func (m *Machine) callMain(proc *ir.Proc) (bool, error) {
	m.trace.Push(proc.Name)
	defer m.trace.Pop()

	for _, instr := range proc.Body {
		if instr.Op == ir.OpRet {
			return true, nil
		}
		if err := m.exec(proc, instr); err != nil {
			return false, m.annotate(err)
		}
	}
	return true, nil
}

// annotate attaches the current call chain to err, unless err already
// carries one from a deeper frame.
func (m *Machine) annotate(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := err.(*TraceError); ok {
		return err
	}
	return &TraceError{Err: err, Trace: m.trace.Items()}
}

// call executes a non-main procedure under the caller-pushes-args /
// callee-splices-one-result convention: base is the stack depth before
// the caller pushed its N arguments; at Ret the callee's N
// argument slots and every body temporary are discarded, and —
// unless Opts.ReturnConvention is SpliceVoidSkips and the procedure is
// void — the top value at Ret is pushed back in their place. See
// DESIGN.md for the reasoning behind this reading.
func (m *Machine) call(proc *ir.Proc) error {
	m.trace.Push(proc.Name)
	defer m.trace.Pop()

	n := len(proc.Params)
	b := len(m.stack)
	if b < n {
		return m.annotate(&StackUnderflowError{Proc: proc.Name})
	}
	base := b - n // depth before the caller's args were pushed

	for _, instr := range proc.Body {
		if instr.Op == ir.OpRet {
			return m.annotate(m.spliceReturn(proc, base))
		}
		if err := m.exec(proc, instr); err != nil {
			return m.annotate(err)
		}
	}
	return m.annotate(m.spliceReturn(proc, base))
}

func (m *Machine) spliceReturn(proc *ir.Proc, base int) error {
	splice := proc.ReturnsValue() || m.opts.ReturnConvention == ir.SpliceAlways
	if !splice {
		if len(m.stack) < base {
			return &StackUnderflowError{Proc: proc.Name}
		}
		m.stack = m.stack[:base]
		return nil
	}
	val, err := m.pop(proc.Name)
	if err != nil {
		return err
	}
	val, err = castReturnValue(proc.Ret, val)
	if err != nil {
		return err
	}
	if base > len(m.stack) {
		return &StackUnderflowError{Proc: proc.Name}
	}
	m.stack = append(m.stack[:base], val)
	return nil
}

// castReturnValue narrows or sign/zero-extends v to fit proc.Ret's
// declared integer width, mirroring the narrowing codegen performs on
// the same register before the epilogue splice. Non-integer return
// types (void, ptr, str, bool) pass v through unchanged; floating-point
// return types are rejected, since the operand stack holds only
// 64-bit integers.
func castReturnValue(ret ir.Type, v int64) (int64, error) {
	if ret == ir.TypeF32 || ret == ir.TypeF64 {
		return 0, &UnsupportedCastError{Type: ret}
	}
	width, signed, ok := ret.IntWidth()
	if !ok || width == 64 {
		return v, nil
	}
	mask := int64(1)<<uint(width) - 1
	truncated := v & mask
	if signed {
		signBit := int64(1) << uint(width-1)
		if truncated&signBit != 0 {
			truncated |= ^mask
		}
	}
	return truncated, nil
}

// exec dispatches one body instruction of proc.
func (m *Machine) exec(proc *ir.Proc, instr ir.Instr) error {
	switch instr.Op {
	case ir.OpPushI64:
		m.push(instr.Int64)
		return nil
	case ir.OpPushStr:
		return m.execPushStr(instr.Str)

	case ir.OpAdd, ir.OpSub, ir.OpMul, ir.OpDiv, ir.OpMod:
		return m.execArith(proc.Name, instr.Op)

	case ir.OpDup:
		return m.execDup(proc.Name)
	case ir.OpSwap:
		return m.execSwap(proc.Name)
	case ir.OpDrop:
		_, err := m.pop(proc.Name)
		return err
	case ir.OpOver:
		return m.execOver(proc.Name)
	case ir.OpRot:
		return m.execRot(proc.Name)

	case ir.OpEq, ir.OpNeq, ir.OpLt, ir.OpGt, ir.OpLe, ir.OpGe:
		return m.execCompare(proc.Name, instr.Op)

	case ir.OpAnd, ir.OpOr, ir.OpXor, ir.OpShl, ir.OpShr:
		return m.execBitwise(proc.Name, instr.Op)
	case ir.OpNot:
		return m.execNot(proc.Name)

	case ir.OpLoad8, ir.OpLoad16, ir.OpLoad32, ir.OpLoad64:
		return m.execLoad(proc.Name, instr.Op)
	case ir.OpStore8, ir.OpStore16, ir.OpStore32, ir.OpStore64:
		return m.execStore(proc.Name, instr.Op)

	case ir.OpDump:
		return m.execDump(proc.Name)
	case ir.OpPuts:
		return m.execPuts(proc.Name)

	case ir.OpCall:
		return m.execCall(instr.Name)

	case ir.OpSyscall0, ir.OpSyscall1, ir.OpSyscall2, ir.OpSyscall3,
		ir.OpSyscall4, ir.OpSyscall5, ir.OpSyscall6:
		return m.execSyscall(proc.Name, instr.Op)

	case ir.OpRet:
		// Reached only via Proc bodies lacking a trailing Ret, which
		// the parser never produces; handled defensively.
		return nil
	}
	return fmt.Errorf("interp: unhandled instruction %s", instr.Op)
}

func (m *Machine) execPushStr(s string) error {
	buf := []byte(s)
	m.arena = append(m.arena, buf)
	var ptr int64
	if len(buf) > 0 {
		ptr = int64(uintptr(unsafe.Pointer(&buf[0])))
	}
	m.push(ptr)
	m.push(int64(len(buf)))
	return nil
}

func (m *Machine) execCall(name string) error {
	target, ok := m.program.Lookup(name)
	if !ok {
		return &UnknownCallError{Name: name}
	}
	return m.call(target)
}
