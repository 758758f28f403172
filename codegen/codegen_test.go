package codegen

import (
	"strings"
	"testing"

	"github.com/concat-lang/concatc/ir"
)

func generate(t *testing.T, opts ir.Options, procs ...*ir.Proc) string {
	t.Helper()
	prog := ir.NewProgram(procs)
	asm, err := New(opts).Generate(prog)
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	return asm
}

func mustContain(t *testing.T, asm string, substrs ...string) {
	t.Helper()
	for _, s := range substrs {
		if !strings.Contains(asm, s) {
			t.Errorf("generated assembly missing %q:\n%s", s, asm)
		}
	}
}

func TestGenerateMissingMain(t *testing.T) {
	prog := ir.NewProgram([]*ir.Proc{{Name: "helper"}})
	if _, err := New(ir.DefaultOptions()).Generate(prog); err == nil {
		t.Fatal("Generate() = nil error, want missing-main error")
	}
}

func TestGenerateEntryPointAndSections(t *testing.T) {
	main := &ir.Proc{Name: "main", Body: []ir.Instr{{Op: ir.OpRet}}}
	asm := generate(t, ir.DefaultOptions(), main)

	mustContain(t, asm,
		"section .bss",
		"section .data",
		"section .text",
		"global _start",
		"_start:",
		"call     proc_main",
		"proc_main:",
	)
	if strings.Contains(asm, "push     r15") {
		t.Error("main must not emit the procedure prologue")
	}
}

func TestGenerateProcPrologueEpilogue(t *testing.T) {
	double := &ir.Proc{
		Name:   "double",
		Params: []ir.Type{ir.TypeI64},
		Ret:    ir.TypeI64,
		Body: []ir.Instr{
			{Op: ir.OpDup},
			{Op: ir.OpAdd},
			{Op: ir.OpRet},
		},
	}
	main := &ir.Proc{Name: "main", Body: []ir.Instr{{Op: ir.OpRet}}}
	asm := generate(t, ir.DefaultOptions(), double, main)

	mustContain(t, asm, "proc_double:", "push     r15", "pop      r15", "mov      [r15], rax")
}

func TestGenerateMultiParamEpilogueDiscardsAllArgSlots(t *testing.T) {
	add := &ir.Proc{
		Name:   "add2",
		Params: []ir.Type{ir.TypeI64, ir.TypeI64},
		Ret:    ir.TypeI64,
		Body: []ir.Instr{
			{Op: ir.OpAdd},
			{Op: ir.OpRet},
		},
	}
	main := &ir.Proc{Name: "main", Body: []ir.Instr{{Op: ir.OpRet}}}
	asm := generate(t, ir.DefaultOptions(), add, main)

	idx := strings.Index(asm, "proc_add2:")
	if idx < 0 {
		t.Fatal("proc_add2: label missing")
	}
	epilogue := asm[idx:]
	popIdx := strings.Index(epilogue, "pop      r15")
	if popIdx < 0 {
		t.Fatal("epilogue missing pop r15")
	}
	after := epilogue[popIdx:]
	if !strings.Contains(after, "add      r15, 8") {
		t.Errorf("2-param proc must discard one extra arg slot (N-1)*8=8 after restoring r15:\n%s", after)
	}
	spliceIdx := strings.Index(after, "mov      [r15], rax")
	addIdx := strings.Index(after, "add      r15, 8")
	if spliceIdx < addIdx {
		t.Errorf("splice write must come after the arg-slot discard:\n%s", after)
	}
}

func TestGenerateZeroParamEpilogueAdjustsBelowSnapshot(t *testing.T) {
	produce := &ir.Proc{
		Name: "produce",
		Ret:  ir.TypeI64,
		Body: []ir.Instr{
			{Op: ir.OpPushI64, Int64: 7},
			{Op: ir.OpRet},
		},
	}
	main := &ir.Proc{Name: "main", Body: []ir.Instr{{Op: ir.OpRet}}}
	asm := generate(t, ir.DefaultOptions(), produce, main)

	idx := strings.Index(asm, "proc_produce:")
	if idx < 0 {
		t.Fatal("proc_produce: label missing")
	}
	epilogue := asm[idx:]
	popIdx := strings.Index(epilogue, "pop      r15")
	after := epilogue[popIdx:]
	if !strings.Contains(after, "add      r15, -8") {
		t.Errorf("0-param proc must open one new slot ((N-1)*8=-8) before splicing:\n%s", after)
	}
}

func TestGenerateVoidSkipsMultiParamDiscardsAllArgs(t *testing.T) {
	clear2 := &ir.Proc{
		Name:   "clear2",
		Params: []ir.Type{ir.TypeI64, ir.TypeI64},
		Ret:    ir.TypeVoid,
		Body: []ir.Instr{
			{Op: ir.OpDrop},
			{Op: ir.OpDrop},
			{Op: ir.OpRet},
		},
	}
	main := &ir.Proc{Name: "main", Body: []ir.Instr{{Op: ir.OpRet}}}
	asm := generate(t, ir.Options{ReturnConvention: ir.SpliceVoidSkips}, clear2, main)

	idx := strings.Index(asm, "proc_clear2:")
	if idx < 0 {
		t.Fatal("proc_clear2: label missing")
	}
	epilogue := asm[idx:]
	popIdx := strings.Index(epilogue, "pop      r15")
	after := epilogue[popIdx:]
	if !strings.Contains(after, "add      r15, 16") {
		t.Errorf("2-param void proc under SpliceVoidSkips must discard both arg slots (N*8=16):\n%s", after)
	}
	if strings.Contains(after, "mov      [r15], rax") {
		t.Errorf("void proc under SpliceVoidSkips must not splice:\n%s", after)
	}
}

func TestGenerateDebugBreakpoint(t *testing.T) {
	main := &ir.Proc{Name: "main", Body: []ir.Instr{{Op: ir.OpRet}}}
	asm := generate(t, ir.Options{Debug: true}, main)
	mustContain(t, asm, "int3")
}

func TestGenerateVoidSkipsConventionOmitsSplice(t *testing.T) {
	clear := &ir.Proc{
		Name:   "clear",
		Params: []ir.Type{ir.TypeI64},
		Ret:    ir.TypeVoid,
		Body: []ir.Instr{
			{Op: ir.OpDrop},
			{Op: ir.OpRet},
		},
	}
	main := &ir.Proc{Name: "main", Body: []ir.Instr{{Op: ir.OpRet}}}
	asm := generate(t, ir.Options{ReturnConvention: ir.SpliceVoidSkips}, clear, main)

	idx := strings.Index(asm, "proc_clear:")
	if idx < 0 {
		t.Fatal("proc_clear: label missing")
	}
	body := asm[idx:]
	end := strings.Index(body[len("proc_clear:"):], "ret")
	epilogue := body[:len("proc_clear:")+end+len("ret")]
	if strings.Contains(epilogue, "mov      [r15], rax") {
		t.Errorf("void proc under SpliceVoidSkips must not splice:\n%s", epilogue)
	}
}

func TestGenerateReturnCastNarrowing(t *testing.T) {
	tests := []struct {
		name string
		ret  ir.Type
		want string
	}{
		{"i8", ir.TypeI8, "movsx    rax, al"},
		{"i16", ir.TypeI16, "movsx    rax, ax"},
		{"i32", ir.TypeI32, "movsxd   rax, eax"},
		{"u8", ir.TypeU8, "movzx    rax, al"},
		{"u16", ir.TypeU16, "movzx    rax, ax"},
		{"u32", ir.TypeU32, "mov      eax, eax"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			narrow := &ir.Proc{Name: "narrow", Ret: tt.ret, Body: []ir.Instr{{Op: ir.OpRet}}}
			main := &ir.Proc{Name: "main", Body: []ir.Instr{{Op: ir.OpRet}}}
			asm := generate(t, ir.DefaultOptions(), narrow, main)
			mustContain(t, asm, tt.want)
		})
	}
}

func TestGenerateReturnCastI64NoOp(t *testing.T) {
	same := &ir.Proc{Name: "same", Ret: ir.TypeI64, Body: []ir.Instr{{Op: ir.OpRet}}}
	main := &ir.Proc{Name: "main", Body: []ir.Instr{{Op: ir.OpRet}}}
	asm := generate(t, ir.DefaultOptions(), same, main)
	if strings.Contains(asm, "[CAST") {
		t.Errorf("i64 return should not emit a cast:\n%s", asm)
	}
}

func TestGenerateReturnCastRejectsFloat(t *testing.T) {
	toF64 := &ir.Proc{Name: "to_f64", Ret: ir.TypeF64, Body: []ir.Instr{{Op: ir.OpRet}}}
	main := &ir.Proc{Name: "main", Body: []ir.Instr{{Op: ir.OpRet}}}
	_, err := New(ir.DefaultOptions()).Generate(ir.NewProgram([]*ir.Proc{toF64, main}))
	if err == nil {
		t.Fatal("Generate() = nil error, want unsupported-cast error")
	}
}

func TestGenerateCallUnknownProc(t *testing.T) {
	main := &ir.Proc{
		Name: "main",
		Body: []ir.Instr{
			{Op: ir.OpCall, Name: "nope"},
			{Op: ir.OpRet},
		},
	}
	_, err := New(ir.DefaultOptions()).Generate(ir.NewProgram([]*ir.Proc{main}))
	if err == nil {
		t.Fatal("Generate() = nil error, want unknown-call error")
	}
}

func TestGenerateStringLiteralInterning(t *testing.T) {
	main := &ir.Proc{
		Name: "main",
		Body: []ir.Instr{
			{Op: ir.OpPushStr, Str: "hi"},
			{Op: ir.OpPuts},
			{Op: ir.OpRet},
		},
	}
	asm := generate(t, ir.DefaultOptions(), main)
	mustContain(t, asm, `str_0: db "hi", 0`, "call     dump_str")
}

func TestGenerateSyscallArity(t *testing.T) {
	main := &ir.Proc{
		Name: "main",
		Body: []ir.Instr{
			{Op: ir.OpPushI64, Int64: 1},
			{Op: ir.OpPushI64, Int64: 60},
			{Op: ir.OpSyscall1},
			{Op: ir.OpDrop},
			{Op: ir.OpRet},
		},
	}
	asm := generate(t, ir.DefaultOptions(), main)
	mustContain(t, asm, "[SYSCALL1]", "rdi, [r15+0]", "syscall")
}

func TestEscapeBytesGroupsPrintableRuns(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"hi", `"hi"`},
		{"", `""`},
		{"a\nb", `"a", 10, "b"`},
		{`say "hi"`, `"say ", 34, "hi", 34`},
	}
	for _, tt := range tests {
		if got := escapeBytes(tt.in); got != tt.want {
			t.Errorf("escapeBytes(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
