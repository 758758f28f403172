package cli

import (
	"bytes"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/concat-lang/concatc/codegen"
	"github.com/concat-lang/concatc/interp"
	"github.com/concat-lang/concatc/ir"
	"github.com/concat-lang/concatc/parser"
)

func writeSource(t *testing.T, dir, name, contents string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("os.WriteFile() error = %v", err)
	}
	return path
}

func TestRunWritesAssembly(t *testing.T) {
	dir := t.TempDir()
	src := writeSource(t, dir, "hello.cat", `
proc main in
    "hi" puts
end
`)
	outAsm := filepath.Join(dir, "out.asm")

	opts := DefaultOptions()
	opts.OutputAsm = outAsm

	if err := Run(src, opts); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	asm, err := os.ReadFile(outAsm)
	if err != nil {
		t.Fatalf("os.ReadFile() error = %v", err)
	}
	if !strings.Contains(string(asm), "proc_main:") {
		t.Errorf("generated assembly missing proc_main label:\n%s", asm)
	}
}

func TestRunMissingSourceFile(t *testing.T) {
	opts := DefaultOptions()
	opts.OutputAsm = filepath.Join(t.TempDir(), "out.asm")
	if err := Run(filepath.Join(t.TempDir(), "does-not-exist.cat"), opts); err == nil {
		t.Fatal("Run() = nil error, want file-not-found error")
	}
}

func TestRunParseErrorSurfaces(t *testing.T) {
	dir := t.TempDir()
	src := writeSource(t, dir, "bad.cat", "proc main in")

	opts := DefaultOptions()
	opts.OutputAsm = filepath.Join(dir, "out.asm")

	if err := Run(src, opts); err == nil {
		t.Fatal("Run() = nil error, want parse error")
	}
}

func TestRunInterpretFailurePreventsAssemblyWrite(t *testing.T) {
	dir := t.TempDir()
	src := writeSource(t, dir, "underflow.cat", `
proc main in
    +
end
`)
	outAsm := filepath.Join(dir, "out.asm")

	opts := DefaultOptions()
	opts.OutputAsm = outAsm

	if err := Run(src, opts); err == nil {
		t.Fatal("Run() = nil error, want interpreter stack-underflow error")
	}
	if _, err := os.Stat(outAsm); err == nil {
		t.Error("assembly was written despite the interpreter failing first")
	}
}

// TestInterpreterAndAssembledBinaryAgree assembles and links the
// generated code for real and runs it, then checks its stdout against
// the interpreter's, for scenarios the splice/epilogue arithmetic
// previously got wrong: a multi-parameter return and a void proc
// under the strict no-splice convention. Skips if nasm/ld aren't on
// PATH.
func TestInterpreterAndAssembledBinaryAgree(t *testing.T) {
	if _, err := exec.LookPath("nasm"); err != nil {
		t.Skip("nasm not found on PATH")
	}
	if _, err := exec.LookPath("ld"); err != nil {
		t.Skip("ld not found on PATH")
	}

	tests := []struct {
		name       string
		src        string
		convention ir.ReturnConvention
	}{
		{
			name: "two_param_return",
			src: `
proc add2 i64 i64 ret i64 in
    +
end
proc main in
    1 2 add2
    3 4 add2
    add2
    dump
end
`,
			convention: ir.SpliceAlways,
		},
		{
			name: "void_skip_single_arg",
			src: `
proc clear i64 in
    drop
end
proc main in
    99 clear
    1
    dump
end
`,
			convention: ir.SpliceVoidSkips,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			prog, err := parser.Parse(tt.src)
			if err != nil {
				t.Fatalf("parser.Parse() error = %v", err)
			}

			opts := ir.Options{ReturnConvention: tt.convention}

			interpOut := runInterpCapture(t, prog, opts)
			asmOut := assembleAndRunCapture(t, prog, opts)

			if interpOut != asmOut {
				t.Fatalf("interpreter and assembled binary disagree: interp=%q asm=%q", interpOut, asmOut)
			}
		})
	}
}

func runInterpCapture(t *testing.T, prog *ir.Program, opts ir.Options) string {
	t.Helper()

	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("os.Pipe() error = %v", err)
	}
	defer r.Close()

	m := interp.New(prog, opts)
	m.SetStdout(w)
	runErr := m.Run()
	w.Close()
	if runErr != nil {
		t.Fatalf("interp Run() error = %v", runErr)
	}

	buf := make([]byte, 4096)
	n, _ := r.Read(buf)
	return string(buf[:n])
}

func assembleAndRunCapture(t *testing.T, prog *ir.Program, opts ir.Options) string {
	t.Helper()

	asm, err := codegen.New(opts).Generate(prog)
	if err != nil {
		t.Fatalf("codegen Generate() error = %v", err)
	}

	dir := t.TempDir()
	objPath := filepath.Join(dir, "out.o")
	binPath := filepath.Join(dir, "out")

	nasm := exec.Command("nasm", "-f", "elf64", "-o", objPath, "-")
	nasm.Stdin = strings.NewReader(asm)
	if out, err := nasm.CombinedOutput(); err != nil {
		t.Fatalf("nasm error = %v: %s", err, out)
	}

	ld := exec.Command("ld", "-o", binPath, objPath)
	if out, err := ld.CombinedOutput(); err != nil {
		t.Fatalf("ld error = %v: %s", err, out)
	}

	var stdout bytes.Buffer
	bin := exec.Command(binPath)
	bin.Stdout = &stdout
	if err := bin.Run(); err != nil {
		t.Fatalf("running assembled binary error = %v", err)
	}
	return stdout.String()
}

func TestRunDumpIRPrintsParsedProgram(t *testing.T) {
	dir := t.TempDir()
	src := writeSource(t, dir, "dump.cat", `
proc main in
    42 dump
end
`)
	outAsm := filepath.Join(dir, "out.asm")

	opts := DefaultOptions()
	opts.OutputAsm = outAsm
	opts.DumpIR = true

	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("os.Pipe() error = %v", err)
	}
	origStdout := os.Stdout
	os.Stdout = w
	runErr := Run(src, opts)
	os.Stdout = origStdout
	w.Close()

	if runErr != nil {
		t.Fatalf("Run() error = %v", runErr)
	}

	buf := make([]byte, 4096)
	n, _ := r.Read(buf)
	got := string(buf[:n])

	if !strings.Contains(got, "=== IR ===") {
		t.Errorf("dump output missing header:\n%s", got)
	}
	if !strings.Contains(got, "proc main(") {
		t.Errorf("dump output missing proc listing:\n%s", got)
	}
	if !strings.Contains(got, "push.i64 42") {
		t.Errorf("dump output missing pushed literal:\n%s", got)
	}
}

func TestRunSkipsInterpretWhenDisabled(t *testing.T) {
	dir := t.TempDir()
	src := writeSource(t, dir, "underflow.cat", `
proc main in
    +
end
`)
	outAsm := filepath.Join(dir, "out.asm")

	opts := DefaultOptions()
	opts.OutputAsm = outAsm
	opts.Interpret = false

	if err := Run(src, opts); err != nil {
		t.Fatalf("Run() error = %v, want nil since interpretation is skipped", err)
	}
	if _, err := os.Stat(outAsm); err != nil {
		t.Errorf("assembly was not written: %v", err)
	}
}
