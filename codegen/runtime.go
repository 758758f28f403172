package codegen

import "fmt"

// bssSection reserves the operand-stack region and a 21-byte dump_buf
// for decimal conversion; dump_i itself formats its digits on the
// machine stack and never addresses dump_buf. A second region of doubled
// capacity is reserved for future procedure-local stacks; the present
// design never addresses it.
func bssSection() string {
	return fmt.Sprintf(`section .bss
    dump_buf: resb 21
    data_stack: resq %d
    frame_stack: resq %d
`, stackCapacity, stackCapacity*2)
}

// emitHelpers writes dump_i and dump_str, the two runtime routines
// statically linked into every emitted program. Neither touches r15;
// both use the native machine stack for scratch space.
func (g *Generator) emitHelpers(b *builder) {
	b.raw(`dump_i:
    sub     rsp, 40
    xor     r9d, r9d
    test    rdi, rdi
    jns     .L2
    neg     rdi
    mov     r9d, 1
.L2:
    mov     rsi, 7378697629483820647
    mov     ecx, 32
.L3:
    mov     rax, rdi
    mov     r8, rcx
    sub     rcx, 1
    imul    rsi
    mov     rax, rdi
    sar     rax, 63
    sar     rdx, 2
    sub     rdx, rax
    lea     rax, [rdx+rdx*4]
    add     rax, rax
    sub     rdi, rax
    add     edi, 48
    mov     byte [rsp+rcx], dil
    mov     rdi, rdx
    test    rdx, rdx
    jne     .L3
    test    r9d, r9d
    je      .L4
    mov     byte [rsp-2+r8], 45
    lea     rcx, [r8-2]
.L4:
    mov     rdx, 32
    lea     rsi, [rsp+rcx]
    sub     rdx, rcx
    mov     rax, 1
    mov     rdi, 1
    syscall
    add     rsp, 40
    ret

dump_str:
    push    rbx
    mov     rbx, rdi
    xor     rax, rax
.loop:
    cmp     byte [rdi + rax], 0
    je      .done
    inc     rax
    jmp     .loop
.done:
    mov     rdx, rax
    mov     rsi, rbx
    mov     rax, 1
    mov     rdi, 1
    pop     rbx
    syscall
    ret

`)
}

// emitEntryPoint writes _start: it initialises r15 to the high end of
// the operand-stack region, calls proc_main, then exits with main's
// last dumped/pushed status discarded — the generated program's exit
// code is always 0; there is no declared exit-status convention.
func (g *Generator) emitEntryPoint(b *builder) {
	b.raw("global _start\n")
	b.label("_start")
	b.instr("lea", fmt.Sprintf("r15, [data_stack + %d*8]", stackCapacity))
	b.instr("call", "proc_main")
	b.instr("mov", "rax, 60")
	b.instr("xor", "rdi, rdi")
	b.instr("syscall", "")
}
