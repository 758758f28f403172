package interp

import (
	"golang.org/x/sys/unix"

	"github.com/concat-lang/concatc/ir"
)

// execSyscall issues a real Linux syscall via golang.org/x/sys/unix,
// so the interpreter and the assembled program observe the same
// kernel effects and the same return value convention.
//
// Stack order, top-most first: argN, ..., arg1, sysno.
func (m *Machine) execSyscall(proc string, op ir.Op) error {
	argc, _ := op.SyscallArgc()

	var args [6]uintptr
	for i := argc - 1; i >= 0; i-- {
		v, err := m.pop(proc)
		if err != nil {
			return err
		}
		args[i] = uintptr(v)
	}
	sysno, err := m.pop(proc)
	if err != nil {
		return err
	}

	r1, _, errno := unix.Syscall6(uintptr(sysno), args[0], args[1], args[2], args[3], args[4], args[5])
	if errno != 0 {
		m.push(-int64(errno))
		return nil
	}
	m.push(int64(r1))
	return nil
}
