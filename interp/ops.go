package interp

import (
	"strconv"
	"unsafe"

	"github.com/concat-lang/concatc/ir"
)

func (m *Machine) push(v int64) {
	m.stack = append(m.stack, v)
}

func (m *Machine) pop(proc string) (int64, error) {
	n := len(m.stack)
	if n == 0 {
		return 0, &StackUnderflowError{Proc: proc}
	}
	v := m.stack[n-1]
	m.stack = m.stack[:n-1]
	return v, nil
}

func (m *Machine) pop2(proc string) (a, b int64, err error) {
	// b is the top (last-pushed) operand, a is beneath it — mirrors
	// codegen reading [sp] then [sp+8].
	b, err = m.pop(proc)
	if err != nil {
		return 0, 0, err
	}
	a, err = m.pop(proc)
	if err != nil {
		return 0, 0, err
	}
	return a, b, nil
}

func (m *Machine) execArith(proc string, op ir.Op) error {
	a, b, err := m.pop2(proc)
	if err != nil {
		return err
	}
	switch op {
	case ir.OpAdd:
		m.push(a + b)
	case ir.OpSub:
		m.push(a - b)
	case ir.OpMul:
		m.push(a * b)
	case ir.OpDiv:
		if b == 0 {
			return &DivideByZeroError{Proc: proc}
		}
		m.push(a / b)
	case ir.OpMod:
		if b == 0 {
			return &DivideByZeroError{Proc: proc}
		}
		m.push(a % b)
	}
	return nil
}

func (m *Machine) execDup(proc string) error {
	n := len(m.stack)
	if n == 0 {
		return &StackUnderflowError{Proc: proc}
	}
	m.push(m.stack[n-1])
	return nil
}

func (m *Machine) execSwap(proc string) error {
	n := len(m.stack)
	if n < 2 {
		return &StackUnderflowError{Proc: proc}
	}
	m.stack[n-1], m.stack[n-2] = m.stack[n-2], m.stack[n-1]
	return nil
}

func (m *Machine) execOver(proc string) error {
	n := len(m.stack)
	if n < 2 {
		return &StackUnderflowError{Proc: proc}
	}
	m.push(m.stack[n-2])
	return nil
}

// execRot implements (a, b, c) -> (b, c, a) where a sits third from
// the top.
func (m *Machine) execRot(proc string) error {
	n := len(m.stack)
	if n < 3 {
		return &StackUnderflowError{Proc: proc}
	}
	a, b, c := m.stack[n-3], m.stack[n-2], m.stack[n-1]
	m.stack[n-3], m.stack[n-2], m.stack[n-1] = b, c, a
	return nil
}

func boolToI64(v bool) int64 {
	if v {
		return 1
	}
	return 0
}

func (m *Machine) execCompare(proc string, op ir.Op) error {
	a, b, err := m.pop2(proc)
	if err != nil {
		return err
	}
	var r bool
	switch op {
	case ir.OpEq:
		r = a == b
	case ir.OpNeq:
		r = a != b
	case ir.OpLt:
		r = a < b
	case ir.OpGt:
		r = a > b
	case ir.OpLe:
		r = a <= b
	case ir.OpGe:
		r = a >= b
	}
	m.push(boolToI64(r))
	return nil
}

func (m *Machine) execBitwise(proc string, op ir.Op) error {
	a, b, err := m.pop2(proc)
	if err != nil {
		return err
	}
	switch op {
	case ir.OpAnd:
		m.push(a & b)
	case ir.OpOr:
		m.push(a | b)
	case ir.OpXor:
		m.push(a ^ b)
	case ir.OpShl:
		m.push(a << uint(b&63))
	case ir.OpShr:
		m.push(a >> uint(b&63))
	}
	return nil
}

func (m *Machine) execNot(proc string) error {
	n := len(m.stack)
	if n == 0 {
		return &StackUnderflowError{Proc: proc}
	}
	m.stack[n-1] = ^m.stack[n-1]
	return nil
}

func (m *Machine) execLoad(proc string, op ir.Op) error {
	width, _ := op.MemWidth()
	addr, err := m.pop(proc)
	if err != nil {
		return err
	}
	ptr := unsafe.Pointer(uintptr(addr))
	var v int64
	switch width {
	case 8:
		v = int64(*(*uint8)(ptr))
	case 16:
		v = int64(*(*uint16)(ptr))
	case 32:
		v = int64(*(*uint32)(ptr))
	case 64:
		v = int64(*(*uint64)(ptr))
	}
	m.push(v)
	return nil
}

func (m *Machine) execStore(proc string, op ir.Op) error {
	width, _ := op.MemWidth()
	value, err := m.pop(proc)
	if err != nil {
		return err
	}
	addr, err := m.pop(proc)
	if err != nil {
		return err
	}
	ptr := unsafe.Pointer(uintptr(addr))
	switch width {
	case 8:
		*(*uint8)(ptr) = uint8(value)
	case 16:
		*(*uint16)(ptr) = uint16(value)
	case 32:
		*(*uint32)(ptr) = uint32(value)
	case 64:
		*(*uint64)(ptr) = uint64(value)
	}
	return nil
}

func (m *Machine) execDump(proc string) error {
	v, err := m.pop(proc)
	if err != nil {
		return err
	}
	_, werr := m.stdout.WriteString(strconv.FormatInt(v, 10))
	return werr
}

func (m *Machine) execPuts(proc string) error {
	length, err := m.pop(proc)
	if err != nil {
		return err
	}
	addr, err := m.pop(proc)
	if err != nil {
		return err
	}
	if length == 0 {
		return nil
	}
	buf := unsafe.Slice((*byte)(unsafe.Pointer(uintptr(addr))), int(length))
	_, werr := m.stdout.Write(buf)
	return werr
}
