package interp

import (
	"fmt"
	"strings"

	"github.com/concat-lang/concatc/ir"
)

// StackUnderflowError reports an instruction that needed more operands
// than the stack held, inside the named procedure.
type StackUnderflowError struct {
	Proc string
}

func (e *StackUnderflowError) Error() string {
	return fmt.Sprintf("stack underflow in %s", e.Proc)
}

// UnknownCallError reports a Call to a name with no matching proc/const.
type UnknownCallError struct {
	Name string
}

func (e *UnknownCallError) Error() string {
	return fmt.Sprintf("call to undeclared procedure %q", e.Name)
}

// DivideByZeroError reports a Div or Mod with a zero divisor.
type DivideByZeroError struct {
	Proc string
}

func (e *DivideByZeroError) Error() string {
	return fmt.Sprintf("division by zero in %s", e.Proc)
}

// TraceError wraps a failure with the chain of procedure calls active
// when it occurred, outermost first (e.g. "main -> sum_of_squares ->
// square").
type TraceError struct {
	Err   error
	Trace []string
}

func (e *TraceError) Error() string {
	return fmt.Sprintf("%s (call chain: %s)", e.Err, strings.Join(e.Trace, " -> "))
}

func (e *TraceError) Unwrap() error {
	return e.Err
}

// UnsupportedCastError reports a procedure whose declared return type
// requires a floating-point cast, which the integer-only operand stack
// cannot perform.
type UnsupportedCastError struct {
	Type ir.Type
}

func (e *UnsupportedCastError) Error() string {
	return fmt.Sprintf("return cast to %s is not supported on the integer operand stack", e.Type)
}
