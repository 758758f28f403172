package codegen

import (
	"fmt"

	"github.com/concat-lang/concatc/ir"
)

// UnknownCallError reports a Call naming no declared procedure,
// caught at emission time since the generator has no separate
// semantic-analysis pass.
type UnknownCallError struct {
	Name string
}

func (e *UnknownCallError) Error() string {
	return fmt.Sprintf("call to undeclared procedure %q", e.Name)
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
