package ir

import "errors"

// errMissingMain is wrapped by the parser with phase context; it
// is also checked directly by codegen before emission begins, so a
// missing main is signalled before any code is emitted.
var errMissingMain = errors.New("no procedure named \"main\" declared")

// ErrMissingMain is the sentinel callers can match with errors.Is.
var ErrMissingMain = errMissingMain
