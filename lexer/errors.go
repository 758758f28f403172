package lexer

import "errors"

var (
	errUnterminatedString = errors.New("unterminated string literal")
	errBadEscape          = errors.New("unsupported escape sequence")
)
