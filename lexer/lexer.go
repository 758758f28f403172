// Package lexer turns concatc source text into a stream of tokens.
package lexer

import (
	"strings"
	"unicode"

	"github.com/concat-lang/concatc/token"
)

// Lexer holds our object-state.
type Lexer struct {
	position     int    // current character position
	readPosition int    // next character position
	ch           rune   // current character
	line         int    // 1-based line of ch
	characters   []rune // rune slice of input string
}

// New builds a Lexer over the given source text.
func New(input string) *Lexer {
	l := &Lexer{characters: []rune(input), line: 1}
	l.readChar()
	return l
}

// read one character forward
func (l *Lexer) readChar() {
	if l.ch == '\n' {
		l.line++
	}
	if l.readPosition >= len(l.characters) {
		l.ch = rune(0)
	} else {
		l.ch = l.characters[l.readPosition]
	}
	l.position = l.readPosition
	l.readPosition++
}

// NextToken reads and returns the next token, skipping whitespace and
// comments.
func (l *Lexer) NextToken() token.Token {
	l.skipWhitespaceAndComments()

	line := l.line

	switch l.ch {
	case '+':
		tok := l.newToken(token.PLUS, line)
		l.readChar()
		return tok
	case '-':
		// "-3" is a negative literal; "3 - 4" tokenises as NUMBER MINUS NUMBER.
		if isDigit(l.peekChar()) {
			l.readChar()
			tok := l.readNumber()
			tok.Literal = "-" + tok.Literal
			tok.Line = line
			return tok
		}
		tok := l.newToken(token.MINUS, line)
		l.readChar()
		return tok
	case '*':
		tok := l.newToken(token.ASTERISK, line)
		l.readChar()
		return tok
	case '/':
		tok := l.newToken(token.SLASH, line)
		l.readChar()
		return tok
	case '%':
		tok := l.newToken(token.PERCENT, line)
		l.readChar()
		return tok
	case '"':
		str, err := l.readString()
		if err != nil {
			return token.Token{Kind: token.ERROR, Literal: err.Error(), Line: line}
		}
		return token.Token{Kind: token.STRING, Literal: str, Line: line}
	case rune(0):
		return token.Token{Kind: token.EOF, Line: line}
	default:
		if isDigit(l.ch) {
			tok := l.readNumber()
			tok.Line = line
			return tok
		}
		if isIdentStart(l.ch) {
			lit := l.readIdentifier()
			return token.Token{Kind: token.LookupIdentifier(lit), Literal: lit, Line: line}
		}
		unexpected := l.ch
		l.readChar()
		return token.Token{Kind: token.ERROR, Literal: "unexpected character " + string(unexpected), Line: line}
	}
}

func (l *Lexer) newToken(kind token.Kind, line int) token.Token {
	return token.Token{Kind: kind, Literal: string(l.ch), Line: line}
}

// skipWhitespaceAndComments advances past whitespace and "#"-prefixed
// line comments.
func (l *Lexer) skipWhitespaceAndComments() {
	for {
		if isWhitespace(l.ch) {
			l.readChar()
			continue
		}
		if l.ch == '#' {
			for l.ch != '\n' && l.ch != rune(0) {
				l.readChar()
			}
			continue
		}
		break
	}
}

// readNumber reads a run of digits into a NUMBER token.
func (l *Lexer) readNumber() token.Token {
	start := l.position
	for isDigit(l.ch) {
		l.readChar()
	}
	return token.Token{Kind: token.NUMBER, Literal: string(l.characters[start:l.position])}
}

// readString reads a double-quoted string literal, interpreting the
// \n \t \r \\ \" escapes. The opening quote must be the current rune.
func (l *Lexer) readString() (string, error) {
	l.readChar() // consume opening quote

	var b strings.Builder
	for {
		switch l.ch {
		case '"':
			l.readChar() // consume closing quote
			return b.String(), nil
		case rune(0):
			return "", errUnterminatedString
		case '\\':
			l.readChar()
			switch l.ch {
			case 'n':
				b.WriteByte('\n')
			case 't':
				b.WriteByte('\t')
			case 'r':
				b.WriteByte('\r')
			case '\\':
				b.WriteByte('\\')
			case '"':
				b.WriteByte('"')
			default:
				return "", errBadEscape
			}
			l.readChar()
		default:
			b.WriteRune(l.ch)
			l.readChar()
		}
	}
}

// peekChar looks one character ahead without consuming it.
func (l *Lexer) peekChar() rune {
	if l.readPosition >= len(l.characters) {
		return rune(0)
	}
	return l.characters[l.readPosition]
}

func isWhitespace(ch rune) bool {
	return ch == ' ' || ch == '\t' || ch == '\n' || ch == '\r'
}

func isDigit(ch rune) bool {
	return '0' <= ch && ch <= '9'
}

// isIdentStart reports whether ch may begin an identifier: a letter or
// underscore. Anything else (symbols, control characters) that isn't
// whitespace, a digit or a recognised single-char token is an
// unexpected character.
func isIdentStart(ch rune) bool {
	return ch == '_' || unicode.IsLetter(ch)
}

// isIdentPart reports whether ch may continue an identifier begun by
// isIdentStart.
func isIdentPart(ch rune) bool {
	return isIdentStart(ch) || isDigit(ch)
}

// readIdentifier reads a run of identifier characters.
func (l *Lexer) readIdentifier() string {
	start := l.position
	for isIdentPart(l.ch) {
		l.readChar()
	}
	return string(l.characters[start:l.position])
}
