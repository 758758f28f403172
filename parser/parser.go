// Package parser converts a concatc token stream into an ir.Program.
package parser

import (
	"strconv"

	"github.com/pkg/errors"

	"github.com/concat-lang/concatc/ir"
	"github.com/concat-lang/concatc/lexer"
	"github.com/concat-lang/concatc/token"
)

// Parser holds our object-state: the fully lexed token buffer and a
// read cursor. Lexing and parsing are separate passes: the whole
// source is tokenized up front before the cursor walks it.
type Parser struct {
	tokens []token.Token
	pos    int
}

// Parse lexes and parses a complete concatc source file into a
// validated ir.Program.
func Parse(source string) (*ir.Program, error) {
	toks, err := lexAll(source)
	if err != nil {
		return nil, err
	}

	p := &Parser{tokens: toks}
	decls, err := p.parseProgram()
	if err != nil {
		return nil, err
	}

	prog := ir.NewProgram(decls)
	if err := prog.Validate(); err != nil {
		return nil, errors.Wrap(err, "parser")
	}
	return prog, nil
}

// lexAll drains the lexer into a token slice, turning the first
// ERROR token into a LexError.
func lexAll(source string) ([]token.Token, error) {
	l := lexer.New(source)
	var toks []token.Token
	for {
		tok := l.NextToken()
		if tok.Kind == token.ERROR {
			return nil, &LexError{Line: tok.Line, Message: tok.Literal}
		}
		toks = append(toks, tok)
		if tok.Kind == token.EOF {
			break
		}
	}
	return toks, nil
}

func (p *Parser) peek() token.Token {
	return p.tokens[p.pos]
}

func (p *Parser) advance() token.Token {
	tok := p.tokens[p.pos]
	if tok.Kind != token.EOF {
		p.pos++
	}
	return tok
}

func (p *Parser) expect(kind token.Kind) (token.Token, error) {
	tok := p.advance()
	if tok.Kind != kind {
		return tok, &ParseError{Line: tok.Line, Message: "expected " + string(kind) + ", got " + describe(tok)}
	}
	return tok, nil
}

func describe(tok token.Token) string {
	if tok.Kind == token.EOF {
		return "end of input"
	}
	return string(tok.Kind) + " " + strconv.Quote(tok.Literal)
}

// parseProgram parses the top-level sequence of proc/const
// declarations.
func (p *Parser) parseProgram() ([]*ir.Proc, error) {
	var decls []*ir.Proc
	for p.peek().Kind != token.EOF {
		switch p.peek().Kind {
		case token.PROC:
			decl, err := p.parseProc()
			if err != nil {
				return nil, err
			}
			decls = append(decls, decl)
		case token.CONST:
			decl, err := p.parseConst()
			if err != nil {
				return nil, err
			}
			decls = append(decls, decl)
		default:
			tok := p.peek()
			return nil, &ParseError{Line: tok.Line, Message: "expected proc or const declaration, got " + describe(tok)}
		}
	}
	return decls, nil
}

// parseProc parses "proc" NAME TYPE* ("ret" TYPE)? "in" BODY "end".
func (p *Parser) parseProc() (*ir.Proc, error) {
	procTok, err := p.expect(token.PROC)
	if err != nil {
		return nil, err
	}

	nameTok, err := p.expect(token.IDENT)
	if err != nil {
		return nil, errors.Wrap(err, "proc name")
	}

	var params []ir.Type
	for {
		t, ok := ir.TypeFromToken(p.peek().Kind)
		if !ok {
			break
		}
		params = append(params, t)
		p.advance()
	}

	retType := ir.TypeVoid
	if p.peek().Kind == token.RET {
		p.advance()
		t, ok := ir.TypeFromToken(p.peek().Kind)
		if !ok {
			tok := p.peek()
			return nil, &ParseError{Line: tok.Line, Message: "expected a return type after 'ret', got " + describe(tok)}
		}
		retType = t
		p.advance()
	}

	if _, err := p.expect(token.IN); err != nil {
		return nil, errors.Wrapf(err, "proc %s", nameTok.Literal)
	}

	body, err := p.parseBody()
	if err != nil {
		return nil, errors.Wrapf(err, "proc %s", nameTok.Literal)
	}

	return &ir.Proc{
		Name:   nameTok.Literal,
		Params: params,
		Ret:    retType,
		Body:   body,
		Line:   procTok.Line,
	}, nil
}

// parseConst parses "const" NAME "in" BODY "end".
func (p *Parser) parseConst() (*ir.Proc, error) {
	constTok, err := p.expect(token.CONST)
	if err != nil {
		return nil, err
	}

	nameTok, err := p.expect(token.IDENT)
	if err != nil {
		return nil, errors.Wrap(err, "const name")
	}

	if _, err := p.expect(token.IN); err != nil {
		return nil, errors.Wrapf(err, "const %s", nameTok.Literal)
	}

	body, err := p.parseBody()
	if err != nil {
		return nil, errors.Wrapf(err, "const %s", nameTok.Literal)
	}

	return &ir.Proc{
		Name:    nameTok.Literal,
		Ret:     ir.TypeVoid,
		Body:    body,
		IsConst: true,
		Line:    constTok.Line,
	}, nil
}

// parseBody parses instructions up to and including the closing "end",
// appending the implicit trailing Ret every body gets.
func (p *Parser) parseBody() ([]ir.Instr, error) {
	var body []ir.Instr
	for {
		tok := p.peek()
		if tok.Kind == token.END {
			p.advance()
			break
		}
		if tok.Kind == token.EOF {
			return nil, &ParseError{Line: tok.Line, Message: "missing 'end'"}
		}
		instr, err := p.parseInstr()
		if err != nil {
			return nil, err
		}
		body = append(body, instr)
	}
	body = append(body, ir.Instr{Op: ir.OpRet})
	return body, nil
}

var simpleOps = map[token.Kind]ir.Op{
	token.PLUS: ir.OpAdd, token.MINUS: ir.OpSub, token.ASTERISK: ir.OpMul,
	token.SLASH: ir.OpDiv, token.PERCENT: ir.OpMod,

	token.DUP: ir.OpDup, token.SWAP: ir.OpSwap, token.DROP: ir.OpDrop,
	token.OVER: ir.OpOver, token.ROT: ir.OpRot,

	token.EQ: ir.OpEq, token.NEQ: ir.OpNeq, token.LT: ir.OpLt,
	token.GT: ir.OpGt, token.LE: ir.OpLe, token.GE: ir.OpGe,

	token.AND: ir.OpAnd, token.OR: ir.OpOr, token.XOR: ir.OpXor,
	token.NOT: ir.OpNot, token.SHL: ir.OpShl, token.SHR: ir.OpShr,

	token.LOAD8: ir.OpLoad8, token.LOAD16: ir.OpLoad16,
	token.LOAD32: ir.OpLoad32, token.LOAD64: ir.OpLoad64,
	token.STORE8: ir.OpStore8, token.STORE16: ir.OpStore16,
	token.STORE32: ir.OpStore32, token.STORE64: ir.OpStore64,

	token.DUMP: ir.OpDump, token.PUTS: ir.OpPuts,

	token.SYSCALL0: ir.OpSyscall0, token.SYSCALL1: ir.OpSyscall1,
	token.SYSCALL2: ir.OpSyscall2, token.SYSCALL3: ir.OpSyscall3,
	token.SYSCALL4: ir.OpSyscall4, token.SYSCALL5: ir.OpSyscall5,
	token.SYSCALL6: ir.OpSyscall6,
}

// parseInstr parses a single body instruction.
func (p *Parser) parseInstr() (ir.Instr, error) {
	tok := p.advance()

	if op, ok := simpleOps[tok.Kind]; ok {
		return ir.Instr{Op: op, Line: tok.Line}, nil
	}

	switch tok.Kind {
	case token.NUMBER:
		v, err := strconv.ParseInt(tok.Literal, 10, 64)
		if err != nil {
			return ir.Instr{}, &ParseError{Line: tok.Line, Message: "invalid integer literal " + strconv.Quote(tok.Literal)}
		}
		return ir.Instr{Op: ir.OpPushI64, Int64: v, Line: tok.Line}, nil
	case token.STRING:
		return ir.Instr{Op: ir.OpPushStr, Str: tok.Literal, Line: tok.Line}, nil
	case token.IDENT:
		return ir.Instr{Op: ir.OpCall, Name: tok.Literal, Line: tok.Line}, nil
	}

	return ir.Instr{}, &ParseError{Line: tok.Line, Message: "unexpected token " + describe(tok)}
}
