// Package parser turns a token stream from internal/lexer into the AST
// defined in internal/ast: recursive descent for statements, Pratt-style
// operator precedence for expressions, over Ash's indentation-significant
// grammar -- `def`, `class`, `if/elif/else`, `for/while`,
// `try/except/finally`, `with`, `async def`, `await`, `yield`,
// comprehensions, decorators, `import`/`from...import`.
package parser

import (
	"github.com/ashlang/ashc/internal/ast"
	"github.com/ashlang/ashc/internal/errors"
	"github.com/ashlang/ashc/internal/lexer"
)

// Parser consumes a fully buffered token slice. It records each syntax
// error with a span and message and keeps parsing, so one run reports
// every error in the file.
type Parser struct {
	file   string
	toks   []lexer.Token
	pos    int
	errs   []*errors.Report
}

// New creates a Parser over an already-tokenized file.
func New(file string, toks []lexer.Token) *Parser {
	// Filter out comment tokens; the parser never needs them.
	filtered := make([]lexer.Token, 0, len(toks))
	for _, t := range toks {
		if t.Type != lexer.COMMENT {
			filtered = append(filtered, t)
		}
	}
	return &Parser{file: file, toks: filtered}
}

// Parse returns the Program node for the file plus any syntax errors.
// Parsing never panics: an unexpected token is recorded as an error and
// consumed, and parsing carries on from the next token. Only a malformed
// `from ... import` is skipped whole to the next NEWLINE/DEDENT boundary.
func (p *Parser) Parse() (*ast.Program, []*errors.Report) {
	start := p.here()
	prog := &ast.Program{BaseNode: ast.BaseNode{Sp: start}}
	for !p.atEOF() {
		p.skipNewlines()
		if p.atEOF() {
			break
		}
		if p.check(lexer.IMPORT) || p.check(lexer.FROM) {
			imp := p.parseImport()
			if imp != nil {
				prog.Imports = append(prog.Imports, imp)
			}
			continue
		}
		stmt := p.parseStatement()
		if stmt != nil {
			prog.Body = append(prog.Body, stmt)
		}
	}
	return prog, p.errs
}

// --- token stream helpers -------------------------------------------------

func (p *Parser) here() ast.Span {
	t := p.cur()
	return ast.Span{File: p.file, Line: t.Line, Column: t.Column, Offset: t.Offset, Length: t.Length}
}

func (p *Parser) cur() lexer.Token {
	if p.pos >= len(p.toks) {
		return p.toks[len(p.toks)-1] // EOF sentinel
	}
	return p.toks[p.pos]
}

func (p *Parser) peekAt(k int) lexer.Token {
	idx := p.pos + k
	if idx >= len(p.toks) {
		return p.toks[len(p.toks)-1]
	}
	return p.toks[idx]
}

func (p *Parser) atEOF() bool { return p.cur().Type == lexer.EOF }

func (p *Parser) check(tt lexer.TokenType) bool { return p.cur().Type == tt }

func (p *Parser) advance() lexer.Token {
	t := p.cur()
	if p.pos < len(p.toks)-1 {
		p.pos++
	}
	return t
}

func (p *Parser) match(tt lexer.TokenType) bool {
	if p.check(tt) {
		p.advance()
		return true
	}
	return false
}

func (p *Parser) expect(tt lexer.TokenType, code, msg string) lexer.Token {
	if p.check(tt) {
		return p.advance()
	}
	p.errorAt(code, msg)
	return p.cur()
}

func (p *Parser) errorAt(code, msg string) {
	span := p.here()
	p.errs = append(p.errs, errors.New(code, msg, &span))
}

func (p *Parser) skipNewlines() {
	for p.check(lexer.NEWLINE) {
		p.advance()
	}
}

// syncToStmtBoundary implements the "skip to the next statement boundary"
// recovery policy: advance past tokens until a NEWLINE,
// DEDENT, or EOF is seen.
func (p *Parser) syncToStmtBoundary() {
	for !p.atEOF() && !p.check(lexer.NEWLINE) && !p.check(lexer.DEDENT) {
		p.advance()
	}
	p.match(lexer.NEWLINE)
}

// parseBlock parses an indented suite: NEWLINE INDENT stmt+ DEDENT, or a
// single simple-statement suite on the same line after ':' (`if x: return`).
func (p *Parser) parseBlock() []ast.Stmt {
	if p.match(lexer.NEWLINE) {
		p.expect(lexer.INDENT, errors.PAR001UnexpectedToken, "expected an indented block")
		var body []ast.Stmt
		for !p.check(lexer.DEDENT) && !p.atEOF() {
			p.skipNewlines()
			if p.check(lexer.DEDENT) || p.atEOF() {
				break
			}
			if s := p.parseStatement(); s != nil {
				body = append(body, s)
			}
		}
		p.match(lexer.DEDENT)
		return body
	}
	// Single simple statement on the same logical line.
	var body []ast.Stmt
	s := p.parseSimpleStatement()
	if s != nil {
		body = append(body, s)
	}
	for p.match(lexer.SEMI) {
		if s := p.parseSimpleStatement(); s != nil {
			body = append(body, s)
		}
	}
	p.match(lexer.NEWLINE)
	return body
}
