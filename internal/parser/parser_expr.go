package parser

import (
	"strconv"
	"strings"

	"github.com/ashlang/ashc/internal/ast"
	"github.com/ashlang/ashc/internal/errors"
	"github.com/ashlang/ashc/internal/lexer"
)

// Precedence levels, lowest first, driving the operator-precedence
// expression parser.
const (
	precLowest = iota
	precTernary
	precOr
	precAnd
	precNot
	precCompare
	precBitOr
	precBitXor
	precBitAnd
	precShift
	precAdd
	precMul
	precUnary
	precPower
)

// parseExpr parses a full expression including the ternary `if/else` and
// lambda forms.
func (p *Parser) parseExpr() ast.Expr {
	if p.check(lexer.LAMBDA) {
		return p.parseLambda()
	}
	return p.parseTernary()
}

// parseExprNoCompare parses the iterable of `for x in <iter>`. minPrec is
// not consulted: it parses an or-expression (no ternary, no lambda), which
// still includes comparisons such as `in`.
func (p *Parser) parseExprNoCompare(minPrec int) ast.Expr {
	return p.parseOr()
}

func (p *Parser) parseLambda() ast.Expr {
	start := p.here()
	p.advance()
	var params []*ast.Param
	for !p.check(lexer.COLON) && !p.atEOF() {
		pstart := p.here()
		param := &ast.Param{BaseNode: ast.BaseNode{Sp: pstart}}
		if p.match(lexer.STAR) {
			param.IsVararg = true
		} else if p.match(lexer.DSTAR) {
			param.IsKwarg = true
		}
		param.Name = p.expect(lexer.IDENT, errors.PAR001UnexpectedToken, "expected lambda parameter").Literal
		if p.match(lexer.ASSIGN) {
			param.Default = p.parseTernary()
		}
		params = append(params, param)
		if !p.match(lexer.COMMA) {
			break
		}
	}
	p.expect(lexer.COLON, errors.PAR001UnexpectedToken, "expected ':' after lambda parameters")
	body := p.parseExpr()
	return &ast.Lambda{ExprBase: ast.NewExprBase(start), Params: params, Body: body}
}

func (p *Parser) parseTernary() ast.Expr {
	start := p.here()
	then := p.parseOr()
	if !p.match(lexer.IF) {
		return then
	}
	cond := p.parseOr()
	p.expect(lexer.ELSE, errors.PAR001UnexpectedToken, "expected 'else' in conditional expression")
	els := p.parseExpr()
	return &ast.IfExp{ExprBase: ast.NewExprBase(start), Cond: cond, Then: then, Else: els}
}

func (p *Parser) parseOr() ast.Expr {
	start := p.here()
	left := p.parseAnd()
	if !p.check(lexer.OR) {
		return left
	}
	operands := []ast.Expr{left}
	for p.match(lexer.OR) {
		operands = append(operands, p.parseAnd())
	}
	return &ast.BoolOp{ExprBase: ast.NewExprBase(start), Op: "or", Operands: operands}
}

func (p *Parser) parseAnd() ast.Expr {
	start := p.here()
	left := p.parseNot()
	if !p.check(lexer.AND) {
		return left
	}
	operands := []ast.Expr{left}
	for p.match(lexer.AND) {
		operands = append(operands, p.parseNot())
	}
	return &ast.BoolOp{ExprBase: ast.NewExprBase(start), Op: "and", Operands: operands}
}

func (p *Parser) parseNot() ast.Expr {
	if p.check(lexer.NOT) {
		start := p.here()
		p.advance()
		x := p.parseNot()
		return &ast.UnaryExpr{ExprBase: ast.NewExprBase(start), Op: "not", X: x}
	}
	return p.parseComparison()
}

var compareOps = map[lexer.TokenType]string{
	lexer.LT: "<", lexer.LE: "<=", lexer.GT: ">", lexer.GE: ">=",
	lexer.EQ: "==", lexer.NE: "!=",
}

// parseComparison desugars chained comparisons:
// `a < b < c` becomes `BoolOp(and, [Compare(a<b), Compare(b<c)])`, each
// term a single-operator Compare -- the same node a parenthesized
// comparison parses to, so the unparser's output round-trips.
func (p *Parser) parseComparison() ast.Expr {
	start := p.here()
	first := p.parseBitOr()
	var ops []string
	operands := []ast.Expr{first}
	for {
		if op, ok := compareOps[p.cur().Type]; ok {
			p.advance()
			operands = append(operands, p.parseBitOr())
			ops = append(ops, op)
			continue
		}
		if p.check(lexer.IN) {
			p.advance()
			operands = append(operands, p.parseBitOr())
			ops = append(ops, "in")
			continue
		}
		if p.check(lexer.NOT) && p.peekAt(1).Type == lexer.IN {
			p.advance()
			p.advance()
			operands = append(operands, p.parseBitOr())
			ops = append(ops, "not in")
			continue
		}
		if p.check(lexer.IS) {
			p.advance()
			op := "is"
			if p.match(lexer.NOT) {
				op = "is not"
			}
			operands = append(operands, p.parseBitOr())
			ops = append(ops, op)
			continue
		}
		break
	}
	if len(ops) == 0 {
		return first
	}
	if len(ops) == 1 {
		return &ast.Compare{ExprBase: ast.NewExprBase(start), Ops: ops, Operands: operands}
	}
	var terms []ast.Expr
	for i, op := range ops {
		terms = append(terms, &ast.Compare{
			ExprBase: ast.NewExprBase(start),
			Ops:      []string{op},
			Operands: []ast.Expr{operands[i], operands[i+1]},
		})
	}
	return &ast.BoolOp{ExprBase: ast.NewExprBase(start), Op: "and", Operands: terms}
}

func (p *Parser) parseBitOr() ast.Expr {
	left := p.parseBitXor()
	for p.check(lexer.PIPE) {
		start := p.here()
		p.advance()
		right := p.parseBitXor()
		left = &ast.BinaryExpr{ExprBase: ast.NewExprBase(start), Op: "|", Left: left, Right: right}
	}
	return left
}

func (p *Parser) parseBitXor() ast.Expr {
	left := p.parseBitAnd()
	for p.check(lexer.CARET) {
		start := p.here()
		p.advance()
		right := p.parseBitAnd()
		left = &ast.BinaryExpr{ExprBase: ast.NewExprBase(start), Op: "^", Left: left, Right: right}
	}
	return left
}

func (p *Parser) parseBitAnd() ast.Expr {
	left := p.parseShift()
	for p.check(lexer.AMP) {
		start := p.here()
		p.advance()
		right := p.parseShift()
		left = &ast.BinaryExpr{ExprBase: ast.NewExprBase(start), Op: "&", Left: left, Right: right}
	}
	return left
}

func (p *Parser) parseShift() ast.Expr {
	left := p.parseAdd()
	for p.check(lexer.LSHIFT) || p.check(lexer.RSHIFT) {
		start := p.here()
		op := "<<"
		if p.cur().Type == lexer.RSHIFT {
			op = ">>"
		}
		p.advance()
		right := p.parseAdd()
		left = &ast.BinaryExpr{ExprBase: ast.NewExprBase(start), Op: op, Left: left, Right: right}
	}
	return left
}

func (p *Parser) parseAdd() ast.Expr {
	left := p.parseMul()
	for p.check(lexer.PLUS) || p.check(lexer.MINUS) {
		start := p.here()
		op := "+"
		if p.cur().Type == lexer.MINUS {
			op = "-"
		}
		p.advance()
		right := p.parseMul()
		left = &ast.BinaryExpr{ExprBase: ast.NewExprBase(start), Op: op, Left: left, Right: right}
	}
	return left
}

var mulOps = map[lexer.TokenType]string{
	lexer.STAR: "*", lexer.SLASH: "/", lexer.DSLASH: "//", lexer.PERCENT: "%",
}

func (p *Parser) parseMul() ast.Expr {
	left := p.parseUnary()
	for {
		op, ok := mulOps[p.cur().Type]
		if !ok {
			break
		}
		start := p.here()
		p.advance()
		right := p.parseUnary()
		left = &ast.BinaryExpr{ExprBase: ast.NewExprBase(start), Op: op, Left: left, Right: right}
	}
	return left
}

func (p *Parser) parseUnary() ast.Expr {
	switch p.cur().Type {
	case lexer.PLUS, lexer.MINUS, lexer.TILDE:
		start := p.here()
		op := p.advance().Literal
		x := p.parseUnary()
		return &ast.UnaryExpr{ExprBase: ast.NewExprBase(start), Op: op, X: x}
	case lexer.AWAIT:
		start := p.here()
		p.advance()
		x := p.parseUnary()
		return &ast.Await{ExprBase: ast.NewExprBase(start), X: x}
	}
	return p.parsePower()
}

func (p *Parser) parsePower() ast.Expr {
	start := p.here()
	base := p.parsePostfix(p.parseAtom())
	if p.match(lexer.DSTAR) {
		exp := p.parseUnary() // right-associative
		return &ast.BinaryExpr{ExprBase: ast.NewExprBase(start), Op: "**", Left: base, Right: exp}
	}
	return base
}

// parsePostfix handles call/attribute/subscript chains applied to an atom.
func (p *Parser) parsePostfix(x ast.Expr) ast.Expr {
	for {
		start := p.here()
		switch p.cur().Type {
		case lexer.DOT:
			p.advance()
			name := p.expect(lexer.IDENT, errors.PAR001UnexpectedToken, "expected attribute name after '.'").Literal
			x = &ast.Attribute{ExprBase: ast.NewExprBase(start), X: x, Name: name}
		case lexer.LPAREN:
			p.advance()
			call := &ast.CallExpr{ExprBase: ast.NewExprBase(start), Func: x, Kwargs: map[string]ast.Expr{}}
			for !p.check(lexer.RPAREN) && !p.atEOF() {
				if p.check(lexer.STAR) {
					p.advance()
					call.StarArgs = p.parseExpr()
				} else if p.check(lexer.IDENT) && p.peekAt(1).Type == lexer.ASSIGN {
					name := p.advance().Literal
					p.advance()
					call.Kwargs[name] = p.parseExpr()
				} else {
					call.Args = append(call.Args, p.parseExpr())
				}
				if !p.match(lexer.COMMA) {
					break
				}
			}
			p.expect(lexer.RPAREN, errors.PAR002MissingDelim, "expected ')' to close call arguments")
			x = call
		case lexer.LBRACK:
			p.advance()
			x = p.parseSubscriptTail(start, x)
		default:
			return x
		}
	}
}

func (p *Parser) parseSubscriptTail(start ast.Span, x ast.Expr) ast.Expr {
	var startE, stopE, stepE ast.Expr
	isSlice := false
	if !p.check(lexer.COLON) {
		startE = p.parseExpr()
	}
	if p.match(lexer.COLON) {
		isSlice = true
		if !p.check(lexer.COLON) && !p.check(lexer.RBRACK) {
			stopE = p.parseExpr()
		}
		if p.match(lexer.COLON) {
			if !p.check(lexer.RBRACK) {
				stepE = p.parseExpr()
			}
		}
	}
	p.expect(lexer.RBRACK, errors.PAR002MissingDelim, "expected ']' to close subscript")
	if isSlice {
		sl := &ast.Slice{ExprBase: ast.NewExprBase(start), Start: startE, Stop: stopE, Step: stepE}
		return &ast.Subscript{ExprBase: ast.NewExprBase(start), X: x, Index: sl}
	}
	return &ast.Subscript{ExprBase: ast.NewExprBase(start), X: x, Index: startE}
}

// parseAtom parses a primary expression: literal, identifier, parenthesized
// expression, collection display, or comprehension.
func (p *Parser) parseAtom() ast.Expr {
	start := p.here()
	tok := p.cur()
	switch tok.Type {
	case lexer.INT:
		p.advance()
		return parseIntLit(start, tok.Literal)
	case lexer.FLOAT:
		p.advance()
		v, _ := strconv.ParseFloat(strings.ReplaceAll(tok.Literal, "_", ""), 64)
		return &ast.FloatLit{ExprBase: ast.NewExprBase(start), Value: v}
	case lexer.COMPLEX:
		p.advance()
		lit := strings.TrimSuffix(strings.TrimSuffix(tok.Literal, "j"), "J")
		v, _ := strconv.ParseFloat(strings.ReplaceAll(lit, "_", ""), 64)
		return &ast.ComplexLit{ExprBase: ast.NewExprBase(start), Imag: v}
	case lexer.STRING:
		p.advance()
		return &ast.StringLit{ExprBase: ast.NewExprBase(start), Value: tok.Literal, IsRaw: strings.Contains(tok.StrPrefix, "r")}
	case lexer.BYTES:
		p.advance()
		return &ast.StringLit{ExprBase: ast.NewExprBase(start), Value: tok.Literal, IsBytes: true, IsRaw: strings.Contains(tok.StrPrefix, "r")}
	case lexer.FSTRING:
		p.advance()
		return p.parseFStringBody(start, tok.Literal)
	case lexer.TRUE:
		p.advance()
		return &ast.BoolLit{ExprBase: ast.NewExprBase(start), Value: true}
	case lexer.FALSE:
		p.advance()
		return &ast.BoolLit{ExprBase: ast.NewExprBase(start), Value: false}
	case lexer.NONE:
		p.advance()
		return &ast.NoneLit{ExprBase: ast.NewExprBase(start)}
	case lexer.IDENT:
		p.advance()
		if tok.Literal == "isinstance" && p.check(lexer.LPAREN) {
			return p.parseIsInstance(start)
		}
		return &ast.Ident{ExprBase: ast.NewExprBase(start), Name: tok.Literal}
	case lexer.AWAIT:
		p.advance()
		x := p.parseUnary()
		return &ast.Await{ExprBase: ast.NewExprBase(start), X: x}
	case lexer.YIELD:
		p.advance()
		if p.match(lexer.FROM) {
			return &ast.YieldFrom{ExprBase: ast.NewExprBase(start), X: p.parseExpr()}
		}
		y := &ast.Yield{ExprBase: ast.NewExprBase(start)}
		if !p.check(lexer.NEWLINE) && !p.check(lexer.RPAREN) && !p.atEOF() {
			y.Value = p.parseExpr()
		}
		return y
	case lexer.LPAREN:
		return p.parseParenOrTuple(start)
	case lexer.LBRACK:
		return p.parseListOrComp(start)
	case lexer.LBRACE:
		return p.parseSetOrDict(start)
	case lexer.STAR:
		p.advance()
		return &ast.Starred{ExprBase: ast.NewExprBase(start), X: p.parseUnary()}
	case lexer.LAMBDA:
		return p.parseLambda()
	}
	p.errorAt(errors.PAR001UnexpectedToken, "unexpected token in expression")
	p.advance()
	return &ast.Ident{ExprBase: ast.NewExprBase(start), Name: "<error>"}
}

func (p *Parser) parseIsInstance(start ast.Span) ast.Expr {
	p.advance() // '('
	x := p.parseExpr()
	p.expect(lexer.COMMA, errors.PAR001UnexpectedToken, "expected ',' in isinstance()")
	ty := p.parseTypeExpr()
	p.expect(lexer.RPAREN, errors.PAR002MissingDelim, "expected ')' to close isinstance()")
	return &ast.IsInstance{ExprBase: ast.NewExprBase(start), X: x, Type: ty}
}

func parseIntLit(start ast.Span, lit string) ast.Expr {
	clean := strings.ReplaceAll(lit, "_", "")
	var v int64
	var err error
	switch {
	case strings.HasPrefix(clean, "0x") || strings.HasPrefix(clean, "0X"):
		v, err = strconv.ParseInt(clean[2:], 16, 64)
	case strings.HasPrefix(clean, "0o") || strings.HasPrefix(clean, "0O"):
		v, err = strconv.ParseInt(clean[2:], 8, 64)
	case strings.HasPrefix(clean, "0b") || strings.HasPrefix(clean, "0B"):
		v, err = strconv.ParseInt(clean[2:], 2, 64)
	default:
		v, err = strconv.ParseInt(clean, 10, 64)
	}
	if err != nil {
		// Overflows int64: promoted to an arbitrary-precision literal
		// rather than a lexical/parse failure.
		return &ast.IntLit{ExprBase: ast.NewExprBase(start), Big: clean}
	}
	return &ast.IntLit{ExprBase: ast.NewExprBase(start), Value: v}
}

func (p *Parser) parseParenOrTuple(start ast.Span) ast.Expr {
	p.advance()
	if p.match(lexer.RPAREN) {
		return &ast.TupleExpr{ExprBase: ast.NewExprBase(start)}
	}
	first := p.parseExpr()
	if clauses, ok := p.tryParseCompClauses(); ok {
		p.expect(lexer.RPAREN, errors.PAR002MissingDelim, "expected ')' to close generator expression")
		return &ast.GeneratorExp{ExprBase: ast.NewExprBase(start), Elt: first, Clauses: clauses}
	}
	if !p.check(lexer.COMMA) {
		p.expect(lexer.RPAREN, errors.PAR002MissingDelim, "expected ')' to close parenthesized expression")
		return first
	}
	elts := []ast.Expr{first}
	for p.match(lexer.COMMA) {
		if p.check(lexer.RPAREN) {
			break
		}
		elts = append(elts, p.parseExpr())
	}
	p.expect(lexer.RPAREN, errors.PAR002MissingDelim, "expected ')' to close tuple")
	return &ast.TupleExpr{ExprBase: ast.NewExprBase(start), Elts: elts}
}

func (p *Parser) parseListOrComp(start ast.Span) ast.Expr {
	p.advance()
	if p.match(lexer.RBRACK) {
		return &ast.ListExpr{ExprBase: ast.NewExprBase(start)}
	}
	first := p.parseExpr()
	if clauses, ok := p.tryParseCompClauses(); ok {
		p.expect(lexer.RBRACK, errors.PAR002MissingDelim, "expected ']' to close list comprehension")
		return &ast.ListComp{ExprBase: ast.NewExprBase(start), Elt: first, Clauses: clauses}
	}
	elts := []ast.Expr{first}
	for p.match(lexer.COMMA) {
		if p.check(lexer.RBRACK) {
			break
		}
		elts = append(elts, p.parseExpr())
	}
	p.expect(lexer.RBRACK, errors.PAR002MissingDelim, "expected ']' to close list")
	return &ast.ListExpr{ExprBase: ast.NewExprBase(start), Elts: elts}
}

func (p *Parser) parseSetOrDict(start ast.Span) ast.Expr {
	p.advance()
	if p.match(lexer.RBRACE) {
		return &ast.DictExpr{ExprBase: ast.NewExprBase(start)}
	}
	if p.match(lexer.DSTAR) {
		entries := []ast.DictEntry{{Key: nil, Value: p.parseExpr()}}
		for p.match(lexer.COMMA) {
			entries = append(entries, p.parseDictEntry())
		}
		p.expect(lexer.RBRACE, errors.PAR002MissingDelim, "expected '}' to close dict")
		return &ast.DictExpr{ExprBase: ast.NewExprBase(start), Entries: entries}
	}
	first := p.parseExpr()
	if p.match(lexer.COLON) {
		value := p.parseExpr()
		if clauses, ok := p.tryParseCompClauses(); ok {
			p.expect(lexer.RBRACE, errors.PAR002MissingDelim, "expected '}' to close dict comprehension")
			return &ast.DictComp{ExprBase: ast.NewExprBase(start), Key: first, Value: value, Clauses: clauses}
		}
		entries := []ast.DictEntry{{Key: first, Value: value}}
		for p.match(lexer.COMMA) {
			if p.check(lexer.RBRACE) {
				break
			}
			entries = append(entries, p.parseDictEntry())
		}
		p.expect(lexer.RBRACE, errors.PAR002MissingDelim, "expected '}' to close dict")
		return &ast.DictExpr{ExprBase: ast.NewExprBase(start), Entries: entries}
	}
	if clauses, ok := p.tryParseCompClauses(); ok {
		p.expect(lexer.RBRACE, errors.PAR002MissingDelim, "expected '}' to close set comprehension")
		return &ast.SetComp{ExprBase: ast.NewExprBase(start), Elt: first, Clauses: clauses}
	}
	elts := []ast.Expr{first}
	for p.match(lexer.COMMA) {
		if p.check(lexer.RBRACE) {
			break
		}
		elts = append(elts, p.parseExpr())
	}
	p.expect(lexer.RBRACE, errors.PAR002MissingDelim, "expected '}' to close set")
	return &ast.SetExpr{ExprBase: ast.NewExprBase(start), Elts: elts}
}

func (p *Parser) parseDictEntry() ast.DictEntry {
	if p.match(lexer.DSTAR) {
		return ast.DictEntry{Key: nil, Value: p.parseExpr()}
	}
	key := p.parseExpr()
	p.expect(lexer.COLON, errors.PAR001UnexpectedToken, "expected ':' in dict entry")
	value := p.parseExpr()
	return ast.DictEntry{Key: key, Value: value}
}

// tryParseCompClauses parses `for x in y if g ...` clauses if present, used
// by every comprehension/generator-expression form.
func (p *Parser) tryParseCompClauses() ([]ast.CompClause, bool) {
	if !p.check(lexer.FOR) && !(p.check(lexer.ASYNC) && p.peekAt(1).Type == lexer.FOR) {
		return nil, false
	}
	var clauses []ast.CompClause
	for p.check(lexer.FOR) || (p.check(lexer.ASYNC) && p.peekAt(1).Type == lexer.FOR) {
		isAsync := p.match(lexer.ASYNC)
		p.expect(lexer.FOR, errors.PAR001UnexpectedToken, "expected 'for' in comprehension")
		target := p.parseTargetList()
		p.expect(lexer.IN, errors.PAR001UnexpectedToken, "expected 'in' in comprehension")
		iter := p.parseOr()
		clause := ast.CompClause{Target: target, Iter: iter, IsAsync: isAsync}
		for p.match(lexer.IF) {
			clause.Ifs = append(clause.Ifs, p.parseOr())
		}
		clauses = append(clauses, clause)
	}
	return clauses, true
}

// parseFStringBody splits an f-string's content into literal/expression
// parts, lexing each `{expr}` span as an independent expression parse
// (a nested lexical context, realized as a recursive
// invocation of the lexer+parser over the embedded span rather than a
// separate token-level nesting, since the outer lexer already delivered
// the whole literal as one token).
func (p *Parser) parseFStringBody(start ast.Span, content string) ast.Expr {
	var parts []ast.FStringPart
	i := 0
	for i < len(content) {
		j := strings.IndexByte(content[i:], '{')
		if j < 0 {
			parts = append(parts, ast.FStringPart{Text: content[i:]})
			break
		}
		j += i
		if j > i {
			parts = append(parts, ast.FStringPart{Text: content[i:j]})
		}
		depth := 1
		k := j + 1
		for k < len(content) && depth > 0 {
			switch content[k] {
			case '{':
				depth++
			case '}':
				depth--
			}
			if depth == 0 {
				break
			}
			k++
		}
		exprSrc := content[j+1 : k]
		spec := ""
		if idx := strings.IndexByte(exprSrc, ':'); idx >= 0 {
			spec = exprSrc[idx+1:]
			exprSrc = exprSrc[:idx]
		}
		sub := New(start.File, lexStr(exprSrc))
		expr := sub.parseExpr()
		parts = append(parts, ast.FStringPart{Expr: expr, Spec: spec})
		i = k + 1
	}
	return &ast.FString{ExprBase: ast.NewExprBase(start), Parts: parts}
}

// lexStr tokenizes a sub-expression pulled from inside an f-string
// interpolation.
func lexStr(src string) []lexer.Token {
	l := lexer.New("<fstring>", []byte(src))
	toks, _ := l.Tokenize()
	return toks
}
