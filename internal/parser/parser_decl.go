package parser

import (
	"github.com/ashlang/ashc/internal/ast"
	"github.com/ashlang/ashc/internal/errors"
	"github.com/ashlang/ashc/internal/lexer"
)

// parseImport handles `import a.b.c` and `from a.b import c, d as e`.
func (p *Parser) parseImport() *ast.Import {
	start := p.here()
	imp := &ast.Import{StmtBase: ast.NewStmtBase(start)}
	if p.match(lexer.FROM) {
		imp.From = p.parseDottedName()
		if !p.match(lexer.IMPORT) {
			p.errorAt(errors.PAR005BadImport, "expected 'import' after 'from' module path")
			p.syncToStmtBoundary()
			return imp
		}
		if p.match(lexer.STAR) {
			imp.Names = append(imp.Names, "*")
			imp.Aliases = append(imp.Aliases, "")
		} else {
			for {
				name := p.expect(lexer.IDENT, errors.PAR005BadImport, "expected imported name").Literal
				alias := ""
				if p.match(lexer.AS) {
					alias = p.expect(lexer.IDENT, errors.PAR005BadImport, "expected alias name").Literal
				}
				imp.Names = append(imp.Names, name)
				imp.Aliases = append(imp.Aliases, alias)
				if !p.match(lexer.COMMA) {
					break
				}
			}
		}
	} else {
		p.expect(lexer.IMPORT, errors.PAR005BadImport, "expected 'import'")
		for {
			name := p.parseDottedName()
			alias := ""
			if p.match(lexer.AS) {
				alias = p.expect(lexer.IDENT, errors.PAR005BadImport, "expected alias name").Literal
			}
			imp.Names = append(imp.Names, name)
			imp.Aliases = append(imp.Aliases, alias)
			if !p.match(lexer.COMMA) {
				break
			}
		}
	}
	p.match(lexer.NEWLINE)
	return imp
}

func (p *Parser) parseDottedName() string {
	name := p.expect(lexer.IDENT, errors.PAR005BadImport, "expected module name").Literal
	for p.check(lexer.DOT) && p.peekAt(1).Type == lexer.IDENT {
		p.advance()
		name += "." + p.advance().Literal
	}
	return name
}

// parseStatement dispatches to a compound or simple statement.
func (p *Parser) parseStatement() ast.Stmt {
	var decorators []ast.Expr
	for p.check(lexer.AT) {
		p.advance()
		decorators = append(decorators, p.parseExpr())
		p.match(lexer.NEWLINE)
	}
	switch p.cur().Type {
	case lexer.DEF:
		return p.parseFuncDecl(false, decorators)
	case lexer.ASYNC:
		p.advance()
		p.expect(lexer.DEF, errors.PAR003BadFuncDecl, "expected 'def' after 'async'")
		return p.parseFuncDeclBody(true, decorators)
	case lexer.CLASS:
		return p.parseClassDecl()
	case lexer.IF:
		return p.parseIf()
	case lexer.WHILE:
		return p.parseWhile()
	case lexer.FOR:
		return p.parseFor(false)
	case lexer.TRY:
		return p.parseTry()
	case lexer.WITH:
		return p.parseWith(false)
	}
	s := p.parseSimpleStatement()
	for p.match(lexer.SEMI) {
		p.parseSimpleStatement()
	}
	p.match(lexer.NEWLINE)
	return s
}

func (p *Parser) parseFuncDecl(isAsync bool, decorators []ast.Expr) ast.Stmt {
	p.expect(lexer.DEF, errors.PAR003BadFuncDecl, "expected 'def'")
	return p.parseFuncDeclBody(isAsync, decorators)
}

func (p *Parser) parseFuncDeclBody(isAsync bool, decorators []ast.Expr) ast.Stmt {
	start := p.here()
	name := p.expect(lexer.IDENT, errors.PAR003BadFuncDecl, "expected function name").Literal
	p.expect(lexer.LPAREN, errors.PAR003BadFuncDecl, "expected '(' after function name")
	params := p.parseParamList()
	p.expect(lexer.RPAREN, errors.PAR003BadFuncDecl, "expected ')' to close parameter list")
	var ret *ast.TypeExpr
	if p.match(lexer.ARROW) {
		ret = p.parseTypeExpr()
	}
	p.expect(lexer.COLON, errors.PAR003BadFuncDecl, "expected ':' before function body")
	fn := &ast.FuncDecl{
		StmtBase:   ast.NewStmtBase(start),
		Name:       name,
		Params:     params,
		ReturnType: ret,
		IsAsync:    isAsync,
		Decorators: decorators,
	}
	fn.Body = p.parseBlock()
	fn.IsGenerator = bodyContainsYield(fn.Body)
	return fn
}

func bodyContainsYield(body []ast.Stmt) bool {
	found := false
	var visit func(n ast.Node)
	visit = func(n ast.Node) {
		if found || n == nil {
			return
		}
		ast.Walk(n, func(child ast.Node) bool {
			switch child.(type) {
			case *ast.Yield, *ast.YieldFrom:
				found = true
				return false
			case *ast.FuncDecl, *ast.Lambda:
				// Nested function defines its own generator-ness.
				return false
			}
			return true
		})
	}
	for _, s := range body {
		visit(s)
	}
	return found
}

func (p *Parser) parseParamList() []*ast.Param {
	var params []*ast.Param
	for !p.check(lexer.RPAREN) && !p.atEOF() {
		start := p.here()
		param := &ast.Param{BaseNode: ast.BaseNode{Sp: start}}
		if p.match(lexer.DSTAR) {
			param.IsKwarg = true
		} else if p.match(lexer.STAR) {
			param.IsVararg = true
		}
		param.Name = p.expect(lexer.IDENT, errors.PAR003BadFuncDecl, "expected parameter name").Literal
		if p.match(lexer.COLON) {
			param.Type = p.parseTypeExpr()
		}
		if p.match(lexer.ASSIGN) {
			param.Default = p.parseExpr()
		}
		params = append(params, param)
		if !p.match(lexer.COMMA) {
			break
		}
	}
	return params
}

func (p *Parser) parseClassDecl() ast.Stmt {
	start := p.here()
	p.expect(lexer.CLASS, errors.PAR004BadClassDecl, "expected 'class'")
	name := p.expect(lexer.IDENT, errors.PAR004BadClassDecl, "expected class name").Literal
	cls := &ast.ClassDecl{StmtBase: ast.NewStmtBase(start), Name: name}
	if p.match(lexer.LPAREN) {
		for !p.check(lexer.RPAREN) && !p.atEOF() {
			cls.Bases = append(cls.Bases, p.expect(lexer.IDENT, errors.PAR004BadClassDecl, "expected base class name").Literal)
			if !p.match(lexer.COMMA) {
				break
			}
		}
		p.expect(lexer.RPAREN, errors.PAR004BadClassDecl, "expected ')' after base class list")
	}
	p.expect(lexer.COLON, errors.PAR004BadClassDecl, "expected ':' before class body")
	cls.Body = p.parseBlock()
	for _, s := range cls.Body {
		if fn, ok := s.(*ast.FuncDecl); ok {
			fn.Receiver = name
		}
	}
	return cls
}

func (p *Parser) parseIf() ast.Stmt {
	start := p.here()
	p.expect(lexer.IF, errors.PAR001UnexpectedToken, "expected 'if'")
	cond := p.parseExpr()
	p.expect(lexer.COLON, errors.PAR001UnexpectedToken, "expected ':' after if condition")
	then := p.parseBlock()
	stmt := &ast.If{StmtBase: ast.NewStmtBase(start), Cond: cond, Then: then}
	if p.check(lexer.ELIF) {
		elifStart := p.here()
		p.advance()
		elifCond := p.parseExpr()
		p.expect(lexer.COLON, errors.PAR001UnexpectedToken, "expected ':' after elif condition")
		elifThen := p.parseBlock()
		nested := p.parseElifTail()
		stmt.Else = []ast.Stmt{&ast.If{StmtBase: ast.NewStmtBase(elifStart), Cond: elifCond, Then: elifThen, Else: nested}}
		return stmt
	}
	if p.match(lexer.ELSE) {
		p.expect(lexer.COLON, errors.PAR001UnexpectedToken, "expected ':' after else")
		stmt.Else = p.parseBlock()
	}
	return stmt
}

// parseElifTail recursively consumes any further `elif`/`else` chain,
// building the nested-If representation ("Else may
// itself be a single If for elif").
func (p *Parser) parseElifTail() []ast.Stmt {
	if p.check(lexer.ELIF) {
		start := p.here()
		p.advance()
		cond := p.parseExpr()
		p.expect(lexer.COLON, errors.PAR001UnexpectedToken, "expected ':' after elif condition")
		then := p.parseBlock()
		nested := p.parseElifTail()
		return []ast.Stmt{&ast.If{StmtBase: ast.NewStmtBase(start), Cond: cond, Then: then, Else: nested}}
	}
	if p.match(lexer.ELSE) {
		p.expect(lexer.COLON, errors.PAR001UnexpectedToken, "expected ':' after else")
		return p.parseBlock()
	}
	return nil
}

func (p *Parser) parseWhile() ast.Stmt {
	start := p.here()
	p.expect(lexer.WHILE, errors.PAR001UnexpectedToken, "expected 'while'")
	cond := p.parseExpr()
	p.expect(lexer.COLON, errors.PAR001UnexpectedToken, "expected ':' after while condition")
	body := p.parseBlock()
	stmt := &ast.While{StmtBase: ast.NewStmtBase(start), Cond: cond, Body: body}
	if p.match(lexer.ELSE) {
		p.expect(lexer.COLON, errors.PAR001UnexpectedToken, "expected ':' after else")
		stmt.OrElse = p.parseBlock()
	}
	return stmt
}

func (p *Parser) parseFor(isAsync bool) ast.Stmt {
	start := p.here()
	p.expect(lexer.FOR, errors.PAR001UnexpectedToken, "expected 'for'")
	target := p.parseTargetList()
	p.expect(lexer.IN, errors.PAR001UnexpectedToken, "expected 'in' in for statement")
	iter := p.parseExprNoCompare(precTernary)
	p.expect(lexer.COLON, errors.PAR001UnexpectedToken, "expected ':' after for clause")
	body := p.parseBlock()
	stmt := &ast.For{StmtBase: ast.NewStmtBase(start), Target: target, Iter: iter, Body: body, IsAsync: isAsync}
	if p.match(lexer.ELSE) {
		p.expect(lexer.COLON, errors.PAR001UnexpectedToken, "expected ':' after else")
		stmt.OrElse = p.parseBlock()
	}
	return stmt
}

// parseTargetList parses a for-loop's target: a single name/attribute/
// subscript, or a tuple of such separated by commas.
func (p *Parser) parseTargetList() ast.Expr {
	first := p.parsePostfix(p.parseAtom())
	if !p.check(lexer.COMMA) {
		return first
	}
	elts := []ast.Expr{first}
	for p.match(lexer.COMMA) {
		if p.check(lexer.IN) {
			break
		}
		elts = append(elts, p.parsePostfix(p.parseAtom()))
	}
	return &ast.TupleExpr{Elts: elts}
}

func (p *Parser) parseTry() ast.Stmt {
	start := p.here()
	p.expect(lexer.TRY, errors.PAR001UnexpectedToken, "expected 'try'")
	p.expect(lexer.COLON, errors.PAR001UnexpectedToken, "expected ':' after try")
	stmt := &ast.TryExcept{StmtBase: ast.NewStmtBase(start), Body: p.parseBlock()}
	for p.check(lexer.EXCEPT) {
		excStart := p.here()
		p.advance()
		clause := &ast.ExceptClause{BaseNode: ast.BaseNode{Sp: excStart}}
		if !p.check(lexer.COLON) {
			clause.Type = p.parseTypeExpr()
			if p.match(lexer.AS) {
				clause.Name = p.expect(lexer.IDENT, errors.PAR001UnexpectedToken, "expected exception binding name").Literal
			}
		}
		p.expect(lexer.COLON, errors.PAR001UnexpectedToken, "expected ':' after except clause")
		clause.Body = p.parseBlock()
		stmt.Excepts = append(stmt.Excepts, clause)
	}
	if p.match(lexer.ELSE) {
		p.expect(lexer.COLON, errors.PAR001UnexpectedToken, "expected ':' after else")
		stmt.OrElse = p.parseBlock()
	}
	if p.match(lexer.FINALLY) {
		p.expect(lexer.COLON, errors.PAR001UnexpectedToken, "expected ':' after finally")
		stmt.Finally = p.parseBlock()
	}
	return stmt
}

func (p *Parser) parseWith(isAsync bool) ast.Stmt {
	start := p.here()
	p.expect(lexer.WITH, errors.PAR001UnexpectedToken, "expected 'with'")
	stmt := &ast.With{StmtBase: ast.NewStmtBase(start), IsAsync: isAsync}
	for {
		itemStart := p.here()
		ctx := p.parseExpr()
		item := &ast.WithItem{BaseNode: ast.BaseNode{Sp: itemStart}, Ctx: ctx}
		if p.match(lexer.AS) {
			item.Name = p.expect(lexer.IDENT, errors.PAR001UnexpectedToken, "expected binding name").Literal
		}
		stmt.Items = append(stmt.Items, item)
		if !p.match(lexer.COMMA) {
			break
		}
	}
	p.expect(lexer.COLON, errors.PAR001UnexpectedToken, "expected ':' after with clause")
	stmt.Body = p.parseBlock()
	return stmt
}

// parseSimpleStatement handles the statements that fit on one logical line.
func (p *Parser) parseSimpleStatement() ast.Stmt {
	start := p.here()
	switch p.cur().Type {
	case lexer.PASS:
		p.advance()
		return &ast.Pass{StmtBase: ast.NewStmtBase(start)}
	case lexer.BREAK:
		p.advance()
		return &ast.Break{StmtBase: ast.NewStmtBase(start)}
	case lexer.CONTINUE:
		p.advance()
		return &ast.Continue{StmtBase: ast.NewStmtBase(start)}
	case lexer.RETURN:
		p.advance()
		ret := &ast.Return{StmtBase: ast.NewStmtBase(start)}
		if !p.check(lexer.NEWLINE) && !p.check(lexer.SEMI) && !p.atEOF() {
			ret.Value = p.parseExpr()
		}
		return ret
	case lexer.RAISE:
		p.advance()
		raise := &ast.Raise{StmtBase: ast.NewStmtBase(start)}
		if !p.check(lexer.NEWLINE) && !p.check(lexer.SEMI) && !p.atEOF() {
			raise.Exc = p.parseExpr()
			if p.match(lexer.FROM) {
				raise.Cause = p.parseExpr()
			}
		}
		return raise
	case lexer.GLOBAL:
		p.advance()
		g := &ast.Global{StmtBase: ast.NewStmtBase(start)}
		g.Names = p.parseNameList()
		return g
	case lexer.NONLOCAL:
		p.advance()
		n := &ast.Nonlocal{StmtBase: ast.NewStmtBase(start)}
		n.Names = p.parseNameList()
		return n
	case lexer.DEL:
		p.advance()
		p.parseExpr() // target discarded; del has no dedicated node in this AST
		return &ast.Pass{StmtBase: ast.NewStmtBase(start)}
	}
	return p.parseExprOrAssign(start)
}

func (p *Parser) parseNameList() []string {
	var names []string
	names = append(names, p.expect(lexer.IDENT, errors.PAR001UnexpectedToken, "expected name").Literal)
	for p.match(lexer.COMMA) {
		names = append(names, p.expect(lexer.IDENT, errors.PAR001UnexpectedToken, "expected name").Literal)
	}
	return names
}

// parseExprOrAssign parses an expression statement, an assignment
// (possibly chained: a = b = value), or an augmented assignment, desugared
// `x += y` becomes `x = x + y` except when the target is
// a Subscript, in which case the subscript is evaluated once and AugAssign
// is kept as a distinct node so the emitter can do that.
func (p *Parser) parseExprOrAssign(start ast.Span) ast.Stmt {
	first := p.parseExpr()
	if op, ok := augAssignOp(p.cur().Type); ok {
		p.advance()
		value := p.parseExpr()
		if _, isSub := first.(*ast.Subscript); isSub {
			return &ast.AugAssign{StmtBase: ast.NewStmtBase(start), Target: first, Op: op, Value: value}
		}
		return &ast.Assign{
			StmtBase: ast.NewStmtBase(start),
			Targets:  []ast.Expr{first},
			Value:    &ast.BinaryExpr{ExprBase: ast.NewExprBase(start), Op: op, Left: first, Right: value},
		}
	}
	if p.check(lexer.ASSIGN) {
		targets := []ast.Expr{first}
		var value ast.Expr
		for p.match(lexer.ASSIGN) {
			value = p.parseExpr()
			if p.check(lexer.ASSIGN) {
				targets = append(targets, value)
			}
		}
		return &ast.Assign{StmtBase: ast.NewStmtBase(start), Targets: targets, Value: value}
	}
	return &ast.ExprStmt{StmtBase: ast.NewStmtBase(start), X: first}
}

func augAssignOp(tt lexer.TokenType) (string, bool) {
	switch tt {
	case lexer.PLUSEQ:
		return "+", true
	case lexer.MINUSEQ:
		return "-", true
	case lexer.STAREQ:
		return "*", true
	case lexer.SLASHEQ:
		return "/", true
	case lexer.DSLASHEQ:
		return "//", true
	case lexer.PERCENTEQ:
		return "%", true
	case lexer.AMPEQ:
		return "&", true
	case lexer.PIPEEQ:
		return "|", true
	case lexer.CARETEQ:
		return "^", true
	case lexer.LSHIFTEQ:
		return "<<", true
	case lexer.RSHIFTEQ:
		return ">>", true
	case lexer.DSTAREQ:
		return "**", true
	}
	return "", false
}

func (p *Parser) parseTypeExpr() *ast.TypeExpr {
	start := p.here()
	name := p.expect(lexer.IDENT, errors.PAR007BadTypeAnnot, "expected a type name").Literal
	te := &ast.TypeExpr{BaseNode: ast.BaseNode{Sp: start}, Name: name}
	if p.match(lexer.LBRACK) {
		for !p.check(lexer.RBRACK) && !p.atEOF() {
			te.Args = append(te.Args, p.parseTypeExpr())
			if !p.match(lexer.COMMA) {
				break
			}
		}
		p.expect(lexer.RBRACK, errors.PAR007BadTypeAnnot, "expected ']' to close generic type arguments")
	}
	for p.match(lexer.PIPE) {
		rhs := p.parseTypeExpr()
		te = &ast.TypeExpr{BaseNode: ast.BaseNode{Sp: start}, Name: "Union", Args: []*ast.TypeExpr{te, rhs}}
	}
	return te
}
