package ast

// Walk visits n and every descendant reachable through statement/expression
// lists, calling visit on each. If visit returns false for a node, that
// node's children are not visited (used by the generator-detection pass to
// stop at a nested function boundary, and by inference to prune branches it
// has already resolved).
func Walk(n Node, visit func(Node) bool) {
	if n == nil || !visit(n) {
		return
	}
	switch t := n.(type) {
	case *Program:
		walkStmts(t.Body, visit)
	case *FuncDecl:
		for _, p := range t.Params {
			if p.Default != nil {
				Walk(p.Default, visit)
			}
		}
		walkStmts(t.Body, visit)
	case *ClassDecl:
		walkStmts(t.Body, visit)
	case *Assign:
		for _, tg := range t.Targets {
			Walk(tg, visit)
		}
		Walk(t.Value, visit)
	case *AugAssign:
		Walk(t.Target, visit)
		Walk(t.Value, visit)
	case *ExprStmt:
		Walk(t.X, visit)
	case *Return:
		Walk(t.Value, visit)
	case *Raise:
		Walk(t.Exc, visit)
		Walk(t.Cause, visit)
	case *If:
		Walk(t.Cond, visit)
		walkStmts(t.Then, visit)
		walkStmts(t.Else, visit)
	case *For:
		Walk(t.Target, visit)
		Walk(t.Iter, visit)
		walkStmts(t.Body, visit)
		walkStmts(t.OrElse, visit)
	case *While:
		Walk(t.Cond, visit)
		walkStmts(t.Body, visit)
		walkStmts(t.OrElse, visit)
	case *TryExcept:
		walkStmts(t.Body, visit)
		for _, exc := range t.Excepts {
			walkStmts(exc.Body, visit)
		}
		walkStmts(t.OrElse, visit)
		walkStmts(t.Finally, visit)
	case *With:
		for _, item := range t.Items {
			Walk(item.Ctx, visit)
		}
		walkStmts(t.Body, visit)
	case *BinaryExpr:
		Walk(t.Left, visit)
		Walk(t.Right, visit)
	case *UnaryExpr:
		Walk(t.X, visit)
	case *BoolOp:
		for _, o := range t.Operands {
			Walk(o, visit)
		}
	case *Compare:
		for _, o := range t.Operands {
			Walk(o, visit)
		}
	case *CallExpr:
		Walk(t.Func, visit)
		for _, a := range t.Args {
			Walk(a, visit)
		}
		for _, a := range t.Kwargs {
			Walk(a, visit)
		}
		Walk(t.StarArgs, visit)
	case *Attribute:
		Walk(t.X, visit)
	case *Subscript:
		Walk(t.X, visit)
		Walk(t.Index, visit)
	case *Slice:
		Walk(t.Start, visit)
		Walk(t.Stop, visit)
		Walk(t.Step, visit)
	case *ListExpr:
		for _, e := range t.Elts {
			Walk(e, visit)
		}
	case *TupleExpr:
		for _, e := range t.Elts {
			Walk(e, visit)
		}
	case *SetExpr:
		for _, e := range t.Elts {
			Walk(e, visit)
		}
	case *DictExpr:
		for _, e := range t.Entries {
			Walk(e.Key, visit)
			Walk(e.Value, visit)
		}
	case *Starred:
		Walk(t.X, visit)
	case *ListComp:
		Walk(t.Elt, visit)
		walkClauses(t.Clauses, visit)
	case *SetComp:
		Walk(t.Elt, visit)
		walkClauses(t.Clauses, visit)
	case *DictComp:
		Walk(t.Key, visit)
		Walk(t.Value, visit)
		walkClauses(t.Clauses, visit)
	case *GeneratorExp:
		Walk(t.Elt, visit)
		walkClauses(t.Clauses, visit)
	case *Lambda:
		Walk(t.Body, visit)
	case *Await:
		Walk(t.X, visit)
	case *Yield:
		Walk(t.Value, visit)
	case *YieldFrom:
		Walk(t.X, visit)
	case *IfExp:
		Walk(t.Cond, visit)
		Walk(t.Then, visit)
		Walk(t.Else, visit)
	case *IsInstance:
		Walk(t.X, visit)
	case *FString:
		for _, part := range t.Parts {
			if part.Expr != nil {
				Walk(part.Expr, visit)
			}
		}
	}
}

func walkStmts(stmts []Stmt, visit func(Node) bool) {
	for _, s := range stmts {
		Walk(s, visit)
	}
}

func walkClauses(clauses []CompClause, visit func(Node) bool) {
	for _, c := range clauses {
		Walk(c.Target, visit)
		Walk(c.Iter, visit)
		for _, g := range c.Ifs {
			Walk(g, visit)
		}
	}
}
