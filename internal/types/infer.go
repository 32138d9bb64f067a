package types

import (
	"sort"
	"strings"

	"github.com/ashlang/ashc/internal/ast"
	"github.com/ashlang/ashc/internal/callgraph"
	"github.com/ashlang/ashc/internal/errors"
)

// Signature is a function's inferred type, seeded from parameter
// annotations (or Unknown) and tightened by the fixed point until it stops
// changing or the iteration budget is exhausted.
type Signature struct {
	Params []*Type
	Ret    *Type
}

// DefaultBudget bounds how many times the whole-program fixed point may
// revisit a signature before giving up and widening to Any. Widening
// forces the emitter into a boxed representation -- a performance
// regression, never a correctness failure.
const DefaultBudget = 50

// Inference drives the monotone fixed point over the call graph.
type Inference struct {
	Budget      int
	Sigs        map[string]*Signature
	VarTypes    map[string]map[string]*Type // per function, per local variable
	Diagnostics []*errors.Report
}

func NewInference() *Inference {
	return &Inference{Budget: DefaultBudget, Sigs: map[string]*Signature{}, VarTypes: map[string]map[string]*Type{}}
}

// Run seeds and iterates inference over every function in decls (keyed the
// same way callgraph.Build qualifies names), processing each SCC from g in
// the callee-before-caller order SCCs() returns, and within an SCC
// iterating to a local fixed point before moving to the next: local
// dataflow per function, return types propagated to call sites, repeated
// until no type term changes.
func (inf *Inference) Run(decls map[string]*ast.FuncDecl, g *callgraph.Graph) {
	inf.RunProgram(nil, "", decls, g)
}

// RunProgram is Run plus a dataflow pass over prog's module-level
// statements each iteration, attributed to a synthetic "<module>.__main__"
// scope. That pass is what lets a top-level call like `print(fib(10))`
// seed fib's parameter type: every call site joins its argument types
// into the callee's signature, and the outer loop repeats until the whole
// signature table is stable.
func (inf *Inference) RunProgram(prog *ast.Program, module string, decls map[string]*ast.FuncDecl, g *callgraph.Graph) {
	for name, d := range decls {
		inf.Sigs[name] = seedSignature(d)
	}
	sccs := g.SCCs()
	for pass := 0; pass < inf.Budget; pass++ {
		before := inf.snapshot()
		for _, scc := range sccs {
			rounds := 0
			changed := true
			for changed && rounds < inf.Budget {
				changed = false
				rounds++
				for _, name := range scc {
					d, ok := decls[name]
					if !ok {
						continue
					}
					prev := inf.Sigs[name].Ret
					env := inf.localDataflow(name, d)
					inf.VarTypes[name] = env
					if !Equal(prev, inf.Sigs[name].Ret) {
						changed = true
					}
				}
			}
			if rounds >= inf.Budget {
				inf.Diagnostics = append(inf.Diagnostics, errors.New(errors.TYP004BudgetExceeded,
					"inference budget exceeded for "+strings.Join(scc, ", ")+"; widened to Any", nil))
				for _, name := range scc {
					inf.Sigs[name].Ret = Any
					for i := range inf.Sigs[name].Params {
						inf.Sigs[name].Params[i] = Any
					}
				}
			}
		}
		if prog != nil {
			inf.runTopLevel(prog, module)
		}
		if inf.snapshot() == before {
			break
		}
	}
	// Whatever is still Unknown after the fixed point settles (or the
	// budget runs out) widens to Any: the emitter boxes it, it never sees
	// an Unknown.
	for _, sig := range inf.Sigs {
		for i, p := range sig.Params {
			sig.Params[i] = widen(p)
		}
		sig.Ret = widen(sig.Ret)
	}
}

func widen(t *Type) *Type {
	if t == nil || t.Kind == KUnknown {
		return Any
	}
	return t
}

// runTopLevel flows the module's own statements. Function, class, and
// import bindings are pre-seeded so a bare reference to one is not an
// unbound variable.
func (inf *Inference) runTopLevel(prog *ast.Program, module string) {
	mainName := module + ".__main__"
	env := map[string]*Type{}
	for _, s := range prog.Body {
		switch d := s.(type) {
		case *ast.FuncDecl:
			if sig, ok := inf.Sigs[module+"."+d.Name]; ok {
				env[d.Name] = Callable(sig.Ret, sig.Params...)
			}
		case *ast.ClassDecl:
			env[d.Name] = Callable(Object(d.Name))
		case *ast.Import:
			for i, name := range d.Names {
				bound := name
				if i < len(d.Aliases) && d.Aliases[i] != "" {
					bound = d.Aliases[i]
				}
				env[bound] = Any
			}
		}
	}
	for _, imp := range prog.Imports {
		for i, name := range imp.Names {
			bound := name
			if i < len(imp.Aliases) && imp.Aliases[i] != "" {
				bound = imp.Aliases[i]
			}
			env[bound] = Any
		}
	}
	var retJoin *Type
	for _, s := range prog.Body {
		switch s.(type) {
		case *ast.FuncDecl, *ast.ClassDecl, *ast.Import:
		default:
			inf.walkStmt(s, env, &retJoin, mainName)
		}
	}
	inf.VarTypes[mainName] = env
}

// snapshot renders the whole signature table for change detection across
// outer passes.
func (inf *Inference) snapshot() string {
	names := make([]string, 0, len(inf.Sigs))
	for name := range inf.Sigs {
		names = append(names, name)
	}
	sort.Strings(names)
	var b strings.Builder
	for _, name := range names {
		sig := inf.Sigs[name]
		b.WriteString(name)
		b.WriteByte('(')
		for _, p := range sig.Params {
			b.WriteString(p.String())
			b.WriteByte(',')
		}
		b.WriteString(")->")
		b.WriteString(sig.Ret.String())
		b.WriteByte(';')
	}
	return b.String()
}

func seedSignature(d *ast.FuncDecl) *Signature {
	sig := &Signature{}
	for _, p := range d.Params {
		if p.Type != nil {
			sig.Params = append(sig.Params, fromTypeExpr(p.Type))
		} else {
			sig.Params = append(sig.Params, Unknown)
		}
	}
	if d.ReturnType != nil {
		sig.Ret = fromTypeExpr(d.ReturnType)
	} else {
		sig.Ret = Unknown
	}
	return sig
}

func fromTypeExpr(te *ast.TypeExpr) *Type {
	if te == nil {
		return Unknown
	}
	args := make([]*Type, len(te.Args))
	for i, a := range te.Args {
		args[i] = fromTypeExpr(a)
	}
	return FromTypeExprName(te.Name, args)
}

// localDataflow runs one forward pass over fnName's body, updating
// inf.Sigs[fnName] in place (params may tighten from Unknown once a caller
// site's argument type is known; the return type joins every `return`
// expression's inferred type) and returns the final variable environment.
func (inf *Inference) localDataflow(fnName string, d *ast.FuncDecl) map[string]*Type {
	sig := inf.Sigs[fnName]
	env := map[string]*Type{}
	for i, p := range d.Params {
		if i < len(sig.Params) {
			env[p.Name] = sig.Params[i]
		} else {
			env[p.Name] = Unknown
		}
	}
	var retJoin *Type
	inf.walkBlock(d.Body, env, &retJoin, fnName)
	if retJoin == nil {
		retJoin = None
	}
	sig.Ret = Join(sig.Ret, retJoin)
	return env
}

func (inf *Inference) walkBlock(stmts []ast.Stmt, env map[string]*Type, retJoin **Type, fnName string) {
	for _, s := range stmts {
		inf.walkStmt(s, env, retJoin, fnName)
	}
}

func (inf *Inference) walkStmt(s ast.Stmt, env map[string]*Type, retJoin **Type, fnName string) {
	switch st := s.(type) {
	case *ast.Assign:
		vt := inf.exprType(st.Value, env, fnName)
		for _, target := range st.Targets {
			inf.bindTarget(target, vt, env)
		}
	case *ast.AugAssign:
		vt := inf.exprType(st.Value, env, fnName)
		if id, ok := st.Target.(*ast.Ident); ok {
			env[id.Name] = Join(env[id.Name], vt)
		}
	case *ast.ExprStmt:
		inf.exprType(st.X, env, fnName)
	case *ast.Return:
		var t *Type = None
		if st.Value != nil {
			t = inf.exprType(st.Value, env, fnName)
		}
		*retJoin = Join(*retJoin, t)
	case *ast.If:
		thenEnv := cloneEnv(env)
		elseEnv := cloneEnv(env)
		if id, ok := narrowTarget(st.Cond); ok {
			if te, isGuard := ast.IsIsInstanceGuard(st.Cond, id); isGuard {
				narrowed := FromTypeExprName(te.Name, nil)
				thenEnv[id] = Meet(env[id], narrowed)
				elseEnv[id] = Without(env[id], narrowed)
			}
		}
		inf.walkBlock(st.Then, thenEnv, retJoin, fnName)
		inf.walkBlock(st.Else, elseEnv, retJoin, fnName)
		mergeEnv(env, thenEnv, elseEnv)
	case *ast.While:
		inf.exprType(st.Cond, env, fnName)
		inf.walkBlock(st.Body, env, retJoin, fnName)
		inf.walkBlock(st.OrElse, env, retJoin, fnName)
	case *ast.For:
		iterT := inf.exprType(st.Iter, env, fnName)
		elemT := elementType(iterT)
		inf.bindTarget(st.Target, elemT, env)
		inf.walkBlock(st.Body, env, retJoin, fnName)
		inf.walkBlock(st.OrElse, env, retJoin, fnName)
	case *ast.TryExcept:
		inf.walkBlock(st.Body, env, retJoin, fnName)
		for _, exc := range st.Excepts {
			excEnv := cloneEnv(env)
			if exc.Name != "" {
				excEnv[exc.Name] = ErrorT
			}
			inf.walkBlock(exc.Body, excEnv, retJoin, fnName)
		}
		inf.walkBlock(st.OrElse, env, retJoin, fnName)
		inf.walkBlock(st.Finally, env, retJoin, fnName)
	case *ast.With:
		for _, item := range st.Items {
			t := inf.exprType(item.Ctx, env, fnName)
			if item.Name != "" {
				env[item.Name] = t
			}
		}
		inf.walkBlock(st.Body, env, retJoin, fnName)
	case *ast.FuncDecl:
		// Nested function: its body is not walked here, and only top-level
		// functions and methods are among the decls Run visits, so a nested
		// function's body is not inferred at all.
	}
}

func narrowTarget(cond ast.Expr) (string, bool) {
	switch c := cond.(type) {
	case *ast.IsInstance:
		if id, ok := c.X.(*ast.Ident); ok {
			return id.Name, true
		}
	case *ast.BoolOp:
		for _, o := range c.Operands {
			if name, ok := narrowTarget(o); ok {
				return name, true
			}
		}
	}
	return "", false
}

func (inf *Inference) bindTarget(target ast.Expr, t *Type, env map[string]*Type) {
	switch tgt := target.(type) {
	case *ast.Ident:
		env[tgt.Name] = t
	case *ast.TupleExpr:
		elemTypes := t.Elems
		for i, e := range tgt.Elts {
			var et *Type = Unknown
			if i < len(elemTypes) {
				et = elemTypes[i]
			}
			inf.bindTarget(e, et, env)
		}
	case *ast.ListExpr:
		for _, e := range tgt.Elts {
			inf.bindTarget(e, Unknown, env)
		}
	case *ast.Starred:
		inf.bindTarget(tgt.X, t, env)
	}
}

func elementType(iter *Type) *Type {
	if iter == nil {
		return Unknown
	}
	switch iter.Kind {
	case KList, KSet:
		return iter.Elem
	case KDict:
		return iter.Key
	case KStr:
		return Str
	default:
		return Unknown
	}
}

func cloneEnv(env map[string]*Type) map[string]*Type {
	out := make(map[string]*Type, len(env))
	for k, v := range env {
		out[k] = v
	}
	return out
}

func mergeEnv(dst, a, b map[string]*Type) {
	for k := range dst {
		at, aok := a[k]
		bt, bok := b[k]
		if aok && bok {
			dst[k] = Join(at, bt)
		} else if aok {
			dst[k] = at
		} else if bok {
			dst[k] = bt
		}
	}
	for k, v := range a {
		if _, ok := dst[k]; !ok {
			dst[k] = v
		}
	}
	for k, v := range b {
		if _, ok := dst[k]; !ok {
			dst[k] = v
		} else {
			dst[k] = Join(dst[k], v)
		}
	}
}

// exprType infers the type of an expression given the current environment,
// reporting TYP002 for an unbound variable. It reports no TYP001 (type
// mismatch) or TYP003 (missing attribute) diagnostic: an attribute access
// is typed Unknown without looking at the class layout. Calls to a
// function in inf.Sigs propagate its current Ret (return types propagate
// back to call sites through the signature table).
func (inf *Inference) exprType(e ast.Expr, env map[string]*Type, fnName string) *Type {
	if e == nil {
		return Unknown
	}
	switch ex := e.(type) {
	case *ast.IntLit:
		return Int
	case *ast.FloatLit:
		return Float
	case *ast.ComplexLit:
		return Object("complex")
	case *ast.BoolLit:
		return Bool
	case *ast.NoneLit:
		return None
	case *ast.StringLit:
		if ex.IsBytes {
			return Bytes
		}
		return Str
	case *ast.FString:
		for _, part := range ex.Parts {
			if part.Expr != nil {
				inf.exprType(part.Expr, env, fnName)
			}
		}
		return Str
	case *ast.Ident:
		if t, ok := env[ex.Name]; ok {
			return t
		}
		span := ex.Span()
		inf.Diagnostics = append(inf.Diagnostics, errors.New(errors.TYP002UnboundVar, "unbound variable '"+ex.Name+"'", &span))
		return Any
	case *ast.BinaryExpr:
		lt := inf.exprType(ex.Left, env, fnName)
		rt := inf.exprType(ex.Right, env, fnName)
		return binaryResultType(ex.Op, lt, rt)
	case *ast.UnaryExpr:
		t := inf.exprType(ex.X, env, fnName)
		if ex.Op == "not" {
			return Bool
		}
		return t
	case *ast.BoolOp:
		for _, o := range ex.Operands {
			inf.exprType(o, env, fnName)
		}
		return Bool
	case *ast.Compare:
		for _, o := range ex.Operands {
			inf.exprType(o, env, fnName)
		}
		return Bool
	case *ast.IsInstance:
		inf.exprType(ex.X, env, fnName)
		return Bool
	case *ast.CallExpr:
		argTypes := make([]*Type, len(ex.Args))
		for i, a := range ex.Args {
			argTypes[i] = inf.exprType(a, env, fnName)
		}
		for _, a := range ex.Kwargs {
			inf.exprType(a, env, fnName)
		}
		if id, ok := ex.Func.(*ast.Ident); ok {
			if sig, ok := inf.Sigs[qualifyGuess(fnName, id.Name)]; ok {
				// Propagate argument types into the callee's parameters;
				// the fixed point re-runs the callee's body with the
				// tightened seeds.
				for i, at := range argTypes {
					if i < len(sig.Params) {
						sig.Params[i] = Join(sig.Params[i], at)
					}
				}
				return sig.Ret
			}
			if t, ok := env[id.Name]; ok && t.Kind == KCallable {
				return t.Ret
			}
		}
		return Any
	case *ast.Attribute:
		inf.exprType(ex.X, env, fnName)
		return Unknown
	case *ast.Subscript:
		xt := inf.exprType(ex.X, env, fnName)
		if sl, ok := ex.Index.(*ast.Slice); ok {
			if sl.Start != nil {
				inf.exprType(sl.Start, env, fnName)
			}
			if sl.Stop != nil {
				inf.exprType(sl.Stop, env, fnName)
			}
			if sl.Step != nil {
				inf.exprType(sl.Step, env, fnName)
			}
			return xt
		}
		inf.exprType(ex.Index, env, fnName)
		return elementType(xt)
	case *ast.ListExpr:
		var elem *Type
		for _, el := range ex.Elts {
			elem = Join(elem, inf.exprType(el, env, fnName))
		}
		if elem == nil {
			elem = Unknown
		}
		return List(elem)
	case *ast.SetExpr:
		var elem *Type
		for _, el := range ex.Elts {
			elem = Join(elem, inf.exprType(el, env, fnName))
		}
		if elem == nil {
			elem = Unknown
		}
		return SetOf(elem)
	case *ast.TupleExpr:
		elems := make([]*Type, len(ex.Elts))
		for i, el := range ex.Elts {
			elems[i] = inf.exprType(el, env, fnName)
		}
		return Tuple(elems...)
	case *ast.DictExpr:
		var kt, vt *Type
		for _, entry := range ex.Entries {
			if entry.Key != nil {
				kt = Join(kt, inf.exprType(entry.Key, env, fnName))
			}
			vt = Join(vt, inf.exprType(entry.Value, env, fnName))
		}
		if kt == nil {
			kt = Unknown
		}
		if vt == nil {
			vt = Unknown
		}
		return Dict(kt, vt)
	case *ast.ListComp:
		inner := cloneEnv(env)
		bindCompClauses(inf, ex.Clauses, inner, fnName)
		return List(inf.exprType(ex.Elt, inner, fnName))
	case *ast.SetComp:
		inner := cloneEnv(env)
		bindCompClauses(inf, ex.Clauses, inner, fnName)
		return SetOf(inf.exprType(ex.Elt, inner, fnName))
	case *ast.DictComp:
		inner := cloneEnv(env)
		bindCompClauses(inf, ex.Clauses, inner, fnName)
		return Dict(inf.exprType(ex.Key, inner, fnName), inf.exprType(ex.Value, inner, fnName))
	case *ast.GeneratorExp:
		inner := cloneEnv(env)
		bindCompClauses(inf, ex.Clauses, inner, fnName)
		inf.exprType(ex.Elt, inner, fnName)
		return Object("Generator")
	case *ast.Lambda:
		return Callable(Unknown)
	case *ast.Await:
		t := inf.exprType(ex.X, env, fnName)
		if t != nil && t.Kind == KObject && t.ClassID == "Coro" {
			return t.Elem
		}
		return Unknown
	case *ast.Yield:
		if ex.Value != nil {
			return inf.exprType(ex.Value, env, fnName)
		}
		return None
	case *ast.YieldFrom:
		return inf.exprType(ex.X, env, fnName)
	case *ast.IfExp:
		inf.exprType(ex.Cond, env, fnName)
		t1 := inf.exprType(ex.Then, env, fnName)
		t2 := inf.exprType(ex.Else, env, fnName)
		return Join(t1, t2)
	case *ast.Starred:
		return inf.exprType(ex.X, env, fnName)
	}
	return Unknown
}

func bindCompClauses(inf *Inference, clauses []ast.CompClause, env map[string]*Type, fnName string) {
	for _, c := range clauses {
		it := inf.exprType(c.Iter, env, fnName)
		inf.bindTarget(c.Target, elementType(it), env)
		for _, g := range c.Ifs {
			inf.exprType(g, env, fnName)
		}
	}
}

// qualifyGuess resolves a bare callee name through the caller's module
// scope: the module is the first dot component of the caller's qualified
// name, so "m.fib" and "m.Class.method" both resolve a callee f against
// "m.f". Calls into other modules are not resolved.
func qualifyGuess(callerQualified, calleeName string) string {
	if i := strings.IndexByte(callerQualified, '.'); i >= 0 {
		return callerQualified[:i+1] + calleeName
	}
	return calleeName
}

func binaryResultType(op string, l, r *Type) *Type {
	switch op {
	case "+", "-", "*", "/", "//", "%", "**":
		if l != nil && l.Kind == KStr && r != nil && r.Kind == KStr && op == "+" {
			return Str
		}
		if l != nil && l.Kind == KList && r != nil && r.Kind == KList && op == "+" {
			return List(Join(l.Elem, r.Elem))
		}
		if (l != nil && l.Kind == KFloat) || (r != nil && r.Kind == KFloat) {
			return Float
		}
		if op == "/" {
			return Float
		}
		return Join(l, r)
	case "&", "|", "^", "<<", ">>":
		return Int
	default:
		return Join(l, r)
	}
}
