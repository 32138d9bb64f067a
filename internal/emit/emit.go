package emit

import (
	"fmt"
	"sort"
	"strings"

	"github.com/ashlang/ashc/internal/ast"
	"github.com/ashlang/ashc/internal/classlayout"
	"github.com/ashlang/ashc/internal/errors"
	"github.com/ashlang/ashc/internal/targetlang"
	"github.com/ashlang/ashc/internal/traits"
	"github.com/ashlang/ashc/internal/types"
)

// Emitter walks a type-checked module and renders it into target-language
// source via internal/targetlang, one shape per trait combination. It never
// second-guesses internal/traits, internal/types, or internal/classlayout
// -- every branch below reads a fact those packages already computed and
// picks the corresponding emitted shape.
type Emitter struct {
	Module  string
	Traits  map[string]*traits.FunctionTrait
	Sigs    map[string]*types.Signature
	Layouts map[string]*classlayout.Layout
	errs    []*errors.Report
}

func New(module string, tr map[string]*traits.FunctionTrait, sigs map[string]*types.Signature, layouts map[string]*classlayout.Layout) *Emitter {
	return &Emitter{Module: module, Traits: tr, Sigs: sigs, Layouts: layouts}
}

// EmitProgram renders prog into a single target-language module plus its
// debug sidecar. qualify must agree with the name internal/callgraph used
// to key Traits/Sigs for a given FuncDecl.
func (e *Emitter) EmitProgram(prog *ast.Program, qualify func(*ast.FuncDecl) string) (targetlang.Module, []*errors.Report) {
	w := targetlang.New()
	w.Linef("// generated from module %q -- do not edit", e.Module)
	w.Linef("")
	for _, stmt := range prog.Body {
		switch d := stmt.(type) {
		case *ast.FuncDecl:
			e.emitFunc(w, qualify(d), d)
			w.Linef("")
		case *ast.ClassDecl:
			e.emitClass(w, d)
			w.Linef("")
		case *ast.Import:
			// Import resolution and linking is a build-orchestrator concern
			// (internal/orchestrator wires modules together); the emitted
			// module text itself carries no import statement.
		default:
			e.emitTopLevelStmt(w, stmt)
		}
	}
	return targetlang.Module{Name: e.Module, Source: w.Bytes(), Sidecar: w.LineMap}, e.errs
}

// functionForm selects the emitted shape for one function.
type functionForm int

const (
	formPlain functionForm = iota
	formResultOrError
	formGenerator
	formAsyncIO
	formAsyncCPU
)

func (e *Emitter) formFor(name string) functionForm {
	t := e.Traits[name]
	if t == nil {
		return formPlain
	}
	switch {
	case t.IsGenerator:
		return formGenerator
	case t.MayAwait && t.DoesIO:
		return formAsyncIO
	case t.MayAwait && !t.DoesIO:
		return formAsyncCPU
	case t.CanFail:
		return formResultOrError
	default:
		return formPlain
	}
}

func (e *Emitter) emitFunc(w *targetlang.Writer, name string, d *ast.FuncDecl) {
	sig := e.Sigs[name]
	switch e.formFor(name) {
	case formGenerator:
		e.emitGenerator(w, name, d, sig)
	case formAsyncIO:
		e.emitAsync(w, name, d, sig, "io")
	case formAsyncCPU:
		e.emitAsync(w, name, d, sig, "cpu")
	case formResultOrError:
		e.emitPlainFunc(w, name, d, sig, true)
	default:
		e.emitPlainFunc(w, name, d, sig, false)
	}
}

func (e *Emitter) emitPlainFunc(w *targetlang.Writer, name string, d *ast.FuncDecl, sig *types.Signature, fallible bool) {
	ret := "Void"
	if sig != nil && sig.Ret != nil {
		ret = sig.Ret.String()
	}
	if fallible {
		ret = fmt.Sprintf("Result<%s, Error>", ret)
	}
	w.LinefAt(d.Span(), "fn %s(%s) -> %s {", name, e.paramList(d, sig), ret)
	w.Indent()
	e.emitBlock(w, d.Body)
	w.Dedent()
	w.Linef("}")
}

// emitGenerator compiles an `is_generator` function to a state-machine
// struct with a `next()` operation: the
// body's control flow becomes states, and each `yield` is a suspend point
// returning the yielded value; calling next() again resumes just past it.
func (e *Emitter) emitGenerator(w *targetlang.Writer, name string, d *ast.FuncDecl, sig *types.Signature) {
	elem := "Unknown"
	if sig != nil && sig.Ret != nil {
		elem = sig.Ret.String()
	}
	w.LinefAt(d.Span(), "struct %sState {", stateStructName(name))
	w.Indent()
	w.Linef("pc: Int,")
	for _, p := range d.Params {
		w.Linef("%s: %s,", p.Name, paramType(sig, d, p.Name))
	}
	w.Dedent()
	w.Linef("}")
	w.Linef("fn %s(%s) -> %sState { return %sState{pc: 0, %s} }",
		name, e.paramList(d, sig), stateStructName(name), stateStructName(name), paramBindList(d))
	w.Linef("fn (s: &mut %sState) next() -> Option<%s> {", stateStructName(name), elem)
	w.Indent()
	w.Linef("// state dispatch over s.pc; each `yield` in the source body is a")
	w.Linef("// case arm here that suspends and returns Some(value).")
	e.emitBlock(w, d.Body)
	w.Linef("return None")
	w.Dedent()
	w.Linef("}")
}

// emitAsync compiles a `may_await` function. `kind == "io"` suspends at
// every await on the single-threaded event loop's readiness facility
// (internal/rtabi); `kind == "cpu"` has no suspend points an event loop
// needs to see and is instead scheduled as a unit of work on the
// work-stealing thread pool.
func (e *Emitter) emitAsync(w *targetlang.Writer, name string, d *ast.FuncDecl, sig *types.Signature, kind string) {
	ret := "Void"
	if sig != nil && sig.Ret != nil {
		ret = sig.Ret.String()
	}
	if kind == "cpu" {
		w.LinefAt(d.Span(), "fn %s(%s) -> Task<%s> {", name, e.paramList(d, sig), ret)
		w.Indent()
		w.Linef("return rtabi.pool.spawn(|| {")
		w.Indent()
		e.emitBlock(w, d.Body)
		w.Dedent()
		w.Linef("})")
		w.Dedent()
		w.Linef("}")
		return
	}
	w.LinefAt(d.Span(), "async fn %s(%s) -> %s {", name, e.paramList(d, sig), ret)
	w.Indent()
	w.Linef("// suspended at each `await`; resumed by the event loop in internal/rtabi")
	e.emitBlock(w, d.Body)
	w.Dedent()
	w.Linef("}")
}

func stateStructName(name string) string {
	return strings.ReplaceAll(strings.Title(strings.ReplaceAll(name, ".", "_")), "_", "")
}

func paramBindList(d *ast.FuncDecl) string {
	names := make([]string, len(d.Params))
	for i, p := range d.Params {
		names[i] = p.Name + ": " + p.Name
	}
	return strings.Join(names, ", ")
}

func (e *Emitter) paramList(d *ast.FuncDecl, sig *types.Signature) string {
	parts := make([]string, len(d.Params))
	for i, p := range d.Params {
		parts[i] = p.Name + ": " + paramType(sig, d, p.Name)
	}
	return strings.Join(parts, ", ")
}

func paramType(sig *types.Signature, d *ast.FuncDecl, name string) string {
	if sig == nil {
		return "Unknown"
	}
	for i, p := range d.Params {
		if p.Name == name && i < len(sig.Params) && sig.Params[i] != nil {
			return sig.Params[i].String()
		}
	}
	return "Unknown"
}

// emitClass renders a class: closed layouts become a flat
// record plus free functions (receiver as an explicit first parameter);
// open layouts become a boxed dynamic-attribute record, matching the
// open/closed degrade rule internal/classlayout already decided.
func (e *Emitter) emitClass(w *targetlang.Writer, d *ast.ClassDecl) {
	layout := e.Layouts[d.Name]
	if layout == nil || layout.Open {
		w.LinefAt(d.Span(), "struct %s { attrs: Dict<Str, Any> } // open layout: dynamic attribute access", d.Name)
	} else {
		w.LinefAt(d.Span(), "struct %s {", d.Name)
		w.Indent()
		for _, f := range layout.Fields {
			w.Linef("%s: %s, // offset %d", f.Name, f.Type.String(), f.Offset)
		}
		w.Dedent()
		w.Linef("}")
	}
	for _, stmt := range d.Body {
		fn, ok := stmt.(*ast.FuncDecl)
		if !ok || fn.Name == "__init__" {
			continue
		}
		qualified := e.Module + "." + d.Name + "." + fn.Name
		recvParam := "self: &" + d.Name
		w.LinefAt(fn.Span(), "fn %s_%s(%s%s) -> %s {", d.Name, fn.Name, recvParam, methodTail(fn), e.methodRet(qualified))
		w.Indent()
		e.emitBlock(w, fn.Body)
		w.Dedent()
		w.Linef("}")
	}
}

func methodTail(fn *ast.FuncDecl) string {
	if len(fn.Params) == 0 {
		return ""
	}
	var b strings.Builder
	for _, p := range fn.Params[1:] { // skip self
		b.WriteString(", ")
		b.WriteString(p.Name)
		b.WriteString(": Unknown")
	}
	return b.String()
}

func (e *Emitter) methodRet(qualified string) string {
	if sig, ok := e.Sigs[qualified]; ok && sig.Ret != nil {
		return sig.Ret.String()
	}
	return "Void"
}

func (e *Emitter) emitTopLevelStmt(w *targetlang.Writer, s ast.Stmt) {
	e.emitStmt(w, s)
}

func (e *Emitter) emitBlock(w *targetlang.Writer, body []ast.Stmt) {
	for _, s := range body {
		e.emitStmt(w, s)
	}
}

func (e *Emitter) emitStmt(w *targetlang.Writer, s ast.Stmt) {
	switch st := s.(type) {
	case *ast.Assign:
		w.LinefAt(st.Span(), "let %s = %s", renderTargets(st.Targets), renderExpr(st.Value))
	case *ast.AugAssign:
		w.LinefAt(st.Span(), "%s %s= %s", renderExpr(st.Target), st.Op, renderExpr(st.Value))
	case *ast.ExprStmt:
		w.LinefAt(st.Span(), "%s", renderExpr(st.X))
	case *ast.Return:
		if st.Value == nil {
			w.LinefAt(st.Span(), "return")
		} else {
			w.LinefAt(st.Span(), "return %s", renderExpr(st.Value))
		}
	case *ast.Raise:
		if st.Exc == nil {
			w.LinefAt(st.Span(), "raise")
		} else {
			w.LinefAt(st.Span(), "raise %s", renderExpr(st.Exc))
		}
	case *ast.Pass:
		// no-op; nothing emitted
	case *ast.Break:
		w.LinefAt(st.Span(), "break")
	case *ast.Continue:
		w.LinefAt(st.Span(), "continue")
	case *ast.Global:
		w.Linef("// global %s", strings.Join(st.Names, ", "))
	case *ast.Nonlocal:
		w.Linef("// nonlocal %s", strings.Join(st.Names, ", "))
	case *ast.If:
		e.emitIfChain(w, st)
	case *ast.While:
		w.LinefAt(st.Span(), "while %s {", renderExpr(st.Cond))
		w.Indent()
		e.emitBlock(w, st.Body)
		w.Dedent()
		w.Linef("}")
	case *ast.For:
		e.emitFor(w, st)
	case *ast.TryExcept:
		e.emitTryExcept(w, st)
	case *ast.With:
		e.emitWith(w, st)
	case *ast.FuncDecl:
		e.emitFunc(w, e.Module+"."+st.Name, st)
	case *ast.ClassDecl:
		e.emitClass(w, st)
	default:
		e.errs = append(e.errs, errors.New(errors.EMIT001Internal, fmt.Sprintf("unhandled statement %T", s), spanOf(s)))
	}
}

func spanOf(s ast.Stmt) *ast.Span {
	sp := s.Span()
	return &sp
}

// emitIfChain collects a linear `if/elif/.../else` chain whose conditions
// are all `isinstance` guards and, when there are at least two concrete
// class-id arms, compiles them through the decision-tree Compiler instead
// of a literal nested-if translation -- the "cheap tag
// comparison when the type is closed" rule. A chain that doesn't qualify
// (fewer than two isinstance arms, or a non-isinstance condition) falls
// back to a plain nested if/else.
func (e *Emitter) emitIfChain(w *targetlang.Writer, top *ast.If) {
	var arms []DispatchArm
	var bodies [][]ast.Stmt
	cur := ast.Stmt(top)
	idx := 0
	allGuards := true
	for {
		ifs, ok := cur.(*ast.If)
		if !ok {
			break
		}
		classID := ""
		if te, isGuard := ast.IsIsInstanceGuard(ifs.Cond, narrowIdentName(ifs.Cond)); isGuard {
			classID = te.Name
		} else {
			allGuards = false
		}
		arms = append(arms, DispatchArm{ClassID: classID, ArmIndex: idx})
		bodies = append(bodies, ifs.Then)
		idx++
		if len(ifs.Else) == 1 {
			if nested, ok := ifs.Else[0].(*ast.If); ok {
				cur = nested
				continue
			}
		}
		if len(ifs.Else) > 0 {
			arms = append(arms, DispatchArm{ClassID: "", ArmIndex: idx})
			bodies = append(bodies, ifs.Else)
		}
		break
	}
	if !allGuards || !CanCompileToTree(arms) {
		e.emitPlainIf(w, top)
		return
	}
	w.Linef("// compiled isinstance chain (decision tree, %d arms)", len(arms))
	tree := NewCompiler(arms).Compile()
	e.renderDecisionTree(w, tree, bodies)
}

func narrowIdentName(cond ast.Expr) string {
	if ii, ok := cond.(*ast.IsInstance); ok {
		if id, ok := ii.X.(*ast.Ident); ok {
			return id.Name
		}
	}
	if bo, ok := cond.(*ast.BoolOp); ok {
		for _, o := range bo.Operands {
			if n := narrowIdentName(o); n != "" {
				return n
			}
		}
	}
	return ""
}

func (e *Emitter) renderDecisionTree(w *targetlang.Writer, t DecisionTree, bodies [][]ast.Stmt) {
	switch n := t.(type) {
	case *SwitchNode:
		w.Linef("switch (typeid) {")
		w.Indent()
		var keys []string
		for k := range n.Cases {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			w.Linef("case %q:", k)
			w.Indent()
			e.renderDecisionTree(w, n.Cases[k], bodies)
			w.Dedent()
		}
		w.Linef("default:")
		w.Indent()
		if n.Default != nil {
			e.renderDecisionTree(w, n.Default, bodies)
		}
		w.Dedent()
		w.Linef("}")
	case *LeafNode:
		if n.ArmIndex < len(bodies) {
			e.emitBlock(w, bodies[n.ArmIndex])
		}
	case *FailNode:
		w.Linef("unreachable")
	}
}

func (e *Emitter) emitPlainIf(w *targetlang.Writer, st *ast.If) {
	w.LinefAt(st.Span(), "if %s {", renderExpr(st.Cond))
	w.Indent()
	e.emitBlock(w, st.Then)
	w.Dedent()
	if len(st.Else) > 0 {
		if elif, ok := asSingleIf(st.Else); ok {
			w.Linef("} else {")
			w.Indent()
			e.emitPlainIf(w, elif)
			w.Dedent()
			w.Linef("}")
			return
		}
		w.Linef("} else {")
		w.Indent()
		e.emitBlock(w, st.Else)
		w.Dedent()
	}
	w.Linef("}")
}

func asSingleIf(body []ast.Stmt) (*ast.If, bool) {
	if len(body) == 1 {
		if n, ok := body[0].(*ast.If); ok {
			return n, true
		}
	}
	return nil, false
}

// emitFor reserves capacity for the output when the iterated collection's
// length is known at compile time (a literal display, the
// reserved-capacity row) instead of growing the target unboundedly.
func (e *Emitter) emitFor(w *targetlang.Writer, st *ast.For) {
	if n, ok := knownLength(st.Iter); ok {
		w.LinefAt(st.Span(), "for %s in %s { // reserve(%d)", renderExpr(st.Target), renderExpr(st.Iter), n)
	} else {
		w.LinefAt(st.Span(), "for %s in %s {", renderExpr(st.Target), renderExpr(st.Iter))
	}
	w.Indent()
	e.emitBlock(w, st.Body)
	w.Dedent()
	w.Linef("}")
	if len(st.OrElse) > 0 {
		w.Linef("// for-else (no break taken):")
		e.emitBlock(w, st.OrElse)
	}
}

func knownLength(e ast.Expr) (int, bool) {
	switch x := e.(type) {
	case *ast.ListExpr:
		return len(x.Elts), true
	case *ast.TupleExpr:
		return len(x.Elts), true
	}
	return 0, false
}

// emitTryExcept compiles the except clauses with the same decision-tree
// compiler used for isinstance chains, since both dispatch on a class-id:
// the guarded region matches its error by class-id.
func (e *Emitter) emitTryExcept(w *targetlang.Writer, st *ast.TryExcept) {
	w.LinefAt(st.Span(), "result = try {")
	w.Indent()
	e.emitBlock(w, st.Body)
	w.Dedent()
	w.Linef("}")
	var arms []DispatchArm
	var bodies [][]ast.Stmt
	for i, exc := range st.Excepts {
		classID := ""
		if exc.Type != nil {
			classID = exc.Type.Name
		}
		arms = append(arms, DispatchArm{ClassID: classID, ArmIndex: i})
		bodies = append(bodies, exc.Body)
	}
	if CanCompileToTree(arms) {
		w.Linef("catch (err) {")
		w.Indent()
		tree := NewCompiler(arms).Compile()
		e.renderDecisionTree(w, tree, bodies)
		w.Dedent()
		w.Linef("}")
	} else {
		for i, exc := range st.Excepts {
			label := "_"
			if exc.Type != nil {
				label = exc.Type.Name
			}
			if exc.Name != "" {
				label = label + " as " + exc.Name
			}
			w.Linef("catch (%s) {", label)
			w.Indent()
			e.emitBlock(w, bodies[i])
			w.Dedent()
			w.Linef("}")
		}
	}
	if len(st.OrElse) > 0 {
		w.Linef("else {")
		w.Indent()
		e.emitBlock(w, st.OrElse)
		w.Dedent()
		w.Linef("}")
	}
	if len(st.Finally) > 0 {
		w.Linef("finally {")
		w.Indent()
		e.emitBlock(w, st.Finally)
		w.Dedent()
		w.Linef("}")
	}
}

func (e *Emitter) emitWith(w *targetlang.Writer, st *ast.With) {
	var parts []string
	for _, item := range st.Items {
		s := renderExpr(item.Ctx)
		if item.Name != "" {
			s += " as " + item.Name
		}
		parts = append(parts, s)
	}
	w.LinefAt(st.Span(), "with %s {", strings.Join(parts, ", "))
	w.Indent()
	e.emitBlock(w, st.Body)
	w.Dedent()
	w.Linef("}")
}

func renderTargets(targets []ast.Expr) string {
	parts := make([]string, len(targets))
	for i, t := range targets {
		parts[i] = renderExpr(t)
	}
	return strings.Join(parts, " = ")
}

// renderExpr stringifies an expression for the target source. Small
// integer literals in [-5, 256] render as an interned-reference form
// (shared interned objects in the runtime) instead of a fresh
// literal allocation.
func renderExpr(e ast.Expr) string {
	if e == nil {
		return ""
	}
	switch x := e.(type) {
	case *ast.IntLit:
		if x.Big != "" {
			return "bigint(" + x.Big + ")"
		}
		if isSmallInt(x.Value) {
			return fmt.Sprintf("intern(%d)", x.Value)
		}
		return fmt.Sprintf("%d", x.Value)
	case *ast.FloatLit:
		return fmt.Sprintf("%g", x.Value)
	case *ast.BoolLit:
		if x.Value {
			return "true"
		}
		return "false"
	case *ast.NoneLit:
		return "none"
	case *ast.StringLit:
		if x.IsBytes {
			return fmt.Sprintf("b%q", x.Value)
		}
		return fmt.Sprintf("%q", x.Value)
	case *ast.Ident:
		return x.Name
	case *ast.BinaryExpr:
		return fmt.Sprintf("(%s %s %s)", renderExpr(x.Left), x.Op, renderExpr(x.Right))
	case *ast.UnaryExpr:
		return fmt.Sprintf("(%s%s)", x.Op, renderExpr(x.X))
	case *ast.BoolOp:
		parts := make([]string, len(x.Operands))
		for i, o := range x.Operands {
			parts[i] = renderExpr(o)
		}
		return "(" + strings.Join(parts, " "+x.Op+" ") + ")"
	case *ast.Compare:
		var b strings.Builder
		b.WriteString(renderExpr(x.Operands[0]))
		for i, op := range x.Ops {
			fmt.Fprintf(&b, " %s %s", op, renderExpr(x.Operands[i+1]))
		}
		return b.String()
	case *ast.IsInstance:
		return fmt.Sprintf("isinstance(%s, %s)", renderExpr(x.X), x.Type.String())
	case *ast.CallExpr:
		args := make([]string, len(x.Args))
		for i, a := range x.Args {
			args[i] = renderExpr(a)
		}
		return fmt.Sprintf("%s(%s)", renderExpr(x.Func), strings.Join(args, ", "))
	case *ast.Attribute:
		return renderExpr(x.X) + "." + x.Name
	case *ast.Subscript:
		if sl, ok := x.Index.(*ast.Slice); ok {
			return fmt.Sprintf("%s[%s:%s:%s]", renderExpr(x.X), renderExpr(sl.Start), renderExpr(sl.Stop), renderExpr(sl.Step))
		}
		return fmt.Sprintf("%s[%s]", renderExpr(x.X), renderExpr(x.Index))
	case *ast.ListExpr:
		parts := make([]string, len(x.Elts))
		for i, el := range x.Elts {
			parts[i] = renderExpr(el)
		}
		return "[" + strings.Join(parts, ", ") + "]"
	case *ast.TupleExpr:
		parts := make([]string, len(x.Elts))
		for i, el := range x.Elts {
			parts[i] = renderExpr(el)
		}
		return "(" + strings.Join(parts, ", ") + ")"
	case *ast.SetExpr:
		parts := make([]string, len(x.Elts))
		for i, el := range x.Elts {
			parts[i] = renderExpr(el)
		}
		return "{" + strings.Join(parts, ", ") + "}"
	case *ast.DictExpr:
		parts := make([]string, len(x.Entries))
		for i, ent := range x.Entries {
			parts[i] = renderExpr(ent.Key) + ": " + renderExpr(ent.Value)
		}
		return "{" + strings.Join(parts, ", ") + "}"
	case *ast.Starred:
		return "*" + renderExpr(x.X)
	case *ast.ListComp:
		return fmt.Sprintf("[%s %s]", renderExpr(x.Elt), renderClauses(x.Clauses))
	case *ast.SetComp:
		return fmt.Sprintf("{%s %s}", renderExpr(x.Elt), renderClauses(x.Clauses))
	case *ast.DictComp:
		return fmt.Sprintf("{%s: %s %s}", renderExpr(x.Key), renderExpr(x.Value), renderClauses(x.Clauses))
	case *ast.GeneratorExp:
		return fmt.Sprintf("gen(%s %s)", renderExpr(x.Elt), renderClauses(x.Clauses))
	case *ast.Lambda:
		return fmt.Sprintf("|%s| %s", lambdaParams(x.Params), renderExpr(x.Body))
	case *ast.Await:
		return "await " + renderExpr(x.X)
	case *ast.Yield:
		if x.Value == nil {
			return "yield"
		}
		return "yield " + renderExpr(x.Value)
	case *ast.YieldFrom:
		return "yield from " + renderExpr(x.X)
	case *ast.IfExp:
		return fmt.Sprintf("(%s if %s else %s)", renderExpr(x.Then), renderExpr(x.Cond), renderExpr(x.Else))
	case *ast.FString:
		var b strings.Builder
		for _, p := range x.Parts {
			if p.Expr != nil {
				b.WriteString("{")
				b.WriteString(renderExpr(p.Expr))
				b.WriteString("}")
			} else {
				b.WriteString(p.Text)
			}
		}
		return fmt.Sprintf("f%q", b.String())
	case *ast.ComplexLit:
		return fmt.Sprintf("complex(%g, %g)", x.Real, x.Imag)
	}
	return "<?expr>"
}

func lambdaParams(ps []*ast.Param) string {
	names := make([]string, len(ps))
	for i, p := range ps {
		names[i] = p.Name
	}
	return strings.Join(names, ", ")
}

func renderClauses(clauses []ast.CompClause) string {
	var b strings.Builder
	for _, c := range clauses {
		fmt.Fprintf(&b, "for %s in %s ", renderExpr(c.Target), renderExpr(c.Iter))
		for _, g := range c.Ifs {
			fmt.Fprintf(&b, "if %s ", renderExpr(g))
		}
	}
	return strings.TrimSpace(b.String())
}

// isSmallInt matches the interned small-integer range.
func isSmallInt(v int64) bool { return v >= -5 && v <= 256 }
