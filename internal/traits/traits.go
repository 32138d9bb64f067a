// Package traits computes the per-function FunctionTrait record: a
// monotone fixed-point over the call graph built by internal/callgraph,
// iterated per strongly-connected component in reverse topological order
// so a callee's traits are already stable before its caller's traits are
// computed -- except within a single SCC, where the fixed point runs to
// local convergence.
package traits

import (
	"sort"
	"strings"

	"github.com/ashlang/ashc/internal/ast"
	"github.com/ashlang/ashc/internal/callgraph"
	"github.com/ashlang/ashc/internal/effects"
)

// ioPrimitives is the closed does_io list: exactly the operations the
// runtime's capability-gated effect registry exposes (file, socket, timer,
// stdin/stdout). Deriving it from internal/effects keeps the analyzer and
// the runtime ABI in lockstep -- an op added to the registry is an I/O
// primitive the moment it exists.
var ioPrimitives = effects.PrimitiveNames()

// FunctionTrait is the record the emitter's codegen decisions are a pure
// function of: no branch in the emitter re-derives any of these facts.
type FunctionTrait struct {
	Name            string
	MayAwait        bool
	DoesIO          bool
	MutatesParam    map[int]bool
	CanFail         bool
	NeedsAllocator  bool
	IsPure          bool
	IsTailRecursive bool
	IsGenerator     bool
	CapturedVars    []string
	Callees         []string
}

// Compute runs the trait fixed point over every function in decls
// (top-level defs and methods, keyed the same way callgraph.Build
// qualifies them), using g for call-graph edges and SCC iteration order.
func Compute(decls map[string]*ast.FuncDecl, g *callgraph.Graph) map[string]*FunctionTrait {
	result := map[string]*FunctionTrait{}
	for name, d := range decls {
		result[name] = &FunctionTrait{
			Name:         name,
			IsGenerator:  d.IsGenerator,
			MutatesParam: map[int]bool{},
		}
	}
	sccs := g.SCCs()
	// Process in the order Tarjan's algorithm naturally produces: a node's
	// SCC is emitted only after all its successors' SCCs, i.e. already
	// reverse-topological (callees before callers), so propagation needs
	// no global worklist.
	for _, scc := range sccs {
		fixedPoint(scc, decls, result, g)
	}
	return result
}

// fixedPoint iterates local trait propagation within one SCC until no
// trait changes, bounded implicitly by the finite number of boolean fields
// (the lattice has finite height: false -> true is the only direction any
// field moves, so termination follows from the finite lattice height).
func fixedPoint(scc []string, decls map[string]*ast.FuncDecl, result map[string]*FunctionTrait, g *callgraph.Graph) {
	changed := true
	for changed {
		changed = false
		for _, name := range scc {
			d, ok := decls[name]
			if !ok {
				continue
			}
			t := result[name]
			before := *t
			computeOne(d, t, result, g)
			if !sameTrait(before, *t) {
				changed = true
			}
		}
	}
}

func computeOne(d *ast.FuncDecl, t *FunctionTrait, result map[string]*FunctionTrait, g *callgraph.Graph) {
	t.IsTailRecursive = isTailRecursive(d)
	callSet := map[string]bool{}
	raiseReachable := false
	mutated := map[int]bool{}
	paramIndex := map[string]int{}
	for i, p := range d.Params {
		paramIndex[p.Name] = i
	}
	ast.Walk(&ast.Program{Body: d.Body}, func(n ast.Node) bool {
		switch v := n.(type) {
		case *ast.Raise:
			raiseReachable = true
		case *ast.Await:
			t.MayAwait = true
		case *ast.CallExpr:
			if id, ok := v.Func.(*ast.Ident); ok {
				callSet[id.Name] = true
				if ioPrimitives[id.Name] {
					t.DoesIO = true
				}
			}
		case *ast.Assign:
			for _, target := range v.Targets {
				markMutation(target, paramIndex, mutated)
			}
		case *ast.AugAssign:
			markMutation(v.Target, paramIndex, mutated)
		}
		return true
	})
	for i := range mutated {
		t.MutatesParam[i] = true
	}
	t.CanFail = raiseReachable
	// Callees are recorded by bare name at the call site; resolve them
	// through the function's own module scope (the first dot component of
	// its qualified name) before consulting the trait table.
	var callees []string
	allCalleesPure := true
	for callee := range callSet {
		qualified := qualifyCallee(t.Name, callee)
		other, known := result[qualified]
		if !known {
			other, known = result[callee]
		}
		if known {
			callees = append(callees, qualified)
			if other.CanFail {
				t.CanFail = true
			}
			if other.MayAwait {
				t.MayAwait = true
			}
			if other.DoesIO {
				t.DoesIO = true
			}
			if !other.IsPure {
				allCalleesPure = false
			}
			continue
		}
		callees = append(callees, callee)
		// Unknown callees (builtins/imports) are conservatively impure.
		allCalleesPure = false
	}
	sort.Strings(callees)
	t.Callees = callees
	anyMutation := len(t.MutatesParam) > 0
	t.IsPure = !t.DoesIO && !anyMutation && !t.CanFail && allCalleesPure
}

func qualifyCallee(callerQualified, calleeName string) string {
	if i := strings.IndexByte(callerQualified, '.'); i >= 0 {
		return callerQualified[:i+1] + calleeName
	}
	return calleeName
}

func markMutation(target ast.Expr, paramIndex map[string]int, mutated map[int]bool) {
	switch tgt := target.(type) {
	case *ast.Attribute:
		if id, ok := tgt.X.(*ast.Ident); ok {
			if i, isParam := paramIndex[id.Name]; isParam {
				mutated[i] = true
			}
		}
	case *ast.Subscript:
		if id, ok := tgt.X.(*ast.Ident); ok {
			if i, isParam := paramIndex[id.Name]; isParam {
				mutated[i] = true
			}
		}
	}
}

// isTailRecursive holds iff every recursive call to d's own name appears in
// tail position: either the whole-statement value of
// a bare `return f(...)`, or recursively in tail position in the arms of an
// `if` whose branches all end that way.
func isTailRecursive(d *ast.FuncDecl) bool {
	hasRecursiveCall := false
	ast.Walk(&ast.Program{Body: d.Body}, func(n ast.Node) bool {
		if call, ok := n.(*ast.CallExpr); ok {
			if id, ok := call.Func.(*ast.Ident); ok && id.Name == d.Name {
				hasRecursiveCall = true
			}
		}
		return true
	})
	if !hasRecursiveCall {
		return false
	}
	return allRecursiveCallsInTailPosition(d.Body, d.Name)
}

func allRecursiveCallsInTailPosition(body []ast.Stmt, name string) bool {
	ok := true
	for i, s := range body {
		isLast := i == len(body)-1
		switch st := s.(type) {
		case *ast.Return:
			if !isLast {
				continue
			}
			if !returnIsTailSafe(st.Value, name) {
				ok = false
			}
		case *ast.If:
			if !allRecursiveCallsInTailPosition(st.Then, name) {
				ok = false
			}
			if !allRecursiveCallsInTailPosition(st.Else, name) {
				ok = false
			}
		default:
			// A recursive call anywhere in a non-terminal, non-branching
			// statement is not in tail position.
			hasCall := false
			ast.Walk(s, func(n ast.Node) bool {
				if call, isCall := n.(*ast.CallExpr); isCall {
					if id, isIdent := call.Func.(*ast.Ident); isIdent && id.Name == name {
						hasCall = true
					}
				}
				return true
			})
			if hasCall {
				ok = false
			}
		}
	}
	return ok
}

// returnIsTailSafe reports whether value, the expression of a `return`
// statement, either isn't a recursive call at all or is exactly a recursive
// call (not buried inside a larger expression, which would require
// post-call work and so isn't a true tail call).
func returnIsTailSafe(value ast.Expr, name string) bool {
	if call, ok := value.(*ast.CallExpr); ok {
		if id, ok := call.Func.(*ast.Ident); ok && id.Name == name {
			// A direct recursive tail call; its own arguments must not
			// themselves bury another recursive call (that work would run
			// before the tail call, breaking the tail-recursion guarantee).
			for _, a := range call.Args {
				if containsRecursiveCall(a, name) {
					return false
				}
			}
			return true
		}
	}
	// Not a direct recursive call: fine as long as no recursive call is
	// nested inside it (e.g. `return f(n-1) + f(n-2)` is NOT tail recursive).
	return !containsRecursiveCall(value, name)
}

func containsRecursiveCall(e ast.Expr, name string) bool {
	if e == nil {
		return false
	}
	found := false
	ast.Walk(e, func(n ast.Node) bool {
		if c, ok := n.(*ast.CallExpr); ok {
			if id, ok := c.Func.(*ast.Ident); ok && id.Name == name {
				found = true
			}
		}
		return true
	})
	return found
}

func sameTrait(a, b FunctionTrait) bool {
	if a.MayAwait != b.MayAwait || a.DoesIO != b.DoesIO || a.CanFail != b.CanFail ||
		a.IsPure != b.IsPure || a.IsTailRecursive != b.IsTailRecursive {
		return false
	}
	if len(a.MutatesParam) != len(b.MutatesParam) {
		return false
	}
	for k := range a.MutatesParam {
		if !b.MutatesParam[k] {
			return false
		}
	}
	return true
}
