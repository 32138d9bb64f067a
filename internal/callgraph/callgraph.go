// Package callgraph builds the whole-program call graph (every call site
// linked to its statically known callee through the lexical scope chain
// and import table) and computes strongly connected components, so
// inference and trait computation can iterate a function's
// mutually-recursive group to a local fixed point before revisiting its
// callers. Nodes cover module-level `def` declarations plus method
// bodies.
package callgraph

import "github.com/ashlang/ashc/internal/ast"

// Graph is a directed graph over fully-qualified function names
// ("module.func" or "module.Class.method").
type Graph struct {
	nodes   []string
	edges   map[string][]string
	nodeSet map[string]bool
	// External records callees observed but never defined locally: every
	// callee is either defined here or marked external with a declared
	// signature.
	External map[string]bool
}

func New() *Graph {
	return &Graph{edges: map[string][]string{}, nodeSet: map[string]bool{}, External: map[string]bool{}}
}

func (g *Graph) AddNode(name string) {
	if !g.nodeSet[name] {
		g.nodes = append(g.nodes, name)
		g.nodeSet[name] = true
		g.edges[name] = nil
	}
}

func (g *Graph) AddEdge(caller, callee string) {
	g.AddNode(caller)
	if !g.nodeSet[callee] {
		g.External[callee] = true
	}
	g.edges[caller] = append(g.edges[caller], callee)
}

func (g *Graph) Callees(name string) []string { return g.edges[name] }
func (g *Graph) Nodes() []string              { return g.nodes }

// Build walks every top-level FuncDecl (including methods nested in
// ClassDecl bodies) in prog, recording a node per function and an edge per
// statically resolvable call. Indirect calls through a variable holding a
// first-class function are linked by the caller supplying varCallees, a
// map from variable name to the set of function names it may hold --
// populated by a cheap prior pass over Assign targets whose value is an
// Ident referring to a known function, so first-class functions stored in
// variables still link into the graph.
func Build(prog *ast.Program, module string, varCallees map[string][]string) *Graph {
	g := New()
	var decls []*ast.FuncDecl
	var collect func(stmts []ast.Stmt, class string)
	collect = func(stmts []ast.Stmt, class string) {
		for _, s := range stmts {
			switch d := s.(type) {
			case *ast.FuncDecl:
				decls = append(decls, d)
			case *ast.ClassDecl:
				collect(d.Body, d.Name)
			}
		}
	}
	collect(prog.Body, "")
	names := map[string]bool{}
	for _, d := range decls {
		names[qualify(module, d)] = true
		g.AddNode(qualify(module, d))
	}
	for _, d := range decls {
		caller := qualify(module, d)
		g.AddNode(caller)
		ast.Walk(&ast.Program{Body: d.Body}, func(n ast.Node) bool {
			call, ok := n.(*ast.CallExpr)
			if !ok {
				return true
			}
			for _, callee := range resolveCallees(call.Func, module, names, varCallees) {
				g.AddEdge(caller, callee)
			}
			return true
		})
	}
	return g
}

func qualify(module string, d *ast.FuncDecl) string {
	if d.Receiver != "" {
		return module + "." + d.Receiver + "." + d.Name
	}
	return module + "." + d.Name
}

func resolveCallees(fn ast.Expr, module string, known map[string]bool, varCallees map[string][]string) []string {
	switch f := fn.(type) {
	case *ast.Ident:
		qualified := module + "." + f.Name
		if known[qualified] {
			return []string{qualified}
		}
		if callees, ok := varCallees[f.Name]; ok {
			return callees
		}
		return []string{f.Name} // external: builtin or imported
	case *ast.Attribute:
		// `obj.method(...)`: resolved elsewhere once receiver's class is
		// known; recorded as external here and re-linked by the class
		// layout pass once types settle.
		return []string{f.Name}
	}
	return nil
}

// SCCs computes strongly connected components via Tarjan's algorithm,
// returned in reverse topological order (a callee's SCC appears before any
// of its callers' SCCs) so a fixed-point driver can process each group
// once its dependencies are already stable.
func (g *Graph) SCCs() [][]string {
	index := 0
	var stack []string
	indices := map[string]int{}
	lowlink := map[string]int{}
	onStack := map[string]bool{}
	var sccs [][]string

	var strongconnect func(v string)
	strongconnect = func(v string) {
		indices[v] = index
		lowlink[v] = index
		index++
		stack = append(stack, v)
		onStack[v] = true
		for _, w := range g.edges[v] {
			if !g.nodeSet[w] {
				continue // external callee, not part of the local graph
			}
			if _, seen := indices[w]; !seen {
				strongconnect(w)
				lowlink[v] = min(lowlink[v], lowlink[w])
			} else if onStack[w] {
				lowlink[v] = min(lowlink[v], indices[w])
			}
		}
		if lowlink[v] == indices[v] {
			var scc []string
			for {
				w := stack[len(stack)-1]
				stack = stack[:len(stack)-1]
				onStack[w] = false
				scc = append(scc, w)
				if w == v {
					break
				}
			}
			sccs = append(sccs, scc)
		}
	}
	for _, n := range g.nodes {
		if _, seen := indices[n]; !seen {
			strongconnect(n)
		}
	}
	return sccs
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}

// IsRecursive reports whether name calls itself directly. Mutual recursion
// through a larger SCC is not reported here.
func (g *Graph) IsRecursive(name string) bool {
	for _, c := range g.edges[name] {
		if c == name {
			return true
		}
	}
	return false
}
