package orchestrator

import (
	"path/filepath"
	"sort"
	"strings"

	"github.com/ashlang/ashc/internal/ast"
	"github.com/ashlang/ashc/internal/callgraph"
	"github.com/ashlang/ashc/internal/classlayout"
	"github.com/ashlang/ashc/internal/emit"
	"github.com/ashlang/ashc/internal/errors"
	"github.com/ashlang/ashc/internal/lexer"
	"github.com/ashlang/ashc/internal/parser"
	"github.com/ashlang/ashc/internal/targetlang"
	"github.com/ashlang/ashc/internal/traits"
	"github.com/ashlang/ashc/internal/types"
)

// SourceExt is the extension compiled source files carry.
const SourceExt = ".ash"

// CompiledUnit is the front-end's output for one file: the emitted module
// plus everything the cache key needs.
type CompiledUnit struct {
	File          string
	Module        string
	Source        []byte
	Emitted       targetlang.Module
	ExportedTypes string
	Empty         bool
}

// ModuleName derives the module name from the file path.
func ModuleName(file string) string {
	return strings.TrimSuffix(filepath.Base(file), SourceExt)
}

// CompileSource runs C1 through C4 over one file's bytes. Reports abort
// the file (the orchestrator moves on to the rest); inference widening
// notes (TYP004) do not abort the file and are not returned.
func CompileSource(file string, src []byte) (*CompiledUnit, []*errors.Report) {
	src = lexer.Normalize(src)
	module := ModuleName(file)

	toks, lexErrs := lexer.New(file, src).Tokenize()
	if len(lexErrs) > 0 {
		return nil, lexErrs
	}
	prog, parseErrs := parser.New(file, toks).Parse()
	if len(parseErrs) > 0 {
		return nil, parseErrs
	}
	prog.Module = module

	decls := collectDecls(prog, module)
	g := callgraph.Build(prog, module, findVarCallees(prog, module, decls))

	inf := types.NewInference()
	inf.RunProgram(prog, module, decls, g)
	var fatal []*errors.Report
	for _, d := range inf.Diagnostics {
		if d.Code != errors.TYP004BudgetExceeded {
			fatal = append(fatal, d)
		}
	}
	if len(fatal) > 0 {
		return nil, fatal
	}

	tr := traits.Compute(decls, g)

	builder := classlayout.NewBuilder()
	classOfVar := map[string]string{}
	ast.Walk(prog, func(n ast.Node) bool {
		if d, ok := n.(*ast.ClassDecl); ok {
			builder.AddClass(d)
		}
		return true
	})
	// Top-level `x = C()` bindings give FindDynamicMutations enough to map
	// a setattr target back to its class.
	classNames := map[string]bool{}
	ast.Walk(prog, func(n ast.Node) bool {
		if d, ok := n.(*ast.ClassDecl); ok {
			classNames[d.Name] = true
		}
		return true
	})
	for _, s := range prog.Body {
		assign, ok := s.(*ast.Assign)
		if !ok || len(assign.Targets) != 1 {
			continue
		}
		target, ok := assign.Targets[0].(*ast.Ident)
		if !ok {
			continue
		}
		if call, ok := assign.Value.(*ast.CallExpr); ok {
			if cls, ok := call.Func.(*ast.Ident); ok && classNames[cls.Name] {
				classOfVar[target.Name] = cls.Name
			}
		}
	}
	dynamic := classlayout.FindDynamicMutations(prog, func(v string) (string, bool) {
		cls, ok := classOfVar[v]
		return cls, ok
	})
	layouts := builder.Build(dynamic)

	em := emit.New(module, tr, inf.Sigs, layouts)
	mod, emitErrs := em.EmitProgram(prog, func(d *ast.FuncDecl) string { return qualify(module, d) })
	if len(emitErrs) > 0 {
		return nil, emitErrs
	}

	return &CompiledUnit{
		File:          file,
		Module:        module,
		Source:        src,
		Emitted:       mod,
		ExportedTypes: renderExportedTypes(inf.Sigs),
		Empty:         len(prog.Body) == 0,
	}, nil
}

func qualify(module string, d *ast.FuncDecl) string {
	if d.Receiver != "" {
		return module + "." + d.Receiver + "." + d.Name
	}
	return module + "." + d.Name
}

func collectDecls(prog *ast.Program, module string) map[string]*ast.FuncDecl {
	decls := map[string]*ast.FuncDecl{}
	var collect func(stmts []ast.Stmt)
	collect = func(stmts []ast.Stmt) {
		for _, s := range stmts {
			switch d := s.(type) {
			case *ast.FuncDecl:
				decls[qualify(module, d)] = d
			case *ast.ClassDecl:
				collect(d.Body)
			}
		}
	}
	collect(prog.Body)
	return decls
}

// findVarCallees records `x = f` bindings where f names a known function,
// so indirect calls through x link into the call graph.
func findVarCallees(prog *ast.Program, module string, decls map[string]*ast.FuncDecl) map[string][]string {
	out := map[string][]string{}
	ast.Walk(prog, func(n ast.Node) bool {
		assign, ok := n.(*ast.Assign)
		if !ok || len(assign.Targets) != 1 {
			return true
		}
		target, ok := assign.Targets[0].(*ast.Ident)
		if !ok {
			return true
		}
		if value, ok := assign.Value.(*ast.Ident); ok {
			qualified := module + "." + value.Name
			if _, known := decls[qualified]; known {
				out[target.Name] = append(out[target.Name], qualified)
			}
		}
		return true
	})
	return out
}

// renderExportedTypes produces the canonical signature rendering folded
// into the cache key: sorted by name, one "name: (params) -> ret" clause
// per function, so any signature change invalidates dependent artifacts.
func renderExportedTypes(sigs map[string]*types.Signature) string {
	names := make([]string, 0, len(sigs))
	for name := range sigs {
		names = append(names, name)
	}
	sort.Strings(names)
	var b strings.Builder
	for _, name := range names {
		sig := sigs[name]
		b.WriteString(name)
		b.WriteString(": (")
		for i, p := range sig.Params {
			if i > 0 {
				b.WriteString(", ")
			}
			b.WriteString(p.String())
		}
		b.WriteString(") -> ")
		b.WriteString(sig.Ret.String())
		b.WriteString("\n")
	}
	return b.String()
}
