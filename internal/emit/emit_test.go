package emit_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ashlang/ashc/internal/ast"
	"github.com/ashlang/ashc/internal/callgraph"
	"github.com/ashlang/ashc/internal/classlayout"
	"github.com/ashlang/ashc/internal/emit"
	"github.com/ashlang/ashc/internal/lexer"
	"github.com/ashlang/ashc/internal/parser"
	"github.com/ashlang/ashc/internal/traits"
	"github.com/ashlang/ashc/internal/types"
)

// emitSource drives the front half of the pipeline and returns the
// emitted module text.
func emitSource(t *testing.T, src string) string {
	t.Helper()
	toks, lexErrs := lexer.New("t.ash", []byte(src)).Tokenize()
	require.Empty(t, lexErrs)
	prog, parseErrs := parser.New("t.ash", toks).Parse()
	require.Zero(t, len(parseErrs))

	decls := map[string]*ast.FuncDecl{}
	var collect func(stmts []ast.Stmt)
	collect = func(stmts []ast.Stmt) {
		for _, s := range stmts {
			switch d := s.(type) {
			case *ast.FuncDecl:
				name := "m." + d.Name
				if d.Receiver != "" {
					name = "m." + d.Receiver + "." + d.Name
				}
				decls[name] = d
			case *ast.ClassDecl:
				collect(d.Body)
			}
		}
	}
	collect(prog.Body)

	g := callgraph.Build(prog, "m", nil)
	inf := types.NewInference()
	inf.RunProgram(prog, "m", decls, g)
	tr := traits.Compute(decls, g)

	builder := classlayout.NewBuilder()
	ast.Walk(prog, func(n ast.Node) bool {
		if d, ok := n.(*ast.ClassDecl); ok {
			builder.AddClass(d)
		}
		return true
	})
	layouts := builder.Build(nil)

	em := emit.New("m", tr, inf.Sigs, layouts)
	mod, emitErrs := em.EmitProgram(prog, func(d *ast.FuncDecl) string {
		if d.Receiver != "" {
			return "m." + d.Receiver + "." + d.Name
		}
		return "m." + d.Name
	})
	require.Empty(t, emitErrs)
	return string(mod.Source)
}

func TestFibonacciEmitsPlainTypedFunction(t *testing.T) {
	out := emitSource(t,
		"def fib(n):\n    if n <= 1: return n\n    return fib(n-1) + fib(n-2)\nprint(fib(10))\n")
	// Concrete params, no await, no yield: a plain typed function on
	// machine integers, no state machine and no boxed values.
	assert.Contains(t, out, "fn m.fib(n: Int) -> Int {")
	assert.NotContains(t, out, "struct MFibState")
	assert.NotContains(t, out, "async fn")
}

func TestCanFailFunctionReturnsResult(t *testing.T) {
	out := emitSource(t,
		"def must_positive(n):\n    if n < 0:\n        raise ValueError(\"negative\")\n    return n\nmust_positive(3)\n")
	assert.Contains(t, out, "Result<")
}

func TestGeneratorEmitsStateMachineWithNext(t *testing.T) {
	out := emitSource(t,
		"def gen(n):\n    for i in range(n):\n        yield i\n")
	assert.Contains(t, out, "State {")
	assert.Contains(t, out, "pc: Int,")
	assert.Contains(t, out, "next() -> Option<")
}

func TestAsyncIOEmitsSuspendableStateMachine(t *testing.T) {
	out := emitSource(t,
		"async def main():\n    await sleep(0.01)\n    return 7\nprint(run(main()))\n")
	assert.Contains(t, out, "async fn m.main() -> Int {")
}

func TestAsyncPureCPUGoesToWorkerPool(t *testing.T) {
	out := emitSource(t,
		"async def crunch(n):\n    return await square(n)\nasync def square(n):\n    return n * n\n")
	assert.Contains(t, out, "Task<")
	assert.Contains(t, out, "rtabi.pool.spawn")
}

func TestClosedClassEmitsRecordAndFreeFunctions(t *testing.T) {
	out := emitSource(t,
		"class A:\n    def hello(self): return \"A\"\nclass B(A):\n    def hello(self): return \"B\"\nprint(B().hello())\n")
	// Closed layout: a record type plus free functions, self explicit,
	// dispatch direct -- no vtable anywhere.
	assert.Contains(t, out, "struct A")
	assert.Contains(t, out, "struct B")
	assert.Contains(t, out, "fn B_hello(self: &B)")
	assert.NotContains(t, out, "vtable")
	assert.NotContains(t, out, "attrs: Dict")
}

func TestOpenClassEmitsBoxedRecord(t *testing.T) {
	src := "class C:\n    def __init__(self):\n        self.x = 1\nc = C()\nsetattr(c, \"y\", 2)\n"
	toks, _ := lexer.New("t.ash", []byte(src)).Tokenize()
	prog, parseErrs := parser.New("t.ash", toks).Parse()
	require.Zero(t, len(parseErrs))

	builder := classlayout.NewBuilder()
	ast.Walk(prog, func(n ast.Node) bool {
		if d, ok := n.(*ast.ClassDecl); ok {
			builder.AddClass(d)
		}
		return true
	})
	layouts := builder.Build(map[string]bool{"C": true})
	em := emit.New("m", nil, nil, layouts)
	mod, emitErrs := em.EmitProgram(prog, func(d *ast.FuncDecl) string { return "m." + d.Name })
	require.Empty(t, emitErrs)
	assert.Contains(t, string(mod.Source), "attrs: Dict<Str, Any>")
}

func TestSmallIntLiteralsUseInternedReferences(t *testing.T) {
	out := emitSource(t, "x = 100\ny = 300\n")
	lines := strings.Split(out, "\n")
	var xLine, yLine string
	for _, l := range lines {
		if strings.Contains(l, "x =") {
			xLine = l
		}
		if strings.Contains(l, "y =") {
			yLine = l
		}
	}
	assert.Contains(t, xLine, "intern(100)")
	assert.NotContains(t, yLine, "intern(")
}

func TestSidecarMapsEmittedLinesToSource(t *testing.T) {
	toks, _ := lexer.New("t.ash", []byte("def f(x):\n    return x\n")).Tokenize()
	prog, parseErrs := parser.New("t.ash", toks).Parse()
	require.Zero(t, len(parseErrs))
	em := emit.New("m", nil, nil, nil)
	mod, _ := em.EmitProgram(prog, func(d *ast.FuncDecl) string { return "m." + d.Name })
	require.NotEmpty(t, mod.Sidecar)
	for _, entry := range mod.Sidecar {
		assert.Greater(t, entry.EmittedLine, 0)
		assert.Equal(t, "t.ash", entry.Span.File)
	}
}
