package traits_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ashlang/ashc/internal/ast"
	"github.com/ashlang/ashc/internal/callgraph"
	"github.com/ashlang/ashc/internal/lexer"
	"github.com/ashlang/ashc/internal/parser"
	"github.com/ashlang/ashc/internal/traits"
)

func computeTraits(t *testing.T, src string) map[string]*traits.FunctionTrait {
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
	return traits.Compute(decls, callgraph.Build(prog, "m", nil))
}

func TestFibonacciTraits(t *testing.T) {
	tr := computeTraits(t,
		"def fib(n):\n    if n <= 1: return n\n    return fib(n-1) + fib(n-2)\n")
	fib := tr["m.fib"]
	require.NotNil(t, fib)
	assert.False(t, fib.CanFail)
	assert.False(t, fib.DoesIO)
	assert.False(t, fib.MayAwait)
	assert.False(t, fib.IsGenerator)
	// fib(n-1) + fib(n-2) does work after the recursive calls return, so
	// it is recursive but not tail-recursive.
	assert.False(t, fib.IsTailRecursive)
}

func TestTailRecursionDetected(t *testing.T) {
	tr := computeTraits(t,
		"def countdown(n):\n    if n <= 0:\n        return 0\n    return countdown(n - 1)\n")
	assert.True(t, tr["m.countdown"].IsTailRecursive)
}

func TestIOPropagatesThroughCallGraph(t *testing.T) {
	tr := computeTraits(t,
		"def log(msg):\n    print(msg)\ndef work(x):\n    log(x)\n    return x\n")
	assert.True(t, tr["m.log"].DoesIO)
	assert.True(t, tr["m.work"].DoesIO, "does_io must propagate to callers")
	assert.False(t, tr["m.work"].IsPure)
}

func TestAwaitPropagatesThroughCallGraph(t *testing.T) {
	tr := computeTraits(t,
		"async def fetch():\n    await sleep(0.01)\n    return 1\nasync def outer():\n    return fetch()\n")
	assert.True(t, tr["m.fetch"].MayAwait)
	assert.True(t, tr["m.fetch"].DoesIO) // sleep is a timer primitive
	assert.True(t, tr["m.outer"].MayAwait)
}

func TestCanFailFromRaiseAndCallees(t *testing.T) {
	tr := computeTraits(t,
		"def boom():\n    raise ValueError(\"no\")\ndef caller():\n    return boom()\ndef safe():\n    return 1\n")
	assert.True(t, tr["m.boom"].CanFail)
	assert.True(t, tr["m.caller"].CanFail)
	assert.False(t, tr["m.safe"].CanFail)
}

func TestMutualRecursionConvergesViaSCC(t *testing.T) {
	tr := computeTraits(t,
		"def even(n):\n    if n == 0:\n        return True\n    return odd(n - 1)\ndef odd(n):\n    if n == 0:\n        return False\n    print(n)\n    return even(n - 1)\n")
	// odd does I/O; the SCC fixed point must push that onto even too.
	assert.True(t, tr["m.odd"].DoesIO)
	assert.True(t, tr["m.even"].DoesIO)
}

func TestGeneratorFlag(t *testing.T) {
	tr := computeTraits(t,
		"def gen(n):\n    for i in range(n):\n        yield i\n")
	assert.True(t, tr["m.gen"].IsGenerator)
}

func TestParamMutationDetected(t *testing.T) {
	tr := computeTraits(t,
		"def fill(items, n):\n    items[0] = n\n    return items\n")
	fill := tr["m.fill"]
	assert.True(t, fill.MutatesParam[0])
	assert.False(t, fill.MutatesParam[1])
	assert.False(t, fill.IsPure)
}
