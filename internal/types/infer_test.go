package types_test

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"github.com/ashlang/ashc/internal/ast"
	"github.com/ashlang/ashc/internal/callgraph"
	"github.com/ashlang/ashc/internal/lexer"
	"github.com/ashlang/ashc/internal/parser"
	"github.com/ashlang/ashc/internal/types"
)

// infer runs the whole front half of the pipeline over src, the way the
// orchestrator does, and returns the inference result.
func infer(t *testing.T, src string) *types.Inference {
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
	return inf
}

func sigString(sig *types.Signature) string {
	s := "("
	for i, p := range sig.Params {
		if i > 0 {
			s += ", "
		}
		s += p.String()
	}
	return s + ") -> " + sig.Ret.String()
}

func TestFibonacciInfersIntToInt(t *testing.T) {
	inf := infer(t,
		"def fib(n):\n    if n <= 1: return n\n    return fib(n-1) + fib(n-2)\nprint(fib(10))\n")
	sig := inf.Sigs["m.fib"]
	require.NotNil(t, sig)
	if diff := cmp.Diff("(Int) -> Int", sigString(sig)); diff != "" {
		t.Fatalf("fib signature mismatch (-want +got):\n%s", diff)
	}
}

func TestReturnTypeJoinsBranches(t *testing.T) {
	inf := infer(t,
		"def pick(flag):\n    if flag:\n        return 1\n    return 2.5\npick(True)\n")
	sig := inf.Sigs["m.pick"]
	require.NotNil(t, sig)
	require.Equal(t, types.KUnion, sig.Ret.Kind)
}

func TestCallSiteSeedsParameterTypes(t *testing.T) {
	inf := infer(t,
		"def shout(s):\n    return s + s\nshout(\"hey\")\n")
	sig := inf.Sigs["m.shout"]
	require.NotNil(t, sig)
	require.Equal(t, "Str", sig.Params[0].String())
	require.Equal(t, "Str", sig.Ret.String())
}

func TestAnnotationsWinWithoutCallSites(t *testing.T) {
	inf := infer(t, "def double(x: int) -> int:\n    return x * 2\n")
	sig := inf.Sigs["m.double"]
	require.NotNil(t, sig)
	require.Equal(t, "(Int) -> Int", sigString(sig))
}

func TestNoUnknownSurvivesInference(t *testing.T) {
	// Never-called, unannotated: everything widens to Any rather than
	// leaking Unknown into the emitter.
	inf := infer(t, "def orphan(x):\n    return x\n")
	sig := inf.Sigs["m.orphan"]
	require.NotNil(t, sig)
	require.Equal(t, types.KAny, sig.Params[0].Kind)
	require.Equal(t, types.KAny, sig.Ret.Kind)
}

func TestIsInstanceNarrowsOnTrueBranch(t *testing.T) {
	inf := infer(t,
		"def f(x):\n    if isinstance(x, int):\n        return x + 1\n    return 0\nf(1)\nf(\"s\")\n")
	sig := inf.Sigs["m.f"]
	require.NotNil(t, sig)
	// The argument join is Int|Str, but the narrowed branch still returns Int.
	require.Equal(t, "Int", sig.Ret.String())
}

func TestListComprehensionElementType(t *testing.T) {
	inf := infer(t,
		"def squares(xs: list[int]):\n    return [x * x for x in xs]\nsquares([1, 2])\n")
	sig := inf.Sigs["m.squares"]
	require.NotNil(t, sig)
	require.Equal(t, types.KList, sig.Ret.Kind)
	require.Equal(t, types.KInt, sig.Ret.Elem.Kind)
}

func TestUnboundVariableDiagnostic(t *testing.T) {
	inf := infer(t, "def f():\n    return missing_var\n")
	require.NotEmpty(t, inf.Diagnostics)
	require.Equal(t, "TYP002", inf.Diagnostics[0].Code)
}
