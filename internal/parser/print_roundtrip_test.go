package parser_test

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/require"

	"github.com/ashlang/ashc/internal/ast"
	"github.com/ashlang/ashc/internal/lexer"
	"github.com/ashlang/ashc/internal/parser"
)

// roundTripCorpus is a representative slice of the language surface:
// every program here must survive parse -> ast.Print -> parse with an
// identical AST (spans aside).
var roundTripCorpus = map[string]string{
	"fibonacci": "def fib(n):\n" +
		"    if n <= 1: return n\n" +
		"    return fib(n-1) + fib(n-2)\n" +
		"print(fib(10))\n",

	"class inheritance": "class A:\n" +
		"    def hello(self): return \"A\"\n" +
		"class B(A):\n" +
		"    def hello(self): return \"B\"\n" +
		"print(B().hello())\n",

	"async await": "async def main():\n" +
		"    await sleep(0.01)\n" +
		"    return 7\n" +
		"print(run(main()))\n",

	"comprehensions": "def squares(xs):\n" +
		"    return [x * x for x in xs if x > 0]\n" +
		"pairs = {k: v for k, v in items}\n" +
		"uniq = {x for x in xs}\n" +
		"total = sum((x for x in xs))\n",

	"f-strings": "name = \"world\"\n" +
		"msg = f\"hello {name}!\"\n" +
		"padded = f\"{count:04d} done\"\n",

	"collections and slices": "d = {1: \"a\", 2: \"b\"}\n" +
		"merged = {**d, 3: \"c\"}\n" +
		"s = {1, 2, 3}\n" +
		"t = (1,)\n" +
		"pair = (left, right)\n" +
		"head = xs[0]\n" +
		"mid = xs[1:4]\n" +
		"evens = xs[::2]\n",

	"exceptions": "def risky(path):\n" +
		"    try:\n" +
		"        return open(path)\n" +
		"    except IOError as e:\n" +
		"        raise RuntimeError(\"boom\") from e\n" +
		"    finally:\n" +
		"        cleanup()\n",

	"generators and with": "def gen(n):\n" +
		"    for i in range(n):\n" +
		"        yield i\n" +
		"def delegate(n):\n" +
		"    yield from gen(n)\n" +
		"def read(path):\n" +
		"    with open(path) as f:\n" +
		"        return f.read()\n",

	"loops with else": "def search(xs, want):\n" +
		"    for x in xs:\n" +
		"        if x == want:\n" +
		"            break\n" +
		"    else:\n" +
		"        return None\n" +
		"    while x > 0:\n" +
		"        x -= 1\n" +
		"    return x\n",

	"expressions": "ok = a < b < c\n" +
		"flag = not done and (ready or forced)\n" +
		"pick = x if cond else y\n" +
		"add = lambda p, q=1: p + q\n" +
		"r = f(1, *rest, key=2)\n" +
		"neg = -count\n",

	"declarations": "import os\n" +
		"from sys import path as p\n" +
		"@traced\n" +
		"def double(x: int) -> int:\n" +
		"    return x * 2\n" +
		"def greet(name, punct=\"!\"):\n" +
		"    global counter\n" +
		"    counter += 1\n" +
		"    return name + punct\n",
}

func mustParse(t *testing.T, src string) *ast.Program {
	t.Helper()
	toks, lexErrs := lexer.New("t.ash", []byte(src)).Tokenize()
	require.Empty(t, lexErrs)
	prog, parseErrs := parser.New("t.ash", toks).Parse()
	require.Empty(t, parseErrs)
	return prog
}

// TestPrintRoundTrip is the unparse invariant: for every well-formed
// input, parse-then-unparse-then-parse yields an AST equal to the first
// parse, up to span positions.
func TestPrintRoundTrip(t *testing.T) {
	ignoreSpans := cmpopts.IgnoreTypes(ast.Span{})
	for name, src := range roundTripCorpus {
		t.Run(name, func(t *testing.T) {
			first := mustParse(t, src)
			printed := ast.Print(first)
			second := mustParse(t, printed)
			if diff := cmp.Diff(first, second, ignoreSpans); diff != "" {
				t.Fatalf("round trip changed the AST (-first +reparsed):\n%s\nprinted form:\n%s", diff, printed)
			}
		})
	}
}

// TestPrintIsIdempotent: printing the reparsed program reproduces the
// printed text byte for byte, so Print is a fixed point after one pass.
func TestPrintIsIdempotent(t *testing.T) {
	for name, src := range roundTripCorpus {
		t.Run(name, func(t *testing.T) {
			once := ast.Print(mustParse(t, src))
			twice := ast.Print(mustParse(t, once))
			require.Equal(t, once, twice)
		})
	}
}
