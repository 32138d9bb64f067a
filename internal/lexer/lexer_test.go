package lexer_test

import (
	"testing"

	"github.com/ashlang/ashc/internal/lexer"
	"github.com/stretchr/testify/require"
)

func typeNames(toks []lexer.Token) []lexer.TokenType {
	out := make([]lexer.TokenType, len(toks))
	for i, t := range toks {
		out[i] = t.Type
	}
	return out
}

func TestFibonacciTokenStream(t *testing.T) {
	src := "def fib(n):\n    if n <= 1: return n\n    return fib(n-1) + fib(n-2)\n"
	toks, errs := lexer.New("fib.ash", []byte(src)).Tokenize()
	require.Empty(t, errs)
	require.Equal(t, lexer.DEF, toks[0].Type)
	require.Contains(t, typeNames(toks), lexer.INDENT)
	require.Contains(t, typeNames(toks), lexer.DEDENT)
}

func TestInconsistentDedentIsIndentationError(t *testing.T) {
	src := "if True:\n    x = 1\n  y = 2\n"
	_, errs := lexer.New("bad.ash", []byte(src)).Tokenize()
	require.NotEmpty(t, errs)
	require.Equal(t, "LEX004", errs[0].Code)
}

func TestMixedTabsAndSpacesIsIndentationError(t *testing.T) {
	src := "if True:\n \tx = 1\n"
	_, errs := lexer.New("bad.ash", []byte(src)).Tokenize()
	require.NotEmpty(t, errs)
	require.Equal(t, "LEX004", errs[0].Code)
}

func TestNumericLiteralForms(t *testing.T) {
	src := "x = 0x1F\ny = 0o17\nz = 0b101\nf = 1_000.5e3\nc = 2j\n"
	toks, errs := lexer.New("nums.ash", []byte(src)).Tokenize()
	require.Empty(t, errs)
	var nums []lexer.Token
	for _, tok := range toks {
		if tok.Type == lexer.INT || tok.Type == lexer.FLOAT || tok.Type == lexer.COMPLEX {
			nums = append(nums, tok)
		}
	}
	require.Len(t, nums, 5)
	require.Equal(t, lexer.COMPLEX, nums[4].Type)
}

func TestFStringPrefixDetected(t *testing.T) {
	src := `x = f"hello {name}"` + "\n"
	toks, errs := lexer.New("f.ash", []byte(src)).Tokenize()
	require.Empty(t, errs)
	found := false
	for _, tok := range toks {
		if tok.Type == lexer.FSTRING {
			found = true
			require.Equal(t, "hello {name}", tok.Literal)
		}
	}
	require.True(t, found)
}

func TestUnterminatedStringReportsError(t *testing.T) {
	src := "x = \"abc\n"
	_, errs := lexer.New("bad.ash", []byte(src)).Tokenize()
	require.NotEmpty(t, errs)
	require.Equal(t, "LEX002", errs[0].Code)
}
