package errors_test

import (
	"testing"

	"github.com/ashlang/ashc/internal/errors"
	"github.com/stretchr/testify/require"
)

func TestLookupKnownCode(t *testing.T) {
	info, ok := errors.Lookup(errors.TYP001Mismatch)
	require.True(t, ok)
	require.Equal(t, "typecheck", info.Phase)
}

func TestIsPhase(t *testing.T) {
	require.True(t, errors.IsPhase(errors.LEX004Indentation, "lexer"))
	require.False(t, errors.IsPhase(errors.LEX004Indentation, "parser"))
}

func TestNewPanicsOnUnregisteredCode(t *testing.T) {
	require.Panics(t, func() {
		errors.New("NOPE999", "bogus", nil)
	})
}
