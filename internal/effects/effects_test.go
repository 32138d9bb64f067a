package effects

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrimitiveNamesCoversTheClosedList(t *testing.T) {
	names := PrimitiveNames()
	for _, want := range []string{
		"open", "read", "write", "close", // file
		"socket", "connect", "send", "recv", // socket
		"sleep", "timer", // timer
		"print", "input", // stdin/stdout
	} {
		assert.True(t, names[want], "missing primitive %s", want)
	}
}

func TestCallRequiresCapability(t *testing.T) {
	ctx := NewEffContext()
	_, err := Call(ctx, "Clock", "sleep", []Value{0.0})
	require.Error(t, err)
	var capErr *CapabilityError
	assert.ErrorAs(t, err, &capErr)
}

func TestCallWithGrantedCapability(t *testing.T) {
	ctx := NewEffContext()
	ctx.Grant(NewCapability("Clock"))
	_, err := Call(ctx, "Clock", "sleep", []Value{0.0})
	assert.NoError(t, err)
}

func TestUnknownOperationIsError(t *testing.T) {
	ctx := NewEffContext()
	ctx.Grant(NewCapability("Clock"))
	_, err := Call(ctx, "Clock", "warp", nil)
	assert.Error(t, err)
}
