package toolcall

import (
	"errors"
	"testing"

	"github.com/c360studio/semstreams/agentic"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360studio/semtasks/sandbox"
)

func TestArguments(t *testing.T) {
	call := agentic.ToolCall{
		ID:   "call-1",
		Name: "example",
		Arguments: map[string]any{
			"path":   "/data/x",
			"empty":  "",
			"width":  float64(50),
			"flag":   true,
			"number": 7,
		},
	}

	v, err := String(call, "path")
	require.NoError(t, err)
	assert.Equal(t, "/data/x", v)

	_, err = String(call, "empty")
	assert.Error(t, err)
	_, err = String(call, "missing")
	assert.Error(t, err)

	assert.Equal(t, "", OptionalString(call, "missing"))

	n, ok := Int(call, "width")
	assert.True(t, ok)
	assert.Equal(t, 50, n)
	n, ok = Int(call, "number")
	assert.True(t, ok)
	assert.Equal(t, 7, n)
	_, ok = Int(call, "path")
	assert.False(t, ok)

	assert.True(t, Bool(call, "flag"))
	assert.False(t, Bool(call, "missing"))
}

func TestFailure(t *testing.T) {
	call := agentic.ToolCall{ID: "call-2", Name: "example"}

	guard, err := sandbox.New("/data")
	require.NoError(t, err)
	permErr := guard.Check("/etc/passwd")

	result := Failure(call, permErr)
	assert.Equal(t, "call-2", result.CallID)
	assert.True(t, IsPermissionDenied(result))

	result = Failure(call, errors.New("boom"))
	assert.Equal(t, "boom", result.Error)
	assert.False(t, IsPermissionDenied(result))
}

func TestUnknown(t *testing.T) {
	result, err := Unknown(agentic.ToolCall{ID: "c", Name: "nope"})
	assert.ErrorIs(t, err, ErrUnknownTool)
	assert.Contains(t, result.Error, "nope")
}
