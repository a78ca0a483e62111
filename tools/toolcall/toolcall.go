// Package toolcall holds the argument and result helpers shared by the
// task executors.
package toolcall

import (
	"errors"
	"fmt"
	"strings"

	"github.com/c360studio/semstreams/agentic"

	"github.com/c360studio/semtasks/sandbox"
)

// ErrUnknownTool is returned when a call names a tool the executor does not provide.
var ErrUnknownTool = errors.New("unknown tool")

// permissionPrefix starts every ToolResult.Error produced from a sandbox rejection.
const permissionPrefix = "permission denied"

// Result returns a successful tool result.
func Result(call agentic.ToolCall, content string) agentic.ToolResult {
	return agentic.ToolResult{
		CallID:  call.ID,
		Content: content,
	}
}

// Failure converts err into a tool result error.
func Failure(call agentic.ToolCall, err error) agentic.ToolResult {
	msg := err.Error()
	if sandbox.IsPermissionDenied(err) && !strings.HasPrefix(msg, permissionPrefix) {
		msg = permissionPrefix + ": " + msg
	}
	return agentic.ToolResult{
		CallID: call.ID,
		Error:  msg,
	}
}

// Unknown reports a call for a tool the executor does not provide.
func Unknown(call agentic.ToolCall) (agentic.ToolResult, error) {
	err := fmt.Errorf("%w: %s", ErrUnknownTool, call.Name)
	return agentic.ToolResult{
		CallID: call.ID,
		Error:  err.Error(),
	}, err
}

// IsPermissionDenied reports whether a tool result failed the sandbox check.
func IsPermissionDenied(result agentic.ToolResult) bool {
	return strings.HasPrefix(result.Error, permissionPrefix)
}

// String returns a required, non-empty string argument.
func String(call agentic.ToolCall, name string) (string, error) {
	v, ok := call.Arguments[name].(string)
	if !ok || v == "" {
		return "", fmt.Errorf("%s argument is required", name)
	}
	return v, nil
}

// OptionalString returns a string argument or "" when absent.
func OptionalString(call agentic.ToolCall, name string) string {
	v, _ := call.Arguments[name].(string)
	return v
}

// Int returns an integer argument. JSON numbers arrive as float64.
func Int(call agentic.ToolCall, name string) (int, bool) {
	switch v := call.Arguments[name].(type) {
	case float64:
		return int(v), true
	case int:
		return v, true
	case int64:
		return int(v), true
	default:
		return 0, false
	}
}

// Bool returns a boolean argument, false when absent.
func Bool(call agentic.ToolCall, name string) bool {
	v, _ := call.Arguments[name].(bool)
	return v
}

// Schema builds a JSON-schema object for tool parameters.
func Schema(required []string, properties map[string]any) map[string]any {
	return map[string]any{
		"type":       "object",
		"properties": properties,
		"required":   required,
	}
}

// Prop describes a single schema property.
func Prop(typ, description string) map[string]any {
	return map[string]any{
		"type":        typ,
		"description": description,
	}
}
