package tools

import (
	"context"
	"fmt"
	"testing"

	"github.com/c360studio/semstreams/agentic"
	agentictools "github.com/c360studio/semstreams/processor/agentic-tools"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/c360studio/semtasks/sandbox"
	"github.com/c360studio/semtasks/tools/toolcall"
)

// mockExecutor is a simple mock for testing the RecordingExecutor wrapper.
type mockExecutor struct {
	executeFunc func(ctx context.Context, call agentic.ToolCall) (agentic.ToolResult, error)
	tools       []agentic.ToolDefinition
}

func (m *mockExecutor) Execute(ctx context.Context, call agentic.ToolCall) (agentic.ToolResult, error) {
	if m.executeFunc != nil {
		return m.executeFunc(ctx, call)
	}
	return agentic.ToolResult{CallID: call.ID, Content: "ok"}, nil
}

func (m *mockExecutor) ListTools() []agentic.ToolDefinition {
	return m.tools
}

// Verify RecordingExecutor implements ToolExecutor
var _ agentictools.ToolExecutor = (*RecordingExecutor)(nil)

func TestRecordingExecutor_PassesThrough(t *testing.T) {
	inner := &mockExecutor{
		executeFunc: func(ctx context.Context, call agentic.ToolCall) (agentic.ToolResult, error) {
			return agentic.ToolResult{
				CallID:  call.ID,
				Content: "result content",
			}, nil
		},
		tools: []agentic.ToolDefinition{
			{Name: "test_tool", Description: "test", Parameters: map[string]any{"type": "object"}},
		},
	}

	recorder := NewRecordingExecutor(inner, nil, nil)

	call := agentic.ToolCall{
		ID:   "call-123",
		Name: "test_tool",
	}
	result, err := recorder.Execute(context.Background(), call)
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if result.CallID != "call-123" {
		t.Errorf("CallID = %q, want %q", result.CallID, "call-123")
	}
	if result.Content != "result content" {
		t.Errorf("Content = %q, want %q", result.Content, "result content")
	}

	tools := recorder.ListTools()
	if len(tools) != 1 {
		t.Fatalf("ListTools() returned %d tools, want 1", len(tools))
	}
	if tools[0].Name != "test_tool" {
		t.Errorf("Tool name = %q, want %q", tools[0].Name, "test_tool")
	}
}

func TestRecordingExecutor_ErrorPassesThrough(t *testing.T) {
	inner := &mockExecutor{
		executeFunc: func(ctx context.Context, call agentic.ToolCall) (agentic.ToolResult, error) {
			return agentic.ToolResult{
				CallID: call.ID,
				Error:  "tool error",
			}, fmt.Errorf("execution failed")
		},
	}

	recorder := NewRecordingExecutor(inner, nil, nil)

	result, err := recorder.Execute(context.Background(), agentic.ToolCall{ID: "call-err", Name: "failing_tool"})
	if err == nil {
		t.Error("Execute() should return error")
	}
	if result.Error != "tool error" {
		t.Errorf("Result.Error = %q, want %q", result.Error, "tool error")
	}
}

func TestRecordingExecutor_AssignsCallID(t *testing.T) {
	var seen string
	inner := &mockExecutor{
		executeFunc: func(ctx context.Context, call agentic.ToolCall) (agentic.ToolResult, error) {
			seen = call.ID
			return agentic.ToolResult{CallID: call.ID}, nil
		},
	}

	result, err := NewRecordingExecutor(inner, nil, nil).Execute(context.Background(), agentic.ToolCall{Name: "test_tool"})
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if _, err := uuid.Parse(seen); err != nil {
		t.Errorf("call ID %q is not a UUID: %v", seen, err)
	}
	if result.CallID != seen {
		t.Errorf("CallID = %q, want %q", result.CallID, seen)
	}
}

func TestRecordingExecutor_Metrics(t *testing.T) {
	denied := &sandbox.PermissionError{Path: "/etc/passwd", Root: "/data", Reason: "outside root"}

	inner := &mockExecutor{
		executeFunc: func(ctx context.Context, call agentic.ToolCall) (agentic.ToolResult, error) {
			switch call.Arguments["mode"] {
			case "fail":
				return toolcall.Failure(call, fmt.Errorf("boom")), nil
			case "deny":
				return toolcall.Failure(call, denied), nil
			default:
				return toolcall.Result(call, "ok"), nil
			}
		},
	}

	reg := prometheus.NewRegistry()
	metrics := NewMetrics(reg)
	recorder := NewRecordingExecutor(inner, metrics, nil)

	for _, mode := range []string{"ok", "ok", "fail", "deny"} {
		_, _ = recorder.Execute(context.Background(), agentic.ToolCall{
			Name:      "csv_filter",
			Arguments: map[string]any{"mode": mode},
		})
	}

	tests := []struct {
		status string
		want   float64
	}{
		{StatusSuccess, 2},
		{StatusError, 1},
		{StatusDenied, 1},
	}
	for _, tt := range tests {
		got := testutil.ToFloat64(metrics.calls.WithLabelValues("csv_filter", tt.status))
		if got != tt.want {
			t.Errorf("calls{status=%s} = %v, want %v", tt.status, got, tt.want)
		}
	}

	if n := testutil.CollectAndCount(metrics.duration, "semtasks_tool_call_duration_seconds"); n != 1 {
		t.Errorf("duration series = %d, want 1", n)
	}
}

func TestTruncateJSON(t *testing.T) {
	tests := []struct {
		name   string
		input  map[string]any
		maxLen int
		want   string
	}{
		{
			name:   "nil map",
			input:  nil,
			maxLen: 100,
			want:   "{}",
		},
		{
			name:   "small map",
			input:  map[string]any{"key": "value"},
			maxLen: 100,
			want:   `{"key":"value"}`,
		},
		{
			name:   "truncated",
			input:  map[string]any{"key": "a very long value that should be truncated"},
			maxLen: 20,
			want:   `{"key":"a very long ...`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := truncateJSON(tt.input, tt.maxLen)
			if got != tt.want {
				t.Errorf("truncateJSON() = %q, want %q", got, tt.want)
			}
		})
	}
}
