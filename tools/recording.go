package tools

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/c360studio/semstreams/agentic"
	agentictools "github.com/c360studio/semstreams/processor/agentic-tools"
	"github.com/google/uuid"

	"github.com/c360studio/semtasks/tools/toolcall"
)

// MaxRecordedParamsLength is the max length for serialized parameters in a log line.
const MaxRecordedParamsLength = 1000

// RecordingExecutor wraps a ToolExecutor, assigns missing call IDs and
// records every call to the logger and the tool metrics.
type RecordingExecutor struct {
	inner   agentictools.ToolExecutor
	metrics *Metrics
	logger  *slog.Logger
}

// NewRecordingExecutor wraps an executor with call recording. metrics may be nil.
func NewRecordingExecutor(inner agentictools.ToolExecutor, metrics *Metrics, logger *slog.Logger) *RecordingExecutor {
	if logger == nil {
		logger = slog.Default()
	}
	return &RecordingExecutor{
		inner:   inner,
		metrics: metrics,
		logger:  logger,
	}
}

// Execute runs the underlying tool executor and records the outcome.
func (r *RecordingExecutor) Execute(ctx context.Context, call agentic.ToolCall) (agentic.ToolResult, error) {
	if call.ID == "" {
		call.ID = uuid.NewString()
	}

	startedAt := time.Now()
	result, execErr := r.inner.Execute(ctx, call)
	elapsed := time.Since(startedAt)

	status := callStatus(result, execErr)
	r.metrics.observe(call.Name, status, elapsed.Seconds())

	attrs := []any{
		"tool", call.Name,
		"call_id", call.ID,
		"status", status,
		"duration_ms", elapsed.Milliseconds(),
		"params", truncateJSON(call.Arguments, MaxRecordedParamsLength),
	}
	switch status {
	case StatusSuccess:
		r.logger.Debug("Tool call completed", attrs...)
	case StatusDenied:
		r.logger.Warn("Tool call denied", append(attrs, "error", result.Error)...)
	default:
		errMsg := result.Error
		if execErr != nil {
			errMsg = execErr.Error()
		}
		r.logger.Info("Tool call failed", append(attrs, "error", errMsg)...)
	}

	return result, execErr
}

// ListTools delegates to the inner executor.
func (r *RecordingExecutor) ListTools() []agentic.ToolDefinition {
	return r.inner.ListTools()
}

func callStatus(result agentic.ToolResult, execErr error) string {
	switch {
	case toolcall.IsPermissionDenied(result):
		return StatusDenied
	case execErr != nil || result.Error != "":
		return StatusError
	default:
		return StatusSuccess
	}
}

// truncateJSON marshals a map to JSON and truncates to maxLen.
func truncateJSON(m map[string]any, maxLen int) string {
	if m == nil {
		return "{}"
	}

	data, err := json.Marshal(m)
	if err != nil {
		return "{}"
	}

	s := string(data)
	if len(s) > maxLen {
		return s[:maxLen] + "..."
	}
	return s
}
