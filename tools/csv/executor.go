// Package csv provides the csv_filter tool, built on gota dataframes.
package csv

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"log/slog"
	"slices"

	"github.com/c360studio/semstreams/agentic"
	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"

	"github.com/c360studio/semtasks/sandbox"
	"github.com/c360studio/semtasks/tools/toolcall"
)

// Record is one CSV row keyed by column name
type Record = map[string]any

// Executor implements the csv_filter tool
type Executor struct {
	guard  *sandbox.Guard
	logger *slog.Logger
}

// NewExecutor creates a new CSV executor
func NewExecutor(guard *sandbox.Guard, logger *slog.Logger) *Executor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Executor{guard: guard, logger: logger}
}

// Filter returns the rows of csvPath whose column equals value. Cells are
// compared as text, so "007" does not match "7".
func (e *Executor) Filter(ctx context.Context, csvPath, column, value string) ([]Record, error) {
	if err := e.guard.Check(csvPath); err != nil {
		return nil, err
	}

	f, err := e.guard.Open(csvPath)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", csvPath, err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("read %s: no header row", csvPath)
	}

	if !slices.Contains(rows[0], column) {
		return nil, fmt.Errorf("column %q not found in %s", column, csvPath)
	}

	// gota rejects a frame with no data rows; a header alone matches nothing
	if len(rows) == 1 {
		return []Record{}, nil
	}

	df := dataframe.LoadRecords(rows,
		dataframe.DetectTypes(false),
		dataframe.DefaultType(series.String),
	)
	if df.Err != nil {
		return nil, fmt.Errorf("load %s: %w", csvPath, df.Err)
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	filtered := df.Filter(dataframe.F{
		Colname:    column,
		Comparator: series.Eq,
		Comparando: value,
	})
	if filtered.Err != nil {
		return nil, fmt.Errorf("filter %s: %w", csvPath, filtered.Err)
	}

	records := filtered.Maps()
	if records == nil {
		records = []Record{}
	}

	e.logger.Debug("CSV filtered",
		"path", csvPath,
		"column", column,
		"rows", df.Nrow(),
		"matched", len(records))

	return records, nil
}

// Execute executes a CSV tool call
func (e *Executor) Execute(ctx context.Context, call agentic.ToolCall) (agentic.ToolResult, error) {
	switch call.Name {
	case "csv_filter":
		return e.filter(ctx, call)
	default:
		return toolcall.Unknown(call)
	}
}

// ListTools returns the tool definitions for CSV operations
func (e *Executor) ListTools() []agentic.ToolDefinition {
	return []agentic.ToolDefinition{
		{
			Name:        "csv_filter",
			Description: "Return the rows of a CSV file where a column equals a value, as JSON records",
			Parameters: toolcall.Schema([]string{"path", "column", "value"}, map[string]any{
				"path":   toolcall.Prop("string", "CSV file inside the sandbox root (first line is the header)"),
				"column": toolcall.Prop("string", "Column name to match"),
				"value":  toolcall.Prop("string", "Value the column must equal"),
			}),
		},
	}
}

func (e *Executor) filter(ctx context.Context, call agentic.ToolCall) (agentic.ToolResult, error) {
	path, err := toolcall.String(call, "path")
	if err != nil {
		return toolcall.Failure(call, err), nil
	}
	column, err := toolcall.String(call, "column")
	if err != nil {
		return toolcall.Failure(call, err), nil
	}
	// An empty value is a valid match target, so only presence is required
	value, ok := call.Arguments["value"].(string)
	if !ok {
		return toolcall.Failure(call, fmt.Errorf("value argument is required")), nil
	}

	records, err := e.Filter(ctx, path, column, value)
	if err != nil {
		return toolcall.Failure(call, err), nil
	}

	data, err := json.Marshal(records)
	if err != nil {
		return toolcall.Failure(call, err), nil
	}
	return toolcall.Result(call, string(data)), nil
}
