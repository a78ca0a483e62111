// Package query provides the sql_query tool, which runs a statement
// against a SQLite or DuckDB database file and saves the result rows.
package query

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/c360studio/semstreams/agentic"
	_ "github.com/marcboeker/go-duckdb"
	_ "modernc.org/sqlite"

	"github.com/c360studio/semtasks/sandbox"
	"github.com/c360studio/semtasks/tools/toolcall"
)

// Engine identifies a database/sql driver.
type Engine string

const (
	EngineSQLite Engine = "sqlite"
	EngineDuckDB Engine = "duckdb"
)

// sqliteSuffixes route to SQLite; every other suffix goes to DuckDB.
var sqliteSuffixes = map[string]bool{
	".db":      true,
	".sqlite":  true,
	".sqlite3": true,
}

// EngineFor picks the engine for a database file. A non-empty forced
// engine wins over the suffix.
func EngineFor(dbPath string, forced Engine) Engine {
	if forced != "" {
		return forced
	}
	if sqliteSuffixes[strings.ToLower(filepath.Ext(dbPath))] {
		return EngineSQLite
	}
	return EngineDuckDB
}

// Rows holds every result row in column order.
type Rows [][]any

// String renders the rows as a JSON array of arrays.
func (r Rows) String() string {
	if r == nil {
		r = Rows{}
	}
	data, err := json.Marshal(r)
	if err != nil {
		return fmt.Sprint([][]any(r))
	}
	return string(data)
}

// Executor implements the sql_query tool
type Executor struct {
	guard  *sandbox.Guard
	engine Engine
	logger *slog.Logger
}

// NewExecutor creates a new query executor. engine may be empty to select by suffix.
func NewExecutor(guard *sandbox.Guard, engine Engine, logger *slog.Logger) *Executor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Executor{guard: guard, engine: engine, logger: logger}
}

// RunQuery executes query against dbPath, writes Rows.String() to outPath
// and returns the rows.
func (e *Executor) RunQuery(ctx context.Context, dbPath, query, outPath string) (Rows, error) {
	if err := e.guard.Check(dbPath, outPath); err != nil {
		return nil, err
	}

	engine := EngineFor(dbPath, e.engine)
	rows, err := e.fetchAll(ctx, engine, dbPath, query)
	if err != nil {
		return nil, err
	}

	if err := e.guard.WriteFile(outPath, []byte(rows.String())); err != nil {
		return nil, err
	}

	e.logger.Debug("Query executed", "engine", engine, "db", dbPath, "rows", len(rows))
	return rows, nil
}

func (e *Executor) fetchAll(ctx context.Context, engine Engine, dbPath, query string) (Rows, error) {
	db, err := sql.Open(string(engine), dbPath)
	if err != nil {
		return nil, fmt.Errorf("open %s database: %w", engine, err)
	}
	defer db.Close()

	result, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("execute query: %w", err)
	}
	defer result.Close()

	cols, err := result.Columns()
	if err != nil {
		return nil, fmt.Errorf("read columns: %w", err)
	}

	rows := Rows{}
	for result.Next() {
		values := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := result.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		for i, v := range values {
			if b, ok := v.([]byte); ok {
				values[i] = string(b)
			}
		}
		rows = append(rows, values)
	}
	if err := result.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}
	return rows, nil
}

// Execute executes a query tool call
func (e *Executor) Execute(ctx context.Context, call agentic.ToolCall) (agentic.ToolResult, error) {
	switch call.Name {
	case "sql_query":
		return e.runQuery(ctx, call)
	default:
		return toolcall.Unknown(call)
	}
}

// ListTools returns the tool definitions for query operations
func (e *Executor) ListTools() []agentic.ToolDefinition {
	return []agentic.ToolDefinition{
		{
			Name:        "sql_query",
			Description: "Run a SQL query on a SQLite (.db, .sqlite, .sqlite3) or DuckDB database and save the rows to a file",
			Parameters: toolcall.Schema([]string{"db_path", "query", "output_path"}, map[string]any{
				"db_path":     toolcall.Prop("string", "Database file inside the sandbox root"),
				"query":       toolcall.Prop("string", "SQL statement to execute"),
				"output_path": toolcall.Prop("string", "File that receives the rows as JSON"),
			}),
		},
	}
}

func (e *Executor) runQuery(ctx context.Context, call agentic.ToolCall) (agentic.ToolResult, error) {
	dbPath, err := toolcall.String(call, "db_path")
	if err != nil {
		return toolcall.Failure(call, err), nil
	}
	query, err := toolcall.String(call, "query")
	if err != nil {
		return toolcall.Failure(call, err), nil
	}
	outPath, err := toolcall.String(call, "output_path")
	if err != nil {
		return toolcall.Failure(call, err), nil
	}

	rows, err := e.RunQuery(ctx, dbPath, query, outPath)
	if err != nil {
		return toolcall.Failure(call, err), nil
	}
	return toolcall.Result(call, rows.String()), nil
}
