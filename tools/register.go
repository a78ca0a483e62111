// Package tools assembles the task executors into a single dispatch set
// shared by the CLI, HTTP API, NATS bridge and agentic-tools registry.
package tools

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/c360studio/semstreams/agentic"
	agentictools "github.com/c360studio/semstreams/processor/agentic-tools"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/c360studio/semtasks/config"
	"github.com/c360studio/semtasks/sandbox"
	"github.com/c360studio/semtasks/tools/audio"
	"github.com/c360studio/semtasks/tools/csv"
	"github.com/c360studio/semtasks/tools/git"
	"github.com/c360studio/semtasks/tools/image"
	"github.com/c360studio/semtasks/tools/markdown"
	"github.com/c360studio/semtasks/tools/query"
	"github.com/c360studio/semtasks/tools/toolcall"
	"github.com/c360studio/semtasks/tools/web"
)

// Options configures a Set.
type Options struct {
	Logger *slog.Logger
	// Registerer receives the tool metrics; nil leaves them unregistered
	Registerer prometheus.Registerer
}

// Set holds one executor per task and dispatches tool calls by name.
type Set struct {
	Web      *web.Executor
	Git      *git.Executor
	Query    *query.Executor
	Image    *image.Executor
	Audio    *audio.Executor
	Markdown *markdown.Executor
	CSV      *csv.Executor

	guard    *sandbox.Guard
	byName   map[string]*RecordingExecutor
	recorded []*RecordingExecutor
	logger   *slog.Logger
}

// NewGuard builds the sandbox guard described by cfg.
func NewGuard(cfg config.SandboxConfig) (*sandbox.Guard, error) {
	mode, err := sandbox.ParseMode(cfg.Mode)
	if err != nil {
		return nil, err
	}
	return sandbox.New(cfg.Root,
		sandbox.WithMode(mode),
		sandbox.WithDenyPatterns(cfg.Deny...),
	)
}

// NewSet creates every executor from cfg, all sharing guard.
func NewSet(cfg *config.Config, guard *sandbox.Guard, opts Options) (*Set, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	fetcher := web.NewFetcher(web.FetcherConfig{
		Timeout:        cfg.HTTP.Timeout,
		UserAgent:      cfg.HTTP.UserAgent,
		MaxBodyBytes:   cfg.HTTP.MaxBodyBytes,
		Policy:         web.URLPolicy{AllowPrivate: cfg.HTTP.AllowPrivate},
		RequireSuccess: cfg.HTTP.RequireSuccess,
	})

	s := &Set{
		Web: web.NewExecutor(guard, fetcher, logger.With("tool_group", "web")),
		Git: git.NewExecutor(guard, git.Config{
			CloneDir:    cfg.Git.CloneDir,
			AuthorName:  cfg.Git.AuthorName,
			AuthorEmail: cfg.Git.AuthorEmail,
			AllowLocal:  cfg.Git.AllowLocal,
		}, logger.With("tool_group", "git")),
		Query: query.NewExecutor(guard, query.Engine(cfg.SQL.Engine), logger.With("tool_group", "query")),
		Image: image.NewExecutor(guard, cfg.Image.JPEGQuality, logger.With("tool_group", "image")),
		Audio: audio.NewExecutor(guard, audio.Config{
			BaseURL:  cfg.Transcribe.BaseURL,
			Model:    cfg.Transcribe.Model,
			TokenEnv: cfg.Transcribe.TokenEnv,
		}, logger.With("tool_group", "audio")),
		Markdown: markdown.NewExecutor(guard, markdown.Options{
			Standalone: cfg.Markdown.Standalone,
			GFM:        cfg.Markdown.GFM,
		}, logger.With("tool_group", "markdown")),
		CSV: csv.NewExecutor(guard, logger.With("tool_group", "csv")),

		guard:  guard,
		byName: make(map[string]*RecordingExecutor),
		logger: logger,
	}

	metrics := NewMetrics(opts.Registerer)
	for _, exec := range []agentictools.ToolExecutor{s.Web, s.Git, s.Query, s.Image, s.Audio, s.Markdown, s.CSV} {
		rec := NewRecordingExecutor(exec, metrics, logger)
		s.recorded = append(s.recorded, rec)
		for _, def := range rec.ListTools() {
			if _, dup := s.byName[def.Name]; dup {
				return nil, fmt.Errorf("duplicate tool name %q", def.Name)
			}
			s.byName[def.Name] = rec
		}
	}

	return s, nil
}

// Guard returns the guard shared by every executor.
func (s *Set) Guard() *sandbox.Guard {
	return s.guard
}

// Has reports whether name is a known tool.
func (s *Set) Has(name string) bool {
	_, ok := s.byName[name]
	return ok
}

// Names returns the tool names in sorted order.
func (s *Set) Names() []string {
	names := make([]string, 0, len(s.byName))
	for name := range s.byName {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Execute dispatches call to the executor that provides call.Name.
func (s *Set) Execute(ctx context.Context, call agentic.ToolCall) (agentic.ToolResult, error) {
	exec, ok := s.byName[call.Name]
	if !ok {
		return toolcall.Unknown(call)
	}
	return exec.Execute(ctx, call)
}

// ListTools returns every tool definition, sorted by name.
func (s *Set) ListTools() []agentic.ToolDefinition {
	var defs []agentic.ToolDefinition
	for _, rec := range s.recorded {
		defs = append(defs, rec.ListTools()...)
	}
	sort.Slice(defs, func(i, j int) bool { return defs[i].Name < defs[j].Name })
	return defs
}

// RegisterAll registers every tool with the agentic-tools global registry.
// Tools that are already registered are skipped.
func (s *Set) RegisterAll() int {
	registered := 0
	for _, rec := range s.recorded {
		for _, tool := range rec.ListTools() {
			if err := agentictools.RegisterTool(tool.Name, rec); err != nil {
				s.logger.Debug("Tool already registered", "tool", tool.Name, "error", err)
				continue
			}
			registered++
		}
	}
	return registered
}
