// Package markdown provides the markdown_to_html tool.
package markdown

import (
	"bytes"
	"context"
	"fmt"
	"html"
	"log/slog"
	"strings"

	"github.com/c360studio/semstreams/agentic"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/text"

	"github.com/c360studio/semtasks/sandbox"
	"github.com/c360studio/semtasks/tools/toolcall"
)

// Options configures rendering
type Options struct {
	// Standalone wraps the fragment in a complete HTML document
	Standalone bool
	// GFM enables tables, strikethrough, autolinks and task lists
	GFM bool
}

// Executor implements the markdown_to_html tool
type Executor struct {
	guard  *sandbox.Guard
	opts   Options
	md     goldmark.Markdown
	logger *slog.Logger
}

// NewExecutor creates a new markdown executor
func NewExecutor(guard *sandbox.Guard, opts Options, logger *slog.Logger) *Executor {
	if logger == nil {
		logger = slog.Default()
	}

	var exts []goldmark.Extender
	if opts.GFM {
		exts = append(exts, extension.GFM)
	}

	return &Executor{
		guard:  guard,
		opts:   opts,
		md:     goldmark.New(goldmark.WithExtensions(exts...)),
		logger: logger,
	}
}

// Render converts the markdown file at mdPath to HTML and writes it to outPath.
func (e *Executor) Render(ctx context.Context, mdPath, outPath string) error {
	if err := e.guard.Check(mdPath, outPath); err != nil {
		return err
	}

	src, err := e.guard.ReadFile(mdPath)
	if err != nil {
		return err
	}

	out, err := e.Convert(src)
	if err != nil {
		return fmt.Errorf("render %s: %w", mdPath, err)
	}

	if err := ctx.Err(); err != nil {
		return err
	}

	if err := e.guard.WriteFile(outPath, out); err != nil {
		return err
	}

	e.logger.Debug("Markdown rendered", "source", mdPath, "output", outPath, "bytes", len(out))
	return nil
}

// Convert renders markdown source to HTML. Leading YAML frontmatter is
// removed before rendering.
func (e *Executor) Convert(src []byte) ([]byte, error) {
	meta, body := splitFrontmatter(string(src))
	source := []byte(body)

	doc := e.md.Parser().Parse(text.NewReader(source))

	var buf bytes.Buffer
	if err := e.md.Renderer().Render(&buf, source, doc); err != nil {
		return nil, err
	}

	if !e.opts.Standalone {
		return buf.Bytes(), nil
	}

	title, _ := meta["title"].(string)
	if title == "" {
		title = firstHeading(doc, source)
	}
	return standalone(title, buf.Bytes()), nil
}

// Execute executes a markdown tool call
func (e *Executor) Execute(ctx context.Context, call agentic.ToolCall) (agentic.ToolResult, error) {
	switch call.Name {
	case "markdown_to_html":
		return e.render(ctx, call)
	default:
		return toolcall.Unknown(call)
	}
}

// ListTools returns the tool definitions for markdown operations
func (e *Executor) ListTools() []agentic.ToolDefinition {
	return []agentic.ToolDefinition{
		{
			Name:        "markdown_to_html",
			Description: "Render a markdown file to HTML",
			Parameters: toolcall.Schema([]string{"md_path", "output_path"}, map[string]any{
				"md_path":     toolcall.Prop("string", "Markdown source inside the sandbox root"),
				"output_path": toolcall.Prop("string", "HTML destination inside the sandbox root"),
			}),
		},
	}
}

func (e *Executor) render(ctx context.Context, call agentic.ToolCall) (agentic.ToolResult, error) {
	mdPath, err := toolcall.String(call, "md_path")
	if err != nil {
		return toolcall.Failure(call, err), nil
	}
	outPath, err := toolcall.String(call, "output_path")
	if err != nil {
		return toolcall.Failure(call, err), nil
	}

	if err := e.Render(ctx, mdPath, outPath); err != nil {
		return toolcall.Failure(call, err), nil
	}
	return toolcall.Result(call, fmt.Sprintf("Rendered %s to %s", mdPath, outPath)), nil
}

// firstHeading returns the plain text of the first level-1 heading.
func firstHeading(doc ast.Node, source []byte) string {
	var title string
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		h, ok := n.(*ast.Heading)
		if !ok || h.Level != 1 {
			return ast.WalkContinue, nil
		}
		title = plainText(h, source)
		return ast.WalkStop, nil
	})
	return title
}

func plainText(n ast.Node, source []byte) string {
	var sb strings.Builder
	_ = ast.Walk(n, func(c ast.Node, entering bool) (ast.WalkStatus, error) {
		if t, ok := c.(*ast.Text); ok && entering {
			sb.Write(t.Segment.Value(source))
			if t.SoftLineBreak() {
				sb.WriteByte(' ')
			}
		}
		return ast.WalkContinue, nil
	})
	return strings.TrimSpace(sb.String())
}

func standalone(title string, body []byte) []byte {
	var buf bytes.Buffer
	buf.WriteString("<!DOCTYPE html>\n<html>\n<head>\n<meta charset=\"utf-8\">\n")
	fmt.Fprintf(&buf, "<title>%s</title>\n", html.EscapeString(title))
	buf.WriteString("</head>\n<body>\n")
	buf.Write(body)
	buf.WriteString("</body>\n</html>\n")
	return buf.Bytes()
}
