package web

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"github.com/c360studio/semstreams/agentic"
	readability "github.com/go-shiori/go-readability"

	"github.com/c360studio/semtasks/sandbox"
	"github.com/c360studio/semtasks/tools/toolcall"
)

// Format selects how scrape_to_file renders a page.
type Format string

const (
	FormatRaw      Format = "raw"
	FormatText     Format = "text"
	FormatMarkdown Format = "markdown"
)

// ParseFormat converts a string into a Format. Empty means FormatRaw.
func ParseFormat(s string) (Format, error) {
	switch Format(strings.ToLower(s)) {
	case "", FormatRaw:
		return FormatRaw, nil
	case FormatText:
		return FormatText, nil
	case FormatMarkdown:
		return FormatMarkdown, nil
	default:
		return "", fmt.Errorf("unknown scrape format %q (want raw, text, or markdown)", s)
	}
}

// Executor implements the fetch and scrape tools
type Executor struct {
	guard     *sandbox.Guard
	fetcher   *Fetcher
	converter *Converter
	logger    *slog.Logger
}

// NewExecutor creates a new web executor
func NewExecutor(guard *sandbox.Guard, fetcher *Fetcher, logger *slog.Logger) *Executor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Executor{
		guard:     guard,
		fetcher:   fetcher,
		converter: NewConverter(),
		logger:    logger,
	}
}

// FetchToFile fetches url and writes the response body to savePath.
func (e *Executor) FetchToFile(ctx context.Context, rawURL, savePath string) error {
	if err := e.guard.Check(savePath); err != nil {
		return err
	}

	result, err := e.fetcher.Fetch(ctx, rawURL)
	if err != nil {
		return err
	}

	if err := e.guard.WriteFile(savePath, result.Body); err != nil {
		return err
	}

	e.logger.Debug("Fetched URL", "url", rawURL, "path", savePath, "bytes", len(result.Body))
	return nil
}

// ScrapeToFile fetches url, renders it in the given format and writes it to outPath.
func (e *Executor) ScrapeToFile(ctx context.Context, rawURL, outPath string, format Format) error {
	if err := e.guard.Check(outPath); err != nil {
		return err
	}

	result, err := e.fetcher.Fetch(ctx, rawURL)
	if err != nil {
		return err
	}

	var out []byte
	switch format {
	case "", FormatRaw:
		out = result.Body
	case FormatText:
		text, err := extractText(result)
		if err != nil {
			return err
		}
		out = []byte(text)
	case FormatMarkdown:
		page, err := e.converter.Convert(result.Body)
		if err != nil {
			return fmt.Errorf("convert to markdown: %w", err)
		}
		out = []byte(page.Document())
	default:
		return fmt.Errorf("unknown scrape format %q", format)
	}

	if err := e.guard.WriteFile(outPath, out); err != nil {
		return err
	}

	e.logger.Debug("Scraped URL", "url", rawURL, "path", outPath, "format", format, "bytes", len(out))
	return nil
}

// extractText pulls the readable article text out of an HTML page.
func extractText(result *FetchResult) (string, error) {
	pageURL, err := url.Parse(result.URL)
	if err != nil {
		return "", fmt.Errorf("parse page URL: %w", err)
	}

	article, err := readability.FromReader(bytes.NewReader(result.Body), pageURL)
	if err != nil {
		return "", fmt.Errorf("extract article: %w", err)
	}

	text := strings.TrimSpace(article.TextContent)
	if article.Title != "" {
		text = article.Title + "\n\n" + text
	}
	return text + "\n", nil
}

// Execute executes a web tool call
func (e *Executor) Execute(ctx context.Context, call agentic.ToolCall) (agentic.ToolResult, error) {
	switch call.Name {
	case "fetch_to_file":
		return e.fetchToFile(ctx, call)
	case "scrape_to_file":
		return e.scrapeToFile(ctx, call)
	default:
		return toolcall.Unknown(call)
	}
}

// ListTools returns the tool definitions for web operations
func (e *Executor) ListTools() []agentic.ToolDefinition {
	return []agentic.ToolDefinition{
		{
			Name:        "fetch_to_file",
			Description: "Fetch a URL and save the response body to a file",
			Parameters: toolcall.Schema([]string{"url", "path"}, map[string]any{
				"url":  toolcall.Prop("string", "URL to fetch (http or https)"),
				"path": toolcall.Prop("string", "Destination file inside the sandbox root"),
			}),
		},
		{
			Name:        "scrape_to_file",
			Description: "Scrape a web page and save it as raw HTML, readable text, or markdown",
			Parameters: toolcall.Schema([]string{"url", "path"}, map[string]any{
				"url":    toolcall.Prop("string", "Page URL (http or https)"),
				"path":   toolcall.Prop("string", "Destination file inside the sandbox root"),
				"format": toolcall.Prop("string", "raw (default), text, or markdown"),
			}),
		},
	}
}

func (e *Executor) fetchToFile(ctx context.Context, call agentic.ToolCall) (agentic.ToolResult, error) {
	rawURL, err := toolcall.String(call, "url")
	if err != nil {
		return toolcall.Failure(call, err), nil
	}
	path, err := toolcall.String(call, "path")
	if err != nil {
		return toolcall.Failure(call, err), nil
	}

	if err := e.FetchToFile(ctx, rawURL, path); err != nil {
		return toolcall.Failure(call, err), nil
	}
	return toolcall.Result(call, fmt.Sprintf("Saved %s to %s", rawURL, path)), nil
}

func (e *Executor) scrapeToFile(ctx context.Context, call agentic.ToolCall) (agentic.ToolResult, error) {
	rawURL, err := toolcall.String(call, "url")
	if err != nil {
		return toolcall.Failure(call, err), nil
	}
	path, err := toolcall.String(call, "path")
	if err != nil {
		return toolcall.Failure(call, err), nil
	}
	format, err := ParseFormat(toolcall.OptionalString(call, "format"))
	if err != nil {
		return toolcall.Failure(call, err), nil
	}

	if err := e.ScrapeToFile(ctx, rawURL, path, format); err != nil {
		return toolcall.Failure(call, err), nil
	}
	return toolcall.Result(call, fmt.Sprintf("Scraped %s to %s (%s)", rawURL, path, format)), nil
}
