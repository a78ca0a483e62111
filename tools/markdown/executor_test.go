package markdown

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/c360studio/semstreams/agentic"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360studio/semtasks/sandbox"
)

func newTestExecutor(t *testing.T, opts Options) (*Executor, string) {
	t.Helper()
	root := t.TempDir()
	guard, err := sandbox.New(root)
	require.NoError(t, err)
	return NewExecutor(guard, opts, nil), root
}

func TestRenderHeading(t *testing.T) {
	executor, root := newTestExecutor(t, Options{})
	src := filepath.Join(root, "doc.md")
	out := filepath.Join(root, "doc.html")
	require.NoError(t, os.WriteFile(src, []byte("# Title\n\nSome *text*.\n"), 0644))

	require.NoError(t, executor.Render(context.Background(), src, out))

	got, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Contains(t, string(got), "<h1>Title</h1>")
	assert.Contains(t, string(got), "<em>text</em>")
}

func TestConvertHeading(t *testing.T) {
	executor, _ := newTestExecutor(t, Options{})

	out, err := executor.Convert([]byte("# Title\n"))
	require.NoError(t, err)
	assert.Equal(t, "<h1>Title</h1>\n", string(out))
}

func TestConvertFrontmatter(t *testing.T) {
	executor, _ := newTestExecutor(t, Options{Standalone: true})

	src := "---\ntitle: Release Notes\ntags: [a, b]\n---\n\n# Heading\n\nBody\n"
	out, err := executor.Convert([]byte(src))
	require.NoError(t, err)

	html := string(out)
	assert.True(t, strings.HasPrefix(html, "<!DOCTYPE html>"))
	assert.Contains(t, html, "<title>Release Notes</title>")
	assert.NotContains(t, html, "tags:")
	assert.Contains(t, html, "<h1>Heading</h1>")
}

func TestConvertStandaloneTitleFromHeading(t *testing.T) {
	executor, _ := newTestExecutor(t, Options{Standalone: true})

	out, err := executor.Convert([]byte("Intro\n\n# Fish & Chips\n\n# Second\n"))
	require.NoError(t, err)
	assert.Contains(t, string(out), "<title>Fish &amp; Chips</title>")
}

func TestConvertGFM(t *testing.T) {
	table := "| a | b |\n|---|---|\n| 1 | 2 |\n"

	plain, _ := newTestExecutor(t, Options{})
	out, err := plain.Convert([]byte(table))
	require.NoError(t, err)
	assert.NotContains(t, string(out), "<table>")

	gfm, _ := newTestExecutor(t, Options{GFM: true})
	out, err = gfm.Convert([]byte(table))
	require.NoError(t, err)
	assert.Contains(t, string(out), "<table>")
}

func TestSplitFrontmatter(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		wantMeta map[string]any
		wantBody string
	}{
		{"none", "# Hi\n", nil, "# Hi\n"},
		{"simple", "---\ntitle: X\n---\nbody\n", map[string]any{"title": "X"}, "body\n"},
		{"crlf", "---\r\ntitle: X\r\n---\r\nbody\r\n", map[string]any{"title": "X"}, "body\r\n"},
		{"empty block", "---\n---\nbody\n", nil, "body\n"},
		{"fence at end", "---\ntitle: X\n---", map[string]any{"title": "X"}, ""},
		{"commented marker is not a fence", "---\ntitle: X\n--- # c\n---\nbody\n", map[string]any{"title": "X"}, "body\n"},
		{"dashes inside block scalar", "---\nnote: |\n  --- inline\n---\nbody\n", map[string]any{"note": "--- inline\n"}, "body\n"},
		{"unterminated", "---\ntitle: X\nbody\n", nil, "---\ntitle: X\nbody\n"},
		{"invalid yaml", "---\n: [\n---\nbody\n", nil, "---\n: [\n---\nbody\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			meta, body := splitFrontmatter(tt.input)
			assert.Equal(t, tt.wantMeta, meta)
			assert.Equal(t, tt.wantBody, body)
		})
	}
}

func TestClosingFence(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  int
	}{
		{"plain", "a: 1\n---\nbody", 4},
		{"crlf", "a: 1\r\n---\r\nbody", 5},
		{"end of input", "a: 1\n---", 4},
		{"longer rule skipped", "a: 1\n----\nb: 2\n---\n", 14},
		{"trailing text skipped", "a: 1\n--- note\n---\n", 13},
		{"none", "a: 1\n----\n--- x\n", -1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, closingFence(tt.input))
		})
	}
}

func TestRenderOutsideSandbox(t *testing.T) {
	executor, root := newTestExecutor(t, Options{})
	src := filepath.Join(root, "doc.md")
	require.NoError(t, os.WriteFile(src, []byte("# T\n"), 0644))

	err := executor.Render(context.Background(), src, "/tmp/elsewhere/out.html")
	assert.ErrorIs(t, err, sandbox.ErrPermissionDenied)
}

func TestMarkdownExecute(t *testing.T) {
	executor, root := newTestExecutor(t, Options{})
	src := filepath.Join(root, "doc.md")
	out := filepath.Join(root, "nested", "doc.html")
	require.NoError(t, os.WriteFile(src, []byte("# T\n"), 0644))

	result, err := executor.Execute(context.Background(), agentic.ToolCall{
		ID:        "call-1",
		Name:      "markdown_to_html",
		Arguments: map[string]any{"md_path": src, "output_path": out},
	})
	require.NoError(t, err)
	assert.Empty(t, result.Error)
	assert.FileExists(t, out)

	result, err = executor.Execute(context.Background(), agentic.ToolCall{
		ID:        "call-2",
		Name:      "markdown_to_html",
		Arguments: map[string]any{"md_path": src},
	})
	require.NoError(t, err)
	assert.Contains(t, result.Error, "output_path")
}

func TestWatchRerenders(t *testing.T) {
	executor, root := newTestExecutor(t, Options{})
	src := filepath.Join(root, "live.md")
	out := filepath.Join(root, "live.html")
	require.NoError(t, os.WriteFile(src, []byte("# First\n"), 0644))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	events, err := executor.Watch(ctx, src, out, 20*time.Millisecond)
	require.NoError(t, err)

	select {
	case ev := <-events:
		require.NoError(t, ev.Error)
	case <-time.After(2 * time.Second):
		t.Fatal("initial render not reported")
	}

	require.NoError(t, os.WriteFile(src, []byte("# Second\n"), 0644))

	assert.Eventually(t, func() bool {
		got, err := os.ReadFile(out)
		return err == nil && strings.Contains(string(got), "<h1>Second</h1>")
	}, 3*time.Second, 20*time.Millisecond)

	cancel()
	assert.Eventually(t, func() bool {
		for {
			select {
			case _, ok := <-events:
				if !ok {
					return true
				}
			default:
				return false
			}
		}
	}, 2*time.Second, 10*time.Millisecond)
}
