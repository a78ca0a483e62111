package web

import (
	"strings"
	"testing"
)

func TestExtractHTMLTitle(t *testing.T) {
	tests := []struct {
		name     string
		html     string
		expected string
	}{
		{
			name:     "simple title",
			html:     "<html><head><title>My Page</title></head><body></body></html>",
			expected: "My Page",
		},
		{
			name:     "title with whitespace",
			html:     "<html><head><title>  Spaced Title  </title></head></html>",
			expected: "Spaced Title",
		},
		{
			name:     "no title",
			html:     "<html><head></head><body>Content</body></html>",
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := extractHTMLTitle([]byte(tt.html)); got != tt.expected {
				t.Errorf("extractHTMLTitle() = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestConvertPrefersMainContent(t *testing.T) {
	page := `<html><head><title>Guide</title></head><body>
<nav><a href="/">Home</a> NAVLINK</nav>
<main><h2>Install</h2><p>Run the <strong>installer</strong>.</p></main>
<footer>FOOTERTEXT</footer>
</body></html>`

	result, err := NewConverter().Convert([]byte(page))
	if err != nil {
		t.Fatalf("Convert() error = %v", err)
	}

	if result.Title != "Guide" {
		t.Errorf("Title = %q, want Guide", result.Title)
	}
	if !strings.Contains(result.Markdown, "## Install") {
		t.Errorf("expected heading in markdown, got %q", result.Markdown)
	}
	if !strings.Contains(result.Markdown, "**installer**") {
		t.Errorf("expected bold text in markdown, got %q", result.Markdown)
	}
	if strings.Contains(result.Markdown, "NAVLINK") || strings.Contains(result.Markdown, "FOOTERTEXT") {
		t.Errorf("boilerplate leaked into markdown: %q", result.Markdown)
	}

	doc := result.Document()
	if !strings.HasPrefix(doc, "# Guide\n\n") {
		t.Errorf("Document() should lead with the title, got %q", doc)
	}
}

func TestConvertStripsBoilerplateWithoutMain(t *testing.T) {
	page := `<html><body>
<div class="sidebar">SIDEBAR</div>
<h1>Release notes</h1>
<p>Fixed a bug.</p>
<script>alert("x")</script>
</body></html>`

	result, err := NewConverter().Convert([]byte(page))
	if err != nil {
		t.Fatalf("Convert() error = %v", err)
	}

	if strings.Contains(result.Markdown, "SIDEBAR") || strings.Contains(result.Markdown, "alert") {
		t.Errorf("boilerplate leaked into markdown: %q", result.Markdown)
	}
	if result.Title != "Release notes" {
		t.Errorf("Title = %q, want title from first H1", result.Title)
	}
	if strings.Count(result.Document(), "# Release notes") != 1 {
		t.Errorf("Document() should not duplicate an existing H1: %q", result.Document())
	}
}

func TestCleanMarkdown(t *testing.T) {
	in := "line one   \n\n\n\n\n\nline two\t\n"
	want := "line one\n\n\nline two"
	if got := cleanMarkdown(in); got != want {
		t.Errorf("cleanMarkdown() = %q, want %q", got, want)
	}
}
