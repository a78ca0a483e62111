package markdown

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

const frontmatterDelimiter = "---"

// splitFrontmatter separates leading YAML frontmatter from the markdown body.
// Content without valid frontmatter is returned unchanged.
func splitFrontmatter(content string) (map[string]any, string) {
	if !strings.HasPrefix(content, "---\n") && !strings.HasPrefix(content, "---\r\n") {
		return nil, content
	}

	meta, body, err := extractFrontmatter(content)
	if err != nil {
		return nil, content
	}
	return meta, body
}

func extractFrontmatter(content string) (map[string]any, string, error) {
	start := len(frontmatterDelimiter)
	if len(content) > start && content[start] == '\r' {
		start++
	}
	if len(content) > start && content[start] == '\n' {
		start++
	}

	rest := content[start:]
	var yamlContent string
	var bodyStart int
	switch {
	case isFence(rest, 0):
		// Empty block
		bodyStart = start + len(frontmatterDelimiter)
	default:
		closeIdx := closingFence(rest)
		if closeIdx == -1 {
			return nil, content, fmt.Errorf("no closing frontmatter delimiter")
		}
		yamlContent = rest[:closeIdx]
		bodyStart = start + closeIdx + 1 + len(frontmatterDelimiter)
	}

	for bodyStart < len(content) && (content[bodyStart] == '\n' || content[bodyStart] == '\r') {
		bodyStart++
	}

	var meta map[string]any
	if err := yaml.Unmarshal([]byte(yamlContent), &meta); err != nil {
		return nil, content, fmt.Errorf("parse YAML frontmatter: %w", err)
	}

	return meta, content[bodyStart:], nil
}

// closingFence returns the index of the newline preceding the first line
// that is exactly "---", or -1.
func closingFence(s string) int {
	for from := 0; ; {
		i := strings.Index(s[from:], "\n"+frontmatterDelimiter)
		if i == -1 {
			return -1
		}
		i += from
		if isFence(s, i+1) {
			return i
		}
		from = i + 1
	}
}

// isFence reports whether a delimiter starting at i fills the whole line.
func isFence(s string, i int) bool {
	if !strings.HasPrefix(s[i:], frontmatterDelimiter) {
		return false
	}
	tail := s[i+len(frontmatterDelimiter):]
	return tail == "" || tail[0] == '\n' || strings.HasPrefix(tail, "\r\n")
}
