package extract

import (
	"strings"
	"testing"
)

func TestExtractTextStripsMarkup(t *testing.T) {
	e := NewMarkdownExtractor()

	tests := []struct {
		name     string
		markdown string
		contains []string
		excludes []string
	}{
		{
			name:     "heading and emphasis",
			markdown: "# Title\n\nSome **bold** and *italic* text.",
			contains: []string{"Title", "bold", "italic"},
			excludes: []string{"#", "**", "*italic*"},
		},
		{
			name:     "links keep label only",
			markdown: "See [the docs](https://example.com/docs) for details.",
			contains: []string{"the docs", "details"},
			excludes: []string{"https://example.com/docs", "]("},
		},
		{
			name:     "fenced code block",
			markdown: "Before\n\n```go\nfunc main() {}\n```\n\nAfter",
			contains: []string{"func main() {}", "Before", "After"},
			excludes: []string{"```"},
		},
		{
			name:     "table cells",
			markdown: "| Name | Value |\n|------|-------|\n| port | 8080 |",
			contains: []string{"Name", "Value", "port", "8080"},
			excludes: []string{"|", "---"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := e.ExtractText([]byte(tt.markdown))
			for _, want := range tt.contains {
				if !strings.Contains(got, want) {
					t.Errorf("output missing %q:\n%s", want, got)
				}
			}
			for _, bad := range tt.excludes {
				if strings.Contains(got, bad) {
					t.Errorf("output still contains markup %q:\n%s", bad, got)
				}
			}
		})
	}
}

func TestExtractTextEmpty(t *testing.T) {
	e := NewMarkdownExtractor()
	if got := e.ExtractText(nil); got != "" {
		t.Errorf("ExtractText(nil) = %q, want empty", got)
	}
	if got := e.ExtractText([]byte{}); got != "" {
		t.Errorf("ExtractText(empty) = %q, want empty", got)
	}
}

func TestExtractTextBlockBoundaries(t *testing.T) {
	e := NewMarkdownExtractor()
	got := e.ExtractText([]byte("# Heading\n\nFirst paragraph.\n\nSecond paragraph."))

	lines := strings.Split(got, "\n")
	if len(lines) < 3 {
		t.Fatalf("expected blocks separated by newlines, got %q", got)
	}
	if strings.TrimSpace(lines[0]) != "Heading" {
		t.Errorf("first line = %q, want heading text", lines[0])
	}
}
