// Package extract converts structured source formats to plain text before
// chunking. Only markdown is handled here; other formats arrive as raw text
// from external extraction collaborators.
package extract

import (
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/text"
)

// MarkdownExtractor extracts plain text from markdown using goldmark AST parsing.
type MarkdownExtractor struct {
	parser goldmark.Markdown
}

// NewMarkdownExtractor creates a new markdown extractor.
func NewMarkdownExtractor() *MarkdownExtractor {
	return &MarkdownExtractor{
		parser: goldmark.New(
			goldmark.WithExtensions(extension.Table),
		),
	}
}

// ExtractText parses markdown content and returns its plain text, with block
// boundaries preserved as newlines. Markup (emphasis, links, table syntax) is
// stripped; heading and cell text is kept.
func (e *MarkdownExtractor) ExtractText(content []byte) string {
	if len(content) == 0 {
		return ""
	}

	reader := text.NewReader(content)
	doc := e.parser.Parser().Parse(reader)

	var b strings.Builder
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}

		switch node := n.(type) {
		case *ast.Text:
			b.Write(node.Segment.Value(content))
			if node.HardLineBreak() || node.SoftLineBreak() {
				b.WriteByte('\n')
			}
		case *ast.String:
			b.Write(node.Value)
		case *ast.CodeBlock:
			writeBlockBreak(&b)
			writeLines(&b, node, content)
		case *ast.FencedCodeBlock:
			writeBlockBreak(&b)
			writeLines(&b, node, content)
		case *ast.Heading, *ast.Paragraph, *ast.ListItem, *ast.Blockquote:
			writeBlockBreak(&b)
		default:
			// Table extension nodes are only reachable by kind name.
			kind := n.Kind().String()
			if strings.Contains(kind, "TableRow") || strings.Contains(kind, "TableHeader") {
				writeBlockBreak(&b)
			} else if strings.Contains(kind, "TableCell") {
				if !strings.HasSuffix(b.String(), "\n") && b.Len() > 0 {
					b.WriteByte(' ')
				}
			}
		}
		return ast.WalkContinue, nil
	})

	return strings.TrimSpace(b.String())
}

func writeBlockBreak(b *strings.Builder) {
	if b.Len() > 0 && !strings.HasSuffix(b.String(), "\n") {
		b.WriteByte('\n')
	}
}

func writeLines(b *strings.Builder, n ast.Node, content []byte) {
	lines := n.Lines()
	for i := 0; i < lines.Len(); i++ {
		line := lines.At(i)
		b.Write(line.Value(content))
	}
}
