package pattern

import (
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// Span is the byte range of one fenced code block's contents within a
// markdown document, fence lines excluded.
type Span struct {
	Start   int
	End     int
	Content string
}

// CodeBlocks locates every fenced code block in a markdown document. The
// ranges index into source, so callers can substitute within a block without
// touching surrounding prose.
func CodeBlocks(source string) []Span {
	src := []byte(source)
	doc := goldmark.New().Parser().Parse(text.NewReader(src))

	var spans []Span
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		fcb, ok := n.(*ast.FencedCodeBlock)
		if !ok {
			return ast.WalkContinue, nil
		}
		lines := fcb.Lines()
		if lines.Len() == 0 {
			return ast.WalkContinue, nil
		}
		start := lines.At(0).Start
		end := lines.At(lines.Len() - 1).Stop
		spans = append(spans, Span{
			Start:   start,
			End:     end,
			Content: source[start:end],
		})
		return ast.WalkContinue, nil
	})
	return spans
}
