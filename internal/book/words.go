package book

import (
	"regexp"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

var markdown = goldmark.New()

var (
	// commentRe matches HTML comments, engine markers and author directives alike.
	commentRe = regexp.MustCompile(`(?s)<!--.*?-->`)
	tagRe     = regexp.MustCompile(`<[^>]*>`)
)

// CountProseWords counts the words a reader would see in a markdown document.
// Markup characters, HTML tags and comments (including <!-- INK --> markers) are
// not counted; text inside HTML blocks is. Words split by inline markup such as
// *emphasis* inside a word count once.
//
// Session open and close both count through this function so their totals agree.
func CountProseWords(src string) int {
	// A line opening with <!-- would otherwise swallow the prose after the
	// marker into an HTML block.
	src = commentRe.ReplaceAllString(src, "")
	if strings.TrimSpace(src) == "" {
		return 0
	}

	source := []byte(src)
	doc := markdown.Parser().Parse(text.NewReader(source))

	var sb strings.Builder
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if n.Type() == ast.TypeBlock {
			sb.WriteByte(' ')
		}
		if !entering {
			return ast.WalkContinue, nil
		}

		switch node := n.(type) {
		case *ast.HTMLBlock:
			lines := node.Lines()
			for i := 0; i < lines.Len(); i++ {
				seg := lines.At(i)
				sb.WriteString(tagRe.ReplaceAllString(string(seg.Value(source)), " "))
				sb.WriteByte(' ')
			}
			if node.HasClosure() {
				sb.WriteString(tagRe.ReplaceAllString(string(node.ClosureLine.Value(source)), " "))
			}
			return ast.WalkSkipChildren, nil
		case *ast.RawHTML:
			return ast.WalkSkipChildren, nil
		case *ast.CodeBlock, *ast.FencedCodeBlock:
			lines := node.Lines()
			for i := 0; i < lines.Len(); i++ {
				seg := lines.At(i)
				sb.Write(seg.Value(source))
				sb.WriteByte(' ')
			}
			return ast.WalkSkipChildren, nil
		case *ast.Text:
			sb.Write(node.Segment.Value(source))
			if node.SoftLineBreak() || node.HardLineBreak() {
				sb.WriteByte(' ')
			}
		case *ast.String:
			sb.Write(node.Value)
		case *ast.AutoLink:
			sb.Write(node.Label(source))
		}
		return ast.WalkContinue, nil
	})

	return len(strings.Fields(sb.String()))
}

// CountWords counts whitespace-separated tokens. Paragraph filtering and
// truncation use it where markup awareness does not matter.
func CountWords(s string) int {
	return len(strings.Fields(s))
}
