package importer

import (
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"

	"resume-editor/internal/editor"
)

func parseMarkdown(src []byte) ([]*editor.Block, error) {
	md := goldmark.New()
	doc := md.Parser().Parse(text.NewReader(src))

	b := &builder{}
	for n := doc.FirstChild(); n != nil; n = n.NextSibling() {
		switch node := n.(type) {
		case *ast.Heading:
			b.add(editor.KindTitle, inlineRuns(node, src))
		case *ast.List:
			for item := node.FirstChild(); item != nil; item = item.NextSibling() {
				for child := item.FirstChild(); child != nil; child = child.NextSibling() {
					if _, nested := child.(*ast.List); nested {
						continue
					}
					b.add(editor.KindListItem, inlineRuns(child, src))
				}
			}
		case *ast.Paragraph, *ast.TextBlock, *ast.Blockquote:
			b.add(editor.KindParagraph, inlineRuns(node, src))
		case *ast.FencedCodeBlock, *ast.CodeBlock:
			b.add(editor.KindParagraph, plainRun(blockLines(node, src)))
		}
	}
	return b.result(""), nil
}

// inlineRuns flattens the inline children of n into marked runs. Raw <u> and
// </u> tags toggle the underline mark.
func inlineRuns(n ast.Node, src []byte) []*editor.TextRun {
	var runs []*editor.TextRun
	var walk func(node ast.Node, marks editor.Marks)
	underline := false
	walk = func(node ast.Node, marks editor.Marks) {
		for c := node.FirstChild(); c != nil; c = c.NextSibling() {
			switch v := c.(type) {
			case *ast.Text:
				m := marks
				m.Underlined = m.Underlined || underline
				runs = append(runs, &editor.TextRun{Text: string(v.Value(src)), Marks: m})
				if v.SoftLineBreak() || v.HardLineBreak() {
					runs = append(runs, &editor.TextRun{Text: " ", Marks: m})
				}
			case *ast.String:
				m := marks
				m.Underlined = m.Underlined || underline
				runs = append(runs, &editor.TextRun{Text: string(v.Value), Marks: m})
			case *ast.Emphasis:
				m := marks
				if v.Level >= 2 {
					m.Bold = true
				} else {
					m.Italic = true
				}
				walk(v, m)
			case *ast.RawHTML:
				var raw strings.Builder
				for i := 0; i < v.Segments.Len(); i++ {
					seg := v.Segments.At(i)
					raw.Write(seg.Value(src))
				}
				switch strings.ToLower(strings.TrimSpace(raw.String())) {
				case "<u>":
					underline = true
				case "</u>":
					underline = false
				}
			case *ast.Paragraph, *ast.TextBlock:
				walk(v, marks)
				runs = append(runs, &editor.TextRun{Text: " ", Marks: marks})
			default:
				walk(c, marks)
			}
		}
	}
	walk(n, editor.Marks{})
	return runs
}

func blockLines(n ast.Node, src []byte) string {
	var buf strings.Builder
	lines := n.Lines()
	for i := 0; i < lines.Len(); i++ {
		line := lines.At(i)
		buf.Write(line.Value(src))
	}
	return buf.String()
}
