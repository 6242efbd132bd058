package importer

import (
	"bytes"
	"fmt"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"resume-editor/internal/editor"
)

func parseHTML(data []byte) ([]*editor.Block, error) {
	doc, err := html.Parse(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}

	b := &builder{}
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.DataAtom {
			case atom.Script, atom.Style, atom.Head, atom.Nav, atom.Footer:
				return
			case atom.H1, atom.H2, atom.H3, atom.H4, atom.H5, atom.H6:
				b.add(editor.KindTitle, htmlRuns(n))
				return
			case atom.Li:
				b.add(editor.KindListItem, htmlRuns(n))
				return
			case atom.P, atom.Blockquote, atom.Td, atom.Pre:
				b.add(editor.KindParagraph, htmlRuns(n))
				return
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return b.result(findTitle(doc)), nil
}

func htmlRuns(n *html.Node) []*editor.TextRun {
	var runs []*editor.TextRun
	var walk func(*html.Node, editor.Marks)
	walk = func(n *html.Node, marks editor.Marks) {
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			switch c.Type {
			case html.TextNode:
				runs = append(runs, &editor.TextRun{Text: c.Data, Marks: marks})
			case html.ElementNode:
				m := marks
				switch c.DataAtom {
				case atom.B, atom.Strong:
					m.Bold = true
				case atom.I, atom.Em:
					m.Italic = true
				case atom.U, atom.Ins:
					m.Underlined = true
				case atom.Br:
					runs = append(runs, &editor.TextRun{Text: " ", Marks: marks})
					continue
				case atom.Script, atom.Style, atom.Ul, atom.Ol:
					continue
				}
				walk(c, m)
			}
		}
	}
	walk(n, editor.Marks{})
	return runs
}

func findTitle(n *html.Node) string {
	if n.Type == html.ElementNode && n.DataAtom == atom.Title {
		var buf bytes.Buffer
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if c.Type == html.TextNode {
				buf.WriteString(c.Data)
			}
		}
		return collapseSpace(buf.String())
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if t := findTitle(c); t != "" {
			return t
		}
	}
	return ""
}
