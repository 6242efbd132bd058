package importer

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/fumiama/go-docx"

	"resume-editor/internal/editor"
)

func parseDOCX(data []byte) ([]*editor.Block, error) {
	doc, err := docx.Parse(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("parse docx: %w", err)
	}

	b := &builder{}
	for _, item := range doc.Document.Body.Items {
		para, ok := item.(*docx.Paragraph)
		if !ok {
			continue
		}
		runs := docxRuns(para)
		style := docxStyle(para)
		switch {
		case strings.HasPrefix(style, "heading") || style == "title":
			b.add(editor.KindTitle, runs)
		case strings.Contains(style, "list"):
			b.add(editor.KindListItem, runs)
		default:
			if stripped, ok := stripBullet(runs); ok {
				b.add(editor.KindListItem, stripped)
				continue
			}
			b.add(editor.KindParagraph, runs)
		}
	}
	return b.result(""), nil
}

func docxStyle(para *docx.Paragraph) string {
	if para.Properties == nil || para.Properties.Style == nil {
		return ""
	}
	return strings.ToLower(strings.ReplaceAll(para.Properties.Style.Val, " ", ""))
}

func docxRuns(para *docx.Paragraph) []*editor.TextRun {
	var runs []*editor.TextRun
	for _, child := range para.Children {
		run, ok := child.(*docx.Run)
		if !ok {
			continue
		}
		var marks editor.Marks
		if p := run.RunProperties; p != nil {
			marks.Bold = p.Bold != nil
			marks.Italic = p.Italic != nil
			marks.Underlined = p.Underline != nil && p.Underline.Val != "none"
		}
		for _, rc := range run.Children {
			if t, ok := rc.(*docx.Text); ok {
				runs = append(runs, &editor.TextRun{Text: t.Text, Marks: marks})
			}
		}
	}
	return runs
}

// stripBullet recognises paragraphs written with a literal bullet prefix.
func stripBullet(runs []*editor.TextRun) ([]*editor.TextRun, bool) {
	runs = compactRuns(runs)
	if len(runs) == 0 {
		return nil, false
	}
	rest, ok := bulletPrefix(runs[0].Text)
	if !ok {
		return nil, false
	}
	first := &editor.TextRun{Text: rest, Marks: runs[0].Marks}
	return append([]*editor.TextRun{first}, runs[1:]...), true
}
