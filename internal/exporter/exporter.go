package exporter

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/fumiama/go-docx"

	"resume-editor/internal/editor"
)

const (
	FormatMarkdown = "markdown"
	FormatDOCX     = "docx"

	ContentTypeMarkdown = "text/markdown; charset=utf-8"
	ContentTypeDOCX     = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
)

var ErrUnknownFormat = errors.New("unknown export format")

// ParseFormat accepts markdown, md or docx.
func ParseFormat(raw string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", "markdown", "md":
		return FormatMarkdown, nil
	case "docx", "word":
		return FormatDOCX, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownFormat, raw)
	}
}

// ContentType returns the MIME type and file extension of format.
func ContentType(format string) (string, string) {
	if format == FormatDOCX {
		return ContentTypeDOCX, ".docx"
	}
	return ContentTypeMarkdown, ".md"
}

// Write renders blocks in format to w.
func Write(w io.Writer, format string, blocks []*editor.Block) error {
	switch format {
	case FormatMarkdown:
		_, err := io.WriteString(w, Markdown(blocks))
		return err
	case FormatDOCX:
		return DOCX(w, blocks)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
}

// Markdown renders blocks as CommonMark. Bold, italic and underline become
// **, * and <u>.
func Markdown(blocks []*editor.Block) string {
	var buf strings.Builder
	prevKind := editor.Kind(0)
	for i, b := range blocks {
		if i > 0 {
			if b.Kind == editor.KindListItem && prevKind == editor.KindListItem {
				buf.WriteString("\n")
			} else {
				buf.WriteString("\n\n")
			}
		}
		switch b.Kind {
		case editor.KindTitle:
			buf.WriteString("# ")
		case editor.KindListItem:
			buf.WriteString("- ")
		}
		for _, r := range b.Runs {
			buf.WriteString(markdownRun(r))
		}
		prevKind = b.Kind
	}
	if buf.Len() > 0 {
		buf.WriteString("\n")
	}
	return buf.String()
}

var markdownEscaper = strings.NewReplacer(
	`\`, `\\`,
	"*", `\*`,
	"_", `\_`,
	"`", "\\`",
	"<", `\<`,
	"[", `\[`,
	"]", `\]`,
)

func markdownRun(r *editor.TextRun) string {
	text := r.Text
	if strings.TrimSpace(text) == "" {
		return text
	}
	// Delimiters must hug the text, so surrounding spaces stay outside.
	lead := text[:len(text)-len(strings.TrimLeft(text, " "))]
	trail := text[len(strings.TrimRight(text, " ")):]
	body := markdownEscaper.Replace(strings.TrimSpace(text))

	if r.Marks.Italic {
		body = "*" + body + "*"
	}
	if r.Marks.Bold {
		body = "**" + body + "**"
	}
	if r.Marks.Underlined {
		body = "<u>" + body + "</u>"
	}
	return lead + body + trail
}

// DOCX renders blocks as a Word document. The title is a large bold
// heading; list items carry a bullet prefix.
func DOCX(w io.Writer, blocks []*editor.Block) error {
	doc := docx.New().WithDefaultTheme()
	for _, b := range blocks {
		para := doc.AddParagraph()
		switch b.Kind {
		case editor.KindTitle:
			para.Properties = &docx.ParagraphProperties{Style: &docx.Style{Val: "Heading1"}}
		case editor.KindListItem:
			para.AddText("• ")
		}
		for _, r := range b.Runs {
			if r.Text == "" {
				continue
			}
			run := para.AddText(r.Text)
			if b.Kind == editor.KindTitle {
				run.Size("32").Bold()
			} else if r.Marks.Bold {
				run.Bold()
			}
			if r.Marks.Italic {
				run.Italic()
			}
			if r.Marks.Underlined {
				run.Underline("single")
			}
		}
	}
	if _, err := doc.WriteTo(w); err != nil {
		return fmt.Errorf("write docx: %w", err)
	}
	return nil
}
