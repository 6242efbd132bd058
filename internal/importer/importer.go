package importer

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"resume-editor/internal/editor"
	"resume-editor/internal/shared/storage/object"
)

const (
	mimePDF      = "application/pdf"
	mimeDOCX     = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	mimeMarkdown = "text/markdown"
	mimeHTML     = "text/html"
	mimeText     = "text/plain"
)

// MaxSize caps an imported payload.
const MaxSize = 10 << 20

var (
	ErrUnsupported = errors.New("unsupported document type")
	ErrEmpty       = errors.New("document has no text")
	ErrTooLarge    = errors.New("document too large")
)

// Import converts a document payload into editor blocks. The format is taken
// from the MIME type, then the file extension, then the content.
func Import(ctx context.Context, data []byte, mimeType, fileName string) ([]*editor.Block, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, ErrEmpty
	}
	if len(data) > MaxSize {
		return nil, ErrTooLarge
	}

	var (
		blocks []*editor.Block
		err    error
	)
	switch format := DetectFormat(mimeType, fileName, data); format {
	case mimeMarkdown:
		blocks, err = parseMarkdown(data)
	case mimeHTML:
		blocks, err = parseHTML(data)
	case mimePDF:
		blocks, err = parsePDF(data)
	case mimeDOCX:
		blocks, err = parseDOCX(data)
	case mimeText:
		blocks, err = parseText(data)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupported, format)
	}
	if err != nil {
		return nil, err
	}
	if len(blocks) == 0 {
		return nil, ErrEmpty
	}
	return blocks, nil
}

// ImportObject reads a stored object and imports it.
func ImportObject(ctx context.Context, store object.ObjectStore, key, mimeType, fileName string) ([]*editor.Block, error) {
	body, err := store.Open(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("import key=%s: %w", key, err)
	}
	defer body.Close()

	raw, err := io.ReadAll(io.LimitReader(body, MaxSize+1))
	if err != nil {
		return nil, fmt.Errorf("import key=%s: read: %w", key, err)
	}
	blocks, err := Import(ctx, raw, mimeType, fileName)
	if err != nil {
		return nil, fmt.Errorf("import key=%s mime=%s: %w", key, mimeType, err)
	}
	return blocks, nil
}

// DetectFormat resolves the canonical MIME type used to pick a parser.
func DetectFormat(mimeType, fileName string, data []byte) string {
	clean := strings.ToLower(strings.TrimSpace(strings.Split(mimeType, ";")[0]))
	switch clean {
	case mimePDF, mimeDOCX, mimeMarkdown, mimeHTML:
		return clean
	case "text/x-markdown":
		return mimeMarkdown
	case "application/xhtml+xml":
		return mimeHTML
	}

	switch strings.ToLower(filepath.Ext(fileName)) {
	case ".md", ".markdown":
		return mimeMarkdown
	case ".html", ".htm":
		return mimeHTML
	case ".pdf":
		return mimePDF
	case ".docx":
		return mimeDOCX
	case ".txt":
		return mimeText
	}

	if bytes.HasPrefix(data, []byte("%PDF-")) {
		return mimePDF
	}
	if isDOCX(data) {
		return mimeDOCX
	}
	if clean == mimeText || clean == "" || clean == "application/octet-stream" {
		return mimeText
	}
	return clean
}

func isDOCX(data []byte) bool {
	if !bytes.HasPrefix(data, []byte("PK")) {
		return false
	}
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return false
	}
	for _, f := range zr.File {
		if strings.ReplaceAll(f.Name, "\\", "/") == "word/document.xml" {
			return true
		}
	}
	return false
}

// builder accumulates blocks. The first heading seen becomes the title; any
// later headings are imported as paragraphs.
type builder struct {
	blocks   []*editor.Block
	hasTitle bool
}

func (b *builder) add(kind editor.Kind, runs []*editor.TextRun) {
	runs = compactRuns(runs)
	if len(runs) == 0 {
		return
	}
	if kind == editor.KindTitle {
		if b.hasTitle {
			kind = editor.KindParagraph
		}
		b.hasTitle = true
	}
	b.blocks = append(b.blocks, &editor.Block{Kind: kind, Runs: runs})
}

// result prepends a title when the source had none so that the first content
// block is not retyped by normalization.
func (b *builder) result(fallbackTitle string) []*editor.Block {
	if len(b.blocks) == 0 {
		return nil
	}
	if !b.hasTitle || b.blocks[0].Kind != editor.KindTitle {
		title := strings.TrimSpace(fallbackTitle)
		if title == "" {
			title = "Untitled"
		}
		b.blocks = append([]*editor.Block{editor.NewBlock(editor.KindTitle, title)}, b.blocks...)
	}
	return b.blocks
}

// compactRuns collapses whitespace, trims the block edges and merges
// neighbours with identical marks.
func compactRuns(runs []*editor.TextRun) []*editor.TextRun {
	var out []*editor.TextRun
	for _, r := range runs {
		if r == nil || r.Text == "" {
			continue
		}
		text := collapseSpace(r.Text)
		if n := len(out); n > 0 && out[n-1].Marks == r.Marks {
			out[n-1].Text = collapseSpace(out[n-1].Text + text)
			continue
		}
		out = append(out, &editor.TextRun{Text: text, Marks: r.Marks})
	}
	for len(out) > 0 {
		out[0].Text = strings.TrimLeft(out[0].Text, " ")
		if out[0].Text != "" {
			break
		}
		out = out[1:]
	}
	for len(out) > 0 {
		last := out[len(out)-1]
		last.Text = strings.TrimRight(last.Text, " ")
		if last.Text != "" {
			break
		}
		out = out[:len(out)-1]
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func collapseSpace(s string) string {
	var buf strings.Builder
	space := false
	for _, r := range s {
		switch r {
		case ' ', '\t', '\n', '\r', '\f', '\u00a0':
			if !space {
				buf.WriteByte(' ')
			}
			space = true
		default:
			buf.WriteRune(r)
			space = false
		}
	}
	return buf.String()
}

func plainRun(text string) []*editor.TextRun {
	return []*editor.TextRun{{Text: text}}
}

// bulletPrefix strips a leading list marker. Trailing text is kept as is.
func bulletPrefix(line string) (string, bool) {
	trimmed := strings.TrimLeft(line, " \t")
	for _, marker := range []string{"- ", "* ", "• ", "· ", "– "} {
		if strings.HasPrefix(trimmed, marker) {
			return strings.TrimLeft(strings.TrimPrefix(trimmed, marker), " "), true
		}
	}
	switch strings.TrimSpace(trimmed) {
	case "•", "-", "*":
		return "", true
	}
	return trimmed, false
}
