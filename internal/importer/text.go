package importer

import (
	"bufio"
	"bytes"
	"strings"
	"unicode/utf8"

	"resume-editor/internal/editor"
)

func parseText(data []byte) ([]*editor.Block, error) {
	if !utf8.Valid(data) {
		data = bytes.ToValidUTF8(data, []byte("�"))
	}
	return parseLines(string(data))
}

// parseLines treats the first non-empty line as the title, bulleted lines as
// list items and blank-line separated text as paragraphs.
func parseLines(raw string) ([]*editor.Block, error) {
	scanner := bufio.NewScanner(strings.NewReader(raw))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	b := &builder{}
	var para []string
	flush := func() {
		if len(para) > 0 {
			b.add(editor.KindParagraph, plainRun(strings.Join(para, " ")))
			para = nil
		}
	}
	for scanner.Scan() {
		line := strings.TrimSpace(strings.ReplaceAll(scanner.Text(), "\f", " "))
		if line == "" {
			flush()
			continue
		}
		if !b.hasTitle {
			b.add(editor.KindTitle, plainRun(line))
			continue
		}
		if item, ok := bulletPrefix(line); ok {
			flush()
			b.add(editor.KindListItem, plainRun(item))
			continue
		}
		para = append(para, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	flush()
	return b.result(""), nil
}
