package editor

import "unicode/utf8"

// InsertText inserts text at p. The inserted text takes the marks of the run
// it lands in. The caret moves to the end of the insertion.
func (d *Document) InsertText(p Point, text string) error {
	if err := d.checkPoint(p); err != nil {
		return err
	}
	b := d.blocks[p.Block]
	if d.cfg.IsVoid(b) {
		return ErrVoidBlock
	}
	if text == "" {
		return nil
	}
	ri, local := runAt(b, p.Offset)
	run := b.Runs[ri]
	if d.isPinned(run.ID) {
		// Typing at the edge of a pinned run starts a run of its own.
		marks := run.Marks
		marks.set(MarkUnderlined, false)
		at := ri
		if local > 0 {
			at = ri + 1
		}
		b.Runs = append(b.Runs, nil)
		copy(b.Runs[at+1:], b.Runs[at:])
		b.Runs[at] = &TextRun{ID: d.cfg.NewRunID(), Text: text, Marks: marks}
		d.sel = Caret(Point{Block: p.Block, Offset: p.Offset + utf8.RuneCountInString(text)})
		d.normalize()
		return nil
	}
	runes := []rune(run.Text)
	run.Text = string(runes[:local]) + text + string(runes[local:])

	caret := Point{Block: p.Block, Offset: p.Offset + utf8.RuneCountInString(text)}
	d.sel = Caret(caret)
	d.normalize()
	return nil
}

// DeleteText removes the text spanned by sel, joining blocks when the range
// crosses a block boundary. The caret collapses to the start of the range.
func (d *Document) DeleteText(sel Selection) error {
	start, end := sel.Normalize()
	if err := d.checkPoint(start); err != nil {
		return err
	}
	if err := d.checkPoint(end); err != nil {
		return err
	}
	if start == end {
		return nil
	}

	first := d.blocks[start.Block]
	if start.Block == end.Block {
		i := d.splitAt(first, start.Offset)
		j := d.splitAt(first, end.Offset)
		first.Runs = append(first.Runs[:i], first.Runs[j:]...)
	} else {
		last := d.blocks[end.Block]
		i := d.splitAt(first, start.Offset)
		j := d.splitAt(last, end.Offset)
		tail := last.Runs[j:]
		first.Runs = append(first.Runs[:i], tail...)
		d.blocks = append(d.blocks[:start.Block+1], d.blocks[end.Block+1:]...)
	}

	d.sel = Caret(start)
	d.normalize()
	return nil
}

// SplitBlock breaks the block at p in two. The new block is a list item when
// splitting the title, otherwise it keeps the original kind.
func (d *Document) SplitBlock(p Point) error {
	if err := d.checkPoint(p); err != nil {
		return err
	}
	b := d.blocks[p.Block]
	if d.cfg.IsVoid(b) {
		return ErrVoidBlock
	}
	i := d.splitAt(b, p.Offset)
	kind := b.Kind
	if kind == KindTitle {
		kind = KindListItem
	}
	next := &Block{Kind: kind}
	next.Runs = append(next.Runs, b.Runs[i:]...)
	b.Runs = b.Runs[:i]

	d.blocks = append(d.blocks, nil)
	copy(d.blocks[p.Block+2:], d.blocks[p.Block+1:])
	d.blocks[p.Block+1] = next

	d.sel = Caret(Point{Block: p.Block + 1})
	d.normalize()
	return nil
}

// InsertBlock inserts a single-run block before index. An index equal to Len
// appends.
func (d *Document) InsertBlock(index int, kind Kind, text string) error {
	if !kind.Valid() {
		return ErrUnknownKind
	}
	if index < 0 || index > len(d.blocks) {
		return ErrOutOfRange
	}
	b := &Block{Kind: kind, Runs: []*TextRun{d.newRun(text)}}
	d.blocks = append(d.blocks, nil)
	copy(d.blocks[index+1:], d.blocks[index:])
	d.blocks[index] = b
	d.normalize()
	return nil
}

// DeleteBlock removes the block at index.
func (d *Document) DeleteBlock(index int) error {
	if index < 0 || index >= len(d.blocks) {
		return ErrOutOfRange
	}
	d.blocks = append(d.blocks[:index], d.blocks[index+1:]...)
	d.normalize()
	return nil
}

// SetKind retypes the block at index. Normalization may override the result
// for the first two positions.
func (d *Document) SetKind(index int, kind Kind) error {
	if !kind.Valid() {
		return ErrUnknownKind
	}
	if index < 0 || index >= len(d.blocks) {
		return ErrOutOfRange
	}
	d.blocks[index].Kind = kind
	d.normalize()
	return nil
}

// ReplaceRunText swaps the text of one run, keeping its ID and marks.
func (d *Document) ReplaceRunText(id RunID, text string) error {
	bi, ri := d.locate(id)
	if bi < 0 {
		return ErrRunNotFound
	}
	d.blocks[bi].Runs[ri].Text = text
	d.normalize()
	return nil
}

// SetRunMark sets one mark on one run.
func (d *Document) SetRunMark(id RunID, mark Mark, on bool) error {
	bi, ri := d.locate(id)
	if bi < 0 {
		return ErrRunNotFound
	}
	d.blocks[bi].Runs[ri].Marks.set(mark, on)
	d.normalize()
	return nil
}

// SetRefByRun links the block holding run id to an external record.
func (d *Document) SetRefByRun(id RunID, ref int64) error {
	bi, _ := d.locate(id)
	if bi < 0 {
		return ErrRunNotFound
	}
	d.blocks[bi].Ref = ref
	return nil
}
