package editor

// MarkChange records a run whose mark flipped during a toggle.
type MarkChange struct {
	Run  RunID
	Kind Kind
	Mark Mark
	On   bool
	Text string
}

// ToggleMark flips mark across sel. When the mark is active on every selected
// run it is removed from all of them, otherwise it is added to all of them.
// A collapsed selection targets the run holding the caret. Runs are split at
// the selection edges so only the selected text changes. A run with an open
// completion cycle is never split: a selection that cuts into it covers the
// whole run.
func (d *Document) ToggleMark(sel Selection, mark Mark) ([]MarkChange, error) {
	switch mark {
	case MarkBold, MarkItalic, MarkUnderlined:
	default:
		return nil, ErrUnknownMark
	}
	start, end := sel.Normalize()
	if err := d.checkPoint(start); err != nil {
		return nil, err
	}
	if err := d.checkPoint(end); err != nil {
		return nil, err
	}

	type target struct {
		run  *TextRun
		kind Kind
	}
	var targets []target

	if start == end {
		b := d.blocks[start.Block]
		if d.cfg.IsVoid(b) {
			return nil, nil
		}
		ri, _ := runAt(b, start.Offset)
		targets = append(targets, target{run: b.Runs[ri], kind: b.Kind})
	} else {
		for bi := start.Block; bi <= end.Block; bi++ {
			b := d.blocks[bi]
			if d.cfg.IsVoid(b) {
				continue
			}
			from, to := 0, b.runeLen()
			if bi == start.Block {
				from = start.Offset
			}
			if bi == end.Block {
				to = end.Offset
			}
			if from >= to {
				continue
			}
			from, to = d.widenPinned(b, from, to)
			i := d.splitAt(b, from)
			j := d.splitAt(b, to)
			for _, r := range b.Runs[i:j] {
				if r.Text == "" {
					continue
				}
				targets = append(targets, target{run: r, kind: b.Kind})
			}
		}
	}
	if len(targets) == 0 {
		return nil, nil
	}

	uniform := true
	for _, t := range targets {
		if !t.run.Marks.Has(mark) {
			uniform = false
			break
		}
	}
	on := !uniform

	var changes []MarkChange
	for _, t := range targets {
		if t.run.Marks.Has(mark) == on {
			continue
		}
		t.run.Marks.set(mark, on)
		changes = append(changes, MarkChange{
			Run:  t.run.ID,
			Kind: t.kind,
			Mark: mark,
			On:   on,
			Text: t.run.Text,
		})
	}
	d.normalize()
	return changes, nil
}

// IsMarkActive reports whether mark is active on every non-empty run under sel.
func (d *Document) IsMarkActive(sel Selection, mark Mark) bool {
	start, end := sel.Normalize()
	if d.checkPoint(start) != nil || d.checkPoint(end) != nil {
		return false
	}
	if start == end {
		b := d.blocks[start.Block]
		ri, _ := runAt(b, start.Offset)
		return b.Runs[ri].Marks.Has(mark)
	}
	seen := false
	for bi := start.Block; bi <= end.Block; bi++ {
		b := d.blocks[bi]
		from, to := 0, b.runeLen()
		if bi == start.Block {
			from = start.Offset
		}
		if bi == end.Block {
			to = end.Offset
		}
		pos := 0
		for _, r := range b.Runs {
			n := len([]rune(r.Text))
			if n > 0 && pos < to && pos+n > from {
				seen = true
				if !r.Marks.Has(mark) {
					return false
				}
			}
			pos += n
		}
	}
	return seen
}
