package editor

// DefaultNormalize enforces the document layout: the first block is a title,
// the second is a list item, and every block holds at least one run. Empty
// runs are dropped when a block has others. A document that is empty, or a
// single block without text, is reset to a default title plus an empty list
// item.
func DefaultNormalize(blocks []*Block, env NormalizeEnv) []*Block {
	if len(blocks) == 0 || (len(blocks) == 1 && blocks[0].Text() == "") {
		title := &Block{Kind: KindTitle}
		if len(blocks) == 1 {
			title.Ref = blocks[0].Ref
			if len(blocks[0].Runs) > 0 {
				run := blocks[0].Runs[0]
				run.Text = env.DefaultTitle
				title.Runs = []*TextRun{run}
			}
		}
		if len(title.Runs) == 0 {
			title.Runs = []*TextRun{env.NewRun(env.DefaultTitle)}
		}
		return []*Block{title, {Kind: KindListItem, Runs: []*TextRun{env.NewRun("")}}}
	}

	for _, b := range blocks {
		pruneEmptyRuns(b)
		if len(b.Runs) == 0 {
			b.Runs = []*TextRun{env.NewRun("")}
		}
		if !b.Kind.Valid() {
			b.Kind = KindParagraph
		}
	}

	if blocks[0].Kind != KindTitle {
		blocks[0].Kind = KindTitle
	}
	if len(blocks) == 1 {
		blocks = append(blocks, &Block{Kind: KindListItem, Runs: []*TextRun{env.NewRun("")}})
	}
	if blocks[1].Kind != KindListItem {
		blocks[1].Kind = KindListItem
	}
	return blocks
}

func pruneEmptyRuns(b *Block) {
	if len(b.Runs) <= 1 {
		return
	}
	kept := b.Runs[:0]
	for _, r := range b.Runs {
		if r.Text != "" {
			kept = append(kept, r)
		}
	}
	if len(kept) == 0 {
		kept = append(kept, b.Runs[0])
	}
	for i := len(kept); i < len(b.Runs); i++ {
		b.Runs[i] = nil
	}
	b.Runs = kept
}
