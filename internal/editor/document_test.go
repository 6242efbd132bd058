package editor

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sequentialIDs() func() RunID {
	n := 0
	return func() RunID {
		n++
		return RunID(fmt.Sprintf("r%d", n))
	}
}

func kinds(blocks []*Block) []Kind {
	out := make([]Kind, len(blocks))
	for i, b := range blocks {
		out[i] = b.Kind
	}
	return out
}

func TestNormalizeSingleEmptyBlock(t *testing.T) {
	doc := New(Config{}, NewBlock(KindParagraph, ""))

	blocks := doc.Blocks()
	require.Len(t, blocks, 2)
	assert.Equal(t, KindTitle, blocks[0].Kind)
	assert.Equal(t, "Untitled", blocks[0].Text())
	assert.Equal(t, KindListItem, blocks[1].Kind)
	assert.Equal(t, "", blocks[1].Text())
}

func TestNormalizeEmptyDocument(t *testing.T) {
	doc := New(Config{DefaultTitle: "My Resume"})

	blocks := doc.Blocks()
	require.Len(t, blocks, 2)
	assert.Equal(t, "My Resume", blocks[0].Text())
	assert.Equal(t, []Kind{KindTitle, KindListItem}, kinds(blocks))
}

func TestNormalizeKeepsEmptyTitleWhenOtherBlocksHaveText(t *testing.T) {
	doc := New(Config{}, NewBlock(KindTitle, ""), NewBlock(KindListItem, "Shipped things"))

	blocks := doc.Blocks()
	require.Len(t, blocks, 2)
	assert.Equal(t, "", blocks[0].Text())
	assert.Equal(t, "Shipped things", blocks[1].Text())
}

func TestNormalizeIsIdempotent(t *testing.T) {
	cases := map[string][]*Block{
		"empty":        nil,
		"single-empty": {NewBlock(KindParagraph, "")},
		"single-text":  {NewBlock(KindParagraph, "Hello")},
		"wrong-kinds": {
			NewBlock(KindListItem, "Senior Engineer"),
			NewBlock(KindTitle, "Shipped things"),
			NewBlock(KindParagraph, "More"),
		},
		"empty-runs": {
			{Kind: KindTitle, Runs: []*TextRun{{Text: ""}, {Text: "T"}, {Text: ""}}},
			{Kind: KindListItem, Runs: []*TextRun{{Text: ""}, {Text: ""}}},
		},
	}
	for name, blocks := range cases {
		t.Run(name, func(t *testing.T) {
			env := NormalizeEnv{DefaultTitle: "Untitled", NewRun: func(text string) *TextRun {
				return &TextRun{ID: "fresh", Text: text}
			}}
			once := DefaultNormalize(cloneBlocks(blocks), env)
			before := cloneBlocks(once)
			twice := DefaultNormalize(once, env)
			assert.Equal(t, before, twice)
		})
	}
}

func cloneBlocks(blocks []*Block) []*Block {
	out := make([]*Block, 0, len(blocks))
	for _, b := range blocks {
		out = append(out, b.clone())
	}
	return out
}

func TestNormalizeRetypesFirstTwoBlocks(t *testing.T) {
	doc := New(Config{},
		NewBlock(KindParagraph, "Jane Doe"),
		NewBlock(KindParagraph, "Led a team"),
		NewBlock(KindTitle, "Other"),
	)
	assert.Equal(t, []Kind{KindTitle, KindListItem, KindTitle}, kinds(doc.Blocks()))

	require.NoError(t, doc.SetKind(0, KindParagraph))
	assert.Equal(t, KindTitle, doc.Blocks()[0].Kind)

	require.NoError(t, doc.DeleteBlock(1))
	assert.Equal(t, []Kind{KindTitle, KindListItem}, kinds(doc.Blocks()))
}

func TestInjectedNormalizerAndVoidPolicy(t *testing.T) {
	calls := 0
	cfg := Config{
		Normalize: func(blocks []*Block, env NormalizeEnv) []*Block {
			calls++
			return DefaultNormalize(blocks, env)
		},
		IsVoid: func(b *Block) bool { return b.Kind == KindParagraph },
	}
	doc := New(cfg, NewBlock(KindTitle, "T"), NewBlock(KindListItem, "a"), NewBlock(KindParagraph, "img"))
	require.Equal(t, 1, calls)

	err := doc.InsertText(Point{Block: 2, Offset: 0}, "x")
	assert.ErrorIs(t, err, ErrVoidBlock)

	require.NoError(t, doc.InsertText(Point{Block: 1, Offset: 1}, "b"))
	assert.Equal(t, 2, calls)
	assert.Equal(t, "ab", doc.Blocks()[1].Text())
}

func TestInsertAndDeleteText(t *testing.T) {
	doc := New(Config{NewRunID: sequentialIDs()},
		NewBlock(KindTitle, "Resume"),
		NewBlock(KindListItem, "Led migration"),
		NewBlock(KindParagraph, "Extra notes"),
	)

	require.NoError(t, doc.InsertText(Point{Block: 1, Offset: 4}, "a "))
	assert.Equal(t, "Led a migration", doc.Blocks()[1].Text())
	assert.Equal(t, Caret(Point{Block: 1, Offset: 6}), doc.Selection())

	require.NoError(t, doc.DeleteText(Selection{
		Anchor: Point{Block: 2, Offset: 5},
		Focus:  Point{Block: 1, Offset: 5},
	}))
	blocks := doc.Blocks()
	require.Len(t, blocks, 2)
	assert.Equal(t, "Led a notes", blocks[1].Text())
	assert.Equal(t, Caret(Point{Block: 1, Offset: 5}), doc.Selection())

	assert.ErrorIs(t, doc.InsertText(Point{Block: 9}, "x"), ErrOutOfRange)
}

func TestSplitBlock(t *testing.T) {
	doc := New(Config{}, NewBlock(KindTitle, "ResumeSkills"), NewBlock(KindListItem, "Go"))

	require.NoError(t, doc.SplitBlock(Point{Block: 0, Offset: 6}))
	blocks := doc.Blocks()
	require.Len(t, blocks, 3)
	assert.Equal(t, "Resume", blocks[0].Text())
	assert.Equal(t, "Skills", blocks[1].Text())
	assert.Equal(t, KindListItem, blocks[1].Kind)
	assert.Equal(t, Caret(Point{Block: 1}), doc.Selection())
}

func TestTextAcrossBlocks(t *testing.T) {
	doc := New(Config{}, NewBlock(KindTitle, "Title"), NewBlock(KindListItem, "First item"), NewBlock(KindParagraph, "Tail"))

	text, err := doc.Text(Selection{Anchor: Point{Block: 0, Offset: 2}, Focus: Point{Block: 2, Offset: 2}})
	require.NoError(t, err)
	assert.Equal(t, "tle\nFirst item\nTa", text)
	assert.Equal(t, "Title\nFirst item\nTail", doc.PlainText())
}

func TestToggleBoldRoundTrip(t *testing.T) {
	doc := New(Config{NewRunID: sequentialIDs()}, NewBlock(KindTitle, "Title"), NewBlock(KindListItem, "Built payment service"))
	sel := Selection{Anchor: Point{Block: 1, Offset: 6}, Focus: Point{Block: 1, Offset: 13}}

	before := doc.IsMarkActive(sel, MarkBold)
	changes, err := doc.ToggleMark(sel, MarkBold)
	require.NoError(t, err)
	require.Len(t, changes, 1)
	assert.Equal(t, "payment", changes[0].Text)
	assert.True(t, doc.IsMarkActive(sel, MarkBold))

	runs := doc.Blocks()[1].Runs
	require.Len(t, runs, 3)
	assert.False(t, runs[0].Marks.Bold)
	assert.True(t, runs[1].Marks.Bold)
	assert.False(t, runs[2].Marks.Bold)

	_, err = doc.ToggleMark(sel, MarkBold)
	require.NoError(t, err)
	assert.Equal(t, before, doc.IsMarkActive(sel, MarkBold))
	assert.Equal(t, "Built payment service", doc.Blocks()[1].Text())
}

func TestToggleMarkNonUniformSelectionAddsEverywhere(t *testing.T) {
	doc := New(Config{}, NewBlock(KindTitle, "Title"), &Block{Kind: KindListItem, Runs: []*TextRun{
		{Text: "one ", Marks: Marks{Italic: true}},
		{Text: "two"},
	}})
	sel := Selection{Anchor: Point{Block: 1, Offset: 0}, Focus: Point{Block: 1, Offset: 7}}

	changes, err := doc.ToggleMark(sel, MarkItalic)
	require.NoError(t, err)
	require.Len(t, changes, 1)
	assert.Equal(t, "two", changes[0].Text)
	assert.True(t, doc.IsMarkActive(sel, MarkItalic))
}

func TestToggleMarkCollapsedTargetsRun(t *testing.T) {
	doc := New(Config{}, NewBlock(KindTitle, "Title"), NewBlock(KindListItem, "Shipped"))

	changes, err := doc.ToggleMark(Caret(Point{Block: 1, Offset: 3}), MarkUnderlined)
	require.NoError(t, err)
	require.Len(t, changes, 1)
	assert.Equal(t, "Shipped", changes[0].Text)
	assert.Equal(t, KindListItem, changes[0].Kind)
	assert.True(t, changes[0].On)

	_, err = doc.ToggleMark(Caret(Point{Block: 1}), Mark(42))
	assert.ErrorIs(t, err, ErrUnknownMark)
}

func TestParseKindAndMark(t *testing.T) {
	k, err := ParseKind("list-item")
	require.NoError(t, err)
	assert.Equal(t, KindListItem, k)
	_, err = ParseKind("table")
	assert.ErrorIs(t, err, ErrUnknownKind)

	m, err := ParseMark("underline")
	require.NoError(t, err)
	assert.Equal(t, MarkUnderlined, m)
}
