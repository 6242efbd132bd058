package editor

import (
	"errors"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
)

var (
	ErrUnknownKind  = errors.New("unknown block kind")
	ErrUnknownMark  = errors.New("unknown mark")
	ErrOutOfRange   = errors.New("position out of range")
	ErrRunNotFound  = errors.New("text run not found")
	ErrVoidBlock    = errors.New("block does not accept text")
	ErrEditorClosed = errors.New("editor closed")
)

const defaultTitle = "Untitled"

// RunID identifies a text run for the lifetime of an editing session.
type RunID string

// TextRun is a span of text carrying one set of marks.
type TextRun struct {
	ID    RunID  `json:"id"`
	Text  string `json:"text"`
	Marks Marks  `json:"marks"`
}

// Block is a structural node of the document.
type Block struct {
	Kind Kind       `json:"kind"`
	Ref  int64      `json:"ref,omitempty"`
	Runs []*TextRun `json:"runs"`
}

// Text returns the concatenated text of the block's runs.
func (b *Block) Text() string {
	if b == nil {
		return ""
	}
	var sb strings.Builder
	for _, r := range b.Runs {
		sb.WriteString(r.Text)
	}
	return sb.String()
}

func (b *Block) runeLen() int {
	n := 0
	for _, r := range b.Runs {
		n += utf8.RuneCountInString(r.Text)
	}
	return n
}

func (b *Block) clone() *Block {
	out := &Block{Kind: b.Kind, Ref: b.Ref, Runs: make([]*TextRun, len(b.Runs))}
	for i, r := range b.Runs {
		cp := *r
		out.Runs[i] = &cp
	}
	return out
}

// Point addresses a rune offset inside a block's plain text.
type Point struct {
	Block  int `json:"block"`
	Offset int `json:"offset"`
}

func comparePoints(a, b Point) int {
	switch {
	case a.Block < b.Block:
		return -1
	case a.Block > b.Block:
		return 1
	case a.Offset < b.Offset:
		return -1
	case a.Offset > b.Offset:
		return 1
	default:
		return 0
	}
}

// Selection is an anchor/focus pair. Focus may precede Anchor.
type Selection struct {
	Anchor Point `json:"anchor"`
	Focus  Point `json:"focus"`
}

// Collapsed reports whether the selection is a caret.
func (s Selection) Collapsed() bool {
	return s.Anchor == s.Focus
}

// Normalize returns the selection ordered start to end.
func (s Selection) Normalize() (start, end Point) {
	if comparePoints(s.Anchor, s.Focus) <= 0 {
		return s.Anchor, s.Focus
	}
	return s.Focus, s.Anchor
}

// Caret returns a collapsed selection at p.
func Caret(p Point) Selection {
	return Selection{Anchor: p, Focus: p}
}

// NormalizeEnv carries what a normalizer needs to build default nodes.
type NormalizeEnv struct {
	DefaultTitle string
	NewRun       func(text string) *TextRun
}

// NormalizeFunc repairs structural invariants and returns the repaired block list.
// It must be idempotent.
type NormalizeFunc func(blocks []*Block, env NormalizeEnv) []*Block

// VoidPolicy reports blocks that cannot hold editable text.
type VoidPolicy func(*Block) bool

// Config composes a Document. Zero values select the defaults.
type Config struct {
	Normalize    NormalizeFunc
	IsVoid       VoidPolicy
	DefaultTitle string
	NewRunID     func() RunID
}

func (c Config) withDefaults() Config {
	if c.Normalize == nil {
		c.Normalize = DefaultNormalize
	}
	if c.IsVoid == nil {
		c.IsVoid = func(*Block) bool { return false }
	}
	if strings.TrimSpace(c.DefaultTitle) == "" {
		c.DefaultTitle = defaultTitle
	}
	if c.NewRunID == nil {
		c.NewRunID = func() RunID { return RunID(uuid.NewString()) }
	}
	return c
}

// Document holds the canonical block tree of one editing session.
// It is not safe for concurrent use; Editor serializes access.
type Document struct {
	cfg    Config
	blocks []*Block
	sel    Selection
	// pinned reports runs whose text belongs to an open completion cycle.
	// Pinned runs are never split.
	pinned func(RunID) bool
}

// New builds a document from the given blocks and normalizes it.
// Blocks are copied; runs without an ID are assigned one.
func New(cfg Config, blocks ...*Block) *Document {
	d := &Document{cfg: cfg.withDefaults()}
	for _, b := range blocks {
		if b == nil {
			continue
		}
		cp := b.clone()
		for _, r := range cp.Runs {
			if r.ID == "" {
				r.ID = d.cfg.NewRunID()
			}
		}
		d.blocks = append(d.blocks, cp)
	}
	d.normalize()
	return d
}

// NewBlock is a convenience constructor for a single-run block.
func NewBlock(kind Kind, text string) *Block {
	return &Block{Kind: kind, Runs: []*TextRun{{Text: text}}}
}

func (d *Document) isPinned(id RunID) bool {
	return d.pinned != nil && d.pinned(id)
}

func (d *Document) newRun(text string) *TextRun {
	return &TextRun{ID: d.cfg.NewRunID(), Text: text}
}

func (d *Document) normalize() {
	d.blocks = d.cfg.Normalize(d.blocks, NormalizeEnv{
		DefaultTitle: d.cfg.DefaultTitle,
		NewRun:       d.newRun,
	})
	d.sel = Selection{Anchor: d.clamp(d.sel.Anchor), Focus: d.clamp(d.sel.Focus)}
}

func (d *Document) clamp(p Point) Point {
	if len(d.blocks) == 0 {
		return Point{}
	}
	if p.Block < 0 {
		p.Block = 0
	}
	if p.Block >= len(d.blocks) {
		p.Block = len(d.blocks) - 1
	}
	n := d.blocks[p.Block].runeLen()
	if p.Offset < 0 {
		p.Offset = 0
	}
	if p.Offset > n {
		p.Offset = n
	}
	return p
}

func (d *Document) checkPoint(p Point) error {
	if p.Block < 0 || p.Block >= len(d.blocks) {
		return ErrOutOfRange
	}
	if p.Offset < 0 || p.Offset > d.blocks[p.Block].runeLen() {
		return ErrOutOfRange
	}
	return nil
}

// Len returns the number of blocks.
func (d *Document) Len() int { return len(d.blocks) }

// Blocks returns a deep copy of the block tree.
func (d *Document) Blocks() []*Block {
	out := make([]*Block, len(d.blocks))
	for i, b := range d.blocks {
		out[i] = b.clone()
	}
	return out
}

// Block returns a copy of the block at index.
func (d *Document) Block(index int) (*Block, error) {
	if index < 0 || index >= len(d.blocks) {
		return nil, ErrOutOfRange
	}
	return d.blocks[index].clone(), nil
}

// Selection returns the current selection.
func (d *Document) Selection() Selection { return d.sel }

// Select replaces the current selection.
func (d *Document) Select(sel Selection) error {
	if err := d.checkPoint(sel.Anchor); err != nil {
		return err
	}
	if err := d.checkPoint(sel.Focus); err != nil {
		return err
	}
	d.sel = sel
	return nil
}

// Text returns the plain text spanned by sel. Block boundaries become newlines.
func (d *Document) Text(sel Selection) (string, error) {
	start, end := sel.Normalize()
	if err := d.checkPoint(start); err != nil {
		return "", err
	}
	if err := d.checkPoint(end); err != nil {
		return "", err
	}
	var sb strings.Builder
	for bi := start.Block; bi <= end.Block; bi++ {
		runes := []rune(d.blocks[bi].Text())
		from, to := 0, len(runes)
		if bi == start.Block {
			from = start.Offset
		}
		if bi == end.Block {
			to = end.Offset
		}
		if bi > start.Block {
			sb.WriteByte('\n')
		}
		sb.WriteString(string(runes[from:to]))
	}
	return sb.String(), nil
}

// SelectedText returns the plain text under the current selection.
func (d *Document) SelectedText() string {
	text, _ := d.Text(d.sel)
	return text
}

// PlainText returns the whole document as newline-separated block text.
func (d *Document) PlainText() string {
	lines := make([]string, len(d.blocks))
	for i, b := range d.blocks {
		lines[i] = b.Text()
	}
	return strings.Join(lines, "\n")
}

// Run returns a copy of the run with id and the kind of its block.
func (d *Document) Run(id RunID) (TextRun, Kind, bool) {
	bi, ri := d.locate(id)
	if bi < 0 {
		return TextRun{}, 0, false
	}
	return *d.blocks[bi].Runs[ri], d.blocks[bi].Kind, true
}

func (d *Document) locate(id RunID) (int, int) {
	for bi, b := range d.blocks {
		for ri, r := range b.Runs {
			if r.ID == id {
				return bi, ri
			}
		}
	}
	return -1, -1
}

// splitAt guarantees a run boundary at offset inside b and returns the index
// of the first run starting at or after offset. The left half keeps the ID.
func (d *Document) splitAt(b *Block, offset int) int {
	pos := 0
	for i, r := range b.Runs {
		n := utf8.RuneCountInString(r.Text)
		if offset == pos {
			return i
		}
		if offset < pos+n {
			runes := []rune(r.Text)
			cut := offset - pos
			right := &TextRun{ID: d.cfg.NewRunID(), Text: string(runes[cut:]), Marks: r.Marks}
			r.Text = string(runes[:cut])
			b.Runs = append(b.Runs, nil)
			copy(b.Runs[i+2:], b.Runs[i+1:])
			b.Runs[i+1] = right
			return i + 1
		}
		pos += n
	}
	return len(b.Runs)
}

// widenPinned moves from and to outward so no pinned run in b is cut.
func (d *Document) widenPinned(b *Block, from, to int) (int, int) {
	pos := 0
	for _, r := range b.Runs {
		n := utf8.RuneCountInString(r.Text)
		if d.isPinned(r.ID) {
			if from > pos && from < pos+n {
				from = pos
			}
			if to > pos && to < pos+n {
				to = pos + n
			}
		}
		pos += n
	}
	return from, to
}

// pinnedCuts returns the pinned runs that have start or end strictly inside
// them. Invalid points yield nothing.
func (d *Document) pinnedCuts(sel Selection) []RunID {
	start, end := sel.Normalize()
	if d.checkPoint(start) != nil || d.checkPoint(end) != nil {
		return nil
	}
	var ids []RunID
	for _, p := range []Point{start, end} {
		pos := 0
		for _, r := range d.blocks[p.Block].Runs {
			n := utf8.RuneCountInString(r.Text)
			if p.Offset > pos && p.Offset < pos+n && d.isPinned(r.ID) {
				if len(ids) == 0 || ids[len(ids)-1] != r.ID {
					ids = append(ids, r.ID)
				}
				break
			}
			pos += n
		}
	}
	return ids
}

// runAt returns the index of the run a caret at offset belongs to. A caret on
// a boundary belongs to the run before it, except at offset zero.
func runAt(b *Block, offset int) (int, int) {
	pos := 0
	for i, r := range b.Runs {
		n := utf8.RuneCountInString(r.Text)
		if offset <= pos+n {
			return i, offset - pos
		}
		pos += n
	}
	last := len(b.Runs) - 1
	return last, utf8.RuneCountInString(b.Runs[last].Text)
}
