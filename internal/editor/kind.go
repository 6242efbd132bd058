package editor

import (
	"fmt"
	"strings"
)

// Kind tags a block. The set is closed; switches over Kind are exhaustive.
type Kind uint8

const (
	KindTitle Kind = iota + 1
	KindListItem
	KindParagraph
)

func (k Kind) String() string {
	switch k {
	case KindTitle:
		return "title"
	case KindListItem:
		return "list-item"
	case KindParagraph:
		return "paragraph"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// Valid reports whether k is one of the known block kinds.
func (k Kind) Valid() bool {
	switch k {
	case KindTitle, KindListItem, KindParagraph:
		return true
	default:
		return false
	}
}

// ParseKind accepts the String form of a kind.
func ParseKind(raw string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "title":
		return KindTitle, nil
	case "list-item", "list_item", "listitem":
		return KindListItem, nil
	case "paragraph":
		return KindParagraph, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownKind, raw)
	}
}

func (k Kind) MarshalText() ([]byte, error) {
	if !k.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnknownKind, uint8(k))
	}
	return []byte(k.String()), nil
}

func (k *Kind) UnmarshalText(text []byte) error {
	parsed, err := ParseKind(string(text))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// Mark is a boolean style attribute carried by a text run.
type Mark uint8

const (
	MarkBold Mark = iota + 1
	MarkItalic
	MarkUnderlined
)

func (m Mark) String() string {
	switch m {
	case MarkBold:
		return "bold"
	case MarkItalic:
		return "italic"
	case MarkUnderlined:
		return "underlined"
	default:
		return fmt.Sprintf("mark(%d)", uint8(m))
	}
}

// ParseMark accepts the String form of a mark.
func ParseMark(raw string) (Mark, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "bold":
		return MarkBold, nil
	case "italic":
		return MarkItalic, nil
	case "underlined", "underline":
		return MarkUnderlined, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownMark, raw)
	}
}

func (m Mark) MarshalText() ([]byte, error) {
	switch m {
	case MarkBold, MarkItalic, MarkUnderlined:
		return []byte(m.String()), nil
	default:
		return nil, fmt.Errorf("%w: %d", ErrUnknownMark, uint8(m))
	}
}

func (m *Mark) UnmarshalText(text []byte) error {
	parsed, err := ParseMark(string(text))
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

// Marks is the set of active marks on a run.
type Marks struct {
	Bold       bool `json:"bold,omitempty"`
	Italic     bool `json:"italic,omitempty"`
	Underlined bool `json:"underlined,omitempty"`
}

// Has reports whether mark is active.
func (m Marks) Has(mark Mark) bool {
	switch mark {
	case MarkBold:
		return m.Bold
	case MarkItalic:
		return m.Italic
	case MarkUnderlined:
		return m.Underlined
	default:
		return false
	}
}

func (m *Marks) set(mark Mark, on bool) {
	switch mark {
	case MarkBold:
		m.Bold = on
	case MarkItalic:
		m.Italic = on
	case MarkUnderlined:
		m.Underlined = on
	}
}
