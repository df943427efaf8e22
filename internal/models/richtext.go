package models

import (
	"unicode"
)

// MaxRunLength is the workspace limit on code points per rich-text run
const MaxRunLength = 2000

// Annotations holds the independent style bits of a rich-text run
type Annotations struct {
	Bold          bool   `json:"bold,omitempty"`
	Italic        bool   `json:"italic,omitempty"`
	Strikethrough bool   `json:"strikethrough,omitempty"`
	Underline     bool   `json:"underline,omitempty"`
	Code          bool   `json:"code,omitempty"`
	Color         string `json:"color,omitempty"`
}

// IsZero reports whether no annotation bit is set
func (a Annotations) IsZero() bool {
	return !a.Bold && !a.Italic && !a.Strikethrough && !a.Underline && !a.Code && a.Color == ""
}

// RichText is a single styled text fragment within a block
type RichText struct {
	Content     string      `json:"content"`
	Annotations Annotations `json:"annotations,omitzero"`
	Href        string      `json:"href,omitempty"`
}

// NewRun creates an unannotated rich-text run
func NewRun(content string) RichText {
	return RichText{Content: content}
}

// SplitRun splits a run into pieces of at most MaxRunLength code points.
// The split lands on a grapheme boundary where possible: it backs up past
// combining marks so a base character and its marks stay together.
func SplitRun(run RichText) []RichText {
	runes := []rune(run.Content)
	if len(runes) <= MaxRunLength {
		return []RichText{run}
	}

	var out []RichText
	for len(runes) > 0 {
		cut := MaxRunLength
		if cut > len(runes) {
			cut = len(runes)
		} else {
			// Back up while the rune at the cut is a combining mark, so the
			// mark stays with its base. Give up after a short scan and cut on
			// the code-point boundary.
			backed := 0
			for cut > 1 && backed < 8 && unicode.Is(unicode.Mn, runes[cut]) {
				cut--
				backed++
			}
		}

		piece := run
		piece.Content = string(runes[:cut])
		out = append(out, piece)
		runes = runes[cut:]
	}
	return out
}

// SplitRuns applies SplitRun across a run sequence
func SplitRuns(runs []RichText) []RichText {
	out := make([]RichText, 0, len(runs))
	for _, run := range runs {
		out = append(out, SplitRun(run)...)
	}
	return out
}
