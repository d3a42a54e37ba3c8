package ast

import "fmt"

// Position is a zero-based line/character location in a document.
type Position struct {
	Line      int `json:"line"`
	Character int `json:"character"`
}

// Compare returns -1, 0 or 1 depending on whether p is before, equal to or
// after o.
func (p Position) Compare(o Position) int {
	switch {
	case p.Line < o.Line:
		return -1
	case p.Line > o.Line:
		return 1
	case p.Character < o.Character:
		return -1
	case p.Character > o.Character:
		return 1
	default:
		return 0
	}
}

// Before reports whether p is strictly before o.
func (p Position) Before(o Position) bool { return p.Compare(o) < 0 }

// After reports whether p is strictly after o.
func (p Position) After(o Position) bool { return p.Compare(o) > 0 }

func (p Position) String() string {
	return fmt.Sprintf("%d:%d", p.Line, p.Character)
}

// TokenRange is the span of a materialized node. Token indices are
// half-open: TokenIndexEnd is one past the last token.
type TokenRange struct {
	TokenIndexStart int      `json:"tokenIndexStart"`
	TokenIndexEnd   int      `json:"tokenIndexEnd"`
	Start           Position `json:"start"`
	End             Position `json:"end"`
}

// Empty reports whether the range covers no tokens.
func (r TokenRange) Empty() bool { return r.TokenIndexEnd <= r.TokenIndexStart }

// Contains reports whether pos lies within [Start, End].
func (r TokenRange) Contains(pos Position) bool {
	return !pos.Before(r.Start) && !pos.After(r.End)
}
