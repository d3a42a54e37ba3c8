// Package autocomplete ranks completion candidates for a cursor position
// by Jaro-Winkler similarity to the text being typed.
package autocomplete

import (
	"go.lsp.dev/protocol"

	"github.com/panbanda/pqinspect/pkg/types"
)

// Item is one ranked completion.
type Item struct {
	Label string                      `json:"label" toon:"label"`
	Kind  protocol.CompletionItemKind `json:"kind" toon:"kind"`
	// Score is the similarity to the partial text, in [0, 1].
	Score float64 `json:"score" toon:"score"`
	// Type is the inferred type of identifiers and fields, nil otherwise.
	Type types.Type `json:"-" toon:"-"`
	// TypeText renders Type for serialized output.
	TypeText string `json:"type,omitempty" toon:"type,omitempty"`
	// Range is the span the completion replaces, nil for a pure insert.
	Range *protocol.Range `json:"range,omitempty" toon:"range,omitempty"`
}

// Candidate is an unranked completion.
type Candidate struct {
	Label string
	Kind  protocol.CompletionItemKind
	Type  types.Type
}

// Options tunes ranking.
type Options struct {
	// MaxItems truncates results; zero keeps everything.
	MaxItems int
	// BoostThreshold is the Jaro score above which the common prefix
	// bonus applies.
	BoostThreshold float64
	// PrefixSize caps the prefix length considered for the bonus.
	PrefixSize int
}

// DefaultOptions returns the standard Jaro-Winkler parameters.
func DefaultOptions() Options {
	return Options{BoostThreshold: 0.7, PrefixSize: 4}
}
