package autocomplete

import (
	"sort"

	"github.com/xrash/smetrics"
	"go.lsp.dev/protocol"

	"github.com/panbanda/pqinspect/pkg/analyzer/activenode"
	"github.com/panbanda/pqinspect/pkg/ast"
)

// Score returns the similarity of label to partial. An empty partial is a
// pure insertion point where every candidate fits equally.
func Score(label, partial string, opts Options) float64 {
	if partial == "" {
		return 1
	}
	if label == partial {
		return 1
	}
	return smetrics.JaroWinkler(label, partial, opts.BoostThreshold, opts.PrefixSize)
}

// Rank scores candidates against the partial text at the cursor and sorts
// them by descending score, then label. Duplicate labels keep the first
// candidate.
func Rank(active activenode.ActiveNode, candidates []Candidate, opts Options) []Item {
	partial := active.PartialText()
	var rng *protocol.Range
	if r, ok := active.ReplacementRange(); ok {
		rng = toProtocolRange(r)
	}

	seen := make(map[string]bool, len(candidates))
	items := make([]Item, 0, len(candidates))
	for _, c := range candidates {
		if c.Label == "" || seen[c.Label] {
			continue
		}
		seen[c.Label] = true
		item := Item{
			Label: c.Label,
			Kind:  c.Kind,
			Score: Score(c.Label, partial, opts),
			Type:  c.Type,
			Range: rng,
		}
		if c.Type != nil {
			item.TypeText = c.Type.String()
		}
		items = append(items, item)
	}
	Sort(items)
	if opts.MaxItems > 0 && len(items) > opts.MaxItems {
		items = items[:opts.MaxItems]
	}
	return items
}

// Sort orders items by descending score, ties by ascending label.
func Sort(items []Item) {
	sort.SliceStable(items, func(i, j int) bool {
		if items[i].Score != items[j].Score {
			return items[i].Score > items[j].Score
		}
		return items[i].Label < items[j].Label
	})
}

// Merge combines ranked lists, dropping repeated labels, and re-sorts.
func Merge(lists ...[]Item) []Item {
	seen := make(map[string]bool)
	var out []Item
	for _, list := range lists {
		for _, item := range list {
			if seen[item.Label] {
				continue
			}
			seen[item.Label] = true
			out = append(out, item)
		}
	}
	Sort(out)
	return out
}

func toProtocolRange(r ast.TokenRange) *protocol.Range {
	return &protocol.Range{
		Start: protocol.Position{Line: uint32(r.Start.Line), Character: uint32(r.Start.Character)},
		End:   protocol.Position{Line: uint32(r.End.Line), Character: uint32(r.End.Character)},
	}
}
