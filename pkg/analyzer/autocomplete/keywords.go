package autocomplete

import (
	"go.lsp.dev/protocol"

	"github.com/panbanda/pqinspect/pkg/analyzer/activenode"
	"github.com/panbanda/pqinspect/pkg/ast"
)

// ExpressionKeywords may start an expression.
var ExpressionKeywords = []string{
	"each", "error", "false", "if", "let", "not", "null", "true", "try", "type",
}

// OperatorKeywords may follow a complete expression.
var OperatorKeywords = []string{"and", "as", "is", "meta", "or"}

// Constants after which an expression is expected.
var expressionOpeners = map[string]bool{
	"=": true, "=>": true, ",": true, "(": true, "{": true, "..": true,
	"in": true, "then": true, "else": true, "each": true, "error": true,
	"not": true, "otherwise": true, "try": true, "if": true,
	"+": true, "-": true, "*": true, "/": true, "&": true, "<": true,
	"<=": true, ">": true, ">=": true, "<>": true, "??": true,
	"and": true, "or": true,
}

// Constants that end an expression.
var expressionClosers = map[string]bool{")": true, "]": true, "}": true, "?": true, "...": true}

// Keywords ranks the keywords valid at the cursor.
func Keywords(g *ast.Graph, active activenode.ActiveNode, opts Options) []Item {
	words := KeywordsAt(g, active)
	candidates := make([]Candidate, len(words))
	for i, w := range words {
		candidates[i] = Candidate{Label: w, Kind: protocol.CompletionItemKindKeyword}
	}
	return Rank(active, candidates, opts)
}

// KeywordsAt returns the keywords the grammar accepts at the cursor.
func KeywordsAt(g *ast.Graph, active activenode.ActiveNode) []string {
	if !active.InBounds() {
		return append(append([]string(nil), ExpressionKeywords...), "section")
	}
	ks := newKeywordSet()
	leaf := active.Leaf()

	if kw, ok := continuation(g, active); ok {
		ks.add(kw)
		if followsExpression(g, active) {
			ks.add(OperatorKeywords...)
		}
		return ks.list()
	}

	if active.IsInKeySlot {
		return nil
	}

	switch {
	case leaf.IsPending() || leaf.Kind() == ast.KindArrayWrapper:
		if expectsExpression(g, leaf) {
			ks.add(ExpressionKeywords...)
		}
	case leaf.Kind() == ast.KindConstant:
		text := leaf.Literal()
		switch {
		case active.LeafKind == activenode.LeafAnchored:
			ks.add(slotKeywords(g, leaf)...)
		case expressionOpeners[text]:
			ks.add(ExpressionKeywords...)
		case expressionClosers[text] && active.LeafKind == activenode.LeafAfterNode:
			ks.add(OperatorKeywords...)
		case text == "section" || text == ";":
			if inSection(active) {
				ks.add("shared")
			}
		}
	case active.LeafKind == activenode.LeafAnchored:
		// A word being typed where an expression starts.
		ks.add(ExpressionKeywords...)
		if leaf.Kind() == ast.KindIdentifier && inSection(active) {
			ks.add("shared")
		}
	case active.LeafKind == activenode.LeafAfterNode:
		ks.add(OperatorKeywords...)
	case active.LeafKind == activenode.LeafShiftedRight:
		ks.add(ExpressionKeywords...)
	}
	return ks.list()
}

// continuation returns the keyword a pending construct needs next, such as
// the then of `if x |`.
func continuation(g *ast.Graph, active activenode.ActiveNode) (string, bool) {
	for _, ref := range active.Ancestry {
		if !ref.IsPending() {
			continue
		}
		has := func(attr int) bool {
			_, ok := g.Child(ref.ID(), attr)
			return ok
		}
		complete := func(attr int) bool {
			child, ok := g.Child(ref.ID(), attr)
			return ok && child.IsMaterialized()
		}
		switch ref.Kind() {
		case ast.KindIfExpression:
			if complete(1) && !has(2) {
				return "then", true
			}
			if complete(3) && !has(4) {
				return "else", true
			}
		case ast.KindLetExpression:
			if has(1) && !has(2) && lastPairComplete(g, ref.ID()) {
				return "in", true
			}
		case ast.KindErrorHandlingExpression:
			if complete(1) && !has(2) {
				return "otherwise", true
			}
		}
	}
	return "", false
}

// lastPairComplete reports whether the last binding of a let has a
// finished value.
func lastPairComplete(g *ast.Graph, letID int) bool {
	content, ok := g.Child(letID, 1)
	if !ok {
		return false
	}
	ids := g.ChildIDs(content.ID())
	if len(ids) == 0 {
		return false
	}
	pair, ok := g.Child(ids[len(ids)-1], ast.AttrCsvNode)
	if !ok {
		return false
	}
	value, ok := g.Child(pair.ID(), ast.AttrPairValue)
	return ok && value.IsMaterialized()
}

// followsExpression reports whether the cursor sits after a complete
// expression that an operator could extend.
func followsExpression(g *ast.Graph, active activenode.ActiveNode) bool {
	leaf := active.Leaf()
	if leaf.IsPending() {
		ids := g.ChildIDs(leaf.ID())
		if len(ids) == 0 {
			return false
		}
		last, _ := g.Node(ids[len(ids)-1])
		if last.Kind() == ast.KindConstant && expressionOpeners[last.Literal()] {
			return false
		}
		return last.IsMaterialized()
	}
	return active.LeafKind == activenode.LeafAfterNode
}

// expectsExpression reports whether a pending node or empty wrapper waits
// for an expression.
func expectsExpression(g *ast.Graph, ref ast.NodeRef) bool {
	parent, _ := g.Parent(ref.ID())
	if ref.Kind() == ast.KindArrayWrapper {
		switch parent.Kind() {
		case ast.KindInvokeExpression, ast.KindListExpression:
			return true
		}
		return false
	}
	ids := g.ChildIDs(ref.ID())
	if len(ids) == 0 {
		return true
	}
	last, _ := g.Node(ids[len(ids)-1])
	if last.Kind() == ast.KindConstant {
		return expressionOpeners[last.Literal()]
	}
	return false
}

// slotKeywords returns the keywords that fit where an anchored keyword
// sits, so `i|f` offers if and its siblings.
func slotKeywords(g *ast.Graph, leaf ast.NodeRef) []string {
	parent, ok := g.Parent(leaf.ID())
	if !ok {
		return ExpressionKeywords
	}
	attr := leaf.AttributeIndex()
	switch parent.Kind() {
	case ast.KindIfExpression:
		switch attr {
		case 2:
			return []string{"then"}
		case 4:
			return []string{"else"}
		}
	case ast.KindLetExpression:
		if attr == 2 {
			return []string{"in"}
		}
	case ast.KindOtherwiseExpression, ast.KindCatchExpression:
		return []string{"otherwise"}
	case ast.KindSectionMember:
		return []string{"shared"}
	case ast.KindSection:
		return []string{"section"}
	}
	if ast.IsBinaryOperatorKind(parent.Kind()) && attr == ast.AttrBinaryOperator {
		return OperatorKeywords
	}
	return ExpressionKeywords
}

func inSection(active activenode.ActiveNode) bool {
	_, _, ok := active.Ancestry.Find(ast.KindSection)
	return ok
}

type keywordSet struct {
	order []string
	seen  map[string]bool
}

func newKeywordSet() *keywordSet { return &keywordSet{seen: make(map[string]bool)} }

func (s *keywordSet) add(words ...string) {
	for _, w := range words {
		if !s.seen[w] {
			s.seen[w] = true
			s.order = append(s.order, w)
		}
	}
}

func (s *keywordSet) list() []string { return s.order }
