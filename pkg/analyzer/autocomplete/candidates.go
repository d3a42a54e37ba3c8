package autocomplete

import (
	"strings"

	"go.lsp.dev/protocol"

	"github.com/panbanda/pqinspect/pkg/analyzer/activenode"
	"github.com/panbanda/pqinspect/pkg/analyzer/scope"
	"github.com/panbanda/pqinspect/pkg/ast"
	"github.com/panbanda/pqinspect/pkg/parser"
	"github.com/panbanda/pqinspect/pkg/types"
)

// Identifiers ranks the bindings visible at the cursor plus library
// symbols. Bindings that cannot be written at the cursor are skipped: the
// implicit `_`, names without a value yet, and `@` self references.
func Identifiers(active activenode.ActiveNode, s *scope.NodeScope, scopeTypes map[string]types.Type, library []Candidate, opts Options) []Item {
	if active.IsInKeySlot {
		return nil
	}
	var candidates []Candidate
	if s != nil {
		s.Each(func(key string, item scope.Item) {
			if !suggestible(key, item) {
				return
			}
			t := scopeTypes[key]
			candidates = append(candidates, Candidate{Label: key, Kind: identifierKind(item, t), Type: t})
		})
	}
	candidates = append(candidates, library...)
	return Rank(active, candidates, opts)
}

func suggestible(key string, item scope.Item) bool {
	switch item.Kind {
	case scope.ItemEachImplicit, scope.ItemUnresolved:
		return false
	}
	return !strings.HasPrefix(key, "@")
}

func identifierKind(item scope.Item, t types.Type) protocol.CompletionItemKind {
	if t != nil && t.Kind() == types.KindFunction {
		return protocol.CompletionItemKindFunction
	}
	if item.Kind == scope.ItemRecordField {
		return protocol.CompletionItemKindField
	}
	return protocol.CompletionItemKindVariable
}

// FieldAccessNode returns the field selector or projection the cursor is
// in, if any.
func FieldAccessNode(active activenode.ActiveNode) (int, bool) {
	ref, _, ok := active.Ancestry.Find(ast.KindFieldSelector, ast.KindFieldProjection)
	if !ok {
		return 0, false
	}
	return ref.ID(), true
}

// FieldNames lists the fields a value of type t is known to have. Any and
// untyped records have no fixed fields.
func FieldNames(t types.Type) types.Fields {
	switch v := t.(type) {
	case types.DefinedRecord:
		return v.Fields
	case types.DefinedTable:
		return v.Fields
	case types.AnyUnion:
		var out types.Fields
		for _, alt := range v.Alternatives {
			for _, f := range FieldNames(alt) {
				if _, ok := out.Get(f.Name); !ok {
					out = append(out, f)
				}
			}
		}
		return out
	}
	return nil
}

// Fields ranks the fields of the access target type.
func Fields(active activenode.ActiveNode, target types.Type, opts Options) []Item {
	fields := FieldNames(target)
	candidates := make([]Candidate, len(fields))
	for i, f := range fields {
		candidates[i] = Candidate{Label: f.Name, Kind: protocol.CompletionItemKindField, Type: f.Type}
	}
	return Rank(active, candidates, opts)
}

// LanguageConstants ranks the contextual words that are not reserved
// keywords: optional in parameter and field lists, nullable in type
// positions and catch after a try expression.
func LanguageConstants(g *ast.Graph, active activenode.ActiveNode, opts Options) []Item {
	if !active.InBounds() {
		return nil
	}
	var words []string
	if _, _, ok := active.Ancestry.Find(ast.KindParameterList, ast.KindFieldSpecificationList); ok && !inTypePosition(g, active) {
		words = append(words, "optional")
	}
	if inTypePosition(g, active) {
		words = append(words, "nullable")
	}
	if kw, ok := continuation(g, active); ok && kw == "otherwise" {
		words = append(words, "catch")
	}
	candidates := make([]Candidate, len(words))
	for i, w := range words {
		candidates[i] = Candidate{Label: w, Kind: protocol.CompletionItemKindKeyword}
	}
	return Rank(active, candidates, opts)
}

// PrimitiveTypes ranks primitive type names where a type is expected.
func PrimitiveTypes(g *ast.Graph, active activenode.ActiveNode, opts Options) []Item {
	if !inTypePosition(g, active) {
		return nil
	}
	candidates := make([]Candidate, len(parser.PrimitiveTypeNames))
	for i, name := range parser.PrimitiveTypeNames {
		candidates[i] = Candidate{Label: name, Kind: protocol.CompletionItemKindTypeParameter}
	}
	return Rank(active, candidates, opts)
}

// inTypePosition reports whether the cursor names a type: after as, is,
// type or nullable, or inside a type expression.
func inTypePosition(g *ast.Graph, active activenode.ActiveNode) bool {
	if !active.InBounds() {
		return false
	}
	leaf := active.Leaf()
	if leaf.Kind() == ast.KindConstant && active.LeafKind != activenode.LeafAnchored {
		switch leaf.Literal() {
		case "as", "is", "type", "nullable":
			return true
		}
	}
	if leaf.Kind() == ast.KindPrimitiveType {
		return true
	}
	for n, ref := range active.Ancestry {
		switch ref.Kind() {
		case ast.KindAsNullablePrimitiveType, ast.KindAsType, ast.KindNullablePrimitiveType,
			ast.KindNullableType, ast.KindFieldTypeSpecification, ast.KindListType:
			return true
		case ast.KindAsExpression, ast.KindIsExpression:
			if n > 0 && active.Ancestry[n-1].AttributeIndex() == ast.AttrBinaryRight {
				return true
			}
			if ref.IsPending() {
				_, hasRight := g.Child(ref.ID(), ast.AttrBinaryRight)
				return !hasRight
			}
			return false
		case ast.KindTypePrimaryType:
			return true
		}
	}
	return false
}

// Inputs gathers the candidate sources for All.
type Inputs struct {
	Graph      *ast.Graph
	Scope      *scope.NodeScope
	ScopeTypes map[string]types.Type
	Library    []Candidate
	// FieldTarget is the access target type when the cursor is inside a
	// field selector or projection.
	FieldTarget types.Type
}

// All merges every category that applies at the cursor.
func All(active activenode.ActiveNode, in Inputs, opts Options) []Item {
	unlimited := opts
	unlimited.MaxItems = 0

	var items []Item
	switch {
	case in.FieldTarget != nil:
		items = Fields(active, in.FieldTarget, unlimited)
	case inTypePosition(in.Graph, active):
		items = Merge(
			PrimitiveTypes(in.Graph, active, unlimited),
			LanguageConstants(in.Graph, active, unlimited),
		)
	default:
		items = Merge(
			Keywords(in.Graph, active, unlimited),
			Identifiers(active, in.Scope, in.ScopeTypes, in.Library, unlimited),
			LanguageConstants(in.Graph, active, unlimited),
		)
	}
	if opts.MaxItems > 0 && len(items) > opts.MaxItems {
		items = items[:opts.MaxItems]
	}
	return items
}
