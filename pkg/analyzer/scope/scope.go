// Package scope computes the identifiers visible at a node.
package scope

import (
	"context"
	"strings"

	"github.com/panbanda/pqinspect/pkg/ast"
	"github.com/panbanda/pqinspect/pkg/types"
)

// EachParameter is the name an each expression binds.
const EachParameter = "_"

// Resolve returns the scope visible at nodeID, memoized in cache when
// cache is non-nil. It walks from the node to the root; inner bindings
// shadow outer ones.
//
// A malformed graph yields an *ast.InvariantError; a cancelled context
// yields ctx.Err(). Neither result is cached.
func Resolve(ctx context.Context, g *ast.Graph, nodeID int, cache Cache) (*NodeScope, error) {
	if s, ok := cache[nodeID]; ok {
		return s, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	anc := g.Ancestry(nodeID)
	if len(anc) == 0 {
		return nil, &ast.InvariantError{NodeID: nodeID, Message: "unknown node id"}
	}

	s := NewNodeScope()
	for i := 1; i < len(anc); i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		from, node := anc[i-1], anc[i]

		var err error
		switch node.Kind() {
		case ast.KindLetExpression:
			err = addPairs(g, s, anc, node.ID(), 1, ItemLetVariable)
		case ast.KindRecordExpression:
			err = addPairs(g, s, anc, node.ID(), ast.AttrWrappedContent, ItemRecordField)
		case ast.KindSection:
			err = addSectionMembers(g, s, anc, node.ID())
		case ast.KindFunctionExpression:
			if from.AttributeIndex() == 3 {
				err = addParameters(g, s, node.ID())
			}
		case ast.KindEachExpression:
			if from.AttributeIndex() == 1 {
				s.add(EachParameter, Item{Kind: ItemEachImplicit, Key: EachParameter, EachNodeID: node.ID()})
			}
		}
		if err != nil {
			return nil, err
		}
	}

	if cache != nil {
		cache[nodeID] = s
	}
	return s, nil
}

// ResolveOpen returns the scope of the slot a pending node is waiting to
// fill, as for the body of `let a = 1 in |`. Bindings the node itself
// introduces for that slot shadow those visible at the node. The result
// is not cached.
func ResolveOpen(ctx context.Context, g *ast.Graph, pendingID int, cache Cache) (*NodeScope, error) {
	outer, err := Resolve(ctx, g, pendingID, cache)
	if err != nil {
		return nil, err
	}
	ref, _ := g.Node(pendingID)
	if !ref.IsPending() {
		return outer, nil
	}

	next := 0
	if ids := g.ChildIDs(pendingID); len(ids) > 0 {
		last, _ := g.Node(ids[len(ids)-1])
		next = last.AttributeIndex() + 1
	}

	anc := g.Ancestry(pendingID)
	s := NewNodeScope()
	switch ref.Kind() {
	case ast.KindLetExpression:
		err = addPairs(g, s, anc, pendingID, 1, ItemLetVariable)
	case ast.KindRecordExpression:
		err = addPairs(g, s, anc, pendingID, ast.AttrWrappedContent, ItemRecordField)
	case ast.KindSection:
		err = addSectionMembers(g, s, anc, pendingID)
	case ast.KindFunctionExpression:
		if next >= 3 {
			err = addParameters(g, s, pendingID)
		}
	case ast.KindEachExpression:
		if next >= 1 {
			s.add(EachParameter, Item{Kind: ItemEachImplicit, Key: EachParameter, EachNodeID: pendingID})
		}
	}
	if err != nil {
		return nil, err
	}
	for _, key := range outer.keys {
		s.add(key, outer.items[key], outer.aliasesOf(key)...)
	}
	return s, nil
}

// addPairs binds every pair of a let or record content wrapper.
func addPairs(g *ast.Graph, s *NodeScope, anc ast.Ancestry, id, contentAttr int, kind ItemKind) error {
	content, ok, err := g.OptionalChild(id, contentAttr, ast.KindArrayWrapper)
	if err != nil || !ok {
		return err
	}
	for _, csv := range g.ChildIDs(content.ID()) {
		pair, ok, err := g.ExpectChild(csv, ast.AttrCsvNode,
			ast.KindIdentifierPairedExpression, ast.KindGeneralizedIdentifierPairedExpression)
		if err != nil {
			return err
		}
		if ok {
			if err := addPair(g, s, anc, pair.ID(), kind); err != nil {
				return err
			}
		}
	}
	return nil
}

func addSectionMembers(g *ast.Graph, s *NodeScope, anc ast.Ancestry, id int) error {
	content, ok, err := g.OptionalChild(id, 3, ast.KindArrayWrapper)
	if err != nil || !ok {
		return err
	}
	for _, member := range g.ChildIDs(content.ID()) {
		pair, ok, err := g.ExpectChild(member, 1, ast.KindIdentifierPairedExpression)
		if err != nil {
			return err
		}
		if ok {
			if err := addPair(g, s, anc, pair.ID(), ItemSectionMember); err != nil {
				return err
			}
		}
	}
	return nil
}

func addPair(g *ast.Graph, s *NodeScope, anc ast.Ancestry, pairID int, kind ItemKind) error {
	key, ok, err := g.ExpectChild(pairID, ast.AttrPairKey, ast.KindIdentifier, ast.KindGeneralizedIdentifier)
	if err != nil || !ok {
		return err
	}
	literal := key.Literal()
	item := Item{Kind: kind, Key: literal, KeyNodeID: key.ID()}

	value, ok, err := g.ExpectChild(pairID, ast.AttrPairValue)
	if err != nil {
		return err
	}
	if !ok {
		item.Kind = ItemUnresolved
		s.add(literal, item, Alternate(literal))
		return nil
	}
	item.ValueNodeID = value.ID()

	if anc.Contains(value.ID()) {
		item.IsRecursive = true
		s.add("@"+literal, item, "@"+Alternate(literal))
		return nil
	}
	s.add(literal, item, Alternate(literal))
	return nil
}

func addParameters(g *ast.Graph, s *NodeScope, fnID int) error {
	list, ok, err := g.ExpectChild(fnID, 0, ast.KindParameterList)
	if err != nil || !ok {
		return err
	}
	content, ok, err := g.ExpectChild(list.ID(), ast.AttrWrappedContent, ast.KindArrayWrapper)
	if err != nil || !ok {
		return err
	}
	for _, csv := range g.ChildIDs(content.ID()) {
		param, ok, err := g.ExpectChild(csv, ast.AttrCsvNode, ast.KindParameter)
		if err != nil {
			return err
		}
		if !ok {
			continue
		}
		item, ok, err := ParameterItem(g, param.ID())
		if err != nil {
			return err
		}
		if ok {
			s.add(item.Key, item)
		}
	}
	return nil
}

// ParameterItem reads name, optionality and the declared primitive type
// straight from the parameter syntax.
func ParameterItem(g *ast.Graph, paramID int) (Item, bool, error) {
	name, ok, err := g.ExpectChild(paramID, 1, ast.KindIdentifier)
	if err != nil || !ok {
		return Item{}, false, err
	}
	_, optional, err := g.OptionalChild(paramID, 0, ast.KindConstant)
	if err != nil {
		return Item{}, false, err
	}
	item := Item{
		Kind:       ItemParameter,
		Key:        name.Literal(),
		KeyNodeID:  name.ID(),
		IsOptional: optional,
		IsNullable: true,
	}

	as, ok, err := g.OptionalChild(paramID, 2, ast.KindAsNullablePrimitiveType, ast.KindAsType)
	if err != nil || !ok {
		return item, true, err
	}
	kind, nullable, ok, err := DeclaredPrimitive(g, as.ID())
	if err != nil {
		return Item{}, false, err
	}
	if ok {
		item.DeclaredKind = kind
		item.IsNullable = nullable
	}
	return item, true, nil
}

// DeclaredPrimitive reads the primitive type of an `as` clause, looking
// through a nullable wrapper.
func DeclaredPrimitive(g *ast.Graph, asID int) (types.Kind, bool, bool, error) {
	typ, ok, err := g.ExpectChild(asID, 1)
	if err != nil || !ok {
		return "", false, false, err
	}
	nullable := false
	switch typ.Kind() {
	case ast.KindNullablePrimitiveType, ast.KindNullableType:
		nullable = true
		typ, ok, err = g.ExpectChild(typ.ID(), 1)
		if err != nil || !ok {
			return "", false, false, err
		}
	}
	if typ.Kind() != ast.KindPrimitiveType {
		return "", false, false, nil
	}
	kind, err := types.ParseKind(typ.Literal())
	if err != nil {
		return "", false, false, nil
	}
	return kind, nullable || kind == types.KindNull || kind == types.KindAny, true, nil
}

// Alternate returns the other lookup spelling of an identifier: the
// #"quoted" form of a plain name, or the plain form of a quoted one.
func Alternate(literal string) string {
	if strings.HasPrefix(literal, `#"`) && strings.HasSuffix(literal, `"`) && len(literal) >= 3 {
		return strings.ReplaceAll(literal[2:len(literal)-1], `""`, `"`)
	}
	return `#"` + strings.ReplaceAll(literal, `"`, `""`) + `"`
}
