// Package typeinfer infers the value type of nodes in a possibly partial
// node graph.
//
// Inference never fails for semantic reasons: operands that do not
// combine, missing fields and non-callable invocations all produce the
// None type. Errors are reserved for malformed graphs (*ast.InvariantError)
// and cancellation (ctx.Err()).
package typeinfer

import (
	"context"
	"fmt"
	"sort"

	"github.com/RoaringBitmap/roaring/v2"
	"go.uber.org/zap"

	"github.com/panbanda/pqinspect/pkg/analyzer/graph"
	"github.com/panbanda/pqinspect/pkg/analyzer/scope"
	"github.com/panbanda/pqinspect/pkg/ast"
	"github.com/panbanda/pqinspect/pkg/types"
)

// InferType returns the type of nodeID. Results for every node visited
// are committed to cache.Delta only when the whole pass succeeds, so a
// cancelled pass leaves the cache untouched.
func InferType(ctx context.Context, settings Settings, g *ast.Graph, nodeID int, cache *Cache) (types.Type, error) {
	inf := newInferrer(ctx, settings, g, cache)
	t, err := inf.infer(nodeID)
	if err != nil {
		inf.log.Debug("type inference aborted", zap.Int("node", nodeID), zap.Error(err))
		return nil, err
	}
	inf.commit()
	return t, nil
}

// InferScopeTypes returns the type of every binding visible at nodeID,
// keyed as in the node's scope.
func InferScopeTypes(ctx context.Context, settings Settings, g *ast.Graph, nodeID int, cache *Cache) (map[string]types.Type, error) {
	inf := newInferrer(ctx, settings, g, cache)
	s, err := inf.scopeAt(nodeID)
	if err != nil {
		return nil, err
	}
	return inf.bindingTypes(nodeID, s)
}

// InferBindingTypes types every binding of s, a scope computed for nodeID
// by the caller, such as the open scope of a pending node.
func InferBindingTypes(ctx context.Context, settings Settings, g *ast.Graph, nodeID int, s *scope.NodeScope, cache *Cache) (map[string]types.Type, error) {
	return newInferrer(ctx, settings, g, cache).bindingTypes(nodeID, s)
}

func (i *inferrer) bindingTypes(nodeID int, s *scope.NodeScope) (map[string]types.Type, error) {
	keys := s.Keys()
	rank, err := i.bindingRanks(nodeID)
	if err != nil {
		return nil, err
	}
	// Infer dependencies before the bindings that use them.
	sort.SliceStable(keys, func(a, b int) bool {
		ia, _ := s.Get(keys[a])
		ib, _ := s.Get(keys[b])
		return rank[ia.KeyNodeID] < rank[ib.KeyNodeID]
	})

	out := make(map[string]types.Type, len(keys))
	for _, key := range keys {
		item, _ := s.Get(key)
		t, err := i.itemType(item)
		if err != nil {
			return nil, err
		}
		out[key] = t
	}
	i.commit()
	return out, nil
}

// bindingRanks numbers the bindings of every container enclosing id in
// dependency order, keyed by key node id.
func (i *inferrer) bindingRanks(id int) (map[int]int, error) {
	rank := make(map[int]int)
	analyzer := graph.New()
	for _, ref := range i.g.Ancestry(id) {
		switch ref.Kind() {
		case ast.KindLetExpression, ast.KindRecordExpression, ast.KindSection:
		default:
			continue
		}
		dg, m, err := analyzer.Analyze(i.ctx, i.g, ref.ID(), i.scopes)
		if err != nil {
			return nil, err
		}
		keyNodes := make(map[string]int, len(dg.Nodes))
		for _, n := range dg.Nodes {
			keyNodes[n.ID] = n.KeyNodeID
		}
		for pos, name := range m.Order {
			rank[keyNodes[name]] = pos
		}
	}
	return rank, nil
}

// InferAccessTarget returns the type of the value a field selector, field
// projection, item access or invocation applies to: the preceding
// postfix operand, or the `_` of the enclosing each for a bare `[field]`.
func InferAccessTarget(ctx context.Context, settings Settings, g *ast.Graph, accessID int, cache *Cache) (types.Type, error) {
	ref, ok := g.Node(accessID)
	if !ok {
		return nil, &ast.InvariantError{NodeID: accessID, Message: "unknown node id"}
	}
	switch ref.Kind() {
	case ast.KindFieldSelector, ast.KindFieldProjection, ast.KindItemAccessExpression, ast.KindInvokeExpression:
	default:
		return nil, &ast.InvariantError{NodeID: accessID, Kind: ref.Kind(), Message: "not an access expression"}
	}
	inf := newInferrer(ctx, settings, g, cache)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	t, err := inf.accessTarget(accessID)
	if err != nil {
		return nil, err
	}
	inf.commit()
	return t, nil
}

type inferrer struct {
	ctx      context.Context
	settings Settings
	g        *ast.Graph
	cache    *Cache
	log      *zap.Logger

	delta    map[int]types.Type
	scopes   scope.Cache
	inFlight *roaring.Bitmap
	hits     int
}

func newInferrer(ctx context.Context, settings Settings, g *ast.Graph, cache *Cache) *inferrer {
	log := settings.Logger
	if log == nil {
		log = zap.NewNop()
	}
	if settings.Strategy == "" {
		settings.Strategy = StrategyExtended
	}
	cache.Prepare(settings.Strategy)
	return &inferrer{
		ctx:      ctx,
		settings: settings,
		g:        g,
		cache:    cache,
		log:      log,
		delta:    make(map[int]types.Type),
		scopes:   make(scope.Cache),
		inFlight: roaring.New(),
	}
}

func (i *inferrer) commit() {
	for id, t := range i.delta {
		i.cache.Delta[id] = t
	}
	for id, s := range i.scopes {
		i.cache.Scopes[id] = s
	}
	i.cache.stats.Hits += i.hits
	i.cache.stats.Misses += len(i.delta)
}

func (i *inferrer) infer(id int) (types.Type, error) {
	if err := i.ctx.Err(); err != nil {
		return nil, err
	}
	if t, ok := i.cache.Lookup(id); ok {
		i.hits++
		return t, nil
	}
	if t, ok := i.delta[id]; ok {
		return t, nil
	}
	// A node that is already being inferred further up the stack is part
	// of a cycle.
	if i.inFlight.Contains(uint32(id)) {
		return types.Unknown, nil
	}

	ref, ok := i.g.Node(id)
	if !ok {
		return nil, &ast.InvariantError{NodeID: id, Message: "unknown node id"}
	}

	i.inFlight.Add(uint32(id))
	t, err := i.dispatch(ref)
	i.inFlight.Remove(uint32(id))
	if err != nil {
		return nil, err
	}
	if i.settings.Strategy == StrategyPrimitive {
		t = types.ToPrimitive(t)
	}
	i.delta[id] = t
	return t, nil
}

// inferChild infers the child at attr; an absent child of a pending node
// is Unknown.
func (i *inferrer) inferChild(id, attr int, kinds ...ast.NodeKind) (types.Type, error) {
	child, ok, err := i.g.ExpectChild(id, attr, kinds...)
	if err != nil {
		return nil, err
	}
	if !ok {
		return types.Unknown, nil
	}
	return i.infer(child.ID())
}

func (i *inferrer) scopeAt(id int) (*scope.NodeScope, error) {
	if s, ok := i.cache.Scopes[id]; ok {
		return s, nil
	}
	return scope.Resolve(i.ctx, i.g, id, i.scopes)
}

func (i *inferrer) dispatch(ref ast.NodeRef) (types.Type, error) {
	id := ref.ID()

	if i.settings.Strategy == StrategyPrimitive {
		if t, ok := primitiveShortcut(ref.Kind()); ok {
			return t, nil
		}
	}

	switch ref.Kind() {
	case ast.KindArithmeticExpression, ast.KindEqualityExpression,
		ast.KindLogicalExpression, ast.KindRelationalExpression:
		return i.binaryOperator(id)
	case ast.KindAsExpression:
		return i.asExpression(id)
	case ast.KindIsExpression:
		return types.Logical, nil
	case ast.KindMetadataExpression:
		return i.inferChild(id, ast.AttrBinaryLeft)
	case ast.KindNullCoalescingExpression:
		return i.nullCoalescing(id)

	case ast.KindArrayWrapper, ast.KindConstant, ast.KindParameterList, ast.KindSection,
		ast.KindAsNullablePrimitiveType, ast.KindAsType, ast.KindNullablePrimitiveType,
		ast.KindFieldSpecification, ast.KindFieldSpecificationList, ast.KindFieldTypeSpecification:
		return types.NotApplicable, nil

	case ast.KindCsv:
		return i.inferChild(id, ast.AttrCsvNode)
	case ast.KindParenthesizedExpression:
		return i.inferChild(id, 1)
	case ast.KindLetExpression:
		return i.inferChild(id, 3)
	case ast.KindSectionMember:
		return i.inferChild(id, 1)
	case ast.KindIdentifierPairedExpression, ast.KindGeneralizedIdentifierPairedExpression:
		return i.inferChild(id, ast.AttrPairValue)
	case ast.KindOtherwiseExpression:
		return i.inferChild(id, 1)
	case ast.KindCatchExpression:
		return i.catch(id)

	case ast.KindErrorRaisingExpression, ast.KindNotImplementedExpression:
		return types.Any, nil
	case ast.KindErrorHandlingExpression:
		return i.try(id)

	case ast.KindLiteralExpression:
		return literalType(ref)
	case ast.KindUnaryExpression:
		return i.unary(id)
	case ast.KindIfExpression:
		return i.ifExpression(id)
	case ast.KindEachExpression:
		return i.each(id)
	case ast.KindFunctionExpression:
		return i.function(id)
	case ast.KindParameter:
		return i.parameter(id)
	case ast.KindListExpression:
		return i.list(id)
	case ast.KindRangeExpression:
		return i.rangeElement(id)
	case ast.KindRecordExpression:
		return i.record(id)

	case ast.KindIdentifier, ast.KindGeneralizedIdentifier:
		return i.identifierLeaf(ref)
	case ast.KindIdentifierExpression:
		return i.identifierExpression(id)

	case ast.KindRecursivePrimaryExpression:
		return i.recursivePrimary(id)
	case ast.KindInvokeExpression:
		return i.invoke(id)
	case ast.KindFieldSelector:
		return i.fieldSelector(id)
	case ast.KindFieldProjection:
		return i.fieldProjection(id)
	case ast.KindItemAccessExpression:
		return i.itemAccess(id)

	case ast.KindTypePrimaryType:
		child, ok, err := i.g.ExpectChild(id, 1)
		if err != nil || !ok {
			return types.Unknown, err
		}
		return i.typeValue(child)
	case ast.KindRecordType, ast.KindTableType, ast.KindListType, ast.KindFunctionType,
		ast.KindNullableType, ast.KindPrimitiveType:
		return i.typeValue(ref)
	}

	return nil, &ast.InvariantError{NodeID: id, Kind: ref.Kind(), Message: fmt.Sprintf("no inference rule for %s", ref.Kind())}
}

// primitiveShortcut answers composite constructs without visiting their
// children under the primitive strategy.
func primitiveShortcut(kind ast.NodeKind) (types.Type, bool) {
	switch kind {
	case ast.KindListExpression:
		return types.List, true
	case ast.KindRecordExpression:
		return types.Record, true
	case ast.KindFunctionExpression, ast.KindEachExpression:
		return types.Function, true
	case ast.KindTypePrimaryType, ast.KindRecordType, ast.KindTableType,
		ast.KindListType, ast.KindFunctionType:
		return types.TypeType, true
	}
	return nil, false
}
