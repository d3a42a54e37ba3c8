package typeinfer

import (
	"go.uber.org/zap"

	"github.com/panbanda/pqinspect/pkg/analyzer/scope"
	"github.com/panbanda/pqinspect/pkg/ast"
	"github.com/panbanda/pqinspect/pkg/types"
)

// maxDereference bounds identifier-to-identifier chains followed when
// looking for a library callee.
const maxDereference = 32

func (i *inferrer) recursivePrimary(id int) (types.Type, error) {
	head, err := i.inferChild(id, 0)
	if err != nil {
		return nil, err
	}
	elems, ok, err := i.g.ExpectChild(id, 1, ast.KindArrayWrapper)
	if err != nil {
		return nil, err
	}
	if !ok {
		return head, nil
	}
	ids := i.g.ChildIDs(elems.ID())
	if len(ids) == 0 {
		return head, nil
	}
	return i.infer(ids[len(ids)-1])
}

// accessTarget returns the type of the value an invoke, selector,
// projection or item access applies to.
func (i *inferrer) accessTarget(id int) (types.Type, error) {
	ref, _ := i.g.Node(id)
	parent, ok := i.g.Parent(id)
	if !ok {
		return i.implicitTarget(id)
	}

	switch parent.Kind() {
	case ast.KindArrayWrapper:
		owner, ok := i.g.Parent(parent.ID())
		if ok && owner.Kind() == ast.KindRecursivePrimaryExpression && parent.AttributeIndex() == 1 {
			if ref.AttributeIndex() == 0 {
				return i.inferChild(owner.ID(), 0)
			}
			prev, ok := i.g.Child(parent.ID(), ref.AttributeIndex()-1)
			if !ok {
				return types.Unknown, nil
			}
			return i.infer(prev.ID())
		}
	case ast.KindCsv:
		// A selector inside a projection reads from the projection target.
		if wrapper, ok := i.g.Parent(parent.ID()); ok {
			if projection, ok := i.g.Parent(wrapper.ID()); ok && projection.Kind() == ast.KindFieldProjection {
				return i.accessTarget(projection.ID())
			}
		}
	}
	return i.implicitTarget(id)
}

// implicitTarget types the `_` a bare `[field]` reads from.
func (i *inferrer) implicitTarget(id int) (types.Type, error) {
	item, found, err := i.lookup(id, scope.EachParameter, false)
	if err != nil {
		return nil, err
	}
	if !found {
		return types.Unknown, nil
	}
	return i.itemType(item)
}

func isOptionalAccess(g *ast.Graph, id, attr int) bool {
	_, ok := g.Child(id, attr)
	return ok
}

func (i *inferrer) invoke(id int) (types.Type, error) {
	args, err := i.csvTypes(id, ast.AttrWrappedContent)
	if err != nil {
		return nil, err
	}

	if i.settings.Resolver != nil {
		if name, ok, err := i.externalCallee(id); err != nil {
			return nil, err
		} else if ok {
			t, ok := i.settings.Resolver.Resolve(i.ctx, Request{Kind: RequestInvocation, Identifier: name, Arguments: args})
			if ok && t != nil {
				i.log.Debug("resolved library invocation", zap.String("identifier", name), zap.Stringer("type", t))
				return t, nil
			}
		}
	}

	callee, err := i.accessTarget(id)
	if err != nil {
		return nil, err
	}
	return invokeResult(callee), nil
}

func invokeResult(callee types.Type) types.Type {
	switch {
	case types.IsUnknown(callee):
		return types.Unknown
	case types.IsAnyLike(callee):
		return types.Any
	}
	switch t := callee.(type) {
	case types.DefinedFunction:
		if t.Return == nil {
			return types.Any
		}
		return t.Return
	case types.AnyUnion:
		return distribute(t, invokeResult)
	}
	if callee.Kind() == types.KindFunction {
		return types.Any
	}
	return types.None
}

// externalCallee follows the callee of an invocation through
// identifier-to-identifier bindings and reports the name it ends at when
// no binding in the document defines it.
func (i *inferrer) externalCallee(invokeID int) (string, bool, error) {
	ref, _ := i.g.Node(invokeID)
	if ref.AttributeIndex() != 0 {
		return "", false, nil
	}
	wrapper, ok := i.g.Parent(invokeID)
	if !ok || wrapper.Kind() != ast.KindArrayWrapper {
		return "", false, nil
	}
	owner, ok := i.g.Parent(wrapper.ID())
	if !ok || owner.Kind() != ast.KindRecursivePrimaryExpression {
		return "", false, nil
	}
	head, ok := i.g.Child(owner.ID(), 0)
	if !ok {
		return "", false, nil
	}

	for range maxDereference {
		if head.Kind() != ast.KindIdentifierExpression {
			return "", false, nil
		}
		ident, ok, err := i.g.ExpectChild(head.ID(), 1, ast.KindIdentifier)
		if err != nil || !ok {
			return "", false, err
		}
		_, recursive := i.g.Child(head.ID(), 0)
		item, found, err := i.lookup(head.ID(), ident.Literal(), recursive)
		if err != nil {
			return "", false, err
		}
		if !found {
			return ident.Literal(), true, nil
		}
		if !item.HasValue() || item.IsRecursive {
			return "", false, nil
		}
		value, ok := i.g.Node(item.ValueNodeID)
		if !ok {
			return "", false, nil
		}
		head = value
	}
	return "", false, nil
}

func (i *inferrer) fieldSelector(id int) (types.Type, error) {
	name, ok, err := i.g.ExpectChild(id, 1, ast.KindGeneralizedIdentifier)
	if err != nil {
		return nil, err
	}
	if !ok {
		return types.Unknown, nil
	}
	target, err := i.accessTarget(id)
	if err != nil {
		return nil, err
	}
	return selectField(target, FieldName(name.Literal()), isOptionalAccess(i.g, id, 3)), nil
}

func selectField(target types.Type, name string, optional bool) types.Type {
	switch {
	case types.IsUnknown(target), target.Kind() == types.KindNotApplicable:
		return types.Unknown
	case types.IsAnyLike(target):
		return types.Any
	}

	switch t := target.(type) {
	case types.AnyUnion:
		return distribute(t, func(alt types.Type) types.Type { return selectField(alt, name, optional) })
	case types.DefinedRecord:
		return missingField(t.Fields, name, t.IsOpen, optional)
	case types.DefinedTable:
		return missingField(t.Fields, name, t.IsOpen, optional)
	}

	switch target.Kind() {
	case types.KindRecord, types.KindTable:
		return types.Any
	case types.KindNull:
		if optional {
			return types.Null
		}
	}
	return types.None
}

func missingField(fields types.Fields, name string, open, optional bool) types.Type {
	if t, ok := fields.Get(name); ok {
		return t
	}
	switch {
	case open:
		return types.Any
	case optional:
		return types.Null
	}
	return types.None
}

func (i *inferrer) fieldProjection(id int) (types.Type, error) {
	content, ok, err := i.g.ExpectChild(id, 1, ast.KindArrayWrapper)
	if err != nil {
		return nil, err
	}
	var names []string
	if ok {
		for _, csv := range i.g.ChildIDs(content.ID()) {
			sel, ok, err := i.g.ExpectChild(csv, ast.AttrCsvNode, ast.KindFieldSelector)
			if err != nil {
				return nil, err
			}
			if !ok {
				continue
			}
			name, ok, err := i.g.ExpectChild(sel.ID(), 1, ast.KindGeneralizedIdentifier)
			if err != nil {
				return nil, err
			}
			if ok {
				names = append(names, FieldName(name.Literal()))
			}
		}
	}
	target, err := i.accessTarget(id)
	if err != nil {
		return nil, err
	}
	return project(target, names, isOptionalAccess(i.g, id, 3)), nil
}

func project(target types.Type, names []string, optional bool) types.Type {
	switch {
	case types.IsUnknown(target), target.Kind() == types.KindNotApplicable:
		return types.Unknown
	case types.IsAnyLike(target):
		fields := anyFields(names)
		return types.Union(types.DefinedRecord{Fields: fields, IsOpen: true}, types.DefinedTable{Fields: fields, IsOpen: true})
	}

	switch t := target.(type) {
	case types.AnyUnion:
		return distribute(t, func(alt types.Type) types.Type { return project(alt, names, optional) })
	case types.DefinedRecord:
		fields, ok := projectFields(t.Fields, names, t.IsOpen, optional)
		if !ok {
			return types.None
		}
		return types.DefinedRecord{Fields: fields, IsNullable: t.IsNullable}
	case types.DefinedTable:
		fields, ok := projectFields(t.Fields, names, t.IsOpen, optional)
		if !ok {
			return types.None
		}
		return types.DefinedTable{Fields: fields, IsNullable: t.IsNullable}
	}

	switch target.Kind() {
	case types.KindRecord:
		return types.DefinedRecord{Fields: anyFields(names), IsNullable: target.Nullable()}
	case types.KindTable:
		return types.DefinedTable{Fields: anyFields(names), IsNullable: target.Nullable()}
	}
	return types.None
}

func anyFields(names []string) types.Fields {
	var fields types.Fields
	for _, n := range names {
		fields = fields.With(n, types.Any)
	}
	return fields
}

func projectFields(fields types.Fields, names []string, open, optional bool) (types.Fields, bool) {
	var out types.Fields
	for _, n := range names {
		t := missingField(fields, n, open, optional)
		if types.IsNone(t) {
			return nil, false
		}
		out = out.With(n, t)
	}
	return out, true
}

func (i *inferrer) itemAccess(id int) (types.Type, error) {
	index, err := i.inferChild(id, 1)
	if err != nil {
		return nil, err
	}
	target, err := i.accessTarget(id)
	if err != nil {
		return nil, err
	}
	return accessItem(target, index, isOptionalAccess(i.g, id, 3)), nil
}

func accessItem(target, index types.Type, optional bool) types.Type {
	switch {
	case types.IsUnknown(target), target.Kind() == types.KindNotApplicable:
		return types.Unknown
	case types.IsAnyLike(target):
		return types.Any
	}

	switch t := target.(type) {
	case types.AnyUnion:
		return distribute(t, func(alt types.Type) types.Type { return accessItem(alt, index, optional) })
	case types.DefinedList:
		if n, ok := index.(types.NumberLiteral); ok && n.Value >= 0 && n.Value == float64(int(n.Value)) {
			if int(n.Value) < len(t.Elements) {
				return t.Elements[int(n.Value)]
			}
			if optional {
				return types.Null
			}
			return types.None
		}
		if len(t.Elements) == 0 {
			if optional {
				return types.Null
			}
			return types.None
		}
		return types.Union(t.Elements...)
	case types.DefinedTable:
		return types.DefinedRecord{Fields: t.Fields, IsOpen: t.IsOpen}
	}

	switch target.Kind() {
	case types.KindList:
		return types.Any
	case types.KindTable:
		return types.Record
	}
	return types.None
}
