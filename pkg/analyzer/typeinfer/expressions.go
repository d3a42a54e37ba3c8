package typeinfer

import (
	"math"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/panbanda/pqinspect/pkg/analyzer/scope"
	"github.com/panbanda/pqinspect/pkg/ast"
	"github.com/panbanda/pqinspect/pkg/types"
)

func literalType(ref ast.NodeRef) (types.Type, error) {
	m, ok := ref.Materialized()
	if !ok {
		return types.Unknown, nil
	}
	switch m.LiteralKind {
	case ast.LiteralNumeric:
		return numberLiteral(m.Literal), nil
	case ast.LiteralText:
		return types.TextLiteral{Literal: m.Literal}, nil
	case ast.LiteralLogical:
		return types.Logical, nil
	case ast.LiteralNull:
		return types.Null, nil
	}
	return nil, &ast.InvariantError{NodeID: m.ID, Kind: m.Kind, Message: "literal without a literal kind"}
}

func numberLiteral(text string) types.NumberLiteral {
	n := types.NumberLiteral{Literal: text}
	lower := strings.ToLower(text)
	switch {
	case lower == "#infinity":
		n.Value = math.Inf(1)
	case lower == "#nan":
		n.Value = math.NaN()
	case strings.HasPrefix(lower, "0x"):
		if v, err := strconv.ParseUint(lower[2:], 16, 64); err == nil {
			n.Value = float64(v)
		}
	default:
		if v, err := strconv.ParseFloat(text, 64); err == nil {
			n.Value = v
		}
	}
	return n
}

func (i *inferrer) unary(id int) (types.Type, error) {
	t, err := i.inferChild(id, 1)
	if err != nil {
		return nil, err
	}
	ops, ok, err := i.g.ExpectChild(id, 0, ast.KindArrayWrapper)
	if err != nil || !ok {
		return t, err
	}
	children := i.g.Children(ops.ID())
	// Operators apply right to left: `- not x` negates `not x`.
	for n := len(children) - 1; n >= 0; n-- {
		t = applyUnary(children[n].Literal(), t)
	}
	return t, nil
}

func applyUnary(op string, t types.Type) types.Type {
	switch {
	case types.IsUnknown(t):
		return types.Unknown
	case types.IsAnyLike(t):
		if op == "not" {
			return types.NewPrimitive(types.KindLogical, t.Nullable())
		}
		return types.Any
	}
	if u, ok := t.(types.AnyUnion); ok {
		return distribute(u, func(alt types.Type) types.Type { return applyUnary(op, alt) })
	}

	switch t.Kind() {
	case types.KindNull:
		return types.Null
	case types.KindLogical:
		if op == "not" {
			return t
		}
	case types.KindNumber:
		if op == "not" {
			return types.None
		}
		if n, ok := t.(types.NumberLiteral); ok && op == "-" {
			return negate(n)
		}
		return t
	case types.KindDuration:
		if op != "not" {
			return t
		}
	}
	return types.None
}

func negate(n types.NumberLiteral) types.NumberLiteral {
	if rest, ok := strings.CutPrefix(n.Literal, "-"); ok {
		n.Literal = rest
	} else {
		n.Literal = "-" + n.Literal
	}
	n.Value = -n.Value
	return n
}

func (i *inferrer) ifExpression(id int) (types.Type, error) {
	cond, err := i.inferChild(id, 1)
	if err != nil {
		return nil, err
	}
	if !isConditionType(cond) {
		return types.None, nil
	}
	whenTrue, err := i.inferChild(id, 3)
	if err != nil {
		return nil, err
	}
	whenFalse, err := i.inferChild(id, 5)
	if err != nil {
		return nil, err
	}
	return types.Union(whenTrue, whenFalse), nil
}

// isConditionType accepts logical conditions and anything that could
// still turn out to be logical.
func isConditionType(t types.Type) bool {
	if types.IsUnknown(t) || types.IsAnyLike(t) {
		return true
	}
	if u, ok := t.(types.AnyUnion); ok {
		for _, alt := range u.Alternatives {
			if alt.Kind() != types.KindLogical && !types.IsAnyLike(alt) {
				return false
			}
		}
		return true
	}
	return t.Kind() == types.KindLogical
}

func (i *inferrer) each(id int) (types.Type, error) {
	body, err := i.inferChild(id, 1)
	if err != nil {
		return nil, err
	}
	return types.DefinedFunction{
		Parameters: []types.Parameter{{Name: scope.EachParameter, IsNullable: true}},
		Return:     body,
	}, nil
}

func (i *inferrer) function(id int) (types.Type, error) {
	params, err := i.parameters(id, 0)
	if err != nil {
		return nil, err
	}

	as, ok, err := i.g.OptionalChild(id, 1, ast.KindAsNullablePrimitiveType)
	if err != nil {
		return nil, err
	}
	if ok {
		// A declared return type wins over the body.
		if _, err := i.inferChild(id, 3); err != nil {
			return nil, err
		}
		kind, nullable, declared, err := scope.DeclaredPrimitive(i.g, as.ID())
		if err != nil {
			return nil, err
		}
		if declared {
			return types.DefinedFunction{Parameters: params, Return: types.NewPrimitive(kind, nullable)}, nil
		}
	}

	body, err := i.inferChild(id, 3)
	if err != nil {
		return nil, err
	}
	return types.DefinedFunction{Parameters: params, Return: body}, nil
}

// parameters reads the ParameterList at attr of a function expression or
// function type.
func (i *inferrer) parameters(id, attr int) ([]types.Parameter, error) {
	list, ok, err := i.g.ExpectChild(id, attr, ast.KindParameterList)
	if err != nil || !ok {
		return nil, err
	}
	content, ok, err := i.g.ExpectChild(list.ID(), ast.AttrWrappedContent, ast.KindArrayWrapper)
	if err != nil || !ok {
		return nil, err
	}
	var params []types.Parameter
	for _, csv := range i.g.ChildIDs(content.ID()) {
		p, ok, err := i.g.ExpectChild(csv, ast.AttrCsvNode, ast.KindParameter)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		item, ok, err := scope.ParameterItem(i.g, p.ID())
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		param := types.Parameter{
			Name:       item.Key,
			IsOptional: item.IsOptional,
			IsNullable: item.IsNullable,
			Kind:       item.DeclaredKind,
		}
		if param.Kind == "" {
			// Function types declare parameters with full type expressions.
			if as, ok, _ := i.g.OptionalChild(p.ID(), 2, ast.KindAsType); ok {
				if typ, ok := i.g.Child(as.ID(), 1); ok {
					described, err := i.describe(typ)
					if err != nil {
						return nil, err
					}
					param.Kind = described.Kind()
					param.IsNullable = described.Nullable()
				}
			}
		}
		params = append(params, param)
	}
	return params, nil
}

func (i *inferrer) parameter(id int) (types.Type, error) {
	item, ok, err := scope.ParameterItem(i.g, id)
	if err != nil {
		return nil, err
	}
	if !ok {
		return types.Unknown, nil
	}
	return parameterType(item), nil
}

func parameterType(item scope.Item) types.Type {
	if item.DeclaredKind == "" {
		return types.Any
	}
	return types.NewPrimitive(item.DeclaredKind, item.IsNullable || item.IsOptional)
}

func (i *inferrer) list(id int) (types.Type, error) {
	elems, err := i.csvTypes(id, ast.AttrWrappedContent)
	if err != nil {
		return nil, err
	}
	return types.DefinedList{Elements: elems}, nil
}

// csvTypes infers every element of the Csv list at attr.
func (i *inferrer) csvTypes(id, attr int) ([]types.Type, error) {
	content, ok, err := i.g.ExpectChild(id, attr, ast.KindArrayWrapper)
	if err != nil || !ok {
		return nil, err
	}
	var out []types.Type
	for _, csv := range i.g.ChildIDs(content.ID()) {
		t, err := i.infer(csv)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, nil
}

func (i *inferrer) rangeElement(id int) (types.Type, error) {
	left, err := i.inferChild(id, 0)
	if err != nil {
		return nil, err
	}
	if _, err := i.inferChild(id, 2); err != nil {
		return nil, err
	}
	if types.IsUnknown(left) {
		return left, nil
	}
	return types.ToPrimitive(left), nil
}

func (i *inferrer) record(id int) (types.Type, error) {
	content, ok, err := i.g.ExpectChild(id, ast.AttrWrappedContent, ast.KindArrayWrapper)
	if err != nil {
		return nil, err
	}
	var fields types.Fields
	if !ok {
		return types.DefinedRecord{Fields: fields}, nil
	}
	for _, csv := range i.g.ChildIDs(content.ID()) {
		pair, ok, err := i.g.ExpectChild(csv, ast.AttrCsvNode, ast.KindGeneralizedIdentifierPairedExpression)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		key, ok, err := i.g.ExpectChild(pair.ID(), ast.AttrPairKey, ast.KindGeneralizedIdentifier)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		t, err := i.infer(pair.ID())
		if err != nil {
			return nil, err
		}
		fields = fields.With(FieldName(key.Literal()), t)
	}
	return types.DefinedRecord{Fields: fields}, nil
}

// FieldName normalizes a field key: #"a b" and a b name the same field.
func FieldName(literal string) string {
	if strings.HasPrefix(literal, `#"`) {
		return scope.Alternate(literal)
	}
	return literal
}

func (i *inferrer) try(id int) (types.Type, error) {
	protected, err := i.inferChild(id, 1)
	if err != nil {
		return nil, err
	}
	handler, ok, err := i.g.OptionalChild(id, 2, ast.KindOtherwiseExpression, ast.KindCatchExpression)
	if err != nil {
		return nil, err
	}
	if ok {
		h, err := i.infer(handler.ID())
		if err != nil {
			return nil, err
		}
		return types.Union(protected, h), nil
	}
	return types.Union(
		types.DefinedRecord{Fields: types.NewFields(
			types.Field{Name: "HasError", Type: types.Logical},
			types.Field{Name: "Value", Type: protected},
		)},
		types.DefinedRecord{Fields: types.NewFields(
			types.Field{Name: "HasError", Type: types.Logical},
			types.Field{Name: "Error", Type: types.Record},
		)},
	), nil
}

func (i *inferrer) catch(id int) (types.Type, error) {
	fn, err := i.inferChild(id, 1)
	if err != nil {
		return nil, err
	}
	if f, ok := fn.(types.DefinedFunction); ok && f.Return != nil {
		return f.Return, nil
	}
	if types.IsUnknown(fn) {
		return fn, nil
	}
	return types.Any, nil
}

// identifierLeaf types a bare identifier by the construct that owns it.
func (i *inferrer) identifierLeaf(ref ast.NodeRef) (types.Type, error) {
	parent, ok := i.g.Parent(ref.ID())
	if !ok {
		return types.NotApplicable, nil
	}
	switch parent.Kind() {
	case ast.KindIdentifierExpression, ast.KindFieldSelector, ast.KindParameter:
		return i.infer(parent.ID())
	case ast.KindIdentifierPairedExpression, ast.KindGeneralizedIdentifierPairedExpression:
		if ref.AttributeIndex() == ast.AttrPairKey {
			return i.infer(parent.ID())
		}
	}
	return types.NotApplicable, nil
}

func (i *inferrer) identifierExpression(id int) (types.Type, error) {
	ident, ok, err := i.g.ExpectChild(id, 1, ast.KindIdentifier)
	if err != nil {
		return nil, err
	}
	if !ok {
		return types.Unknown, nil
	}
	_, recursive := i.g.Child(id, 0)

	item, found, err := i.lookup(id, ident.Literal(), recursive)
	if err != nil {
		return nil, err
	}
	if !found {
		return i.resolveValue(ident.Literal()), nil
	}
	return i.itemType(item)
}

// lookup finds the binding an identifier refers to. The `@` form prefers
// the recursive binding; the plain form falls back to it.
func (i *inferrer) lookup(id int, literal string, recursive bool) (scope.Item, bool, error) {
	s, err := i.scopeAt(id)
	if err != nil {
		return scope.Item{}, false, err
	}
	keys := []string{literal, "@" + literal}
	if recursive {
		keys[0], keys[1] = keys[1], keys[0]
	}
	for _, key := range keys {
		if item, ok := s.Get(key); ok {
			return item, true, nil
		}
	}
	return scope.Item{}, false, nil
}

func (i *inferrer) itemType(item scope.Item) (types.Type, error) {
	switch item.Kind {
	case scope.ItemParameter:
		return parameterType(item), nil
	case scope.ItemEachImplicit:
		if t, ok := i.settings.EachOverrides[item.EachNodeID]; ok {
			return t, nil
		}
		return types.Unknown, nil
	case scope.ItemUnresolved:
		return types.Unknown, nil
	}
	if !item.HasValue() {
		return types.Unknown, nil
	}
	return i.infer(item.ValueNodeID)
}

func (i *inferrer) resolveValue(literal string) types.Type {
	if i.settings.Resolver == nil {
		return types.Unknown
	}
	t, ok := i.settings.Resolver.Resolve(i.ctx, Request{Kind: RequestValue, Identifier: literal})
	if !ok || t == nil {
		return types.Unknown
	}
	i.log.Debug("resolved library value", zap.String("identifier", literal), zap.Stringer("type", t))
	return t
}
