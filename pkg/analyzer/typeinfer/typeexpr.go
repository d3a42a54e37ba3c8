package typeinfer

import (
	"github.com/panbanda/pqinspect/pkg/ast"
	"github.com/panbanda/pqinspect/pkg/types"
)

// typeValue types a type expression: the value of `type [a = number]` is a
// RecordType describing records with a number field.
func (i *inferrer) typeValue(ref ast.NodeRef) (types.Type, error) {
	switch ref.Kind() {
	case ast.KindPrimitiveType:
		return types.TypeType, nil
	case ast.KindNullableType:
		inner, ok, err := i.g.ExpectChild(ref.ID(), 1)
		if err != nil || !ok {
			return types.TypeType, err
		}
		t, err := i.typeValue(inner)
		if err != nil {
			return nil, err
		}
		return types.WithNullable(t, true), nil
	case ast.KindRecordType:
		d, err := i.describe(ref)
		if err != nil {
			return nil, err
		}
		if r, ok := d.(types.DefinedRecord); ok {
			return types.RecordType{Fields: r.Fields, IsOpen: r.IsOpen}, nil
		}
		return types.TypeType, nil
	case ast.KindTableType:
		d, err := i.describe(ref)
		if err != nil {
			return nil, err
		}
		if t, ok := d.(types.DefinedTable); ok {
			return types.TableType{Fields: t.Fields, IsOpen: t.IsOpen}, nil
		}
		return types.TypeType, nil
	case ast.KindListType:
		item, ok, err := i.g.ExpectChild(ref.ID(), 1)
		if err != nil {
			return nil, err
		}
		if !ok {
			return types.ListType{Item: types.Unknown}, nil
		}
		d, err := i.describe(item)
		if err != nil {
			return nil, err
		}
		return types.ListType{Item: d}, nil
	case ast.KindFunctionType:
		d, err := i.describe(ref)
		if err != nil {
			return nil, err
		}
		if f, ok := d.(types.DefinedFunction); ok {
			return types.FunctionType{Parameters: f.Parameters, Return: f.Return}, nil
		}
		return types.TypeType, nil
	}

	// Any other primary expression used as a type, such as a name bound to
	// a type value.
	t, err := i.infer(ref.ID())
	if err != nil {
		return nil, err
	}
	if types.IsUnknown(t) || t.Kind() == types.KindType {
		return t, nil
	}
	return types.TypeType, nil
}

// describe returns the type of the values a type expression admits.
func (i *inferrer) describe(ref ast.NodeRef) (types.Type, error) {
	switch ref.Kind() {
	case ast.KindPrimitiveType:
		p, err := types.ParsePrimitive(ref.Literal())
		if err != nil {
			return types.Unknown, nil
		}
		return p, nil
	case ast.KindNullablePrimitiveType, ast.KindNullableType:
		inner, ok, err := i.g.ExpectChild(ref.ID(), 1)
		if err != nil || !ok {
			return types.Unknown, err
		}
		t, err := i.describe(inner)
		if err != nil {
			return nil, err
		}
		return types.WithNullable(t, true), nil
	case ast.KindRecordType:
		spec, ok, err := i.g.ExpectChild(ref.ID(), 0, ast.KindFieldSpecificationList)
		if err != nil || !ok {
			return types.Record, err
		}
		fields, open, err := i.fieldSpecifications(spec.ID())
		if err != nil {
			return nil, err
		}
		return types.DefinedRecord{Fields: fields, IsOpen: open}, nil
	case ast.KindTableType:
		row, ok, err := i.g.ExpectChild(ref.ID(), 1)
		if err != nil || !ok {
			return types.Table, err
		}
		if row.Kind() != ast.KindFieldSpecificationList {
			return types.Table, nil
		}
		fields, open, err := i.fieldSpecifications(row.ID())
		if err != nil {
			return nil, err
		}
		return types.DefinedTable{Fields: fields, IsOpen: open}, nil
	case ast.KindListType:
		return types.List, nil
	case ast.KindFunctionType:
		params, err := i.parameters(ref.ID(), 1)
		if err != nil {
			return nil, err
		}
		ret := types.Type(types.Any)
		if as, ok, err := i.g.OptionalChild(ref.ID(), 2, ast.KindAsType); err != nil {
			return nil, err
		} else if ok {
			if typ, ok := i.g.Child(as.ID(), 1); ok {
				if ret, err = i.describe(typ); err != nil {
					return nil, err
				}
			}
		}
		return types.DefinedFunction{Parameters: params, Return: ret}, nil
	}
	return types.Any, nil
}

// fieldSpecifications reads `[a = number, optional b, ...]`. Fields
// without a type are any.
func (i *inferrer) fieldSpecifications(id int) (types.Fields, bool, error) {
	_, open := i.g.Child(id, 2)
	content, ok, err := i.g.ExpectChild(id, 1, ast.KindArrayWrapper)
	if err != nil || !ok {
		return nil, open, err
	}
	var fields types.Fields
	for _, csv := range i.g.ChildIDs(content.ID()) {
		spec, ok, err := i.g.ExpectChild(csv, ast.AttrCsvNode, ast.KindFieldSpecification)
		if err != nil {
			return nil, false, err
		}
		if !ok {
			continue
		}
		name, ok, err := i.g.ExpectChild(spec.ID(), 1, ast.KindGeneralizedIdentifier)
		if err != nil {
			return nil, false, err
		}
		if !ok {
			continue
		}
		t := types.Type(types.Any)
		if ts, ok := i.g.Child(spec.ID(), 2); ok {
			if typ, ok := i.g.Child(ts.ID(), 1); ok {
				if t, err = i.describe(typ); err != nil {
					return nil, false, err
				}
			}
		}
		if _, optional := i.g.Child(spec.ID(), 0); optional {
			t = types.WithNullable(t, true)
		}
		fields = fields.With(FieldName(name.Literal()), t)
	}
	return fields, open, nil
}
