package types

import (
	"sort"
	"strconv"
	"strings"
)

func nullablePrefix(nullable bool) string {
	if nullable {
		return "nullable "
	}
	return ""
}

func (p Primitive) String() string {
	switch p.K {
	case KindAny, KindNull, KindUnknown, KindNotApplicable, KindNone:
		return primitiveName(p.K)
	}
	return nullablePrefix(p.IsNullable) + primitiveName(p.K)
}

func primitiveName(k Kind) string {
	switch k {
	case KindNotApplicable:
		return "not applicable"
	case KindAnyNonNull:
		return "anynonnull"
	}
	return k.SourceName()
}

func (n NumberLiteral) String() string { return nullablePrefix(n.IsNullable) + n.Literal }

func (t TextLiteral) String() string { return nullablePrefix(t.IsNullable) + t.Literal }

func (l DefinedList) String() string {
	parts := make([]string, len(l.Elements))
	for i, e := range l.Elements {
		parts[i] = e.String()
	}
	return nullablePrefix(l.IsNullable) + "{" + strings.Join(parts, ", ") + "}"
}

func formatFields(fs Fields, open bool, sep string) string {
	parts := make([]string, 0, len(fs)+1)
	for _, f := range fs {
		parts = append(parts, f.Name+sep+f.Type.String())
	}
	if open {
		parts = append(parts, "...")
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

func (r DefinedRecord) String() string {
	return nullablePrefix(r.IsNullable) + formatFields(r.Fields, r.IsOpen, ": ")
}

func (t DefinedTable) String() string {
	return nullablePrefix(t.IsNullable) + "table " + formatFields(t.Fields, t.IsOpen, ": ")
}

func formatParameters(params []Parameter) string {
	parts := make([]string, len(params))
	for i, p := range params {
		var b strings.Builder
		if p.IsOptional {
			b.WriteString("optional ")
		}
		b.WriteString(p.Name)
		if p.Kind != "" {
			b.WriteString(" as ")
			b.WriteString(NewPrimitive(p.Kind, p.IsNullable).String())
		}
		parts[i] = b.String()
	}
	return "(" + strings.Join(parts, ", ") + ")"
}

func returnString(t Type) string {
	if t == nil {
		return Any.String()
	}
	return t.String()
}

func (f DefinedFunction) String() string {
	return nullablePrefix(f.IsNullable) + formatParameters(f.Parameters) + " => " + returnString(f.Return)
}

func (u AnyUnion) String() string {
	parts := make([]string, len(u.Alternatives))
	for i, a := range u.Alternatives {
		parts[i] = a.String()
	}
	return strings.Join(parts, " | ")
}

func (r RecordType) String() string {
	return nullablePrefix(r.IsNullable) + "type " + formatFields(r.Fields, r.IsOpen, " = ")
}

func (t TableType) String() string {
	return nullablePrefix(t.IsNullable) + "type table " + formatFields(t.Fields, t.IsOpen, " = ")
}

func (l ListType) String() string {
	return nullablePrefix(l.IsNullable) + "type {" + returnString(l.Item) + "}"
}

func (f FunctionType) String() string {
	return nullablePrefix(f.IsNullable) + "type function " + formatParameters(f.Parameters) + " as " + returnString(f.Return)
}

// Key returns a canonical encoding of t. Two types are equal exactly when
// their keys are equal; union alternatives are order-insensitive.
func Key(t Type) string {
	var b strings.Builder
	writeKey(&b, t)
	return b.String()
}

func writeKey(b *strings.Builder, t Type) {
	if t == nil {
		b.WriteString("<nil>")
		return
	}
	b.WriteString(string(t.Kind()))
	b.WriteByte('/')
	b.WriteString(string(t.Extended()))
	if t.Nullable() {
		b.WriteString("?")
	}
	switch v := t.(type) {
	case NumberLiteral:
		b.WriteString("=" + strconv.FormatFloat(v.Value, 'g', -1, 64))
	case TextLiteral:
		b.WriteString("=" + strconv.Quote(v.Literal))
	case DefinedList:
		writeList(b, v.Elements)
	case DefinedRecord:
		writeFields(b, v.Fields, v.IsOpen)
	case DefinedTable:
		writeFields(b, v.Fields, v.IsOpen)
	case RecordType:
		writeFields(b, v.Fields, v.IsOpen)
	case TableType:
		writeFields(b, v.Fields, v.IsOpen)
	case ListType:
		b.WriteByte('{')
		writeKey(b, v.Item)
		b.WriteByte('}')
	case DefinedFunction:
		writeParams(b, v.Parameters)
		writeKey(b, v.Return)
	case FunctionType:
		writeParams(b, v.Parameters)
		writeKey(b, v.Return)
	case AnyUnion:
		keys := make([]string, len(v.Alternatives))
		for i, a := range v.Alternatives {
			keys[i] = Key(a)
		}
		sort.Strings(keys)
		b.WriteString("<" + strings.Join(keys, "|") + ">")
	}
}

func writeList(b *strings.Builder, elems []Type) {
	b.WriteByte('{')
	for i, e := range elems {
		if i > 0 {
			b.WriteByte(',')
		}
		writeKey(b, e)
	}
	b.WriteByte('}')
}

func writeFields(b *strings.Builder, fs Fields, open bool) {
	b.WriteByte('[')
	for i, f := range fs {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.Quote(f.Name))
		b.WriteByte(':')
		writeKey(b, f.Type)
	}
	if open {
		b.WriteString(",...")
	}
	b.WriteByte(']')
}

func writeParams(b *strings.Builder, params []Parameter) {
	b.WriteByte('(')
	for i, p := range params {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.Quote(p.Name))
		if p.IsOptional {
			b.WriteString(" opt")
		}
		if p.IsNullable {
			b.WriteString(" null")
		}
		b.WriteString(" " + string(p.Kind))
	}
	b.WriteByte(')')
}
