// Package types models the type values produced by inference: primitive
// kinds plus literal, defined and union refinements.
package types

// Type is an inferred type value. Implementations are immutable values.
type Type interface {
	Kind() Kind
	// Extended returns the refinement, or "" for a plain primitive.
	Extended() ExtendedKind
	Nullable() bool
	String() string
	isType()
}

// Primitive is a type with no structural refinement.
type Primitive struct {
	K          Kind
	IsNullable bool
}

// NewPrimitive returns a primitive of kind k.
func NewPrimitive(k Kind, nullable bool) Primitive { return Primitive{K: k, IsNullable: nullable} }

// Sentinel and common primitives.
var (
	Any           = Primitive{K: KindAny, IsNullable: true}
	AnyNonNull    = Primitive{K: KindAnyNonNull}
	None          = Primitive{K: KindNone}
	NotApplicable = Primitive{K: KindNotApplicable, IsNullable: true}
	Unknown       = Primitive{K: KindUnknown, IsNullable: true}
	Null          = Primitive{K: KindNull, IsNullable: true}

	Action       = Primitive{K: KindAction}
	Binary       = Primitive{K: KindBinary}
	Date         = Primitive{K: KindDate}
	DateTime     = Primitive{K: KindDateTime}
	DateTimeZone = Primitive{K: KindDateTimeZone}
	Duration     = Primitive{K: KindDuration}
	Function     = Primitive{K: KindFunction}
	List         = Primitive{K: KindList}
	Logical      = Primitive{K: KindLogical}
	Number       = Primitive{K: KindNumber}
	Record       = Primitive{K: KindRecord}
	Table        = Primitive{K: KindTable}
	Text         = Primitive{K: KindText}
	Time         = Primitive{K: KindTime}
	TypeType     = Primitive{K: KindType}
)

func (p Primitive) Kind() Kind             { return p.K }
func (p Primitive) Extended() ExtendedKind { return "" }
func (p Primitive) Nullable() bool         { return p.IsNullable }
func (Primitive) isType()                  {}

// NumberLiteral is a number known from a literal token.
type NumberLiteral struct {
	Literal    string
	Value      float64
	IsNullable bool
}

func (NumberLiteral) Kind() Kind             { return KindNumber }
func (NumberLiteral) Extended() ExtendedKind { return ExtendedNumberLiteral }
func (n NumberLiteral) Nullable() bool       { return n.IsNullable }
func (NumberLiteral) isType()                {}

// TextLiteral is a text value known from a literal token. Literal keeps
// the quoted source form.
type TextLiteral struct {
	Literal    string
	IsNullable bool
}

func (TextLiteral) Kind() Kind             { return KindText }
func (TextLiteral) Extended() ExtendedKind { return ExtendedTextLiteral }
func (t TextLiteral) Nullable() bool       { return t.IsNullable }
func (TextLiteral) isType()                {}

// DefinedList is a list whose element types are known positionally.
type DefinedList struct {
	Elements   []Type
	IsNullable bool
}

func (DefinedList) Kind() Kind             { return KindList }
func (DefinedList) Extended() ExtendedKind { return ExtendedDefinedList }
func (l DefinedList) Nullable() bool       { return l.IsNullable }
func (DefinedList) isType()                {}

// DefinedRecord is a record with known fields. An open record may carry
// more fields than listed.
type DefinedRecord struct {
	Fields     Fields
	IsOpen     bool
	IsNullable bool
}

func (DefinedRecord) Kind() Kind             { return KindRecord }
func (DefinedRecord) Extended() ExtendedKind { return ExtendedDefinedRecord }
func (r DefinedRecord) Nullable() bool       { return r.IsNullable }
func (DefinedRecord) isType()                {}

// DefinedTable is a table with known columns in order.
type DefinedTable struct {
	Fields     Fields
	IsOpen     bool
	IsNullable bool
}

func (DefinedTable) Kind() Kind             { return KindTable }
func (DefinedTable) Extended() ExtendedKind { return ExtendedDefinedTable }
func (t DefinedTable) Nullable() bool       { return t.IsNullable }
func (DefinedTable) isType()                {}

// Parameter describes one function parameter. Kind is empty when the
// parameter has no declared type.
type Parameter struct {
	Name       string
	IsOptional bool
	IsNullable bool
	Kind       Kind
}

// DefinedFunction is a function value with a known signature.
type DefinedFunction struct {
	Parameters []Parameter
	Return     Type
	IsNullable bool
}

func (DefinedFunction) Kind() Kind             { return KindFunction }
func (DefinedFunction) Extended() ExtendedKind { return ExtendedDefinedFunction }
func (f DefinedFunction) Nullable() bool       { return f.IsNullable }
func (DefinedFunction) isType()                {}

// AnyUnion is a value that may be any one of its alternatives. Build
// unions with Union so they stay flat and deduplicated.
type AnyUnion struct {
	Alternatives []Type
	IsNullable   bool
}

func (AnyUnion) Kind() Kind             { return KindAny }
func (AnyUnion) Extended() ExtendedKind { return ExtendedAnyUnion }
func (u AnyUnion) Nullable() bool       { return u.IsNullable }
func (AnyUnion) isType()                {}

// RecordType is the value of a record type expression such as
// `type [a = number]`.
type RecordType struct {
	Fields     Fields
	IsOpen     bool
	IsNullable bool
}

func (RecordType) Kind() Kind             { return KindType }
func (RecordType) Extended() ExtendedKind { return ExtendedRecordType }
func (r RecordType) Nullable() bool       { return r.IsNullable }
func (RecordType) isType()                {}

// TableType is the value of a table type expression.
type TableType struct {
	Fields     Fields
	IsOpen     bool
	IsNullable bool
}

func (TableType) Kind() Kind             { return KindType }
func (TableType) Extended() ExtendedKind { return ExtendedTableType }
func (t TableType) Nullable() bool       { return t.IsNullable }
func (TableType) isType()                {}

// ListType is the value of a list type expression such as `type {text}`.
type ListType struct {
	Item       Type
	IsNullable bool
}

func (ListType) Kind() Kind             { return KindType }
func (ListType) Extended() ExtendedKind { return ExtendedListType }
func (l ListType) Nullable() bool       { return l.IsNullable }
func (ListType) isType()                {}

// FunctionType is the value of a function type expression.
type FunctionType struct {
	Parameters []Parameter
	Return     Type
	IsNullable bool
}

func (FunctionType) Kind() Kind             { return KindType }
func (FunctionType) Extended() ExtendedKind { return ExtendedFunctionType }
func (f FunctionType) Nullable() bool       { return f.IsNullable }
func (FunctionType) isType()                {}
