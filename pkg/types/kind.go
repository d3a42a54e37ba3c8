package types

import (
	"fmt"
	"strings"
)

// Kind is the primitive classification every type value carries.
type Kind string

const (
	KindAction        Kind = "Action"
	KindAny           Kind = "Any"
	KindAnyNonNull    Kind = "AnyNonNull"
	KindBinary        Kind = "Binary"
	KindDate          Kind = "Date"
	KindDateTime      Kind = "DateTime"
	KindDateTimeZone  Kind = "DateTimeZone"
	KindDuration      Kind = "Duration"
	KindFunction      Kind = "Function"
	KindList          Kind = "List"
	KindLogical       Kind = "Logical"
	KindNone          Kind = "None"
	KindNotApplicable Kind = "NotApplicable"
	KindNull          Kind = "Null"
	KindNumber        Kind = "Number"
	KindRecord        Kind = "Record"
	KindTable         Kind = "Table"
	KindText          Kind = "Text"
	KindTime          Kind = "Time"
	KindType          Kind = "Type"
	KindUnknown       Kind = "Unknown"
)

// ExtendedKind refines a Kind with structural detail. The zero value
// marks a plain primitive.
type ExtendedKind string

const (
	ExtendedAnyUnion        ExtendedKind = "AnyUnion"
	ExtendedDefinedFunction ExtendedKind = "DefinedFunction"
	ExtendedDefinedList     ExtendedKind = "DefinedList"
	ExtendedDefinedRecord   ExtendedKind = "DefinedRecord"
	ExtendedDefinedTable    ExtendedKind = "DefinedTable"
	ExtendedFunctionType    ExtendedKind = "FunctionType"
	ExtendedListType        ExtendedKind = "ListType"
	ExtendedNumberLiteral   ExtendedKind = "NumberLiteral"
	ExtendedRecordType      ExtendedKind = "RecordType"
	ExtendedTableType       ExtendedKind = "TableType"
	ExtendedTextLiteral     ExtendedKind = "TextLiteral"
)

var kindNames = map[string]Kind{
	"action":        KindAction,
	"any":           KindAny,
	"anynonnull":    KindAnyNonNull,
	"binary":        KindBinary,
	"date":          KindDate,
	"datetime":      KindDateTime,
	"datetimezone":  KindDateTimeZone,
	"duration":      KindDuration,
	"function":      KindFunction,
	"list":          KindList,
	"logical":       KindLogical,
	"none":          KindNone,
	"null":          KindNull,
	"number":        KindNumber,
	"record":        KindRecord,
	"table":         KindTable,
	"text":          KindText,
	"time":          KindTime,
	"type":          KindType,
	"unknown":       KindUnknown,
	"notapplicable": KindNotApplicable,
}

// ParseKind maps a primitive type name as written in source ("number",
// "datetimezone") to its Kind.
func ParseKind(name string) (Kind, error) {
	if k, ok := kindNames[strings.ToLower(strings.TrimSpace(name))]; ok {
		return k, nil
	}
	return "", fmt.Errorf("unknown primitive type %q", name)
}

// ParsePrimitive parses "number" or "nullable number" into a Primitive.
func ParsePrimitive(text string) (Primitive, error) {
	text = strings.TrimSpace(text)
	nullable := false
	if rest, ok := strings.CutPrefix(text, "nullable "); ok {
		nullable = true
		text = rest
	}
	k, err := ParseKind(text)
	if err != nil {
		return Primitive{}, err
	}
	return NewPrimitive(k, nullable || k == KindNull || k == KindAny), nil
}

// SourceName returns the name a Kind is written with in source.
func (k Kind) SourceName() string { return strings.ToLower(string(k)) }
