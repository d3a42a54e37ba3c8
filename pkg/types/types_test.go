package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUnion(t *testing.T) {
	one := NumberLiteral{Literal: "1", Value: 1}

	tests := []struct {
		name string
		alts []Type
		want Type
	}{
		{"empty is none", nil, None},
		{"single collapses", []Type{Text}, Text},
		{"duplicates collapse", []Type{Text, Text}, Text},
		{"distinct", []Type{one, Logical}, AnyUnion{Alternatives: []Type{one, Logical}}},
		{"nested flatten", []Type{Text, AnyUnion{Alternatives: []Type{Number, Text}}}, AnyUnion{Alternatives: []Type{Text, Number}}},
		{"nullable if any alternative is", []Type{Text, Null}, AnyUnion{Alternatives: []Type{Text, Null}, IsNullable: true}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Union(tt.alts...)
			assert.True(t, Equal(tt.want, got), "want %s, got %s", tt.want, got)
		})
	}
}

func TestEqual_UnionOrderInsensitive(t *testing.T) {
	a := Union(Number, Text)
	b := Union(Text, Number)
	assert.True(t, Equal(a, b))
	assert.Equal(t, Fingerprint(a), Fingerprint(b))
	assert.False(t, Equal(Number, NumberLiteral{Literal: "1", Value: 1}))
	assert.False(t, Equal(Number, NewPrimitive(KindNumber, true)))
}

func TestFields(t *testing.T) {
	fs := NewFields(Field{"a", Number}, Field{"b", Text}, Field{"a", Logical})
	assert.Equal(t, []string{"a", "b"}, fs.Names())

	got, ok := fs.Get("a")
	require.True(t, ok)
	assert.Equal(t, Logical, got)

	merged := fs.Merge(NewFields(Field{"c", Date}, Field{"b", Null}))
	assert.Equal(t, []string{"a", "b", "c"}, merged.Names())
	b, _ := merged.Get("b")
	assert.Equal(t, Null, b)
	// Merge does not modify the receiver.
	b, _ = fs.Get("b")
	assert.Equal(t, Text, b)
}

func TestToPrimitive(t *testing.T) {
	rec := DefinedRecord{Fields: NewFields(Field{"a", Number}), IsNullable: true}
	assert.Equal(t, Primitive{K: KindRecord, IsNullable: true}, ToPrimitive(rec))
	assert.Equal(t, Number, ToPrimitive(NumberLiteral{Literal: "1", Value: 1}))
	assert.Equal(t, KindAny, ToPrimitive(Union(Number, Text)).K)
}

func TestNonNullable(t *testing.T) {
	assert.Equal(t, None, NonNullable(Null))
	assert.Equal(t, AnyNonNull, NonNullable(Any))
	assert.Equal(t, Text, NonNullable(NewPrimitive(KindText, true)))
	assert.True(t, Equal(Number, NonNullable(Union(Null, NewPrimitive(KindNumber, true)))))
}

func TestParsePrimitive(t *testing.T) {
	tests := []struct {
		in      string
		want    Primitive
		wantErr bool
	}{
		{"number", Number, false},
		{"nullable text", NewPrimitive(KindText, true), false},
		{"DateTimeZone", DateTimeZone, false},
		{"any", Any, false},
		{"null", Null, false},
		{"widget", Primitive{}, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParsePrimitive(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestString(t *testing.T) {
	tests := []struct {
		t    Type
		want string
	}{
		{Number, "number"},
		{NewPrimitive(KindText, true), "nullable text"},
		{Any, "any"},
		{NumberLiteral{Literal: "1", Value: 1}, "1"},
		{DefinedRecord{Fields: NewFields(Field{"a", Number}), IsOpen: true}, "[a: number, ...]"},
		{DefinedTable{Fields: NewFields(Field{"a", Text})}, "table [a: text]"},
		{DefinedList{Elements: []Type{Number, Text}}, "{number, text}"},
		{DefinedFunction{Parameters: []Parameter{{Name: "x", Kind: KindNumber}, {Name: "y", IsOptional: true}}, Return: Text}, "(x as number, optional y) => text"},
		{Union(Number, Logical), "number | logical"},
		{RecordType{Fields: NewFields(Field{"a", Number})}, "type [a = number]"},
		{ListType{Item: Text}, "type {text}"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.t.String())
	}
}
