package types

import "github.com/cespare/xxhash/v2"

// Equal reports whether a and b are the same type value.
func Equal(a, b Type) bool { return Key(a) == Key(b) }

// Fingerprint hashes the canonical key of t.
func Fingerprint(t Type) uint64 { return xxhash.Sum64String(Key(t)) }

// Union combines alternatives into one type. Nested unions are flattened
// and duplicates dropped; a single survivor is returned as is. An empty
// union is None.
func Union(alts ...Type) Type {
	var flat []Type
	seen := make(map[uint64]bool)
	var add func(t Type)
	add = func(t Type) {
		if u, ok := t.(AnyUnion); ok {
			for _, a := range u.Alternatives {
				add(a)
			}
			return
		}
		fp := Fingerprint(t)
		if seen[fp] {
			return
		}
		seen[fp] = true
		flat = append(flat, t)
	}
	for _, a := range alts {
		if a != nil {
			add(a)
		}
	}

	switch len(flat) {
	case 0:
		return None
	case 1:
		return flat[0]
	}
	nullable := false
	for _, t := range flat {
		nullable = nullable || t.Nullable()
	}
	return AnyUnion{Alternatives: flat, IsNullable: nullable}
}

// ToPrimitive drops structural refinement, keeping kind and nullability.
func ToPrimitive(t Type) Primitive {
	if p, ok := t.(Primitive); ok {
		return p
	}
	return Primitive{K: t.Kind(), IsNullable: t.Nullable()}
}

// WithNullable returns t with its nullability replaced.
func WithNullable(t Type, nullable bool) Type {
	switch v := t.(type) {
	case Primitive:
		v.IsNullable = nullable
		return v
	case NumberLiteral:
		v.IsNullable = nullable
		return v
	case TextLiteral:
		v.IsNullable = nullable
		return v
	case DefinedList:
		v.IsNullable = nullable
		return v
	case DefinedRecord:
		v.IsNullable = nullable
		return v
	case DefinedTable:
		v.IsNullable = nullable
		return v
	case DefinedFunction:
		v.IsNullable = nullable
		return v
	case AnyUnion:
		v.IsNullable = nullable
		return v
	case RecordType:
		v.IsNullable = nullable
		return v
	case TableType:
		v.IsNullable = nullable
		return v
	case ListType:
		v.IsNullable = nullable
		return v
	case FunctionType:
		v.IsNullable = nullable
		return v
	}
	return t
}

// NonNullable strips null from t: null itself becomes None, union
// alternatives are stripped individually and Any narrows to AnyNonNull.
func NonNullable(t Type) Type {
	switch t.Kind() {
	case KindNull:
		return None
	case KindUnknown, KindNotApplicable:
		return t
	}
	if u, ok := t.(AnyUnion); ok {
		var alts []Type
		for _, a := range u.Alternatives {
			if a.Kind() == KindNull {
				continue
			}
			alts = append(alts, NonNullable(a))
		}
		return Union(alts...)
	}
	if p, ok := t.(Primitive); ok && p.K == KindAny {
		return AnyNonNull
	}
	return WithNullable(t, false)
}

// IsUnknown reports whether t is the Unknown sentinel.
func IsUnknown(t Type) bool { return t != nil && t.Kind() == KindUnknown }

// IsNone reports whether t is the None sentinel.
func IsNone(t Type) bool { return t != nil && t.Kind() == KindNone }

// IsAnyLike reports whether t is Any or AnyNonNull without refinement.
func IsAnyLike(t Type) bool {
	p, ok := t.(Primitive)
	return ok && (p.K == KindAny || p.K == KindAnyNonNull)
}
