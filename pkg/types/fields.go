package types

// Field is one named entry of a record or table shape.
type Field struct {
	Name string
	Type Type
}

// Fields is an ordered field list with unique names.
type Fields []Field

// NewFields builds Fields from name/type pairs; a repeated name keeps its
// first position and its last type.
func NewFields(fields ...Field) Fields {
	var out Fields
	for _, f := range fields {
		out = out.With(f.Name, f.Type)
	}
	return out
}

// Get returns the type of a named field.
func (fs Fields) Get(name string) (Type, bool) {
	for _, f := range fs {
		if f.Name == name {
			return f.Type, true
		}
	}
	return nil, false
}

// Names returns field names in order.
func (fs Fields) Names() []string {
	names := make([]string, len(fs))
	for i, f := range fs {
		names[i] = f.Name
	}
	return names
}

// With returns a copy with name set to t, replacing in place when the
// name already exists.
func (fs Fields) With(name string, t Type) Fields {
	out := make(Fields, len(fs), len(fs)+1)
	copy(out, fs)
	for i := range out {
		if out[i].Name == name {
			out[i].Type = t
			return out
		}
	}
	return append(out, Field{Name: name, Type: t})
}

// Merge returns fs followed by other's new fields; on a name collision
// other's type wins.
func (fs Fields) Merge(other Fields) Fields {
	out := append(Fields(nil), fs...)
	for _, f := range other {
		out = out.With(f.Name, f.Type)
	}
	return out
}
