package scope

import "github.com/panbanda/pqinspect/pkg/types"

// ItemKind identifies what introduced a binding.
type ItemKind string

const (
	ItemLetVariable   ItemKind = "LetVariable"
	ItemRecordField   ItemKind = "RecordField"
	ItemSectionMember ItemKind = "SectionMember"
	ItemParameter     ItemKind = "Parameter"
	ItemEachImplicit  ItemKind = "EachImplicit"
	// ItemUnresolved is a declared name whose value the parser has not
	// produced yet, as in `let a = |`.
	ItemUnresolved ItemKind = "Unresolved"
)

// String returns the string representation.
func (k ItemKind) String() string {
	return string(k)
}

// Item is one binding visible at a node.
type Item struct {
	Kind ItemKind `json:"kind"`
	// Key is the identifier as declared.
	Key       string `json:"key"`
	KeyNodeID int    `json:"keyNodeId,omitempty"`
	// ValueNodeID is 0 when the binding has no value node.
	ValueNodeID int `json:"valueNodeId,omitempty"`
	// IsRecursive is set when the inspected node lies inside the binding's
	// own value. Such bindings are keyed with a leading '@'.
	IsRecursive bool `json:"isRecursive,omitempty"`

	// Parameter metadata.
	IsOptional   bool       `json:"isOptional,omitempty"`
	IsNullable   bool       `json:"isNullable,omitempty"`
	DeclaredKind types.Kind `json:"declaredKind,omitempty"`

	// EachNodeID is the each expression an EachImplicit binding belongs to.
	EachNodeID int `json:"eachNodeId,omitempty"`
}

// HasValue reports whether the binding points at a value expression.
func (i Item) HasValue() bool { return i.ValueNodeID != 0 }

// NodeScope is an ordered map of the bindings visible at one node,
// innermost first. Each identifier appears at most once; alternate
// spellings of a key (a and #"a") are lookup aliases, not entries.
type NodeScope struct {
	keys    []string
	items   map[string]Item
	aliases map[string]string
}

// NewNodeScope returns an empty scope.
func NewNodeScope() *NodeScope {
	return &NodeScope{items: make(map[string]Item), aliases: make(map[string]string)}
}

// Get looks up a binding by key or alias.
func (s *NodeScope) Get(key string) (Item, bool) {
	if item, ok := s.items[key]; ok {
		return item, true
	}
	if primary, ok := s.aliases[key]; ok {
		item, ok := s.items[primary]
		return item, ok
	}
	return Item{}, false
}

// Keys returns binding keys in insertion order.
func (s *NodeScope) Keys() []string { return append([]string(nil), s.keys...) }

// Len returns the number of bindings.
func (s *NodeScope) Len() int { return len(s.keys) }

// Each calls fn for every binding in insertion order.
func (s *NodeScope) Each(fn func(key string, item Item)) {
	for _, k := range s.keys {
		fn(k, s.items[k])
	}
}

// add inserts a binding unless the key, or any alias, is already bound by
// an inner construct.
func (s *NodeScope) add(key string, item Item, aliases ...string) {
	if _, ok := s.Get(key); ok {
		return
	}
	s.keys = append(s.keys, key)
	s.items[key] = item
	for _, a := range aliases {
		if a == key {
			continue
		}
		if _, taken := s.Get(a); !taken {
			s.aliases[a] = key
		}
	}
}

func (s *NodeScope) aliasesOf(key string) []string {
	var out []string
	for alias, primary := range s.aliases {
		if primary == key {
			out = append(out, alias)
		}
	}
	return out
}

// Cache memoizes scopes by node id. It is not safe for concurrent use.
type Cache map[int]*NodeScope
