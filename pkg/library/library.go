// Package library loads host-library symbol definitions and answers type
// inference requests for identifiers no document binding defines.
package library

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"sort"

	"go.lsp.dev/protocol"
	"gopkg.in/yaml.v3"

	"github.com/panbanda/pqinspect/pkg/analyzer/autocomplete"
	"github.com/panbanda/pqinspect/pkg/analyzer/typeinfer"
	"github.com/panbanda/pqinspect/pkg/types"
)

//go:embed standard.yaml
var standardDefinitions []byte

// ErrUnknownType is returned when a definition names a type that is not a
// primitive type name.
var ErrUnknownType = errors.New("unknown type")

// Definitions is the YAML document format.
type Definitions struct {
	Values    []ValueDefinition    `yaml:"values"`
	Functions []FunctionDefinition `yaml:"functions"`
}

// ValueDefinition declares a non-function symbol.
type ValueDefinition struct {
	Name        string `yaml:"name"`
	Type        string `yaml:"type"`
	Description string `yaml:"description,omitempty"`
}

// FunctionDefinition declares a function symbol.
type FunctionDefinition struct {
	Name        string                `yaml:"name"`
	Parameters  []ParameterDefinition `yaml:"parameters,omitempty"`
	Returns     string                `yaml:"returns"`
	Description string                `yaml:"description,omitempty"`
}

// ParameterDefinition declares one function parameter.
type ParameterDefinition struct {
	Name     string `yaml:"name"`
	Type     string `yaml:"type"`
	Optional bool   `yaml:"optional,omitempty"`
}

// Symbol is a resolved library member.
type Symbol struct {
	Name        string     `json:"name" toon:"name"`
	Type        types.Type `json:"-" toon:"-"`
	Description string     `json:"description,omitempty" toon:"description,omitempty"`
}

// IsFunction reports whether the symbol can be invoked.
func (s Symbol) IsFunction() bool {
	return s.Type != nil && s.Type.Kind() == types.KindFunction
}

// Library is an immutable-after-load set of symbols. It implements
// typeinfer.Resolver.
type Library struct {
	symbols map[string]Symbol
	names   []string
}

var _ typeinfer.Resolver = (*Library)(nil)

// New returns an empty library.
func New() *Library {
	return &Library{symbols: make(map[string]Symbol)}
}

// Standard returns the embedded standard library subset.
func Standard() (*Library, error) {
	lib, err := Parse(standardDefinitions)
	if err != nil {
		return nil, fmt.Errorf("standard library: %w", err)
	}
	return lib, nil
}

// Parse reads YAML definitions.
func Parse(data []byte) (*Library, error) {
	var defs Definitions
	if err := yaml.Unmarshal(data, &defs); err != nil {
		return nil, fmt.Errorf("parse library definitions: %w", err)
	}
	lib := New()
	if err := lib.AddDefinitions(defs); err != nil {
		return nil, err
	}
	return lib, nil
}

// Load reads YAML definitions from a file.
func Load(path string) (*Library, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	lib, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return lib, nil
}

// AddDefinitions adds every value and function in defs. A later
// definition of a name replaces an earlier one.
func (l *Library) AddDefinitions(defs Definitions) error {
	for _, v := range defs.Values {
		t, err := parseType(v.Type)
		if err != nil {
			return fmt.Errorf("value %s: %w", v.Name, err)
		}
		l.Add(Symbol{Name: v.Name, Type: t, Description: v.Description})
	}
	for _, f := range defs.Functions {
		t, err := functionType(f)
		if err != nil {
			return fmt.Errorf("function %s: %w", f.Name, err)
		}
		l.Add(Symbol{Name: f.Name, Type: t, Description: f.Description})
	}
	return nil
}

// Add inserts or replaces a symbol.
func (l *Library) Add(sym Symbol) {
	if sym.Name == "" {
		return
	}
	if _, exists := l.symbols[sym.Name]; !exists {
		l.names = append(l.names, sym.Name)
		sort.Strings(l.names)
	}
	l.symbols[sym.Name] = sym
}

// Merge adds every symbol of other, replacing same-named symbols.
func (l *Library) Merge(other *Library) {
	if other == nil {
		return
	}
	for _, name := range other.names {
		l.Add(other.symbols[name])
	}
}

// Lookup returns a symbol by name.
func (l *Library) Lookup(name string) (Symbol, bool) {
	if l == nil {
		return Symbol{}, false
	}
	sym, ok := l.symbols[name]
	return sym, ok
}

// Names returns the symbol names in sorted order.
func (l *Library) Names() []string {
	if l == nil {
		return nil
	}
	return append([]string(nil), l.names...)
}

// Len returns the number of symbols.
func (l *Library) Len() int {
	if l == nil {
		return 0
	}
	return len(l.names)
}

// Resolve answers a value request with the symbol type and an invocation
// request with the function's return type. Invoking a non-function symbol
// yields None.
func (l *Library) Resolve(_ context.Context, req typeinfer.Request) (types.Type, bool) {
	sym, ok := l.Lookup(req.Identifier)
	if !ok {
		return nil, false
	}
	if req.Kind != typeinfer.RequestInvocation {
		return sym.Type, true
	}
	fn, ok := sym.Type.(types.DefinedFunction)
	if !ok {
		return types.None, true
	}
	if fn.Return == nil {
		return types.Any, true
	}
	return fn.Return, true
}

// Candidates lists every symbol as an unranked completion.
func (l *Library) Candidates() []autocomplete.Candidate {
	if l == nil {
		return nil
	}
	out := make([]autocomplete.Candidate, 0, len(l.names))
	for _, name := range l.names {
		sym := l.symbols[name]
		kind := protocol.CompletionItemKindConstant
		if sym.IsFunction() {
			kind = protocol.CompletionItemKindFunction
		}
		out = append(out, autocomplete.Candidate{Label: name, Kind: kind, Type: sym.Type})
	}
	return out
}

func functionType(f FunctionDefinition) (types.DefinedFunction, error) {
	fn := types.DefinedFunction{Return: types.Any}
	if f.Returns != "" {
		ret, err := parseType(f.Returns)
		if err != nil {
			return fn, fmt.Errorf("returns: %w", err)
		}
		fn.Return = ret
	}
	for _, p := range f.Parameters {
		t, err := parseType(p.Type)
		if err != nil {
			return fn, fmt.Errorf("parameter %s: %w", p.Name, err)
		}
		fn.Parameters = append(fn.Parameters, types.Parameter{
			Name:       p.Name,
			IsOptional: p.Optional,
			IsNullable: t.Nullable() || p.Optional,
			Kind:       t.Kind(),
		})
	}
	return fn, nil
}

// parseType reads a primitive type name; an empty name means any.
func parseType(text string) (types.Primitive, error) {
	if text == "" {
		return types.Any, nil
	}
	t, err := types.ParsePrimitive(text)
	if err != nil {
		return types.Primitive{}, fmt.Errorf("%w %q", ErrUnknownType, text)
	}
	return t, nil
}
