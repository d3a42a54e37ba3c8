package typeinfer

import (
	"context"

	"go.uber.org/zap"

	"github.com/panbanda/pqinspect/pkg/analyzer/scope"
	"github.com/panbanda/pqinspect/pkg/types"
)

// Strategy selects how much structure inference keeps.
type Strategy string

const (
	// StrategyExtended infers literal, defined and union types.
	StrategyExtended Strategy = "extended"
	// StrategyPrimitive collapses every result to its primitive kind.
	StrategyPrimitive Strategy = "primitive"
)

// RequestKind distinguishes value lookups from invocations.
type RequestKind string

const (
	RequestValue      RequestKind = "value"
	RequestInvocation RequestKind = "invocation"
)

// Request asks an external resolver about an identifier no binding in
// the document defines.
type Request struct {
	Kind       RequestKind
	Identifier string
	// Arguments holds inferred argument types for invocation requests.
	Arguments []types.Type
}

// Resolver answers requests for host-library symbols. Returning false
// means the identifier is not a library symbol.
type Resolver interface {
	Resolve(ctx context.Context, req Request) (types.Type, bool)
}

// ResolverFunc adapts a function to Resolver.
type ResolverFunc func(ctx context.Context, req Request) (types.Type, bool)

// Resolve calls f.
func (f ResolverFunc) Resolve(ctx context.Context, req Request) (types.Type, bool) {
	return f(ctx, req)
}

// Settings configures an inference pass.
type Settings struct {
	Strategy Strategy
	// Resolver may be nil.
	Resolver Resolver
	// EachOverrides types the `_` of an each expression, keyed by the each
	// node id.
	EachOverrides map[int]types.Type
	// Logger defaults to a no-op logger.
	Logger *zap.Logger
}

// DefaultSettings returns extended inference with no resolver.
func DefaultSettings() Settings {
	return Settings{Strategy: StrategyExtended}
}

// Stats counts cache behaviour across passes.
type Stats struct {
	Hits   int `json:"hits"`
	Misses int `json:"misses"`
}

// Cache holds inferred types and scopes for one document version. Given
// is read-only to inference; results are written to Delta. The zero value
// is ready to use. A Cache is not safe for concurrent use.
//
// Delta holds types for a single strategy: a pass under a different
// strategy than the one that filled it clears Delta first. Given and
// Scopes do not depend on the strategy and are kept.
type Cache struct {
	Given    map[int]types.Type
	Delta    map[int]types.Type
	Scopes   scope.Cache
	stats    Stats
	strategy Strategy
}

// NewCache returns an empty cache.
func NewCache() *Cache {
	return &Cache{
		Given:  make(map[int]types.Type),
		Delta:  make(map[int]types.Type),
		Scopes: make(scope.Cache),
	}
}

// Prepare allocates nil maps and records strategy as the one Delta holds,
// clearing Delta when it was filled under another strategy. Every
// inference entry point calls it.
func (c *Cache) Prepare(strategy Strategy) {
	if strategy == "" {
		strategy = StrategyExtended
	}
	if c.Given == nil {
		c.Given = make(map[int]types.Type)
	}
	if c.Delta == nil {
		c.Delta = make(map[int]types.Type)
	}
	if c.Scopes == nil {
		c.Scopes = make(scope.Cache)
	}
	if c.strategy != strategy {
		if c.strategy != "" {
			clear(c.Delta)
		}
		c.strategy = strategy
	}
}

// Strategy returns the strategy Delta was inferred under, empty before
// the first pass.
func (c *Cache) Strategy() Strategy { return c.strategy }

// Lookup returns a cached type, preferring Given.
func (c *Cache) Lookup(id int) (types.Type, bool) {
	if t, ok := c.Given[id]; ok {
		return t, true
	}
	t, ok := c.Delta[id]
	return t, ok
}

// Stats returns hit and miss counts. Misses count node computations.
func (c *Cache) Stats() Stats { return c.stats }
