// Package analyzer composes the cursor inspection pipeline: active node,
// scope, inferred types and ranked completions for one position.
package analyzer

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/panbanda/pqinspect/pkg/analyzer/activenode"
	"github.com/panbanda/pqinspect/pkg/analyzer/autocomplete"
	"github.com/panbanda/pqinspect/pkg/analyzer/scope"
	"github.com/panbanda/pqinspect/pkg/analyzer/typeinfer"
	"github.com/panbanda/pqinspect/pkg/ast"
	"github.com/panbanda/pqinspect/pkg/types"
)

// ErrUnavailable wraps invariant failures: the graph could not be
// inspected at the requested position.
var ErrUnavailable = errors.New("inspection unavailable")

// Settings configures one inspection.
type Settings struct {
	Inference  typeinfer.Settings
	Completion autocomplete.Options
	// Library supplies host symbols for identifier completion.
	Library []autocomplete.Candidate
	// SkipCompletions leaves Inspection.Completions empty.
	SkipCompletions bool
}

// DefaultSettings returns extended inference and default ranking.
func DefaultSettings() Settings {
	return Settings{
		Inference:  typeinfer.DefaultSettings(),
		Completion: autocomplete.DefaultOptions(),
	}
}

// Inspection is everything known about one cursor position.
type Inspection struct {
	Active activenode.ActiveNode `json:"active" toon:"active"`
	// NodeID is the node Type describes, zero when nothing was typed.
	NodeID     int                   `json:"nodeId,omitempty" toon:"nodeId,omitempty"`
	Scope      *scope.NodeScope      `json:"-" toon:"-"`
	ScopeTypes map[string]types.Type `json:"-" toon:"-"`
	Type       types.Type            `json:"-" toon:"-"`
	// FieldTarget is the type being accessed when the cursor is inside a
	// field selector or projection.
	FieldTarget types.Type          `json:"-" toon:"-"`
	Completions []autocomplete.Item `json:"completions,omitempty" toon:"completions,omitempty"`
}

// Inspect resolves the active node at pos and runs scope resolution, type
// inference and completion ranking for it, sharing cache across the
// steps. Cancellation is returned as ctx.Err(); a malformed graph as an
// error wrapping both ErrUnavailable and the *ast.InvariantError.
func Inspect(ctx context.Context, settings Settings, g *ast.Graph, pos ast.Position, cache *typeinfer.Cache) (*Inspection, error) {
	if cache == nil {
		cache = typeinfer.NewCache()
	}
	cache.Prepare(settings.Inference.Strategy)
	log := settings.Inference.Logger
	if log == nil {
		log = zap.NewNop()
	}

	in, err := inspect(ctx, settings, g, pos, cache)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil && errors.Is(err, ctxErr) {
			return nil, err
		}
		log.Warn("inspection unavailable", zap.Stringer("position", pos), zap.Error(err))
		return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	log.Debug("inspected position",
		zap.Stringer("position", pos),
		zap.String("leafKind", string(in.Active.LeafKind)),
		zap.Int("scope", len(in.ScopeTypes)),
		zap.Int("completions", len(in.Completions)),
	)
	return in, nil
}

func inspect(ctx context.Context, settings Settings, g *ast.Graph, pos ast.Position, cache *typeinfer.Cache) (*Inspection, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	active := activenode.Resolve(g, pos)
	in := &Inspection{Active: active}
	if !active.InBounds() {
		in.complete(settings, g)
		return in, nil
	}

	leaf := active.Leaf()
	var err error
	if leaf.IsPending() {
		in.Scope, err = scope.ResolveOpen(ctx, g, leaf.ID(), cache.Scopes)
	} else {
		in.Scope, err = scope.Resolve(ctx, g, leaf.ID(), cache.Scopes)
	}
	if err != nil {
		return nil, err
	}
	in.ScopeTypes, err = typeinfer.InferBindingTypes(ctx, settings.Inference, g, leaf.ID(), in.Scope, cache)
	if err != nil {
		return nil, err
	}

	if err := in.inferActive(ctx, settings, g, cache); err != nil {
		return nil, err
	}
	if accessID, ok := autocomplete.FieldAccessNode(active); ok {
		in.FieldTarget, err = typeinfer.InferAccessTarget(ctx, settings.Inference, g, accessID, cache)
		if err != nil {
			return nil, err
		}
	}
	in.complete(settings, g)
	return in, nil
}

// inferActive types the innermost ancestor that denotes a value.
func (in *Inspection) inferActive(ctx context.Context, settings Settings, g *ast.Graph, cache *typeinfer.Cache) error {
	for _, ref := range in.Active.Ancestry {
		t, err := typeinfer.InferType(ctx, settings.Inference, g, ref.ID(), cache)
		if err != nil {
			return err
		}
		if t.Kind() == types.KindNotApplicable {
			continue
		}
		in.NodeID, in.Type = ref.ID(), t
		return nil
	}
	return nil
}

func (in *Inspection) complete(settings Settings, g *ast.Graph) {
	if settings.SkipCompletions {
		return
	}
	in.Completions = autocomplete.All(in.Active, autocomplete.Inputs{
		Graph:       g,
		Scope:       in.Scope,
		ScopeTypes:  in.ScopeTypes,
		Library:     settings.Library,
		FieldTarget: in.FieldTarget,
	}, settings.Completion)
}

// Hover renders the identifier or expression under the cursor with its
// type, or "" when nothing was typed.
func (in *Inspection) Hover() string {
	if in == nil || in.Type == nil {
		return ""
	}
	var b strings.Builder
	if id := in.Active.IdentifierInclusive; id != nil {
		b.WriteString(id.Literal)
		b.WriteString(": ")
	}
	b.WriteString(in.Type.String())
	if item, ok := in.boundItem(); ok {
		switch item.Kind {
		case scope.ItemParameter:
			b.WriteString(" (parameter)")
		case scope.ItemEachImplicit:
			b.WriteString(" (each item)")
		case scope.ItemRecordField:
			b.WriteString(" (field)")
		case scope.ItemSectionMember:
			b.WriteString(" (section member)")
		}
	}
	return b.String()
}

func (in *Inspection) boundItem() (scope.Item, bool) {
	id := in.Active.IdentifierInclusive
	if id == nil || in.Scope == nil {
		return scope.Item{}, false
	}
	key := id.Literal
	if id.IsRecursive {
		key = "@" + key
	}
	return in.Scope.Get(key)
}
